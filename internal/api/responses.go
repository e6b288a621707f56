package api

import (
	"github.com/fuelpoint/fuelpoint-server/internal/services"
	"github.com/fuelpoint/fuelpoint-server/internal/store"
)

type ShiftResponse struct {
	Shift store.Shift `json:"shift"`
}

type ShiftsResponse struct {
	Shifts []store.Shift `json:"shifts"`
}

type StaffListResponse struct {
	Staff []store.Staff `json:"staff"`
}

type ShiftConsumablesResponse struct {
	Consumables []store.ShiftConsumable `json:"consumables"`
}

type FuelSettingsResponse struct {
	FuelSettings []store.FuelSetting `json:"fuel_settings"`
}

// EndShiftSummaryResponse mirrors what the close-shift screen needs in one
// round trip: the shift under closure, its readings, allocated consumables,
// fuel rates and the prefilled form.
type EndShiftSummaryResponse struct {
	Shift            store.Shift             `json:"shift"`
	Readings         []store.Reading         `json:"readings"`
	Consumables      []store.ShiftConsumable `json:"consumables"`
	FuelPrices       map[string]float64      `json:"fuel_prices"`
	Form             services.EndShiftForm   `json:"form"`
	FuelUsage        services.FuelUsage      `json:"fuel_usage"`
	EditingCompleted bool                    `json:"editing_completed"`
	Degraded         bool                    `json:"degraded"`
	DegradedReason   string                  `json:"degraded_reason,omitempty"`
}

type EndShiftResultResponse struct {
	Result services.EndShiftResult `json:"result"`
}

type ReconciliationResponse struct {
	Reconciliation services.CashReconciliation `json:"reconciliation"`
}
