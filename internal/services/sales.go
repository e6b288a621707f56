package services

import (
	"log/slog"
	"time"

	"github.com/fuelpoint/fuelpoint-server/internal/store"
)

// SalesBreakdown is the per-channel sales entered (or derived) at shift end.
type SalesBreakdown struct {
	CardSales   float64 `json:"card_sales"`
	UPISales    float64 `json:"upi_sales"`
	CashSales   float64 `json:"cash_sales"`
	IndentSales float64 `json:"indent_sales"`
}

func (s SalesBreakdown) Total() float64 {
	return s.CardSales + s.UPISales + s.CashSales + s.IndentSales
}

type SalesAggregator struct {
	transactionStore store.TransactionStore
	logger           *slog.Logger
}

func NewSalesAggregator(transactionStore store.TransactionStore, logger *slog.Logger) *SalesAggregator {
	return &SalesAggregator{
		transactionStore: transactionStore,
		logger:           logger,
	}
}

// IndentSales sums the transaction ledger for a staff member over the
// shift's time window. An open shift (nil end) is summed up to now.
// A ledger failure is non-fatal: the workflow continues with the fallback
// value, typically the last figure already on the reading row.
func (a *SalesAggregator) IndentSales(staffID string, start time.Time, end *time.Time, fallback float64) float64 {
	until := time.Now()
	if end != nil {
		until = *end
	}

	total, err := a.transactionStore.SumByStaffBetween(staffID, start, until)
	if err != nil {
		a.logger.Warn("indent sales lookup failed, keeping last known value",
			"staff_id", staffID, "fallback", fallback, "error", err)
		return fallback
	}
	return total
}
