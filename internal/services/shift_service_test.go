package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelpoint/fuelpoint-server/internal/store"
	"github.com/fuelpoint/fuelpoint-server/internal/store/memory"
	"github.com/fuelpoint/fuelpoint-server/internal/utils"
)

func newShiftServiceFixture(t *testing.T) (*ShiftService, *memory.Store) {
	t.Helper()

	mem := memory.New()
	require.NoError(t, mem.Staff().Insert(&store.Staff{ID: "staff-1", Name: "Ravi", Role: "staff"}))
	require.NoError(t, mem.Staff().Insert(&store.Staff{ID: "staff-2", Name: "Suresh", Role: "staff"}))

	svc := NewShiftService(mem.Shifts(), mem.Readings(), mem.Staff(), mem.Consumables(), mem.ShiftConsumables())
	return svc, mem
}

func TestShiftService_StartShift(t *testing.T) {
	svc, mem := newShiftServiceFixture(t)

	shift, err := svc.StartShift(StartShiftRequest{
		StaffID:       "staff-1",
		PumpID:        "P1",
		ShiftType:     store.ShiftMorning,
		FuelTypes:     []string{"MS", "HSD"},
		OpeningByType: map[string]float64{"petrol": 12345.0, "diesel": 9000.0},
		CashGiven:     2000,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, shift.ID)
	assert.Equal(t, store.ShiftActive, shift.Status)
	assert.Equal(t, store.ShiftMorning, shift.ShiftType)

	readings, err := mem.Readings().ListByShift(shift.ID)
	require.NoError(t, err)
	require.Len(t, readings, 2)

	// Sorted by fuel type: diesel then petrol, aliases normalized away.
	assert.Equal(t, "diesel", readings[0].FuelType)
	assert.Equal(t, 9000.0, readings[0].OpeningReading)
	assert.Equal(t, "petrol", readings[1].FuelType)
	assert.Equal(t, 12345.0, readings[1].OpeningReading)
	assert.Equal(t, 2000.0, readings[0].CashGiven)
}

func TestShiftService_StartShiftDefaults(t *testing.T) {
	svc, mem := newShiftServiceFixture(t)

	shift, err := svc.StartShift(StartShiftRequest{StaffID: "staff-1", PumpID: "P1"})
	require.NoError(t, err)
	assert.Equal(t, store.ShiftDay, shift.ShiftType)

	readings, err := mem.Readings().ListByShift(shift.ID)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, "petrol", readings[0].FuelType)
}

func TestShiftService_StartShiftCarriesMeterForward(t *testing.T) {
	svc, mem := newShiftServiceFixture(t)

	// A previous shift on this pump closed the petrol meter at 12840.
	closing := 12840.0
	require.NoError(t, mem.Readings().Insert(&store.Reading{
		ShiftID:        "old-shift",
		PumpID:         "P1",
		FuelType:       "petrol",
		OpeningReading: 12345.0,
		ClosingReading: &closing,
		CreatedAt:      time.Now().Add(-time.Hour),
	}))

	shift, err := svc.StartShift(StartShiftRequest{StaffID: "staff-1", PumpID: "P1"})
	require.NoError(t, err)

	readings, err := mem.Readings().ListByShift(shift.ID)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 12840.0, readings[0].OpeningReading)
}

func TestShiftService_StartShiftValidation(t *testing.T) {
	svc, _ := newShiftServiceFixture(t)

	tests := []struct {
		name      string
		req       StartShiftRequest
		wantField string
	}{
		{name: "missing staff", req: StartShiftRequest{PumpID: "P1"}, wantField: "staff_id"},
		{name: "missing pump", req: StartShiftRequest{StaffID: "staff-1"}, wantField: "pump_id"},
		{name: "negative cash", req: StartShiftRequest{StaffID: "staff-1", PumpID: "P1", CashGiven: -1}, wantField: "cash_given"},
		{
			name:      "negative opening",
			req:       StartShiftRequest{StaffID: "staff-1", PumpID: "P1", OpeningByType: map[string]float64{"petrol": -5}},
			wantField: "opening_by_type.petrol",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.StartShift(tt.req)

			var verrs utils.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.wantField, verrs[0].Field)
		})
	}
}

func TestShiftService_StartShiftErrors(t *testing.T) {
	svc, _ := newShiftServiceFixture(t)

	_, err := svc.StartShift(StartShiftRequest{StaffID: "nobody", PumpID: "P1"})
	assert.ErrorIs(t, err, ErrStaffNotFound)

	_, err = svc.StartShift(StartShiftRequest{StaffID: "staff-1", PumpID: "P1"})
	require.NoError(t, err)

	// One person cannot hold two active shifts, even on another pump.
	_, err = svc.StartShift(StartShiftRequest{StaffID: "staff-1", PumpID: "P2"})
	assert.ErrorIs(t, err, ErrStaffOnActiveShift)
}

func TestShiftService_SelectableStaff(t *testing.T) {
	svc, _ := newShiftServiceFixture(t)

	_, err := svc.StartShift(StartShiftRequest{StaffID: "staff-1", PumpID: "P1"})
	require.NoError(t, err)

	selectable, err := svc.SelectableStaff()
	require.NoError(t, err)
	require.Len(t, selectable, 1)
	assert.Equal(t, "staff-2", selectable[0].ID)
}

func TestShiftService_AllocateConsumables(t *testing.T) {
	svc, mem := newShiftServiceFixture(t)

	oil := &store.Consumable{Name: "Engine Oil 1L", Unit: "bottle", PricePerUnit: 50, Quantity: 100}
	mem.SeedConsumable(oil)

	shift, err := svc.StartShift(StartShiftRequest{StaffID: "staff-1", PumpID: "P1"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		shiftID string
		items   []AllocateConsumableRequest
		wantErr error
	}{
		{
			name:    "shift not found",
			shiftID: "bogus",
			items:   []AllocateConsumableRequest{{ConsumableID: oil.ID, Quantity: 1}},
			wantErr: ErrShiftNotFound,
		},
		{
			name:    "zero quantity",
			shiftID: shift.ID,
			items:   []AllocateConsumableRequest{{ConsumableID: oil.ID, Quantity: 0}},
			wantErr: ErrInvalidAllocation,
		},
		{
			name:    "unknown consumable",
			shiftID: shift.ID,
			items:   []AllocateConsumableRequest{{ConsumableID: "bogus", Quantity: 1}},
			wantErr: ErrConsumableNotListed,
		},
		{
			name:    "insufficient stock",
			shiftID: shift.ID,
			items:   []AllocateConsumableRequest{{ConsumableID: oil.ID, Quantity: 500}},
			wantErr: ErrInsufficientStock,
		},
		{
			name:    "successful allocation",
			shiftID: shift.ID,
			items:   []AllocateConsumableRequest{{ConsumableID: oil.ID, Quantity: 10}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocated, err := svc.AllocateConsumables(tt.shiftID, tt.items)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, allocated, 1)
			assert.Equal(t, 10.0, allocated[0].QuantityAllocated)
			assert.Equal(t, "Engine Oil 1L", allocated[0].Name)

			c, err := mem.Consumables().GetByID(oil.ID)
			require.NoError(t, err)
			assert.Equal(t, 90.0, c.Quantity)
		})
	}
}

func TestShiftService_DeleteShift(t *testing.T) {
	svc, mem := newShiftServiceFixture(t)

	oil := &store.Consumable{Name: "Engine Oil 1L", Unit: "bottle", PricePerUnit: 50, Quantity: 100}
	mem.SeedConsumable(oil)

	shift, err := svc.StartShift(StartShiftRequest{StaffID: "staff-1", PumpID: "P1"})
	require.NoError(t, err)
	_, err = svc.AllocateConsumables(shift.ID, []AllocateConsumableRequest{{ConsumableID: oil.ID, Quantity: 10}})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteShift(shift.ID))

	// The shift, its readings and its allocations are gone and the
	// issued stock is back in inventory.
	got, err := svc.GetShift(shift.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	readings, err := mem.Readings().ListByShift(shift.ID)
	require.NoError(t, err)
	assert.Empty(t, readings)

	c, err := mem.Consumables().GetByID(oil.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, c.Quantity)

	assert.ErrorIs(t, svc.DeleteShift(shift.ID), ErrShiftNotFound)
}

func TestShiftService_DeleteCompletedShiftRejected(t *testing.T) {
	svc, mem := newShiftServiceFixture(t)

	shift, err := svc.StartShift(StartShiftRequest{StaffID: "staff-1", PumpID: "P1"})
	require.NoError(t, err)
	require.NoError(t, mem.Shifts().UpdateEnd(shift.ID, store.ShiftEndPatch{EndTime: time.Now(), CashRemaining: 0}))

	assert.ErrorIs(t, svc.DeleteShift(shift.ID), ErrShiftNotActive)
}

func TestShiftService_ListCompletedShifts(t *testing.T) {
	svc, mem := newShiftServiceFixture(t)

	for i := 0; i < 25; i++ {
		sh := &store.Shift{
			StaffID:   "staff-1",
			PumpID:    "P1",
			StartTime: time.Now().Add(time.Duration(-i) * time.Hour),
			Status:    store.ShiftActive,
		}
		require.NoError(t, mem.Shifts().Insert(sh))
		require.NoError(t, mem.Shifts().UpdateEnd(sh.ID, store.ShiftEndPatch{EndTime: time.Now(), CashRemaining: 0}))
	}

	page1, err := svc.ListCompletedShifts(1)
	require.NoError(t, err)
	assert.Len(t, page1, 20)

	page2, err := svc.ListCompletedShifts(2)
	require.NoError(t, err)
	assert.Len(t, page2, 5)

	page3, err := svc.ListCompletedShifts(3)
	require.NoError(t, err)
	assert.Empty(t, page3)
}
