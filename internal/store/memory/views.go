package memory

import (
	"time"

	"github.com/fuelpoint/fuelpoint-server/internal/store"
)

// The store interfaces reuse method names across entities (Insert, List,
// GetByID), so a single struct cannot satisfy them all. Each view exposes
// one entity's slice of the shared Store.

type ShiftStore struct{ m *Store }

func (m *Store) Shifts() *ShiftStore { return &ShiftStore{m} }

func (v *ShiftStore) Insert(shift *store.Shift) error          { return v.m.insertShift(shift) }
func (v *ShiftStore) GetByID(id string) (*store.Shift, error)  { return v.m.getShiftByID(id) }
func (v *ShiftStore) ListActiveStaffIDs() ([]string, error)    { return v.m.listActiveStaffIDs() }
func (v *ShiftStore) Delete(id string) error                   { return v.m.deleteShift(id) }

func (v *ShiftStore) UpdateEnd(id string, patch store.ShiftEndPatch) error {
	return v.m.updateShiftEnd(id, patch)
}

func (v *ShiftStore) ListActive() ([]*store.Shift, error) {
	return v.m.listShifts(func(sh store.Shift) bool { return sh.Status == store.ShiftActive }), nil
}

func (v *ShiftStore) ListCompleted(limit, offset int) ([]*store.Shift, error) {
	shifts := v.m.listShifts(func(sh store.Shift) bool { return sh.Status == store.ShiftCompleted })
	if offset >= len(shifts) {
		return nil, nil
	}
	shifts = shifts[offset:]
	if limit > 0 && limit < len(shifts) {
		shifts = shifts[:limit]
	}
	return shifts, nil
}

type ReadingStore struct{ m *Store }

func (m *Store) Readings() *ReadingStore { return &ReadingStore{m} }

func (v *ReadingStore) Insert(r *store.Reading) error { return v.m.insertReading(r) }

func (v *ReadingStore) ListByShift(shiftID string) ([]*store.Reading, error) {
	return v.m.listReadingsByShift(shiftID)
}

func (v *ReadingStore) UpdateClosing(shiftID, fuelType string, patch store.ReadingClosePatch) error {
	return v.m.updateReadingClosing(shiftID, fuelType, patch)
}

func (v *ReadingStore) GetLastCompletedByPump(pumpID, fuelType string) (*store.Reading, error) {
	return v.m.getLastCompletedByPump(pumpID, fuelType)
}

func (v *ReadingStore) DeleteByShift(shiftID string) error {
	return v.m.deleteReadingsByShift(shiftID)
}

type ConsumableStore struct{ m *Store }

func (m *Store) Consumables() *ConsumableStore { return &ConsumableStore{m} }

func (v *ConsumableStore) GetByID(id string) (*store.Consumable, error) {
	return v.m.getConsumableByID(id)
}

func (v *ConsumableStore) List() ([]*store.Consumable, error) { return v.m.listConsumables() }

func (v *ConsumableStore) AdjustQuantity(id string, delta float64) (float64, error) {
	return v.m.adjustConsumableQuantity(id, delta)
}

type ShiftConsumableStore struct{ m *Store }

func (m *Store) ShiftConsumables() *ShiftConsumableStore { return &ShiftConsumableStore{m} }

func (v *ShiftConsumableStore) Allocate(sc *store.ShiftConsumable) error {
	return v.m.allocateConsumable(sc)
}

func (v *ShiftConsumableStore) ListAllocated(shiftID string) ([]*store.ShiftConsumable, error) {
	return v.m.listShiftConsumables(shiftID, true)
}

func (v *ShiftConsumableStore) ListByShift(shiftID string) ([]*store.ShiftConsumable, error) {
	return v.m.listShiftConsumables(shiftID, false)
}

func (v *ShiftConsumableStore) MarkReturned(shiftID, consumableID string, quantityReturned float64) error {
	return v.m.markConsumableReturned(shiftID, consumableID, quantityReturned)
}

func (v *ShiftConsumableStore) DeleteByShift(shiftID string) error {
	return v.m.deleteShiftConsumables(shiftID)
}

type TransactionStore struct{ m *Store }

func (m *Store) Transactions() *TransactionStore { return &TransactionStore{m} }

func (v *TransactionStore) Insert(tx *store.IndentTransaction) error {
	return v.m.insertTransaction(tx)
}

func (v *TransactionStore) ListByStaffBetween(staffID string, from, to time.Time) ([]*store.IndentTransaction, error) {
	return v.m.listTransactionsByStaffBetween(staffID, from, to)
}

func (v *TransactionStore) SumByStaffBetween(staffID string, from, to time.Time) (float64, error) {
	return v.m.sumTransactionsByStaffBetween(staffID, from, to)
}

type FuelSettingStore struct{ m *Store }

func (m *Store) FuelSettings() *FuelSettingStore { return &FuelSettingStore{m} }

func (v *FuelSettingStore) List() ([]*store.FuelSetting, error) { return v.m.listFuelSettings() }

func (v *FuelSettingStore) GetPrice(fuelType string) (float64, error) {
	return v.m.getFuelPrice(fuelType)
}

func (v *FuelSettingStore) UpdatePrice(fuelType string, price float64) error {
	return v.m.updateFuelPrice(fuelType, price)
}

type StaffStore struct{ m *Store }

func (m *Store) Staff() *StaffStore { return &StaffStore{m} }

func (v *StaffStore) Insert(staff *store.Staff) error         { return v.m.insertStaff(staff) }
func (v *StaffStore) GetByID(id string) (*store.Staff, error) { return v.m.getStaffByID(id) }
func (v *StaffStore) List() ([]*store.Staff, error)           { return v.m.listStaff() }
