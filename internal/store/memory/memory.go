// Package memory implements every store interface against in-process maps.
// It backs the test suite and the dev mode that runs without Postgres.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fuelpoint/fuelpoint-server/internal/store"
)

type Store struct {
	mu               sync.RWMutex
	staffByID        map[string]store.Staff
	shiftsByID       map[string]store.Shift
	readingsByID     map[string]store.Reading
	consumablesByID  map[string]store.Consumable
	shiftConsumables map[string]store.ShiftConsumable
	transactionsByID map[string]store.IndentTransaction
	fuelSettings     map[string]store.FuelSetting
}

func New() *Store {
	return &Store{
		staffByID:        map[string]store.Staff{},
		shiftsByID:       map[string]store.Shift{},
		readingsByID:     map[string]store.Reading{},
		consumablesByID:  map[string]store.Consumable{},
		shiftConsumables: map[string]store.ShiftConsumable{},
		transactionsByID: map[string]store.IndentTransaction{},
		fuelSettings:     map[string]store.FuelSetting{},
	}
}

// --- shifts ---

func (m *Store) insertShift(shift *store.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}
	if shift.StartTime.IsZero() {
		shift.StartTime = time.Now()
	}
	if shift.Status == "" {
		shift.Status = store.ShiftActive
	}
	shift.CreatedAt = time.Now()
	m.shiftsByID[shift.ID] = *shift
	return nil
}

func (m *Store) getShiftByID(id string) (*store.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sh, ok := m.shiftsByID[id]
	if !ok {
		return nil, nil
	}
	return &sh, nil
}

func (m *Store) updateShiftEnd(id string, patch store.ShiftEndPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sh, ok := m.shiftsByID[id]
	if !ok {
		return nil
	}
	end := patch.EndTime
	cash := patch.CashRemaining
	sh.EndTime = &end
	sh.Status = store.ShiftCompleted
	sh.CashRemaining = &cash
	m.shiftsByID[id] = sh
	return nil
}

func (m *Store) listShifts(keep func(store.Shift) bool) []*store.Shift {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var shifts []*store.Shift
	for _, sh := range m.shiftsByID {
		if keep(sh) {
			c := sh
			shifts = append(shifts, &c)
		}
	}
	sort.Slice(shifts, func(i, j int) bool { return shifts[i].StartTime.After(shifts[j].StartTime) })
	return shifts
}

func (m *Store) listActiveStaffIDs() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for _, sh := range m.shiftsByID {
		if sh.Status == store.ShiftActive {
			ids = append(ids, sh.StaffID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Store) deleteShift(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.shiftsByID, id)
	return nil
}

// --- readings ---

func (m *Store) insertReading(r *store.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Date.IsZero() {
		r.Date = time.Now()
	}
	r.CreatedAt = time.Now()
	m.readingsByID[r.ID] = *r
	return nil
}

func (m *Store) listReadingsByShift(shiftID string) ([]*store.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var readings []*store.Reading
	for _, r := range m.readingsByID {
		if r.ShiftID == shiftID {
			c := r
			readings = append(readings, &c)
		}
	}
	sort.Slice(readings, func(i, j int) bool { return readings[i].FuelType < readings[j].FuelType })
	return readings, nil
}

func (m *Store) updateReadingClosing(shiftID, fuelType string, patch store.ReadingClosePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.readingsByID {
		if r.ShiftID != shiftID {
			continue
		}
		if fuelType != "" && r.FuelType != fuelType {
			continue
		}
		closing, cashRemaining := patch.ClosingReading, patch.CashRemaining
		card, upi, cash := patch.CardSales, patch.UPISales, patch.CashSales
		indent, expenses := patch.IndentSales, patch.Expenses
		consumable, testing := patch.ConsumableExpenses, patch.TestingFuel
		r.ClosingReading = &closing
		r.CashRemaining = &cashRemaining
		r.CardSales = &card
		r.UPISales = &upi
		r.CashSales = &cash
		r.IndentSales = &indent
		r.Expenses = &expenses
		r.ConsumableExpenses = &consumable
		r.TestingFuel = &testing
		m.readingsByID[id] = r
	}
	return nil
}

func (m *Store) getLastCompletedByPump(pumpID, fuelType string) (*store.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *store.Reading
	for _, r := range m.readingsByID {
		if r.PumpID != pumpID || r.FuelType != fuelType || r.ClosingReading == nil {
			continue
		}
		c := r
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = &c
		}
	}
	return latest, nil
}

func (m *Store) deleteReadingsByShift(shiftID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.readingsByID {
		if r.ShiftID == shiftID {
			delete(m.readingsByID, id)
		}
	}
	return nil
}

// --- consumables ---

// SeedConsumable inserts an inventory row directly, for dev seeding and tests.
func (m *Store) SeedConsumable(c *store.Consumable) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.UpdatedAt = time.Now()
	m.consumablesByID[c.ID] = *c
}

func (m *Store) getConsumableByID(id string) (*store.Consumable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.consumablesByID[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Store) listConsumables() ([]*store.Consumable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []*store.Consumable
	for _, c := range m.consumablesByID {
		cc := c
		list = append(list, &cc)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (m *Store) adjustConsumableQuantity(id string, delta float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.consumablesByID[id]
	if !ok {
		return 0, store.ErrConsumableNotFound
	}
	c.Quantity += delta
	c.UpdatedAt = time.Now()
	m.consumablesByID[id] = c
	return c.Quantity, nil
}

// --- shift consumables ---

func (m *Store) allocateConsumable(sc *store.ShiftConsumable) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	sc.Status = store.ConsumableAllocated
	if c, ok := m.consumablesByID[sc.ConsumableID]; ok {
		sc.Name = c.Name
		sc.Unit = c.Unit
		sc.PricePerUnit = c.PricePerUnit
	}
	m.shiftConsumables[sc.ID] = *sc
	return nil
}

func (m *Store) listShiftConsumables(shiftID string, allocatedOnly bool) ([]*store.ShiftConsumable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []*store.ShiftConsumable
	for _, sc := range m.shiftConsumables {
		if sc.ShiftID != shiftID {
			continue
		}
		if allocatedOnly && sc.Status != store.ConsumableAllocated {
			continue
		}
		c := sc
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (m *Store) markConsumableReturned(shiftID, consumableID string, quantityReturned float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, sc := range m.shiftConsumables {
		if sc.ShiftID == shiftID && sc.ConsumableID == consumableID {
			qty := quantityReturned
			sc.Status = store.ConsumableReturned
			sc.QuantityReturned = &qty
			m.shiftConsumables[id] = sc
		}
	}
	return nil
}

func (m *Store) deleteShiftConsumables(shiftID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, sc := range m.shiftConsumables {
		if sc.ShiftID == shiftID {
			delete(m.shiftConsumables, id)
		}
	}
	return nil
}

// --- transactions ---

func (m *Store) insertTransaction(tx *store.IndentTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	m.transactionsByID[tx.ID] = *tx
	return nil
}

func (m *Store) listTransactionsByStaffBetween(staffID string, from, to time.Time) ([]*store.IndentTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var txs []*store.IndentTransaction
	for _, t := range m.transactionsByID {
		if t.StaffID != staffID || t.CreatedAt.Before(from) || t.CreatedAt.After(to) {
			continue
		}
		c := t
		txs = append(txs, &c)
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt.Before(txs[j].CreatedAt) })
	return txs, nil
}

func (m *Store) sumTransactionsByStaffBetween(staffID string, from, to time.Time) (float64, error) {
	txs, err := m.listTransactionsByStaffBetween(staffID, from, to)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, t := range txs {
		total += t.Amount
	}
	return total, nil
}

// --- fuel settings ---

// SeedFuelSetting inserts a fuel settings row directly, for dev seeding and tests.
func (m *Store) SeedFuelSetting(fs store.FuelSetting) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fs.UpdatedAt = time.Now()
	m.fuelSettings[fs.FuelType] = fs
}

func (m *Store) listFuelSettings() ([]*store.FuelSetting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var settings []*store.FuelSetting
	for _, fs := range m.fuelSettings {
		c := fs
		settings = append(settings, &c)
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].FuelType < settings[j].FuelType })
	return settings, nil
}

func (m *Store) getFuelPrice(fuelType string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fs, ok := m.fuelSettings[fuelType]
	if !ok {
		return 0, nil
	}
	return fs.CurrentPrice, nil
}

func (m *Store) updateFuelPrice(fuelType string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fs, ok := m.fuelSettings[fuelType]
	if !ok {
		return store.ErrFuelTypeNotFound
	}
	fs.CurrentPrice = price
	fs.UpdatedAt = time.Now()
	m.fuelSettings[fuelType] = fs
	return nil
}

// --- staff ---

func (m *Store) insertStaff(st *store.Staff) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	m.staffByID[st.ID] = *st
	return nil
}

func (m *Store) getStaffByID(id string) (*store.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.staffByID[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *Store) listStaff() ([]*store.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []*store.Staff
	for _, st := range m.staffByID {
		c := st
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}
