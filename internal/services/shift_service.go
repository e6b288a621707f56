package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/fuelpoint/fuelpoint-server/internal/store"
	"github.com/fuelpoint/fuelpoint-server/internal/utils"
)

var (
	ErrStaffNotFound       = errors.New("staff member not found")
	ErrShiftNotActive      = errors.New("shift is not active")
	ErrInsufficientStock   = errors.New("not enough inventory to allocate")
	ErrInvalidAllocation   = errors.New("allocated quantity must be greater than 0")
	ErrConsumableNotListed = errors.New("consumable not found")
)

type ShiftService struct {
	shifts           store.ShiftStore
	readings         store.ReadingStore
	staff            store.StaffStore
	consumables      store.ConsumableStore
	shiftConsumables store.ShiftConsumableStore
}

func NewShiftService(
	shifts store.ShiftStore,
	readings store.ReadingStore,
	staff store.StaffStore,
	consumables store.ConsumableStore,
	shiftConsumables store.ShiftConsumableStore,
) *ShiftService {
	return &ShiftService{
		shifts:           shifts,
		readings:         readings,
		staff:            staff,
		consumables:      consumables,
		shiftConsumables: shiftConsumables,
	}
}

type StartShiftRequest struct {
	StaffID       string             `json:"staff_id"`
	PumpID        string             `json:"pump_id"`
	ShiftType     store.ShiftType    `json:"shift_type"`
	FuelTypes     []string           `json:"fuel_types"`
	OpeningByType map[string]float64 `json:"opening_by_type"`
	CashGiven     float64            `json:"cash_given"`
}

func (req StartShiftRequest) validate() error {
	var verrs utils.ValidationErrors
	if req.StaffID == "" {
		verrs = append(verrs, utils.FieldError{Field: "staff_id", Message: "is required"})
	}
	if req.PumpID == "" {
		verrs = append(verrs, utils.FieldError{Field: "pump_id", Message: "is required"})
	}
	if req.CashGiven < 0 {
		verrs = append(verrs, utils.FieldError{Field: "cash_given", Message: "must be zero or greater"})
	}
	for ft, opening := range req.OpeningByType {
		if opening < 0 {
			verrs = append(verrs, utils.FieldError{Field: "opening_by_type." + ft, Message: "must be zero or greater"})
		}
	}
	if len(verrs) > 0 {
		return verrs
	}
	return nil
}

// StartShift opens a shift and one reading per nozzle. When the caller does
// not supply an opening value for a fuel type, the pump's last recorded
// closing is carried forward so the meter trail stays continuous.
func (s *ShiftService) StartShift(req StartShiftRequest) (*store.Shift, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	staff, err := s.staff.GetByID(req.StaffID)
	if err != nil {
		return nil, fmt.Errorf("checking staff: %w", err)
	}
	if staff == nil {
		return nil, ErrStaffNotFound
	}

	activeIDs, err := s.shifts.ListActiveStaffIDs()
	if err != nil {
		return nil, fmt.Errorf("checking active shifts: %w", err)
	}
	for _, id := range activeIDs {
		if id == req.StaffID {
			return nil, ErrStaffOnActiveShift
		}
	}

	shiftType := req.ShiftType
	if shiftType == "" {
		shiftType = store.ShiftDay
	}

	shift := &store.Shift{
		StaffID:   req.StaffID,
		PumpID:    req.PumpID,
		ShiftType: shiftType,
		StartTime: time.Now(),
		Status:    store.ShiftActive,
	}
	if err := s.shifts.Insert(shift); err != nil {
		return nil, fmt.Errorf("creating shift: %w", err)
	}

	fuelTypes := req.FuelTypes
	if len(fuelTypes) == 0 {
		fuelTypes = []string{"petrol"}
	}

	for _, fuelType := range fuelTypes {
		ft := NormalizeFuelType(fuelType)
		opening, ok := req.OpeningByType[ft]
		if !ok {
			last, err := s.readings.GetLastCompletedByPump(req.PumpID, ft)
			if err != nil {
				return nil, fmt.Errorf("looking up last reading for %s: %w", ft, err)
			}
			if last != nil && last.ClosingReading != nil {
				opening = *last.ClosingReading
			}
		}

		reading := &store.Reading{
			ShiftID:        shift.ID,
			StaffID:        shift.StaffID,
			PumpID:         shift.PumpID,
			FuelType:       ft,
			Date:           shift.StartTime,
			OpeningReading: opening,
			CashGiven:      req.CashGiven,
		}
		if err := s.readings.Insert(reading); err != nil {
			return nil, fmt.Errorf("creating reading for %s: %w", ft, err)
		}
	}

	return shift, nil
}

func (s *ShiftService) GetShift(id string) (*store.Shift, error) {
	return s.shifts.GetByID(id)
}

func (s *ShiftService) ListActiveShifts() ([]*store.Shift, error) {
	return s.shifts.ListActive()
}

func (s *ShiftService) ListCompletedShifts(page int) ([]*store.Shift, error) {
	limit := 20
	offset := (page - 1) * limit
	return s.shifts.ListCompleted(limit, offset)
}

func (s *ShiftService) ListStaff() ([]*store.Staff, error) {
	return s.staff.List()
}

// SelectableStaff filters out anyone already on an active shift, the list
// a successor can be chosen from.
func (s *ShiftService) SelectableStaff() ([]*store.Staff, error) {
	all, err := s.staff.List()
	if err != nil {
		return nil, err
	}
	activeIDs, err := s.shifts.ListActiveStaffIDs()
	if err != nil {
		return nil, err
	}

	active := make(map[string]bool, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = true
	}

	var selectable []*store.Staff
	for _, st := range all {
		if !active[st.ID] {
			selectable = append(selectable, st)
		}
	}
	return selectable, nil
}

// DeleteShift removes an active shift that was opened by mistake. Readings
// go with it and any consumables issued to it are re-credited to inventory.
// Completed shifts are audit records and are never deleted.
func (s *ShiftService) DeleteShift(id string) error {
	shift, err := s.shifts.GetByID(id)
	if err != nil {
		return fmt.Errorf("fetching shift: %w", err)
	}
	if shift == nil {
		return ErrShiftNotFound
	}
	if shift.Status != store.ShiftActive {
		return ErrShiftNotActive
	}

	allocated, err := s.shiftConsumables.ListAllocated(id)
	if err != nil {
		return fmt.Errorf("fetching allocated consumables: %w", err)
	}
	for _, sc := range allocated {
		if _, err := s.consumables.AdjustQuantity(sc.ConsumableID, sc.QuantityAllocated); err != nil {
			return fmt.Errorf("re-crediting %s: %w", sc.Name, err)
		}
	}
	if err := s.shiftConsumables.DeleteByShift(id); err != nil {
		return fmt.Errorf("removing shift consumables: %w", err)
	}

	if err := s.readings.DeleteByShift(id); err != nil {
		return fmt.Errorf("removing readings: %w", err)
	}
	return s.shifts.Delete(id)
}

type AllocateConsumableRequest struct {
	ConsumableID string  `json:"consumable_id"`
	Quantity     float64 `json:"quantity"`
}

// AllocateConsumables issues stock to an active shift, decrementing
// inventory for each line.
func (s *ShiftService) AllocateConsumables(shiftID string, items []AllocateConsumableRequest) ([]*store.ShiftConsumable, error) {
	shift, err := s.shifts.GetByID(shiftID)
	if err != nil {
		return nil, fmt.Errorf("fetching shift: %w", err)
	}
	if shift == nil {
		return nil, ErrShiftNotFound
	}
	if shift.Status != store.ShiftActive {
		return nil, ErrShiftNotActive
	}

	var allocated []*store.ShiftConsumable
	for _, item := range items {
		if item.Quantity <= 0 {
			return allocated, ErrInvalidAllocation
		}

		c, err := s.consumables.GetByID(item.ConsumableID)
		if err != nil {
			return allocated, fmt.Errorf("fetching consumable: %w", err)
		}
		if c == nil {
			return allocated, ErrConsumableNotListed
		}
		if c.Quantity < item.Quantity {
			return allocated, fmt.Errorf("%w: %s (available %.2f, requested %.2f)", ErrInsufficientStock, c.Name, c.Quantity, item.Quantity)
		}

		if _, err := s.consumables.AdjustQuantity(item.ConsumableID, -item.Quantity); err != nil {
			return allocated, fmt.Errorf("decrementing inventory for %s: %w", c.Name, err)
		}

		sc := &store.ShiftConsumable{
			ShiftID:           shiftID,
			ConsumableID:      item.ConsumableID,
			Name:              c.Name,
			Unit:              c.Unit,
			PricePerUnit:      c.PricePerUnit,
			QuantityAllocated: item.Quantity,
		}
		if err := s.shiftConsumables.Allocate(sc); err != nil {
			return allocated, fmt.Errorf("recording allocation for %s: %w", c.Name, err)
		}
		allocated = append(allocated, sc)
	}

	return allocated, nil
}
