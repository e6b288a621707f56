package services

import (
	"errors"
	"fmt"

	"github.com/fuelpoint/fuelpoint-server/internal/store"
)

var (
	ErrReturnExceedsAllocation = errors.New("returned quantity cannot exceed allocated quantity")
	ErrNegativeReturn          = errors.New("returned quantity cannot be negative")
	ErrUnknownConsumable       = errors.New("consumable was not allocated to this shift")
)

// ConsumableLedger tracks what was issued to a shift against what came back.
// It lives only in the working memory of one end-shift operation; nothing is
// written until Commit.
type ConsumableLedger struct {
	allocated []*store.ShiftConsumable
	returned  map[string]float64 // consumable ID -> quantity returned
}

// LoadConsumableLedger seeds the ledger from the shift's consumable rows.
// Rows already settled keep their persisted return quantity, so recomputing
// the consumed value for an edited shift reproduces the figure written at
// close. Unsettled rows start at zero returned.
func LoadConsumableLedger(shiftConsumables store.ShiftConsumableStore, shiftID string) (*ConsumableLedger, error) {
	allocated, err := shiftConsumables.ListByShift(shiftID)
	if err != nil {
		return nil, fmt.Errorf("loading shift consumables: %w", err)
	}

	returned := make(map[string]float64, len(allocated))
	for _, sc := range allocated {
		if sc.QuantityReturned != nil {
			returned[sc.ConsumableID] = *sc.QuantityReturned
		} else {
			returned[sc.ConsumableID] = 0
		}
	}

	return &ConsumableLedger{allocated: allocated, returned: returned}, nil
}

func (l *ConsumableLedger) Allocated() []*store.ShiftConsumable {
	return l.allocated
}

func (l *ConsumableLedger) Returned(consumableID string) float64 {
	return l.returned[consumableID]
}

// SetReturned records a return quantity. Validation failures are returned
// to the caller for re-prompting; they never abort the session.
func (l *ConsumableLedger) SetReturned(consumableID string, qty float64) error {
	if qty < 0 {
		return ErrNegativeReturn
	}

	for _, sc := range l.allocated {
		if sc.ConsumableID != consumableID {
			continue
		}
		if qty > sc.QuantityAllocated {
			return fmt.Errorf("%w: returned %.2f of %.2f %s", ErrReturnExceedsAllocation, qty, sc.QuantityAllocated, sc.Unit)
		}
		l.returned[consumableID] = qty
		return nil
	}

	return ErrUnknownConsumable
}

// ConsumedValue prices the quantities that did not come back. The figure is
// recorded on the shift's readings as consumable expense (consumption
// semantics; the allocation-time cost view is not used here).
func (l *ConsumableLedger) ConsumedValue() float64 {
	var value float64
	for _, sc := range l.allocated {
		consumed := sc.QuantityAllocated - l.returned[sc.ConsumableID]
		value += consumed * sc.PricePerUnit
	}
	return value
}

// Commit applies the returns: inventory is credited with each returned
// quantity and the allocation row is flipped to returned. Write failures
// propagate immediately; earlier items stay applied.
func (l *ConsumableLedger) Commit(consumables store.ConsumableStore, shiftConsumables store.ShiftConsumableStore, shiftID string) error {
	for _, sc := range l.allocated {
		qty := l.returned[sc.ConsumableID]

		if qty > 0 {
			if _, err := consumables.AdjustQuantity(sc.ConsumableID, qty); err != nil {
				return fmt.Errorf("restocking %s: %w", sc.Name, err)
			}
		}

		if err := shiftConsumables.MarkReturned(shiftID, sc.ConsumableID, qty); err != nil {
			return fmt.Errorf("marking %s returned: %w", sc.Name, err)
		}
	}
	return nil
}
