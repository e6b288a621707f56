package store

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

var ErrConsumableNotFound = errors.New("consumable not found")

type ConsumableStatus string

const (
	ConsumableAllocated ConsumableStatus = "allocated"
	ConsumableReturned  ConsumableStatus = "returned"
)

// ShiftConsumable is one line of stock issued to a shift, joined with the
// consumable's name and price so callers can value it without a second query.
type ShiftConsumable struct {
	ID                string           `json:"id"`
	ShiftID           string           `json:"shift_id"`
	ConsumableID      string           `json:"consumable_id"`
	Name              string           `json:"name"`
	Unit              string           `json:"unit"`
	PricePerUnit      float64          `json:"price_per_unit"`
	QuantityAllocated float64          `json:"quantity_allocated"`
	QuantityReturned  *float64         `json:"quantity_returned"`
	Status            ConsumableStatus `json:"status"`
}

type ShiftConsumableStore interface {
	Allocate(sc *ShiftConsumable) error
	ListAllocated(shiftID string) ([]*ShiftConsumable, error)
	ListByShift(shiftID string) ([]*ShiftConsumable, error)
	MarkReturned(shiftID, consumableID string, quantityReturned float64) error
	DeleteByShift(shiftID string) error
}

type PostgresShiftConsumableStore struct {
	db *sql.DB
}

func NewPostgresShiftConsumableStore(db *sql.DB) *PostgresShiftConsumableStore {
	return &PostgresShiftConsumableStore{db: db}
}

func (s *PostgresShiftConsumableStore) Allocate(sc *ShiftConsumable) error {
	query := `
		INSERT INTO shift_consumables (id, shift_id, consumable_id, quantity_allocated, status)
		VALUES ($1, $2, $3, $4, 'allocated')`

	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	sc.Status = ConsumableAllocated

	_, err := s.db.Exec(query, sc.ID, sc.ShiftID, sc.ConsumableID, sc.QuantityAllocated)
	return err
}

const shiftConsumableQuery = `
	SELECT sc.id, sc.shift_id, sc.consumable_id, c.name, c.unit, c.price_per_unit,
	       sc.quantity_allocated, sc.quantity_returned, sc.status
	FROM shift_consumables sc
	JOIN consumables c ON c.id = sc.consumable_id
	WHERE sc.shift_id = $1`

func (s *PostgresShiftConsumableStore) ListAllocated(shiftID string) ([]*ShiftConsumable, error) {
	return s.query(shiftConsumableQuery+` AND sc.status = 'allocated' ORDER BY c.name`, shiftID)
}

func (s *PostgresShiftConsumableStore) ListByShift(shiftID string) ([]*ShiftConsumable, error) {
	return s.query(shiftConsumableQuery+` ORDER BY c.name`, shiftID)
}

func (s *PostgresShiftConsumableStore) MarkReturned(shiftID, consumableID string, quantityReturned float64) error {
	query := `
		UPDATE shift_consumables
		SET status='returned', quantity_returned=$1
		WHERE shift_id=$2 AND consumable_id=$3`

	_, err := s.db.Exec(query, quantityReturned, shiftID, consumableID)
	return err
}

func (s *PostgresShiftConsumableStore) DeleteByShift(shiftID string) error {
	_, err := s.db.Exec(`DELETE FROM shift_consumables WHERE shift_id = $1`, shiftID)
	return err
}

func (s *PostgresShiftConsumableStore) query(query string, args ...any) ([]*ShiftConsumable, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*ShiftConsumable
	for rows.Next() {
		sc := &ShiftConsumable{}
		if err := rows.Scan(
			&sc.ID, &sc.ShiftID, &sc.ConsumableID, &sc.Name, &sc.Unit, &sc.PricePerUnit,
			&sc.QuantityAllocated, &sc.QuantityReturned, &sc.Status,
		); err != nil {
			return nil, err
		}
		list = append(list, sc)
	}
	return list, rows.Err()
}
