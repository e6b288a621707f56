package store

import (
	"database/sql"
	"time"
)

type Consumable struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	PricePerUnit float64   `json:"price_per_unit"`
	Quantity     float64   `json:"quantity"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ConsumableStore interface {
	GetByID(id string) (*Consumable, error)
	List() ([]*Consumable, error)
	// AdjustQuantity moves inventory by delta (positive on return,
	// negative on allocation) and returns the new quantity.
	AdjustQuantity(id string, delta float64) (float64, error)
}

type PostgresConsumableStore struct {
	db *sql.DB
}

func NewPostgresConsumableStore(db *sql.DB) *PostgresConsumableStore {
	return &PostgresConsumableStore{db: db}
}

func (s *PostgresConsumableStore) GetByID(id string) (*Consumable, error) {
	query := `SELECT id, name, unit, price_per_unit, quantity, updated_at FROM consumables WHERE id = $1`

	var c Consumable
	err := s.db.QueryRow(query, id).Scan(&c.ID, &c.Name, &c.Unit, &c.PricePerUnit, &c.Quantity, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresConsumableStore) List() ([]*Consumable, error) {
	query := `SELECT id, name, unit, price_per_unit, quantity, updated_at FROM consumables ORDER BY name`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var consumables []*Consumable
	for rows.Next() {
		var c Consumable
		if err := rows.Scan(&c.ID, &c.Name, &c.Unit, &c.PricePerUnit, &c.Quantity, &c.UpdatedAt); err != nil {
			return nil, err
		}
		consumables = append(consumables, &c)
	}
	return consumables, rows.Err()
}

func (s *PostgresConsumableStore) AdjustQuantity(id string, delta float64) (float64, error) {
	query := `
		UPDATE consumables
		SET quantity = quantity + $1, updated_at = now()
		WHERE id = $2
		RETURNING quantity`

	var quantity float64
	err := s.db.QueryRow(query, delta, id).Scan(&quantity)
	if err == sql.ErrNoRows {
		return 0, ErrConsumableNotFound
	}
	return quantity, err
}
