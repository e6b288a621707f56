package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Reading struct {
	ID                 string    `json:"id"`
	ShiftID            string    `json:"shift_id"`
	StaffID            string    `json:"staff_id"`
	PumpID             string    `json:"pump_id"`
	FuelType           string    `json:"fuel_type"`
	Date               time.Time `json:"date"`
	OpeningReading     float64   `json:"opening_reading"`
	ClosingReading     *float64  `json:"closing_reading"`
	CashGiven          float64   `json:"cash_given"`
	CashRemaining      *float64  `json:"cash_remaining"`
	CardSales          *float64  `json:"card_sales"`
	UPISales           *float64  `json:"upi_sales"`
	CashSales          *float64  `json:"cash_sales"`
	IndentSales        *float64  `json:"indent_sales"`
	TestingFuel        *float64  `json:"testing_fuel"`
	Expenses           *float64  `json:"expenses"`
	ConsumableExpenses *float64  `json:"consumable_expenses"`
	CreatedAt          time.Time `json:"created_at"`
}

// ReadingClosePatch carries every closing-time field for one nozzle.
// TestingFuel is per fuel type, the rest is shift-wide and repeated on
// each reading row the way the upstream schema stores it.
type ReadingClosePatch struct {
	ClosingReading     float64
	CashRemaining      float64
	CardSales          float64
	UPISales           float64
	CashSales          float64
	IndentSales        float64
	Expenses           float64
	ConsumableExpenses float64
	TestingFuel        float64
}

type ReadingStore interface {
	Insert(reading *Reading) error
	ListByShift(shiftID string) ([]*Reading, error)
	// UpdateClosing patches the reading rows for a shift. A non-empty
	// fuelType restricts the patch to that nozzle's row.
	UpdateClosing(shiftID, fuelType string, patch ReadingClosePatch) error
	// GetLastCompletedByPump returns the most recent reading with a
	// closing value for a pump, used to carry the meter forward.
	GetLastCompletedByPump(pumpID, fuelType string) (*Reading, error)
	DeleteByShift(shiftID string) error
}

type PostgresReadingStore struct {
	db *sql.DB
}

func NewPostgresReadingStore(db *sql.DB) *PostgresReadingStore {
	return &PostgresReadingStore{db: db}
}

const readingColumns = `id, shift_id, staff_id, pump_id, fuel_type, date, opening_reading, closing_reading,
	cash_given, cash_remaining, card_sales, upi_sales, cash_sales, indent_sales, testing_fuel,
	expenses, consumable_expenses, created_at`

func (s *PostgresReadingStore) Insert(r *Reading) error {
	query := `
		INSERT INTO readings (id, shift_id, staff_id, pump_id, fuel_type, date, opening_reading, cash_given)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Date.IsZero() {
		r.Date = time.Now()
	}

	return s.db.QueryRow(query, r.ID, r.ShiftID, r.StaffID, r.PumpID, r.FuelType, r.Date, r.OpeningReading, r.CashGiven).Scan(&r.CreatedAt)
}

func (s *PostgresReadingStore) ListByShift(shiftID string) ([]*Reading, error) {
	query := `SELECT ` + readingColumns + ` FROM readings WHERE shift_id = $1 ORDER BY fuel_type`

	rows, err := s.db.Query(query, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []*Reading
	for rows.Next() {
		r := &Reading{}
		if err := scanReading(rows, r); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func (s *PostgresReadingStore) UpdateClosing(shiftID, fuelType string, patch ReadingClosePatch) error {
	query := `
		UPDATE readings
		SET closing_reading=$1, cash_remaining=$2, card_sales=$3, upi_sales=$4, cash_sales=$5,
		    indent_sales=$6, expenses=$7, consumable_expenses=$8, testing_fuel=$9
		WHERE shift_id=$10`

	args := []any{
		patch.ClosingReading, patch.CashRemaining, patch.CardSales, patch.UPISales, patch.CashSales,
		patch.IndentSales, patch.Expenses, patch.ConsumableExpenses, patch.TestingFuel, shiftID,
	}
	if fuelType != "" {
		query += ` AND fuel_type=$11`
		args = append(args, fuelType)
	}

	_, err := s.db.Exec(query, args...)
	return err
}

func (s *PostgresReadingStore) GetLastCompletedByPump(pumpID, fuelType string) (*Reading, error) {
	query := `SELECT ` + readingColumns + `
		FROM readings
		WHERE pump_id = $1 AND fuel_type = $2 AND closing_reading IS NOT NULL
		ORDER BY created_at DESC LIMIT 1`

	r := &Reading{}
	err := scanReading(s.db.QueryRow(query, pumpID, fuelType), r)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PostgresReadingStore) DeleteByShift(shiftID string) error {
	_, err := s.db.Exec(`DELETE FROM readings WHERE shift_id = $1`, shiftID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner, r *Reading) error {
	return row.Scan(
		&r.ID, &r.ShiftID, &r.StaffID, &r.PumpID, &r.FuelType, &r.Date, &r.OpeningReading, &r.ClosingReading,
		&r.CashGiven, &r.CashRemaining, &r.CardSales, &r.UPISales, &r.CashSales, &r.IndentSales, &r.TestingFuel,
		&r.Expenses, &r.ConsumableExpenses, &r.CreatedAt,
	)
}
