package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// IndentTransaction is a credit-based fuel sale drawn against a customer's
// pre-purchased booklet, settled later. Rows are attributed to the staff
// member who dispensed them; the sales aggregator sums them over a shift's
// time window.
type IndentTransaction struct {
	ID         string    `json:"id"`
	StaffID    string    `json:"staff_id"`
	CustomerID string    `json:"customer_id"`
	FuelType   string    `json:"fuel_type"`
	Quantity   float64   `json:"quantity"`
	Amount     float64   `json:"amount"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

type TransactionStore interface {
	Insert(tx *IndentTransaction) error
	ListByStaffBetween(staffID string, from, to time.Time) ([]*IndentTransaction, error)
	SumByStaffBetween(staffID string, from, to time.Time) (float64, error)
}

type PostgresTransactionStore struct {
	db *sql.DB
}

func NewPostgresTransactionStore(db *sql.DB) *PostgresTransactionStore {
	return &PostgresTransactionStore{db: db}
}

func (s *PostgresTransactionStore) Insert(tx *IndentTransaction) error {
	query := `
		INSERT INTO transactions (id, staff_id, customer_id, fuel_type, quantity, amount, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}

	return s.db.QueryRow(query, tx.ID, tx.StaffID, tx.CustomerID, tx.FuelType, tx.Quantity, tx.Amount, tx.Source).Scan(&tx.CreatedAt)
}

func (s *PostgresTransactionStore) ListByStaffBetween(staffID string, from, to time.Time) ([]*IndentTransaction, error) {
	query := `
		SELECT id, staff_id, customer_id, fuel_type, quantity, amount, source, created_at
		FROM transactions
		WHERE staff_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at`

	rows, err := s.db.Query(query, staffID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*IndentTransaction
	for rows.Next() {
		t := &IndentTransaction{}
		if err := rows.Scan(&t.ID, &t.StaffID, &t.CustomerID, &t.FuelType, &t.Quantity, &t.Amount, &t.Source, &t.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *PostgresTransactionStore) SumByStaffBetween(staffID string, from, to time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE staff_id = $1 AND created_at >= $2 AND created_at <= $3`

	var total float64
	err := s.db.QueryRow(query, staffID, from, to).Scan(&total)
	return total, err
}
