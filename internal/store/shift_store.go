package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type ShiftType string

const (
	ShiftMorning ShiftType = "morning"
	ShiftEvening ShiftType = "evening"
	ShiftNight   ShiftType = "night"
	ShiftDay     ShiftType = "day"
)

type ShiftStatus string

const (
	ShiftActive    ShiftStatus = "active"
	ShiftCompleted ShiftStatus = "completed"
)

type Shift struct {
	ID            string      `json:"id"`
	StaffID       string      `json:"staff_id"`
	PumpID        string      `json:"pump_id"`
	ShiftType     ShiftType   `json:"shift_type"`
	StartTime     time.Time   `json:"start_time"`
	EndTime       *time.Time  `json:"end_time"`
	Status        ShiftStatus `json:"status"` // 'active', 'completed'
	CashRemaining *float64    `json:"cash_remaining"`
	CreatedAt     time.Time   `json:"created_at"`
}

// ShiftEndPatch is the write applied when a shift is closed. EndTime and
// Status always travel together so the end_time ⇔ completed invariant
// cannot be broken by a partial update.
type ShiftEndPatch struct {
	EndTime       time.Time
	CashRemaining float64
}

type ShiftStore interface {
	Insert(shift *Shift) error
	GetByID(id string) (*Shift, error)
	UpdateEnd(id string, patch ShiftEndPatch) error
	ListActive() ([]*Shift, error)
	ListCompleted(limit, offset int) ([]*Shift, error)
	ListActiveStaffIDs() ([]string, error)
	Delete(id string) error
}

type PostgresShiftStore struct {
	db *sql.DB
}

func NewPostgresShiftStore(db *sql.DB) *PostgresShiftStore {
	return &PostgresShiftStore{db: db}
}

func (s *PostgresShiftStore) Insert(shift *Shift) error {
	query := `
		INSERT INTO shifts (id, staff_id, pump_id, shift_type, start_time, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}
	if shift.StartTime.IsZero() {
		shift.StartTime = time.Now()
	}
	if shift.Status == "" {
		shift.Status = ShiftActive
	}

	return s.db.QueryRow(query, shift.ID, shift.StaffID, shift.PumpID, shift.ShiftType, shift.StartTime, shift.Status).Scan(&shift.CreatedAt)
}

func (s *PostgresShiftStore) GetByID(id string) (*Shift, error) {
	query := `
		SELECT id, staff_id, pump_id, shift_type, start_time, end_time, status, cash_remaining, created_at
		FROM shifts WHERE id = $1`

	var shift Shift
	err := s.db.QueryRow(query, id).Scan(
		&shift.ID, &shift.StaffID, &shift.PumpID, &shift.ShiftType, &shift.StartTime,
		&shift.EndTime, &shift.Status, &shift.CashRemaining, &shift.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (s *PostgresShiftStore) UpdateEnd(id string, patch ShiftEndPatch) error {
	query := `
		UPDATE shifts
		SET end_time=$1, status='completed', cash_remaining=$2
		WHERE id=$3`

	_, err := s.db.Exec(query, patch.EndTime, patch.CashRemaining, id)
	return err
}

func (s *PostgresShiftStore) ListActive() ([]*Shift, error) {
	query := `
		SELECT id, staff_id, pump_id, shift_type, start_time, end_time, status, cash_remaining, created_at
		FROM shifts WHERE status = 'active'
		ORDER BY start_time DESC`

	return s.queryShifts(query)
}

func (s *PostgresShiftStore) ListCompleted(limit, offset int) ([]*Shift, error) {
	query := `
		SELECT id, staff_id, pump_id, shift_type, start_time, end_time, status, cash_remaining, created_at
		FROM shifts WHERE status = 'completed'
		ORDER BY end_time DESC LIMIT $1 OFFSET $2`

	return s.queryShifts(query, limit, offset)
}

func (s *PostgresShiftStore) ListActiveStaffIDs() ([]string, error) {
	query := `SELECT DISTINCT staff_id FROM shifts WHERE status = 'active'`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresShiftStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM shifts WHERE id = $1`, id)
	return err
}

func (s *PostgresShiftStore) queryShifts(query string, args ...any) ([]*Shift, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []*Shift
	for rows.Next() {
		var sh Shift
		if err := rows.Scan(
			&sh.ID, &sh.StaffID, &sh.PumpID, &sh.ShiftType, &sh.StartTime,
			&sh.EndTime, &sh.Status, &sh.CashRemaining, &sh.CreatedAt,
		); err != nil {
			return nil, err
		}
		shifts = append(shifts, &sh)
	}
	return shifts, rows.Err()
}
