package store

import (
	"database/sql"

	"github.com/google/uuid"
)

type Staff struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type StaffStore interface {
	Insert(staff *Staff) error
	GetByID(id string) (*Staff, error)
	List() ([]*Staff, error)
}

type PostgresStaffStore struct {
	db *sql.DB
}

func NewPostgresStaffStore(db *sql.DB) *PostgresStaffStore {
	return &PostgresStaffStore{db: db}
}

func (s *PostgresStaffStore) Insert(staff *Staff) error {
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`INSERT INTO staff (id, name, role) VALUES ($1, $2, $3)`, staff.ID, staff.Name, staff.Role)
	return err
}

func (s *PostgresStaffStore) GetByID(id string) (*Staff, error) {
	var st Staff
	err := s.db.QueryRow(`SELECT id, name, role FROM staff WHERE id = $1`, id).Scan(&st.ID, &st.Name, &st.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *PostgresStaffStore) List() ([]*Staff, error) {
	rows, err := s.db.Query(`SELECT id, name, role FROM staff ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Staff
	for rows.Next() {
		var st Staff
		if err := rows.Scan(&st.ID, &st.Name, &st.Role); err != nil {
			return nil, err
		}
		list = append(list, &st)
	}
	return list, rows.Err()
}
