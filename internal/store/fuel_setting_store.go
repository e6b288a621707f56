package store

import (
	"database/sql"
	"errors"
	"time"
)

var ErrFuelTypeNotFound = errors.New("fuel type not found")

type FuelSetting struct {
	FuelType     string    `json:"fuel_type"`
	CurrentPrice float64   `json:"current_price"`
	TankCapacity float64   `json:"tank_capacity"`
	CurrentLevel float64   `json:"current_level"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type FuelSettingStore interface {
	List() ([]*FuelSetting, error)
	GetPrice(fuelType string) (float64, error)
	UpdatePrice(fuelType string, price float64) error
}

type PostgresFuelSettingStore struct {
	db *sql.DB
}

func NewPostgresFuelSettingStore(db *sql.DB) *PostgresFuelSettingStore {
	return &PostgresFuelSettingStore{db: db}
}

func (s *PostgresFuelSettingStore) List() ([]*FuelSetting, error) {
	query := `SELECT fuel_type, current_price, tank_capacity, current_level, updated_at FROM fuel_settings ORDER BY fuel_type`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []*FuelSetting
	for rows.Next() {
		var fs FuelSetting
		if err := rows.Scan(&fs.FuelType, &fs.CurrentPrice, &fs.TankCapacity, &fs.CurrentLevel, &fs.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, &fs)
	}
	return settings, rows.Err()
}

func (s *PostgresFuelSettingStore) GetPrice(fuelType string) (float64, error) {
	query := `SELECT current_price FROM fuel_settings WHERE fuel_type = $1`

	var price float64
	err := s.db.QueryRow(query, fuelType).Scan(&price)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return price, err
}

func (s *PostgresFuelSettingStore) UpdatePrice(fuelType string, price float64) error {
	query := `UPDATE fuel_settings SET current_price=$1, updated_at=now() WHERE fuel_type=$2`

	result, err := s.db.Exec(query, price, fuelType)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrFuelTypeNotFound
	}
	return nil
}
