package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/fuelpoint/fuelpoint-server/internal/store"
)

const priceTTL = 5 * time.Minute

// FuelSettingStore decorates a store.FuelSettingStore with a price cache.
// Cache failures are logged and fall through to the backing store; the
// cache can never make a price lookup fail.
type FuelSettingStore struct {
	backing store.FuelSettingStore
	cache   PriceCache
	logger  *slog.Logger
}

func NewFuelSettingStore(backing store.FuelSettingStore, cache PriceCache, logger *slog.Logger) *FuelSettingStore {
	return &FuelSettingStore{backing: backing, cache: cache, logger: logger}
}

func (s *FuelSettingStore) List() ([]*store.FuelSetting, error) {
	return s.backing.List()
}

func (s *FuelSettingStore) GetPrice(fuelType string) (float64, error) {
	ctx := context.Background()

	price, ok, err := s.cache.Get(ctx, fuelType)
	if err != nil {
		s.logger.Warn("price cache read failed", "fuel_type", fuelType, "error", err)
	}
	if ok {
		return price, nil
	}

	price, err = s.backing.GetPrice(fuelType)
	if err != nil {
		return 0, err
	}

	if err := s.cache.Set(ctx, fuelType, price, priceTTL); err != nil {
		s.logger.Warn("price cache write failed", "fuel_type", fuelType, "error", err)
	}
	return price, nil
}

func (s *FuelSettingStore) UpdatePrice(fuelType string, price float64) error {
	if err := s.backing.UpdatePrice(fuelType, price); err != nil {
		return err
	}
	// Overwrite rather than invalidate so readers never see the old price
	// for a full TTL.
	if err := s.cache.Set(context.Background(), fuelType, price, priceTTL); err != nil {
		s.logger.Warn("price cache write failed", "fuel_type", fuelType, "error", err)
	}
	return nil
}
