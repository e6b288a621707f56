// Package cache keeps fuel prices close to the reconciliation hot path.
// Prices change at most daily but are read on every end-shift load.
package cache

import (
	"context"
	"time"
)

type PriceCache interface {
	Get(ctx context.Context, fuelType string) (float64, bool, error)
	Set(ctx context.Context, fuelType string, price float64, ttl time.Duration) error
}

type NoopPriceCache struct{}

func (NoopPriceCache) Get(_ context.Context, _ string) (float64, bool, error) {
	return 0, false, nil
}

func (NoopPriceCache) Set(_ context.Context, _ string, _ float64, _ time.Duration) error {
	return nil
}
