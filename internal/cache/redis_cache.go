package cache

import (
	"context"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type RedisPriceCache struct {
	client *redis.Client
}

func NewRedisPriceCache(addr string, password string, db int) *RedisPriceCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisPriceCache{client: client}
}

func (c *RedisPriceCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisPriceCache) Close() error {
	return c.client.Close()
}

func (c *RedisPriceCache) Get(ctx context.Context, fuelType string) (float64, bool, error) {
	val, err := c.client.Get(ctx, priceKey(fuelType)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

func (c *RedisPriceCache) Set(ctx context.Context, fuelType string, price float64, ttl time.Duration) error {
	return c.client.Set(ctx, priceKey(fuelType), strconv.FormatFloat(price, 'f', -1, 64), ttl).Err()
}

func priceKey(fuelType string) string {
	return "fuel_price:" + fuelType
}
