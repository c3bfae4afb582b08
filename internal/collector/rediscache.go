package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"MarketPsyche/internal/model"

	"github.com/redis/go-redis/v9"
)

// BarCache stores recently fetched bars so repeated analyses and sibling
// processes do not hit the upstream again.
type BarCache interface {
	Get(ctx context.Context, key string) ([]model.OHLCV, bool, error)
	Set(ctx context.Context, key string, bars []model.OHLCV) error
}

// DefaultBarTTL is how long fetched bars are reused.
const DefaultBarTTL = 5 * time.Minute

// RedisBarCache keeps bars as JSON under "bars:{kind}:{symbol}:{period}".
type RedisBarCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBarCache connects to addr and pings it.
func NewRedisBarCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisBarCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis at %s: %w", addr, err)
	}
	if ttl <= 0 {
		ttl = DefaultBarTTL
	}
	return &RedisBarCache{client: client, ttl: ttl}, nil
}

// Get returns cached bars; a miss is (nil, false, nil).
func (r *RedisBarCache) Get(ctx context.Context, key string) ([]model.OHLCV, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var bars []model.OHLCV
	if err := json.Unmarshal(raw, &bars); err != nil {
		return nil, false, fmt.Errorf("decode cached bars %s: %w", key, err)
	}
	return bars, true, nil
}

// Set stores bars for the configured TTL.
func (r *RedisBarCache) Set(ctx context.Context, key string, bars []model.OHLCV) error {
	raw, err := json.Marshal(bars)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, r.ttl).Err()
}

// Close releases the connection pool.
func (r *RedisBarCache) Close() error {
	return r.client.Close()
}

func barKey(kind model.MarketKind, symbol string, period model.Period) string {
	return fmt.Sprintf("bars:%s:%s:%s", kind, symbol, period)
}
