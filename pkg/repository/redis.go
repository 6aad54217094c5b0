package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/go-redis/redis/v8"
)

// RedisRepository caches order summaries so the details endpoint does not hit
// MySQL for orders that just went through checkout. All callers treat it as
// best-effort; a cache failure never fails the request.
type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func orderKey(orderID string) string {
	return fmt.Sprintf("order:%s", orderID)
}

func (r *RedisRepository) CacheOrder(ctx context.Context, orderID string, value interface{}, ttl time.Duration) error {
	return r.SetJSON(ctx, orderKey(orderID), value, ttl)
}

func (r *RedisRepository) GetOrderCache(ctx context.Context, orderID string, dest interface{}) error {
	return r.GetJSON(ctx, orderKey(orderID), dest)
}

// InvalidateOrder drops the cached summary after any status mutation.
func (r *RedisRepository) InvalidateOrder(ctx context.Context, orderID string) error {
	return r.Del(ctx, orderKey(orderID))
}
