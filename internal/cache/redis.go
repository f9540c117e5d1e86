package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Domenick1991/railbooking/config"
	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

const pendingMarker = "pending"

// ErrKeyInFlight means another request with the same Idempotency-Key is still
// being processed.
var ErrKeyInFlight = fmt.Errorf("request with this idempotency key is in progress: %w", domain.ErrConflict)

// RedisCache binds Idempotency-Key headers of POST /orders to the order they created.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	return NewRedisCacheWithClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		cfg.IdempotencyTTL(),
	)
}

func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Reserve claims key for userID. When the key already produced an order its id
// is returned with reserved=false. A key that is claimed but not yet bound
// yields ErrKeyInFlight.
func (c *RedisCache) Reserve(ctx context.Context, userID int64, key string) (orderID int64, reserved bool, err error) {
	ok, err := c.client.SetNX(ctx, idempotencyKey(userID, key), pendingMarker, c.ttl).Result()
	if err != nil {
		return 0, false, err
	}
	if ok {
		return 0, true, nil
	}

	value, err := c.client.Get(ctx, idempotencyKey(userID, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			return c.Reserve(ctx, userID, key)
		}
		return 0, false, err
	}
	if value == pendingMarker {
		return 0, false, ErrKeyInFlight
	}
	orderID, err = strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupted idempotency entry %q: %w", value, err)
	}
	return orderID, false, nil
}

func (c *RedisCache) Bind(ctx context.Context, userID int64, key string, orderID int64) error {
	return c.client.Set(ctx, idempotencyKey(userID, key), strconv.FormatInt(orderID, 10), c.ttl).Err()
}

func (c *RedisCache) Release(ctx context.Context, userID int64, key string) error {
	return c.client.Del(ctx, idempotencyKey(userID, key)).Err()
}

func idempotencyKey(userID int64, key string) string {
	return fmt.Sprintf("idempotency:user:%d:order:%s", userID, key)
}
