package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a snapshot stays cached.
const DefaultTTL = 5 * time.Minute

// Connect creates a Redis client and verifies the connection with a ping.
func Connect(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("Redis connected", "addr", addr, "db", db)
	return client, nil
}

// RedisCache stores JSON-encoded values under a key prefix.
type RedisCache[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache[T any](client *redis.Client, prefix string, ttl time.Duration) *RedisCache[T] {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &RedisCache[T]{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false
	}
	if err != nil {
		slog.WarnContext(ctx, "Redis cache get error", "key", key, "error", err)
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.WarnContext(ctx, "Redis cache decode error", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

func (c *RedisCache[T]) Set(ctx context.Context, key string, data T) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.WarnContext(ctx, "Redis cache encode error", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Redis cache set error", "key", key, "error", err)
	}
}

func (c *RedisCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		slog.WarnContext(ctx, "Redis cache delete error", "key", key, "error", err)
	}
}

// Size counts the keys under the cache prefix.
func (c *RedisCache[T]) Size(ctx context.Context) int {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			slog.WarnContext(ctx, "Redis cache scan error", "error", err)
			return count
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count
		}
	}
}
