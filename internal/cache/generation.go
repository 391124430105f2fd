package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// Generation versions cached values. Values are stored under keys that
// embed the generation they were loaded at, so bumping it makes every older
// value unreachable, including ones still being written by slow loaders.
type Generation interface {
	Current(ctx context.Context) (uint64, error)
	Bump(ctx context.Context) (uint64, error)
}

// LocalGeneration is a Generation for a single process.
type LocalGeneration struct {
	n atomic.Uint64
}

func (g *LocalGeneration) Current(context.Context) (uint64, error) {
	return g.n.Load(), nil
}

func (g *LocalGeneration) Bump(context.Context) (uint64, error) {
	return g.n.Add(1), nil
}

// RedisGeneration keeps the generation in a Redis counter shared by every
// process using the same cache.
type RedisGeneration struct {
	client *redis.Client
	key    string
}

func NewRedisGeneration(client *redis.Client, key string) *RedisGeneration {
	return &RedisGeneration{client: client, key: key}
}

func (g *RedisGeneration) Current(ctx context.Context) (uint64, error) {
	n, err := g.client.Get(ctx, g.key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get %s: %w", g.key, err)
	}
	return n, nil
}

func (g *RedisGeneration) Bump(ctx context.Context) (uint64, error) {
	n, err := g.client.Incr(ctx, g.key).Uint64()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", g.key, err)
	}
	return n, nil
}
