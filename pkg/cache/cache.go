// Package cache wraps the shared Redis client. Every helper degrades to a
// no-op (or a miss) when Redis is not connected, so callers never need to
// branch on availability.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/feastly/feastly/config"
	"github.com/feastly/feastly/pkg/metrics"
)

var RDB *redis.Client
var Ctx = context.Background()

// Connect initialises the Redis client and verifies the connection with a ping.
func Connect() error {
	RDB = redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr(),
		Password: config.RedisPassword(),
		DB:       0,
	})

	if err := RDB.Ping(Ctx).Err(); err != nil {
		RDB = nil
		return fmt.Errorf("cache: redis ping: %w", err)
	}
	return nil
}

// Available reports whether Redis is connected.
func Available() bool { return RDB != nil }

// Get retrieves a cached value by key and unmarshals into dest.
// Returns true on a cache hit, false on miss or error.
func Get(key string, dest interface{}) bool {
	if RDB == nil {
		return false
	}

	val, err := RDB.Get(Ctx, key).Result()
	if err != nil {
		metrics.CacheMisses.WithLabelValues("redis").Inc()
		return false
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		metrics.CacheMisses.WithLabelValues("redis").Inc()
		return false
	}

	metrics.CacheHits.WithLabelValues("redis").Inc()
	return true
}

// Set stores value under key for the given TTL.
func Set(key string, value interface{}, ttl time.Duration) error {
	if RDB == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return RDB.Set(Ctx, key, data, ttl).Err()
}

// Del removes one or more keys.
func Del(keys ...string) error {
	if RDB == nil || len(keys) == 0 {
		return nil
	}
	return RDB.Del(Ctx, keys...).Err()
}

// Forget removes every key matching pattern (e.g. "foods:*").
func Forget(pattern string) error {
	if RDB == nil {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := RDB.Scan(Ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if err := Del(keys...); err != nil {
			return err
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Lock acquires a short-lived exclusive lock with SETNX. ok is false when
// another holder already owns key. With Redis unavailable the lock is
// always granted; callers must treat it as advisory.
func Lock(ctx context.Context, key string, ttl time.Duration) (ok bool, release func(), err error) {
	if RDB == nil {
		return true, func() {}, nil
	}

	acquired, err := RDB.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, func() {}, fmt.Errorf("cache: lock %s: %w", key, err)
	}
	if !acquired {
		return false, func() {}, nil
	}

	return true, func() { RDB.Del(context.Background(), key) }, nil
}
