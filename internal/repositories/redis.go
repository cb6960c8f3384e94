package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisMedium stores entries as redis strings without expiry.
type RedisMedium struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisMedium creates a redis-backed medium. Every key is stored as prefix+key.
func NewRedisMedium(rdb *redis.Client, prefix string) *RedisMedium {
	return &RedisMedium{rdb: rdb, prefix: prefix}
}

func (m *RedisMedium) key(k string) string {
	return m.prefix + k
}

// Get retrieves the value stored under key. [redis.Nil] maps to not found.
func (m *RedisMedium) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := m.rdb.Get(ctx, m.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key with no expiration.
func (m *RedisMedium) Set(ctx context.Context, key, value string) error {
	if err := m.rdb.Set(ctx, m.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes keys with a single DEL.
func (m *RedisMedium) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = m.key(k)
	}
	if err := m.rdb.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}
