// Package cache keeps computed cup views in Redis. A Cache without a client
// is a no-op, so the service runs unchanged when REDIS_URL is unset.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cupPrefix = "cup:"

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to the Redis server at url. An empty url returns a disabled cache.
func New(ctx context.Context, url string, ttl time.Duration) (*Cache, error) {
	if url == "" {
		return &Cache{ttl: ttl}, nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Cache{client: client, ttl: ttl}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// CupKey is the key of the cached summary of a cup.
func CupKey(cupID uuid.UUID) string {
	return cupPrefix + cupID.String()
}

// GetJSON decodes the cached value into dst. It reports false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, value any) error {
	if !c.Enabled() {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// InvalidateCup drops every cached entry derived from the cup.
func (c *Cache) InvalidateCup(ctx context.Context, cupID uuid.UUID) error {
	return c.DeleteByPrefix(ctx, CupKey(cupID))
}

func (c *Cache) DeleteByPrefix(ctx context.Context, prefix string) error {
	if !c.Enabled() {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return nil
}
