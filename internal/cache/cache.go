// Package cache provides a namespaced JSON cache over Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent.
var ErrMiss = errors.New("cache miss")

// Client stores JSON values under "<namespace>:<version>:<key>" keys. A nil
// *Client is valid and behaves as an always-empty cache.
type Client struct {
	redis     *redis.Client
	namespace string
	ttl       time.Duration
}

// New builds a cache client. A nil redis client yields a disabled cache.
func New(client *redis.Client, namespace string, ttl time.Duration) *Client {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Client{
		redis:     client,
		namespace: strings.Trim(namespace, ":"),
		ttl:       ttl,
	}
}

// Key returns the fully qualified redis key for the given parts.
func (c *Client) Key(parts ...string) string {
	if c == nil {
		return strings.Join(parts, ":")
	}
	return c.namespace + ":" + strings.Join(parts, ":")
}

// Get decodes the value stored at key into dest.
func (c *Client) Get(ctx context.Context, key string, dest interface{}) error {
	if c == nil {
		return ErrMiss
	}
	payload, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	return nil
}

// Set encodes value as JSON and stores it with the client TTL.
func (c *Client) Set(ctx context.Context, key string, value interface{}) error {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// GetMany fetches several keys in one round trip and returns the raw payloads
// of the keys that were present.
func (c *Client) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	found := make(map[string][]byte, len(keys))
	if c == nil || len(keys) == 0 {
		return found, nil
	}
	values, err := c.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("cache mget: %w", err)
	}
	for i, value := range values {
		if raw, ok := value.(string); ok {
			found[keys[i]] = []byte(raw)
		}
	}
	return found, nil
}

// InvalidateMany deletes the given keys.
func (c *Client) InvalidateMany(ctx context.Context, keys []string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache del: %w", err)
	}
	return nil
}
