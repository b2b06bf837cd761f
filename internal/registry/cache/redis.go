// Package cache holds verification results in Redis so repeated checks for the
// same bot skip the database.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	verifyKeyPrefix = "bothub:verify:"
	DefaultTTL      = 30 * time.Second
	// revokeTTL keeps a deleted bot's denial well past any verification that
	// read the row before the delete committed.
	revokeTTL = 10 * time.Minute
)

// RedisAuthCache implements service.AuthCache. Entries expire after ttl, which
// bounds how long a result can outlive a change made by another instance.
//
// Fills never overwrite an existing entry, and Revoke overwrites with a
// denial. A verification racing a delete can therefore not re-authorize the
// deleted bot: its late fill finds the revocation and is dropped.
type RedisAuthCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Option configures a RedisAuthCache.
type Option func(*RedisAuthCache)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *RedisAuthCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func NewRedisAuthCache(client *redis.Client, opts ...Option) *RedisAuthCache {
	c := &RedisAuthCache{
		client: client,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the cached result for botID. found is false on a miss.
func (c *RedisAuthCache) Get(ctx context.Context, botID string) (authorized bool, found bool, err error) {
	val, err := c.client.Get(ctx, verifyKeyPrefix+botID).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

// Fill stores a result read from the store unless an entry already exists.
// Negative results are cached too so unknown ids do not reach the database on
// every check.
func (c *RedisAuthCache) Fill(ctx context.Context, botID string, authorized bool) error {
	val := "0"
	if authorized {
		val = "1"
	}
	return c.client.SetNX(ctx, verifyKeyPrefix+botID, val, c.ttl).Err()
}

// Revoke records a denial for deleted bots, replacing any cached result.
func (c *RedisAuthCache) Revoke(ctx context.Context, botIDs ...string) error {
	keys := cacheKeys(botIDs)
	if len(keys) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, key := range keys {
			p.Set(ctx, key, "0", revokeTTL)
		}
		return nil
	})
	return err
}

// Invalidate drops the entries for the given bots.
func (c *RedisAuthCache) Invalidate(ctx context.Context, botIDs ...string) error {
	keys := cacheKeys(botIDs)
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func cacheKeys(botIDs []string) []string {
	keys := make([]string, 0, len(botIDs))
	for _, id := range botIDs {
		if id != "" {
			keys = append(keys, verifyKeyPrefix+id)
		}
	}
	return keys
}
