package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vetting/internal/evidence/npi"
	"vetting/pkg/platform/sentinel"
)

const verificationKeyPrefix = "npi:verification:"

// RedisCache shares verification results across instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisCacheOption configures a RedisCache.
type RedisCacheOption func(*RedisCache)

// WithTTL bounds how long results live in Redis. Zero (the default) keeps them
// until replaced.
func WithTTL(ttl time.Duration) RedisCacheOption {
	return func(c *RedisCache) {
		c.ttl = ttl
	}
}

func NewRedisCache(client *redis.Client, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *RedisCache) Find(ctx context.Context, candidate string) (*npi.VerificationResult, error) {
	raw, err := c.client.Get(ctx, verificationKeyPrefix+candidate).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get npi verification: %w", err)
	}
	var result npi.VerificationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode npi verification: %w", err)
	}
	return &result, nil
}

func (c *RedisCache) Save(ctx context.Context, result *npi.VerificationResult) error {
	if result == nil {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode npi verification: %w", err)
	}
	if err := c.client.Set(ctx, verificationKeyPrefix+result.Candidate, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set npi verification: %w", err)
	}
	return nil
}
