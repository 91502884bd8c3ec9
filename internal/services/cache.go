package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"researchhub/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	permissionCachePrefix = "rbac:perms"
	permissionCacheGenKey = "rbac:perms:gen"
)

// PermissionCache keeps effective permission codes per user in redis.
// Grants to a role touch many users, so they bump a generation counter that
// is part of every key instead of deleting keys one by one.
type PermissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPermissionCache(client *redis.Client, ttl time.Duration) *PermissionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PermissionCache{client: client, ttl: ttl}
}

func (c *PermissionCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, permissionCacheGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *PermissionCache) key(gen int64, userID uint64) string {
	return fmt.Sprintf("%s:%d:%d", permissionCachePrefix, gen, userID)
}

// Get returns the cached codes and whether they were present. A nil cache always misses.
func (c *PermissionCache) Get(ctx context.Context, userID uint64) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	gen, err := c.generation(ctx)
	if err != nil {
		metrics.PermissionCacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	raw, err := c.client.Get(ctx, c.key(gen, userID)).Bytes()
	if err != nil {
		result := "error"
		if errors.Is(err, redis.Nil) {
			result = "miss"
		}
		metrics.PermissionCacheLookups.WithLabelValues(result).Inc()
		return nil, false
	}
	var codes []string
	if err := json.Unmarshal(raw, &codes); err != nil {
		metrics.PermissionCacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	metrics.PermissionCacheLookups.WithLabelValues("hit").Inc()
	return codes, true
}

func (c *PermissionCache) Set(ctx context.Context, userID uint64, codes []string) error {
	if c == nil {
		return nil
	}
	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}
	if codes == nil {
		codes = []string{}
	}
	data, err := json.Marshal(codes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(gen, userID), data, c.ttl).Err()
}

// InvalidateUser drops one user's entry.
func (c *PermissionCache) InvalidateUser(ctx context.Context, userID uint64) error {
	if c == nil {
		return nil
	}
	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}
	return c.client.Del(ctx, c.key(gen, userID)).Err()
}

// InvalidateAll orphans every entry by moving to a new generation.
func (c *PermissionCache) InvalidateAll(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Incr(ctx, permissionCacheGenKey).Err()
}
