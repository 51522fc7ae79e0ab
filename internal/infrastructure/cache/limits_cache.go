// Package cache holds Redis-backed read caches. The only cache today is the
// effective-limits cache: limit resolution happens on hot request paths, so
// resolved limits are kept in Redis and invalidated whenever a subscription
// changes.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/infrastructure/config"
)

// RedisLimitsCache caches resolved effective limits per tenant.
type RedisLimitsCache struct {
	client     *redis.Client
	ownsClient bool
	ttl        time.Duration
	logger     *zap.Logger
}

// NewRedisLimitsCache connects to Redis and returns a limits cache
func NewRedisLimitsCache(cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) (*RedisLimitsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newLimitsCache(client, true, ttl, logger), nil
}

// NewRedisLimitsCacheWithClient wraps an existing client. The caller keeps
// ownership of the client.
func NewRedisLimitsCacheWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLimitsCache {
	return newLimitsCache(client, false, ttl, logger)
}

func newLimitsCache(client *redis.Client, owns bool, ttl time.Duration, logger *zap.Logger) *RedisLimitsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLimitsCache{client: client, ownsClient: owns, ttl: ttl, logger: logger}
}

func limitsKey(tenantID uuid.UUID) string {
	return "limits:effective:" + tenantID.String()
}

// Get returns the cached effective limits for a tenant, or (nil, nil) on a
// cache miss. Cache errors are reported but callers treat them as misses.
func (c *RedisLimitsCache) Get(ctx context.Context, tenantID uuid.UUID) (*identity.EffectiveLimits, error) {
	data, err := c.client.Get(ctx, limitsKey(tenantID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Failed to get effective limits from cache",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get limits from cache: %w", err)
	}

	var limits identity.EffectiveLimits
	if err := json.Unmarshal(data, &limits); err != nil {
		c.logger.Error("Failed to unmarshal cached limits",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		_ = c.client.Del(ctx, limitsKey(tenantID))
		return nil, fmt.Errorf("failed to unmarshal limits: %w", err)
	}
	return &limits, nil
}

// Set stores the resolved limits for a tenant
func (c *RedisLimitsCache) Set(ctx context.Context, tenantID uuid.UUID, limits identity.EffectiveLimits) error {
	data, err := json.Marshal(limits)
	if err != nil {
		return fmt.Errorf("failed to marshal limits: %w", err)
	}
	if err := c.client.Set(ctx, limitsKey(tenantID), data, c.ttl).Err(); err != nil {
		c.logger.Error("Failed to cache effective limits",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to set limits in cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached limits for a tenant. Called after every
// override or plan mutation so the next resolution sees fresh state.
func (c *RedisLimitsCache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	if err := c.client.Del(ctx, limitsKey(tenantID)).Err(); err != nil {
		c.logger.Error("Failed to invalidate cached limits",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to invalidate limits cache: %w", err)
	}
	return nil
}

// Close releases the Redis client if this cache owns it
func (c *RedisLimitsCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}
