package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizcore/backend/internal/domain/identity"
)

func testLimitsCache(t *testing.T, ttl time.Duration) (*RedisLimitsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLimitsCacheWithClient(client, ttl, nil), mr
}

func TestRedisLimitsCache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss returns nil without error", func(t *testing.T) {
		c, _ := testLimitsCache(t, time.Minute)

		limits, err := c.Get(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, limits)
	})

	t.Run("set then get round-trips the limits", func(t *testing.T) {
		c, _ := testLimitsCache(t, time.Minute)
		tenantID := uuid.New()
		want := identity.DefaultPlanLimits(identity.TenantPlanPro)
		want.UserLimit = 42

		require.NoError(t, c.Set(ctx, tenantID, want))

		got, err := c.Get(ctx, tenantID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want, *got)
	})

	t.Run("entries are scoped per tenant", func(t *testing.T) {
		c, _ := testLimitsCache(t, time.Minute)
		tenantA := uuid.New()
		tenantB := uuid.New()

		require.NoError(t, c.Set(ctx, tenantA, identity.DefaultPlanLimits(identity.TenantPlanBasic)))

		got, err := c.Get(ctx, tenantB)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("invalidate drops the entry", func(t *testing.T) {
		c, _ := testLimitsCache(t, time.Minute)
		tenantID := uuid.New()

		require.NoError(t, c.Set(ctx, tenantID, identity.DefaultPlanLimits(identity.TenantPlanFree)))
		require.NoError(t, c.Invalidate(ctx, tenantID))

		got, err := c.Get(ctx, tenantID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("entry expires after the ttl", func(t *testing.T) {
		c, mr := testLimitsCache(t, time.Minute)
		tenantID := uuid.New()

		require.NoError(t, c.Set(ctx, tenantID, identity.DefaultPlanLimits(identity.TenantPlanEnterprise)))
		mr.FastForward(2 * time.Minute)

		got, err := c.Get(ctx, tenantID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("corrupt entry is evicted and reported", func(t *testing.T) {
		c, mr := testLimitsCache(t, time.Minute)
		tenantID := uuid.New()
		require.NoError(t, mr.Set("limits:effective:"+tenantID.String(), "not-json"))

		_, err := c.Get(ctx, tenantID)
		require.Error(t, err)
		assert.False(t, mr.Exists("limits:effective:"+tenantID.String()))
	})
}
