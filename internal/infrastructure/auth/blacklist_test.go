package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBlacklist(t *testing.T) (*RedisTokenBlacklist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTokenBlacklistWithClient(client), mr
}

func TestTokenBlacklist(t *testing.T) {
	ctx := context.Background()

	t.Run("revoked token is reported revoked", func(t *testing.T) {
		blacklist, _ := testBlacklist(t)

		require.NoError(t, blacklist.Revoke(ctx, "jti-1", time.Minute))

		revoked, err := blacklist.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("unknown token is not revoked", func(t *testing.T) {
		blacklist, _ := testBlacklist(t)

		revoked, err := blacklist.IsRevoked(ctx, "never-seen")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("entry expires with the token", func(t *testing.T) {
		blacklist, mr := testBlacklist(t)

		require.NoError(t, blacklist.Revoke(ctx, "jti-2", time.Minute))
		mr.FastForward(2 * time.Minute)

		revoked, err := blacklist.IsRevoked(ctx, "jti-2")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("non-positive ttl is a no-op", func(t *testing.T) {
		blacklist, _ := testBlacklist(t)

		require.NoError(t, blacklist.Revoke(ctx, "jti-3", 0))

		revoked, err := blacklist.IsRevoked(ctx, "jti-3")
		require.NoError(t, err)
		assert.False(t, revoked, "an already-expired token needs no blacklist entry")
	})
}
