package logger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bizcore/backend/internal/tenantctx"
)

func newObserved() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestFromContext(t *testing.T) {
	t.Run("returns attached logger", func(t *testing.T) {
		l, _ := newObserved()
		ctx := WithContext(context.Background(), l)
		assert.Same(t, l, FromContext(ctx))
	})

	t.Run("falls back to no-op", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})
}

func TestContextLoggerEnrichment(t *testing.T) {
	t.Run("carries tenant identity", func(t *testing.T) {
		l, logs := newObserved()
		tenantID := uuid.New()
		ctx, err := tenantctx.WithTenant(WithContext(context.Background(), l), tenantID)
		require.NoError(t, err)

		L(ctx).Info("scoped operation")

		entries := logs.All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, tenantID.String(), fields["tenant_id"])
		_, hasBypass := fields["tenant_bypass"]
		assert.False(t, hasBypass)
	})

	t.Run("marks bypassed operations", func(t *testing.T) {
		l, logs := newObserved()
		ctx := tenantctx.Bypass(WithContext(context.Background(), l))

		L(ctx).Warn("unscoped operation")

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, true, entries[0].ContextMap()["tenant_bypass"])
	})

	t.Run("carries request and actor ids", func(t *testing.T) {
		l, logs := newObserved()
		ctx := WithContext(context.Background(), l)
		ctx, _ = WithRequestID(ctx, l, "req-1")
		ctx, _ = WithActorID(ctx, FromContext(ctx), "actor-1")

		L(ctx).Info("something happened")

		entries := logs.All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "actor-1", fields["actor_id"])
	})
}

func TestGetRequestID(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))

	l := zap.NewNop()
	ctx, _ := WithRequestID(context.Background(), l, "abc")
	assert.Equal(t, "abc", GetRequestID(ctx))
}
