package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/infrastructure/auditsink"
)

type countingSink struct {
	recorded int
}

func (s *countingSink) Record(context.Context, *audit.Event) {
	s.recorded++
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	totals := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals
}

func TestAuditMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := NewAuditMetrics(provider.Meter("test"), nil)
	require.NoError(t, err)
	ctx := context.Background()

	metrics.EventRecorded(ctx, audit.CategoryData, audit.ActionCreate)
	metrics.EventRecorded(ctx, audit.CategoryAdmin, audit.ActionRoleChange)
	metrics.IsolationDenied(ctx, "items")
	metrics.LimitsCacheLookup(ctx, "hit")
	metrics.LimitsCacheLookup(ctx, "miss")

	totals := collectMetrics(t, reader)
	assert.EqualValues(t, 2, totals["audit_events_recorded_total"])
	assert.EqualValues(t, 1, totals["tenant_isolation_denials_total"])
	assert.EqualValues(t, 2, totals["limits_cache_lookups_total"])
}

func TestAuditMetricsNilSafety(t *testing.T) {
	var metrics *AuditMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		metrics.EventRecorded(ctx, audit.CategoryData, audit.ActionCreate)
		metrics.IsolationDenied(ctx, "items")
		metrics.LimitsCacheLookup(ctx, "hit")
	})
}

func TestInstrumentSink(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := NewAuditMetrics(provider.Meter("test"), nil)
	require.NoError(t, err)

	inner := &countingSink{}
	sink := InstrumentSink(inner, metrics)

	event, err := audit.NewEvent(audit.CategoryData, audit.ActionUpdate, "items")
	require.NoError(t, err)
	sink.Record(context.Background(), event)
	sink.Record(context.Background(), nil)

	assert.Equal(t, 2, inner.recorded, "events are forwarded even when nil")
	totals := collectMetrics(t, reader)
	assert.EqualValues(t, 1, totals["audit_events_recorded_total"], "nil events are not counted")

	t.Run("nil metrics returns the sink unchanged", func(t *testing.T) {
		plain := &countingSink{}
		assert.Equal(t, auditsink.Sink(plain), InstrumentSink(plain, nil))
	})
}
