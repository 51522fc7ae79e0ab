package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/infrastructure/auditsink"
)

// AuditMetrics tracks the audit trail and tenant isolation activity:
// events recorded per category and action, cross-tenant denials per table,
// and limits cache effectiveness.
type AuditMetrics struct {
	eventsRecorded   *Counter
	isolationDenials *Counter
	limitsCacheOps   *Counter
}

// NewAuditMetrics registers the audit counters on the given meter
func NewAuditMetrics(meter metric.Meter, logger *zap.Logger) (*AuditMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	eventsRecorded, err := NewCounter(meter,
		"audit_events_recorded_total",
		"Audit events recorded, by category and action",
		"{event}")
	if err != nil {
		return nil, err
	}

	isolationDenials, err := NewCounter(meter,
		"tenant_isolation_denials_total",
		"Cross-tenant operations rejected by the isolation layer, by table",
		"{denial}")
	if err != nil {
		return nil, err
	}

	limitsCacheOps, err := NewCounter(meter,
		"limits_cache_lookups_total",
		"Effective limits cache lookups, by result",
		"{lookup}")
	if err != nil {
		return nil, err
	}

	return &AuditMetrics{
		eventsRecorded:   eventsRecorded,
		isolationDenials: isolationDenials,
		limitsCacheOps:   limitsCacheOps,
	}, nil
}

// EventRecorded counts one audit event
func (m *AuditMetrics) EventRecorded(ctx context.Context, category audit.Category, action audit.Action) {
	if m == nil {
		return
	}
	m.eventsRecorded.Inc(ctx,
		AttrAuditCategory.String(category.String()),
		AttrAuditAction.String(action.String()))
}

// IsolationDenied counts one rejected cross-tenant operation
func (m *AuditMetrics) IsolationDenied(ctx context.Context, table string) {
	if m == nil {
		return
	}
	m.isolationDenials.Inc(ctx, AttrTable.String(table))
}

// LimitsCacheLookup counts one cache lookup with its result ("hit" or "miss")
func (m *AuditMetrics) LimitsCacheLookup(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.limitsCacheOps.Inc(ctx, AttrCacheResult.String(result))
}

// InstrumentedSink decorates an audit sink with event counting
type InstrumentedSink struct {
	next    auditsink.Sink
	metrics *AuditMetrics
}

// InstrumentSink wraps next so every recorded event is counted. A nil
// metrics value returns next unchanged.
func InstrumentSink(next auditsink.Sink, metrics *AuditMetrics) auditsink.Sink {
	if metrics == nil {
		return next
	}
	return &InstrumentedSink{next: next, metrics: metrics}
}

// Record counts the event and forwards it
func (s *InstrumentedSink) Record(ctx context.Context, event *audit.Event) {
	if event != nil {
		s.metrics.EventRecorded(ctx, event.Category, event.Action)
	}
	s.next.Record(ctx, event)
}
