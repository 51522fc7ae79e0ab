package auditsink

import (
	"context"

	"go.uber.org/zap"

	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/infrastructure/logger"
)

// DeferredSink buffers events into the context's unit-of-work buffer when
// one is present, and falls back to an immediate write otherwise.
type DeferredSink struct {
	writer EventWriter
	log    *zap.Logger
}

// NewDeferredSink creates a sink that defers delivery until commit
func NewDeferredSink(writer EventWriter, log *zap.Logger) *DeferredSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeferredSink{writer: writer, log: log}
}

// Record buffers the event inside a unit of work, or writes it right away
// when no transaction is active.
func (s *DeferredSink) Record(ctx context.Context, event *audit.Event) {
	if event == nil {
		return
	}
	if buf, ok := BufferFrom(ctx); ok {
		buf.Append(event)
		return
	}
	writeSwallowing(ctx, s.writer, s.log, []*audit.Event{event})
}

// Flush writes all buffered events for the context's unit of work. Called
// by the transaction helper just before commit; a write failure is logged
// and swallowed so the commit proceeds.
func Flush(ctx context.Context, writer EventWriter, log *zap.Logger) {
	buf, ok := BufferFrom(ctx)
	if !ok {
		return
	}
	events := buf.Drain()
	if len(events) == 0 {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}
	writeSwallowing(ctx, writer, log, events)
}

func writeSwallowing(ctx context.Context, writer EventWriter, log *zap.Logger, events []*audit.Event) {
	if writer == nil {
		logger.WithLogger(ctx, log).Warn("audit events dropped: no writer configured",
			zap.Int("count", len(events)))
		return
	}
	if err := writer.WriteEvents(ctx, events); err != nil {
		logger.WithLogger(ctx, log).Error("failed to persist audit events",
			zap.Int("count", len(events)),
			zap.Error(err))
	}
}
