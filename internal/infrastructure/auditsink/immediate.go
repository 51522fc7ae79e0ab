package auditsink

import (
	"context"

	"go.uber.org/zap"

	"github.com/bizcore/backend/internal/domain/audit"
)

// ImmediateSink writes every event as soon as it is recorded, ignoring any
// unit-of-work buffer. Used for events that must survive even when the
// surrounding operation rolls back, such as denied-access records.
type ImmediateSink struct {
	writer EventWriter
	log    *zap.Logger
}

// NewImmediateSink creates a sink that writes events right away
func NewImmediateSink(writer EventWriter, log *zap.Logger) *ImmediateSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImmediateSink{writer: writer, log: log}
}

// Record writes the event immediately, swallowing any failure
func (s *ImmediateSink) Record(ctx context.Context, event *audit.Event) {
	if event == nil {
		return
	}
	writeSwallowing(ctx, s.writer, s.log, []*audit.Event{event})
}
