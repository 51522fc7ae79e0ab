// Package auditsink delivers audit events to storage without ever failing
// the business operation that produced them. Inside a unit of work events
// are buffered and written just before commit, so a rollback discards them
// together with the data changes they describe. Outside a unit of work
// events are written immediately. Write failures are logged and swallowed.
package auditsink

import (
	"context"

	"github.com/bizcore/backend/internal/domain/audit"
)

// Sink accepts audit events for eventual persistence.
type Sink interface {
	// Record hands an event to the sink. It never returns an error: delivery
	// problems are the sink's to log, not the caller's to handle.
	Record(ctx context.Context, event *audit.Event)
}

// EventWriter persists audit events. Implemented by the audit event
// repository; kept as a local interface so the sink does not depend on the
// persistence package.
type EventWriter interface {
	WriteEvents(ctx context.Context, events []*audit.Event) error
}
