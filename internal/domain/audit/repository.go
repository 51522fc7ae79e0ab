package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows an audit query. Nil fields are not applied.
type Filter struct {
	TenantID   *uuid.UUID
	ActorID    *uuid.UUID
	Category   *Category
	Action     *Action
	TargetType *string
	From       *time.Time
	To         *time.Time
	IPAddress  *string
	Page       int
	PageSize   int
}

// Repository persists audit events. The store is append-only: events are
// never updated, and only the retention job removes them.
type Repository interface {
	// Create persists a single event
	Create(ctx context.Context, event *Event) error

	// CreateBatch persists events preserving slice order
	CreateBatch(ctx context.Context, events []*Event) error

	// List returns events matching the filter, newest first, with the total count
	List(ctx context.Context, filter Filter) ([]Event, int64, error)
}
