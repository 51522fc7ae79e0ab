// Package audit holds the append-only audit trail of the system: one Event
// per data mutation, administrative action, or security decision. Events are
// immutable once created; there is deliberately no update or delete API.
package audit

import (
	"encoding/json"
	"time"

	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event is a single audit record. ActorID and TenantID are nullable: system
// activity has no actor, platform-level activity has no tenant. OldValue and
// NewValue hold serialized representations of the target before and after the
// recorded action.
type Event struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time  `gorm:"not null;index" json:"created_at"`
	ActorID     *uuid.UUID `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	TenantID    *uuid.UUID `gorm:"type:uuid;index" json:"tenant_id,omitempty"`
	Category    Category   `gorm:"type:varchar(20);not null;index" json:"category"`
	Action      Action     `gorm:"type:varchar(40);not null;index" json:"action"`
	TargetType  string     `gorm:"type:varchar(100);not null" json:"target_type"`
	TargetID    string     `gorm:"type:varchar(100)" json:"target_id"`
	OldValue    *string    `gorm:"type:text" json:"old_value,omitempty"`
	NewValue    *string    `gorm:"type:text" json:"new_value,omitempty"`
	Description string     `gorm:"type:text" json:"description"`
	IPAddress   *string    `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	UserAgent   *string    `gorm:"type:varchar(512)" json:"user_agent,omitempty"`
}

// TableName returns the table name for GORM
func (Event) TableName() string {
	return "audit_events"
}

// NewEvent creates a validated audit event. Category and action must be
// consistent members of their enums; target type is required.
func NewEvent(category Category, action Action, targetType string) (*Event, error) {
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Invalid audit category")
	}
	if !action.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACTION", "Invalid audit action")
	}
	if targetType == "" {
		return nil, shared.NewDomainError("INVALID_TARGET", "Audit target type cannot be empty")
	}
	return &Event{
		ID:         uuid.New(),
		CreatedAt:  time.Now(),
		Category:   category,
		Action:     action,
		TargetType: targetType,
	}, nil
}

// WithActor sets the acting user
func (e *Event) WithActor(actorID uuid.UUID) *Event {
	e.ActorID = &actorID
	return e
}

// WithTenant sets the owning tenant
func (e *Event) WithTenant(tenantID uuid.UUID) *Event {
	e.TenantID = &tenantID
	return e
}

// WithTarget sets the target identifier
func (e *Event) WithTarget(targetID string) *Event {
	e.TargetID = targetID
	return e
}

// WithDescription sets a human-readable description
func (e *Event) WithDescription(description string) *Event {
	e.Description = description
	return e
}

// WithValues sets the serialized before/after representations. Either may be
// empty; empty strings are stored as NULL.
func (e *Event) WithValues(oldValue, newValue string) *Event {
	if oldValue != "" {
		e.OldValue = &oldValue
	}
	if newValue != "" {
		e.NewValue = &newValue
	}
	return e
}

// WithRequestMeta sets the request origin. Empty values stay NULL - an absent
// address is recorded as absent, never as a placeholder.
func (e *Event) WithRequestMeta(ipAddress, userAgent string) *Event {
	if ipAddress != "" {
		e.IPAddress = &ipAddress
	}
	if userAgent != "" {
		e.UserAgent = &userAgent
	}
	return e
}

// WithJSONValues marshals the given before/after maps into the event. A nil
// map leaves the corresponding side NULL.
func (e *Event) WithJSONValues(oldValue, newValue map[string]any) error {
	if oldValue != nil {
		raw, err := json.Marshal(oldValue)
		if err != nil {
			return err
		}
		s := string(raw)
		e.OldValue = &s
	}
	if newValue != nil {
		raw, err := json.Marshal(newValue)
		if err != nil {
			return err
		}
		s := string(raw)
		e.NewValue = &s
	}
	return nil
}
