package identity

import (
	"github.com/google/uuid"

	"github.com/bizcore/backend/internal/domain/shared"
)

// Subscription ties a tenant to a plan plus its per-tenant limit overrides.
// One row per tenant. The overrides survive plan changes: switching plans
// only swaps the defaults the overrides are resolved against.
type Subscription struct {
	shared.BaseEntity
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"tenant_id"`
	Plan      TenantPlan     `gorm:"type:varchar(20);not null;default:'free'" json:"plan"`
	Overrides LimitOverrides `gorm:"embedded;embeddedPrefix:override_" json:"overrides"`
}

// TableName returns the table name for Subscription
func (Subscription) TableName() string {
	return "subscriptions"
}

// NewSubscription creates a subscription on the given plan with no overrides
func NewSubscription(tenantID uuid.UUID, plan TenantPlan) (*Subscription, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if !plan.IsValid() {
		return nil, shared.NewDomainError("INVALID_PLAN", "Invalid tenant plan: "+plan.String())
	}
	return &Subscription{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		Plan:       plan,
	}, nil
}

// SetOverride stores an explicit per-tenant value for one limit field.
// Explicit zero and false are kept as overrides, not treated as unset.
func (s *Subscription) SetOverride(field LimitField, value any) error {
	if err := s.Overrides.Set(field, value); err != nil {
		return err
	}
	s.Touch()
	return nil
}

// ClearOverride removes one override; the field reverts to the plan default
func (s *Subscription) ClearOverride(field LimitField) error {
	if err := s.Overrides.Clear(field); err != nil {
		return err
	}
	s.Touch()
	return nil
}

// ClearAllOverrides removes every override in one step
func (s *Subscription) ClearAllOverrides() {
	s.Overrides.ClearAll()
	s.Touch()
}

// ChangePlan switches the plan while preserving all existing overrides.
func (s *Subscription) ChangePlan(plan TenantPlan) error {
	if !plan.IsValid() {
		return shared.NewDomainError("INVALID_PLAN", "Invalid tenant plan: "+plan.String())
	}
	if s.Plan == plan {
		return shared.NewDomainError("SAME_PLAN", "Subscription is already on plan "+plan.String())
	}
	s.Plan = plan
	s.Touch()
	return nil
}

// Effective resolves the plan defaults against the overrides.
func (s *Subscription) Effective() EffectiveLimits {
	return s.Overrides.ApplyTo(DefaultPlanLimits(s.Plan))
}
