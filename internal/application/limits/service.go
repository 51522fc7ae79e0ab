// Package limits resolves and administers per-tenant subscription limits.
// Resolution layers tri-state overrides on top of plan defaults: a present
// override always wins, even when it is zero or false, and a cleared
// override falls back to whatever the current plan says.
package limits

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/logger"
	"github.com/bizcore/backend/internal/tenantctx"
)

// Cache caches resolved effective limits per tenant. A nil Cache disables
// caching; cache errors degrade to repository reads.
type Cache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*identity.EffectiveLimits, error)
	Set(ctx context.Context, tenantID uuid.UUID, limits identity.EffectiveLimits) error
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

// Service resolves effective limits and applies override mutations.
type Service struct {
	subs     identity.SubscriptionRepository
	users    identity.UserRepository
	cache    Cache
	recorder *appaudit.Recorder
	log      *zap.Logger
}

// NewService creates the limits service. The recorder and cache are
// optional; passing nil disables audit recording or caching respectively.
func NewService(subs identity.SubscriptionRepository, users identity.UserRepository, cache Cache, recorder *appaudit.Recorder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{subs: subs, users: users, cache: cache, recorder: recorder, log: log}
}

// Effective resolves the tenant's limits: plan defaults overlaid with any
// overrides. Subscription lookups run bypassed because subscriptions are
// platform-level rows.
func (s *Service) Effective(ctx context.Context, tenantID uuid.UUID) (identity.EffectiveLimits, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, tenantID); err == nil && cached != nil {
			return *cached, nil
		}
	}

	sub, err := s.subs.FindByTenant(tenantctx.Bypass(ctx), tenantID)
	if err != nil {
		return identity.EffectiveLimits{}, err
	}
	effective := sub.Effective()

	if s.cache != nil {
		if err := s.cache.Set(ctx, tenantID, effective); err != nil {
			logger.L(ctx).Warn("failed to cache effective limits", zap.Error(err))
		}
	}
	return effective, nil
}

// EffectiveForCurrent resolves limits for the context tenant
func (s *Service) EffectiveForCurrent(ctx context.Context) (identity.EffectiveLimits, error) {
	tenantID, ok := tenantctx.CurrentTenant(ctx)
	if !ok {
		return identity.EffectiveLimits{}, tenantctx.ErrTenantRequired
	}
	return s.Effective(ctx, tenantID)
}

// SetOverride stores an explicit override for one limit field. Zero and
// false are stored as deliberate values, not treated as "unset".
func (s *Service) SetOverride(ctx context.Context, actorID, tenantID uuid.UUID, field identity.LimitField, value any, meta appaudit.RequestMeta) error {
	bypassed := tenantctx.Bypass(ctx)
	sub, err := s.subs.FindByTenant(bypassed, tenantID)
	if err != nil {
		return err
	}
	if err := sub.SetOverride(field, value); err != nil {
		return err
	}
	if err := s.subs.Update(bypassed, sub); err != nil {
		return err
	}

	s.recorder.OverrideSet(ctx, actorID, tenantID, field, value, meta)
	s.invalidate(ctx, tenantID)
	return nil
}

// ClearOverride removes an override; the field reverts to the plan default
func (s *Service) ClearOverride(ctx context.Context, actorID, tenantID uuid.UUID, field identity.LimitField, meta appaudit.RequestMeta) error {
	bypassed := tenantctx.Bypass(ctx)
	sub, err := s.subs.FindByTenant(bypassed, tenantID)
	if err != nil {
		return err
	}
	if err := sub.ClearOverride(field); err != nil {
		return err
	}
	if err := s.subs.Update(bypassed, sub); err != nil {
		return err
	}

	s.recorder.OverrideCleared(ctx, actorID, tenantID, field, meta)
	s.invalidate(ctx, tenantID)
	return nil
}

// ClearAllOverrides removes every override in one step; all fields revert
// to the current plan's defaults.
func (s *Service) ClearAllOverrides(ctx context.Context, actorID, tenantID uuid.UUID, meta appaudit.RequestMeta) error {
	bypassed := tenantctx.Bypass(ctx)
	sub, err := s.subs.FindByTenant(bypassed, tenantID)
	if err != nil {
		return err
	}
	sub.ClearAllOverrides()
	if err := s.subs.Update(bypassed, sub); err != nil {
		return err
	}

	s.recorder.AllOverridesCleared(ctx, actorID, tenantID, meta)
	s.invalidate(ctx, tenantID)
	return nil
}

// ChangePlan switches the tenant's plan, preserving all overrides
func (s *Service) ChangePlan(ctx context.Context, actorID, tenantID uuid.UUID, plan identity.TenantPlan, meta appaudit.RequestMeta) error {
	bypassed := tenantctx.Bypass(ctx)
	sub, err := s.subs.FindByTenant(bypassed, tenantID)
	if err != nil {
		return err
	}
	oldPlan := sub.Plan
	if err := sub.ChangePlan(plan); err != nil {
		return err
	}
	if err := s.subs.Update(bypassed, sub); err != nil {
		return err
	}

	s.recorder.PlanChanged(ctx, actorID, tenantID, oldPlan, plan, meta)
	s.invalidate(ctx, tenantID)
	return nil
}

// CheckUserLimit verifies the context tenant can add another user.
// Returns shared.ErrLimitExceeded when the effective cap is reached.
func (s *Service) CheckUserLimit(ctx context.Context) error {
	tenantID, ok := tenantctx.CurrentTenant(ctx)
	if !ok {
		return tenantctx.ErrTenantRequired
	}
	effective, err := s.Effective(ctx, tenantID)
	if err != nil {
		return err
	}
	count, err := s.users.CountByTenant(ctx)
	if err != nil {
		return err
	}
	if count >= int64(effective.UserLimit) {
		return shared.ErrLimitExceeded
	}
	return nil
}

// RequireFeature verifies a feature flag is enabled for the context tenant
func (s *Service) RequireFeature(ctx context.Context, field identity.LimitField) error {
	if !field.IsBoolean() {
		return shared.ErrInvalidInput
	}
	effective, err := s.EffectiveForCurrent(ctx)
	if err != nil {
		return err
	}
	enabled := false
	switch field {
	case identity.FieldMultiBranch:
		enabled = effective.MultiBranch
	case identity.FieldAdvancedReporting:
		enabled = effective.AdvancedReporting
	case identity.FieldAPIAccess:
		enabled = effective.APIAccess
	case identity.FieldCustomBranding:
		enabled = effective.CustomBranding
	case identity.FieldPrioritySupport:
		enabled = effective.PrioritySupport
	}
	if !enabled {
		return shared.ErrForbidden
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, tenantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		logger.L(ctx).Warn("failed to invalidate limits cache",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}
}
