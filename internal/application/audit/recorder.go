// Package audit provides the application services around the audit trail:
// the Recorder that turns administrative and security actions into events,
// and the query service that reads the trail back.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/infrastructure/auditsink"
	"github.com/bizcore/backend/internal/tenantctx"
)

// RequestMeta carries the origin of the request that triggered an action.
// Either field may be empty; an absent value is recorded as absent.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Recorder writes administrative and security events. Regular admin events
// go through the deferred sink and commit with the unit of work; security
// events (denied access, failed logins) go through the immediate sink so
// they survive a rollback.
type Recorder struct {
	deferred  auditsink.Sink
	immediate auditsink.Sink
}

// NewRecorder creates an admin action recorder
func NewRecorder(deferred, immediate auditsink.Sink) *Recorder {
	return &Recorder{deferred: deferred, immediate: immediate}
}

func (r *Recorder) record(ctx context.Context, sink auditsink.Sink, event *audit.Event) {
	if r == nil || sink == nil || event == nil {
		return
	}
	if event.TenantID == nil {
		if tenantID, found := tenantctx.CurrentTenant(ctx); found {
			event = event.WithTenant(tenantID)
		}
	}
	sink.Record(ctx, event)
}

func adminEvent(action audit.Action, targetType string, actorID uuid.UUID, meta RequestMeta) (*audit.Event, error) {
	event, err := audit.NewEvent(audit.CategoryAdmin, action, targetType)
	if err != nil {
		return nil, err
	}
	if actorID != uuid.Nil {
		event = event.WithActor(actorID)
	}
	return event.WithRequestMeta(meta.IPAddress, meta.UserAgent), nil
}

// RoleChanged records a user role change with before and after roles
func (r *Recorder) RoleChanged(ctx context.Context, actorID, targetUserID uuid.UUID, oldRole, newRole identity.UserRole, meta RequestMeta) {
	if r == nil {
		return
	}
	event, err := adminEvent(audit.ActionRoleChange, "users", actorID, meta)
	if err != nil {
		return
	}
	event = event.
		WithTarget(targetUserID.String()).
		WithValues(oldRole.String(), newRole.String()).
		WithDescription("User role changed")
	r.record(ctx, r.deferred, event)
}

// PermissionGranted records a permission grant
func (r *Recorder) PermissionGranted(ctx context.Context, actorID, targetUserID uuid.UUID, permission string, meta RequestMeta) {
	if r == nil {
		return
	}
	event, err := adminEvent(audit.ActionPermissionGrant, "users", actorID, meta)
	if err != nil {
		return
	}
	event = event.
		WithTarget(targetUserID.String()).
		WithValues("", permission).
		WithDescription("Permission granted: " + permission)
	r.record(ctx, r.deferred, event)
}

// PermissionRevoked records a permission revocation
func (r *Recorder) PermissionRevoked(ctx context.Context, actorID, targetUserID uuid.UUID, permission string, meta RequestMeta) {
	if r == nil {
		return
	}
	event, err := adminEvent(audit.ActionPermissionRevoke, "users", actorID, meta)
	if err != nil {
		return
	}
	event = event.
		WithTarget(targetUserID.String()).
		WithValues(permission, "").
		WithDescription("Permission revoked: " + permission)
	r.record(ctx, r.deferred, event)
}

// BranchAssigned records a branch assignment change. Nil means unassigned.
func (r *Recorder) BranchAssigned(ctx context.Context, actorID, targetUserID uuid.UUID, oldBranch, newBranch *uuid.UUID, meta RequestMeta) {
	if r == nil {
		return
	}
	event, err := adminEvent(audit.ActionBranchAssign, "users", actorID, meta)
	if err != nil {
		return
	}
	event = event.
		WithTarget(targetUserID.String()).
		WithValues(uuidOrEmpty(oldBranch), uuidOrEmpty(newBranch)).
		WithDescription("User branch assignment changed")
	r.record(ctx, r.deferred, event)
}

// GroupAssigned records a group assignment change. Nil means unassigned.
func (r *Recorder) GroupAssigned(ctx context.Context, actorID, targetUserID uuid.UUID, oldGroup, newGroup *uuid.UUID, meta RequestMeta) {
	if r == nil {
		return
	}
	event, err := adminEvent(audit.ActionGroupAssign, "users", actorID, meta)
	if err != nil {
		return
	}
	event = event.
		WithTarget(targetUserID.String()).
		WithValues(uuidOrEmpty(oldGroup), uuidOrEmpty(newGroup)).
		WithDescription("User group assignment changed")
	r.record(ctx, r.deferred, event)
}

// ImpersonationStarted records the start of an impersonation session
func (r *Recorder) ImpersonationStarted(ctx context.Context, actorID, targetUserID uuid.UUID, meta RequestMeta) {
	if r == nil {
		return
	}
	event, err := adminEvent(audit.ActionImpersonateStart, "users", actorID, meta)
	if err != nil {
		return
	}
	event = event.
		WithTarget(targetUserID.String()).
		WithDescription("Impersonation session started")
	r.record(ctx, r.deferred, event)
}

// ImpersonationEnded records the end of an impersonation session
func (r *Recorder) ImpersonationEnded(ctx context.Context, actorID, targetUserID uuid.UUID, meta RequestMeta) {
	if r == nil {
		return
	}
	event, err := adminEvent(audit.ActionImpersonateEnd, "users", actorID, meta)
	if err != nil {
		return
	}
	event = event.
		WithTarget(targetUserID.String()).
		WithDescription("Impersonation session ended")
	r.record(ctx, r.deferred, event)
}

// OverrideSet records an explicit limit override
func (r *Recorder) OverrideSet(ctx context.Context, actorID, tenantID uuid.UUID, field identity.LimitField, value any, meta RequestMeta) {
	if r == nil {
		return
	}
	event, err := adminEvent(audit.ActionOverrideSet, "subscriptions", actorID, meta)
	if err != nil {
		return
	}
	event = event.
		WithTenant(tenantID).
		WithTarget(field.String()).
		WithValues("", fmt.Sprintf("%v", value)).
		WithDescription("Limit override set: " + field.String())
	r.record(ctx, r.deferred, event)
}

// OverrideCleared records the removal of a limit override
func (r *Recorder) OverrideCleared(ctx context.Context, actorID, tenantID uuid.UUID, field identity.LimitField, meta RequestMeta) {
	if r == nil {
		return
	}
	event, err := adminEvent(audit.ActionOverrideCleared, "subscriptions", actorID, meta)
	if err != nil {
		return
	}
	event = event.
		WithTenant(tenantID).
		WithTarget(field.String()).
		WithDescription("Limit override cleared: " + field.String())
	r.record(ctx, r.deferred, event)
}

// AllOverridesCleared records the removal of every limit override at once
func (r *Recorder) AllOverridesCleared(ctx context.Context, actorID, tenantID uuid.UUID, meta RequestMeta) {
	if r == nil {
		return
	}
	event, err := adminEvent(audit.ActionOverrideCleared, "subscriptions", actorID, meta)
	if err != nil {
		return
	}
	event = event.
		WithTenant(tenantID).
		WithTarget(tenantID.String()).
		WithDescription("All limit overrides cleared")
	r.record(ctx, r.deferred, event)
}

// PlanChanged records a subscription plan change
func (r *Recorder) PlanChanged(ctx context.Context, actorID, tenantID uuid.UUID, oldPlan, newPlan identity.TenantPlan, meta RequestMeta) {
	if r == nil {
		return
	}
	event, err := adminEvent(audit.ActionPlanChanged, "subscriptions", actorID, meta)
	if err != nil {
		return
	}
	event = event.
		WithTenant(tenantID).
		WithTarget(tenantID.String()).
		WithValues(oldPlan.String(), newPlan.String()).
		WithDescription("Subscription plan changed")
	r.record(ctx, r.deferred, event)
}

// LoginAttempt records an authentication attempt. Failures are written
// immediately: an attacker's failed login must not vanish with a rollback.
func (r *Recorder) LoginAttempt(ctx context.Context, userID *uuid.UUID, email string, success bool, meta RequestMeta) {
	if r == nil {
		return
	}
	action := audit.ActionLoginSuccess
	sink := r.deferred
	if !success {
		action = audit.ActionLoginFailure
		sink = r.immediate
	}
	event, err := audit.NewEvent(audit.CategoryAuth, action, "users")
	if err != nil {
		return
	}
	if userID != nil {
		event = event.WithActor(*userID).WithTarget(userID.String())
	}
	event = event.
		WithDescription("Login attempt for " + email).
		WithRequestMeta(meta.IPAddress, meta.UserAgent)
	r.record(ctx, sink, event)
}

// IsolationDenied records a rejected cross-tenant access. Always written
// immediately; the rejected operation itself never commits.
func (r *Recorder) IsolationDenied(ctx context.Context, table string, attemptedTenant uuid.UUID, meta RequestMeta) {
	if r == nil {
		return
	}
	event, err := audit.NewEvent(audit.CategorySecurity, audit.ActionIsolationDenied, table)
	if err != nil {
		return
	}
	event = event.
		WithTarget(attemptedTenant.String()).
		WithDescription("Cross-tenant access denied on " + table).
		WithRequestMeta(meta.IPAddress, meta.UserAgent)
	r.record(ctx, r.immediate, event)
}

func uuidOrEmpty(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
