// Package tenantctx carries the tenant identity of the current unit of work.
//
// The tenant is request/task-scoped state attached to a context.Context, never
// a process-global. Isolation can be suspended for privileged cross-tenant
// workflows by deriving a bypass context; because contexts are immutable, the
// suspension ends when the derived context goes out of scope, on every exit
// path including panics.
//
// Usage:
//
//	ctx, err := tenantctx.WithTenant(ctx, tenantID) // at the unit-of-work entry
//	id, ok := tenantctx.CurrentTenant(ctx)
//	err = tenantctx.RunBypassed(ctx, func(ctx context.Context) error { ... })
package tenantctx

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrTenantConflict is returned when a unit of work attempts to switch to a
// different tenant after one has been set.
var ErrTenantConflict = errors.New("tenant already set for this unit of work")

// ErrTenantRequired is returned when a tenant-scoped operation runs without a
// tenant and without bypass.
var ErrTenantRequired = errors.New("tenant is required but not set in context")

// ErrIsolationViolation is returned when an operation touches data owned by a
// different tenant. It is always surfaced to the caller, never retried.
var ErrIsolationViolation = errors.New("cross-tenant access denied")

type contextKey int

const (
	tenantKey contextKey = iota
	bypassKey
)

// WithTenant returns a context bound to the given tenant for the rest of the
// unit of work. Setting the same tenant again is a no-op; setting a different
// one fails with ErrTenantConflict - there is no silent overwrite.
func WithTenant(ctx context.Context, tenantID uuid.UUID) (context.Context, error) {
	if tenantID == uuid.Nil {
		return ctx, ErrTenantRequired
	}
	if current, ok := CurrentTenant(ctx); ok {
		if current == tenantID {
			return ctx, nil
		}
		return ctx, ErrTenantConflict
	}
	return context.WithValue(ctx, tenantKey, tenantID), nil
}

// CurrentTenant returns the tenant of the current unit of work, if set.
func CurrentTenant(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(tenantKey).(uuid.UUID)
	return id, ok
}

// MustTenant returns the current tenant or panics. Use only where middleware
// guarantees a tenant has been established.
func MustTenant(ctx context.Context) uuid.UUID {
	id, ok := CurrentTenant(ctx)
	if !ok {
		panic("tenantctx: no tenant in context")
	}
	return id
}

// Bypass derives a context with tenant isolation suspended. Bypass nests:
// each call increments the depth and enforcement resumes only once every
// derived context has gone out of scope. The parent context is unaffected,
// which makes release idempotent and panic-safe by construction.
func Bypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey, BypassDepth(ctx)+1)
}

// BypassDepth returns the current bypass nesting depth.
func BypassDepth(ctx context.Context) int {
	depth, _ := ctx.Value(bypassKey).(int)
	return depth
}

// IsBypassed reports whether tenant isolation is suspended.
func IsBypassed(ctx context.Context) bool {
	return BypassDepth(ctx) > 0
}

// RunBypassed runs fn with isolation suspended. The suspension is confined to
// the callback: the caller's context keeps its enforcement state regardless of
// how fn returns.
func RunBypassed(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(Bypass(ctx))
}
