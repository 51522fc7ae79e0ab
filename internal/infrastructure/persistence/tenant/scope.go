// Package tenant enforces row-level tenant isolation for GORM.
//
// Every model carrying a tenant_id column is automatically filtered by the
// tenant bound to the request context: reads gain a WHERE tenant_id = ?
// condition, creates are stamped with the current tenant, and writes that
// name a foreign tenant are rejected outright. Models without a tenant_id
// column (platform-level tables) pass through untouched, as does any
// operation running under an isolation bypass.
package tenant

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizcore/backend/internal/tenantctx"
)

// Column is the tenant discriminator column shared by all scoped tables.
const Column = "tenant_id"

// Scope applies an explicit tenant filter. Repositories normally rely on
// the registered callbacks instead; this exists for raw queries that build
// SQL outside the statement machinery.
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(Column+" = ?", tenantID)
	}
}

// ScopeFromContext applies the context tenant as an explicit filter.
// Returns an erroring DB when no tenant is bound and the context is not
// bypassed.
func ScopeFromContext(db *gorm.DB) *gorm.DB {
	ctx := db.Statement.Context
	if tenantctx.IsBypassed(ctx) {
		return db
	}
	tenantID, ok := tenantctx.CurrentTenant(ctx)
	if !ok {
		_ = db.AddError(tenantctx.ErrTenantRequired)
		return db
	}
	return db.Scopes(Scope(tenantID))
}
