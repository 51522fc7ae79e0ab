package audit

import (
	"context"

	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/tenantctx"
)

// QueryService reads the audit trail. Tenant admins see only their own
// trail; platform queries run under an isolation bypass and may filter by
// any tenant.
type QueryService struct {
	repo audit.Repository
}

// NewQueryService creates an audit query service
func NewQueryService(repo audit.Repository) *QueryService {
	return &QueryService{repo: repo}
}

// ListForTenant returns the current tenant's audit trail, newest first.
// The tenant filter comes from the context, never from the caller.
func (s *QueryService) ListForTenant(ctx context.Context, filter audit.Filter) ([]audit.Event, int64, error) {
	tenantID, ok := tenantctx.CurrentTenant(ctx)
	if !ok {
		return nil, 0, tenantctx.ErrTenantRequired
	}
	filter.TenantID = &tenantID
	return s.repo.List(ctx, filter)
}

// ListPlatform returns audit events across all tenants. The read runs
// bypassed so the isolation callbacks do not narrow it.
func (s *QueryService) ListPlatform(ctx context.Context, filter audit.Filter) ([]audit.Event, int64, error) {
	return s.repo.List(tenantctx.Bypass(ctx), filter)
}
