package handler

import (
	"time"

	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditHandler exposes the audit trail, tenant-scoped for regular admins
// and across tenants for platform operators
type AuditHandler struct {
	BaseHandler
	queries *appaudit.QueryService
}

// NewAuditHandler creates an AuditHandler
func NewAuditHandler(queries *appaudit.QueryService) *AuditHandler {
	return &AuditHandler{queries: queries}
}

// auditListRequest binds the audit query parameters
type auditListRequest struct {
	Category   string `form:"category"`
	Action     string `form:"action"`
	ActorID    string `form:"actor_id"`
	TenantID   string `form:"tenant_id"`
	TargetType string `form:"target_type"`
	IPAddress  string `form:"ip_address"`
	From       string `form:"from"`
	To         string `form:"to"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

func (r *auditListRequest) toFilter() (audit.Filter, error) {
	filter := audit.Filter{Page: r.Page, PageSize: r.PageSize}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 50
	}
	if filter.PageSize > 200 {
		filter.PageSize = 200
	}

	if r.Category != "" {
		category := audit.Category(r.Category)
		filter.Category = &category
	}
	if r.Action != "" {
		action := audit.Action(r.Action)
		filter.Action = &action
	}
	if r.ActorID != "" {
		actorID, err := uuid.Parse(r.ActorID)
		if err != nil {
			return filter, err
		}
		filter.ActorID = &actorID
	}
	if r.TargetType != "" {
		filter.TargetType = &r.TargetType
	}
	if r.IPAddress != "" {
		filter.IPAddress = &r.IPAddress
	}
	if r.From != "" {
		from, err := time.Parse(time.RFC3339, r.From)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if r.To != "" {
		to, err := time.Parse(time.RFC3339, r.To)
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}
	return filter, nil
}

// List returns the calling tenant's audit events, newest first
func (h *AuditHandler) List(c *gin.Context) {
	var req auditListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid audit query")
		return
	}
	filter, err := req.toFilter()
	if err != nil {
		h.BadRequest(c, "Invalid audit query")
		return
	}

	events, total, err := h.queries.ListForTenant(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Paginated(c, events, total, filter.Page, filter.PageSize)
}

// PlatformList returns audit events across all tenants, optionally narrowed
// to one tenant. Requires platform operator access.
func (h *AuditHandler) PlatformList(c *gin.Context) {
	var req auditListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid audit query")
		return
	}
	filter, err := req.toFilter()
	if err != nil {
		h.BadRequest(c, "Invalid audit query")
		return
	}

	if req.TenantID != "" {
		tenantID, err := uuid.Parse(req.TenantID)
		if err != nil {
			h.BadRequest(c, "Invalid tenant_id")
			return
		}
		filter.TenantID = &tenantID
	}

	events, total, err := h.queries.ListPlatform(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Paginated(c, events, total, filter.Page, filter.PageSize)
}
