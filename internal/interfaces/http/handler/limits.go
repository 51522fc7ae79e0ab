package handler

import (
	applimits "github.com/bizcore/backend/internal/application/limits"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

// LimitsHandler serves effective subscription limits and, for platform
// operators, the override and plan administration endpoints
type LimitsHandler struct {
	BaseHandler
	limits *applimits.Service
}

// NewLimitsHandler creates a LimitsHandler
func NewLimitsHandler(limits *applimits.Service) *LimitsHandler {
	return &LimitsHandler{limits: limits}
}

// Current returns the effective limits for the calling tenant
func (h *LimitsHandler) Current(c *gin.Context) {
	effective, err := h.limits.EffectiveForCurrent(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, effective)
}

// Effective returns the effective limits for any tenant (platform only)
func (h *LimitsHandler) Effective(c *gin.Context) {
	tenantID, ok := h.tenantParam(c)
	if !ok {
		return
	}
	effective, err := h.limits.Effective(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, effective)
}

// overrideRequest carries the override value. Zero and false are meaningful
// values here: an explicit falsy override still beats the plan default.
type overrideRequest struct {
	Value any `json:"value" binding:"required"`
}

// SetOverride sets a per-tenant limit override (platform only)
func (h *LimitsHandler) SetOverride(c *gin.Context) {
	tenantID, ok := h.tenantParam(c)
	if !ok {
		return
	}
	field, ok := h.fieldParam(c)
	if !ok {
		return
	}

	var req overrideRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil {
		h.BadRequest(c, "Override value is required")
		return
	}

	err := h.limits.SetOverride(c.Request.Context(),
		middleware.GetActorUUID(c), tenantID, field, req.Value, requestMeta(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ClearOverride removes an override so the plan default applies again
// (platform only)
func (h *LimitsHandler) ClearOverride(c *gin.Context) {
	tenantID, ok := h.tenantParam(c)
	if !ok {
		return
	}
	field, ok := h.fieldParam(c)
	if !ok {
		return
	}

	err := h.limits.ClearOverride(c.Request.Context(),
		middleware.GetActorUUID(c), tenantID, field, requestMeta(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ClearAllOverrides removes every override for a tenant in one step
// (platform only)
func (h *LimitsHandler) ClearAllOverrides(c *gin.Context) {
	tenantID, ok := h.tenantParam(c)
	if !ok {
		return
	}

	err := h.limits.ClearAllOverrides(c.Request.Context(),
		middleware.GetActorUUID(c), tenantID, requestMeta(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// planRequest carries the target plan name
type planRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// ChangePlan moves a tenant to a different plan, keeping its overrides
// (platform only)
func (h *LimitsHandler) ChangePlan(c *gin.Context) {
	tenantID, ok := h.tenantParam(c)
	if !ok {
		return
	}

	var req planRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil {
		h.BadRequest(c, "Plan is required")
		return
	}
	plan := identity.TenantPlan(req.Plan)
	if !plan.IsValid() {
		h.BadRequest(c, "Unknown plan: "+req.Plan)
		return
	}

	err := h.limits.ChangePlan(c.Request.Context(),
		middleware.GetActorUUID(c), tenantID, plan, requestMeta(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *LimitsHandler) tenantParam(c *gin.Context) (uuid.UUID, bool) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return uuid.Nil, false
	}
	return tenantID, true
}

func (h *LimitsHandler) fieldParam(c *gin.Context) (identity.LimitField, bool) {
	field := identity.LimitField(c.Param("field"))
	if !field.IsValid() {
		h.BadRequest(c, "Unknown limit field: "+c.Param("field"))
		return "", false
	}
	return field, true
}
