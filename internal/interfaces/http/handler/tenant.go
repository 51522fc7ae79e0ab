package handler

import (
	"context"

	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/persistence"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantHandler serves platform-level tenant administration. Every endpoint
// here runs behind the platform operator gate.
type TenantHandler struct {
	BaseHandler
	db      *persistence.Database
	tenants identity.TenantRepository
}

// NewTenantHandler creates a TenantHandler
func NewTenantHandler(db *persistence.Database, tenants identity.TenantRepository) *TenantHandler {
	return &TenantHandler{db: db, tenants: tenants}
}

// CreateTenantRequest provisions a tenant with its plan and first owner
type CreateTenantRequest struct {
	Name          string `json:"name" binding:"required"`
	Slug          string `json:"slug" binding:"required"`
	Plan          string `json:"plan"`
	OwnerEmail    string `json:"owner_email" binding:"required,email"`
	OwnerName     string `json:"owner_name" binding:"required"`
	OwnerPassword string `json:"owner_password" binding:"required,min=8"`
}

// Create provisions a tenant, its subscription row, and its owner account in
// one transaction
func (h *TenantHandler) Create(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil {
		h.BadRequest(c, "Invalid tenant payload")
		return
	}

	plan := identity.TenantPlanFree
	if req.Plan != "" {
		plan = identity.TenantPlan(req.Plan)
		if !plan.IsValid() {
			h.BadRequest(c, "Unknown plan: "+req.Plan)
			return
		}
	}

	tenant, err := identity.NewTenant(req.Name, req.Slug)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	subscription, err := identity.NewSubscription(tenant.ID, plan)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	owner, err := identity.NewUser(tenant.ID, req.OwnerEmail, req.OwnerName, req.OwnerPassword, identity.RoleOwner)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	err = h.db.Transaction(c.Request.Context(), func(txCtx context.Context, tx *gorm.DB) error {
		if err := persistence.NewGormTenantRepository(tx).Create(txCtx, tenant); err != nil {
			return err
		}
		if err := persistence.NewGormSubscriptionRepository(tx).Create(txCtx, subscription); err != nil {
			return err
		}
		return persistence.NewGormUserRepository(tx).Create(txCtx, owner)
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, gin.H{
		"tenant":       tenant,
		"subscription": subscription,
		"owner":        owner,
	})
}

// Get returns one tenant by ID
func (h *TenantHandler) Get(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	tenant, err := h.tenants.FindByID(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}

// List returns all tenants, paginated
func (h *TenantHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid list query")
		return
	}
	req.Normalize()

	page, err := h.tenants.List(c.Request.Context(), shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Paginated(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Suspend disables a tenant
func (h *TenantHandler) Suspend(c *gin.Context) {
	h.transition(c, func(t *identity.Tenant) error { return t.Suspend() })
}

// Activate re-enables a suspended tenant
func (h *TenantHandler) Activate(c *gin.Context) {
	h.transition(c, func(t *identity.Tenant) error { return t.Activate() })
}

func (h *TenantHandler) transition(c *gin.Context, apply func(*identity.Tenant) error) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var tenant *identity.Tenant
	err = h.db.Transaction(c.Request.Context(), func(txCtx context.Context, tx *gorm.DB) error {
		tenants := persistence.NewGormTenantRepository(tx)

		var err error
		tenant, err = tenants.FindByID(txCtx, tenantID)
		if err != nil {
			return err
		}
		if err := apply(tenant); err != nil {
			return err
		}
		return tenants.Update(txCtx, tenant)
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}
