package handler

import (
	"context"
	"net/http"

	appaudit "github.com/bizcore/backend/internal/application/audit"
	applimits "github.com/bizcore/backend/internal/application/limits"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/auth"
	"github.com/bizcore/backend/internal/infrastructure/persistence"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/bizcore/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserHandler serves user management. Role, branch, and group changes are
// admin actions: each one lands in the audit trail in the same transaction
// as the data change.
type UserHandler struct {
	BaseHandler
	db       *persistence.Database
	users    identity.UserRepository
	limits   *applimits.Service
	recorder *appaudit.Recorder
	jwt      *auth.JWTService
}

// NewUserHandler creates a UserHandler
func NewUserHandler(
	db *persistence.Database,
	users identity.UserRepository,
	limits *applimits.Service,
	recorder *appaudit.Recorder,
	jwt *auth.JWTService,
) *UserHandler {
	return &UserHandler{db: db, users: users, limits: limits, recorder: recorder, jwt: jwt}
}

// CreateUserRequest carries a new user's fields
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

// Create adds a user to the calling tenant, enforcing the seat limit
func (h *UserHandler) Create(c *gin.Context) {
	if !h.requireManager(c) {
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil {
		h.BadRequest(c, "Invalid user payload")
		return
	}
	role := identity.UserRole(req.Role)

	ctx := c.Request.Context()
	if err := h.limits.CheckUserLimit(ctx); err != nil {
		h.HandleError(c, err)
		return
	}

	tenantID := middleware.GetTenantUUID(c)
	user, err := identity.NewUser(tenantID, req.Email, req.Name, req.Password, role)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	err = h.db.Transaction(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		return persistence.NewGormUserRepository(tx).Create(txCtx, user)
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, user)
}

// List returns the calling tenant's users
func (h *UserHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid list query")
		return
	}
	req.Normalize()

	page, err := h.users.List(c.Request.Context(), shared.Filter{
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

// Get returns one user by ID
func (h *UserHandler) Get(c *gin.Context) {
	userID, ok := h.idParam(c)
	if !ok {
		return
	}
	user, err := h.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// roleRequest carries the new role for a user
type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ChangeRole assigns a new role. The old and new roles are written to the
// audit trail with the change itself.
func (h *UserHandler) ChangeRole(c *gin.Context) {
	if !h.requireOwner(c) {
		return
	}
	userID, ok := h.idParam(c)
	if !ok {
		return
	}

	var req roleRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil {
		h.BadRequest(c, "Role is required")
		return
	}

	actorID := middleware.GetActorUUID(c)
	meta := requestMeta(c)

	var user *identity.User
	err := h.db.Transaction(c.Request.Context(), func(txCtx context.Context, tx *gorm.DB) error {
		users := persistence.NewGormUserRepository(tx)

		var err error
		user, err = users.FindByID(txCtx, userID)
		if err != nil {
			return err
		}
		oldRole, err := user.ChangeRole(identity.UserRole(req.Role))
		if err != nil {
			return err
		}
		if err := users.Update(txCtx, user); err != nil {
			return err
		}
		h.recorder.RoleChanged(txCtx, actorID, user.ID, oldRole, user.Role, meta)
		return nil
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// assignmentRequest carries an optional branch or group target; null detaches
type assignmentRequest struct {
	ID *uuid.UUID `json:"id"`
}

// AssignBranch moves a user between branches, or detaches with a null body.
// Branch assignment is gated on the tenant's multi-branch feature.
func (h *UserHandler) AssignBranch(c *gin.Context) {
	if err := h.limits.RequireFeature(c.Request.Context(), identity.FieldMultiBranch); err != nil {
		h.HandleError(c, err)
		return
	}
	h.assign(c, func(user *identity.User, target *uuid.UUID) *uuid.UUID {
		return user.AssignBranch(target)
	}, h.recorder.BranchAssigned)
}

// AssignGroup moves a user between groups, or detaches with a null body
func (h *UserHandler) AssignGroup(c *gin.Context) {
	h.assign(c, func(user *identity.User, target *uuid.UUID) *uuid.UUID {
		return user.AssignGroup(target)
	}, h.recorder.GroupAssigned)
}

func (h *UserHandler) assign(
	c *gin.Context,
	apply func(*identity.User, *uuid.UUID) *uuid.UUID,
	record func(ctx context.Context, actorID, targetUserID uuid.UUID, oldID, newID *uuid.UUID, meta appaudit.RequestMeta),
) {
	if !h.requireManager(c) {
		return
	}
	userID, ok := h.idParam(c)
	if !ok {
		return
	}

	var req assignmentRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil {
		h.BadRequest(c, "Invalid assignment payload")
		return
	}

	actorID := middleware.GetActorUUID(c)
	meta := requestMeta(c)

	var user *identity.User
	err := h.db.Transaction(c.Request.Context(), func(txCtx context.Context, tx *gorm.DB) error {
		users := persistence.NewGormUserRepository(tx)

		var err error
		user, err = users.FindByID(txCtx, userID)
		if err != nil {
			return err
		}
		old := apply(user, req.ID)
		if err := users.Update(txCtx, user); err != nil {
			return err
		}
		record(txCtx, actorID, user.ID, old, req.ID, meta)
		return nil
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Impersonate issues a token pair acting as the target user. The token keeps
// the operator's identity as impersonator so everything done with it stays
// attributable.
func (h *UserHandler) Impersonate(c *gin.Context) {
	if !h.requireOwner(c) {
		return
	}
	userID, ok := h.idParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	target, err := h.users.FindByID(ctx, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !target.Active {
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState, "Cannot impersonate an inactive user")
		return
	}

	actorID := middleware.GetActorUUID(c)
	if actorID == target.ID {
		h.BadRequest(c, "Cannot impersonate yourself")
		return
	}

	pair, err := h.jwt.GenerateTokenPair(auth.TokenInput{
		TenantID:       target.TenantID,
		UserID:         target.ID,
		Role:           target.Role,
		ImpersonatorID: &actorID,
	})
	if err != nil {
		h.InternalError(c, "Failed to issue impersonation tokens")
		return
	}

	h.recorder.ImpersonationStarted(ctx, actorID, target.ID, requestMeta(c))
	h.Success(c, gin.H{"tokens": pair, "user": target})
}

// EndImpersonation closes out an impersonation session. Must be called with
// the impersonation token itself.
func (h *UserHandler) EndImpersonation(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	impersonator := claims.ImpersonatorUUID()
	if impersonator == nil {
		h.BadRequest(c, "Current session is not an impersonation")
		return
	}

	target := middleware.GetActorUUID(c)
	h.recorder.ImpersonationEnded(c.Request.Context(), *impersonator, target, requestMeta(c))
	h.NoContent(c)
}

// Deactivate disables a user account
func (h *UserHandler) Deactivate(c *gin.Context) {
	if !h.requireManager(c) {
		return
	}
	userID, ok := h.idParam(c)
	if !ok {
		return
	}

	err := h.db.Transaction(c.Request.Context(), func(txCtx context.Context, tx *gorm.DB) error {
		users := persistence.NewGormUserRepository(tx)
		user, err := users.FindByID(txCtx, userID)
		if err != nil {
			return err
		}
		user.Deactivate()
		return users.Update(txCtx, user)
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *UserHandler) idParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *UserHandler) requireOwner(c *gin.Context) bool {
	claims := middleware.GetClaims(c)
	if claims == nil || claims.Role != identity.RoleOwner {
		h.Forbidden(c, "Owner access required")
		return false
	}
	return true
}

func (h *UserHandler) requireManager(c *gin.Context) bool {
	claims := middleware.GetClaims(c)
	if claims == nil || (claims.Role != identity.RoleOwner && claims.Role != identity.RoleManager) {
		h.Forbidden(c, "Manager access required")
		return false
	}
	return true
}
