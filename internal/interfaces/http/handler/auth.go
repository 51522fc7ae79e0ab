package handler

import (
	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/infrastructure/auth"
	"github.com/bizcore/backend/internal/infrastructure/logger"
	"github.com/bizcore/backend/internal/interfaces/http/middleware"
	"github.com/bizcore/backend/internal/tenantctx"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

// AuthHandler serves login, token refresh, and logout
type AuthHandler struct {
	BaseHandler
	tenants   identity.TenantRepository
	users     identity.UserRepository
	jwt       *auth.JWTService
	blacklist auth.TokenBlacklist
	recorder  *appaudit.Recorder
}

// NewAuthHandler creates an AuthHandler
func NewAuthHandler(
	tenants identity.TenantRepository,
	users identity.UserRepository,
	jwt *auth.JWTService,
	blacklist auth.TokenBlacklist,
	recorder *appaudit.Recorder,
) *AuthHandler {
	return &AuthHandler{
		tenants:   tenants,
		users:     users,
		jwt:       jwt,
		blacklist: blacklist,
		recorder:  recorder,
	}
}

// LoginRequest identifies the tenant by slug alongside the credentials
type LoginRequest struct {
	TenantSlug string `json:"tenant_slug" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
}

// RefreshRequest carries the refresh token to exchange
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Login authenticates a user and issues a token pair. Failed attempts are
// written to the audit trail immediately so they survive any rollback.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil {
		h.BadRequest(c, "Invalid login request")
		return
	}

	meta := requestMeta(c)
	ctx := c.Request.Context()

	tenant, err := h.tenants.FindBySlug(ctx, req.TenantSlug)
	if err != nil {
		h.recorder.LoginAttempt(ctx, nil, req.Email, false, meta)
		h.Unauthorized(c, "Invalid credentials")
		return
	}

	ctx, err = tenantctx.WithTenant(ctx, tenant.ID)
	if err != nil {
		h.InternalError(c, "Failed to establish tenant context")
		return
	}

	user, err := h.users.FindByEmail(ctx, req.Email)
	if err != nil {
		h.recorder.LoginAttempt(ctx, nil, req.Email, false, meta)
		h.Unauthorized(c, "Invalid credentials")
		return
	}
	if !user.Active || !user.CheckPassword(req.Password) {
		h.recorder.LoginAttempt(ctx, &user.ID, req.Email, false, meta)
		h.Unauthorized(c, "Invalid credentials")
		return
	}

	pair, err := h.jwt.GenerateTokenPair(auth.TokenInput{
		TenantID:      tenant.ID,
		UserID:        user.ID,
		Role:          user.Role,
		PlatformAdmin: user.PlatformAdmin,
	})
	if err != nil {
		logger.FromContext(ctx).Error("Failed to issue tokens", zap.Error(err))
		h.InternalError(c, "Failed to issue tokens")
		return
	}

	h.recorder.LoginAttempt(ctx, &user.ID, req.Email, true, meta)
	h.Success(c, gin.H{
		"tokens": pair,
		"user":   user,
	})
}

// Refresh exchanges a refresh token for a new token pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil {
		h.BadRequest(c, "Invalid refresh request")
		return
	}

	if h.blacklist != nil {
		if claims, err := h.jwt.ValidateRefreshToken(req.RefreshToken); err == nil && claims.ID != "" {
			if revoked, err := h.blacklist.IsRevoked(c.Request.Context(), claims.ID); err == nil && revoked {
				h.Unauthorized(c, "Refresh token has been revoked")
				return
			}
		}
	}

	pair, err := h.jwt.Refresh(req.RefreshToken)
	if err != nil {
		h.Unauthorized(c, "Invalid refresh token")
		return
	}
	h.Success(c, gin.H{"tokens": pair})
}

// Logout revokes the presented access token for its remaining lifetime
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if h.blacklist != nil && claims.ID != "" {
		if err := h.blacklist.Revoke(c.Request.Context(), claims.ID, claims.RemainingTTL()); err != nil {
			logger.FromContext(c.Request.Context()).Error("Failed to revoke token", zap.Error(err))
			h.InternalError(c, "Failed to log out")
			return
		}
	}
	h.NoContent(c)
}
