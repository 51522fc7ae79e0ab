package middleware

import (
	"net/http"
	"strings"

	"github.com/bizcore/backend/internal/infrastructure/auth"
	"github.com/bizcore/backend/internal/infrastructure/logger"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/bizcore/backend/internal/tenantctx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys for values the auth middleware sets on gin.Context
const (
	ClaimsKey       = "auth_claims"
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
	RawTokenKey     = "auth_raw_token"
	TenantHeaderKey = "X-Tenant-ID"
)

// AuthConfig configures the authentication middleware
type AuthConfig struct {
	JWT *auth.JWTService
	// Blacklist is optional; when set, revoked tokens are rejected
	Blacklist auth.TokenBlacklist
	// SkipPaths bypass authentication entirely (health checks, login)
	SkipPaths []string
	// SkipPathPrefixes bypass authentication by prefix (swagger)
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

// DefaultAuthConfig returns the standard skip list for public endpoints
func DefaultAuthConfig(jwt *auth.JWTService) AuthConfig {
	return AuthConfig{
		JWT: jwt,
		SkipPaths: []string{
			"/health",
			"/ready",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
		},
		SkipPathPrefixes: []string{"/swagger"},
	}
}

// Authenticate validates the bearer token, rejects revoked tokens, and binds
// the caller's tenant into the request context so every query downstream is
// scoped to it. Platform operators still authenticate against their home
// tenant; elevation happens separately via RequirePlatformAdmin.
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		header := c.GetHeader(AuthHeaderKey)
		if !strings.HasPrefix(header, BearerPrefix) {
			abortAuth(c, cfg, auth.ErrInvalidToken)
			return
		}
		token := strings.TrimPrefix(header, BearerPrefix)
		if token == "" {
			abortAuth(c, cfg, auth.ErrInvalidToken)
			return
		}

		claims, err := cfg.JWT.ValidateAccessToken(token)
		if err != nil {
			abortAuth(c, cfg, err)
			return
		}

		if cfg.Blacklist != nil && claims.ID != "" {
			revoked, err := cfg.Blacklist.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// Fail open: a blacklist outage should not take down the API
				if cfg.Logger != nil {
					cfg.Logger.Error("Token revocation check failed",
						zap.String("jti", claims.ID), zap.Error(err))
				}
			} else if revoked {
				abortAuth(c, cfg, auth.ErrTokenRevoked)
				return
			}
		}

		tenantID, err := claims.TenantUUID()
		if err != nil {
			abortAuth(c, cfg, auth.ErrInvalidClaims)
			return
		}

		ctx := c.Request.Context()
		ctx, err = tenantctx.WithTenant(ctx, tenantID)
		if err != nil {
			abortAuth(c, cfg, auth.ErrInvalidClaims)
			return
		}

		log := logger.FromContext(ctx)
		ctx, _ = logger.WithActorID(ctx, log, claims.UserID)

		c.Set(ClaimsKey, claims)
		c.Set(RawTokenKey, token)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// abortAuth maps authentication failures onto the response envelope
func abortAuth(c *gin.Context, cfg AuthConfig, err error) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("Authentication failed",
			zap.String("path", c.Request.URL.Path), zap.Error(err))
	}

	code := dto.ErrCodeUnauthorized
	message := "Authentication required"
	switch err {
	case auth.ErrExpiredToken:
		code = dto.ErrCodeTokenExpired
		message = "Token has expired"
	case auth.ErrInvalidToken, auth.ErrInvalidClaims, auth.ErrInvalidTokenType:
		code = dto.ErrCodeTokenInvalid
		message = "Invalid token"
	case auth.ErrTokenRevoked:
		code = dto.ErrCodeTokenRevoked
		message = "Token has been revoked"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message, requestID(c)))
}

// GetClaims returns the validated claims, or nil on unauthenticated routes
func GetClaims(c *gin.Context) *auth.Claims {
	if v, exists := c.Get(ClaimsKey); exists {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetRawToken returns the bearer token as presented, for logout revocation
func GetRawToken(c *gin.Context) string {
	return c.GetString(RawTokenKey)
}

// GetActorUUID returns the authenticated user's ID, or uuid.Nil
func GetActorUUID(c *gin.Context) uuid.UUID {
	claims := GetClaims(c)
	if claims == nil {
		return uuid.Nil
	}
	id, err := claims.UserUUID()
	if err != nil {
		return uuid.Nil
	}
	return id
}

// GetTenantUUID returns the authenticated tenant's ID, or uuid.Nil
func GetTenantUUID(c *gin.Context) uuid.UUID {
	claims := GetClaims(c)
	if claims == nil {
		return uuid.Nil
	}
	id, err := claims.TenantUUID()
	if err != nil {
		return uuid.Nil
	}
	return id
}

// RequirePlatformAdmin gates platform endpoints and lifts tenant scoping for
// the request so cross-tenant reads (audit review, limit administration) work.
// It must run after Authenticate.
func RequirePlatformAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse(dto.ErrCodeUnauthorized, "Authentication required", requestID(c)))
			return
		}
		if !claims.PlatformAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse(dto.ErrCodeForbidden, "Platform operator access required", requestID(c)))
			return
		}

		c.Request = c.Request.WithContext(tenantctx.Bypass(c.Request.Context()))
		c.Next()
	}
}
