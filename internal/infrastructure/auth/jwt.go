// Package auth issues and validates the JWT tokens that carry tenant
// identity into every request.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/infrastructure/config"
)

// TokenType distinguishes access from refresh tokens
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrMissingTenantID  = errors.New("missing tenant_id in claims")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrTokenRevoked     = errors.New("token has been revoked")
)

// Claims are the custom JWT claims. TenantID binds every request to one
// tenant; PlatformAdmin marks platform operators whose requests may run
// unscoped. ImpersonatorID is set while an admin acts as another user, so
// impersonated activity stays attributable to the real operator.
type Claims struct {
	jwt.RegisteredClaims
	TenantID       string            `json:"tenant_id"`
	UserID         string            `json:"user_id"`
	Role           identity.UserRole `json:"role"`
	PlatformAdmin  bool              `json:"platform_admin,omitempty"`
	ImpersonatorID string            `json:"impersonator_id,omitempty"`
	TokenType      TokenType         `json:"token_type"`
}

// TokenPair bundles an access token with its refresh token
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// JWTService signs and validates tokens
type JWTService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
}

// NewJWTService creates a JWT service from configuration
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		issuer:     cfg.Issuer,
	}
}

// TokenInput carries the identity baked into a new token pair
type TokenInput struct {
	TenantID       uuid.UUID
	UserID         uuid.UUID
	Role           identity.UserRole
	PlatformAdmin  bool
	ImpersonatorID *uuid.UUID
}

// GenerateTokenPair issues an access and refresh token for the given identity
func (s *JWTService) GenerateTokenPair(input TokenInput) (*TokenPair, error) {
	now := time.Now()

	accessToken, err := s.sign(s.claims(input, now, s.accessTTL, TokenTypeAccess))
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.sign(s.claims(input, now, s.refreshTTL, TokenTypeRefresh))
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  now.Add(s.accessTTL),
		RefreshTokenExpiresAt: now.Add(s.refreshTTL),
		TokenType:             "Bearer",
	}, nil
}

func (s *JWTService) claims(input TokenInput, now time.Time, ttl time.Duration, tokenType TokenType) *Claims {
	c := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   input.UserID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		TenantID:      input.TenantID.String(),
		UserID:        input.UserID.String(),
		Role:          input.Role,
		PlatformAdmin: input.PlatformAdmin,
		TokenType:     tokenType,
	}
	if input.ImpersonatorID != nil {
		c.ImpersonatorID = input.ImpersonatorID.String()
	}
	return c
}

func (s *JWTService) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateAccessToken validates an access token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token and returns its claims
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TokenTypeRefresh)
}

func (s *JWTService) validate(tokenString string, expected TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.TokenType != expected {
		return nil, ErrInvalidTokenType
	}
	if claims.TenantID == "" {
		return nil, ErrMissingTenantID
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// Refresh issues a new token pair from a valid refresh token
func (s *JWTService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := s.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return nil, ErrInvalidClaims
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidClaims
	}

	input := TokenInput{
		TenantID:      tenantID,
		UserID:        userID,
		Role:          claims.Role,
		PlatformAdmin: claims.PlatformAdmin,
	}
	if claims.ImpersonatorID != "" {
		if impersonator, err := uuid.Parse(claims.ImpersonatorID); err == nil {
			input.ImpersonatorID = &impersonator
		}
	}
	return s.GenerateTokenPair(input)
}

// TenantUUID parses the tenant ID from the claims
func (c *Claims) TenantUUID() (uuid.UUID, error) {
	return uuid.Parse(c.TenantID)
}

// UserUUID parses the user ID from the claims
func (c *Claims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// ImpersonatorUUID parses the impersonator ID, or nil when not impersonating
func (c *Claims) ImpersonatorUUID() *uuid.UUID {
	if c.ImpersonatorID == "" {
		return nil
	}
	id, err := uuid.Parse(c.ImpersonatorID)
	if err != nil {
		return nil
	}
	return &id
}

// RemainingTTL returns the time until the token expires
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	remaining := time.Until(c.ExpiresAt.Time)
	if remaining < 0 {
		return 0
	}
	return remaining
}
