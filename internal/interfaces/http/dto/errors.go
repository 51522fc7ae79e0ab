package dto

import "net/http"

// Error codes returned in the response envelope. Domain errors carry the
// same codes, so handlers can pass them through without translation.
const (
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeInvalidTenant       = "INVALID_TENANT"
	ErrCodeTenantRequired      = "TENANT_REQUIRED"
	ErrCodeIsolationViolation  = "ISOLATION_VIOLATION"
	ErrCodeLimitExceeded       = "LIMIT_EXCEEDED"
	ErrCodeFeatureNotAvailable = "FEATURE_NOT_AVAILABLE"
	ErrCodeTokenExpired        = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid        = "INVALID_TOKEN"
	ErrCodeTokenRevoked        = "TOKEN_REVOKED"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeRequestTooLarge     = "REQUEST_TOO_LARGE"
)

// errorCodeHTTPStatus maps error codes to HTTP status codes
var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeTokenRevoked: http.StatusUnauthorized,

	ErrCodeForbidden:           http.StatusForbidden,
	ErrCodeIsolationViolation:  http.StatusForbidden,
	ErrCodeFeatureNotAvailable: http.StatusForbidden,

	ErrCodeNotFound: http.StatusNotFound,

	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:   http.StatusUnprocessableEntity,
	ErrCodeLimitExceeded:  http.StatusUnprocessableEntity,
	ErrCodeInvalidTenant:  http.StatusUnprocessableEntity,
	ErrCodeTenantRequired: http.StatusBadRequest,

	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status for an error code, defaulting to 500
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
