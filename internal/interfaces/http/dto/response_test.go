package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListRequestNormalize(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		var req ListRequest
		req.Normalize()

		assert.Equal(t, 1, req.Page)
		assert.Equal(t, 20, req.PageSize)
		assert.Equal(t, "created_at", req.OrderBy)
		assert.Equal(t, "desc", req.OrderDir)
	})

	t.Run("clamps oversized pages", func(t *testing.T) {
		req := ListRequest{Page: 3, PageSize: 5000}
		req.Normalize()

		assert.Equal(t, 3, req.Page)
		assert.Equal(t, 100, req.PageSize)
	})
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse([]string{"a", "b"}, 45, 2, 20)

	assert.True(t, resp.Success)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestGetHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(ErrCodeNotFound))
	assert.Equal(t, http.StatusForbidden, GetHTTPStatus(ErrCodeIsolationViolation))
	assert.Equal(t, http.StatusUnprocessableEntity, GetHTTPStatus(ErrCodeLimitExceeded))
	assert.Equal(t, http.StatusTooManyRequests, GetHTTPStatus(ErrCodeRateLimited))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("SOMETHING_ELSE"))
}
