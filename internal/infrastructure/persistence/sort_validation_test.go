package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	assert.Equal(t, "ASC", ValidateSortOrder("asc"))
	assert.Equal(t, "ASC", ValidateSortOrder(" ASC "))
	assert.Equal(t, "DESC", ValidateSortOrder("desc"))
	assert.Equal(t, "DESC", ValidateSortOrder(""))
	assert.Equal(t, "DESC", ValidateSortOrder("ASC; DROP TABLE users"))
}

func TestValidateSortField(t *testing.T) {
	t.Run("allows whitelisted fields", func(t *testing.T) {
		assert.Equal(t, "email", ValidateSortField("email", UserSortFields, "created_at"))
		assert.Equal(t, "quantity", ValidateSortField("quantity", ItemSortFields, "created_at"))
	})

	t.Run("rejects everything else", func(t *testing.T) {
		assert.Equal(t, "created_at", ValidateSortField("password_hash", UserSortFields, "created_at"))
		assert.Equal(t, "created_at", ValidateSortField("", UserSortFields, "created_at"))
		assert.Equal(t, "created_at", ValidateSortField("1=1", AuditEventSortFields, "created_at"))
	})
}
