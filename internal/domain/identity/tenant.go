package identity

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/bizcore/backend/internal/domain/shared"
)

// TenantStatus represents the lifecycle state of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusDeleted   TenantStatus = "deleted"
)

// IsValid checks if the status is valid
func (s TenantStatus) IsValid() bool {
	switch s {
	case TenantStatusActive, TenantStatusSuspended, TenantStatusDeleted:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status
func (s TenantStatus) String() string {
	return string(s)
}

// Scan implements the sql.Scanner interface
func (s *TenantStatus) Scan(value any) error {
	if value == nil {
		return nil
	}
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("identity: cannot scan type %T into TenantStatus", value)
	}
	*s = TenantStatus(strings.ToLower(str))
	if !s.IsValid() {
		return fmt.Errorf("identity: invalid tenant status: %s", str)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (s TenantStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Tenant is the platform-level organization record. It deliberately has no
// tenant_id column of its own: it is managed platform-wide, outside the
// per-tenant isolation scope.
type Tenant struct {
	shared.BaseEntity
	Name   string       `gorm:"size:255;not null" json:"name"`
	Slug   string       `gorm:"size:100;not null;uniqueIndex" json:"slug"`
	Status TenantStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
}

// TableName returns the table name for Tenant
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a new active tenant
func NewTenant(name, slug string) (*Tenant, error) {
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(strings.ToLower(slug))
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Tenant name is required")
	}
	if slug == "" {
		return nil, shared.NewDomainError("INVALID_SLUG", "Tenant slug is required")
	}
	return &Tenant{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Slug:       slug,
		Status:     TenantStatusActive,
	}, nil
}

// IsActive reports whether the tenant can be used
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// Suspend marks the tenant suspended
func (t *Tenant) Suspend() error {
	if t.Status == TenantStatusDeleted {
		return shared.NewDomainError("TENANT_DELETED", "Cannot suspend a deleted tenant")
	}
	t.Status = TenantStatusSuspended
	t.Touch()
	return nil
}

// Activate restores a suspended tenant
func (t *Tenant) Activate() error {
	if t.Status == TenantStatusDeleted {
		return shared.NewDomainError("TENANT_DELETED", "Cannot activate a deleted tenant")
	}
	t.Status = TenantStatusActive
	t.Touch()
	return nil
}

// MarkDeleted soft-deletes the tenant
func (t *Tenant) MarkDeleted() {
	t.Status = TenantStatusDeleted
	t.Touch()
}
