package identity

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bizcore/backend/internal/domain/shared"
)

// UserRole represents the role of a user within a tenant
type UserRole string

const (
	RoleOwner    UserRole = "OWNER"
	RoleManager  UserRole = "MANAGER"
	RoleEmployee UserRole = "EMPLOYEE"
)

// IsValid checks if the role is valid
func (r UserRole) IsValid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleEmployee:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role
func (r UserRole) String() string {
	return string(r)
}

// Scan implements the sql.Scanner interface
func (r *UserRole) Scan(value any) error {
	if value == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("identity: cannot scan type %T into UserRole", value)
	}
	*r = UserRole(strings.ToUpper(s))
	if !r.IsValid() {
		return fmt.Errorf("identity: invalid user role: %s", s)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (r UserRole) Value() (driver.Value, error) {
	return string(r), nil
}

// User is a tenant-scoped account. BranchID and GroupID are optional
// assignments managed by admin actions.
type User struct {
	shared.BaseEntity
	TenantID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Email        string     `gorm:"size:255;not null;index" json:"email"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Role         UserRole   `gorm:"type:varchar(20);not null;default:'EMPLOYEE'" json:"role"`
	BranchID     *uuid.UUID `gorm:"type:uuid" json:"branch_id,omitempty"`
	GroupID      *uuid.UUID `gorm:"type:uuid" json:"group_id,omitempty"`
	Active       bool       `gorm:"not null;default:true" json:"active"`
	// PlatformAdmin marks operators who may act across tenant boundaries
	PlatformAdmin bool `gorm:"not null;default:false" json:"platform_admin"`
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}

// NewUser creates a tenant-scoped user with a bcrypt password hash
func NewUser(tenantID uuid.UUID, email, name, password string, role UserRole) (*User, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("INVALID_EMAIL", "A valid email is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "User name is required")
	}
	if len(password) < 8 {
		return nil, shared.NewDomainError("WEAK_PASSWORD", "Password must be at least 8 characters")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Invalid user role: "+role.String())
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &User{
		BaseEntity:   shared.NewBaseEntity(),
		TenantID:     tenantID,
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}, nil
}

// CheckPassword verifies a plaintext password against the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ChangeRole assigns a new role and returns the previous one
func (u *User) ChangeRole(role UserRole) (UserRole, error) {
	if !role.IsValid() {
		return "", shared.NewDomainError("INVALID_ROLE", "Invalid user role: "+role.String())
	}
	if u.Role == role {
		return "", shared.NewDomainError("SAME_ROLE", "User already has role "+role.String())
	}
	old := u.Role
	u.Role = role
	u.Touch()
	return old, nil
}

// AssignBranch moves the user to a branch; nil detaches
func (u *User) AssignBranch(branchID *uuid.UUID) *uuid.UUID {
	old := u.BranchID
	u.BranchID = branchID
	u.Touch()
	return old
}

// AssignGroup moves the user to a group; nil detaches
func (u *User) AssignGroup(groupID *uuid.UUID) *uuid.UUID {
	old := u.GroupID
	u.GroupID = groupID
	u.Touch()
	return old
}

// Deactivate disables the account
func (u *User) Deactivate() {
	u.Active = false
	u.Touch()
}

// Activate re-enables the account
func (u *User) Activate() {
	u.Active = true
	u.Touch()
}
