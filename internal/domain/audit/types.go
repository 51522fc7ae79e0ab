package audit

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Category classifies an audit event by the kind of activity it records.
type Category string

const (
	// CategoryData covers create/update/delete of tracked business entities
	CategoryData Category = "data"
	// CategoryAdmin covers privileged administrative actions
	CategoryAdmin Category = "admin"
	// CategoryAuth covers authentication activity
	CategoryAuth Category = "auth"
	// CategorySecurity covers denied or suspicious access
	CategorySecurity Category = "security"
)

// AllCategories returns all valid categories
func AllCategories() []Category {
	return []Category{CategoryData, CategoryAdmin, CategoryAuth, CategorySecurity}
}

// IsValid checks if the category is valid
func (c Category) IsValid() bool {
	switch c {
	case CategoryData, CategoryAdmin, CategoryAuth, CategorySecurity:
		return true
	default:
		return false
	}
}

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// Scan implements the sql.Scanner interface
func (c *Category) Scan(value any) error {
	if value == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("audit: cannot scan type %T into Category", value)
	}
	*c = Category(strings.ToLower(s))
	if !c.IsValid() {
		return fmt.Errorf("audit: invalid category: %s", s)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (c Category) Value() (driver.Value, error) {
	return string(c), nil
}

// Action identifies what happened to the target of an audit event.
type Action string

const (
	// Data mutations emitted by change capture
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"

	// Privileged administrative actions
	ActionRoleChange       Action = "role_change"
	ActionPermissionGrant  Action = "permission_grant"
	ActionPermissionRevoke Action = "permission_revoke"
	ActionBranchAssign     Action = "branch_assign"
	ActionGroupAssign      Action = "group_assign"
	ActionImpersonateStart Action = "impersonate_start"
	ActionImpersonateEnd   Action = "impersonate_end"

	// Subscription limit administration
	ActionOverrideSet     Action = "limit_override_set"
	ActionOverrideCleared Action = "limit_override_cleared"
	ActionPlanChanged     Action = "plan_changed"

	// Authentication and security
	ActionLoginSuccess    Action = "login_success"
	ActionLoginFailure    Action = "login_failure"
	ActionIsolationDenied Action = "isolation_denied"
)

// AllActions returns all valid actions
func AllActions() []Action {
	return []Action{
		ActionCreate, ActionUpdate, ActionDelete,
		ActionRoleChange, ActionPermissionGrant, ActionPermissionRevoke,
		ActionBranchAssign, ActionGroupAssign,
		ActionImpersonateStart, ActionImpersonateEnd,
		ActionOverrideSet, ActionOverrideCleared, ActionPlanChanged,
		ActionLoginSuccess, ActionLoginFailure, ActionIsolationDenied,
	}
}

// IsValid checks if the action is valid
func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete,
		ActionRoleChange, ActionPermissionGrant, ActionPermissionRevoke,
		ActionBranchAssign, ActionGroupAssign,
		ActionImpersonateStart, ActionImpersonateEnd,
		ActionOverrideSet, ActionOverrideCleared, ActionPlanChanged,
		ActionLoginSuccess, ActionLoginFailure, ActionIsolationDenied:
		return true
	default:
		return false
	}
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// Scan implements the sql.Scanner interface
func (a *Action) Scan(value any) error {
	if value == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("audit: cannot scan type %T into Action", value)
	}
	*a = Action(strings.ToLower(s))
	if !a.IsValid() {
		return fmt.Errorf("audit: invalid action: %s", s)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (a Action) Value() (driver.Value, error) {
	return string(a), nil
}
