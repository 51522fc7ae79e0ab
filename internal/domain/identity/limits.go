package identity

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/bizcore/backend/internal/domain/shared"
)

// TenantPlan represents the subscription plan of a tenant
type TenantPlan string

const (
	TenantPlanFree       TenantPlan = "free"
	TenantPlanBasic      TenantPlan = "basic"
	TenantPlanPro        TenantPlan = "pro"
	TenantPlanEnterprise TenantPlan = "enterprise"
)

// IsValid checks if the plan is valid
func (p TenantPlan) IsValid() bool {
	switch p {
	case TenantPlanFree, TenantPlanBasic, TenantPlanPro, TenantPlanEnterprise:
		return true
	default:
		return false
	}
}

// String returns the string representation of the plan
func (p TenantPlan) String() string {
	return string(p)
}

// Scan implements the sql.Scanner interface
func (p *TenantPlan) Scan(value any) error {
	if value == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("identity: cannot scan type %T into TenantPlan", value)
	}
	*p = TenantPlan(strings.ToLower(s))
	if !p.IsValid() {
		return fmt.Errorf("identity: invalid tenant plan: %s", s)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (p TenantPlan) Value() (driver.Value, error) {
	return string(p), nil
}

// PlanLimits holds the resource caps and feature flags of a subscription plan.
type PlanLimits struct {
	UserLimit        int `json:"user_limit"`
	BranchLimit      int `json:"branch_limit"`
	InventoryLimit   int `json:"inventory_limit"`
	StorageLimitGB   int `json:"storage_limit_gb"`
	APICallsPerMonth int `json:"api_calls_per_month"`

	MultiBranch       bool `json:"multi_branch"`
	AdvancedReporting bool `json:"advanced_reporting"`
	APIAccess         bool `json:"api_access"`
	CustomBranding    bool `json:"custom_branding"`
	PrioritySupport   bool `json:"priority_support"`
}

// EffectiveLimits is the result of resolving plan defaults against per-tenant
// overrides. It has the same shape as PlanLimits: a resolved value per field.
type EffectiveLimits = PlanLimits

// DefaultPlanLimits returns the limits for a given plan
func DefaultPlanLimits(plan TenantPlan) PlanLimits {
	switch plan {
	case TenantPlanBasic:
		return PlanLimits{
			UserLimit:        10,
			BranchLimit:      3,
			InventoryLimit:   5000,
			StorageLimitGB:   20,
			APICallsPerMonth: 100_000,
			MultiBranch:      true,
		}
	case TenantPlanPro:
		return PlanLimits{
			UserLimit:         50,
			BranchLimit:       10,
			InventoryLimit:    50_000,
			StorageLimitGB:    100,
			APICallsPerMonth:  1_000_000,
			MultiBranch:       true,
			AdvancedReporting: true,
			APIAccess:         true,
		}
	case TenantPlanEnterprise:
		return PlanLimits{
			UserLimit:         9999,
			BranchLimit:       9999,
			InventoryLimit:    999_999,
			StorageLimitGB:    1000,
			APICallsPerMonth:  10_000_000,
			MultiBranch:       true,
			AdvancedReporting: true,
			APIAccess:         true,
			CustomBranding:    true,
			PrioritySupport:   true,
		}
	default:
		return PlanLimits{
			UserLimit:        5,
			BranchLimit:      1,
			InventoryLimit:   1000,
			StorageLimitGB:   5,
			APICallsPerMonth: 10_000,
		}
	}
}

// LimitField identifies one limit or feature flag of a subscription.
type LimitField string

const (
	FieldUserLimit        LimitField = "user_limit"
	FieldBranchLimit      LimitField = "branch_limit"
	FieldInventoryLimit   LimitField = "inventory_limit"
	FieldStorageLimitGB   LimitField = "storage_limit_gb"
	FieldAPICallsPerMonth LimitField = "api_calls_per_month"

	FieldMultiBranch       LimitField = "multi_branch"
	FieldAdvancedReporting LimitField = "advanced_reporting"
	FieldAPIAccess         LimitField = "api_access"
	FieldCustomBranding    LimitField = "custom_branding"
	FieldPrioritySupport   LimitField = "priority_support"
)

// AllLimitFields returns every limit field
func AllLimitFields() []LimitField {
	return []LimitField{
		FieldUserLimit, FieldBranchLimit, FieldInventoryLimit,
		FieldStorageLimitGB, FieldAPICallsPerMonth,
		FieldMultiBranch, FieldAdvancedReporting, FieldAPIAccess,
		FieldCustomBranding, FieldPrioritySupport,
	}
}

// IsValid checks if the limit field is valid
func (f LimitField) IsValid() bool {
	switch f {
	case FieldUserLimit, FieldBranchLimit, FieldInventoryLimit,
		FieldStorageLimitGB, FieldAPICallsPerMonth,
		FieldMultiBranch, FieldAdvancedReporting, FieldAPIAccess,
		FieldCustomBranding, FieldPrioritySupport:
		return true
	default:
		return false
	}
}

// IsBoolean reports whether the field is a feature flag rather than a cap
func (f LimitField) IsBoolean() bool {
	switch f {
	case FieldMultiBranch, FieldAdvancedReporting, FieldAPIAccess,
		FieldCustomBranding, FieldPrioritySupport:
		return true
	default:
		return false
	}
}

// String returns the string representation of the limit field
func (f LimitField) String() string {
	return string(f)
}

// LimitOverrides holds per-tenant deviations from the plan defaults. Every
// field is tri-state: nil means "use the plan default"; a present value wins
// even when it is zero or false. Clearing an override returns the field to
// nil, never to a copy of the plan value.
type LimitOverrides struct {
	UserLimit        *int `json:"user_limit,omitempty"`
	BranchLimit      *int `json:"branch_limit,omitempty"`
	InventoryLimit   *int `json:"inventory_limit,omitempty"`
	StorageLimitGB   *int `json:"storage_limit_gb,omitempty"`
	APICallsPerMonth *int `json:"api_calls_per_month,omitempty"`

	MultiBranch       *bool `json:"multi_branch,omitempty"`
	AdvancedReporting *bool `json:"advanced_reporting,omitempty"`
	APIAccess         *bool `json:"api_access,omitempty"`
	CustomBranding    *bool `json:"custom_branding,omitempty"`
	PrioritySupport   *bool `json:"priority_support,omitempty"`
}

// IsEmpty reports whether no override is set
func (o LimitOverrides) IsEmpty() bool {
	return o.UserLimit == nil && o.BranchLimit == nil && o.InventoryLimit == nil &&
		o.StorageLimitGB == nil && o.APICallsPerMonth == nil &&
		o.MultiBranch == nil && o.AdvancedReporting == nil && o.APIAccess == nil &&
		o.CustomBranding == nil && o.PrioritySupport == nil
}

// intSlot returns the storage slot for a numeric field, or nil for flags.
func (o *LimitOverrides) intSlot(field LimitField) **int {
	switch field {
	case FieldUserLimit:
		return &o.UserLimit
	case FieldBranchLimit:
		return &o.BranchLimit
	case FieldInventoryLimit:
		return &o.InventoryLimit
	case FieldStorageLimitGB:
		return &o.StorageLimitGB
	case FieldAPICallsPerMonth:
		return &o.APICallsPerMonth
	default:
		return nil
	}
}

// boolSlot returns the storage slot for a feature flag, or nil for caps.
func (o *LimitOverrides) boolSlot(field LimitField) **bool {
	switch field {
	case FieldMultiBranch:
		return &o.MultiBranch
	case FieldAdvancedReporting:
		return &o.AdvancedReporting
	case FieldAPIAccess:
		return &o.APIAccess
	case FieldCustomBranding:
		return &o.CustomBranding
	case FieldPrioritySupport:
		return &o.PrioritySupport
	default:
		return nil
	}
}

// Set stores an explicit override value. Numeric fields take an int, feature
// flags take a bool; zero and false are legitimate values distinct from "no
// override".
func (o *LimitOverrides) Set(field LimitField, value any) error {
	if !field.IsValid() {
		return shared.NewDomainError("INVALID_LIMIT_FIELD", "Unknown limit field: "+field.String())
	}
	if field.IsBoolean() {
		b, ok := value.(bool)
		if !ok {
			return shared.NewDomainError("INVALID_OVERRIDE_VALUE", "Feature flag override must be a boolean")
		}
		*o.boolSlot(field) = &b
		return nil
	}
	n, ok := value.(int)
	if !ok {
		return shared.NewDomainError("INVALID_OVERRIDE_VALUE", "Limit override must be an integer")
	}
	if n < 0 {
		return shared.NewDomainError("INVALID_OVERRIDE_VALUE", "Limit override cannot be negative")
	}
	*o.intSlot(field) = &n
	return nil
}

// Clear removes an override so resolution falls through to the plan default.
func (o *LimitOverrides) Clear(field LimitField) error {
	if !field.IsValid() {
		return shared.NewDomainError("INVALID_LIMIT_FIELD", "Unknown limit field: "+field.String())
	}
	if field.IsBoolean() {
		*o.boolSlot(field) = nil
		return nil
	}
	*o.intSlot(field) = nil
	return nil
}

// Get returns the override value for a field and whether one is set.
func (o *LimitOverrides) Get(field LimitField) (any, bool) {
	if field.IsBoolean() {
		if slot := o.boolSlot(field); slot != nil && *slot != nil {
			return **slot, true
		}
		return nil, false
	}
	if slot := o.intSlot(field); slot != nil && *slot != nil {
		return **slot, true
	}
	return nil, false
}

// ClearAll removes every override atomically.
func (o *LimitOverrides) ClearAll() {
	*o = LimitOverrides{}
}

// ApplyTo resolves the overrides on top of the given plan defaults.
func (o LimitOverrides) ApplyTo(plan PlanLimits) EffectiveLimits {
	effective := plan
	if o.UserLimit != nil {
		effective.UserLimit = *o.UserLimit
	}
	if o.BranchLimit != nil {
		effective.BranchLimit = *o.BranchLimit
	}
	if o.InventoryLimit != nil {
		effective.InventoryLimit = *o.InventoryLimit
	}
	if o.StorageLimitGB != nil {
		effective.StorageLimitGB = *o.StorageLimitGB
	}
	if o.APICallsPerMonth != nil {
		effective.APICallsPerMonth = *o.APICallsPerMonth
	}
	if o.MultiBranch != nil {
		effective.MultiBranch = *o.MultiBranch
	}
	if o.AdvancedReporting != nil {
		effective.AdvancedReporting = *o.AdvancedReporting
	}
	if o.APIAccess != nil {
		effective.APIAccess = *o.APIAccess
	}
	if o.CustomBranding != nil {
		effective.CustomBranding = *o.CustomBranding
	}
	if o.PrioritySupport != nil {
		effective.PrioritySupport = *o.PrioritySupport
	}
	return effective
}
