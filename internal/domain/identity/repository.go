package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/bizcore/backend/internal/domain/shared"
)

// TenantRepository manages platform-level tenant records
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[Tenant], error)
}

// SubscriptionRepository manages plan and override rows, one per tenant
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *Subscription) error
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
}

// UserRepository manages tenant-scoped user accounts
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[User], error)
	CountByTenant(ctx context.Context) (int64, error)
}
