package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
)

// GormTenantRepository implements identity.TenantRepository. Tenants are
// platform-level records with no tenant_id column, so the isolation
// callbacks leave these queries alone.
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// Create persists a new tenant
func (r *GormTenantRepository) Create(ctx context.Context, tenant *identity.Tenant) error {
	err := r.db.WithContext(ctx).Create(tenant).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// FindByID finds a tenant by ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	var tenant identity.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// FindBySlug finds a tenant by its unique slug
func (r *GormTenantRepository) FindBySlug(ctx context.Context, slug string) (*identity.Tenant, error) {
	var tenant identity.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// Update saves tenant changes
func (r *GormTenantRepository) Update(ctx context.Context, tenant *identity.Tenant) error {
	res := r.db.WithContext(ctx).Save(tenant)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List returns tenants paginated
func (r *GormTenantRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[identity.Tenant], error) {
	query := r.db.WithContext(ctx).Model(&identity.Tenant{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var tenants []identity.Tenant
	if err := query.
		Order("created_at DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&tenants).Error; err != nil {
		return nil, err
	}
	page := shared.NewPaginated(tenants, total, filter.Page, filter.Limit())
	return &page, nil
}
