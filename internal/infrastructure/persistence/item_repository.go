package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizcore/backend/internal/domain/inventory"
	"github.com/bizcore/backend/internal/domain/shared"
)

// GormItemRepository implements inventory.Repository. Items are tenant
// scoped and change captured: every create, update and delete flowing
// through here lands in the audit trail.
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// Create persists a new item
func (r *GormItemRepository) Create(ctx context.Context, item *inventory.Item) error {
	err := r.db.WithContext(ctx).Create(item).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// FindByID finds an item by ID within the context tenant
func (r *GormItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Item, error) {
	var item inventory.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindBySKU finds an item by SKU within the context tenant
func (r *GormItemRepository) FindBySKU(ctx context.Context, sku string) (*inventory.Item, error) {
	var item inventory.Item
	if err := r.db.WithContext(ctx).First(&item, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Update saves item changes
func (r *GormItemRepository) Update(ctx context.Context, item *inventory.Item) error {
	res := r.db.WithContext(ctx).Save(item)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes an item within the context tenant
func (r *GormItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var item inventory.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.ErrNotFound
		}
		return err
	}
	return r.db.WithContext(ctx).Delete(&item).Error
}

// List returns the tenant's items paginated
func (r *GormItemRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[inventory.Item], error) {
	query := r.db.WithContext(ctx).Model(&inventory.Item{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []inventory.Item
	if err := query.
		Order("created_at DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&items).Error; err != nil {
		return nil, err
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.Limit())
	return &page, nil
}

// CountByTenant counts the context tenant's items, used for limit checks
func (r *GormItemRepository) CountByTenant(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&inventory.Item{}).Count(&count).Error
	return count, err
}
