package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
)

// GormSubscriptionRepository implements identity.SubscriptionRepository.
// Subscriptions are platform-level rows keyed by tenant; lookups take an
// explicit tenant ID rather than relying on the isolation callbacks.
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// Create persists a new subscription
func (r *GormSubscriptionRepository) Create(ctx context.Context, sub *identity.Subscription) error {
	err := r.db.WithContext(ctx).Create(sub).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// FindByTenant returns the tenant's subscription
func (r *GormSubscriptionRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*identity.Subscription, error) {
	var sub identity.Subscription
	if err := r.db.WithContext(ctx).First(&sub, "tenant_id = ?", tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// Update saves the subscription including cleared override slots. Save
// writes every column, so an override set back to NULL actually clears.
func (r *GormSubscriptionRepository) Update(ctx context.Context, sub *identity.Subscription) error {
	res := r.db.WithContext(ctx).Save(sub)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
