package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/infrastructure/auditsink"
)

// GormAuditEventRepository implements audit.Repository using GORM. It also
// serves as the sink's event writer: WriteEvents persists a flushed batch
// in arrival order.
type GormAuditEventRepository struct {
	db *gorm.DB
}

// NewGormAuditEventRepository creates a new GormAuditEventRepository
func NewGormAuditEventRepository(db *gorm.DB) *GormAuditEventRepository {
	return &GormAuditEventRepository{db: db}
}

// WithDB returns a copy bound to the given handle. The transaction helper
// uses this to write flushed events inside the open transaction.
func (r *GormAuditEventRepository) WithDB(db *gorm.DB) auditsink.EventWriter {
	return &GormAuditEventRepository{db: db}
}

// Create persists a single audit event
func (r *GormAuditEventRepository) Create(ctx context.Context, event *audit.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// CreateBatch persists events preserving their order
func (r *GormAuditEventRepository) CreateBatch(ctx context.Context, events []*audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(events).Error
}

// WriteEvents implements auditsink.EventWriter
func (r *GormAuditEventRepository) WriteEvents(ctx context.Context, events []*audit.Event) error {
	return r.CreateBatch(ctx, events)
}

// List returns audit events newest first, filtered and paginated. Tenant
// scoping applies through the isolation callbacks: a tenant admin only ever
// sees their own trail, platform queries run under a bypass.
func (r *GormAuditEventRepository) List(ctx context.Context, filter audit.Filter) ([]audit.Event, int64, error) {
	query := r.db.WithContext(ctx).Model(&audit.Event{})

	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.TargetType != nil {
		query = query.Where("target_type = ?", *filter.TargetType)
	}
	if filter.IPAddress != nil {
		query = query.Where("ip_address = ?", *filter.IPAddress)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	var events []audit.Event
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&events).Error; err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// DeleteOlderThan removes events past the retention period. Runs under a
// bypass from the retention job; returns the number of rows removed.
func (r *GormAuditEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&audit.Event{})
	return res.RowsAffected, res.Error
}
