package inventory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizcore/backend/internal/domain/shared"
)

// Item is a tenant-scoped stock record. Changes to items are captured into
// the audit trail field by field.
type Item struct {
	shared.BaseEntity
	TenantID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	SKU       string          `gorm:"size:64;not null;index" json:"sku"`
	Name      string          `gorm:"size:255;not null" json:"name"`
	Quantity  int             `gorm:"not null;default:0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
}

// TableName returns the table name for Item
func (Item) TableName() string {
	return "items"
}

// NewItem creates an item within the given tenant
func NewItem(tenantID uuid.UUID, sku, name string, quantity int, unitPrice decimal.Decimal) (*Item, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	sku = strings.TrimSpace(strings.ToUpper(sku))
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Item name is required")
	}
	if quantity < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	return &Item{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		SKU:        sku,
		Name:       name,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
	}, nil
}

// Adjust changes the stock level by delta, rejecting negative results
func (i *Item) Adjust(delta int) error {
	next := i.Quantity + delta
	if next < 0 {
		return shared.NewDomainError("INSUFFICIENT_STOCK", "Stock adjustment would go below zero")
	}
	i.Quantity = next
	i.Touch()
	return nil
}

// Reprice sets a new unit price
func (i *Item) Reprice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	i.UnitPrice = price
	i.Touch()
	return nil
}

// Repository manages tenant-scoped items
type Repository interface {
	Create(ctx context.Context, item *Item) error
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)
	FindBySKU(ctx context.Context, sku string) (*Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[Item], error)
	CountByTenant(ctx context.Context) (int64, error)
}
