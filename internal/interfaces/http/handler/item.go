package handler

import (
	"context"

	"github.com/bizcore/backend/internal/domain/inventory"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/persistence"
	"github.com/bizcore/backend/internal/interfaces/http/dto"
	"github.com/bizcore/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ItemHandler serves inventory CRUD. All writes run inside a transaction so
// the captured change events commit atomically with the data.
type ItemHandler struct {
	BaseHandler
	db    *persistence.Database
	items inventory.Repository
}

// NewItemHandler creates an ItemHandler
func NewItemHandler(db *persistence.Database, items inventory.Repository) *ItemHandler {
	return &ItemHandler{db: db, items: items}
}

// CreateItemRequest carries a new item's fields
type CreateItemRequest struct {
	SKU       string `json:"sku" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Quantity  int    `json:"quantity" binding:"min=0"`
	UnitPrice string `json:"unit_price" binding:"required"`
}

// Create adds an item to the calling tenant
func (h *ItemHandler) Create(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil {
		h.BadRequest(c, "Invalid item payload")
		return
	}
	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		h.BadRequest(c, "Invalid unit price")
		return
	}

	item, err := inventory.NewItem(middleware.GetTenantUUID(c), req.SKU, req.Name, req.Quantity, price)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	err = h.db.Transaction(c.Request.Context(), func(txCtx context.Context, tx *gorm.DB) error {
		return persistence.NewGormItemRepository(tx).Create(txCtx, item)
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// List returns the calling tenant's items
func (h *ItemHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid list query")
		return
	}
	req.Normalize()

	page, err := h.items.List(c.Request.Context(), shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Paginated(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get returns one item by ID
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, ok := h.idParam(c)
	if !ok {
		return
	}
	item, err := h.items.FindByID(c.Request.Context(), itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// UpdateItemRequest carries the updatable item fields. Omitted fields are
// left unchanged.
type UpdateItemRequest struct {
	Name      *string `json:"name"`
	UnitPrice *string `json:"unit_price"`
}

// Update changes an item's name or price
func (h *ItemHandler) Update(c *gin.Context) {
	itemID, ok := h.idParam(c)
	if !ok {
		return
	}
	var req UpdateItemRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil {
		h.BadRequest(c, "Invalid item payload")
		return
	}

	var item *inventory.Item
	err := h.db.Transaction(c.Request.Context(), func(txCtx context.Context, tx *gorm.DB) error {
		items := persistence.NewGormItemRepository(tx)

		var err error
		item, err = items.FindByID(txCtx, itemID)
		if err != nil {
			return err
		}
		if req.Name != nil {
			item.Name = *req.Name
			item.Touch()
		}
		if req.UnitPrice != nil {
			price, err := decimal.NewFromString(*req.UnitPrice)
			if err != nil {
				return shared.NewDomainError("INVALID_PRICE", "Invalid unit price")
			}
			if err := item.Reprice(price); err != nil {
				return err
			}
		}
		return items.Update(txCtx, item)
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// adjustRequest carries a stock delta, positive or negative
type adjustRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// Adjust moves the stock level by a delta
func (h *ItemHandler) Adjust(c *gin.Context) {
	itemID, ok := h.idParam(c)
	if !ok {
		return
	}
	var req adjustRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil {
		h.BadRequest(c, "Delta is required")
		return
	}

	var item *inventory.Item
	err := h.db.Transaction(c.Request.Context(), func(txCtx context.Context, tx *gorm.DB) error {
		items := persistence.NewGormItemRepository(tx)

		var err error
		item, err = items.FindByID(txCtx, itemID)
		if err != nil {
			return err
		}
		if err := item.Adjust(req.Delta); err != nil {
			return err
		}
		return items.Update(txCtx, item)
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Delete removes an item
func (h *ItemHandler) Delete(c *gin.Context) {
	itemID, ok := h.idParam(c)
	if !ok {
		return
	}

	err := h.db.Transaction(c.Request.Context(), func(txCtx context.Context, tx *gorm.DB) error {
		return persistence.NewGormItemRepository(tx).Delete(txCtx, itemID)
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *ItemHandler) idParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID")
		return uuid.Nil, false
	}
	return id, true
}
