package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID              int             `json:"id"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku"`
	Description     string          `json:"description,omitempty"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	StockQuantity   decimal.Decimal `json:"stock_quantity"`
	MinStockLevel   decimal.Decimal `json:"min_stock_level"`
	IsAvailable     bool            `json:"is_available"`
	IsActive        bool            `json:"is_active"`
	RequiresKitchen bool            `json:"requires_kitchen"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (p *Product) IsLowStock() bool {
	return p.StockQuantity.LessThanOrEqual(p.MinStockLevel)
}

type MovementType string

const (
	MovementPurchase   MovementType = "purchase"
	MovementSale       MovementType = "sale"
	MovementAdjustment MovementType = "adjustment"
	MovementWastage    MovementType = "wastage"
	MovementReturn     MovementType = "return"
)

func (m MovementType) Valid() bool {
	switch m {
	case MovementPurchase, MovementSale, MovementAdjustment, MovementWastage, MovementReturn:
		return true
	}
	return false
}

// StockMovement is an append-only ledger entry. Rows are never updated or
// deleted after creation; new_quantity = previous_quantity + quantity holds
// for every row, serialized per product.
type StockMovement struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        int             `json:"product_id"`
	MovementType     MovementType    `json:"movement_type"`
	Quantity         decimal.Decimal `json:"quantity"` // signed delta
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
	Reference        string          `json:"reference,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	CreatedBy        int             `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
}
