package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderServed    OrderStatus = "served"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// ActiveStatuses are the statuses during which a table stays occupied.
var ActiveStatuses = []OrderStatus{OrderPending, OrderPreparing, OrderReady, OrderServed}

type Order struct {
	ID          uuid.UUID       `json:"id"`
	OrderNumber string          `json:"order_number"`
	TableID     *int            `json:"table_id,omitempty"` // nil for takeout
	WaiterID    int             `json:"waiter_id"`
	Status      OrderStatus     `json:"status"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	DeviceID    string          `json:"device_id"`
	Items       []OrderItem     `json:"items,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// OrderItem locks the product price at creation time. Once confirmed,
// product, quantity and unit price can no longer change.
type OrderItem struct {
	ID                  uuid.UUID       `json:"id"`
	OrderID             uuid.UUID       `json:"order_id"`
	ProductID           int             `json:"product_id"`
	ProductName         string          `json:"product_name"`
	Quantity            decimal.Decimal `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	RequiresKitchen     bool            `json:"requires_kitchen"`
	IsConfirmed         bool            `json:"is_confirmed"`
	ConfirmedAt         *time.Time      `json:"confirmed_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

const (
	OrderNumberPrefix   = "ORD"
	PaymentNumberPrefix = "PAY"
)

// FormatNumber builds the human-readable sequential number for orders and
// payments: PREFIX-YYYYMMDD-NNNN.
func FormatNumber(prefix string, day time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.UTC().Format("20060102"), seq)
}
