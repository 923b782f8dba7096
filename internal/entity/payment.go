package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentMobileMoney PaymentMethod = "mobile_money"
	PaymentOrangeMoney PaymentMethod = "orange_money"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentMobileMoney, PaymentOrangeMoney:
		return true
	}
	return false
}

// RequiresReference reports whether the method needs an external
// transaction reference (all mobile money flows do, cash does not).
func (m PaymentMethod) RequiresReference() bool {
	return m == PaymentMobileMoney || m == PaymentOrangeMoney
}

// Payment is immutable once created. The only field that may ever change
// afterwards is the receipt-printed pair, set when the printer confirms.
type Payment struct {
	ID                   uuid.UUID       `json:"id"`
	PaymentNumber        string          `json:"payment_number"`
	OrderID              uuid.UUID       `json:"order_id"`
	Amount               decimal.Decimal `json:"amount"`
	Method               PaymentMethod   `json:"payment_method"`
	TransactionReference string          `json:"transaction_reference,omitempty"`
	ProcessedBy          int             `json:"processed_by"`
	DeviceID             string          `json:"device_id"`
	ReceiptPrinted       bool            `json:"receipt_printed"`
	ReceiptPrintedAt     *time.Time      `json:"receipt_printed_at,omitempty"`
	ProcessedAt          time.Time       `json:"processed_at"`
}

// Receipt is the structured document handed to the printer collaborator.
type Receipt struct {
	BusinessName  string          `json:"business_name"`
	Address       string          `json:"address"`
	TaxID         string          `json:"tax_id"`
	ReceiptNumber string          `json:"receipt_number"`
	OrderNumber   string          `json:"order_number"`
	Date          time.Time       `json:"date"`
	Table         string          `json:"table"`
	Waiter        string          `json:"waiter"`
	Cashier       string          `json:"cashier"`
	Items         []ReceiptLine   `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	TransactionRef string         `json:"transaction_ref,omitempty"`
}

type ReceiptLine struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}
