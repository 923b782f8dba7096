package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type Shift struct {
	ID          int              `json:"id"`
	UserID      int              `json:"user_id"`
	DeviceID    string           `json:"device_id"`
	OpeningCash decimal.Decimal  `json:"opening_cash"`
	ClosingCash *decimal.Decimal `json:"closing_cash,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	EndedAt     *time.Time       `json:"ended_at,omitempty"`
}

// ShiftSummary is the reconciliation result returned when a shift ends.
// VarianceWarning is a flag, never a failure.
type ShiftSummary struct {
	Shift           Shift           `json:"shift"`
	CashCollected   decimal.Decimal `json:"cash_collected"`
	ExpectedCash    decimal.Decimal `json:"expected_cash"`
	Variance        decimal.Decimal `json:"variance"`
	VarianceWarning bool            `json:"variance_warning"`
}
