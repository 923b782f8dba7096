package entity

import (
	"time"

	"github.com/google/uuid"
)

type ActionType string

// Closed enumeration of auditable actions. Mapping raw requests to an
// action type is the web layer's job.
const (
	ActionLogin          ActionType = "login"
	ActionLogout         ActionType = "logout"
	ActionOrderCreate    ActionType = "order_create"
	ActionOrderModify    ActionType = "order_modify"
	ActionOrderCancel    ActionType = "order_cancel"
	ActionPaymentProcess ActionType = "payment_process"
	ActionStockAdjust    ActionType = "stock_adjust"
	ActionPriceChange    ActionType = "price_change"
	ActionUserAction     ActionType = "user_action"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionLogin, ActionLogout, ActionOrderCreate, ActionOrderModify,
		ActionOrderCancel, ActionPaymentProcess, ActionStockAdjust,
		ActionPriceChange, ActionUserAction:
		return true
	}
	return false
}

// AuditLog entries are append-only. The only permitted removal is the
// administrative retention purge.
type AuditLog struct {
	ID          uuid.UUID              `json:"id"`
	UserID      int                    `json:"user_id"`
	ActionType  ActionType             `json:"action_type"`
	Description string                 `json:"description"`
	DeviceID    string                 `json:"device_id,omitempty"`
	IPAddress   string                 `json:"ip_address,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}
