package entity

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
	RoleWaiter  Role = "waiter"
	RoleKitchen Role = "kitchen"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCashier, RoleWaiter, RoleKitchen:
		return true
	}
	return false
}

type User struct {
	ID            int       `json:"id"`
	Username      string    `json:"username"`
	Role          Role      `json:"role"`
	DeviceID      string    `json:"device_id,omitempty"` // empty until first login binds it
	PinCode       string    `json:"-"`
	IsActiveShift bool      `json:"is_active_shift"`
	CreatedAt     time.Time `json:"created_at"`
}

// ActorContext carries the authenticated identity a terminal presents with
// every request. The web layer fills it from the JWT and request headers.
type ActorContext struct {
	UserID   int
	Username string
	Role     Role
	DeviceID string
	IP       string
}
