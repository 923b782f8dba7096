// Package signal is the cross-terminal notification surface backed by
// Redis. Every flag here is a short-lived hint for polling terminals;
// losing one never fails the business operation that raised it.
package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const (
	kitchenFlagKey = "signal:kitchen:new_orders"
	kitchenFlagTTL = 60 * time.Second

	drawerKeyPrefix = "signal:drawer:"
	drawerTTL       = 60 * time.Second

	lowStockKeyPrefix = "signal:low_stock:"
	lowStockDedupTTL  = time.Hour

	sessionKeyPrefix = "session:"
)

// Hub fans POS signals out through Redis.
type Hub struct {
	rdb *redis.Client
}

func NewHub(rdb *redis.Client) *Hub {
	return &Hub{rdb: rdb}
}

// KitchenOrdersUpdated raises the new-orders flag the kitchen display polls.
func (h *Hub) KitchenOrdersUpdated(ctx context.Context) {
	if err := h.rdb.Set(ctx, kitchenFlagKey, "1", kitchenFlagTTL).Err(); err != nil {
		logger.Error().Err(err).Msg("Failed to raise kitchen flag")
	}
}

// ConsumeKitchenFlag reads and clears the new-orders flag in one round trip,
// so only one poll observes each raise.
func (h *Hub) ConsumeKitchenFlag(ctx context.Context) bool {
	val, err := h.rdb.GetDel(ctx, kitchenFlagKey).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Error().Err(err).Msg("Failed to consume kitchen flag")
		}
		return false
	}
	return val == "1"
}

// OpenCashDrawer queues a drawer-open command for the terminal that took
// a cash payment. The terminal polls ConsumeDrawerCommand.
func (h *Hub) OpenCashDrawer(ctx context.Context, deviceID string, payment entity.Payment) {
	if deviceID == "" {
		return
	}
	body, err := json.Marshal(map[string]interface{}{
		"payment_number": payment.PaymentNumber,
		"amount":         payment.Amount,
		"processed_at":   payment.ProcessedAt,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode drawer command")
		return
	}
	if err := h.rdb.Set(ctx, drawerKeyPrefix+deviceID, body, drawerTTL).Err(); err != nil {
		logger.Error().Err(err).Str("device", deviceID).Msg("Failed to queue drawer command")
	}
}

// ConsumeDrawerCommand returns and clears the pending drawer command for a
// terminal, if any.
func (h *Hub) ConsumeDrawerCommand(ctx context.Context, deviceID string) (json.RawMessage, bool) {
	val, err := h.rdb.GetDel(ctx, drawerKeyPrefix+deviceID).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Error().Err(err).Str("device", deviceID).Msg("Failed to consume drawer command")
		}
		return nil, false
	}
	return json.RawMessage(val), true
}

// ShouldAlertLowStock reports whether a low-stock alert for the product may
// be emitted now. Each product alerts at most once per dedup window.
func (h *Hub) ShouldAlertLowStock(ctx context.Context, productID int) bool {
	key := fmt.Sprintf("%s%d", lowStockKeyPrefix, productID)
	ok, err := h.rdb.SetNX(ctx, key, "1", lowStockDedupTTL).Result()
	if err != nil {
		logger.Error().Err(err).Int("product", productID).Msg("Failed to check low stock dedup")
		// Alert anyway rather than silently dropping it.
		return true
	}
	return ok
}

// StoreSession keeps an issued token under the username for the session TTL.
func (h *Hub) StoreSession(ctx context.Context, username, token string, ttl time.Duration) error {
	return h.rdb.Set(ctx, sessionKeyPrefix+username, token, ttl).Err()
}

// GetSession returns the stored token for a user, or ErrNotFound when the
// session expired or was dropped.
func (h *Hub) GetSession(ctx context.Context, username string) (string, error) {
	token, err := h.rdb.Get(ctx, sessionKeyPrefix+username).Result()
	if err != nil {
		if err == redis.Nil {
			return "", fmt.Errorf("session for %s: %w", username, entity.ErrNotFound)
		}
		return "", err
	}
	return token, nil
}

// DropSession invalidates a user's session immediately.
func (h *Hub) DropSession(ctx context.Context, username string) error {
	return h.rdb.Del(ctx, sessionKeyPrefix+username).Err()
}
