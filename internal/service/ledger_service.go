package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

// LedgerStore persists products and their append-only movement journal.
// ApplyMovement must write the product quantity and the movement row as one
// unit: both commit or both roll back.
type LedgerStore interface {
	GetProduct(ctx context.Context, id int) (entity.Product, error)
	ListProducts(ctx context.Context) ([]entity.Product, error)
	ListMovements(ctx context.Context, productID int, limit int) ([]entity.StockMovement, error)
	ApplyMovement(ctx context.Context, m entity.StockMovement) error
	UpdatePrice(ctx context.Context, productID int, newPrice decimal.Decimal) error
}

// SignalHub is the bounded-TTL cross-terminal signalling surface. All
// methods are best-effort: failures are logged inside the hub, never
// surfaced to business operations.
type SignalHub interface {
	KitchenOrdersUpdated(ctx context.Context)
	ConsumeKitchenFlag(ctx context.Context) bool
	OpenCashDrawer(ctx context.Context, deviceID string, payment entity.Payment)
	ShouldAlertLowStock(ctx context.Context, productID int) bool
}

// LedgerService is the stock movement engine. Every inventory change goes
// through RecordMovement; nothing else writes stock_quantity.
type LedgerService struct {
	store  LedgerStore
	audit  Recorder
	events Publisher
	hub    SignalHub
	locks  *LockTable
}

func NewLedgerService(store LedgerStore, audit Recorder, events Publisher, hub SignalHub) *LedgerService {
	return &LedgerService{
		store:  store,
		audit:  audit,
		events: events,
		hub:    hub,
		locks:  NewLockTable(),
	}
}

// RecordMovement applies a signed delta to a product and journals it.
// The read-compute-write section is serialized per product so concurrent
// movements cannot observe overlapping previous/new quantity ranges.
// A resulting zero or negative quantity does not block the movement; it
// raises a low-stock or out-of-stock event instead.
func (s *LedgerService) RecordMovement(ctx context.Context, actor entity.ActorContext, productID int, movementType entity.MovementType, delta decimal.Decimal, reference, notes string) (entity.StockMovement, error) {
	if err := requireRole(actor, entity.RoleAdmin); err != nil {
		return entity.StockMovement{}, err
	}
	if !movementType.Valid() {
		return entity.StockMovement{}, fmt.Errorf("unknown movement type %q: %w", movementType, entity.ErrValidation)
	}
	if delta.IsZero() {
		return entity.StockMovement{}, fmt.Errorf("zero delta: %w", entity.ErrValidation)
	}

	unlock := s.locks.Lock("product:" + strconv.Itoa(productID))
	defer unlock()

	return s.recordLocked(ctx, actor, productID, movementType, delta, reference, notes)
}

// AdjustStock records an adjustment toward an absolute target quantity.
// The delta is computed here; admins use this for stock counts.
func (s *LedgerService) AdjustStock(ctx context.Context, actor entity.ActorContext, productID int, target decimal.Decimal, reference, notes string) (entity.StockMovement, error) {
	if err := requireRole(actor, entity.RoleAdmin); err != nil {
		return entity.StockMovement{}, err
	}
	if target.IsNegative() {
		return entity.StockMovement{}, fmt.Errorf("negative adjustment target: %w", entity.ErrValidation)
	}

	unlock := s.locks.Lock("product:" + strconv.Itoa(productID))
	defer unlock()

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return entity.StockMovement{}, err
	}

	delta := target.Sub(product.StockQuantity)
	if delta.IsZero() {
		return entity.StockMovement{}, fmt.Errorf("stock already at target: %w", entity.ErrValidation)
	}

	return s.recordLocked(ctx, actor, productID, entity.MovementAdjustment, delta, reference, notes)
}

// recordLocked does the read-compute-write under the caller-held product lock.
func (s *LedgerService) recordLocked(ctx context.Context, actor entity.ActorContext, productID int, movementType entity.MovementType, delta decimal.Decimal, reference, notes string) (entity.StockMovement, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return entity.StockMovement{}, err
	}

	movement := entity.StockMovement{
		ID:               uuid.New(),
		ProductID:        productID,
		MovementType:     movementType,
		Quantity:         delta,
		PreviousQuantity: product.StockQuantity,
		NewQuantity:      product.StockQuantity.Add(delta),
		Reference:        reference,
		Notes:            notes,
		CreatedBy:        actor.UserID,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.store.ApplyMovement(ctx, movement); err != nil {
		logger.Error().Err(err).Int("product_id", productID).Msg("Failed to apply stock movement")
		return entity.StockMovement{}, err
	}

	product.StockQuantity = movement.NewQuantity
	s.CheckStock(ctx, product)

	s.audit.Record(ctx, actor, entity.ActionStockAdjust,
		fmt.Sprintf("Stock %s: %s, quantity %s, ref %s", movementType, product.Name, delta, reference),
		map[string]interface{}{
			"product_id":        productID,
			"product_name":      product.Name,
			"movement_type":     string(movementType),
			"quantity":          delta.String(),
			"previous_quantity": movement.PreviousQuantity.String(),
			"new_quantity":      movement.NewQuantity.String(),
			"reference":         reference,
		})

	return movement, nil
}

// ChangePrice updates a product price. Changes are never restricted, but
// always audited and published for the notification collaborator.
func (s *LedgerService) ChangePrice(ctx context.Context, actor entity.ActorContext, productID int, newPrice decimal.Decimal) error {
	if err := requireRole(actor, entity.RoleAdmin); err != nil {
		return err
	}
	if !newPrice.IsPositive() {
		return fmt.Errorf("price must be positive: %w", entity.ErrValidation)
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if product.CurrentPrice.Equal(newPrice) {
		return nil
	}

	if err := s.store.UpdatePrice(ctx, productID, newPrice); err != nil {
		return err
	}

	logger.Warn().
		Int("product_id", productID).
		Str("old_price", product.CurrentPrice.String()).
		Str("new_price", newPrice.String()).
		Msg("Product price changed")

	s.audit.Record(ctx, actor, entity.ActionPriceChange,
		fmt.Sprintf("Price change: %s %s -> %s", product.Name, product.CurrentPrice, newPrice),
		map[string]interface{}{
			"product_id": productID,
			"old_price":  product.CurrentPrice.String(),
			"new_price":  newPrice.String(),
		})

	if err := s.events.Publish(ctx, fmt.Sprintf("product.price_changed.%d", productID), map[string]interface{}{
		"product_id": productID,
		"name":       product.Name,
		"old_price":  product.CurrentPrice.String(),
		"new_price":  newPrice.String(),
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to publish price change event")
	}

	return nil
}

func (s *LedgerService) GetProduct(ctx context.Context, id int) (entity.Product, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *LedgerService) ListProducts(ctx context.Context) ([]entity.Product, error) {
	return s.store.ListProducts(ctx)
}

func (s *LedgerService) ListMovements(ctx context.Context, actor entity.ActorContext, productID, limit int) ([]entity.StockMovement, error) {
	if err := requireRole(actor, entity.RoleAdmin); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	return s.store.ListMovements(ctx, productID, limit)
}

// PrepareMovement locks the product, reads its quantity and returns the
// unapplied movement together with the product snapshot and the release
// func. The caller persists the movement atomically with its own writes
// and releases the lock afterwards. Used by the order flow so item writes
// and inventory deductions share one transaction.
func (s *LedgerService) PrepareMovement(ctx context.Context, userID, productID int, movementType entity.MovementType, delta decimal.Decimal, reference, notes string) (entity.StockMovement, entity.Product, func(), error) {
	unlock := s.locks.Lock("product:" + strconv.Itoa(productID))

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		unlock()
		return entity.StockMovement{}, entity.Product{}, nil, err
	}

	movement := entity.StockMovement{
		ID:               uuid.New(),
		ProductID:        productID,
		MovementType:     movementType,
		Quantity:         delta,
		PreviousQuantity: product.StockQuantity,
		NewQuantity:      product.StockQuantity.Add(delta),
		Reference:        reference,
		Notes:            notes,
		CreatedBy:        userID,
		CreatedAt:        time.Now().UTC(),
	}

	return movement, product, unlock, nil
}

// CheckStock raises low-stock / out-of-stock events. The sale itself
// never blocks on stock; service continuity wins over strict enforcement.
func (s *LedgerService) CheckStock(ctx context.Context, product entity.Product) {
	if !product.IsLowStock() {
		return
	}
	if !s.hub.ShouldAlertLowStock(ctx, product.ID) {
		return
	}

	event := "stock.low"
	if !product.StockQuantity.IsPositive() {
		event = "stock.out"
	}

	logger.Warn().
		Int("product_id", product.ID).
		Str("stock", product.StockQuantity.String()).
		Str("min", product.MinStockLevel.String()).
		Msgf("%s: %s", event, product.Name)

	if err := s.events.Publish(ctx, fmt.Sprintf("%s.%s", event, product.SKU), map[string]interface{}{
		"product_id":    product.ID,
		"name":          product.Name,
		"sku":           product.SKU,
		"current_stock": product.StockQuantity.String(),
		"min_stock":     product.MinStockLevel.String(),
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to publish stock alert event")
	}
}
