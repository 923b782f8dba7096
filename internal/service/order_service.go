package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

// AddItemCmd carries everything one add-item transaction writes: the new
// item, its inventory deduction and the order with recomputed totals.
type AddItemCmd struct {
	Item     entity.OrderItem
	Movement entity.StockMovement
	Order    entity.Order
}

type RemoveItemCmd struct {
	ItemID   uuid.UUID
	Movement entity.StockMovement
	Order    entity.Order
}

type ConfirmItemCmd struct {
	ItemID      uuid.UUID
	OrderID     uuid.UUID
	ConfirmedAt time.Time
	NewStatus   entity.OrderStatus // empty when the order status is unchanged
}

type CancelOrderCmd struct {
	OrderID     uuid.UUID
	Movements   []entity.StockMovement // stock returns for unconfirmed items
	FreeTableID *int
}

// OrderStore persists orders and items. Every method that carries side
// records (movement, table flag, totals) must commit them in one
// transaction with the primary write.
type OrderStore interface {
	CreateOrder(ctx context.Context, o entity.Order) (entity.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (entity.Order, error)
	GetOrderByItem(ctx context.Context, itemID uuid.UUID) (entity.Order, error)
	FindActiveOrderByTable(ctx context.Context, tableID int) (entity.Order, bool, error)
	AddItem(ctx context.Context, cmd AddItemCmd) error
	RemoveItem(ctx context.Context, cmd RemoveItemCmd) error
	ConfirmItem(ctx context.Context, cmd ConfirmItemCmd) error
	CancelOrder(ctx context.Context, cmd CancelOrderCmd) error
	SetStatus(ctx context.Context, orderID uuid.UUID, status entity.OrderStatus) error
	ListByStatus(ctx context.Context, statuses ...entity.OrderStatus) ([]entity.Order, error)
}

type TableStore interface {
	GetTable(ctx context.Context, id int) (entity.Table, error)
	ListTables(ctx context.Context) ([]entity.Table, error)
}

// KitchenView is the polling read model for kitchen displays. HasNew comes
// from the bounded-TTL watermark, so staleness up to the TTL is expected.
type KitchenView struct {
	Orders []entity.Order `json:"orders"`
	HasNew bool           `json:"has_new"`
}

// OrderService drives the order lifecycle:
// pending -> preparing -> ready -> served -> completed, with cancelled
// reachable from every non-terminal status.
type OrderService struct {
	store   OrderStore
	tables  TableStore
	ledger  *LedgerService
	audit   Recorder
	events  Publisher
	hub     SignalHub
	taxRate decimal.Decimal
	locks   *LockTable
}

// NewOrderService wires the order lifecycle. locks must be the table the
// payment service uses too, so order mutation and payment collection on
// the same order exclude each other.
func NewOrderService(store OrderStore, tables TableStore, ledger *LedgerService, audit Recorder, events Publisher, hub SignalHub, taxRate decimal.Decimal, locks *LockTable) *OrderService {
	return &OrderService{
		store:   store,
		tables:  tables,
		ledger:  ledger,
		audit:   audit,
		events:  events,
		hub:     hub,
		taxRate: taxRate,
		locks:   locks,
	}
}

// CreateOrder opens a new order on a table (nil tableID for takeout). If
// the table already carries a non-terminal order, that order is returned
// instead of creating a duplicate, which makes retries idempotent.
func (s *OrderService) CreateOrder(ctx context.Context, actor entity.ActorContext, tableID *int) (entity.Order, error) {
	if err := requireRole(actor, entity.RoleWaiter); err != nil {
		return entity.Order{}, err
	}

	if tableID != nil {
		unlock := s.locks.Lock("table:" + strconv.Itoa(*tableID))
		defer unlock()

		table, err := s.tables.GetTable(ctx, *tableID)
		if err != nil {
			return entity.Order{}, err
		}
		if !table.IsActive {
			return entity.Order{}, fmt.Errorf("table %s is not in service: %w", table.Number, entity.ErrValidation)
		}

		existing, ok, err := s.store.FindActiveOrderByTable(ctx, *tableID)
		if err != nil {
			return entity.Order{}, err
		}
		if ok {
			return existing, nil
		}
	}

	// The creation time also picks the daily-sequence day for the number.
	now := time.Now().UTC()
	order := entity.Order{
		ID:        uuid.New(),
		TableID:   tableID,
		WaiterID:  actor.UserID,
		Status:    entity.OrderPending,
		DeviceID:  actor.DeviceID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.store.CreateOrder(ctx, order)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create order")
		return entity.Order{}, err
	}

	s.audit.Record(ctx, actor, entity.ActionOrderCreate,
		fmt.Sprintf("Order %s created", created.OrderNumber),
		map[string]interface{}{"order_number": created.OrderNumber, "table_id": tableID})

	if err := s.events.Publish(ctx, "order.created."+created.OrderNumber, created); err != nil {
		logger.Error().Err(err).Msg("Failed to publish order created event")
	}

	return created, nil
}

// AddItem appends a product to an open order. The unit price is locked
// from the product at this moment; the inventory deduction and the totals
// recompute commit in the same transaction as the item row.
func (s *OrderService) AddItem(ctx context.Context, actor entity.ActorContext, orderID uuid.UUID, productID int, quantity decimal.Decimal, instructions string) (entity.OrderItem, error) {
	if err := requireRole(actor, entity.RoleWaiter); err != nil {
		return entity.OrderItem{}, err
	}
	if !quantity.IsPositive() {
		return entity.OrderItem{}, fmt.Errorf("quantity must be positive: %w", entity.ErrValidation)
	}

	unlock := s.locks.Lock("order:" + orderID.String())
	defer unlock()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return entity.OrderItem{}, err
	}
	if order.Status != entity.OrderPending && order.Status != entity.OrderPreparing {
		return entity.OrderItem{}, fmt.Errorf("cannot modify order in status %s: %w", order.Status, entity.ErrStateConflict)
	}

	movement, product, release, err := s.ledger.PrepareMovement(ctx, actor.UserID, productID,
		entity.MovementSale, quantity.Neg(), order.OrderNumber, "Sold via order "+order.OrderNumber)
	if err != nil {
		return entity.OrderItem{}, err
	}
	defer release()

	if !product.IsActive || !product.IsAvailable {
		return entity.OrderItem{}, fmt.Errorf("product %s is unavailable: %w", product.Name, entity.ErrValidation)
	}

	now := time.Now().UTC()
	item := entity.OrderItem{
		ID:                  uuid.New(),
		OrderID:             order.ID,
		ProductID:           product.ID,
		ProductName:         product.Name,
		Quantity:            quantity,
		UnitPrice:           product.CurrentPrice,
		Subtotal:            quantity.Mul(product.CurrentPrice),
		SpecialInstructions: instructions,
		RequiresKitchen:     product.RequiresKitchen,
		CreatedAt:           now,
	}
	if !product.RequiresKitchen {
		item.IsConfirmed = true
		item.ConfirmedAt = &now
	}

	items := append(order.Items, item)
	order.Subtotal, order.TaxAmount, order.TotalAmount = entity.ComputeTotals(items, s.taxRate)
	if order.Status == entity.OrderPending {
		order.Status = entity.OrderPreparing
	}
	if order.Status == entity.OrderPreparing && allKitchenConfirmed(items) {
		order.Status = entity.OrderReady
	}

	if err := s.store.AddItem(ctx, AddItemCmd{Item: item, Movement: movement, Order: order}); err != nil {
		logger.Error().Err(err).Str("order", order.OrderNumber).Msg("Failed to add order item")
		return entity.OrderItem{}, err
	}

	product.StockQuantity = movement.NewQuantity
	s.ledger.CheckStock(ctx, product)

	if item.RequiresKitchen {
		s.hub.KitchenOrdersUpdated(ctx)
	}

	s.audit.Record(ctx, actor, entity.ActionOrderModify,
		fmt.Sprintf("Added %s x%s to order %s", product.Name, quantity, order.OrderNumber),
		map[string]interface{}{
			"order_number": order.OrderNumber,
			"product_id":   product.ID,
			"quantity":     quantity.String(),
			"unit_price":   item.UnitPrice.String(),
		})

	return item, nil
}

// RemoveItem deletes an unconfirmed item, returning its quantity to stock.
// Confirmed items are locked: the kitchen already acted on them.
func (s *OrderService) RemoveItem(ctx context.Context, actor entity.ActorContext, orderID, itemID uuid.UUID) error {
	if err := requireRole(actor, entity.RoleWaiter); err != nil {
		return err
	}

	unlock := s.locks.Lock("order:" + orderID.String())
	defer unlock()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status.Terminal() {
		return fmt.Errorf("cannot modify order in status %s: %w", order.Status, entity.ErrStateConflict)
	}

	var removed *entity.OrderItem
	remaining := make([]entity.OrderItem, 0, len(order.Items))
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			removed = &order.Items[i]
			continue
		}
		remaining = append(remaining, order.Items[i])
	}
	if removed == nil {
		return fmt.Errorf("order item %s: %w", itemID, entity.ErrNotFound)
	}
	if removed.IsConfirmed {
		return fmt.Errorf("confirmed item cannot be removed: %w", entity.ErrImmutable)
	}

	movement, _, release, err := s.ledger.PrepareMovement(ctx, actor.UserID, removed.ProductID,
		entity.MovementReturn, removed.Quantity, order.OrderNumber, "Removed from order "+order.OrderNumber)
	if err != nil {
		return err
	}
	defer release()

	order.Subtotal, order.TaxAmount, order.TotalAmount = entity.ComputeTotals(remaining, s.taxRate)

	// The removed item may have been the last unconfirmed kitchen work;
	// re-evaluate the ready transition over what remains.
	becameReady := false
	if order.Status == entity.OrderPreparing && len(remaining) > 0 && allKitchenConfirmed(remaining) {
		order.Status = entity.OrderReady
		becameReady = true
	}

	if err := s.store.RemoveItem(ctx, RemoveItemCmd{ItemID: itemID, Movement: movement, Order: order}); err != nil {
		logger.Error().Err(err).Str("order", order.OrderNumber).Msg("Failed to remove order item")
		return err
	}

	if becameReady {
		if err := s.events.Publish(ctx, "order.ready."+order.OrderNumber, order); err != nil {
			logger.Error().Err(err).Msg("Failed to publish order ready event")
		}
	}

	s.audit.Record(ctx, actor, entity.ActionOrderModify,
		fmt.Sprintf("Removed %s from order %s", removed.ProductName, order.OrderNumber),
		map[string]interface{}{"order_number": order.OrderNumber, "product_id": removed.ProductID})

	return nil
}

// ConfirmItem is the kitchen acknowledgement. Confirming the last
// kitchen-required item moves the order to ready.
func (s *OrderService) ConfirmItem(ctx context.Context, actor entity.ActorContext, itemID uuid.UUID) (entity.Order, error) {
	if err := requireRole(actor, entity.RoleKitchen); err != nil {
		return entity.Order{}, err
	}

	order, err := s.store.GetOrderByItem(ctx, itemID)
	if err != nil {
		return entity.Order{}, err
	}

	unlock := s.locks.Lock("order:" + order.ID.String())
	defer unlock()

	// Re-read under the lock so the confirmation set is consistent.
	order, err = s.store.GetOrder(ctx, order.ID)
	if err != nil {
		return entity.Order{}, err
	}

	now := time.Now().UTC()
	var found bool
	for i := range order.Items {
		if order.Items[i].ID != itemID {
			continue
		}
		found = true
		if order.Items[i].IsConfirmed {
			return order, nil // already acknowledged
		}
		order.Items[i].IsConfirmed = true
		order.Items[i].ConfirmedAt = &now
	}
	if !found {
		return entity.Order{}, fmt.Errorf("order item %s: %w", itemID, entity.ErrNotFound)
	}

	cmd := ConfirmItemCmd{ItemID: itemID, OrderID: order.ID, ConfirmedAt: now}
	if order.Status == entity.OrderPreparing && allKitchenConfirmed(order.Items) {
		cmd.NewStatus = entity.OrderReady
		order.Status = entity.OrderReady
	}

	if err := s.store.ConfirmItem(ctx, cmd); err != nil {
		logger.Error().Err(err).Str("order", order.OrderNumber).Msg("Failed to confirm order item")
		return entity.Order{}, err
	}

	if cmd.NewStatus == entity.OrderReady {
		if err := s.events.Publish(ctx, "order.ready."+order.OrderNumber, order); err != nil {
			logger.Error().Err(err).Msg("Failed to publish order ready event")
		}
	}

	s.audit.Record(ctx, actor, entity.ActionOrderModify,
		fmt.Sprintf("Kitchen confirmed item on order %s", order.OrderNumber),
		map[string]interface{}{"order_number": order.OrderNumber, "item_id": itemID.String()})

	return order, nil
}

// ServeOrder marks a ready order as served at the table.
func (s *OrderService) ServeOrder(ctx context.Context, actor entity.ActorContext, orderID uuid.UUID) error {
	if err := requireRole(actor, entity.RoleWaiter); err != nil {
		return err
	}

	unlock := s.locks.Lock("order:" + orderID.String())
	defer unlock()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != entity.OrderReady {
		return fmt.Errorf("order %s is %s, not ready: %w", order.OrderNumber, order.Status, entity.ErrStateConflict)
	}

	if err := s.store.SetStatus(ctx, orderID, entity.OrderServed); err != nil {
		return err
	}

	s.audit.Record(ctx, actor, entity.ActionOrderModify,
		fmt.Sprintf("Order %s served", order.OrderNumber),
		map[string]interface{}{"order_number": order.OrderNumber})
	return nil
}

// CancelOrder aborts a non-terminal order. Unconfirmed items go back to
// stock; confirmed ones were already prepared and stay consumed. The table
// is freed in the same transaction.
func (s *OrderService) CancelOrder(ctx context.Context, actor entity.ActorContext, orderID uuid.UUID) error {
	if err := requireRole(actor, entity.RoleWaiter, entity.RoleCashier); err != nil {
		return err
	}

	unlock := s.locks.Lock("order:" + orderID.String())
	defer unlock()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status.Terminal() {
		return fmt.Errorf("order %s already %s: %w", order.OrderNumber, order.Status, entity.ErrStateConflict)
	}

	// Aggregate per product: one return movement per product, and each
	// product lock taken exactly once.
	returns := make(map[int]decimal.Decimal)
	for _, it := range order.Items {
		if !it.IsConfirmed {
			returns[it.ProductID] = returns[it.ProductID].Add(it.Quantity)
		}
	}
	productIDs := make([]int, 0, len(returns))
	for id := range returns {
		productIDs = append(productIDs, id)
	}
	// Lock products in a stable order.
	sort.Ints(productIDs)

	cmd := CancelOrderCmd{OrderID: orderID, FreeTableID: order.TableID}
	for _, productID := range productIDs {
		movement, _, release, err := s.ledger.PrepareMovement(ctx, actor.UserID, productID,
			entity.MovementReturn, returns[productID], order.OrderNumber, "Order "+order.OrderNumber+" cancelled")
		if err != nil {
			return err
		}
		defer release()
		cmd.Movements = append(cmd.Movements, movement)
	}

	if err := s.store.CancelOrder(ctx, cmd); err != nil {
		logger.Error().Err(err).Str("order", order.OrderNumber).Msg("Failed to cancel order")
		return err
	}

	s.audit.Record(ctx, actor, entity.ActionOrderCancel,
		fmt.Sprintf("Order %s cancelled", order.OrderNumber),
		map[string]interface{}{"order_number": order.OrderNumber})

	if err := s.events.Publish(ctx, "order.cancelled."+order.OrderNumber, order); err != nil {
		logger.Error().Err(err).Msg("Failed to publish order cancelled event")
	}

	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (entity.Order, error) {
	return s.store.GetOrder(ctx, id)
}

// KitchenOrders is the kitchen display read model: orders with pending
// kitchen work, plus the consumed new-orders watermark.
func (s *OrderService) KitchenOrders(ctx context.Context, actor entity.ActorContext) (KitchenView, error) {
	if err := requireRole(actor, entity.RoleKitchen); err != nil {
		return KitchenView{}, err
	}

	orders, err := s.store.ListByStatus(ctx, entity.OrderPending, entity.OrderPreparing)
	if err != nil {
		return KitchenView{}, err
	}

	view := KitchenView{HasNew: s.hub.ConsumeKitchenFlag(ctx)}
	for _, o := range orders {
		var pending []entity.OrderItem
		for _, it := range o.Items {
			if it.RequiresKitchen && !it.IsConfirmed {
				pending = append(pending, it)
			}
		}
		if len(pending) > 0 {
			o.Items = pending
			view.Orders = append(view.Orders, o)
		}
	}
	return view, nil
}

// PayableOrders lists orders a cashier can collect on.
func (s *OrderService) PayableOrders(ctx context.Context, actor entity.ActorContext) ([]entity.Order, error) {
	if err := requireRole(actor, entity.RoleCashier); err != nil {
		return nil, err
	}
	return s.store.ListByStatus(ctx, entity.OrderReady, entity.OrderServed)
}

func (s *OrderService) ListTables(ctx context.Context) ([]entity.Table, error) {
	return s.tables.ListTables(ctx)
}

// allKitchenConfirmed reports whether no kitchen-required item is still
// waiting for confirmation.
func allKitchenConfirmed(items []entity.OrderItem) bool {
	for _, it := range items {
		if it.RequiresKitchen && !it.IsConfirmed {
			return false
		}
	}
	return true
}
