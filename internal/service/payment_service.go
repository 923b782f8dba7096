package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

// PaymentCmd carries the full payment transaction: the immutable payment
// row plus the order completion writes when this payment settles the bill.
type PaymentCmd struct {
	Payment        entity.Payment
	CompletesOrder bool
	CompletedAt    time.Time
	FreeTableID    *int
}

// PaymentStore persists payments. There is deliberately no update or
// delete entry point for payment rows; MarkReceiptPrinted touches only the
// receipt pair and is the single post-creation write the schema permits.
type PaymentStore interface {
	CreatePayment(ctx context.Context, cmd PaymentCmd) (entity.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (entity.Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]entity.Payment, error)
	SumByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
	SumCashByUserSince(ctx context.Context, userID int, since time.Time) (decimal.Decimal, error)
	MarkReceiptPrinted(ctx context.Context, paymentID uuid.UUID, at time.Time) error
}

// Printer is the receipt sink collaborator. The byte protocol is its
// problem; the core hands it a structured receipt and reads back an error.
type Printer interface {
	Print(ctx context.Context, receipt entity.Receipt) error
}

// UserStore is shared by the payment, device and shift services.
type UserStore interface {
	GetByID(ctx context.Context, id int) (entity.User, error)
	GetByUsername(ctx context.Context, username string) (entity.User, error)
	BindDevice(ctx context.Context, userID int, deviceID string) error
	ResetDevice(ctx context.Context, userID int) error
}

// ReceiptInfo is the static business header printed on every receipt.
type ReceiptInfo struct {
	BusinessName string
	Address      string
	TaxID        string
}

type PaymentService struct {
	store   PaymentStore
	orders  OrderStore
	tables  TableStore
	users   UserStore
	shifts  ShiftStore
	audit   Recorder
	events  Publisher
	hub     SignalHub
	printer Printer
	info    ReceiptInfo
	locks   *LockTable
}

// NewPaymentService wires payment collection. locks must be shared with
// the order service: ProcessPayment reads the balance and writes the
// payment under "order:<id>", and an item removal or cancellation slipped
// between the two would let the recorded payments exceed the total.
func NewPaymentService(store PaymentStore, orders OrderStore, tables TableStore, users UserStore, shifts ShiftStore, audit Recorder, events Publisher, hub SignalHub, printer Printer, info ReceiptInfo, locks *LockTable) *PaymentService {
	return &PaymentService{
		store:   store,
		orders:  orders,
		tables:  tables,
		users:   users,
		shifts:  shifts,
		audit:   audit,
		events:  events,
		hub:     hub,
		printer: printer,
		info:    info,
		locks:   locks,
	}
}

// ProcessPayment records a payment against an order. An amount above the
// remaining balance is capped to it, never recorded as overpayment — a
// policy, not an error. When the accumulated amount covers the total the
// order completes, the completion time is stamped and the table freed, all
// in the transaction that writes the payment row.
func (s *PaymentService) ProcessPayment(ctx context.Context, actor entity.ActorContext, orderID uuid.UUID, amount decimal.Decimal, method entity.PaymentMethod, reference string) (entity.Payment, error) {
	if err := requireRole(actor, entity.RoleCashier); err != nil {
		return entity.Payment{}, err
	}
	if !amount.IsPositive() {
		return entity.Payment{}, fmt.Errorf("amount must be positive: %w", entity.ErrValidation)
	}
	if !method.Valid() {
		return entity.Payment{}, fmt.Errorf("unknown payment method %q: %w", method, entity.ErrValidation)
	}
	if method.RequiresReference() && reference == "" {
		return entity.Payment{}, fmt.Errorf("transaction reference required for %s: %w", method, entity.ErrValidation)
	}

	if _, ok, err := s.shifts.GetOpenShift(ctx, actor.UserID); err != nil {
		return entity.Payment{}, err
	} else if !ok && actor.Role == entity.RoleCashier {
		return entity.Payment{}, fmt.Errorf("no open shift, start one before collecting payments: %w", entity.ErrStateConflict)
	}

	unlock := s.locks.Lock("order:" + orderID.String())
	defer unlock()

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return entity.Payment{}, err
	}
	if order.Status == entity.OrderCompleted {
		return entity.Payment{}, fmt.Errorf("order %s already paid: %w", order.OrderNumber, entity.ErrStateConflict)
	}
	if order.Status == entity.OrderCancelled {
		return entity.Payment{}, fmt.Errorf("order %s is cancelled: %w", order.OrderNumber, entity.ErrStateConflict)
	}

	paid, err := s.store.SumByOrder(ctx, orderID)
	if err != nil {
		return entity.Payment{}, err
	}
	remaining := order.TotalAmount.Sub(paid)
	if !remaining.IsPositive() {
		return entity.Payment{}, fmt.Errorf("order %s has no outstanding balance: %w", order.OrderNumber, entity.ErrStateConflict)
	}
	if amount.GreaterThan(remaining) {
		logger.Warn().
			Str("order", order.OrderNumber).
			Str("amount", amount.String()).
			Str("remaining", remaining.String()).
			Msg("Payment exceeds remaining balance, capping")
		amount = remaining
	}

	now := time.Now().UTC()
	cmd := PaymentCmd{
		Payment: entity.Payment{
			ID:                   uuid.New(),
			OrderID:              orderID,
			Amount:               amount,
			Method:               method,
			TransactionReference: reference,
			ProcessedBy:          actor.UserID,
			DeviceID:             actor.DeviceID,
			ProcessedAt:          now,
		},
	}
	if paid.Add(amount).GreaterThanOrEqual(order.TotalAmount) {
		cmd.CompletesOrder = true
		cmd.CompletedAt = now
		cmd.FreeTableID = order.TableID
	}

	payment, err := s.store.CreatePayment(ctx, cmd)
	if err != nil {
		logger.Error().Err(err).Str("order", order.OrderNumber).Msg("Failed to create payment")
		return entity.Payment{}, err
	}

	s.audit.Record(ctx, actor, entity.ActionPaymentProcess,
		fmt.Sprintf("Payment %s: %s via %s for order %s", payment.PaymentNumber, amount, method, order.OrderNumber),
		map[string]interface{}{
			"payment_number": payment.PaymentNumber,
			"order_number":   order.OrderNumber,
			"amount":         amount.String(),
			"payment_method": string(method),
			"completed":      cmd.CompletesOrder,
		})

	if method == entity.PaymentCash {
		s.hub.OpenCashDrawer(ctx, actor.DeviceID, payment)
	}

	if cmd.CompletesOrder {
		if err := s.events.Publish(ctx, "order.completed."+order.OrderNumber, order); err != nil {
			logger.Error().Err(err).Msg("Failed to publish order completed event")
		}
	}

	return payment, nil
}

// PrintReceipt builds the structured receipt for a payment and hands it to
// the printer. receipt_printed flips only when the printer reports success.
func (s *PaymentService) PrintReceipt(ctx context.Context, actor entity.ActorContext, paymentID uuid.UUID) (entity.Receipt, error) {
	if err := requireRole(actor, entity.RoleCashier); err != nil {
		return entity.Receipt{}, err
	}

	payment, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return entity.Receipt{}, err
	}
	order, err := s.orders.GetOrder(ctx, payment.OrderID)
	if err != nil {
		return entity.Receipt{}, err
	}

	receipt := entity.Receipt{
		BusinessName:   s.info.BusinessName,
		Address:        s.info.Address,
		TaxID:          s.info.TaxID,
		ReceiptNumber:  payment.PaymentNumber,
		OrderNumber:    order.OrderNumber,
		Date:           payment.ProcessedAt,
		Table:          "Takeout",
		Cashier:        actor.Username,
		Subtotal:       order.Subtotal,
		Tax:            order.TaxAmount,
		Total:          order.TotalAmount,
		PaymentMethod:  payment.Method,
		AmountPaid:     payment.Amount,
		TransactionRef: payment.TransactionReference,
	}
	if order.TableID != nil {
		if table, err := s.tables.GetTable(ctx, *order.TableID); err == nil {
			receipt.Table = table.Number
		}
	}
	// A reprint may run under a different actor; the receipt names the
	// cashier who took the money.
	if cashier, err := s.users.GetByID(ctx, payment.ProcessedBy); err == nil {
		receipt.Cashier = cashier.Username
	}
	if waiter, err := s.users.GetByID(ctx, order.WaiterID); err == nil {
		receipt.Waiter = waiter.Username
	}
	for _, it := range order.Items {
		receipt.Items = append(receipt.Items, entity.ReceiptLine{
			Name:      it.ProductName,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		})
	}

	if err := s.printer.Print(ctx, receipt); err != nil {
		logger.Error().Err(err).Str("payment", payment.PaymentNumber).Msg("Printer rejected receipt")
		return receipt, fmt.Errorf("printing receipt: %w", err)
	}

	if err := s.store.MarkReceiptPrinted(ctx, paymentID, time.Now().UTC()); err != nil {
		logger.Error().Err(err).Str("payment", payment.PaymentNumber).Msg("Failed to mark receipt printed")
	}

	return receipt, nil
}

func (s *PaymentService) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]entity.Payment, error) {
	return s.store.ListByOrder(ctx, orderID)
}
