package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

// memStore is an in-memory stand-in for the MySQL repositories. It mirrors
// their semantics: command structs apply atomically under one mutex, stock
// updates are guarded on the movement's previous quantity, and numbers
// come from a per-day sequence.
type memStore struct {
	mu        sync.Mutex
	products  map[int]entity.Product
	movements []entity.StockMovement
	orders    map[uuid.UUID]*entity.Order
	payments  map[uuid.UUID]entity.Payment
	shifts    map[int]*entity.Shift
	users     map[int]*entity.User
	tables    map[int]*entity.Table
	audits    []entity.AuditLog
	seq       map[string]int64
	nextShift int

	failAuditInsert bool
	onSumByOrder    func() // runs before SumByOrder takes the store mutex
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[int]entity.Product),
		orders:    make(map[uuid.UUID]*entity.Order),
		payments:  make(map[uuid.UUID]entity.Payment),
		shifts:    make(map[int]*entity.Shift),
		users:     make(map[int]*entity.User),
		tables:    make(map[int]*entity.Table),
		seq:       make(map[string]int64),
		nextShift: 1,
	}
}

func (m *memStore) addProduct(p entity.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *memStore) addTable(t entity.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := t
	m.tables[t.ID] = &cp
}

func (m *memStore) addUser(u entity.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := u
	m.users[u.ID] = &cp
}

func (m *memStore) nextNumberLocked(scope, prefix string, day time.Time) string {
	key := scope + ":" + day.UTC().Format("20060102")
	m.seq[key]++
	return entity.FormatNumber(prefix, day, m.seq[key])
}

// --- LedgerStore ---

func (m *memStore) GetProduct(ctx context.Context, id int) (entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return entity.Product{}, fmt.Errorf("product %d: %w", id, entity.ErrNotFound)
	}
	return p, nil
}

func (m *memStore) ListProducts(ctx context.Context) ([]entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Product
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) ListMovements(ctx context.Context, productID int, limit int) ([]entity.StockMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.StockMovement
	for i := len(m.movements) - 1; i >= 0 && len(out) < limit; i-- {
		if m.movements[i].ProductID == productID {
			out = append(out, m.movements[i])
		}
	}
	return out, nil
}

func (m *memStore) ApplyMovement(ctx context.Context, mv entity.StockMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyMovementLocked(mv)
}

func (m *memStore) applyMovementLocked(mv entity.StockMovement) error {
	p, ok := m.products[mv.ProductID]
	if !ok {
		return fmt.Errorf("product %d: %w", mv.ProductID, entity.ErrNotFound)
	}
	if !p.StockQuantity.Equal(mv.PreviousQuantity) {
		return fmt.Errorf("stock for product %d changed since movement was computed: %w",
			mv.ProductID, entity.ErrStateConflict)
	}
	p.StockQuantity = mv.NewQuantity
	m.products[mv.ProductID] = p
	m.movements = append(m.movements, mv)
	return nil
}

func (m *memStore) UpdatePrice(ctx context.Context, productID int, newPrice decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return fmt.Errorf("product %d: %w", productID, entity.ErrNotFound)
	}
	p.CurrentPrice = newPrice
	m.products[productID] = p
	return nil
}

// --- OrderStore ---

func (m *memStore) CreateOrder(ctx context.Context, o entity.Order) (entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// The sequence day and the stored timestamps come from the caller,
	// exactly as the SQL store takes them.
	o.OrderNumber = m.nextNumberLocked("order", entity.OrderNumberPrefix, o.CreatedAt)
	if o.TableID != nil {
		if t, ok := m.tables[*o.TableID]; ok {
			t.IsOccupied = true
		}
	}
	cp := o
	m.orders[o.ID] = &cp
	return o, nil
}

func (m *memStore) GetOrder(ctx context.Context, id uuid.UUID) (entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return entity.Order{}, fmt.Errorf("order %s: %w", id, entity.ErrNotFound)
	}
	return cloneOrder(o), nil
}

func (m *memStore) GetOrderByItem(ctx context.Context, itemID uuid.UUID) (entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		for _, it := range o.Items {
			if it.ID == itemID {
				return cloneOrder(o), nil
			}
		}
	}
	return entity.Order{}, fmt.Errorf("order item %s: %w", itemID, entity.ErrNotFound)
}

func (m *memStore) FindActiveOrderByTable(ctx context.Context, tableID int) (entity.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.TableID != nil && *o.TableID == tableID && !o.Status.Terminal() {
			return cloneOrder(o), true, nil
		}
	}
	return entity.Order{}, false, nil
}

func (m *memStore) AddItem(ctx context.Context, cmd AddItemCmd) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[cmd.Order.ID]
	if !ok {
		return fmt.Errorf("order %s: %w", cmd.Order.ID, entity.ErrNotFound)
	}
	if err := m.applyMovementLocked(cmd.Movement); err != nil {
		return err
	}
	o.Items = append(o.Items, cmd.Item)
	o.Subtotal = cmd.Order.Subtotal
	o.TaxAmount = cmd.Order.TaxAmount
	o.TotalAmount = cmd.Order.TotalAmount
	o.Status = cmd.Order.Status
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) RemoveItem(ctx context.Context, cmd RemoveItemCmd) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[cmd.Order.ID]
	if !ok {
		return fmt.Errorf("order %s: %w", cmd.Order.ID, entity.ErrNotFound)
	}
	kept := o.Items[:0]
	removed := false
	for _, it := range o.Items {
		if it.ID == cmd.ItemID && !it.IsConfirmed {
			removed = true
			continue
		}
		kept = append(kept, it)
	}
	if !removed {
		return fmt.Errorf("item %s is confirmed or gone: %w", cmd.ItemID, entity.ErrStateConflict)
	}
	if err := m.applyMovementLocked(cmd.Movement); err != nil {
		return err
	}
	o.Items = kept
	o.Subtotal = cmd.Order.Subtotal
	o.TaxAmount = cmd.Order.TaxAmount
	o.TotalAmount = cmd.Order.TotalAmount
	o.Status = cmd.Order.Status
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) ConfirmItem(ctx context.Context, cmd ConfirmItemCmd) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[cmd.OrderID]
	if !ok {
		return fmt.Errorf("order %s: %w", cmd.OrderID, entity.ErrNotFound)
	}
	for i := range o.Items {
		if o.Items[i].ID == cmd.ItemID {
			at := cmd.ConfirmedAt
			o.Items[i].IsConfirmed = true
			o.Items[i].ConfirmedAt = &at
		}
	}
	if cmd.NewStatus != "" {
		o.Status = cmd.NewStatus
	}
	return nil
}

func (m *memStore) CancelOrder(ctx context.Context, cmd CancelOrderCmd) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[cmd.OrderID]
	if !ok {
		return fmt.Errorf("order %s: %w", cmd.OrderID, entity.ErrNotFound)
	}
	if o.Status.Terminal() {
		return fmt.Errorf("order %s already terminal: %w", cmd.OrderID, entity.ErrStateConflict)
	}
	for _, mv := range cmd.Movements {
		if err := m.applyMovementLocked(mv); err != nil {
			return err
		}
	}
	o.Status = entity.OrderCancelled
	if cmd.FreeTableID != nil {
		if t, ok := m.tables[*cmd.FreeTableID]; ok {
			t.IsOccupied = false
		}
	}
	return nil
}

func (m *memStore) SetStatus(ctx context.Context, orderID uuid.UUID, status entity.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, entity.ErrNotFound)
	}
	o.Status = status
	return nil
}

func (m *memStore) ListByStatus(ctx context.Context, statuses ...entity.OrderStatus) ([]entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Order
	for _, o := range m.orders {
		for _, s := range statuses {
			if o.Status == s {
				out = append(out, cloneOrder(o))
				break
			}
		}
	}
	return out, nil
}

func cloneOrder(o *entity.Order) entity.Order {
	cp := *o
	cp.Items = append([]entity.OrderItem(nil), o.Items...)
	return cp
}

// --- TableStore ---

func (m *memStore) GetTable(ctx context.Context, id int) (entity.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok {
		return entity.Table{}, fmt.Errorf("table %d: %w", id, entity.ErrNotFound)
	}
	return *t, nil
}

func (m *memStore) ListTables(ctx context.Context) ([]entity.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Table
	for _, t := range m.tables {
		out = append(out, *t)
	}
	return out, nil
}

// --- PaymentStore ---

func (m *memStore) CreatePayment(ctx context.Context, cmd PaymentCmd) (entity.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := cmd.Payment
	p.PaymentNumber = m.nextNumberLocked("payment", entity.PaymentNumberPrefix, p.ProcessedAt)
	m.payments[p.ID] = p
	if cmd.CompletesOrder {
		o, ok := m.orders[p.OrderID]
		if !ok || o.Status.Terminal() {
			return entity.Payment{}, fmt.Errorf("open order %s: %w", p.OrderID, entity.ErrNotFound)
		}
		at := cmd.CompletedAt
		o.Status = entity.OrderCompleted
		o.CompletedAt = &at
		if cmd.FreeTableID != nil {
			if t, ok := m.tables[*cmd.FreeTableID]; ok {
				t.IsOccupied = false
			}
		}
	}
	return p, nil
}

func (m *memStore) GetPayment(ctx context.Context, id uuid.UUID) (entity.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return entity.Payment{}, fmt.Errorf("payment %s: %w", id, entity.ErrNotFound)
	}
	return p, nil
}

func (m *memStore) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]entity.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Payment
	for _, p := range m.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) SumByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	if m.onSumByOrder != nil {
		m.onSumByOrder()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.OrderID == orderID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (m *memStore) SumCashByUserSince(ctx context.Context, userID int, since time.Time) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.ProcessedBy == userID && p.Method == entity.PaymentCash && !p.ProcessedAt.Before(since) {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (m *memStore) MarkReceiptPrinted(ctx context.Context, paymentID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return fmt.Errorf("payment %s: %w", paymentID, entity.ErrNotFound)
	}
	p.ReceiptPrinted = true
	p.ReceiptPrintedAt = &at
	m.payments[paymentID] = p
	return nil
}

// --- ShiftStore ---

func (m *memStore) StartShift(ctx context.Context, shift entity.Shift) (entity.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shifts {
		if s.UserID == shift.UserID && s.EndedAt == nil {
			return entity.Shift{}, fmt.Errorf("user %d already has an open shift: %w",
				shift.UserID, entity.ErrStateConflict)
		}
	}
	shift.ID = m.nextShift
	m.nextShift++
	cp := shift
	m.shifts[shift.ID] = &cp
	return shift, nil
}

func (m *memStore) EndShift(ctx context.Context, shiftID int, closingCash decimal.Decimal, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[shiftID]
	if !ok || s.EndedAt != nil {
		return fmt.Errorf("shift %d already closed: %w", shiftID, entity.ErrStateConflict)
	}
	s.ClosingCash = &closingCash
	at := endedAt
	s.EndedAt = &at
	return nil
}

func (m *memStore) GetOpenShift(ctx context.Context, userID int) (entity.Shift, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shifts {
		if s.UserID == userID && s.EndedAt == nil {
			return *s, true, nil
		}
	}
	return entity.Shift{}, false, nil
}

// --- UserStore ---

func (m *memStore) GetByID(ctx context.Context, id int) (entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return entity.User{}, fmt.Errorf("user %d: %w", id, entity.ErrNotFound)
	}
	return *u, nil
}

func (m *memStore) GetByUsername(ctx context.Context, username string) (entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return *u, nil
		}
	}
	return entity.User{}, fmt.Errorf("user %s: %w", username, entity.ErrNotFound)
}

func (m *memStore) BindDevice(ctx context.Context, userID int, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, entity.ErrNotFound)
	}
	if u.DeviceID != "" {
		return fmt.Errorf("user %d already bound: %w", userID, entity.ErrStateConflict)
	}
	u.DeviceID = deviceID
	return nil
}

func (m *memStore) ResetDevice(ctx context.Context, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, entity.ErrNotFound)
	}
	u.DeviceID = ""
	return nil
}

// --- AuditStore ---

func (m *memStore) Insert(ctx context.Context, log entity.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAuditInsert {
		return fmt.Errorf("audit store down")
	}
	m.audits = append(m.audits, log)
	return nil
}

func (m *memStore) List(ctx context.Context, actionType entity.ActionType, limit int) ([]entity.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.AuditLog
	for i := len(m.audits) - 1; i >= 0 && len(out) < limit; i-- {
		if actionType == "" || m.audits[i].ActionType == actionType {
			out = append(out, m.audits[i])
		}
	}
	return out, nil
}

func (m *memStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.audits[:0]
	var removed int64
	for _, a := range m.audits {
		if a.CreatedAt.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	m.audits = kept
	return removed, nil
}

func (m *memStore) auditCount(action entity.ActionType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.audits {
		if a.ActionType == action {
			n++
		}
	}
	return n
}

// fakeHub records signals instead of talking to Redis.
type fakeHub struct {
	mu           sync.Mutex
	kitchenFlag  bool
	drawerOpens  []string
	lowStockSeen map[int]bool
	sessions     map[string]string
	dedupeAlerts bool
}

func newFakeHub() *fakeHub {
	return &fakeHub{
		lowStockSeen: make(map[int]bool),
		sessions:     make(map[string]string),
	}
}

func (h *fakeHub) KitchenOrdersUpdated(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kitchenFlag = true
}

func (h *fakeHub) ConsumeKitchenFlag(ctx context.Context) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	was := h.kitchenFlag
	h.kitchenFlag = false
	return was
}

func (h *fakeHub) OpenCashDrawer(ctx context.Context, deviceID string, payment entity.Payment) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drawerOpens = append(h.drawerOpens, deviceID)
}

func (h *fakeHub) ShouldAlertLowStock(ctx context.Context, productID int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dedupeAlerts && h.lowStockSeen[productID] {
		return false
	}
	h.lowStockSeen[productID] = true
	return true
}

func (h *fakeHub) StoreSession(ctx context.Context, username, token string, ttl time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[username] = token
	return nil
}

func (h *fakeHub) GetSession(ctx context.Context, username string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	tok, ok := h.sessions[username]
	if !ok {
		return "", fmt.Errorf("session for %s: %w", username, entity.ErrNotFound)
	}
	return tok, nil
}

func (h *fakeHub) DropSession(ctx context.Context, username string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, username)
	return nil
}

// fakePublisher records event keys.
type fakePublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *fakePublisher) Publish(ctx context.Context, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *fakePublisher) hasPrefix(prefix string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range p.keys {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// fakePrinter optionally refuses every job.
type fakePrinter struct {
	mu      sync.Mutex
	fail    bool
	printed []entity.Receipt
}

func (p *fakePrinter) Print(ctx context.Context, receipt entity.Receipt) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("printer offline")
	}
	p.printed = append(p.printed, receipt)
	return nil
}
