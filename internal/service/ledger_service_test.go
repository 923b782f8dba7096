package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

var adminActor = entity.ActorContext{UserID: 1, Username: "boss", Role: entity.RoleAdmin, DeviceID: "office-1"}

func newLedgerFixture() (*LedgerService, *memStore, *fakeHub, *fakePublisher) {
	store := newMemStore()
	hub := newFakeHub()
	events := &fakePublisher{}
	audit := NewAuditService(store)
	ledger := NewLedgerService(store, audit, events, hub)
	return ledger, store, hub, events
}

func TestRecordMovementJournalsDelta(t *testing.T) {
	ledger, store, _, _ := newLedgerFixture()
	store.addProduct(entity.Product{ID: 1, Name: "Beer", SKU: "BER-01", StockQuantity: dec("10"), MinStockLevel: dec("2"), IsActive: true, IsAvailable: true})

	mv, err := ledger.RecordMovement(context.Background(), adminActor, 1, entity.MovementPurchase, dec("5"), "PO-17", "restock")
	require.NoError(t, err)
	require.True(t, mv.PreviousQuantity.Equal(dec("10")))
	require.True(t, mv.NewQuantity.Equal(dec("15")))
	require.True(t, mv.NewQuantity.Equal(mv.PreviousQuantity.Add(mv.Quantity)))

	p, err := store.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, p.StockQuantity.Equal(dec("15")))

	require.Equal(t, 1, store.auditCount(entity.ActionStockAdjust))
}

func TestRecordMovementValidation(t *testing.T) {
	ledger, store, _, _ := newLedgerFixture()
	store.addProduct(entity.Product{ID: 1, StockQuantity: dec("10"), IsActive: true})

	_, err := ledger.RecordMovement(context.Background(), adminActor, 1, "teleport", dec("1"), "", "")
	require.ErrorIs(t, err, entity.ErrValidation)

	_, err = ledger.RecordMovement(context.Background(), adminActor, 1, entity.MovementPurchase, decimal.Zero, "", "")
	require.ErrorIs(t, err, entity.ErrValidation)

	waiter := entity.ActorContext{UserID: 2, Role: entity.RoleWaiter}
	_, err = ledger.RecordMovement(context.Background(), waiter, 1, entity.MovementPurchase, dec("1"), "", "")
	require.ErrorIs(t, err, entity.ErrAccessDenied)
}

// Concurrent movements on one product must serialize: every journal row's
// previous+delta equals its new quantity, the rows chain without overlap,
// and the final stock is the initial plus the sum of all deltas.
func TestRecordMovementConcurrent(t *testing.T) {
	ledger, store, _, _ := newLedgerFixture()
	store.addProduct(entity.Product{ID: 1, Name: "Rice", SKU: "RIC-01", StockQuantity: dec("100"), IsActive: true, IsAvailable: true})

	const n = 50
	errs := make(chan error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		delta := dec("1")
		if i%2 == 0 {
			delta = dec("-1")
		}
		go func(d decimal.Decimal) {
			defer wg.Done()
			_, err := ledger.RecordMovement(context.Background(), adminActor, 1, entity.MovementAdjustment, d, "count", "")
			errs <- err
		}(delta)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	movements, err := store.ListMovements(context.Background(), 1, n)
	require.NoError(t, err)
	require.Len(t, movements, n)

	total := decimal.Zero
	for _, mv := range movements {
		require.True(t, mv.NewQuantity.Equal(mv.PreviousQuantity.Add(mv.Quantity)))
		total = total.Add(mv.Quantity)
	}

	p, err := store.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, p.StockQuantity.Equal(dec("100").Add(total)))
}

// Selling below zero is permitted; the ledger records the negative balance
// and raises an out-of-stock alert instead of blocking the sale.
func TestOversellGoesNegativeAndAlerts(t *testing.T) {
	ledger, store, _, events := newLedgerFixture()
	store.addProduct(entity.Product{ID: 7, Name: "Cola", SKU: "COL-01", StockQuantity: dec("3"), MinStockLevel: dec("5"), IsActive: true, IsAvailable: true})

	mv, err := ledger.RecordMovement(context.Background(), adminActor, 7, entity.MovementSale, dec("-5"), "ORD-X", "")
	require.NoError(t, err)
	require.True(t, mv.NewQuantity.Equal(dec("-2")))

	p, _ := store.GetProduct(context.Background(), 7)
	require.True(t, p.StockQuantity.Equal(dec("-2")))
	require.True(t, events.hasPrefix("stock.out.COL-01"))
}

func TestLowStockAlertDeduplicated(t *testing.T) {
	ledger, store, hub, events := newLedgerFixture()
	hub.dedupeAlerts = true
	store.addProduct(entity.Product{ID: 3, Name: "Gin", SKU: "GIN-01", StockQuantity: dec("6"), MinStockLevel: dec("5"), IsActive: true, IsAvailable: true})

	_, err := ledger.RecordMovement(context.Background(), adminActor, 3, entity.MovementSale, dec("-1"), "", "")
	require.NoError(t, err)
	_, err = ledger.RecordMovement(context.Background(), adminActor, 3, entity.MovementSale, dec("-1"), "", "")
	require.NoError(t, err)

	require.True(t, events.hasPrefix("stock.low.GIN-01"))
	count := 0
	for _, k := range events.keys {
		if k == "stock.low.GIN-01" {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestAdjustStockComputesDelta(t *testing.T) {
	ledger, store, _, _ := newLedgerFixture()
	store.addProduct(entity.Product{ID: 2, Name: "Whisky", SKU: "WHI-01", StockQuantity: dec("12"), IsActive: true, IsAvailable: true})

	mv, err := ledger.AdjustStock(context.Background(), adminActor, 2, dec("9"), "stocktake", "3 bottles broken")
	require.NoError(t, err)
	require.Equal(t, entity.MovementAdjustment, mv.MovementType)
	require.True(t, mv.Quantity.Equal(dec("-3")))
	require.True(t, mv.NewQuantity.Equal(dec("9")))

	_, err = ledger.AdjustStock(context.Background(), adminActor, 2, dec("9"), "stocktake", "")
	require.ErrorIs(t, err, entity.ErrValidation)
}

func TestChangePrice(t *testing.T) {
	ledger, store, _, events := newLedgerFixture()
	store.addProduct(entity.Product{ID: 4, Name: "Mojito", SKU: "MOJ-01", CurrentPrice: dec("3000"), IsActive: true})

	err := ledger.ChangePrice(context.Background(), adminActor, 4, dec("3500"))
	require.NoError(t, err)

	p, _ := store.GetProduct(context.Background(), 4)
	require.True(t, p.CurrentPrice.Equal(dec("3500")))
	require.True(t, events.hasPrefix("product.price_changed.4"))
	require.Equal(t, 1, store.auditCount(entity.ActionPriceChange))

	// Same price again is a no-op, not a new audit entry.
	require.NoError(t, ledger.ChangePrice(context.Background(), adminActor, 4, dec("3500")))
	require.Equal(t, 1, store.auditCount(entity.ActionPriceChange))

	err = ledger.ChangePrice(context.Background(), adminActor, 4, dec("-1"))
	require.ErrorIs(t, err, entity.ErrValidation)

	cashier := entity.ActorContext{UserID: 5, Role: entity.RoleCashier}
	err = ledger.ChangePrice(context.Background(), cashier, 4, dec("4000"))
	require.ErrorIs(t, err, entity.ErrAccessDenied)
}

// A movement computed against stale stock must not commit.
func TestApplyMovementGuardsPreviousQuantity(t *testing.T) {
	store := newMemStore()
	store.addProduct(entity.Product{ID: 1, StockQuantity: dec("10")})

	stale := entity.StockMovement{ProductID: 1, Quantity: dec("-1"), PreviousQuantity: dec("8"), NewQuantity: dec("7")}
	err := store.ApplyMovement(context.Background(), stale)
	require.True(t, errors.Is(err, entity.ErrStateConflict))
}
