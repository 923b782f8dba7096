package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

func TestShiftReconciliation(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	shift, err := f.shifts.StartShift(ctx, cashierActor, dec("5000"))
	require.NoError(t, err)
	require.True(t, shift.OpeningCash.Equal(dec("5000")))

	// Collect 2500 in cash during the shift.
	order := f.openOrder(t, nil)
	_, err = f.payments.ProcessPayment(ctx, cashierActor, order.ID, dec("2500"), entity.PaymentCash, "")
	require.NoError(t, err)

	// Drawer counts exactly: no warning.
	summary, err := f.shifts.EndShift(ctx, cashierActor, dec("7500"))
	require.NoError(t, err)
	require.True(t, summary.CashCollected.Equal(dec("2500")))
	require.True(t, summary.ExpectedCash.Equal(dec("7500")))
	require.True(t, summary.Variance.IsZero())
	require.False(t, summary.VarianceWarning)
	require.NotNil(t, summary.Shift.EndedAt)
}

func TestShiftVarianceWarningNotFailure(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	_, err := f.shifts.StartShift(ctx, cashierActor, dec("5000"))
	require.NoError(t, err)

	// Threshold is 1000; a 2000 shortfall flags but still closes.
	summary, err := f.shifts.EndShift(ctx, cashierActor, dec("3000"))
	require.NoError(t, err)
	require.True(t, summary.Variance.Equal(dec("-2000")))
	require.True(t, summary.VarianceWarning)
}

func TestMobileMoneyExcludedFromCashReconciliation(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	_, err := f.shifts.StartShift(ctx, cashierActor, dec("1000"))
	require.NoError(t, err)

	order := f.openOrder(t, nil)
	_, err = f.payments.ProcessPayment(ctx, cashierActor, order.ID, dec("2500"), entity.PaymentMobileMoney, "MM-1")
	require.NoError(t, err)

	summary, err := f.shifts.EndShift(ctx, cashierActor, dec("1000"))
	require.NoError(t, err)
	require.True(t, summary.CashCollected.IsZero())
	require.True(t, summary.Variance.IsZero())
}

func TestSecondOpenShiftRefused(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	_, err := f.shifts.StartShift(ctx, cashierActor, dec("1000"))
	require.NoError(t, err)

	_, err = f.shifts.StartShift(ctx, cashierActor, dec("2000"))
	require.ErrorIs(t, err, entity.ErrStateConflict)
}

func TestConcurrentStartShiftExactlyOneWins(t *testing.T) {
	f := newPaymentFixture()

	const n = 10
	errs := make(chan error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := f.shifts.StartShift(context.Background(), cashierActor, dec("1000"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won, conflicted int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, entity.ErrStateConflict):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, won)
	require.Equal(t, n-1, conflicted)
}

func TestEndShiftWithoutOpenRefused(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.shifts.EndShift(context.Background(), cashierActor, dec("1000"))
	require.ErrorIs(t, err, entity.ErrStateConflict)
}

func TestShiftValidation(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	_, err := f.shifts.StartShift(ctx, cashierActor, dec("-1"))
	require.ErrorIs(t, err, entity.ErrValidation)

	_, err = f.shifts.StartShift(ctx, waiterActor, dec("1000"))
	require.ErrorIs(t, err, entity.ErrAccessDenied)
}
