package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

// ShiftStore persists cashier shifts. StartShift must refuse a second open
// shift for the same user atomically (one open shift per user, always).
type ShiftStore interface {
	StartShift(ctx context.Context, shift entity.Shift) (entity.Shift, error)
	EndShift(ctx context.Context, shiftID int, closingCash decimal.Decimal, endedAt time.Time) error
	GetOpenShift(ctx context.Context, userID int) (entity.Shift, bool, error)
}

// ShiftService handles cash-drawer accountability per cashier session.
type ShiftService struct {
	store             ShiftStore
	payments          PaymentStore
	audit             Recorder
	varianceThreshold decimal.Decimal
	locks             *LockTable
}

func NewShiftService(store ShiftStore, payments PaymentStore, audit Recorder, varianceThreshold decimal.Decimal) *ShiftService {
	return &ShiftService{
		store:             store,
		payments:          payments,
		audit:             audit,
		varianceThreshold: varianceThreshold,
		locks:             NewLockTable(),
	}
}

// StartShift opens a shift with the counted opening cash. A user can hold
// at most one open shift; a duplicate attempt is a state conflict.
func (s *ShiftService) StartShift(ctx context.Context, actor entity.ActorContext, openingCash decimal.Decimal) (entity.Shift, error) {
	if err := requireRole(actor, entity.RoleCashier); err != nil {
		return entity.Shift{}, err
	}
	if openingCash.IsNegative() {
		return entity.Shift{}, fmt.Errorf("opening cash cannot be negative: %w", entity.ErrValidation)
	}

	unlock := s.locks.Lock("shift:" + strconv.Itoa(actor.UserID))
	defer unlock()

	if _, open, err := s.store.GetOpenShift(ctx, actor.UserID); err != nil {
		return entity.Shift{}, err
	} else if open {
		return entity.Shift{}, fmt.Errorf("user %s already has an open shift: %w", actor.Username, entity.ErrStateConflict)
	}

	shift, err := s.store.StartShift(ctx, entity.Shift{
		UserID:      actor.UserID,
		DeviceID:    actor.DeviceID,
		OpeningCash: openingCash,
		StartedAt:   time.Now().UTC(),
	})
	if err != nil {
		return entity.Shift{}, err
	}

	s.audit.Record(ctx, actor, entity.ActionUserAction,
		fmt.Sprintf("Shift started with opening cash %s", openingCash),
		map[string]interface{}{"shift_id": shift.ID, "opening_cash": openingCash.String()})

	return shift, nil
}

// EndShift closes the open shift and reconciles the drawer: expected cash
// is the opening float plus every cash payment this user processed since
// the shift started. A variance beyond the threshold is flagged, never
// refused — the count stands, management follows up.
func (s *ShiftService) EndShift(ctx context.Context, actor entity.ActorContext, closingCash decimal.Decimal) (entity.ShiftSummary, error) {
	if err := requireRole(actor, entity.RoleCashier); err != nil {
		return entity.ShiftSummary{}, err
	}
	if closingCash.IsNegative() {
		return entity.ShiftSummary{}, fmt.Errorf("closing cash cannot be negative: %w", entity.ErrValidation)
	}

	unlock := s.locks.Lock("shift:" + strconv.Itoa(actor.UserID))
	defer unlock()

	shift, open, err := s.store.GetOpenShift(ctx, actor.UserID)
	if err != nil {
		return entity.ShiftSummary{}, err
	}
	if !open {
		return entity.ShiftSummary{}, fmt.Errorf("no open shift for %s: %w", actor.Username, entity.ErrStateConflict)
	}

	cash, err := s.payments.SumCashByUserSince(ctx, actor.UserID, shift.StartedAt)
	if err != nil {
		return entity.ShiftSummary{}, err
	}

	now := time.Now().UTC()
	if err := s.store.EndShift(ctx, shift.ID, closingCash, now); err != nil {
		return entity.ShiftSummary{}, err
	}

	expected := shift.OpeningCash.Add(cash)
	variance := closingCash.Sub(expected)

	shift.ClosingCash = &closingCash
	shift.EndedAt = &now
	summary := entity.ShiftSummary{
		Shift:           shift,
		CashCollected:   cash,
		ExpectedCash:    expected,
		Variance:        variance,
		VarianceWarning: variance.Abs().GreaterThan(s.varianceThreshold),
	}

	if summary.VarianceWarning {
		logger.Warn().
			Int("shift_id", shift.ID).
			Str("variance", variance.String()).
			Msg("Cash variance above threshold")
	}

	s.audit.Record(ctx, actor, entity.ActionUserAction,
		fmt.Sprintf("Shift ended, closing cash %s, variance %s", closingCash, variance),
		map[string]interface{}{
			"shift_id":         shift.ID,
			"opening_cash":     shift.OpeningCash.String(),
			"closing_cash":     closingCash.String(),
			"expected_cash":    expected.String(),
			"variance":         variance.String(),
			"variance_warning": summary.VarianceWarning,
		})

	return summary, nil
}
