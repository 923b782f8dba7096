package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

type ShiftRepository struct {
	db *sql.DB
}

func NewShiftRepository(db *sql.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// StartShift opens a shift and flips the user's active flag in one
// transaction. The guarded flag update makes concurrent opens race on a
// single row, so exactly one wins.
func (r *ShiftRepository) StartShift(ctx context.Context, shift entity.Shift) (entity.Shift, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return entity.Shift{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET is_active_shift = 1 WHERE id = ? AND is_active_shift = 0`,
		shift.UserID)
	if err != nil {
		return entity.Shift{}, translateErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return entity.Shift{}, err
	}
	if affected == 0 {
		return entity.Shift{}, fmt.Errorf("user %d already has an open shift: %w",
			shift.UserID, entity.ErrStateConflict)
	}

	insert := `INSERT INTO shifts (user_id, device_id, opening_cash, started_at)
		VALUES (?, ?, ?, ?)`

	ins, err := tx.ExecContext(ctx, insert, shift.UserID, shift.DeviceID,
		shift.OpeningCash, shift.StartedAt)
	if err != nil {
		return entity.Shift{}, translateErr(err)
	}
	id, err := ins.LastInsertId()
	if err != nil {
		return entity.Shift{}, err
	}

	if err := tx.Commit(); err != nil {
		return entity.Shift{}, err
	}
	shift.ID = int(id)
	return shift, nil
}

// EndShift closes the shift and releases the user's active flag.
func (r *ShiftRepository) EndShift(ctx context.Context, shiftID int, closingCash decimal.Decimal, endedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE shifts SET closing_cash = ?, ended_at = ? WHERE id = ? AND ended_at IS NULL`,
		closingCash, endedAt, shiftID)
	if err != nil {
		return translateErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("shift %d already closed: %w", shiftID, entity.ErrStateConflict)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET is_active_shift = 0
		 WHERE id = (SELECT user_id FROM shifts WHERE id = ?)`, shiftID)
	if err != nil {
		return translateErr(err)
	}
	return tx.Commit()
}

func (r *ShiftRepository) GetOpenShift(ctx context.Context, userID int) (entity.Shift, bool, error) {
	query := `SELECT id, user_id, device_id, opening_cash, closing_cash, started_at, ended_at
		FROM shifts WHERE user_id = ? AND ended_at IS NULL
		ORDER BY started_at DESC LIMIT 1`

	var s entity.Shift
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.ID, &s.UserID,
		&s.DeviceID, &s.OpeningCash, &s.ClosingCash, &s.StartedAt, &s.EndedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Shift{}, false, nil
		}
		return entity.Shift{}, false, err
	}
	return s, true, nil
}
