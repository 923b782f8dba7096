package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, role, device_id, pin_code, is_active_shift, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (entity.User, error) {
	var u entity.User
	var deviceID sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.Role, &deviceID, &u.PinCode,
		&u.IsActiveShift, &u.CreatedAt)
	if deviceID.Valid {
		u.DeviceID = deviceID.String
	}
	return u, err
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.User{}, notFound("user", id)
		}
		return entity.User{}, err
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.User{}, notFound("user", username)
		}
		return entity.User{}, err
	}
	return u, nil
}

// BindDevice writes the binding only if none exists. The NULL guard makes
// the write-once rule hold under concurrent first logins.
func (r *UserRepository) BindDevice(ctx context.Context, userID int, deviceID string) error {
	query := `UPDATE users SET device_id = ? WHERE id = ? AND device_id IS NULL`

	res, err := r.db.ExecContext(ctx, query, deviceID, userID)
	if err != nil {
		return translateErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("user %d already bound: %w", userID, entity.ErrStateConflict)
	}
	return nil
}

// ResetDevice clears the binding. Resetting an already unbound user is a
// no-op rather than an error.
func (r *UserRepository) ResetDevice(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET device_id = NULL WHERE id = ?`, userID)
	return translateErr(err)
}
