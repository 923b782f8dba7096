package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

// nextNumber allocates the next per-day sequence for a scope ("order" or
// "payment") inside the caller's transaction and returns the formatted
// number. LAST_INSERT_ID carries the incremented value back on the same
// connection, so the read needs no second round trip. Allocating inside
// the creating transaction keeps numbers in commit order; a rollback after
// allocation leaves a gap, which is accepted.
func nextNumber(ctx context.Context, tx *sql.Tx, scope, prefix string, day time.Time) (string, error) {
	query := `
		INSERT INTO daily_sequences (scope, day, seq)
		VALUES (?, ?, LAST_INSERT_ID(1))
		ON DUPLICATE KEY UPDATE seq = LAST_INSERT_ID(seq + 1)`

	res, err := tx.ExecContext(ctx, query, scope, day.UTC().Format("2006-01-02"))
	if err != nil {
		return "", translateErr(err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return "", err
	}

	return entity.FormatNumber(prefix, day, seq), nil
}
