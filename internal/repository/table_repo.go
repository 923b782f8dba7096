package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

type TableRepository struct {
	db *sql.DB
}

func NewTableRepository(db *sql.DB) *TableRepository {
	return &TableRepository{db: db}
}

func (r *TableRepository) GetTable(ctx context.Context, id int) (entity.Table, error) {
	query := `SELECT id, table_number, capacity, is_occupied, is_active
		FROM tables WHERE id = ?`

	var t entity.Table
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Number,
		&t.Capacity, &t.IsOccupied, &t.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Table{}, notFound("table", id)
		}
		return entity.Table{}, err
	}
	return t, nil
}

func (r *TableRepository) ListTables(ctx context.Context) ([]entity.Table, error) {
	query := `SELECT id, table_number, capacity, is_occupied, is_active
		FROM tables WHERE is_active = 1 ORDER BY table_number`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []entity.Table
	for rows.Next() {
		var t entity.Table
		err := rows.Scan(&t.ID, &t.Number, &t.Capacity, &t.IsOccupied, &t.IsActive)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}
