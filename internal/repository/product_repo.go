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

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, sku, description, current_price, stock_quantity,
	min_stock_level, is_available, is_active, requires_kitchen, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Description, &p.CurrentPrice,
		&p.StockQuantity, &p.MinStockLevel, &p.IsAvailable, &p.IsActive,
		&p.RequiresKitchen, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *ProductRepository) GetProduct(ctx context.Context, id int) (entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Product{}, notFound("product", id)
		}
		return entity.Product{}, err
	}
	return p, nil
}

func (r *ProductRepository) ListProducts(ctx context.Context) ([]entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_active = 1 ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *ProductRepository) ListMovements(ctx context.Context, productID int, limit int) ([]entity.StockMovement, error) {
	query := `
		SELECT id, product_id, movement_type, quantity, previous_quantity,
		       new_quantity, reference, notes, created_by, created_at
		FROM stock_movements
		WHERE product_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		err := rows.Scan(&m.ID, &m.ProductID, &m.MovementType, &m.Quantity,
			&m.PreviousQuantity, &m.NewQuantity, &m.Reference, &m.Notes,
			&m.CreatedBy, &m.CreatedAt)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// ApplyMovement appends a ledger row and moves the product quantity in one
// transaction. The stock update is guarded on the movement's recorded
// previous quantity, so a row computed against stale stock cannot commit.
func (r *ProductRepository) ApplyMovement(ctx context.Context, m entity.StockMovement) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyMovementTx(ctx, tx, m); err != nil {
		return err
	}
	return tx.Commit()
}

// applyMovementTx is shared with the order repository, whose item writes
// carry a movement inside their own transaction.
func applyMovementTx(ctx context.Context, tx *sql.Tx, m entity.StockMovement) error {
	insert := `
		INSERT INTO stock_movements (id, product_id, movement_type, quantity,
			previous_quantity, new_quantity, reference, notes, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := tx.ExecContext(ctx, insert, m.ID, m.ProductID, m.MovementType,
		m.Quantity, m.PreviousQuantity, m.NewQuantity, m.Reference, m.Notes,
		m.CreatedBy, m.CreatedAt)
	if err != nil {
		return translateErr(err)
	}

	update := `
		UPDATE products SET stock_quantity = ?, updated_at = ?
		WHERE id = ? AND stock_quantity = ?`

	res, err := tx.ExecContext(ctx, update, m.NewQuantity, m.CreatedAt, m.ProductID, m.PreviousQuantity)
	if err != nil {
		return translateErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("stock for product %d changed since movement was computed: %w",
			m.ProductID, entity.ErrStateConflict)
	}
	return nil
}

func (r *ProductRepository) UpdatePrice(ctx context.Context, productID int, newPrice decimal.Decimal) error {
	query := `UPDATE products SET current_price = ?, updated_at = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, newPrice, time.Now(), productID)
	if err != nil {
		return translateErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound("product", productID)
	}
	return nil
}
