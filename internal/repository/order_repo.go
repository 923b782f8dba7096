package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
	"github.com/kingsleycodes247/poshlounge/internal/service"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, order_number, table_id, waiter_id, status, subtotal,
	tax_amount, total_amount, device_id, created_at, updated_at, completed_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (entity.Order, error) {
	var o entity.Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.TableID, &o.WaiterID, &o.Status,
		&o.Subtotal, &o.TaxAmount, &o.TotalAmount, &o.DeviceID,
		&o.CreatedAt, &o.UpdatedAt, &o.CompletedAt)
	return o, err
}

// CreateOrder allocates the day's next order number, inserts the order and
// marks its table occupied, all in one transaction.
func (r *OrderRepository) CreateOrder(ctx context.Context, o entity.Order) (entity.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return entity.Order{}, err
	}
	defer tx.Rollback()

	o.OrderNumber, err = nextNumber(ctx, tx, "order", entity.OrderNumberPrefix, o.CreatedAt)
	if err != nil {
		return entity.Order{}, err
	}

	insert := `
		INSERT INTO orders (id, order_number, table_id, waiter_id, status, subtotal,
			tax_amount, total_amount, device_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, insert, o.ID, o.OrderNumber, o.TableID, o.WaiterID,
		o.Status, o.Subtotal, o.TaxAmount, o.TotalAmount, o.DeviceID, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return entity.Order{}, translateErr(err)
	}

	if o.TableID != nil {
		if err := setTableOccupied(ctx, tx, *o.TableID, true); err != nil {
			return entity.Order{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return entity.Order{}, err
	}
	return o, nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id uuid.UUID) (entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Order{}, notFound("order", id)
		}
		return entity.Order{}, err
	}

	o.Items, err = r.loadItems(ctx, o.ID)
	if err != nil {
		return entity.Order{}, err
	}
	return o, nil
}

func (r *OrderRepository) GetOrderByItem(ctx context.Context, itemID uuid.UUID) (entity.Order, error) {
	var orderID uuid.UUID
	err := r.db.QueryRowContext(ctx,
		`SELECT order_id FROM order_items WHERE id = ?`, itemID).Scan(&orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Order{}, notFound("order item", itemID)
		}
		return entity.Order{}, err
	}
	return r.GetOrder(ctx, orderID)
}

func (r *OrderRepository) FindActiveOrderByTable(ctx context.Context, tableID int) (entity.Order, bool, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE table_id = ? AND status IN ('pending', 'preparing', 'ready', 'served')
		ORDER BY created_at DESC LIMIT 1`

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, tableID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Order{}, false, nil
		}
		return entity.Order{}, false, err
	}

	o.Items, err = r.loadItems(ctx, o.ID)
	if err != nil {
		return entity.Order{}, false, err
	}
	return o, true, nil
}

// AddItem writes the item, its stock deduction and the recomputed order
// totals as one transaction.
func (r *OrderRepository) AddItem(ctx context.Context, cmd service.AddItemCmd) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO order_items (id, order_id, product_id, product_name, quantity,
			unit_price, subtotal, special_instructions, requires_kitchen,
			is_confirmed, confirmed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	it := cmd.Item
	_, err = tx.ExecContext(ctx, insert, it.ID, it.OrderID, it.ProductID, it.ProductName,
		it.Quantity, it.UnitPrice, it.Subtotal, it.SpecialInstructions,
		it.RequiresKitchen, it.IsConfirmed, it.ConfirmedAt, it.CreatedAt)
	if err != nil {
		return translateErr(err)
	}

	if err := applyMovementTx(ctx, tx, cmd.Movement); err != nil {
		return err
	}
	if err := updateOrderTotals(ctx, tx, cmd.Order); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveItem deletes an unconfirmed item, returns its stock and updates the
// order totals in one transaction. A confirmed item never matches the
// delete guard, so the row count exposes a stale removal.
func (r *OrderRepository) RemoveItem(ctx context.Context, cmd service.RemoveItemCmd) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM order_items WHERE id = ? AND is_confirmed = 0`, cmd.ItemID)
	if err != nil {
		return translateErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("item %s is confirmed or gone: %w", cmd.ItemID, entity.ErrStateConflict)
	}

	if err := applyMovementTx(ctx, tx, cmd.Movement); err != nil {
		return err
	}
	if err := updateOrderTotals(ctx, tx, cmd.Order); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *OrderRepository) ConfirmItem(ctx context.Context, cmd service.ConfirmItemCmd) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	update := `UPDATE order_items SET is_confirmed = 1, confirmed_at = ?
		WHERE id = ? AND is_confirmed = 0`

	res, err := tx.ExecContext(ctx, update, cmd.ConfirmedAt, cmd.ItemID)
	if err != nil {
		return translateErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Already confirmed elsewhere; idempotent.
		return tx.Commit()
	}

	if cmd.NewStatus != "" {
		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
			cmd.NewStatus, cmd.ConfirmedAt, cmd.OrderID)
		if err != nil {
			return translateErr(err)
		}
	}
	return tx.Commit()
}

// CancelOrder flips the status, returns stock for every unconfirmed item
// and frees the table, all in one transaction. The status guard keeps a
// terminal order from being cancelled twice.
func (r *OrderRepository) CancelOrder(ctx context.Context, cmd service.CancelOrderCmd) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	update := `UPDATE orders SET status = 'cancelled', updated_at = ?
		WHERE id = ? AND status NOT IN ('completed', 'cancelled')`

	res, err := tx.ExecContext(ctx, update, time.Now(), cmd.OrderID)
	if err != nil {
		return translateErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("order %s already terminal: %w", cmd.OrderID, entity.ErrStateConflict)
	}

	for _, m := range cmd.Movements {
		if err := applyMovementTx(ctx, tx, m); err != nil {
			return err
		}
	}

	if cmd.FreeTableID != nil {
		if err := setTableOccupied(ctx, tx, *cmd.FreeTableID, false); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *OrderRepository) SetStatus(ctx context.Context, orderID uuid.UUID, status entity.OrderStatus) error {
	query := `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, status, time.Now(), orderID)
	if err != nil {
		return translateErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound("order", orderID)
	}
	return nil
}

func (r *OrderRepository) ListByStatus(ctx context.Context, statuses ...entity.OrderStatus) ([]entity.Order, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE status IN (` + placeholders + `) ORDER BY created_at`

	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		args[i] = s
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i].Items, err = r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID uuid.UUID) ([]entity.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, product_name, quantity, unit_price,
		       subtotal, special_instructions, requires_kitchen, is_confirmed,
		       confirmed_at, created_at
		FROM order_items WHERE order_id = ? ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []entity.OrderItem
	for rows.Next() {
		var it entity.OrderItem
		err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.Subtotal, &it.SpecialInstructions,
			&it.RequiresKitchen, &it.IsConfirmed, &it.ConfirmedAt, &it.CreatedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func updateOrderTotals(ctx context.Context, tx *sql.Tx, o entity.Order) error {
	query := `UPDATE orders SET subtotal = ?, tax_amount = ?, total_amount = ?,
		status = ?, updated_at = ? WHERE id = ?`

	_, err := tx.ExecContext(ctx, query, o.Subtotal, o.TaxAmount, o.TotalAmount,
		o.Status, time.Now(), o.ID)
	return translateErr(err)
}

func setTableOccupied(ctx context.Context, tx *sql.Tx, tableID int, occupied bool) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE tables SET is_occupied = ? WHERE id = ?`, occupied, tableID)
	return translateErr(err)
}
