package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
	"github.com/kingsleycodes247/poshlounge/internal/service"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, payment_number, order_id, amount, payment_method,
	transaction_reference, processed_by, device_id, receipt_printed,
	receipt_printed_at, processed_at`

func scanPayment(row interface{ Scan(...interface{}) error }) (entity.Payment, error) {
	var p entity.Payment
	err := row.Scan(&p.ID, &p.PaymentNumber, &p.OrderID, &p.Amount, &p.Method,
		&p.TransactionReference, &p.ProcessedBy, &p.DeviceID,
		&p.ReceiptPrinted, &p.ReceiptPrintedAt, &p.ProcessedAt)
	return p, err
}

// CreatePayment allocates the day's payment number, inserts the payment
// and, when it settles the order, completes the order and frees its table.
// One transaction covers all three writes.
func (r *PaymentRepository) CreatePayment(ctx context.Context, cmd service.PaymentCmd) (entity.Payment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return entity.Payment{}, err
	}
	defer tx.Rollback()

	p := cmd.Payment
	p.PaymentNumber, err = nextNumber(ctx, tx, "payment", entity.PaymentNumberPrefix, p.ProcessedAt)
	if err != nil {
		return entity.Payment{}, err
	}

	insert := `
		INSERT INTO payments (id, payment_number, order_id, amount, payment_method,
			transaction_reference, processed_by, device_id, receipt_printed, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`

	_, err = tx.ExecContext(ctx, insert, p.ID, p.PaymentNumber, p.OrderID, p.Amount,
		p.Method, p.TransactionReference, p.ProcessedBy, p.DeviceID, p.ProcessedAt)
	if err != nil {
		return entity.Payment{}, translateErr(err)
	}

	if cmd.CompletesOrder {
		update := `UPDATE orders SET status = 'completed', completed_at = ?, updated_at = ?
			WHERE id = ? AND status NOT IN ('completed', 'cancelled')`

		res, err := tx.ExecContext(ctx, update, cmd.CompletedAt, cmd.CompletedAt, p.OrderID)
		if err != nil {
			return entity.Payment{}, translateErr(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return entity.Payment{}, err
		}
		if affected == 0 {
			return entity.Payment{}, notFound("open order", p.OrderID)
		}

		if cmd.FreeTableID != nil {
			if err := setTableOccupied(ctx, tx, *cmd.FreeTableID, false); err != nil {
				return entity.Payment{}, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return entity.Payment{}, err
	}
	return p, nil
}

func (r *PaymentRepository) GetPayment(ctx context.Context, id uuid.UUID) (entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`

	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Payment{}, notFound("payment", id)
		}
		return entity.Payment{}, err
	}
	return p, nil
}

func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE order_id = ? ORDER BY processed_at`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []entity.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *PaymentRepository) SumByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = ?`, orderID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (r *PaymentRepository) SumCashByUserSince(ctx context.Context, userID int, since time.Time) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments
		WHERE processed_by = ? AND payment_method = 'cash' AND processed_at >= ?`

	var sum decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, userID, since).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// MarkReceiptPrinted sets the one pair of payment fields the schema permits
// to change after creation.
func (r *PaymentRepository) MarkReceiptPrinted(ctx context.Context, paymentID uuid.UUID, at time.Time) error {
	query := `UPDATE payments SET receipt_printed = 1, receipt_printed_at = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, at, paymentID)
	if err != nil {
		return translateErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound("payment", paymentID)
	}
	return nil
}
