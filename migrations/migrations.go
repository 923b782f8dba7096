// Package migrations creates the schema on startup. Tables are created
// idempotently; the triggers at the bottom are the structural guard that
// keeps payments, stock movements and audit entries append-only even
// against a rogue SQL session.
package migrations

import (
	"database/sql"
	"strings"
	"time"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(50) NOT NULL UNIQUE,
		role VARCHAR(20) NOT NULL,
		device_id VARCHAR(100) NULL,
		pin_code VARCHAR(20) NOT NULL,
		is_active_shift TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS tables (
		id INT AUTO_INCREMENT PRIMARY KEY,
		table_number VARCHAR(20) NOT NULL UNIQUE,
		capacity INT NOT NULL DEFAULT 4,
		is_occupied TINYINT(1) NOT NULL DEFAULT 0,
		is_active TINYINT(1) NOT NULL DEFAULT 1
	)`,

	`CREATE TABLE IF NOT EXISTS products (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		sku VARCHAR(50) NOT NULL UNIQUE,
		description TEXT,
		current_price DECIMAL(12,2) NOT NULL,
		stock_quantity DECIMAL(12,3) NOT NULL DEFAULT 0,
		min_stock_level DECIMAL(12,3) NOT NULL DEFAULT 0,
		is_available TINYINT(1) NOT NULL DEFAULT 1,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		requires_kitchen TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS stock_movements (
		id CHAR(36) PRIMARY KEY,
		product_id INT NOT NULL,
		movement_type VARCHAR(20) NOT NULL,
		quantity DECIMAL(12,3) NOT NULL,
		previous_quantity DECIMAL(12,3) NOT NULL,
		new_quantity DECIMAL(12,3) NOT NULL,
		reference VARCHAR(100) NOT NULL DEFAULT '',
		notes TEXT,
		created_by INT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_movements_product (product_id, created_at),
		FOREIGN KEY (product_id) REFERENCES products(id)
	)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id CHAR(36) PRIMARY KEY,
		order_number VARCHAR(30) NOT NULL UNIQUE,
		table_id INT NULL,
		waiter_id INT NOT NULL,
		status VARCHAR(20) NOT NULL,
		subtotal DECIMAL(12,2) NOT NULL DEFAULT 0,
		tax_amount DECIMAL(12,2) NOT NULL DEFAULT 0,
		total_amount DECIMAL(12,2) NOT NULL DEFAULT 0,
		device_id VARCHAR(100) NOT NULL DEFAULT '',
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		completed_at DATETIME(6) NULL,
		INDEX idx_orders_status (status),
		INDEX idx_orders_table (table_id, status),
		FOREIGN KEY (table_id) REFERENCES tables(id),
		FOREIGN KEY (waiter_id) REFERENCES users(id)
	)`,

	`CREATE TABLE IF NOT EXISTS order_items (
		id CHAR(36) PRIMARY KEY,
		order_id CHAR(36) NOT NULL,
		product_id INT NOT NULL,
		product_name VARCHAR(100) NOT NULL,
		quantity DECIMAL(12,3) NOT NULL,
		unit_price DECIMAL(12,2) NOT NULL,
		subtotal DECIMAL(12,2) NOT NULL,
		special_instructions TEXT,
		requires_kitchen TINYINT(1) NOT NULL DEFAULT 0,
		is_confirmed TINYINT(1) NOT NULL DEFAULT 0,
		confirmed_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_items_order (order_id),
		FOREIGN KEY (order_id) REFERENCES orders(id),
		FOREIGN KEY (product_id) REFERENCES products(id)
	)`,

	`CREATE TABLE IF NOT EXISTS payments (
		id CHAR(36) PRIMARY KEY,
		payment_number VARCHAR(30) NOT NULL UNIQUE,
		order_id CHAR(36) NOT NULL,
		amount DECIMAL(12,2) NOT NULL,
		payment_method VARCHAR(20) NOT NULL,
		transaction_reference VARCHAR(100) NOT NULL DEFAULT '',
		processed_by INT NOT NULL,
		device_id VARCHAR(100) NOT NULL DEFAULT '',
		receipt_printed TINYINT(1) NOT NULL DEFAULT 0,
		receipt_printed_at DATETIME(6) NULL,
		processed_at DATETIME(6) NOT NULL,
		INDEX idx_payments_order (order_id),
		INDEX idx_payments_cashier (processed_by, payment_method, processed_at),
		FOREIGN KEY (order_id) REFERENCES orders(id),
		FOREIGN KEY (processed_by) REFERENCES users(id)
	)`,

	`CREATE TABLE IF NOT EXISTS shifts (
		id INT AUTO_INCREMENT PRIMARY KEY,
		user_id INT NOT NULL,
		device_id VARCHAR(100) NOT NULL DEFAULT '',
		opening_cash DECIMAL(12,2) NOT NULL,
		closing_cash DECIMAL(12,2) NULL,
		started_at DATETIME(6) NOT NULL,
		ended_at DATETIME(6) NULL,
		INDEX idx_shifts_user (user_id, ended_at),
		FOREIGN KEY (user_id) REFERENCES users(id)
	)`,

	`CREATE TABLE IF NOT EXISTS audit_logs (
		id CHAR(36) PRIMARY KEY,
		user_id INT NOT NULL,
		action_type VARCHAR(30) NOT NULL,
		description TEXT NOT NULL,
		device_id VARCHAR(100) NOT NULL DEFAULT '',
		ip_address VARCHAR(45) NOT NULL DEFAULT '',
		metadata JSON NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_audit_action (action_type, created_at),
		INDEX idx_audit_created (created_at)
	)`,

	`CREATE TABLE IF NOT EXISTS daily_sequences (
		scope VARCHAR(20) NOT NULL,
		day DATE NOT NULL,
		seq BIGINT NOT NULL,
		PRIMARY KEY (scope, day)
	)`,
}

// Payments may only ever change their receipt-printed pair; everything
// else, and every row of the ledger and the audit trail, is frozen at
// insert time.
var triggers = []string{
	`CREATE TRIGGER payments_no_update BEFORE UPDATE ON payments
	FOR EACH ROW
	BEGIN
		IF NEW.amount != OLD.amount
			OR NEW.payment_number != OLD.payment_number
			OR NEW.order_id != OLD.order_id
			OR NEW.payment_method != OLD.payment_method
			OR NEW.transaction_reference != OLD.transaction_reference
			OR NEW.processed_by != OLD.processed_by
			OR NEW.device_id != OLD.device_id
			OR NEW.processed_at != OLD.processed_at
		THEN
			SIGNAL SQLSTATE '45000' SET MESSAGE_TEXT = 'payments are immutable';
		END IF;
	END`,

	`CREATE TRIGGER payments_no_delete BEFORE DELETE ON payments
	FOR EACH ROW
	BEGIN
		SIGNAL SQLSTATE '45000' SET MESSAGE_TEXT = 'payments cannot be deleted';
	END`,

	`CREATE TRIGGER movements_no_update BEFORE UPDATE ON stock_movements
	FOR EACH ROW
	BEGIN
		SIGNAL SQLSTATE '45000' SET MESSAGE_TEXT = 'stock movements are immutable';
	END`,

	`CREATE TRIGGER movements_no_delete BEFORE DELETE ON stock_movements
	FOR EACH ROW
	BEGIN
		SIGNAL SQLSTATE '45000' SET MESSAGE_TEXT = 'stock movements cannot be deleted';
	END`,

	`CREATE TRIGGER audit_no_update BEFORE UPDATE ON audit_logs
	FOR EACH ROW
	BEGIN
		SIGNAL SQLSTATE '45000' SET MESSAGE_TEXT = 'audit logs are immutable';
	END`,
}

// AutoMigrate creates all tables and triggers, retrying transient
// failures (the database may still be warming up at process start).
func AutoMigrate(retries int, db *sql.DB) error {
	for _, query := range tables {
		if err := execWithRetry(db, query, retries); err != nil {
			return err
		}
	}
	for _, query := range triggers {
		err := execWithRetry(db, query, retries)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return err
		}
	}
	return nil
}

func execWithRetry(db *sql.DB, query string, retries int) error {
	_, err := db.Exec(query)
	for i := 0; err != nil && i < retries; i++ {
		if strings.Contains(err.Error(), "already exists") {
			return err
		}
		time.Sleep(1 * time.Second)
		_, err = db.Exec(query)
	}
	return err
}
