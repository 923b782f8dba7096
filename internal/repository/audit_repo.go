package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(ctx context.Context, log entity.AuditLog) error {
	var metadata interface{}
	if log.Metadata != nil {
		body, err := json.Marshal(log.Metadata)
		if err != nil {
			return err
		}
		metadata = body
	}

	query := `
		INSERT INTO audit_logs (id, user_id, action_type, description,
			device_id, ip_address, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, log.ID, log.UserID, log.ActionType,
		log.Description, log.DeviceID, log.IPAddress, metadata, log.CreatedAt)
	return translateErr(err)
}

// List returns entries newest first, optionally filtered by action type.
func (r *AuditRepository) List(ctx context.Context, actionType entity.ActionType, limit int) ([]entity.AuditLog, error) {
	query := `
		SELECT id, user_id, action_type, description, device_id, ip_address,
		       metadata, created_at
		FROM audit_logs`

	var args []interface{}
	if actionType != "" {
		query += ` WHERE action_type = ?`
		args = append(args, actionType)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []entity.AuditLog
	for rows.Next() {
		var l entity.AuditLog
		var metadata sql.RawBytes
		err := rows.Scan(&l.ID, &l.UserID, &l.ActionType, &l.Description,
			&l.DeviceID, &l.IPAddress, &metadata, &l.CreatedAt)
		if err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &l.Metadata); err != nil {
				logger.Warn().Err(err).Str("id", l.ID.String()).Msg("Unreadable audit metadata")
			}
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Purge is the single sanctioned removal path for audit entries.
func (r *AuditRepository) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM audit_logs WHERE created_at < ?`, olderThan)
	if err != nil {
		return 0, translateErr(err)
	}
	return res.RowsAffected()
}
