package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// AuditStore is the write-only persistence contract for the audit trail.
// No update entry point exists; Purge is the administrative retention path.
type AuditStore interface {
	Insert(ctx context.Context, log entity.AuditLog) error
	List(ctx context.Context, actionType entity.ActionType, limit int) ([]entity.AuditLog, error)
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// Recorder is what the other services depend on. Record never returns an
// error: an audit write failure must not abort the triggering operation.
type Recorder interface {
	Record(ctx context.Context, actor entity.ActorContext, action entity.ActionType, description string, metadata map[string]interface{})
}

type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Record appends an audit entry. Failures are logged and swallowed; the
// audit stream trades completeness for availability, unlike the hard
// immutability of the records themselves.
func (s *AuditService) Record(ctx context.Context, actor entity.ActorContext, action entity.ActionType, description string, metadata map[string]interface{}) {
	if !action.Valid() {
		logger.Error().Str("action", string(action)).Msg("Dropping audit entry with unknown action type")
		return
	}

	entry := entity.AuditLog{
		ID:          uuid.New(),
		UserID:      actor.UserID,
		ActionType:  action,
		Description: description,
		DeviceID:    actor.DeviceID,
		IPAddress:   actor.IP,
		Metadata:    metadata,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.Insert(ctx, entry); err != nil {
		logger.Error().Err(err).Str("action", string(action)).Msg("Failed to write audit entry")
	}
}

// List returns recent entries, optionally filtered by action type.
func (s *AuditService) List(ctx context.Context, actor entity.ActorContext, actionType entity.ActionType, limit int) ([]entity.AuditLog, error) {
	if err := requireRole(actor, entity.RoleAdmin); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	return s.store.List(ctx, actionType, limit)
}

// Purge removes entries older than the retention window. Admin only; this
// is the single sanctioned delete path for audit records.
func (s *AuditService) Purge(ctx context.Context, actor entity.ActorContext, olderThan time.Time) (int64, error) {
	if err := requireRole(actor, entity.RoleAdmin); err != nil {
		return 0, err
	}

	removed, err := s.store.Purge(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("purging audit logs: %w", err)
	}

	logger.Info().Int64("removed", removed).Time("older_than", olderThan).Msg("Audit retention purge completed")
	s.Record(ctx, actor, entity.ActionUserAction,
		fmt.Sprintf("Purged %d audit entries older than %s", removed, olderThan.Format(time.RFC3339)),
		map[string]interface{}{"removed": removed})
	return removed, nil
}
