package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEvent represents a record stored in audit_logs. Meta carries
// identifiers only; payment amounts and free-text notes must never appear
// here (see TestAuditRedaction in the payments package).
type AuditEvent struct {
	TenantID int64
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger writes records into audit_logs and mirrors them to slog.
type AuditLogger struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool, logger *slog.Logger) *AuditLogger {
	return &AuditLogger{pool: pool, logger: logger}
}

// Record persists the event. Failures are surfaced to the caller but are not
// expected to abort the business operation that produced them.
func (l *AuditLogger) Record(ctx context.Context, ev AuditEvent) error {
	if l == nil {
		return errors.New("shared: audit logger not initialised")
	}
	if ev.Action == "" || ev.Entity == "" || ev.EntityID == "" {
		return errors.New("shared: audit event requires action/entity/entity_id")
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if l.logger != nil {
		l.logger.Info("audit",
			slog.String("action", ev.Action),
			slog.String("entity", ev.Entity),
			slog.String("entity_id", ev.EntityID),
			slog.Int64("tenant_id", ev.TenantID),
			slog.Int64("actor_id", ev.ActorID),
		)
	}
	if l.pool == nil {
		return nil
	}
	metaJSON, err := json.Marshal(ev.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (tenant_id, actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, ev.TenantID, ev.ActorID, ev.Action, ev.Entity, ev.EntityID, metaJSON, ev.At)
	return err
}
