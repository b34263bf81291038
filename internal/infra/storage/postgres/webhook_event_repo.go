package postgres

import (
	"context"
	"fmt"

	"github.com/nitishxyz/chainhook/internal/core/domain"
)

// WebhookEventRepo implements storage.WebhookEventRepository using PostgreSQL.
type WebhookEventRepo struct {
	db *DB
}

// NewWebhookEventRepo creates a new PostgreSQL webhook event repository.
func NewWebhookEventRepo(db *DB) *WebhookEventRepo {
	return &WebhookEventRepo{db: db}
}

// Record stores an audit row for an accepted webhook item. Redelivered
// signatures update the existing row instead of duplicating it.
func (r *WebhookEventRepo) Record(ctx context.Context, event *domain.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (
			id, signature, webhook_id, event_type, payload,
			processed, processed_at, error_count, last_error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (signature) DO UPDATE SET
			processed = EXCLUDED.processed,
			processed_at = EXCLUDED.processed_at,
			error_count = webhook_events.error_count + EXCLUDED.error_count,
			last_error = EXCLUDED.last_error
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.Signature, event.WebhookID, event.EventType, string(event.Payload),
		event.Processed, event.ProcessedAt, event.ErrorCount, event.LastError,
	)
	if err != nil {
		return fmt.Errorf("failed to record webhook event: %w", err)
	}
	return nil
}
