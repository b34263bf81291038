package domain

import (
	"encoding/json"
	"time"
)

// WebhookEvent is an audit record for one transaction accepted from the
// provider's webhook push, keyed by signature.
type WebhookEvent struct {
	ID          string          `db:"id"`
	Signature   string          `db:"signature"`
	WebhookID   string          `db:"webhook_id"`
	EventType   string          `db:"event_type"`
	Payload     json.RawMessage `db:"payload"`
	Processed   bool            `db:"processed"`
	ProcessedAt *time.Time      `db:"processed_at"`
	ErrorCount  int             `db:"error_count"`
	LastError   *string         `db:"last_error"`
	CreatedAt   time.Time       `db:"created_at"`
}
