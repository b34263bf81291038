// Package writer executes the per-subscription tenant INSERT and keeps the
// subscription's bookkeeping row in sync.
package writer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/nitishxyz/chainhook/internal/core/domain"
	"github.com/nitishxyz/chainhook/internal/ingest/deploy"
)

// Bookkeeper updates subscription bookkeeping in the system-of-record store.
// RecordIndexed must increment the counter atomically at the storage layer.
type Bookkeeper interface {
	RecordIndexed(ctx context.Context, subscriptionID string) error
	RecordError(ctx context.Context, subscriptionID, message string) error
}

// Writer maps canonical transactions into tenant rows and writes them.
type Writer struct {
	tenants deploy.TenantRunner
	books   Bookkeeper
	log     *slog.Logger
}

// NewWriter creates an event writer.
func NewWriter(tenants deploy.TenantRunner, books Bookkeeper, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{tenants: tenants, books: books, log: log}
}

// Write inserts one transaction into the subscription's target table, then
// records the success in the subscription's bookkeeping row. Any tenant-side
// failure is recorded into the subscription's last_error (best effort) and
// returned without touching the index counter.
func (w *Writer) Write(
	ctx context.Context,
	tx *domain.CanonicalTransaction,
	sub *domain.IndexSubscription,
	conn *domain.DatabaseConnection,
) error {
	query, args, err := BuildInsert(tx, sub)
	if err != nil {
		w.recordError(ctx, sub.ID, err)
		return fmt.Errorf("failed to build insert for subscription %s: %w", sub.ID, err)
	}

	err = w.tenants.WithConn(ctx, conn, func(db *sql.DB) error {
		if _, execErr := db.ExecContext(ctx, query, args...); execErr != nil {
			return fmt.Errorf("failed to insert into %s.%s: %w", sub.TargetSchema, sub.TargetTable, execErr)
		}
		return nil
	})
	if err != nil {
		w.recordError(ctx, sub.ID, err)
		return err
	}

	if err := w.books.RecordIndexed(ctx, sub.ID); err != nil {
		return fmt.Errorf("failed to update bookkeeping for subscription %s: %w", sub.ID, err)
	}
	return nil
}

func (w *Writer) recordError(ctx context.Context, subscriptionID string, cause error) {
	if err := w.books.RecordError(ctx, subscriptionID, cause.Error()); err != nil {
		w.log.Warn("Failed to record subscription error",
			"subscription", subscriptionID, "error", err)
	}
}
