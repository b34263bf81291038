// Package pipeline drives the webhook ingestion flow: normalize each raw
// item, match it against subscriptions, and fan the write out to the
// matched tenants. Items are independent: one item's failure never aborts
// its siblings, and one subscription's failure never aborts the others
// matched by the same transaction.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nitishxyz/chainhook/internal/core/domain"
	"github.com/nitishxyz/chainhook/internal/ingest/metrics"
	"github.com/nitishxyz/chainhook/internal/ingest/normalize"
	"github.com/nitishxyz/chainhook/internal/infra/storage"
)

// Matcher finds the subscriptions interested in a transaction.
type Matcher interface {
	Match(ctx context.Context, tx *domain.CanonicalTransaction) ([]*domain.IndexSubscription, error)
}

// EventWriter writes one transaction into one subscription's tenant table.
type EventWriter interface {
	Write(
		ctx context.Context,
		tx *domain.CanonicalTransaction,
		sub *domain.IndexSubscription,
		conn *domain.DatabaseConnection,
	) error
}

// Deduper is a best-effort guard against redelivered signatures.
// SeenSignature marks the pair as it checks; ForgetSignature releases the
// mark when the write it guarded did not happen.
type Deduper interface {
	SeenSignature(ctx context.Context, subscriptionID, signature string, ttl time.Duration) (bool, error)
	ForgetSignature(ctx context.Context, subscriptionID, signature string) error
}

// Bookkeeper records per-subscription failures that happen before the
// writer is reached.
type Bookkeeper interface {
	RecordError(ctx context.Context, subscriptionID, message string) error
}

// Config holds pipeline settings.
type Config struct {
	// WebhookID tags audit rows with the provider webhook they came from.
	WebhookID string
	// DedupTTL bounds the redelivery guard window. Zero disables expiry.
	DedupTTL time.Duration
}

// Pipeline processes webhook batches.
type Pipeline struct {
	cfg     Config
	matcher Matcher
	writer  EventWriter
	conns   storage.ConnectionRepository
	books   Bookkeeper
	events  storage.WebhookEventRepository
	dedup   Deduper
	log     *slog.Logger
}

// New creates a pipeline. events and dedup are optional; nil disables the
// audit trail and the redelivery guard respectively.
func New(
	cfg Config,
	matcher Matcher,
	writer EventWriter,
	conns storage.ConnectionRepository,
	books Bookkeeper,
	events storage.WebhookEventRepository,
	dedup Deduper,
	log *slog.Logger,
) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		cfg:     cfg,
		matcher: matcher,
		writer:  writer,
		conns:   conns,
		books:   books,
		events:  events,
		dedup:   dedup,
		log:     log,
	}
}

// BatchSummary reports what happened to one webhook batch.
type BatchSummary struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// ProcessBatch runs every item of a batch through the pipeline
// sequentially. Per-item failures are absorbed here; the batch as a whole
// always completes.
func (p *Pipeline) ProcessBatch(ctx context.Context, items []json.RawMessage) BatchSummary {
	summary := BatchSummary{Total: len(items)}

	for _, raw := range items {
		switch p.processItem(ctx, raw) {
		case itemProcessed:
			summary.Processed++
		case itemSkipped:
			summary.Skipped++
		case itemFailed:
			summary.Failed++
		}
	}

	metrics.WebhookBatches.WithLabelValues("accepted").Inc()
	p.log.Info("Processed webhook batch",
		"total", summary.Total,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", summary.Failed)
	return summary
}

type itemOutcome int

const (
	itemProcessed itemOutcome = iota
	itemSkipped
	itemFailed
)

func (p *Pipeline) processItem(ctx context.Context, raw json.RawMessage) itemOutcome {
	tx, err := normalize.Transaction(raw)
	if err != nil {
		p.log.Warn("Skipping unparseable transaction", "error", err)
		metrics.TransactionsSkipped.WithLabelValues("parse_error").Inc()
		return itemSkipped
	}

	if tx.Category == domain.CategoryUnknown {
		metrics.TransactionsSkipped.WithLabelValues("unknown_type").Inc()
		return itemSkipped
	}
	metrics.TransactionsProcessed.WithLabelValues(string(tx.Category)).Inc()

	subs, err := p.matcher.Match(ctx, tx)
	if err != nil {
		p.log.Error("Failed to match transaction", "signature", tx.Signature, "error", err)
		return itemFailed
	}

	failures := 0
	var lastErr error
	for _, sub := range subs {
		if err := p.writeSubscription(ctx, tx, sub); err != nil {
			failures++
			lastErr = err
			p.log.Warn("Failed to index transaction for subscription",
				"signature", tx.Signature,
				"subscription", sub.ID,
				"error", err)
		}
	}

	p.recordAudit(ctx, tx, raw, failures, lastErr)

	if failures > 0 && failures == len(subs) {
		return itemFailed
	}
	return itemProcessed
}

// writeSubscription handles one matched subscription. Every error is scoped
// here: it lands in the subscription's bookkeeping, not in the batch
// response.
func (p *Pipeline) writeSubscription(
	ctx context.Context,
	tx *domain.CanonicalTransaction,
	sub *domain.IndexSubscription,
) error {
	category := string(sub.Category())

	guarded := false
	if p.dedup != nil {
		seen, err := p.dedup.SeenSignature(ctx, sub.ID, tx.Signature, p.cfg.DedupTTL)
		if err != nil {
			// Guard unavailable: proceed, duplicates are tolerable.
			p.log.Warn("Signature guard unavailable", "error", err)
		} else if seen {
			metrics.SubscriptionWrites.WithLabelValues(category, "duplicate").Inc()
			return nil
		} else {
			guarded = true
		}
	}

	conn, err := p.conns.GetByID(ctx, sub.ConnectionID)
	if err == nil && conn == nil {
		err = fmt.Errorf("database connection %s not found", sub.ConnectionID)
	}
	if err != nil {
		p.releaseGuard(ctx, sub.ID, tx.Signature, guarded)
		p.recordSubscriptionError(ctx, sub.ID, err)
		metrics.SubscriptionWrites.WithLabelValues(category, "error").Inc()
		return err
	}

	start := time.Now()
	err = p.writer.Write(ctx, tx, sub, conn)
	metrics.TenantWriteLatency.WithLabelValues(category).Observe(time.Since(start).Seconds())

	if err != nil {
		// The row was not written; release the guard so a redelivery
		// gets another attempt instead of being dropped as a duplicate.
		p.releaseGuard(ctx, sub.ID, tx.Signature, guarded)
		metrics.SubscriptionWrites.WithLabelValues(category, "error").Inc()
		return err
	}
	metrics.SubscriptionWrites.WithLabelValues(category, "success").Inc()
	return nil
}

func (p *Pipeline) releaseGuard(ctx context.Context, subscriptionID, signature string, guarded bool) {
	if !guarded {
		return
	}
	if err := p.dedup.ForgetSignature(ctx, subscriptionID, signature); err != nil {
		p.log.Warn("Failed to release signature guard",
			"subscription", subscriptionID, "signature", signature, "error", err)
	}
}

func (p *Pipeline) recordSubscriptionError(ctx context.Context, subscriptionID string, cause error) {
	if err := p.books.RecordError(ctx, subscriptionID, cause.Error()); err != nil {
		p.log.Warn("Failed to record subscription error",
			"subscription", subscriptionID, "error", err)
	}
}

func (p *Pipeline) recordAudit(
	ctx context.Context,
	tx *domain.CanonicalTransaction,
	raw json.RawMessage,
	failures int,
	lastErr error,
) {
	if p.events == nil {
		return
	}

	now := time.Now()
	event := &domain.WebhookEvent{
		ID:          uuid.NewString(),
		Signature:   tx.Signature,
		WebhookID:   p.cfg.WebhookID,
		EventType:   string(tx.Category),
		Payload:     raw,
		Processed:   failures == 0,
		ProcessedAt: &now,
		ErrorCount:  failures,
	}
	if lastErr != nil {
		msg := lastErr.Error()
		event.LastError = &msg
	}

	if err := p.events.Record(ctx, event); err != nil {
		p.log.Warn("Failed to record webhook event audit row",
			"signature", tx.Signature, "error", err)
	}
}
