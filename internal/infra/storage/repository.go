// Package storage defines the repository interfaces over the
// system-of-record database.
package storage

import (
	"context"

	"github.com/nitishxyz/chainhook/internal/core/domain"
)

// SubscriptionRepository manages index subscriptions.
type SubscriptionRepository interface {
	// GetByID fetches one subscription, or nil when it does not exist.
	GetByID(ctx context.Context, id string) (*domain.IndexSubscription, error)

	// FindActiveByCategory runs the matching predicate in SQL: active
	// subscriptions of the category whose watched address set overlaps
	// the given addresses.
	FindActiveByCategory(
		ctx context.Context,
		category domain.Category,
		addresses []string,
	) ([]*domain.IndexSubscription, error)

	// RecordIndexed atomically increments the index counter, stamps
	// last_indexed_at, and clears last_error.
	RecordIndexed(ctx context.Context, id string) error

	// RecordError stores the latest failure message.
	RecordError(ctx context.Context, id, message string) error

	// UpdateStatus moves the subscription through its lifecycle.
	UpdateStatus(ctx context.Context, id string, status domain.SubscriptionStatus, lastError *string) error

	// UpdateAddresses replaces the watched address set.
	UpdateAddresses(ctx context.Context, id string, addresses []string) error

	// ListActiveAddresses returns every address watched by any active
	// subscription, for warming the in-memory pre-filter.
	ListActiveAddresses(ctx context.Context) ([]string, error)
}

// ConnectionRepository manages tenant database connections.
type ConnectionRepository interface {
	GetByID(ctx context.Context, id string) (*domain.DatabaseConnection, error)
	MarkConnected(ctx context.Context, id string) error
	MarkError(ctx context.Context, id, message string) error
}

// CatalogRepository manages index types and their schema templates.
type CatalogRepository interface {
	ListIndexTypes(ctx context.Context) ([]*domain.IndexType, error)
	GetTemplateForType(ctx context.Context, indexTypeID string) (*domain.SchemaTemplate, error)

	// Seed upserts the built-in catalog; existing rows are left untouched.
	Seed(ctx context.Context, types []domain.IndexType, templates []domain.SchemaTemplate) error
}

// WebhookEventRepository records per-item audit rows for accepted webhook
// transactions.
type WebhookEventRepository interface {
	Record(ctx context.Context, event *domain.WebhookEvent) error
}
