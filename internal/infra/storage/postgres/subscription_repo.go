package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/nitishxyz/chainhook/internal/core/domain"
)

// SubscriptionRepo implements storage.SubscriptionRepository using PostgreSQL.
type SubscriptionRepo struct {
	db *DB
}

// NewSubscriptionRepo creates a new PostgreSQL subscription repository.
func NewSubscriptionRepo(db *DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

type subscriptionRow struct {
	ID             string          `db:"id"`
	Name           string          `db:"name"`
	UserID         string          `db:"user_id"`
	ConnectionID   string          `db:"connection_id"`
	IndexTypeID    string          `db:"index_type_id"`
	Status         string          `db:"status"`
	TargetSchema   string          `db:"target_schema"`
	TargetTable    string          `db:"target_table"`
	Addresses      pq.StringArray  `db:"addresses"`
	FilterCriteria json.RawMessage `db:"filter_criteria"`
	LastIndexedAt  *time.Time      `db:"last_indexed_at"`
	IndexCount     int64           `db:"index_count"`
	LastError      *string         `db:"last_error"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      *time.Time      `db:"updated_at"`
}

func (r subscriptionRow) toDomain() *domain.IndexSubscription {
	return &domain.IndexSubscription{
		ID:             r.ID,
		Name:           r.Name,
		UserID:         r.UserID,
		ConnectionID:   r.ConnectionID,
		IndexTypeID:    r.IndexTypeID,
		Status:         domain.SubscriptionStatus(r.Status),
		TargetSchema:   r.TargetSchema,
		TargetTable:    r.TargetTable,
		Addresses:      []string(r.Addresses),
		FilterCriteria: r.FilterCriteria,
		LastIndexedAt:  r.LastIndexedAt,
		IndexCount:     r.IndexCount,
		LastError:      r.LastError,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

const subscriptionColumns = `
	id, name, user_id, connection_id, index_type_id, status,
	target_schema, target_table, addresses, filter_criteria,
	last_indexed_at, index_count, last_error, created_at, updated_at
`

// GetByID fetches a subscription by id, or nil when absent.
func (r *SubscriptionRepo) GetByID(ctx context.Context, id string) (*domain.IndexSubscription, error) {
	var row subscriptionRow
	query := `SELECT ` + subscriptionColumns + ` FROM index_subscriptions WHERE id = $1`
	err := r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return row.toDomain(), nil
}

// FindActiveByCategory pushes the matching predicate into SQL: active
// subscriptions of the category whose address array overlaps the
// participant set. The && operator is index-assisted by the GIN index on
// addresses.
func (r *SubscriptionRepo) FindActiveByCategory(
	ctx context.Context,
	category domain.Category,
	addresses []string,
) ([]*domain.IndexSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM index_subscriptions
		WHERE status = 'active'
		  AND index_type_id = $1
		  AND addresses && $2
	`
	var rows []subscriptionRow
	err := r.db.SelectContext(ctx, &rows, query, string(category), pq.Array(addresses))
	if err != nil {
		return nil, fmt.Errorf("failed to find matching subscriptions: %w", err)
	}

	subs := make([]*domain.IndexSubscription, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.toDomain())
	}
	return subs, nil
}

// RecordIndexed increments the counter atomically at the storage layer so
// concurrent webhook deliveries for the same subscription cannot lose
// updates.
func (r *SubscriptionRepo) RecordIndexed(ctx context.Context, id string) error {
	query := `
		UPDATE index_subscriptions
		SET index_count = index_count + 1,
		    last_indexed_at = NOW(),
		    last_error = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to record indexed event: %w", err)
	}
	return nil
}

// RecordError stores the latest failure message for the subscription.
func (r *SubscriptionRepo) RecordError(ctx context.Context, id, message string) error {
	query := `
		UPDATE index_subscriptions
		SET last_error = $2, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, message); err != nil {
		return fmt.Errorf("failed to record subscription error: %w", err)
	}
	return nil
}

// UpdateStatus moves a subscription through its lifecycle.
func (r *SubscriptionRepo) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.SubscriptionStatus,
	lastError *string,
) error {
	query := `
		UPDATE index_subscriptions
		SET status = $2, last_error = $3, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, string(status), lastError); err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	return nil
}

// UpdateAddresses replaces the watched address set.
func (r *SubscriptionRepo) UpdateAddresses(ctx context.Context, id string, addresses []string) error {
	query := `
		UPDATE index_subscriptions
		SET addresses = $2, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, pq.Array(addresses)); err != nil {
		return fmt.Errorf("failed to update subscription addresses: %w", err)
	}
	return nil
}

// ListActiveAddresses returns the distinct watched addresses across all
// active subscriptions.
func (r *SubscriptionRepo) ListActiveAddresses(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT unnest(addresses)
		FROM index_subscriptions
		WHERE status = 'active'
	`
	var addresses []string
	if err := r.db.SelectContext(ctx, &addresses, query); err != nil {
		return nil, fmt.Errorf("failed to list active addresses: %w", err)
	}
	return addresses, nil
}
