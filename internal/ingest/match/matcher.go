// Package match resolves which subscriptions care about a transaction.
package match

import (
	"context"
	"fmt"

	"github.com/nitishxyz/chainhook/internal/core/domain"
	"github.com/nitishxyz/chainhook/internal/ingest/filter"
)

// SubscriptionFinder runs the matching predicate in storage: active
// subscriptions of the given category whose watched address set overlaps the
// given addresses.
type SubscriptionFinder interface {
	FindActiveByCategory(
		ctx context.Context,
		category domain.Category,
		addresses []string,
	) ([]*domain.IndexSubscription, error)
}

// Matcher finds the subscriptions a transaction should be written to.
type Matcher struct {
	subs      SubscriptionFinder
	preFilter *filter.AddressFilter
}

// NewMatcher creates a matcher. preFilter is optional; when set, transactions
// touching no watched address skip the storage query entirely.
func NewMatcher(subs SubscriptionFinder, preFilter *filter.AddressFilter) *Matcher {
	return &Matcher{subs: subs, preFilter: preFilter}
}

// Match returns every active subscription whose category equals the
// transaction's category and whose watched addresses intersect the
// transaction's participants. UNKNOWN transactions match nothing and never
// reach storage. Order of the result is unspecified.
func (m *Matcher) Match(
	ctx context.Context,
	tx *domain.CanonicalTransaction,
) ([]*domain.IndexSubscription, error) {
	if tx.Category == domain.CategoryUnknown {
		return nil, nil
	}

	addrs := tx.ParticipantAddresses()
	if len(addrs) == 0 {
		return nil, nil
	}

	if m.preFilter != nil && !m.preFilter.ContainsAny(addrs) {
		return nil, nil
	}

	subs, err := m.subs.FindActiveByCategory(ctx, tx.Category, addrs)
	if err != nil {
		return nil, fmt.Errorf("failed to query matching subscriptions: %w", err)
	}
	return subs, nil
}
