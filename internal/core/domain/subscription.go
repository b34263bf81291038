package domain

import (
	"encoding/json"
	"time"
)

// SubscriptionStatus is the lifecycle state of an index subscription.
// Only active subscriptions are eligible for writes.
type SubscriptionStatus string

const (
	SubscriptionActive SubscriptionStatus = "active"
	SubscriptionPaused SubscriptionStatus = "paused"
	SubscriptionError  SubscriptionStatus = "error"
)

// IndexSubscription is a user's request to index one transaction category,
// from one watched address set, into one table of one tenant database.
type IndexSubscription struct {
	ID             string             `db:"id"`
	Name           string             `db:"name"`
	UserID         string             `db:"user_id"`
	ConnectionID   string             `db:"connection_id"`
	IndexTypeID    string             `db:"index_type_id"`
	Status         SubscriptionStatus `db:"status"`
	TargetSchema   string             `db:"target_schema"`
	TargetTable    string             `db:"target_table"`
	Addresses      []string           `db:"-"`
	FilterCriteria json.RawMessage    `db:"filter_criteria"`
	LastIndexedAt  *time.Time         `db:"last_indexed_at"`
	IndexCount     int64              `db:"index_count"`
	LastError      *string            `db:"last_error"`
	CreatedAt      time.Time          `db:"created_at"`
	UpdatedAt      *time.Time         `db:"updated_at"`
}

// Category returns the subscription's index type as a transaction category.
func (s *IndexSubscription) Category() Category {
	return Category(s.IndexTypeID)
}
