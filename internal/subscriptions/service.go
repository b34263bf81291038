// Package subscriptions manages the subscription lifecycle: provisioning a
// subscription's tenant table and keeping its watched address list in sync
// between the system of record and the provider webhook.
package subscriptions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nitishxyz/chainhook/internal/core/domain"
	"github.com/nitishxyz/chainhook/internal/infra/storage"
	"github.com/nitishxyz/chainhook/internal/ingest/filter"
)

// SchemaDeployer deploys a schema template into a tenant database.
type SchemaDeployer interface {
	Deploy(
		ctx context.Context,
		conn *domain.DatabaseConnection,
		tpl *domain.SchemaTemplate,
		targetSchema, targetTable string,
	) error
}

// WebhookAPI edits the provider webhook's watched address list.
type WebhookAPI interface {
	AppendAddresses(ctx context.Context, addresses []string) error
	RemoveAddresses(ctx context.Context, addresses []string) error
}

// Service runs subscription lifecycle operations.
type Service struct {
	subs     storage.SubscriptionRepository
	conns    storage.ConnectionRepository
	catalog  storage.CatalogRepository
	deployer SchemaDeployer
	webhook  WebhookAPI
	filter   *filter.AddressFilter
	log      *slog.Logger
}

// NewService creates a subscription service. webhook may be nil when no
// provider API is configured; address edits then touch only local state.
func NewService(
	subs storage.SubscriptionRepository,
	conns storage.ConnectionRepository,
	catalog storage.CatalogRepository,
	deployer SchemaDeployer,
	webhook WebhookAPI,
	addressFilter *filter.AddressFilter,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		subs:     subs,
		conns:    conns,
		catalog:  catalog,
		deployer: deployer,
		webhook:  webhook,
		filter:   addressFilter,
		log:      log,
	}
}

// Provision deploys the subscription's destination table into its tenant
// database, registers its addresses with the provider webhook, and
// activates it. Any failure leaves the subscription in the error state with
// the cause recorded; it never becomes active with a missing table.
func (s *Service) Provision(ctx context.Context, subscriptionID string) error {
	sub, err := s.subs.GetByID(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to load subscription %s: %w", subscriptionID, err)
	}
	if sub == nil {
		return fmt.Errorf("subscription %s not found", subscriptionID)
	}

	conn, err := s.conns.GetByID(ctx, sub.ConnectionID)
	if err == nil && conn == nil {
		err = fmt.Errorf("database connection %s not found", sub.ConnectionID)
	}
	if err != nil {
		return s.failProvision(ctx, sub, err)
	}

	tpl, err := s.catalog.GetTemplateForType(ctx, sub.IndexTypeID)
	if err == nil && tpl == nil {
		err = fmt.Errorf("no schema template for index type %s", sub.IndexTypeID)
	}
	if err != nil {
		return s.failProvision(ctx, sub, err)
	}

	if err := s.deployer.Deploy(ctx, conn, tpl, sub.TargetSchema, sub.TargetTable); err != nil {
		if markErr := s.conns.MarkError(ctx, conn.ID, err.Error()); markErr != nil {
			s.log.Warn("Failed to mark connection error", "connection", conn.ID, "error", markErr)
		}
		return s.failProvision(ctx, sub, err)
	}
	if err := s.conns.MarkConnected(ctx, conn.ID); err != nil {
		s.log.Warn("Failed to mark connection active", "connection", conn.ID, "error", err)
	}

	if s.webhook != nil && len(sub.Addresses) > 0 {
		if err := s.webhook.AppendAddresses(ctx, sub.Addresses); err != nil {
			return s.failProvision(ctx, sub, fmt.Errorf("failed to register addresses with provider: %w", err))
		}
	}

	if err := s.subs.UpdateStatus(ctx, sub.ID, domain.SubscriptionActive, nil); err != nil {
		return fmt.Errorf("failed to activate subscription %s: %w", sub.ID, err)
	}
	if s.filter != nil {
		s.filter.AddBatch(sub.Addresses)
	}

	s.log.Info("Provisioned subscription",
		"subscription", sub.ID,
		"index_type", sub.IndexTypeID,
		"table", sub.TargetSchema+"."+sub.TargetTable)
	return nil
}

func (s *Service) failProvision(ctx context.Context, sub *domain.IndexSubscription, cause error) error {
	msg := cause.Error()
	if err := s.subs.UpdateStatus(ctx, sub.ID, domain.SubscriptionError, &msg); err != nil {
		s.log.Warn("Failed to record provisioning error",
			"subscription", sub.ID, "error", err)
	}
	return fmt.Errorf("failed to provision subscription %s: %w", sub.ID, cause)
}

// AppendAddresses adds addresses to a subscription's watched set. The
// provider webhook is updated first; if that fails the local state is left
// untouched.
func (s *Service) AppendAddresses(ctx context.Context, subscriptionID string, addresses []string) error {
	sub, err := s.loadSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}

	merged := mergeAddresses(sub.Addresses, addresses)
	if len(merged) == len(sub.Addresses) {
		return nil
	}

	if s.webhook != nil {
		if err := s.webhook.AppendAddresses(ctx, addresses); err != nil {
			return fmt.Errorf("failed to update provider webhook: %w", err)
		}
	}
	if err := s.subs.UpdateAddresses(ctx, subscriptionID, merged); err != nil {
		return fmt.Errorf("failed to update subscription addresses: %w", err)
	}
	if s.filter != nil {
		s.filter.AddBatch(addresses)
	}
	return nil
}

// RemoveAddresses removes addresses from a subscription's watched set. The
// pre-filter is not shrunk here: another subscription may still watch the
// same address, so the filter is rebuilt from the system of record instead.
func (s *Service) RemoveAddresses(ctx context.Context, subscriptionID string, addresses []string) error {
	sub, err := s.loadSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}

	remaining := excludeAddresses(sub.Addresses, addresses)
	if len(remaining) == len(sub.Addresses) {
		return nil
	}

	if s.webhook != nil {
		if err := s.webhook.RemoveAddresses(ctx, addresses); err != nil {
			return fmt.Errorf("failed to update provider webhook: %w", err)
		}
	}
	if err := s.subs.UpdateAddresses(ctx, subscriptionID, remaining); err != nil {
		return fmt.Errorf("failed to update subscription addresses: %w", err)
	}
	return s.RefreshFilter(ctx)
}

// RefreshFilter rebuilds the in-memory address pre-filter from the active
// subscriptions in the system of record.
func (s *Service) RefreshFilter(ctx context.Context) error {
	if s.filter == nil {
		return nil
	}
	addresses, err := s.subs.ListActiveAddresses(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active addresses: %w", err)
	}
	s.filter.Reset(addresses)
	return nil
}

func (s *Service) loadSubscription(ctx context.Context, id string) (*domain.IndexSubscription, error) {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription %s: %w", id, err)
	}
	if sub == nil {
		return nil, fmt.Errorf("subscription %s not found", id)
	}
	return sub, nil
}

func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(added))
	merged := make([]string, 0, len(existing)+len(added))
	for _, addr := range existing {
		if _, ok := seen[addr]; ok || addr == "" {
			continue
		}
		seen[addr] = struct{}{}
		merged = append(merged, addr)
	}
	for _, addr := range added {
		if _, ok := seen[addr]; ok || addr == "" {
			continue
		}
		seen[addr] = struct{}{}
		merged = append(merged, addr)
	}
	return merged
}

func excludeAddresses(existing, removed []string) []string {
	drop := make(map[string]struct{}, len(removed))
	for _, addr := range removed {
		drop[addr] = struct{}{}
	}
	remaining := make([]string, 0, len(existing))
	for _, addr := range existing {
		if _, ok := drop[addr]; !ok {
			remaining = append(remaining, addr)
		}
	}
	return remaining
}
