package subscriptions

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nitishxyz/chainhook/internal/core/domain"
	"github.com/nitishxyz/chainhook/internal/ingest/filter"
)

type mockSubs struct {
	subs      map[string]*domain.IndexSubscription
	statuses  map[string]domain.SubscriptionStatus
	lastError map[string]*string
	addresses map[string][]string
	active    []string
}

func newMockSubs(subs ...*domain.IndexSubscription) *mockSubs {
	m := &mockSubs{
		subs:      make(map[string]*domain.IndexSubscription),
		statuses:  make(map[string]domain.SubscriptionStatus),
		lastError: make(map[string]*string),
		addresses: make(map[string][]string),
	}
	for _, s := range subs {
		m.subs[s.ID] = s
	}
	return m
}

func (m *mockSubs) GetByID(_ context.Context, id string) (*domain.IndexSubscription, error) {
	return m.subs[id], nil
}

func (m *mockSubs) FindActiveByCategory(context.Context, domain.Category, []string) ([]*domain.IndexSubscription, error) {
	return nil, nil
}

func (m *mockSubs) RecordIndexed(context.Context, string) error { return nil }

func (m *mockSubs) RecordError(context.Context, string, string) error { return nil }

func (m *mockSubs) UpdateStatus(_ context.Context, id string, status domain.SubscriptionStatus, lastError *string) error {
	m.statuses[id] = status
	m.lastError[id] = lastError
	return nil
}

func (m *mockSubs) UpdateAddresses(_ context.Context, id string, addresses []string) error {
	m.addresses[id] = addresses
	return nil
}

func (m *mockSubs) ListActiveAddresses(context.Context) ([]string, error) {
	return m.active, nil
}

type mockConns struct {
	conns     map[string]*domain.DatabaseConnection
	connected []string
	failed    map[string]string
}

func (m *mockConns) GetByID(_ context.Context, id string) (*domain.DatabaseConnection, error) {
	return m.conns[id], nil
}

func (m *mockConns) MarkConnected(_ context.Context, id string) error {
	m.connected = append(m.connected, id)
	return nil
}

func (m *mockConns) MarkError(_ context.Context, id, message string) error {
	if m.failed == nil {
		m.failed = make(map[string]string)
	}
	m.failed[id] = message
	return nil
}

type mockCatalog struct {
	template *domain.SchemaTemplate
}

func (m *mockCatalog) ListIndexTypes(context.Context) ([]*domain.IndexType, error) { return nil, nil }

func (m *mockCatalog) GetTemplateForType(context.Context, string) (*domain.SchemaTemplate, error) {
	return m.template, nil
}

func (m *mockCatalog) Seed(context.Context, []domain.IndexType, []domain.SchemaTemplate) error {
	return nil
}

type mockDeployer struct {
	deployed []string // schema.table
	err      error
}

func (m *mockDeployer) Deploy(
	_ context.Context,
	_ *domain.DatabaseConnection,
	_ *domain.SchemaTemplate,
	schema, table string,
) error {
	if m.err != nil {
		return m.err
	}
	m.deployed = append(m.deployed, schema+"."+table)
	return nil
}

type mockWebhook struct {
	appended [][]string
	removed  [][]string
	err      error
}

func (m *mockWebhook) AppendAddresses(_ context.Context, addresses []string) error {
	if m.err != nil {
		return m.err
	}
	m.appended = append(m.appended, addresses)
	return nil
}

func (m *mockWebhook) RemoveAddresses(_ context.Context, addresses []string) error {
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, addresses)
	return nil
}

func testSubscription() *domain.IndexSubscription {
	return &domain.IndexSubscription{
		ID:           "sub-1",
		ConnectionID: "conn-1",
		IndexTypeID:  string(domain.CategoryTransfer),
		Status:       domain.SubscriptionPaused,
		TargetSchema: "public",
		TargetTable:  "transfers",
		Addresses:    []string{"addr1", "addr2"},
	}
}

func TestProvisionDeploysAndActivates(t *testing.T) {
	subs := newMockSubs(testSubscription())
	conns := &mockConns{conns: map[string]*domain.DatabaseConnection{"conn-1": {ID: "conn-1"}}}
	deployer := &mockDeployer{}
	webhook := &mockWebhook{}
	f := filter.NewAddressFilter()

	svc := NewService(subs, conns, &mockCatalog{template: &domain.SchemaTemplate{ID: "transfer_v1"}}, deployer, webhook, f, nil)

	if err := svc.Provision(context.Background(), "sub-1"); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	if len(deployer.deployed) != 1 || deployer.deployed[0] != "public.transfers" {
		t.Errorf("expected deploy into public.transfers, got %v", deployer.deployed)
	}
	if subs.statuses["sub-1"] != domain.SubscriptionActive {
		t.Errorf("expected active status, got %q", subs.statuses["sub-1"])
	}
	if len(webhook.appended) != 1 {
		t.Errorf("expected addresses registered with provider, got %v", webhook.appended)
	}
	if len(conns.connected) != 1 {
		t.Errorf("expected connection marked connected, got %v", conns.connected)
	}
	if !f.Contains("addr1") || !f.Contains("addr2") {
		t.Error("expected filter warmed with subscription addresses")
	}
}

func TestProvisionDeployFailureMarksError(t *testing.T) {
	subs := newMockSubs(testSubscription())
	conns := &mockConns{conns: map[string]*domain.DatabaseConnection{"conn-1": {ID: "conn-1"}}}
	deployer := &mockDeployer{err: errors.New("permission denied for schema public")}
	webhook := &mockWebhook{}

	svc := NewService(subs, conns, &mockCatalog{template: &domain.SchemaTemplate{}}, deployer, webhook, nil, nil)

	if err := svc.Provision(context.Background(), "sub-1"); err == nil {
		t.Fatal("expected provisioning to fail")
	}

	if subs.statuses["sub-1"] != domain.SubscriptionError {
		t.Errorf("expected error status, got %q", subs.statuses["sub-1"])
	}
	if subs.lastError["sub-1"] == nil {
		t.Error("expected last error recorded")
	}
	if len(webhook.appended) != 0 {
		t.Error("provider must not be updated when deploy fails")
	}
	if _, ok := conns.failed["conn-1"]; !ok {
		t.Error("expected connection marked errored")
	}
}

func TestProvisionMissingConnection(t *testing.T) {
	subs := newMockSubs(testSubscription())
	svc := NewService(subs, &mockConns{}, &mockCatalog{}, &mockDeployer{}, nil, nil, nil)

	if err := svc.Provision(context.Background(), "sub-1"); err == nil {
		t.Fatal("expected provisioning to fail")
	}
	if subs.statuses["sub-1"] != domain.SubscriptionError {
		t.Errorf("expected error status, got %q", subs.statuses["sub-1"])
	}
}

func TestAppendAddressesUpdatesProviderFirst(t *testing.T) {
	subs := newMockSubs(testSubscription())
	webhook := &mockWebhook{}
	f := filter.NewAddressFilter()

	svc := NewService(subs, &mockConns{}, &mockCatalog{}, &mockDeployer{}, webhook, f, nil)

	if err := svc.AppendAddresses(context.Background(), "sub-1", []string{"addr2", "addr3"}); err != nil {
		t.Fatalf("AppendAddresses failed: %v", err)
	}

	want := []string{"addr1", "addr2", "addr3"}
	if !reflect.DeepEqual(subs.addresses["sub-1"], want) {
		t.Errorf("expected merged addresses %v, got %v", want, subs.addresses["sub-1"])
	}
	if len(webhook.appended) != 1 {
		t.Errorf("expected one provider append, got %v", webhook.appended)
	}
	if !f.Contains("addr3") {
		t.Error("expected filter updated with new address")
	}
}

func TestAppendAddressesProviderFailureAbortsLocalUpdate(t *testing.T) {
	subs := newMockSubs(testSubscription())
	webhook := &mockWebhook{err: errors.New("api error")}

	svc := NewService(subs, &mockConns{}, &mockCatalog{}, &mockDeployer{}, webhook, nil, nil)

	if err := svc.AppendAddresses(context.Background(), "sub-1", []string{"addr3"}); err == nil {
		t.Fatal("expected append to fail")
	}
	if _, ok := subs.addresses["sub-1"]; ok {
		t.Error("local addresses must not change when the provider update fails")
	}
}

func TestAppendAddressesNoopWhenAlreadyWatched(t *testing.T) {
	subs := newMockSubs(testSubscription())
	webhook := &mockWebhook{}

	svc := NewService(subs, &mockConns{}, &mockCatalog{}, &mockDeployer{}, webhook, nil, nil)

	if err := svc.AppendAddresses(context.Background(), "sub-1", []string{"addr1"}); err != nil {
		t.Fatalf("AppendAddresses failed: %v", err)
	}
	if len(webhook.appended) != 0 {
		t.Error("expected no provider call for already watched addresses")
	}
}

func TestRemoveAddressesRebuildsFilter(t *testing.T) {
	sub := testSubscription()
	subs := newMockSubs(sub)
	subs.active = []string{"addr2"} // addr1 removed, addr2 still watched
	webhook := &mockWebhook{}
	f := filter.NewAddressFilter()
	f.AddBatch([]string{"addr1", "addr2"})

	svc := NewService(subs, &mockConns{}, &mockCatalog{}, &mockDeployer{}, webhook, f, nil)

	if err := svc.RemoveAddresses(context.Background(), "sub-1", []string{"addr1"}); err != nil {
		t.Fatalf("RemoveAddresses failed: %v", err)
	}

	want := []string{"addr2"}
	if !reflect.DeepEqual(subs.addresses["sub-1"], want) {
		t.Errorf("expected remaining addresses %v, got %v", want, subs.addresses["sub-1"])
	}
	if len(webhook.removed) != 1 {
		t.Errorf("expected one provider removal, got %v", webhook.removed)
	}
	if f.Contains("addr1") {
		t.Error("expected addr1 gone from filter")
	}
	if !f.Contains("addr2") {
		t.Error("expected addr2 kept in filter")
	}
}
