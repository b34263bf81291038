package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nitishxyz/chainhook/internal/core/domain"
)

type mockMatcher struct {
	subs []*domain.IndexSubscription
	err  error
}

func (m *mockMatcher) Match(_ context.Context, _ *domain.CanonicalTransaction) ([]*domain.IndexSubscription, error) {
	return m.subs, m.err
}

type mockWriter struct {
	written []string // subscription IDs in write order
	failFor map[string]error
}

func (m *mockWriter) Write(
	_ context.Context,
	_ *domain.CanonicalTransaction,
	sub *domain.IndexSubscription,
	_ *domain.DatabaseConnection,
) error {
	if err, ok := m.failFor[sub.ID]; ok {
		return err
	}
	m.written = append(m.written, sub.ID)
	return nil
}

type mockConns struct {
	conns map[string]*domain.DatabaseConnection
	err   error
}

func (m *mockConns) GetByID(_ context.Context, id string) (*domain.DatabaseConnection, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.conns[id], nil
}

func (m *mockConns) MarkConnected(context.Context, string) error   { return nil }
func (m *mockConns) MarkError(context.Context, string, string) error { return nil }

type mockBooks struct {
	errorsRecorded map[string]string
}

func (m *mockBooks) RecordError(_ context.Context, id, message string) error {
	if m.errorsRecorded == nil {
		m.errorsRecorded = make(map[string]string)
	}
	m.errorsRecorded[id] = message
	return nil
}

type mockEvents struct {
	recorded []*domain.WebhookEvent
	err      error
}

func (m *mockEvents) Record(_ context.Context, event *domain.WebhookEvent) error {
	if m.err != nil {
		return m.err
	}
	m.recorded = append(m.recorded, event)
	return nil
}

type mockDedup struct {
	seen map[string]bool
	err  error
}

func (m *mockDedup) SeenSignature(_ context.Context, subID, sig string, _ time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	key := subID + ":" + sig
	if m.seen[key] {
		return true, nil
	}
	m.seen[key] = true
	return false, nil
}

func (m *mockDedup) ForgetSignature(_ context.Context, subID, sig string) error {
	delete(m.seen, subID+":"+sig)
	return nil
}

func payload(signature, txType string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"signature":%q,"type":%q,"slot":100,"timestamp":1700000000,"feePayer":"payer1"}`,
		signature, txType))
}

func transferSub(id, connID string) *domain.IndexSubscription {
	return &domain.IndexSubscription{
		ID:           id,
		ConnectionID: connID,
		IndexTypeID:  string(domain.CategoryTransfer),
		Status:       domain.SubscriptionActive,
		TargetSchema: "public",
		TargetTable:  "transfers",
	}
}

func newTestPipeline(
	matcher Matcher,
	w EventWriter,
	conns *mockConns,
	books *mockBooks,
	events *mockEvents,
	dedup Deduper,
) *Pipeline {
	p := New(Config{WebhookID: "wh-1"}, matcher, w, conns, books, nil, dedup, nil)
	if events != nil {
		p.events = events
	}
	return p
}

func TestProcessBatchWritesMatchedSubscriptions(t *testing.T) {
	sub := transferSub("sub-1", "conn-1")
	conns := &mockConns{conns: map[string]*domain.DatabaseConnection{
		"conn-1": {ID: "conn-1", Status: domain.ConnectionActive},
	}}
	w := &mockWriter{}
	events := &mockEvents{}

	p := newTestPipeline(&mockMatcher{subs: []*domain.IndexSubscription{sub}}, w, conns, &mockBooks{}, events, nil)

	summary := p.ProcessBatch(context.Background(), []json.RawMessage{payload("sig1", "TRANSFER")})

	if summary.Total != 1 || summary.Processed != 1 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(w.written) != 1 || w.written[0] != "sub-1" {
		t.Fatalf("expected write for sub-1, got %v", w.written)
	}
	if len(events.recorded) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(events.recorded))
	}
	if !events.recorded[0].Processed || events.recorded[0].Signature != "sig1" {
		t.Errorf("unexpected audit row: %+v", events.recorded[0])
	}
}

func TestProcessBatchSkipsUnparseableAndUnknown(t *testing.T) {
	w := &mockWriter{}
	p := newTestPipeline(&mockMatcher{}, w, &mockConns{}, &mockBooks{}, nil, nil)

	summary := p.ProcessBatch(context.Background(), []json.RawMessage{
		json.RawMessage(`not json`),
		payload("sig2", "SOME_FUTURE_TYPE"),
		payload("", "TRANSFER"),
	})

	if summary.Skipped != 3 {
		t.Fatalf("expected 3 skipped, got %+v", summary)
	}
	if len(w.written) != 0 {
		t.Errorf("expected no writes, got %v", w.written)
	}
}

func TestProcessBatchIsolatesSubscriptionFailures(t *testing.T) {
	subA := transferSub("sub-a", "conn-1")
	subB := transferSub("sub-b", "conn-1")
	conns := &mockConns{conns: map[string]*domain.DatabaseConnection{
		"conn-1": {ID: "conn-1"},
	}}
	w := &mockWriter{failFor: map[string]error{"sub-a": errors.New("tenant down")}}
	events := &mockEvents{}

	p := newTestPipeline(&mockMatcher{subs: []*domain.IndexSubscription{subA, subB}}, w, conns, &mockBooks{}, events, nil)

	summary := p.ProcessBatch(context.Background(), []json.RawMessage{payload("sig3", "TRANSFER")})

	// One subscription failed but the other succeeded: the item counts as
	// processed, and the audit row carries the failure.
	if summary.Processed != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(w.written) != 1 || w.written[0] != "sub-b" {
		t.Fatalf("expected sub-b written, got %v", w.written)
	}
	if len(events.recorded) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(events.recorded))
	}
	ev := events.recorded[0]
	if ev.Processed || ev.ErrorCount != 1 || ev.LastError == nil {
		t.Errorf("audit row should carry the failure: %+v", ev)
	}
}

func TestProcessBatchMarksItemFailedWhenAllSubscriptionsFail(t *testing.T) {
	sub := transferSub("sub-a", "conn-1")
	conns := &mockConns{conns: map[string]*domain.DatabaseConnection{"conn-1": {ID: "conn-1"}}}
	w := &mockWriter{failFor: map[string]error{"sub-a": errors.New("tenant down")}}

	p := newTestPipeline(&mockMatcher{subs: []*domain.IndexSubscription{sub}}, w, conns, &mockBooks{}, nil, nil)

	summary := p.ProcessBatch(context.Background(), []json.RawMessage{payload("sig4", "TRANSFER")})
	if summary.Failed != 1 || summary.Processed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestProcessBatchMissingConnectionRecordsError(t *testing.T) {
	sub := transferSub("sub-a", "conn-gone")
	books := &mockBooks{}
	w := &mockWriter{}

	p := newTestPipeline(&mockMatcher{subs: []*domain.IndexSubscription{sub}}, w, &mockConns{}, books, nil, nil)

	summary := p.ProcessBatch(context.Background(), []json.RawMessage{payload("sig5", "TRANSFER")})
	if summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(w.written) != 0 {
		t.Errorf("expected no writes, got %v", w.written)
	}
	if _, ok := books.errorsRecorded["sub-a"]; !ok {
		t.Error("expected error recorded against sub-a")
	}
}

func TestProcessBatchDuplicateSignatureSkipsWrite(t *testing.T) {
	sub := transferSub("sub-a", "conn-1")
	conns := &mockConns{conns: map[string]*domain.DatabaseConnection{"conn-1": {ID: "conn-1"}}}
	w := &mockWriter{}
	dedup := &mockDedup{seen: map[string]bool{"sub-a:sig6": true}}

	p := newTestPipeline(&mockMatcher{subs: []*domain.IndexSubscription{sub}}, w, conns, &mockBooks{}, nil, dedup)

	summary := p.ProcessBatch(context.Background(), []json.RawMessage{payload("sig6", "TRANSFER")})
	if summary.Processed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(w.written) != 0 {
		t.Errorf("duplicate should not be written, got %v", w.written)
	}
}

func TestProcessBatchRedeliveryAfterFailedWriteRetries(t *testing.T) {
	sub := transferSub("sub-a", "conn-1")
	conns := &mockConns{conns: map[string]*domain.DatabaseConnection{"conn-1": {ID: "conn-1"}}}
	w := &mockWriter{failFor: map[string]error{"sub-a": errors.New("tenant down")}}
	dedup := &mockDedup{}

	p := newTestPipeline(&mockMatcher{subs: []*domain.IndexSubscription{sub}}, w, conns, &mockBooks{}, nil, dedup)

	// First delivery: the tenant write fails, so the guard entry must be
	// released rather than left marking an event that was never written.
	summary := p.ProcessBatch(context.Background(), []json.RawMessage{payload("sig-redeliver", "TRANSFER")})
	if summary.Failed != 1 {
		t.Fatalf("unexpected first summary: %+v", summary)
	}

	// Redelivery after the tenant recovers must write, not be dropped as
	// a duplicate.
	w.failFor = nil
	summary = p.ProcessBatch(context.Background(), []json.RawMessage{payload("sig-redeliver", "TRANSFER")})
	if summary.Processed != 1 {
		t.Fatalf("unexpected redelivery summary: %+v", summary)
	}
	if len(w.written) != 1 || w.written[0] != "sub-a" {
		t.Fatalf("expected redelivery to write, got %v", w.written)
	}

	// A third delivery is now a real duplicate and is skipped.
	summary = p.ProcessBatch(context.Background(), []json.RawMessage{payload("sig-redeliver", "TRANSFER")})
	if summary.Processed != 1 {
		t.Fatalf("unexpected duplicate summary: %+v", summary)
	}
	if len(w.written) != 1 {
		t.Fatalf("duplicate must not be written again, got %v", w.written)
	}
}

func TestProcessBatchDedupFailureStillWrites(t *testing.T) {
	sub := transferSub("sub-a", "conn-1")
	conns := &mockConns{conns: map[string]*domain.DatabaseConnection{"conn-1": {ID: "conn-1"}}}
	w := &mockWriter{}
	dedup := &mockDedup{err: errors.New("redis unavailable")}

	p := newTestPipeline(&mockMatcher{subs: []*domain.IndexSubscription{sub}}, w, conns, &mockBooks{}, nil, dedup)

	summary := p.ProcessBatch(context.Background(), []json.RawMessage{payload("sig7", "TRANSFER")})
	if summary.Processed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(w.written) != 1 {
		t.Errorf("guard failure must not block the write, got %v", w.written)
	}
}

func TestProcessBatchMatcherFailure(t *testing.T) {
	p := newTestPipeline(&mockMatcher{err: errors.New("db down")}, &mockWriter{}, &mockConns{}, &mockBooks{}, nil, nil)

	summary := p.ProcessBatch(context.Background(), []json.RawMessage{payload("sig8", "TRANSFER")})
	if summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
