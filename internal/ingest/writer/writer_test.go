package writer

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"

	"github.com/nitishxyz/chainhook/internal/core/domain"
)

// recordingDriver is a database/sql driver that records executed statements.
type recordingDriver struct {
	mu      sync.Mutex
	queries []string
	execErr error
}

func (d *recordingDriver) Open(name string) (driver.Conn, error) {
	return &recordingConn{d: d}, nil
}

type recordingConn struct{ d *recordingDriver }

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}
func (c *recordingConn) Close() error              { return nil }
func (c *recordingConn) Begin() (driver.Tx, error) { return nil, errors.New("tx not supported") }

func (c *recordingConn) ExecContext(
	ctx context.Context,
	query string,
	args []driver.NamedValue,
) (driver.Result, error) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	if c.d.execErr != nil {
		return nil, c.d.execErr
	}
	c.d.queries = append(c.d.queries, query)
	return driver.RowsAffected(1), nil
}

var (
	testDriver = &recordingDriver{}
	driverOnce sync.Once
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	driverOnce.Do(func() {
		sql.Register("recording", testDriver)
	})
	db, err := sql.Open("recording", "")
	if err != nil {
		t.Fatalf("Failed to open recording db: %v", err)
	}
	return db
}

type fakeTenantRunner struct {
	db  *sql.DB
	err error
}

func (f *fakeTenantRunner) WithConn(
	ctx context.Context,
	conn *domain.DatabaseConnection,
	fn func(db *sql.DB) error,
) error {
	if f.err != nil {
		return f.err
	}
	return fn(f.db)
}

type fakeBookkeeper struct {
	indexed []string
	errors  map[string]string
}

func newFakeBookkeeper() *fakeBookkeeper {
	return &fakeBookkeeper{errors: make(map[string]string)}
}

func (f *fakeBookkeeper) RecordIndexed(ctx context.Context, id string) error {
	f.indexed = append(f.indexed, id)
	return nil
}

func (f *fakeBookkeeper) RecordError(ctx context.Context, id, message string) error {
	f.errors[id] = message
	return nil
}

func TestWrite_Success(t *testing.T) {
	testDriver.queries = nil
	testDriver.execErr = nil

	books := newFakeBookkeeper()
	w := NewWriter(&fakeTenantRunner{db: testDB(t)}, books, nil)

	tx := &domain.CanonicalTransaction{
		Signature: "sig1",
		FeePayer:  "payer",
		NativeTransfers: []domain.NativeTransfer{
			{FromAddress: "a", ToAddress: "b", AmountLamports: 10},
		},
	}
	sub := &domain.IndexSubscription{
		ID: "sub1", IndexTypeID: "TRANSFER", TargetSchema: "public", TargetTable: "transfers",
	}

	if err := w.Write(context.Background(), tx, sub, &domain.DatabaseConnection{}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if len(testDriver.queries) != 1 {
		t.Fatalf("Expected 1 tenant INSERT, got %d", len(testDriver.queries))
	}
	if len(books.indexed) != 1 || books.indexed[0] != "sub1" {
		t.Errorf("Expected bookkeeping for sub1, got %v", books.indexed)
	}
	if len(books.errors) != 0 {
		t.Errorf("Expected no error records, got %v", books.errors)
	}
}

func TestWrite_TenantFailureSkipsBookkeeping(t *testing.T) {
	books := newFakeBookkeeper()
	runner := &fakeTenantRunner{err: errors.New("dial tcp: connection refused")}
	w := NewWriter(runner, books, nil)

	tx := &domain.CanonicalTransaction{
		Signature:       "sig1",
		NativeTransfers: []domain.NativeTransfer{{FromAddress: "a", ToAddress: "b", AmountLamports: 1}},
	}
	sub := &domain.IndexSubscription{
		ID: "sub1", IndexTypeID: "TRANSFER", TargetSchema: "public", TargetTable: "transfers",
	}

	err := w.Write(context.Background(), tx, sub, &domain.DatabaseConnection{})
	if err == nil {
		t.Fatal("Expected write error")
	}

	if len(books.indexed) != 0 {
		t.Error("Expected no index count increment on tenant failure")
	}
	if _, ok := books.errors["sub1"]; !ok {
		t.Error("Expected last_error record for sub1")
	}
}

func TestWrite_MappingFailureRecordsError(t *testing.T) {
	books := newFakeBookkeeper()
	w := NewWriter(&fakeTenantRunner{db: testDB(t)}, books, nil)

	// NFT mint without a token transfer has no describable row.
	tx := &domain.CanonicalTransaction{Signature: "sig1"}
	sub := &domain.IndexSubscription{
		ID: "sub1", IndexTypeID: "NFT_MINT", TargetSchema: "public", TargetTable: "mints",
	}

	if err := w.Write(context.Background(), tx, sub, &domain.DatabaseConnection{}); err == nil {
		t.Fatal("Expected mapping error")
	}
	if len(books.indexed) != 0 {
		t.Error("Expected no bookkeeping on mapping failure")
	}
	if _, ok := books.errors["sub1"]; !ok {
		t.Error("Expected last_error record for sub1")
	}
}
