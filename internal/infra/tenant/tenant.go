// Package tenant manages short-lived connections to user-owned Postgres
// databases. Every acquisition is scoped: a connection is opened for one
// unit of work and torn down on every exit path, so credentials and sockets
// never leak across tenants.
package tenant

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // tenant databases use pgx via database/sql

	"github.com/nitishxyz/chainhook/internal/core/domain"
)

// Config holds tenant connection settings.
type Config struct {
	// ConnectTimeout bounds each connection attempt so one unreachable
	// tenant cannot stall a whole batch.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Manager opens scoped connections to tenant databases.
type Manager struct {
	connectTimeout time.Duration
}

// NewManager creates a tenant connection manager.
func NewManager(cfg Config) *Manager {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Manager{connectTimeout: timeout}
}

// DSN builds a connection string from a tenant's stored credentials.
func (m *Manager) DSN(conn *domain.DatabaseConnection) string {
	sslMode := conn.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	port := conn.Port
	if port == 0 {
		port = 5432
	}
	// url.URL escapes userinfo with the userinfo rules; query escaping
	// would turn a space in a password into a literal "+".
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(conn.Username, conn.Password),
		Host:   fmt.Sprintf("%s:%d", conn.Host, port),
		Path:   "/" + conn.Database,
		RawQuery: fmt.Sprintf(
			"sslmode=%s&connect_timeout=%d",
			sslMode,
			int(m.connectTimeout.Seconds()),
		),
	}
	return u.String()
}

// WithConn opens a connection to the tenant database, verifies it with a
// bounded ping, runs fn, and closes the pool regardless of outcome.
// Connection-level failures are returned as classified *ConnError values.
func (m *Manager) WithConn(
	ctx context.Context,
	conn *domain.DatabaseConnection,
	fn func(db *sql.DB) error,
) error {
	db, err := sql.Open("pgx", m.DSN(conn))
	if err != nil {
		return Classify(err)
	}
	defer db.Close()

	// One subscription write at a time; the pool exists only for the
	// lifetime of this call.
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return Classify(err)
	}

	return fn(db)
}

// TestResult describes a successful connection test against a tenant
// database.
type TestResult struct {
	Version string   `json:"version"`
	Schemas []string `json:"schemas"`
}

// Test verifies a tenant connection and reports server version and visible
// schemas. Used by the synchronous connection-test endpoint.
func (m *Manager) Test(ctx context.Context, conn *domain.DatabaseConnection) (*TestResult, error) {
	var result TestResult
	err := m.WithConn(ctx, conn, func(db *sql.DB) error {
		row := db.QueryRowContext(ctx, "SELECT split_part(version(), ' ', 2)")
		if err := row.Scan(&result.Version); err != nil {
			return fmt.Errorf("failed to read server version: %w", err)
		}

		rows, err := db.QueryContext(ctx, `
			SELECT schema_name FROM information_schema.schemata
			WHERE schema_name NOT IN ('information_schema', 'pg_catalog')
			ORDER BY schema_name
		`)
		if err != nil {
			return fmt.Errorf("failed to list schemas: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return fmt.Errorf("failed to scan schema name: %w", err)
			}
			result.Schemas = append(result.Schemas, name)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
