package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nitishxyz/chainhook/internal/core/domain"
)

// ConnectionRepo implements storage.ConnectionRepository using PostgreSQL.
type ConnectionRepo struct {
	db *DB
}

// NewConnectionRepo creates a new PostgreSQL connection repository.
func NewConnectionRepo(db *DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

// GetByID fetches a tenant connection by id, or nil when absent.
func (r *ConnectionRepo) GetByID(ctx context.Context, id string) (*domain.DatabaseConnection, error) {
	var conn domain.DatabaseConnection
	query := `
		SELECT id, user_id, name, host, port, username, password, database,
		       ssl_mode, status, last_connected_at, last_error, created_at, updated_at
		FROM database_connections
		WHERE id = $1
	`
	err := r.db.GetContext(ctx, &conn, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	return &conn, nil
}

// MarkConnected records a successful connection to the tenant database.
func (r *ConnectionRepo) MarkConnected(ctx context.Context, id string) error {
	query := `
		UPDATE database_connections
		SET status = 'active', last_connected_at = NOW(), last_error = NULL, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark connection active: %w", err)
	}
	return nil
}

// MarkError records a connection failure.
func (r *ConnectionRepo) MarkError(ctx context.Context, id, message string) error {
	query := `
		UPDATE database_connections
		SET status = 'error', last_error = $2, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, message); err != nil {
		return fmt.Errorf("failed to mark connection error: %w", err)
	}
	return nil
}
