package domain

import "time"

// ConnectionStatus is the lifecycle state of a tenant database connection.
type ConnectionStatus string

const (
	ConnectionPending ConnectionStatus = "pending"
	ConnectionActive  ConnectionStatus = "active"
	ConnectionError   ConnectionStatus = "error"
)

// DatabaseConnection holds a tenant's external Postgres credentials.
// A connection is owned by exactly one platform user and is never shared.
type DatabaseConnection struct {
	ID              string           `db:"id"`
	UserID          string           `db:"user_id"`
	Name            string           `db:"name"`
	Host            string           `db:"host"`
	Port            int              `db:"port"`
	Username        string           `db:"username"`
	Password        string           `db:"password"`
	Database        string           `db:"database"`
	SSLMode         string           `db:"ssl_mode"`
	Status          ConnectionStatus `db:"status"`
	LastConnectedAt *time.Time       `db:"last_connected_at"`
	LastError       *string          `db:"last_error"`
	CreatedAt       time.Time        `db:"created_at"`
	UpdatedAt       *time.Time       `db:"updated_at"`
}
