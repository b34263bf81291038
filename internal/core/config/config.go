package config

import (
	"time"

	"github.com/nitishxyz/chainhook/internal/infra/helius"
	redisclient "github.com/nitishxyz/chainhook/internal/infra/redis"
	"github.com/nitishxyz/chainhook/internal/infra/storage/postgres"
	"github.com/nitishxyz/chainhook/internal/infra/tenant"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Database postgres.Config    `yaml:"database"`
	Redis    redisclient.Config `yaml:"redis"`
	Tenant   tenant.Config      `yaml:"tenant"`
	Helius   helius.Config      `yaml:"helius"`
	Ingest   IngestConfig       `yaml:"ingest"`
	Logging  LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// IngestConfig holds webhook ingestion settings.
type IngestConfig struct {
	// DedupTTL is the window during which a redelivered signature is
	// dropped for a subscription. Zero disables the guard's expiry.
	DedupTTL time.Duration `yaml:"dedup_ttl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
