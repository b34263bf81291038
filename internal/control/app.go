// Package control assembles and runs the application: system-of-record
// storage, the ingestion pipeline, the subscription service, and the HTTP
// server.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nitishxyz/chainhook/internal/core/config"
	"github.com/nitishxyz/chainhook/internal/infra/helius"
	redisclient "github.com/nitishxyz/chainhook/internal/infra/redis"
	"github.com/nitishxyz/chainhook/internal/infra/storage/postgres"
	"github.com/nitishxyz/chainhook/internal/infra/tenant"
	"github.com/nitishxyz/chainhook/internal/ingest/deploy"
	"github.com/nitishxyz/chainhook/internal/ingest/filter"
	"github.com/nitishxyz/chainhook/internal/ingest/match"
	"github.com/nitishxyz/chainhook/internal/ingest/pipeline"
	"github.com/nitishxyz/chainhook/internal/ingest/writer"
	"github.com/nitishxyz/chainhook/internal/server"
	"github.com/nitishxyz/chainhook/internal/subscriptions"
)

// App is the assembled service.
type App struct {
	cfg           *config.AppConfig
	db            *postgres.DB
	redisClient   *redisclient.Client
	server        *server.Server
	Subscriptions *subscriptions.Service
	log           *slog.Logger
}

// NewApp wires every component from configuration. The system-of-record
// database is required; redis and the provider webhook API are optional.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	log := slog.Default()

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database.url is required")
	}

	// 1. System-of-record storage
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to init db: %w", err)
	}
	if err := db.Migrate("migrations"); err != nil {
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}

	subRepo := postgres.NewSubscriptionRepo(db)
	connRepo := postgres.NewConnectionRepo(db)
	catalogRepo := postgres.NewCatalogRepo(db)
	eventRepo := postgres.NewWebhookEventRepo(db)

	// 2. Warm the address pre-filter from active subscriptions
	addressFilter := filter.NewAddressFilter()
	addresses, err := subRepo.ListActiveAddresses(ctx)
	if err != nil {
		log.Warn("Failed to load watched addresses", "error", err)
	} else {
		addressFilter.AddBatch(addresses)
		log.Info("Loaded watched addresses into filter", "count", len(addresses))
	}

	// 3. Ingestion components
	tenants := tenant.NewManager(cfg.Tenant)
	matcher := match.NewMatcher(subRepo, addressFilter)
	eventWriter := writer.NewWriter(tenants, subRepo, log)

	var redisClient *redisclient.Client
	var dedup pipeline.Deduper
	if cfg.Redis.URL != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, signature guard disabled", "error", err)
		} else {
			dedup = redisClient
		}
	}

	pipe := pipeline.New(
		pipeline.Config{WebhookID: cfg.Helius.WebhookID, DedupTTL: cfg.Ingest.DedupTTL},
		matcher,
		eventWriter,
		connRepo,
		subRepo,
		eventRepo,
		dedup,
		log,
	)

	// 4. Subscription lifecycle
	deployer := deploy.NewDeployer(tenants, log)
	var webhookAPI subscriptions.WebhookAPI
	if cfg.Helius.APIKey != "" && cfg.Helius.WebhookID != "" {
		webhookAPI = helius.NewClient(cfg.Helius)
	} else {
		log.Warn("No provider webhook configured, address sync disabled")
	}
	subService := subscriptions.NewService(
		subRepo, connRepo, catalogRepo, deployer, webhookAPI, addressFilter, log)

	// 5. HTTP surface
	httpServer := server.NewServer(pipe, tenants, subService, db, cfg.Server.Port, log)

	return &App{
		cfg:           cfg,
		db:            db,
		redisClient:   redisClient,
		server:        httpServer,
		Subscriptions: subService,
		log:           log,
	}, nil
}

// Start starts the HTTP server and background collectors.
func (a *App) Start(ctx context.Context) error {
	a.db.StartMetricsCollector(ctx)

	go func() {
		a.log.Info("HTTP server listening", "port", a.cfg.Server.Port)
		if err := a.server.Start(); err != nil {
			a.log.Error("HTTP server failed", "error", err)
		}
	}()

	return nil
}

// Stop stops the application.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping chainhook...")

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}

	err := a.server.Stop(ctx)

	if a.db != nil {
		a.db.Close()
	}
	return err
}
