package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookBatches tracks received webhook batches by outcome
	WebhookBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainhook_webhook_batches_total",
			Help: "Total number of webhook batches received",
		},
		[]string{"outcome"},
	)

	// TransactionsProcessed tracks transactions handled per category
	TransactionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainhook_transactions_processed_total",
			Help: "Total number of transactions processed",
		},
		[]string{"category"},
	)

	// TransactionsSkipped tracks per-item skips by reason
	TransactionsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainhook_transactions_skipped_total",
			Help: "Total number of transactions skipped",
		},
		[]string{"reason"},
	)

	// SubscriptionWrites tracks tenant writes per category and outcome
	SubscriptionWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainhook_subscription_writes_total",
			Help: "Total number of per-subscription tenant writes",
		},
		[]string{"category", "outcome"},
	)

	// TenantWriteLatency tracks tenant write latency including connection setup
	TenantWriteLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chainhook_tenant_write_latency_seconds",
			Help:    "Tenant write latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category"},
	)

	// SchemaDeployments tracks schema deployments by outcome
	SchemaDeployments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainhook_schema_deployments_total",
			Help: "Total number of schema deployments",
		},
		[]string{"outcome"},
	)

	// DBConnectionPoolUsage tracks system-of-record pool usage percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainhook_db_connection_pool_usage",
			Help: "System-of-record connection pool usage percentage",
		},
	)
)
