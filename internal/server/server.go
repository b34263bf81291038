// Package server exposes the service's HTTP surface: the provider webhook
// receiver, the synchronous connection test, health, and metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nitishxyz/chainhook/internal/core/domain"
	"github.com/nitishxyz/chainhook/internal/infra/tenant"
	"github.com/nitishxyz/chainhook/internal/ingest/metrics"
	"github.com/nitishxyz/chainhook/internal/ingest/pipeline"
)

// maxBodyBytes caps webhook request bodies. Provider batches are at most
// a few hundred transactions.
const maxBodyBytes = 16 << 20

// Pinger reports system-of-record database health.
type Pinger interface {
	Health(ctx context.Context) error
}

// SubscriptionService runs subscription lifecycle operations.
type SubscriptionService interface {
	Provision(ctx context.Context, subscriptionID string) error
	AppendAddresses(ctx context.Context, subscriptionID string, addresses []string) error
	RemoveAddresses(ctx context.Context, subscriptionID string, addresses []string) error
}

// Server is the HTTP front of the ingestion service.
type Server struct {
	pipeline *pipeline.Pipeline
	tenants  *tenant.Manager
	subs     SubscriptionService
	db       Pinger
	log      *slog.Logger
	server   *http.Server
}

// NewServer creates the HTTP server and wires its routes.
func NewServer(
	p *pipeline.Pipeline,
	tenants *tenant.Manager,
	subs SubscriptionService,
	db Pinger,
	port int,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()
	s := &Server{
		pipeline: p,
		tenants:  tenants,
		subs:     subs,
		db:       db,
		log:      log,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("POST /v1/webhooks/helius", s.handleWebhook)
	mux.HandleFunc("POST /v1/connections/test", s.handleConnectionTest)
	mux.HandleFunc("POST /v1/subscriptions/{id}/provision", s.handleProvision)
	mux.HandleFunc("POST /v1/subscriptions/{id}/addresses", s.handleAppendAddresses)
	mux.HandleFunc("DELETE /v1/subscriptions/{id}/addresses", s.handleRemoveAddresses)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the route mux, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// handleWebhook receives a provider push: a JSON array of enhanced
// transactions. Only a body that cannot be parsed as an array fails the
// request; per-item problems are absorbed by the pipeline and reported in
// the summary.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to read request body",
		})
		return
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		metrics.WebhookBatches.WithLabelValues("rejected").Inc()
		s.log.Error("Rejected webhook batch", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "invalid webhook payload: expected a JSON array",
		})
		return
	}

	summary := s.pipeline.ProcessBatch(r.Context(), items)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("processed %d of %d transactions (%d skipped, %d failed)",
			summary.Processed, summary.Total, summary.Skipped, summary.Failed),
		"summary": summary,
	})
}

type connectionTestRequest struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// handleConnectionTest verifies tenant credentials synchronously. Failures
// are classified into a user-facing message and status code; credentials
// never appear in the response or logs.
func (s *Server) handleConnectionTest(w http.ResponseWriter, r *http.Request) {
	var req connectionTestRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
		return
	}
	if req.Host == "" || req.Database == "" || req.Username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "host, username and database are required",
		})
		return
	}

	conn := &domain.DatabaseConnection{
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
		Database: req.Database,
		SSLMode:  req.SSLMode,
	}

	result, err := s.tenants.Test(r.Context(), conn)
	if err != nil {
		ce := tenant.Classify(err)
		s.log.Warn("Connection test failed", "host", req.Host, "kind", ce.Kind)
		writeJSON(w, ce.Status, map[string]string{
			"status": "error",
			"error":  ce.Message,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"version": result.Version,
		"schemas": result.Schemas,
	})
}

// handleProvision deploys a subscription's destination table and activates
// it. The call is synchronous: the caller learns immediately whether the
// tenant deployment succeeded.
func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.subs.Provision(r.Context(), id); err != nil {
		s.log.Warn("Provisioning failed", "subscription", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "subscription provisioned",
	})
}

type addressesRequest struct {
	Addresses []string `json:"addresses"`
}

func (s *Server) handleAppendAddresses(w http.ResponseWriter, r *http.Request) {
	s.handleAddressEdit(w, r, s.subs.AppendAddresses)
}

func (s *Server) handleRemoveAddresses(w http.ResponseWriter, r *http.Request) {
	s.handleAddressEdit(w, r, s.subs.RemoveAddresses)
}

func (s *Server) handleAddressEdit(
	w http.ResponseWriter,
	r *http.Request,
	edit func(ctx context.Context, subscriptionID string, addresses []string) error,
) {
	var req addressesRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
		return
	}
	if len(req.Addresses) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "addresses are required",
		})
		return
	}

	id := r.PathValue("id")
	if err := edit(r.Context(), id, req.Addresses); err != nil {
		s.log.Warn("Address edit failed", "subscription", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "addresses updated",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
