// Package api provides the public HTTP API: the gated request pipeline
// (authentication, CORS, rate limiting) and the resource routes behind it.
//
// All routes are mounted under /v1.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/speckit/gateway/catalog"
	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/delivery"
	"github.com/speckit/gateway/envelope"
	"github.com/speckit/gateway/gitsync"
	"github.com/speckit/gateway/observability"
	"github.com/speckit/gateway/ratelimit"
	"github.com/speckit/gateway/subscription"
)

// Config wires the handler's collaborators.
type Config struct {
	Credentials   *credential.Service
	Subscriptions *subscription.Service
	Syncs         *gitsync.Service
	Engine        *delivery.Engine
	DeliveryLog   delivery.LogStore
	Limiter       *ratelimit.Limiter
	Catalog       *catalog.Catalog
	Validator     *catalog.Validator
	APIVersion    string
	Metrics       *observability.Metrics
	Logger        *slog.Logger
}

// Handler is the root HTTP handler for the public API.
type Handler struct {
	creds     *credential.Service
	subs      *subscription.Service
	syncs     *gitsync.Service
	engine    *delivery.Engine
	log       delivery.LogStore
	limiter   *ratelimit.Limiter
	catalog   *catalog.Catalog
	validator *catalog.Validator
	build     *envelope.Builder
	metrics   *observability.Metrics
	logger    *slog.Logger
	mux       *http.ServeMux
}

// NewHandler creates the public API handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "v1"
	}

	h := &Handler{
		creds:     cfg.Credentials,
		subs:      cfg.Subscriptions,
		syncs:     cfg.Syncs,
		engine:    cfg.Engine,
		log:       cfg.DeliveryLog,
		limiter:   cfg.Limiter,
		catalog:   cfg.Catalog,
		validator: cfg.Validator,
		build:     envelope.NewBuilder(apiVersion),
		metrics:   cfg.Metrics,
		logger:    logger,
		mux:       http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	// Webhook subscriptions
	h.mux.HandleFunc("POST /v1/subscriptions", h.createSubscription)
	h.mux.HandleFunc("GET /v1/subscriptions", h.listSubscriptions)
	h.mux.HandleFunc("GET /v1/subscriptions/{id}", h.getSubscription)
	h.mux.HandleFunc("PUT /v1/subscriptions/{id}", h.updateSubscription)
	h.mux.HandleFunc("DELETE /v1/subscriptions/{id}", h.deleteSubscription)
	h.mux.HandleFunc("PATCH /v1/subscriptions/{id}/toggle", h.toggleSubscription)
	h.mux.HandleFunc("PATCH /v1/subscriptions/{id}/disable", h.disableSubscription)
	h.mux.HandleFunc("POST /v1/subscriptions/{id}/test", h.testSubscription)
	h.mux.HandleFunc("GET /v1/subscriptions/{id}/deliveries", h.listDeliveries)

	// Events
	h.mux.HandleFunc("POST /v1/events", h.publishEvent)
	h.mux.HandleFunc("GET /v1/event-types", h.listEventTypes)

	// Sync configs. Mounted only when an external connection is configured;
	// otherwise the paths fall through to the mux 404.
	if h.syncs != nil {
		h.mux.HandleFunc("POST /v1/sync-configs", h.createSyncConfig)
		h.mux.HandleFunc("GET /v1/sync-configs", h.listSyncConfigs)
		h.mux.HandleFunc("GET /v1/sync-configs/{id}", h.getSyncConfig)
		h.mux.HandleFunc("PUT /v1/sync-configs/{id}", h.updateSyncConfig)
		h.mux.HandleFunc("DELETE /v1/sync-configs/{id}", h.deleteSyncConfig)
		h.mux.HandleFunc("POST /v1/sync-configs/{id}/sync", h.triggerSync)
	}

	// API keys
	h.mux.HandleFunc("POST /v1/keys", h.issueKey)
	h.mux.HandleFunc("GET /v1/keys", h.listKeys)
	h.mux.HandleFunc("GET /v1/keys/{id}", h.getKey)
	h.mux.HandleFunc("DELETE /v1/keys/{id}", h.revokeKey)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.withMiddleware(h.mux).ServeHTTP(w, r)
}

func (h *Handler) withMiddleware(next http.Handler) http.Handler {
	return h.panicRecovery(h.logging(h.gate(next)))
}

func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		// Null until the gate authenticates the request.
		var credID any
		if rw.credentialID != "" {
			credID = rw.credentialID
		}
		h.logger.Info("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"credential_id", credID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *Handler) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("panic recovered",
					"error", rec,
					"stack", string(debug.Stack()),
				)
				h.writeError(w, envelope.CodeInternalError, "internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code and
// the credential the gate resolved, so the logging middleware outside the
// gate can report both.
type responseWriter struct {
	http.ResponseWriter
	status       int
	credentialID string
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Envelope helpers.

func (h *Handler) writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, h.build.Success(data))
}

func (h *Handler) writeList(w http.ResponseWriter, items any, page envelope.Page, total int) {
	writeJSON(w, http.StatusOK, h.build.List(items, page, total))
}

func (h *Handler) writeError(w http.ResponseWriter, code envelope.Code, msg string, details any) {
	writeJSON(w, code.Status(), h.build.Error(code, msg, details))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best effort
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
