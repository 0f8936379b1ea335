package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/speckit/gateway/api"
	"github.com/speckit/gateway/catalog"
	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/delivery"
	"github.com/speckit/gateway/gitsync"
	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/observability"
	"github.com/speckit/gateway/ratelimit"
	"github.com/speckit/gateway/store"
	"github.com/speckit/gateway/subscription"
)

// Gateway is the root public-API gateway: the gated request pipeline, the
// webhook subscription registry and delivery engine, and the external sync
// pusher, wired over one store.
type Gateway struct {
	config    Config
	store     store.Store
	catalog   *catalog.Catalog
	validator *catalog.Validator
	credSvc   *credential.Service
	subSvc    *subscription.Service
	syncSvc   *gitsync.Service
	limiter   *ratelimit.Limiter
	engine    *delivery.Engine
	handler   *api.Handler
	syncHost  gitsync.Host
	tokens    gitsync.TokenSource
	artifacts gitsync.ArtifactSource
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	logger    *slog.Logger

	cancelSweep context.CancelFunc
}

// New creates a new Gateway with the given options.
func New(opts ...Option) (*Gateway, error) {
	g := &Gateway{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	if g.store == nil {
		return nil, ErrNoStore
	}
	if err := g.wireServices(); err != nil {
		return nil, err
	}
	return g, nil
}

// wireServices initializes the internal services after options have been
// applied.
func (g *Gateway) wireServices() error {
	g.catalog = catalog.New()
	g.validator = catalog.NewValidator()

	limiter, err := ratelimit.NewLimiter(g.store, g.config.Quotas)
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	g.limiter = limiter

	g.credSvc = credential.NewService(g.store, g.logger)
	g.subSvc = subscription.NewService(g.store, g.catalog, g.logger)

	g.engine = delivery.NewEngine(g.store, g.store, delivery.EngineConfig{
		Concurrency:    g.config.Concurrency,
		RequestTimeout: g.config.DeliveryTimeout,
		Metrics:        g.metrics,
		Tracer:         g.tracer,
	}, g.logger)

	if g.syncHost == nil {
		g.syncHost = gitsync.NewGitHubHost(g.config.SyncBaseURL, g.config.SyncTimeout)
	}
	if g.tokens != nil && g.artifacts != nil {
		g.syncSvc = gitsync.NewService(g.store, g.syncHost, g.tokens, g.artifacts, g.metrics, g.tracer, g.logger)
	}

	g.handler = api.NewHandler(api.Config{
		Credentials:   g.credSvc,
		Subscriptions: g.subSvc,
		Syncs:         g.syncSvc,
		Engine:        g.engine,
		DeliveryLog:   g.store,
		Limiter:       g.limiter,
		Catalog:       g.catalog,
		Validator:     g.validator,
		APIVersion:    g.config.APIVersion,
		Metrics:       g.metrics,
		Logger:        g.logger,
	})
	return nil
}

// Start launches background work: the rate-limit window sweep when the
// counter store needs in-process cleanup.
func (g *Gateway) Start(ctx context.Context) {
	if sw, ok := g.store.(ratelimit.Sweeper); ok {
		ctx, g.cancelSweep = context.WithCancel(ctx)
		go sw.SweepEvery(ctx, g.config.SweepInterval)
	}
}

// Stop drains in-flight deliveries and stops background work.
func (g *Gateway) Stop(_ context.Context) {
	if g.cancelSweep != nil {
		g.cancelSweep()
	}
	g.engine.Close()
}

// Publish validates a domain event against the catalog and hands it to the
// delivery engine for asynchronous fan-out.
func (g *Gateway) Publish(ctx context.Context, evt *delivery.Event) error {
	def, ok := g.catalog.Get(evt.Type)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEventTypeUnknown, evt.Type)
	}
	if len(def.Schema) > 0 {
		if err := g.validator.Validate(def.Schema, evt.Data); err != nil {
			return errors.Join(ErrPayloadValidationFailed, err)
		}
	}
	if evt.ID.IsNil() {
		evt.ID = id.NewEventID()
	}

	return g.engine.Publish(ctx, evt)
}

// Handler returns the public API's http.Handler, gate included.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Credentials returns the API credential service.
func (g *Gateway) Credentials() *credential.Service {
	return g.credSvc
}

// Subscriptions returns the webhook subscription service.
func (g *Gateway) Subscriptions() *subscription.Service {
	return g.subSvc
}

// Syncs returns the external sync service, nil when no token and artifact
// sources were configured.
func (g *Gateway) Syncs() *gitsync.Service {
	return g.syncSvc
}

// Catalog returns the event type catalog.
func (g *Gateway) Catalog() *catalog.Catalog {
	return g.catalog
}

// Store returns the underlying store.
func (g *Gateway) Store() store.Store {
	return g.store
}
