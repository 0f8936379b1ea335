package gateway

import (
	"log/slog"
	"time"

	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/gitsync"
	"github.com/speckit/gateway/observability"
	"github.com/speckit/gateway/store"
)

// Option configures a Gateway instance.
type Option func(*Gateway) error

// WithStore sets the persistence backend for the Gateway instance.
func WithStore(s store.Store) Option {
	return func(g *Gateway) error {
		g.store = s
		return nil
	}
}

// WithLogger sets the structured logger for the Gateway instance.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		g.logger = logger
		return nil
	}
}

// WithQuotas sets the per-tier request quota table. The table is validated
// when the Gateway is created.
func WithQuotas(q credential.Quotas) Option {
	return func(g *Gateway) error {
		g.config.Quotas = q
		return nil
	}
}

// WithConcurrency sets the number of delivery worker goroutines.
func WithConcurrency(n int) Option {
	return func(g *Gateway) error {
		g.config.Concurrency = n
		return nil
	}
}

// WithDeliveryTimeout sets the HTTP timeout per webhook delivery attempt.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(g *Gateway) error {
		g.config.DeliveryTimeout = d
		return nil
	}
}

// WithSyncTimeout sets the HTTP timeout per remote sync call.
func WithSyncTimeout(d time.Duration) Option {
	return func(g *Gateway) error {
		g.config.SyncTimeout = d
		return nil
	}
}

// WithAPIVersion sets the version stamped into every response envelope.
func WithAPIVersion(v string) Option {
	return func(g *Gateway) error {
		g.config.APIVersion = v
		return nil
	}
}

// WithSyncHost sets the content-hosting collaborator syncs push to. Defaults
// to the GitHub contents API.
func WithSyncHost(h gitsync.Host) Option {
	return func(g *Gateway) error {
		g.syncHost = h
		return nil
	}
}

// WithSyncBaseURL overrides the default sync host's API root. Ignored when
// WithSyncHost supplies a host.
func WithSyncBaseURL(u string) Option {
	return func(g *Gateway) error {
		g.config.SyncBaseURL = u
		return nil
	}
}

// WithTokenSource sets the resolver for tenants' stored remote credentials.
func WithTokenSource(ts gitsync.TokenSource) Option {
	return func(g *Gateway) error {
		g.tokens = ts
		return nil
	}
}

// WithArtifactSource sets the source of the generated artifacts syncs push.
func WithArtifactSource(as gitsync.ArtifactSource) Option {
	return func(g *Gateway) error {
		g.artifacts = as
		return nil
	}
}

// WithMetrics sets the metric instruments used across the gateway.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) error {
		g.metrics = m
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer used for deliveries and syncs.
func WithTracer(t *observability.Tracer) Option {
	return func(g *Gateway) error {
		g.tracer = t
		return nil
	}
}

// WithCounterSweepInterval sets how often expired rate-limit windows are
// cleaned up when the counter store sweeps in process.
func WithCounterSweepInterval(d time.Duration) Option {
	return func(g *Gateway) error {
		g.config.SweepInterval = d
		return nil
	}
}
