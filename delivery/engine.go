package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/internal/entity"
	"github.com/speckit/gateway/observability"
	"github.com/speckit/gateway/subscription"
)

// EngineConfig holds engine configuration.
type EngineConfig struct {
	Concurrency    int
	RequestTimeout time.Duration
	Metrics        *observability.Metrics
	Tracer         *observability.Tracer
}

// Engine fans events out to matching subscriptions on a bounded worker pool.
// Deliveries are fire-and-forget: each event gets exactly one attempt per
// subscription, with the outcome appended to the delivery log and rolled into
// the subscription's last-delivery summary. There is no automatic retry; the
// manual test trigger is the re-send mechanism.
type Engine struct {
	subs   subscription.Store
	log    LogStore
	sender *Sender
	config EngineConfig
	logger *slog.Logger

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewEngine creates a delivery engine.
func NewEngine(subs subscription.Store, log LogStore, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Engine{
		subs:   subs,
		log:    log,
		sender: NewSender(cfg.RequestTimeout),
		config: cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.Concurrency),
	}
}

// Publish fans evt out to every active subscription of the event's tenant
// whose event set contains evt.Type. Dispatch is asynchronous; Publish
// returns once every attempt has been handed to a worker. Fan-out survives
// cancellation of the inbound request context.
func (e *Engine) Publish(ctx context.Context, evt *Event) error {
	if evt.ID.IsNil() {
		evt.ID = id.NewEventID()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	matched, err := e.subs.Match(ctx, evt.TenantID, evt.Type)
	if err != nil {
		return err
	}

	sendCtx := context.WithoutCancel(ctx)
	for _, sub := range matched {
		e.sem <- struct{}{}
		e.wg.Add(1)
		go func(s *subscription.Subscription) {
			defer e.wg.Done()
			defer func() { <-e.sem }()
			e.deliver(sendCtx, s, evt, false)
		}(sub)
	}
	return nil
}

// TestSend synchronously pushes a sample event of the given type to one
// subscription and returns the recorded attempt. It ignores the
// subscription's status, so paused and disabled targets stay testable.
func (e *Engine) TestSend(ctx context.Context, sub *subscription.Subscription, eventType string) (*Delivery, error) {
	evt := &Event{
		ID:         id.NewEventID(),
		Type:       eventType,
		TenantID:   sub.TenantID,
		OccurredAt: time.Now().UTC(),
		Data: map[string]any{
			"test":            true,
			"subscription_id": sub.ID.String(),
		},
	}
	return e.deliver(ctx, sub, evt, true), nil
}

// Close waits for in-flight deliveries to finish.
func (e *Engine) Close() {
	e.wg.Wait()
}

// deliver performs one attempt and records the outcome.
func (e *Engine) deliver(ctx context.Context, sub *subscription.Subscription, evt *Event, manual bool) *Delivery {
	d := &Delivery{
		Entity:         entity.New(),
		ID:             id.NewDeliveryID(),
		SubscriptionID: sub.ID,
		EventID:        evt.ID,
		EventType:      evt.Type,
		TenantID:       sub.TenantID,
		Manual:         manual,
		AttemptedAt:    time.Now().UTC(),
	}

	var span trace.Span
	if e.config.Tracer != nil {
		ctx, span = e.config.Tracer.StartDeliverySpan(ctx, d.ID.String(), evt.ID.String(), sub.ID.String())
	}

	result := e.sender.Send(ctx, sub, evt, d)

	d.StatusCode = result.StatusCode
	d.Error = result.Error
	d.Response = result.Response
	d.LatencyMs = result.LatencyMs

	if e.config.Metrics != nil {
		status := "failed"
		if d.Succeeded() {
			status = "delivered"
		}
		e.config.Metrics.RecordDelivery(status, float64(result.LatencyMs)/1000.0)
	}
	if span != nil {
		e.config.Tracer.EndDeliverySpan(span, d.StatusCode, d.LatencyMs, d.Error)
	}

	if d.Succeeded() {
		e.logger.DebugContext(ctx, "delivered",
			"delivery_id", d.ID, "subscription_id", sub.ID, "status", d.StatusCode, "latency_ms", d.LatencyMs)
	} else {
		e.logger.WarnContext(ctx, "delivery failed",
			"delivery_id", d.ID, "subscription_id", sub.ID, "status", d.StatusCode, "error", d.Error)
	}

	if err := e.log.AppendDelivery(ctx, d); err != nil {
		e.logger.ErrorContext(ctx, "append delivery failed", "delivery_id", d.ID, "error", err)
	}
	if err := e.subs.RecordDeliverySummary(ctx, sub.ID, d.StatusCode, d.AttemptedAt); err != nil {
		e.logger.ErrorContext(ctx, "record delivery summary failed",
			"subscription_id", sub.ID, "error", err)
	}
	return d
}
