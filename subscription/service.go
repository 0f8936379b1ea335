package subscription

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/speckit/gateway/catalog"
	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/internal/entity"
	"github.com/speckit/gateway/signature"
)

// Service provides subscription management operations.
type Service struct {
	store   Store
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewService creates a new subscription service.
func NewService(store Store, cat *catalog.Catalog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		catalog: cat,
		logger:  logger,
	}
}

// Created pairs a stored subscription with its plaintext signing secret.
// The secret appears in the creation response only.
type Created struct {
	Subscription *Subscription `json:"subscription"`
	Secret       string        `json:"secret"`
}

// Create registers a new webhook subscription and issues its signing secret.
func (svc *Service) Create(ctx context.Context, in Input) (*Created, error) {
	if in.TenantID == "" {
		return nil, &ValidationError{Field: "tenant_id", Message: "required"}
	}
	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	if err := svc.validateURL(in.URL); err != nil {
		return nil, err
	}
	if err := svc.validateEvents(in.Events); err != nil {
		return nil, err
	}

	sub := &Subscription{
		Entity:        entity.New(),
		ID:            id.NewSubscriptionID(),
		TenantID:      in.TenantID,
		Name:          in.Name,
		URL:           in.URL,
		Events:        in.Events,
		PayloadFields: in.PayloadFields,
		Secret:        signature.GenerateSecret(),
		Status:        StatusActive,
	}

	if err := svc.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	svc.logger.InfoContext(ctx, "subscription created",
		"subscription_id", sub.ID, "tenant_id", sub.TenantID, "events", len(sub.Events))

	return &Created{Subscription: sub, Secret: sub.Secret}, nil
}

// Get returns a subscription by ID.
func (svc *Service) Get(ctx context.Context, subID id.ID) (*Subscription, error) {
	return svc.store.GetSubscription(ctx, subID)
}

// Update modifies name, URL, event set, or payload-field filter. The signing
// secret is never regenerated here. Editing a disabled subscription is the
// only path that can re-activate it.
func (svc *Service) Update(ctx context.Context, subID id.ID, in Input) (*Subscription, error) {
	sub, err := svc.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		sub.Name = in.Name
	}
	if in.URL != "" {
		if err := svc.validateURL(in.URL); err != nil {
			return nil, err
		}
		sub.URL = in.URL
	}
	if in.Events != nil {
		if err := svc.validateEvents(in.Events); err != nil {
			return nil, err
		}
		sub.Events = in.Events
	}
	if in.PayloadFields != nil {
		sub.PayloadFields = in.PayloadFields
	}
	if sub.Status == StatusDisabled {
		sub.Status = StatusActive
	}
	sub.Touch()

	if err := svc.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

// Toggle switches between active and paused. Disabled is terminal for this
// operation; reaching it requires Disable, leaving it requires Update.
func (svc *Service) Toggle(ctx context.Context, subID id.ID) (*Subscription, error) {
	sub, err := svc.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}

	switch sub.Status {
	case StatusActive:
		sub.Status = StatusPaused
	case StatusPaused:
		sub.Status = StatusActive
	case StatusDisabled:
		return nil, ErrDisabled
	}
	sub.Touch()

	if err := svc.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Disable moves a subscription to the terminal disabled state.
func (svc *Service) Disable(ctx context.Context, subID id.ID) (*Subscription, error) {
	sub, err := svc.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}

	sub.Status = StatusDisabled
	sub.Touch()

	if err := svc.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	svc.logger.InfoContext(ctx, "subscription disabled", "subscription_id", subID)
	return sub, nil
}

// Delete removes a subscription. Deliveries already dispatched are not
// recalled.
func (svc *Service) Delete(ctx context.Context, subID id.ID) error {
	return svc.store.DeleteSubscription(ctx, subID)
}

// List returns subscriptions for a tenant.
func (svc *Service) List(ctx context.Context, tenantID string, opts ListOpts) ([]*Subscription, error) {
	return svc.store.ListSubscriptions(ctx, tenantID, opts)
}

// Count returns the total subscription count for a tenant.
func (svc *Service) Count(ctx context.Context, tenantID string, opts ListOpts) (int, error) {
	return svc.store.CountSubscriptions(ctx, tenantID, opts)
}

func (svc *Service) validateURL(raw string) error {
	if raw == "" {
		return &ValidationError{Field: "url", Message: "required"}
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return &ValidationError{Field: "url", Message: "invalid URL"}
	}
	if u.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "scheme must be https"}
	}
	if u.Host == "" {
		return &ValidationError{Field: "url", Message: "host is required"}
	}
	return nil
}

func (svc *Service) validateEvents(events []string) error {
	if len(events) == 0 {
		return &ValidationError{Field: "events", Message: "at least one event type required"}
	}
	seen := make(map[string]bool, len(events))
	for _, e := range events {
		if !svc.catalog.Valid(e) {
			return &ValidationError{Field: "events", Message: "unknown event type " + e}
		}
		if seen[e] {
			return &ValidationError{Field: "events", Message: "duplicate event type " + e}
		}
		seen[e] = true
	}
	return nil
}

// ValidationError indicates invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "subscription validation: " + e.Field + ": " + e.Message
}
