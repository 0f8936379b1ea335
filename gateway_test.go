package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/speckit/gateway"
	"github.com/speckit/gateway/catalog"
	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/delivery"
	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/internal/entity"
	"github.com/speckit/gateway/store/memory"
	"github.com/speckit/gateway/subscription"
)

func ctx() context.Context { return context.Background() }

func setup(t *testing.T) (*gateway.Gateway, *memory.Store) {
	t.Helper()
	s := memory.New()
	g, err := gateway.New(
		gateway.WithStore(s),
		gateway.WithConcurrency(2),
		gateway.WithDeliveryTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { g.Stop(ctx()) })
	return g, s
}

// subscribe seeds an active subscription through the store so tests can
// target a plain-HTTP httptest server without tripping the https-only rule.
func subscribe(t *testing.T, s *memory.Store, tenantID, url string, events []string) *subscription.Subscription {
	t.Helper()
	sub := &subscription.Subscription{
		Entity:   entity.New(),
		ID:       id.NewSubscriptionID(),
		TenantID: tenantID,
		Name:     "hook",
		URL:      url,
		Events:   events,
		Secret:   "whsec_test_secret_1234567890abcdef1234567890abcdef",
		Status:   subscription.StatusActive,
	}
	if err := s.CreateSubscription(ctx(), sub); err != nil {
		t.Fatal(err)
	}
	return sub
}

func TestNewRequiresStore(t *testing.T) {
	_, err := gateway.New()
	if !errors.Is(err, gateway.ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
}

func TestNewRejectsBrokenQuotas(t *testing.T) {
	_, err := gateway.New(
		gateway.WithStore(memory.New()),
		gateway.WithQuotas(credential.Quotas{credential.TierFree: 10}),
	)
	if err == nil {
		t.Fatal("expected quota validation error")
	}
}

func TestPublishHappyPath(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g, s := setup(t)
	sub := subscribe(t, s, "t1", srv.URL, []string{"spec.created"})

	err := g.Publish(ctx(), &delivery.Event{
		Type:     "spec.created",
		TenantID: "t1",
		Data:     map[string]any{"spec_id": "spec-1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	g.Stop(ctx())

	if hits.Load() != 1 {
		t.Fatalf("expected 1 delivery, got %d", hits.Load())
	}

	got, err := g.Store().GetSubscription(ctx(), sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastDeliveryStatus == nil || *got.LastDeliveryStatus != 200 {
		t.Errorf("last delivery status = %v", got.LastDeliveryStatus)
	}
}

func TestPublishUnknownType(t *testing.T) {
	g, _ := setup(t)

	err := g.Publish(ctx(), &delivery.Event{
		Type:     "spec.exploded",
		TenantID: "t1",
		Data:     map[string]any{},
	})
	if !errors.Is(err, gateway.ErrEventTypeUnknown) {
		t.Fatalf("expected ErrEventTypeUnknown, got %v", err)
	}
}

func TestPublishSchemaValidation(t *testing.T) {
	g, _ := setup(t)

	schema, _ := json.Marshal(map[string]any{
		"type":     "object",
		"required": []string{"spec_id"},
		"properties": map[string]any{
			"spec_id": map[string]any{"type": "string"},
		},
	})
	if !g.Catalog().SetSchema(catalog.SpecCreated, schema) {
		t.Fatal("failed to attach schema")
	}

	err := g.Publish(ctx(), &delivery.Event{
		Type:     catalog.SpecCreated,
		TenantID: "t1",
		Data:     map[string]any{"title": "no id"},
	})
	if !errors.Is(err, gateway.ErrPayloadValidationFailed) {
		t.Fatalf("expected ErrPayloadValidationFailed, got %v", err)
	}

	err = g.Publish(ctx(), &delivery.Event{
		Type:     catalog.SpecCreated,
		TenantID: "t1",
		Data:     map[string]any{"spec_id": "spec-1"},
	})
	if err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
}

func TestHandlerEndToEnd(t *testing.T) {
	g, _ := setup(t)

	issued, err := g.Credentials().Issue(ctx(), credential.Input{
		TenantID: "t1",
		Name:     "ci",
		Tier:     credential.TierPro,
	})
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	req, _ := http.NewRequestWithContext(ctx(), "GET", srv.URL+"/v1/event-types", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Secret)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-RateLimit-Limit") == "" {
		t.Error("expected rate-limit headers on gated response")
	}

	var body struct {
		Data []struct {
			Name string `json:"name"`
		} `json:"data"`
		Meta struct {
			RequestID string `json:"requestId"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Data) == 0 {
		t.Error("expected the standard event vocabulary")
	}
	if body.Meta.RequestID == "" {
		t.Error("expected a request correlation ID")
	}
}
