package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/speckit/gateway/api"
	"github.com/speckit/gateway/catalog"
	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/delivery"
	"github.com/speckit/gateway/gitsync"
	"github.com/speckit/gateway/ratelimit"
	"github.com/speckit/gateway/store/memory"
	"github.com/speckit/gateway/subscription"
)

type env struct {
	srv    *httptest.Server
	store  *memory.Store
	creds  *credential.Service
	secret string
}

type fixedTokens struct{ token string }

func (f fixedTokens) Token(context.Context, string) (string, error) { return f.token, nil }

type fixedArtifacts struct{}

func (fixedArtifacts) FetchArtifact(context.Context, string) (*gitsync.Artifact, error) {
	return &gitsync.Artifact{Name: "spec.md", Content: []byte("# spec")}, nil
}

type acceptAllHost struct{}

func (acceptAllHost) GetFileSHA(context.Context, string, string, string, string) (string, bool, error) {
	return "", false, nil
}

func (acceptAllHost) PutFile(context.Context, string, string, string, string, []byte, string) error {
	return nil
}

// setup creates a gated handler over a memory store with tight free-tier
// quotas, and issues one credential whose plaintext secret requests use.
func setup(t *testing.T) *env {
	t.Helper()
	return setupWithLogger(t, nil)
}

func setupWithLogger(t *testing.T, logger *slog.Logger) *env {
	t.Helper()

	st := memory.New()
	cat := catalog.New()
	credSvc := credential.NewService(st, nil)
	subSvc := subscription.NewService(st, cat, nil)
	syncSvc := gitsync.NewService(st, acceptAllHost{}, fixedTokens{"tok"}, fixedArtifacts{}, nil, nil, nil)
	engine := delivery.NewEngine(st, st, delivery.EngineConfig{Concurrency: 2, RequestTimeout: 5 * time.Second}, nil)
	t.Cleanup(engine.Close)

	limiter, err := ratelimit.NewLimiter(st, credential.Quotas{
		credential.TierFree:       3,
		credential.TierStarter:    10,
		credential.TierPro:        100,
		credential.TierEnterprise: 1000,
	})
	if err != nil {
		t.Fatal(err)
	}

	h := api.NewHandler(api.Config{
		Credentials:   credSvc,
		Subscriptions: subSvc,
		Syncs:         syncSvc,
		Engine:        engine,
		DeliveryLog:   st,
		Limiter:       limiter,
		Catalog:       cat,
		Validator:     catalog.NewValidator(),
		Logger:        logger,
	})

	issued, err := credSvc.Issue(context.Background(), credential.Input{
		TenantID:       "tenant-1",
		Name:           "ci",
		Tier:           credential.TierEnterprise,
		AllowedOrigins: []string{"https://app.example.com"},
	})
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &env{srv: srv, store: st, creds: credSvc, secret: issued.Secret}
}

func (e *env) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, e.srv.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

// decodeData unwraps the success envelope's data field.
func decodeData(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func decodeError(t *testing.T, resp *http.Response) (code string, status int) {
	t.Helper()
	defer resp.Body.Close()
	var body struct {
		Error struct {
			Code   string `json:"code"`
			Status int    `json:"status"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code, body.Error.Status
}

func TestSubscriptionCRUD(t *testing.T) {
	e := setup(t)

	// Create
	resp := e.do(t, "POST", "/v1/subscriptions", map[string]any{
		"name":   "ci hook",
		"url":    "https://hooks.example.com/speckit",
		"events": []string{"spec.created", "spec.updated"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	var created struct {
		Subscription struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"subscription"`
		Secret string `json:"secret"`
	}
	decodeData(t, resp, &created)
	if created.Secret == "" {
		t.Fatal("create must return the signing secret once")
	}
	if created.Subscription.Status != "active" {
		t.Errorf("status = %q", created.Subscription.Status)
	}

	subPath := "/v1/subscriptions/" + created.Subscription.ID

	// Get never exposes the secret again.
	resp = e.do(t, "GET", subPath, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	var got map[string]any
	decodeData(t, resp, &got)
	if _, ok := got["secret"]; ok {
		t.Error("secret must not appear after creation")
	}

	// Toggle to paused and back.
	resp = e.do(t, "PATCH", subPath+"/toggle", nil)
	var toggled struct {
		Status string `json:"status"`
	}
	decodeData(t, resp, &toggled)
	if toggled.Status != "paused" {
		t.Errorf("toggle: status = %q", toggled.Status)
	}

	// Disable is terminal for toggle.
	resp = e.do(t, "PATCH", subPath+"/disable", nil)
	decodeData(t, resp, &toggled)
	if toggled.Status != "disabled" {
		t.Errorf("disable: status = %q", toggled.Status)
	}
	resp = e.do(t, "PATCH", subPath+"/toggle", nil)
	if code, _ := decodeError(t, resp); resp.StatusCode != http.StatusBadRequest || code != "BAD_REQUEST" {
		t.Errorf("toggle on disabled: status %d code %s", resp.StatusCode, code)
	}

	// Delete
	resp = e.do(t, "DELETE", subPath, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	resp = e.do(t, "GET", subPath, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestSubscriptionValidationRejected(t *testing.T) {
	e := setup(t)

	cases := []map[string]any{
		{"name": "h", "url": "http://insecure.example.com", "events": []string{"spec.created"}},
		{"name": "h", "url": "https://hooks.example.com", "events": []string{}},
		{"name": "h", "url": "https://hooks.example.com", "events": []string{"not.a.real.event"}},
	}
	for i, body := range cases {
		resp := e.do(t, "POST", "/v1/subscriptions", body)
		code, _ := decodeError(t, resp)
		if resp.StatusCode != http.StatusBadRequest || code != "BAD_REQUEST" {
			t.Errorf("case %d: status %d code %s", i, resp.StatusCode, code)
		}
	}
}

func TestSubscriptionTenantScoping(t *testing.T) {
	e := setup(t)

	// A subscription owned by another tenant reads as not found.
	other, err := subscription.NewService(e.store, catalog.New(), nil).Create(context.Background(), subscription.Input{
		TenantID: "tenant-2",
		Name:     "foreign",
		URL:      "https://hooks.example.com/x",
		Events:   []string{"spec.created"},
	})
	if err != nil {
		t.Fatal(err)
	}

	resp := e.do(t, "GET", "/v1/subscriptions/"+other.Subscription.ID.String(), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign subscription, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSyncConfigLifecycle(t *testing.T) {
	e := setup(t)

	resp := e.do(t, "POST", "/v1/sync-configs", map[string]any{
		"repo":   "acme/specs",
		"path":   "/docs/spec.md",
		"branch": "main",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	var cfg struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeData(t, resp, &cfg)
	if cfg.Status != "idle" {
		t.Errorf("status = %q", cfg.Status)
	}

	// Trigger lands on synced, never on syncing.
	resp = e.do(t, "POST", "/v1/sync-configs/"+cfg.ID+"/sync", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sync: expected 200, got %d", resp.StatusCode)
	}
	var synced struct {
		Status        string  `json:"status"`
		LastSyncError *string `json:"last_sync_error"`
	}
	decodeData(t, resp, &synced)
	if synced.Status != "synced" {
		t.Errorf("status after sync = %q", synced.Status)
	}
	if synced.LastSyncError != nil {
		t.Errorf("last_sync_error = %v", *synced.LastSyncError)
	}
}

func TestSyncConfigPathTraversalRejected(t *testing.T) {
	e := setup(t)

	resp := e.do(t, "POST", "/v1/sync-configs", map[string]any{
		"repo":   "acme/specs",
		"path":   "/../etc",
		"branch": "main",
	})
	code, _ := decodeError(t, resp)
	if resp.StatusCode != http.StatusBadRequest || code != "BAD_REQUEST" {
		t.Fatalf("status %d code %s", resp.StatusCode, code)
	}
}

func TestPublishEventAccepted(t *testing.T) {
	e := setup(t)

	resp := e.do(t, "POST", "/v1/events", map[string]any{
		"type": "spec.created",
		"data": map[string]any{"spec_id": "spec-1"},
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var ack struct {
		EventID string `json:"event_id"`
	}
	decodeData(t, resp, &ack)
	if ack.EventID == "" {
		t.Fatal("expected event_id in acknowledgement")
	}
}

func TestPublishUnknownEventTypeRejected(t *testing.T) {
	e := setup(t)

	resp := e.do(t, "POST", "/v1/events", map[string]any{
		"type": "spec.exploded",
		"data": map[string]any{},
	})
	code, _ := decodeError(t, resp)
	if resp.StatusCode != http.StatusBadRequest || code != "BAD_REQUEST" {
		t.Fatalf("status %d code %s", resp.StatusCode, code)
	}
}

func TestKeyIssueAndRevoke(t *testing.T) {
	e := setup(t)

	resp := e.do(t, "POST", "/v1/keys", map[string]any{
		"name": "reporting",
		"tier": "pro",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("issue: expected 201, got %d", resp.StatusCode)
	}
	var issued struct {
		Credential struct {
			ID        string `json:"id"`
			KeyPrefix string `json:"key_prefix"`
		} `json:"credential"`
		Secret string `json:"secret"`
	}
	decodeData(t, resp, &issued)
	if issued.Secret == "" {
		t.Fatal("issue must return the plaintext secret once")
	}

	resp = e.do(t, "DELETE", "/v1/keys/"+issued.Credential.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("revoke: expected 204, got %d", resp.StatusCode)
	}

	// The revoked secret no longer authenticates.
	revoked := &env{srv: e.srv, secret: issued.Secret}
	resp = revoked.do(t, "GET", "/v1/subscriptions", nil)
	code, _ := decodeError(t, resp)
	if resp.StatusCode != http.StatusUnauthorized || code != "UNAUTHORIZED" {
		t.Fatalf("status %d code %s", resp.StatusCode, code)
	}
}

func TestListPagination(t *testing.T) {
	e := setup(t)

	for range 3 {
		resp := e.do(t, "POST", "/v1/subscriptions", map[string]any{
			"name":   "hook",
			"url":    "https://hooks.example.com/x",
			"events": []string{"spec.created"},
		})
		resp.Body.Close()
	}

	resp := e.do(t, "GET", "/v1/subscriptions?page=2&pageSize=2", nil)
	defer resp.Body.Close()
	var body struct {
		Data []json.RawMessage `json:"data"`
		Meta struct {
			Pagination struct {
				Page      int `json:"page"`
				PageCount int `json:"pageCount"`
				Total     int `json:"total"`
			} `json:"pagination"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Data) != 1 {
		t.Errorf("page 2 of 3 items with size 2: got %d items", len(body.Data))
	}
	if body.Meta.Pagination.Total != 3 || body.Meta.Pagination.PageCount != 2 {
		t.Errorf("pagination = %+v", body.Meta.Pagination)
	}
}

func TestListSubscriptionsSorted(t *testing.T) {
	e := setup(t)

	for _, name := range []string{"charlie", "alpha", "bravo"} {
		resp := e.do(t, "POST", "/v1/subscriptions", map[string]any{
			"name":   name,
			"url":    "https://hooks.example.com/x",
			"events": []string{"spec.created"},
		})
		resp.Body.Close()
	}

	names := func(resp *http.Response) []string {
		t.Helper()
		defer resp.Body.Close()
		var body struct {
			Data []struct {
				Name string `json:"name"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		out := make([]string, len(body.Data))
		for i, d := range body.Data {
			out[i] = d.Name
		}
		return out
	}

	got := names(e.do(t, "GET", "/v1/subscriptions?sort=name", nil))
	if len(got) != 3 || got[0] != "alpha" || got[1] != "bravo" || got[2] != "charlie" {
		t.Errorf("sort=name: got %v", got)
	}

	got = names(e.do(t, "GET", "/v1/subscriptions?sort=name:desc", nil))
	if len(got) != 3 || got[0] != "charlie" || got[2] != "alpha" {
		t.Errorf("sort=name:desc: got %v", got)
	}

	// Unrecognized sort fields fall back to creation order.
	got = names(e.do(t, "GET", "/v1/subscriptions?sort=secret", nil))
	if len(got) != 3 || got[0] != "charlie" {
		t.Errorf("unrecognized sort: got %v", got)
	}
}

func TestTestTriggerRequiresSubscribedEventType(t *testing.T) {
	e := setup(t)

	resp := e.do(t, "POST", "/v1/subscriptions", map[string]any{
		"name":   "hook",
		"url":    "https://hooks.example.com/x",
		"events": []string{"spec.created"},
	})
	var created struct {
		Subscription struct {
			ID string `json:"id"`
		} `json:"subscription"`
	}
	decodeData(t, resp, &created)

	// spec.updated is in the vocabulary but not in this subscription's set.
	resp = e.do(t, "POST", "/v1/subscriptions/"+created.Subscription.ID+"/test", map[string]any{
		"event_type": "spec.updated",
	})
	code, _ := decodeError(t, resp)
	if resp.StatusCode != http.StatusBadRequest || code != "BAD_REQUEST" {
		t.Fatalf("status %d code %s", resp.StatusCode, code)
	}
}

func TestRequestLogCarriesCredentialID(t *testing.T) {
	var logs bytes.Buffer
	e := setupWithLogger(t, slog.New(slog.NewJSONHandler(&logs, nil)))

	resp := e.do(t, "GET", "/v1/event-types", nil)
	resp.Body.Close()

	// Unauthenticated request.
	req, _ := http.NewRequestWithContext(context.Background(), "GET", e.srv.URL+"/v1/event-types", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	var authed, anonymous bool
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		if !strings.Contains(line, "api request") {
			continue
		}
		var rec struct {
			CredentialID *string `json:"credential_id"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatal(err)
		}
		if rec.CredentialID != nil && strings.HasPrefix(*rec.CredentialID, "key_") {
			authed = true
		}
		if rec.CredentialID == nil {
			anonymous = true
		}
	}
	if !authed {
		t.Error("expected a request record carrying the credential ID")
	}
	if !anonymous {
		t.Error("expected a null credential ID on the unauthenticated request")
	}
}
