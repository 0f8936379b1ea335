package upstream_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/speckit/gateway"
	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/upstream"
)

func newClient(srv *httptest.Server) *upstream.Client {
	return upstream.NewClient(srv.URL, "svc-token", 5*time.Second, nil)
}

func TestGetDecodesDataAndPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer svc-token" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": [{"name":"a"},{"name":"b"}],
			"meta": {"pagination": {"page":2,"pageSize":25,"pageCount":4,"total":100}}
		}`))
	}))
	defer srv.Close()

	var items []struct {
		Name string `json:"name"`
	}
	pg, err := newClient(srv).Get(context.Background(), "/specs", nil, &items)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].Name != "a" {
		t.Fatalf("items = %+v", items)
	}
	if pg == nil || pg.Page != 2 || pg.Total != 100 {
		t.Fatalf("pagination = %+v", pg)
	}
}

func TestNon2xxBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"store down"}}`))
	}))
	defer srv.Close()

	_, err := newClient(srv).Get(context.Background(), "/specs", nil, nil)
	var apiErr *upstream.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != 503 || apiErr.Code != "INTERNAL_ERROR" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestCredentialStoreLookupByHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api-keys/lookup" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("secretHash") != "deadbeef" {
			t.Errorf("secretHash = %q", r.URL.Query().Get("secretHash"))
		}
		w.Write([]byte(`{"data":{"tenant_id":"tenant-1","name":"ci","status":"active"}}`))
	}))
	defer srv.Close()

	store := upstream.NewCredentialStore(newClient(srv))
	c, err := store.GetCredentialBySecretHash(context.Background(), "deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	if c.TenantID != "tenant-1" || c.Status != credential.StatusActive {
		t.Fatalf("credential = %+v", c)
	}
}

func TestCredentialStoreUnknownHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	store := upstream.NewCredentialStore(newClient(srv))
	_, err := store.GetCredentialBySecretHash(context.Background(), "nope")
	if !errors.Is(err, gateway.ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
}

func TestCredentialStoreRevokedHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":{"tenant_id":"tenant-1","name":"old","status":"revoked"}}`))
	}))
	defer srv.Close()

	store := upstream.NewCredentialStore(newClient(srv))
	_, err := store.GetCredentialBySecretHash(context.Background(), "stale")
	if !errors.Is(err, gateway.ErrCredentialRevoked) {
		t.Fatalf("expected ErrCredentialRevoked, got %v", err)
	}
}

func TestTokenSourceMissingConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tokens := upstream.NewTokenSource(newClient(srv))
	token, err := tokens.Token(context.Background(), "tenant-1")
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}
}

func TestArtifactSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tenants/tenant-1/artifact" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"name":"spec.md","content":"# payments service"}}`))
	}))
	defer srv.Close()

	source := upstream.NewArtifactSource(newClient(srv))
	artifact, err := source.FetchArtifact(context.Background(), "tenant-1")
	if err != nil {
		t.Fatal(err)
	}
	if artifact.Name != "spec.md" || string(artifact.Content) != "# payments service" {
		t.Fatalf("artifact = %+v", artifact)
	}
}
