package api_test

import (
	"context"
	"net/http"
	"strconv"
	"testing"
)

func TestGateMissingCredential(t *testing.T) {
	e := setup(t)

	for _, auth := range []string{"", "Bearer ", "Basic dXNlcg==", "sk_ent_raw_no_scheme"} {
		req, _ := http.NewRequestWithContext(context.Background(), "GET", e.srv.URL+"/v1/subscriptions", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		code, status := decodeError(t, resp)
		if resp.StatusCode != http.StatusUnauthorized || code != "UNAUTHORIZED" || status != 401 {
			t.Errorf("auth %q: status %d code %s", auth, resp.StatusCode, code)
		}
	}
}

func TestGateUnknownSecret(t *testing.T) {
	e := setup(t)

	bad := &env{srv: e.srv, secret: "sk_ent_not_a_real_secret"}
	resp := bad.do(t, "GET", "/v1/subscriptions", nil)
	code, _ := decodeError(t, resp)
	if resp.StatusCode != http.StatusUnauthorized || code != "UNAUTHORIZED" {
		t.Fatalf("status %d code %s", resp.StatusCode, code)
	}
}

func TestGateCORSExactMatch(t *testing.T) {
	e := setup(t)

	// Allowed origin is echoed back.
	req, _ := http.NewRequestWithContext(context.Background(), "GET", e.srv.URL+"/v1/subscriptions", nil)
	req.Header.Set("Authorization", "Bearer "+e.secret)
	req.Header.Set("Origin", "https://app.example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}

	// Subdomain of an allowed origin is not a match.
	req, _ = http.NewRequestWithContext(context.Background(), "GET", e.srv.URL+"/v1/subscriptions", nil)
	req.Header.Set("Authorization", "Bearer "+e.secret)
	req.Header.Set("Origin", "https://evil.app.example.com")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	code, _ := decodeError(t, resp)
	if resp.StatusCode != http.StatusForbidden || code != "CORS_REJECTED" {
		t.Fatalf("status %d code %s", resp.StatusCode, code)
	}
}

func TestGateNoOriginIsNotCrossOrigin(t *testing.T) {
	e := setup(t)

	// Server-to-server calls carry no Origin and always pass CORS.
	resp := e.do(t, "GET", "/v1/subscriptions", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestGatePreflightBypassesAuth(t *testing.T) {
	e := setup(t)

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodOptions, e.srv.URL+"/v1/subscriptions", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight: expected 204, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Error("expected preflight method headers")
	}
}

func TestGateRateLimitHeadersAndRejection(t *testing.T) {
	e := setup(t)

	// Issue a free-tier key with a quota of 3.
	resp := e.do(t, "POST", "/v1/keys", map[string]any{"name": "tiny", "tier": "free"})
	var issued struct {
		Secret string `json:"secret"`
	}
	decodeData(t, resp, &issued)

	free := &env{srv: e.srv, secret: issued.Secret}
	for i := 1; i <= 3; i++ {
		resp := free.do(t, "GET", "/v1/subscriptions", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, resp.StatusCode)
		}
		if got := resp.Header.Get("X-RateLimit-Limit"); got != "3" {
			t.Errorf("request %d: limit header = %q", i, got)
		}
		want := strconv.Itoa(3 - i)
		if got := resp.Header.Get("X-RateLimit-Remaining"); got != want {
			t.Errorf("request %d: remaining = %q, want %q", i, got, want)
		}
	}

	// The 4th request in the window is rejected with Retry-After.
	resp = free.do(t, "GET", "/v1/subscriptions", nil)
	code, _ := decodeError(t, resp)
	if resp.StatusCode != http.StatusTooManyRequests || code != "RATE_LIMITED" {
		t.Fatalf("status %d code %s", resp.StatusCode, code)
	}
	retryAfter, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || retryAfter < 1 || retryAfter > 60 {
		t.Errorf("Retry-After = %q", resp.Header.Get("Retry-After"))
	}
	if resp.Header.Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("remaining = %q", resp.Header.Get("X-RateLimit-Remaining"))
	}

	// Rejection does not affect another credential's window.
	resp = e.do(t, "GET", "/v1/subscriptions", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("other credential: expected 200, got %d", resp.StatusCode)
	}
}
