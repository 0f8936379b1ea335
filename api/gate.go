package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/speckit/gateway/cors"
	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/envelope"
	"github.com/speckit/gateway/internal/gwerr"
)

type ctxKey int

const credentialKey ctxKey = iota

// Caller returns the authenticated credential for the request, nil outside
// the gated pipeline.
func Caller(ctx context.Context) *credential.Credential {
	c, _ := ctx.Value(credentialKey).(*credential.Credential)
	return c
}

// gate is the request-gating middleware: bearer authentication, CORS origin
// validation, then rate limiting, in that order. Preflight requests
// short-circuit before authentication so browsers can preflight without a
// credential; everything else fails closed.
func (h *Handler) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			cors.WritePreflightHeaders(w.Header(), r.Header.Get("Origin"))
			w.WriteHeader(http.StatusNoContent)
			return
		}

		secret, ok := bearerToken(r)
		if !ok {
			h.reject(w, envelope.CodeUnauthorized, "missing or malformed Authorization header")
			return
		}

		cred, err := h.creds.Resolve(r.Context(), secret)
		if err != nil {
			switch {
			case errors.Is(err, gwerr.ErrCredentialNotFound), errors.Is(err, gwerr.ErrCredentialRevoked):
				h.reject(w, envelope.CodeUnauthorized, "invalid API key")
			default:
				h.logger.Error("credential resolution failed", "error", err)
				h.reject(w, envelope.CodeInternalError, "credential store unavailable")
			}
			return
		}

		if rw, ok := w.(*responseWriter); ok {
			rw.credentialID = cred.ID.String()
		}

		origin := r.Header.Get("Origin")
		if !cors.Allowed(origin, cred.AllowedOrigins) {
			h.reject(w, envelope.CodeCORSRejected, "origin not allowed for this API key")
			return
		}
		cors.WriteHeaders(w.Header(), origin)

		limit, err := h.limiter.Check(r.Context(), cred.ID.String(), cred.Tier)
		if err != nil {
			h.logger.Error("rate limit check failed", "error", err)
			h.reject(w, envelope.CodeInternalError, "rate limiter unavailable")
			return
		}
		for k, v := range limit.Headers() {
			w.Header().Set(k, v)
		}
		if !limit.Allowed {
			if h.metrics != nil {
				h.metrics.RecordRateLimited(cred.Tier.String())
				h.metrics.RecordRequest("rate_limited")
			}
			h.writeError(w, envelope.CodeRateLimited, "rate limit exceeded", map[string]int{
				"retryAfterSeconds": limit.ResetSeconds,
			})
			return
		}

		if h.metrics != nil {
			h.metrics.RecordRequest("allowed")
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), credentialKey, cred)))
	})
}

// reject writes a gate failure and counts it.
func (h *Handler) reject(w http.ResponseWriter, code envelope.Code, msg string) {
	if h.metrics != nil {
		h.metrics.RecordRequest(strings.ToLower(string(code)))
	}
	h.writeError(w, code, msg, nil)
}

// bearerToken extracts the credential from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
