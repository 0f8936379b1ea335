// Package cors decides whether a declared browser origin is permitted for a
// credential and writes the standard CORS response headers.
package cors

import "net/http"

// Allow-header values advertised on preflight responses.
const (
	AllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	AllowHeaders = "Authorization, Content-Type, X-Request-ID"
	MaxAge       = "86400"
)

// Allowed reports whether origin is permitted by the allow-list.
//
// Requests without an Origin header are always allowed: non-browser callers
// commonly omit it. Matching is exact string comparison; a literal "*" entry
// matches any origin. No prefix, suffix, or subdomain patterns.
func Allowed(origin string, allowlist []string) bool {
	if origin == "" {
		return true
	}
	for _, entry := range allowlist {
		if entry == "*" || entry == origin {
			return true
		}
	}
	return false
}

// WriteHeaders sets the allow-origin headers on a validated cross-origin
// response. A no-op when origin is empty.
func WriteHeaders(h http.Header, origin string) {
	if origin == "" {
		return
	}
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Vary", "Origin")
}

// WritePreflightHeaders sets the fixed preflight allow-response headers,
// echoing the request origin when present.
func WritePreflightHeaders(h http.Header, origin string) {
	if origin != "" {
		h.Set("Access-Control-Allow-Origin", origin)
	} else {
		h.Set("Access-Control-Allow-Origin", "*")
	}
	h.Set("Access-Control-Allow-Methods", AllowMethods)
	h.Set("Access-Control-Allow-Headers", AllowHeaders)
	h.Set("Access-Control-Max-Age", MaxAge)
}
