package middleware

import (
	"net/http"
)

const (
	apiCSP = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'"
	devCSP = "default-src 'self'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'"

	// hstsValue is one year including subdomains
	hstsValue = "max-age=31536000; includeSubDomains"
)

// SecurityHeaders sets response headers for a JSON and redirect API.
// HSTS is only sent outside development.
type SecurityHeaders struct {
	isDevelopment bool
}

// NewSecurityHeaders creates a new security headers middleware
func NewSecurityHeaders(isDevelopment bool) *SecurityHeaders {
	return &SecurityHeaders{isDevelopment: isDevelopment}
}

// Middleware wraps an HTTP handler with security headers
func (sh *SecurityHeaders) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		// Redirects to the storefront must not leak callback parameters
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")

		if sh.isDevelopment {
			h.Set("Content-Security-Policy", devCSP)
		} else {
			h.Set("Content-Security-Policy", apiCSP)
			h.Set("Strict-Transport-Security", hstsValue)
		}

		next.ServeHTTP(w, r)
	})
}
