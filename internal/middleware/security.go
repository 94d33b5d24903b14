// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects headers suited to a JSON API on every response:
//
//   • Strict-Transport-Security  –  forces HTTPS (2 years)
//   • Content-Security-Policy    –  nothing may load, nothing may frame us
//   • X-Content-Type-Options     –  MIME-sniffing defence
//   • Referrer-Policy            –  no Referer at all
//   • Cache-Control              –  session state must never be cached
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP; a handler may still override
//   any of them, for example Cache-Control on /metrics.
// • Two spaces after periods.

package middleware

import "net/http"

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	const (
		hsts  = "max-age=63072000; includeSubDomains"
		csp   = "default-src 'none'; frame-ancestors 'none'"
		nosn  = "nosniff"
		refer = "no-referrer"
		cache = "no-store"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Strict-Transport-Security", hsts)
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Content-Type-Options", nosn)
		h.Set("Referrer-Policy", refer)
		h.Set("Cache-Control", cache)
		next.ServeHTTP(w, r)
	})
}
