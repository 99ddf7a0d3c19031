package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/patwikx/twc-platform/internal/response"
)

// KeyFunc extracts the identifier to limit on. Returning "" skips the
// check for that request.
type KeyFunc func(r *http.Request) string

// IPKeyFunc limits by caller address.
func IPKeyFunc(r *http.Request) string {
	return ClientIP(r)
}

// Middleware gates requests through the limiter, answering denials
// with 429, a Retry-After header and the shared error envelope.
func Middleware(l *Limiter, keyFn KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := keyFn(r)
			if identifier == "" {
				next.ServeHTTP(w, r)
				return
			}

			d := l.Allow(r.Context(), identifier)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter.Seconds())))
				response.RateLimit(w, "Too many requests. Try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the real client IP from the request
func ClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP if there are multiple
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
