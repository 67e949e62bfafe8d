package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/placetrack/placetrack/internal/errors"
)

// KeyFunc extracts the client identifier from a request.
type KeyFunc func(r *http.Request) string

// ClientIP keys clients by remote address. chi's RealIP middleware runs
// earlier in the chain, so RemoteAddr already reflects forwarded headers.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware wraps handlers with an admission check against the limiter.
// Admitted responses carry X-RateLimit-* metadata for observability;
// rejections return 429 with a retry-after hint in both the header and body.
func Middleware(limiter *Limiter, keyFn KeyFunc) func(http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = ClientIP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := limiter.Admit(keyFn(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
				apperrors.RespondWithEnvelope(w, r, apperrors.NewRateLimitedError(
					"Too many requests, please try again later.",
					decision.RetryAfter,
				))
				return
			}

			w.Header().Set("X-RateLimit-Reset", decision.ResetAt.UTC().Format(time.RFC3339))
			next.ServeHTTP(w, r)
		})
	}
}
