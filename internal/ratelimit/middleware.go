package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rawcontext/engram-sub001/internal/apierr"
	"github.com/rawcontext/engram-sub001/internal/auth"
	"github.com/rawcontext/engram-sub001/internal/bitemporal"
	"github.com/rawcontext/engram-sub001/internal/telemetry"
)

// Middleware returns chi-compatible middleware enforcing limit requests per
// fixed one-minute window per authenticated principal (§4.8). It must run after the
// auth middleware has placed an *auth.AuthContext on the request context,
// and before the handler. metrics may be nil (tests, or a caller that
// doesn't want the rejection counter).
func Middleware(limiter *Limiter, metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			d := limiter.Check(Key(ac.ID), bitemporal.Now())
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(int64(d.ResetAt), 10))

			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
				if metrics != nil {
					metrics.RateLimitRejected.WithLabelValues(ac.ID).Inc()
				}
				writeRateLimited(w, d)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimited(w http.ResponseWriter, d Decision) {
	appErr := apierr.RateLimited(d.Limit, int64(d.ResetAt), int64(d.RetryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status())
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]any{
			"code":    string(appErr.Code),
			"message": appErr.Message,
			"details": appErr.Details,
		},
	})
}
