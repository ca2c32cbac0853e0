package httpapi

import (
	"net/http"

	"github.com/rawcontext/engram-sub001/internal/apierr"
	"github.com/rawcontext/engram-sub001/internal/auth"
	"github.com/rawcontext/engram-sub001/internal/bitemporal"
	"github.com/rawcontext/engram-sub001/internal/taskpool"
)

// Authenticator returns middleware running auth.Authenticate against the
// Authorization header and, on success, attaching the derived AuthContext
// via auth.WithContext for downstream middleware (rate limiting) and
// handlers (scope checks, tenant resolution).
func Authenticator(store auth.TokenStore, pool *taskpool.Pool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := auth.Authenticate(r.Context(), r.Header.Get("Authorization"), store, pool, bitemporal.Now)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithContext(r.Context(), ac)))
		})
	}
}

// RequireScopes gates a handler behind the AND-semantics scope check
// (§4.7 step 7). It must run after Authenticator.
func RequireScopes(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromContext(r.Context())
			if !ok {
				writeAppError(w, apierr.Unauthorized("Missing Authorization header"))
				return
			}
			if err := auth.RequireScopes(ac, scopes); err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
