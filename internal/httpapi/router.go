package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/rawcontext/engram-sub001/internal/auth"
	"github.com/rawcontext/engram-sub001/internal/memory"
	"github.com/rawcontext/engram-sub001/internal/ratelimit"
	"github.com/rawcontext/engram-sub001/internal/schema"
	"github.com/rawcontext/engram-sub001/internal/taskpool"
	"github.com/rawcontext/engram-sub001/internal/telemetry"
	"github.com/rawcontext/engram-sub001/internal/tenant"
)

// requestTimeout bounds every handler; §7 maps an exceeded deadline to a
// generic 500 TIMEOUT response.
const requestTimeout = 25 * time.Second

// Deps are the composition root's wired collaborators the router needs.
type Deps struct {
	Memory    *memory.Service
	Router    *tenant.Router
	Tokens    auth.TokenStore
	Pool      *taskpool.Pool
	Limiter   *ratelimit.Limiter
	Logger    *zap.Logger
	Schema    *schema.Registry
	Metrics   *telemetry.Metrics
	CORSAllow []string
}

// NewRouter builds the full chi router: middleware chain outermost-first is
// RequestID → Recovery → Timeout → Logging → CORS → (per-route) auth →
// rate limit → scope check → handler (§4.9).
func NewRouter(deps Deps) http.Handler {
	h := &handlers{
		svc:      deps.Memory,
		router:   deps.Router,
		registry: deps.Schema,
		logger:   deps.Logger,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recovery(deps.Logger))
	r.Use(Timeout(requestTimeout, deps.Logger))
	r.Use(Logging(deps.Logger, deps.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(deps.CORSAllow),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.health)

	r.Route("/v1/memory", func(r chi.Router) {
		r.Use(Authenticator(deps.Tokens, deps.Pool))
		r.Use(ratelimit.Middleware(deps.Limiter, deps.Metrics))

		r.With(RequireScopes("memory:write")).Post("/remember", h.remember)
		r.With(RequireScopes("memory:read")).Post("/recall", h.recall)
		r.With(RequireScopes("query:read")).Post("/query", h.query)
		r.With(RequireScopes("memory:read")).Post("/context", h.getContext)
	})

	return r
}

func corsOrigins(allow []string) []string {
	if len(allow) == 0 {
		return []string{"*"}
	}
	return allow
}

type handlers struct {
	svc      *memory.Service
	router   *tenant.Router
	registry *schema.Registry
	logger   *zap.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
