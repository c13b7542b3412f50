package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/monsters-of-interest/moi-api/internal/auth"
	"github.com/monsters-of-interest/moi-api/internal/characters"
	"github.com/monsters-of-interest/moi-api/internal/observability"
	"github.com/monsters-of-interest/moi-api/internal/platform/httpx"
	"github.com/monsters-of-interest/moi-api/internal/rbac"
)

// Pinger reports storage reachability; *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	DB               Pinger
	AuthHandler      *auth.Handler
	CharacterHandler *characters.Handler
	Gate             *auth.Gate
	RBACMiddleware   rbac.Middleware
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Route not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "Method not allowed.")
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"message": "Monsters of Interest API is running."})
	})
	r.Get("/healthz", healthHandler(params.DB, params.Logger))
	r.Handle("/metrics", params.Metrics.Handler())

	authLimit := 20
	var tiers []string
	if params.Config != nil {
		if params.Config.AuthRateLimitPerMinute > 0 {
			authLimit = params.Config.AuthRateLimitPerMinute
		}
		tiers = params.Config.CharacterTiers
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(RateLimit(authLimit))
		params.AuthHandler.MountRoutes(r)
	})
	r.Route("/api/characters", func(r chi.Router) {
		r.Use(params.Gate.Require)
		r.Use(params.RBACMiddleware.RequireTier(tiers...))
		params.CharacterHandler.MountRoutes(r)
	})

	return r
}

func healthHandler(db Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				if logger != nil {
					logger.Error("healthz: database ping failed", slog.Any("error", err))
				}
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
