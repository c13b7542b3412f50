// Package rbac gates routes on the caller's account tier.
package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/monsters-of-interest/moi-api/internal/platform/httpx"
	"github.com/monsters-of-interest/moi-api/internal/shared"
)

// Middleware wires tier authorization helpers for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// RequireTier admits callers whose account tier is one of tiers. With no
// tiers configured it passes every request through.
func (m Middleware) RequireTier(tiers ...string) func(http.Handler) http.Handler {
	allowed := normalizeTiers(tiers)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowed) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Not authorized, no token provided")
				return
			}
			if _, ok := allowed[strings.ToLower(strings.TrimSpace(id.AccountTier))]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Info("rbac tier denied", slog.Int64("user_id", id.UserID), slog.String("tier", id.AccountTier))
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "Your account tier does not include this feature.")
		})
	}
}

func normalizeTiers(tiers []string) map[string]struct{} {
	unique := make(map[string]struct{}, len(tiers))
	for _, t := range tiers {
		t = strings.TrimSpace(strings.ToLower(t))
		if t == "" {
			continue
		}
		unique[t] = struct{}{}
	}
	return unique
}
