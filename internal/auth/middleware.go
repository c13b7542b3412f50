package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/monsters-of-interest/moi-api/internal/platform/httpx"
	"github.com/monsters-of-interest/moi-api/internal/shared"
)

// Gate rejection messages.
const (
	msgNoToken      = "Not authorized, no token provided"
	msgTokenExpired = "Not authorized, token expired"
	msgTokenInvalid = "Not authorized, token failed verification"
)

// TokenVerifier decodes bearer tokens.
type TokenVerifier interface {
	Verify(token string) (shared.Identity, error)
}

// Gate authenticates requests carrying a bearer token and injects the
// identity into the request context. Anything else is rejected with 401.
type Gate struct {
	verifier   TokenVerifier
	logger     *slog.Logger
	rejections *prometheus.CounterVec
}

// NewGate builds the auth gate. reg may be nil.
func NewGate(logger *slog.Logger, verifier TokenVerifier, reg prometheus.Registerer) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moi_auth_rejections_total",
		Help: "Requests rejected by the bearer token gate by reason.",
	}, []string{"reason"})
	if reg != nil {
		if err := reg.Register(rejections); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					rejections = existing
				}
			} else {
				logger.Warn("register auth metrics", slog.Any("error", err))
			}
		}
	}
	return &Gate{verifier: verifier, logger: logger, rejections: rejections}
}

// Require is the middleware guarding protected routes.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			g.reject(w, "no_token", http.StatusUnauthorized, msgNoToken)
			return
		}

		identity, err := g.verifier.Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, ErrSigningKeyMissing):
				g.logger.Error("auth gate: signing key unavailable", slog.String("path", r.URL.Path))
				g.reject(w, "config", http.StatusInternalServerError, "Internal server error.")
			case errors.Is(err, ErrTokenExpired):
				g.reject(w, "expired", http.StatusUnauthorized, msgTokenExpired)
			default:
				g.logger.Debug("auth gate: token rejected", slog.Any("error", err))
				g.reject(w, "invalid", http.StatusUnauthorized, msgTokenInvalid)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
	})
}

func (g *Gate) reject(w http.ResponseWriter, reason string, status int, message string) {
	g.rejections.WithLabelValues(reason).Inc()
	title := "Unauthorized"
	if status == http.StatusInternalServerError {
		title = "Internal Error"
	}
	httpx.Problem(w, status, title, message)
}

// bearerToken extracts the credential from an Authorization header. Any
// header that is not exactly "Bearer <token>" counts as no token at all.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
