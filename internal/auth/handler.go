package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/monsters-of-interest/moi-api/internal/platform/httpx"
	"github.com/monsters-of-interest/moi-api/internal/shared"
)

// AccountService is the behaviour the HTTP layer needs from Service.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*User, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger  *slog.Logger
	service AccountService
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service AccountService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
}

type registerResponse struct {
	Message string      `json:"message"`
	User    UserSummary `json:"user"`
}

type loginResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    UserSummary `json:"user"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.DecodeJSON(w, r, &in, false); err != nil {
		httpx.RespondError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.logFailure("register", err)
		httpx.RespondError(w, err)
		return
	}

	h.logger.Info("user registered", slog.Int64("user_id", user.ID))
	httpx.JSON(w, http.StatusCreated, registerResponse{
		Message: "User registered successfully.",
		User:    user.Summary(true),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.DecodeJSON(w, r, &in, false); err != nil {
		httpx.RespondError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), in)
	if err != nil {
		h.logFailure("login", err)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, loginResponse{
		Message: "Login successful.",
		Token:   result.Token,
		User:    result.User.Summary(false),
	})
}

// logFailure keeps client mistakes at debug and everything else at error.
func (h *Handler) logFailure(op string, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrDuplicate),
		errors.Is(err, shared.ErrInvalidCredentials):
		h.logger.Debug("auth request rejected", slog.String("op", op), slog.Any("error", err))
	default:
		h.logger.Error("auth request failed", slog.String("op", op), slog.Any("error", err))
	}
}
