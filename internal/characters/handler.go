package characters

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/monsters-of-interest/moi-api/internal/platform/httpx"
	"github.com/monsters-of-interest/moi-api/internal/shared"
)

// CharacterService is the behaviour the HTTP layer needs from Service.
type CharacterService interface {
	Create(ctx context.Context, owner shared.Identity, fields map[string]json.RawMessage) (*Character, error)
	AutoBuild(ctx context.Context, owner shared.Identity, hints Hints) (*Character, error)
	List(ctx context.Context, owner shared.Identity) ([]Character, error)
	Get(ctx context.Context, owner shared.Identity, id int64) (*Character, error)
	Update(ctx context.Context, owner shared.Identity, id int64, fields map[string]json.RawMessage) (*Character, error)
	Delete(ctx context.Context, owner shared.Identity, id int64) error
}

// Handler serves /api/characters. It expects the auth gate to have run.
type Handler struct {
	logger  *slog.Logger
	service CharacterService
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service CharacterService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers character routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/autobuild", h.withOwner(h.autoBuild))
	r.Post("/", h.withOwner(h.create))
	r.Get("/", h.withOwner(h.list))
	r.Get("/{id}", h.withOwner(h.get))
	r.Put("/{id}", h.withOwner(h.update))
	r.Delete("/{id}", h.withOwner(h.delete))
}

type ownerHandler func(w http.ResponseWriter, r *http.Request, owner shared.Identity)

// withOwner lifts the gate's identity out of the context so handlers take it
// as an explicit argument.
func (h *Handler) withOwner(next ownerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := shared.IdentityFromContext(r.Context())
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Not authorized, no token provided")
			return
		}
		next(w, r, owner)
	}
}

func (h *Handler) autoBuild(w http.ResponseWriter, r *http.Request, owner shared.Identity) {
	var hints Hints
	if err := httpx.DecodeJSON(w, r, &hints, true); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.AutoBuild(r.Context(), owner, hints)
	if err != nil {
		h.fail(w, "autobuild", owner, 0, err)
		return
	}
	h.logger.Info("character auto-built", slog.Int64("user_id", owner.UserID), slog.Int64("character_id", c.ID))
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, owner shared.Identity) {
	var fields map[string]json.RawMessage
	if err := httpx.DecodeJSON(w, r, &fields, true); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Create(r.Context(), owner, fields)
	if err != nil {
		h.fail(w, "create", owner, 0, err)
		return
	}
	h.logger.Info("character created", slog.Int64("user_id", owner.UserID), slog.Int64("character_id", c.ID))
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, owner shared.Identity) {
	out, err := h.service.List(r.Context(), owner)
	if err != nil {
		h.fail(w, "list", owner, 0, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, owner shared.Identity) {
	id, ok := characterID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), owner, id)
	if err != nil {
		h.fail(w, "get", owner, id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, owner shared.Identity) {
	id, ok := characterID(w, r)
	if !ok {
		return
	}
	var fields map[string]json.RawMessage
	if err := httpx.DecodeJSON(w, r, &fields, true); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Update(r.Context(), owner, id, fields)
	if err != nil {
		h.fail(w, "update", owner, id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, owner shared.Identity) {
	id, ok := characterID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), owner, id); err != nil {
		h.fail(w, "delete", owner, id, err)
		return
	}
	httpx.NoContent(w)
}

func characterID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid character ID format.")
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, owner shared.Identity, id int64, err error) {
	attrs := []any{slog.String("operation", op), slog.Int64("user_id", owner.UserID), slog.Any("error", err)}
	if id > 0 {
		attrs = append(attrs, slog.Int64("character_id", id))
	}
	switch {
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrNotFound):
		h.logger.Debug("character request rejected", attrs...)
	default:
		h.logger.Error("character request failed", attrs...)
	}
	httpx.RespondError(w, err)
}
