// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/monsters-of-interest/moi-api/internal/shared"
)

// RespondError maps domain errors to HTTP responses. Only the message of a
// *shared.Error reaches the client; wrapping context and driver text never do.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", clientMessage(err, "Invalid request data."))
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "Invalid credentials.")
	case errors.Is(err, shared.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", clientMessage(err, "Not authorized."))
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", clientMessage(err, "Access denied."))
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", clientMessage(err, "Resource not found."))
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", clientMessage(err, "Resource already exists."))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "Internal server error.")
	}
}

func clientMessage(err error, fallback string) string {
	var se *shared.Error
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}
