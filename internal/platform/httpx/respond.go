package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/monsters-of-interest/moi-api/internal/shared"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ProblemDetail is the error body; Message is always human readable.
type ProblemDetail struct {
	Title   string `json:"title"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// NoContent writes a bodiless 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Problem sends a problem details response.
func Problem(w http.ResponseWriter, status int, title, message string) {
	JSON(w, status, ProblemDetail{
		Title:   title,
		Status:  status,
		Message: message,
	})
}

// DecodeJSON decodes the request body into target. An empty body leaves
// target untouched when allowEmpty is set; malformed JSON is a validation error.
func DecodeJSON(w http.ResponseWriter, r *http.Request, target any, allowEmpty bool) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(target)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && allowEmpty:
		return nil
	case errors.Is(err, io.EOF):
		return shared.Invalid("Request body is required.")
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return shared.Invalid("Request body is too large.")
		}
		return shared.Invalid("Malformed JSON body.")
	}
}
