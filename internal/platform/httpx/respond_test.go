package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monsters-of-interest/moi-api/internal/platform/db"
	"github.com/monsters-of-interest/moi-api/internal/shared"
)

func decodeProblem(t *testing.T, rr *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", shared.Invalid("Bad input."), http.StatusBadRequest, "Bad input."},
		{"credentials", shared.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials."},
		{"unauthorized", shared.ErrUnauthorized, http.StatusUnauthorized, "Not authorized."},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden, "Access denied."},
		{"not found", shared.NotFound("Character not found."), http.StatusNotFound, "Character not found."},
		{"duplicate", fmt.Errorf("insert: %w", shared.Conflict("Email already in use.")), http.StatusConflict, "Email already in use."},
		{"wrapped sentinel", fmt.Errorf("auth: insert user: %w", shared.ErrValidation), http.StatusBadRequest, "Invalid request data."},
		{"classified constraint", fmt.Errorf("auth: insert user: %w", db.Classify(&pgconn.PgError{Code: pgerrcode.CheckViolation})), http.StatusBadRequest, "Invalid request data."},
		{"classified duplicate", fmt.Errorf("characters: insert: %w", db.Classify(&pgconn.PgError{Code: pgerrcode.UniqueViolation})), http.StatusConflict, "Resource already exists."},
		{"internal", errors.New("pq: connection reset"), http.StatusInternalServerError, "Internal server error."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, tc.err)

			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			body := decodeProblem(t, rr)
			assert.Equal(t, tc.status, body.Status)
			assert.Equal(t, tc.message, body.Message)
		})
	}
}

func TestRespondErrorDropsWrapContext(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("characters: update 7: %w", shared.Invalid("No update data provided.")))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "No update data provided.", decodeProblem(t, rr).Message)
	assert.NotContains(t, rr.Body.String(), "characters:")
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("characters: update 7: %w", errors.New("syntax error at or near SET")))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "syntax")
}

func TestNoContent(t *testing.T) {
	rr := httptest.NewRecorder()
	NoContent(rr)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Zero(t, rr.Body.Len())
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Vex"}`))
		var p payload
		require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &p, false))
		assert.Equal(t, "Vex", p.Name)
	})

	t.Run("empty body required", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var p payload
		err := DecodeJSON(httptest.NewRecorder(), req, &p, false)
		require.ErrorIs(t, err, shared.ErrValidation)
		assert.Equal(t, "Request body is required.", err.Error())
	})

	t.Run("empty body allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		p := payload{Name: "kept"}
		require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &p, true))
		assert.Equal(t, "kept", p.Name)
	})

	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		var p payload
		err := DecodeJSON(httptest.NewRecorder(), req, &p, false)
		require.ErrorIs(t, err, shared.ErrValidation)
		assert.Equal(t, "Malformed JSON body.", err.Error())
	})

	t.Run("too large", func(t *testing.T) {
		big := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		var p payload
		err := DecodeJSON(httptest.NewRecorder(), req, &p, false)
		require.ErrorIs(t, err, shared.ErrValidation)
		assert.Equal(t, "Request body is too large.", err.Error())
	})
}
