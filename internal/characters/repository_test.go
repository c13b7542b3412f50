package characters

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monsters-of-interest/moi-api/internal/shared"
)

var characterColumnNames = []string{
	"id", "user_id", "character_name", "origin", "faction", "mind", "body", "spirit", "fortune",
	"story_points_total", "story_points_spent", "professions", "spells", "inventory", "notes",
	"created_at", "updated_at",
}

func characterRow(rows *pgxmock.Rows, id, owner int64, name string, mind int, at time.Time) *pgxmock.Rows {
	return rows.AddRow(id, owner, name, (*string)(nil), (*string)(nil), mind, 1, 1, 1, 100, 0,
		json.RawMessage(`[]`), json.RawMessage(`[]`), json.RawMessage(`[]`), (*string)(nil), at, at)
}

func TestPGRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	nc := newDefaultCharacter()
	nc.Name = "Thane"

	mock.ExpectQuery(regexp.QuoteMeta(insertCharacterSQL)).
		WithArgs(int64(3), "Thane", pgxmock.AnyArg(), pgxmock.AnyArg(), 1, 1, 1, 1, 100, 0, "[]", "[]", "[]", pgxmock.AnyArg()).
		WillReturnRows(characterRow(pgxmock.NewRows(characterColumnNames), 10, 3, "Thane", 1, at))

	repo := NewRepository(mock)
	c, err := repo.Create(context.Background(), 3, nc)
	require.NoError(t, err)
	assert.Equal(t, int64(10), c.ID)
	assert.Equal(t, int64(3), c.UserID)
	assert.JSONEq(t, `[]`, string(c.Professions))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepositoryCreateConstraintFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
		msg     string
	}{
		{"bad json", &pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation}, shared.ErrValidation, msgInvalidCollection},
		{"invalid json text", &pgconn.PgError{Code: pgerrcode.InvalidJSONText}, shared.ErrValidation, msgInvalidCollection},
		{"check violation", &pgconn.PgError{Code: pgerrcode.CheckViolation}, shared.ErrValidation, "Character data violates a storage constraint."},
		{"connection", errors.New("connection reset"), nil, "connection reset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectQuery(regexp.QuoteMeta(insertCharacterSQL)).
				WithArgs(anyArgs(14)...).
				WillReturnError(tt.err)

			_, err = NewRepository(mock).Create(context.Background(), 1, newDefaultCharacter())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.msg, err.Error())
			} else {
				assert.False(t, errors.Is(err, shared.ErrValidation))
				assert.Contains(t, err.Error(), tt.msg)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPGRepositoryUpdateConstraintFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
		msg     string
	}{
		{"invalid json text", &pgconn.PgError{Code: pgerrcode.InvalidJSONText}, shared.ErrValidation, msgInvalidCollection},
		{"check violation", &pgconn.PgError{Code: pgerrcode.CheckViolation}, shared.ErrValidation, "Character data violates a storage constraint."},
		{"connection", errors.New("connection reset"), nil, "connection reset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectQuery("UPDATE characters SET").
				WithArgs(int64(5), int64(3), `[{"name":"Scout","trainings":[]}]`).
				WillReturnError(tt.err)

			changes := Changes{"professions": json.RawMessage(`[{"name":"Scout","trainings":[]}]`)}
			_, err = NewRepository(mock).Update(context.Background(), 3, 5, changes)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.msg, err.Error())
			} else {
				assert.False(t, errors.Is(err, shared.ErrValidation))
				assert.Contains(t, err.Error(), tt.msg)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPGRepositoryListOrdersByRecency(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	newer := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	rows := pgxmock.NewRows(characterColumnNames)
	characterRow(rows, 2, 3, "Newer", 1, newer)
	characterRow(rows, 1, 3, "Older", 1, older)
	mock.ExpectQuery(regexp.QuoteMeta(listCharactersSQL)).WithArgs(int64(3)).WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta(listCharactersSQL)).WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows(characterColumnNames))

	repo := NewRepository(mock)
	out, err := repo.List(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Newer", out[0].Name)

	empty, err := repo.List(context.Background(), 4)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepositoryScopedLookupsCollapseToNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(getCharacterSQL)).WithArgs(int64(5), int64(99)).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("UPDATE characters SET").WithArgs(int64(5), int64(99), 3).WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(deleteCharacterSQL)).WithArgs(int64(5), int64(99)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewRepository(mock)
	ctx := context.Background()

	_, err = repo.Get(ctx, 99, 5)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, "Character not found.", err.Error())

	_, err = repo.Update(ctx, 99, 5, Changes{"mind": 3})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	err = repo.Delete(ctx, 99, 5)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepositoryUpdateAndDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE characters SET mind = $3, updated_at = now() WHERE id = $1 AND user_id = $2")).
		WithArgs(int64(5), int64(3), 3).
		WillReturnRows(characterRow(pgxmock.NewRows(characterColumnNames), 5, 3, "Thane", 3, at))
	mock.ExpectExec(regexp.QuoteMeta(deleteCharacterSQL)).WithArgs(int64(5), int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	repo := NewRepository(mock)
	ctx := context.Background()

	c, err := repo.Update(ctx, 3, 5, Changes{"mind": 3})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Mind)

	require.NoError(t, repo.Delete(ctx, 3, 5))

	_, err = repo.Update(ctx, 3, 5, Changes{})
	assert.ErrorIs(t, err, shared.ErrValidation)

	assert.NoError(t, mock.ExpectationsWereMet())
}
