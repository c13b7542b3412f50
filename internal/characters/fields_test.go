package characters

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monsters-of-interest/moi-api/internal/shared"
)

func rawFields(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &fields))
	return fields
}

func TestParseChangesStripsProtectedFields(t *testing.T) {
	changes, err := ParseChanges(rawFields(t, `{"id":9,"user_id":2,"created_at":"2020-01-01T00:00:00Z","updated_at":"x","mind":3}`))
	require.NoError(t, err)
	assert.Equal(t, Changes{"mind": 3}, changes)

	changes, err = ParseChanges(rawFields(t, `{"id":9,"user_id":2}`))
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestParseChangesRejectsUnknownKeys(t *testing.T) {
	_, err := ParseChanges(rawFields(t, `{"mind":2,"is_admin":true}`))
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, `Unknown field "is_admin".`, err.Error())

	_, err = ParseChanges(rawFields(t, `{"mind = 5, user_id":1}`))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestParseChangesTypeChecks(t *testing.T) {
	cases := []struct {
		name string
		body string
		msg  string
	}{
		{"trait too low", `{"mind":0}`, "mind must be an integer between 1 and 99."},
		{"trait too high", `{"fortune":100}`, "fortune must be an integer between 1 and 99."},
		{"trait as string", `{"body":"3"}`, "body must be an integer between 1 and 99."},
		{"trait fractional", `{"spirit":2.5}`, "spirit must be an integer between 1 and 99."},
		{"trait null", `{"mind":null}`, "mind must be an integer between 1 and 99."},
		{"negative points", `{"story_points_total":-1}`, "story_points_total must be an integer between 0 and 100000."},
		{"blank name", `{"character_name":"   "}`, msgNameRequired},
		{"null name", `{"character_name":null}`, msgNameRequired},
		{"numeric origin", `{"origin":5}`, "origin must be a string or null."},
		{"object collection", `{"spells":{"a":1}}`, msgInvalidCollection},
		{"bad encoded collection", `{"inventory":"[oops"}`, msgInvalidCollection},
		{"encoded object", `{"professions":"{\"a\":1}"}`, msgInvalidCollection},
		{"overspent", `{"story_points_total":5,"story_points_spent":6}`, "story_points_spent cannot exceed story_points_total."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseChanges(rawFields(t, tc.body))
			require.ErrorIs(t, err, shared.ErrValidation)
			assert.Equal(t, tc.msg, err.Error())
		})
	}
}

func TestParseChangesNormalizes(t *testing.T) {
	changes, err := ParseChanges(rawFields(t, `{
		"character_name":"  Café ",
		"origin":"  ",
		"faction":"Guild",
		"notes":null,
		"professions":[ {"name":"Alchemist", "trainings":[]} ],
		"spells":"[\"Spark\"]",
		"inventory":null
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Café", changes["character_name"])
	assert.Nil(t, changes["origin"].(*string))
	assert.Equal(t, "Guild", *changes["faction"].(*string))
	assert.Nil(t, changes["notes"].(*string))
	assert.Equal(t, json.RawMessage(`[{"name":"Alchemist","trainings":[]}]`), changes["professions"])
	assert.Equal(t, json.RawMessage(`["Spark"]`), changes["spells"])
	assert.Equal(t, json.RawMessage(`[]`), changes["inventory"])
}

func TestUpdateStatement(t *testing.T) {
	changes := Changes{
		"mind":        3,
		"origin":      (*string)(nil),
		"professions": json.RawMessage(`[]`),
	}
	query, args := updateStatement(7, 42, changes)

	assert.Equal(t,
		"UPDATE characters SET mind = $3, origin = $4, professions = $5, updated_at = now() "+
			"WHERE id = $1 AND user_id = $2 RETURNING "+characterColumns,
		query)
	require.Len(t, args, 5)
	assert.Equal(t, int64(42), args[0])
	assert.Equal(t, int64(7), args[1])
	assert.Equal(t, 3, args[2])
	assert.Nil(t, args[3].(*string))
	assert.Equal(t, "[]", args[4])
}

func TestChangesApplyTo(t *testing.T) {
	changes, err := ParseChanges(rawFields(t, `{"character_name":"Thane","mind":4,"spells":["Spark"]}`))
	require.NoError(t, err)

	nc := newDefaultCharacter()
	changes.applyTo(&nc)
	assert.Equal(t, "Thane", nc.Name)
	assert.Equal(t, 4, nc.Mind)
	assert.Equal(t, DefaultTrait, nc.Body)
	assert.Equal(t, DefaultStoryPointsTotal, nc.StoryPointsTotal)
	assert.JSONEq(t, `["Spark"]`, string(nc.Spells))
	assert.JSONEq(t, `[]`, string(nc.Professions))
}
