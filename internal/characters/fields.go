package characters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/monsters-of-interest/moi-api/internal/shared"
)

type fieldKind int

const (
	kindName fieldKind = iota
	kindText
	kindTrait
	kindPoints
	kindCollection
)

// Column bounds for client-written values.
const (
	MinTrait       = 1
	MaxTrait       = 99
	MaxStoryPoints = 100000
	maxNameRunes   = 100
	maxHintRunes   = 64
	maxNotesRunes  = 10000
)

const (
	msgNameRequired      = "Character name is required."
	msgNoUpdateData      = "No update data provided."
	msgInvalidCollection = "Invalid JSON format provided for professions, spells, or inventory."
)

// mutableFields is the allow-list of client-writable columns.
var mutableFields = map[string]fieldKind{
	"character_name":     kindName,
	"origin":             kindText,
	"faction":            kindText,
	"mind":               kindTrait,
	"body":               kindTrait,
	"spirit":             kindTrait,
	"fortune":            kindTrait,
	"story_points_total": kindPoints,
	"story_points_spent": kindPoints,
	"professions":        kindCollection,
	"spells":             kindCollection,
	"inventory":          kindCollection,
	"notes":              kindText,
}

// protectedFields are dropped from client input without error; identity,
// ownership and timestamps are owned by the server.
var protectedFields = map[string]struct{}{
	"id":         {},
	"user_id":    {},
	"created_at": {},
	"updated_at": {},
}

// Changes is a validated set of column assignments keyed by column name.
// Values are string, *string, int or json.RawMessage depending on the column.
type Changes map[string]any

// ParseChanges strips protected keys, rejects keys outside the allow-list
// and type-checks every remaining value.
func ParseChanges(fields map[string]json.RawMessage) (Changes, error) {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	changes := make(Changes, len(keys))
	for _, key := range keys {
		if _, ok := protectedFields[key]; ok {
			continue
		}
		kind, ok := mutableFields[key]
		if !ok {
			return nil, shared.Invalid(fmt.Sprintf("Unknown field %q.", key))
		}
		value, err := decodeField(key, kind, fields[key])
		if err != nil {
			return nil, err
		}
		changes[key] = value
	}

	if err := changes.checkBudget(); err != nil {
		return nil, err
	}
	return changes, nil
}

// Columns returns the changed column names in a stable order.
func (c Changes) Columns() []string {
	cols := make([]string, 0, len(c))
	for col := range c {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// checkBudget rejects spent > total when both appear in the same set.
func (c Changes) checkBudget() error {
	total, hasTotal := c["story_points_total"].(int)
	spent, hasSpent := c["story_points_spent"].(int)
	if hasTotal && hasSpent && spent > total {
		return shared.Invalid("story_points_spent cannot exceed story_points_total.")
	}
	return nil
}

// applyTo copies the changes onto a pending insert.
func (c Changes) applyTo(nc *NewCharacter) {
	for col, v := range c {
		switch col {
		case "character_name":
			nc.Name = v.(string)
		case "origin":
			nc.Origin = v.(*string)
		case "faction":
			nc.Faction = v.(*string)
		case "notes":
			nc.Notes = v.(*string)
		case "mind":
			nc.Mind = v.(int)
		case "body":
			nc.Body = v.(int)
		case "spirit":
			nc.Spirit = v.(int)
		case "fortune":
			nc.Fortune = v.(int)
		case "story_points_total":
			nc.StoryPointsTotal = v.(int)
		case "story_points_spent":
			nc.StoryPointsSpent = v.(int)
		case "professions":
			nc.Professions = v.(json.RawMessage)
		case "spells":
			nc.Spells = v.(json.RawMessage)
		case "inventory":
			nc.Inventory = v.(json.RawMessage)
		}
	}
}

func decodeField(key string, kind fieldKind, raw json.RawMessage) (any, error) {
	switch kind {
	case kindName:
		var s *string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, shared.Invalid(msgNameRequired)
		}
		name := normalizeText(s)
		if name == nil {
			return nil, shared.Invalid(msgNameRequired)
		}
		if utf8.RuneCountInString(*name) > maxNameRunes {
			return nil, shared.Invalid(fmt.Sprintf("Character name must be at most %d characters.", maxNameRunes))
		}
		return *name, nil
	case kindText:
		var s *string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, shared.Invalid(fmt.Sprintf("%s must be a string or null.", key))
		}
		text := normalizeText(s)
		limit := maxHintRunes
		if key == "notes" {
			limit = maxNotesRunes
		}
		if text != nil && utf8.RuneCountInString(*text) > limit {
			return nil, shared.Invalid(fmt.Sprintf("%s must be at most %d characters.", key, limit))
		}
		return text, nil
	case kindTrait:
		return decodeInt(key, raw, MinTrait, MaxTrait)
	case kindPoints:
		return decodeInt(key, raw, 0, MaxStoryPoints)
	case kindCollection:
		return normalizeCollection(raw)
	default:
		return nil, shared.Invalid(fmt.Sprintf("Unknown field %q.", key))
	}
}

func decodeInt(key string, raw json.RawMessage, lo, hi int) (int, error) {
	var n *int
	if err := json.Unmarshal(raw, &n); err != nil || n == nil || *n < lo || *n > hi {
		return 0, shared.Invalid(fmt.Sprintf("%s must be an integer between %d and %d.", key, lo, hi))
	}
	return *n, nil
}

// normalizeText trims and NFC-normalizes s; blank collapses to nil.
func normalizeText(s *string) *string {
	if s == nil {
		return nil
	}
	out := strings.TrimSpace(norm.NFC.String(*s))
	if out == "" {
		return nil
	}
	return &out
}

// normalizeCollection accepts a JSON array or a string holding one and
// returns the compacted array. null and blank mean empty.
func normalizeCollection(raw json.RawMessage) (json.RawMessage, error) {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return emptyCollection, nil
	}
	if data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return nil, shared.Invalid(msgInvalidCollection)
		}
		data = bytes.TrimSpace([]byte(encoded))
		if len(data) == 0 {
			return emptyCollection, nil
		}
	}
	if data[0] != '[' || !json.Valid(data) {
		return nil, shared.Invalid(msgInvalidCollection)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, shared.Invalid(msgInvalidCollection)
	}
	return json.RawMessage(buf.Bytes()), nil
}

// updateStatement renders the owner-scoped UPDATE for changes. Column names
// come from the allow-list only; every value travels as a bind parameter.
func updateStatement(ownerID, id int64, changes Changes) (string, []any) {
	cols := changes.Columns()
	args := make([]any, 0, len(cols)+2)
	args = append(args, id, ownerID)

	var sb strings.Builder
	sb.WriteString("UPDATE characters SET ")
	for i, col := range cols {
		fmt.Fprintf(&sb, "%s = $%d, ", col, i+3)
		args = append(args, columnArg(changes[col]))
	}
	sb.WriteString("updated_at = now() WHERE id = $1 AND user_id = $2 RETURNING ")
	sb.WriteString(characterColumns)
	return sb.String(), args
}

// columnArg sends collections as text so the json column receives the
// array verbatim.
func columnArg(v any) any {
	if raw, ok := v.(json.RawMessage); ok {
		return string(raw)
	}
	return v
}
