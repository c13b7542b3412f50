// Package characters holds owner-scoped character sheets.
package characters

import (
	"encoding/json"
	"time"
)

// Defaults applied when a manual create omits a field.
const (
	DefaultTrait            = 1
	DefaultStoryPointsTotal = 100
	DefaultStoryPointsSpent = 0
)

var emptyCollection = json.RawMessage(`[]`)

// Character is one stored character sheet. Collections hold raw JSON arrays.
type Character struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"user_id"`
	Name             string          `json:"character_name"`
	Origin           *string         `json:"origin"`
	Faction          *string         `json:"faction"`
	Mind             int             `json:"mind"`
	Body             int             `json:"body"`
	Spirit           int             `json:"spirit"`
	Fortune          int             `json:"fortune"`
	StoryPointsTotal int             `json:"story_points_total"`
	StoryPointsSpent int             `json:"story_points_spent"`
	Professions      json.RawMessage `json:"professions"`
	Spells           json.RawMessage `json:"spells"`
	Inventory        json.RawMessage `json:"inventory"`
	Notes            *string         `json:"notes"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewCharacter is a fully defaulted record ready for insertion.
type NewCharacter struct {
	Name             string
	Origin           *string
	Faction          *string
	Mind             int
	Body             int
	Spirit           int
	Fortune          int
	StoryPointsTotal int
	StoryPointsSpent int
	Professions      json.RawMessage
	Spells           json.RawMessage
	Inventory        json.RawMessage
	Notes            *string
}

// newDefaultCharacter returns the baseline every manual create starts from.
func newDefaultCharacter() NewCharacter {
	return NewCharacter{
		Mind:             DefaultTrait,
		Body:             DefaultTrait,
		Spirit:           DefaultTrait,
		Fortune:          DefaultTrait,
		StoryPointsTotal: DefaultStoryPointsTotal,
		StoryPointsSpent: DefaultStoryPointsSpent,
		Professions:      emptyCollection,
		Spells:           emptyCollection,
		Inventory:        emptyCollection,
	}
}
