package characters

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Candidate sets drawn from when an auto-build hint is absent.
var (
	Origins     = []string{"Human", "Goblin", "Orc", "Fae"}
	Factions    = []string{"Unaligned", "Guild", "Crown", "Cult"}
	Professions = []string{"Alchemist", "Knight Errant", "Lucky Rogue"}
)

const (
	autoBuildStoryPoints   = 100
	autoBuildProfessionFee = 10
	autoBuildNotes         = "Automatically generated character."
)

// Hints steer an auto-build; blank fields are chosen by the generator.
type Hints struct {
	Origin     string `json:"origin" validate:"omitempty,max=64"`
	Species    string `json:"species" validate:"omitempty,max=64"`
	Faction    string `json:"faction" validate:"omitempty,max=64"`
	Profession string `json:"profession" validate:"omitempty,max=64"`
}

// Generator produces a complete character from hints.
type Generator interface {
	Generate(h Hints) NewCharacter
}

type professionEntry struct {
	Name      string   `json:"name"`
	Trainings []string `json:"trainings"`
}

// RandomBuilder is the provisional generator: uniform picks per axis and
// bounded random traits.
// TODO: replace with the rules engine that allocates points per profession
// and applies origin bonuses once those tables are defined.
type RandomBuilder struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewRandomBuilder seeds a builder. A nil rng gets a fresh PCG source.
func NewRandomBuilder(rng *rand.Rand, now func() time.Time) *RandomBuilder {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if now == nil {
		now = time.Now
	}
	return &RandomBuilder{rng: rng, now: now}
}

// Generate implements Generator.
func (b *RandomBuilder) Generate(h Hints) NewCharacter {
	b.mu.Lock()
	defer b.mu.Unlock()

	origin := pick(b.rng, firstNonBlank(h.Origin, h.Species), Origins)
	faction := pick(b.rng, h.Faction, Factions)
	profession := pick(b.rng, h.Profession, Professions)

	professions, _ := json.Marshal([]professionEntry{{Name: profession, Trainings: []string{}}})
	notes := autoBuildNotes

	return NewCharacter{
		Name:             fmt.Sprintf("AutoChar_%06d", b.now().UnixMilli()%1_000_000),
		Origin:           &origin,
		Faction:          &faction,
		Mind:             b.rng.IntN(3) + 1,
		Body:             b.rng.IntN(3) + 1,
		Spirit:           b.rng.IntN(3) + 1,
		Fortune:          b.rng.IntN(2) + 1,
		StoryPointsTotal: autoBuildStoryPoints,
		StoryPointsSpent: autoBuildProfessionFee,
		Professions:      professions,
		Spells:           emptyCollection,
		Inventory:        emptyCollection,
		Notes:            &notes,
	}
}

func pick(rng *rand.Rand, hint string, candidates []string) string {
	if hint = strings.TrimSpace(hint); hint != "" {
		return hint
	}
	return candidates[rng.IntN(len(candidates))]
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
