package characters

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/monsters-of-interest/moi-api/internal/shared"
)

// Service applies character rules on top of a Repository. Every call takes
// the caller's identity explicitly.
type Service struct {
	repo      Repository
	generator Generator
	validate  *validator.Validate
}

// NewService constructs a Service. A nil generator uses a RandomBuilder.
func NewService(repo Repository, generator Generator) *Service {
	if generator == nil {
		generator = NewRandomBuilder(nil, nil)
	}
	return &Service{repo: repo, generator: generator, validate: validator.New()}
}

// Create stores a manually built character. Only character_name is required.
func (s *Service) Create(ctx context.Context, owner shared.Identity, fields map[string]json.RawMessage) (*Character, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	changes, err := ParseChanges(fields)
	if err != nil {
		return nil, err
	}
	if _, ok := changes["character_name"]; !ok {
		return nil, shared.Invalid(msgNameRequired)
	}

	nc := newDefaultCharacter()
	changes.applyTo(&nc)
	if nc.StoryPointsSpent > nc.StoryPointsTotal {
		return nil, shared.Invalid("story_points_spent cannot exceed story_points_total.")
	}
	return s.repo.Create(ctx, owner.UserID, nc)
}

// AutoBuild generates and stores a character from optional hints.
func (s *Service) AutoBuild(ctx context.Context, owner shared.Identity, hints Hints) (*Character, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(hints); err != nil {
		return nil, shared.Invalid("Auto-build hints must be at most 64 characters.")
	}
	hints.Origin = norm.NFC.String(hints.Origin)
	hints.Species = norm.NFC.String(hints.Species)
	hints.Faction = norm.NFC.String(hints.Faction)
	hints.Profession = norm.NFC.String(hints.Profession)

	return s.repo.Create(ctx, owner.UserID, s.generator.Generate(hints))
}

// List returns the caller's characters, most recently updated first.
func (s *Service) List(ctx context.Context, owner shared.Identity) ([]Character, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, owner.UserID)
}

// Get returns one of the caller's characters.
func (s *Service) Get(ctx context.Context, owner shared.Identity, id int64) (*Character, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, owner.UserID, id)
}

// Update applies a partial field map. Protected keys are ignored and an
// empty effective set is rejected before storage is touched.
func (s *Service) Update(ctx context.Context, owner shared.Identity, id int64, fields map[string]json.RawMessage) (*Character, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	changes, err := ParseChanges(fields)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, shared.Invalid(msgNoUpdateData)
	}
	return s.repo.Update(ctx, owner.UserID, id, changes)
}

// Delete removes one of the caller's characters.
func (s *Service) Delete(ctx context.Context, owner shared.Identity, id int64) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	return s.repo.Delete(ctx, owner.UserID, id)
}

func requireOwner(owner shared.Identity) error {
	if owner.UserID <= 0 {
		return shared.ErrUnauthorized
	}
	return nil
}
