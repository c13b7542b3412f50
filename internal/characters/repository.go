package characters

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/monsters-of-interest/moi-api/internal/platform/db"
	"github.com/monsters-of-interest/moi-api/internal/shared"
)

const msgNotFound = "Character not found."

const characterColumns = `id, user_id, character_name, origin, faction, mind, body, spirit, fortune, ` +
	`story_points_total, story_points_spent, professions, spells, inventory, notes, created_at, updated_at`

// Repository persists characters. Every method is scoped to ownerID; rows
// owned by someone else are indistinguishable from missing rows.
type Repository interface {
	Create(ctx context.Context, ownerID int64, c NewCharacter) (*Character, error)
	List(ctx context.Context, ownerID int64) ([]Character, error)
	Get(ctx context.Context, ownerID, id int64) (*Character, error)
	Update(ctx context.Context, ownerID, id int64, changes Changes) (*Character, error)
	Delete(ctx context.Context, ownerID, id int64) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	db db.Querier
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(q db.Querier) *PGRepository {
	return &PGRepository{db: q}
}

var _ Repository = (*PGRepository)(nil)

const insertCharacterSQL = `INSERT INTO characters (user_id, character_name, origin, faction, mind, body, spirit, fortune,
	story_points_total, story_points_spent, professions, spells, inventory, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + characterColumns

// Create inserts c for ownerID.
func (r *PGRepository) Create(ctx context.Context, ownerID int64, c NewCharacter) (*Character, error) {
	row := r.db.QueryRow(ctx, insertCharacterSQL,
		ownerID, c.Name, c.Origin, c.Faction,
		c.Mind, c.Body, c.Spirit, c.Fortune,
		c.StoryPointsTotal, c.StoryPointsSpent,
		string(c.Professions), string(c.Spells), string(c.Inventory),
		c.Notes,
	)
	created, err := scanCharacter(row)
	if err != nil {
		return nil, storageError("insert", err)
	}
	return created, nil
}

const listCharactersSQL = `SELECT ` + characterColumns + ` FROM characters
WHERE user_id = $1 ORDER BY updated_at DESC, id DESC`

// List returns the owner's characters, most recently updated first.
func (r *PGRepository) List(ctx context.Context, ownerID int64) ([]Character, error) {
	rows, err := r.db.Query(ctx, listCharactersSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("characters: list: %w", err)
	}
	defer rows.Close()

	out := make([]Character, 0)
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("characters: scan: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("characters: list rows: %w", err)
	}
	return out, nil
}

const getCharacterSQL = `SELECT ` + characterColumns + ` FROM characters WHERE id = $1 AND user_id = $2`

// Get fetches one character.
func (r *PGRepository) Get(ctx context.Context, ownerID, id int64) (*Character, error) {
	c, err := scanCharacter(r.db.QueryRow(ctx, getCharacterSQL, id, ownerID))
	if err != nil {
		return nil, storageError("get", err)
	}
	return c, nil
}

// Update applies changes in a single statement and bumps updated_at.
func (r *PGRepository) Update(ctx context.Context, ownerID, id int64, changes Changes) (*Character, error) {
	if len(changes) == 0 {
		return nil, shared.Invalid(msgNoUpdateData)
	}
	query, args := updateStatement(ownerID, id, changes)
	c, err := scanCharacter(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, storageError("update", err)
	}
	return c, nil
}

const deleteCharacterSQL = `DELETE FROM characters WHERE id = $1 AND user_id = $2`

// Delete removes one character.
func (r *PGRepository) Delete(ctx context.Context, ownerID, id int64) error {
	tag, err := r.db.Exec(ctx, deleteCharacterSQL, id, ownerID)
	if err != nil {
		return storageError("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound(msgNotFound)
	}
	return nil
}

func scanCharacter(row pgx.Row) (*Character, error) {
	var c Character
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Origin,
		&c.Faction,
		&c.Mind,
		&c.Body,
		&c.Spirit,
		&c.Fortune,
		&c.StoryPointsTotal,
		&c.StoryPointsSpent,
		&c.Professions,
		&c.Spells,
		&c.Inventory,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// storageError collapses missing rows into not-found and classifies
// constraint failures; anything else is wrapped as an internal fault.
func storageError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.NotFound(msgNotFound)
	}
	classified := db.Classify(err)
	if errors.Is(classified, shared.ErrValidation) {
		if db.IsInvalidInput(err) {
			return shared.Invalid(msgInvalidCollection)
		}
		return shared.Invalid("Character data violates a storage constraint.")
	}
	return fmt.Errorf("characters: %s: %w", op, classified)
}
