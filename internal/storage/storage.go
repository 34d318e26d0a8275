// internal/storage/storage.go
//
// Persistence port for the arena server.
//
// Responsibilities:
//   - Define the Store interface the rest of the server programs against.
//   - Provide the SQLite implementation used in production.
//
// Concurrency contract: mutating methods (CreateGame, SaveUpdate, SaveSlug,
// EnsureSlug) are called only by the write-behind queue consumer, which is
// the single logical writer. Read methods may be called concurrently by the
// replay API.

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pashneal/stourney-platform/internal/game"
	"github.com/pashneal/stourney-platform/internal/slugs"
)

// ErrNotFound is returned when a game, slug, or turn snapshot is missing.
var ErrNotFound = errors.New("storage: not found")

// Store defines the persistence interface for game sessions.
// Implementations may be backed by SQLite (this package) or memory (tests).
type Store interface {
	// CreateGame inserts a session record for a freshly minted id.
	CreateGame(ctx context.Context, id uuid.UUID) error

	// SaveUpdate upserts the snapshot for (id, update.TurnNumber).
	// Re-submitting a turn overwrites the stored payload.
	SaveUpdate(ctx context.Context, id uuid.UUID, u game.Update) error

	// LoadUpdate fetches one turn snapshot, or ErrNotFound.
	LoadUpdate(ctx context.Context, id uuid.UUID, turn int) (*game.Update, error)

	// Slug returns the slug assigned to id, or ErrNotFound.
	Slug(ctx context.Context, id uuid.UUID) (string, error)

	// SaveSlug records a slug for id. Slugs are unique across sessions.
	SaveSlug(ctx context.Context, id uuid.UUID, slug string) error

	// SlugID resolves a slug back to its session id, or ErrNotFound.
	SlugID(ctx context.Context, slug string) (uuid.UUID, error)

	// EnsureSlug returns the existing slug for id, or generates a unique
	// one, persists it, and returns it.
	EnsureSlug(ctx context.Context, id uuid.UUID) (string, error)
}

// SQLite is the production Store backed by database/sql + go-sqlite3.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an opened database handle. The caller is responsible for
// pragmas and migrations (see db.go at the repository root).
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// CreateGame inserts the session row.
func (s *SQLite) CreateGame(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO games (game_uuid) VALUES (?)`, id.String())
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

// SaveUpdate queries for an existing (id, turn) row and inserts or updates
// accordingly. The snapshot is stored as a JSON blob: not very queryable,
// but good enough for replay.
func (s *SQLite) SaveUpdate(ctx context.Context, id uuid.UUID, u game.Update) error {
	blob, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT 1 FROM game_updates WHERE update_uuid=? AND turn_id=?`,
		id.String(), u.TurnNumber,
	).Scan(&exists)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO game_updates (update_uuid, turn_id, game_update) VALUES (?,?,?)`,
			id.String(), u.TurnNumber, string(blob))
		if err != nil {
			return fmt.Errorf("insert update: %w", err)
		}
	case err != nil:
		return fmt.Errorf("query update: %w", err)
	default:
		_, err = s.db.ExecContext(ctx,
			`UPDATE game_updates SET game_update=? WHERE update_uuid=? AND turn_id=?`,
			string(blob), id.String(), u.TurnNumber)
		if err != nil {
			return fmt.Errorf("overwrite update: %w", err)
		}
	}
	return nil
}

// LoadUpdate fetches and decodes one stored snapshot.
func (s *SQLite) LoadUpdate(ctx context.Context, id uuid.UUID, turn int) (*game.Update, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT game_update FROM game_updates WHERE update_uuid=? AND turn_id=?`,
		id.String(), turn,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query update: %w", err)
	}
	var u game.Update
	if err := json.Unmarshal([]byte(blob), &u); err != nil {
		return nil, fmt.Errorf("decode update: %w", err)
	}
	return &u, nil
}

// Slug returns the stored slug for id.
func (s *SQLite) Slug(ctx context.Context, id uuid.UUID) (string, error) {
	var slug string
	err := s.db.QueryRowContext(ctx,
		`SELECT slug FROM slugs WHERE slug_id=?`, id.String(),
	).Scan(&slug)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query slug: %w", err)
	}
	return slug, nil
}

// SaveSlug records the slug for id. The UNIQUE constraint on slugs.slug
// rejects duplicates.
func (s *SQLite) SaveSlug(ctx context.Context, id uuid.UUID, slug string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO slugs (slug_id, slug) VALUES (?,?)`, id.String(), slug)
	if err != nil {
		return fmt.Errorf("insert slug: %w", err)
	}
	return nil
}

// SlugID resolves a slug to a session id.
func (s *SQLite) SlugID(ctx context.Context, slug string) (uuid.UUID, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT slug_id FROM slugs WHERE slug=?`, slug,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("query slug id: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse slug id: %w", err)
	}
	return id, nil
}

// EnsureSlug returns the slug for id, generating and persisting a fresh
// unique one if none is assigned yet. Generation retries on collisions;
// with ~86M candidate slugs, a long retry streak means something is wrong,
// so the loop is capped.
func (s *SQLite) EnsureSlug(ctx context.Context, id uuid.UUID) (string, error) {
	if slug, err := s.Slug(ctx, id); err == nil {
		return slug, nil
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	for attempt := 0; attempt < 100; attempt++ {
		candidate := slugs.Generate()
		if _, err := s.SlugID(ctx, candidate); err == nil {
			continue // taken
		} else if !errors.Is(err, ErrNotFound) {
			return "", err
		}
		if err := s.SaveSlug(ctx, id, candidate); err != nil {
			return "", err
		}
		return candidate, nil
	}
	return "", errors.New("storage: could not find a unique slug")
}
