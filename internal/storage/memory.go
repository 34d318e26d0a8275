// internal/storage/memory.go
//
// In-memory implementation of the storage.Store interface.
// This is a lightweight persistence layer used for ephemeral arenas,
// primarily in tests, or when durability is not required.
//
// Characteristics:
//   - Stores snapshots and slugs in maps keyed by session id.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - ErrNotFound is returned for missing games, slugs, and turns.

package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/pashneal/stourney-platform/internal/game"
	"github.com/pashneal/stourney-platform/internal/slugs"
)

type turnKey struct {
	id   uuid.UUID
	turn int
}

// Memory is a map-based Store implementation.
type Memory struct {
	mu       sync.RWMutex
	games    map[uuid.UUID]struct{}
	updates  map[turnKey]game.Update
	slugByID map[uuid.UUID]string
	idBySlug map[string]uuid.UUID
}

// NewMemory constructs an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		games:    make(map[uuid.UUID]struct{}),
		updates:  make(map[turnKey]game.Update),
		slugByID: make(map[uuid.UUID]string),
		idBySlug: make(map[string]uuid.UUID),
	}
}

func (m *Memory) CreateGame(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[id] = struct{}{}
	return nil
}

func (m *Memory) SaveUpdate(ctx context.Context, id uuid.UUID, u game.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates[turnKey{id, u.TurnNumber}] = u
	return nil
}

func (m *Memory) LoadUpdate(ctx context.Context, id uuid.UUID, turn int) (*game.Update, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.updates[turnKey{id, turn}]; ok {
		cp := u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) Slug(ctx context.Context, id uuid.UUID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.slugByID[id]; ok {
		return s, nil
	}
	return "", ErrNotFound
}

func (m *Memory) SaveSlug(ctx context.Context, id uuid.UUID, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.idBySlug[slug]; taken {
		return errors.New("storage: slug taken")
	}
	m.slugByID[id] = slug
	m.idBySlug[slug] = id
	return nil
}

func (m *Memory) SlugID(ctx context.Context, slug string) (uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.idBySlug[slug]; ok {
		return id, nil
	}
	return uuid.Nil, ErrNotFound
}

func (m *Memory) EnsureSlug(ctx context.Context, id uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slugByID[id]; ok {
		return s, nil
	}
	for {
		candidate := slugs.Generate()
		if _, taken := m.idBySlug[candidate]; taken {
			continue
		}
		m.slugByID[id] = candidate
		m.idBySlug[candidate] = id
		return candidate, nil
	}
}
