// internal/registry/registry.go
//
// Shared in-memory session registries.
//
// Two independent lock-guarded maps, read and written by every connection
// goroutine:
//   - sessions: session id → latest published SessionState (consulted by
//     connections handling a Reconnect for a foreign id).
//   - ledgers:  session id → number of update records accepted this process
//     lifetime (used to recompute Progress on reconnect).
//
// Neither map nor lock is ever exposed; all access goes through short,
// scoped critical sections, and no lock is held across anything that can
// block. Entries are never removed; surviving the owning connection is the
// point, since reconnection targets exactly the sessions whose connection
// died. The maps are empty after a process restart.

package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pashneal/stourney-platform/internal/arena"
)

// Registry holds both maps. The zero value is not usable; call New.
type Registry struct {
	sessionsMu sync.Mutex
	sessions   map[uuid.UUID]arena.SessionState

	ledgersMu sync.Mutex
	ledgers   map[uuid.UUID]int
}

// New constructs empty registries.
func New() *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]arena.SessionState),
		ledgers:  make(map[uuid.UUID]int),
	}
}

// Session returns the last published state for id.
func (r *Registry) Session(id uuid.UUID) (arena.SessionState, bool) {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	st, ok := r.sessions[id]
	return st, ok
}

// PutSession publishes a connection's state copy. Keyed by the state's own
// session id, so a connection that adopted a new id via Reconnect publishes
// under the adopted id.
func (r *Registry) PutSession(st arena.SessionState) {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	r.sessions[st.ID] = st
}

// Len reports the ledger length for id and whether id is known.
// Implements arena.Ledger.
func (r *Registry) Len(id uuid.UUID) (int, bool) {
	r.ledgersMu.Lock()
	defer r.ledgersMu.Unlock()
	n, ok := r.ledgers[id]
	return n, ok
}

// Grow adds n entries to id's ledger, creating it if absent.
// Implements arena.Ledger.
func (r *Registry) Grow(id uuid.UUID, n int) {
	r.ledgersMu.Lock()
	defer r.ledgersMu.Unlock()
	r.ledgers[id] += n
}
