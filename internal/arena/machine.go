// internal/arena/machine.go
//
// Protocol state machine for one arena connection.
//
// Transition encodes the dispatch precedence as an ordered list of guards,
// evaluated top to bottom with first match winning:
//
//   1. authenticate:      always accepted, in any state
//   2. auth gate:         everything else requires authentication
//   3. debug / heartbeat: pure acknowledgements
//   4. reconnect:         adopt an existing session id
//   5. initialize:        only while uninitialized
//   6. init gate:         everything further requires initialization
//   7. updates:           enqueue one append per record
//   8. gameOver:          acknowledged; storage effect deliberately absent
//   9. anything else:     contract violation, not a negative outcome
//
// The machine never touches storage: durable effects are commands handed to
// the write-behind queue, and reconnection state comes from the in-memory
// ledger registry.

package arena

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pashneal/stourney-platform/internal/game"
)

// ErrInvalidRequest reports a request that is structurally valid but not
// permitted in the session's current state (guard 9). Unlike a Failure
// response this is a contract violation; the connection loop treats it as
// fatal.
var ErrInvalidRequest = errors.New("arena: invalid request for current state")

// Verifier is the pluggable authentication predicate.
type Verifier interface {
	Verify(secret string) bool
}

// Ledger is the view of the session registries the machine needs: how many
// update records a session has accumulated this process lifetime.
type Ledger interface {
	// Len returns the ledger length for id and whether id is known.
	Len(id uuid.UUID) (int, bool)
	// Grow adds n entries to id's ledger, creating it if absent.
	Grow(id uuid.UUID, n int)
}

// Enqueuer is the producer side of the write-behind queue.
type Enqueuer interface {
	// Push enqueues one AppendUpdate command per record, in order.
	Push(id uuid.UUID, updates []game.Update)
	// Alias resolves (or assigns) the session's replay slug. Reply-bearing:
	// blocks until the consumer answers or ctx expires.
	Alias(ctx context.Context, id uuid.UUID) (string, error)
	// GameOver enqueues the game-over marker.
	GameOver(id uuid.UUID, totalUpdates int)
}

// Machine holds the collaborators shared by every connection.
type Machine struct {
	verifier Verifier
	ledger   Ledger
	queue    Enqueuer
	baseURL  string
	log      zerolog.Logger
}

// NewMachine constructs the shared state machine. baseURL is the public
// host prefix used to build replay URLs (no trailing slash).
func NewMachine(v Verifier, l Ledger, q Enqueuer, baseURL string, log zerolog.Logger) *Machine {
	return &Machine{verifier: v, ledger: l, queue: q, baseURL: baseURL, log: log}
}

// Transition applies one request to a session state copy and returns the
// response, the successor state, and a hard error for guard-9 violations.
// ctx bounds the one awaited effect (slug resolution during initialize).
func (m *Machine) Transition(ctx context.Context, st SessionState, req Request) (Response, SessionState, error) {
	// Guard 1: authenticate is accepted regardless of current state and
	// never resets Initialized.
	if req.Type == ReqAuthenticate {
		if m.verifier.Verify(req.Secret) {
			st.Authenticated = true
			return AuthSuccess(), st, nil
		}
		return AuthFailure("invalid secret"), st, nil
	}

	// Guard 2: nothing else before authentication.
	if !st.Authenticated {
		return AuthFailure("must authenticate first"), st, nil
	}

	// Guard 3: side-effect-free acknowledgements.
	switch req.Type {
	case ReqDebug:
		m.log.Debug().Str("session", st.ID.String()).Str("text", req.Text).Msg("debug message")
		return Info("received"), st, nil
	case ReqHeartbeat:
		return Info("heartbeat"), st, nil
	}

	// Guard 4: an authenticated client can always try to reconnect.
	if req.Type == ReqReconnect {
		id, err := uuid.Parse(req.ID)
		if err != nil {
			return ReconnectFailure("malformed session id"), st, nil
		}
		n, ok := m.ledger.Len(id)
		if !ok {
			return ReconnectFailure("session does not exist"), st, nil
		}
		st.ID = id
		st.Progress = n
		return ReconnectSuccess(), st, nil
	}

	// Guard 5: initialize, only while uninitialized. An initialize on an
	// already-initialized session falls through to guard 9.
	if req.Type == ReqInitialize && !st.Initialized {
		if req.Info == nil {
			return InitFailure("missing initial snapshot"), st, nil
		}
		m.queue.Push(st.ID, []game.Update{{TurnNumber: 0, Info: *req.Info}})
		slug, err := m.queue.Alias(ctx, st.ID)
		if err != nil {
			return Response{}, st, fmt.Errorf("resolve replay slug: %w", err)
		}
		st.Initialized = true
		st.Progress = 1
		m.ledger.Grow(st.ID, 1)
		return InitSuccess(st.ID, m.baseURL+"/replay/"+slug), st, nil
	}

	// Guard 6: everything further requires an initialized session.
	if !st.Initialized {
		return InitFailure("must initialize first"), st, nil
	}

	switch req.Type {
	case ReqUpdates:
		// Guard 7: one append per record, in submission order. The ack does
		// not wait for persistence.
		m.queue.Push(st.ID, req.Updates)
		st.Progress += len(req.Updates)
		m.ledger.Grow(st.ID, len(req.Updates))
		return Info("received game update"), st, nil
	case ReqGameOver:
		// Guard 8: acknowledged; the durable effect is an open product
		// question, so the consumer only logs the marker.
		m.queue.GameOver(st.ID, req.TotalUpdates)
		return Info("received game over"), st, nil
	}

	// Guard 9.
	return Response{}, st, ErrInvalidRequest
}
