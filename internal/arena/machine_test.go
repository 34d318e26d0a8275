package arena

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pashneal/stourney-platform/internal/game"
)

// fakeVerifier accepts exactly one secret.
type fakeVerifier struct{ accept string }

func (f fakeVerifier) Verify(secret string) bool {
	return secret != "" && secret == f.accept
}

// fakeLedger is an in-memory arena.Ledger.
type fakeLedger struct{ lens map[uuid.UUID]int }

func newFakeLedger() *fakeLedger { return &fakeLedger{lens: make(map[uuid.UUID]int)} }

func (f *fakeLedger) Len(id uuid.UUID) (int, bool) {
	n, ok := f.lens[id]
	return n, ok
}

func (f *fakeLedger) Grow(id uuid.UUID, n int) { f.lens[id] += n }

// fakeQueue records enqueued effects instead of persisting them.
type fakeQueue struct {
	pushed    []game.Update
	pushedIDs []uuid.UUID
	slug      string
	aliasErr  error
	gameOvers []uuid.UUID
}

func (f *fakeQueue) Push(id uuid.UUID, updates []game.Update) {
	for _, u := range updates {
		f.pushed = append(f.pushed, u)
		f.pushedIDs = append(f.pushedIDs, id)
	}
}

func (f *fakeQueue) Alias(ctx context.Context, id uuid.UUID) (string, error) {
	if f.aliasErr != nil {
		return "", f.aliasErr
	}
	return f.slug, nil
}

func (f *fakeQueue) GameOver(id uuid.UUID, total int) {
	f.gameOvers = append(f.gameOvers, id)
}

func newTestMachine() (*Machine, *fakeLedger, *fakeQueue) {
	ledger := newFakeLedger()
	q := &fakeQueue{slug: "plucky_otter0042"}
	m := NewMachine(fakeVerifier{accept: "valid"}, ledger, q, "http://arena.test", zerolog.Nop())
	return m, ledger, q
}

func snapshot() game.ClientInfo {
	return game.ClientInfo{
		Board: game.Board{
			DeckCounts: [3]int{16, 26, 36},
			AvailableCards: [][]game.Card{
				{{ID: 0, Points: 1, Color: game.Ruby}},
			},
			Nobles: []game.Noble{{Cost: game.Cost{Ruby: 4, Emerald: 4}}},
		},
		Players: []game.PlayerInfo{{}, {}},
	}
}

func TestRequestsBeforeAuthenticationAreRejected(t *testing.T) {
	m, _, q := newTestMachine()
	st := NewSessionState(uuid.New())

	reqs := []Request{
		{Type: ReqDebug, Text: "hi"},
		{Type: ReqHeartbeat},
		{Type: ReqReconnect, ID: uuid.New().String()},
		{Type: ReqInitialize, Info: &game.ClientInfo{}},
		{Type: ReqUpdates, Updates: []game.Update{{TurnNumber: 1}}},
		{Type: ReqGameOver, TotalUpdates: 3},
	}
	for _, req := range reqs {
		t.Run(string(req.Type), func(t *testing.T) {
			resp, next, err := m.Transition(context.Background(), st, req)
			if err != nil {
				t.Fatalf("unexpected hard error: %v", err)
			}
			if resp.Type != RespAuthenticated || resp.Status != StatusFailure {
				t.Errorf("got %+v, want authenticated failure", resp)
			}
			if next != st {
				t.Errorf("state changed: %+v -> %+v", st, next)
			}
		})
	}
	if len(q.pushed) != 0 {
		t.Errorf("unauthenticated requests enqueued %d commands", len(q.pushed))
	}
}

func TestAuthenticate(t *testing.T) {
	m, _, _ := newTestMachine()

	t.Run("empty secret never authenticates", func(t *testing.T) {
		st := NewSessionState(uuid.New())
		resp, next, err := m.Transition(context.Background(), st, Request{Type: ReqAuthenticate})
		if err != nil {
			t.Fatalf("unexpected hard error: %v", err)
		}
		if resp.Status != StatusFailure || next.Authenticated {
			t.Errorf("empty secret authenticated: resp=%+v state=%+v", resp, next)
		}
	})

	t.Run("wrong secret fails and leaves state unchanged", func(t *testing.T) {
		st := NewSessionState(uuid.New())
		resp, next, _ := m.Transition(context.Background(), st, Request{Type: ReqAuthenticate, Secret: "nope"})
		if resp.Status != StatusFailure || next.Authenticated {
			t.Errorf("wrong secret authenticated: resp=%+v state=%+v", resp, next)
		}
	})

	t.Run("correct secret sets authenticated", func(t *testing.T) {
		st := NewSessionState(uuid.New())
		resp, next, _ := m.Transition(context.Background(), st, Request{Type: ReqAuthenticate, Secret: "valid"})
		if resp.Type != RespAuthenticated || resp.Status != StatusSuccess {
			t.Fatalf("got %+v, want authenticated success", resp)
		}
		if !next.Authenticated {
			t.Error("authenticated flag not set")
		}
	})

	t.Run("re-authenticating does not reset initialized", func(t *testing.T) {
		st := SessionState{Authenticated: true, Initialized: true, ID: uuid.New()}
		_, next, _ := m.Transition(context.Background(), st, Request{Type: ReqAuthenticate, Secret: "valid"})
		if !next.Initialized {
			t.Error("authenticate reset the initialized flag")
		}
	})
}

func TestDebugAndHeartbeatAreAcknowledged(t *testing.T) {
	m, _, q := newTestMachine()
	st := SessionState{Authenticated: true, ID: uuid.New()}

	for _, req := range []Request{{Type: ReqDebug, Text: "probe"}, {Type: ReqHeartbeat}} {
		resp, next, err := m.Transition(context.Background(), st, req)
		if err != nil {
			t.Fatalf("%s: unexpected hard error: %v", req.Type, err)
		}
		if resp.Type != RespInfo {
			t.Errorf("%s: got %+v, want info", req.Type, resp)
		}
		if next != st {
			t.Errorf("%s: state changed", req.Type)
		}
	}
	if len(q.pushed) != 0 {
		t.Error("acknowledgements must not enqueue commands")
	}
}

func TestReconnect(t *testing.T) {
	m, ledger, _ := newTestMachine()
	known := uuid.New()
	ledger.Grow(known, 5)

	t.Run("malformed id is a failure, not an error", func(t *testing.T) {
		st := SessionState{Authenticated: true, ID: uuid.New()}
		resp, next, err := m.Transition(context.Background(), st, Request{Type: ReqReconnect, ID: "not-a-uuid"})
		if err != nil {
			t.Fatalf("unexpected hard error: %v", err)
		}
		if resp.Type != RespReconnected || resp.Status != StatusFailure {
			t.Errorf("got %+v, want reconnected failure", resp)
		}
		if next.ID != st.ID {
			t.Error("session id changed on malformed reconnect")
		}
	})

	t.Run("unknown id is a failure and leaves id unchanged", func(t *testing.T) {
		st := SessionState{Authenticated: true, ID: uuid.New()}
		resp, next, _ := m.Transition(context.Background(), st, Request{Type: ReqReconnect, ID: uuid.New().String()})
		if resp.Status != StatusFailure {
			t.Errorf("got %+v, want failure", resp)
		}
		if next.ID != st.ID {
			t.Error("session id changed on failed reconnect")
		}
	})

	t.Run("known id is adopted with recomputed progress", func(t *testing.T) {
		st := SessionState{Authenticated: true, ID: uuid.New()}
		resp, next, _ := m.Transition(context.Background(), st, Request{Type: ReqReconnect, ID: known.String()})
		if resp.Type != RespReconnected || resp.Status != StatusSuccess {
			t.Fatalf("got %+v, want reconnected success", resp)
		}
		if next.ID != known {
			t.Errorf("adopted id = %s, want %s", next.ID, known)
		}
		if next.Progress != 5 {
			t.Errorf("progress = %d, want 5", next.Progress)
		}
		if next.Initialized {
			t.Error("reconnect must not set initialized")
		}
	})
}

func TestInitialize(t *testing.T) {
	t.Run("enqueues turn zero and builds the replay url", func(t *testing.T) {
		m, ledger, q := newTestMachine()
		st := SessionState{Authenticated: true, ID: uuid.New()}
		info := snapshot()
		resp, next, err := m.Transition(context.Background(), st, Request{Type: ReqInitialize, Info: &info})
		if err != nil {
			t.Fatalf("unexpected hard error: %v", err)
		}
		if resp.Type != RespInitialized || resp.Status != StatusSuccess {
			t.Fatalf("got %+v, want initialized success", resp)
		}
		if resp.ID != st.ID.String() {
			t.Errorf("response id = %s, want %s", resp.ID, st.ID)
		}
		if want := "http://arena.test/replay/plucky_otter0042"; resp.URL != want {
			t.Errorf("url = %q, want %q", resp.URL, want)
		}
		if len(q.pushed) != 1 || q.pushed[0].TurnNumber != 0 {
			t.Errorf("pushed = %+v, want exactly one turn-0 append", q.pushed)
		}
		if !next.Initialized || next.Progress != 1 {
			t.Errorf("state after init = %+v", next)
		}
		if n, _ := ledger.Len(st.ID); n != 1 {
			t.Errorf("ledger length = %d, want 1", n)
		}
	})

	t.Run("missing snapshot is a failure", func(t *testing.T) {
		m, _, q := newTestMachine()
		st := SessionState{Authenticated: true, ID: uuid.New()}
		resp, next, _ := m.Transition(context.Background(), st, Request{Type: ReqInitialize})
		if resp.Type != RespInitialized || resp.Status != StatusFailure {
			t.Errorf("got %+v, want initialized failure", resp)
		}
		if next.Initialized || len(q.pushed) != 0 {
			t.Error("failed init must not change state or enqueue")
		}
	})

	t.Run("second initialize falls through to a hard error", func(t *testing.T) {
		m, _, q := newTestMachine()
		st := SessionState{Authenticated: true, Initialized: true, ID: uuid.New()}
		info := snapshot()
		_, _, err := m.Transition(context.Background(), st, Request{Type: ReqInitialize, Info: &info})
		if !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("err = %v, want ErrInvalidRequest", err)
		}
		if len(q.pushed) != 0 {
			t.Error("re-initialize enqueued commands")
		}
	})

	t.Run("alias failure surfaces as a hard error", func(t *testing.T) {
		m, _, q := newTestMachine()
		q.aliasErr = errors.New("consumer gone")
		st := SessionState{Authenticated: true, ID: uuid.New()}
		info := snapshot()
		_, _, err := m.Transition(context.Background(), st, Request{Type: ReqInitialize, Info: &info})
		if err == nil || !strings.Contains(err.Error(), "consumer gone") {
			t.Fatalf("err = %v, want wrapped alias error", err)
		}
	})
}

func TestUninitializedGate(t *testing.T) {
	m, _, _ := newTestMachine()
	st := SessionState{Authenticated: true, ID: uuid.New()}

	for _, req := range []Request{
		{Type: ReqUpdates, Updates: []game.Update{{TurnNumber: 1}}},
		{Type: ReqGameOver, TotalUpdates: 7},
	} {
		resp, next, err := m.Transition(context.Background(), st, req)
		if err != nil {
			t.Fatalf("%s: unexpected hard error: %v", req.Type, err)
		}
		if resp.Type != RespInitialized || resp.Status != StatusFailure {
			t.Errorf("%s: got %+v, want initialized failure", req.Type, resp)
		}
		if next != st {
			t.Errorf("%s: state changed", req.Type)
		}
	}
}

func TestGameUpdatesEnqueueInOrder(t *testing.T) {
	m, ledger, q := newTestMachine()
	st := SessionState{Authenticated: true, Initialized: true, ID: uuid.New(), Progress: 1}

	updates := []game.Update{{TurnNumber: 1}, {TurnNumber: 2}, {TurnNumber: 3}}
	resp, next, err := m.Transition(context.Background(), st, Request{Type: ReqUpdates, Updates: updates})
	if err != nil {
		t.Fatalf("unexpected hard error: %v", err)
	}
	if resp.Type != RespInfo {
		t.Fatalf("got %+v, want info ack", resp)
	}
	if len(q.pushed) != len(updates) {
		t.Fatalf("enqueued %d commands, want %d", len(q.pushed), len(updates))
	}
	for i, u := range q.pushed {
		if u.TurnNumber != updates[i].TurnNumber {
			t.Errorf("command %d: turn %d, want %d", i, u.TurnNumber, updates[i].TurnNumber)
		}
		if q.pushedIDs[i] != st.ID {
			t.Errorf("command %d: session %s, want %s", i, q.pushedIDs[i], st.ID)
		}
	}
	if next.Progress != 4 {
		t.Errorf("progress = %d, want 4", next.Progress)
	}
	if n, _ := ledger.Len(st.ID); n != 3 {
		t.Errorf("ledger grew by %d, want 3", n)
	}
}

func TestGameOverIsAcknowledged(t *testing.T) {
	m, _, q := newTestMachine()
	st := SessionState{Authenticated: true, Initialized: true, ID: uuid.New()}

	resp, next, err := m.Transition(context.Background(), st, Request{Type: ReqGameOver, TotalUpdates: 12})
	if err != nil {
		t.Fatalf("unexpected hard error: %v", err)
	}
	if resp.Type != RespInfo {
		t.Errorf("got %+v, want info ack", resp)
	}
	if len(q.gameOvers) != 1 || q.gameOvers[0] != st.ID {
		t.Errorf("game over markers = %v, want one for %s", q.gameOvers, st.ID)
	}
	if next != st {
		t.Error("game over changed session state")
	}
}
