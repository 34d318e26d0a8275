// internal/queue/queue.go
//
// Write-behind persistence queue.
//
// Structured the following way:
//
//      connections -> Queue (bounded channel) -> Consumer -> storage
//
// Every mutating storage call is serialized behind the single consumer
// goroutine, which is the only writer the SQLite file ever sees. Commands
// are data, not behavior; two of them (ResolveAlias, CreateSession) carry a
// single-use reply channel so the caller can await a computed value while
// everything else stays fire-and-forget.
//
// The queue is bounded (capacity set at construction). Overflow policy:
// the producer blocks. Every command is a durable write, so stalling one
// connection's goroutine is preferred over dropping work.
//
// Reply-channel contract: the consumer sends at most one value and always
// closes the channel; a close without a value means the storage operation
// failed or the consumer is shutting down. Callers must race the reply
// against their own context.

package queue

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pashneal/stourney-platform/internal/game"
)

// ErrClosed is returned by reply-bearing helpers when the consumer answered
// by closing the reply channel without a value.
var ErrClosed = errors.New("queue: no reply from consumer")

// Command is the closed set of queue commands.
type Command interface{ isCommand() }

// AppendUpdate upserts one turn snapshot for a session.
type AppendUpdate struct {
	ID     uuid.UUID
	Update game.Update
}

// ResolveAlias asks for the session's replay slug, assigning one if needed.
type ResolveAlias struct {
	ID    uuid.UUID
	Reply chan string
}

// CreateSession mints a new session id and persists its record.
type CreateSession struct {
	Reply chan uuid.UUID
}

// MarkGameOver records that a session reported completion.
type MarkGameOver struct {
	ID           uuid.UUID
	TotalUpdates int
}

func (AppendUpdate) isCommand()  {}
func (ResolveAlias) isCommand()  {}
func (CreateSession) isCommand() {}
func (MarkGameOver) isCommand()  {}

// Queue is the multi-producer side. Safe for concurrent use.
type Queue struct {
	ch chan Command
}

// DefaultCapacity bounds the queue when no explicit capacity is configured.
const DefaultCapacity = 1024

// New constructs a queue with the given capacity (DefaultCapacity if <= 0).
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{ch: make(chan Command, capacity)}
}

// Enqueue appends a command in global FIFO order. Blocks while the queue is
// full. Must not be called after Close.
func (q *Queue) Enqueue(cmd Command) {
	q.ch <- cmd
}

// Commands exposes the consumer end of the stream.
func (q *Queue) Commands() <-chan Command {
	return q.ch
}

// Close signals the consumer to drain and exit. Only the owner may call it,
// and only after every producer has stopped.
func (q *Queue) Close() {
	close(q.ch)
}

// NewSession mints a session id through the queue and blocks until the
// consumer replies or ctx expires.
func (q *Queue) NewSession(ctx context.Context) (uuid.UUID, error) {
	reply := make(chan uuid.UUID, 1)
	q.Enqueue(CreateSession{Reply: reply})
	select {
	case id, ok := <-reply:
		if !ok {
			return uuid.Nil, ErrClosed
		}
		return id, nil
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

// Alias resolves the session's replay slug through the queue and blocks
// until the consumer replies or ctx expires.
func (q *Queue) Alias(ctx context.Context, id uuid.UUID) (string, error) {
	reply := make(chan string, 1)
	q.Enqueue(ResolveAlias{ID: id, Reply: reply})
	select {
	case slug, ok := <-reply:
		if !ok {
			return "", ErrClosed
		}
		return slug, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Push enqueues one AppendUpdate per record, in list order, and returns
// without waiting for persistence.
func (q *Queue) Push(id uuid.UUID, updates []game.Update) {
	for _, u := range updates {
		q.Enqueue(AppendUpdate{ID: id, Update: u})
	}
}

// GameOver enqueues the completion marker.
func (q *Queue) GameOver(id uuid.UUID, totalUpdates int) {
	q.Enqueue(MarkGameOver{ID: id, TotalUpdates: totalUpdates})
}
