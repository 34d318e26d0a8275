// internal/queue/consumer.go
//
// The single consumer of the write-behind queue: the only component allowed
// to execute mutating storage operations.
//
// Failure containment: a storage error is fatal to that one command, never
// to the consumer loop or to any connection. Reply-bearing commands whose
// storage call fails still close their reply channel so the awaiting caller
// is released.

package queue

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pashneal/stourney-platform/internal/storage"
)

// Consumer executes commands against the persistence port.
type Consumer struct {
	store storage.Store
	log   zerolog.Logger
}

// NewConsumer constructs a consumer over the given store.
func NewConsumer(store storage.Store, log zerolog.Logger) *Consumer {
	return &Consumer{store: store, log: log}
}

// Run pulls commands strictly in arrival order until the queue is closed,
// then drains and returns. ctx bounds individual storage calls, not the
// loop; closing the queue is the shutdown signal.
func (c *Consumer) Run(ctx context.Context, q *Queue) {
	for cmd := range q.Commands() {
		c.process(ctx, cmd)
	}
	c.log.Debug().Msg("queue consumer drained, shutting down")
}

func (c *Consumer) process(ctx context.Context, cmd Command) {
	switch cmd := cmd.(type) {
	case AppendUpdate:
		if err := c.store.SaveUpdate(ctx, cmd.ID, cmd.Update); err != nil {
			c.log.Error().Err(err).
				Str("session", cmd.ID.String()).
				Int("turn", cmd.Update.TurnNumber).
				Msg("save game update")
		}

	case ResolveAlias:
		slug, err := c.store.EnsureSlug(ctx, cmd.ID)
		if err != nil {
			c.log.Error().Err(err).Str("session", cmd.ID.String()).Msg("resolve slug")
			close(cmd.Reply)
			return
		}
		cmd.Reply <- slug
		close(cmd.Reply)

	case CreateSession:
		id := uuid.New()
		if err := c.store.CreateGame(ctx, id); err != nil {
			c.log.Error().Err(err).Msg("create session record")
			close(cmd.Reply)
			return
		}
		cmd.Reply <- id
		close(cmd.Reply)

	case MarkGameOver:
		// No storage effect yet; what game-over should durably mean is an
		// open product question (see DESIGN.md).
		c.log.Info().Str("session", cmd.ID.String()).
			Int("totalUpdates", cmd.TotalUpdates).
			Msg("game over reported")
	}
}
