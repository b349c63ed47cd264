package outbox

import (
	"context"

	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
)

// Record is one committed event together with the snapshot it produced.
type Record struct {
	Envelope events.Envelope
	Snapshot state.Snapshot
}

// Publisher delivers envelopes to subscribers. Publish must be safe to
// call again with the same envelope.
type Publisher interface {
	Publish(ctx context.Context, env events.Envelope) error
}

// Archiver persists committed records. It is optional.
type Archiver interface {
	Archive(ctx context.Context, rec Record) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, env events.Envelope) error

func (f PublisherFunc) Publish(ctx context.Context, env events.Envelope) error {
	return f(ctx, env)
}
