package gateway

import (
	"context"

	"github.com/mcdev12/auctionroom/go/internal/auction/events"
)

// LocalPublisher hands relay output directly to the connection manager,
// for deployments where the gateway runs in the authority process.
type LocalPublisher struct {
	cm *ConnectionManager
}

func NewLocalPublisher(cm *ConnectionManager) *LocalPublisher {
	return &LocalPublisher{cm: cm}
}

func (p *LocalPublisher) Publish(ctx context.Context, env events.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.cm.Broadcast(env)
	return nil
}
