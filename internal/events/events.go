package events

import (
	"context"

	"github.com/property-shares/backend/internal/models"
)

// Channels
const (
	ChannelLedger = "events:ledger"
	holderPrefix  = "events:holder:"
)

// HolderChannel carries the events a single holder took part in.
func HolderChannel(holder string) string {
	return holderPrefix + holder
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event models.LedgerEvent) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler func(models.LedgerEvent)) error
}
