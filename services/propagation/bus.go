package propagation

import (
	"context"

	"fastaid/models"
)

// AllKeys subscribes to every subscription key.
const AllKeys = "*"

// Bus moves change signals between processes. Delivery is unordered.
type Bus interface {
	Publish(ctx context.Context, signal models.ChangeSignal) error
	// Subscribe returns a channel of signals for key (or AllKeys) and a
	// cancel func that releases the subscription and closes the channel.
	Subscribe(ctx context.Context, key string) (<-chan models.ChangeSignal, func(), error)
	Close() error
}

// Notifier is what mutating services depend on. Notify must never block the caller.
type Notifier interface {
	Notify(signals ...models.ChangeSignal)
}

// NopNotifier discards every signal.
type NopNotifier struct{}

func (NopNotifier) Notify(...models.ChangeSignal) {}
