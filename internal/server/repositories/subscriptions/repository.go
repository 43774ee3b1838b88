package subscriptions

import "context"

type Repository interface {
	// Subscribe records subscriberID following channelID. Subscribing twice
	// is a no-op.
	Subscribe(ctx context.Context, subscriberID, channelID string) error

	// Unsubscribe removes the pair. Removing an absent pair is a no-op.
	Unsubscribe(ctx context.Context, subscriberID, channelID string) error
}
