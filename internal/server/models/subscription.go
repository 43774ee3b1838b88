package models

import "time"

// Subscription records that Subscriber follows Channel. One row per pair.
type Subscription struct {
	ID           string
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}
