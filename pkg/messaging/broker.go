package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channels published by the booking and reminder flows. Consumed by the
// in-app feed; nothing in this process subscribes.
const (
	ChannelAppointments = "appointments"
	ChannelReminders    = "reminders"
)
