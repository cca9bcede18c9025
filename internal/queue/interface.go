package queue

import (
	"context"
)

// EventPublisher is the interface for policy event sinks
type EventPublisher interface {
	// Publish sends an event to every subscriber
	Publish(ctx context.Context, event *Event) error

	// Close closes the connection
	Close() error

	// HealthCheck verifies the connection is healthy
	HealthCheck(ctx context.Context) error
}

// EventWatcher streams published events
type EventWatcher interface {
	// Watch returns a channel of events published after the call
	// The channels are closed when the context is cancelled or the connection drops
	Watch(ctx context.Context) (<-chan *Event, <-chan error, error)
}

// NopPublisher discards events. It is used when RABBITMQ_URL is unset.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, *Event) error { return nil }

// Close implements EventPublisher.
func (NopPublisher) Close() error { return nil }

// HealthCheck implements EventPublisher.
func (NopPublisher) HealthCheck(context.Context) error { return nil }
