package queue

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of policy event
type EventType string

const (
	// EventTypeOriginAdded is emitted after an origin is allowed
	EventTypeOriginAdded EventType = "origin_added"
	// EventTypeOriginRemoved is emitted after an origin is disallowed
	EventTypeOriginRemoved EventType = "origin_removed"
	// EventTypeStatsReset is emitted after the request counters are zeroed
	EventTypeStatsReset EventType = "stats_reset"
)

// Event is an audit record of a policy change
type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      EventType `json:"type"`
	Origin    string    `json:"origin,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Instance  string    `json:"instance,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEvent creates a new event
func NewEvent(eventType EventType, origin, actor string) *Event {
	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Origin:    origin,
		Actor:     actor,
		CreatedAt: time.Now().UTC(),
	}
}

// Valid reports whether the event type is known
func (t EventType) Valid() bool {
	switch t {
	case EventTypeOriginAdded, EventTypeOriginRemoved, EventTypeStatsReset:
		return true
	}
	return false
}
