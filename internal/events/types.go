// Package events provides an asynchronous in-process event bus used to
// propagate notification read-state transitions between components in the
// same client process (list views, badge counters, forwarders) without a
// shared network refetch.
package events

import (
	"time"
)

// ReadEvent represents one notification read transition.
type ReadEvent interface {
	// GetNotificationID returns the identifier of the notification that
	// was marked read
	GetNotificationID() string

	// GetTimestamp returns when the read transition happened
	GetTimestamp() time.Time
}

// EventConsumer represents a consumer that processes read events
type EventConsumer interface {
	// Name returns the consumer name for identification
	Name() string

	// ProcessEvent processes a single read event
	ProcessEvent(event ReadEvent) error
}

// EventBusStats contains runtime statistics for monitoring
type EventBusStats struct {
	EventsReceived  uint64
	EventsProcessed uint64
	EventsDropped   uint64
	ConsumerErrors  uint64
}

// readStateEvent is the concrete ReadEvent implementation.
type readStateEvent struct {
	notificationID string
	timestamp      time.Time
}

// NewReadEvent creates a read event for the given notification id.
func NewReadEvent(notificationID string) ReadEvent {
	return &readStateEvent{
		notificationID: notificationID,
		timestamp:      time.Now(),
	}
}

func (e *readStateEvent) GetNotificationID() string { return e.notificationID }
func (e *readStateEvent) GetTimestamp() time.Time   { return e.timestamp }
