// Package events publishes domain events about committed repository changes.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "generic-repository"
	EventVersion = "1.0"

	TypeEntitiesCommitted = "repository.entities_committed"
)

// Event is the envelope every published event is wrapped in
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// EntitiesCommitted is published after a unit of work wrote rows to the store
type EntitiesCommitted struct {
	UnitOfWorkID string `json:"unit_of_work_id"`
	Entity       string `json:"entity"`
	Affected     int64  `json:"affected"`
}

// EventPublisher publishes events to a message broker
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// NewEvent wraps data in an envelope with a fresh id and timestamp
func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
