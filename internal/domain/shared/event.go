package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that occurred in the domain
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type of the event
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseDomainEvent creates a new base domain event
func NewBaseDomainEvent(eventType string) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now(),
	}
}

// Record change event types
const (
	EventTypeRecordCreated = "RecordCreated"
	EventTypeRecordUpdated = "RecordUpdated"
	EventTypeRecordDeleted = "RecordDeleted"
)

// RecordChangedEvent is published after a successful create, update or delete
type RecordChangedEvent struct {
	BaseDomainEvent
	Collection string `json:"collection"`
	RecordID   string `json:"record_id"`
}

// NewRecordChangedEvent creates a record change event of the given type
func NewRecordChangedEvent(eventType, collection, recordID string) *RecordChangedEvent {
	return &RecordChangedEvent{
		BaseDomainEvent: NewBaseDomainEvent(eventType),
		Collection:      collection,
		RecordID:        recordID,
	}
}
