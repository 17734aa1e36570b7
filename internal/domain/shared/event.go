package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact raised by an aggregate
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	AggregateID() uuid.UUID
	TenantID() uuid.UUID
	OccurredAt() time.Time
}

// EventHeader carries the fields every event shares. Concrete events embed it
// and add their payload.
type EventHeader struct {
	ID        uuid.UUID `json:"event_id"`
	Type      string    `json:"event_type"`
	Aggregate uuid.UUID `json:"aggregate_id"`
	Tenant    uuid.UUID `json:"tenant_id"`
	At        time.Time `json:"occurred_at"`
}

// NewEventHeader assigns a fresh event id
func NewEventHeader(eventType string, aggregateID, tenantID uuid.UUID, occurredAt time.Time) EventHeader {
	return EventHeader{
		ID:        uuid.New(),
		Type:      eventType,
		Aggregate: aggregateID,
		Tenant:    tenantID,
		At:        occurredAt,
	}
}

func (h *EventHeader) EventID() uuid.UUID     { return h.ID }
func (h *EventHeader) EventType() string      { return h.Type }
func (h *EventHeader) AggregateID() uuid.UUID { return h.Aggregate }
func (h *EventHeader) TenantID() uuid.UUID    { return h.Tenant }
func (h *EventHeader) OccurredAt() time.Time  { return h.At }

// EventHandler reacts to published events
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler wants; empty means all.
	EventTypes() []string
}

// EventPublisher hands events to subscribers
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}
