package shared

import (
	"time"

	"github.com/google/uuid"
)

// TenantAggregateRoot holds the identity, audit and locking fields of a
// tenant-owned aggregate together with the events it has raised but not yet
// handed to a publisher.
type TenantAggregateRoot struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time

	pending []DomainEvent
}

// NewTenantAggregateRoot stamps a fresh identity at now with version 1
func NewTenantAggregateRoot(tenantID uuid.UUID, now time.Time) TenantAggregateRoot {
	return TenantAggregateRoot{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch records a modification at now
func (a *TenantAggregateRoot) Touch(now time.Time) {
	a.UpdatedAt = now
}

// AddDomainEvent queues an event for publication after the aggregate is saved
func (a *TenantAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the queued events in the order they were raised
func (a *TenantAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents drops the queue once the events are published
func (a *TenantAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}
