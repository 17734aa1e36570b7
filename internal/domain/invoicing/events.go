package invoicing

import (
	"time"

	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event type names
const (
	EventTypeInvoiceDraftCreated = "InvoiceDraftCreated"
	EventTypeInvoiceFinalized    = "InvoiceFinalized"
	EventTypeInvoiceRecomputed   = "InvoiceRecomputed"
	EventTypeInvoicePaid         = "InvoicePaid"
)

// InvoiceDraftCreatedEvent is raised when a numbered draft is created
type InvoiceDraftCreatedEvent struct {
	shared.EventHeader
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
}

// NewInvoiceDraftCreatedEvent creates a new InvoiceDraftCreatedEvent
func NewInvoiceDraftCreatedEvent(inv *Invoice, now time.Time) *InvoiceDraftCreatedEvent {
	return &InvoiceDraftCreatedEvent{
		EventHeader:   shared.NewEventHeader(EventTypeInvoiceDraftCreated, inv.ID, inv.TenantID, now),
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.Number,
	}
}

// InvoiceFinalizedEvent is raised when snapshots and totals are frozen
type InvoiceFinalizedEvent struct {
	shared.EventHeader
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Amount        int64     `json:"amount"`
	AmountWoVat   int64     `json:"amount_wo_vat"`
	VatAmount     int64     `json:"vat_amount"`
	LineCount     int       `json:"line_count"`
	WarningCount  int       `json:"warning_count"`
}

// NewInvoiceFinalizedEvent creates a new InvoiceFinalizedEvent
func NewInvoiceFinalizedEvent(inv *Invoice, lineCount, warningCount int, now time.Time) *InvoiceFinalizedEvent {
	return &InvoiceFinalizedEvent{
		EventHeader:   shared.NewEventHeader(EventTypeInvoiceFinalized, inv.ID, inv.TenantID, now),
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.Number,
		Amount:        inv.AmountMinorUnits,
		AmountWoVat:   inv.AmountWoVatMinorUnits,
		VatAmount:     inv.VatAmountMinorUnits,
		LineCount:     lineCount,
		WarningCount:  warningCount,
	}
}

// InvoiceRecomputedEvent is raised when a pending invoice's snapshots are replaced
type InvoiceRecomputedEvent struct {
	shared.EventHeader
	InvoiceID      uuid.UUID `json:"invoice_id"`
	InvoiceNumber  string    `json:"invoice_number"`
	PreviousAmount int64     `json:"previous_amount"`
	Amount         int64     `json:"amount"`
	LineCount      int       `json:"line_count"`
}

// NewInvoiceRecomputedEvent creates a new InvoiceRecomputedEvent
func NewInvoiceRecomputedEvent(inv *Invoice, previous InvoiceTotals, lineCount int, now time.Time) *InvoiceRecomputedEvent {
	return &InvoiceRecomputedEvent{
		EventHeader:    shared.NewEventHeader(EventTypeInvoiceRecomputed, inv.ID, inv.TenantID, now),
		InvoiceID:      inv.ID,
		InvoiceNumber:  inv.Number,
		PreviousAmount: previous.Amount,
		Amount:         inv.AmountMinorUnits,
		LineCount:      lineCount,
	}
}

// InvoicePaidEvent is raised when an invoice is marked paid
type InvoicePaidEvent struct {
	shared.EventHeader
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Amount        int64     `json:"amount"`
	PaidAt        time.Time `json:"paid_at"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice, now time.Time) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		EventHeader:   shared.NewEventHeader(EventTypeInvoicePaid, inv.ID, inv.TenantID, now),
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.Number,
		Amount:        inv.AmountMinorUnits,
		PaidAt:        now,
	}
}
