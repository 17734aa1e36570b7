package invoicing

import (
	"fmt"
	"time"

	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"   // numbered, being populated
	InvoiceStatusPending InvoiceStatus = "pending" // finalized, awaiting payment
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// CanEdit returns true if header fields and rate lines may change
func (s InvoiceStatus) CanEdit() bool {
	return s == InvoiceStatusDraft
}

// CanFinalize returns true if snapshots may be (re)written
func (s InvoiceStatus) CanFinalize() bool {
	return s == InvoiceStatusDraft || s == InvoiceStatusPending
}

// CanMarkPaid returns true if the invoice can be paid
func (s InvoiceStatus) CanMarkPaid() bool {
	return s == InvoiceStatusPending
}

// Invoice is the invoice aggregate root.
// Amount fields hold the totals frozen at the last finalization.
type Invoice struct {
	shared.TenantAggregateRoot
	Number                string
	CustomerID            *uuid.UUID
	OrganisationID        *uuid.UUID
	CurrencyID            *uuid.UUID
	Date                  *time.Time
	PerformanceDate       *time.Time
	PaymentDate           *time.Time
	Status                InvoiceStatus
	AmountMinorUnits      int64
	AmountWoVatMinorUnits int64
	VatAmountMinorUnits   int64
	Remarks               string
	FinalizedAt           *time.Time
	PaidAt                *time.Time
}

// InvoiceDetails are the header fields set by the create/update action
type InvoiceDetails struct {
	CustomerID      uuid.UUID
	OrganisationID  uuid.UUID
	CurrencyID      uuid.UUID
	Date            time.Time
	PerformanceDate time.Time
	PaymentDate     time.Time
	Remarks         string
}

// NewDraftInvoice creates a draft carrying only its number
func NewDraftInvoice(tenantID uuid.UUID, number string, now time.Time) (*Invoice, error) {
	if err := ValidateInvoiceNumber(number); err != nil {
		return nil, err
	}
	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, now),
		Number:              number,
		Status:              InvoiceStatusDraft,
	}
	inv.AddDomainEvent(NewInvoiceDraftCreatedEvent(inv, now))
	return inv, nil
}

// Populate sets the header fields of a draft
func (i *Invoice) Populate(d InvoiceDetails, now time.Time) error {
	if !i.Status.CanEdit() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot edit invoice in %s status", i.Status))
	}
	if d.CustomerID == uuid.Nil {
		return shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if d.OrganisationID == uuid.Nil {
		return shared.NewDomainError("INVALID_ORGANISATION", "Organisation ID cannot be empty")
	}
	if d.CurrencyID == uuid.Nil {
		return shared.NewDomainError("INVALID_CURRENCY", "Currency ID cannot be empty")
	}
	if d.Date.IsZero() || d.PerformanceDate.IsZero() || d.PaymentDate.IsZero() {
		return shared.NewDomainError("INVALID_DATE", "Invoice, performance and payment dates are required")
	}
	if d.PaymentDate.Before(d.Date) {
		return shared.NewDomainError("INVALID_DATE", "Payment date cannot be before invoice date")
	}
	if len(d.Remarks) > 2000 {
		return shared.NewDomainError("INVALID_REMARKS", "Remarks cannot exceed 2000 characters")
	}

	i.CustomerID = &d.CustomerID
	i.OrganisationID = &d.OrganisationID
	i.CurrencyID = &d.CurrencyID
	i.Date = &d.Date
	i.PerformanceDate = &d.PerformanceDate
	i.PaymentDate = &d.PaymentDate
	i.Remarks = d.Remarks
	i.Touch(now)
	return nil
}

// IsPopulated reports whether the header fields needed for computation are set
func (i *Invoice) IsPopulated() bool {
	return i.OrganisationID != nil && i.CurrencyID != nil && i.Date != nil
}

// IsFinalized reports whether snapshots exist for the invoice
func (i *Invoice) IsFinalized() bool {
	return i.FinalizedAt != nil
}

// ConversionContext returns the context rate lines are converted against
func (i *Invoice) ConversionContext() (ConversionContext, error) {
	if !i.IsPopulated() {
		return ConversionContext{}, shared.NewDomainError(CodeInvoiceIncomplete, "Invoice organisation, currency and date must be set first")
	}
	return ConversionContext{
		InvoiceDate:       *i.Date,
		OrganisationID:    *i.OrganisationID,
		InvoiceCurrencyID: *i.CurrencyID,
	}, nil
}

// Totals returns the frozen totals
func (i *Invoice) Totals() InvoiceTotals {
	return InvoiceTotals{
		AmountWoVat: i.AmountWoVatMinorUnits,
		VatAmount:   i.VatAmountMinorUnits,
		Amount:      i.AmountMinorUnits,
	}
}

// Finalize freezes the computed totals and moves a draft to pending
func (i *Invoice) Finalize(c *Computation, now time.Time) error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot finalize invoice in %s status", i.Status))
	}
	if !i.IsPopulated() {
		return shared.NewDomainError(CodeInvoiceIncomplete, "Invoice organisation, currency and date must be set first")
	}
	i.applyTotals(c.Totals, now)
	i.Status = InvoiceStatusPending
	i.AddDomainEvent(NewInvoiceFinalizedEvent(i, len(c.Lines), len(c.Warnings), now))
	return nil
}

// Recompute replaces the frozen totals of a pending invoice
func (i *Invoice) Recompute(c *Computation, now time.Time) error {
	if i.Status != InvoiceStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot recompute invoice in %s status", i.Status))
	}
	previous := i.Totals()
	i.applyTotals(c.Totals, now)
	i.AddDomainEvent(NewInvoiceRecomputedEvent(i, previous, len(c.Lines), now))
	return nil
}

// MarkPaid marks a pending invoice as paid
func (i *Invoice) MarkPaid(now time.Time) error {
	if !i.Status.CanMarkPaid() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark invoice paid in %s status", i.Status))
	}
	i.Status = InvoiceStatusPaid
	i.PaidAt = &now
	i.Touch(now)
	i.AddDomainEvent(NewInvoicePaidEvent(i, now))
	return nil
}

func (i *Invoice) applyTotals(t InvoiceTotals, now time.Time) {
	i.AmountWoVatMinorUnits = t.AmountWoVat
	i.VatAmountMinorUnits = t.VatAmount
	i.AmountMinorUnits = t.Amount
	i.FinalizedAt = &now
	i.Touch(now)
}
