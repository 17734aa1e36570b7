package invoicing

import (
	"time"

	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateLine is one billable item (service + route + quantity + unit rate)
// before currency conversion and VAT.
type RateLine struct {
	shared.TenantAggregateRoot
	ServiceID      uuid.UUID
	ShipmentID     *uuid.UUID
	RouteID        *uuid.UUID
	RateMinorUnits int64
	CurrencyID     uuid.UUID
	Quantity       decimal.Decimal
	VatRateID      *uuid.UUID
	InvoiceNumber  string // empty until attached to an invoice
	Description    string
}

// RateLineInput carries the fields of a new rate line
type RateLineInput struct {
	ServiceID      uuid.UUID
	ShipmentID     *uuid.UUID
	RouteID        *uuid.UUID
	RateMinorUnits int64
	CurrencyID     uuid.UUID
	Quantity       decimal.Decimal
	VatRateID      *uuid.UUID
	Description    string
}

// NewRateLine creates a rate line
func NewRateLine(tenantID uuid.UUID, in RateLineInput, now time.Time) (*RateLine, error) {
	if in.ServiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SERVICE", "Service ID cannot be empty")
	}
	line := &RateLine{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, now),
		ServiceID:           in.ServiceID,
		ShipmentID:          in.ShipmentID,
		RouteID:             in.RouteID,
		RateMinorUnits:      in.RateMinorUnits,
		CurrencyID:          in.CurrencyID,
		Quantity:            in.Quantity,
		VatRateID:           in.VatRateID,
		Description:         in.Description,
	}
	if err := line.Validate(); err != nil {
		return nil, err
	}
	return line, nil
}

// Validate checks the computation invariants: rate >= 0, quantity > 0, currency set.
// A violation is a fatal ComputationError.
func (l *RateLine) Validate() error {
	if l.RateMinorUnits < 0 {
		return newMalformedRateLine(l.ID, "rate must not be negative, got %d", l.RateMinorUnits)
	}
	if !l.Quantity.IsPositive() {
		return newMalformedRateLine(l.ID, "quantity must be positive, got %s", l.Quantity.String())
	}
	if l.CurrencyID == uuid.Nil {
		return newMalformedRateLine(l.ID, "currency is required")
	}
	return nil
}

// IsAttached reports whether the line belongs to an invoice
func (l *RateLine) IsAttached() bool {
	return l.InvoiceNumber != ""
}

// AttachTo assigns the line to an invoice by number
func (l *RateLine) AttachTo(invoiceNumber string, now time.Time) error {
	if err := ValidateInvoiceNumber(invoiceNumber); err != nil {
		return err
	}
	if l.IsAttached() && l.InvoiceNumber != invoiceNumber {
		return shared.NewDomainError("RATE_ALREADY_ATTACHED", "Rate line is already attached to invoice "+l.InvoiceNumber)
	}
	l.InvoiceNumber = invoiceNumber
	l.Touch(now)
	return nil
}
