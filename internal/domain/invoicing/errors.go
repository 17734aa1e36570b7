package invoicing

import (
	"fmt"

	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Error codes raised by the invoicing domain
const (
	CodeMissingReferenceRate = "MISSING_REFERENCE_RATE"
	CodeMalformedRateLine    = "MALFORMED_RATE_LINE"
	CodeInvalidInvoiceNumber = "INVALID_INVOICE_NUMBER"
	CodeInvoiceIncomplete    = "INVOICE_INCOMPLETE"
)

var (
	// ErrMissingReferenceRate matches every recoverable missing-rate ComputationError
	ErrMissingReferenceRate = shared.NewDomainError(CodeMissingReferenceRate, "Reference rate is missing")
	// ErrMalformedRateLine matches every fatal malformed-line ComputationError
	ErrMalformedRateLine = shared.NewDomainError(CodeMalformedRateLine, "Rate line is malformed")
)

// ComputationErrorKind distinguishes recoverable from fatal computation failures
type ComputationErrorKind string

const (
	// KindMissingReferenceRate: no currency or VAT rate matched. The computation falls back
	// (rate 1.00, VAT 0) and the error is reported as a warning.
	KindMissingReferenceRate ComputationErrorKind = "MISSING_REFERENCE_RATE"
	// KindMalformedRateLine: the line cannot be computed. Invoice finalization must abort.
	KindMalformedRateLine ComputationErrorKind = "MALFORMED_RATE_LINE"
)

// ReferenceKind names the reference data a MissingReferenceRate error refers to
type ReferenceKind string

const (
	ReferenceCurrencyRate ReferenceKind = "currency_rate"
	ReferenceVatRate      ReferenceKind = "vat_rate"
)

// ComputationError is raised while converting rate lines
type ComputationError struct {
	Kind        ComputationErrorKind `json:"kind"`
	RateLineID  uuid.UUID            `json:"rate_line_id"`
	Reference   ReferenceKind        `json:"reference,omitempty"`
	ReferenceID uuid.UUID            `json:"reference_id,omitempty"`
	Message     string               `json:"message"`
}

// Error implements error
func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s: rate line %s: %s", e.Kind, e.RateLineID, e.Message)
}

// Unwrap maps the kind onto its domain error so errors.Is and the HTTP error mapper see a code
func (e *ComputationError) Unwrap() error {
	if e.Kind == KindMissingReferenceRate {
		return ErrMissingReferenceRate
	}
	return ErrMalformedRateLine
}

// Recoverable reports whether the computation continued with a fallback value
func (e *ComputationError) Recoverable() bool {
	return e.Kind == KindMissingReferenceRate
}

func newMissingCurrencyRate(lineID, currencyID uuid.UUID) *ComputationError {
	return &ComputationError{
		Kind:        KindMissingReferenceRate,
		RateLineID:  lineID,
		Reference:   ReferenceCurrencyRate,
		ReferenceID: currencyID,
		Message:     fmt.Sprintf("no currency rate for currency %s before invoice date, using 1.00", currencyID),
	}
}

func newMissingVatRate(lineID uuid.UUID, vatRateID *uuid.UUID) *ComputationError {
	e := &ComputationError{
		Kind:       KindMissingReferenceRate,
		RateLineID: lineID,
		Reference:  ReferenceVatRate,
		Message:    "rate line has no VAT class, using 0%",
	}
	if vatRateID != nil {
		e.ReferenceID = *vatRateID
		e.Message = fmt.Sprintf("VAT rate %s not found, using 0%%", *vatRateID)
	}
	return e
}

func newMalformedRateLine(lineID uuid.UUID, format string, args ...any) *ComputationError {
	return &ComputationError{
		Kind:       KindMalformedRateLine,
		RateLineID: lineID,
		Message:    fmt.Sprintf(format, args...),
	}
}
