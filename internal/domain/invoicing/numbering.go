package invoicing

import (
	"fmt"
	"strconv"

	"github.com/freightdesk/backend/internal/domain/shared"
)

const (
	// InvoiceNumberPrefix prefixes every invoice number
	InvoiceNumberPrefix = "GH_"
	invoiceNumberDigits = 6
	maxInvoiceSequence  = 999999

	// seedInvoiceNumber stands in for the current maximum when no invoice exists yet.
	// It is incremented like any other number, so the first generated number is GH_000002.
	seedInvoiceNumber = "GH_000001"
)

// NextInvoiceNumber derives the next draft invoice number from the highest existing one.
// The last six characters are parsed as the sequence, incremented and zero padded.
func NextInvoiceNumber(currentMax string) (string, error) {
	if currentMax == "" {
		currentMax = seedInvoiceNumber
	}
	if len(currentMax) < invoiceNumberDigits {
		return "", shared.NewDomainError(CodeInvalidInvoiceNumber, fmt.Sprintf("Invoice number %q is too short", currentMax))
	}
	seq, err := strconv.Atoi(currentMax[len(currentMax)-invoiceNumberDigits:])
	if err != nil || seq < 0 {
		return "", shared.NewDomainErrorWithCause(CodeInvalidInvoiceNumber, fmt.Sprintf("Invoice number %q has no numeric sequence", currentMax), err)
	}
	if seq >= maxInvoiceSequence {
		return "", shared.NewDomainError(CodeInvalidInvoiceNumber, "Invoice number sequence is exhausted")
	}
	return FormatInvoiceNumber(seq + 1), nil
}

// FormatInvoiceNumber renders a sequence value as GH_NNNNNN
func FormatInvoiceNumber(seq int) string {
	return fmt.Sprintf("%s%0*d", InvoiceNumberPrefix, invoiceNumberDigits, seq)
}

// ValidateInvoiceNumber checks the GH_ + 6 ASCII digits format
func ValidateInvoiceNumber(number string) error {
	if len(number) != len(InvoiceNumberPrefix)+invoiceNumberDigits || number[:len(InvoiceNumberPrefix)] != InvoiceNumberPrefix {
		return shared.NewDomainError(CodeInvalidInvoiceNumber, fmt.Sprintf("Invoice number %q must match GH_NNNNNN", number))
	}
	for _, r := range number[len(InvoiceNumberPrefix):] {
		if r < '0' || r > '9' {
			return shared.NewDomainError(CodeInvalidInvoiceNumber, fmt.Sprintf("Invoice number %q must match GH_NNNNNN", number))
		}
	}
	return nil
}
