package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes orderDir to ASC or DESC, defaulting to DESC
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted, otherwise defaultField.
// Column names are interpolated into ORDER BY, so nothing outside the whitelist may pass.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// InvoiceSortFields lists the invoice columns a list request may order by
var InvoiceSortFields = map[string]bool{
	"created_at":         true,
	"updated_at":         true,
	"number":             true,
	"date":               true,
	"payment_date":       true,
	"status":             true,
	"amount_minor_units": true,
	"finalized_at":       true,
}
