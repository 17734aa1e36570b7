package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "DESC"},
		{"asc", "ASC"},
		{"  ASC ", "ASC"},
		{"desc", "DESC"},
		{"ASC; DROP TABLE invoices;--", "DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty falls back to default", "", "number"},
		{"whitelisted column", "payment_date", "payment_date"},
		{"surrounding whitespace is trimmed", "  date ", "date"},
		{"unlisted column", "remarks", "number"},
		{"column names are case sensitive", "DATE", "number"},
		{"injection in field", "date; DROP TABLE invoices;--", "number"},
		{"subquery", "date, (SELECT tenant_id FROM invoices)", "number"},
		{"quoted injection", "' OR ''='", "number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, InvoiceSortFields, "number"))
		})
	}
}
