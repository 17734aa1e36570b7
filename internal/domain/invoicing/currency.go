package invoicing

import (
	"strings"
	"time"

	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/freightdesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Currency is a currency that rate lines and invoices can be denominated in
type Currency struct {
	shared.TenantAggregateRoot
	Code valueobject.CurrencyCode
	Name string
}

// NewCurrency creates a currency after validating its ISO 4217 code
func NewCurrency(tenantID uuid.UUID, code, name string, now time.Time) (*Currency, error) {
	parsed, err := valueobject.ParseCurrencyCode(code)
	if err != nil {
		return nil, shared.NewDomainErrorWithCause("INVALID_CURRENCY_CODE", "Currency code must be a valid ISO 4217 code", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = parsed.String()
	}
	if len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_CURRENCY_NAME", "Currency name cannot exceed 100 characters")
	}
	return &Currency{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, now),
		Code:                parsed,
		Name:                name,
	}, nil
}
