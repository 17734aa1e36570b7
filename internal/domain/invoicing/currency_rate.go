package invoicing

import (
	"sort"
	"time"

	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// FallbackCurrencyRate is the rate (1.00 in minor units) used when no record applies
const FallbackCurrencyRate int64 = 100

// CurrencyRate is the exchange rate of one unit of a currency into the
// organisation's base currency, valid from Date until a later record for the
// same (organisation, currency) pair supersedes it.
type CurrencyRate struct {
	shared.TenantAggregateRoot
	OrganisationID uuid.UUID
	CurrencyID     uuid.UUID
	RateMinorUnits int64 // exchange rate x 100
	Date           time.Time
}

// NewCurrencyRate records a new exchange rate
func NewCurrencyRate(tenantID, organisationID, currencyID uuid.UUID, rateMinorUnits int64, date, now time.Time) (*CurrencyRate, error) {
	if organisationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANISATION", "Organisation ID cannot be empty")
	}
	if currencyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency ID cannot be empty")
	}
	if rateMinorUnits <= 0 {
		return nil, shared.NewDomainError("INVALID_RATE", "Currency rate must be positive")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Currency rate date is required")
	}
	return &CurrencyRate{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, now),
		OrganisationID:      organisationID,
		CurrencyID:          currencyID,
		RateMinorUnits:      rateMinorUnits,
		Date:                date,
	}, nil
}

// CurrencyRateLookup resolves the exchange rate applicable on a date
type CurrencyRateLookup interface {
	// FindRate returns the rate in minor units and whether a record matched.
	// When nothing matches it returns FallbackCurrencyRate and false.
	FindRate(date time.Time, organisationID, currencyID uuid.UUID) (int64, bool)
}

type ratePair struct {
	organisationID uuid.UUID
	currencyID     uuid.UUID
}

// CurrencyRateTable is an in-memory CurrencyRateLookup over a set of records
// fetched from storage.
type CurrencyRateTable struct {
	byPair map[ratePair][]CurrencyRate // newest first
}

// NewCurrencyRateTable indexes records by (organisation, currency), newest first.
// Records sharing a date are ordered by recording time, then by ID, so the
// result does not depend on the order of records.
func NewCurrencyRateTable(records []CurrencyRate) *CurrencyRateTable {
	t := &CurrencyRateTable{byPair: make(map[ratePair][]CurrencyRate)}
	for _, r := range records {
		key := ratePair{organisationID: r.OrganisationID, currencyID: r.CurrencyID}
		t.byPair[key] = append(t.byPair[key], r)
	}
	for key := range t.byPair {
		rates := t.byPair[key]
		sort.Slice(rates, func(i, j int) bool {
			return newerRate(&rates[i], &rates[j])
		})
	}
	return t
}

func newerRate(a, b *CurrencyRate) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

// FindRate returns the most recent record dated strictly before date.
// A record dated exactly on date does not apply yet.
func (t *CurrencyRateTable) FindRate(date time.Time, organisationID, currencyID uuid.UUID) (int64, bool) {
	if t == nil {
		return FallbackCurrencyRate, false
	}
	for _, r := range t.byPair[ratePair{organisationID: organisationID, currencyID: currencyID}] {
		if r.Date.Before(date) {
			return r.RateMinorUnits, true
		}
	}
	return FallbackCurrencyRate, false
}

// Len returns the number of indexed records
func (t *CurrencyRateTable) Len() int {
	n := 0
	for _, rates := range t.byPair {
		n += len(rates)
	}
	return n
}
