package invoicing

import (
	"strings"
	"time"

	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BasisPointsPerUnit is 100% expressed in basis points
const BasisPointsPerUnit int64 = 10000

// VatRate is a VAT class, e.g. "27%" stored as 2700 basis points
type VatRate struct {
	shared.TenantAggregateRoot
	NameEng         string
	RateBasisPoints int64
}

// NewVatRate creates a VAT class
func NewVatRate(tenantID uuid.UUID, nameEng string, rateBasisPoints int64, now time.Time) (*VatRate, error) {
	nameEng = strings.TrimSpace(nameEng)
	if nameEng == "" {
		return nil, shared.NewDomainError("INVALID_VAT_NAME", "VAT rate name cannot be empty")
	}
	if rateBasisPoints < 0 || rateBasisPoints > BasisPointsPerUnit {
		return nil, shared.NewDomainError("INVALID_VAT_RATE", "VAT rate must be between 0 and 10000 basis points")
	}
	return &VatRate{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, now),
		NameEng:             nameEng,
		RateBasisPoints:     rateBasisPoints,
	}, nil
}

// VatRateLookup resolves a VAT class to basis points
type VatRateLookup interface {
	FindBasisPoints(vatRateID uuid.UUID) (int64, bool)
}

// VatRateTable is an in-memory VatRateLookup
type VatRateTable map[uuid.UUID]int64

// NewVatRateTable indexes VAT rates by ID
func NewVatRateTable(rates []VatRate) VatRateTable {
	t := make(VatRateTable, len(rates))
	for _, r := range rates {
		t[r.ID] = r.RateBasisPoints
	}
	return t
}

// FindBasisPoints returns the rate for the VAT class
func (t VatRateTable) FindBasisPoints(vatRateID uuid.UUID) (int64, bool) {
	bp, ok := t[vatRateID]
	return bp, ok
}
