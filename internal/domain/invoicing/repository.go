package invoicing

import (
	"context"
	"time"

	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	Status     *InvoiceStatus // Filter by status
	CustomerID *uuid.UUID     // Filter by customer
	FromDate   *time.Time     // Filter by invoice date range start
	ToDate     *time.Time     // Filter by invoice date range end
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByIDForTenant finds an invoice by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its GH_ number for a tenant
	FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Invoice, error)

	// FindAllForTenant finds invoices for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) ([]Invoice, error)

	// CountForTenant counts invoices for a tenant with the same filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) (int64, error)

	// FindMaxNumber returns the highest existing invoice number, or "" if none exist
	FindMaxNumber(ctx context.Context, tenantID uuid.UUID) (string, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *Invoice) error
}

// RateLineRepository defines the interface for rate line persistence
type RateLineRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*RateLine, error)

	// FindByIDs finds rate lines by ID for a tenant; missing IDs are skipped
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]RateLine, error)

	// FindByInvoiceNumber finds every rate line attached to an invoice
	FindByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) ([]RateLine, error)

	Save(ctx context.Context, line *RateLine) error

	// SaveBatch saves several rate lines in one statement
	SaveBatch(ctx context.Context, lines []RateLine) error
}

// CurrencyRepository defines the interface for currency persistence
type CurrencyRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Currency, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]Currency, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
	Save(ctx context.Context, currency *Currency) error
}

// CurrencyRateFilter defines filtering options for currency rate queries
type CurrencyRateFilter struct {
	shared.Filter
	OrganisationID *uuid.UUID
	CurrencyID     *uuid.UUID
	Before         *time.Time // only records dated strictly before
}

// CurrencyRateRepository defines the interface for currency rate persistence
type CurrencyRateRepository interface {
	// FindForOrganisation returns every rate record of an organisation.
	// The result feeds a CurrencyRateTable.
	FindForOrganisation(ctx context.Context, tenantID, organisationID uuid.UUID) ([]CurrencyRate, error)

	// FindAllForTenant lists rate records with filtering, newest first
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter CurrencyRateFilter) ([]CurrencyRate, error)

	Save(ctx context.Context, rate *CurrencyRate) error
}

// VatRateRepository defines the interface for VAT rate persistence
type VatRateRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*VatRate, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]VatRate, error)
	Save(ctx context.Context, rate *VatRate) error
}

// InvoiceRateSnapshotRepository defines the interface for snapshot persistence.
// Replace operations must run inside a transaction together with the invoice update.
type InvoiceRateSnapshotRepository interface {
	// FindByInvoice returns the snapshots of an invoice, empty if it was never finalized
	FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]InvoiceRateSnapshot, error)

	// DeleteByInvoice bulk-deletes the snapshots of an invoice
	DeleteByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (int64, error)

	// SaveBatch inserts snapshots
	SaveBatch(ctx context.Context, snapshots []InvoiceRateSnapshot) error
}
