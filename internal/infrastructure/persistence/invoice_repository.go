package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/freightdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByIDForTenant finds an invoice by ID within a tenant
func (r *GormInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an invoice by its number within a tenant
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND number = ?", tenantID, strings.ToUpper(strings.TrimSpace(number))).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds invoices for a tenant with filtering and pagination
func (r *GormInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.InvoiceFilter) ([]invoicing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]invoicing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices, nil
}

// CountForTenant counts invoices for a tenant matching the filter
func (r *GormInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.InvoiceFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindMaxNumber returns the highest invoice number of a tenant, or "" when none exist.
// Numbers are fixed width so the lexical maximum is the numeric maximum.
func (r *GormInvoiceRepository) FindMaxNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	var maxNumber sql.NullString
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("tenant_id = ?", tenantID).
		Select("MAX(number)").
		Scan(&maxNumber).Error; err != nil {
		return "", err
	}
	return maxNumber.String, nil
}

// Save creates or updates an invoice.
// A clash on the (tenant, number) unique index is reported as shared.ErrAlreadyExists.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *invoicing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return translateWriteError(err)
	}
	return nil
}

// SaveWithLock saves an invoice with optimistic locking.
// The invoice version must match the stored version; on success it is incremented.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *invoicing.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		result := tx.Model(&models.InvoiceModel{}).
			Where("tenant_id = ? AND id = ?", invoice.TenantID, invoice.ID).
			Select("version").
			Scan(&currentVersion)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}

		if currentVersion != invoice.Version {
			return shared.ErrConcurrencyConflict
		}

		nextVersion := invoice.Version + 1
		updates := map[string]interface{}{
			"customer_id":               invoice.CustomerID,
			"organisation_id":           invoice.OrganisationID,
			"currency_id":               invoice.CurrencyID,
			"date":                      invoice.Date,
			"performance_date":          invoice.PerformanceDate,
			"payment_date":              invoice.PaymentDate,
			"status":                    string(invoice.Status),
			"amount_minor_units":        invoice.AmountMinorUnits,
			"amount_wo_vat_minor_units": invoice.AmountWoVatMinorUnits,
			"vat_amount_minor_units":    invoice.VatAmountMinorUnits,
			"remarks":                   invoice.Remarks,
			"finalized_at":              invoice.FinalizedAt,
			"paid_at":                   invoice.PaidAt,
			"version":                   nextVersion,
			"updated_at":                invoice.UpdatedAt,
		}

		result = tx.Model(&models.InvoiceModel{}).
			Where("id = ? AND version = ?", invoice.ID, currentVersion).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		invoice.Version = nextVersion
		return nil
	})
}

// applyFilter applies filtering, ordering and pagination
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter invoicing.InvoiceFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "number")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	if orderBy != "number" {
		query = query.Order("number DESC")
	}

	return query
}

// applyFilterWithoutPagination applies only the WHERE conditions
func (r *GormInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter invoicing.InvoiceFilter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("number LIKE ?", "%"+strings.ToUpper(filter.Search)+"%")
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.FromDate != nil {
		query = query.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("date <= ?", *filter.ToDate)
	}
	return query
}

// translateWriteError maps unique-constraint violations onto the domain error.
// The connection must be opened with gorm.Config.TranslateError.
func translateWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewDomainErrorWithCause("ALREADY_EXISTS", "Resource already exists", err)
	}
	return err
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ invoicing.InvoiceRepository = (*GormInvoiceRepository)(nil)
