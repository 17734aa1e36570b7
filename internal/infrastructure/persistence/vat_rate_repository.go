package persistence

import (
	"context"
	"errors"

	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/freightdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormVatRateRepository implements VatRateRepository using GORM
type GormVatRateRepository struct {
	db *gorm.DB
}

// NewGormVatRateRepository creates a new GormVatRateRepository
func NewGormVatRateRepository(db *gorm.DB) *GormVatRateRepository {
	return &GormVatRateRepository{db: db}
}

// FindByIDForTenant finds a VAT class by ID within a tenant
func (r *GormVatRateRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.VatRate, error) {
	var model models.VatRateModel
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

// FindAllForTenant lists every VAT class of a tenant
func (r *GormVatRateRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]invoicing.VatRate, error) {
	var rateModels []models.VatRateModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("rate_basis_points ASC").
		Find(&rateModels).Error; err != nil {
		return nil, err
	}

	rates := make([]invoicing.VatRate, len(rateModels))
	for i := range rateModels {
		rates[i] = *rateModels[i].ToDomain()
	}
	return rates, nil
}

// Save creates or updates a VAT class
func (r *GormVatRateRepository) Save(ctx context.Context, rate *invoicing.VatRate) error {
	model := &models.VatRateModel{}
	model.FromDomain(rate)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormVatRateRepository implements VatRateRepository
var _ invoicing.VatRateRepository = (*GormVatRateRepository)(nil)
