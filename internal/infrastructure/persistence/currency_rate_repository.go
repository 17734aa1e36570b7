package persistence

import (
	"context"

	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/freightdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCurrencyRateRepository implements CurrencyRateRepository using GORM
type GormCurrencyRateRepository struct {
	db *gorm.DB
}

// NewGormCurrencyRateRepository creates a new GormCurrencyRateRepository
func NewGormCurrencyRateRepository(db *gorm.DB) *GormCurrencyRateRepository {
	return &GormCurrencyRateRepository{db: db}
}

// FindForOrganisation returns every rate record of an organisation
func (r *GormCurrencyRateRepository) FindForOrganisation(ctx context.Context, tenantID, organisationID uuid.UUID) ([]invoicing.CurrencyRate, error) {
	var rateModels []models.CurrencyRateModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND organisation_id = ?", tenantID, organisationID).
		Order("date ASC").Order("created_at ASC").Order("id ASC").
		Find(&rateModels).Error; err != nil {
		return nil, err
	}
	return currencyRatesToDomain(rateModels), nil
}

// FindAllForTenant lists rate records with filtering, newest first
func (r *GormCurrencyRateRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.CurrencyRateFilter) ([]invoicing.CurrencyRate, error) {
	query := r.db.WithContext(ctx).Model(&models.CurrencyRateModel{}).Where("tenant_id = ?", tenantID)

	if filter.OrganisationID != nil {
		query = query.Where("organisation_id = ?", *filter.OrganisationID)
	}
	if filter.CurrencyID != nil {
		query = query.Where("currency_id = ?", *filter.CurrencyID)
	}
	if filter.Before != nil {
		query = query.Where("date < ?", *filter.Before)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rateModels []models.CurrencyRateModel
	if err := query.Order("date DESC").Order("created_at DESC").Order("id DESC").Find(&rateModels).Error; err != nil {
		return nil, err
	}
	return currencyRatesToDomain(rateModels), nil
}

// Save creates or updates a rate record
func (r *GormCurrencyRateRepository) Save(ctx context.Context, rate *invoicing.CurrencyRate) error {
	model := &models.CurrencyRateModel{}
	model.FromDomain(rate)
	return r.db.WithContext(ctx).Save(model).Error
}

func currencyRatesToDomain(rateModels []models.CurrencyRateModel) []invoicing.CurrencyRate {
	rates := make([]invoicing.CurrencyRate, len(rateModels))
	for i := range rateModels {
		rates[i] = *rateModels[i].ToDomain()
	}
	return rates
}

// Ensure GormCurrencyRateRepository implements CurrencyRateRepository
var _ invoicing.CurrencyRateRepository = (*GormCurrencyRateRepository)(nil)
