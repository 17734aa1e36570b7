package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/freightdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCurrencyRepository implements CurrencyRepository using GORM
type GormCurrencyRepository struct {
	db *gorm.DB
}

// NewGormCurrencyRepository creates a new GormCurrencyRepository
func NewGormCurrencyRepository(db *gorm.DB) *GormCurrencyRepository {
	return &GormCurrencyRepository{db: db}
}

// FindByIDForTenant finds a currency by ID within a tenant
func (r *GormCurrencyRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.Currency, error) {
	var model models.CurrencyModel
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

// FindAllForTenant lists every currency of a tenant ordered by code
func (r *GormCurrencyRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]invoicing.Currency, error) {
	var currencyModels []models.CurrencyModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("code ASC").
		Find(&currencyModels).Error; err != nil {
		return nil, err
	}

	currencies := make([]invoicing.Currency, len(currencyModels))
	for i := range currencyModels {
		currencies[i] = *currencyModels[i].ToDomain()
	}
	return currencies, nil
}

// ExistsByCode checks if a currency code is already registered for a tenant
func (r *GormCurrencyRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CurrencyModel{}).
		Where("tenant_id = ? AND code = ?", tenantID, strings.ToUpper(strings.TrimSpace(code))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a currency
func (r *GormCurrencyRepository) Save(ctx context.Context, currency *invoicing.Currency) error {
	model := &models.CurrencyModel{}
	model.FromDomain(currency)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return translateWriteError(err)
	}
	return nil
}

// Ensure GormCurrencyRepository implements CurrencyRepository
var _ invoicing.CurrencyRepository = (*GormCurrencyRepository)(nil)
