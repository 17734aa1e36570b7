package persistence

import (
	"context"
	"errors"

	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/freightdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRateLineRepository implements RateLineRepository using GORM
type GormRateLineRepository struct {
	db *gorm.DB
}

// NewGormRateLineRepository creates a new GormRateLineRepository
func NewGormRateLineRepository(db *gorm.DB) *GormRateLineRepository {
	return &GormRateLineRepository{db: db}
}

// FindByIDForTenant finds a rate line by ID within a tenant
func (r *GormRateLineRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.RateLine, error) {
	var model models.RateLineModel
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

// FindByIDs finds rate lines by ID within a tenant. Unknown IDs are skipped.
func (r *GormRateLineRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]invoicing.RateLine, error) {
	if len(ids) == 0 {
		return []invoicing.RateLine{}, nil
	}
	var lineModels []models.RateLineModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Order("created_at ASC, id ASC").
		Find(&lineModels).Error; err != nil {
		return nil, err
	}
	return rateLinesToDomain(lineModels), nil
}

// FindByInvoiceNumber finds every rate line attached to an invoice, oldest first
func (r *GormRateLineRepository) FindByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) ([]invoicing.RateLine, error) {
	var lineModels []models.RateLineModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_number = ?", tenantID, invoiceNumber).
		Order("created_at ASC, id ASC").
		Find(&lineModels).Error; err != nil {
		return nil, err
	}
	return rateLinesToDomain(lineModels), nil
}

// Save creates or updates a rate line
func (r *GormRateLineRepository) Save(ctx context.Context, line *invoicing.RateLine) error {
	model := models.RateLineModelFromDomain(line)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveBatch upserts several rate lines in one statement
func (r *GormRateLineRepository) SaveBatch(ctx context.Context, lines []invoicing.RateLine) error {
	if len(lines) == 0 {
		return nil
	}
	lineModels := make([]*models.RateLineModel, len(lines))
	for i := range lines {
		lineModels[i] = models.RateLineModelFromDomain(&lines[i])
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&lineModels).Error
}

func rateLinesToDomain(lineModels []models.RateLineModel) []invoicing.RateLine {
	lines := make([]invoicing.RateLine, len(lineModels))
	for i := range lineModels {
		lines[i] = *lineModels[i].ToDomain()
	}
	return lines
}

// Ensure GormRateLineRepository implements RateLineRepository
var _ invoicing.RateLineRepository = (*GormRateLineRepository)(nil)
