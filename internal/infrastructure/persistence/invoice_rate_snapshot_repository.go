package persistence

import (
	"context"

	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/freightdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// snapshotBatchSize bounds the rows per INSERT statement
const snapshotBatchSize = 200

// GormInvoiceRateSnapshotRepository implements InvoiceRateSnapshotRepository using GORM
type GormInvoiceRateSnapshotRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRateSnapshotRepository creates a new GormInvoiceRateSnapshotRepository
func NewGormInvoiceRateSnapshotRepository(db *gorm.DB) *GormInvoiceRateSnapshotRepository {
	return &GormInvoiceRateSnapshotRepository{db: db}
}

// FindByInvoice returns the snapshots of an invoice in line order
func (r *GormInvoiceRateSnapshotRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]invoicing.InvoiceRateSnapshot, error) {
	var snapshotModels []models.InvoiceRateSnapshotModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("position ASC, id ASC").
		Find(&snapshotModels).Error; err != nil {
		return nil, err
	}

	snapshots := make([]invoicing.InvoiceRateSnapshot, len(snapshotModels))
	for i := range snapshotModels {
		snapshots[i] = snapshotModels[i].ToDomain()
	}
	return snapshots, nil
}

// DeleteByInvoice bulk-deletes the snapshots of an invoice and reports how many were removed
func (r *GormInvoiceRateSnapshotRepository) DeleteByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Delete(&models.InvoiceRateSnapshotModel{})
	return result.RowsAffected, result.Error
}

// SaveBatch inserts snapshots
func (r *GormInvoiceRateSnapshotRepository) SaveBatch(ctx context.Context, snapshots []invoicing.InvoiceRateSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	snapshotModels := make([]*models.InvoiceRateSnapshotModel, len(snapshots))
	for i := range snapshots {
		snapshotModels[i] = models.InvoiceRateSnapshotModelFromDomain(&snapshots[i])
	}
	return r.db.WithContext(ctx).CreateInBatches(snapshotModels, snapshotBatchSize).Error
}

// Ensure GormInvoiceRateSnapshotRepository implements InvoiceRateSnapshotRepository
var _ invoicing.InvoiceRateSnapshotRepository = (*GormInvoiceRateSnapshotRepository)(nil)
