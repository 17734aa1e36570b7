package models

import (
	"time"

	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateModel maps the identity, locking and audit columns of an aggregate
// table. Each table declares tenant_id itself so the column can lead the
// table's composite indexes.
type AggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func aggregateModelOf(root shared.TenantAggregateRoot) AggregateModel {
	return AggregateModel{
		ID:        root.ID,
		Version:   root.Version,
		CreatedAt: root.CreatedAt,
		UpdatedAt: root.UpdatedAt,
	}
}

func (m AggregateModel) root(tenantID uuid.UUID) shared.TenantAggregateRoot {
	return shared.TenantAggregateRoot{
		ID:        m.ID,
		TenantID:  tenantID,
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
