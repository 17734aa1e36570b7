package persistence

import (
	"context"

	appinvoicing "github.com/freightdesk/backend/internal/application/invoicing"
	"github.com/freightdesk/backend/internal/domain/invoicing"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
// The transaction is rolled back when fn returns an error or panics, and committed otherwise.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinvoicing.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides repositories bound to one transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// InvoiceRepo returns the invoice repository scoped to the current transaction.
func (r *gormTransactionalRepositories) InvoiceRepo() invoicing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

// SnapshotRepo returns the snapshot repository scoped to the current transaction.
func (r *gormTransactionalRepositories) SnapshotRepo() invoicing.InvoiceRateSnapshotRepository {
	return NewGormInvoiceRateSnapshotRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinvoicing.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinvoicing.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
