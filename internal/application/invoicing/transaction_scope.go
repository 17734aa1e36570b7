package invoicing

import (
	"context"

	"github.com/freightdesk/backend/internal/domain/invoicing"
)

// TransactionScope runs a unit of work atomically.
// If fn returns an error, every write made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides repositories bound to one database transaction.
// Finalization writes the snapshot set and the invoice totals through these so that
// a failure part way leaves neither a partial snapshot set nor stale totals.
type TransactionalRepositories interface {
	InvoiceRepo() invoicing.InvoiceRepository
	SnapshotRepo() invoicing.InvoiceRateSnapshotRepository
}
