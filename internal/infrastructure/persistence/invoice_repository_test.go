package persistence

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockInvoiceRepository creates a GormInvoiceRepository with a mocked SQL connection
func newMockInvoiceRepository(t *testing.T) (*GormInvoiceRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormInvoiceRepository(gormDB), mock, mockDB
}

func newTestDraft(t *testing.T, tenantID uuid.UUID, number string) *invoicing.Invoice {
	t.Helper()
	inv, err := invoicing.NewDraftInvoice(tenantID, number, testNow)
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

func populateTestDraft(t *testing.T, inv *invoicing.Invoice) {
	t.Helper()
	err := inv.Populate(invoicing.InvoiceDetails{
		CustomerID:      uuid.New(),
		OrganisationID:  uuid.New(),
		CurrencyID:      uuid.New(),
		Date:            *datePtr(2025, 3, 15),
		PerformanceDate: *datePtr(2025, 2, 1),
		PaymentDate:     *datePtr(2025, 4, 14),
		Remarks:         "March consolidation",
	}, testNow)
	require.NoError(t, err)
}

func TestGormInvoiceRepository_SaveAndFind(t *testing.T) {
	db := setupInvoicingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	inv := newTestDraft(t, tenantID, "GH_000002")
	populateTestDraft(t, inv)
	require.NoError(t, repo.Save(ctx, inv))

	t.Run("finds by id within tenant", func(t *testing.T) {
		found, err := repo.FindByIDForTenant(ctx, tenantID, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, "GH_000002", found.Number)
		assert.Equal(t, invoicing.InvoiceStatusDraft, found.Status)
		assert.Equal(t, *inv.OrganisationID, *found.OrganisationID)
		assert.Equal(t, "March consolidation", found.Remarks)
		assert.Equal(t, 1, found.Version)
		require.NotNil(t, found.Date)
		assert.True(t, inv.Date.Equal(*found.Date))
	})

	t.Run("other tenant cannot see it", func(t *testing.T) {
		_, err := repo.FindByIDForTenant(ctx, uuid.New(), inv.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("finds by number case-insensitively", func(t *testing.T) {
		found, err := repo.FindByNumber(ctx, tenantID, " gh_000002 ")
		require.NoError(t, err)
		assert.Equal(t, inv.ID, found.ID)
	})

	t.Run("unknown number is not found", func(t *testing.T) {
		_, err := repo.FindByNumber(ctx, tenantID, "GH_999999")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormInvoiceRepository_Save_DuplicateNumber(t *testing.T) {
	db := setupInvoicingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	require.NoError(t, repo.Save(ctx, newTestDraft(t, tenantID, "GH_000002")))

	err := repo.Save(ctx, newTestDraft(t, tenantID, "GH_000002"))

	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestGormInvoiceRepository_FindMaxNumber(t *testing.T) {
	db := setupInvoicingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("empty table yields empty string", func(t *testing.T) {
		maxNumber, err := repo.FindMaxNumber(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, "", maxNumber)
	})

	for _, n := range []string{"GH_000002", "GH_000010", "GH_000009"} {
		require.NoError(t, repo.Save(ctx, newTestDraft(t, tenantID, n)))
	}
	require.NoError(t, repo.Save(ctx, newTestDraft(t, uuid.New(), "GH_000500")))

	t.Run("returns highest number of the tenant", func(t *testing.T) {
		maxNumber, err := repo.FindMaxNumber(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, "GH_000010", maxNumber)
	})
}

func TestGormInvoiceRepository_FindAllForTenant(t *testing.T) {
	db := setupInvoicingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	for i, n := range []string{"GH_000002", "GH_000003", "GH_000004"} {
		inv := newTestDraft(t, tenantID, n)
		if i == 0 {
			populateTestDraft(t, inv)
			require.NoError(t, inv.Finalize(&invoicing.Computation{}, testNow))
		}
		require.NoError(t, repo.Save(ctx, inv))
	}

	t.Run("defaults to number descending", func(t *testing.T) {
		invoices, err := repo.FindAllForTenant(ctx, tenantID, invoicing.InvoiceFilter{})
		require.NoError(t, err)
		require.Len(t, invoices, 3)
		assert.Equal(t, "GH_000004", invoices[0].Number)
		assert.Equal(t, "GH_000002", invoices[2].Number)
	})

	t.Run("filters by status", func(t *testing.T) {
		status := invoicing.InvoiceStatusPending
		filter := invoicing.InvoiceFilter{Status: &status}

		invoices, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		require.Len(t, invoices, 1)
		assert.Equal(t, "GH_000002", invoices[0].Number)

		count, err := repo.CountForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("paginates", func(t *testing.T) {
		filter := invoicing.InvoiceFilter{Filter: shared.Filter{Page: 2, PageSize: 2, OrderBy: "number", OrderDir: "asc"}}

		invoices, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		require.Len(t, invoices, 1)
		assert.Equal(t, "GH_000004", invoices[0].Number)

		count, err := repo.CountForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("searches by number fragment", func(t *testing.T) {
		filter := invoicing.InvoiceFilter{Filter: shared.Filter{Search: "gh_000003"}}

		invoices, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		require.Len(t, invoices, 1)
		assert.Equal(t, "GH_000003", invoices[0].Number)
	})
}

func TestGormInvoiceRepository_SaveWithLock(t *testing.T) {
	db := setupInvoicingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	inv := newTestDraft(t, tenantID, "GH_000002")
	require.NoError(t, repo.Save(ctx, inv))

	t.Run("increments version on success", func(t *testing.T) {
		populateTestDraft(t, inv)
		require.NoError(t, repo.SaveWithLock(ctx, inv))
		assert.Equal(t, 2, inv.Version)

		found, err := repo.FindByIDForTenant(ctx, tenantID, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, found.Version)
		assert.NotNil(t, found.CustomerID)
	})

	t.Run("stale copy is rejected", func(t *testing.T) {
		stale, err := repo.FindByIDForTenant(ctx, tenantID, inv.ID)
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithLock(ctx, inv))

		err = repo.SaveWithLock(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("missing invoice is not found", func(t *testing.T) {
		ghost := newTestDraft(t, tenantID, "GH_000099")
		assert.ErrorIs(t, repo.SaveWithLock(ctx, ghost), shared.ErrNotFound)
	})
}

func TestGormInvoiceRepository_SaveWithLock_LostRace(t *testing.T) {
	repo, mock, mockDB := newMockInvoiceRepository(t)
	defer mockDB.Close()

	inv := newTestDraft(t, uuid.New(), "GH_000002")
	inv.UpdatedAt = testNow.Add(time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "version" FROM "invoices" WHERE tenant_id = $1 AND id = $2`)).
		WithArgs(inv.TenantID, inv.ID).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "invoices" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SaveWithLock(context.Background(), inv)

	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.Equal(t, 1, inv.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
