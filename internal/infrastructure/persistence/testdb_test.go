package persistence

import (
	"testing"
	"time"

	"github.com/freightdesk/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testNow is the fixed instant repository tests stamp entities with
var testNow = time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC)

// setupInvoicingTestDB opens an in-memory SQLite database with the invoicing tables.
// A single connection keeps every statement, including transactions, on the same memory database.
func setupInvoicingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&models.InvoiceModel{},
		&models.RateLineModel{},
		&models.CurrencyModel{},
		&models.CurrencyRateModel{},
		&models.VatRateModel{},
		&models.InvoiceRateSnapshotModel{},
	)
	require.NoError(t, err)

	return db
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
