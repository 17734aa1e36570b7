package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	invoicingapp "github.com/freightdesk/backend/internal/application/invoicing"
	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/freightdesk/backend/internal/infrastructure/cache"
	"github.com/freightdesk/backend/internal/infrastructure/persistence"
	"github.com/freightdesk/backend/internal/infrastructure/persistence/models"
	"github.com/freightdesk/backend/internal/interfaces/http/dto"
	"github.com/freightdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testNow = time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)

// testEnv wires the invoicing handlers to real services over in-memory SQLite
type testEnv struct {
	router   *gin.Engine
	tenantID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
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

	require.NoError(t, db.AutoMigrate(
		&models.InvoiceModel{},
		&models.RateLineModel{},
		&models.CurrencyModel{},
		&models.CurrencyRateModel{},
		&models.VatRateModel{},
		&models.InvoiceRateSnapshotModel{},
	))

	invoiceRepo := persistence.NewGormInvoiceRepository(db)
	rateLineRepo := persistence.NewGormRateLineRepository(db)
	currencyRepo := persistence.NewGormCurrencyRepository(db)
	currencyRateRepo := persistence.NewGormCurrencyRateRepository(db)
	vatRateRepo := persistence.NewGormVatRateRepository(db)
	snapshotRepo := persistence.NewGormInvoiceRateSnapshotRepository(db)
	clock := invoicing.FixedClock(testNow)

	invoiceService := invoicingapp.NewInvoiceService(
		invoiceRepo, rateLineRepo, currencyRateRepo, vatRateRepo, snapshotRepo,
		persistence.NewGormTransactionScope(db),
		clock,
		invoicingapp.DefaultInvoiceServiceConfig(),
		zap.NewNop(),
	)
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	invoiceService.SetIdempotencyStore(store)

	rateService := invoicingapp.NewRateLineService(rateLineRepo, currencyRateRepo, vatRateRepo, clock)
	referenceService := invoicingapp.NewReferenceDataService(currencyRepo, currencyRateRepo, vatRateRepo, clock)

	invoices := NewInvoiceHandler(invoiceService, referenceService)
	rates := NewRateHandler(rateService)
	reference := NewReferenceDataHandler(referenceService)

	middleware.SetupValidator()
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Tenant(middleware.DefaultTenantConfig()))
	api := router.Group("/api/v1")
	api.POST("/invoices", invoices.CreateDraft)
	api.GET("/invoices", invoices.List)
	api.GET("/invoices/:id", invoices.GetByID)
	api.PUT("/invoices/:id", invoices.Update)
	api.POST("/invoices/:id/rates", invoices.AttachRates)
	api.GET("/invoices/:id/preview", invoices.Preview)
	api.POST("/invoices/:id/finalize", invoices.Finalize)
	api.POST("/invoices/:id/recompute", invoices.Recompute)
	api.POST("/invoices/:id/pay", invoices.MarkPaid)
	api.POST("/rates", rates.Create)
	api.GET("/rates/:id", rates.GetByID)
	api.POST("/rates/convert", rates.Convert)
	api.POST("/currencies", reference.CreateCurrency)
	api.GET("/currencies", reference.ListCurrencies)
	api.GET("/currencies/:id", reference.GetCurrency)
	api.POST("/currency-rates", reference.RecordCurrencyRate)
	api.GET("/currency-rates", reference.ListCurrencyRates)
	api.GET("/currency-rates/lookup", reference.LookupCurrencyRate)
	api.POST("/vat-rates", reference.CreateVatRate)
	api.GET("/vat-rates", reference.ListVatRates)

	return &testEnv{router: router, tenantID: uuid.New()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TenantHeaderKey, e.tenantID.String())
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// envelope is the response body with a typed data field
type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var resp envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// mustCreate posts body and returns the created resource
func mustCreate[T any](t *testing.T, e *testEnv, path string, body any) T {
	t.Helper()
	w := e.do(t, http.MethodPost, path, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[T](t, w).Data
}
