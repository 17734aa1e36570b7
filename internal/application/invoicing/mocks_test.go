package invoicing

import (
	"context"
	"sync"
	"time"

	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*invoicing.Invoice, error) {
	args := m.Called(ctx, tenantID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.InvoiceFilter) ([]invoicing.Invoice, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]invoicing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.InvoiceFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) FindMaxNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *invoicing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveWithLock(ctx context.Context, invoice *invoicing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

type MockRateLineRepository struct {
	mock.Mock
}

func (m *MockRateLineRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.RateLine, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.RateLine), args.Error(1)
}

func (m *MockRateLineRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]invoicing.RateLine, error) {
	args := m.Called(ctx, tenantID, ids)
	return args.Get(0).([]invoicing.RateLine), args.Error(1)
}

func (m *MockRateLineRepository) FindByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) ([]invoicing.RateLine, error) {
	args := m.Called(ctx, tenantID, invoiceNumber)
	return args.Get(0).([]invoicing.RateLine), args.Error(1)
}

func (m *MockRateLineRepository) Save(ctx context.Context, line *invoicing.RateLine) error {
	args := m.Called(ctx, line)
	return args.Error(0)
}

func (m *MockRateLineRepository) SaveBatch(ctx context.Context, lines []invoicing.RateLine) error {
	args := m.Called(ctx, lines)
	return args.Error(0)
}

type MockCurrencyRepository struct {
	mock.Mock
}

func (m *MockCurrencyRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.Currency, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Currency), args.Error(1)
}

func (m *MockCurrencyRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]invoicing.Currency, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]invoicing.Currency), args.Error(1)
}

func (m *MockCurrencyRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	args := m.Called(ctx, tenantID, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockCurrencyRepository) Save(ctx context.Context, currency *invoicing.Currency) error {
	args := m.Called(ctx, currency)
	return args.Error(0)
}

type MockCurrencyRateRepository struct {
	mock.Mock
}

func (m *MockCurrencyRateRepository) FindForOrganisation(ctx context.Context, tenantID, organisationID uuid.UUID) ([]invoicing.CurrencyRate, error) {
	args := m.Called(ctx, tenantID, organisationID)
	return args.Get(0).([]invoicing.CurrencyRate), args.Error(1)
}

func (m *MockCurrencyRateRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.CurrencyRateFilter) ([]invoicing.CurrencyRate, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]invoicing.CurrencyRate), args.Error(1)
}

func (m *MockCurrencyRateRepository) Save(ctx context.Context, rate *invoicing.CurrencyRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

type MockVatRateRepository struct {
	mock.Mock
}

func (m *MockVatRateRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.VatRate, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.VatRate), args.Error(1)
}

func (m *MockVatRateRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]invoicing.VatRate, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]invoicing.VatRate), args.Error(1)
}

func (m *MockVatRateRepository) Save(ctx context.Context, rate *invoicing.VatRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]invoicing.InvoiceRateSnapshot, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	return args.Get(0).([]invoicing.InvoiceRateSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) DeleteByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSnapshotRepository) SaveBatch(ctx context.Context, snapshots []invoicing.InvoiceRateSnapshot) error {
	args := m.Called(ctx, snapshots)
	return args.Error(0)
}

// =============================================================================
// Mock infrastructure
// =============================================================================

// MockTransactionScope runs fn directly against the mock repositories
type MockTransactionScope struct {
	invoiceRepo  *MockInvoiceRepository
	snapshotRepo *MockSnapshotRepository
	calls        int
}

func (m *MockTransactionScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	m.calls++
	return fn(m)
}

func (m *MockTransactionScope) InvoiceRepo() invoicing.InvoiceRepository {
	return m.invoiceRepo
}

func (m *MockTransactionScope) SnapshotRepo() invoicing.InvoiceRateSnapshotRepository {
	return m.snapshotRepo
}

type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventType())
	}
	return out
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return nil
}

type MockInvoiceMetrics struct {
	mock.Mock
}

func (m *MockInvoiceMetrics) RecordInvoiceFinalized(ctx context.Context, tenantID uuid.UUID, amountMinorUnits int64, lineCount, warningCount int) {
	m.Called(ctx, tenantID, amountMinorUnits, lineCount, warningCount)
}

func (m *MockInvoiceMetrics) RecordInvoiceRecomputed(ctx context.Context, tenantID uuid.UUID) {
	m.Called(ctx, tenantID)
}

func (m *MockInvoiceMetrics) RecordInvoicePaid(ctx context.Context, tenantID uuid.UUID, amountMinorUnits int64) {
	m.Called(ctx, tenantID, amountMinorUnits)
}

// =============================================================================
// Fixture
// =============================================================================

type serviceFixture struct {
	invoiceRepo      *MockInvoiceRepository
	rateLineRepo     *MockRateLineRepository
	currencyRepo     *MockCurrencyRepository
	currencyRateRepo *MockCurrencyRateRepository
	vatRateRepo      *MockVatRateRepository
	snapshotRepo     *MockSnapshotRepository
	txScope          *MockTransactionScope
	publisher        *MockEventPublisher
	service          *InvoiceService
}

var fixedNow = time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		invoiceRepo:      new(MockInvoiceRepository),
		rateLineRepo:     new(MockRateLineRepository),
		currencyRepo:     new(MockCurrencyRepository),
		currencyRateRepo: new(MockCurrencyRateRepository),
		vatRateRepo:      new(MockVatRateRepository),
		snapshotRepo:     new(MockSnapshotRepository),
		publisher:        &MockEventPublisher{},
	}
	f.txScope = &MockTransactionScope{invoiceRepo: f.invoiceRepo, snapshotRepo: f.snapshotRepo}
	f.service = NewInvoiceService(
		f.invoiceRepo,
		f.rateLineRepo,
		f.currencyRateRepo,
		f.vatRateRepo,
		f.snapshotRepo,
		f.txScope,
		invoicing.FixedClock(fixedNow),
		DefaultInvoiceServiceConfig(),
		nil,
	)
	f.service.SetEventPublisher(f.publisher)
	return f
}
