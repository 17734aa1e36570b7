package invoicing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testTenantID = uuid.New()
	testOrgID    = uuid.New()
	testEUR      = uuid.New()
	testUSD      = uuid.New()
	testVat27    = uuid.New()
	testVat0     = uuid.New()
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func populatedInvoice(t *testing.T) *invoicing.Invoice {
	t.Helper()
	inv, err := invoicing.NewDraftInvoice(testTenantID, "GH_000042", fixedNow)
	require.NoError(t, err)
	require.NoError(t, inv.Populate(invoicing.InvoiceDetails{
		CustomerID:      uuid.New(),
		OrganisationID:  testOrgID,
		CurrencyID:      testEUR,
		Date:            date(2025, 3, 15),
		PerformanceDate: date(2025, 2, 1),
		PaymentDate:     date(2025, 4, 14),
	}, fixedNow))
	inv.ClearDomainEvents()
	return inv
}

func rateLine(t *testing.T, rate int64, currencyID uuid.UUID, qty int64, vatID uuid.UUID) invoicing.RateLine {
	t.Helper()
	line, err := invoicing.NewRateLine(testTenantID, invoicing.RateLineInput{
		ServiceID:      uuid.New(),
		RateMinorUnits: rate,
		CurrencyID:     currencyID,
		Quantity:       decimal.NewFromInt(qty),
		VatRateID:      &vatID,
	}, fixedNow)
	require.NoError(t, err)
	line.InvoiceNumber = "GH_000042"
	return *line
}

func referenceRates(t *testing.T) ([]invoicing.CurrencyRate, []invoicing.VatRate) {
	t.Helper()
	usd, err := invoicing.NewCurrencyRate(testTenantID, testOrgID, testUSD, 150, date(2025, 1, 1), fixedNow)
	require.NoError(t, err)
	eur, err := invoicing.NewCurrencyRate(testTenantID, testOrgID, testEUR, 100, date(2025, 1, 1), fixedNow)
	require.NoError(t, err)
	vat27 := invoicing.VatRate{NameEng: "27%", RateBasisPoints: 2700}
	vat27.ID = testVat27
	vat0 := invoicing.VatRate{NameEng: "0%", RateBasisPoints: 0}
	vat0.ID = testVat0
	return []invoicing.CurrencyRate{*usd, *eur}, []invoicing.VatRate{vat27, vat0}
}

func (f *serviceFixture) expectInputs(t *testing.T, inv *invoicing.Invoice, lines []invoicing.RateLine) {
	t.Helper()
	rates, vats := referenceRates(t)
	f.rateLineRepo.On("FindByInvoiceNumber", mock.Anything, testTenantID, inv.Number).Return(lines, nil)
	f.currencyRateRepo.On("FindForOrganisation", mock.Anything, testTenantID, testOrgID).Return(rates, nil)
	f.vatRateRepo.On("FindAllForTenant", mock.Anything, testTenantID).Return(vats, nil)
}

func TestInvoiceService_CreateDraft(t *testing.T) {
	ctx := context.Background()

	t.Run("numbers the draft after the current maximum", func(t *testing.T) {
		f := newServiceFixture()
		f.invoiceRepo.On("FindMaxNumber", mock.Anything, testTenantID).Return("GH_000041", nil)
		f.invoiceRepo.On("Save", mock.Anything, mock.AnythingOfType("*invoicing.Invoice")).Return(nil)

		resp, err := f.service.CreateDraft(ctx, testTenantID)
		require.NoError(t, err)
		assert.Equal(t, "GH_000042", resp.Number)
		assert.Equal(t, "draft", resp.Status)
		assert.Equal(t, fixedNow, resp.CreatedAt)
		assert.Equal(t, []string{invoicing.EventTypeInvoiceDraftCreated}, f.publisher.Types())
	})

	t.Run("first draft is GH_000002", func(t *testing.T) {
		f := newServiceFixture()
		f.invoiceRepo.On("FindMaxNumber", mock.Anything, testTenantID).Return("", nil)
		f.invoiceRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.service.CreateDraft(ctx, testTenantID)
		require.NoError(t, err)
		assert.Equal(t, "GH_000002", resp.Number)
	})

	t.Run("retries when the number is taken", func(t *testing.T) {
		f := newServiceFixture()
		f.invoiceRepo.On("FindMaxNumber", mock.Anything, testTenantID).Return("GH_000041", nil).Once()
		f.invoiceRepo.On("FindMaxNumber", mock.Anything, testTenantID).Return("GH_000042", nil).Once()
		f.invoiceRepo.On("Save", mock.Anything, mock.Anything).Return(shared.ErrAlreadyExists).Once()
		f.invoiceRepo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

		resp, err := f.service.CreateDraft(ctx, testTenantID)
		require.NoError(t, err)
		assert.Equal(t, "GH_000043", resp.Number)
		f.invoiceRepo.AssertNumberOfCalls(t, "Save", 2)
	})

	t.Run("propagates storage errors", func(t *testing.T) {
		f := newServiceFixture()
		f.invoiceRepo.On("FindMaxNumber", mock.Anything, testTenantID).Return("", errors.New("db down"))

		_, err := f.service.CreateDraft(ctx, testTenantID)
		assert.Error(t, err)
	})
}

func TestInvoiceService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults dates from the clock", func(t *testing.T) {
		f := newServiceFixture()
		inv, err := invoicing.NewDraftInvoice(testTenantID, "GH_000042", fixedNow)
		require.NoError(t, err)
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, inv.ID).Return(inv, nil)
		f.invoiceRepo.On("SaveWithLock", mock.Anything, inv).Return(nil)

		resp, err := f.service.Update(ctx, testTenantID, inv.ID, UpdateInvoiceRequest{
			CustomerID:     uuid.New(),
			OrganisationID: testOrgID,
			CurrencyID:     testEUR,
		})
		require.NoError(t, err)
		assert.Equal(t, date(2025, 3, 15), *resp.Date)
		assert.Equal(t, date(2025, 2, 1), *resp.PerformanceDate)
		assert.Equal(t, date(2025, 4, 14), *resp.PaymentDate)
	})

	t.Run("rejects stale version", func(t *testing.T) {
		f := newServiceFixture()
		inv := populatedInvoice(t)
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, inv.ID).Return(inv, nil)

		stale := inv.Version + 1
		_, err := f.service.Update(ctx, testTenantID, inv.ID, UpdateInvoiceRequest{Version: &stale})
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		f.invoiceRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestInvoiceService_AttachRates(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches by invoice number", func(t *testing.T) {
		f := newServiceFixture()
		inv := populatedInvoice(t)
		line := rateLine(t, 1000, testEUR, 1, testVat0)
		line.InvoiceNumber = ""
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, inv.ID).Return(inv, nil)
		f.rateLineRepo.On("FindByIDs", mock.Anything, testTenantID, []uuid.UUID{line.ID}).Return([]invoicing.RateLine{line}, nil)
		f.rateLineRepo.On("SaveBatch", mock.Anything, mock.MatchedBy(func(lines []invoicing.RateLine) bool {
			return len(lines) == 1 && lines[0].InvoiceNumber == inv.Number
		})).Return(nil)

		resp, err := f.service.AttachRates(ctx, testTenantID, inv.ID, AttachRatesRequest{RateIDs: []uuid.UUID{line.ID}})
		require.NoError(t, err)
		require.Len(t, resp, 1)
		assert.Equal(t, "GH_000042", resp[0].InvoiceNumber)
	})

	t.Run("missing rate line", func(t *testing.T) {
		f := newServiceFixture()
		inv := populatedInvoice(t)
		id := uuid.New()
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, inv.ID).Return(inv, nil)
		f.rateLineRepo.On("FindByIDs", mock.Anything, testTenantID, []uuid.UUID{id}).Return([]invoicing.RateLine{}, nil)

		_, err := f.service.AttachRates(ctx, testTenantID, inv.ID, AttachRatesRequest{RateIDs: []uuid.UUID{id}})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("finalized invoice cannot take new lines", func(t *testing.T) {
		f := newServiceFixture()
		inv := populatedInvoice(t)
		require.NoError(t, inv.Finalize(&invoicing.Computation{}, fixedNow))
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, inv.ID).Return(inv, nil)

		_, err := f.service.AttachRates(ctx, testTenantID, inv.ID, AttachRatesRequest{RateIDs: []uuid.UUID{uuid.New()}})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestInvoiceService_Preview(t *testing.T) {
	ctx := context.Background()

	t.Run("computes live when no snapshots exist", func(t *testing.T) {
		f := newServiceFixture()
		inv := populatedInvoice(t)
		lines := []invoicing.RateLine{
			rateLine(t, 10000, testEUR, 2, testVat27),
			rateLine(t, 5000, testUSD, 1, testVat0),
		}
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, inv.ID).Return(inv, nil)
		f.expectInputs(t, inv, lines)
		f.snapshotRepo.On("FindByInvoice", mock.Anything, testTenantID, inv.ID).Return([]invoicing.InvoiceRateSnapshot{}, nil)

		resp, err := f.service.Preview(ctx, testTenantID, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, SourceLive, resp.Source)
		require.Len(t, resp.Lines, 2)
		assert.Equal(t, int64(25400), resp.Lines[0].GrossValue)
		assert.Equal(t, int64(7500), resp.Lines[1].GrossValue)
		assert.Equal(t, int64(27500), resp.AmountWoVat)
		assert.Equal(t, int64(5400), resp.VatAmount)
		assert.Equal(t, int64(32900), resp.Amount)
		assert.Empty(t, resp.Warnings)
	})

	t.Run("shows frozen snapshot values instead of recomputing", func(t *testing.T) {
		f := newServiceFixture()
		inv := populatedInvoice(t)
		lines := []invoicing.RateLine{rateLine(t, 5000, testUSD, 1, testVat0)}
		frozen := []invoicing.InvoiceRateSnapshot{{
			InvoiceID:                     inv.ID,
			RateLineID:                    lines[0].ID,
			CurrencyRateMinorUnits:        120,
			InvoiceCurrencyRateMinorUnits: 100,
			Quantity:                      decimal.NewFromInt(1),
			NetUnitMinorUnits:             6000,
			NetLineMinorUnits:             6000,
			GrossValueMinorUnits:          6000,
		}}
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, inv.ID).Return(inv, nil)
		f.expectInputs(t, inv, lines)
		f.snapshotRepo.On("FindByInvoice", mock.Anything, testTenantID, inv.ID).Return(frozen, nil)

		resp, err := f.service.Preview(ctx, testTenantID, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, SourceSnapshot, resp.Source)
		assert.Equal(t, int64(6000), resp.Amount)
		assert.Equal(t, int64(120), resp.Lines[0].LineCurrencyRate)
	})

	t.Run("reports fallback warnings", func(t *testing.T) {
		f := newServiceFixture()
		inv := populatedInvoice(t)
		huf := uuid.New()
		lines := []invoicing.RateLine{rateLine(t, 5000, huf, 1, testVat0)}
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, inv.ID).Return(inv, nil)
		f.expectInputs(t, inv, lines)
		f.snapshotRepo.On("FindByInvoice", mock.Anything, testTenantID, inv.ID).Return([]invoicing.InvoiceRateSnapshot{}, nil)

		resp, err := f.service.Preview(ctx, testTenantID, inv.ID)
		require.NoError(t, err)
		require.Len(t, resp.Warnings, 1)
		assert.Equal(t, string(invoicing.KindMissingReferenceRate), resp.Warnings[0].Kind)
		assert.Equal(t, int64(5000), resp.Amount)
	})

	t.Run("a failed read aborts", func(t *testing.T) {
		f := newServiceFixture()
		inv := populatedInvoice(t)
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, inv.ID).Return(inv, nil)
		f.rateLineRepo.On("FindByInvoiceNumber", mock.Anything, testTenantID, inv.Number).Return([]invoicing.RateLine{}, nil)
		f.currencyRateRepo.On("FindForOrganisation", mock.Anything, testTenantID, testOrgID).Return([]invoicing.CurrencyRate{}, errors.New("timeout"))
		f.vatRateRepo.On("FindAllForTenant", mock.Anything, testTenantID).Return([]invoicing.VatRate{}, nil)
		f.snapshotRepo.On("FindByInvoice", mock.Anything, testTenantID, inv.ID).Return([]invoicing.InvoiceRateSnapshot{}, nil)

		_, err := f.service.Preview(ctx, testTenantID, inv.ID)
		assert.EqualError(t, err, "timeout")
	})
}

func TestInvoiceService_Finalize(t *testing.T) {
	ctx := context.Background()

	t.Run("writes snapshots and totals in one transaction", func(t *testing.T) {
		f := newServiceFixture()
		inv := populatedInvoice(t)
		lines := []invoicing.RateLine{
			rateLine(t, 10000, testEUR, 2, testVat27),
			rateLine(t, 5000, testUSD, 1, testVat0),
		}
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, inv.ID).Return(inv, nil)
		f.expectInputs(t, inv, lines)
		f.snapshotRepo.On("DeleteByInvoice", mock.Anything, testTenantID, inv.ID).Return(int64(0), nil)
		f.snapshotRepo.On("SaveBatch", mock.Anything, mock.MatchedBy(func(s []invoicing.InvoiceRateSnapshot) bool {
			return len(s) == 2 && s[0].GrossValueMinorUnits == 25400 && s[1].NetUnitMinorUnits == 7500
		})).Return(nil)
		f.invoiceRepo.On("SaveWithLock", mock.Anything, inv).Return(nil)

		resp, err := f.service.Finalize(ctx, testTenantID, inv.ID, "")
		require.NoError(t, err)
		assert.Equal(t, 1, f.txScope.calls)
		assert.Equal(t, "pending", resp.Invoice.Status)
		assert.Equal(t, int64(32900), resp.Invoice.AmountMinorUnits)
		assert.Equal(t, int64(27500), resp.Invoice.AmountWoVatMinorUnits)
		assert.Equal(t, int64(5400), resp.Invoice.VatAmountMinorUnits)
		assert.Equal(t, fixedNow, *resp.Invoice.FinalizedAt)
		assert.Equal(t, []string{invoicing.EventTypeInvoiceFinalized}, f.publisher.Types())
	})

	t.Run("snapshot write failure publishes nothing", func(t *testing.T) {
		f := newServiceFixture()
		inv := populatedInvoice(t)
		lines := []invoicing.RateLine{rateLine(t, 10000, testEUR, 2, testVat27)}
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, inv.ID).Return(inv, nil)
		f.expectInputs(t, inv, lines)
		f.snapshotRepo.On("DeleteByInvoice", mock.Anything, testTenantID, inv.ID).Return(int64(0), nil)
		f.snapshotRepo.On("SaveBatch", mock.Anything, mock.Anything).Return(errors.New("insert failed"))

		_, err := f.service.Finalize(ctx, testTenantID, inv.ID, "")
		assert.EqualError(t, err, "insert failed")
		f.invoiceRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
		assert.Empty(t, f.publisher.Types())
	})

	t.Run("malformed line aborts before writing", func(t *testing.T) {
		f := newServiceFixture()
		inv := populatedInvoice(t)
		bad := rateLine(t, 100, testEUR, 1, testVat0)
		bad.Quantity = decimal.Zero
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, inv.ID).Return(inv, nil)
		f.expectInputs(t, inv, []invoicing.RateLine{bad})

		_, err := f.service.Finalize(ctx, testTenantID, inv.ID, "")
		assert.ErrorIs(t, err, invoicing.ErrMalformedRateLine)
		assert.Zero(t, f.txScope.calls)
	})

	t.Run("unpopulated draft cannot be finalized", func(t *testing.T) {
		f := newServiceFixture()
		inv, err := invoicing.NewDraftInvoice(testTenantID, "GH_000042", fixedNow)
		require.NoError(t, err)
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, inv.ID).Return(inv, nil)
		f.rateLineRepo.On("FindByInvoiceNumber", mock.Anything, testTenantID, inv.Number).Return([]invoicing.RateLine{}, nil)
		f.vatRateRepo.On("FindAllForTenant", mock.Anything, testTenantID).Return([]invoicing.VatRate{}, nil)

		_, err = f.service.Finalize(ctx, testTenantID, inv.ID, "")
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, invoicing.CodeInvoiceIncomplete, derr.Code)
	})

	t.Run("paid invoice cannot be finalized", func(t *testing.T) {
		f := newServiceFixture()
		inv := populatedInvoice(t)
		require.NoError(t, inv.Finalize(&invoicing.Computation{}, fixedNow))
		require.NoError(t, inv.MarkPaid(fixedNow))
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, inv.ID).Return(inv, nil)

		_, err := f.service.Finalize(ctx, testTenantID, inv.ID, "")
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestInvoiceService_FinalizeIdempotency(t *testing.T) {
	ctx := context.Background()

	t.Run("repeated key is rejected", func(t *testing.T) {
		f := newServiceFixture()
		store := new(MockIdempotencyStore)
		f.service.SetIdempotencyStore(store)
		id := uuid.New()
		store.On("MarkProcessed", mock.Anything, mock.AnythingOfType("string"), 24*time.Hour).Return(false, nil)

		_, err := f.service.Finalize(ctx, testTenantID, id, "key-1")
		assert.ErrorIs(t, err, shared.ErrDuplicateRequest)
		f.invoiceRepo.AssertNotCalled(t, "FindByIDForTenant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failed finalize releases the key", func(t *testing.T) {
		f := newServiceFixture()
		store := new(MockIdempotencyStore)
		f.service.SetIdempotencyStore(store)
		id := uuid.New()
		store.On("MarkProcessed", mock.Anything, mock.AnythingOfType("string"), 24*time.Hour).Return(true, nil)
		store.On("Release", mock.Anything, mock.AnythingOfType("string")).Return(nil)
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, id).Return(nil, shared.ErrNotFound)

		_, err := f.service.Finalize(ctx, testTenantID, id, "key-2")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		store.AssertCalled(t, "Release", mock.Anything, mock.AnythingOfType("string"))
	})
}

func TestInvoiceService_Recompute(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	inv := populatedInvoice(t)
	require.NoError(t, inv.Finalize(&invoicing.Computation{Totals: invoicing.InvoiceTotals{Amount: 1}}, fixedNow))
	inv.ClearDomainEvents()

	lines := []invoicing.RateLine{rateLine(t, 5000, testUSD, 1, testVat0)}
	f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, inv.ID).Return(inv, nil)
	f.expectInputs(t, inv, lines)
	f.snapshotRepo.On("DeleteByInvoice", mock.Anything, testTenantID, inv.ID).Return(int64(1), nil)
	f.snapshotRepo.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)
	f.invoiceRepo.On("SaveWithLock", mock.Anything, inv).Return(nil)

	resp, err := f.service.Recompute(ctx, testTenantID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), resp.Invoice.AmountMinorUnits)
	assert.Equal(t, "pending", resp.Invoice.Status)
	assert.Equal(t, []string{invoicing.EventTypeInvoiceRecomputed}, f.publisher.Types())
	f.snapshotRepo.AssertCalled(t, "DeleteByInvoice", mock.Anything, testTenantID, inv.ID)
}

func TestInvoiceService_MarkPaid(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	inv := populatedInvoice(t)
	require.NoError(t, inv.Finalize(&invoicing.Computation{}, fixedNow))
	inv.ClearDomainEvents()
	f.invoiceRepo.On("FindByIDForTenant", mock.Anything, testTenantID, inv.ID).Return(inv, nil)
	f.invoiceRepo.On("SaveWithLock", mock.Anything, inv).Return(nil)

	resp, err := f.service.MarkPaid(ctx, testTenantID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", resp.Status)
	assert.Equal(t, []string{invoicing.EventTypeInvoicePaid}, f.publisher.Types())
}

func TestInvoiceService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("maps filter and results", func(t *testing.T) {
		f := newServiceFixture()
		inv := populatedInvoice(t)
		f.invoiceRepo.On("FindAllForTenant", mock.Anything, testTenantID, mock.MatchedBy(func(fl invoicing.InvoiceFilter) bool {
			return fl.Status != nil && *fl.Status == invoicing.InvoiceStatusDraft && fl.Page == 2 && fl.PageSize == 20
		})).Return([]invoicing.Invoice{*inv}, nil)
		f.invoiceRepo.On("CountForTenant", mock.Anything, testTenantID, mock.Anything).Return(int64(21), nil)

		items, total, err := f.service.List(ctx, testTenantID, InvoiceListFilter{Status: "draft", Page: 2})
		require.NoError(t, err)
		assert.Len(t, items, 1)
		assert.Equal(t, int64(21), total)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		f := newServiceFixture()
		_, _, err := f.service.List(ctx, testTenantID, InvoiceListFilter{Status: "void"})
		assert.Error(t, err)
	})
}
