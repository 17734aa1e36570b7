package persistence

import (
	"context"
	"testing"

	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCurrencyRepository(t *testing.T) {
	db := setupInvoicingTestDB(t)
	repo := NewGormCurrencyRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	usd, err := invoicing.NewCurrency(tenantID, "USD", "US Dollar", testNow)
	require.NoError(t, err)
	eur, err := invoicing.NewCurrency(tenantID, "EUR", "Euro", testNow)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, usd))
	require.NoError(t, repo.Save(ctx, eur))

	t.Run("lists currencies ordered by code", func(t *testing.T) {
		currencies, err := repo.FindAllForTenant(ctx, tenantID)
		require.NoError(t, err)
		require.Len(t, currencies, 2)
		assert.Equal(t, "EUR", string(currencies[0].Code))
		assert.Equal(t, "USD", string(currencies[1].Code))
	})

	t.Run("checks code existence", func(t *testing.T) {
		exists, err := repo.ExistsByCode(ctx, tenantID, "usd")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByCode(ctx, tenantID, "HUF")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("finds by id", func(t *testing.T) {
		found, err := repo.FindByIDForTenant(ctx, tenantID, eur.ID)
		require.NoError(t, err)
		assert.Equal(t, "Euro", found.Name)

		_, err = repo.FindByIDForTenant(ctx, tenantID, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("duplicate code is rejected", func(t *testing.T) {
		dup, err := invoicing.NewCurrency(tenantID, "USD", "Dollar again", testNow)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Save(ctx, dup), shared.ErrAlreadyExists)
	})
}

func TestGormCurrencyRateRepository(t *testing.T) {
	db := setupInvoicingTestDB(t)
	repo := NewGormCurrencyRateRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	orgID := uuid.New()
	usdID := uuid.New()
	eurID := uuid.New()

	record := func(currencyID uuid.UUID, rate int64, day int) {
		r, err := invoicing.NewCurrencyRate(tenantID, orgID, currencyID, rate, *datePtr(2025, 1, day), testNow)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, r))
	}
	record(usdID, 150, 1)
	record(usdID, 155, 10)
	record(eurID, 100, 1)

	otherOrg, err := invoicing.NewCurrencyRate(tenantID, uuid.New(), usdID, 999, *datePtr(2025, 1, 5), testNow)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, otherOrg))

	t.Run("loads every record of the organisation", func(t *testing.T) {
		rates, err := repo.FindForOrganisation(ctx, tenantID, orgID)
		require.NoError(t, err)
		assert.Len(t, rates, 3)

		table := invoicing.NewCurrencyRateTable(rates)
		rate, ok := table.FindRate(*datePtr(2025, 1, 10), orgID, usdID)
		assert.True(t, ok)
		assert.Equal(t, int64(150), rate)

		rate, ok = table.FindRate(*datePtr(2025, 1, 11), orgID, usdID)
		assert.True(t, ok)
		assert.Equal(t, int64(155), rate)
	})

	t.Run("filters newest first", func(t *testing.T) {
		rates, err := repo.FindAllForTenant(ctx, tenantID, invoicing.CurrencyRateFilter{
			OrganisationID: &orgID,
			CurrencyID:     &usdID,
		})
		require.NoError(t, err)
		require.Len(t, rates, 2)
		assert.Equal(t, int64(155), rates[0].RateMinorUnits)
	})

	t.Run("before bound is strict", func(t *testing.T) {
		rates, err := repo.FindAllForTenant(ctx, tenantID, invoicing.CurrencyRateFilter{
			CurrencyID: &usdID,
			Before:     datePtr(2025, 1, 10),
		})
		require.NoError(t, err)
		require.Len(t, rates, 2)
		for _, r := range rates {
			assert.True(t, r.Date.Before(*datePtr(2025, 1, 10)))
		}
	})
}

func TestGormVatRateRepository(t *testing.T) {
	db := setupInvoicingTestDB(t)
	repo := NewGormVatRateRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	standard, err := invoicing.NewVatRate(tenantID, "27%", 2700, testNow)
	require.NoError(t, err)
	exempt, err := invoicing.NewVatRate(tenantID, "0%", 0, testNow)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, standard))
	require.NoError(t, repo.Save(ctx, exempt))

	rates, err := repo.FindAllForTenant(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, int64(0), rates[0].RateBasisPoints)
	assert.Equal(t, int64(2700), rates[1].RateBasisPoints)

	found, err := repo.FindByIDForTenant(ctx, tenantID, standard.ID)
	require.NoError(t, err)
	assert.Equal(t, "27%", found.NameEng)

	_, err = repo.FindByIDForTenant(ctx, uuid.New(), standard.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
