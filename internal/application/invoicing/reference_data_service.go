package invoicing

import (
	"context"
	"time"

	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/freightdesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// ReferenceDataService manages currencies, currency rates and VAT rates
type ReferenceDataService struct {
	currencyRepo     invoicing.CurrencyRepository
	currencyRateRepo invoicing.CurrencyRateRepository
	vatRateRepo      invoicing.VatRateRepository
	clock            invoicing.Clock
}

// NewReferenceDataService creates a new ReferenceDataService
func NewReferenceDataService(
	currencyRepo invoicing.CurrencyRepository,
	currencyRateRepo invoicing.CurrencyRateRepository,
	vatRateRepo invoicing.VatRateRepository,
	clock invoicing.Clock,
) *ReferenceDataService {
	if clock == nil {
		clock = invoicing.SystemClock{}
	}
	return &ReferenceDataService{
		currencyRepo:     currencyRepo,
		currencyRateRepo: currencyRateRepo,
		vatRateRepo:      vatRateRepo,
		clock:            clock,
	}
}

// CreateCurrency registers a currency by ISO code
func (s *ReferenceDataService) CreateCurrency(ctx context.Context, tenantID uuid.UUID, code, name string) (*CurrencyResponse, error) {
	currency, err := invoicing.NewCurrency(tenantID, code, name, s.clock.Now())
	if err != nil {
		return nil, err
	}
	exists, err := s.currencyRepo.ExistsByCode(ctx, tenantID, currency.Code.String())
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Currency "+currency.Code.String()+" already exists")
	}
	if err := s.currencyRepo.Save(ctx, currency); err != nil {
		return nil, err
	}
	resp := toCurrencyResponse(currency)
	return &resp, nil
}

// ListCurrencies lists the currencies of a tenant
func (s *ReferenceDataService) ListCurrencies(ctx context.Context, tenantID uuid.UUID) ([]CurrencyResponse, error) {
	currencies, err := s.currencyRepo.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]CurrencyResponse, 0, len(currencies))
	for i := range currencies {
		out = append(out, toCurrencyResponse(&currencies[i]))
	}
	return out, nil
}

// GetCurrency returns a currency by ID
func (s *ReferenceDataService) GetCurrency(ctx context.Context, tenantID, id uuid.UUID) (*CurrencyResponse, error) {
	currency, err := s.currencyRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := toCurrencyResponse(currency)
	return &resp, nil
}

// FormatTotals renders computation totals in the notation of a locale,
// e.g. "€ 254.00" for en or "254,00 €" for de.
func (s *ReferenceDataService) FormatTotals(ctx context.Context, tenantID, currencyID uuid.UUID, locale string, c *ComputationResponse) (*TotalsDisplay, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, shared.NewDomainErrorWithCause("INVALID_INPUT", "Unknown locale "+locale, err)
	}
	currency, err := s.currencyRepo.FindByIDForTenant(ctx, tenantID, currencyID)
	if err != nil {
		return nil, err
	}

	minors := [3]int64{c.AmountWoVat, c.VatAmount, c.Amount}
	var formatted [3]string
	for i, minor := range minors {
		m, err := valueobject.NewMoney(minor, currency.Code)
		if err != nil {
			return nil, shared.NewDomainErrorWithCause("INVALID_STATE", "Currency has no usable code", err)
		}
		formatted[i] = m.Format(tag)
	}
	return &TotalsDisplay{
		Currency:    currency.Code.String(),
		Locale:      tag.String(),
		AmountWoVat: formatted[0],
		VatAmount:   formatted[1],
		Amount:      formatted[2],
	}, nil
}

// RecordCurrencyRate records a new exchange rate. Existing invoices are not
// affected once finalized because their rates are frozen in snapshots.
func (s *ReferenceDataService) RecordCurrencyRate(ctx context.Context, tenantID uuid.UUID, req RecordCurrencyRateRequest) (*CurrencyRateResponse, error) {
	if _, err := s.currencyRepo.FindByIDForTenant(ctx, tenantID, req.CurrencyID); err != nil {
		return nil, err
	}
	rate, err := invoicing.NewCurrencyRate(tenantID, req.OrganisationID, req.CurrencyID, req.RateMinorUnits, req.Date, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.currencyRateRepo.Save(ctx, rate); err != nil {
		return nil, err
	}
	resp := toCurrencyRateResponse(rate)
	return &resp, nil
}

// ListCurrencyRates lists rate records, newest first
func (s *ReferenceDataService) ListCurrencyRates(ctx context.Context, tenantID uuid.UUID, filter CurrencyRateListFilter) ([]CurrencyRateResponse, error) {
	domainFilter := invoicing.CurrencyRateFilter{
		Filter:         shared.DefaultFilter(),
		OrganisationID: filter.OrganisationID,
		CurrencyID:     filter.CurrencyID,
	}
	domainFilter.OrderBy = "date"
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	rates, err := s.currencyRateRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	out := make([]CurrencyRateResponse, 0, len(rates))
	for i := range rates {
		out = append(out, toCurrencyRateResponse(&rates[i]))
	}
	return out, nil
}

// LookupCurrencyRate resolves the rate applicable on date (today if nil).
// It never fails for a missing record; Fallback reports that 1.00 was used.
func (s *ReferenceDataService) LookupCurrencyRate(ctx context.Context, tenantID, organisationID, currencyID uuid.UUID, date *time.Time) (*RateLookupResponse, error) {
	at := invoicing.StartOfDay(s.clock.Now())
	if date != nil {
		at = *date
	}
	rates, err := s.currencyRateRepo.FindForOrganisation(ctx, tenantID, organisationID)
	if err != nil {
		return nil, err
	}
	rate, found := invoicing.NewCurrencyRateTable(rates).FindRate(at, organisationID, currencyID)
	return &RateLookupResponse{
		OrganisationID: organisationID,
		CurrencyID:     currencyID,
		Date:           at,
		RateMinorUnits: rate,
		Fallback:       !found,
	}, nil
}

// CreateVatRate creates a VAT class
func (s *ReferenceDataService) CreateVatRate(ctx context.Context, tenantID uuid.UUID, req CreateVatRateRequest) (*VatRateResponse, error) {
	rate, err := invoicing.NewVatRate(tenantID, req.NameEng, req.RateBasisPoints, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.vatRateRepo.Save(ctx, rate); err != nil {
		return nil, err
	}
	resp := toVatRateResponse(rate)
	return &resp, nil
}

// ListVatRates lists the VAT classes of a tenant
func (s *ReferenceDataService) ListVatRates(ctx context.Context, tenantID uuid.UUID) ([]VatRateResponse, error) {
	rates, err := s.vatRateRepo.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]VatRateResponse, 0, len(rates))
	for i := range rates {
		out = append(out, toVatRateResponse(&rates[i]))
	}
	return out, nil
}
