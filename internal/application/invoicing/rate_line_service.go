package invoicing

import (
	"context"

	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RateLineService manages rate lines and ad-hoc conversions
type RateLineService struct {
	rateLineRepo     invoicing.RateLineRepository
	currencyRateRepo invoicing.CurrencyRateRepository
	vatRateRepo      invoicing.VatRateRepository
	clock            invoicing.Clock
}

// NewRateLineService creates a new RateLineService
func NewRateLineService(
	rateLineRepo invoicing.RateLineRepository,
	currencyRateRepo invoicing.CurrencyRateRepository,
	vatRateRepo invoicing.VatRateRepository,
	clock invoicing.Clock,
) *RateLineService {
	if clock == nil {
		clock = invoicing.SystemClock{}
	}
	return &RateLineService{
		rateLineRepo:     rateLineRepo,
		currencyRateRepo: currencyRateRepo,
		vatRateRepo:      vatRateRepo,
		clock:            clock,
	}
}

// Create creates a rate line
func (s *RateLineService) Create(ctx context.Context, tenantID uuid.UUID, req CreateRateLineRequest) (*RateLineResponse, error) {
	line, err := invoicing.NewRateLine(tenantID, invoicing.RateLineInput{
		ServiceID:      req.ServiceID,
		ShipmentID:     req.ShipmentID,
		RouteID:        req.RouteID,
		RateMinorUnits: req.RateMinorUnits,
		CurrencyID:     req.CurrencyID,
		Quantity:       req.Quantity,
		VatRateID:      req.VatRateID,
		Description:    req.Description,
	}, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.rateLineRepo.Save(ctx, line); err != nil {
		return nil, err
	}
	resp := toRateLineResponse(line)
	return &resp, nil
}

// GetByID retrieves a rate line
func (s *RateLineService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*RateLineResponse, error) {
	line, err := s.rateLineRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := toRateLineResponse(line)
	return &resp, nil
}

// Convert converts a transient rate line with the same converter used at finalization.
// The date defaults to today.
func (s *RateLineService) Convert(ctx context.Context, tenantID uuid.UUID, req ConvertRequest) (*ConvertResponse, error) {
	line := &invoicing.RateLine{
		RateMinorUnits: req.RateMinorUnits,
		CurrencyID:     req.CurrencyID,
		Quantity:       req.Quantity,
		VatRateID:      req.VatRateID,
	}
	date := invoicing.StartOfDay(s.clock.Now())
	if req.Date != nil {
		date = *req.Date
	}

	var (
		rates    []invoicing.CurrencyRate
		vatRates []invoicing.VatRate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rates, err = s.currencyRateRepo.FindForOrganisation(gctx, tenantID, req.OrganisationID)
		return err
	})
	g.Go(func() error {
		var err error
		vatRates, err = s.vatRateRepo.FindAllForTenant(gctx, tenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	converter := invoicing.NewRateConverter(invoicing.NewCurrencyRateTable(rates), invoicing.NewVatRateTable(vatRates))
	conv, err := converter.Convert(line, invoicing.ConversionContext{
		InvoiceDate:       date,
		OrganisationID:    req.OrganisationID,
		InvoiceCurrencyID: req.InvoiceCurrencyID,
	})
	if err != nil {
		return nil, err
	}
	return &ConvertResponse{
		Amounts:  toLineAmountsResponse(conv.Amounts),
		Warnings: toWarningResponses(conv.Warnings),
	}, nil
}
