package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/freightdesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxDraftNumberAttempts bounds retries when two drafts race for the same number
const maxDraftNumberAttempts = 3

// InvoiceServiceConfig holds tunables for InvoiceService
type InvoiceServiceConfig struct {
	PaymentTermDays int
	IdempotencyTTL  time.Duration
}

// DefaultInvoiceServiceConfig returns the default configuration
func DefaultInvoiceServiceConfig() InvoiceServiceConfig {
	return InvoiceServiceConfig{
		PaymentTermDays: 30,
		IdempotencyTTL:  shared.DefaultIdempotencyConfig().TTL,
	}
}

// InvoiceService handles the invoice lifecycle: drafting, populating, attaching
// rate lines, previewing, finalizing and payment.
type InvoiceService struct {
	invoiceRepo      invoicing.InvoiceRepository
	rateLineRepo     invoicing.RateLineRepository
	currencyRateRepo invoicing.CurrencyRateRepository
	vatRateRepo      invoicing.VatRateRepository
	snapshotRepo     invoicing.InvoiceRateSnapshotRepository
	txScope          TransactionScope
	clock            invoicing.Clock
	config           InvoiceServiceConfig
	logger           *zap.Logger
	eventPublisher   shared.EventPublisher
	idempotency      shared.IdempotencyStore
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo invoicing.InvoiceRepository,
	rateLineRepo invoicing.RateLineRepository,
	currencyRateRepo invoicing.CurrencyRateRepository,
	vatRateRepo invoicing.VatRateRepository,
	snapshotRepo invoicing.InvoiceRateSnapshotRepository,
	txScope TransactionScope,
	clock invoicing.Clock,
	config InvoiceServiceConfig,
	logger *zap.Logger,
) *InvoiceService {
	if clock == nil {
		clock = invoicing.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		invoiceRepo:      invoiceRepo,
		rateLineRepo:     rateLineRepo,
		currencyRateRepo: currencyRateRepo,
		vatRateRepo:      vatRateRepo,
		snapshotRepo:     snapshotRepo,
		txScope:          txScope,
		clock:            clock,
		config:           config,
		logger:           logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore enables Idempotency-Key handling on finalize
func (s *InvoiceService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// publishDomainEvents publishes all pending events of the invoice
func (s *InvoiceService) publishDomainEvents(ctx context.Context, inv *invoicing.Invoice) {
	events := inv.GetDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	// Errors are logged by the event bus, not propagated
	_ = s.eventPublisher.Publish(ctx, events...)
	inv.ClearDomainEvents()
}

// CreateDraft creates a blank invoice carrying only the next GH_ number
func (s *InvoiceService) CreateDraft(ctx context.Context, tenantID uuid.UUID) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create_draft")
	defer span.End()

	var lastErr error
	for attempt := 0; attempt < maxDraftNumberAttempts; attempt++ {
		currentMax, err := s.invoiceRepo.FindMaxNumber(ctx, tenantID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		number, err := invoicing.NextInvoiceNumber(currentMax)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		inv, err := invoicing.NewDraftInvoice(tenantID, number, s.clock.Now())
		if err != nil {
			return nil, err
		}
		err = s.invoiceRepo.Save(ctx, inv)
		if err == nil {
			telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceNumber, number)
			s.publishDomainEvents(ctx, inv)
			resp := toInvoiceResponse(inv)
			return &resp, nil
		}
		if !errors.Is(err, shared.ErrAlreadyExists) {
			telemetry.RecordError(span, err)
			return nil, err
		}
		lastErr = err
		s.logger.Warn("invoice number taken, retrying",
			zap.String("number", number),
			zap.Int("attempt", attempt+1),
		)
	}
	telemetry.RecordError(span, lastErr)
	return nil, lastErr
}

// GetByID retrieves an invoice
func (s *InvoiceService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := toInvoiceResponse(inv)
	return &resp, nil
}

// List lists invoices with filtering and returns the total count
func (s *InvoiceService) List(ctx context.Context, tenantID uuid.UUID, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	domainFilter := invoicing.InvoiceFilter{
		Filter:     shared.DefaultFilter(),
		CustomerID: filter.CustomerID,
		FromDate:   filter.FromDate,
		ToDate:     filter.ToDate,
	}
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		status := invoicing.InvoiceStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Invalid invoice status: "+filter.Status)
		}
		domainFilter.Status = &status
	}

	invoices, err := s.invoiceRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoiceRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, toInvoiceResponse(&invoices[i]))
	}
	return responses, total, nil
}

// Update populates a draft invoice. Missing dates are defaulted from the clock:
// the invoice date to today, the performance date to the first day of the
// previous month and the payment date to the invoice date plus the payment term.
func (s *InvoiceService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if req.Version != nil && *req.Version != inv.Version {
		return nil, shared.ErrConcurrencyConflict
	}

	now := s.clock.Now()
	details := invoicing.InvoiceDetails{
		CustomerID:     req.CustomerID,
		OrganisationID: req.OrganisationID,
		CurrencyID:     req.CurrencyID,
		Remarks:        req.Remarks,
	}
	if req.Date != nil {
		details.Date = *req.Date
	} else {
		details.Date = invoicing.StartOfDay(now)
	}
	if req.PerformanceDate != nil {
		details.PerformanceDate = *req.PerformanceDate
	} else {
		details.PerformanceDate = invoicing.DefaultPerformanceDate(now)
	}
	if req.PaymentDate != nil {
		details.PaymentDate = *req.PaymentDate
	} else {
		details.PaymentDate = invoicing.DefaultPaymentDate(details.Date, s.config.PaymentTermDays)
	}

	if err := inv.Populate(details, now); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
		return nil, err
	}
	resp := toInvoiceResponse(inv)
	return &resp, nil
}

// AttachRates attaches existing rate lines to a draft invoice by its number
func (s *InvoiceService) AttachRates(ctx context.Context, tenantID, id uuid.UUID, req AttachRatesRequest) ([]RateLineResponse, error) {
	if len(req.RateIDs) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "At least one rate ID is required")
	}
	inv, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !inv.Status.CanEdit() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot attach rates to invoice in %s status", inv.Status))
	}

	lines, err := s.rateLineRepo.FindByIDs(ctx, tenantID, req.RateIDs)
	if err != nil {
		return nil, err
	}
	if len(lines) != len(uniqueIDs(req.RateIDs)) {
		return nil, shared.NewDomainError("NOT_FOUND", "One or more rate lines were not found")
	}

	now := s.clock.Now()
	for i := range lines {
		if err := lines[i].AttachTo(inv.Number, now); err != nil {
			return nil, err
		}
	}
	if err := s.rateLineRepo.SaveBatch(ctx, lines); err != nil {
		return nil, err
	}

	responses := make([]RateLineResponse, 0, len(lines))
	for i := range lines {
		responses = append(responses, toRateLineResponse(&lines[i]))
	}
	return responses, nil
}

// Preview returns per-line amounts and totals. When snapshots exist the frozen
// values are returned instead of a fresh computation.
func (s *InvoiceService) Preview(ctx context.Context, tenantID, id uuid.UUID) (*ComputationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "preview")
	defer span.End()

	inv, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	in, err := s.loadInputs(ctx, inv, true)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(in.snapshots) > 0 {
		resp := toComputationResponse(inv.ID, SourceSnapshot, invoicing.ComputationFromSnapshots(in.snapshots))
		return &resp, nil
	}

	computation, err := s.compute(inv, in)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logWarnings(inv, computation.Warnings)
	resp := toComputationResponse(inv.ID, SourceLive, computation)
	return &resp, nil
}

// Finalize computes the invoice, then writes the snapshot set and the totals in
// one transaction and moves the invoice to pending. A non-empty idempotencyKey
// makes repeated calls with the same key fail with DUPLICATE_REQUEST.
func (s *InvoiceService) Finalize(ctx context.Context, tenantID, id uuid.UUID, idempotencyKey string) (resp *FinalizeResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "finalize")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, id.String())

	if idempotencyKey != "" && s.idempotency != nil {
		key := fmt.Sprintf("invoice:finalize:%s:%s:%s", tenantID, id, idempotencyKey)
		claimed, claimErr := s.idempotency.MarkProcessed(ctx, key, s.config.IdempotencyTTL)
		if claimErr != nil {
			s.logger.Warn("idempotency store unavailable, continuing without it", zap.Error(claimErr))
		} else if !claimed {
			return nil, shared.ErrDuplicateRequest
		} else {
			defer func() {
				if err != nil {
					if relErr := s.idempotency.Release(context.WithoutCancel(ctx), key); relErr != nil {
						s.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
					}
				}
			}()
		}
	}

	resp, err = s.freeze(ctx, tenantID, id, func(inv *invoicing.Invoice, c *invoicing.Computation, now time.Time) error {
		return inv.Finalize(c, now)
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return resp, err
}

// Recompute replaces the snapshots of a pending invoice using current reference data
func (s *InvoiceService) Recompute(ctx context.Context, tenantID, id uuid.UUID) (*FinalizeResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "recompute")
	defer span.End()

	resp, err := s.freeze(ctx, tenantID, id, func(inv *invoicing.Invoice, c *invoicing.Computation, now time.Time) error {
		return inv.Recompute(c, now)
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return resp, err
}

// MarkPaid marks a pending invoice as paid
func (s *InvoiceService) MarkPaid(ctx context.Context, tenantID, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := inv.MarkPaid(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
		return nil, err
	}
	s.publishDomainEvents(ctx, inv)
	resp := toInvoiceResponse(inv)
	return &resp, nil
}

// freeze is the shared body of Finalize and Recompute
func (s *InvoiceService) freeze(
	ctx context.Context,
	tenantID, id uuid.UUID,
	transition func(inv *invoicing.Invoice, c *invoicing.Computation, now time.Time) error,
) (*FinalizeResponse, error) {
	inv, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !inv.Status.CanFinalize() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot finalize invoice in %s status", inv.Status))
	}

	in, err := s.loadInputs(ctx, inv, false)
	if err != nil {
		return nil, err
	}
	computation, err := s.compute(inv, in)
	if err != nil {
		return nil, err
	}
	s.logWarnings(inv, computation.Warnings)

	now := s.clock.Now()
	if err := transition(inv, computation, now); err != nil {
		return nil, err
	}
	snapshots := invoicing.NewSnapshots(inv, computation.Lines, now)

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.SnapshotRepo().DeleteByInvoice(ctx, tenantID, inv.ID); err != nil {
			return err
		}
		if err := repos.SnapshotRepo().SaveBatch(ctx, snapshots); err != nil {
			return err
		}
		return repos.InvoiceRepo().SaveWithLock(ctx, inv)
	})
	if err != nil {
		s.logger.Error("failed to persist invoice snapshots",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("invoice_number", inv.Number),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("invoice snapshots frozen",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.Number),
		zap.Int("lines", len(snapshots)),
		zap.Int64("amount", inv.AmountMinorUnits),
	)
	s.publishDomainEvents(ctx, inv)

	return &FinalizeResponse{
		Invoice:     toInvoiceResponse(inv),
		Computation: toComputationResponse(inv.ID, SourceSnapshot, computation),
	}, nil
}

// computationInputs is everything a computation reads from storage
type computationInputs struct {
	lines     []invoicing.RateLine
	rates     []invoicing.CurrencyRate
	vatRates  []invoicing.VatRate
	snapshots []invoicing.InvoiceRateSnapshot
}

// loadInputs fans the independent reads out in parallel and joins them.
// The first failing read cancels the others.
func (s *InvoiceService) loadInputs(ctx context.Context, inv *invoicing.Invoice, withSnapshots bool) (*computationInputs, error) {
	in := &computationInputs{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lines, err := s.rateLineRepo.FindByInvoiceNumber(gctx, inv.TenantID, inv.Number)
		in.lines = lines
		return err
	})
	g.Go(func() error {
		vatRates, err := s.vatRateRepo.FindAllForTenant(gctx, inv.TenantID)
		in.vatRates = vatRates
		return err
	})
	if inv.OrganisationID != nil {
		orgID := *inv.OrganisationID
		g.Go(func() error {
			rates, err := s.currencyRateRepo.FindForOrganisation(gctx, inv.TenantID, orgID)
			in.rates = rates
			return err
		})
	}
	if withSnapshots {
		g.Go(func() error {
			snaps, err := s.snapshotRepo.FindByInvoice(gctx, inv.TenantID, inv.ID)
			in.snapshots = snaps
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

func (s *InvoiceService) compute(inv *invoicing.Invoice, in *computationInputs) (*invoicing.Computation, error) {
	cc, err := inv.ConversionContext()
	if err != nil {
		return nil, err
	}
	converter := invoicing.NewRateConverter(
		invoicing.NewCurrencyRateTable(in.rates),
		invoicing.NewVatRateTable(in.vatRates),
	)
	return invoicing.NewInvoiceAggregator(converter).Aggregate(in.lines, cc)
}

func (s *InvoiceService) logWarnings(inv *invoicing.Invoice, warnings []*invoicing.ComputationError) {
	for _, w := range warnings {
		s.logger.Warn("invoice computed with fallback reference rate",
			zap.String("invoice_number", inv.Number),
			zap.String("rate_line_id", w.RateLineID.String()),
			zap.String("reference", string(w.Reference)),
			zap.String("reference_id", w.ReferenceID.String()),
			zap.String("detail", w.Message),
		)
	}
}

func uniqueIDs(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
