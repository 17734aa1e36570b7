package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// InvoiceMetrics records invoice lifecycle counters. Amounts are added in
// minor units of the invoice currency.
type InvoiceMetrics struct {
	logger *zap.Logger

	finalizedTotal  *Counter
	recomputedTotal *Counter
	paidTotal       *Counter
	amountTotal     *Counter
	paidAmountTotal *Counter
	warningsTotal   *Counter
	deliveriesTotal *Counter
	linesPerInvoice *Histogram
}

// NewInvoiceMetrics creates the invoice instruments on meter
func NewInvoiceMetrics(meter metric.Meter, logger *zap.Logger) (*InvoiceMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &InvoiceMetrics{logger: logger}
	counters := []struct {
		dst        **Counter
		name, desc string
		unit       string
	}{
		{&m.finalizedTotal, "freight_invoice_finalized_total", "Invoices finalized", "{invoices}"},
		{&m.recomputedTotal, "freight_invoice_recomputed_total", "Snapshot recomputations of pending invoices", "{invoices}"},
		{&m.paidTotal, "freight_invoice_paid_total", "Invoices marked paid", "{invoices}"},
		{&m.amountTotal, "freight_invoice_amount_total", "Gross amount of finalized invoices in minor units", "{minor_units}"},
		{&m.paidAmountTotal, "freight_invoice_paid_amount_total", "Gross amount of paid invoices in minor units", "{minor_units}"},
		{&m.warningsTotal, "freight_invoice_fallback_rate_total", "Rate lines computed with a fallback reference rate", "{lines}"},
		{&m.deliveriesTotal, "freight_event_deliveries_total", "Lifecycle event deliveries by outcome", "{events}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	var err error
	m.linesPerInvoice, err = NewHistogram(meter, HistogramOpts{
		Name:        "freight_invoice_rate_lines",
		Description: "Rate lines per finalized invoice",
		Unit:        "{lines}",
		Boundaries:  RateLineCountBuckets,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordInvoiceFinalized records a draft moving to pending
func (m *InvoiceMetrics) RecordInvoiceFinalized(ctx context.Context, tenantID uuid.UUID, amountMinorUnits int64, lineCount, warningCount int) {
	tenant := AttrTenantID.String(tenantID.String())
	m.finalizedTotal.Inc(ctx, tenant)
	m.amountTotal.Add(ctx, amountMinorUnits, tenant)
	m.linesPerInvoice.Record(ctx, float64(lineCount), tenant)
	if warningCount > 0 {
		m.warningsTotal.Add(ctx, int64(warningCount), tenant)
		m.logger.Debug("invoice finalized with fallback rates",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("warnings", warningCount),
		)
	}
}

// RecordInvoiceRecomputed records a snapshot replacement
func (m *InvoiceMetrics) RecordInvoiceRecomputed(ctx context.Context, tenantID uuid.UUID) {
	m.recomputedTotal.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordInvoicePaid records a pending invoice being paid
func (m *InvoiceMetrics) RecordInvoicePaid(ctx context.Context, tenantID uuid.UUID, amountMinorUnits int64) {
	tenant := AttrTenantID.String(tenantID.String())
	m.paidTotal.Inc(ctx, tenant)
	m.paidAmountTotal.Add(ctx, amountMinorUnits, tenant)
}

// RecordEventDelivery counts one event delivery outcome (handled, duplicate, failed)
func (m *InvoiceMetrics) RecordEventDelivery(ctx context.Context, eventType, outcome string) {
	m.deliveriesTotal.Inc(ctx, AttrEventType.String(eventType), AttrOutcome.String(outcome))
}

// ErrMeterNil is returned when a metrics type is built without a meter.
var ErrMeterNil = &MetricsError{Op: "NewInvoiceMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics construction error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
