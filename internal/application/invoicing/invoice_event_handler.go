package invoicing

import (
	"context"

	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/freightdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceMetricsRecorder receives invoice lifecycle measurements
type InvoiceMetricsRecorder interface {
	RecordInvoiceFinalized(ctx context.Context, tenantID uuid.UUID, amountMinorUnits int64, lineCount, warningCount int)
	RecordInvoiceRecomputed(ctx context.Context, tenantID uuid.UUID)
	RecordInvoicePaid(ctx context.Context, tenantID uuid.UUID, amountMinorUnits int64)
}

// InvoiceLifecycleHandler logs invoice lifecycle events and feeds metrics
type InvoiceLifecycleHandler struct {
	logger  *zap.Logger
	metrics InvoiceMetricsRecorder
}

// NewInvoiceLifecycleHandler creates a new InvoiceLifecycleHandler.
// metrics may be nil when telemetry is disabled.
func NewInvoiceLifecycleHandler(logger *zap.Logger, metrics InvoiceMetricsRecorder) *InvoiceLifecycleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceLifecycleHandler{logger: logger, metrics: metrics}
}

// EventTypes returns the event types this handler is interested in
func (h *InvoiceLifecycleHandler) EventTypes() []string {
	return []string{
		invoicing.EventTypeInvoiceFinalized,
		invoicing.EventTypeInvoiceRecomputed,
		invoicing.EventTypeInvoicePaid,
	}
}

// Handle processes an invoice lifecycle event
func (h *InvoiceLifecycleHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *invoicing.InvoiceFinalizedEvent:
		h.logger.Info("invoice finalized",
			zap.String("invoice_number", e.InvoiceNumber),
			zap.Int64("amount", e.Amount),
			zap.Int("lines", e.LineCount),
			zap.Int("warnings", e.WarningCount),
		)
		if h.metrics != nil {
			h.metrics.RecordInvoiceFinalized(ctx, e.TenantID(), e.Amount, e.LineCount, e.WarningCount)
		}
	case *invoicing.InvoiceRecomputedEvent:
		h.logger.Info("invoice recomputed",
			zap.String("invoice_number", e.InvoiceNumber),
			zap.Int64("previous_amount", e.PreviousAmount),
			zap.Int64("amount", e.Amount),
		)
		if h.metrics != nil {
			h.metrics.RecordInvoiceRecomputed(ctx, e.TenantID())
		}
	case *invoicing.InvoicePaidEvent:
		h.logger.Info("invoice paid",
			zap.String("invoice_number", e.InvoiceNumber),
			zap.Int64("amount", e.Amount),
		)
		if h.metrics != nil {
			h.metrics.RecordInvoicePaid(ctx, e.TenantID(), e.Amount)
		}
	default:
		h.logger.Debug("ignoring event", zap.String("event_type", event.EventType()))
	}
	return nil
}
