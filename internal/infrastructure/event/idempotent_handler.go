package event

import (
	"context"
	"sync/atomic"

	"github.com/freightdesk/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// eventKeyPrefix keeps event claims apart from request keys in a shared store
const eventKeyPrefix = "event:"

// Delivery outcomes reported by IdempotentHandler
const (
	DeliveryHandled   = "handled"
	DeliveryDuplicate = "duplicate"
	DeliveryFailed    = "failed"
)

// DeliveryRecorder is told the outcome of every delivery.
// telemetry.InvoiceMetrics satisfies it.
type DeliveryRecorder interface {
	RecordEventDelivery(ctx context.Context, eventType, outcome string)
}

// DeliveryTally counts outcomes in memory
type DeliveryTally struct {
	handled   atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

// RecordEventDelivery implements DeliveryRecorder
func (t *DeliveryTally) RecordEventDelivery(_ context.Context, _ string, outcome string) {
	switch outcome {
	case DeliveryHandled:
		t.handled.Add(1)
	case DeliveryDuplicate:
		t.duplicate.Add(1)
	case DeliveryFailed:
		t.failed.Add(1)
	}
}

// Count returns how many deliveries ended with outcome
func (t *DeliveryTally) Count(outcome string) int64 {
	switch outcome {
	case DeliveryHandled:
		return t.handled.Load()
	case DeliveryDuplicate:
		return t.duplicate.Load()
	case DeliveryFailed:
		return t.failed.Load()
	}
	return 0
}

// IdempotentHandler runs the wrapped handler at most once per event ID.
// A republished InvoiceFinalized event is therefore not counted twice.
type IdempotentHandler struct {
	next      shared.EventHandler
	store     shared.IdempotencyStore
	cfg       shared.IdempotencyConfig
	logger    *zap.Logger
	tally     *DeliveryTally
	recorders []DeliveryRecorder
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides the claim TTL and the on/off switch
func WithIdempotencyConfig(cfg shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.cfg = cfg }
}

// WithDeliveryTally shares one tally between several handlers
func WithDeliveryTally(t *DeliveryTally) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.tally = t }
}

// WithDeliveryRecorder adds a recorder next to the handler's tally
func WithDeliveryRecorder(r DeliveryRecorder) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if r != nil {
			h.recorders = append(h.recorders, r)
		}
	}
}

// NewIdempotentHandler wraps next with claim-once semantics backed by store
func NewIdempotentHandler(next shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	h := &IdempotentHandler{
		next:   next,
		store:  store,
		cfg:    shared.DefaultIdempotencyConfig(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.tally == nil {
		h.tally = &DeliveryTally{}
	}
	return h
}

// EventTypes returns the event types of the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.next.EventTypes()
}

// Tally returns the outcome counters of this handler
func (h *IdempotentHandler) Tally() *DeliveryTally {
	return h.tally
}

// Handle claims the event ID, then runs the wrapped handler. A failed run
// releases the claim so that a redelivery is processed. When the store
// cannot be reached the event is handled without a claim.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.cfg.Enabled {
		return h.next.Handle(ctx, event)
	}

	key := eventKeyPrefix + event.EventID().String()
	log := h.logger.With(
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
	)

	claimed, err := h.store.MarkProcessed(ctx, key, h.cfg.TTL)
	switch {
	case err != nil:
		log.Warn("failed to check event idempotency, processing anyway", zap.Error(err))
	case !claimed:
		log.Debug("duplicate event detected, skipping")
		h.record(ctx, event, DeliveryDuplicate)
		return nil
	}

	if err := h.next.Handle(ctx, event); err != nil {
		log.Error("event handler failed", zap.Error(err))
		h.record(ctx, event, DeliveryFailed)
		if claimed {
			if relErr := h.store.Release(ctx, key); relErr != nil {
				log.Warn("failed to release event claim", zap.Error(relErr))
			}
		}
		return err
	}

	h.record(ctx, event, DeliveryHandled)
	return nil
}

func (h *IdempotentHandler) record(ctx context.Context, event shared.DomainEvent, outcome string) {
	h.tally.RecordEventDelivery(ctx, event.EventType(), outcome)
	for _, r := range h.recorders {
		r.RecordEventDelivery(ctx, event.EventType(), outcome)
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
