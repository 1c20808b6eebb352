package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/internal/logger"
)

// DeadLetterHandler is the terminal sink for events whose stage never resolved.
// It marks the record not_found, keeps the event, and alerts operators once.
type DeadLetterHandler struct {
	records RecordStore
	letters DeadLetterStore
	alerter Alerter
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	alerts  metric.Int64Counter
	now     func() time.Time
}

// NewDeadLetterHandler creates a DeadLetterHandler.
func NewDeadLetterHandler(records RecordStore, letters DeadLetterStore, alerter Alerter, log logger.LoggerInterface) (*DeadLetterHandler, error) {
	alerts, err := otel.Meter(meterName).Int64Counter("deadletter_alerts_total",
		metric.WithDescription("Operator alerts raised for dead-lettered events"))
	if err != nil {
		return nil, err
	}
	return &DeadLetterHandler{
		records: records,
		letters: letters,
		alerter: alerter,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
		alerts:  alerts,
		now:     time.Now,
	}, nil
}

// Handle persists d and alerts. Redelivering the same dead letter is a no-op,
// and so is a dead letter for a transfer whose final status is already known.
// Only storage failures are returned; a failed alert is logged and dropped.
func (h *DeadLetterHandler) Handle(ctx context.Context, d domain.DeadLetter, e domain.Event) error {
	ctx, span := h.tracer.Start(ctx, "deadletter.handle", trace.WithAttributes(
		attribute.String("tx_hash", d.TxHash),
		attribute.String("stage", string(d.Stage)),
	))
	defer span.End()

	now := h.now()
	rec, _, err := h.records.Upsert(ctx, domain.NewRecord(e, now), domain.Update{FinalStatus: domain.StatusNotFound})
	if err != nil {
		span.RecordError(err)
		return err
	}

	if rec.FinalStatus.Terminal() {
		h.logger.Info(ctx, "dead letter for settled transfer dropped",
			"tx_hash", d.TxHash, "stage", d.Stage, "final_status", rec.FinalStatus)
		span.SetAttributes(attribute.Bool("already_final", true))
		return nil
	}

	if d.CreatedAt.IsZero() {
		d.CreatedAt = now.UTC()
	}
	inserted, err := h.letters.Insert(ctx, d)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !inserted {
		h.logger.Debug(ctx, "dead letter already recorded", "id", d.ID, "tx_hash", d.TxHash)
		return nil
	}

	h.logger.Error(ctx, "settlement dead-lettered",
		"tx_hash", d.TxHash, "stage", d.Stage, "deliveries", d.Deliveries,
		"final_status", rec.FinalStatus, "provider", e.Provider, "request_id", e.RequestID)

	h.alerts.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", string(d.Stage))))
	if err := h.alerter.Alert(ctx, domain.NewAlert(d, e)); err != nil {
		span.RecordError(err)
		h.logger.Error(ctx, "operator alert failed", "tx_hash", d.TxHash, "error", err)
	}
	return nil
}
