package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/logger"
)

const (
	tracerName = "github.com/fd1az/paybridge/business/settlement/app"
	meterName  = tracerName
)

// TrackerConfig bounds the polling done inside one delivery.
type TrackerConfig struct {
	Attempts int
	Interval time.Duration
}

// DefaultTrackerConfig returns 10 polls 300ms apart.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{Attempts: 10, Interval: 300 * time.Millisecond}
}

// Tracker resolves one stage of a transfer. The same type serves both stages;
// the probe decides what is polled, the stage decides what is recorded.
type Tracker struct {
	cfg       TrackerConfig
	probe     Probe
	records   RecordStore
	notifier  Notifier
	publisher Publisher
	logger    logger.LoggerInterface
	tracer    trace.Tracer
	outcomes  metric.Int64Counter
	polls     metric.Int64Histogram
	now       func() time.Time
}

// NewTracker creates a Tracker for probe's stage.
func NewTracker(cfg TrackerConfig, probe Probe, records RecordStore, notifier Notifier, publisher Publisher, log logger.LoggerInterface) (*Tracker, error) {
	if cfg.Attempts < 1 {
		return nil, fmt.Errorf("tracker: attempts must be at least 1, got %d", cfg.Attempts)
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("tracker: negative interval")
	}

	meter := otel.Meter(meterName)
	outcomes, err := meter.Int64Counter("tracker_outcomes_total",
		metric.WithDescription("Tracker deliveries by stage and outcome"))
	if err != nil {
		return nil, err
	}
	polls, err := meter.Int64Histogram("tracker_polls",
		metric.WithDescription("Polls per delivery"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 5, 8, 10))
	if err != nil {
		return nil, err
	}

	return &Tracker{
		cfg:       cfg,
		probe:     probe,
		records:   records,
		notifier:  notifier,
		publisher: publisher,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
		outcomes:  outcomes,
		polls:     polls,
		now:       time.Now,
	}, nil
}

// Stage returns the stage this tracker resolves.
func (t *Tracker) Stage() domain.Stage { return t.probe.Stage() }

// Track polls the stage up to Attempts times. A terminal observation is
// persisted, reported to the merchant and, for a settled source leg, handed
// to the destination stage. domain.Retry means the queue should redeliver.
// Errors mean the observation could not be persisted or forwarded.
func (t *Tracker) Track(ctx context.Context, e domain.Event) (domain.Outcome, error) {
	stage := t.Stage()
	ctx, span := t.tracer.Start(ctx, "tracker.track", trace.WithAttributes(
		attribute.String("stage", string(stage)),
		attribute.String("tx_hash", e.TxHash),
		attribute.String("provider", e.Provider),
	))
	defer span.End()

	if err := e.Validate(); err != nil {
		err = apperror.New(apperror.CodeInvalidEvent, apperror.WithCause(err), apperror.WithContext(e.ID))
		span.RecordError(err)
		return domain.Retry, err
	}

	if final, ok := t.finalStatus(ctx, e); ok {
		t.outcomes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", string(stage)), attribute.String("outcome", "already_final")))
		t.logger.Info(ctx, "transfer already final, skipping poll",
			"stage", stage, "tx_hash", e.TxHash, "final_status", final)
		span.SetAttributes(attribute.String("status", string(final)))
		return domain.Terminal(final), nil
	}

	out, polls := t.poll(ctx, e)
	attrs := metric.WithAttributes(attribute.String("stage", string(stage)), attribute.String("outcome", outcomeLabel(out)))
	t.polls.Record(ctx, int64(polls), attrs)
	t.outcomes.Add(ctx, 1, attrs)

	if !out.IsTerminal() {
		t.logger.Info(ctx, "stage unresolved, requesting redelivery",
			"stage", stage, "tx_hash", e.TxHash, "polls", polls)
		return domain.Retry, nil
	}

	if err := t.settle(ctx, e, out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "settle failed")
		return domain.Retry, err
	}
	span.SetAttributes(attribute.String("status", string(out.Status())))
	return out, nil
}

// finalStatus returns the stored final status when the transfer already has a
// definitive outcome, e.g. a reverted source leg observed before the
// destination stage runs. Lookup failures fall through to polling.
func (t *Tracker) finalStatus(ctx context.Context, e domain.Event) (domain.Status, bool) {
	rec, err := t.records.Get(ctx, e.TxHash)
	if err != nil {
		if !apperror.IsCode(err, apperror.CodeRecordNotFound) {
			t.logger.Warn(ctx, "record lookup failed", "stage", t.Stage(), "tx_hash", e.TxHash, "error", err)
		}
		return domain.StatusUnset, false
	}
	return rec.FinalStatus, rec.FinalStatus.Terminal()
}

func (t *Tracker) poll(ctx context.Context, e domain.Event) (domain.Outcome, int) {
	for attempt := 1; ; attempt++ {
		out, err := t.probe.Check(ctx, e)
		if err != nil {
			t.logger.Warn(ctx, "settlement poll failed",
				"stage", t.Stage(), "tx_hash", e.TxHash, "attempt", attempt, "error", err)
		} else if out.IsTerminal() {
			return out, attempt
		}
		if attempt >= t.cfg.Attempts {
			return domain.Retry, attempt
		}

		timer := time.NewTimer(t.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.Retry, attempt
		case <-timer.C:
		}
	}
}

func (t *Tracker) settle(ctx context.Context, e domain.Event, out domain.Outcome) error {
	stage := t.Stage()
	rec, changed, err := t.records.Upsert(ctx, domain.NewRecord(e, t.now()), stage.Update(out))
	if err != nil {
		return err
	}
	t.logger.Info(ctx, "stage settled",
		"stage", stage, "tx_hash", e.TxHash, "status", out.Status(),
		"source_status", rec.SourceStatus, "final_status", rec.FinalStatus, "changed", changed)

	if changed && rec.MerchantWebhook != "" {
		if err := t.notifier.Notify(ctx, rec.MerchantWebhook, domain.NewNotification(stage, rec)); err != nil {
			t.logger.Warn(ctx, "merchant webhook failed", "stage", stage, "tx_hash", e.TxHash, "error", err)
		}
	}

	if stage == domain.StageSource && out.Status() == domain.StatusSuccessful {
		if err := t.publisher.Publish(ctx, domain.StageDestination, e); err != nil {
			return err
		}
	}
	return nil
}

func outcomeLabel(o domain.Outcome) string {
	if !o.IsTerminal() {
		return "retry"
	}
	return string(o.Status())
}
