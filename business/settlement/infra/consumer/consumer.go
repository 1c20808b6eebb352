// Package consumer binds the settlement services to queue subscriptions.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/fd1az/paybridge/business/settlement/app"
	"github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/business/settlement/infra/publisher"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/logger"
	"github.com/fd1az/paybridge/internal/queue"
)

// StageTracker resolves one stage of an event.
type StageTracker interface {
	Stage() domain.Stage
	Track(ctx context.Context, e domain.Event) (domain.Outcome, error)
}

// DeadLetterSink records dead-lettered events.
type DeadLetterSink interface {
	Handle(ctx context.Context, d domain.DeadLetter, e domain.Event) error
}

var (
	_ StageTracker   = (*app.Tracker)(nil)
	_ DeadLetterSink = (*app.DeadLetterHandler)(nil)
)

// Config names the subscriptions.
type Config struct {
	Subjects          publisher.Subjects
	DeadLetterSubject string
	// Workers is the number of concurrent consumers per subject.
	Workers int
}

// Runner consumes the stage subjects and the dead-letter subject.
type Runner struct {
	cfg         Config
	consumer    queue.Consumer
	trackers    []StageTracker
	deadLetters DeadLetterSink
	logger      logger.LoggerInterface
}

// New creates a Runner.
func New(cfg Config, consumer queue.Consumer, trackers []StageTracker, deadLetters DeadLetterSink, log logger.LoggerInterface) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Runner{cfg: cfg, consumer: consumer, trackers: trackers, deadLetters: deadLetters, logger: log}
}

// Run blocks until ctx is cancelled or a subscription fails.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		once sync.Once
		out  error
	)
	start := func(subject, durable string, h queue.Handler) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.consumer.Consume(ctx, subject, durable, h)
			if err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
				once.Do(func() { out = err })
				cancel()
			}
		}()
	}

	for _, t := range r.trackers {
		subject, ok := r.cfg.Subjects.For(t.Stage())
		if !ok {
			return apperror.New(apperror.CodeConfigurationError,
				apperror.WithContext("no subject for stage "+string(t.Stage())))
		}
		for i := 0; i < r.cfg.Workers; i++ {
			start(subject, "settlement-"+string(t.Stage()), r.TrackHandler(t))
		}
		r.logger.Info(ctx, "settlement consumer started", "stage", t.Stage(), "subject", subject, "workers", r.cfg.Workers)
	}
	if r.cfg.DeadLetterSubject != "" && r.deadLetters != nil {
		start(r.cfg.DeadLetterSubject, "settlement-deadletter", r.DeadLetterHandler())
		r.logger.Info(ctx, "dead-letter consumer started", "subject", r.cfg.DeadLetterSubject)
	}

	wg.Wait()
	return out
}

// TrackHandler adapts t to a queue handler.
func (r *Runner) TrackHandler(t StageTracker) queue.Handler {
	return func(ctx context.Context, msg queue.Message) queue.Result {
		var e domain.Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			r.logger.Error(ctx, "undecodable settlement event", "subject", msg.Subject, "msg_id", msg.ID, "error", err)
			return queue.Reject
		}

		out, err := t.Track(ctx, e)
		switch {
		case apperror.IsCode(err, apperror.CodeInvalidEvent):
			r.logger.Error(ctx, "invalid settlement event", "subject", msg.Subject, "msg_id", msg.ID, "error", err)
			return queue.Reject
		case err != nil:
			r.logger.Warn(ctx, "settlement attempt failed", "stage", t.Stage(), "tx_hash", e.TxHash,
				"delivery", msg.Delivery, "error", err)
			return queue.Retry
		case out.IsTerminal():
			return queue.Ack
		default:
			return queue.Retry
		}
	}
}

// DeadLetterHandler adapts the dead-letter sink to a queue handler. It never
// asks for the event to be processed again by a stage.
func (r *Runner) DeadLetterHandler() queue.Handler {
	return func(ctx context.Context, msg queue.Message) queue.Result {
		var e domain.Event
		if err := json.Unmarshal(msg.Data, &e); err != nil || e.TxHash == "" {
			r.logger.Error(ctx, "undecodable dead letter", "msg_id", msg.ID, "error", err)
			return queue.Reject
		}

		deliveries, _ := strconv.Atoi(msg.Header(queue.HeaderDeliveries))
		d := domain.DeadLetter{
			ID:         deadLetterID(msg, e),
			TxHash:     e.TxHash,
			Stage:      r.originStage(msg),
			Deliveries: deliveries,
			Payload:    msg.Data,
		}
		if err := r.deadLetters.Handle(ctx, d, e); err != nil {
			r.logger.Warn(ctx, "dead letter not persisted", "tx_hash", e.TxHash, "error", err)
			return queue.Retry
		}
		return queue.Ack
	}
}

func (r *Runner) originStage(msg queue.Message) domain.Stage {
	if s := domain.Stage(msg.Header(publisher.HeaderStage)); s.Valid() {
		return s
	}
	switch msg.Header(queue.HeaderOrigin) {
	case r.cfg.Subjects.Destination:
		return domain.StageDestination
	default:
		return domain.StageSource
	}
}

func deadLetterID(msg queue.Message, e domain.Event) string {
	if msg.ID != "" {
		return msg.ID
	}
	return strings.Join([]string{e.ID, e.TxHash, "dlq"}, ".")
}
