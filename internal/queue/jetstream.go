package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/config"
	"github.com/fd1az/paybridge/internal/logger"
)

const (
	meterName    = "github.com/fd1az/paybridge/internal/queue"
	fetchBatch   = 10
	fetchMaxWait = 5 * time.Second
)

var _ Queue = (*JetStream)(nil)

// JetStream is the NATS JetStream Queue.
type JetStream struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	cfg     config.NATSConfig
	policy  RetryPolicy
	log     logger.LoggerInterface
	results metric.Int64Counter

	mu   sync.Mutex
	subs []*nats.Subscription
}

// Connect dials NATS with unlimited reconnects and logs connection changes.
func Connect(cfg config.NATSConfig, log logger.LoggerInterface) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("paybridge"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn(context.Background(), "nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info(context.Background(), "nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, apperror.New(apperror.CodeQueueError, apperror.WithCause(err), apperror.WithContext("connect nats"))
	}
	return nc, nil
}

// PolicyFor builds the retry policy configured for the settlement queues.
func PolicyFor(cfg config.NATSConfig) RetryPolicy {
	return RetryPolicy{
		MaxDeliver:         cfg.MaxDeliver,
		RedeliveryDelay:    cfg.RedeliveryDelay,
		MaxRedeliveryDelay: cfg.MaxRedeliveryDelay,
		DeadLetterSubject:  cfg.DeadLetterSubject,
	}
}

// NewJetStream binds to JetStream and ensures the settlement stream exists.
func NewJetStream(nc *nats.Conn, cfg config.NATSConfig, log logger.LoggerInterface) (*JetStream, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, apperror.New(apperror.CodeQueueError, apperror.WithCause(err), apperror.WithContext("jetstream context"))
	}

	results, err := otel.Meter(meterName).Int64Counter(
		"queue_messages_total",
		metric.WithDescription("Consumed messages by subject and result"),
	)
	if err != nil {
		return nil, err
	}

	q := &JetStream{
		nc:      nc,
		js:      js,
		cfg:     cfg,
		policy:  PolicyFor(cfg),
		log:     log,
		results: results,
	}
	if err := q.ensureStream(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *JetStream) ensureStream() error {
	streamCfg := &nats.StreamConfig{
		Name:       q.cfg.Stream,
		Subjects:   []string{q.cfg.SourceSubject, q.cfg.DestinationSubject, q.cfg.DeadLetterSubject},
		Retention:  nats.WorkQueuePolicy,
		Storage:    nats.FileStorage,
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: q.cfg.DuplicateWindow,
	}

	_, err := q.js.StreamInfo(q.cfg.Stream)
	switch {
	case err == nil:
		_, err = q.js.UpdateStream(streamCfg)
	case errors.Is(err, nats.ErrStreamNotFound):
		_, err = q.js.AddStream(streamCfg)
	}
	if err != nil {
		return apperror.New(apperror.CodeQueueError, apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("ensure stream %s", q.cfg.Stream)))
	}
	return nil
}

// Publish sends msg with its ID as Nats-Msg-Id for server-side deduplication.
func (q *JetStream) Publish(ctx context.Context, msg Message) error {
	nm := nats.NewMsg(msg.Subject)
	nm.Data = msg.Data
	for k, v := range msg.Headers {
		nm.Header.Set(k, v)
	}
	if msg.ID != "" {
		nm.Header.Set(nats.MsgIdHdr, msg.ID)
	}

	if _, err := q.js.PublishMsg(nm, nats.Context(ctx)); err != nil {
		return apperror.New(apperror.CodePublishFailed, apperror.WithCause(err), apperror.WithContext(msg.Subject))
	}
	return nil
}

// Consume pulls from a durable consumer on subject with cfg.Workers
// concurrent handlers. It returns when ctx is cancelled.
func (q *JetStream) Consume(ctx context.Context, subject, durable string, h Handler) error {
	sub, err := q.js.PullSubscribe(subject, durable,
		nats.BindStream(q.cfg.Stream),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.MaxDeliver(q.cfg.MaxDeliver),
		nats.AckWait(q.cfg.AckWait),
	)
	if err != nil {
		return apperror.New(apperror.CodeQueueError, apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("subscribe %s", subject)))
	}
	q.mu.Lock()
	q.subs = append(q.subs, sub)
	q.mu.Unlock()

	workers := q.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.pull(ctx, sub, subject, h)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (q *JetStream) pull(ctx context.Context, sub *nats.Subscription, subject string, h Handler) {
	for ctx.Err() == nil {
		fctx, cancel := context.WithTimeout(ctx, fetchMaxWait)
		msgs, err := sub.Fetch(fetchBatch, nats.Context(fctx))
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, nats.ErrTimeout) {
				q.log.Warn(ctx, "fetch failed", "subject", subject, "error", err)
				time.Sleep(time.Second)
			}
			continue
		}
		for _, m := range msgs {
			q.handle(ctx, subject, m, h)
		}
	}
}

func (q *JetStream) handle(ctx context.Context, subject string, m *nats.Msg, h Handler) {
	delivery := 1
	if meta, err := m.Metadata(); err == nil {
		delivery = int(meta.NumDelivered)
	}

	headers := make(map[string]string, len(m.Header))
	for k := range m.Header {
		headers[k] = m.Header.Get(k)
	}
	msg := Message{
		ID:       m.Header.Get(nats.MsgIdHdr),
		Subject:  m.Subject,
		Data:     m.Data,
		Headers:  headers,
		Delivery: delivery,
	}

	res := h(ctx, msg)
	q.results.Add(ctx, 1, metric.WithAttributes(
		attribute.String("subject", subject),
		attribute.String("result", res.String()),
	))

	var err error
	switch res {
	case Ack:
		err = m.Ack()
	case Reject:
		err = m.Term()
	case Retry:
		if q.policy.Exhausted(delivery) {
			if !q.policy.deadLetters(subject) {
				q.log.Error(ctx, "dead-letter message exhausted, dropping", "subject", subject, "msg_id", msg.ID, "deliveries", delivery)
				err = m.Term()
				break
			}
			if pubErr := q.Publish(ctx, q.policy.deadLetter(msg)); pubErr != nil {
				// leave unacked; AckWait redelivers and the next attempt retries the move
				q.log.Error(ctx, "dead-letter publish failed", "subject", subject, "error", pubErr)
				return
			}
			q.log.Warn(ctx, "message dead-lettered", "subject", subject, "msg_id", msg.ID, "deliveries", delivery)
			err = m.Term()
		} else {
			err = m.NakWithDelay(q.policy.Backoff(delivery))
		}
	}
	if err != nil {
		q.log.Warn(ctx, "ack failed", "subject", subject, "result", res.String(), "error", err)
	}
}

// Ping reports whether the connection is up.
func (q *JetStream) Ping(context.Context) error {
	if status := q.nc.Status(); status != nats.CONNECTED {
		return fmt.Errorf("nats status %s", status)
	}
	return nil
}

// Close drains subscriptions and the connection.
func (q *JetStream) Close() error {
	q.mu.Lock()
	subs := q.subs
	q.subs = nil
	q.mu.Unlock()

	for _, s := range subs {
		_ = s.Unsubscribe()
	}
	return q.nc.Drain()
}
