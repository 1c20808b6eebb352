package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fd1az/paybridge/business/settlement/app"
	"github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/business/settlement/infra/publisher"
	"github.com/fd1az/paybridge/business/settlement/infra/store"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/logger"
	"github.com/fd1az/paybridge/internal/queue"
)

var subjects = publisher.Subjects{Source: "settlement.source", Destination: "settlement.destination"}

const deadLetterSubject = "settlement.deadletter"

// neverProbe reports nothing definitive, like a receipt that never appears.
type neverProbe struct {
	stage domain.Stage
	calls atomic.Int32
}

func (p *neverProbe) Stage() domain.Stage { return p.stage }

func (p *neverProbe) Check(context.Context, domain.Event) (domain.Outcome, error) {
	p.calls.Add(1)
	return domain.Retry, nil
}

type countingAlerter struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

func (a *countingAlerter) Alert(_ context.Context, al domain.Alert) error {
	a.mu.Lock()
	a.alerts = append(a.alerts, al)
	a.mu.Unlock()
	return nil
}

func (a *countingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, domain.Notification) error { return nil }

func openStore(t *testing.T) *store.GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := store.NewGormStore(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func testEvent() domain.Event {
	return domain.Event{
		ID:              "evt-1",
		TxHash:          "0x8f1e3a9d1c0b7e6f5a4d3c2b1a0f9e8d7c6b5a4f3e2d1c0b9a8f7e6d5c4b3a29",
		RequestID:       "req-1",
		Provider:        "lifi",
		FromChain:       1,
		ToChain:         42161,
		FromAsset:       "USDT",
		ToAsset:         "USDC",
		FromAmount:      "100.6",
		ToAmount:        "100",
		MerchantAddress: "0x3333333333333333333333333333333333333333",
	}
}

func TestRunner_UnresolvedSourceEndsNotFoundWithOneAlert(t *testing.T) {
	const maxDeliver = 3
	mem := queue.NewMemory(queue.RetryPolicy{
		MaxDeliver:         maxDeliver,
		RedeliveryDelay:    time.Millisecond,
		MaxRedeliveryDelay: 2 * time.Millisecond,
		DeadLetterSubject:  deadLetterSubject,
	}, 0, logger.NewNop())
	defer mem.Close()

	records := openStore(t)
	pub := publisher.New(mem, subjects)
	probe := &neverProbe{stage: domain.StageSource}
	tracker, err := app.NewTracker(app.TrackerConfig{Attempts: 2, Interval: time.Millisecond},
		probe, records, nopNotifier{}, pub, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	alerter := &countingAlerter{}
	dl, err := app.NewDeadLetterHandler(records, records, alerter, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(Config{Subjects: subjects, DeadLetterSubject: deadLetterSubject, Workers: 1},
		mem, []StageTracker{tracker}, dl, logger.NewNop())
	go func() { _ = r.Run(ctx) }()

	e := testEvent()
	if err := pub.Publish(ctx, domain.StageSource, e); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		rec, err := records.Get(ctx, e.TxHash)
		return err == nil && rec.FinalStatus == domain.StatusNotFound
	})
	waitFor(t, func() bool { return alerter.count() == 1 })

	if got := probe.calls.Load(); got != maxDeliver*2 {
		t.Errorf("probe calls = %d, want %d deliveries x 2 polls", got, maxDeliver*2)
	}
	if n := len(mem.Published(subjects.Source)); n != 1 {
		t.Errorf("source publishes = %d, dead-lettered events must not be re-queued", n)
	}

	// the same dead letter delivered again is a no-op
	redelivered := mem.Published(deadLetterSubject)[0]
	if err := mem.Publish(ctx, redelivered); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := alerter.count(); got != 1 {
		t.Errorf("alerts = %d, want exactly 1", got)
	}
}

type stubTracker struct {
	stage domain.Stage
	out   domain.Outcome
	err   error
}

func (s stubTracker) Stage() domain.Stage { return s.stage }

func (s stubTracker) Track(context.Context, domain.Event) (domain.Outcome, error) {
	return s.out, s.err
}

func TestRunner_TrackHandlerResults(t *testing.T) {
	valid, _ := json.Marshal(testEvent())
	tests := []struct {
		name    string
		data    []byte
		tracker stubTracker
		want    queue.Result
	}{
		{name: "undecodable", data: []byte("{"), want: queue.Reject},
		{name: "invalid event", data: valid, tracker: stubTracker{err: apperror.New(apperror.CodeInvalidEvent)}, want: queue.Reject},
		{name: "store failure", data: valid, tracker: stubTracker{err: apperror.New(apperror.CodeStoreError)}, want: queue.Retry},
		{name: "unresolved", data: valid, tracker: stubTracker{out: domain.Retry}, want: queue.Retry},
		{name: "terminal", data: valid, tracker: stubTracker{out: domain.Terminal(domain.StatusFailed)}, want: queue.Ack},
	}
	r := New(Config{Subjects: subjects}, nil, nil, nil, logger.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.tracker.stage = domain.StageSource
			h := r.TrackHandler(tt.tracker)
			if got := h(context.Background(), queue.Message{Subject: subjects.Source, Data: tt.data}); got != tt.want {
				t.Errorf("result = %s, want %s", got, tt.want)
			}
		})
	}
}

type failingSink struct{}

func (failingSink) Handle(context.Context, domain.DeadLetter, domain.Event) error {
	return apperror.New(apperror.CodeStoreError)
}

type capturingSink struct{ got domain.DeadLetter }

func (c *capturingSink) Handle(_ context.Context, d domain.DeadLetter, _ domain.Event) error {
	c.got = d
	return nil
}

func TestRunner_DeadLetterHandler(t *testing.T) {
	data, _ := json.Marshal(testEvent())
	msg := queue.Message{
		ID:      "evt-1.destination.dlq",
		Subject: deadLetterSubject,
		Data:    data,
		Headers: map[string]string{
			queue.HeaderOrigin:     subjects.Destination,
			queue.HeaderDeliveries: "5",
		},
	}

	sink := &capturingSink{}
	r := New(Config{Subjects: subjects}, nil, nil, sink, logger.NewNop())
	if got := r.DeadLetterHandler()(context.Background(), msg); got != queue.Ack {
		t.Fatalf("result = %s, want ack", got)
	}
	if sink.got.Stage != domain.StageDestination || sink.got.Deliveries != 5 || sink.got.ID != msg.ID {
		t.Errorf("dead letter = %+v", sink.got)
	}

	r = New(Config{Subjects: subjects}, nil, nil, failingSink{}, logger.NewNop())
	if got := r.DeadLetterHandler()(context.Background(), msg); got != queue.Retry {
		t.Errorf("store failure result = %s, want retry", got)
	}
}
