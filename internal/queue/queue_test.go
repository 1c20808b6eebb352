package queue

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fd1az/paybridge/internal/logger"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{
		MaxDeliver:         3,
		RedeliveryDelay:    time.Millisecond,
		MaxRedeliveryDelay: 4 * time.Millisecond,
		DeadLetterSubject:  "settlement.deadletter",
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{RedeliveryDelay: 5 * time.Second, MaxRedeliveryDelay: time.Minute}

	tests := []struct {
		delivery int
		want     time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{5, time.Minute},
		{12, time.Minute},
	}
	for _, tt := range tests {
		if got := p.Backoff(tt.delivery); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.delivery, got, tt.want)
		}
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestMemory_RetryExhaustionDeadLetters(t *testing.T) {
	q := NewMemory(testPolicy(), 0, logger.NewNop())
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go func() {
		_ = q.Consume(ctx, "settlement.source", "source", func(_ context.Context, msg Message) Result {
			calls.Add(1)
			return Retry
		})
	}()

	if err := q.Publish(ctx, Message{ID: "evt-1", Subject: "settlement.source", Data: []byte(`{}`)}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return len(q.Published("settlement.deadletter")) == 1 })

	if got := calls.Load(); got != 3 {
		t.Errorf("handler calls = %d, want MaxDeliver=3", got)
	}
	dl := q.Published("settlement.deadletter")[0]
	if dl.Header(HeaderOrigin) != "settlement.source" {
		t.Errorf("origin = %q", dl.Header(HeaderOrigin))
	}
	if dl.Header(HeaderDeliveries) != "3" {
		t.Errorf("deliveries = %q", dl.Header(HeaderDeliveries))
	}
}

func TestMemory_AckBeforeExhaustionNeverDeadLetters(t *testing.T) {
	q := NewMemory(testPolicy(), 0, logger.NewNop())
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	acked := make(chan int, 1)
	go func() {
		_ = q.Consume(ctx, "settlement.source", "source", func(_ context.Context, msg Message) Result {
			if msg.Delivery < 2 {
				return Retry
			}
			acked <- msg.Delivery
			return Ack
		})
	}()

	_ = q.Publish(ctx, Message{Subject: "settlement.source", Data: []byte(`{}`)})

	select {
	case d := <-acked:
		if d != 2 {
			t.Errorf("acked on delivery %d, want 2", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message never acked")
	}
	time.Sleep(20 * time.Millisecond)
	if n := len(q.Published("settlement.deadletter")); n != 0 {
		t.Errorf("dead letters = %d, want 0", n)
	}
}

func TestMemory_DeduplicatesByID(t *testing.T) {
	q := NewMemory(testPolicy(), time.Minute, logger.NewNop())
	defer q.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := q.Publish(ctx, Message{ID: "same", Subject: "s", Data: []byte("x")}); err != nil {
			t.Fatal(err)
		}
	}
	_ = q.Publish(ctx, Message{ID: "other", Subject: "s"})

	if n := len(q.Published("s")); n != 2 {
		t.Errorf("published = %d, want 2", n)
	}
}

func TestMemory_ClosedRejectsPublish(t *testing.T) {
	q := NewMemory(testPolicy(), 0, logger.NewNop())
	_ = q.Close()
	if err := q.Publish(context.Background(), Message{Subject: "s"}); err != ErrQueueClosed {
		t.Errorf("err = %v, want ErrQueueClosed", err)
	}
	if err := q.Ping(context.Background()); err == nil {
		t.Error("Ping should fail after Close")
	}
}

func TestMemory_DeadLetterSubjectNeverFeedsItself(t *testing.T) {
	q := NewMemory(testPolicy(), 0, logger.NewNop())
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go func() {
		_ = q.Consume(ctx, "settlement.deadletter", "deadletter", func(_ context.Context, msg Message) Result {
			calls.Add(1)
			return Retry
		})
	}()

	if err := q.Publish(ctx, Message{ID: "evt-1.dlq", Subject: "settlement.deadletter", Data: []byte(`{}`)}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return calls.Load() == 3 })
	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != 3 {
		t.Errorf("handler calls = %d, want 3", got)
	}
	if n := len(q.Published("settlement.deadletter")); n != 1 {
		t.Errorf("dead-letter publishes = %d, want only the original", n)
	}
}

// syncBuffer lets the consumer goroutine write logs while the test reads them.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestMemory_FailedDeadLetterPublishIsLogged(t *testing.T) {
	var out syncBuffer
	log := logger.New(&out, logger.LevelInfo, "test", &logger.Options{Format: logger.FormatJSON})
	policy := testPolicy()
	policy.MaxDeliver = 1
	q := NewMemory(policy, 0, log)

	if err := q.Publish(context.Background(), Message{ID: "m1", Subject: "s"}); err != nil {
		t.Fatal(err)
	}

	// closing inside the handler makes the dead-letter publish fail
	err := q.Consume(context.Background(), "s", "s", func(context.Context, Message) Result {
		_ = q.Close()
		return Retry
	})
	if err != ErrQueueClosed {
		t.Fatalf("Consume = %v, want ErrQueueClosed", err)
	}

	logged := out.String()
	if !strings.Contains(logged, "dead-letter publish failed") || !strings.Contains(logged, `"msg_id":"m1"`) {
		t.Errorf("log = %s", logged)
	}
	if n := len(q.Published("settlement.deadletter")); n != 0 {
		t.Errorf("dead letters = %d, want 0 after close", n)
	}
}

func TestMemory_DedupForgetsExpiredIDs(t *testing.T) {
	q := NewMemory(testPolicy(), time.Minute, logger.NewNop())
	defer q.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }

	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := q.Publish(ctx, Message{ID: id, Subject: "s"}); err != nil {
			t.Fatal(err)
		}
	}

	now = now.Add(2 * time.Minute)
	if err := q.Publish(ctx, Message{ID: "d", Subject: "s"}); err != nil {
		t.Fatal(err)
	}

	q.mu.Lock()
	seen := len(q.seen)
	q.mu.Unlock()
	if seen != 1 {
		t.Errorf("tracked ids = %d, want only the latest", seen)
	}

	// an expired id is accepted again
	if err := q.Publish(ctx, Message{ID: "a", Subject: "s"}); err != nil {
		t.Fatal(err)
	}
	if n := len(q.Published("s")); n != 5 {
		t.Errorf("published = %d, want 5", n)
	}
}
