package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fd1az/paybridge/internal/logger"
)

// ErrQueueClosed is returned after Close.
var ErrQueueClosed = errors.New("queue: closed")

var _ Queue = (*Memory)(nil)

// Memory is an in-process Queue with the same retry and dead-letter
// semantics as the JetStream adapter. Messages are lost on restart.
type Memory struct {
	policy RetryPolicy
	dedup  time.Duration
	log    logger.LoggerInterface

	mu        sync.Mutex
	subjects  map[string]chan Message
	seen      map[string]time.Time
	pruned    time.Time
	published []Message
	closed    bool

	done chan struct{}
	wg   sync.WaitGroup
	now  func() time.Time
}

// NewMemory creates an in-process queue. dedupWindow of zero disables deduplication.
func NewMemory(policy RetryPolicy, dedupWindow time.Duration, log logger.LoggerInterface) *Memory {
	return &Memory{
		policy:   policy,
		dedup:    dedupWindow,
		log:      log,
		subjects: make(map[string]chan Message),
		seen:     make(map[string]time.Time),
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

func (m *Memory) channel(subject string) chan Message {
	ch, ok := m.subjects[subject]
	if !ok {
		ch = make(chan Message, 1024)
		m.subjects[subject] = ch
	}
	return ch
}

// Publish enqueues msg unless an identical ID was seen inside the window.
func (m *Memory) Publish(ctx context.Context, msg Message) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrQueueClosed
	}
	if msg.ID != "" && m.dedup > 0 {
		now := m.now()
		if at, ok := m.seen[msg.ID]; ok && now.Sub(at) < m.dedup {
			m.mu.Unlock()
			return nil
		}
		m.prune(now)
		m.seen[msg.ID] = now
	}
	msg.Delivery = 0
	m.published = append(m.published, msg)
	ch := m.channel(msg.Subject)
	m.mu.Unlock()

	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrQueueClosed
	}
}

// prune forgets IDs older than the dedup window, at most once per window.
// Callers hold m.mu.
func (m *Memory) prune(now time.Time) {
	if now.Sub(m.pruned) < m.dedup {
		return
	}
	for id, at := range m.seen {
		if now.Sub(at) >= m.dedup {
			delete(m.seen, id)
		}
	}
	m.pruned = now
}

// Consume delivers messages on subject to h until ctx is cancelled or the
// queue is closed. The durable name is ignored; each subject has one group.
func (m *Memory) Consume(ctx context.Context, subject, _ string, h Handler) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrQueueClosed
	}
	ch := m.channel(subject)
	m.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return ErrQueueClosed
		case msg := <-ch:
			msg.Delivery++
			m.dispose(ctx, ch, msg, h(ctx, msg))
		}
	}
}

func (m *Memory) dispose(ctx context.Context, ch chan Message, msg Message, res Result) {
	if res != Retry {
		return
	}
	if m.policy.Exhausted(msg.Delivery) {
		if !m.policy.deadLetters(msg.Subject) {
			m.log.Error(ctx, "dead-letter message exhausted, dropping",
				"subject", msg.Subject, "msg_id", msg.ID, "deliveries", msg.Delivery)
			return
		}
		if err := m.Publish(ctx, m.policy.deadLetter(msg)); err != nil {
			m.log.Error(ctx, "dead-letter publish failed, message lost",
				"subject", msg.Subject, "msg_id", msg.ID, "deliveries", msg.Delivery, "error", err)
			return
		}
		m.log.Warn(ctx, "message dead-lettered",
			"subject", msg.Subject, "msg_id", msg.ID, "deliveries", msg.Delivery)
		return
	}

	delay := m.policy.Backoff(msg.Delivery)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-m.done:
			return
		}
		select {
		case ch <- msg:
		case <-m.done:
		}
	}()
}

// Published returns every message accepted on subject, in order.
func (m *Memory) Published(subject string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Message
	for _, msg := range m.published {
		if msg.Subject == subject {
			out = append(out, msg)
		}
	}
	return out
}

// Ping always succeeds while open.
func (m *Memory) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrQueueClosed
	}
	return nil
}

// Close stops consumers and pending redeliveries.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}
