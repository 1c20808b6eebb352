// Package queue is the at-least-once message transport behind the settlement
// consumers: JetStream in production, an in-process queue for tests and
// single-node development.
package queue

import (
	"context"
	"strconv"
	"time"
)

// Header keys carried on messages.
const (
	// HeaderOrigin names the subject a dead-lettered message came from.
	HeaderOrigin = "Paybridge-Origin-Subject"
	// HeaderDeliveries carries the delivery count at dead-letter time.
	HeaderDeliveries = "Paybridge-Deliveries"
)

// Message is one queued payload.
type Message struct {
	// ID deduplicates publishes inside the duplicate window.
	ID      string
	Subject string
	Data    []byte
	Headers map[string]string
	// Delivery is 1 on first delivery.
	Delivery int
}

// Header returns a header value or "".
func (m Message) Header(key string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[key]
}

// Result is a handler's disposition of a message.
type Result int

const (
	// Ack removes the message.
	Ack Result = iota
	// Retry redelivers after a delay, or dead-letters once deliveries are exhausted.
	Retry
	// Reject drops a message that can never be processed.
	Reject
)

func (r Result) String() string {
	switch r {
	case Ack:
		return "ack"
	case Retry:
		return "retry"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Handler processes one message.
type Handler func(ctx context.Context, msg Message) Result

// Publisher publishes messages.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Consumer runs a handler over a subject until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, subject, durable string, h Handler) error
}

// Queue is the full transport.
type Queue interface {
	Publisher
	Consumer
	Ping(ctx context.Context) error
	Close() error
}

// RetryPolicy controls redelivery and dead-lettering.
type RetryPolicy struct {
	MaxDeliver         int
	RedeliveryDelay    time.Duration
	MaxRedeliveryDelay time.Duration
	DeadLetterSubject  string
}

// Backoff returns the delay before the next delivery after the given one:
// RedeliveryDelay doubled per prior delivery, capped at MaxRedeliveryDelay.
func (p RetryPolicy) Backoff(delivery int) time.Duration {
	d := p.RedeliveryDelay
	for i := 1; i < delivery; i++ {
		d *= 2
		if p.MaxRedeliveryDelay > 0 && d >= p.MaxRedeliveryDelay {
			return p.MaxRedeliveryDelay
		}
	}
	if p.MaxRedeliveryDelay > 0 && d > p.MaxRedeliveryDelay {
		return p.MaxRedeliveryDelay
	}
	return d
}

// Exhausted reports whether delivery was the last one allowed.
func (p RetryPolicy) Exhausted(delivery int) bool {
	return p.MaxDeliver > 0 && delivery >= p.MaxDeliver
}

// deadLetters reports whether exhausted messages on subject are moved to the
// dead-letter subject. The dead-letter subject itself never feeds back into itself.
func (p RetryPolicy) deadLetters(subject string) bool {
	return p.DeadLetterSubject != "" && subject != p.DeadLetterSubject
}

// deadLetter builds the dead-letter copy of msg.
func (p RetryPolicy) deadLetter(msg Message) Message {
	headers := make(map[string]string, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOrigin] = msg.Subject
	headers[HeaderDeliveries] = strconv.Itoa(msg.Delivery)

	id := ""
	if msg.ID != "" {
		id = msg.ID + ".dlq"
	}
	return Message{
		ID:      id,
		Subject: p.DeadLetterSubject,
		Data:    msg.Data,
		Headers: headers,
	}
}
