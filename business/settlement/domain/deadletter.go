package domain

import (
	"fmt"
	"time"
)

// DeadLetter is an event no stage could resolve, kept for manual reconciliation.
type DeadLetter struct {
	// ID is the queue message id; one dead letter per exhausted message.
	ID         string
	TxHash     string
	Stage      Stage
	Deliveries int
	// Payload is the event exactly as it was queued.
	Payload   []byte
	CreatedAt time.Time
}

// Alert is the operator chat message for a dead letter.
type Alert struct {
	Text string `json:"text"`
}

// NewAlert describes d for operators.
func NewAlert(d DeadLetter, e Event) Alert {
	return Alert{Text: fmt.Sprintf(
		"settlement unresolved: tx %s (%s stage, provider %s, request %s) dead-lettered after %d deliveries; record marked not_found",
		d.TxHash, d.Stage, e.Provider, e.RequestID, d.Deliveries)}
}
