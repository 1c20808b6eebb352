// Package publisher puts settlement events on the queue.
package publisher

import (
	"context"
	"encoding/json"

	"github.com/fd1az/paybridge/business/settlement/app"
	"github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/queue"
)

// HeaderStage carries the stage an event was published for.
const HeaderStage = "Paybridge-Stage"

// Subjects maps each stage to its queue subject.
type Subjects struct {
	Source      string
	Destination string
}

// For returns the subject for stage.
func (s Subjects) For(stage domain.Stage) (string, bool) {
	switch stage {
	case domain.StageSource:
		return s.Source, s.Source != ""
	case domain.StageDestination:
		return s.Destination, s.Destination != ""
	default:
		return "", false
	}
}

var _ app.Publisher = (*Queue)(nil)

// Queue publishes events with their per-stage message id so redundant
// publishes inside the duplicate window collapse into one.
type Queue struct {
	pub      queue.Publisher
	subjects Subjects
}

// New creates a queue publisher.
func New(pub queue.Publisher, subjects Subjects) *Queue {
	return &Queue{pub: pub, subjects: subjects}
}

// Publish implements app.Publisher.
func (q *Queue) Publish(ctx context.Context, stage domain.Stage, e domain.Event) error {
	subject, ok := q.subjects.For(stage)
	if !ok {
		return apperror.New(apperror.CodePublishFailed, apperror.WithContext("no subject for stage "+string(stage)))
	}
	data, err := json.Marshal(e)
	if err != nil {
		return apperror.New(apperror.CodePublishFailed, apperror.WithCause(err))
	}
	err = q.pub.Publish(ctx, queue.Message{
		ID:      e.MessageID(stage),
		Subject: subject,
		Data:    data,
		Headers: map[string]string{HeaderStage: string(stage)},
	})
	if err != nil {
		return apperror.New(apperror.CodePublishFailed, apperror.WithCause(err), apperror.WithContext(subject))
	}
	return nil
}
