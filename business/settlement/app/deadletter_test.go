package app

import (
	"context"
	"strings"
	"testing"

	"github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/logger"
)

func deadLetter() domain.DeadLetter {
	return domain.DeadLetter{
		ID:         "evt-1.source.dlq",
		TxHash:     srcHash,
		Stage:      domain.StageSource,
		Deliveries: 5,
		Payload:    []byte(`{}`),
	}
}

func TestDeadLetterHandler_MarksNotFoundAndAlertsOnce(t *testing.T) {
	records := newMemRecords()
	letters := &memLetters{}
	alerter := &fakeAlerter{}
	h, err := NewDeadLetterHandler(records, letters, alerter, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := h.Handle(ctx, deadLetter(), testEvent()); err != nil {
			t.Fatalf("Handle %d: %v", i, err)
		}
	}

	rec, err := records.Get(ctx, srcHash)
	if err != nil {
		t.Fatal(err)
	}
	if rec.FinalStatus != domain.StatusNotFound {
		t.Errorf("final = %q, want not_found", rec.FinalStatus)
	}
	if len(alerter.alerts) != 1 {
		t.Fatalf("alerts = %d, want exactly 1", len(alerter.alerts))
	}
	if !strings.Contains(alerter.alerts[0].Text, srcHash) {
		t.Errorf("alert text = %q", alerter.alerts[0].Text)
	}
	if len(letters.ids) != 1 {
		t.Errorf("dead letters = %d", len(letters.ids))
	}
}

func TestDeadLetterHandler_KeepsTerminalStatus(t *testing.T) {
	records := newMemRecords()
	ctx := context.Background()
	seed := domain.NewRecord(testEvent(), testEvent().SubmittedAt)
	if _, _, err := records.Upsert(ctx, seed, domain.Update{FinalStatus: domain.StatusSuccessful}); err != nil {
		t.Fatal(err)
	}

	h, err := NewDeadLetterHandler(records, &memLetters{}, &fakeAlerter{}, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Handle(ctx, deadLetter(), testEvent()); err != nil {
		t.Fatal(err)
	}
	rec, _ := records.Get(ctx, srcHash)
	if rec.FinalStatus != domain.StatusSuccessful {
		t.Errorf("final = %q, a dead letter must not regress a settled transfer", rec.FinalStatus)
	}
}

func TestDeadLetterHandler_SettledTransferIsNotStoredOrAlerted(t *testing.T) {
	for _, final := range []domain.Status{domain.StatusSuccessful, domain.StatusFailed} {
		t.Run(string(final), func(t *testing.T) {
			records := newMemRecords()
			ctx := context.Background()
			seed := domain.NewRecord(testEvent(), testEvent().SubmittedAt)
			if _, _, err := records.Upsert(ctx, seed, domain.Update{FinalStatus: final}); err != nil {
				t.Fatal(err)
			}

			letters := &memLetters{}
			alerter := &fakeAlerter{}
			h, err := NewDeadLetterHandler(records, letters, alerter, logger.NewNop())
			if err != nil {
				t.Fatal(err)
			}
			if err := h.Handle(ctx, deadLetter(), testEvent()); err != nil {
				t.Fatal(err)
			}
			if len(letters.ids) != 0 || len(alerter.alerts) != 0 {
				t.Errorf("dead letters = %d, alerts = %d, want none", len(letters.ids), len(alerter.alerts))
			}
		})
	}
}

func TestDeadLetterHandler_AlertFailureIsSwallowed(t *testing.T) {
	alerter := &fakeAlerter{err: apperror.New(apperror.CodeAlertFailed)}
	h, err := NewDeadLetterHandler(newMemRecords(), &memLetters{}, alerter, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Handle(context.Background(), deadLetter(), testEvent()); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

func TestDeadLetterHandler_StoreFailureIsReturned(t *testing.T) {
	records := newMemRecords()
	records.err = apperror.New(apperror.CodeStoreError)
	alerter := &fakeAlerter{}
	h, err := NewDeadLetterHandler(records, &memLetters{}, alerter, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Handle(context.Background(), deadLetter(), testEvent()); !apperror.IsCode(err, apperror.CodeStoreError) {
		t.Errorf("err = %v, want StoreError", err)
	}
	if len(alerter.alerts) != 0 {
		t.Error("no alert before the dead letter is persisted")
	}
}
