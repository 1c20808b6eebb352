package app

import (
	"context"
	"errors"
	"time"

	"github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/logger"
)

// Ledger opens settlement for submitted transfers and serves record lookups.
type Ledger struct {
	records   RecordStore
	publisher Publisher
	logger    logger.LoggerInterface
	now       func() time.Time
}

// NewLedger creates a Ledger.
func NewLedger(records RecordStore, publisher Publisher, log logger.LoggerInterface) *Ledger {
	return &Ledger{records: records, publisher: publisher, logger: log, now: time.Now}
}

// Open creates the pending record for e and queues both stages. Every step is
// attempted; the returned error joins whatever failed.
func (l *Ledger) Open(ctx context.Context, e domain.Event) error {
	if err := e.Validate(); err != nil {
		return apperror.New(apperror.CodeInvalidEvent, apperror.WithCause(err), apperror.WithContext(e.ID))
	}

	var errs []error
	if _, _, err := l.records.Upsert(ctx, domain.NewRecord(e, l.now()), domain.Update{}); err != nil {
		errs = append(errs, err)
	}
	for _, stage := range []domain.Stage{domain.StageSource, domain.StageDestination} {
		if err := l.publisher.Publish(ctx, stage, e); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	l.logger.Info(ctx, "settlement opened", "tx_hash", e.TxHash, "event_id", e.ID, "provider", e.Provider)
	return nil
}

// Get returns the record for txHash.
func (l *Ledger) Get(ctx context.Context, txHash string) (domain.Record, error) {
	return l.records.Get(ctx, txHash)
}
