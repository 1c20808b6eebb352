package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fd1az/paybridge/business/settlement/app"
	"github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/internal/apperror"
)

var (
	_ app.RecordStore     = (*GormStore)(nil)
	_ app.DeadLetterStore = (*GormStore)(nil)
)

// GormStore keeps records and dead letters in postgres or sqlite.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates the store. Call Migrate before first use.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&recordModel{}, &deadLetterModel{}); err != nil {
		return apperror.New(apperror.CodeStoreError, apperror.WithCause(err), apperror.WithContext("migrate"))
	}
	return nil
}

// Upsert implements app.RecordStore. The insert ignores conflicts on the hash
// and the merge runs under a row lock where the dialect supports one.
func (s *GormStore) Upsert(ctx context.Context, seed domain.Record, u domain.Update) (domain.Record, bool, error) {
	var (
		out     domain.Record
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := toRecordModel(seed)
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}

		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var current recordModel
		if err := q.Where("tx_hash = ?", seed.TxHash).First(&current).Error; err != nil {
			return err
		}

		merged, ok := current.toDomain().Merge(u, seed.UpdatedAt)
		out, changed = merged, ok
		if !ok {
			return nil
		}
		m := toRecordModel(merged)
		return tx.Model(&recordModel{}).Where("tx_hash = ?", seed.TxHash).Updates(map[string]any{
			"source_status":       m.SourceStatus,
			"final_status":        m.FinalStatus,
			"destination_tx_hash": m.DestinationTxHash,
			"updated_at":          m.UpdatedAt,
		}).Error
	})
	if err != nil {
		return domain.Record{}, false, apperror.New(apperror.CodeStoreError,
			apperror.WithCause(err), apperror.WithContext("upsert "+seed.TxHash))
	}
	return out, changed, nil
}

// Get implements app.RecordStore.
func (s *GormStore) Get(ctx context.Context, txHash string) (domain.Record, error) {
	var m recordModel
	err := s.db.WithContext(ctx).Where("tx_hash = ?", txHash).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Record{}, apperror.NotFound(apperror.CodeRecordNotFound, txHash)
	}
	if err != nil {
		return domain.Record{}, apperror.New(apperror.CodeStoreError, apperror.WithCause(err), apperror.WithContext("get "+txHash))
	}
	return m.toDomain(), nil
}

// Insert implements app.DeadLetterStore.
func (s *GormStore) Insert(ctx context.Context, d domain.DeadLetter) (bool, error) {
	row := toDeadLetterModel(d)
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, apperror.New(apperror.CodeStoreError, apperror.WithCause(res.Error), apperror.WithContext("dead letter "+d.ID))
	}
	return res.RowsAffected == 1, nil
}
