package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fd1az/paybridge/business/settlement/app"
	"github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/internal/apperror"
)

const (
	recordsCollection     = "transaction_records"
	deadLettersCollection = "dead_letters"
	// maxCASAttempts bounds compare-and-set retries under concurrent stage writes.
	maxCASAttempts = 5
)

var (
	_ app.RecordStore     = (*MongoStore)(nil)
	_ app.DeadLetterStore = (*MongoStore)(nil)
)

// MongoStore keeps records and dead letters in MongoDB, keyed by _id.
type MongoStore struct {
	records     *mongo.Collection
	deadLetters *mongo.Collection
}

// NewMongoStore creates the store over db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		records:     db.Collection(recordsCollection),
		deadLetters: db.Collection(deadLettersCollection),
	}
}

// CreateIndexes creates the lookup indexes. Primary keys are the _id fields.
func (s *MongoStore) CreateIndexes(ctx context.Context) error {
	_, err := s.records.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "request_id", Value: 1}}},
		{Keys: bson.D{{Key: "merchant_address", Value: 1}}},
		{Keys: bson.D{{Key: "final_status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create record indexes: %w", err)
	}
	_, err = s.deadLetters.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tx_hash", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create dead letter indexes: %w", err)
	}
	return nil
}

// Upsert implements app.RecordStore. The seed is written with $setOnInsert;
// the merge is a compare-and-set on the status fields.
func (s *MongoStore) Upsert(ctx context.Context, seed domain.Record, u domain.Update) (domain.Record, bool, error) {
	fail := func(err error) (domain.Record, bool, error) {
		return domain.Record{}, false, apperror.New(apperror.CodeStoreError,
			apperror.WithCause(err), apperror.WithContext("upsert "+seed.TxHash))
	}

	doc, err := insertDoc(toRecordModel(seed))
	if err != nil {
		return fail(err)
	}
	_, err = s.records.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: seed.TxHash}},
		bson.D{{Key: "$setOnInsert", Value: doc}},
		options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fail(err)
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		var current recordModel
		if err := s.records.FindOne(ctx, bson.D{{Key: "_id", Value: seed.TxHash}}).Decode(&current); err != nil {
			return fail(err)
		}
		merged, changed := current.toDomain().Merge(u, seed.UpdatedAt)
		if !changed {
			return merged, false, nil
		}

		m := toRecordModel(merged)
		res, err := s.records.UpdateOne(ctx,
			bson.D{
				{Key: "_id", Value: seed.TxHash},
				{Key: "source_status", Value: current.SourceStatus},
				{Key: "final_status", Value: current.FinalStatus},
				{Key: "destination_tx_hash", Value: current.DestinationTxHash},
			},
			bson.D{{Key: "$set", Value: bson.D{
				{Key: "source_status", Value: m.SourceStatus},
				{Key: "final_status", Value: m.FinalStatus},
				{Key: "destination_tx_hash", Value: m.DestinationTxHash},
				{Key: "updated_at", Value: m.UpdatedAt},
			}}})
		if err != nil {
			return fail(err)
		}
		if res.MatchedCount == 1 {
			return merged, true, nil
		}
	}
	return fail(errors.New("concurrent updates exhausted compare-and-set attempts"))
}

// Get implements app.RecordStore.
func (s *MongoStore) Get(ctx context.Context, txHash string) (domain.Record, error) {
	var m recordModel
	err := s.records.FindOne(ctx, bson.D{{Key: "_id", Value: txHash}}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Record{}, apperror.NotFound(apperror.CodeRecordNotFound, txHash)
	}
	if err != nil {
		return domain.Record{}, apperror.New(apperror.CodeStoreError, apperror.WithCause(err), apperror.WithContext("get "+txHash))
	}
	return m.toDomain(), nil
}

// Insert implements app.DeadLetterStore.
func (s *MongoStore) Insert(ctx context.Context, d domain.DeadLetter) (bool, error) {
	_, err := s.deadLetters.InsertOne(ctx, toDeadLetterModel(d))
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, apperror.New(apperror.CodeStoreError, apperror.WithCause(err), apperror.WithContext("dead letter "+d.ID))
	}
	return true, nil
}

// insertDoc marshals m without _id, which the upsert filter already sets.
func insertDoc(m recordModel) (bson.M, error) {
	raw, err := bson.Marshal(m)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	delete(doc, "_id")
	return doc, nil
}
