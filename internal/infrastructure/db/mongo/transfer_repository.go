package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sfdfinance/finance-core/internal/core/domain"
)

const collectionTransfers = "transfers"

type TransferRepository struct {
	col *mongo.Collection
}

func NewTransferRepository(db *mongo.Database) *TransferRepository {
	return &TransferRepository{col: db.Collection(collectionTransfers)}
}

// Insert persists a transfer record. The unique index on idempotency_key
// backstops the in-transaction replay check against racing writers.
func (r *TransferRepository) Insert(ctx context.Context, t *domain.Transfer) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, t)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrConcurrentModification
	}
	return err
}

// FindByIdempotencyKey returns the transfer created under key, or (nil, nil)
// when the key was never seen.
func (r *TransferRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transfer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var t domain.Transfer
	err := r.col.FindOne(ctx, bson.M{"idempotency_key": key}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// EnsureIndexes creates necessary indexes on the transfers collection.
func (r *TransferRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "idempotency_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "from_account_id", Value: 1}}},
		{Keys: bson.D{{Key: "to_account_id", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
