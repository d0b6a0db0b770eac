package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sfdfinance/finance-core/internal/core/domain"
)

const collectionSubsidyPools = "subsidy_pools"

type SubsidyPoolRepository struct {
	col *mongo.Collection
}

func NewSubsidyPoolRepository(db *mongo.Database) *SubsidyPoolRepository {
	return &SubsidyPoolRepository{col: db.Collection(collectionSubsidyPools)}
}

func (r *SubsidyPoolRepository) Create(ctx context.Context, p *domain.SubsidyPool) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, p)
	return err
}

func (r *SubsidyPoolRepository) FindByID(ctx context.Context, id string) (*domain.SubsidyPool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var p domain.SubsidyPool
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPoolNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpdateUsage is a compare-and-swap on the version token.
func (r *SubsidyPoolRepository) UpdateUsage(ctx context.Context, id string, version int64, usedAmount int64, status domain.PoolStatus, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "version": version},
		bson.M{
			"$set": bson.M{"used_amount": usedAmount, "status": status, "updated_at": now},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrConcurrentModification
	}
	return nil
}

// EnsureIndexes creates necessary indexes on the subsidy_pools collection.
func (r *SubsidyPoolRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "institution_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
