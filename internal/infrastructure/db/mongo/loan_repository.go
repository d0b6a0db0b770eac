package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sfdfinance/finance-core/internal/core/domain"
)

const collectionLoanRequests = "loan_requests"

type LoanRepository struct {
	col *mongo.Collection
}

func NewLoanRepository(db *mongo.Database) *LoanRepository {
	return &LoanRepository{col: db.Collection(collectionLoanRequests)}
}

func (r *LoanRepository) Create(ctx context.Context, l *domain.LoanRequest) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, l)
	return err
}

func (r *LoanRepository) FindByID(ctx context.Context, id string) (*domain.LoanRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var l domain.LoanRequest
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return &l, nil
}

// Update replaces the whole document guarded by the version the caller read.
// The stored version is bumped; l itself is left untouched so the service
// can decide what to do after a conflict.
func (r *LoanRepository) Update(ctx context.Context, l *domain.LoanRequest) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	next := *l
	next.Version = l.Version + 1

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": l.ID, "version": l.Version}, &next)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrConcurrentModification
	}
	return nil
}

// EnsureIndexes creates necessary indexes on the loan_requests collection.
func (r *LoanRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "institution_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "client_id", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
