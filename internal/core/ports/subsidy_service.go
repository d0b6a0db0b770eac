package ports

import (
	"context"

	"github.com/sfdfinance/finance-core/internal/core/domain"
)

// CreatePoolInput registers a new subsidy allocation for an institution.
type CreatePoolInput struct {
	InstitutionID     string
	AllocatedAmount   int64
	Currency          string
	LowThreshold      int64
	CriticalThreshold int64
	ActorID           string
}

// ConsumeInput draws down a pool; RevokeInput gives consumption back after a
// cancelled or rejected disbursement that had reserved subsidy.
type ConsumeInput struct {
	PoolID  string
	Amount  int64
	ActorID string
}

type RevokeInput struct {
	PoolID  string
	Amount  int64
	Reason  string
	ActorID string
}

// SubsidyService is the single owner of pool usage mutation.
type SubsidyService interface {
	CreatePool(ctx context.Context, in CreatePoolInput) (*domain.SubsidyPool, error)
	Consume(ctx context.Context, in ConsumeInput) (*domain.SubsidyPool, error)
	Revoke(ctx context.Context, in RevokeInput) (*domain.SubsidyPool, error)
	GetPool(ctx context.Context, id string) (*domain.SubsidyPool, error)
}
