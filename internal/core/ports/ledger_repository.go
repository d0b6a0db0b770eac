package ports

import (
	"context"
	"time"

	"github.com/sfdfinance/finance-core/internal/core/domain"
)

// AccountRepository defines persistence operations for ledger accounts.
// The two Update methods are compare-and-swap on the version token and
// return domain.ErrConcurrentModification when a concurrent writer won.
type AccountRepository interface {
	Create(ctx context.Context, a *domain.Account) error
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByInstitution(ctx context.Context, institutionID string) ([]*domain.Account, error)
	UpdateBalance(ctx context.Context, id string, version int64, newBalance int64, now time.Time) error
	UpdateStatus(ctx context.Context, id string, version int64, status domain.AccountStatus, now time.Time) error
}

// TransferRepository defines persistence operations for transfer records.
// FindByIdempotencyKey returns (nil, nil) when the key was never seen.
type TransferRepository interface {
	Insert(ctx context.Context, t *domain.Transfer) error
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transfer, error)
}
