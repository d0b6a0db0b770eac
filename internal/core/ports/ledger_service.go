package ports

import (
	"context"

	"github.com/sfdfinance/finance-core/internal/core/domain"
)

// TransferInput carries one funds-movement command.
type TransferInput struct {
	FromAccountID  string
	ToAccountID    string
	Amount         int64
	IdempotencyKey string
	ActorID        string
}

// OpenAccountsInput creates the per-institution account set at onboarding.
type OpenAccountsInput struct {
	InstitutionID string
	Currency      string
	ActorID       string
}

// LedgerService is the single owner of account balance mutation.
type LedgerService interface {
	// Transfer atomically debits one account and credits another. Replays
	// of a committed idempotency key return the original transfer without
	// re-applying the monetary effect.
	Transfer(ctx context.Context, in TransferInput) (*domain.Transfer, error)
	// GetBalance is a consistent read of the current balance.
	GetBalance(ctx context.Context, accountID string) (int64, error)
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
	OpenAccounts(ctx context.Context, in OpenAccountsInput) ([]*domain.Account, error)
	FreezeAccount(ctx context.Context, accountID, actorID string) (*domain.Account, error)
	UnfreezeAccount(ctx context.Context, accountID, actorID string) (*domain.Account, error)
}
