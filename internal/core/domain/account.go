package domain

import "time"

// AccountType distinguishes the three ledger accounts every institution owns.
type AccountType string

const (
	AccountOperating AccountType = "operating"
	AccountRepayment AccountType = "repayment"
	AccountSavings   AccountType = "savings"
)

// AccountStatus is a soft status; accounts are never hard-deleted.
type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountFrozen AccountStatus = "frozen"
)

// Account holds a single institution ledger balance in integer minor units.
// Balance is mutated exclusively through the ledger service; Version is the
// optimistic concurrency token and increments on every mutation.
type Account struct {
	ID            string        `json:"id" bson:"_id,omitempty"`
	InstitutionID string        `json:"institution_id" bson:"institution_id"`
	Type          AccountType   `json:"type" bson:"type"`
	Balance       int64         `json:"balance" bson:"balance"`
	Currency      string        `json:"currency" bson:"currency"`
	Status        AccountStatus `json:"status" bson:"status"`
	Version       int64         `json:"version" bson:"version"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" bson:"updated_at"`
}

// TransferStatus is the lifecycle of a single funds movement.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferCommitted TransferStatus = "committed"
	TransferFailed    TransferStatus = "failed"
)

// Transfer records one atomic debit/credit pair between two accounts.
// A committed transfer has exactly one matching debit and credit applied;
// the idempotency key is unique so a replayed command never double-applies.
type Transfer struct {
	ID             string         `json:"id" bson:"_id,omitempty"`
	FromAccountID  string         `json:"from_account_id" bson:"from_account_id"`
	ToAccountID    string         `json:"to_account_id" bson:"to_account_id"`
	Amount         int64          `json:"amount" bson:"amount"`
	Currency       string         `json:"currency" bson:"currency"`
	Status         TransferStatus `json:"status" bson:"status"`
	IdempotencyKey string         `json:"idempotency_key" bson:"idempotency_key"`
	CreatedAt      time.Time      `json:"created_at" bson:"created_at"`
}
