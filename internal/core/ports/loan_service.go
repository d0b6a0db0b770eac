package ports

import (
	"context"

	"github.com/sfdfinance/finance-core/internal/core/domain"
)

// SubmitLoanInput carries everything needed to file a new loan request.
// Documents are the names of the required supporting documents; they start
// unverified and are checked off during document verification.
type SubmitLoanInput struct {
	InstitutionID  string
	ClientID       string
	Amount         int64
	Currency       string
	DurationMonths int
	Purpose        string
	MonthlyIncome  int64
	FundingSource  domain.FundingSource
	SubsidyID      string
	Documents      []string
	ActorID        string
}

// TransitionInput fires one state-machine event against a loan request.
type TransitionInput struct {
	LoanID  string
	Event   domain.LoanEvent
	ActorID string
	Role    string
	// DisbursementAccountID is the credit side of the ledger movement;
	// required for disburse and disburse_direct, ignored otherwise.
	DisbursementAccountID string
	// Note is free-form context recorded on the audit entry.
	Note string
}

// VerifyDocumentInput marks one required document as verified.
type VerifyDocumentInput struct {
	LoanID   string
	Document string
	ActorID  string
}

// LoanService drives the loan request lifecycle.
type LoanService interface {
	Submit(ctx context.Context, in SubmitLoanInput) (*domain.LoanRequest, error)
	Transition(ctx context.Context, in TransitionInput) (*domain.LoanRequest, error)
	VerifyDocument(ctx context.Context, in VerifyDocumentInput) (*domain.LoanRequest, error)
	Get(ctx context.Context, id string) (*domain.LoanRequest, error)
}
