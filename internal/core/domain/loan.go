package domain

import "time"

// LoanStatus is the lifecycle state of a loan request.
type LoanStatus string

const (
	LoanDraft                LoanStatus = "draft"
	LoanSubmitted            LoanStatus = "submitted"
	LoanDocumentVerification LoanStatus = "document_verification"
	LoanCreditAnalysis       LoanStatus = "credit_analysis"
	LoanApprovedInternal     LoanStatus = "approved_internal"
	LoanRejectedInternal     LoanStatus = "rejected_internal"
	LoanMerefSubmitted       LoanStatus = "meref_submitted"
	LoanMerefApproved        LoanStatus = "meref_approved"
	LoanMerefRejected        LoanStatus = "meref_rejected"
	LoanDisbursed            LoanStatus = "disbursed"
	LoanCancelled            LoanStatus = "cancelled"
)

// LoanEvent is a command that drives a loan request between statuses.
type LoanEvent string

const (
	EventSubmit            LoanEvent = "submit"
	EventStartVerification LoanEvent = "start_verification"
	EventVerifyOK          LoanEvent = "verify_ok"
	EventVerifyFail        LoanEvent = "verify_fail"
	EventInternalApprove   LoanEvent = "internal_approve"
	EventInternalReject    LoanEvent = "internal_reject"
	EventSubmitExternal    LoanEvent = "submit_external"
	EventDisburseDirect    LoanEvent = "disburse_direct"
	EventExternalApprove   LoanEvent = "external_approve"
	EventExternalReject    LoanEvent = "external_reject"
	EventDisburse          LoanEvent = "disburse"
	EventCancel            LoanEvent = "cancel"
)

// FundingSource tells where disbursement money comes from.
type FundingSource string

const (
	FundingInternal FundingSource = "internal"
	FundingSubsidy  FundingSource = "subsidy"
)

// validTransitions defines the allowed state machine transitions.
// Cancel is handled separately: it is valid from any non-terminal status.
var validTransitions = map[LoanStatus]map[LoanEvent]LoanStatus{
	LoanDraft:                {EventSubmit: LoanSubmitted},
	LoanSubmitted:            {EventStartVerification: LoanDocumentVerification},
	LoanDocumentVerification: {EventVerifyOK: LoanCreditAnalysis, EventVerifyFail: LoanRejectedInternal},
	LoanCreditAnalysis:       {EventInternalApprove: LoanApprovedInternal, EventInternalReject: LoanRejectedInternal},
	LoanApprovedInternal:     {EventSubmitExternal: LoanMerefSubmitted, EventDisburseDirect: LoanDisbursed},
	LoanMerefSubmitted:       {EventExternalApprove: LoanMerefApproved, EventExternalReject: LoanMerefRejected},
	LoanMerefApproved:        {EventDisburse: LoanDisbursed},
}

var terminalStatuses = map[LoanStatus]struct{}{
	LoanRejectedInternal: {},
	LoanMerefRejected:    {},
	LoanDisbursed:        {},
	LoanCancelled:        {},
}

// IsTerminal reports whether no further event is accepted from s.
func (s LoanStatus) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// Next returns the target status for firing event from s. Cancel succeeds
// from any non-terminal status; everything else must appear in the table.
func (s LoanStatus) Next(event LoanEvent) (LoanStatus, bool) {
	if event == EventCancel {
		if s.IsTerminal() {
			return "", false
		}
		return LoanCancelled, true
	}
	next, ok := validTransitions[s][event]
	return next, ok
}

// Document is a required supporting document on a loan request.
type Document struct {
	Name     string `json:"name" bson:"name"`
	Verified bool   `json:"verified" bson:"verified"`
}

// Installment is one row of the annuity repayment schedule.
type Installment struct {
	Number    int       `json:"number" bson:"number"`
	DueDate   time.Time `json:"due_date" bson:"due_date"`
	Principal int64     `json:"principal" bson:"principal"`
	Interest  int64     `json:"interest" bson:"interest"`
}

// LoanRequest is the workflow aggregate. Amount is immutable after the
// submit transition; DisbursedAt is set if and only if Status is disbursed.
type LoanRequest struct {
	ID             string        `json:"id" bson:"_id,omitempty"`
	InstitutionID  string        `json:"institution_id" bson:"institution_id"`
	ClientID       string        `json:"client_id" bson:"client_id"`
	Amount         int64         `json:"amount" bson:"amount"`
	Currency       string        `json:"currency" bson:"currency"`
	DurationMonths int           `json:"duration_months" bson:"duration_months"`
	Purpose        string        `json:"purpose" bson:"purpose"`
	MonthlyIncome  int64         `json:"monthly_income" bson:"monthly_income"`
	Status         LoanStatus    `json:"status" bson:"status"`
	FundingSource  FundingSource `json:"funding_source" bson:"funding_source"`
	SubsidyID      string        `json:"subsidy_id,omitempty" bson:"subsidy_id,omitempty"`
	Documents      []Document    `json:"documents" bson:"documents"`
	// RiskScore is a fixed-point decimal rendered as a string; empty until
	// credit analysis computes it.
	RiskScore   string        `json:"risk_score,omitempty" bson:"risk_score,omitempty"`
	Schedule    []Installment `json:"schedule,omitempty" bson:"schedule,omitempty"`
	CreatedBy   string        `json:"created_by" bson:"created_by"`
	Version     int64         `json:"version" bson:"version"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at"`
	DisbursedAt *time.Time    `json:"disbursed_at,omitempty" bson:"disbursed_at,omitempty"`
	// Transitions records a timestamp per applied event, newest last.
	Transitions []TransitionRecord `json:"transitions" bson:"transitions"`
}

// TransitionRecord is one applied state-machine event.
type TransitionRecord struct {
	Event      LoanEvent  `json:"event" bson:"event"`
	FromStatus LoanStatus `json:"from_status" bson:"from_status"`
	ToStatus   LoanStatus `json:"to_status" bson:"to_status"`
	ActorID    string     `json:"actor_id" bson:"actor_id"`
	OccurredAt time.Time  `json:"occurred_at" bson:"occurred_at"`
}

// DocumentsVerified reports whether the request carries at least one
// document and all of them are verified.
func (l *LoanRequest) DocumentsVerified() bool {
	if len(l.Documents) == 0 {
		return false
	}
	for _, d := range l.Documents {
		if !d.Verified {
			return false
		}
	}
	return true
}

// HasRiskScore reports whether credit analysis produced a score.
func (l *LoanRequest) HasRiskScore() bool {
	return l.RiskScore != ""
}
