package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sfdfinance/finance-core/internal/api/metrics"
	"github.com/sfdfinance/finance-core/internal/core/domain"
	"github.com/sfdfinance/finance-core/internal/core/ports"
)

// LoanService drives the loan request state machine. Every transition writes
// exactly one audit entry in the same store transaction as the status
// update; disbursement additionally wraps the ledger transfer and, for
// subsidy-funded loans, the pool consumption in that same transaction, so a
// request can never read disbursed without its ledger movement.
type LoanService struct {
	loans       ports.LoanRepository
	accounts    ports.AccountRepository
	ledger      ports.LedgerService
	subsidy     ports.SubsidyService
	audit       ports.AuditRepository
	tx          ports.TxRunner
	broadcaster ports.Broadcaster
	logger      zerolog.Logger
	maxAttempts int
}

func NewLoanService(
	loans ports.LoanRepository,
	accounts ports.AccountRepository,
	ledger ports.LedgerService,
	subsidy ports.SubsidyService,
	audit ports.AuditRepository,
	tx ports.TxRunner,
	broadcaster ports.Broadcaster,
	maxAttempts int,
	logger zerolog.Logger,
) *LoanService {
	if maxAttempts <= 0 {
		maxAttempts = defaultTransferAttempts
	}
	return &LoanService{
		loans:       loans,
		accounts:    accounts,
		ledger:      ledger,
		subsidy:     subsidy,
		audit:       audit,
		tx:          tx,
		broadcaster: broadcaster,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// Submit files a new request and immediately fires the submit event, so the
// returned request is in submitted status with its draft creation and the
// transition both audited.
func (s *LoanService) Submit(ctx context.Context, in ports.SubmitLoanInput) (*domain.LoanRequest, error) {
	if err := validateSubmit(in); err != nil {
		return nil, err
	}

	id := newID("LN")
	now := time.Now().UTC()

	// The store may re-invoke this callback after a transient transaction
	// error, so the draft is rebuilt from the input on every attempt; a
	// partially transitioned loan from an aborted attempt never leaks in.
	var loan *domain.LoanRequest
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		docs := make([]domain.Document, 0, len(in.Documents))
		for _, name := range in.Documents {
			docs = append(docs, domain.Document{Name: name})
		}
		loan = &domain.LoanRequest{
			ID:             id,
			InstitutionID:  in.InstitutionID,
			ClientID:       in.ClientID,
			Amount:         in.Amount,
			Currency:       in.Currency,
			DurationMonths: in.DurationMonths,
			Purpose:        in.Purpose,
			MonthlyIncome:  in.MonthlyIncome,
			Status:         domain.LoanDraft,
			FundingSource:  in.FundingSource,
			SubsidyID:      in.SubsidyID,
			Documents:      docs,
			CreatedBy:      in.ActorID,
			Version:        1,
			CreatedAt:      now,
		}
		if err := s.loans.Create(ctx, loan); err != nil {
			return fmt.Errorf("create loan request: %w", err)
		}
		if err := s.audit.Record(ctx, &domain.AuditLogEntry{
			ActorID:    in.ActorID,
			EntityType: domain.EntityLoanRequest,
			EntityID:   loan.ID,
			Action:     "create",
			AfterState: loan,
			OccurredAt: now,
		}); err != nil {
			return fmt.Errorf("audit create: %w", err)
		}
		return s.applyTransition(ctx, loan, ports.TransitionInput{
			LoanID:  loan.ID,
			Event:   domain.EventSubmit,
			ActorID: in.ActorID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("loan_id", loan.ID).
		Str("institution_id", loan.InstitutionID).
		Int64("amount", loan.Amount).
		Str("funding", string(loan.FundingSource)).
		Msg("loan request submitted")
	return loan, nil
}

// Transition fires one state-machine event. Version conflicts restart the
// whole transition with a fresh read, up to the attempt budget.
func (s *LoanService) Transition(ctx context.Context, in ports.TransitionInput) (*domain.LoanRequest, error) {
	var loan *domain.LoanRequest

	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			var loadErr error
			loan, loadErr = s.loans.FindByID(ctx, in.LoanID)
			if loadErr != nil {
				return loadErr
			}
			return s.applyTransition(ctx, loan, in)
		})
		if !errors.Is(err, domain.ErrConcurrentModification) {
			break
		}
	}
	if err != nil {
		metrics.LoanTransitionErrorsTotal.WithLabelValues(errorReason(err)).Inc()
		return nil, err
	}

	metrics.LoanTransitionsTotal.WithLabelValues(string(in.Event), string(loan.Status)).Inc()
	return loan, nil
}

// applyTransition mutates loan in place and persists it. It must run inside
// a store transaction; the caller owns the retry loop.
func (s *LoanService) applyTransition(ctx context.Context, loan *domain.LoanRequest, in ports.TransitionInput) error {
	from := loan.Status
	next, ok := from.Next(in.Event)
	if !ok {
		return fmt.Errorf("%w: %s on %s", domain.ErrInvalidTransition, in.Event, from)
	}
	if err := s.checkGuard(loan, in); err != nil {
		return err
	}

	now := time.Now().UTC()

	switch in.Event {
	case domain.EventVerifyOK:
		// Entering credit analysis: the risk score is computed here so the
		// internal decision guard always finds it.
		loan.RiskScore = computeRiskScore(loan.Amount, loan.DurationMonths, loan.MonthlyIncome).String()
	case domain.EventDisburse, domain.EventDisburseDirect:
		if err := s.disburse(ctx, loan, in, now); err != nil {
			return err
		}
	}

	loan.Status = next
	loan.Transitions = append(loan.Transitions, domain.TransitionRecord{
		Event:      in.Event,
		FromStatus: from,
		ToStatus:   next,
		ActorID:    in.ActorID,
		OccurredAt: now,
	})

	if err := s.loans.Update(ctx, loan); err != nil {
		return err
	}
	loan.Version++

	if err := s.audit.Record(ctx, &domain.AuditLogEntry{
		ActorID:     in.ActorID,
		EntityType:  domain.EntityLoanRequest,
		EntityID:    loan.ID,
		Action:      string(in.Event),
		BeforeState: from,
		AfterState:  next,
		Note:        in.Note,
		OccurredAt:  now,
	}); err != nil {
		return fmt.Errorf("audit transition: %w", err)
	}

	change := loanChange(loan)
	s.tx.OnCommit(ctx, func() {
		s.broadcaster.Announce(change)
	})

	s.logger.Info().
		Str("loan_id", loan.ID).
		Str("event", string(in.Event)).
		Str("from", string(from)).
		Str("to", string(next)).
		Str("actor_id", in.ActorID).
		Msg("loan transition applied")
	return nil
}

// checkGuard enforces the per-event guards from the transition table.
func (s *LoanService) checkGuard(loan *domain.LoanRequest, in ports.TransitionInput) error {
	switch in.Event {
	case domain.EventSubmit:
		if loan.Amount <= 0 || loan.DurationMonths <= 0 || loan.Purpose == "" {
			return fmt.Errorf("%w: amount, duration and purpose must be set", domain.ErrValidation)
		}
	case domain.EventVerifyOK:
		if !loan.DocumentsVerified() {
			return fmt.Errorf("%w: required documents not verified", domain.ErrInvalidTransition)
		}
	case domain.EventInternalApprove:
		if !loan.HasRiskScore() {
			return fmt.Errorf("%w: risk score not computed", domain.ErrInvalidTransition)
		}
	case domain.EventSubmitExternal:
		if loan.FundingSource != domain.FundingSubsidy {
			return fmt.Errorf("%w: external submission requires subsidy funding", domain.ErrInvalidTransition)
		}
	case domain.EventDisburseDirect:
		if loan.FundingSource != domain.FundingInternal {
			return fmt.Errorf("%w: direct disbursement requires internal funding", domain.ErrInvalidTransition)
		}
	case domain.EventCancel:
		if in.ActorID != loan.CreatedBy && in.Role != domain.RoleAdmin {
			return domain.ErrForbidden
		}
	}
	return nil
}

// disburse moves the money. It runs inside the transition's transaction:
// the ledger transfer, the subsidy consumption, and the status flip commit
// or abort as one unit.
func (s *LoanService) disburse(ctx context.Context, loan *domain.LoanRequest, in ports.TransitionInput, now time.Time) error {
	if in.DisbursementAccountID == "" {
		return fmt.Errorf("%w: disbursement account required", domain.ErrValidation)
	}

	source, err := s.operatingAccount(ctx, loan.InstitutionID)
	if err != nil {
		return err
	}

	// The loan ID keys the transfer, so a replayed disbursement command
	// cannot move the money twice.
	if _, err := s.ledger.Transfer(ctx, ports.TransferInput{
		FromAccountID:  source.ID,
		ToAccountID:    in.DisbursementAccountID,
		Amount:         loan.Amount,
		IdempotencyKey: "disburse:" + loan.ID,
		ActorID:        in.ActorID,
	}); err != nil {
		return fmt.Errorf("disbursement transfer: %w", err)
	}

	if loan.FundingSource == domain.FundingSubsidy {
		if _, err := s.subsidy.Consume(ctx, ports.ConsumeInput{
			PoolID:  loan.SubsidyID,
			Amount:  loan.Amount,
			ActorID: in.ActorID,
		}); err != nil {
			return fmt.Errorf("subsidy consumption: %w", err)
		}
	}

	loan.DisbursedAt = &now
	loan.Schedule = buildSchedule(loan.Amount, loan.DurationMonths, now)
	return nil
}

// operatingAccount finds the institution account disbursements draw from.
func (s *LoanService) operatingAccount(ctx context.Context, institutionID string) (*domain.Account, error) {
	accounts, err := s.accounts.FindByInstitution(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.Type == domain.AccountOperating {
			return a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

// VerifyDocument checks off one required document while the request sits in
// document verification.
func (s *LoanService) VerifyDocument(ctx context.Context, in ports.VerifyDocumentInput) (*domain.LoanRequest, error) {
	var loan *domain.LoanRequest

	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			var loadErr error
			loan, loadErr = s.loans.FindByID(ctx, in.LoanID)
			if loadErr != nil {
				return loadErr
			}
			if loan.Status != domain.LoanDocumentVerification {
				return fmt.Errorf("%w: document verification not in progress", domain.ErrInvalidTransition)
			}

			found := false
			for i := range loan.Documents {
				if loan.Documents[i].Name == in.Document {
					loan.Documents[i].Verified = true
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("%w: unknown document %q", domain.ErrValidation, in.Document)
			}

			if err := s.loans.Update(ctx, loan); err != nil {
				return err
			}
			loan.Version++

			now := time.Now().UTC()
			if err := s.audit.Record(ctx, &domain.AuditLogEntry{
				ActorID:    in.ActorID,
				EntityType: domain.EntityLoanRequest,
				EntityID:   loan.ID,
				Action:     "verify_document",
				AfterState: in.Document,
				OccurredAt: now,
			}); err != nil {
				return fmt.Errorf("audit verify document: %w", err)
			}

			change := loanChange(loan)
			s.tx.OnCommit(ctx, func() {
				s.broadcaster.Announce(change)
			})
			return nil
		})
		if !errors.Is(err, domain.ErrConcurrentModification) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return loan, nil
}

func (s *LoanService) Get(ctx context.Context, id string) (*domain.LoanRequest, error) {
	return s.loans.FindByID(ctx, id)
}

func validateSubmit(in ports.SubmitLoanInput) error {
	switch {
	case in.InstitutionID == "" || in.ClientID == "":
		return fmt.Errorf("%w: institution and client are required", domain.ErrValidation)
	case in.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	case in.DurationMonths <= 0 || in.DurationMonths > 360:
		return fmt.Errorf("%w: duration must be between 1 and 360 months", domain.ErrValidation)
	case in.Purpose == "":
		return fmt.Errorf("%w: purpose is required", domain.ErrValidation)
	case in.FundingSource != domain.FundingInternal && in.FundingSource != domain.FundingSubsidy:
		return fmt.Errorf("%w: unknown funding source", domain.ErrValidation)
	case in.FundingSource == domain.FundingSubsidy && in.SubsidyID == "":
		return fmt.Errorf("%w: subsidy-funded requests need a pool", domain.ErrValidation)
	}
	return nil
}

func loanChange(l *domain.LoanRequest) ports.StateChange {
	snapshot := *l
	return ports.StateChange{
		EntityType:    domain.EntityLoanRequest,
		EntityID:      l.ID,
		InstitutionID: l.InstitutionID,
		Version:       l.Version,
		NewState:      &snapshot,
	}
}
