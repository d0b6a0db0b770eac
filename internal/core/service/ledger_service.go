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

const defaultTransferAttempts = 3

// LedgerService enforces the balance invariants and is the only writer of
// Account.Balance. Every mutation runs inside a store transaction together
// with its audit entry; broadcasts fire after commit.
type LedgerService struct {
	accounts    ports.AccountRepository
	transfers   ports.TransferRepository
	audit       ports.AuditRepository
	tx          ports.TxRunner
	broadcaster ports.Broadcaster
	logger      zerolog.Logger
	maxAttempts int
}

func NewLedgerService(
	accounts ports.AccountRepository,
	transfers ports.TransferRepository,
	audit ports.AuditRepository,
	tx ports.TxRunner,
	broadcaster ports.Broadcaster,
	maxAttempts int,
	logger zerolog.Logger,
) *LedgerService {
	if maxAttempts <= 0 {
		maxAttempts = defaultTransferAttempts
	}
	return &LedgerService{
		accounts:    accounts,
		transfers:   transfers,
		audit:       audit,
		tx:          tx,
		broadcaster: broadcaster,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// Transfer moves amount between two active accounts. On a version conflict
// the whole operation retries with a fresh read, up to the attempt budget;
// each attempt re-validates the balance so a concurrent spender surfaces as
// ErrInsufficientFunds rather than a stale success.
func (s *LedgerService) Transfer(ctx context.Context, in ports.TransferInput) (*domain.Transfer, error) {
	if in.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if in.FromAccountID == in.ToAccountID {
		return nil, domain.ErrSameAccount
	}

	var transfer *domain.Transfer
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		transfer, err = s.tryTransfer(ctx, in)
		if !errors.Is(err, domain.ErrConcurrentModification) {
			break
		}
		metrics.TransferRetriesTotal.Inc()
		s.logger.Debug().
			Str("from", in.FromAccountID).
			Str("to", in.ToAccountID).
			Int("attempt", attempt).
			Msg("transfer conflict, retrying")
	}
	if err != nil {
		metrics.TransfersErrorsTotal.WithLabelValues(errorReason(err)).Inc()
		return nil, err
	}

	metrics.TransfersCommittedTotal.Inc()
	return transfer, nil
}

// tryTransfer is one optimistic attempt, executed atomically.
func (s *LedgerService) tryTransfer(ctx context.Context, in ports.TransferInput) (*domain.Transfer, error) {
	var result *domain.Transfer

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// Idempotent replay: a committed transfer under the same key is
		// returned unchanged, no monetary effect re-applied.
		if in.IdempotencyKey != "" {
			existing, err := s.transfers.FindByIdempotencyKey(ctx, in.IdempotencyKey)
			if err != nil {
				return fmt.Errorf("idempotency lookup: %w", err)
			}
			if existing != nil && existing.Status == domain.TransferCommitted {
				s.logger.Info().
					Str("idempotency_key", in.IdempotencyKey).
					Str("transfer_id", existing.ID).
					Msg("idempotent replay")
				result = existing
				return nil
			}
		}

		from, err := s.accounts.FindByID(ctx, in.FromAccountID)
		if err != nil {
			return err
		}
		to, err := s.accounts.FindByID(ctx, in.ToAccountID)
		if err != nil {
			return err
		}
		if from.Status != domain.AccountActive || to.Status != domain.AccountActive {
			return domain.ErrAccountInactive
		}
		if from.Currency != to.Currency {
			return domain.ErrCurrencyMismatch
		}
		if from.Balance < in.Amount {
			return domain.ErrInsufficientFunds
		}

		now := time.Now().UTC()
		if err := s.accounts.UpdateBalance(ctx, from.ID, from.Version, from.Balance-in.Amount, now); err != nil {
			return err
		}
		if err := s.accounts.UpdateBalance(ctx, to.ID, to.Version, to.Balance+in.Amount, now); err != nil {
			return err
		}

		transfer := &domain.Transfer{
			ID:             newID("TRF"),
			FromAccountID:  from.ID,
			ToAccountID:    to.ID,
			Amount:         in.Amount,
			Currency:       from.Currency,
			Status:         domain.TransferCommitted,
			IdempotencyKey: in.IdempotencyKey,
			CreatedAt:      now,
		}
		if err := s.transfers.Insert(ctx, transfer); err != nil {
			return fmt.Errorf("insert transfer: %w", err)
		}

		if err := s.audit.Record(ctx, &domain.AuditLogEntry{
			ActorID:    in.ActorID,
			EntityType: domain.EntityTransfer,
			EntityID:   transfer.ID,
			Action:     "transfer",
			BeforeState: map[string]int64{
				from.ID: from.Balance,
				to.ID:   to.Balance,
			},
			AfterState: map[string]int64{
				from.ID: from.Balance - in.Amount,
				to.ID:   to.Balance + in.Amount,
			},
			OccurredAt: now,
		}); err != nil {
			return fmt.Errorf("audit transfer: %w", err)
		}

		s.tx.OnCommit(ctx, func() {
			s.announceAccount(from, from.Balance-in.Amount, now)
			s.announceAccount(to, to.Balance+in.Amount, now)
		})

		s.logger.Info().
			Str("transfer_id", transfer.ID).
			Str("from", from.ID).
			Str("to", to.ID).
			Int64("amount", in.Amount).
			Msg("transfer committed")

		result = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetBalance is a plain consistent read, never served from a cache.
func (s *LedgerService) GetBalance(ctx context.Context, accountID string) (int64, error) {
	a, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.accounts.FindByID(ctx, accountID)
}

// OpenAccounts creates the operating, repayment, and savings accounts for a
// newly onboarded institution, all with a zero balance.
func (s *LedgerService) OpenAccounts(ctx context.Context, in ports.OpenAccountsInput) ([]*domain.Account, error) {
	if in.InstitutionID == "" || in.Currency == "" {
		return nil, domain.ErrValidation
	}

	types := []domain.AccountType{domain.AccountOperating, domain.AccountRepayment, domain.AccountSavings}
	accounts := make([]*domain.Account, 0, len(types))

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// Reset on entry: the store may re-invoke this callback after a
		// transient transaction error.
		accounts = accounts[:0]
		now := time.Now().UTC()
		for _, t := range types {
			a := &domain.Account{
				ID:            newID("ACC"),
				InstitutionID: in.InstitutionID,
				Type:          t,
				Balance:       0,
				Currency:      in.Currency,
				Status:        domain.AccountActive,
				Version:       1,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := s.accounts.Create(ctx, a); err != nil {
				return fmt.Errorf("create %s account: %w", t, err)
			}
			if err := s.audit.Record(ctx, &domain.AuditLogEntry{
				ActorID:    in.ActorID,
				EntityType: domain.EntityAccount,
				EntityID:   a.ID,
				Action:     "open",
				AfterState: a,
				OccurredAt: now,
			}); err != nil {
				return fmt.Errorf("audit open account: %w", err)
			}
			accounts = append(accounts, a)
		}
		s.tx.OnCommit(ctx, func() {
			for _, a := range accounts {
				s.broadcaster.Announce(accountChange(a))
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("institution_id", in.InstitutionID).
		Int("accounts", len(accounts)).
		Msg("institution accounts opened")
	return accounts, nil
}

// FreezeAccount soft-disables an account; frozen accounts reject transfers
// on either side but keep their balance and history.
func (s *LedgerService) FreezeAccount(ctx context.Context, accountID, actorID string) (*domain.Account, error) {
	return s.setStatus(ctx, accountID, actorID, domain.AccountFrozen, "freeze")
}

func (s *LedgerService) UnfreezeAccount(ctx context.Context, accountID, actorID string) (*domain.Account, error) {
	return s.setStatus(ctx, accountID, actorID, domain.AccountActive, "unfreeze")
}

func (s *LedgerService) setStatus(ctx context.Context, accountID, actorID string, status domain.AccountStatus, action string) (*domain.Account, error) {
	var updated *domain.Account

	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			a, err := s.accounts.FindByID(ctx, accountID)
			if err != nil {
				return err
			}
			if a.Status == status {
				updated = a
				return nil
			}

			now := time.Now().UTC()
			if err := s.accounts.UpdateStatus(ctx, a.ID, a.Version, status, now); err != nil {
				return err
			}
			if err := s.audit.Record(ctx, &domain.AuditLogEntry{
				ActorID:     actorID,
				EntityType:  domain.EntityAccount,
				EntityID:    a.ID,
				Action:      action,
				BeforeState: a.Status,
				AfterState:  status,
				OccurredAt:  now,
			}); err != nil {
				return fmt.Errorf("audit %s: %w", action, err)
			}

			next := *a
			next.Status = status
			next.Version = a.Version + 1
			next.UpdatedAt = now
			updated = &next

			s.tx.OnCommit(ctx, func() {
				s.broadcaster.Announce(accountChange(&next))
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

	s.logger.Info().Str("account_id", accountID).Str("action", action).Msg("account status changed")
	return updated, nil
}

func (s *LedgerService) announceAccount(a *domain.Account, newBalance int64, now time.Time) {
	next := *a
	next.Balance = newBalance
	next.Version = a.Version + 1
	next.UpdatedAt = now
	s.broadcaster.Announce(accountChange(&next))
}

func accountChange(a *domain.Account) ports.StateChange {
	return ports.StateChange{
		EntityType:    domain.EntityAccount,
		EntityID:      a.ID,
		InstitutionID: a.InstitutionID,
		Version:       a.Version,
		NewState:      a,
	}
}

// errorReason maps an error to a low-cardinality metric label.
func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrAccountInactive):
		return "account_inactive"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, domain.ErrCurrencyMismatch):
		return "currency_mismatch"
	case errors.Is(err, domain.ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, domain.ErrSubsidyExhausted):
		return "subsidy_exhausted"
	case errors.Is(err, domain.ErrPoolNotActive):
		return "pool_not_active"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "internal"
	}
}
