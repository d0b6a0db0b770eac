package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sfdfinance/finance-core/internal/core/domain"
	"github.com/sfdfinance/finance-core/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type ledgerFixture struct {
	accounts  *stubAccountRepo
	transfers *stubTransferRepo
	audit     *stubAuditRepo
	tx        *stubTx
	bcast     *stubBroadcaster
	svc       *LedgerService
}

func newLedgerFixture(maxAttempts int) *ledgerFixture {
	f := &ledgerFixture{
		accounts:  newStubAccountRepo(),
		transfers: newStubTransferRepo(),
		audit:     &stubAuditRepo{},
		tx:        &stubTx{},
		bcast:     &stubBroadcaster{},
	}
	f.svc = NewLedgerService(f.accounts, f.transfers, f.audit, f.tx, f.bcast, maxAttempts, discardLogger)
	return f
}

func (f *ledgerFixture) addAccount(id string, balance int64) *domain.Account {
	a := &domain.Account{
		ID:            id,
		InstitutionID: "INST-1",
		Type:          domain.AccountOperating,
		Balance:       balance,
		Currency:      "XOF",
		Status:        domain.AccountActive,
		Version:       1,
		CreatedAt:     time.Now().UTC(),
	}
	f.accounts.accounts[id] = a
	return a
}

func transferInput(from, to string, amount int64) ports.TransferInput {
	return ports.TransferInput{
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount,
		ActorID:       "USR-1",
	}
}

// ---------------------------------------------------------------------------
// Transfer tests
// ---------------------------------------------------------------------------

func TestLedgerService_Transfer_Success(t *testing.T) {
	f := newLedgerFixture(0)
	f.addAccount("ACC-A", 10_000)
	f.addAccount("ACC-B", 0)

	tr, err := f.svc.Transfer(context.Background(), transferInput("ACC-A", "ACC-B", 3_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(tr.ID, "TRF-") {
		t.Errorf("transfer id format wrong: %s", tr.ID)
	}
	if tr.Status != domain.TransferCommitted {
		t.Errorf("expected committed transfer, got %s", tr.Status)
	}
	if got := f.accounts.accounts["ACC-A"].Balance; got != 7_000 {
		t.Errorf("debit side: expected 7000, got %d", got)
	}
	if got := f.accounts.accounts["ACC-B"].Balance; got != 3_000 {
		t.Errorf("credit side: expected 3000, got %d", got)
	}
}

func TestLedgerService_Transfer_RecordsAudit(t *testing.T) {
	f := newLedgerFixture(0)
	f.addAccount("ACC-A", 5_000)
	f.addAccount("ACC-B", 0)

	tr, err := f.svc.Transfer(context.Background(), transferInput("ACC-A", "ACC-B", 1_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, _ := f.audit.Query(context.Background(), domain.EntityTransfer, tr.ID)
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].Action != "transfer" {
		t.Errorf("expected action transfer, got %s", entries[0].Action)
	}
	if entries[0].ActorID != "USR-1" {
		t.Errorf("expected actor USR-1, got %s", entries[0].ActorID)
	}
}

func TestLedgerService_Transfer_BroadcastsBothAccounts(t *testing.T) {
	f := newLedgerFixture(0)
	f.addAccount("ACC-A", 5_000)
	f.addAccount("ACC-B", 0)

	if _, err := f.svc.Transfer(context.Background(), transferInput("ACC-A", "ACC-B", 1_000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	changes := f.bcast.byType(domain.EntityAccount)
	if len(changes) != 2 {
		t.Fatalf("expected 2 account broadcasts, got %d", len(changes))
	}
	for _, c := range changes {
		if c.Version != 2 {
			t.Errorf("broadcast must carry the post-update version, got %d", c.Version)
		}
	}
}

func TestLedgerService_Transfer_InsufficientFunds(t *testing.T) {
	f := newLedgerFixture(0)
	f.addAccount("ACC-A", 500)
	f.addAccount("ACC-B", 0)

	_, err := f.svc.Transfer(context.Background(), transferInput("ACC-A", "ACC-B", 1_000))
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// No partial effect: both balances untouched, nothing broadcast.
	if got := f.accounts.accounts["ACC-A"].Balance; got != 500 {
		t.Errorf("debit side must be untouched, got %d", got)
	}
	if got := f.accounts.accounts["ACC-B"].Balance; got != 0 {
		t.Errorf("credit side must be untouched, got %d", got)
	}
	if len(f.bcast.changes) != 0 {
		t.Errorf("failed transfer must not broadcast, got %d changes", len(f.bcast.changes))
	}
}

func TestLedgerService_Transfer_ExactBalanceIsAllowed(t *testing.T) {
	f := newLedgerFixture(0)
	f.addAccount("ACC-A", 1_000)
	f.addAccount("ACC-B", 0)

	if _, err := f.svc.Transfer(context.Background(), transferInput("ACC-A", "ACC-B", 1_000)); err != nil {
		t.Fatalf("draining to exactly zero must succeed: %v", err)
	}
	if got := f.accounts.accounts["ACC-A"].Balance; got != 0 {
		t.Errorf("expected zero balance, got %d", got)
	}
}

func TestLedgerService_Transfer_InvalidAmount(t *testing.T) {
	f := newLedgerFixture(0)

	for _, amount := range []int64{0, -100} {
		if _, err := f.svc.Transfer(context.Background(), transferInput("ACC-A", "ACC-B", amount)); !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestLedgerService_Transfer_SameAccount(t *testing.T) {
	f := newLedgerFixture(0)
	f.addAccount("ACC-A", 1_000)

	_, err := f.svc.Transfer(context.Background(), transferInput("ACC-A", "ACC-A", 100))
	if !errors.Is(err, domain.ErrSameAccount) {
		t.Fatalf("expected ErrSameAccount, got %v", err)
	}
}

func TestLedgerService_Transfer_FrozenAccount(t *testing.T) {
	f := newLedgerFixture(0)
	f.addAccount("ACC-A", 1_000)
	b := f.addAccount("ACC-B", 0)
	b.Status = domain.AccountFrozen

	_, err := f.svc.Transfer(context.Background(), transferInput("ACC-A", "ACC-B", 100))
	if !errors.Is(err, domain.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestLedgerService_Transfer_CurrencyMismatch(t *testing.T) {
	f := newLedgerFixture(0)
	f.addAccount("ACC-A", 1_000)
	b := f.addAccount("ACC-B", 0)
	b.Currency = "EUR"

	_, err := f.svc.Transfer(context.Background(), transferInput("ACC-A", "ACC-B", 100))
	if !errors.Is(err, domain.ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestLedgerService_Transfer_UnknownAccount(t *testing.T) {
	f := newLedgerFixture(0)
	f.addAccount("ACC-A", 1_000)

	_, err := f.svc.Transfer(context.Background(), transferInput("ACC-A", "ACC-MISSING", 100))
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Idempotency
// ---------------------------------------------------------------------------

func TestLedgerService_Transfer_IdempotentReplay(t *testing.T) {
	f := newLedgerFixture(0)
	f.addAccount("ACC-A", 10_000)
	f.addAccount("ACC-B", 0)

	in := transferInput("ACC-A", "ACC-B", 2_000)
	in.IdempotencyKey = "key-1"

	first, err := f.svc.Transfer(context.Background(), in)
	if err != nil {
		t.Fatalf("first transfer failed: %v", err)
	}
	second, err := f.svc.Transfer(context.Background(), in)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("replay must return the original transfer: got %s, want %s", second.ID, first.ID)
	}
	// The monetary effect applies exactly once.
	if got := f.accounts.accounts["ACC-A"].Balance; got != 8_000 {
		t.Errorf("expected 8000 after replay, got %d", got)
	}
	if len(f.transfers.byID) != 1 {
		t.Errorf("expected 1 stored transfer, got %d", len(f.transfers.byID))
	}
}

func TestLedgerService_Transfer_NoKeyAlwaysMoves(t *testing.T) {
	f := newLedgerFixture(0)
	f.addAccount("ACC-A", 10_000)
	f.addAccount("ACC-B", 0)

	in := transferInput("ACC-A", "ACC-B", 1_000)
	if _, err := f.svc.Transfer(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Transfer(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.accounts.accounts["ACC-A"].Balance; got != 8_000 {
		t.Errorf("without a key each call moves money; expected 8000, got %d", got)
	}
}

// ---------------------------------------------------------------------------
// Optimistic concurrency
// ---------------------------------------------------------------------------

func TestLedgerService_Transfer_RetriesOnConflict(t *testing.T) {
	f := newLedgerFixture(3)
	f.addAccount("ACC-A", 10_000)
	f.addAccount("ACC-B", 0)
	f.accounts.conflicts = 2 // first two attempts lose the race

	if _, err := f.svc.Transfer(context.Background(), transferInput("ACC-A", "ACC-B", 1_000)); err != nil {
		t.Fatalf("expected third attempt to succeed: %v", err)
	}
	if got := f.accounts.accounts["ACC-A"].Balance; got != 9_000 {
		t.Errorf("expected 9000, got %d", got)
	}
}

func TestLedgerService_Transfer_GivesUpAfterBudget(t *testing.T) {
	f := newLedgerFixture(3)
	f.addAccount("ACC-A", 10_000)
	f.addAccount("ACC-B", 0)
	f.accounts.conflicts = 10

	_, err := f.svc.Transfer(context.Background(), transferInput("ACC-A", "ACC-B", 1_000))
	if !errors.Is(err, domain.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification after exhausting retries, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Reads and account management
// ---------------------------------------------------------------------------

func TestLedgerService_GetBalance(t *testing.T) {
	f := newLedgerFixture(0)
	f.addAccount("ACC-A", 4_200)

	balance, err := f.svc.GetBalance(context.Background(), "ACC-A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != 4_200 {
		t.Errorf("expected 4200, got %d", balance)
	}

	if _, err := f.svc.GetBalance(context.Background(), "ACC-MISSING"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestLedgerService_OpenAccounts_CreatesStandardSet(t *testing.T) {
	f := newLedgerFixture(0)

	accounts, err := f.svc.OpenAccounts(context.Background(), ports.OpenAccountsInput{
		InstitutionID: "INST-9",
		Currency:      "XOF",
		ActorID:       "USR-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(accounts) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(accounts))
	}

	types := map[domain.AccountType]bool{}
	for _, a := range accounts {
		types[a.Type] = true
		if a.Balance != 0 {
			t.Errorf("new accounts must start at zero, got %d", a.Balance)
		}
		if a.Status != domain.AccountActive {
			t.Errorf("new accounts must be active, got %s", a.Status)
		}
	}
	for _, want := range []domain.AccountType{domain.AccountOperating, domain.AccountRepayment, domain.AccountSavings} {
		if !types[want] {
			t.Errorf("missing %s account", want)
		}
	}

	if got := len(f.audit.actions(domain.EntityAccount)); got != 3 {
		t.Errorf("expected 3 audit entries, got %d", got)
	}
}

func TestLedgerService_OpenAccounts_SurvivesTransactionRetry(t *testing.T) {
	f := newLedgerFixture(0)
	f.tx.reinvoke = 1

	accounts, err := f.svc.OpenAccounts(context.Background(), ports.OpenAccountsInput{
		InstitutionID: "INST-9",
		Currency:      "XOF",
		ActorID:       "USR-1",
	})
	if err != nil {
		t.Fatalf("open accounts after transaction retry: %v", err)
	}
	if len(accounts) != 3 {
		t.Fatalf("aborted attempt leaked into the result: got %d accounts, want 3", len(accounts))
	}
}

func TestLedgerService_OpenAccounts_Validation(t *testing.T) {
	f := newLedgerFixture(0)

	_, err := f.svc.OpenAccounts(context.Background(), ports.OpenAccountsInput{Currency: "XOF"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestLedgerService_FreezeBlocksTransfers(t *testing.T) {
	f := newLedgerFixture(0)
	f.addAccount("ACC-A", 1_000)
	f.addAccount("ACC-B", 0)

	frozen, err := f.svc.FreezeAccount(context.Background(), "ACC-A", "USR-ADMIN")
	if err != nil {
		t.Fatalf("freeze failed: %v", err)
	}
	if frozen.Status != domain.AccountFrozen {
		t.Fatalf("expected frozen status, got %s", frozen.Status)
	}

	if _, err := f.svc.Transfer(context.Background(), transferInput("ACC-A", "ACC-B", 100)); !errors.Is(err, domain.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive after freeze, got %v", err)
	}

	thawed, err := f.svc.UnfreezeAccount(context.Background(), "ACC-A", "USR-ADMIN")
	if err != nil {
		t.Fatalf("unfreeze failed: %v", err)
	}
	if thawed.Status != domain.AccountActive {
		t.Fatalf("expected active status, got %s", thawed.Status)
	}

	if _, err := f.svc.Transfer(context.Background(), transferInput("ACC-A", "ACC-B", 100)); err != nil {
		t.Fatalf("transfer after unfreeze must succeed: %v", err)
	}
}

func TestLedgerService_Freeze_NoopWhenAlreadyFrozen(t *testing.T) {
	f := newLedgerFixture(0)
	a := f.addAccount("ACC-A", 1_000)
	a.Status = domain.AccountFrozen

	got, err := f.svc.FreezeAccount(context.Background(), "ACC-A", "USR-ADMIN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Version != 1 {
		t.Errorf("a no-op freeze must not bump the version, got %d", got.Version)
	}
	if len(f.audit.entries) != 0 {
		t.Errorf("a no-op freeze must not audit, got %d entries", len(f.audit.entries))
	}
}
