package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sfdfinance/finance-core/internal/core/domain"
	"github.com/sfdfinance/finance-core/internal/core/ports"
)

var discardLogger = zerolog.Nop()

// ---------------------------------------------------------------------------
// Transaction runner stub
// ---------------------------------------------------------------------------

// stubTx mimics the ambient-transaction semantics of the Mongo runner:
// nested WithinTransaction calls join the outermost one, OnCommit hooks run
// only after the outermost call returns nil, and an optional snapshot/restore
// pair rolls the stub repositories back on error.
type stubTx struct {
	depth    int
	hooks    []func()
	snap     any
	snapshot func() any
	restore  func(any)
	// reinvoke aborts the outermost attempt and runs the callback again
	// that many times, the way the driver retries a transaction after a
	// transient error. Writes and hooks from aborted attempts are
	// discarded before the next run.
	reinvoke int
}

func (t *stubTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.depth++
	if t.depth == 1 && t.snapshot != nil {
		t.snap = t.snapshot()
	}
	err := fn(ctx)
	if t.depth == 1 {
		for t.reinvoke > 0 {
			t.reinvoke--
			if t.restore != nil {
				t.restore(t.snap)
			}
			t.hooks = nil
			err = fn(ctx)
		}
	}
	t.depth--
	if t.depth == 0 {
		if err != nil {
			if t.restore != nil {
				t.restore(t.snap)
			}
			t.hooks = nil
			return err
		}
		for _, h := range t.hooks {
			h()
		}
		t.hooks = nil
	}
	return err
}

func (t *stubTx) OnCommit(_ context.Context, fn func()) {
	if t.depth == 0 {
		fn()
		return
	}
	t.hooks = append(t.hooks, fn)
}

// ---------------------------------------------------------------------------
// Repository stubs
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	accounts map[string]*domain.Account
	// conflicts makes the next N UpdateBalance calls fail with a version
	// conflict regardless of the version passed.
	conflicts int
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) error {
	clone := *a
	r.accounts[a.ID] = &clone
	return nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *stubAccountRepo) FindByInstitution(_ context.Context, institutionID string) ([]*domain.Account, error) {
	var out []*domain.Account
	for _, a := range r.accounts {
		if a.InstitutionID == institutionID {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *stubAccountRepo) UpdateBalance(_ context.Context, id string, version, newBalance int64, now time.Time) error {
	if r.conflicts > 0 {
		r.conflicts--
		return domain.ErrConcurrentModification
	}
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if a.Version != version {
		return domain.ErrConcurrentModification
	}
	a.Balance = newBalance
	a.Version++
	a.UpdatedAt = now
	return nil
}

func (r *stubAccountRepo) UpdateStatus(_ context.Context, id string, version int64, status domain.AccountStatus, now time.Time) error {
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if a.Version != version {
		return domain.ErrConcurrentModification
	}
	a.Status = status
	a.Version++
	a.UpdatedAt = now
	return nil
}

func (r *stubAccountRepo) clone() map[string]*domain.Account {
	out := make(map[string]*domain.Account, len(r.accounts))
	for id, a := range r.accounts {
		c := *a
		out[id] = &c
	}
	return out
}

type stubTransferRepo struct {
	byID  map[string]*domain.Transfer
	byKey map[string]*domain.Transfer
}

func newStubTransferRepo() *stubTransferRepo {
	return &stubTransferRepo{
		byID:  make(map[string]*domain.Transfer),
		byKey: make(map[string]*domain.Transfer),
	}
}

func (r *stubTransferRepo) Insert(_ context.Context, t *domain.Transfer) error {
	if t.IdempotencyKey != "" {
		if _, ok := r.byKey[t.IdempotencyKey]; ok {
			// mirrors the unique index on the real collection
			return domain.ErrConcurrentModification
		}
	}
	clone := *t
	r.byID[t.ID] = &clone
	if t.IdempotencyKey != "" {
		r.byKey[t.IdempotencyKey] = &clone
	}
	return nil
}

func (r *stubTransferRepo) FindByIdempotencyKey(_ context.Context, key string) (*domain.Transfer, error) {
	t, ok := r.byKey[key]
	if !ok {
		return nil, nil
	}
	clone := *t
	return &clone, nil
}

type stubLoanRepo struct {
	loans map[string]*domain.LoanRequest
}

func newStubLoanRepo() *stubLoanRepo {
	return &stubLoanRepo{loans: make(map[string]*domain.LoanRequest)}
}

func cloneLoan(l *domain.LoanRequest) *domain.LoanRequest {
	clone := *l
	clone.Documents = append([]domain.Document(nil), l.Documents...)
	clone.Schedule = append([]domain.Installment(nil), l.Schedule...)
	clone.Transitions = append([]domain.TransitionRecord(nil), l.Transitions...)
	return &clone
}

func (r *stubLoanRepo) Create(_ context.Context, l *domain.LoanRequest) error {
	r.loans[l.ID] = cloneLoan(l)
	return nil
}

func (r *stubLoanRepo) FindByID(_ context.Context, id string) (*domain.LoanRequest, error) {
	l, ok := r.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return cloneLoan(l), nil
}

func (r *stubLoanRepo) Update(_ context.Context, l *domain.LoanRequest) error {
	stored, ok := r.loans[l.ID]
	if !ok {
		return domain.ErrLoanNotFound
	}
	if stored.Version != l.Version {
		return domain.ErrConcurrentModification
	}
	next := cloneLoan(l)
	next.Version = l.Version + 1
	r.loans[l.ID] = next
	return nil
}

func (r *stubLoanRepo) clone() map[string]*domain.LoanRequest {
	out := make(map[string]*domain.LoanRequest, len(r.loans))
	for id, l := range r.loans {
		out[id] = cloneLoan(l)
	}
	return out
}

type stubPoolRepo struct {
	pools map[string]*domain.SubsidyPool
	// conflicts makes the next N UpdateUsage calls fail with a version
	// conflict regardless of the version passed.
	conflicts int
}

func newStubPoolRepo() *stubPoolRepo {
	return &stubPoolRepo{pools: make(map[string]*domain.SubsidyPool)}
}

func (r *stubPoolRepo) Create(_ context.Context, p *domain.SubsidyPool) error {
	clone := *p
	r.pools[p.ID] = &clone
	return nil
}

func (r *stubPoolRepo) FindByID(_ context.Context, id string) (*domain.SubsidyPool, error) {
	p, ok := r.pools[id]
	if !ok {
		return nil, domain.ErrPoolNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubPoolRepo) UpdateUsage(_ context.Context, id string, version, usedAmount int64, status domain.PoolStatus, now time.Time) error {
	if r.conflicts > 0 {
		r.conflicts--
		return domain.ErrConcurrentModification
	}
	p, ok := r.pools[id]
	if !ok {
		return domain.ErrPoolNotFound
	}
	if p.Version != version {
		return domain.ErrConcurrentModification
	}
	p.UsedAmount = usedAmount
	p.Status = status
	p.Version++
	p.UpdatedAt = now
	return nil
}

func (r *stubPoolRepo) clone() map[string]*domain.SubsidyPool {
	out := make(map[string]*domain.SubsidyPool, len(r.pools))
	for id, p := range r.pools {
		c := *p
		out[id] = &c
	}
	return out
}

type stubAuditRepo struct {
	entries []*domain.AuditLogEntry
	err     error
}

func (r *stubAuditRepo) Record(_ context.Context, e *domain.AuditLogEntry) error {
	if r.err != nil {
		return r.err
	}
	clone := *e
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *stubAuditRepo) Query(_ context.Context, entityType domain.EntityType, entityID string) ([]*domain.AuditLogEntry, error) {
	var out []*domain.AuditLogEntry
	for _, e := range r.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *stubAuditRepo) actions(entityType domain.EntityType) []string {
	var out []string
	for _, e := range r.entries {
		if e.EntityType == entityType {
			out = append(out, e.Action)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Side-effect stubs
// ---------------------------------------------------------------------------

type stubBroadcaster struct {
	changes []ports.StateChange
}

func (b *stubBroadcaster) Announce(change ports.StateChange) {
	b.changes = append(b.changes, change)
}

func (b *stubBroadcaster) byType(t domain.EntityType) []ports.StateChange {
	var out []ports.StateChange
	for _, c := range b.changes {
		if c.EntityType == t {
			out = append(out, c)
		}
	}
	return out
}

type stubSink struct {
	alerts []ports.ThresholdAlert
	err    error
}

func (s *stubSink) Notify(_ context.Context, alert ports.ThresholdAlert) error {
	if s.err != nil {
		return s.err
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

type stubMarker struct {
	raised map[string]bool
	err    error
}

func newStubMarker() *stubMarker {
	return &stubMarker{raised: make(map[string]bool)}
}

func (m *stubMarker) AlreadyRaised(_ context.Context, poolID string, level domain.ThresholdLevel) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.raised[poolID+":"+string(level)], nil
}

func (m *stubMarker) MarkRaised(_ context.Context, poolID string, level domain.ThresholdLevel) error {
	if m.err != nil {
		return m.err
	}
	m.raised[poolID+":"+string(level)] = true
	return nil
}
