package mongo

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxRunner implements ports.TxRunner on MongoDB sessions. Repositories join
// the transaction automatically because the driver picks the session up from
// the context.
type TxRunner struct {
	client *mongo.Client
}

func NewTxRunner(client *mongo.Client) *TxRunner {
	return &TxRunner{client: client}
}

type hooksKey struct{}

// commitHooks collects callbacks to fire once the outermost transaction
// commits.
type commitHooks struct {
	mu  sync.Mutex
	fns []func()
}

func (h *commitHooks) add(fn func()) {
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

// reset drops hooks accumulated by a transaction attempt that the driver is
// about to retry, so a replayed attempt does not double-register them.
func (h *commitHooks) reset() {
	h.mu.Lock()
	h.fns = nil
	h.mu.Unlock()
}

func (h *commitHooks) run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// WithinTransaction runs fn atomically. When ctx already carries a session
// the call joins the ambient transaction instead of opening a nested one;
// commit hooks then belong to the outermost caller.
func (r *TxRunner) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	hooks := &commitHooks{}
	ctx = context.WithValue(ctx, hooksKey{}, hooks)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		// The driver may retry this callback on transient errors.
		hooks.reset()
		return nil, fn(sc)
	})
	if err != nil {
		return err
	}

	hooks.run()
	return nil
}

// OnCommit defers fn until the enclosing transaction commits. Outside any
// transaction fn runs immediately.
func (r *TxRunner) OnCommit(ctx context.Context, fn func()) {
	if hooks, ok := ctx.Value(hooksKey{}).(*commitHooks); ok {
		hooks.add(fn)
		return
	}
	fn()
}
