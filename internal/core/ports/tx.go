package ports

import "context"

// TxRunner abstracts the store's transaction boundary.
//
// WithinTransaction runs fn atomically: every repository call made with the
// ctx passed to fn joins the same store transaction. When the incoming ctx
// already carries a transaction, fn joins it instead of opening a nested one,
// so a disbursement can wrap a ledger transfer and a subsidy consumption in
// one atomic unit.
//
// OnCommit registers fn to run after the enclosing transaction commits; if
// ctx carries no transaction, fn runs immediately. Broadcast and alert side
// effects hang off this hook so they never observe an aborted write.
type TxRunner interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	OnCommit(ctx context.Context, fn func())
}
