package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager provides a thin abstraction to execute a function within a
// database transaction, passing the underlying transaction handle via `tx`.
//
// Repositories accept `tx Tx` and detect the concrete handle implementation-side
// (pgx.Tx for Postgres), falling back to the pool when nil is passed. Keeping
// the handle opaque here means use-case interfaces stay storage-agnostic while
// reconciliation can still run payment upsert + item replacement + enrollment
// mutations atomically.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
