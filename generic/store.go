/*
store.go - Transactional persistence contract

PURPOSE:
  Every lifecycle operation must apply its status transition and its
  balance delta as one unit. Domain packages declare the narrow store they
  need (timeoff.Store, payroll.Store); TxStore is how they get a
  transaction-scoped instance of it.

ATOMIC UNITS:
  WithTx runs fn against a store bound to a single database transaction.
  If fn returns an error the transaction is rolled back as a whole, so a
  request's status can never disagree with its balance contribution.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite, single writer connection

EXAMPLE:
  err := store.WithTx(ctx, func(tx timeoff.Store) error {
      if err := tx.UpdateRequest(ctx, req, timeoff.StatusPending); err != nil {
          return err
      }
      return ledger.Consume(ctx, tx, ...)
  })

SEE ALSO:
  - timeoff/store.go, payroll/store.go: the domain store interfaces
*/
package generic

import "context"

// TxStore runs fn inside a single store transaction.
// If fn returns error, transaction is rolled back.
// If fn returns nil, transaction is committed.
type TxStore[S any] interface {
	WithTx(ctx context.Context, fn func(S) error) error
}
