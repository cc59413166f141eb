/*
ledger.go - Append-only journal of balance movements

PURPOSE:
  Balances are stored as counters (used, pending) so availability checks
  are a single row read. Every change to those counters is also written
  here, in the same transaction, so the counters can always be explained.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: movements are never updated or deleted
  2. SAME TRANSACTION: a counter change without its movement never commits
  3. REPLAYABLE: summing PendingDelta / UsedDelta for a balance key yields
     the stored Pending / Used counters

EXAMPLE FLOW (3-day request):
  submit   reserve   pending +3
  approve  consume   pending -3  used +3
  reset    reset     pending +3  used -3
  reject   release   pending -3

SEE ALSO:
  - timeoff/ledger.go: produces movements
  - store/sqlite/leave.go: persists them
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementReserve MovementType = "reserve" // pending reservation on submit
	MovementAdjust  MovementType = "adjust"  // pending delta on edit
	MovementConsume MovementType = "consume" // pending moved to used on approval
	MovementRelease MovementType = "release" // pending released on reject/cancel
	MovementReset   MovementType = "reset"   // approve/reject delta reversed
)

// Movement is one journaled change to a balance row.
type Movement struct {
	ID           string
	RequestID    string
	EmployeeID   EmployeeID
	LeaveTypeID  string
	Year         int
	Type         MovementType
	PendingDelta decimal.Decimal
	UsedDelta    decimal.Decimal
	ActorID      UserID
	Reason       string
	CreatedAt    time.Time
}

// Replay sums the deltas of movements, in order, into (pending, used).
func Replay(movements []Movement) (pending, used decimal.Decimal) {
	for _, m := range movements {
		pending = pending.Add(m.PendingDelta)
		used = used.Add(m.UsedDelta)
	}
	return pending, used
}
