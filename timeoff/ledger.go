/*
ledger.go - Leave balance accounting

PURPOSE:
  Owns the counters of one (employee, leave type, year) balance row and
  every change made to them. Callers pass a transaction-scoped Store so
  the counter update, its journal movement and the request's status
  change commit or roll back together.

INVARIANT:
  used + pending <= effectiveEntitlement + carriedOver

  effectiveEntitlement is the prorated entitlement for prorated types
  (AL, MC) and the raw entitlement otherwise. Carry-over, used and
  pending are never prorated. Operations that grow used + pending check
  availability first and fail without touching the row; no partial
  reservation is ever made.

OPERATIONS:
  Reserve      pending += days               (submit)
  Adjust       pending += new - old          (edit, checked against pending - old)
  Consume      pending -= days, used += days (approve)
  Release      pending -= days               (reject, cancel)
  UndoConsume  used -= days, pending += days (reset of an approved request)
  Restore      pending += days               (reset of a rejected request)

SEE ALSO:
  - proration.go: effective entitlement
  - generic/ledger.go: movement journal
*/
package timeoff

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/hr-engine/generic"
)

// Account is a loaded balance row plus what is needed to judge it.
type Account struct {
	Balance   Balance
	LeaveType LeaveType
	Effective decimal.Decimal
}

// Available is effective + carried over - used - pending.
func (a *Account) Available() decimal.Decimal {
	return a.Effective.Add(a.Balance.CarriedOver).Sub(a.Balance.Used).Sub(a.Balance.Pending)
}

// AvailableExcluding is Available with an existing reservation of
// reserved days handed back first, as when that reservation is replaced.
func (a *Account) AvailableExcluding(reserved decimal.Decimal) decimal.Decimal {
	return a.Available().Add(reserved)
}

func (a *Account) holds() error {
	b := a.Balance
	if b.Used.IsNegative() || b.Pending.IsNegative() {
		return fmt.Errorf("balance %v would go negative (used %s, pending %s)", b.Key, b.Used, b.Pending)
	}
	if b.Used.Add(b.Pending).GreaterThan(a.Effective.Add(b.CarriedOver)) {
		return fmt.Errorf("balance %v over-committed (used %s + pending %s > %s)",
			b.Key, b.Used, b.Pending, a.Effective.Add(b.CarriedOver))
	}
	return nil
}

// Ledger applies balance deltas and journals them.
type Ledger struct {
	Clock generic.Clock
}

func NewLedger(clock generic.Clock) *Ledger {
	return &Ledger{Clock: clock}
}

// Open loads the balance row for key, creating it from the leave type's
// default entitlement when it does not exist yet.
func (l *Ledger) Open(ctx context.Context, st Store, key BalanceKey, lt LeaveType, startDate *generic.TimePoint) (*Account, error) {
	b, err := st.Balance(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}
	if b == nil {
		b = &Balance{
			Key:         key,
			Entitlement: lt.DefaultEntitlement,
			CarriedOver: decimal.Zero,
			Used:        decimal.Zero,
			Pending:     decimal.Zero,
			UpdatedAt:   l.Clock.Now(),
		}
		if err := st.InsertBalance(ctx, *b); err != nil {
			return nil, fmt.Errorf("failed to create balance: %w", err)
		}
	}
	return &Account{
		Balance:   *b,
		LeaveType: lt,
		Effective: EffectiveEntitlement(lt, b.Entitlement, startDate, l.Clock.Today()),
	}, nil
}

// Reserve holds days as pending for a new request.
func (l *Ledger) Reserve(ctx context.Context, st Store, acct *Account, req LeaveRequest, actor generic.UserID) error {
	if available := acct.Available(); req.Days.GreaterThan(available) {
		return &generic.InsufficientBalanceError{Available: available, Requested: req.Days}
	}
	return l.apply(ctx, st, acct, req, generic.MovementReserve, req.Days, decimal.Zero, actor, req.Reason)
}

// Adjust replaces a reservation of oldDays with one of newDays.
func (l *Ledger) Adjust(ctx context.Context, st Store, acct *Account, req LeaveRequest, oldDays decimal.Decimal, actor generic.UserID) error {
	if available := acct.AvailableExcluding(oldDays); req.Days.GreaterThan(available) {
		return &generic.InsufficientBalanceError{Available: available, Requested: req.Days}
	}
	delta := req.Days.Sub(oldDays)
	if delta.IsZero() {
		return nil
	}
	return l.apply(ctx, st, acct, req, generic.MovementAdjust, delta, decimal.Zero, actor, "edited")
}

// Consume turns a request's pending days into used days.
func (l *Ledger) Consume(ctx context.Context, st Store, acct *Account, req LeaveRequest, actor generic.UserID) error {
	return l.apply(ctx, st, acct, req, generic.MovementConsume, req.Days.Neg(), req.Days, actor, "approved")
}

// Release drops a request's pending days.
func (l *Ledger) Release(ctx context.Context, st Store, acct *Account, req LeaveRequest, actor generic.UserID, reason string) error {
	return l.apply(ctx, st, acct, req, generic.MovementRelease, req.Days.Neg(), decimal.Zero, actor, reason)
}

// UndoConsume moves an approved request's used days back to pending.
func (l *Ledger) UndoConsume(ctx context.Context, st Store, acct *Account, req LeaveRequest, actor generic.UserID, reason string) error {
	return l.apply(ctx, st, acct, req, generic.MovementReset, req.Days, req.Days.Neg(), actor, reason)
}

// Restore re-reserves a rejected request's days as pending.
func (l *Ledger) Restore(ctx context.Context, st Store, acct *Account, req LeaveRequest, actor generic.UserID, reason string) error {
	if available := acct.Available(); req.Days.GreaterThan(available) {
		return &generic.InsufficientBalanceError{Available: available, Requested: req.Days}
	}
	return l.apply(ctx, st, acct, req, generic.MovementReset, req.Days, decimal.Zero, actor, reason)
}

func (l *Ledger) apply(
	ctx context.Context,
	st Store,
	acct *Account,
	req LeaveRequest,
	kind generic.MovementType,
	pendingDelta, usedDelta decimal.Decimal,
	actor generic.UserID,
	reason string,
) error {
	next := *acct
	next.Balance.Pending = acct.Balance.Pending.Add(pendingDelta)
	next.Balance.Used = acct.Balance.Used.Add(usedDelta)
	next.Balance.UpdatedAt = l.Clock.Now()

	grows := pendingDelta.Add(usedDelta).IsPositive()
	if err := next.holds(); err != nil && (grows || next.Balance.Used.IsNegative() || next.Balance.Pending.IsNegative()) {
		return err
	}

	if err := st.UpdateBalance(ctx, next.Balance); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	err := st.AppendMovement(ctx, generic.Movement{
		ID:           uuid.NewString(),
		RequestID:    string(req.ID),
		EmployeeID:   acct.Balance.Key.EmployeeID,
		LeaveTypeID:  string(acct.Balance.Key.LeaveTypeID),
		Year:         acct.Balance.Key.Year,
		Type:         kind,
		PendingDelta: pendingDelta,
		UsedDelta:    usedDelta,
		ActorID:      actor,
		Reason:       reason,
		CreatedAt:    next.Balance.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to journal movement: %w", err)
	}

	*acct = next
	return nil
}
