package timeoff_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hr-engine/generic"
	"github.com/warp/hr-engine/store/sqlite"
	"github.com/warp/hr-engine/timeoff"
	"go.uber.org/zap"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	alice   = generic.Actor{UserID: "u-alice", Role: generic.RoleEmployee, EmployeeID: "emp-1"}
	bob     = generic.Actor{UserID: "u-bob", Role: generic.RoleEmployee, EmployeeID: "emp-2"}
	manager = generic.Actor{UserID: "u-mgr", Role: generic.RoleManager}
)

// December 1st: a full-year employee has all 12 months of AL and MC credited.
var testNow = time.Date(2026, time.December, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.SaveEmployee(ctx, timeoff.Employee{
		ID: "emp-1", Name: "Alice Tan", StartDate: datePtr(2020, time.January, 6), Active: true,
	}))
	require.NoError(t, store.SaveEmployee(ctx, timeoff.Employee{
		ID: "emp-2", Name: "Bob Lim", StartDate: datePtr(2018, time.July, 1), Active: true,
	}))
	return store
}

func newTestService(t *testing.T) (*timeoff.Service, *sqlite.Store) {
	store := newTestStore(t)
	svc := timeoff.NewService(store, store, store, generic.FixedClock(testNow), zap.NewNop())
	return svc, store
}

func seedBalance(t *testing.T, store *sqlite.Store, emp generic.EmployeeID, lt timeoff.LeaveTypeID, entitlement, used string) {
	t.Helper()
	require.NoError(t, store.SaveBalance(context.Background(), timeoff.Balance{
		Key:         timeoff.BalanceKey{EmployeeID: emp, LeaveTypeID: lt, Year: 2026},
		Entitlement: dec(entitlement),
		CarriedOver: decimal.Zero,
		Used:        dec(used),
		Pending:     decimal.Zero,
		UpdatedAt:   testNow,
	}))
}

func loadBalance(t *testing.T, store *sqlite.Store, emp generic.EmployeeID, lt timeoff.LeaveTypeID) timeoff.Balance {
	t.Helper()
	b, err := store.Balance(context.Background(), timeoff.BalanceKey{EmployeeID: emp, LeaveTypeID: lt, Year: 2026})
	require.NoError(t, err)
	require.NotNil(t, b, "balance row should exist")
	return *b
}

func assertCounters(t *testing.T, b timeoff.Balance, used, pending string) {
	t.Helper()
	assert.True(t, dec(used).Equal(b.Used), "used = %s, want %s", b.Used, used)
	assert.True(t, dec(pending).Equal(b.Pending), "pending = %s, want %s", b.Pending, pending)
}

func submit(t *testing.T, svc *timeoff.Service, actor generic.Actor, lt timeoff.LeaveTypeID, start, end generic.TimePoint) *timeoff.LeaveRequest {
	t.Helper()
	req, err := svc.Submit(context.Background(), actor, timeoff.SubmitInput{
		LeaveTypeID: lt,
		StartDate:   start,
		EndDate:     end,
		DayType:     timeoff.FullDay,
	})
	require.NoError(t, err)
	return req
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmitThenApprove_MovesPendingToUsed(t *testing.T) {
	// GIVEN: 14 days AL with 5 already used
	svc, store := newTestService(t)
	ctx := context.Background()
	seedBalance(t, store, "emp-1", "al", "14", "5")

	// WHEN: Alice submits 3 days
	req := submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))

	// THEN: The days are pending
	assert.Equal(t, timeoff.StatusPending, req.Status)
	assert.True(t, dec("3").Equal(req.Days))
	assertCounters(t, loadBalance(t, store, "emp-1", "al"), "5", "3")

	// WHEN: The manager approves
	approved, err := svc.Approve(ctx, manager, req.ID)
	require.NoError(t, err)

	// THEN: Pending days become used days and the leave is on the calendar
	assert.Equal(t, timeoff.StatusApproved, approved.Status)
	assert.Equal(t, manager.UserID, approved.ApproverID)
	require.NotNil(t, approved.DecidedAt)
	assertCounters(t, loadBalance(t, store, "emp-1", "al"), "8", "0")

	entries, err := store.CalendarEntries(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, req.ID, entries[0].SourceRequestID)
	assert.Equal(t, "Alice Tan — Annual Leave", entries[0].Title)
	assert.Equal(t, date(2026, 11, 2), entries[0].StartDate)
	assert.Equal(t, date(2026, 11, 4), entries[0].EndDate)
}

func TestSubmitThenReject_ReleasesPending(t *testing.T) {
	svc, store := newTestService(t)
	seedBalance(t, store, "emp-1", "al", "14", "5")

	req := submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))
	rejected, err := svc.Reject(context.Background(), manager, req.ID, "team offsite")
	require.NoError(t, err)

	assert.Equal(t, timeoff.StatusRejected, rejected.Status)
	assert.Equal(t, "team offsite", rejected.DecisionReason)
	assertCounters(t, loadBalance(t, store, "emp-1", "al"), "5", "0")
}

func TestSubmit_InsufficientBalance(t *testing.T) {
	// GIVEN: 6 days of childcare leave, not prorated
	svc, _ := newTestService(t)
	ctx := context.Background()

	// WHEN: Requesting 7 days
	_, err := svc.Submit(ctx, alice, timeoff.SubmitInput{
		LeaveTypeID: "cl",
		StartDate:   date(2026, 11, 2),
		EndDate:     date(2026, 11, 8),
	})

	// THEN: Rejected with the numbers, and nothing is created
	var balErr *generic.InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	assert.True(t, dec("6").Equal(balErr.Available), "available = %s", balErr.Available)
	assert.True(t, dec("7").Equal(balErr.Requested), "requested = %s", balErr.Requested)

	reqs, err := svc.List(ctx, alice, timeoff.RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestSubmit_ProratedEntitlementForMidYearHire(t *testing.T) {
	// GIVEN: Hired October 1st; in December, November and December are credited
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, store.SaveEmployee(ctx, timeoff.Employee{
		ID: "emp-3", Name: "Chen Wei", StartDate: datePtr(2026, time.October, 1), Active: true,
	}))
	newHire := generic.Actor{UserID: "u-chen", Role: generic.RoleEmployee, EmployeeID: "emp-3"}

	// WHEN: Requesting 3 days of AL (14 * 2 / 12 = 2.33 -> 2)
	_, err := svc.Submit(ctx, newHire, timeoff.SubmitInput{
		LeaveTypeID: "al",
		StartDate:   date(2026, 12, 14),
		EndDate:     date(2026, 12, 16),
	})

	// THEN: Only the prorated 2 days are available
	var balErr *generic.InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	assert.True(t, dec("2").Equal(balErr.Available), "available = %s", balErr.Available)
}

func TestSubmit_OverlapIsConflict(t *testing.T) {
	// GIVEN: AL booked November 2-4
	svc, _ := newTestService(t)
	ctx := context.Background()
	submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))

	// WHEN: Requesting medical leave on November 4
	_, err := svc.Submit(ctx, alice, timeoff.SubmitInput{
		LeaveTypeID: "mc",
		StartDate:   date(2026, 11, 4),
		EndDate:     date(2026, 11, 4),
	})

	// THEN: The shared date is reported
	var conflict *generic.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"2026-11-04"}, conflict.DateStrings())
}

// staleOverlapStore hides existing requests from the conflict query, the way
// a concurrent submit that has not committed yet is invisible to it.
type staleOverlapStore struct {
	*sqlite.Store
}

func (s staleOverlapStore) OverlappingRequests(context.Context, generic.EmployeeID, generic.Period, timeoff.RequestID) ([]timeoff.LeaveRequest, error) {
	return nil, nil
}

func (s staleOverlapStore) WithTx(ctx context.Context, fn func(timeoff.Store) error) error {
	return s.Store.WithTx(ctx, func(tx timeoff.Store) error {
		return fn(staleOverlapTx{tx})
	})
}

type staleOverlapTx struct {
	timeoff.Store
}

func (staleOverlapTx) OverlappingRequests(context.Context, generic.EmployeeID, generic.Period, timeoff.RequestID) ([]timeoff.LeaveRequest, error) {
	return nil, nil
}

func TestSubmit_BookedDayIsConflictWhenOverlapCheckMissesIt(t *testing.T) {
	// GIVEN: AL booked November 2-4 and a service whose overlap query sees nothing
	svc, store := newTestService(t)
	ctx := context.Background()
	submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))
	racing := timeoff.NewService(staleOverlapStore{store}, store, store, generic.FixedClock(testNow), zap.NewNop())

	// WHEN: Submitting November 4-5
	_, err := racing.Submit(ctx, alice, timeoff.SubmitInput{
		LeaveTypeID: "al",
		StartDate:   date(2026, 11, 4),
		EndDate:     date(2026, 11, 5),
	})

	// THEN: The day index rejects it as a conflict and nothing is reserved
	var conflict *generic.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"2026-11-04", "2026-11-05"}, conflict.DateStrings())

	assertCounters(t, loadBalance(t, store, "emp-1", "al"), "0", "3")
	reqs, err := store.ListRequests(ctx, timeoff.RequestFilter{EmployeeID: "emp-1"})
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
}

func TestSubmit_OppositeHalfDaysConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, alice, timeoff.SubmitInput{
		LeaveTypeID: "al", StartDate: date(2026, 11, 9), EndDate: date(2026, 11, 9), DayType: timeoff.AMHalf,
	})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, alice, timeoff.SubmitInput{
		LeaveTypeID: "al", StartDate: date(2026, 11, 9), EndDate: date(2026, 11, 9), DayType: timeoff.PMHalf,
	})
	assert.ErrorIs(t, err, generic.ErrLeaveConflict)
}

func TestSubmit_OtherEmployeesDoNotConflict(t *testing.T) {
	svc, _ := newTestService(t)

	submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))
	submit(t, svc, bob, "al", date(2026, 11, 2), date(2026, 11, 4))
}

func TestSubmit_HalfDayOnNonEligibleTypeChargedFullDay(t *testing.T) {
	svc, store := newTestService(t)

	req, err := svc.Submit(context.Background(), alice, timeoff.SubmitInput{
		LeaveTypeID: "mc",
		StartDate:   date(2026, 11, 9),
		EndDate:     date(2026, 11, 9),
		DayType:     timeoff.AMHalf,
	})

	require.NoError(t, err)
	assert.Equal(t, timeoff.FullDay, req.DayType)
	assert.True(t, dec("1").Equal(req.Days))
	assertCounters(t, loadBalance(t, store, "emp-1", "mc"), "0", "1")
}

func TestSubmit_LeaveTypeErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, alice, timeoff.SubmitInput{StartDate: date(2026, 11, 9), EndDate: date(2026, 11, 9)})
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = svc.Submit(ctx, alice, timeoff.SubmitInput{LeaveTypeID: "sabbatical", StartDate: date(2026, 11, 9), EndDate: date(2026, 11, 9)})
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestSubmit_RequiresEmployeeRecord(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), manager, timeoff.SubmitInput{
		LeaveTypeID: "al", StartDate: date(2026, 11, 9), EndDate: date(2026, 11, 9),
	})
	assert.ErrorIs(t, err, generic.ErrUnauthorized)
}

// =============================================================================
// EDIT
// =============================================================================

func TestEdit_ReservesOnlyTheDifference(t *testing.T) {
	// GIVEN: A 3-day pending request against 14 days with 5 used
	svc, store := newTestService(t)
	ctx := context.Background()
	seedBalance(t, store, "emp-1", "al", "14", "5")
	req := submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))

	// WHEN: Extending it to 5 days, overlapping its own old dates
	edited, err := svc.Edit(ctx, alice, req.ID, timeoff.EditInput{
		StartDate: date(2026, 11, 3),
		EndDate:   date(2026, 11, 7),
		Reason:    "longer trip",
	})

	// THEN: Pending reflects the new size
	require.NoError(t, err)
	assert.True(t, dec("5").Equal(edited.Days))
	assert.Equal(t, "longer trip", edited.Reason)
	assertCounters(t, loadBalance(t, store, "emp-1", "al"), "5", "5")

	// WHEN: Growing past what is available (9 with its own 5 handed back)
	_, err = svc.Edit(ctx, alice, req.ID, timeoff.EditInput{
		StartDate: date(2026, 11, 3),
		EndDate:   date(2026, 11, 12),
	})

	// THEN: Refused, counters untouched
	var balErr *generic.InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	assert.True(t, dec("9").Equal(balErr.Available), "available = %s", balErr.Available)
	assert.True(t, dec("10").Equal(balErr.Requested))
	assertCounters(t, loadBalance(t, store, "emp-1", "al"), "5", "5")

	// AND: The freed day is bookable again
	submit(t, svc, alice, "mc", date(2026, 11, 2), date(2026, 11, 2))
}

func TestEdit_Rules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	req := submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))
	in := timeoff.EditInput{StartDate: date(2026, 11, 2), EndDate: date(2026, 11, 3)}

	t.Run("someone else's request", func(t *testing.T) {
		_, err := svc.Edit(ctx, bob, req.ID, in)
		assert.ErrorIs(t, err, generic.ErrUnauthorized)
	})

	t.Run("changing the leave type", func(t *testing.T) {
		_, err := svc.Edit(ctx, alice, req.ID, timeoff.EditInput{LeaveTypeID: "mc", StartDate: in.StartDate, EndDate: in.EndDate})
		assert.ErrorIs(t, err, generic.ErrValidation)
	})

	t.Run("moving into another year", func(t *testing.T) {
		_, err := svc.Edit(ctx, alice, req.ID, timeoff.EditInput{StartDate: date(2027, 1, 4), EndDate: date(2027, 1, 5)})
		assert.ErrorIs(t, err, generic.ErrValidation)
	})

	t.Run("decided request", func(t *testing.T) {
		_, err := svc.Approve(ctx, manager, req.ID)
		require.NoError(t, err)

		_, err = svc.Edit(ctx, alice, req.ID, in)
		var stateErr *generic.StateError
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, string(timeoff.StatusApproved), stateErr.Current)
	})
}

// =============================================================================
// DECISIONS
// =============================================================================

func TestApprove_Twice_SecondIsStateError(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	req := submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))

	_, err := svc.Approve(ctx, manager, req.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, manager, req.ID)
	assert.ErrorIs(t, err, generic.ErrInvalidState)

	// Used is charged exactly once
	assertCounters(t, loadBalance(t, store, "emp-1", "al"), "3", "0")
}

func TestApprove_ConcurrentApprovalsApplyOnce(t *testing.T) {
	// GIVEN: A pending request
	svc, store := newTestService(t)
	req := submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))

	// WHEN: Several managers approve at once
	const approvers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		stateErrs int
	)
	for i := 0; i < approvers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Approve(context.Background(), manager, req.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, generic.ErrInvalidState):
				stateErrs++
			}
		}()
	}
	wg.Wait()

	// THEN: Exactly one wins, the rest see a state error
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, approvers-1, stateErrs)
	assertCounters(t, loadBalance(t, store, "emp-1", "al"), "3", "0")
}

func TestDecisions_RequireManagerRole(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	req := submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))

	_, err := svc.Approve(ctx, alice, req.ID)
	assert.ErrorIs(t, err, generic.ErrUnauthorized)

	_, err = svc.Reject(ctx, bob, req.ID, "no")
	assert.ErrorIs(t, err, generic.ErrUnauthorized)

	_, err = svc.Reset(ctx, alice, req.ID, "")
	assert.ErrorIs(t, err, generic.ErrUnauthorized)
}

func TestApprove_UnknownRequest(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Approve(context.Background(), manager, "no-such-request")

	var nf *generic.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "no-such-request", nf.ID)
}

// =============================================================================
// CANCEL
// =============================================================================

func TestCancel(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	req := submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))

	_, err := svc.Cancel(ctx, bob, req.ID)
	assert.ErrorIs(t, err, generic.ErrUnauthorized)

	cancelled, err := svc.Cancel(ctx, alice, req.ID)
	require.NoError(t, err)
	assert.Equal(t, timeoff.StatusCancelled, cancelled.Status)
	assertCounters(t, loadBalance(t, store, "emp-1", "al"), "0", "0")

	// Cancelled days can be booked again
	submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))

	_, err = svc.Cancel(ctx, alice, req.ID)
	assert.ErrorIs(t, err, generic.ErrInvalidState)
}

// =============================================================================
// RESET
// =============================================================================

func TestReset_ApprovedReturnsUsedToPending(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	req := submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))
	_, err := svc.Approve(ctx, manager, req.ID)
	require.NoError(t, err)

	reset, err := svc.Reset(ctx, manager, req.ID, "approved by mistake")

	require.NoError(t, err)
	assert.Equal(t, timeoff.StatusPending, reset.Status)
	assert.Empty(t, reset.ApproverID)
	assert.Nil(t, reset.DecidedAt)
	assertCounters(t, loadBalance(t, store, "emp-1", "al"), "0", "3")

	// It can be decided again
	_, err = svc.Approve(ctx, manager, req.ID)
	require.NoError(t, err)
	assertCounters(t, loadBalance(t, store, "emp-1", "al"), "3", "0")
}

func TestReset_RejectedReReservesDays(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	req := submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))
	_, err := svc.Reject(ctx, manager, req.ID, "busy")
	require.NoError(t, err)

	reset, err := svc.Reset(ctx, manager, req.ID, "reconsidered")

	require.NoError(t, err)
	assert.Equal(t, timeoff.StatusPending, reset.Status)
	assertCounters(t, loadBalance(t, store, "emp-1", "al"), "0", "3")

	// Its days are held again
	_, err = svc.Submit(ctx, alice, timeoff.SubmitInput{LeaveTypeID: "mc", StartDate: date(2026, 11, 3), EndDate: date(2026, 11, 3)})
	assert.ErrorIs(t, err, generic.ErrLeaveConflict)
}

func TestReset_RejectedWhoseDaysWereRebooked(t *testing.T) {
	// GIVEN: A rejected request whose days were since taken by another one
	svc, store := newTestService(t)
	ctx := context.Background()
	req := submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))
	_, err := svc.Reject(ctx, manager, req.ID, "busy")
	require.NoError(t, err)
	submit(t, svc, alice, "mc", date(2026, 11, 3), date(2026, 11, 3))

	// WHEN: Resetting it
	_, err = svc.Reset(ctx, manager, req.ID, "")

	// THEN: Conflict, and nothing changed
	var conflict *generic.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"2026-11-03"}, conflict.DateStrings())
	assertCounters(t, loadBalance(t, store, "emp-1", "al"), "0", "0")

	got, err := svc.Get(ctx, manager, req.ID)
	require.NoError(t, err)
	assert.Equal(t, timeoff.StatusRejected, got.Status)
}

func TestReset_PendingOrCancelledIsStateError(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	req := submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))

	_, err := svc.Reset(ctx, manager, req.ID, "")
	assert.ErrorIs(t, err, generic.ErrInvalidState)

	_, err = svc.Cancel(ctx, alice, req.ID)
	require.NoError(t, err)
	_, err = svc.Reset(ctx, manager, req.ID, "")
	assert.ErrorIs(t, err, generic.ErrInvalidState)
}

// =============================================================================
// QUERIES
// =============================================================================

func TestHistory_ReplaysToCounters(t *testing.T) {
	// GIVEN: A request taken through every kind of movement
	svc, store := newTestService(t)
	ctx := context.Background()
	req := submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))

	_, err := svc.Edit(ctx, alice, req.ID, timeoff.EditInput{StartDate: date(2026, 11, 2), EndDate: date(2026, 11, 6)})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, manager, req.ID)
	require.NoError(t, err)
	_, err = svc.Reset(ctx, manager, req.ID, "wrong dates")
	require.NoError(t, err)
	_, err = svc.Reject(ctx, manager, req.ID, "use next month")
	require.NoError(t, err)

	// WHEN: Reading its history
	movements, err := svc.History(ctx, alice, req.ID)
	require.NoError(t, err)

	// THEN: One movement per change, summing to the stored counters
	types := make([]generic.MovementType, len(movements))
	for i, m := range movements {
		types[i] = m.Type
	}
	assert.Equal(t, []generic.MovementType{
		generic.MovementReserve,
		generic.MovementAdjust,
		generic.MovementConsume,
		generic.MovementReset,
		generic.MovementRelease,
	}, types)

	pending, used := generic.Replay(movements)
	b := loadBalance(t, store, "emp-1", "al")
	assert.True(t, b.Pending.Equal(pending), "replayed pending %s != %s", pending, b.Pending)
	assert.True(t, b.Used.Equal(used), "replayed used %s != %s", used, b.Used)

	_, err = svc.History(ctx, bob, req.ID)
	assert.ErrorIs(t, err, generic.ErrUnauthorized)
}

func TestList_EmployeesSeeOnlyTheirOwn(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))
	submit(t, svc, bob, "al", date(2026, 11, 2), date(2026, 11, 4))

	mine, err := svc.List(ctx, alice, timeoff.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, generic.EmployeeID("emp-1"), mine[0].EmployeeID)

	_, err = svc.List(ctx, alice, timeoff.RequestFilter{EmployeeID: "emp-2"})
	assert.ErrorIs(t, err, generic.ErrUnauthorized)

	all, err := svc.List(ctx, manager, timeoff.RequestFilter{Status: timeoff.StatusPending, Year: 2026})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGet_Visibility(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	req := submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 4))

	_, err := svc.Get(ctx, alice, req.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, manager, req.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, bob, req.ID)
	assert.ErrorIs(t, err, generic.ErrUnauthorized)
}

func TestSummaries(t *testing.T) {
	// GIVEN: AL 14 with 5 used, one pending and one rejected request
	svc, store := newTestService(t)
	ctx := context.Background()
	seedBalance(t, store, "emp-1", "al", "14", "5")
	submit(t, svc, alice, "al", date(2026, 11, 2), date(2026, 11, 3))
	rejected := submit(t, svc, alice, "al", date(2026, 11, 9), date(2026, 11, 9))
	_, err := svc.Reject(ctx, manager, rejected.ID, "")
	require.NoError(t, err)

	// WHEN: Summarizing the year
	summaries, err := svc.Summaries(ctx, alice, "emp-1", 2026)
	require.NoError(t, err)

	// THEN: Every leave type is reported
	byCode := map[timeoff.Code]timeoff.BalanceSummary{}
	for _, s := range summaries {
		byCode[s.LeaveType.Code] = s
	}
	require.Len(t, byCode, 4)

	al := byCode[timeoff.CodeAnnual]
	assert.True(t, dec("14").Equal(al.EffectiveEntitlement))
	assert.True(t, dec("5").Equal(al.Used))
	assert.True(t, dec("2").Equal(al.Pending))
	assert.True(t, dec("7").Equal(al.Available), "available = %s", al.Available)
	assert.Equal(t, 1, al.RejectedCount)

	cl := byCode[timeoff.CodeChildcare]
	assert.True(t, dec("6").Equal(cl.Available))
	assert.Equal(t, 0, cl.RejectedCount)

	_, err = svc.Summaries(ctx, bob, "emp-1", 2026)
	assert.ErrorIs(t, err, generic.ErrUnauthorized)
}

func TestLeaveTypes_Seeded(t *testing.T) {
	svc, _ := newTestService(t)

	types, err := svc.LeaveTypes(context.Background())

	require.NoError(t, err)
	codes := make([]timeoff.Code, 0, len(types))
	for _, lt := range types {
		codes = append(codes, lt.Code)
	}
	assert.ElementsMatch(t, []timeoff.Code{timeoff.CodeAnnual, timeoff.CodeMedical, timeoff.CodeChildcare, timeoff.CodeNoPay}, codes)
}
