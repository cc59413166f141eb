/*
request.go - Leave request lifecycle

PURPOSE:
  Orchestrates every state change of a leave request and the balance
  delta that goes with it:

  ┌──────────┐ approve  ┌──────────┐
  │          │────────▶ │ APPROVED │──┐
  │          │          └──────────┘  │ reset
  │ PENDING  │ reject   ┌──────────┐  │
  │          │────────▶ │ REJECTED │──┤
  │          │ ◀────────────────────────┘
  │  (edit)  │ cancel   ┌───────────┐
  │          │────────▶ │ CANCELLED │
  └──────────┘          └───────────┘

ATOMICITY:
  Each operation runs inside Store.WithTx. The request row is updated
  with a conditional write on its current status, so two concurrent
  approvals of the same request cannot both apply the used/pending
  delta: the second one sees ErrConcurrentModification and fails with a
  StateError. Days held by pending/approved requests are also booked in
  the store under a uniqueness constraint, which closes the window
  between the overlap read and the insert.

ACTORS:
  Every operation takes the caller explicitly. Owners submit, edit and
  cancel their own requests; managers, HR and admins approve, reject and
  reset.

SEE ALSO:
  - ledger.go: balance arithmetic
  - conflict.go: overlap detection
  - daycount.go: day counts and forced full days
*/
package timeoff

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/warp/hr-engine/generic"
	"go.uber.org/zap"
)

// SubmitInput is a new request as entered by the employee.
type SubmitInput struct {
	LeaveTypeID     LeaveTypeID
	StartDate       generic.TimePoint
	EndDate         generic.TimePoint
	DayType         DayType
	HalfDayPosition HalfDayPosition
	Reason          string
}

// EditInput replaces the editable fields of a pending request.
// LeaveTypeID may be left empty; any other value must match the request.
type EditInput struct {
	LeaveTypeID     LeaveTypeID
	StartDate       generic.TimePoint
	EndDate         generic.TimePoint
	DayType         DayType
	HalfDayPosition HalfDayPosition
	Reason          string
}

// Service is the leave request lifecycle manager.
type Service struct {
	Store     TxStore
	Directory Directory
	Calendar  CalendarWriter
	Ledger    *Ledger
	Clock     generic.Clock
	Logger    *zap.Logger
}

func NewService(store TxStore, directory Directory, calendar CalendarWriter, clock generic.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Store:     store,
		Directory: directory,
		Calendar:  calendar,
		Ledger:    NewLedger(clock),
		Clock:     clock,
		Logger:    logger,
	}
}

// =============================================================================
// SUBMIT / EDIT
// =============================================================================

// Submit creates a pending request and reserves its days.
func (s *Service) Submit(ctx context.Context, actor generic.Actor, in SubmitInput) (*LeaveRequest, error) {
	if actor.EmployeeID == "" {
		return nil, &generic.AuthorizationError{ActorID: string(actor.UserID), Action: "submit leave without an employee record"}
	}
	emp, err := s.employee(ctx, actor.EmployeeID)
	if err != nil {
		return nil, err
	}

	var created LeaveRequest
	err = s.Store.WithTx(ctx, func(tx Store) error {
		lt, err := s.leaveType(ctx, tx, in.LeaveTypeID)
		if err != nil {
			return err
		}
		n, err := Normalize(*lt, in.StartDate, in.EndDate, in.DayType, in.HalfDayPosition)
		if err != nil {
			return err
		}
		if err := s.checkConflicts(ctx, tx, emp.ID, *lt, n, ""); err != nil {
			return err
		}

		now := s.Clock.Now()
		req := LeaveRequest{
			ID:              RequestID(uuid.NewString()),
			EmployeeID:      emp.ID,
			LeaveTypeID:     lt.ID,
			StartDate:       n.Period.Start,
			EndDate:         n.Period.End,
			Days:            n.Days,
			DayType:         n.DayType,
			HalfDayPosition: n.HalfDayPosition,
			Status:          StatusPending,
			Reason:          in.Reason,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		acct, err := s.Ledger.Open(ctx, tx, balanceKey(req), *lt, emp.StartDate)
		if err != nil {
			return err
		}
		if err := s.Ledger.Reserve(ctx, tx, acct, req, actor.UserID); err != nil {
			return err
		}
		if err := tx.InsertRequest(ctx, req); err != nil {
			return fmt.Errorf("failed to insert request: %w", err)
		}
		if err := s.occupy(ctx, tx, req); err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("leave request submitted",
		zap.String("request_id", string(created.ID)),
		zap.String("employee_id", string(created.EmployeeID)),
		zap.String("leave_type", string(created.LeaveTypeID)),
		zap.String("days", created.Days.String()),
	)
	return &created, nil
}

// Edit changes the dates, day type or reason of the actor's own pending
// request and re-reserves only the difference in days.
func (s *Service) Edit(ctx context.Context, actor generic.Actor, id RequestID, in EditInput) (*LeaveRequest, error) {
	pre, err := s.request(ctx, s.Store, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(pre.EmployeeID) {
		return nil, &generic.AuthorizationError{ActorID: string(actor.UserID), Action: "edit another employee's leave"}
	}
	emp, err := s.employee(ctx, pre.EmployeeID)
	if err != nil {
		return nil, err
	}

	var updated LeaveRequest
	err = s.Store.WithTx(ctx, func(tx Store) error {
		req, err := s.request(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return &generic.StateError{Message: "only pending requests can be edited", Current: string(req.Status)}
		}
		if in.LeaveTypeID != "" && in.LeaveTypeID != req.LeaveTypeID {
			return generic.FieldError("leave_type_id", "leave type cannot be changed")
		}
		lt, err := s.leaveType(ctx, tx, req.LeaveTypeID)
		if err != nil {
			return err
		}
		n, err := Normalize(*lt, in.StartDate, in.EndDate, in.DayType, in.HalfDayPosition)
		if err != nil {
			return err
		}
		if n.Period.Start.Year() != req.Year() {
			return generic.FieldError("start_date", "must stay in the request's leave year")
		}
		if err := s.checkConflicts(ctx, tx, req.EmployeeID, *lt, n, req.ID); err != nil {
			return err
		}

		oldDays := req.Days
		next := *req
		next.StartDate = n.Period.Start
		next.EndDate = n.Period.End
		next.Days = n.Days
		next.DayType = n.DayType
		next.HalfDayPosition = n.HalfDayPosition
		next.Reason = in.Reason
		next.UpdatedAt = s.Clock.Now()

		acct, err := s.Ledger.Open(ctx, tx, balanceKey(next), *lt, emp.StartDate)
		if err != nil {
			return err
		}
		if err := s.Ledger.Adjust(ctx, tx, acct, next, oldDays, actor.UserID); err != nil {
			return err
		}
		if err := s.update(ctx, tx, next, StatusPending); err != nil {
			return err
		}
		if err := tx.ReleaseDays(ctx, next.ID); err != nil {
			return fmt.Errorf("failed to release days: %w", err)
		}
		if err := s.occupy(ctx, tx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("leave request edited",
		zap.String("request_id", string(id)),
		zap.String("days", updated.Days.String()),
	)
	return &updated, nil
}

// =============================================================================
// DECISIONS
// =============================================================================

// Approve moves a pending request to approved, turns its pending days into
// used days and publishes it to the shared calendar.
func (s *Service) Approve(ctx context.Context, actor generic.Actor, id RequestID) (*LeaveRequest, error) {
	if !actor.CanDecideLeave() {
		return nil, &generic.AuthorizationError{ActorID: string(actor.UserID), Action: "approve leave"}
	}
	req, emp, lt, err := s.transition(ctx, actor, id, func(tx Store, req *LeaveRequest, acct *Account) error {
		if req.Status != StatusPending {
			return &generic.StateError{Message: "request is not pending", Current: string(req.Status)}
		}
		now := s.Clock.Now()
		req.Status = StatusApproved
		req.ApproverID = actor.UserID
		req.DecidedAt = &now
		return s.Ledger.Consume(ctx, tx, acct, *req, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, *req, emp, lt)
	s.Logger.Info("leave request approved",
		zap.String("request_id", string(id)),
		zap.String("approver_id", string(actor.UserID)),
	)
	return req, nil
}

// Reject moves a pending request to rejected and releases its pending days.
func (s *Service) Reject(ctx context.Context, actor generic.Actor, id RequestID, reason string) (*LeaveRequest, error) {
	if !actor.CanDecideLeave() {
		return nil, &generic.AuthorizationError{ActorID: string(actor.UserID), Action: "reject leave"}
	}
	req, _, _, err := s.transition(ctx, actor, id, func(tx Store, req *LeaveRequest, acct *Account) error {
		if req.Status != StatusPending {
			return &generic.StateError{Message: "request is not pending", Current: string(req.Status)}
		}
		now := s.Clock.Now()
		req.Status = StatusRejected
		req.ApproverID = actor.UserID
		req.DecisionReason = reason
		req.DecidedAt = &now
		if err := s.Ledger.Release(ctx, tx, acct, *req, actor.UserID, "rejected: "+reason); err != nil {
			return err
		}
		return tx.ReleaseDays(ctx, req.ID)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("leave request rejected",
		zap.String("request_id", string(id)),
		zap.String("approver_id", string(actor.UserID)),
	)
	return req, nil
}

// Cancel withdraws the actor's own pending request.
func (s *Service) Cancel(ctx context.Context, actor generic.Actor, id RequestID) (*LeaveRequest, error) {
	req, _, _, err := s.transition(ctx, actor, id, func(tx Store, req *LeaveRequest, acct *Account) error {
		if !actor.Owns(req.EmployeeID) {
			return &generic.AuthorizationError{ActorID: string(actor.UserID), Action: "cancel another employee's leave"}
		}
		if req.Status != StatusPending {
			return &generic.StateError{Message: "only pending requests can be cancelled", Current: string(req.Status)}
		}
		req.Status = StatusCancelled
		if err := s.Ledger.Release(ctx, tx, acct, *req, actor.UserID, "cancelled by employee"); err != nil {
			return err
		}
		return tx.ReleaseDays(ctx, req.ID)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("leave request cancelled", zap.String("request_id", string(id)))
	return req, nil
}

// Reset reverts an approved or rejected request to pending, reversing
// exactly the balance delta its decision applied. Resetting a rejected
// request reserves its days again, so it fails with a ConflictError or an
// InsufficientBalanceError when they were booked or spent in the meantime.
func (s *Service) Reset(ctx context.Context, actor generic.Actor, id RequestID, reason string) (*LeaveRequest, error) {
	if !actor.CanDecideLeave() {
		return nil, &generic.AuthorizationError{ActorID: string(actor.UserID), Action: "reset leave"}
	}
	req, _, _, err := s.transition(ctx, actor, id, func(tx Store, req *LeaveRequest, acct *Account) error {
		note := "reset: " + reason
		switch req.Status {
		case StatusApproved:
			if err := s.Ledger.UndoConsume(ctx, tx, acct, *req, actor.UserID, note); err != nil {
				return err
			}
		case StatusRejected:
			if err := s.checkConflicts(ctx, tx, req.EmployeeID, acct.LeaveType, Normalized{
				Period:          req.Period(),
				Days:            req.Days,
				DayType:         req.DayType,
				HalfDayPosition: req.HalfDayPosition,
			}, req.ID); err != nil {
				return err
			}
			if err := s.Ledger.Restore(ctx, tx, acct, *req, actor.UserID, note); err != nil {
				return err
			}
			if err := s.occupy(ctx, tx, *req); err != nil {
				return err
			}
		default:
			return &generic.StateError{Message: "only approved or rejected requests can be reset", Current: string(req.Status)}
		}
		req.Status = StatusPending
		req.ApproverID = ""
		req.DecisionReason = reason
		req.DecidedAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("leave request reset",
		zap.String("request_id", string(id)),
		zap.String("actor_id", string(actor.UserID)),
	)
	return req, nil
}

// transition loads a request and its balance inside one transaction, lets
// mutate change both, and persists the request conditionally on the status
// it was loaded with.
func (s *Service) transition(
	ctx context.Context,
	actor generic.Actor,
	id RequestID,
	mutate func(tx Store, req *LeaveRequest, acct *Account) error,
) (*LeaveRequest, *Employee, *LeaveType, error) {
	pre, err := s.request(ctx, s.Store, id)
	if err != nil {
		return nil, nil, nil, err
	}
	emp, err := s.employee(ctx, pre.EmployeeID)
	if err != nil {
		return nil, nil, nil, err
	}

	var (
		result LeaveRequest
		lt     *LeaveType
	)
	err = s.Store.WithTx(ctx, func(tx Store) error {
		req, err := s.request(ctx, tx, id)
		if err != nil {
			return err
		}
		lt, err = s.leaveType(ctx, tx, req.LeaveTypeID)
		if err != nil {
			return err
		}
		acct, err := s.Ledger.Open(ctx, tx, balanceKey(*req), *lt, emp.StartDate)
		if err != nil {
			return err
		}

		loadedStatus := req.Status
		next := *req
		if err := mutate(tx, &next, acct); err != nil {
			return err
		}
		next.UpdatedAt = s.Clock.Now()
		if err := s.update(ctx, tx, next, loadedStatus); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return &result, emp, lt, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns a request visible to the actor.
func (s *Service) Get(ctx context.Context, actor generic.Actor, id RequestID) (*LeaveRequest, error) {
	req, err := s.request(ctx, s.Store, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(req.EmployeeID) && !actor.CanDecideLeave() {
		return nil, &generic.AuthorizationError{ActorID: string(actor.UserID), Action: "view another employee's leave"}
	}
	return req, nil
}

// List returns requests matching filter. Employees only ever see their own.
func (s *Service) List(ctx context.Context, actor generic.Actor, filter RequestFilter) ([]LeaveRequest, error) {
	if !actor.CanDecideLeave() {
		if actor.EmployeeID == "" {
			return nil, &generic.AuthorizationError{ActorID: string(actor.UserID), Action: "list leave"}
		}
		if filter.EmployeeID != "" && filter.EmployeeID != actor.EmployeeID {
			return nil, &generic.AuthorizationError{ActorID: string(actor.UserID), Action: "list another employee's leave"}
		}
		filter.EmployeeID = actor.EmployeeID
	}
	reqs, err := s.Store.ListRequests(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return reqs, nil
}

// History returns the balance movements recorded for a request.
func (s *Service) History(ctx context.Context, actor generic.Actor, id RequestID) ([]generic.Movement, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	movements, err := s.Store.Movements(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load movements: %w", err)
	}
	return movements, nil
}

// LeaveTypes returns the leave type catalog.
func (s *Service) LeaveTypes(ctx context.Context) ([]LeaveType, error) {
	types, err := s.Store.LeaveTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave types: %w", err)
	}
	return types, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func balanceKey(r LeaveRequest) BalanceKey {
	return BalanceKey{EmployeeID: r.EmployeeID, LeaveTypeID: r.LeaveTypeID, Year: r.Year()}
}

func (s *Service) employee(ctx context.Context, id generic.EmployeeID) (*Employee, error) {
	emp, err := s.Directory.Employee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}
	if emp == nil {
		return nil, &generic.NotFoundError{Kind: "employee", ID: string(id)}
	}
	return emp, nil
}

func (s *Service) leaveType(ctx context.Context, st Store, id LeaveTypeID) (*LeaveType, error) {
	if id == "" {
		return nil, generic.FieldError("leave_type_id", "is required")
	}
	lt, err := st.LeaveType(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load leave type: %w", err)
	}
	if lt == nil {
		return nil, &generic.NotFoundError{Kind: "leave type", ID: string(id)}
	}
	return lt, nil
}

func (s *Service) request(ctx context.Context, st Store, id RequestID) (*LeaveRequest, error) {
	req, err := st.Request(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if req == nil {
		return nil, &generic.NotFoundError{Kind: "leave request", ID: string(id)}
	}
	return req, nil
}

func (s *Service) update(ctx context.Context, tx Store, req LeaveRequest, expected RequestStatus) error {
	err := tx.UpdateRequest(ctx, req, expected)
	if errors.Is(err, generic.ErrConcurrentModification) {
		return &generic.StateError{Message: "request was modified concurrently", Current: string(expected)}
	}
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	return nil
}

func (s *Service) checkConflicts(ctx context.Context, tx Store, employeeID generic.EmployeeID, lt LeaveType, n Normalized, exclude RequestID) error {
	existing, err := tx.OverlappingRequests(ctx, employeeID, n.Period, exclude)
	if err != nil {
		return fmt.Errorf("failed to load overlapping requests: %w", err)
	}
	dates := DetectConflicts(Candidate{
		Period:          n.Period,
		Days:            n.Days,
		Code:            lt.Code,
		DayType:         n.DayType,
		HalfDayPosition: n.HalfDayPosition,
	}, existing)
	if len(dates) > 0 {
		return &generic.ConflictError{Dates: dates}
	}
	return nil
}

// occupy books the request's days, translating the store's uniqueness
// violation into a ConflictError naming the days.
func (s *Service) occupy(ctx context.Context, tx Store, req LeaveRequest) error {
	err := tx.OccupyDays(ctx, req)
	if errors.Is(err, generic.ErrDuplicateDay) {
		return &generic.ConflictError{Dates: req.Period().Days()}
	}
	if err != nil {
		return fmt.Errorf("failed to book days: %w", err)
	}
	return nil
}

// publish writes the approved request to the shared calendar. The approval
// is already committed, so a calendar failure is logged and not returned.
func (s *Service) publish(ctx context.Context, req LeaveRequest, emp *Employee, lt *LeaveType) {
	if s.Calendar == nil {
		return
	}
	entry := CalendarEntry{
		ID:              uuid.NewString(),
		EmployeeID:      req.EmployeeID,
		Title:           fmt.Sprintf("%s — %s", emp.Name, lt.Name),
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		AllDay:          true,
		SourceRequestID: req.ID,
	}
	if err := s.Calendar.CreateCalendarEntry(ctx, entry); err != nil {
		s.Logger.Warn("failed to create calendar entry",
			zap.String("request_id", string(req.ID)),
			zap.Error(err),
		)
	}
}
