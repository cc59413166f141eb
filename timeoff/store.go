package timeoff

import (
	"context"

	"github.com/warp/hr-engine/generic"
)

// Store is the persistence the lifecycle manager needs. Instances handed
// out by TxStore.WithTx are bound to one database transaction.
type Store interface {
	LeaveType(ctx context.Context, id LeaveTypeID) (*LeaveType, error)
	LeaveTypes(ctx context.Context) ([]LeaveType, error)

	// Balance returns nil, nil when the row does not exist yet.
	Balance(ctx context.Context, key BalanceKey) (*Balance, error)
	InsertBalance(ctx context.Context, b Balance) error
	UpdateBalance(ctx context.Context, b Balance) error

	// Request returns nil, nil when the request does not exist.
	Request(ctx context.Context, id RequestID) (*LeaveRequest, error)
	InsertRequest(ctx context.Context, r LeaveRequest) error
	// UpdateRequest writes r only if the stored status still equals expected;
	// otherwise it returns generic.ErrConcurrentModification.
	UpdateRequest(ctx context.Context, r LeaveRequest, expected RequestStatus) error
	ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error)
	// OverlappingRequests returns the employee's pending and approved
	// requests whose range shares a day with period, excluding one id.
	OverlappingRequests(ctx context.Context, employeeID generic.EmployeeID, period generic.Period, exclude RequestID) ([]LeaveRequest, error)
	CountRequests(ctx context.Context, key BalanceKey, status RequestStatus) (int, error)

	// OccupyDays books every day of r for its employee; a day already booked
	// by another request yields generic.ErrDuplicateDay.
	OccupyDays(ctx context.Context, r LeaveRequest) error
	ReleaseDays(ctx context.Context, id RequestID) error

	AppendMovement(ctx context.Context, m generic.Movement) error
	Movements(ctx context.Context, requestID RequestID) ([]generic.Movement, error)
}

// TxStore is a Store that can open transactions.
type TxStore interface {
	Store
	generic.TxStore[Store]
}

// Directory resolves employee records owned by another subsystem.
type Directory interface {
	// Employee returns nil, nil for unknown ids.
	Employee(ctx context.Context, id generic.EmployeeID) (*Employee, error)
}

// CalendarWriter publishes approved leave to the shared calendar.
type CalendarWriter interface {
	CreateCalendarEntry(ctx context.Context, entry CalendarEntry) error
}

// RequestFilter narrows ListRequests. Zero values match everything.
type RequestFilter struct {
	EmployeeID generic.EmployeeID
	Status     RequestStatus
	Year       int
}
