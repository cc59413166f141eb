// Package timeoff implements leave accounting: proration of annual
// entitlement, half-day aware day counts, conflict detection, the balance
// ledger and the request lifecycle (submit, edit, approve, reject, cancel,
// reset).
package timeoff

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/hr-engine/generic"
)

// =============================================================================
// LEAVE TYPES
// =============================================================================

type LeaveTypeID string

// Code is the short leave type code.
type Code string

const (
	CodeAnnual    Code = "AL"
	CodeMedical   Code = "MC"
	CodeChildcare Code = "CL"
	CodeNoPay     Code = "NPL"
)

// LeaveType describes how a kind of leave is entitled and counted.
type LeaveType struct {
	ID                 LeaveTypeID
	Code               Code
	Name               string
	DefaultEntitlement decimal.Decimal
	Paid               bool
	Prorated           bool
	HalfDayEligible    bool
}

// DefaultLeaveTypes is the catalog seeded into a fresh store.
func DefaultLeaveTypes() []LeaveType {
	return []LeaveType{
		{ID: "al", Code: CodeAnnual, Name: "Annual Leave", DefaultEntitlement: decimal.NewFromInt(14), Paid: true, Prorated: true, HalfDayEligible: true},
		{ID: "mc", Code: CodeMedical, Name: "Medical Leave", DefaultEntitlement: decimal.NewFromInt(14), Paid: true, Prorated: true},
		{ID: "cl", Code: CodeChildcare, Name: "Childcare Leave", DefaultEntitlement: decimal.NewFromInt(6), Paid: true},
		{ID: "npl", Code: CodeNoPay, Name: "No-Pay Leave", DefaultEntitlement: decimal.NewFromInt(30)},
	}
}

// =============================================================================
// DAY TYPE / HALF-DAY POSITION
// =============================================================================

type DayType string

const (
	FullDay DayType = "FULL_DAY"
	AMHalf  DayType = "AM_HALF"
	PMHalf  DayType = "PM_HALF"
)

func (d DayType) IsHalf() bool { return d == AMHalf || d == PMHalf }

func (d DayType) valid() bool { return d == FullDay || d == AMHalf || d == PMHalf }

// HalfDayPosition marks which boundary day of a multi-day request is a half day.
type HalfDayPosition string

const (
	HalfDayNone  HalfDayPosition = ""
	HalfDayFirst HalfDayPosition = "first"
	HalfDayLast  HalfDayPosition = "last"
)

func (p HalfDayPosition) valid() bool {
	return p == HalfDayNone || p == HalfDayFirst || p == HalfDayLast
}

// =============================================================================
// REQUEST
// =============================================================================

type RequestID string

type RequestStatus string

const (
	StatusPending   RequestStatus = "PENDING"
	StatusApproved  RequestStatus = "APPROVED"
	StatusRejected  RequestStatus = "REJECTED"
	StatusCancelled RequestStatus = "CANCELLED"
)

// Holds reports whether a request in this status occupies its days.
func (s RequestStatus) Holds() bool {
	return s == StatusPending || s == StatusApproved
}

// LeaveRequest is one employee's request for a range of days off.
type LeaveRequest struct {
	ID              RequestID
	EmployeeID      generic.EmployeeID
	LeaveTypeID     LeaveTypeID
	StartDate       generic.TimePoint
	EndDate         generic.TimePoint
	Days            decimal.Decimal
	DayType         DayType
	HalfDayPosition HalfDayPosition
	Status          RequestStatus
	Reason          string
	DecisionReason  string
	ApproverID      generic.UserID
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DecidedAt       *time.Time
}

// Period is the request's inclusive date range.
func (r LeaveRequest) Period() generic.Period {
	return generic.Period{Start: r.StartDate, End: r.EndDate}
}

// Year is the balance year the request is charged against.
func (r LeaveRequest) Year() int {
	return r.StartDate.Year()
}

// =============================================================================
// BALANCE
// =============================================================================

// BalanceKey identifies one balance row.
type BalanceKey struct {
	EmployeeID  generic.EmployeeID
	LeaveTypeID LeaveTypeID
	Year        int
}

// Balance holds the raw counters for one (employee, leave type, year).
// Entitlement is the unprorated value; proration is applied on read.
type Balance struct {
	Key         BalanceKey
	Entitlement decimal.Decimal
	CarriedOver decimal.Decimal
	Used        decimal.Decimal
	Pending     decimal.Decimal
	UpdatedAt   time.Time
}

// Validate rejects provisioned amounts that are negative or not in steps
// of half a day.
func (b Balance) Validate() error {
	fields := map[string]string{}
	for name, v := range map[string]decimal.Decimal{
		"entitlement":  b.Entitlement,
		"carried_over": b.CarriedOver,
		"used":         b.Used,
		"pending":      b.Pending,
	} {
		switch {
		case v.IsNegative():
			fields[name] = "must not be negative"
		case !generic.IsHalfStep(v):
			fields[name] = "must be a multiple of 0.5"
		}
	}
	if len(fields) > 0 {
		return &generic.ValidationError{Message: "invalid balance", Fields: fields}
	}
	return nil
}

// =============================================================================
// EXTERNAL COLLABORATORS
// =============================================================================

// Employee is the slice of the employee record the engine reads.
type Employee struct {
	ID          generic.EmployeeID
	Name        string
	StartDate   *generic.TimePoint
	DateOfBirth *generic.TimePoint
	Active      bool
}

// CalendarEntry is written to the shared calendar when leave is approved.
type CalendarEntry struct {
	ID              string
	EmployeeID      generic.EmployeeID
	Title           string
	StartDate       generic.TimePoint
	EndDate         generic.TimePoint
	AllDay          bool
	SourceRequestID RequestID
}
