/*
Package generic provides the domain-agnostic building blocks of the engine.

PURPOSE:
  Time-off accounting and payroll both need the same primitives: calendar
  days and ranges, exact decimal quantities with explicit rounding modes,
  an authenticated actor passed explicitly into every operation, a
  transactional store contract, and one error taxonomy. They live here so
  the domain packages share one vocabulary.

KEY CONCEPTS IN THIS FILE (types.go):
  - Actor: who is calling (user id, role, linked employee id)
  - Identifiers: type-safe ids so employee and request ids don't mix
  - Decimal helpers: half-day steps and the rounding modes payroll depends on

DESIGN PRINCIPLES:
  1. Precision: day counts and money are decimal.Decimal, never float64
  2. Explicit actors: no ambient session state reaches the engine
  3. Type Safety: strong typing for ids

SEE ALSO:
  - time.go, period.go: calendar arithmetic
  - errors.go: error taxonomy
  - store.go: transactional store contract
  - ledger.go: append-only balance movement journal
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type UserID string

// =============================================================================
// ACTOR - Authenticated caller, resolved outside the engine
// =============================================================================

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleHR       Role = "hr"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleHR, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller of an engine operation.
// EmployeeID is empty for users without an employee record (e.g. a pure admin).
type Actor struct {
	UserID     UserID
	Role       Role
	EmployeeID EmployeeID
}

// CanDecideLeave reports whether the actor may approve, reject or reset requests.
func (a Actor) CanDecideLeave() bool {
	return a.Role == RoleManager || a.Role == RoleHR || a.Role == RoleAdmin
}

// CanRunPayroll reports whether the actor may generate payroll batches.
func (a Actor) CanRunPayroll() bool {
	return a.Role == RoleHR || a.Role == RoleAdmin
}

// Owns reports whether the actor is the given employee.
func (a Actor) Owns(employeeID EmployeeID) bool {
	return a.EmployeeID != "" && a.EmployeeID == employeeID
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

var (
	HalfDay = decimal.RequireFromString("0.5")
	OneDay  = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// FloorToHalf rounds x down to the nearest multiple of 0.5.
func FloorToHalf(x decimal.Decimal) decimal.Decimal {
	return x.Mul(decimal.NewFromInt(2)).Floor().Div(decimal.NewFromInt(2))
}

// IsHalfStep reports whether x is a multiple of 0.5.
func IsHalfStep(x decimal.Decimal) bool {
	return x.Mul(decimal.NewFromInt(2)).IsInteger()
}

// RoundHalfUp rounds a non-negative amount to whole units, halves going up.
func RoundHalfUp(x decimal.Decimal) decimal.Decimal {
	return x.Round(0)
}

// Percent returns x * rate / 100.
func Percent(x, rate decimal.Decimal) decimal.Decimal {
	return x.Mul(rate).Div(hundred)
}
