package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/hr-engine/generic"
)

// SalaryInfo is an employee's standing compensation. Rate and tax
// overrides are optional.
type SalaryInfo struct {
	BasicSalary  decimal.Decimal
	Allowances   decimal.Decimal
	EmployeeRate decimal.NullDecimal
	EmployerRate decimal.NullDecimal
	TaxRate      decimal.NullDecimal
}

// rateOverride returns the override rates when both are set.
func (s SalaryInfo) rateOverride() *Rates {
	if !s.EmployeeRate.Valid || !s.EmployerRate.Valid {
		return nil
	}
	return &Rates{Employee: s.EmployeeRate.Decimal, Employer: s.EmployerRate.Decimal}
}

// Compensation is an active employee together with their salary record.
type Compensation struct {
	EmployeeID  generic.EmployeeID
	Name        string
	DateOfBirth *generic.TimePoint
	Salary      SalaryInfo
}

// Payslip is one employee's pay for one period. (EmployeeID, PeriodStart,
// PeriodEnd) is unique.
type Payslip struct {
	ID                   string
	EmployeeID           generic.EmployeeID
	PeriodStart          generic.TimePoint
	PeriodEnd            generic.TimePoint
	BasicSalary          decimal.Decimal
	Allowances           decimal.Decimal
	Overtime             decimal.Decimal
	Bonus                decimal.Decimal
	GrossSalary          decimal.Decimal
	OrdinaryWage         decimal.Decimal
	AdditionalWage       decimal.Decimal
	EmployeeContribution decimal.Decimal
	EmployerContribution decimal.Decimal
	IncomeTax            decimal.Decimal
	OtherDeductions      decimal.Decimal
	TotalDeductions      decimal.Decimal
	NetSalary            decimal.Decimal
	CreatedAt            time.Time
}

// Period is the payslip's pay period.
func (p Payslip) Period() generic.Period {
	return generic.Period{Start: p.PeriodStart, End: p.PeriodEnd}
}

// Store is the persistence the batch generator needs.
type Store interface {
	// EligibleEmployees returns active employees that have a salary record.
	EligibleEmployees(ctx context.Context) ([]Compensation, error)
	PayslipExists(ctx context.Context, employeeID generic.EmployeeID, period generic.Period) (bool, error)
	// YearToDateOrdinaryWage sums OrdinaryWage of the employee's payslips
	// in before's year whose period starts before it.
	YearToDateOrdinaryWage(ctx context.Context, employeeID generic.EmployeeID, before generic.TimePoint) (decimal.Decimal, error)
	// InsertPayslip returns generic.ErrDuplicateKey when a payslip for the
	// same employee and period already exists.
	InsertPayslip(ctx context.Context, p Payslip) error
	Payslips(ctx context.Context, employeeID generic.EmployeeID) ([]Payslip, error)
}
