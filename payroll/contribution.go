// Package payroll computes statutory wage contributions and generates
// payslips for a pay period.
//
// All amounts are decimal. The rounding modes are part of the contract:
// the total contribution and income tax round half up to whole units, the
// employee share is always floored, and the employer share is whatever
// remains of the rounded total, so the two always reconcile exactly.
package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/hr-engine/generic"
)

// Ceilings are the wage amounts subject to contribution.
type Ceilings struct {
	MonthlyOrdinary decimal.Decimal
	AnnualTotal     decimal.Decimal
}

// DefaultCeilings is 8000 per month of ordinary wage and 102000 per year.
var DefaultCeilings = Ceilings{
	MonthlyOrdinary: decimal.NewFromInt(8000),
	AnnualTotal:     decimal.NewFromInt(102000),
}

// DefaultTaxRate is the flat income tax rate applied to gross pay.
var DefaultTaxRate = decimal.RequireFromString("0.15")

// Rates are contribution percentages.
type Rates struct {
	Employee decimal.Decimal
	Employer decimal.Decimal
}

type ageTier struct {
	maxAge int
	rates  Rates
}

// Upper bounds are inclusive; the last tier covers everyone older.
var ageTiers = []ageTier{
	{maxAge: 55, rates: Rates{Employee: decimal.NewFromInt(20), Employer: decimal.NewFromInt(17)}},
	{maxAge: 60, rates: Rates{Employee: decimal.NewFromInt(18), Employer: decimal.NewFromInt(16)}},
	{maxAge: 65, rates: Rates{Employee: decimal.RequireFromString("12.5"), Employer: decimal.RequireFromString("12.5")}},
	{maxAge: 70, rates: Rates{Employee: decimal.RequireFromString("7.5"), Employer: decimal.NewFromInt(9)}},
}

var oldestTier = Rates{Employee: decimal.NewFromInt(5), Employer: decimal.RequireFromString("7.5")}

// RatesForAge returns the contribution rates of the age tier.
func RatesForAge(age int) Rates {
	for _, t := range ageTiers {
		if age <= t.maxAge {
			return t.rates
		}
	}
	return oldestTier
}

// Age is the number of completed years between dob and today. A Feb 29
// birthday counts as not yet reached on Feb 28 of a common year.
func Age(dob, today generic.TimePoint) int {
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age
}

// Contribution is the result of one contribution calculation.
type Contribution struct {
	CappedOrdinaryWage   decimal.Decimal
	CappedAdditionalWage decimal.Decimal
	TotalWage            decimal.Decimal
	Rates                Rates
	TotalContribution    decimal.Decimal
	EmployeeContribution decimal.Decimal
	EmployerContribution decimal.Decimal
}

// CalculateContribution applies the ceilings and the age tier to one
// month's wages. ytdOrdinaryWage is ordinary wage already paid this year.
func CalculateContribution(ordinaryWage, additionalWage decimal.Decimal, age int, ytdOrdinaryWage decimal.Decimal) Contribution {
	return DefaultCeilings.Calculate(ordinaryWage, additionalWage, RatesForAge(age), ytdOrdinaryWage)
}

// Calculate is CalculateContribution with explicit ceilings and rates.
func (c Ceilings) Calculate(ordinaryWage, additionalWage decimal.Decimal, rates Rates, ytdOrdinaryWage decimal.Decimal) Contribution {
	cappedOW := decimal.Min(ordinaryWage, c.MonthlyOrdinary)
	awRoom := decimal.Max(c.AnnualTotal.Sub(ytdOrdinaryWage).Sub(cappedOW), decimal.Zero)
	cappedAW := decimal.Min(additionalWage, awRoom)
	total := cappedOW.Add(cappedAW)

	totalContribution := generic.RoundHalfUp(generic.Percent(total, rates.Employee.Add(rates.Employer)))
	employee := generic.Percent(total, rates.Employee).Floor()

	return Contribution{
		CappedOrdinaryWage:   cappedOW,
		CappedAdditionalWage: cappedAW,
		TotalWage:            total,
		Rates:                rates,
		TotalContribution:    totalContribution,
		EmployeeContribution: employee,
		EmployerContribution: totalContribution.Sub(employee),
	}
}

// =============================================================================
// PAYROLL
// =============================================================================

// PayrollInput is one employee's pay for one period.
type PayrollInput struct {
	BasicSalary     decimal.Decimal
	Allowances      decimal.Decimal
	DateOfBirth     generic.TimePoint
	Overtime        decimal.Decimal
	Bonus           decimal.Decimal
	OtherDeductions decimal.Decimal
	// TaxRate is a fraction; nil means DefaultTaxRate.
	TaxRate         *decimal.Decimal
	YTDOrdinaryWage decimal.Decimal
	// RateOverride replaces the age tier when set.
	RateOverride *Rates
}

// PayrollResult is the computed pay breakdown.
type PayrollResult struct {
	OrdinaryWage    decimal.Decimal
	AdditionalWage  decimal.Decimal
	GrossSalary     decimal.Decimal
	Age             int
	Contribution    Contribution
	IncomeTax       decimal.Decimal
	OtherDeductions decimal.Decimal
	TotalDeductions decimal.Decimal
	NetSalary       decimal.Decimal
}

// CalculatePayroll computes gross, contributions, tax and net pay with the
// default ceilings.
func CalculatePayroll(in PayrollInput, today generic.TimePoint) PayrollResult {
	return DefaultCeilings.Payroll(in, today)
}

// Payroll is CalculatePayroll with explicit ceilings.
func (c Ceilings) Payroll(in PayrollInput, today generic.TimePoint) PayrollResult {
	ordinary := in.BasicSalary.Add(in.Allowances)
	additional := in.Overtime.Add(in.Bonus)
	gross := ordinary.Add(additional)

	age := Age(in.DateOfBirth, today)
	rates := RatesForAge(age)
	if in.RateOverride != nil {
		rates = *in.RateOverride
	}
	contribution := c.Calculate(ordinary, additional, rates, in.YTDOrdinaryWage)

	taxRate := DefaultTaxRate
	if in.TaxRate != nil {
		taxRate = *in.TaxRate
	}
	tax := generic.RoundHalfUp(gross.Mul(taxRate))
	deductions := contribution.EmployeeContribution.Add(tax).Add(in.OtherDeductions)

	return PayrollResult{
		OrdinaryWage:    ordinary,
		AdditionalWage:  additional,
		GrossSalary:     gross,
		Age:             age,
		Contribution:    contribution,
		IncomeTax:       tax,
		OtherDeductions: in.OtherDeductions,
		TotalDeductions: deductions,
		NetSalary:       gross.Sub(deductions),
	}
}
