package payroll

import (
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/hr-engine/generic"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, label ...string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%v: got %s, want %s", label, got, want)
}

// =============================================================================
// AGE TIERS
// =============================================================================

func TestRatesForAge_TierBoundaries(t *testing.T) {
	tests := []struct {
		age      int
		employee string
		employer string
	}{
		{22, "20", "17"},
		{55, "20", "17"},
		{56, "18", "16"},
		{60, "18", "16"},
		{61, "12.5", "12.5"},
		{65, "12.5", "12.5"},
		{66, "7.5", "9"},
		{70, "7.5", "9"},
		{71, "5", "7.5"},
		{90, "5", "7.5"},
	}
	for _, tt := range tests {
		r := RatesForAge(tt.age)
		assertAmount(t, tt.employee, r.Employee, "employee rate", strconv.Itoa(tt.age))
		assertAmount(t, tt.employer, r.Employer, "employer rate", strconv.Itoa(tt.age))
	}
}

func TestAge(t *testing.T) {
	leapling := generic.NewTimePoint(2000, time.February, 29)

	assert.Equal(t, 25, Age(leapling, generic.NewTimePoint(2026, time.February, 28)))
	assert.Equal(t, 26, Age(leapling, generic.NewTimePoint(2026, time.March, 1)))
	assert.Equal(t, 28, Age(leapling, generic.NewTimePoint(2028, time.February, 29)))

	dob := generic.NewTimePoint(1971, time.June, 15)
	assert.Equal(t, 54, Age(dob, generic.NewTimePoint(2026, time.June, 14)))
	assert.Equal(t, 55, Age(dob, generic.NewTimePoint(2026, time.June, 15)))
}

// =============================================================================
// CONTRIBUTIONS
// =============================================================================

func TestCalculateContribution_EmployeeShareFloored(t *testing.T) {
	// GIVEN: 3333 ordinary wage, age 30 (20% + 17%)
	// WHEN: Calculating
	c := CalculateContribution(d("3333"), decimal.Zero, 30, decimal.Zero)

	// THEN: Employee 666.6 -> 666, total 1233.21 -> 1233, employer the rest
	assertAmount(t, "666", c.EmployeeContribution)
	assertAmount(t, "1233", c.TotalContribution)
	assertAmount(t, "567", c.EmployerContribution)
}

func TestCalculateContribution_TotalRoundsHalfUp(t *testing.T) {
	// 5405 * 37% = 1999.85
	c := CalculateContribution(d("5405"), decimal.Zero, 30, decimal.Zero)

	assertAmount(t, "2000", c.TotalContribution)
	assertAmount(t, "1081", c.EmployeeContribution)
	assertAmount(t, "919", c.EmployerContribution)
}

func TestCalculateContribution_SharesAlwaysReconcile(t *testing.T) {
	for _, wage := range []string{"1", "999.99", "3333", "4567.89", "7999", "12345.67"} {
		for _, age := range []int{30, 58, 63, 68, 75} {
			c := CalculateContribution(d(wage), d("321.5"), age, d("40000"))
			assert.True(t,
				c.EmployeeContribution.Add(c.EmployerContribution).Equal(c.TotalContribution),
				"wage %s age %d", wage, age)
			assert.False(t, c.EmployerContribution.IsNegative(), "wage %s age %d", wage, age)
		}
	}
}

func TestCalculateContribution_OrdinaryWageCeiling(t *testing.T) {
	c := CalculateContribution(d("10000"), decimal.Zero, 30, decimal.Zero)

	assertAmount(t, "8000", c.CappedOrdinaryWage)
	assertAmount(t, "2960", c.TotalContribution)
	assertAmount(t, "1600", c.EmployeeContribution)
	assertAmount(t, "1360", c.EmployerContribution)
}

func TestCalculateContribution_AdditionalWageCeiling(t *testing.T) {
	tests := []struct {
		name string
		ytd  string
		want string
	}{
		{"plenty of room", "0", "5000"},
		{"partial room", "90000", "4000"},
		{"annual ceiling reached", "95000", "0"},
		{"ytd above ceiling", "120000", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CalculateContribution(d("8000"), d("5000"), 30, d(tt.ytd))
			assertAmount(t, tt.want, c.CappedAdditionalWage)
			assertAmount(t, "8000", c.CappedOrdinaryWage)
		})
	}
}

func TestCalculateContribution_OlderTier(t *testing.T) {
	// 58 years old: 18% + 16%
	c := CalculateContribution(d("5000"), decimal.Zero, 58, decimal.Zero)

	assertAmount(t, "900", c.EmployeeContribution)
	assertAmount(t, "1700", c.TotalContribution)
	assertAmount(t, "800", c.EmployerContribution)
}

// =============================================================================
// PAYROLL
// =============================================================================

func TestCalculatePayroll_NetSalary(t *testing.T) {
	// GIVEN: 5000 basic + 405 allowances, born 1990, default 15% tax
	in := PayrollInput{
		BasicSalary: d("5000"),
		Allowances:  d("405"),
		DateOfBirth: generic.NewTimePoint(1990, time.January, 1),
	}

	// WHEN: Computing pay in June 2026
	res := CalculatePayroll(in, generic.NewTimePoint(2026, time.June, 15))

	// THEN: 5405 - 1081 contribution - 811 tax
	assert.Equal(t, 36, res.Age)
	assertAmount(t, "5405", res.GrossSalary)
	assertAmount(t, "1081", res.Contribution.EmployeeContribution)
	assertAmount(t, "811", res.IncomeTax)
	assertAmount(t, "1892", res.TotalDeductions)
	assertAmount(t, "3513", res.NetSalary)
}

func TestCalculatePayroll_BonusIsAdditionalWage(t *testing.T) {
	rate := d("0.1")
	in := PayrollInput{
		BasicSalary:     d("8000"),
		Bonus:           d("2000"),
		OtherDeductions: d("50"),
		DateOfBirth:     generic.NewTimePoint(1990, time.January, 1),
		TaxRate:         &rate,
	}

	res := CalculatePayroll(in, generic.NewTimePoint(2026, time.June, 15))

	assertAmount(t, "8000", res.OrdinaryWage)
	assertAmount(t, "2000", res.AdditionalWage)
	assertAmount(t, "10000", res.GrossSalary)
	assertAmount(t, "2000", res.Contribution.EmployeeContribution)
	assertAmount(t, "1700", res.Contribution.EmployerContribution)
	assertAmount(t, "1000", res.IncomeTax)
	assertAmount(t, "3050", res.TotalDeductions)
	assertAmount(t, "6950", res.NetSalary)
}

func TestCalculatePayroll_ZeroTaxRate(t *testing.T) {
	zero := decimal.Zero
	res := CalculatePayroll(PayrollInput{
		BasicSalary: d("3333"),
		DateOfBirth: generic.NewTimePoint(1990, time.January, 1),
		TaxRate:     &zero,
	}, generic.NewTimePoint(2026, time.June, 15))

	assertAmount(t, "0", res.IncomeTax)
	assertAmount(t, "2667", res.NetSalary)
}

func TestCalculatePayroll_RateOverride(t *testing.T) {
	salary := SalaryInfo{
		BasicSalary:  d("5405"),
		EmployeeRate: decimal.NewNullDecimal(d("10")),
		EmployerRate: decimal.NewNullDecimal(d("10")),
	}
	res := CalculatePayroll(PayrollInput{
		BasicSalary:  salary.BasicSalary,
		DateOfBirth:  generic.NewTimePoint(1950, time.January, 1),
		RateOverride: salary.rateOverride(),
	}, generic.NewTimePoint(2026, time.June, 15))

	// 540.5 floored; total 1081
	assertAmount(t, "540", res.Contribution.EmployeeContribution)
	assertAmount(t, "541", res.Contribution.EmployerContribution)
}

func TestSalaryInfo_RateOverrideNeedsBothRates(t *testing.T) {
	assert.Nil(t, SalaryInfo{}.rateOverride())
	assert.Nil(t, SalaryInfo{EmployeeRate: decimal.NewNullDecimal(d("10"))}.rateOverride())
}
