package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/hr-engine/generic"
	"github.com/warp/hr-engine/payroll"
)

// =============================================================================
// PAYROLL STORE (payroll.Store interface)
// =============================================================================

// EligibleEmployees returns active employees that have a salary record.
func (s *Store) EligibleEmployees(ctx context.Context) ([]payroll.Compensation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.name, e.date_of_birth,
		       s.basic_salary, s.allowances, s.employee_rate, s.employer_rate, s.tax_rate
		FROM employees e
		JOIN salaries s ON s.employee_id = e.id
		WHERE e.active = 1
		ORDER BY e.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible employees: %w", err)
	}
	defer rows.Close()

	var out []payroll.Compensation
	for rows.Next() {
		var (
			c   payroll.Compensation
			dob sql.NullString
		)
		err := rows.Scan(&c.EmployeeID, &c.Name, &dob,
			&c.Salary.BasicSalary, &c.Salary.Allowances,
			&c.Salary.EmployeeRate, &c.Salary.EmployerRate, &c.Salary.TaxRate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee compensation: %w", err)
		}
		if c.DateOfBirth, err = parseNullDate(dob); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) PayslipExists(ctx context.Context, employeeID generic.EmployeeID, period generic.Period) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM payslips
		WHERE employee_id = ? AND period_start = ? AND period_end = ?
	`, employeeID, formatDate(period.Start), formatDate(period.End)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check payslip: %w", err)
	}
	return n > 0, nil
}

// YearToDateOrdinaryWage sums the ordinary wage of the employee's payslips
// in before's year that start before it. SQL SUM would coerce the TEXT
// amounts to float, so the sum is taken in decimal.
func (s *Store) YearToDateOrdinaryWage(ctx context.Context, employeeID generic.EmployeeID, before generic.TimePoint) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ordinary_wage FROM payslips
		WHERE employee_id = ? AND period_start >= ? AND period_start < ?
	`, employeeID, formatDate(generic.StartOfYear(before.Year())), formatDate(before))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query year-to-date wage: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var ow decimal.Decimal
		if err := rows.Scan(&ow); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan ordinary wage: %w", err)
		}
		total = total.Add(ow)
	}
	return total, rows.Err()
}

// InsertPayslip returns generic.ErrDuplicateKey when the employee already
// has a payslip for the period.
func (s *Store) InsertPayslip(ctx context.Context, p payroll.Payslip) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payslips
		(id, employee_id, period_start, period_end, basic_salary, allowances, overtime, bonus,
		 gross_salary, ordinary_wage, additional_wage, employee_contribution, employer_contribution,
		 income_tax, other_deductions, total_deductions, net_salary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.EmployeeID, formatDate(p.PeriodStart), formatDate(p.PeriodEnd),
		p.BasicSalary, p.Allowances, p.Overtime, p.Bonus,
		p.GrossSalary, p.OrdinaryWage, p.AdditionalWage, p.EmployeeContribution, p.EmployerContribution,
		p.IncomeTax, p.OtherDeductions, p.TotalDeductions, p.NetSalary, formatTime(p.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert payslip: %w", err)
	}
	return nil
}

// Payslips returns an employee's payslips, newest period first.
func (s *Store) Payslips(ctx context.Context, employeeID generic.EmployeeID) ([]payroll.Payslip, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, period_start, period_end, basic_salary, allowances, overtime, bonus,
		       gross_salary, ordinary_wage, additional_wage, employee_contribution, employer_contribution,
		       income_tax, other_deductions, total_deductions, net_salary, created_at
		FROM payslips
		WHERE employee_id = ?
		ORDER BY period_start DESC
	`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payslips: %w", err)
	}
	defer rows.Close()

	var slips []payroll.Payslip
	for rows.Next() {
		var (
			p                   payroll.Payslip
			start, end, created string
		)
		err := rows.Scan(&p.ID, &p.EmployeeID, &start, &end,
			&p.BasicSalary, &p.Allowances, &p.Overtime, &p.Bonus,
			&p.GrossSalary, &p.OrdinaryWage, &p.AdditionalWage, &p.EmployeeContribution, &p.EmployerContribution,
			&p.IncomeTax, &p.OtherDeductions, &p.TotalDeductions, &p.NetSalary, &created)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payslip: %w", err)
		}
		if p.PeriodStart, err = generic.ParseTimePoint(start); err != nil {
			return nil, err
		}
		if p.PeriodEnd, err = generic.ParseTimePoint(end); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(created)
		slips = append(slips, p)
	}
	return slips, rows.Err()
}
