package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/warp/hr-engine/generic"
	"github.com/warp/hr-engine/payroll"
	"github.com/warp/hr-engine/timeoff"
)

// =============================================================================
// EMPLOYEE DIRECTORY (timeoff.Directory)
// =============================================================================

// SaveEmployee inserts or updates an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp timeoff.Employee) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, start_date, date_of_birth, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			date_of_birth = excluded.date_of_birth,
			active = excluded.active
	`, emp.ID, emp.Name, nullDate(emp.StartDate), nullDate(emp.DateOfBirth), emp.Active, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// Employee returns nil, nil for an unknown id.
func (s *Store) Employee(ctx context.Context, id generic.EmployeeID) (*timeoff.Employee, error) {
	var (
		emp       timeoff.Employee
		start     sql.NullString
		birthDate sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, start_date, date_of_birth, active FROM employees WHERE id = ?", id,
	).Scan(&emp.ID, &emp.Name, &start, &birthDate, &emp.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan employee: %w", err)
	}
	if emp.StartDate, err = parseNullDate(start); err != nil {
		return nil, err
	}
	if emp.DateOfBirth, err = parseNullDate(birthDate); err != nil {
		return nil, err
	}
	return &emp, nil
}

// =============================================================================
// CALENDAR (timeoff.CalendarWriter)
// =============================================================================

func (s *Store) CreateCalendarEntry(ctx context.Context, entry timeoff.CalendarEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calendar_entries
		(id, employee_id, title, start_date, end_date, all_day, source_request_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.EmployeeID, entry.Title, formatDate(entry.StartDate), formatDate(entry.EndDate),
		entry.AllDay, entry.SourceRequestID, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to create calendar entry: %w", err)
	}
	return nil
}

// CalendarEntries returns an employee's entries by start date.
func (s *Store) CalendarEntries(ctx context.Context, employeeID generic.EmployeeID) ([]timeoff.CalendarEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, title, start_date, end_date, all_day, source_request_id
		FROM calendar_entries
		WHERE employee_id = ?
		ORDER BY start_date
	`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar entries: %w", err)
	}
	defer rows.Close()

	var entries []timeoff.CalendarEntry
	for rows.Next() {
		var (
			e          timeoff.CalendarEntry
			start, end string
			source     sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.Title, &start, &end, &e.AllDay, &source); err != nil {
			return nil, fmt.Errorf("failed to scan calendar entry: %w", err)
		}
		if e.StartDate, err = generic.ParseTimePoint(start); err != nil {
			return nil, err
		}
		if e.EndDate, err = generic.ParseTimePoint(end); err != nil {
			return nil, err
		}
		e.SourceRequestID = timeoff.RequestID(source.String)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// SALARIES
// =============================================================================

// SaveSalary inserts or replaces an employee's salary record.
func (s *Store) SaveSalary(ctx context.Context, employeeID generic.EmployeeID, salary payroll.SalaryInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO salaries
		(employee_id, basic_salary, allowances, employee_rate, employer_rate, tax_rate, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			basic_salary = excluded.basic_salary,
			allowances = excluded.allowances,
			employee_rate = excluded.employee_rate,
			employer_rate = excluded.employer_rate,
			tax_rate = excluded.tax_rate,
			updated_at = excluded.updated_at
	`, employeeID, salary.BasicSalary, salary.Allowances,
		salary.EmployeeRate, salary.EmployerRate, salary.TaxRate, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save salary: %w", err)
	}
	return nil
}
