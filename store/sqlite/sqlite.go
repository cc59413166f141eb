/*
Package sqlite provides a SQLite-backed implementation of the engine's
storage interfaces.

PURPOSE:
  One store serves the leave lifecycle, the employee directory, the shared
  calendar and payroll. In production the same schema runs on any
  relational database with only minor dialect changes.

INTERFACES IMPLEMENTED:
  timeoff.TxStore:        Leave types, balances, requests, day bookings, movements
  timeoff.Directory:      Employee records
  timeoff.CalendarWriter: Calendar entries for approved leave
  payroll.Store:          Salaries and payslips

KEY TABLES:
  leave_types:        Leave type catalog (seeded on migrate)
  leave_balances:     One row per (employee, leave type, year)
  leave_requests:     Requests and their current status
  leave_request_days: One row per day held by a pending/approved request
  leave_movements:    Journal of every balance change
  employees:          Employee records (start date, date of birth)
  salaries:           Standing compensation per employee
  payslips:           One row per (employee, pay period)
  calendar_entries:   Shared calendar

INDEXES:
  - idx_unique_employee_day: an employee cannot have two live requests on
    the same day, whatever the read-then-write interleaving
  - idx_unique_payslip_period: one payslip per employee and period
  - idx_requests_employee_dates: overlap lookups (hot path)

CONCURRENCY:
  The pool is limited to a single connection, so WithTx serializes
  writers. Status changes are conditional on the status the caller loaded
  (UPDATE ... WHERE id = ? AND status = ?).

STORAGE FORMATS:
  Dates are TEXT "2006-01-02", timestamps TEXT RFC3339, decimals TEXT via
  decimal's Scanner/Valuer. Booleans are INTEGER 0/1.

USAGE:
  store, err := sqlite.New("./data/hr.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - timeoff/store.go, payroll/store.go: Interface definitions
  - generic/store.go: TxStore
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/hr-engine/generic"
	"github.com/warp/hr-engine/payroll"
	"github.com/warp/hr-engine/timeoff"
)

var (
	_ timeoff.TxStore        = (*Store)(nil)
	_ timeoff.Directory      = (*Store)(nil)
	_ timeoff.CalendarWriter = (*Store)(nil)
	_ payroll.Store          = (*Store)(nil)
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements the store methods against either the database or a
// transaction.
type queries struct {
	q querier
}

// Store implements all storage interfaces using SQLite.
type Store struct {
	*queries
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: serializes writers and keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{queries: &queries{q: db}, db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema and seeds the leave type catalog.
func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		default_entitlement TEXT NOT NULL,
		paid INTEGER NOT NULL DEFAULT 0,
		prorated INTEGER NOT NULL DEFAULT 0,
		half_day_eligible INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT,
		date_of_birth TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL REFERENCES leave_types(id),
		year INTEGER NOT NULL,
		entitlement TEXT NOT NULL,
		carried_over TEXT NOT NULL,
		used TEXT NOT NULL,
		pending TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, leave_type_id, year)
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL REFERENCES leave_types(id),
		year INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days TEXT NOT NULL,
		day_type TEXT NOT NULL,
		half_day_position TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		decision_reason TEXT NOT NULL DEFAULT '',
		approver_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		decided_at TEXT
	);

	-- Overlap lookups (hot path)
	CREATE INDEX IF NOT EXISTS idx_requests_employee_dates
		ON leave_requests(employee_id, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_requests_balance
		ON leave_requests(employee_id, leave_type_id, year, status);

	-- Days held by pending/approved requests
	CREATE TABLE IF NOT EXISTS leave_request_days (
		request_id TEXT NOT NULL REFERENCES leave_requests(id),
		employee_id TEXT NOT NULL,
		day TEXT NOT NULL
	);

	-- CRITICAL: an employee cannot hold the same day twice
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_employee_day
		ON leave_request_days(employee_id, day);
	CREATE INDEX IF NOT EXISTS idx_request_days_request
		ON leave_request_days(request_id);

	CREATE TABLE IF NOT EXISTS leave_movements (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		movement_type TEXT NOT NULL,
		pending_delta TEXT NOT NULL,
		used_delta TEXT NOT NULL,
		actor_id TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movements_request
		ON leave_movements(request_id, created_at);

	CREATE TABLE IF NOT EXISTS salaries (
		employee_id TEXT PRIMARY KEY REFERENCES employees(id),
		basic_salary TEXT NOT NULL,
		allowances TEXT NOT NULL,
		employee_rate TEXT,
		employer_rate TEXT,
		tax_rate TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payslips (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		basic_salary TEXT NOT NULL,
		allowances TEXT NOT NULL,
		overtime TEXT NOT NULL,
		bonus TEXT NOT NULL,
		gross_salary TEXT NOT NULL,
		ordinary_wage TEXT NOT NULL,
		additional_wage TEXT NOT NULL,
		employee_contribution TEXT NOT NULL,
		employer_contribution TEXT NOT NULL,
		income_tax TEXT NOT NULL,
		other_deductions TEXT NOT NULL,
		total_deductions TEXT NOT NULL,
		net_salary TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: batch re-runs never create a second payslip
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_payslip_period
		ON payslips(employee_id, period_start, period_end);

	CREATE TABLE IF NOT EXISTS calendar_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		title TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		all_day INTEGER NOT NULL DEFAULT 1,
		source_request_id TEXT,
		created_at TEXT NOT NULL
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	for _, lt := range timeoff.DefaultLeaveTypes() {
		_, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO leave_types
			(id, code, name, default_entitlement, paid, prorated, half_day_eligible)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, lt.ID, lt.Code, lt.Name, lt.DefaultEntitlement, lt.Paid, lt.Prorated, lt.HalfDayEligible)
		if err != nil {
			return fmt.Errorf("failed to seed leave type %s: %w", lt.ID, err)
		}
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (generic.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store timeoff.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{q: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Reset deletes all data except the leave type catalog.
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{
		"leave_request_days", "leave_movements", "leave_requests", "leave_balances",
		"calendar_entries", "payslips", "salaries", "employees",
	}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("failed to reset %s: %w", t, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatDate(tp generic.TimePoint) string {
	return tp.Time.Format(generic.DateLayout)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullDate(tp *generic.TimePoint) sql.NullString {
	if tp == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*tp), Valid: true}
}

func parseNullDate(ns sql.NullString) (*generic.TimePoint, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	tp, err := generic.ParseTimePoint(ns.String)
	if err != nil {
		return nil, err
	}
	return &tp, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
