package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/warp/hr-engine/generic"
	"github.com/warp/hr-engine/timeoff"
)

// =============================================================================
// LEAVE TYPES
// =============================================================================

const leaveTypeColumns = `id, code, name, default_entitlement, paid, prorated, half_day_eligible`

func scanLeaveType(row interface{ Scan(dest ...any) error }) (timeoff.LeaveType, error) {
	var lt timeoff.LeaveType
	err := row.Scan(&lt.ID, &lt.Code, &lt.Name, &lt.DefaultEntitlement, &lt.Paid, &lt.Prorated, &lt.HalfDayEligible)
	return lt, err
}

// LeaveType returns nil, nil for an unknown id.
func (q *queries) LeaveType(ctx context.Context, id timeoff.LeaveTypeID) (*timeoff.LeaveType, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+leaveTypeColumns+" FROM leave_types WHERE id = ?", id)
	lt, err := scanLeaveType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan leave type: %w", err)
	}
	return &lt, nil
}

// LeaveTypes returns the catalog ordered by code.
func (q *queries) LeaveTypes(ctx context.Context) ([]timeoff.LeaveType, error) {
	rows, err := q.q.QueryContext(ctx, "SELECT "+leaveTypeColumns+" FROM leave_types ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("failed to query leave types: %w", err)
	}
	defer rows.Close()

	var types []timeoff.LeaveType
	for rows.Next() {
		lt, err := scanLeaveType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave type: %w", err)
		}
		types = append(types, lt)
	}
	return types, rows.Err()
}

// =============================================================================
// BALANCES
// =============================================================================

// Balance returns nil, nil when the row does not exist yet.
func (q *queries) Balance(ctx context.Context, key timeoff.BalanceKey) (*timeoff.Balance, error) {
	var (
		b         = timeoff.Balance{Key: key}
		updatedAt string
	)
	err := q.q.QueryRowContext(ctx, `
		SELECT entitlement, carried_over, used, pending, updated_at
		FROM leave_balances
		WHERE employee_id = ? AND leave_type_id = ? AND year = ?
	`, key.EmployeeID, key.LeaveTypeID, key.Year).Scan(&b.Entitlement, &b.CarriedOver, &b.Used, &b.Pending, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan balance: %w", err)
	}
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

func (q *queries) InsertBalance(ctx context.Context, b timeoff.Balance) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO leave_balances
		(employee_id, leave_type_id, year, entitlement, carried_over, used, pending, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, b.Key.EmployeeID, b.Key.LeaveTypeID, b.Key.Year,
		b.Entitlement, b.CarriedOver, b.Used, b.Pending, formatTime(b.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert balance: %w", err)
	}
	return nil
}

// UpdateBalance writes the counters of an existing row. Entitlement and
// carry-over are owned by provisioning and left untouched.
func (q *queries) UpdateBalance(ctx context.Context, b timeoff.Balance) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE leave_balances SET used = ?, pending = ?, updated_at = ?
		WHERE employee_id = ? AND leave_type_id = ? AND year = ?
	`, b.Used, b.Pending, formatTime(b.UpdatedAt), b.Key.EmployeeID, b.Key.LeaveTypeID, b.Key.Year)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "balance", ID: fmt.Sprintf("%s/%s/%d", b.Key.EmployeeID, b.Key.LeaveTypeID, b.Key.Year)}
	}
	return nil
}

// SaveBalance upserts a balance row with its entitlement and carry-over,
// keeping any used and pending counters already recorded.
func (s *Store) SaveBalance(ctx context.Context, b timeoff.Balance) error {
	if err := b.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_balances
		(employee_id, leave_type_id, year, entitlement, carried_over, used, pending, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, leave_type_id, year) DO UPDATE SET
			entitlement = excluded.entitlement,
			carried_over = excluded.carried_over,
			updated_at = excluded.updated_at
	`, b.Key.EmployeeID, b.Key.LeaveTypeID, b.Key.Year,
		b.Entitlement, b.CarriedOver, b.Used, b.Pending, formatTime(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

// =============================================================================
// REQUESTS
// =============================================================================

const requestColumns = `
	id, employee_id, leave_type_id, start_date, end_date, days, day_type,
	half_day_position, status, reason, decision_reason, approver_id,
	created_at, updated_at, decided_at`

func scanRequest(row interface{ Scan(dest ...any) error }) (timeoff.LeaveRequest, error) {
	var (
		r                    timeoff.LeaveRequest
		start, end           string
		createdAt, updatedAt string
		decidedAt            sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.EmployeeID, &r.LeaveTypeID, &start, &end, &r.Days, &r.DayType,
		&r.HalfDayPosition, &r.Status, &r.Reason, &r.DecisionReason, &r.ApproverID,
		&createdAt, &updatedAt, &decidedAt,
	)
	if err != nil {
		return r, err
	}
	if r.StartDate, err = generic.ParseTimePoint(start); err != nil {
		return r, err
	}
	if r.EndDate, err = generic.ParseTimePoint(end); err != nil {
		return r, err
	}
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	if decidedAt.Valid {
		t := parseTime(decidedAt.String)
		r.DecidedAt = &t
	}
	return r, nil
}

func (q *queries) queryRequests(ctx context.Context, query string, args ...any) ([]timeoff.LeaveRequest, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []timeoff.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// Request returns nil, nil when the request does not exist.
func (q *queries) Request(ctx context.Context, id timeoff.RequestID) (*timeoff.LeaveRequest, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM leave_requests WHERE id = ?", id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan request: %w", err)
	}
	return &r, nil
}

func (q *queries) InsertRequest(ctx context.Context, r timeoff.LeaveRequest) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO leave_requests
		(id, employee_id, leave_type_id, year, start_date, end_date, days, day_type,
		 half_day_position, status, reason, decision_reason, approver_id,
		 created_at, updated_at, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.EmployeeID, r.LeaveTypeID, r.Year(),
		formatDate(r.StartDate), formatDate(r.EndDate), r.Days, r.DayType,
		r.HalfDayPosition, r.Status, r.Reason, r.DecisionReason, r.ApproverID,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt), nullTime(r.DecidedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

// UpdateRequest writes r only while the stored status still equals
// expected.
func (q *queries) UpdateRequest(ctx context.Context, r timeoff.LeaveRequest, expected timeoff.RequestStatus) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE leave_requests SET
			year = ?, start_date = ?, end_date = ?, days = ?, day_type = ?,
			half_day_position = ?, status = ?, reason = ?, decision_reason = ?,
			approver_id = ?, updated_at = ?, decided_at = ?
		WHERE id = ? AND status = ?
	`,
		r.Year(), formatDate(r.StartDate), formatDate(r.EndDate), r.Days, r.DayType,
		r.HalfDayPosition, r.Status, r.Reason, r.DecisionReason,
		r.ApproverID, formatTime(r.UpdatedAt), nullTime(r.DecidedAt),
		r.ID, expected,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	if n == 0 {
		return generic.ErrConcurrentModification
	}
	return nil
}

// ListRequests returns matching requests, latest start date first.
func (q *queries) ListRequests(ctx context.Context, filter timeoff.RequestFilter) ([]timeoff.LeaveRequest, error) {
	var (
		where []string
		args  []any
	)
	if filter.EmployeeID != "" {
		where = append(where, "employee_id = ?")
		args = append(args, filter.EmployeeID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Year != 0 {
		where = append(where, "year = ?")
		args = append(args, filter.Year)
	}

	query := "SELECT " + requestColumns + " FROM leave_requests"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_date DESC, created_at DESC"
	return q.queryRequests(ctx, query, args...)
}

// OverlappingRequests returns the employee's pending and approved requests
// sharing at least one day with period.
func (q *queries) OverlappingRequests(ctx context.Context, employeeID generic.EmployeeID, period generic.Period, exclude timeoff.RequestID) ([]timeoff.LeaveRequest, error) {
	return q.queryRequests(ctx, "SELECT "+requestColumns+`
		FROM leave_requests
		WHERE employee_id = ?
		  AND status IN (?, ?)
		  AND start_date <= ? AND end_date >= ?
		  AND id != ?
		ORDER BY start_date`,
		employeeID, timeoff.StatusPending, timeoff.StatusApproved,
		formatDate(period.End), formatDate(period.Start), exclude,
	)
}

func (q *queries) CountRequests(ctx context.Context, key timeoff.BalanceKey, status timeoff.RequestStatus) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM leave_requests
		WHERE employee_id = ? AND leave_type_id = ? AND year = ? AND status = ?
	`, key.EmployeeID, key.LeaveTypeID, key.Year, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return n, nil
}

// =============================================================================
// DAY BOOKINGS
// =============================================================================

// OccupyDays books every day of r. A day already held by another request
// of the employee yields generic.ErrDuplicateDay.
func (q *queries) OccupyDays(ctx context.Context, r timeoff.LeaveRequest) error {
	for _, day := range r.Period().Days() {
		_, err := q.q.ExecContext(ctx,
			"INSERT INTO leave_request_days (request_id, employee_id, day) VALUES (?, ?, ?)",
			r.ID, r.EmployeeID, formatDate(day),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return generic.ErrDuplicateDay
			}
			return fmt.Errorf("failed to book day %s: %w", day, err)
		}
	}
	return nil
}

func (q *queries) ReleaseDays(ctx context.Context, id timeoff.RequestID) error {
	if _, err := q.q.ExecContext(ctx, "DELETE FROM leave_request_days WHERE request_id = ?", id); err != nil {
		return fmt.Errorf("failed to release days: %w", err)
	}
	return nil
}

// =============================================================================
// MOVEMENTS (append-only)
// =============================================================================

func (q *queries) AppendMovement(ctx context.Context, m generic.Movement) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO leave_movements
		(id, request_id, employee_id, leave_type_id, year, movement_type,
		 pending_delta, used_delta, actor_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, m.RequestID, m.EmployeeID, m.LeaveTypeID, m.Year, m.Type,
		m.PendingDelta, m.UsedDelta, m.ActorID, m.Reason, formatTime(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append movement: %w", err)
	}
	return nil
}

// Movements returns a request's movements in the order they were written.
func (q *queries) Movements(ctx context.Context, requestID timeoff.RequestID) ([]generic.Movement, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, request_id, employee_id, leave_type_id, year, movement_type,
		       pending_delta, used_delta, actor_id, reason, created_at
		FROM leave_movements
		WHERE request_id = ?
		ORDER BY created_at, rowid
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var movements []generic.Movement
	for rows.Next() {
		var (
			m         generic.Movement
			createdAt string
		)
		err := rows.Scan(&m.ID, &m.RequestID, &m.EmployeeID, &m.LeaveTypeID, &m.Year, &m.Type,
			&m.PendingDelta, &m.UsedDelta, &m.ActorID, &m.Reason, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		m.CreatedAt = parseTime(createdAt)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
