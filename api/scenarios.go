/*
scenarios.go - Demo scenario loaders for development and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data. Each scenario creates employees, salaries and balances and then
	drives leave requests through the real lifecycle, so the balances and
	movement history it leaves behind are exactly what the service would
	produce.

AVAILABLE SCENARIOS:

	new-employee:   One employee, one pending AL day
	mid-year-hire:  Employee hired three months ago, prorated AL and MC
	approvals:      Two employees with approved, pending and rejected leave
	payroll:        Employees across contribution age tiers, one without a
	                date of birth (skipped by batches)

HOW SCENARIOS WORK:
 1. Reset database (clear all data, leave type catalog kept)
 2. Create employees and salaries
 3. Provision balances where the defaults are not wanted
 4. Submit and decide requests through timeoff.Service

USAGE VIA API (admin only, server.scenarios must be true):

	GET  /api/scenarios
	GET  /api/scenarios/current
	POST /api/scenarios/load {"scenario_id": "approvals"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - server.go: route mounting
  - store/sqlite/employees.go: provisioning methods
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/hr-engine/generic"
	"github.com/warp/hr-engine/payroll"
	"github.com/warp/hr-engine/timeoff"
	"go.uber.org/zap"
)

// ScenarioStore is the provisioning side of the store used by scenarios.
type ScenarioStore interface {
	Reset(ctx context.Context) error
	SaveEmployee(ctx context.Context, emp timeoff.Employee) error
	SaveSalary(ctx context.Context, employeeID generic.EmployeeID, salary payroll.SalaryInfo) error
	SaveBalance(ctx context.Context, b timeoff.Balance) error
}

// ScenarioDTO describes a loadable scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "new-employee",
		Name:        "New Employee",
		Description: "Full-year employee with one pending annual leave day",
		Category:    "leave",
	},
	{
		ID:          "mid-year-hire",
		Name:        "Mid-Year Hire",
		Description: "Employee hired three months ago; AL and MC are prorated",
		Category:    "leave",
	},
	{
		ID:          "approvals",
		Name:        "Approvals Queue",
		Description: "Approved, pending and rejected requests across two employees",
		Category:    "leave",
	},
	{
		ID:          "payroll",
		Name:        "Payroll Run",
		Description: "Employees across contribution age tiers, one without a date of birth",
		Category:    "payroll",
	},
}

var scenarioManager = generic.Actor{UserID: "scenario-manager", Role: generic.RoleManager}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	if actor.Role != generic.RoleAdmin {
		h.fail(w, r, &generic.AuthorizationError{ActorID: string(actor.UserID), Action: "load scenarios"})
		return
	}

	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if !decodeBody(w, r, &req, true) {
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "new-employee":
		load = h.loadNewEmployeeScenario
	case "mid-year-hire":
		load = h.loadMidYearHireScenario
	case "approvals":
		load = h.loadApprovalsScenario
	case "payroll":
		load = h.loadPayrollScenario
	default:
		h.fail(w, r, generic.FieldError("scenario_id", "unknown scenario"))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	h.currentScenario = ""
	if err := h.Scenarios.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	h.currentScenario = req.ScenarioID

	h.Logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID), zap.String("actor_id", string(actor.UserID)))
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadNewEmployeeScenario(ctx context.Context) error {
	today := h.Leave.Clock.Today()
	alice := scenarioEmployee("emp-001", "Alice Johnson", generic.StartOfYear(today.Year()-1), today.Year()-34)
	if err := h.hire(ctx, alice, "5000", "405"); err != nil {
		return err
	}

	// One AL day is available from January on for a full-year employee
	_, err := h.Leave.Submit(ctx, actorFor(alice), timeoff.SubmitInput{
		LeaveTypeID: "al",
		StartDate:   scenarioDay(today, 10),
		EndDate:     scenarioDay(today, 10),
		Reason:      "Family visit",
	})
	return err
}

func (h *Handler) loadMidYearHireScenario(ctx context.Context) error {
	today := h.Leave.Clock.Today()
	start := generic.StartOfMonth(today.Year(), today.Month()).AddMonths(-3)
	ben := scenarioEmployee("emp-002", "Ben Ortiz", start, today.Year()-27)
	if err := h.hire(ctx, ben, "4200", "0"); err != nil {
		return err
	}

	// Same AL entitlement as everyone; proration happens on read
	return h.Scenarios.SaveBalance(ctx, timeoff.Balance{
		Key:         timeoff.BalanceKey{EmployeeID: ben.ID, LeaveTypeID: "al", Year: today.Year()},
		Entitlement: decimal.NewFromInt(14),
		CarriedOver: decimal.Zero,
		Used:        decimal.Zero,
		Pending:     decimal.Zero,
		UpdatedAt:   h.Leave.Clock.Now(),
	})
}

func (h *Handler) loadApprovalsScenario(ctx context.Context) error {
	today := h.Leave.Clock.Today()
	alice := scenarioEmployee("emp-001", "Alice Johnson", generic.StartOfYear(today.Year()-1), today.Year()-34)
	bob := scenarioEmployee("emp-003", "Bob Chen", generic.NewTimePoint(today.Year()-6, time.September, 1), today.Year()-41)
	for _, emp := range []timeoff.Employee{alice, bob} {
		if err := h.hire(ctx, emp, "6000", "300"); err != nil {
			return err
		}
	}

	// Alice: two days of childcare leave, approved
	childcare, err := h.Leave.Submit(ctx, actorFor(alice), timeoff.SubmitInput{
		LeaveTypeID: "cl",
		StartDate:   scenarioDay(today, 3),
		EndDate:     scenarioDay(today, 4),
		Reason:      "School holidays",
	})
	if err != nil {
		return err
	}
	if _, err := h.Leave.Approve(ctx, scenarioManager, childcare.ID); err != nil {
		return err
	}

	// Bob: an AM half day waiting for a decision
	if _, err := h.Leave.Submit(ctx, actorFor(bob), timeoff.SubmitInput{
		LeaveTypeID: "al",
		StartDate:   scenarioDay(today, 12),
		EndDate:     scenarioDay(today, 12),
		DayType:     timeoff.AMHalf,
		Reason:      "Appointment",
	}); err != nil {
		return err
	}

	// Bob: medical leave rejected for missing paperwork
	medical, err := h.Leave.Submit(ctx, actorFor(bob), timeoff.SubmitInput{
		LeaveTypeID: "mc",
		StartDate:   scenarioDay(today, 18),
		EndDate:     scenarioDay(today, 18),
	})
	if err != nil {
		return err
	}
	_, err = h.Leave.Reject(ctx, scenarioManager, medical.ID, "no medical certificate attached")
	return err
}

func (h *Handler) loadPayrollScenario(ctx context.Context) error {
	today := h.Leave.Clock.Today()
	start := generic.StartOfYear(today.Year() - 3)

	staff := []struct {
		emp        timeoff.Employee
		basic      string
		allowances string
	}{
		{scenarioEmployee("emp-010", "Dana Lee", start, today.Year()-30), "5000", "405"},
		{scenarioEmployee("emp-011", "Eli Brooks", start, today.Year()-58), "7200", "800"},
		{scenarioEmployee("emp-012", "Farah Aziz", start, today.Year()-67), "3800", "0"},
	}
	for _, s := range staff {
		if err := h.hire(ctx, s.emp, s.basic, s.allowances); err != nil {
			return err
		}
	}

	// Negotiated rates and tax
	gia := scenarioEmployee("emp-013", "Gia Romano", start, today.Year()-45)
	if err := h.Scenarios.SaveEmployee(ctx, gia); err != nil {
		return err
	}
	if err := h.Scenarios.SaveSalary(ctx, gia.ID, payroll.SalaryInfo{
		BasicSalary:  decimal.NewFromInt(9000),
		Allowances:   decimal.NewFromInt(500),
		EmployeeRate: decimal.NewNullDecimal(decimal.NewFromInt(10)),
		EmployerRate: decimal.NewNullDecimal(decimal.NewFromInt(10)),
		TaxRate:      decimal.NewNullDecimal(decimal.RequireFromString("0.2")),
	}); err != nil {
		return err
	}

	// No date of birth on file: skipped by batches
	hugo := timeoff.Employee{ID: "emp-014", Name: "Hugo Park", StartDate: &start, Active: true}
	return h.hire(ctx, hugo, "4000", "0")
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) hire(ctx context.Context, emp timeoff.Employee, basic, allowances string) error {
	if err := h.Scenarios.SaveEmployee(ctx, emp); err != nil {
		return fmt.Errorf("failed to create employee %s: %w", emp.ID, err)
	}
	err := h.Scenarios.SaveSalary(ctx, emp.ID, payroll.SalaryInfo{
		BasicSalary: decimal.RequireFromString(basic),
		Allowances:  decimal.RequireFromString(allowances),
	})
	if err != nil {
		return fmt.Errorf("failed to create salary for %s: %w", emp.ID, err)
	}
	return nil
}

func scenarioEmployee(id, name string, start generic.TimePoint, birthYear int) timeoff.Employee {
	dob := generic.NewTimePoint(birthYear, time.March, 14)
	return timeoff.Employee{
		ID:          generic.EmployeeID(id),
		Name:        name,
		StartDate:   &start,
		DateOfBirth: &dob,
		Active:      true,
	}
}

func actorFor(emp timeoff.Employee) generic.Actor {
	return generic.Actor{UserID: generic.UserID("user-" + string(emp.ID)), Role: generic.RoleEmployee, EmployeeID: emp.ID}
}

// scenarioDay is a day of the current year's December, so requests stay in
// the year they are charged to whatever the date.
func scenarioDay(today generic.TimePoint, day int) generic.TimePoint {
	return generic.NewTimePoint(today.Year(), time.December, day)
}
