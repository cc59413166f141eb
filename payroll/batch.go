/*
batch.go - Payroll batch generation

PURPOSE:
  Produces one payslip per eligible employee for a calendar month.
  Re-running a batch for the same month is safe: employees that already
  have a payslip for the period are skipped, and the store's unique key
  on (employee, period) settles concurrent runs.

OUTCOMES PER EMPLOYEE:
  created  payslip computed and stored
  skipped  no date of birth, or a payslip already exists
  errors   anything else; logged and counted, the batch carries on

SEE ALSO:
  - contribution.go: the pay calculation
  - scheduler.go: periodic runs
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/hr-engine/generic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchResult tallies a batch run.
type BatchResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Generator runs payroll batches.
type Generator struct {
	Store          Store
	Clock          generic.Clock
	Logger         *zap.Logger
	Workers        int
	Ceilings       Ceilings
	DefaultTaxRate decimal.Decimal
}

// NewGenerator returns a generator with the default ceilings and tax rate.
func NewGenerator(store Store, clock generic.Clock, logger *zap.Logger, workers int) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &Generator{
		Store:          store,
		Clock:          clock,
		Logger:         logger,
		Workers:        workers,
		Ceilings:       DefaultCeilings,
		DefaultTaxRate: DefaultTaxRate,
	}
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeSkipped
)

// Generate creates the payslips for month/year.
func (g *Generator) Generate(ctx context.Context, month, year int) (BatchResult, error) {
	if month < 1 || month > 12 || year < 1 {
		return BatchResult{}, &generic.ValidationError{
			Message: "month and year are required",
			Fields:  map[string]string{"month": "must be 1-12", "year": "must be positive"},
		}
	}
	period := generic.MonthPeriod(year, time.Month(month))

	employees, err := g.Store.EligibleEmployees(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("failed to list employees: %w", err)
	}
	if len(employees) == 0 {
		return BatchResult{}, generic.NewValidationError("no active employees with salary information")
	}

	var created, skipped, failed atomic.Int64
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.Workers)

	for _, emp := range employees {
		emp := emp
		grp.Go(func() error {
			res, err := g.payslip(gctx, emp, period)
			switch {
			case err != nil:
				failed.Add(1)
				g.Logger.Error("payslip generation failed",
					zap.String("employee_id", string(emp.EmployeeID)),
					zap.Stringer("period", period),
					zap.Error(err))
			case res == outcomeSkipped:
				skipped.Add(1)
			default:
				created.Add(1)
			}
			// A failed employee never cancels the others.
			return nil
		})
	}
	_ = grp.Wait()

	result := BatchResult{
		Created: int(created.Load()),
		Skipped: int(skipped.Load()),
		Errors:  int(failed.Load()),
	}
	g.Logger.Info("payroll batch finished",
		zap.Stringer("period", period),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors))
	return result, nil
}

func (g *Generator) payslip(ctx context.Context, emp Compensation, period generic.Period) (outcome, error) {
	if emp.DateOfBirth == nil {
		g.Logger.Debug("skipping employee without date of birth", zap.String("employee_id", string(emp.EmployeeID)))
		return outcomeSkipped, nil
	}
	exists, err := g.Store.PayslipExists(ctx, emp.EmployeeID, period)
	if err != nil {
		return 0, fmt.Errorf("failed to check existing payslip: %w", err)
	}
	if exists {
		return outcomeSkipped, nil
	}
	ytd, err := g.Store.YearToDateOrdinaryWage(ctx, emp.EmployeeID, period.Start)
	if err != nil {
		return 0, fmt.Errorf("failed to load year-to-date wage: %w", err)
	}

	taxRate := g.DefaultTaxRate
	if emp.Salary.TaxRate.Valid {
		taxRate = emp.Salary.TaxRate.Decimal
	}
	pay := g.Ceilings.Payroll(PayrollInput{
		BasicSalary:     emp.Salary.BasicSalary,
		Allowances:      emp.Salary.Allowances,
		DateOfBirth:     *emp.DateOfBirth,
		Overtime:        decimal.Zero,
		Bonus:           decimal.Zero,
		OtherDeductions: decimal.Zero,
		TaxRate:         &taxRate,
		YTDOrdinaryWage: ytd,
		RateOverride:    emp.Salary.rateOverride(),
	}, g.Clock.Today())

	slip := Payslip{
		ID:                   uuid.NewString(),
		EmployeeID:           emp.EmployeeID,
		PeriodStart:          period.Start,
		PeriodEnd:            period.End,
		BasicSalary:          emp.Salary.BasicSalary,
		Allowances:           emp.Salary.Allowances,
		Overtime:             decimal.Zero,
		Bonus:                decimal.Zero,
		GrossSalary:          pay.GrossSalary,
		OrdinaryWage:         pay.OrdinaryWage,
		AdditionalWage:       pay.AdditionalWage,
		EmployeeContribution: pay.Contribution.EmployeeContribution,
		EmployerContribution: pay.Contribution.EmployerContribution,
		IncomeTax:            pay.IncomeTax,
		OtherDeductions:      pay.OtherDeductions,
		TotalDeductions:      pay.TotalDeductions,
		NetSalary:            pay.NetSalary,
		CreatedAt:            g.Clock.Now(),
	}
	if err := g.Store.InsertPayslip(ctx, slip); err != nil {
		if errors.Is(err, generic.ErrDuplicateKey) {
			return outcomeSkipped, nil
		}
		return 0, fmt.Errorf("failed to store payslip: %w", err)
	}
	return outcomeCreated, nil
}

// Payslips lists an employee's payslips, newest period first.
func (g *Generator) Payslips(ctx context.Context, actor generic.Actor, employeeID generic.EmployeeID) ([]Payslip, error) {
	if !actor.Owns(employeeID) && !actor.CanRunPayroll() {
		return nil, &generic.AuthorizationError{ActorID: string(actor.UserID), Action: "view another employee's payslips"}
	}
	slips, err := g.Store.Payslips(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payslips: %w", err)
	}
	return slips, nil
}

// GenerateAs is Generate for an acting user, who must be allowed to run
// payroll.
func (g *Generator) GenerateAs(ctx context.Context, actor generic.Actor, month, year int) (BatchResult, error) {
	if !actor.CanRunPayroll() {
		return BatchResult{}, &generic.AuthorizationError{ActorID: string(actor.UserID), Action: "run payroll"}
	}
	return g.Generate(ctx, month, year)
}
