/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  domain types from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

FORMATS:
  Dates are "YYYY-MM-DD", timestamps RFC3339, day counts and money are
  decimal strings ("1.5", "2000").

VALIDATION:
  Validation is done in handlers and the domain, not in DTOs.

SEE ALSO:
  - handlers.go, payroll_handlers.go: Use these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/hr-engine/generic"
	"github.com/warp/hr-engine/payroll"
	"github.com/warp/hr-engine/timeoff"
)

// =============================================================================
// LEAVE
// =============================================================================

// LeaveTypeDTO represents a leave type in API responses.
type LeaveTypeDTO struct {
	ID                 string          `json:"id"`
	Code               string          `json:"code"`
	Name               string          `json:"name"`
	DefaultEntitlement decimal.Decimal `json:"default_entitlement"`
	Paid               bool            `json:"paid"`
	Prorated           bool            `json:"prorated"`
	HalfDayEligible    bool            `json:"half_day_eligible"`
}

// LeaveRequestBody is the body of submit and edit requests.
type LeaveRequestBody struct {
	LeaveTypeID     string `json:"leave_type_id"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	DayType         string `json:"day_type,omitempty"`
	HalfDayPosition string `json:"half_day_position,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// DecisionRequest is the optional body of reject and reset.
type DecisionRequest struct {
	Reason string `json:"reason"`
}

// LeaveRequestDTO represents a leave request in API responses.
type LeaveRequestDTO struct {
	ID              string          `json:"id"`
	EmployeeID      string          `json:"employee_id"`
	LeaveTypeID     string          `json:"leave_type_id"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	Days            decimal.Decimal `json:"days"`
	DayType         string          `json:"day_type"`
	HalfDayPosition string          `json:"half_day_position,omitempty"`
	Status          string          `json:"status"`
	Reason          string          `json:"reason,omitempty"`
	DecisionReason  string          `json:"decision_reason,omitempty"`
	ApproverID      string          `json:"approver_id,omitempty"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
	DecidedAt       *string         `json:"decided_at,omitempty"`
}

// BalanceSummaryDTO is one leave type's balance for a year.
type BalanceSummaryDTO struct {
	LeaveTypeID          string          `json:"leave_type_id"`
	Code                 string          `json:"code"`
	Name                 string          `json:"name"`
	Year                 int             `json:"year"`
	EffectiveEntitlement decimal.Decimal `json:"effective_entitlement"`
	CarriedOver          decimal.Decimal `json:"carried_over"`
	Used                 decimal.Decimal `json:"used"`
	Pending              decimal.Decimal `json:"pending"`
	Available            decimal.Decimal `json:"available"`
	RejectedCount        int             `json:"rejected_count"`
}

// MovementDTO is one journaled balance change.
type MovementDTO struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	PendingDelta decimal.Decimal `json:"pending_delta"`
	UsedDelta    decimal.Decimal `json:"used_delta"`
	ActorID      string          `json:"actor_id"`
	Reason       string          `json:"reason,omitempty"`
	CreatedAt    string          `json:"created_at"`
}

// =============================================================================
// PAYROLL
// =============================================================================

// PayrollBatchRequest selects the month to generate.
type PayrollBatchRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// PayslipDTO represents a payslip in API responses.
type PayslipDTO struct {
	ID                   string          `json:"id"`
	EmployeeID           string          `json:"employee_id"`
	PeriodStart          string          `json:"period_start"`
	PeriodEnd            string          `json:"period_end"`
	BasicSalary          decimal.Decimal `json:"basic_salary"`
	Allowances           decimal.Decimal `json:"allowances"`
	Overtime             decimal.Decimal `json:"overtime"`
	Bonus                decimal.Decimal `json:"bonus"`
	GrossSalary          decimal.Decimal `json:"gross_salary"`
	EmployeeContribution decimal.Decimal `json:"employee_contribution"`
	EmployerContribution decimal.Decimal `json:"employer_contribution"`
	IncomeTax            decimal.Decimal `json:"income_tax"`
	OtherDeductions      decimal.Decimal `json:"other_deductions"`
	TotalDeductions      decimal.Decimal `json:"total_deductions"`
	NetSalary            decimal.Decimal `json:"net_salary"`
	CreatedAt            string          `json:"created_at"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error     string           `json:"error"`
	Details   any              `json:"details,omitempty"`
	Available *decimal.Decimal `json:"available,omitempty"`
	Requested *decimal.Decimal `json:"requested,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toLeaveTypeDTO(lt timeoff.LeaveType) LeaveTypeDTO {
	return LeaveTypeDTO{
		ID:                 string(lt.ID),
		Code:               string(lt.Code),
		Name:               lt.Name,
		DefaultEntitlement: lt.DefaultEntitlement,
		Paid:               lt.Paid,
		Prorated:           lt.Prorated,
		HalfDayEligible:    lt.HalfDayEligible,
	}
}

func toLeaveRequestDTO(r timeoff.LeaveRequest) LeaveRequestDTO {
	dto := LeaveRequestDTO{
		ID:              string(r.ID),
		EmployeeID:      string(r.EmployeeID),
		LeaveTypeID:     string(r.LeaveTypeID),
		StartDate:       r.StartDate.String(),
		EndDate:         r.EndDate.String(),
		Days:            r.Days,
		DayType:         string(r.DayType),
		HalfDayPosition: string(r.HalfDayPosition),
		Status:          string(r.Status),
		Reason:          r.Reason,
		DecisionReason:  r.DecisionReason,
		ApproverID:      string(r.ApproverID),
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       r.UpdatedAt.Format(time.RFC3339),
	}
	if r.DecidedAt != nil {
		s := r.DecidedAt.Format(time.RFC3339)
		dto.DecidedAt = &s
	}
	return dto
}

func toLeaveRequestDTOs(reqs []timeoff.LeaveRequest) []LeaveRequestDTO {
	dtos := make([]LeaveRequestDTO, len(reqs))
	for i, r := range reqs {
		dtos[i] = toLeaveRequestDTO(r)
	}
	return dtos
}

func toBalanceSummaryDTO(s timeoff.BalanceSummary) BalanceSummaryDTO {
	return BalanceSummaryDTO{
		LeaveTypeID:          string(s.LeaveType.ID),
		Code:                 string(s.LeaveType.Code),
		Name:                 s.LeaveType.Name,
		Year:                 s.Year,
		EffectiveEntitlement: s.EffectiveEntitlement,
		CarriedOver:          s.CarriedOver,
		Used:                 s.Used,
		Pending:              s.Pending,
		Available:            s.Available,
		RejectedCount:        s.RejectedCount,
	}
}

func toMovementDTO(m generic.Movement) MovementDTO {
	return MovementDTO{
		ID:           m.ID,
		Type:         string(m.Type),
		PendingDelta: m.PendingDelta,
		UsedDelta:    m.UsedDelta,
		ActorID:      string(m.ActorID),
		Reason:       m.Reason,
		CreatedAt:    m.CreatedAt.Format(time.RFC3339),
	}
}

func toPayslipDTO(p payroll.Payslip) PayslipDTO {
	return PayslipDTO{
		ID:                   p.ID,
		EmployeeID:           string(p.EmployeeID),
		PeriodStart:          p.PeriodStart.String(),
		PeriodEnd:            p.PeriodEnd.String(),
		BasicSalary:          p.BasicSalary,
		Allowances:           p.Allowances,
		Overtime:             p.Overtime,
		Bonus:                p.Bonus,
		GrossSalary:          p.GrossSalary,
		EmployeeContribution: p.EmployeeContribution,
		EmployerContribution: p.EmployerContribution,
		IncomeTax:            p.IncomeTax,
		OtherDeductions:      p.OtherDeductions,
		TotalDeductions:      p.TotalDeductions,
		NetSalary:            p.NetSalary,
		CreatedAt:            p.CreatedAt.Format(time.RFC3339),
	}
}
