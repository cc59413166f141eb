package timeoff

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/hr-engine/generic"
)

// BalanceSummary is the per leave type view handed to other subsystems.
type BalanceSummary struct {
	LeaveType            LeaveType
	Year                 int
	EffectiveEntitlement decimal.Decimal
	CarriedOver          decimal.Decimal
	Used                 decimal.Decimal
	Pending              decimal.Decimal
	Available            decimal.Decimal
	RejectedCount        int
}

// Summaries returns one summary per leave type for an employee and year.
// Leave types the employee has never requested are reported from their
// defaults without creating balance rows.
func (s *Service) Summaries(ctx context.Context, actor generic.Actor, employeeID generic.EmployeeID, year int) ([]BalanceSummary, error) {
	if !actor.Owns(employeeID) && !actor.CanDecideLeave() {
		return nil, &generic.AuthorizationError{ActorID: string(actor.UserID), Action: "view another employee's balances"}
	}
	emp, err := s.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if year == 0 {
		year = s.Clock.Today().Year()
	}

	types, err := s.LeaveTypes(ctx)
	if err != nil {
		return nil, err
	}

	today := s.Clock.Today()
	summaries := make([]BalanceSummary, 0, len(types))
	for _, lt := range types {
		key := BalanceKey{EmployeeID: employeeID, LeaveTypeID: lt.ID, Year: year}
		b, err := s.Store.Balance(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to load balance: %w", err)
		}
		if b == nil {
			b = &Balance{Key: key, Entitlement: lt.DefaultEntitlement}
		}
		rejected, err := s.Store.CountRequests(ctx, key, StatusRejected)
		if err != nil {
			return nil, fmt.Errorf("failed to count rejected requests: %w", err)
		}

		acct := Account{
			Balance:   *b,
			LeaveType: lt,
			Effective: EffectiveEntitlement(lt, b.Entitlement, emp.StartDate, today),
		}
		summaries = append(summaries, BalanceSummary{
			LeaveType:            lt,
			Year:                 year,
			EffectiveEntitlement: acct.Effective,
			CarriedOver:          b.CarriedOver,
			Used:                 b.Used,
			Pending:              b.Pending,
			Available:            acct.Available(),
			RejectedCount:        rejected,
		})
	}
	return summaries, nil
}
