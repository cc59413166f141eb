package timeoff

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/hr-engine/generic"
)

var monthsPerYear = decimal.NewFromInt(12)

// RoundToHalf always rounds down to the nearest 0.5: 3.75 -> 3.5, 3.3 -> 3.0.
func RoundToHalf(x decimal.Decimal) decimal.Decimal {
	return generic.FloorToHalf(x)
}

// CreditedMonths is the number of months of the current year an employee
// who started on startDate has earned as of today.
//
// A start date after January 1 of the current year earns only completed
// months after the hire month. Anyone else (hired on or before January 1,
// or with no recorded start date) earns every month through the current one.
func CreditedMonths(startDate *generic.TimePoint, today generic.TimePoint) int {
	if startDate == nil {
		return int(today.Month())
	}
	if startDate.Year() > today.Year() {
		return 0
	}
	if startDate.After(generic.StartOfYear(today.Year())) {
		months := int(today.Month()) - int(startDate.Month())
		if months < 0 {
			return 0
		}
		return months
	}
	return int(today.Month()-time.January) + 1
}

// Prorate scales an annual entitlement by the months credited this year.
func Prorate(entitlement decimal.Decimal, startDate *generic.TimePoint, today generic.TimePoint) decimal.Decimal {
	if entitlement.IsZero() {
		return decimal.Zero
	}
	months := CreditedMonths(startDate, today)
	if months == 0 {
		return decimal.Zero
	}
	return RoundToHalf(entitlement.Mul(decimal.NewFromInt(int64(months))).Div(monthsPerYear))
}

// EffectiveEntitlement is the prorated entitlement for prorated leave types
// and the raw entitlement for every other type.
func EffectiveEntitlement(lt LeaveType, raw decimal.Decimal, startDate *generic.TimePoint, today generic.TimePoint) decimal.Decimal {
	if !lt.Prorated {
		return raw
	}
	return Prorate(raw, startDate, today)
}
