package timeoff

import (
	"github.com/shopspring/decimal"
	"github.com/warp/hr-engine/generic"
)

// Normalized is a request shape after leave-type rules have been applied.
type Normalized struct {
	Period          generic.Period
	Days            decimal.Decimal
	DayType         DayType
	HalfDayPosition HalfDayPosition
}

// Normalize validates the date range and computes the chargeable days.
//
// Only half-day eligible types keep the client's day type and half-day
// position; every other type is forced to FULL_DAY with no position and
// charged the full inclusive span, whatever the client sent. Half-day day
// types only apply to single-day requests and half-day positions only to
// multi-day requests.
func Normalize(lt LeaveType, start, end generic.TimePoint, dayType DayType, position HalfDayPosition) (Normalized, error) {
	period, err := generic.NewPeriod(start, end)
	if err != nil {
		return Normalized{}, generic.FieldError("end_date", "must not be before start_date")
	}

	n := Normalized{Period: period, DayType: FullDay, HalfDayPosition: HalfDayNone}
	span := decimal.NewFromInt(int64(period.Span()))

	if !lt.HalfDayEligible {
		n.Days = span
		return n, nil
	}

	if dayType == "" {
		dayType = FullDay
	}
	if !dayType.valid() {
		return Normalized{}, generic.FieldError("day_type", "must be FULL_DAY, AM_HALF or PM_HALF")
	}
	if !position.valid() {
		return Normalized{}, generic.FieldError("half_day_position", "must be first, last or empty")
	}

	if period.IsSingleDay() {
		n.DayType = dayType
		if dayType.IsHalf() {
			n.Days = generic.HalfDay
		} else {
			n.Days = generic.OneDay
		}
		return n, nil
	}

	n.HalfDayPosition = position
	if position != HalfDayNone {
		n.Days = span.Sub(generic.HalfDay)
	} else {
		n.Days = span
	}
	return n, nil
}
