package timeoff_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/hr-engine/generic"
	"github.com/warp/hr-engine/timeoff"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func datePtr(year int, month time.Month, day int) *generic.TimePoint {
	tp := date(year, month, day)
	return &tp
}

func TestRoundToHalf_AlwaysFloors(t *testing.T) {
	cases := map[string]string{
		"3.25": "3",
		"3.75": "3.5",
		"3.8":  "3.5",
		"3.5":  "3.5",
		"3":    "3",
		"0.49": "0",
	}
	for in, want := range cases {
		got := timeoff.RoundToHalf(dec(in))
		assert.True(t, dec(want).Equal(got), "RoundToHalf(%s) = %s, want %s", in, got, want)
	}
}

func TestProrate(t *testing.T) {
	// GIVEN: 14 days annual entitlement, today is in June (month index 5)
	today := date(2026, time.June, 15)
	entitlement := dec("14")

	tests := []struct {
		name  string
		start *generic.TimePoint
		want  string
	}{
		// 14 * 6 / 12 = 7
		{"hired on January 1 of this year", datePtr(2026, time.January, 1), "7"},
		{"hired several years ago", datePtr(2019, time.March, 10), "7"},
		{"no start date on record", nil, "7"},
		{"hired on the 1st of the current month", datePtr(2026, time.June, 1), "0"},
		// 14 * 1 / 12 = 1.166 -> 1.0
		{"hired one full month prior", datePtr(2026, time.May, 1), "1"},
		// 14 * 3 / 12 = 3.5
		{"hired in March", datePtr(2026, time.March, 20), "3.5"},
		{"hired next year", datePtr(2027, time.January, 1), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// WHEN: Prorating
			got := timeoff.Prorate(entitlement, tt.start, today)

			// THEN: Floored to the nearest half day
			assert.True(t, dec(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestProrate_JanuaryHireAndVeteranUseSameFormula(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		today := date(2026, m, 28)
		jan := timeoff.Prorate(dec("14"), datePtr(2026, time.January, 1), today)
		veteran := timeoff.Prorate(dec("14"), datePtr(2010, time.August, 9), today)
		assert.True(t, jan.Equal(veteran), "month %s: %s != %s", m, jan, veteran)
	}
}

func TestEffectiveEntitlement_OnlyProratedTypes(t *testing.T) {
	// GIVEN: An employee hired in May, today in June
	start := datePtr(2026, time.May, 1)
	today := date(2026, time.June, 15)
	types := map[timeoff.Code]timeoff.LeaveType{}
	for _, lt := range timeoff.DefaultLeaveTypes() {
		types[lt.Code] = lt
	}

	// THEN: AL and MC are prorated, CL and NPL are not
	assert.True(t, dec("1").Equal(timeoff.EffectiveEntitlement(types[timeoff.CodeAnnual], dec("14"), start, today)))
	assert.True(t, dec("1").Equal(timeoff.EffectiveEntitlement(types[timeoff.CodeMedical], dec("14"), start, today)))
	assert.True(t, dec("6").Equal(timeoff.EffectiveEntitlement(types[timeoff.CodeChildcare], dec("6"), start, today)))
	assert.True(t, dec("30").Equal(timeoff.EffectiveEntitlement(types[timeoff.CodeNoPay], dec("30"), start, today)))
}
