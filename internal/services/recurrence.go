// Package services contains the application logic on top of the core
// value types: recurrence math, quick-add tokenizing, duplicate
// reconciliation and the orchestrating subscription service.
package services

import (
	"fmt"
	"time"

	"subtrack/internal/core"
)

// PeriodStepper advances a date by exactly one billing period.
type PeriodStepper func(core.Date) core.Date

var periodSteppers = map[core.Period]PeriodStepper{
	core.Month: func(d core.Date) core.Date { return d.AddMonths(1) },
	core.Year:  func(d core.Date) core.Date { return d.AddYears(1) },
	core.Week:  func(d core.Date) core.Date { return d.AddDays(7) },
}

// GetPeriodStepper returns the stepper for a billing period. An unknown
// period is a programming error surfaced as an error, not a panic.
func GetPeriodStepper(p core.Period) (PeriodStepper, error) {
	step, ok := periodSteppers[p]
	if !ok {
		return nil, fmt.Errorf("no stepper for period %q: %w", p, core.ErrInvalidPeriod)
	}
	return step, nil
}

// NextFromLast computes the next charge date given the last known
// charge: the date is advanced by whole periods while it is on or
// before today, so the result is always strictly in the future. A last
// charge already in the future is returned unchanged.
func NextFromLast(last core.Date, period core.Period, today core.Date) (core.Date, error) {
	step, err := GetPeriodStepper(period)
	if err != nil {
		return core.Date{}, err
	}
	candidate := last
	for !candidate.After(today) {
		candidate = step(candidate)
	}
	return candidate, nil
}

// NextByDay finds the next occurrence of a day-of-month on or after
// today: the day is clamped into the current month, and if that date
// has already passed it rolls into the next month (December wraps the
// year). Useful when the user knows "it charges on the 15th" but not
// the last charge date.
func NextByDay(day int, today core.Date) core.Date {
	year, month := today.Year(), today.Month()
	candidate := core.NewDate(year, month, core.ClampDay(year, month, day))
	if candidate.Before(today) {
		month++
		if month > time.December {
			month = time.January
			year++
		}
		candidate = core.NewDate(year, month, core.ClampDay(year, month, day))
	}
	return candidate
}
