// Package goal turns a savings amount and a timeline into a daily plan.
package goal

import (
	"fmt"
	"math"
	"strings"
	"time"

	domerrors "github.com/omamori-dev/omamori-linebot-go/internal/errors"
)

const day = 24 * time.Hour

// dateLayouts are tried in order when a timeline is given as a date.
var dateLayouts = []string{"2006-01-02", "2006/01/02", time.RFC3339}

// Timeline is either a day count or a calendar date. Build one with InDays
// or OnDate.
type Timeline struct {
	days   int
	date   string
	isDate bool
}

// InDays is a timeline of n days from now.
func InDays(n int) Timeline {
	return Timeline{days: n}
}

// OnDate is a timeline ending on the given date. The date is parsed by
// Calculate, which reports a malformed value as an invalid timeline. A date
// written as --MM-DD has no year and means the next such day on or after now.
func OnDate(date string) Timeline {
	return Timeline{date: date, isDate: true}
}

// Plan is the outcome of a goal calculation.
type Plan struct {
	Amount int64

	// DaysRemaining is the true number of days left. It is zero or negative
	// when the target date has already passed.
	DaysRemaining int
	DailyTarget   int64
	TargetDate    time.Time
}

// Expired reports whether the target date is today or already past.
func (p Plan) Expired() bool {
	return p.DaysRemaining <= 0
}

// Calculate computes the days remaining, the daily amount to set aside, and
// the target date. The divisor for DailyTarget is clamped to at least one day.
func Calculate(amount int64, tl Timeline, now time.Time) (Plan, error) {
	if amount <= 0 {
		return Plan{}, domerrors.NewValidationError("amount", "must be positive")
	}

	var plan Plan
	plan.Amount = amount

	if tl.isDate {
		target, err := parseDate(tl.date, now)
		if err != nil {
			return Plan{}, domerrors.NewTimelineError(tl.date, err)
		}
		plan.TargetDate = target
		plan.DaysRemaining = int(math.Ceil(float64(target.Sub(now)) / float64(day)))
	} else {
		plan.DaysRemaining = tl.days
		plan.TargetDate = now.AddDate(0, 0, tl.days)
	}

	plan.DailyTarget = ceilDiv(amount, int64(max(plan.DaysRemaining, 1)))
	return plan, nil
}

func parseDate(s string, now time.Time) (time.Time, error) {
	loc := now.Location()
	if rest, ok := strings.CutPrefix(s, "--"); ok {
		return nextMonthDay(rest, now)
	}
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// nextMonthDay resolves "MM-DD" to the first matching date that is not
// before today. February 29 rolls forward to the next leap year.
func nextMonthDay(s string, now time.Time) (time.Time, error) {
	md, err := time.Parse("01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for y := now.Year(); y <= now.Year()+8; y++ {
		t := time.Date(y, md.Month(), md.Day(), 0, 0, 0, 0, now.Location())
		if t.Month() == md.Month() && !t.Before(today) {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no date matches %q", s)
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}
