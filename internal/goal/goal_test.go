package goal

import (
	"math"
	"testing"
	"time"

	domerrors "github.com/omamori-dev/omamori-linebot-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

func TestCalculate_DayCount(t *testing.T) {
	t.Parallel()

	plan, err := Calculate(30000, InDays(30), now)
	require.NoError(t, err)

	assert.Equal(t, int64(30000), plan.Amount)
	assert.Equal(t, 30, plan.DaysRemaining)
	assert.Equal(t, int64(1000), plan.DailyTarget)
	assert.Equal(t, now.AddDate(0, 0, 30), plan.TargetDate)
	assert.Equal(t, 30*24*time.Hour, plan.TargetDate.Sub(now))
	assert.False(t, plan.Expired())
}

func TestCalculate_DailyTargetRoundsUp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		amount int64
		days   int
		daily  int64
	}{
		{"exact", 7000, 7, 1000},
		{"remainder", 10000, 3, 3334},
		{"one day", 5000, 1, 5000},
		{"more days than yen", 10, 30, 1},
		{"huge amount", math.MaxInt64, 2, math.MaxInt64/2 + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan, err := Calculate(tt.amount, InDays(tt.days), now)
			require.NoError(t, err)
			assert.Equal(t, tt.daily, plan.DailyTarget)
		})
	}
}

func TestCalculate_Date(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		date string
		days int
	}{
		{"iso date partial day rounds up", "2026-05-01", 30},
		{"slash date", "2026/04/11", 10},
		{"rfc3339 exact", "2026-04-03T09:30:00Z", 2},
		{"later today", "2026-04-01T18:00:00Z", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan, err := Calculate(3000, OnDate(tt.date), now)
			require.NoError(t, err)
			assert.Equal(t, tt.days, plan.DaysRemaining)
			assert.Equal(t, int64(math.Ceil(3000/float64(tt.days))), plan.DailyTarget)
		})
	}
}

func TestCalculate_DateWithoutYear(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		date   string
		target time.Time
	}{
		{"later this year", "--12-31", time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"already passed rolls to next year", "--03-31", time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC)},
		{"today stays today", "--04-01", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"leap day waits for a leap year", "--02-29", time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan, err := Calculate(50000, OnDate(tt.date), now)
			require.NoError(t, err)
			assert.Equal(t, tt.target, plan.TargetDate)
			assert.Equal(t, tt.target.Before(now), plan.Expired())
		})
	}

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()
		for _, date := range []string{"--13-01", "--12-32", "--1231"} {
			_, err := Calculate(1000, OnDate(date), now)
			assert.ErrorIs(t, err, domerrors.ErrInvalidTimeline, date)
		}
	})
}

func TestCalculate_PastDateClampsDivisor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		date string
	}{
		{"earlier today", "2026-04-01"},
		{"yesterday", "2026-03-31"},
		{"last year", "2025-04-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan, err := Calculate(12345, OnDate(tt.date), now)
			require.NoError(t, err)
			assert.LessOrEqual(t, plan.DaysRemaining, 0)
			assert.True(t, plan.Expired())
			assert.Equal(t, int64(12345), plan.DailyTarget)
		})
	}

	t.Run("zero and negative day counts", func(t *testing.T) {
		t.Parallel()
		for _, n := range []int{0, -5} {
			plan, err := Calculate(500, InDays(n), now)
			require.NoError(t, err)
			assert.Equal(t, n, plan.DaysRemaining)
			assert.Equal(t, int64(500), plan.DailyTarget)
		}
	})
}

func TestCalculate_InvalidTimeline(t *testing.T) {
	t.Parallel()

	for _, date := range []string{"", "soon", "2026-13-45", "31/12/2026"} {
		t.Run(date, func(t *testing.T) {
			t.Parallel()
			_, err := Calculate(1000, OnDate(date), now)
			require.Error(t, err)
			assert.ErrorIs(t, err, domerrors.ErrInvalidTimeline)

			var te *domerrors.TimelineError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, date, te.Input)
		})
	}
}

func TestCalculate_InvalidAmount(t *testing.T) {
	t.Parallel()

	for _, amount := range []int64{0, -100} {
		_, err := Calculate(amount, InDays(10), now)
		assert.ErrorIs(t, err, domerrors.ErrInvalidInput)
	}
}

func TestCalculate_DateUsesNowLocation(t *testing.T) {
	t.Parallel()

	tokyo := time.FixedZone("JST", 9*60*60)
	localNow := time.Date(2026, 4, 1, 0, 0, 0, 0, tokyo)

	plan, err := Calculate(1000, OnDate("2026-04-02"), localNow)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.DaysRemaining)
	assert.Equal(t, tokyo, plan.TargetDate.Location())
}
