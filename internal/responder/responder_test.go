package responder

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/omamori-dev/omamori-linebot-go/internal/intent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func first(int) int { return 0 }

func TestFill_Interpolates(t *testing.T) {
	t.Parallel()

	f := New(
		WithPicker(first),
		WithTemplates(KeySavingsSet, "{goal} ¥{amount} by {targetDate}: {daysRemaining} days, ¥{dailyTarget}/day"),
	)

	got := f.Fill(KeySavingsSet, Vars{
		Amount:        30000,
		Goal:          "京都旅行",
		DaysRemaining: 30,
		DailyTarget:   1000,
		TargetDate:    time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, "京都旅行 ¥30,000 by 2026/05/01: 30 days, ¥1,000/day", got)
}

func TestFill_AllDefaultPoolsRenderWithoutPlaceholders(t *testing.T) {
	t.Parallel()

	vars := Vars{
		Name:          "太郎",
		Amount:        1234567,
		Goal:          "旅行",
		DaysRemaining: 10,
		DailyTarget:   123457,
		TargetDate:    time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		TotalSaved:    50000,
		GroupGoal:     100000,
		Members:       3,
		Address:       "0x1234567890123456789012345678901234567890",
		Value:         intent.ValueMottainai,
	}

	for key, pool := range defaultPools {
		for i := range pool {
			f := New(WithPicker(func(int) int { return i }))
			out := f.Fill(key, vars)
			assert.NotEmpty(t, out, "key %s template %d", key, i)
			assert.NotContains(t, out, "{", "key %s template %d", key, i)
		}
	}
}

func TestFill_UnknownKeyFallsBack(t *testing.T) {
	t.Parallel()

	f := New(WithPicker(first))
	assert.Equal(t, f.Fill(KeyUnknown, Vars{}), f.Fill("no.such.key", Vars{}))
	assert.False(t, f.Has("no.such.key"))
	assert.True(t, f.Has(KeyUnknown))
}

func TestFill_EveryIntentKindHasPool(t *testing.T) {
	t.Parallel()

	f := New()
	kinds := []intent.Kind{
		intent.KindGreeting,
		intent.KindHelp,
		intent.KindSetSavingsGoal,
		intent.KindCheckProgress,
		intent.KindInheritanceHelp,
		intent.KindUnknown,
	}
	for _, k := range kinds {
		assert.True(t, f.Has(Key(k)), "missing pool for %s", k)
	}
	for _, v := range []string{intent.ValueMottainai, intent.ValueOmotenashi, intent.ValueKaizen, intent.ValueGanbaru} {
		assert.True(t, f.Has(CultureKey(v)), "missing pool for %s", v)
	}
}

func TestFill_PicksAcrossPool(t *testing.T) {
	t.Parallel()

	f := New(WithTemplates(KeyGreeting, "a", "b", "c"))

	seen := map[string]bool{}
	for range 200 {
		seen[f.Fill(KeyGreeting, Vars{})] = true
	}
	assert.Len(t, seen, 3)
}

func TestFill_ConcurrentUse(t *testing.T) {
	t.Parallel()

	f := New()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			out := f.Fill(KeyFamilyProgress, Vars{TotalSaved: int64(i) * 1000, GroupGoal: 20000, Members: 2})
			assert.True(t, strings.Contains(out, "¥"))
		})
	}
	wg.Wait()
}

func TestVars_Percent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		saved, goal int64
		want        int
	}{
		{0, 0, 0},
		{500, 0, 0},
		{250, 1000, 25},
		{999, 1000, 99},
		{1500, 1000, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Vars{TotalSaved: tt.saved, GroupGoal: tt.goal}.Percent())
	}
}

func TestYen(t *testing.T) {
	t.Parallel()

	f := New()
	require.Equal(t, "0", f.Yen(0))
	assert.Equal(t, "999", f.Yen(999))
	assert.Equal(t, "1,000", f.Yen(1000))
	assert.Equal(t, "12,345,678", f.Yen(12345678))
}
