package intent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omamori-dev/omamori-linebot-go/internal/config"
)

func TestParse_SavingsAmountForms(t *testing.T) {
	t.Parallel()

	amounts := []int64{1, 7, 500, 1000, 30000, 123456, 9999999}
	forms := []string{"¥%d貯めたい", "save ¥%d", "%d円貯金"}

	for _, a := range amounts {
		for _, form := range forms {
			text := fmt.Sprintf(form, a)
			t.Run(text, func(t *testing.T) {
				t.Parallel()
				got := Parse(text)
				assert.Equal(t, KindSetSavingsGoal, got.Kind)
				assert.Equal(t, a, got.Amount)
				assert.Equal(t, text, got.RawText)
			})
		}
	}
}

func TestParse_SavingsAmountVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		amount int64
	}{
		{"full-width yen and digits", "￥３０，０００貯めたい", 30000},
		{"comma thousands", "¥1,234,567貯金したい", 1234567},
		{"man multiplier", "10万円貯めたい", 100000},
		{"particle between", "5000円を貯めたい", 5000},
		{"verb before with suffix", "貯金したい 8000円", 8000},
		{"english with dollar", "I want to save $250", 250},
		{"english yen suffix", "save 4000 yen", 4000},
		{"uppercase english", "SAVE ¥900", 900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.text)
			require.Equal(t, KindSetSavingsGoal, got.Kind)
			assert.Equal(t, tt.amount, got.Amount)
		})
	}
}

func TestParse_GoalLabels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		goal string
	}{
		{"京都旅行のために¥50000貯めたい", "京都旅行"},
		{"save ¥80000 for a trip to Kyoto", "京都旅行"},
		{"東京で遊ぶため¥20000貯めたい", "東京旅行"},
		{"save ¥300000 for hawaii", "ハワイ旅行"},
		{"旅行用に30000円貯金", "旅行"},
		{"save ¥1000 for travel", "旅行"},
		{"結婚式のため100万円貯めたい", "結婚資金"},
		{"¥5000貯めたい", DefaultGoalLabel},
		{"save ¥10", DefaultGoalLabel},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.text)
			require.Equal(t, KindSetSavingsGoal, got.Kind)
			assert.Equal(t, tt.goal, got.Goal)
		})
	}
}

func TestParse_SavingsTimeline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		amount   int64
		days     int
		deadline string
	}{
		{"days before amount", "30日で30000円貯めたい", 30000, 30, ""},
		{"months", "3ヶ月で10万円貯める", 100000, 90, ""},
		{"weeks english", "save ¥7000 in 2 weeks", 7000, 14, ""},
		{"years", "2年で¥730000貯めたい", 730000, 730, ""},
		{"iso date", "2026-12-31までに¥50000貯めたい", 50000, 0, "2026-12-31"},
		{"japanese date", "2027年3月1日までに5万円貯金", 50000, 0, "2027-03-01"},
		{"date without year", "12月31日までに5万円貯めたい", 50000, 0, "--12-31"},
		{"date without year after amount", "5万円を3月1日までに貯める", 50000, 0, "--03-01"},
		{"days after amount", "10000円を30日で貯める", 10000, 30, ""},
		{"months after amount", "30000円を3か月で貯めたい", 30000, 90, ""},
		{"english days after amount", "¥1000を30 days save", 1000, 30, ""},
		{"duration clamped", "100000000000000000年で1000円貯めたい", 1000, config.MaxGoalDays, ""},
		{"years clamped", "200年で¥1000貯めたい", 1000, config.MaxGoalDays, ""},
		{"no timeline", "¥1000貯めたい", 1000, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.text)
			require.Equal(t, KindSetSavingsGoal, got.Kind)
			assert.Equal(t, tt.amount, got.Amount)
			assert.Equal(t, tt.days, got.TimelineDays)
			assert.Equal(t, tt.deadline, got.Deadline)
			assert.Equal(t, tt.days > 0 || tt.deadline != "", got.HasTimeline())
		})
	}
}

func TestParse_Family(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text   string
		sub    string
		amount int64
	}{
		{"家族 作成", FamilyCreate, 0},
		{"create family", FamilyCreate, 0},
		{"家族 招待", FamilyInvite, 0},
		{"family invite", FamilyInvite, 0},
		{"家族に参加", FamilyJoin, 0},
		{"家族目標 ¥100000", FamilyGoal, 100000},
		{"family goal 50万", FamilyGoal, 500000},
		{"家族の進捗", FamilyProgress, 0},
		{"family progress", FamilyProgress, 0},
		{"家族", FamilyInfo, 0},
		{"ファミリーについて", FamilyInfo, 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.text)
			require.Equal(t, KindFamilyCommand, got.Kind)
			assert.Equal(t, tt.sub, got.Sub)
			assert.Equal(t, tt.amount, got.Amount)
		})
	}
}

func TestParse_Heir(t *testing.T) {
	t.Parallel()

	const addr = "0x1234567890123456789012345678901234567890"

	t.Run("japanese keyword with address", func(t *testing.T) {
		t.Parallel()
		got := Parse("相続人 " + addr)
		require.Equal(t, KindSetHeir, got.Kind)
		assert.Equal(t, addr, got.Address)
		assert.Len(t, got.Address, 42)
	})

	t.Run("mixed case kept verbatim", func(t *testing.T) {
		t.Parallel()
		mixed := "0xAbCdEf0123456789abcdef0123456789ABCDEF01"
		got := Parse("set heir " + mixed + " please")
		require.Equal(t, KindSetHeir, got.Kind)
		assert.Equal(t, mixed, got.Address)
	})

	t.Run("41 hex digits is not an address", func(t *testing.T) {
		t.Parallel()
		got := Parse("相続 " + addr + "1")
		assert.Equal(t, KindInheritanceHelp, got.Kind)
		assert.Empty(t, got.Address)
	})

	t.Run("keyword without address", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, KindInheritanceHelp, Parse("相続について").Kind)
		assert.Equal(t, KindInheritanceHelp, Parse("how do I inherit").Kind)
	})

	t.Run("address without keyword", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, KindUnknown, Parse(addr).Kind)
	})
}

func TestParse_SimpleKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		kind Kind
	}{
		{"こんにちは", KindGreeting},
		{"hello", KindGreeting},
		{"Hi there", KindGreeting},
		{"おはようございます", KindGreeting},
		{"ヘルプ", KindHelp},
		{"help", KindHelp},
		{"?", KindHelp},
		{"？", KindHelp},
		{"進捗", KindCheckProgress},
		{"check my status", KindCheckProgress},
		{"貯金の確認", KindCheckProgress},
		{"もったいない", KindCulturalValue},
		{"omotenashi", KindCulturalValue},
		{"", KindUnknown},
		{"   ", KindUnknown},
		{"xyz123 random gibberish", KindUnknown},
		{"this is a high chair", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.kind, Parse(tt.text).Kind)
		})
	}
}

func TestParse_CulturalValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text  string
		value string
	}{
		{"もったいないって何？", ValueMottainai},
		{"Mottainai", ValueMottainai},
		{"おもてなし", ValueOmotenashi},
		{"kaizen", ValueKaizen},
		{"頑張ります", ValueGanbaru},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.text)
			require.Equal(t, KindCulturalValue, got.Kind)
			assert.Equal(t, tt.value, got.Value)
		})
	}
}

func TestParse_PriorityOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		kind Kind
		rule string
	}{
		{"amount beats family", "家族で¥1000貯めたい", KindSetSavingsGoal, RuleSavingsAmount},
		{"family beats progress", "家族 進捗", KindFamilyCommand, RuleFamily},
		{"inheritance beats greeting", "hello 相続", KindInheritanceHelp, RuleInheritance},
		{"greeting beats help", "hi, help me", KindGreeting, RuleGreeting},
		{"help beats progress", "help check", KindHelp, RuleHelp},
		{"progress beats cultural", "もったいない 進捗", KindCheckProgress, RuleProgress},
		{"nothing", "lorem ipsum", KindUnknown, RuleNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, rule := Classify(tt.text)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.rule, rule)
		})
	}
}

func TestParse_NumbersWithoutVerb(t *testing.T) {
	t.Parallel()

	tests := []string{
		"¥1000",
		"30日",
		"残り1000円",
		"0円貯金",
		"貯金の目標2つ確認したい",
		"貯金 status 3",
		"貯めた 3回目 check",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			t.Parallel()
			assert.NotEqual(t, KindSetSavingsGoal, Parse(text).Kind)
		})
	}
}

func TestParse_BareNumberNeedsAdjacentVerb(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text   string
		kind   Kind
		amount int64
	}{
		{"貯金の目標2つ確認したい", KindCheckProgress, 0},
		{"貯金 status 3", KindCheckProgress, 0},
		{"貯めた 3回目 check", KindCheckProgress, 0},
		{"save 3000", KindSetSavingsGoal, 3000},
		{"貯金 5万", KindSetSavingsGoal, 50000},
		{"貯金したい 8000円", KindSetSavingsGoal, 8000},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.text)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.amount, got.Amount)
		})
	}
}

func TestParse_Deterministic(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"京都旅行のために3ヶ月で¥90,000貯めたい",
		"家族 目標 ¥200000",
		"相続人 0x1234567890123456789012345678901234567890",
		"hello",
		"???",
	}
	for _, in := range inputs {
		first := Parse(in)
		for range 5 {
			assert.Equal(t, first, Parse(in))
		}
	}
}

func TestGoalLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "京都旅行", GoalLabel("Kyoto trip"))
	assert.Equal(t, "結婚資金", GoalLabel("ＷＥＤＤＩＮＧ"))
	assert.Equal(t, DefaultGoalLabel, GoalLabel("new bike"))
	assert.Equal(t, DefaultGoalLabel, GoalLabel(""))
}

func TestIsAddress(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAddress("0x1234567890abcdefABCDEF123456789012345678"))
	assert.False(t, IsAddress("0x12345678901234567890123456789012345678901"))
	assert.False(t, IsAddress("1234567890123456789012345678901234567890"))
	assert.False(t, IsAddress(" 0x1234567890123456789012345678901234567890"))
}
