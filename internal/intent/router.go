package intent

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/omamori-dev/omamori-linebot-go/internal/config"
)

// rule is one entry of the classification table. Rules are evaluated in
// order and the first match wins, so overlapping patterns resolve by position.
type rule struct {
	name  string
	match func(n normalized) (ParsedIntent, bool)
}

// Rule names, reported by Classify for metrics and logs.
const (
	RuleSavingsAmount = "savings_amount"
	RuleFamily        = "family_command"
	RuleInheritance   = "inheritance"
	RuleGreeting      = "greeting"
	RuleHelp          = "help"
	RuleProgress      = "progress"
	RuleCultural      = "cultural_value"
	RuleNone          = "none"
)

var rules = []rule{
	{name: RuleSavingsAmount, match: matchSavings},
	{name: RuleFamily, match: matchFamily},
	{name: RuleInheritance, match: matchInheritance},
	{name: RuleGreeting, match: keywordRule(KindGreeting, greetingRe)},
	{name: RuleHelp, match: matchHelp},
	{name: RuleProgress, match: keywordRule(KindCheckProgress, progressRe)},
	{name: RuleCultural, match: matchCultural},
}

const (
	saveVerbs     = `(?:貯め|貯金|貯蓄|save)`
	durationUnits = `(?:日間|日|週間|週|ヶ月|か月|カ月|ヵ月|ケ月|年間|年|(?:day|week|month|year)s?\b)`
	fullDate      = `\d{4}[-/年]\d{1,2}[-/月]\d{1,2}日?`
	monthDay      = `\d{1,2}月\d{1,2}日`
)

var (
	// amountRe captures: 1 currency symbol, 2 digits, 3 万 multiplier, 4 yen suffix.
	amountRe = regexp.MustCompile(`([¥$])?\s*(\d{1,3}(?:,\d{3})+|\d+)\s*(万)?\s*(円|yen)?`)

	// verbAfterRe allows one particle and an optional timeline phrase between
	// the amount and the verb, as in 10000円を30日で貯める.
	verbAfterRe = regexp.MustCompile(`^\s*[をはも]?\s*(?:(?:` + fullDate + `|` + monthDay + `|\d+\s*` + durationUnits +
		`)\s*(?:で|までに|まで|以内に|in|within|by)?\s*)?` + saveVerbs)
	verbBeforeRe   = regexp.MustCompile(saveVerbs + `[^\d¥$]{0,8}$`)
	verbAdjacentRe = regexp.MustCompile(saveVerbs + `\s*$`)
	timeUnitRe     = regexp.MustCompile(`^\s*(?:日|週|ヶ月|か月|カ月|ヵ月|ケ月|月|年|(?:day|week|month|year)s?\b)`)

	durationRe = regexp.MustCompile(`(\d+)\s*(` + durationUnits + `)`)
	deadlineRe = regexp.MustCompile(`(\d{4})[-/年](\d{1,2})[-/月](\d{1,2})日?`)
	monthDayRe = regexp.MustCompile(`(\d{1,2})月(\d{1,2})日`)

	familyRe  = regexp.MustCompile(`家族|ファミリー|\bfamily\b`)
	heirRe    = regexp.MustCompile(`相続|遺産|\binherit|\bheir`)
	addressRe = regexp.MustCompile(`(0x[0-9a-fA-F]{40})(?:[^0-9a-fA-F]|$)`)
	exactRe   = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

	greetingRe = regexp.MustCompile(`こんにちは|こんばんは|おはよう|\bhello\b|\bhi\b`)
	helpRe     = regexp.MustCompile(`ヘルプ|使い方|\bhelp\b`)
	progressRe = regexp.MustCompile(`進捗|状況|確認|\bprogress\b|\bcheck\b|\bstatus\b`)
)

var familySubcommands = []struct {
	sub      string
	keywords []string
}{
	{FamilyCreate, []string{"作成", "作る", "つくる", "create"}},
	{FamilyInvite, []string{"招待", "invite"}},
	{FamilyJoin, []string{"参加", "join"}},
	{FamilyGoal, []string{"目標", "goal"}},
	{FamilyProgress, []string{"進捗", "progress"}},
}

// goalLabels is ordered most specific first.
var goalLabels = []struct {
	label    string
	keywords []string
}{
	{"京都旅行", []string{"京都", "kyoto"}},
	{"東京旅行", []string{"東京", "tokyo"}},
	{"大阪旅行", []string{"大阪", "osaka"}},
	{"北海道旅行", []string{"北海道", "hokkaido"}},
	{"沖縄旅行", []string{"沖縄", "okinawa"}},
	{"ハワイ旅行", []string{"ハワイ", "hawaii"}},
	{"旅行", []string{"旅行", "travel", "trip"}},
	{"結婚資金", []string{"結婚", "wedding"}},
	{"教育資金", []string{"教育", "education"}},
	{"老後資金", []string{"老後", "retirement"}},
}

var culturalValues = []struct {
	value    string
	keywords []string
}{
	{ValueMottainai, []string{"もったいない", "勿体無い", "mottainai"}},
	{ValueOmotenashi, []string{"おもてなし", "omotenashi"}},
	{ValueKaizen, []string{"改善", "カイゼン", "kaizen"}},
	{ValueGanbaru, []string{"頑張", "がんば", "ganbaru", "ganbatte"}},
}

// normalized holds the views of a message the rules match against.
type normalized struct {
	raw    string
	folded string // full-width ASCII folded to half-width, trimmed
	lower  string // folded and lower-cased, used for keyword matching
}

func normalize(text string) normalized {
	folded := strings.TrimSpace(width.Fold.String(text))
	return normalized{
		raw:    text,
		folded: folded,
		lower:  strings.ToLower(folded),
	}
}

// Parse classifies a message. It never fails: text that matches no rule,
// including empty text, yields KindUnknown.
func Parse(text string) ParsedIntent {
	p, _ := Classify(text)
	return p
}

// Classify is Parse that also reports which rule matched, or RuleNone.
func Classify(text string) (ParsedIntent, string) {
	n := normalize(text)
	if n.lower == "" {
		return ParsedIntent{Kind: KindUnknown, RawText: text}, RuleNone
	}
	for _, r := range rules {
		if p, ok := r.match(n); ok {
			p.RawText = text
			return p, r.name
		}
	}
	return ParsedIntent{Kind: KindUnknown, RawText: text}, RuleNone
}

// amountCandidate is a money-looking number found in the text.
type amountCandidate struct {
	value      int64
	start, end int
	marked     bool // carried a currency symbol or yen suffix
	man        bool
}

// findAmounts returns the money-looking numbers in s, in order. Numbers that
// belong to a date or are directly followed by a time unit are skipped.
func findAmounts(s string) []amountCandidate {
	var skip [][]int
	skip = append(skip, deadlineRe.FindAllStringIndex(s, -1)...)
	skip = append(skip, monthDayRe.FindAllStringIndex(s, -1)...)

	var out []amountCandidate
	for _, m := range amountRe.FindAllStringSubmatchIndex(s, -1) {
		digitsStart, digitsEnd := m[4], m[5]
		if overlaps(skip, digitsStart, digitsEnd) {
			continue
		}
		marked := m[2] >= 0 || m[8] >= 0
		if !marked && timeUnitRe.MatchString(s[digitsEnd:]) {
			continue
		}
		v, ok := parseAmount(s[digitsStart:digitsEnd], m[6] >= 0)
		if !ok {
			continue
		}
		out = append(out, amountCandidate{value: v, start: m[0], end: m[1], marked: marked, man: m[6] >= 0})
	}
	return out
}

func overlaps(spans [][]int, start, end int) bool {
	for _, sp := range spans {
		if start < sp[1] && end > sp[0] {
			return true
		}
	}
	return false
}

func parseAmount(digits string, man bool) (int64, bool) {
	v, err := strconv.ParseInt(strings.ReplaceAll(digits, ",", ""), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	if man {
		if v > math.MaxInt64/10000 {
			return 0, false
		}
		v *= 10000
	}
	return v, true
}

func matchSavings(n normalized) (ParsedIntent, bool) {
	for _, c := range findAmounts(n.lower) {
		if !verbAfterRe.MatchString(n.lower[c.end:]) && !verbFollowedBy(n.lower[:c.start], c) {
			continue
		}
		p := ParsedIntent{
			Kind:   KindSetSavingsGoal,
			Amount: c.value,
			Goal:   goalLabel(n.lower),
		}
		p.Deadline, p.TimelineDays = parseTimeline(n.lower)
		return p, true
	}
	return ParsedIntent{}, false
}

// verbFollowedBy reports whether the text before c ends in a save verb. A bare
// number must sit right after the verb; a marked amount may be a few
// characters further on, as in 貯金したい 8000円.
func verbFollowedBy(before string, c amountCandidate) bool {
	if c.marked || c.man {
		return verbBeforeRe.MatchString(before)
	}
	return verbAdjacentRe.MatchString(before)
}

// GoalLabel maps free text to a goal label using the same keyword table as
// Parse, falling back to DefaultGoalLabel.
func GoalLabel(text string) string {
	return goalLabel(normalize(text).lower)
}

// IsAddress reports whether s is exactly a 0x-prefixed 40-hex-digit address.
func IsAddress(s string) bool {
	return exactRe.MatchString(s)
}

func goalLabel(s string) string {
	for _, g := range goalLabels {
		if containsAny(s, g.keywords) {
			return g.label
		}
	}
	return DefaultGoalLabel
}

// parseTimeline returns an explicit date if one is written, otherwise the
// first duration converted to days. A date without a year is returned as
// --MM-DD and resolved against the current date by the goal calculator.
// Durations longer than config.MaxGoalDays are clamped to it.
func parseTimeline(s string) (deadline string, days int) {
	if m := deadlineRe.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return fmt.Sprintf("%04d-%02d-%02d", y, mo, d), 0
	}
	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("--%02d-%02d", mo, d), 0
	}
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return "", 0
	}
	count, err := strconv.Atoi(m[1])
	if err != nil || count <= 0 {
		return "", 0
	}
	unit := unitDays(m[2])
	if count > config.MaxGoalDays/unit {
		return "", config.MaxGoalDays
	}
	return "", count * unit
}

func unitDays(unit string) int {
	switch {
	case strings.HasPrefix(unit, "週"), strings.HasPrefix(unit, "week"):
		return 7
	case strings.HasSuffix(unit, "月"), strings.HasPrefix(unit, "month"):
		return 30
	case strings.HasPrefix(unit, "年"), strings.HasPrefix(unit, "year"):
		return 365
	default:
		return 1
	}
}

func matchFamily(n normalized) (ParsedIntent, bool) {
	if !familyRe.MatchString(n.lower) {
		return ParsedIntent{}, false
	}
	p := ParsedIntent{Kind: KindFamilyCommand, Sub: FamilyInfo}
	for _, fs := range familySubcommands {
		if containsAny(n.lower, fs.keywords) {
			p.Sub = fs.sub
			break
		}
	}
	if amounts := findAmounts(n.lower); len(amounts) > 0 {
		p.Amount = amounts[0].value
	}
	return p, true
}

func matchInheritance(n normalized) (ParsedIntent, bool) {
	if !heirRe.MatchString(n.lower) {
		return ParsedIntent{}, false
	}
	if m := addressRe.FindStringSubmatch(n.folded); m != nil {
		return ParsedIntent{Kind: KindSetHeir, Address: m[1]}, true
	}
	return ParsedIntent{Kind: KindInheritanceHelp}, true
}

func matchHelp(n normalized) (ParsedIntent, bool) {
	if n.lower == "?" || helpRe.MatchString(n.lower) {
		return ParsedIntent{Kind: KindHelp}, true
	}
	return ParsedIntent{}, false
}

func matchCultural(n normalized) (ParsedIntent, bool) {
	for _, cv := range culturalValues {
		if containsAny(n.lower, cv.keywords) {
			return ParsedIntent{Kind: KindCulturalValue, Value: cv.value}, true
		}
	}
	return ParsedIntent{}, false
}

func keywordRule(kind Kind, re *regexp.Regexp) func(normalized) (ParsedIntent, bool) {
	return func(n normalized) (ParsedIntent, bool) {
		if re.MatchString(n.lower) {
			return ParsedIntent{Kind: kind}, true
		}
		return ParsedIntent{}, false
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
