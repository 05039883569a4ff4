// Package responder fills reply templates for parsed intents.
//
// Each template key owns a small pool of phrasings. One is chosen at random
// per reply for variety, then its {placeholders} are replaced from Vars.
package responder

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/omamori-dev/omamori-linebot-go/internal/intent"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Key selects a template pool.
type Key string

// Template keys. Intent kinds double as keys for their default replies.
const (
	KeyGreeting        = Key(intent.KindGreeting)
	KeyHelp            = Key(intent.KindHelp)
	KeyUnknown         = Key(intent.KindUnknown)
	KeySavingsSet      = Key(intent.KindSetSavingsGoal)
	KeyProgress        = Key(intent.KindCheckProgress)
	KeyInheritanceHelp = Key(intent.KindInheritanceHelp)

	KeySavingsExpired   Key = "savings.expired"
	KeyInvalidTimeline  Key = "savings.invalid_timeline"
	KeyProgressEmpty    Key = "progress.empty"
	KeyFamilyCreated    Key = "family.created"
	KeyFamilyExists     Key = "family.exists"
	KeyFamilyNotFound   Key = "family.not_found"
	KeyFamilyNotGroup   Key = "family.not_group"
	KeyFamilyJoined     Key = "family.joined"
	KeyFamilyInvite     Key = "family.invite"
	KeyFamilyGoalSet    Key = "family.goal_set"
	KeyFamilyGoalNeeded Key = "family.goal_needed"
	KeyFamilyProgress   Key = "family.progress"
	KeyFamilyInfo       Key = "family.info"
	KeyHeirSet          Key = "heir.set"
	KeyDepositReceived  Key = "deposit.received"
	KeyDepositReached   Key = "deposit.reached"
	KeyRateLimited      Key = "system.rate_limited"
	KeyFollow           Key = "system.follow"
)

// CultureKey returns the template key for a cultural value.
func CultureKey(value string) Key {
	return Key("culture." + value)
}

// Vars are the values a template may reference.
type Vars struct {
	Name          string
	Amount        int64
	Goal          string
	DaysRemaining int
	DailyTarget   int64
	TargetDate    time.Time
	TotalSaved    int64
	GroupGoal     int64
	Members       int
	Address       string
	Value         string
}

// Percent is TotalSaved as a share of GroupGoal, capped at 100.
func (v Vars) Percent() int {
	if v.GroupGoal <= 0 {
		return 0
	}
	p := v.TotalSaved * 100 / v.GroupGoal
	return int(min(p, 100))
}

// Filler picks and fills templates. It is safe for concurrent use.
type Filler struct {
	pools   map[Key][]string
	pick    func(n int) int
	printer *message.Printer
}

// Option configures a Filler.
type Option func(*Filler)

// WithPicker replaces the random pool index picker. Tests use it to make
// template selection deterministic.
func WithPicker(pick func(n int) int) Option {
	return func(f *Filler) {
		f.pick = pick
	}
}

// WithTemplates replaces the pool for key.
func WithTemplates(key Key, templates ...string) Option {
	return func(f *Filler) {
		f.pools[key] = templates
	}
}

// New creates a Filler with the built-in template pools.
func New(opts ...Option) *Filler {
	f := &Filler{
		pools:   make(map[Key][]string, len(defaultPools)),
		pick:    rand.IntN,
		printer: message.NewPrinter(language.Japanese),
	}
	for k, v := range defaultPools {
		f.pools[k] = v
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Has reports whether key has its own pool.
func (f *Filler) Has(key Key) bool {
	return len(f.pools[key]) > 0
}

// Fill renders one template from key's pool. Keys without a pool fall back
// to the KeyUnknown pool.
func (f *Filler) Fill(key Key, v Vars) string {
	pool := f.pools[key]
	if len(pool) == 0 {
		pool = f.pools[KeyUnknown]
	}
	if len(pool) == 0 {
		return ""
	}
	tmpl := pool[f.pick(len(pool))]
	return f.replacer(v).Replace(tmpl)
}

// Yen formats an amount with thousands separators.
func (f *Filler) Yen(amount int64) string {
	return f.printer.Sprintf("%d", amount)
}

func (f *Filler) replacer(v Vars) *strings.Replacer {
	targetDate := ""
	if !v.TargetDate.IsZero() {
		targetDate = v.TargetDate.Format("2006/01/02")
	}
	return strings.NewReplacer(
		"{name}", v.Name,
		"{amount}", f.Yen(v.Amount),
		"{goal}", v.Goal,
		"{daysRemaining}", strconv.Itoa(v.DaysRemaining),
		"{dailyTarget}", f.Yen(v.DailyTarget),
		"{targetDate}", targetDate,
		"{totalSaved}", f.Yen(v.TotalSaved),
		"{groupGoal}", f.Yen(v.GroupGoal),
		"{members}", strconv.Itoa(v.Members),
		"{percent}", strconv.Itoa(v.Percent()),
		"{address}", v.Address,
		"{value}", v.Value,
	)
}
