// Package intent classifies free-text chat messages into the small closed set
// of actions the savings bot understands.
//
// Classification is a pure function of the message text: Parse keeps no state
// and never fails. Text that matches nothing is reported as KindUnknown.
package intent

// Kind is the closed tag set of message intents.
type Kind string

// Intent kinds.
const (
	KindGreeting        Kind = "greeting"
	KindHelp            Kind = "help"
	KindSetSavingsGoal  Kind = "set_savings_goal"
	KindCheckProgress   Kind = "check_progress"
	KindCulturalValue   Kind = "cultural_value"
	KindFamilyCommand   Kind = "family_command"
	KindSetHeir         Kind = "set_heir"
	KindInheritanceHelp Kind = "inheritance_help"
	KindUnknown         Kind = "unknown"
)

// Family sub-commands carried in ParsedIntent.Sub.
const (
	FamilyCreate   = "create"
	FamilyInvite   = "invite"
	FamilyJoin     = "join"
	FamilyGoal     = "goal"
	FamilyProgress = "progress"
	FamilyInfo     = "info"
)

// Cultural values carried in ParsedIntent.Value.
const (
	ValueMottainai  = "mottainai"
	ValueOmotenashi = "omotenashi"
	ValueKaizen     = "kaizen"
	ValueGanbaru    = "ganbaru"
)

// DefaultGoalLabel is used when a savings message names no known goal.
const DefaultGoalLabel = "貯金"

// ParsedIntent is the result of classifying one message.
// Only the fields relevant to Kind are set.
type ParsedIntent struct {
	Kind Kind

	// SetSavingsGoal (Amount is also set for family goal commands)
	Amount       int64
	Goal         string
	TimelineDays int    // 0 when no duration was written, capped at config.MaxGoalDays
	Deadline     string // YYYY-MM-DD, or --MM-DD when the year was left out

	Value   string // CulturalValue
	Sub     string // FamilyCommand
	Address string // SetHeir, verbatim

	RawText string
}

// HasTimeline reports whether the message carried a duration or a date.
func (p ParsedIntent) HasTimeline() bool {
	return p.TimelineDays > 0 || p.Deadline != ""
}

// Known reports whether the intent is anything other than KindUnknown.
func (p ParsedIntent) Known() bool {
	return p.Kind != KindUnknown
}
