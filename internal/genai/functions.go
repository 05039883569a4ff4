package genai

import "google.golang.org/genai"

// Function names the model may call.
const (
	FuncSetSavingsGoal  = "set_savings_goal"
	FuncCheckProgress   = "check_progress"
	FuncFamilyCommand   = "family_command"
	FuncSetHeir         = "set_heir"
	FuncInheritanceHelp = "inheritance_help"
	FuncCulturalValue   = "cultural_value"
	FuncGreeting        = "greeting"
	FuncHelp            = "help"
	FuncUnknown         = "unknown"
)

// Parameter keys.
const (
	ParamAmount   = "amount"
	ParamGoal     = "goal"
	ParamDays     = "days"
	ParamDeadline = "deadline"
	ParamAction   = "action"
	ParamAddress  = "address"
	ParamValue    = "value"
)

// BuildIntentFunctions declares one function per savings intent.
// Descriptions say what a call means; prompts.go says when to pick it.
// Types are genai.Type* constants and are lowercased for OpenAI tools.
func BuildIntentFunctions() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        FuncSetSavingsGoal,
			Description: "貯金目標を設定する。金額は必須。",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					ParamAmount: {
						Type:        genai.TypeInteger,
						Description: "目標金額（円）。「3万」は 30000。",
					},
					ParamGoal: {
						Type:        genai.TypeString,
						Description: "貯金の目的。例：「京都旅行」「結婚資金」。不明なら空。",
					},
					ParamDays: {
						Type:        genai.TypeInteger,
						Description: "期間（日数）。「3ヶ月」は 90。不明なら 0。",
					},
					ParamDeadline: {
						Type:        genai.TypeString,
						Description: "期限日 YYYY-MM-DD。不明なら空。",
					},
				},
				Required: []string{ParamAmount},
			},
		},
		{
			Name:        FuncCheckProgress,
			Description: "自分の貯金目標と進捗を確認する。",
			Parameters:  emptyParams(),
		},
		{
			Name:        FuncFamilyCommand,
			Description: "家族グループの操作。",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					ParamAction: {
						Type:        genai.TypeString,
						Description: "操作の種類。",
						Enum:        []string{"create", "invite", "join", "goal", "progress", "info"},
					},
					ParamAmount: {
						Type:        genai.TypeInteger,
						Description: "action が goal のときの家族目標金額（円）。それ以外は 0。",
					},
				},
				Required: []string{ParamAction},
			},
		},
		{
			Name:        FuncSetHeir,
			Description: "相続人のウォレットアドレスを登録する。",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					ParamAddress: {
						Type:        genai.TypeString,
						Description: "0x から始まる 42 文字のアドレス。入力のまま。",
					},
				},
				Required: []string{ParamAddress},
			},
		},
		{
			Name:        FuncInheritanceHelp,
			Description: "相続人登録の方法を説明する。",
			Parameters:  emptyParams(),
		},
		{
			Name:        FuncCulturalValue,
			Description: "日本の節約や努力の価値観について話す。",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					ParamValue: {
						Type:        genai.TypeString,
						Description: "価値観。",
						Enum:        []string{"mottainai", "omotenashi", "kaizen", "ganbaru"},
					},
				},
				Required: []string{ParamValue},
			},
		},
		{
			Name:        FuncGreeting,
			Description: "挨拶に応える。",
			Parameters:  emptyParams(),
		},
		{
			Name:        FuncHelp,
			Description: "使い方を表示する。",
			Parameters:  emptyParams(),
		},
		{
			Name:        FuncUnknown,
			Description: "貯金と関係のない内容、または意図が判断できない。",
			Parameters:  emptyParams(),
		},
	}
}

func emptyParams() *genai.Schema {
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{},
	}
}

// ParamKeysMap lists the parameters read from each function call.
// Functions without parameters are absent.
var ParamKeysMap = map[string][]string{
	FuncSetSavingsGoal: {ParamAmount, ParamGoal, ParamDays, ParamDeadline},
	FuncFamilyCommand:  {ParamAction, ParamAmount},
	FuncSetHeir:        {ParamAddress},
	FuncCulturalValue:  {ParamValue},
}

// knownFunction reports whether name is declared.
func knownFunction(name string) bool {
	switch name {
	case FuncSetSavingsGoal, FuncCheckProgress, FuncFamilyCommand, FuncSetHeir,
		FuncInheritanceHelp, FuncCulturalValue, FuncGreeting, FuncHelp, FuncUnknown:
		return true
	}
	return false
}
