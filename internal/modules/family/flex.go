package family

import (
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/omamori-dev/omamori-linebot-go/internal/bot"
	"github.com/omamori-dev/omamori-linebot-go/internal/lineutil"
	"github.com/omamori-dev/omamori-linebot-go/internal/responder"
	"github.com/omamori-dev/omamori-linebot-go/internal/storage"
)

// ProgressMessage renders the family total as a bubble. The filled
// family.progress template is used as the alt text.
//
//	┌──────────────────────────┐
//	│ 👪 家族の貯金            │  <- hero
//	├──────────────────────────┤
//	│ 💴 合計        ¥25,000   │
//	│ 🎯 目標       ¥100,000   │
//	│ 👥 メンバー        3 人  │
//	│ [progress bar]     25%   │
//	├──────────────────────────┤
//	│      [📊 最新の状況]     │
//	└──────────────────────────┘
func ProgressMessage(filler *responder.Filler, g *storage.FamilyGroup, sender *messaging_api.Sender) *messaging_api.FlexMessage {
	v := varsOf(g)

	goal := "未設定"
	if g.SavingsGoal > 0 {
		goal = "¥" + filler.Yen(g.SavingsGoal)
	}

	body := lineutil.NewBodyContentBuilder().
		AddInfoRow("💴", "合計", "¥"+filler.Yen(g.TotalSaved)).
		AddInfoRow("🎯", "目標", goal).
		AddInfoRow("👥", "メンバー", fmt.Sprintf("%d 人", len(g.Members)))
	if g.SavingsGoal > 0 {
		body.AddComponent(lineutil.NewFlexBox("vertical",
			lineutil.NewProgressBar(v.Percent()).FlexBox,
			lineutil.NewFlexText(fmt.Sprintf("%d%%", v.Percent())).WithSize("xs").WithColor(lineutil.ColorSubtext).WithAlign("end").WithMargin("sm").FlexText,
		).FlexBox)
	}

	var footer *lineutil.FlexBox
	if data, err := bot.BuildPostback(PostbackPrefix, "progress"); err == nil {
		footer = lineutil.NewButtonFooter(
			lineutil.NewFlexButton(lineutil.NewPostbackActionWithDisplayText("📊 最新の状況", "家族 進捗", data)).
				WithStyle("primary").WithColor(lineutil.ColorPrimary).WithHeight("sm"),
		)
	}

	title := "👪 家族の貯金"
	if g.GoalReached() {
		title = "🎊 目標達成！"
	}
	bubble := lineutil.NewFlexBubble(lineutil.NewHeroBox(title, ""), nil, body.Build(), footer)

	msg := lineutil.NewFlexMessage(filler.Fill(responder.KeyFamilyProgress, v), bubble.FlexBubble)
	msg.Sender = sender
	return msg
}

// DepositMessage is pushed to the group after a deposit. name is the
// depositor's display name; an empty name falls back to a generic label.
func DepositMessage(filler *responder.Filler, g *storage.FamilyGroup, name string, amount int64, reached bool, sender *messaging_api.Sender) []messaging_api.MessageInterface {
	if name == "" {
		name = "メンバー"
	}
	v := varsOf(g)
	v.Name = name
	v.Amount = amount

	msgs := []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithConsistentSender(filler.Fill(responder.KeyDepositReceived, v), sender),
	}
	if reached {
		msgs = append(msgs, lineutil.NewTextMessageWithConsistentSender(filler.Fill(responder.KeyDepositReached, v), sender))
	}
	return msgs
}
