// Package culture answers messages about Japanese values related to saving.
package culture

import (
	"context"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/omamori-dev/omamori-linebot-go/internal/bot"
	"github.com/omamori-dev/omamori-linebot-go/internal/intent"
	"github.com/omamori-dev/omamori-linebot-go/internal/lineutil"
	"github.com/omamori-dev/omamori-linebot-go/internal/responder"
)

const ModuleName = "culture"

// values are offered as quick replies, with the word the router recognises.
var values = []struct {
	value, label string
}{
	{intent.ValueMottainai, "もったいない"},
	{intent.ValueOmotenashi, "おもてなし"},
	{intent.ValueKaizen, "改善"},
	{intent.ValueGanbaru, "頑張る"},
}

// Handler serves CulturalValue.
type Handler struct {
	filler *responder.Filler
}

func NewHandler(filler *responder.Filler) *Handler {
	return &Handler{filler: filler}
}

func (h *Handler) Name() string         { return ModuleName }
func (h *Handler) Kinds() []intent.Kind { return []intent.Kind{intent.KindCulturalValue} }

// Handle replies with the value's template and suggests the others.
// A value without its own pool gets the list of known values.
func (h *Handler) Handle(_ context.Context, req bot.Request) ([]messaging_api.MessageInterface, error) {
	key := responder.CultureKey(req.Intent.Value)

	var text string
	if h.filler.Has(key) {
		text = h.filler.Fill(key, responder.Vars{Value: req.Intent.Value})
	} else {
		text = "🌸 日本の心と貯金について話せます。\n下のボタンから選んでください。"
	}

	var items []lineutil.QuickReplyItem
	for _, v := range values {
		if v.value == req.Intent.Value {
			continue
		}
		items = append(items, lineutil.QuickReplyItem{Action: lineutil.NewMessageAction("🌸 "+v.label, v.label)})
	}
	return []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithQuickReply(text, req.Sender, items...),
	}, nil
}
