package lineutil

import (
	"fmt"
	"math"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// MaxBubblesPerCarousel is kept below the API maximum of 12 so alt text
// page ranges stay round.
const MaxBubblesPerCarousel = 10

// FlexBubble wraps messaging_api.FlexBubble.
type FlexBubble struct {
	*messaging_api.FlexBubble
}

// NewFlexBubble creates a bubble. Any part may be nil.
func NewFlexBubble(header *FlexBox, hero messaging_api.FlexComponentInterface, body *FlexBox, footer *FlexBox) *FlexBubble {
	bubble := &messaging_api.FlexBubble{}
	if header != nil {
		bubble.Header = header.FlexBox
	}
	if hero != nil {
		bubble.Hero = hero
	}
	if body != nil {
		bubble.Body = body.FlexBox
	}
	if footer != nil {
		bubble.Footer = footer.FlexBox
	}
	return &FlexBubble{bubble}
}

// NewFlexCarousel creates a carousel of bubbles.
func NewFlexCarousel(bubbles []messaging_api.FlexBubble) *messaging_api.FlexCarousel {
	return &messaging_api.FlexCarousel{Contents: bubbles}
}

// BuildCarouselMessages splits bubbles into carousels of at most
// MaxBubblesPerCarousel. Later pages get the bubble range appended to altText.
func BuildCarouselMessages(altText string, bubbles []messaging_api.FlexBubble, sender *messaging_api.Sender) []messaging_api.MessageInterface {
	if len(bubbles) == 0 {
		return nil
	}

	var messages []messaging_api.MessageInterface
	for i := 0; i < len(bubbles); i += MaxBubblesPerCarousel {
		end := min(i+MaxBubblesPerCarousel, len(bubbles))

		alt := altText
		if i > 0 {
			alt = fmt.Sprintf("%s (%d-%d)", altText, i+1, end)
		}

		msg := NewFlexMessage(alt, NewFlexCarousel(bubbles[i:end]))
		msg.Sender = sender
		messages = append(messages, msg)
	}
	return messages
}

// FlexBox wraps messaging_api.FlexBox with setters.
type FlexBox struct {
	*messaging_api.FlexBox
}

// NewFlexBox creates a box with layout "vertical", "horizontal" or "baseline".
func NewFlexBox(layout string, contents ...messaging_api.FlexComponentInterface) *FlexBox {
	return &FlexBox{&messaging_api.FlexBox{
		Layout:   messaging_api.FlexBoxLAYOUT(layout),
		Contents: contents,
	}}
}

// WithSpacing sets the gap between children.
func (b *FlexBox) WithSpacing(spacing string) *FlexBox {
	b.Spacing = spacing
	return b
}

// WithMargin sets the box margin.
func (b *FlexBox) WithMargin(margin string) *FlexBox {
	b.Margin = margin
	return b
}

// WithPaddingAll sets padding on every side.
func (b *FlexBox) WithPaddingAll(padding string) *FlexBox {
	b.PaddingAll = padding
	return b
}

// WithBackgroundColor sets the background.
func (b *FlexBox) WithBackgroundColor(color string) *FlexBox {
	b.BackgroundColor = color
	return b
}

// WithCornerRadius sets the corner radius.
func (b *FlexBox) WithCornerRadius(radius string) *FlexBox {
	b.CornerRadius = radius
	return b
}

// FlexText wraps messaging_api.FlexText with setters.
type FlexText struct {
	*messaging_api.FlexText
}

// NewFlexText creates a text component.
func NewFlexText(text string) *FlexText {
	return &FlexText{&messaging_api.FlexText{Text: text}}
}

// WithWeight sets "regular" or "bold".
func (t *FlexText) WithWeight(weight string) *FlexText {
	t.Weight = messaging_api.FlexTextWEIGHT(weight)
	return t
}

// WithSize sets the font size keyword.
func (t *FlexText) WithSize(size string) *FlexText {
	t.Size = size
	return t
}

// WithColor sets the text colour.
func (t *FlexText) WithColor(color string) *FlexText {
	t.Color = color
	return t
}

// WithWrap toggles wrapping.
func (t *FlexText) WithWrap(wrap bool) *FlexText {
	t.Wrap = wrap
	return t
}

// WithFlex sets the flex factor, clamped to the int32 range.
func (t *FlexText) WithFlex(flex int) *FlexText {
	t.Flex = int32(min(max(flex, 0), math.MaxInt32))
	return t
}

// WithAlign sets "start", "end" or "center".
func (t *FlexText) WithAlign(align string) *FlexText {
	t.Align = messaging_api.FlexTextALIGN(align)
	return t
}

// WithMargin sets the margin.
func (t *FlexText) WithMargin(margin string) *FlexText {
	t.Margin = margin
	return t
}

// WithLineSpacing sets the line spacing.
func (t *FlexText) WithLineSpacing(spacing string) *FlexText {
	t.LineSpacing = spacing
	return t
}

// FlexButton wraps messaging_api.FlexButton with setters.
type FlexButton struct {
	*messaging_api.FlexButton
}

// NewFlexButton creates a button for action.
func NewFlexButton(action Action) *FlexButton {
	return &FlexButton{&messaging_api.FlexButton{Action: action}}
}

// WithStyle sets "link", "primary" or "secondary".
func (b *FlexButton) WithStyle(style string) *FlexButton {
	b.Style = messaging_api.FlexButtonSTYLE(style)
	return b
}

// WithColor sets the button colour.
func (b *FlexButton) WithColor(color string) *FlexButton {
	b.Color = color
	return b
}

// WithHeight sets "sm" or "md".
func (b *FlexButton) WithHeight(height string) *FlexButton {
	b.Height = messaging_api.FlexButtonHEIGHT(height)
	return b
}

// FlexSeparator wraps messaging_api.FlexSeparator.
type FlexSeparator struct {
	*messaging_api.FlexSeparator
}

// NewFlexSeparator creates a separator.
func NewFlexSeparator() *FlexSeparator {
	return &FlexSeparator{&messaging_api.FlexSeparator{Color: ColorSeparator}}
}

// WithMargin sets the margin.
func (s *FlexSeparator) WithMargin(margin string) *FlexSeparator {
	s.Margin = margin
	return s
}

// TruncateRunes shortens text to at most maxRunes runes, ending in "..."
// when there is room for it.
func TruncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// NewHeroBox creates the coloured title block used at the top of bubbles.
// An empty subtitle is omitted because LINE rejects empty text.
func NewHeroBox(title, subtitle string) *FlexBox {
	contents := []messaging_api.FlexComponentInterface{
		NewFlexText(title).WithWeight("bold").WithSize("xl").WithColor(ColorHeroText).WithWrap(true).WithLineSpacing(LineSpacingLarge).FlexText,
	}
	if subtitle != "" {
		contents = append(contents, NewFlexText(subtitle).WithSize("xs").WithColor(ColorHeroText).WithMargin("md").WithWrap(true).FlexText)
	}
	box := NewFlexBox("vertical", contents...)
	box.BackgroundColor = ColorHeroBg
	box.PaddingAll = SpacingXXL
	box.PaddingBottom = SpacingXL
	return box
}

// NewInfoRow creates a "label ... value" row.
func NewInfoRow(emoji, label, value string) *FlexBox {
	return NewFlexBox("horizontal",
		NewFlexText(emoji+" "+label).WithSize("sm").WithColor(ColorLabel).WithFlex(0).FlexText,
		NewFlexText(value).WithSize("sm").WithColor(ColorText).WithWeight("bold").WithAlign("end").WithWrap(true).FlexText,
	).WithSpacing("sm")
}

// NewProgressBar draws a horizontal bar filled to percent, clamped to 0..100.
func NewProgressBar(percent int) *FlexBox {
	percent = min(max(percent, 0), 100)

	fill := NewFlexBox("vertical", NewFlexFiller())
	fill.BackgroundColor = ColorProgressFill
	fill.Width = fmt.Sprintf("%d%%", percent)
	fill.Height = "6px"
	fill.CornerRadius = "3px"

	track := NewFlexBox("vertical", fill.FlexBox)
	track.BackgroundColor = ColorProgressTrack
	track.Height = "6px"
	track.CornerRadius = "3px"
	track.Margin = "md"
	return track
}

// NewFlexFiller returns a filler component. Empty boxes must contain at
// least one child.
func NewFlexFiller() messaging_api.FlexComponentInterface {
	return &messaging_api.FlexFiller{}
}

// NewButtonFooter stacks buttons vertically. Nil buttons are skipped.
func NewButtonFooter(buttons ...*FlexButton) *FlexBox {
	var contents []messaging_api.FlexComponentInterface
	for _, btn := range buttons {
		if btn != nil {
			contents = append(contents, btn.FlexButton)
		}
	}
	return NewFlexBox("vertical", contents...).WithSpacing("sm")
}

// BodyContentBuilder collects body rows, separating them automatically.
type BodyContentBuilder struct {
	contents []messaging_api.FlexComponentInterface
}

// NewBodyContentBuilder creates an empty builder.
func NewBodyContentBuilder() *BodyContentBuilder {
	return &BodyContentBuilder{}
}

// AddInfoRow adds a label/value row.
func (b *BodyContentBuilder) AddInfoRow(emoji, label, value string) *BodyContentBuilder {
	return b.AddComponent(NewInfoRow(emoji, label, value).FlexBox)
}

// AddInfoRowIf adds the row only when value is non-empty.
func (b *BodyContentBuilder) AddInfoRowIf(emoji, label, value string) *BodyContentBuilder {
	if value == "" {
		return b
	}
	return b.AddInfoRow(emoji, label, value)
}

// AddComponent adds any component, preceded by a separator after the first.
func (b *BodyContentBuilder) AddComponent(component messaging_api.FlexComponentInterface) *BodyContentBuilder {
	if len(b.contents) > 0 {
		b.contents = append(b.contents, NewFlexSeparator().WithMargin("sm").FlexSeparator)
	}
	b.contents = append(b.contents, component)
	return b
}

// Build returns the body box.
func (b *BodyContentBuilder) Build() *FlexBox {
	return NewFlexBox("vertical", b.contents...).WithSpacing("sm")
}

// Len returns the number of components added, separators excluded.
func (b *BodyContentBuilder) Len() int {
	n := 0
	for _, c := range b.contents {
		if _, ok := c.(*messaging_api.FlexSeparator); !ok {
			n++
		}
	}
	return n
}
