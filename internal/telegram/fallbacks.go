package telegram

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/nutrobot/core/telegram/format"
	tghelpers "github.com/m3rciful/nutrobot/core/telegram/helpers"
	"github.com/m3rciful/nutrobot/internal/engine"
)

// Fallbacks answers updates nothing else claimed. Unknown text still
// goes to the engine, which decides whether to stay quiet.
type Fallbacks struct {
	engine *engine.Engine
}

// NewFallbacks builds the fallback provider for router wiring.
func NewFallbacks(eng *engine.Engine) *Fallbacks {
	return &Fallbacks{engine: eng}
}

// UnknownText relays stray text into the engine. Idle chatter gets no
// reply, unknown slash commands get the /help hint.
func (f *Fallbacks) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return relay(c, f.engine, c.Text())
	}
}

// UnknownDocument tells the sender the bot is text-only.
func (f *Fallbacks) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		name := ""
		if doc := c.Message().Document; doc != nil {
			name = doc.FileName
		}
		if name == "" {
			return tghelpers.SendText(c, "I can only read text. Type the food instead, e.g. /food banana 150 g.")
		}
		escaped, err := format.EscapeMarkdown(name, format.MarkdownV1, "")
		if err != nil {
			escaped = name
		}
		return tghelpers.SendMD(c, "I can't read *"+escaped+"*. Type the food instead, e.g. /food banana 150 g.")
	}
}

// UnknownCallback answers button presses that map to nothing.
func (f *Fallbacks) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "That button has expired."})
	}
}
