// Package telegram glues the conversation engine to the bot runtime:
// command and callback registration, reply delivery, and the inline
// keyboards that mirror the current flow state.
package telegram

import (
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	coretelegram "github.com/m3rciful/nutrobot/core/telegram"
	"github.com/m3rciful/nutrobot/core/telegram/callbacks"
	"github.com/m3rciful/nutrobot/core/telegram/commands"
	tghelpers "github.com/m3rciful/nutrobot/core/telegram/helpers"
	"github.com/m3rciful/nutrobot/core/telegram/keyboard"
	"github.com/m3rciful/nutrobot/core/telegram/middleware"
	"github.com/m3rciful/nutrobot/internal/engine"
	"github.com/m3rciful/nutrobot/internal/session"
)

// Callback actions carried in inline button data.
const (
	cbEntryConfirm = "entry_confirm"
	cbUndoConfirm  = "undo_confirm"
	cbFlowCancel   = "flow_cancel"
	cbTrendDays    = "trend_days"
)

// Handlers owns the bot-facing glue around the conversation engine.
type Handlers struct {
	engine *engine.Engine
	fsm    *FlowManager
}

// NewHandlers builds the handler set for registration.
func NewHandlers(eng *engine.Engine, fsm *FlowManager) *Handlers {
	return &Handlers{engine: eng, fsm: fsm}
}

// relay feeds one message into the engine and delivers its replies.
// The last reply carries an inline keyboard matching the flow state the
// engine left behind, so every prompt arrives with matching buttons.
func relay(c tele.Context, eng *engine.Engine, text string) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID

	replies, err := eng.HandleMessage(ctx, userID, text, time.Now())

	markup := keyboardForState(eng.SessionState(ctx, userID))
	var sendErr error
	for i, reply := range replies {
		var e error
		if i == len(replies)-1 && markup != nil {
			e = tghelpers.SendText(c, reply, &tele.SendOptions{ReplyMarkup: markup})
		} else {
			e = tghelpers.SendText(c, reply)
		}
		if e != nil && sendErr == nil {
			sendErr = e
		}
	}
	if err != nil {
		return err
	}
	return sendErr
}

// keyboardForState picks the inline keyboard for the state a turn ended in.
// Confirmation states get yes/no buttons, any other active flow gets a
// cancel button, idle gets nothing.
func keyboardForState(st session.State) *tele.ReplyMarkup {
	switch st {
	case session.StateIdle:
		return nil
	case session.StateConfirmingEntry:
		return confirmKeyboard(cbEntryConfirm)
	case session.StateConfirmingUndo:
		return confirmKeyboard(cbUndoConfirm)
	default:
		return keyboard.SingleCancelMarkup(cbFlowCancel)
	}
}

func confirmKeyboard(action string) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "✅ Yes", Unique: action, Data: "yes"},
		{Text: "✖️ No", Unique: action, Data: "no"},
	})
}

func trendKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsNPerRow([]keyboard.InlineBtn{
		{Text: "7 days", Unique: cbTrendDays, Data: "7"},
		{Text: "30 days", Unique: cbTrendDays, Data: "30"},
	}, 2)
}

// onText is the shared funnel for commands and flow input.
func (h *Handlers) onText(c tele.Context) error {
	return relay(c, h.engine, c.Text())
}

// onToday renders the day summary and offers trend shortcuts.
func (h *Handlers) onToday(c tele.Context) error {
	if err := relay(c, h.engine, c.Text()); err != nil {
		return err
	}
	return tghelpers.SendText(c, "Longer view:", &tele.SendOptions{ReplyMarkup: trendKeyboard()})
}

// onConfirmAnswer translates a yes/no button press into the same words
// the user could have typed.
func (h *Handlers) onConfirmAnswer(c tele.Context) error {
	answer := callbacks.CallbackPayload(c)
	if answer != "yes" {
		answer = "no"
	}
	return relay(c, h.engine, answer)
}

// onFlowCancel aborts the active flow from the cancel button.
func (h *Handlers) onFlowCancel(c tele.Context) error {
	return relay(c, h.engine, "/cancel")
}

// onTrendDays runs a trend query for the day count carried in the button.
func (h *Handlers) onTrendDays(c tele.Context) error {
	days, err := callbacks.PayloadInt(c)
	if err != nil || days <= 0 {
		return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
	}
	return relay(c, h.engine, fmt.Sprintf("/trend %d", days))
}

// RegisterCommands fills the registry with the bot command set.
func (h *Handlers) RegisterCommands(reg *coretelegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.onText,
		Description: "Introduce the bot and your calorie goal",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     h.onText,
		Description: "List what I can do",
	})
	reg.RegisterCommand("/profile", commands.Command{
		Handler:     h.onText,
		Description: "Show or edit your profile and goals",
	})
	reg.RegisterCommand("/food", commands.Command{
		Handler:     h.onText,
		Description: "Log a food, e.g. /food banana 150 g",
	})
	reg.RegisterCommand("/addfood", commands.Command{
		Handler:     h.onText,
		Description: "Teach me a food, numbers per 100 g",
	})
	reg.RegisterCommand("/water", commands.Command{
		Handler:     h.onText,
		Description: "Log water in milliliters",
	})
	reg.RegisterCommand("/workout", commands.Command{
		Handler:     h.onText,
		Description: "Log a workout and its burn",
	})
	reg.RegisterCommand("/today", commands.Command{
		Handler:     h.onToday,
		Description: "Today's calories, macros and water",
	})
	reg.RegisterCommand("/trend", commands.Command{
		Handler:     h.onText,
		Description: "Totals over the last days",
	})
	reg.RegisterCommand("/undo", commands.Command{
		Handler:     h.onText,
		Description: "Remove the last logged food",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     h.onText,
		Description: "Abort the current conversation",
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     h.onText,
		Description: "Usage counters",
		AdminOnly:   true,
		Hidden:      true,
	})
}

// RegisterCallbacks wires inline button actions, gated by flow state so
// stale buttons on old messages do nothing.
func (h *Handlers) RegisterCallbacks(reg *coretelegram.Registry) {
	entryGate := middleware.State(h.fsm, string(session.StateConfirmingEntry))
	undoGate := middleware.State(h.fsm, string(session.StateConfirmingUndo))
	anyFlowGate := middleware.State(h.fsm)

	_ = reg.RegisterCallback(cbEntryConfirm, entryGate(h.onConfirmAnswer))
	_ = reg.RegisterCallback(cbUndoConfirm, undoGate(h.onConfirmAnswer))
	_ = reg.RegisterCallback(cbFlowCancel, anyFlowGate(h.onFlowCancel))
	_ = reg.RegisterCallback(cbTrendDays, h.onTrendDays)
}
