package middleware

import (
	"strings"

	"github.com/m3rciful/nutrobot/core/logger"
	tghelpers "github.com/m3rciful/nutrobot/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// StateGetter is the minimal interface required from an FSM manager.
type StateGetter interface {
	GetState(userID int64) string
}

// StateIdle is the state reported for users with no active conversation.
const StateIdle = "idle"

// State returns a middleware that runs the handler only when the user's
// FSM state matches one of the expected values. With no expected values
// the handler runs for any active (non-idle) conversation.
func State(mgr StateGetter, expected ...string) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			userID := c.Sender().ID
			currentState := mgr.GetState(userID)
			ctx := tghelpers.BuildContext(c)
			if stateAllowed(currentState, expected) {
				logger.TG.LogAttrs(ctx, slog.LevelDebug, "fsm.match",
					slog.Int64("user_id", userID),
					slog.String("state", currentState),
					slog.String("expected", strings.Join(expected, ",")),
					slog.String("rid", logger.RIDFrom(ctx)),
				)
				return next(c)
			}
			logger.TG.LogAttrs(ctx, slog.LevelDebug, "fsm.skip",
				slog.Int64("user_id", userID),
				slog.String("state", currentState),
				slog.String("expected", strings.Join(expected, ",")),
				slog.String("rid", logger.RIDFrom(ctx)),
			)
			// Ignore stale taps from users whose conversation moved on
			return nil
		}
	}
}

func stateAllowed(current string, expected []string) bool {
	if len(expected) == 0 {
		return current != "" && current != StateIdle
	}
	for _, want := range expected {
		if current == want {
			return true
		}
	}
	return false
}
