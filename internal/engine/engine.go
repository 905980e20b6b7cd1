// Package engine is the conversation core: it consumes one inbound
// message at a time, routes it by command or by the user's active flow
// state, and produces ordered replies. The package is transport-free so
// the whole dialog tree is exercisable in tests as plain text in, text
// out; the telegram layer only feeds it updates and ships its replies.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/nutrobot/core/logger"
	"github.com/m3rciful/nutrobot/internal/domain"
	"github.com/m3rciful/nutrobot/internal/ledger"
	"github.com/m3rciful/nutrobot/internal/session"
)

const component = "engine"

const maxTrendDays = ledger.MaxRangeDays

// Engine drives per-user conversations over the ledger. All turns for one
// user are serialized by a keyed mutex spanning session read, transition,
// ledger call and session write; different users never block each other.
type Engine struct {
	ledger   *ledger.Service
	sessions session.Store
	admins   map[int64]struct{}
	now      func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex

	steps    map[session.State]stepFn
	commands map[string]commandFn
}

// turn carries one message through dispatch: the session being mutated,
// the profile fetched on first use, and the replies accumulated in order.
type turn struct {
	userID  int64
	text    string
	at      time.Time
	sess    *session.Session
	profile *domain.UserProfile
	replies []string
}

func (t *turn) say(format string, args ...any) {
	if len(args) == 0 {
		t.replies = append(t.replies, format)
		return
	}
	t.replies = append(t.replies, fmt.Sprintf(format, args...))
}

type (
	stepFn    func(ctx context.Context, t *turn) error
	commandFn func(ctx context.Context, t *turn, args string) error
)

// New builds an engine on top of the ledger and a session store. Admin
// ids gate the /stats command.
func New(l *ledger.Service, sessions session.Store, admins []int64) *Engine {
	e := &Engine{
		ledger:   l,
		sessions: sessions,
		admins:   make(map[int64]struct{}, len(admins)),
		now:      time.Now,
		locks:    make(map[int64]*sync.Mutex),
	}
	for _, id := range admins {
		e.admins[id] = struct{}{}
	}
	e.steps = map[session.State]stepFn{
		session.StateCollectingFoodName:        e.stepFoodName,
		session.StateCollectingMacros:          e.stepMacros,
		session.StateCollectingQuantity:        e.stepQuantity,
		session.StateCollectingServing:         e.stepServing,
		session.StateConfirmingEntry:           e.stepConfirmEntry,
		session.StateConfirmingUndo:            e.stepConfirmUndo,
		session.StateEditingProfileField:       e.stepProfileField,
		session.StateAwaitingRangeQuery:        e.stepRangeQuery,
		session.StateCollectingActivityKind:    e.stepActivityKind,
		session.StateCollectingActivityMinutes: e.stepActivityMinutes,
	}
	e.commands = map[string]commandFn{
		"start":   e.cmdStart,
		"help":    e.cmdHelp,
		"profile": e.cmdProfile,
		"food":    e.cmdFood,
		"addfood": e.cmdAddFood,
		"water":   e.cmdWater,
		"workout": e.cmdWorkout,
		"today":   e.cmdToday,
		"trend":   e.cmdTrend,
		"undo":    e.cmdUndo,
		"stats":   e.cmdStats,
	}
	return e
}

func (e *Engine) userLock(userID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	return l
}

// HandleMessage processes one inbound message and returns the replies to
// deliver in order. The returned error is for logging only: every failure
// the user should hear about is already phrased as a reply, and a storage
// failure additionally resets the session so the next message starts
// clean. Replays are harmless: a repeated confirmation lands in an idle
// session and is ignored.
func (e *Engine) HandleMessage(ctx context.Context, userID int64, text string, at time.Time) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if at.IsZero() {
		at = e.now()
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := e.sessions.Get(ctx, userID)
	wasActive := sess.InProgress()
	stateBefore := sess.State
	t := &turn{userID: userID, text: text, at: at, sess: sess}

	err := e.dispatch(ctx, t)
	if err != nil {
		// Steps phrase validation problems as retry prompts themselves, so
		// anything escaping here is storage trouble: one generic reply and
		// the flow is abandoned.
		t.sess.Reset()
		t.say("Something went wrong on my side. If I did not confirm your last input, please send it again.")
	}

	if t.sess.InProgress() {
		if perr := e.sessions.Put(ctx, userID, t.sess); perr != nil && err == nil {
			err = domain.WrapStorage("session_put", perr)
		}
	} else if wasActive {
		if cerr := e.sessions.Clear(ctx, userID); cerr != nil && err == nil {
			err = domain.WrapStorage("session_clear", cerr)
		}
	}

	logger.Debug(ctx, component, "engine.turn",
		slog.Int64("user_id", userID),
		slog.String("state", string(stateBefore)),
		slog.String("next_state", string(t.sess.State)),
		slog.Int("replies", len(t.replies)),
	)
	return t.replies, err
}

func (e *Engine) dispatch(ctx context.Context, t *turn) error {
	if isCancelText(t.text) {
		if t.sess.InProgress() {
			t.sess.Reset()
			t.say("Cancelled.")
		} else {
			t.say("Nothing to cancel.")
		}
		return nil
	}

	if name, args, ok := splitCommand(t.text); ok {
		fn, known := e.commands[name]
		if !known {
			t.say("Unknown command. Try /help.")
			return nil
		}
		return fn(ctx, t, args)
	}

	if t.sess.InProgress() {
		fn := e.steps[t.sess.State]
		if fn == nil {
			logger.Warn(ctx, component, "engine.unknown_state",
				slog.Int64("user_id", t.userID),
				slog.String("state", string(t.sess.State)),
			)
			t.sess.Reset()
			t.say("I lost track of where we were, sorry. Start over with /food or /help.")
			return nil
		}
		return fn(ctx, t)
	}

	// Plain text with no flow running is ignored, people paste anything.
	logger.Debug(ctx, component, "engine.idle_text", slog.Int64("user_id", t.userID))
	return nil
}

// SessionState exposes the user's current flow state, letting the
// transport shape its UI (keyboards, toasts) around the conversation.
func (e *Engine) SessionState(ctx context.Context, userID int64) session.State {
	return e.sessions.Get(ctx, userID).State
}

// profileFor fetches (and on first contact, creates) the user's profile,
// once per turn.
func (e *Engine) profileFor(ctx context.Context, t *turn) (*domain.UserProfile, error) {
	if t.profile != nil {
		return t.profile, nil
	}
	p, err := e.ledger.EnsureProfile(ctx, t.userID)
	if err != nil {
		return nil, err
	}
	t.profile = p
	return p, nil
}

// localDay is the civil day the turn's message falls on for this user.
func localDay(t *turn, p *domain.UserProfile) time.Time {
	return domain.DayOf(t.at, p.TZOffsetMin)
}

// sayDaySummary appends the day's progress, the reply every successful
// log ends with.
func (e *Engine) sayDaySummary(ctx context.Context, t *turn, label string) error {
	p, err := e.profileFor(ctx, t)
	if err != nil {
		return err
	}
	agg, err := e.ledger.DailyTotals(ctx, t.userID, localDay(t, p))
	if err != nil {
		return err
	}
	t.say(renderDaySummary(label, agg, p))
	return nil
}
