package telegram

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/nutrobot/internal/engine"
	"github.com/m3rciful/nutrobot/internal/session"
)

// FlowManager adapts the session store and conversation engine to the
// message router: while a user has an active flow, every plain text
// update is captured and fed to the engine instead of command lookup.
type FlowManager struct {
	engine   *engine.Engine
	sessions session.Store
}

// NewFlowManager wires the conversation engine to the router FSM hooks.
func NewFlowManager(eng *engine.Engine, sessions session.Store) *FlowManager {
	return &FlowManager{engine: eng, sessions: sessions}
}

// InProgress reports whether the user has an unfinished conversation.
func (m *FlowManager) InProgress(userID int64) bool {
	return m.sessions.InProgress(context.Background(), userID)
}

// GetState returns the user's current flow state for state-gated callbacks.
func (m *FlowManager) GetState(userID int64) string {
	return string(m.sessions.Get(context.Background(), userID).State)
}

// ManagerHandler forwards the captured message to the conversation engine.
func (m *FlowManager) ManagerHandler(c tele.Context) error {
	return relay(c, m.engine, c.Text())
}
