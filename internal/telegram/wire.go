package telegram

import (
	coretelegram "github.com/m3rciful/nutrobot/core/telegram"
	"github.com/m3rciful/nutrobot/core/telegram/router"
	"github.com/m3rciful/nutrobot/core/telegram/ui"
	"github.com/m3rciful/nutrobot/internal/config"
	"github.com/m3rciful/nutrobot/internal/engine"
	"github.com/m3rciful/nutrobot/internal/session"
)

// BuildRunOptions assembles the bot runtime around the conversation
// engine: command registry, text and callback routes, and the shared
// middleware chain.
func BuildRunOptions(cfg *config.Config, eng *engine.Engine, sessions session.Store) coretelegram.RunOptions {
	reg := coretelegram.NewRegistry()
	fsm := NewFlowManager(eng, sessions)
	h := NewHandlers(eng, fsm)

	var fb ui.FallbackProvider = NewFallbacks(eng)

	h.RegisterCommands(reg)
	h.RegisterCallbacks(reg)
	reg.SetCallbackNotFound(fb.UnknownCallback())

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminIDs: cfg.AdminIDs(),
	})
	routes = append(routes, router.TextRoutes(fsm, reg, router.TextOptions{
		UnknownText:     fb.UnknownText(),
		UnknownDocument: fb.UnknownDocument(),
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		NotFound: fb.UnknownCallback(),
	}))

	return coretelegram.RunOptions{
		Config:      cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(cfg.CoreConfig(), nil),
		Routes:      routes,
	}
}
