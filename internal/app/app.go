// Package app composes the bot: configuration, storage, sessions, the
// nutrition ledger and the conversation engine, exposed through the
// shared runner hooks.
package app

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/m3rciful/nutrobot/core/bootstrap"
	"github.com/m3rciful/nutrobot/core/buildinfo"
	"github.com/m3rciful/nutrobot/core/cmd"
	coredatabase "github.com/m3rciful/nutrobot/core/database"
	"github.com/m3rciful/nutrobot/core/logger"
	coretelegram "github.com/m3rciful/nutrobot/core/telegram"
	"github.com/m3rciful/nutrobot/internal/config"
	"github.com/m3rciful/nutrobot/internal/engine"
	"github.com/m3rciful/nutrobot/internal/ledger"
	"github.com/m3rciful/nutrobot/internal/session"
	"github.com/m3rciful/nutrobot/internal/storage"
	"github.com/m3rciful/nutrobot/internal/storage/jsonfile"
	"github.com/m3rciful/nutrobot/internal/storage/postgres"
	tgwire "github.com/m3rciful/nutrobot/internal/telegram"
)

// App carries the composed bot, ready to hand to the runner.
type App struct {
	cfg      *config.Config
	store    storage.Store
	sessions session.Store
	engine   *engine.Engine
}

// LoadConfig reads the application configuration for the runner.
func LoadConfig(path string) (cmd.ConfigCarrier, error) {
	return config.Load(path)
}

// Bootstrap builds the full object graph from configuration.
func Bootstrap(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}

	var dbCfg *coredatabase.Config
	if cfg.Storage.Driver == config.DriverPostgres {
		dbCfg = &cfg.Storage.Database
	}
	infra, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: dbCfg,
	})
	if err != nil {
		return nil, err
	}

	var store storage.Store
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		store = postgres.New(infra.DB)
	default:
		store, err = jsonfile.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("app: open json store: %w", err)
		}
	}

	ctx := context.Background()
	sessions, err := buildSessions(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc := ledger.New(store)
	mods := bootstrap.Modules{
		Seeders: []bootstrap.Seeder{
			bootstrap.SeederFunc(func(ctx context.Context, _ bootstrap.Storage) error {
				return svc.SeedBuiltinCatalog(ctx)
			}),
		},
		Services: bootstrap.TypedServiceProviderFunc[*engine.Engine](
			func(context.Context, interface{}, bootstrap.Storage) (*engine.Engine, error) {
				return engine.New(svc, sessions, cfg.AdminIDs()), nil
			},
		),
	}
	built, err := mods.Apply(ctx, cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("app: modules failed: %w", err)
	}
	eng, ok := built.(*engine.Engine)
	if !ok {
		_ = store.Close()
		return nil, fmt.Errorf("app: unexpected service type %T", built)
	}

	return &App{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		engine:   eng,
	}, nil
}

func buildSessions(ctx context.Context, cfg *config.Config) (session.Store, error) {
	ttl := time.Duration(cfg.Session.TimeoutMinutes) * time.Minute
	if cfg.Session.Backend == config.SessionRedis {
		r := cfg.Session.Redis
		return session.NewRedis(ctx, r.Addr, r.Password, r.DB, ttl)
	}
	return session.NewMemory(ttl), nil
}

// TelegramRunOptions wires the engine into the bot runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	opts := tgwire.BuildRunOptions(a.cfg, a.engine, a.sessions)
	opts.OnStart = a.onStart
	opts.OnStop = a.onStop
	return opts, nil
}

func (a *App) onStart(ctx context.Context, _ coretelegram.Runtime) error {
	if mem, ok := a.sessions.(*session.MemoryStore); ok {
		go mem.StartJanitor(ctx, time.Minute)
	}
	logger.Info(ctx, "app", "build",
		slog.String("version", buildinfo.Version),
		slog.String("commit", buildinfo.Commit),
		slog.String("storage", a.cfg.Storage.Driver),
		slog.String("sessions", a.cfg.Session.Backend),
	)
	return nil
}

func (a *App) onStop(ctx context.Context, _ coretelegram.Runtime) error {
	var firstErr error
	if c, ok := a.sessions.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			firstErr = err
		}
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		logger.Warn(ctx, "app", "shutdown_dirty", slog.String("err", firstErr.Error()))
	}
	return firstErr
}
