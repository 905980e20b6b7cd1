// Package config loads the bot configuration from a YAML file with
// environment variable overrides, layering application settings on top
// of the shared core configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/nutrobot/core/config"
	coredatabase "github.com/m3rciful/nutrobot/core/database"
)

const (
	// DriverJSON stores the ledger in a single local JSON file.
	DriverJSON = "json"
	// DriverPostgres stores the ledger in PostgreSQL.
	DriverPostgres = "postgres"

	// SessionMemory keeps conversation sessions in process memory.
	SessionMemory = "memory"
	// SessionRedis keeps conversation sessions in Redis.
	SessionRedis = "redis"
)

// StorageConfig selects and configures the ledger persistence driver.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	// Path is the JSON data file location, used when Driver is "json".
	Path     string              `yaml:"path" envconfig:"STORAGE_PATH"`
	Database coredatabase.Config `yaml:"database"`
}

// RedisConfig holds connection settings for the Redis session backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// SessionConfig configures conversation session storage and expiry.
type SessionConfig struct {
	Backend string `yaml:"backend" envconfig:"SESSION_BACKEND"`
	// TimeoutMinutes is how long an unfinished conversation survives
	// without input before the bot forgets it.
	TimeoutMinutes int         `yaml:"timeout_minutes" envconfig:"SESSION_TIMEOUT_MINUTES"`
	Redis          RedisConfig `yaml:"redis"`
}

// BotConfig holds bot behaviour settings beyond the shared core set.
type BotConfig struct {
	// Admins extends the core admin_id with additional user IDs that may
	// run admin-only commands.
	Admins []int64 `yaml:"admins" envconfig:"BOT_ADMINS"`
}

// Config aggregates the core configuration and application settings.
type Config struct {
	Core    coreconfig.Config `yaml:",inline"`
	Storage StorageConfig     `yaml:"storage"`
	Session SessionConfig     `yaml:"session"`
	Bot     BotConfig         `yaml:"bot"`
}

// CoreConfig exposes the embedded core configuration for the shared runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// AdminIDs merges the core admin with bot-level extras, deduplicated.
func (c *Config) AdminIDs() []int64 {
	seen := make(map[int64]struct{}, len(c.Bot.Admins)+1)
	var ids []int64
	add := func(id int64) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	add(c.Core.Telegram.AdminID)
	for _, id := range c.Bot.Admins {
		add(id)
	}
	return ids
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates application-level fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" {
		driver = DriverJSON
	}
	switch driver {
	case DriverJSON:
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			cfg.Storage.Path = "data/nutrobot.json"
		}
	case DriverPostgres:
		db := cfg.Storage.Database
		if strings.TrimSpace(db.Host) == "" || strings.TrimSpace(db.Name) == "" || strings.TrimSpace(db.User) == "" {
			return fmt.Errorf("storage.database host, name and user are required when storage.driver is 'postgres'")
		}
		if cfg.Storage.Database.MaxConnections <= 0 {
			cfg.Storage.Database.MaxConnections = 4
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: json, postgres", cfg.Storage.Driver)
	}
	cfg.Storage.Driver = driver

	backend := strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	if backend == "" {
		backend = SessionMemory
	}
	switch backend {
	case SessionMemory:
	case SessionRedis:
		if strings.TrimSpace(cfg.Session.Redis.Addr) == "" {
			return fmt.Errorf("session.redis.addr is required when session.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: memory, redis", cfg.Session.Backend)
	}
	cfg.Session.Backend = backend

	if cfg.Session.TimeoutMinutes < 0 {
		return fmt.Errorf("session.timeout_minutes must be >= 0")
	}
	if cfg.Session.TimeoutMinutes == 0 {
		cfg.Session.TimeoutMinutes = 30
	}

	return nil
}
