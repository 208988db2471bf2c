// Package config loads the bot configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the full bot configuration.
type Config struct {
	// BotToken is the Telegram bot API token (from @BotFather).
	BotToken string `yaml:"bot_token"`

	Store StoreConfig `yaml:"store"`
	Ops   OpsConfig   `yaml:"ops"`
	Reply ReplyConfig `yaml:"reply"`
}

// StoreConfig selects and configures the key-value backend.
type StoreConfig struct {
	// Backend is one of: memory, sqlite, postgres, redis.
	Backend string `yaml:"backend"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// OpsConfig configures the ops HTTP server (health, metrics).
type OpsConfig struct {
	// Addr is the listen address; empty disables the ops server.
	Addr string `yaml:"addr"`
}

// ReplyConfig bounds how fast the bot sends chat replies.
type ReplyConfig struct {
	// PerSecond is the sustained reply rate; zero disables limiting.
	PerSecond float64 `yaml:"per_second"`
	// Burst is the short-term burst allowance.
	Burst int `yaml:"burst"`
}

// Load reads configuration from the YAML file at path (skipped when
// path is empty) and then applies environment overrides. Environment
// variables win over file values.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Store: StoreConfig{
			Backend:    "memory",
			SQLitePath: "lunchbreakbot.db",
			Redis:      RedisConfig{Addr: "localhost:6379"},
		},
		Ops:   OpsConfig{Addr: ":8080"},
		Reply: ReplyConfig{PerSecond: 1, Burst: 5},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LUNCHBREAKBOT_TOKEN"); v != "" {
		cfg.BotToken = v
	}
	if v := os.Getenv("LUNCHBREAKBOT_STORE"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("LUNCHBREAKBOT_SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("LUNCHBREAKBOT_POSTGRES_DSN"); v != "" {
		cfg.Store.PostgresDSN = v
	}
	if v := os.Getenv("LUNCHBREAKBOT_REDIS_ADDR"); v != "" {
		cfg.Store.Redis.Addr = v
	}
	if v := os.Getenv("LUNCHBREAKBOT_REDIS_PASSWORD"); v != "" {
		cfg.Store.Redis.Password = v
	}
	if v := os.Getenv("LUNCHBREAKBOT_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Store.Redis.DB = db
		}
	}
	if v := os.Getenv("LUNCHBREAKBOT_OPS_ADDR"); v != "" {
		cfg.Ops.Addr = v
	}
}

// Validate checks required fields and backend selection.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("bot_token is required (set LUNCHBREAKBOT_TOKEN or the config file)")
	}
	switch c.Store.Backend {
	case "memory":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for the postgres backend")
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q (want memory, sqlite, postgres or redis)", c.Store.Backend)
	}
	return nil
}
