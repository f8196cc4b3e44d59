// Package config handles application configuration from a YAML file and
// environment variables.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Addr          string         `yaml:"addr"`
	BaseURL       string         `yaml:"base_url"`
	LogLevel      string         `yaml:"log_level"`
	Database      DatabaseConfig `yaml:"database"`
	Redis         RedisConfig    `yaml:"redis"`
	AdminEmails   []string       `yaml:"admin_emails"`
	Telegram      TelegramConfig `yaml:"telegram"`
	RevealLatency time.Duration  `yaml:"reveal_latency"`
	PromoCooldown time.Duration  `yaml:"promo_cooldown"`
	SessionTTL    time.Duration  `yaml:"session_ttl"`
	SecureCookie  bool           `yaml:"secure_cookie"`
}

// DatabaseConfig selects the listing store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	Path   string `yaml:"path"`   // sqlite file
	URL    string `yaml:"url"`    // postgres connection URL
}

// RedisConfig enables the Redis session store when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// TelegramConfig enables moderation notifications when BotToken is set.
type TelegramConfig struct {
	BotToken   string  `yaml:"bot_token"`
	AdminChats []int64 `yaml:"admin_chats"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Addr:     ":8080",
		BaseURL:  "http://localhost:8080",
		LogLevel: "info",
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "./data/hearth.db",
		},
		RevealLatency: time.Second,
		PromoCooldown: 30 * time.Second,
		SessionTTL:    24 * time.Hour,
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("HEARTH_ADDR", &c.Addr)
	setString("BASE_URL", &c.BaseURL)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("DATABASE_DRIVER", &c.Database.Driver)
	setString("DATABASE_PATH", &c.Database.Path)
	setString("DATABASE_URL", &c.Database.URL)
	setString("REDIS_ADDR", &c.Redis.Addr)
	setString("REDIS_PASSWORD", &c.Redis.Password)
	setString("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)

	if raw := os.Getenv("ADMIN_EMAILS"); raw != "" {
		c.AdminEmails = nil
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.AdminEmails = append(c.AdminEmails, s)
			}
		}
	}

	if raw := os.Getenv("TELEGRAM_ADMIN_CHATS"); raw != "" {
		c.Telegram.AdminChats = nil
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chat ID %q in TELEGRAM_ADMIN_CHATS: %w", s, err)
			}
			c.Telegram.AdminChats = append(c.Telegram.AdminChats, id)
		}
	}

	for key, dst := range map[string]*time.Duration{
		"REVEAL_LATENCY": &c.RevealLatency,
		"PROMO_COOLDOWN": &c.PromoCooldown,
	} {
		raw := os.Getenv(key)
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, raw, err)
		}
		*dst = d
	}
	return nil
}

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.RevealLatency < 0 {
		return fmt.Errorf("reveal latency cannot be negative")
	}
	if c.PromoCooldown < 0 {
		return fmt.Errorf("promo cooldown cannot be negative")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if c.Telegram.BotToken != "" && len(c.Telegram.AdminChats) == 0 {
		return fmt.Errorf("TELEGRAM_ADMIN_CHATS is required when a bot token is set")
	}
	return nil
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.Database.Driver == "postgres" {
		return c.Database.URL
	}
	return c.Database.Path
}

// IsAdminEmail reports whether email is listed in AdminEmails, ignoring case.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.TrimSpace(email)
	for _, e := range c.AdminEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}
