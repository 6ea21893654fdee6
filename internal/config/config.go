// Package config loads relay settings from a YAML file, a .env file and
// environment overrides, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"presence-relay/internal/rooms"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	Rooms         RoomsConfig         `yaml:"rooms"`
	Conversations ConversationsConfig `yaml:"conversations"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	SendBuffer      int           `yaml:"send_buffer"`
	MaxMessageBytes int64         `yaml:"max_message_bytes"`
	PongWait        time.Duration `yaml:"pong_wait"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
	Issuer   string        `yaml:"issuer"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text|json
}

type RoomsConfig struct {
	Default      string       `yaml:"default"`
	HistoryLimit int          `yaml:"history_limit"`
	Catalog      []rooms.Spec `yaml:"catalog"`
}

type ConversationsConfig struct {
	HistoryLimit int `yaml:"history_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":3001",
			AllowedOrigins:  []string{"http://localhost:5173"},
			SendBuffer:      256,
			MaxMessageBytes: 64 * 1024,
			PongWait:        60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			Secret:   "your-secret-key-change-in-production",
			TokenTTL: 24 * time.Hour,
			Issuer:   "presence-relay",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Rooms: RoomsConfig{
			Default:      "general",
			HistoryLimit: rooms.DefaultHistoryLimit,
			Catalog: []rooms.Spec{
				{ID: "general", Name: "General"},
				{ID: "random", Name: "Random"},
				{ID: "tech", Name: "Tech Talk"},
			},
		},
		Conversations: ConversationsConfig{HistoryLimit: 1000},
		RateLimit:     RateLimitConfig{RPS: 10, Burst: 20},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files when they exist.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg from RELAY_* environment variables.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("RELAY_ADDR"); v != "" {
		cfg.Server.Address = v
	}
	if v := getenv("RELAY_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v := getenv("RELAY_JWT_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := getenv("RELAY_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RELAY_TOKEN_TTL: %w", err)
		}
		cfg.Auth.TokenTTL = d
	}
	if v := getenv("RELAY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := getenv("RELAY_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := getenv("RELAY_DEFAULT_ROOM"); v != "" {
		cfg.Rooms.Default = v
	}
	if v := getenv("RELAY_RATE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RELAY_RATE_RPS: %w", err)
		}
		cfg.RateLimit.RPS = f
	}
	return nil
}

// Validate reports settings the relay cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("auth.secret must be set")
	}
	if len(c.Rooms.Catalog) == 0 {
		return errors.New("rooms.catalog must list at least one room")
	}
	seen := make(map[string]bool, len(c.Rooms.Catalog))
	for _, r := range c.Rooms.Catalog {
		if r.ID == "" {
			return errors.New("rooms.catalog: room id must be set")
		}
		if seen[r.ID] {
			return fmt.Errorf("rooms.catalog: duplicate room %q", r.ID)
		}
		seen[r.ID] = true
	}
	if c.Rooms.Default != "" && !seen[c.Rooms.Default] {
		return fmt.Errorf("rooms.default %q is not in the catalog", c.Rooms.Default)
	}
	if c.Server.SendBuffer <= 0 {
		return errors.New("server.send_buffer must be positive")
	}
	if c.Server.PongWait <= 0 {
		return errors.New("server.pong_wait must be positive")
	}
	if c.Server.MaxMessageBytes <= 0 {
		return errors.New("server.max_message_bytes must be positive")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
