package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	body := `
server:
  address: ":9000"
  pong_wait: 15s
auth:
  secret: from-file
  token_ttl: 2h
rooms:
  default: lobby
  history_limit: 200
  catalog:
    - id: lobby
      name: Lobby
    - id: ops
      name: Operations
rate_limit:
  rps: 3
  burst: 6
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, 15*time.Second, cfg.Server.PongWait)
	// untouched keys keep their defaults
	assert.Equal(t, 256, cfg.Server.SendBuffer)
	assert.Equal(t, "from-file", cfg.Auth.Secret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "lobby", cfg.Rooms.Default)
	require.Len(t, cfg.Rooms.Catalog, 2)
	assert.Equal(t, "Operations", cfg.Rooms.Catalog[1].Name)
	assert.Equal(t, 3.0, cfg.RateLimit.RPS)
	require.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"RELAY_ADDR":            ":7000",
		"RELAY_ALLOWED_ORIGINS": "https://a.example, https://b.example",
		"RELAY_JWT_SECRET":      "from-env",
		"RELAY_TOKEN_TTL":       "30m",
		"RELAY_LOG_LEVEL":       "debug",
		"RELAY_DEFAULT_ROOM":    "tech",
		"RELAY_RATE_RPS":        "2.5",
	}
	cfg := Default()
	require.NoError(t, ApplyEnv(cfg, func(k string) string { return env[k] }))

	assert.Equal(t, ":7000", cfg.Server.Address)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "tech", cfg.Rooms.Default)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
}

func TestApplyEnv_BadDuration(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, func(k string) string {
		if k == "RELAY_TOKEN_TTL" {
			return "forever"
		}
		return ""
	})
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RELAY_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("RELAY_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("RELAY_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path))
	assert.Equal(t, "loaded", os.Getenv("RELAY_TEST_DOTENV"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty secret", func(c *Config) { c.Auth.Secret = " " }},
		{"empty catalog", func(c *Config) { c.Rooms.Catalog = nil }},
		{"duplicate room", func(c *Config) { c.Rooms.Catalog = append(c.Rooms.Catalog, c.Rooms.Catalog[0]) }},
		{"unknown default", func(c *Config) { c.Rooms.Default = "nowhere" }},
		{"zero buffer", func(c *Config) { c.Server.SendBuffer = 0 }},
		{"zero pong wait", func(c *Config) { c.Server.PongWait = 0 }},
		{"zero message size", func(c *Config) { c.Server.MaxMessageBytes = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
