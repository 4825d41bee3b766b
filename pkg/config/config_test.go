package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/bountyscout/pkg/catalog"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "database.sqlite", cfg.Database)
	assert.Equal(t, "https://api.hackerone.com/v1", cfg.APIBase)
	assert.Equal(t, 50*time.Millisecond, cfg.Scan.ProgramDelay)
	assert.Equal(t, time.Second, cfg.Scan.AssetDelay)
	assert.False(t, cfg.CatalogRequirements().Active())
	assert.Equal(t, ":5000", cfg.Addr())
	require.NoError(t, cfg.Validate())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bountyscout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 8080
database: /tmp/scan.sqlite
scan:
  limit: 25
  scope_limit: 5
  asset_delay: 250ms
  requirements:
    bounties: true
    safe_harbor: true
webhook:
  url: https://hooks.example.com/scan
  events: [complete]
`), 0o600))

	t.Setenv(EnvPort, "9090")
	t.Setenv(EnvUsername, "alice")
	t.Setenv(EnvToken, "secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port, "env wins over file")
	assert.Equal(t, "/tmp/scan.sqlite", cfg.Database)
	assert.Equal(t, 25, cfg.Scan.Limit)
	assert.Equal(t, 5, cfg.Scan.ScopeLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.Scan.AssetDelay)
	assert.Equal(t, 50*time.Millisecond, cfg.Scan.ProgramDelay, "unset keys keep defaults")
	assert.Equal(t, catalog.Requirements{Bounties: true, SafeHarbor: true}, cfg.CatalogRequirements())
	assert.Equal(t, []string{"complete"}, cfg.Webhook.Events)

	creds := cfg.CatalogCredentials()
	assert.True(t, creds.Valid())
	assert.Equal(t, "alice", creds.Username)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prot: 1\n"), 0o600))
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestUnmarshalYAMLBytes_Empty(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.UnmarshalYAMLBytes(nil))
	assert.Equal(t, 5000, cfg.Port)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		EnvFreshDatabase: "true",
		EnvDatabase:      "other.sqlite",
		EnvAPIBase:       "http://127.0.0.1:9999/v1",
		EnvOTelEndpoint:  "collector:4317",
		EnvWebhookURL:    "https://hooks.example.com",
		EnvProxy:         "socks5h://127.0.0.1:9050",
		EnvPort:          "",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.FreshDatabase)
	assert.Equal(t, "other.sqlite", cfg.Database)
	assert.Equal(t, "http://127.0.0.1:9999/v1", cfg.APIBase)
	assert.Equal(t, "collector:4317", cfg.Telemetry.OTelEndpoint)
	assert.Equal(t, "https://hooks.example.com", cfg.Webhook.URL)
	assert.Equal(t, "socks5h://127.0.0.1:9050", cfg.Proxy)
	assert.Equal(t, 5000, cfg.Port, "empty value is ignored")
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"port":  {EnvPort: "abc"},
		"fresh": {EnvFreshDatabase: "maybe"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			err := Default().ApplyEnv(envMap(env))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"port zero", func(c *Config) { c.Port = 0 }, ErrInvalidConfig},
		{"port too high", func(c *Config) { c.Port = 70000 }, ErrInvalidConfig},
		{"no database", func(c *Config) { c.Database = "" }, ErrMissingRequired},
		{"bad api base", func(c *Config) { c.APIBase = "ftp://x" }, ErrInvalidConfig},
		{"bad webhook", func(c *Config) { c.Webhook.URL = "not a url" }, ErrInvalidConfig},
		{"bad proxy", func(c *Config) { c.Proxy = "gopher://x:70" }, ErrInvalidConfig},
		{"negative limit", func(c *Config) { c.Scan.Limit = -1 }, ErrInvalidConfig},
		{"negative delay", func(c *Config) { c.Scan.AssetDelay = -time.Second }, ErrInvalidConfig},
		{"metrics path", func(c *Config) { c.Telemetry.MetricsPath = "metrics" }, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}
