// Package config loads bountyscout settings from defaults, an optional YAML
// file and the environment, in that order. Command-line flags are applied
// last by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/waftester/bountyscout/pkg/catalog"
	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/duration"
	"github.com/waftester/bountyscout/pkg/httpclient"
	"github.com/waftester/bountyscout/pkg/model"
)

// Environment variables read by ApplyEnv.
const (
	EnvPort          = "PORT"
	EnvFreshDatabase = "FRESH_DATABASE"
	EnvDatabase      = "BOUNTYSCOUT_DB"
	EnvAPIBase       = "BOUNTYSCOUT_API_BASE"
	EnvOTelEndpoint  = "BOUNTYSCOUT_OTEL_ENDPOINT"
	EnvWebhookURL    = "BOUNTYSCOUT_WEBHOOK_URL"
	EnvProxy         = "BOUNTYSCOUT_PROXY"
	EnvUsername      = "HACKERONE_USERNAME"
	EnvToken         = "HACKERONE_TOKEN"
)

// Config holds all bountyscout settings.
type Config struct {
	// Port is the HTTP listen port (default: 5000).
	Port int `yaml:"port"`

	// Database is the sqlite file path.
	Database string `yaml:"database"`

	// FreshDatabase deletes the database file at startup.
	FreshDatabase bool `yaml:"fresh_database"`

	// APIBase is the catalog API root.
	APIBase string `yaml:"api_base"`

	// Proxy routes catalog and asset traffic (http, https, socks5, socks5h).
	Proxy string `yaml:"proxy"`

	Credentials CredentialsConfig `yaml:"credentials"`
	Scan        ScanConfig        `yaml:"scan"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Webhook     WebhookConfig     `yaml:"webhook"`
}

// CredentialsConfig seeds the catalog credentials for CLI scans.
type CredentialsConfig struct {
	Username string `yaml:"username"`
	Token    string `yaml:"token"`
}

// ScanConfig holds scan defaults. Zero limits mean no sampling.
type ScanConfig struct {
	Limit        int           `yaml:"limit"`
	ScopeLimit   int           `yaml:"scope_limit"`
	ProgramDelay time.Duration `yaml:"program_delay"`
	AssetDelay   time.Duration `yaml:"asset_delay"`
	Requirements Requirements  `yaml:"requirements"`
}

// Requirements mirror catalog.Requirements for YAML.
type Requirements struct {
	Submission bool `yaml:"submission"`
	Bounties   bool `yaml:"bounties"`
	OpenScope  bool `yaml:"open_scope"`
	SafeHarbor bool `yaml:"safe_harbor"`
}

// TelemetryConfig controls metrics and tracing.
type TelemetryConfig struct {
	// OTelEndpoint enables OTLP tracing when set.
	OTelEndpoint string `yaml:"otel_endpoint"`
	OTelInsecure bool   `yaml:"otel_insecure"`

	// MetricsPath is where the Prometheus handler is mounted.
	MetricsPath string `yaml:"metrics_path"`
}

// WebhookConfig posts scan events to an external URL when URL is set.
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Events  []string          `yaml:"events"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:     defaults.Port,
		Database: defaults.DatabasePath,
		APIBase:  defaults.CatalogBaseURL,
		Scan: ScanConfig{
			ProgramDelay: duration.ProgramDelay,
			AssetDelay:   duration.AssetDelay,
		},
		Telemetry: TelemetryConfig{
			MetricsPath: defaults.MetricsPath,
		},
	}
}

// Load returns defaults overlaid by the YAML file at path (skipped when
// path is empty) and then by the environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := cfg.UnmarshalYAMLBytes(data); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UnmarshalYAMLBytes overlays YAML data onto cfg. Unknown keys are
// rejected.
func (c *Config) UnmarshalYAMLBytes(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ApplyEnv overlays environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvPort, v)
		}
		c.Port = port
	}
	if v, ok := lookup(EnvFreshDatabase); ok && v != "" {
		fresh, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvFreshDatabase, v)
		}
		c.FreshDatabase = fresh
	}
	setString(lookup, EnvDatabase, &c.Database)
	setString(lookup, EnvAPIBase, &c.APIBase)
	setString(lookup, EnvOTelEndpoint, &c.Telemetry.OTelEndpoint)
	setString(lookup, EnvWebhookURL, &c.Webhook.URL)
	setString(lookup, EnvProxy, &c.Proxy)
	setString(lookup, EnvUsername, &c.Credentials.Username)
	setString(lookup, EnvToken, &c.Credentials.Token)
	return nil
}

func setString(lookup func(string) (string, bool), key string, dst *string) {
	if v, ok := lookup(key); ok && v != "" {
		*dst = v
	}
}

// Validate checks ranges and URLs.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.Database == "" {
		return fmt.Errorf("%w: database", ErrMissingRequired)
	}
	if err := checkURL("api_base", c.APIBase); err != nil {
		return err
	}
	if c.Proxy != "" {
		if _, err := httpclient.ParseProxy(c.Proxy); err != nil {
			return fmt.Errorf("%w: proxy: %v", ErrInvalidConfig, err)
		}
	}
	if c.Webhook.URL != "" {
		if err := checkURL("webhook.url", c.Webhook.URL); err != nil {
			return err
		}
	}
	if c.Scan.Limit < 0 || c.Scan.ScopeLimit < 0 {
		return fmt.Errorf("%w: negative sample limit", ErrInvalidConfig)
	}
	if c.Scan.ProgramDelay < 0 || c.Scan.AssetDelay < 0 {
		return fmt.Errorf("%w: negative delay", ErrInvalidConfig)
	}
	if c.Telemetry.MetricsPath != "" && !strings.HasPrefix(c.Telemetry.MetricsPath, "/") {
		return fmt.Errorf("%w: metrics_path must start with /", ErrInvalidConfig)
	}
	return nil
}

func checkURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s %q is not an http(s) URL", ErrInvalidConfig, field, raw)
	}
	return nil
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// CatalogCredentials converts the configured credentials.
func (c *Config) CatalogCredentials() model.Credentials {
	return model.Credentials{Username: c.Credentials.Username, Token: c.Credentials.Token}
}

// CatalogRequirements converts the configured requirement flags.
func (c *Config) CatalogRequirements() catalog.Requirements {
	return catalog.Requirements(c.Scan.Requirements)
}
