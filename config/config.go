// Package config loads the root application configuration: scheduler
// tuning, calendar/store/advisor connection settings, HTTP auth, and the
// ambient logging/telemetry/error-reporting stack.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/diaguru/core/scheduler"
)

// Config is the root application configuration.
type Config struct {
	Scheduler scheduler.SchedulerConfig `json:"scheduler"`
	Calendar  CalendarConfig            `json:"calendar"`
	Store     StoreConfig               `json:"store"`
	HTTP      HTTPConfig                `json:"http"`
	Advisor   AdvisorConfig             `json:"advisor"`
	Logging   LoggingConfig             `json:"logging"`
	Sentry    SentryConfig              `json:"sentry"`
	Telemetry TelemetryConfig           `json:"telemetry"`
	MQTT      MQTTConfig                `json:"mqtt"`
	Influx    InfluxConfig              `json:"influx"`
}

// CalendarConfig selects and configures the calendar.Gateway transport.
type CalendarConfig struct {
	// Mode selects the transport: "mock" (infra/calendar.MockServer,
	// in-process) or "http" (infra/calendar.HTTPGateway).
	Mode         string `json:"mode"`
	MockAddress  string `json:"mock_address"`
	BaseURL      string `json:"base_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	TokenURL     string `json:"token_url"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	// Backend selects "memory" or "sqlite".
	Backend string `json:"backend"`
	Path    string `json:"path"`
}

// SetDefaults applies sane defaults for the store backend.
func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Path == "" {
		c.Path = "diaguru.db"
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	if c.Backend != "memory" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown store backend %s", c.Backend)
	}
	return nil
}

// HTTPConfig configures the scheduling API server and its bearer tokens.
type HTTPConfig struct {
	Address string            `json:"address"`
	Tokens  map[string]string `json:"tokens"` // bearer token -> owner id
}

// AdvisorConfig selects and configures the advisor.Advisor transport. An
// empty BaseURL means advisor.Baseline is used instead.
type AdvisorConfig struct {
	BaseURL      string `json:"base_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	TokenURL     string `json:"token_url"`
}

// LoggingConfig defines settings for logging output: backend and path for
// the application's structured logger.
type LoggingConfig struct {
	Backend string `json:"backend"`
	Path    string `json:"path"`
}

// SetDefaults applies fallback values.
func (c *LoggingConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "stdout"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	if c.Backend != "stdout" && c.Backend != "file" {
		return fmt.Errorf("unknown logging backend %s", c.Backend)
	}
	if c.Backend == "file" && c.Path == "" {
		return fmt.Errorf("path is required for file logging backend")
	}
	return nil
}

// SentryConfig defines settings for Sentry error monitoring.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
}

// TelemetryConfig holds configuration for the Prometheus metrics sink.
type TelemetryConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
}

// MQTTConfig configures the notify.Publisher MQTT transport. An empty
// Broker means notify.NopPublisher is used instead.
type MQTTConfig struct {
	Broker     string `json:"broker"`
	ClientID   string `json:"client_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	UseTLS     bool   `json:"use_tls"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	CABundle   string `json:"ca_bundle"`
}

// InfluxConfig configures the optional InfluxDB metrics sink, fanned out
// alongside Prometheus via metrics.MultiSink when both are enabled.
type InfluxConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Token   string `json:"token"`
	Org     string `json:"org"`
	Bucket  string `json:"bucket"`
}

// Load reads and validates the root configuration from a JSON or YAML file,
// with DG_-prefixed environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("DG_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "dg_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}

	cfg.Store.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a Config seeded with the scheduler's documented constants
// and an in-memory, mock-calendar development setup.
func Default() Config {
	return Config{
		Scheduler: scheduler.DefaultSchedulerConfig(),
		Calendar:  CalendarConfig{Mode: "mock", MockAddress: ":8090"},
		Store:     StoreConfig{Backend: "memory"},
		HTTP:      HTTPConfig{Address: ":8080"},
		Logging:   LoggingConfig{Backend: "stdout"},
	}
}
