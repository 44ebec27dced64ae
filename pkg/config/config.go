// Package config loads pulse's engine settings from defaults,
// an optional YAML file, and environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pulseload/pulse/internal/httpengine"
)

// HTTPConfig controls the shared HTTP client used by every virtual user.
type HTTPConfig struct {
	RequestTimeout      time.Duration `json:"request_timeout" yaml:"request_timeout" env:"PULSE_HTTP_REQUEST_TIMEOUT"`
	MaxIdleConnsPerHost int           `json:"max_idle_conns_per_host" yaml:"max_idle_conns_per_host" env:"PULSE_HTTP_MAX_IDLE_CONNS_PER_HOST"`
	IdleConnTimeout     time.Duration `json:"idle_conn_timeout" yaml:"idle_conn_timeout" env:"PULSE_HTTP_IDLE_CONN_TIMEOUT"`
	UserAgent           string        `json:"user_agent" yaml:"user_agent" env:"PULSE_HTTP_USER_AGENT"`
	DisableCompression  bool          `json:"disable_compression" yaml:"disable_compression" env:"PULSE_HTTP_DISABLE_COMPRESSION"`
}

// ToClientConfig projects the subset of HTTPConfig the shared HTTP
// client builder needs.
func (h HTTPConfig) ToClientConfig() httpengine.ClientConfig {
	return httpengine.ClientConfig{
		RequestTimeout:      h.RequestTimeout,
		MaxIdleConnsPerHost: h.MaxIdleConnsPerHost,
		IdleConnTimeout:     h.IdleConnTimeout,
		UserAgent:           h.UserAgent,
		DisableCompression:  h.DisableCompression,
	}
}

// RuntimeConfig controls engine execution behaviour.
type RuntimeConfig struct {
	ProgressInterval time.Duration `json:"progress_interval" yaml:"progress_interval" env:"PULSE_PROGRESS_INTERVAL"`
	EventBuffer      int           `json:"event_buffer" yaml:"event_buffer" env:"PULSE_EVENT_BUFFER"`
	BodyPreviewBytes int           `json:"body_preview_bytes" yaml:"body_preview_bytes" env:"PULSE_BODY_PREVIEW_BYTES"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"LOG_LEVEL"`
	Format string `json:"format" yaml:"format" env:"LOG_FORMAT"`
}

// SysMonConfig controls the optional host-resource sampler.
type SysMonConfig struct {
	Enabled        bool          `json:"enabled" yaml:"enabled" env:"PULSE_SYSMON_ENABLED"`
	SampleInterval time.Duration `json:"sample_interval" yaml:"sample_interval" env:"PULSE_SYSMON_INTERVAL"`
}

// ScheduleConfig controls the optional cron-driven repeated-run scheduler.
type ScheduleConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" env:"PULSE_SCHEDULE_ENABLED"`
	Cron    string `json:"cron" yaml:"cron" env:"PULSE_SCHEDULE_CRON"`
}

// Config is the top-level configuration structure.
type Config struct {
	HTTP     HTTPConfig     `json:"http" yaml:"http"`
	Runtime  RuntimeConfig  `json:"runtime" yaml:"runtime"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	SysMon   SysMonConfig   `json:"sysmon" yaml:"sysmon"`
	Schedule ScheduleConfig `json:"schedule" yaml:"schedule"`
}

// New returns a configuration populated with defaults.
func New() *Config {
	return &Config{
		HTTP: HTTPConfig{
			RequestTimeout:      30 * time.Second,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
			UserAgent:           "pulse/1.0",
			DisableCompression:  false,
		},
		Runtime: RuntimeConfig{
			ProgressInterval: 500 * time.Millisecond,
			EventBuffer:      4096,
			BodyPreviewBytes: 4096,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		SysMon: SysMonConfig{
			Enabled:        false,
			SampleInterval: 2 * time.Second,
		},
		Schedule: ScheduleConfig{
			Enabled: false,
		},
	}
}

// Load loads configuration from file (if present) and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("PULSE_CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		_ = loadFromFile("configs/pulse.yaml", cfg)
	}

	if err := envdecode.Decode(cfg); err != nil {
		// envdecode returns an error when no tagged fields are present in
		// the environment; treat that case as "no overrides" so local
		// runs work without exporting vars.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	return cfg, nil
}

// LoadFile reads configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads configuration from a JSON file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := New()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
