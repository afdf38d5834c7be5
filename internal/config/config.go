// Package config manages the pccd daemon configuration using koanf/v2.
//
// Supports YAML files and environment variable overrides, layered as
// defaults, then file, then env.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/heistp/pcc/internal/pcc"
)

// Config holds the complete pccd configuration.
type Config struct {
	Transport TransportConfig `koanf:"transport"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Log       LogConfig       `koanf:"log"`
	Engine    EngineConfig    `koanf:"engine"`
}

// TransportConfig selects and configures the host transport adapter.
type TransportConfig struct {
	// Kind is "linux" for a real TCP_INFO-backed transport, or "sim" for
	// the in-memory demo transport.
	Kind string `koanf:"kind"`
	// PollInterval is how often pccd polls the transport for progress when
	// driving the engine outside of a real ACK-driven callback path.
	PollInterval time.Duration `koanf:"poll_interval"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "console".
	Format string `koanf:"format"`
}

// EngineConfig mirrors pcc.Config for koanf unmarshaling.
type EngineConfig struct {
	SndWndClampEnabled bool        `koanf:"snd_wnd_clamp_enabled"`
	SndWndClamp        pcc.Bytes   `koanf:"snd_wnd_clamp"`
	ShuffleDirections  bool        `koanf:"shuffle_directions"`
}

// ToEngine converts EngineConfig to the engine-native pcc.Config.
func (e EngineConfig) ToEngine() pcc.Config {
	cfg := pcc.DefaultConfig()
	cfg.SndWndClampEnabled = e.SndWndClampEnabled
	if e.SndWndClamp != 0 {
		cfg.SndWndClamp = e.SndWndClamp
	}
	cfg.Experimental.ShuffleDirections = e.ShuffleDirections
	return cfg
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			Kind:         "linux",
			PollInterval: 10 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Engine: EngineConfig{
			SndWndClampEnabled: false,
			SndWndClamp:        pcc.DefaultSndWndClamp,
			ShuffleDirections:  false,
		},
	}
}

// envPrefix is the environment variable prefix for pccd configuration.
// Variables are named PCCD_<section>_<key>, e.g., PCCD_METRICS_ADDR.
const envPrefix = "PCCD_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (PCCD_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms PCCD_METRICS_ADDR -> metrics.addr.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"transport.kind":               defaults.Transport.Kind,
		"transport.poll_interval":      defaults.Transport.PollInterval.String(),
		"metrics.addr":                 defaults.Metrics.Addr,
		"metrics.path":                 defaults.Metrics.Path,
		"log.level":                    defaults.Log.Level,
		"log.format":                   defaults.Log.Format,
		"engine.snd_wnd_clamp_enabled": defaults.Engine.SndWndClampEnabled,
		"engine.snd_wnd_clamp":         uint64(defaults.Engine.SndWndClamp),
		"engine.shuffle_directions":    defaults.Engine.ShuffleDirections,
	}
	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}
	return nil
}

// Validation errors.
var (
	ErrInvalidTransportKind = errors.New("transport.kind must be \"linux\" or \"sim\"")
	ErrEmptyMetricsAddr     = errors.New("metrics.addr must not be empty")
	ErrInvalidPollInterval  = errors.New("transport.poll_interval must be > 0")
)

// Validate checks a Config for obviously invalid values.
func Validate(cfg *Config) error {
	switch cfg.Transport.Kind {
	case "linux", "sim":
	default:
		return ErrInvalidTransportKind
	}
	if cfg.Metrics.Addr == "" {
		return ErrEmptyMetricsAddr
	}
	if cfg.Transport.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	return nil
}
