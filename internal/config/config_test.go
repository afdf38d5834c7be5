package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/heistp/pcc/internal/config"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pccd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	if cfg.Transport.Kind != "linux" {
		t.Errorf("Transport.Kind = %q, want %q", cfg.Transport.Kind, "linux")
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9100")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if err := config.Validate(cfg); err != nil {
		t.Errorf("DefaultConfig() failed validation: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
transport:
  kind: "sim"
  poll_interval: "5ms"
metrics:
  addr: ":9200"
  path: "/custom-metrics"
log:
  level: "debug"
  format: "console"
engine:
  snd_wnd_clamp_enabled: true
  shuffle_directions: true
`
	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}
	if cfg.Transport.Kind != "sim" {
		t.Errorf("Transport.Kind = %q, want sim", cfg.Transport.Kind)
	}
	if cfg.Transport.PollInterval != 5*time.Millisecond {
		t.Errorf("Transport.PollInterval = %v, want 5ms", cfg.Transport.PollInterval)
	}
	if cfg.Metrics.Addr != ":9200" {
		t.Errorf("Metrics.Addr = %q, want :9200", cfg.Metrics.Addr)
	}
	if !cfg.Engine.SndWndClampEnabled || !cfg.Engine.ShuffleDirections {
		t.Error("expected both engine flags to be enabled from YAML")
	}

	eng := cfg.Engine.ToEngine()
	if !eng.SndWndClampEnabled || !eng.Experimental.ShuffleDirections {
		t.Error("ToEngine() did not carry the flags through")
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	yamlContent := `
metrics:
  addr: ":55555"
`
	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}
	if cfg.Metrics.Addr != ":55555" {
		t.Errorf("Metrics.Addr = %q, want :55555", cfg.Metrics.Addr)
	}
	if cfg.Transport.Kind != "linux" {
		t.Errorf("Transport.Kind = %q, want default linux", cfg.Transport.Kind)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want default json", cfg.Log.Format)
	}
}

func TestValidateRejectsBadTransportKind(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Transport.Kind = "bogus"
	if err := config.Validate(cfg); err != config.ErrInvalidTransportKind {
		t.Errorf("Validate() = %v, want ErrInvalidTransportKind", err)
	}
}

func TestValidateRejectsEmptyMetricsAddr(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Metrics.Addr = ""
	if err := config.Validate(cfg); err != config.ErrEmptyMetricsAddr {
		t.Errorf("Validate() = %v, want ErrEmptyMetricsAddr", err)
	}
}
