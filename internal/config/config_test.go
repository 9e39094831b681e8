package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8090" {
		t.Fatalf("unexpected http addr %q", cfg.HTTPAddr)
	}
	if cfg.Probe.Attempts != 3 {
		t.Fatalf("unexpected probe attempts %d", cfg.Probe.Attempts)
	}
	if cfg.Probe.RetryDelay != 2*time.Second {
		t.Fatalf("unexpected retry delay %s", cfg.Probe.RetryDelay)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected log level %v", cfg.LogLevel)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("IMSYS_HTTP_ADDR", ":9100")
	t.Setenv("IMSYS_LOG_LEVEL", "debug")
	t.Setenv("IMSYS_PROBE_ATTEMPTS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9100" {
		t.Fatalf("env override ignored, got %q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("unexpected log level %v", cfg.LogLevel)
	}
	if cfg.Probe.Attempts != 5 {
		t.Fatalf("unexpected probe attempts %d", cfg.Probe.Attempts)
	}
}

func TestProbeNormalizeClampsInvalid(t *testing.T) {
	p := Probe{Attempts: -1, RetryDelay: 0, ConnectTimeout: -time.Second, PingCount: 0}.Normalize()
	if p.Attempts != 3 || p.RetryDelay != 2*time.Second || p.ConnectTimeout != 5*time.Second || p.PingCount != 3 {
		t.Fatalf("normalize did not restore defaults: %+v", p)
	}
}
