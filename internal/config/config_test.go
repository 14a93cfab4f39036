package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestFromFlagsDefaults(t *testing.T) {
	cfg, err := FromFlags(nil)
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	if cfg.Interval != time.Second || cfg.HistorySize != 60 || cfg.TopProcesses != 5 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Mode != ModeServe {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModeServe)
	}
	if cfg.Addr() != "0.0.0.0:9999" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
}

func TestFromFlagsParsesFlags(t *testing.T) {
	cfg, err := FromFlags([]string{"-interval", "250ms", "-history", "30", "-top", "10", "-gpu=false", "-json-stream"})
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	if cfg.Interval != 250*time.Millisecond {
		t.Errorf("Interval = %s", cfg.Interval)
	}
	if cfg.HistorySize != 30 || cfg.TopProcesses != 10 {
		t.Errorf("history/top = %d/%d", cfg.HistorySize, cfg.TopProcesses)
	}
	if cfg.EnableGPU {
		t.Error("EnableGPU = true, want false")
	}
	if cfg.Mode != ModeJSONStream {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModeJSONStream)
	}
}

func TestEnvOverridesFlags(t *testing.T) {
	t.Setenv("NEURODASH_INTERVAL", "2000")
	t.Setenv("NEURODASH_PORT", "8080")
	t.Setenv("NEURODASH_HOST", "127.0.0.1")
	t.Setenv("NEURODASH_WARNING_THRESHOLD", "60")
	t.Setenv("NEURODASH_DANGER_THRESHOLD", "80")
	t.Setenv("NEURODASH_GPU", "0")
	t.Setenv("NEURODASH_GPU_POWER_LIMIT", "320")
	t.Setenv("NEURODASH_LOG_LEVEL", "DEBUG")

	cfg, err := FromFlags([]string{"-interval", "5s", "-port", "1234"})
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	if cfg.Interval != 2*time.Second {
		t.Errorf("Interval = %s, want 2s", cfg.Interval)
	}
	if cfg.Addr() != "127.0.0.1:8080" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
	if cfg.WarningThreshold != 60 || cfg.DangerThreshold != 80 {
		t.Errorf("thresholds = %v/%v", cfg.WarningThreshold, cfg.DangerThreshold)
	}
	if cfg.EnableGPU {
		t.Error("EnableGPU = true, want false")
	}
	if cfg.GPUPowerLimit != 320 {
		t.Errorf("GPUPowerLimit = %v", cfg.GPUPowerLimit)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "1000", want: time.Second},
		{in: " 250 ", want: 250 * time.Millisecond},
		{in: "1.5s", want: 1500 * time.Millisecond},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseInterval(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseInterval(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseInterval(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestBadEnvIsAnError(t *testing.T) {
	t.Setenv("NEURODASH_HISTORY_SIZE", "lots")
	if _, err := FromFlags(nil); err == nil || !strings.Contains(err.Error(), "NEURODASH_HISTORY_SIZE") {
		t.Errorf("error = %v, want mention of NEURODASH_HISTORY_SIZE", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero interval", func(c *Config) { c.Interval = 0 }, "interval"},
		{"zero history", func(c *Config) { c.HistorySize = 0 }, "history"},
		{"zero top", func(c *Config) { c.TopProcesses = 0 }, "top processes"},
		{"threshold range", func(c *Config) { c.DangerThreshold = 120 }, "[0,100]"},
		{"threshold order", func(c *Config) { c.WarningThreshold = 95 }, "below danger"},
		{"port", func(c *Config) { c.Port = 70000 }, "port"},
		{"empty host", func(c *Config) { c.Host = "" }, "listen host"},
		{"disk", func(c *Config) { c.DiskPath = " " }, "disk path"},
		{"negative power limit", func(c *Config) { c.GPUPowerLimit = -1 }, "power limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}
