package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mode selects what the binary does after sampling starts.
type Mode string

const (
	ModeServe      Mode = "serve"
	ModeJSON       Mode = "json"
	ModeJSONStream Mode = "json-stream"
	ModeTUI        Mode = "tui"
)

// Config carries runtime options for neurodash.
type Config struct {
	Interval      time.Duration
	HistorySize   int
	TopProcesses  int
	DiskPath      string
	EnableGPU     bool
	GPUPowerLimit float64 // watts; 0 means ask the driver
	SensorTimeout time.Duration

	// Presentation only; passed through to clients.
	WarningThreshold float64
	DangerThreshold  float64

	Host string
	Port int
	Mode Mode

	LogLevel  string
	LogFormat string
}

func Default() Config {
	return Config{
		Interval:         time.Second,
		HistorySize:      60,
		TopProcesses:     5,
		DiskPath:         "/",
		EnableGPU:        true,
		SensorTimeout:    500 * time.Millisecond,
		WarningThreshold: 75,
		DangerThreshold:  90,
		Host:             "0.0.0.0",
		Port:             9999,
		Mode:             ModeServe,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// FromFlags parses flags and environment overrides. A .env file in the
// working directory is loaded first if present; real environment variables
// win over it.
func FromFlags(args []string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	var jsonOnce, jsonStream, tui bool
	fs := flag.NewFlagSet("neurodash", flag.ContinueOnError)
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "poll interval")
	fs.IntVar(&cfg.HistorySize, "history", cfg.HistorySize, "samples kept per history series")
	fs.IntVar(&cfg.TopProcesses, "top", cfg.TopProcesses, "number of processes reported")
	fs.StringVar(&cfg.DiskPath, "disk", cfg.DiskPath, "filesystem path reported as storage")
	fs.BoolVar(&cfg.EnableGPU, "gpu", cfg.EnableGPU, "enable NVIDIA GPU sampling")
	fs.Float64Var(&cfg.GPUPowerLimit, "gpu-power-limit", cfg.GPUPowerLimit, "override GPU power limit in watts (0 = driver value)")
	fs.DurationVar(&cfg.SensorTimeout, "sensor-timeout", cfg.SensorTimeout, "deadline for each sensor read")
	fs.Float64Var(&cfg.WarningThreshold, "warning", cfg.WarningThreshold, "warning threshold percent for clients")
	fs.Float64Var(&cfg.DangerThreshold, "danger", cfg.DangerThreshold, "danger threshold percent for clients")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "HTTP listen host")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	fs.BoolVar(&jsonOnce, "json", false, "output one snapshot as JSON and exit")
	fs.BoolVar(&jsonStream, "json-stream", false, "stream NDJSON snapshots until interrupted")
	fs.BoolVar(&tui, "tui", false, "run the terminal dashboard instead of the HTTP server")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text|json")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	switch {
	case jsonOnce:
		cfg.Mode = ModeJSON
	case jsonStream:
		cfg.Mode = ModeJSONStream
	case tui:
		cfg.Mode = ModeTUI
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("NEURODASH_INTERVAL"); v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return fmt.Errorf("NEURODASH_INTERVAL: %w", err)
		}
		cfg.Interval = d
	}
	if v := os.Getenv("NEURODASH_SENSOR_TIMEOUT"); v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return fmt.Errorf("NEURODASH_SENSOR_TIMEOUT: %w", err)
		}
		cfg.SensorTimeout = d
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"NEURODASH_HISTORY_SIZE", &cfg.HistorySize},
		{"NEURODASH_TOP_PROCESSES", &cfg.TopProcesses},
		{"NEURODASH_PORT", &cfg.Port},
	}
	for _, e := range ints {
		if v := os.Getenv(e.key); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = n
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"NEURODASH_WARNING_THRESHOLD", &cfg.WarningThreshold},
		{"NEURODASH_DANGER_THRESHOLD", &cfg.DangerThreshold},
		{"NEURODASH_GPU_POWER_LIMIT", &cfg.GPUPowerLimit},
	}
	for _, e := range floats {
		if v := os.Getenv(e.key); v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = f
		}
	}

	if v := os.Getenv("NEURODASH_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("NEURODASH_DISK_PATH"); v != "" {
		cfg.DiskPath = v
	}
	if v := os.Getenv("NEURODASH_GPU"); v == "0" || strings.EqualFold(v, "false") {
		cfg.EnableGPU = false
	}
	if v := os.Getenv("NEURODASH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("NEURODASH_LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	return nil
}

// parseInterval accepts a Go duration ("1.5s") or bare milliseconds ("1000").
func parseInterval(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}

// Validate rejects configurations the sampler cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Interval <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	if c.HistorySize <= 0 {
		errs = append(errs, errors.New("history size must be positive"))
	}
	if c.TopProcesses <= 0 {
		errs = append(errs, errors.New("top processes must be positive"))
	}
	if c.SensorTimeout < 0 {
		errs = append(errs, errors.New("sensor timeout must not be negative"))
	}
	if c.GPUPowerLimit < 0 {
		errs = append(errs, errors.New("gpu power limit must not be negative"))
	}
	if c.WarningThreshold < 0 || c.WarningThreshold > 100 || c.DangerThreshold < 0 || c.DangerThreshold > 100 {
		errs = append(errs, errors.New("thresholds must be within [0,100]"))
	} else if c.WarningThreshold >= c.DangerThreshold {
		errs = append(errs, errors.New("warning threshold must be below danger threshold"))
	}
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("listen host is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if strings.TrimSpace(c.DiskPath) == "" {
		errs = append(errs, errors.New("disk path is required"))
	}
	return errors.Join(errs...)
}
