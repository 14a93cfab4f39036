// Package gpu wraps NVIDIA telemetry behind a small fallible interface.
// Detection happens once; a host without a usable GPU runs CPU-only for the
// rest of the process lifetime.
package gpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dicklesworthstone/neurodash/internal/logging"
)

// ErrUnavailable is returned when GPU telemetry is not supported on this
// build or host.
var ErrUnavailable = errors.New("gpu: telemetry unavailable")

// Identity is static device information read at detection time.
type Identity struct {
	Name   string
	Driver string
}

// Memory is framebuffer usage in bytes.
type Memory struct {
	Used  uint64
	Total uint64
}

// Direction selects a PCIe throughput counter.
type Direction int

const (
	TX Direction = iota
	RX
)

func (d Direction) String() string {
	if d == RX {
		return "rx"
	}
	return "tx"
}

// Device is one GPU. Every query may fail independently.
type Device interface {
	Utilization() (uint32, error) // percent
	Memory() (Memory, error)
	Temperature() (uint32, error) // celsius
	FanSpeed() (uint32, error)    // percent
	PowerUsage() (uint32, error)  // milliwatts
	PowerLimit() (uint32, error)  // enforced limit, milliwatts
	PCIeThroughput(Direction) (uint32, error)
}

// Library is the driver entry point.
type Library interface {
	Init() error
	DriverVersion() (string, error)
	// Device returns the device handle at index together with its name.
	Device(index int) (Device, string, error)
	Shutdown() error
}

// Detect initializes lib and acquires device 0. It reports false on any
// failure, in which case the caller must not retry.
func Detect(lib Library, logger *slog.Logger) (Device, Identity, bool) {
	if logger == nil {
		logger = logging.Discard()
	}
	if lib == nil {
		logger.Info("gpu: no driver library, running CPU-only")
		return nil, Identity{}, false
	}

	dev, id, err := detect(lib)
	if err != nil {
		logger.Info("gpu: initialization failed, running CPU-only", "error", err)
		return nil, Identity{}, false
	}
	logger.Info("gpu: detected", "name", id.Name, "driver", id.Driver)
	return dev, id, true
}

func detect(lib Library) (Device, Identity, error) {
	if err := lib.Init(); err != nil {
		return nil, Identity{}, fmt.Errorf("init: %w", err)
	}
	dev, name, err := lib.Device(0)
	if err != nil {
		_ = lib.Shutdown()
		return nil, Identity{}, fmt.Errorf("device 0: %w", err)
	}
	driver, err := lib.DriverVersion()
	if err != nil {
		_ = lib.Shutdown()
		return nil, Identity{}, fmt.Errorf("driver version: %w", err)
	}
	return dev, Identity{Name: name, Driver: driver}, nil
}
