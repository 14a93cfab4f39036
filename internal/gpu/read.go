package gpu

import (
	"errors"
	"fmt"

	"github.com/Dicklesworthstone/neurodash/internal/model"
	"github.com/Dicklesworthstone/neurodash/internal/sensor"
)

// Core holds the metrics a GPU must report. Failing any of them means the
// device handle is no longer usable.
type Core struct {
	Utilization float64
	Memory      Memory
	TempC       float64
	FanPercent  float64
}

// Extras holds metrics that are read best-effort. A failed read leaves its
// field at zero.
type Extras struct {
	PowerW      float64
	PowerLimitW float64
	PCIeTxMB    float64
	PCIeRxMB    float64
}

// ReadCore queries the required metrics.
func ReadCore(dev Device) (Core, error) {
	util, err := dev.Utilization()
	if err != nil {
		return Core{}, fmt.Errorf("utilization: %w", err)
	}
	mem, err := dev.Memory()
	if err != nil {
		return Core{}, fmt.Errorf("memory: %w", err)
	}
	temp, err := dev.Temperature()
	if err != nil {
		return Core{}, fmt.Errorf("temperature: %w", err)
	}
	fan, err := dev.FanSpeed()
	if err != nil {
		return Core{}, fmt.Errorf("fan speed: %w", err)
	}
	return Core{
		Utilization: float64(util),
		Memory:      mem,
		TempC:       float64(temp),
		FanPercent:  float64(fan),
	}, nil
}

// ReadExtras queries each optional metric on its own. The returned error
// joins every individual failure; the Extras are valid either way. A
// positive powerLimitW replaces the driver's enforced limit.
func ReadExtras(dev Device, powerLimitW float64) (Extras, error) {
	var ex Extras
	var errs []error

	if mw, err := dev.PowerUsage(); err != nil {
		errs = append(errs, fmt.Errorf("power usage: %w", err))
	} else {
		ex.PowerW = float64(mw) / 1000
	}

	if powerLimitW > 0 {
		ex.PowerLimitW = powerLimitW
	} else if mw, err := dev.PowerLimit(); err != nil {
		errs = append(errs, fmt.Errorf("power limit: %w", err))
	} else {
		ex.PowerLimitW = float64(mw) / 1000
	}

	for _, dir := range []Direction{TX, RX} {
		kbs, err := dev.PCIeThroughput(dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("pcie %s: %w", dir, err))
			continue
		}
		mbs := float64(kbs) / 1024
		if dir == TX {
			ex.PCIeTxMB = mbs
		} else {
			ex.PCIeRxMB = mbs
		}
	}

	return ex, errors.Join(errs...)
}

// Record builds the snapshot's GPU section, applying display rounding.
func Record(id Identity, core Core, ex Extras, history []float64) model.GPUAvailable {
	var vramPct float64
	if core.Memory.Total > 0 {
		vramPct = float64(core.Memory.Used) / float64(core.Memory.Total) * 100
	}
	return model.GPUAvailable{
		Name:        id.Name,
		Driver:      id.Driver,
		Utilization: core.Utilization,
		History:     history,
		VRAMPercent: sensor.Round(vramPct, 1),
		VRAMUsedGB:  sensor.UsedGB(core.Memory.Used),
		VRAMTotalGB: sensor.TotalGB(core.Memory.Total),
		TempC:       core.TempC,
		FanPercent:  core.FanPercent,
		PowerW:      sensor.Round(ex.PowerW, 0),
		PowerLimitW: sensor.Round(ex.PowerLimitW, 0),
		PCIeTxMB:    sensor.Round(ex.PCIeTxMB, 0),
		PCIeRxMB:    sensor.Round(ex.PCIeRxMB, 0),
	}
}
