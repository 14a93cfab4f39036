//go:build linux && cgo

package gpu

import (
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// NVML returns the NVIDIA Management Library binding. Init fails when
// libnvidia-ml is not installed.
func NVML() Library { return nvmlLibrary{} }

type nvmlLibrary struct{}

func (nvmlLibrary) Init() error {
	return check("init", nvml.Init())
}

func (nvmlLibrary) DriverVersion() (string, error) {
	v, ret := nvml.SystemGetDriverVersion()
	return v, check("driver version", ret)
}

func (nvmlLibrary) Device(index int) (Device, string, error) {
	h, ret := nvml.DeviceGetHandleByIndex(index)
	if err := check("device handle", ret); err != nil {
		return nil, "", err
	}
	name, ret := h.GetName()
	if err := check("device name", ret); err != nil {
		return nil, "", err
	}
	return nvmlDevice{h: h}, name, nil
}

func (nvmlLibrary) Shutdown() error {
	return check("shutdown", nvml.Shutdown())
}

type nvmlDevice struct {
	h nvml.Device
}

func (d nvmlDevice) Utilization() (uint32, error) {
	u, ret := d.h.GetUtilizationRates()
	return u.Gpu, check("utilization", ret)
}

func (d nvmlDevice) Memory() (Memory, error) {
	m, ret := d.h.GetMemoryInfo()
	return Memory{Used: m.Used, Total: m.Total}, check("memory info", ret)
}

func (d nvmlDevice) Temperature() (uint32, error) {
	t, ret := d.h.GetTemperature(nvml.TEMPERATURE_GPU)
	return t, check("temperature", ret)
}

func (d nvmlDevice) FanSpeed() (uint32, error) {
	f, ret := d.h.GetFanSpeed()
	return f, check("fan speed", ret)
}

func (d nvmlDevice) PowerUsage() (uint32, error) {
	p, ret := d.h.GetPowerUsage()
	return p, check("power usage", ret)
}

func (d nvmlDevice) PowerLimit() (uint32, error) {
	p, ret := d.h.GetEnforcedPowerLimit()
	return p, check("enforced power limit", ret)
}

// PCIeThroughput reports KB/s over the driver's 20ms sample window.
func (d nvmlDevice) PCIeThroughput(dir Direction) (uint32, error) {
	counter := nvml.PCIE_UTIL_TX_BYTES
	if dir == RX {
		counter = nvml.PCIE_UTIL_RX_BYTES
	}
	v, ret := d.h.GetPcieThroughput(counter)
	return v, check("pcie throughput", ret)
}

func check(op string, ret nvml.Return) error {
	if ret == nvml.SUCCESS {
		return nil
	}
	return fmt.Errorf("nvml %s: %s", op, nvml.ErrorString(ret))
}
