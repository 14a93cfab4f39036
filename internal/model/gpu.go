package model

import "encoding/json"

// GPUState is either GPUUnavailable or GPUAvailable. The unexported method
// seals the set so a type switch over the two cases is exhaustive.
type GPUState interface {
	gpuState()
}

// GPUUnavailable marks a poll without GPU telemetry.
type GPUUnavailable struct{}

func (GPUUnavailable) gpuState() {}

// MarshalJSON encodes as {"available":false}.
func (GPUUnavailable) MarshalJSON() ([]byte, error) {
	return []byte(`{"available":false}`), nil
}

// GPUAvailable holds a single device reading.
type GPUAvailable struct {
	Name        string    `json:"name"`
	Driver      string    `json:"driver"`
	Utilization float64   `json:"utilization"` // percent
	History     []float64 `json:"history"`
	VRAMPercent float64   `json:"vram_percent"`
	VRAMUsedGB  float64   `json:"vram_used_gb"`
	VRAMTotalGB float64   `json:"vram_total_gb"`
	TempC       float64   `json:"temp_c"`
	FanPercent  float64   `json:"fan_percent"`
	PowerW      float64   `json:"power_w"`
	PowerLimitW float64   `json:"power_limit_w"`
	PCIeTxMB    float64   `json:"pcie_tx_mb"`
	PCIeRxMB    float64   `json:"pcie_rx_mb"`
}

func (GPUAvailable) gpuState() {}

// MarshalJSON adds the "available":true discriminator.
func (g GPUAvailable) MarshalJSON() ([]byte, error) {
	type plain GPUAvailable
	return json.Marshal(struct {
		Available bool `json:"available"`
		plain
	}{Available: true, plain: plain(g)})
}
