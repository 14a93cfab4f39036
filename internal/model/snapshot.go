package model

import "time"

// CPU aggregates instantaneous CPU usage plus its rolling history.
type CPU struct {
	Model         string    `json:"model"`
	GlobalUsage   float64   `json:"global_usage"` // percent 0-100
	PerCore       []float64 `json:"cores"`
	PhysicalCount int       `json:"count_physical"`
	LogicalCount  int       `json:"count_logical"`
	History       []float64 `json:"history"`
}

// Memory captures RAM and swap usage. Sizes are GiB rounded for display.
type Memory struct {
	RAMPercent  float64   `json:"ram_percent"`
	RAMUsedGB   float64   `json:"ram_used_gb"`
	RAMTotalGB  float64   `json:"ram_total_gb"`
	RAMHistory  []float64 `json:"ram_history"`
	SwapPercent float64   `json:"swap_percent"`
	SwapUsedGB  float64   `json:"swap_used_gb"`
	SwapTotalGB float64   `json:"swap_total_gb"`
}

// Storage is usage of the monitored filesystem (root by default).
type Storage struct {
	RootPercent float64 `json:"root_percent"`
	RootUsedGB  float64 `json:"root_used_gb"`
	RootTotalGB float64 `json:"root_total_gb"`
}

// Process is a lightweight top entry.
type Process struct {
	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
	Username      string  `json:"username"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
}

// Snapshot is the full system state for one poll cycle. It is never mutated
// after the sampler publishes it.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	OS        string    `json:"os"`
	CPU       CPU       `json:"cpu"`
	Memory    Memory    `json:"memory"`
	Storage   Storage   `json:"storage"`
	Processes []Process `json:"processes"`
	GPU       GPUState  `json:"gpu"`
}

// AvailableGPU returns the GPU record when the poll had GPU telemetry.
func (s Snapshot) AvailableGPU() (GPUAvailable, bool) {
	g, ok := s.GPU.(GPUAvailable)
	return g, ok
}
