// Package sensor reads host counters and normalizes them into snapshot
// records.
package sensor

import (
	"context"

	"github.com/Dicklesworthstone/neurodash/internal/model"
)

// Usage is a used/total pair in bytes together with the percentage the OS
// reports for it.
type Usage struct {
	Percent    float64
	UsedBytes  uint64
	TotalBytes uint64
}

// Identity is static host information read once at startup.
type Identity struct {
	OS            string
	CPUModel      string
	PhysicalCores int
	LogicalCores  int
}

// Host is the OS capability the sampler polls. Every method may fail; the
// caller substitutes zero values.
type Host interface {
	Identity(ctx context.Context) Identity
	// CPUPercent returns usage since the previous call. The first call
	// reports zeros.
	CPUPercent(ctx context.Context) (global float64, perCore []float64, err error)
	VirtualMemory(ctx context.Context) (Usage, error)
	SwapMemory(ctx context.Context) (Usage, error)
	DiskUsage(ctx context.Context, path string) (Usage, error)
	// Processes lists live processes. Processes that exit or deny access
	// mid-enumeration are left out.
	Processes(ctx context.Context) ([]model.Process, error)
}
