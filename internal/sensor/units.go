package sensor

import (
	"math"

	"github.com/Dicklesworthstone/neurodash/internal/model"
)

const bytesPerGiB = 1024 * 1024 * 1024

// BytesToGB converts bytes to GiB without rounding.
func BytesToGB(b uint64) float64 { return float64(b) / bytesPerGiB }

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// UsedGB is the display form of a used amount: GiB with one decimal.
func UsedGB(b uint64) float64 { return Round(BytesToGB(b), 1) }

// TotalGB is the display form of a capacity: whole GiB.
func TotalGB(b uint64) float64 { return Round(BytesToGB(b), 0) }

// Percent is the display form of a percentage: clamped, one decimal.
func Percent(v float64) float64 {
	if v != v {
		return 0
	}
	return Round(clampPercent(v), 1)
}

// CPURecord builds the cpu section of a snapshot.
func CPURecord(id Identity, global float64, perCore, history []float64) model.CPU {
	cores := make([]float64, len(perCore))
	for i, v := range perCore {
		cores[i] = Percent(v)
	}
	return model.CPU{
		Model:         id.CPUModel,
		GlobalUsage:   Percent(global),
		PerCore:       cores,
		PhysicalCount: id.PhysicalCores,
		LogicalCount:  id.LogicalCores,
		History:       history,
	}
}

// MemoryRecord builds the memory section of a snapshot.
func MemoryRecord(ram, swap Usage, history []float64) model.Memory {
	return model.Memory{
		RAMPercent:  Percent(ram.Percent),
		RAMUsedGB:   UsedGB(ram.UsedBytes),
		RAMTotalGB:  TotalGB(ram.TotalBytes),
		RAMHistory:  history,
		SwapPercent: Percent(swap.Percent),
		SwapUsedGB:  UsedGB(swap.UsedBytes),
		SwapTotalGB: TotalGB(swap.TotalBytes),
	}
}

// StorageRecord builds the storage section of a snapshot.
func StorageRecord(disk Usage) model.Storage {
	return model.Storage{
		RootPercent: Percent(disk.Percent),
		RootUsedGB:  UsedGB(disk.UsedBytes),
		RootTotalGB: TotalGB(disk.TotalBytes),
	}
}
