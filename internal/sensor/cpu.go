package sensor

import "github.com/shirou/gopsutil/v3/cpu"

// CPUTracker turns cumulative CPU time counters into usage percentages from
// one call to the next, so reading never blocks on a sampling interval.
type CPUTracker struct {
	prevTotal float64
	prevIdle  float64
	prevCore  []cpu.TimesStat
}

// Update consumes the aggregate and per-core counters and returns the usage
// since the previous Update. Cores without a previous reading report 0.
func (t *CPUTracker) Update(total cpu.TimesStat, cores []cpu.TimesStat) (global float64, perCore []float64) {
	curTotal := total.Total()
	curIdle := total.Idle + total.Iowait
	if t.prevTotal > 0 {
		global = busy(curTotal-t.prevTotal, curIdle-t.prevIdle)
	}
	t.prevTotal, t.prevIdle = curTotal, curIdle

	perCore = make([]float64, len(cores))
	for i, c := range cores {
		if i >= len(t.prevCore) {
			continue
		}
		prev := t.prevCore[i]
		perCore[i] = busy(c.Total()-prev.Total(), (c.Idle+c.Iowait)-(prev.Idle+prev.Iowait))
	}
	t.prevCore = append(t.prevCore[:0], cores...)
	return global, perCore
}

func busy(dt, di float64) float64 {
	if dt <= 0 {
		return 0
	}
	return clampPercent(100 * (1 - di/dt))
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
