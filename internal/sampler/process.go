package sampler

import (
	"sort"

	"github.com/Dicklesworthstone/neurodash/internal/model"
)

// ProcessNoiseThreshold is the percentage a process must exceed in CPU or
// memory to be reported at all.
const ProcessNoiseThreshold = 0.1

// RankProcesses keeps processes above the noise threshold, orders them by
// memory share (highest first, ties in enumeration order) and returns at
// most n. The result is never nil.
func RankProcesses(procs []model.Process, n int) []model.Process {
	top := make([]model.Process, 0, len(procs))
	for _, p := range procs {
		if p.CPUPercent > ProcessNoiseThreshold || p.MemoryPercent > ProcessNoiseThreshold {
			top = append(top, p)
		}
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].MemoryPercent > top[j].MemoryPercent })
	if n >= 0 && len(top) > n {
		top = top[:n]
	}
	return top
}
