package sensor

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/Dicklesworthstone/neurodash/internal/model"
)

// UnknownCPU labels a CPU whose model string cannot be read.
const UnknownCPU = "Unknown CPU"

var cpuModelNoise = strings.NewReplacer("(R)", "", "(TM)", "", " CPU", "")

// System is the gopsutil-backed Host. Each call runs under its own deadline
// so a hung counter read cannot stall the poll loop.
//
// CPUPercent and Processes keep state between calls and must not be called
// concurrently; the sampler serializes them.
type System struct {
	timeout time.Duration
	cpu     CPUTracker
	procs   map[int32]*process.Process
}

// NewSystem returns a Host reading from the local OS. A non-positive timeout
// disables the per-call deadline.
func NewSystem(timeout time.Duration) *System {
	return &System{
		timeout: timeout,
		procs:   make(map[int32]*process.Process),
	}
}

func (s *System) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Identity reads the OS summary, CPU model and core counts. Fields that
// cannot be read fall back to generic values.
func (s *System) Identity(ctx context.Context) Identity {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	id := Identity{CPUModel: UnknownCPU}
	if info, err := host.InfoWithContext(ctx); err == nil {
		id.OS = osSummary(info.OS, info.KernelVersion)
	}
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		id.CPUModel = CleanCPUModel(infos[0].ModelName)
	}
	id.PhysicalCores, _ = cpu.CountsWithContext(ctx, false)
	id.LogicalCores, _ = cpu.CountsWithContext(ctx, true)
	return id
}

// CPUPercent implements Host.
func (s *System) CPUPercent(ctx context.Context) (float64, []float64, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	total, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return 0, nil, fmt.Errorf("cpu times: %w", err)
	}
	if len(total) == 0 {
		return 0, nil, fmt.Errorf("cpu times: no aggregate counters")
	}
	cores, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return 0, nil, fmt.Errorf("per-cpu times: %w", err)
	}
	global, perCore := s.cpu.Update(total[0], cores)
	return global, perCore, nil
}

// VirtualMemory implements Host.
func (s *System) VirtualMemory(ctx context.Context) (Usage, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Usage{}, fmt.Errorf("virtual memory: %w", err)
	}
	return Usage{Percent: v.UsedPercent, UsedBytes: v.Used, TotalBytes: v.Total}, nil
}

// SwapMemory implements Host.
func (s *System) SwapMemory(ctx context.Context) (Usage, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	v, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return Usage{}, fmt.Errorf("swap memory: %w", err)
	}
	return Usage{Percent: v.UsedPercent, UsedBytes: v.Used, TotalBytes: v.Total}, nil
}

// DiskUsage implements Host.
func (s *System) DiskUsage(ctx context.Context, path string) (Usage, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	v, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return Usage{}, fmt.Errorf("disk usage %s: %w", path, err)
	}
	return Usage{Percent: v.UsedPercent, UsedBytes: v.Used, TotalBytes: v.Total}, nil
}

// Processes implements Host. Process handles are cached by PID so CPU
// percentages are measured since the previous enumeration. If the deadline
// passes mid-enumeration the records read so far are returned together with
// an error saying the list is truncated.
func (s *System) Processes(ctx context.Context) ([]model.Process, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: total memory: %w", err)
	}
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	handles := make(map[int32]*process.Process, len(procs))
	entries := make([]procEntry, 0, len(procs))
	for _, p := range procs {
		if cached, ok := s.procs[p.Pid]; ok {
			p = cached
		}
		handles[p.Pid] = p
		entries = append(entries, procEntry{pid: p.Pid, h: p})
	}

	out, err := collectProcesses(ctx, entries, vm.Total)

	seen := make(map[int32]*process.Process, len(out))
	for _, rec := range out {
		seen[rec.PID] = handles[rec.PID]
	}
	if err == nil {
		s.procs = seen
	} else {
		maps.Copy(s.procs, seen)
	}
	return out, err
}

// procHandle is the per-process read surface of *process.Process.
type procHandle interface {
	NameWithContext(ctx context.Context) (string, error)
	PercentWithContext(ctx context.Context, interval time.Duration) (float64, error)
	MemoryInfoWithContext(ctx context.Context) (*process.MemoryInfoStat, error)
	UsernameWithContext(ctx context.Context) (string, error)
}

type procEntry struct {
	pid int32
	h   procHandle
}

// collectProcesses reads entries in order until ctx is done. Memory share is
// resident size over totalMem.
func collectProcesses(ctx context.Context, entries []procEntry, totalMem uint64) ([]model.Process, error) {
	out := make([]model.Process, 0, len(entries))
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("list processes: truncated after %d of %d: %w", i, len(entries), err)
		}
		if rec, ok := readProcess(ctx, e.pid, e.h, totalMem); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// readProcess reports false when the process vanished or denied access. An
// unreadable username alone is not a reason to drop the record.
func readProcess(ctx context.Context, pid int32, p procHandle, totalMem uint64) (model.Process, bool) {
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return model.Process{}, false
	}
	cpuPct, err := p.PercentWithContext(ctx, 0)
	if err != nil {
		return model.Process{}, false
	}
	info, err := p.MemoryInfoWithContext(ctx)
	if err != nil || info == nil {
		return model.Process{}, false
	}
	user, _ := p.UsernameWithContext(ctx)

	var memPct float64
	if totalMem > 0 {
		memPct = float64(info.RSS) / float64(totalMem) * 100
	}
	return model.Process{
		PID:           pid,
		Name:          name,
		Username:      user,
		CPUPercent:    cpuPct,
		MemoryPercent: memPct,
	}, true
}

// CleanCPUModel strips trademark noise from a CPU model string.
func CleanCPUModel(raw string) string {
	name := strings.Join(strings.Fields(cpuModelNoise.Replace(raw)), " ")
	if name == "" {
		return UnknownCPU
	}
	return name
}

func osSummary(goos, release string) string {
	if goos == "" {
		return release
	}
	name := strings.ToUpper(goos[:1]) + goos[1:]
	return strings.TrimSpace(name + " " + release)
}

var _ Host = (*System)(nil)
