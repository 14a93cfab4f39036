package sampler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dicklesworthstone/neurodash/internal/config"
	"github.com/Dicklesworthstone/neurodash/internal/gpu"
	"github.com/Dicklesworthstone/neurodash/internal/history"
	"github.com/Dicklesworthstone/neurodash/internal/logging"
	"github.com/Dicklesworthstone/neurodash/internal/model"
	"github.com/Dicklesworthstone/neurodash/internal/sensor"
)

// ErrPollInProgress is returned by Poll when another poll has not finished.
var ErrPollInProgress = errors.New("sampler: poll already in progress")

// Sampler assembles Snapshots from the host and GPU capabilities. It owns
// the history buffers and the GPU capability flag; at most one poll runs at
// a time and readers only ever see fully built Snapshots.
type Sampler struct {
	Interval time.Duration

	host     sensor.Host
	identity sensor.Identity
	diskPath string
	topN     int
	timeout  time.Duration

	gpu        gpu.Device
	gpuID      gpu.Identity
	gpuOn      atomic.Bool
	powerLimit float64

	cpuHist *history.Buffer
	ramHist *history.Buffer
	gpuHist *history.Buffer

	pollMu sync.Mutex
	latest atomic.Pointer[model.Snapshot]

	subsMu sync.Mutex
	subs   map[chan model.Snapshot]struct{}

	log *slog.Logger
	now func() time.Time
}

// New builds a Sampler and reads the host's static identity. A nil dev runs
// the sampler CPU-only for its whole lifetime.
func New(cfg config.Config, host sensor.Host, dev gpu.Device, gpuID gpu.Identity, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Sampler{
		Interval:   cfg.Interval,
		host:       host,
		identity:   host.Identity(context.Background()),
		diskPath:   cfg.DiskPath,
		topN:       cfg.TopProcesses,
		timeout:    cfg.SensorTimeout,
		gpu:        dev,
		gpuID:      gpuID,
		powerLimit: cfg.GPUPowerLimit,
		cpuHist:    history.New(cfg.HistorySize),
		ramHist:    history.New(cfg.HistorySize),
		gpuHist:    history.New(cfg.HistorySize),
		subs:       make(map[chan model.Snapshot]struct{}),
		log:        logger,
		now:        time.Now,
	}
	s.gpuOn.Store(dev != nil)
	logger.Info("sampler ready",
		"os", s.identity.OS,
		"cpu", s.identity.CPUModel,
		"cores", s.identity.LogicalCores,
		"gpu", dev != nil,
		"history", s.cpuHist.Len(),
	)
	return s
}

// GPUAvailable reports whether GPU telemetry is still enabled.
func (s *Sampler) GPUAvailable() bool { return s.gpuOn.Load() }

// Latest returns the last published Snapshot, or false before the first
// poll completes.
func (s *Sampler) Latest() (model.Snapshot, bool) {
	p := s.latest.Load()
	if p == nil {
		return model.Snapshot{}, false
	}
	return *p, true
}

// Poll runs one full sampling cycle and publishes the result. If a poll is
// already running it returns ErrPollInProgress without touching any state.
// Sensor failures never surface here; they degrade the affected fields.
func (s *Sampler) Poll(ctx context.Context) (model.Snapshot, error) {
	if !s.pollMu.TryLock() {
		return model.Snapshot{}, ErrPollInProgress
	}
	defer s.pollMu.Unlock()

	snap := s.assemble(ctx)
	s.latest.Store(&snap)
	s.publish(snap)
	return snap, nil
}

// Run polls immediately and then on every Interval tick until ctx is done.
// A tick that fires while a poll is still running is dropped.
func (s *Sampler) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	s.tick(ctx)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.tick(ctx)
			}()
		}
	}
}

func (s *Sampler) tick(ctx context.Context) {
	if _, err := s.Poll(ctx); errors.Is(err, ErrPollInProgress) {
		s.log.Debug("previous poll still running, tick dropped")
	}
}

// Stream returns a channel receiving every published Snapshot until ctx is
// done. A slow receiver misses intermediate Snapshots rather than blocking
// the poll loop.
func (s *Sampler) Stream(ctx context.Context) <-chan model.Snapshot {
	ch, cancel := s.Subscribe()
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch
}

// Subscribe registers a receiver for published Snapshots. The returned
// function unsubscribes and closes the channel.
func (s *Sampler) Subscribe() (<-chan model.Snapshot, func()) {
	ch := make(chan model.Snapshot, 1)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, ch)
			close(ch)
			s.subsMu.Unlock()
		})
	}
}

func (s *Sampler) publish(snap model.Snapshot) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Replace the stale pending snapshot with the fresh one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (s *Sampler) assemble(ctx context.Context) model.Snapshot {
	global, perCore, err := s.host.CPUPercent(ctx)
	if err != nil {
		s.sensorFailed("cpu", err)
	}
	ram, err := s.host.VirtualMemory(ctx)
	if err != nil {
		s.sensorFailed("memory", err)
	}
	swap, err := s.host.SwapMemory(ctx)
	if err != nil {
		s.sensorFailed("swap", err)
	}
	disk, err := s.host.DiskUsage(ctx, s.diskPath)
	if err != nil {
		s.sensorFailed("disk", err)
	}

	s.cpuHist.Append(sensor.Percent(global))
	s.ramHist.Append(sensor.Percent(ram.Percent))

	return model.Snapshot{
		Timestamp: s.now(),
		OS:        s.identity.OS,
		CPU:       sensor.CPURecord(s.identity, global, perCore, s.cpuHist.Values()),
		Memory:    sensor.MemoryRecord(ram, swap, s.ramHist.Values()),
		Storage:   sensor.StorageRecord(disk),
		Processes: s.topProcesses(ctx),
		GPU:       s.readGPU(ctx),
	}
}

func (s *Sampler) topProcesses(ctx context.Context) []model.Process {
	procs, err := s.host.Processes(ctx)
	if err != nil {
		s.sensorFailed("processes", err)
	}
	return RankProcesses(procs, s.topN)
}

// readGPU disables GPU telemetry for good when a required metric fails.
// Optional metrics fail on their own and read as zero.
func (s *Sampler) readGPU(ctx context.Context) model.GPUState {
	if !s.gpuOn.Load() {
		return model.GPUUnavailable{}
	}

	core, err := sensor.WithTimeout(ctx, s.timeout, func() (gpu.Core, error) {
		return gpu.ReadCore(s.gpu)
	})
	if err != nil {
		s.gpuOn.Store(false)
		s.log.Warn("gpu telemetry failed, disabled until restart", "error", err)
		return model.GPUUnavailable{}
	}
	s.gpuHist.Append(core.Utilization)

	extras, err := sensor.WithTimeout(ctx, s.timeout, func() (gpu.Extras, error) {
		return gpu.ReadExtras(s.gpu, s.powerLimit)
	})
	if err != nil {
		s.sensorFailed("gpu", err)
	}

	return gpu.Record(s.gpuID, core, extras, s.gpuHist.Values())
}

func (s *Sampler) sensorFailed(name string, err error) {
	s.log.Debug("sensor read failed, using zero values", "sensor", name, "error", err)
}
