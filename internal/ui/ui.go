package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/neurodash/internal/config"
	"github.com/Dicklesworthstone/neurodash/internal/model"
)

// Model renders snapshots published by the sampler.
type Model struct {
	cfg    config.Config
	latest model.Snapshot
	ready  bool
	stream <-chan model.Snapshot
	cancel context.CancelFunc
	width  int
	height int
}

// New returns a dashboard fed by stream. cancel is called when the user quits.
func New(cfg config.Config, stream <-chan model.Snapshot, cancel context.CancelFunc) *Model {
	return &Model{
		cfg:    cfg,
		stream: stream,
		cancel: cancel,
		width:  120,
		height: 40,
	}
}

// Messages
type (
	snapshotMsg  model.Snapshot
	streamEndMsg struct{}
)

func (m *Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.stream
		if !ok {
			return streamEndMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m *Model) Init() tea.Cmd { return m.waitForSnapshot() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			return m, tea.Quit
		}
	case snapshotMsg:
		m.latest = model.Snapshot(msg)
		m.ready = true
		return m, m.waitForSnapshot()
	case streamEndMsg:
		return m, tea.Quit
	}
	return m, nil
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dangerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	sparkRunes  = []rune("▁▂▃▄▅▆▇█")
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

func (m *Model) View() string {
	if !m.ready {
		return subtleStyle.Render("waiting for first sample… (q to quit)")
	}
	s := m.latest
	header := titleStyle.Render("neurodash") + "  " +
		subtleStyle.Render(s.OS+" · "+s.Timestamp.Format("Mon Jan 2 15:04:05 MST 2006"))

	cpuCard := card("CPU "+truncate(s.CPU.Model, 32),
		m.gauge(s.CPU.GlobalUsage, 28)+"\n"+
			sparkline(s.CPU.History, 40)+"\n"+
			subtleStyle.Render(fmt.Sprintf("%d cores / %d threads", s.CPU.PhysicalCount, s.CPU.LogicalCount)))

	memCard := card("Memory",
		m.gauge(s.Memory.RAMPercent, 28)+"\n"+
			sparkline(s.Memory.RAMHistory, 40)+"\n"+
			fmt.Sprintf("%.1f/%.0f GiB | Swap %.1f/%.0f GiB",
				s.Memory.RAMUsedGB, s.Memory.RAMTotalGB,
				s.Memory.SwapUsedGB, s.Memory.SwapTotalGB))

	diskCard := card("Storage "+m.cfg.DiskPath,
		m.gauge(s.Storage.RootPercent, 28)+"\n"+
			fmt.Sprintf("%.1f/%.0f GiB", s.Storage.RootUsedGB, s.Storage.RootTotalGB))

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, cpuCard, memCard, diskCard)
	line2 := lipgloss.JoinHorizontal(lipgloss.Top,
		m.gpuCard(s.GPU),
		card("Top processes", renderTable(s.Processes, m.cfg.TopProcesses)))

	return lipgloss.JoinVertical(lipgloss.Left, header, line1, line2,
		subtleStyle.Render("q to quit"))
}

func (m *Model) gpuCard(state model.GPUState) string {
	switch g := state.(type) {
	case model.GPUAvailable:
		return card("GPU "+truncate(g.Name, 28),
			m.gauge(g.Utilization, 28)+"\n"+
				sparkline(g.History, 40)+"\n"+
				fmt.Sprintf("VRAM %.1f/%.0f GiB (%.1f%%)\n", g.VRAMUsedGB, g.VRAMTotalGB, g.VRAMPercent)+
				fmt.Sprintf("%.0f°C  fan %.0f%%  %.0f/%.0f W\n", g.TempC, g.FanPercent, g.PowerW, g.PowerLimitW)+
				fmt.Sprintf("PCIe TX/RX %.0f / %.0f MB/s  driver %s", g.PCIeTxMB, g.PCIeRxMB, g.Driver))
	default:
		return card("GPU", subtleStyle.Render("not available"))
	}
}

// Helpers

// gauge colours the bar by the configured warning and danger thresholds.
func (m *Model) gauge(pct float64, width int) string {
	bar := gaugeBar(pct, width)
	switch {
	case pct >= m.cfg.DangerThreshold:
		return dangerStyle.Render(bar)
	case pct >= m.cfg.WarningThreshold:
		return warnStyle.Render(bar)
	}
	return okStyle.Render(bar)
}

func gaugeBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

// sparkline renders the newest width values of a 0-100 series.
func sparkline(values []float64, width int) string {
	if len(values) > width {
		values = values[len(values)-width:]
	}
	top := len(sparkRunes) - 1
	out := make([]rune, len(values))
	for i, v := range values {
		idx := int(v / 100 * float64(top))
		if idx < 0 {
			idx = 0
		}
		if idx > top {
			idx = top
		}
		out[i] = sparkRunes[idx]
	}
	return string(out)
}

func card(title, body string) string {
	titleStr := labelStyle.Render(title)
	content := titleStr + "\n" + body
	return cardStyle.Render(content)
}

func renderTable(rows []model.Process, limit int) string {
	n := min(limit, len(rows))
	var b strings.Builder
	fmt.Fprintf(&b, "%-18s %-7s %-10s %6s %6s\n", "cmd", "pid", "user", "cpu", "mem")
	for i := 0; i < n; i++ {
		r := rows[i]
		fmt.Fprintf(&b, "%-18s %-7d %-10s %6.1f %6.1f\n",
			truncate(r.Name, 18), r.PID, truncate(r.Username, 10), r.CPUPercent, r.MemoryPercent)
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// RunTUI starts the Bubble Tea program on the given snapshot stream.
func RunTUI(cfg config.Config, stream <-chan model.Snapshot, cancel context.CancelFunc) error {
	prog := tea.NewProgram(New(cfg, stream, cancel), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
