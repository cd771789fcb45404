package sim

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"mmwave-irs-sim/internal/measure"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// nodeStats is the latest state of one node's streams.
type nodeStats struct {
	Node       measure.NodeIndex
	PathLoss   float64
	Throughput float64
	LastTime   float64
	Rows       uint64
}

// snapshotMsg carries the per-node table and run status.
type snapshotMsg struct {
	nodes     []nodeStats
	status    Status
	hasStatus bool
}

// adminMsg reports admin server status.
type adminMsg struct{ active bool }

const defaultTUIRefresh = 200 * time.Millisecond

// TUIWriter renders the latest sample per node using a bubbletea TUI.
// Samples are aggregated and pushed to the program at most once per refresh
// interval of wall time.
type TUIWriter struct {
	program    teaProgram
	mu         sync.Mutex
	latest     map[measure.NodeIndex]*nodeStats
	status     func() Status
	now        func() time.Time
	lastSent   time.Time
	refresh    time.Duration
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. Quitting
// the program interrupts the process so the run shuts down cleanly.
func NewTUIWriter(title string) *TUIWriter {
	w := &TUIWriter{
		latest:  make(map[measure.NodeIndex]*nodeStats),
		now:     time.Now,
		refresh: defaultTUIRefresh,
		done:    make(chan struct{}),
	}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(title), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// SetStatusSource attaches the run status shown in the header.
func (w *TUIWriter) SetStatusSource(fn func() Status) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = fn
}

// SetAdminStatus reports whether the admin server is listening.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// WriteSample implements SampleWriter.
func (w *TUIWriter) WriteSample(s measure.Sample) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.latest[s.Node]
	if !ok {
		st = &nodeStats{Node: s.Node}
		w.latest[s.Node] = st
	}
	switch s.Channel {
	case measure.PathLoss:
		st.PathLoss = s.Value
	case measure.Throughput:
		st.Throughput = s.Value
	}
	st.LastTime = s.Time
	st.Rows++

	if now := w.now(); now.Sub(w.lastSent) >= w.refresh {
		w.lastSent = now
		w.sendLocked()
	}
	return nil
}

func (w *TUIWriter) sendLocked() {
	msg := snapshotMsg{nodes: make([]nodeStats, 0, len(w.latest))}
	for _, st := range w.latest {
		msg.nodes = append(msg.nodes, *st)
	}
	sort.Slice(msg.nodes, func(i, j int) bool { return msg.nodes[i].Node < msg.nodes[j].Node })
	if w.status != nil {
		msg.status = w.status()
		msg.hasStatus = true
	}
	w.program.Send(msg)
}

// Close pushes the final state and stops the program.
func (w *TUIWriter) Close() error {
	w.mu.Lock()
	w.sendLocked()
	w.mu.Unlock()
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	title     string
	table     table.Model
	nodes     []nodeStats
	status    Status
	hasStatus bool
	admin     bool
	width     int
}

var (
	tuiTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	tuiDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func newTUIModel(title string) tuiModel {
	cols := []table.Column{
		{Title: "Node", Width: 6},
		{Title: "Time (s)", Width: 10},
		{Title: "PathLoss (dB)", Width: 14},
		{Title: "Throughput (Mbps)", Width: 18},
		{Title: "Rows", Width: 10},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(8))
	return tuiModel{title: title, table: t}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetWidth(msg.Width)
		if h := msg.Height - 6; h > 2 {
			m.table.SetHeight(h)
		}
	case snapshotMsg:
		m.nodes = msg.nodes
		if msg.hasStatus {
			m.status = msg.status
			m.hasStatus = true
		}
		rows := make([]table.Row, 0, len(m.nodes))
		for _, n := range m.nodes {
			rows = append(rows, table.Row{
				fmt.Sprintf("%d", n.Node),
				fmt.Sprintf("%.2f", n.LastTime),
				fmt.Sprintf("%.2f", n.PathLoss),
				fmt.Sprintf("%.4f", n.Throughput),
				fmt.Sprintf("%d", n.Rows),
			})
		}
		m.table.SetRows(rows)
	case adminMsg:
		m.admin = msg.active
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m tuiModel) View() string {
	return strings.Join([]string{m.renderHeader(), m.table.View(), m.renderBottom()}, "\n")
}

func (m tuiModel) renderHeader() string {
	header := tuiTitle.Render(m.title)
	if m.hasStatus {
		pct := 0.0
		if m.status.DurationS > 0 {
			pct = 100 * m.status.SimTimeS / m.status.DurationS
		}
		header += fmt.Sprintf("  sim %.1fs / %.0fs (%.0f%%)  packets %d", m.status.SimTimeS, m.status.DurationS, pct, m.status.PacketsDelivered)
	}
	return header
}

func (m tuiModel) renderBottom() string {
	adminColor := lipgloss.Color("9")
	if m.admin {
		adminColor = lipgloss.Color("10")
	}
	indicator := lipgloss.NewStyle().Foreground(adminColor).Render("●")
	line := fmt.Sprintf("Admin %s | ↑/↓ scroll | q quit", indicator)
	if m.hasStatus {
		var drops uint64
		for _, n := range m.status.Drops {
			drops += n
		}
		line = fmt.Sprintf("rows rssi=%d throughput=%d drops=%d | %s", m.status.Rows["rssi"], m.status.Rows["throughput"], drops, line)
	}
	if m.width > 0 {
		line = wordwrap.String(line, m.width)
	}
	return tuiDim.Render(line)
}
