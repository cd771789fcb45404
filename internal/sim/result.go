package sim

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// Result summarizes a finished (or aborted) run.
type Result struct {
	RunID              string
	Users              int
	SimTime            time.Duration
	Completed          bool
	PacketSize         uint32
	PacketsDelivered   uint64
	BytesDelivered     uint64
	JammerPackets      uint64
	JammerBytes        uint64
	AvgThroughputKbps  float64
	EffectiveIrsGainDb float64
	Rows               map[string]uint64
	Drops              map[string]uint64
	WriteErrors        int
}

func (s *Simulator) result(completed bool) Result {
	st := s.Status()
	return Result{
		RunID:              s.runID,
		Users:              len(s.reg.ByRole(RoleUE)),
		SimTime:            time.Duration(s.simNanos.Load()),
		Completed:          completed,
		PacketSize:         s.cfg.Traffic.PacketSize,
		PacketsDelivered:   st.PacketsDelivered,
		BytesDelivered:     st.BytesDelivered,
		JammerPackets:      st.JammerPackets,
		JammerBytes:        st.JammerBytes,
		AvgThroughputKbps:  AverageThroughputKbps(st.PacketsDelivered, s.cfg.Traffic.PacketSize, s.cfg.SimTime),
		EffectiveIrsGainDb: s.gainDb,
		Rows:               st.Rows,
		Drops:              st.Drops,
		WriteErrors:        s.writeErrs,
	}
}

// AverageThroughputKbps returns the aggregate application throughput over
// the configured run length.
func AverageThroughputKbps(packets uint64, packetSize uint32, simTimeS float64) float64 {
	if simTimeS <= 0 {
		return 0
	}
	return float64(packets) * float64(packetSize) * 8 / (simTimeS * 1000)
}

var (
	summaryTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	summaryKey   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	summaryWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

const summaryWidth = 72

// WriteSummary prints a human readable run summary. Styling is applied only
// when colorize is set.
func WriteSummary(w io.Writer, res Result, colorize bool) error {
	render := func(st lipgloss.Style, v string) string {
		if !colorize {
			return v
		}
		return st.Render(v)
	}

	var b strings.Builder
	status := "completed"
	if !res.Completed {
		status = "aborted"
	}
	fmt.Fprintf(&b, "%s\n", render(summaryTitle, fmt.Sprintf("Run %s (%s)", res.RunID, status)))
	line := func(k, v string) {
		fmt.Fprintf(&b, "  %s %s\n", render(summaryKey, fmt.Sprintf("%-22s", k)), v)
	}
	line("simulated time", res.SimTime.String())
	line("users", fmt.Sprintf("%d", res.Users))
	line("effective IRS gain", fmt.Sprintf("%.2f dB", res.EffectiveIrsGainDb))
	line("packets received", fmt.Sprintf("%d", res.PacketsDelivered))
	line("bytes received", fmt.Sprintf("%d", res.BytesDelivered))
	line("average throughput", fmt.Sprintf("%.2f kbps", res.AvgThroughputKbps))
	if res.JammerPackets > 0 {
		line("jammer packets", fmt.Sprintf("%d", res.JammerPackets))
		line("jammer bytes", fmt.Sprintf("%d", res.JammerBytes))
	}
	for _, k := range sortedKeys(res.Rows) {
		line("rows "+k, fmt.Sprintf("%d", res.Rows[k]))
	}

	var notes []string
	for _, k := range sortedKeys(res.Drops) {
		if n := res.Drops[k]; n > 0 {
			notes = append(notes, fmt.Sprintf("%d samples dropped as %s.", n, k))
		}
	}
	if res.WriteErrors > 0 {
		notes = append(notes, fmt.Sprintf("%d metric rows could not be written; the CSV output is incomplete.", res.WriteErrors))
	}
	for _, n := range notes {
		fmt.Fprintf(&b, "%s\n", render(summaryWarn, wordwrap.String(n, summaryWidth)))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
