// Writer implementation printing samples to STDOUT
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"

	"mmwave-irs-sim/internal/config"
	"mmwave-irs-sim/internal/measure"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

var nodePalette = []string{colorGreen, colorYellow, colorBlue, colorMagenta, colorCyan, colorRed}

// StdoutWriter prints one human readable line per sample. The scenario
// overview is printed before the first sample.
type StdoutWriter struct {
	cfg      *config.ScenarioConfig
	out      io.Writer
	colorize bool
	once     sync.Once
}

// NewStdoutWriter creates a StdoutWriter writing to os.Stdout.
func NewStdoutWriter(cfg *config.ScenarioConfig, colorize bool) *StdoutWriter {
	return &StdoutWriter{cfg: cfg, out: os.Stdout, colorize: colorize}
}

func (w *StdoutWriter) color(c, s string) string {
	if !w.colorize {
		return s
	}
	return c + s + colorReset
}

func (w *StdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	fmt.Fprintln(w.out, "Scenario Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Users:\t%d\n", w.cfg.NumUsers)
	fmt.Fprintf(tw, "Simulated Time (s):\t%g\n", w.cfg.SimTime)
	fmt.Fprintf(tw, "IRS Enabled:\t%t\n", w.cfg.EnableIrs)
	fmt.Fprintf(tw, "IRS Gain (dB):\t%g\n", w.cfg.IrsGain)
	fmt.Fprintf(tw, "Elements per UE:\t%d\n", w.cfg.ElementsPerUE)
	fmt.Fprintf(tw, "K-Factor:\t%g\n", w.cfg.KFactor)
	fmt.Fprintf(tw, "IRS Position:\t%s\n", w.cfg.IrsPosition)
	fmt.Fprintf(tw, "Jammer:\t%t\n", w.cfg.Jammer)
	fmt.Fprintf(tw, "RSSI Mode:\t%s\n", w.cfg.Output.RssiMode)
	tw.Flush()
	fmt.Fprintln(w.out)
}

// WriteSample outputs a single sample.
func (w *StdoutWriter) WriteSample(s measure.Sample) error {
	w.once.Do(w.printOverview)
	nodeColor := nodePalette[int(s.Node)%len(nodePalette)]
	unit := "dB"
	if s.Channel == measure.Throughput {
		unit = "Mbps"
	}
	_, err := fmt.Fprintf(w.out, "%s %s %s %s\n",
		w.color(colorGray, fmt.Sprintf("t=%.3fs", s.Time)),
		w.color(nodeColor, fmt.Sprintf("node=%d", s.Node)),
		w.color(colorBlue, fmt.Sprintf("%-10s", s.Channel)),
		fmt.Sprintf("%.4f %s", s.Value, unit),
	)
	return err
}
