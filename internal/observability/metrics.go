package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mmwave-irs-sim/internal/sim"
)

// RunCollector exports the counters of a running scenario. Values are read
// from a status snapshot at scrape time, so the event loop never touches
// Prometheus types.
type RunCollector struct {
	gatherer prometheus.Gatherer
	status   func() sim.Status

	rows     *prometheus.Desc
	drops    *prometheus.Desc
	packets  *prometheus.Desc
	bytes    *prometheus.Desc
	jammer   *prometheus.Desc
	jamBytes *prometheus.Desc
	evals    *prometheus.Desc
	simTime  *prometheus.Desc
	progress *prometheus.Desc
	running  *prometheus.Desc
}

// NewRunCollector registers a collector for status against reg, defaulting
// to the global Prometheus registry when nil.
func NewRunCollector(reg prometheus.Registerer, status func() sim.Status) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	c := &RunCollector{
		gatherer: gatherer,
		status:   status,
		rows: prometheus.NewDesc("mmwave_rows_written_total",
			"Metric rows accepted by the output sink, labeled by channel.", []string{"channel"}, nil),
		drops: prometheus.NewDesc("mmwave_samples_dropped_total",
			"Samples discarded without being written, labeled by reason.", []string{"reason"}, nil),
		packets: prometheus.NewDesc("mmwave_packets_delivered_total",
			"Application datagrams delivered to users.", nil, nil),
		bytes: prometheus.NewDesc("mmwave_bytes_delivered_total",
			"Application bytes delivered to users.", nil, nil),
		jammer: prometheus.NewDesc("mmwave_jammer_packets_total",
			"Datagrams sent by the jammer.", nil, nil),
		jamBytes: prometheus.NewDesc("mmwave_jammer_bytes_total",
			"Bytes sent by the jammer.", nil, nil),
		evals: prometheus.NewDesc("mmwave_channel_evaluations_total",
			"Path-loss evaluations raised by the channel model.", nil, nil),
		simTime: prometheus.NewDesc("mmwave_sim_time_seconds",
			"Current simulated time.", nil, nil),
		progress: prometheus.NewDesc("mmwave_run_progress_ratio",
			"Simulated time over configured run length.", nil, nil),
		running: prometheus.NewDesc("mmwave_run_active",
			"1 while the event loop is running.", nil, nil),
	}
	if err := reg.Register(c); err != nil {
		return nil, fmt.Errorf("register run collector: %w", err)
	}
	return c, nil
}

// Describe implements prometheus.Collector.
func (c *RunCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{c.rows, c.drops, c.packets, c.bytes, c.jammer, c.jamBytes, c.evals, c.simTime, c.progress, c.running} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *RunCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.status()
	for name, n := range st.Rows {
		ch <- prometheus.MustNewConstMetric(c.rows, prometheus.CounterValue, float64(n), name)
	}
	for reason, n := range st.Drops {
		ch <- prometheus.MustNewConstMetric(c.drops, prometheus.CounterValue, float64(n), reason)
	}
	ch <- prometheus.MustNewConstMetric(c.packets, prometheus.CounterValue, float64(st.PacketsDelivered))
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.CounterValue, float64(st.BytesDelivered))
	ch <- prometheus.MustNewConstMetric(c.jammer, prometheus.CounterValue, float64(st.JammerPackets))
	ch <- prometheus.MustNewConstMetric(c.jamBytes, prometheus.CounterValue, float64(st.JammerBytes))
	ch <- prometheus.MustNewConstMetric(c.evals, prometheus.CounterValue, float64(st.ChannelEvaluations))
	ch <- prometheus.MustNewConstMetric(c.simTime, prometheus.GaugeValue, st.SimTimeS)
	progress := 0.0
	if st.DurationS > 0 {
		progress = st.SimTimeS / st.DurationS
	}
	ch <- prometheus.MustNewConstMetric(c.progress, prometheus.GaugeValue, progress)
	running := 0.0
	if st.Running {
		running = 1
	}
	ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, running)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *RunCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
