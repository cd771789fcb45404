// Scenario driver: traffic, channel evaluation and metric collection
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"mmwave-irs-sim/internal/config"
	"mmwave-irs-sim/internal/irs"
	"mmwave-irs-sim/internal/logging"
	"mmwave-irs-sim/internal/measure"
	"mmwave-irs-sim/internal/propagation"
)

const maxLoggedWriteErrors = 10

// Simulator drives one scenario run on a discrete-event engine. All event
// callbacks run on the goroutine calling Run; Status may be called from any
// goroutine.
type Simulator struct {
	runID  string
	cfg    *config.ScenarioConfig
	reg    *Registry
	engine *Engine
	model  *propagation.Model
	sink   *countingSink
	meter  *measure.ThroughputMeter
	router *measure.PathLossRouter
	drops  *measure.Drops
	gain   irs.GainParameters
	gainDb float64

	log       *slog.Logger
	writeErrs int

	started       atomic.Bool
	running       atomic.Bool
	simNanos      atomic.Int64
	packets       atomic.Uint64
	bytes         atomic.Uint64
	jammerPackets atomic.Uint64
	jammerBytes   atomic.Uint64
	channelEvals  atomic.Uint64
}

// NewSimulator prepares a run writing metric rows to sink. The registry must
// hold exactly one UAV; sink decides which node streams are recorded.
func NewSimulator(runID string, cfg *config.ScenarioConfig, reg *Registry, sink measure.Sink) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if n := len(reg.ByRole(RoleUAV)); n != 1 {
		return nil, fmt.Errorf("scenario needs exactly one uav, registry has %d", n)
	}

	gp := cfg.GainParameters()
	gainDb := irs.EffectiveGainDb(gp)
	model := propagation.NewModel(propagation.UMaParams(cfg.Channel.CarrierGHz), cfg.Seed)
	if err := model.SetAttribute(propagation.AttrIrsGain, gainDb); err != nil {
		return nil, err
	}
	if gp.Enabled {
		if err := model.SetAttribute(propagation.AttrKFactor, gp.KFactor); err != nil {
			return nil, err
		}
	}

	drops := &measure.Drops{}
	cs := newCountingSink(sink)
	return &Simulator{
		runID:  runID,
		cfg:    cfg,
		reg:    reg,
		engine: NewEngine(),
		model:  model,
		sink:   cs,
		meter:  measure.NewThroughputMeter(cs, drops),
		router: measure.NewPathLossRouter(cs, drops, PathLossTransform(cfg.Output)),
		drops:  drops,
		gain:   gp,
		gainDb: gainDb,
		log:    slog.Default(),
	}, nil
}

// PathLossTransform returns the rssi value mapping selected by the output
// configuration.
func PathLossTransform(o config.Output) measure.Transform {
	if o.RssiMode == config.RssiReference {
		return measure.ReferenceMinus(o.RssiReferenceDb)
	}
	return measure.RawLoss
}

// RunID returns the identifier of the run.
func (s *Simulator) RunID() string { return s.runID }

// Registry returns the node registry of the run.
func (s *Simulator) Registry() *Registry { return s.reg }

// Drops returns the drop counters of the run.
func (s *Simulator) Drops() *measure.Drops { return s.drops }

// EffectiveGainDb returns the IRS gain pushed into the propagation model.
func (s *Simulator) EffectiveGainDb() float64 { return s.gainDb }

// Run executes the scenario until the configured simulation time or until
// ctx is cancelled. The partial result is returned together with the
// cancellation error.
func (s *Simulator) Run(ctx context.Context) (Result, error) {
	if !s.started.CompareAndSwap(false, true) {
		return Result{}, errors.New("simulator already ran")
	}
	s.log = logging.FromContext(ctx).With("run_id", s.runID)
	dur := s.cfg.Duration()

	s.log.Info("starting scenario",
		"users", s.cfg.NumUsers,
		"sim_time", dur,
		"jammer", s.cfg.Jammer,
		"rssi_mode", s.cfg.Output.RssiMode,
		"irs", s.gain,
	)
	for _, n := range s.reg.Nodes() {
		s.log.Info("node placed", "index", n.Index, "role", n.Role.String(), "name", n.Name, "position", n.Position.String())
	}

	s.schedule()
	s.running.Store(true)
	err := s.engine.Run(ctx, dur)
	s.running.Store(false)
	s.simNanos.Store(int64(s.engine.Now()))

	res := s.result(err == nil)
	if err != nil {
		s.log.Warn("scenario aborted", "sim_time", s.engine.Now(), "err", err)
		return res, err
	}
	s.log.Info("scenario finished",
		"packets_delivered", res.PacketsDelivered,
		"avg_throughput_kbps", res.AvgThroughputKbps,
		"drops", s.drops.Total(),
		"events", s.engine.Processed(),
	)
	return res, nil
}

func (s *Simulator) schedule() {
	uav := s.reg.ByRole(RoleUAV)[0]
	for _, ue := range s.reg.ByRole(RoleUE) {
		s.startFlow(ue)
	}
	s.engine.ScheduleAt(0, func() { s.evaluateChannel(uav) })
	if s.cfg.Jammer {
		s.engine.ScheduleAt(s.cfg.Channel.PathLossInterval, s.jammerBurst)
	}
}

// startFlow schedules a constant bit-rate flow from the UAV to ue. The first
// datagram arrives one interval after start.
func (s *Simulator) startFlow(ue Node) {
	rx := measure.RxContext(ue.Index, 0)
	size := uint64(s.cfg.Traffic.PacketSize)
	interval := s.cfg.Traffic.PacketInterval
	var deliver func()
	deliver = func() {
		s.onDelivery(rx, size)
		s.engine.Schedule(interval, deliver)
	}
	s.engine.ScheduleAt(interval, deliver)
}

func (s *Simulator) onDelivery(rxContext string, size uint64) {
	s.packets.Add(1)
	s.bytes.Add(size)
	if err := s.meter.Observe(rxContext, size, s.engine.Now()); err != nil {
		s.writeFailed(measure.Throughput, err)
	}
}

// evaluateChannel computes the UAV loss towards every other node.
func (s *Simulator) evaluateChannel(uav Node) {
	now := s.engine.Now()
	s.simNanos.Store(int64(now))
	src := Endpoint{Node: uav.Index}
	for _, n := range s.reg.Nodes() {
		if n.Index == uav.Index {
			continue
		}
		s.onPathLoss(src, Endpoint{Node: n.Index}, s.model.LossDb(uav.Position, n.Position))
	}
	s.engine.Schedule(s.cfg.Channel.PathLossInterval, func() { s.evaluateChannel(uav) })
}

func (s *Simulator) onPathLoss(src, rx Endpoint, lossDb float64) {
	s.channelEvals.Add(1)
	idx, ok := s.reg.Resolve(rx)
	if !ok {
		s.drops.Add(measure.DropUnknownNode)
		return
	}
	if err := s.router.Record(idx, lossDb, s.engine.Now()); err != nil {
		s.writeFailed(measure.PathLoss, fmt.Errorf("%d->%d: %w", src.Node, rx.Node, err))
	}
}

// jammerBurst accounts the jammer datagrams and bytes sent during one
// channel interval. They go to a broadcast address without a receiver.
func (s *Simulator) jammerBurst() {
	tick := s.cfg.Channel.PathLossInterval
	per := uint64(tick / s.cfg.Traffic.JammerInterval)
	if per == 0 {
		per = 1
	}
	s.jammerPackets.Add(per)
	s.jammerBytes.Add(per * uint64(s.cfg.Traffic.JammerPacketSize))
	s.engine.Schedule(tick, s.jammerBurst)
}

func (s *Simulator) writeFailed(ch measure.Channel, err error) {
	s.writeErrs++
	if s.writeErrs <= maxLoggedWriteErrors {
		s.log.Error("metric write failed", "channel", ch.String(), "sim_time", s.engine.Now(), "err", err)
	}
	if s.writeErrs == maxLoggedWriteErrors {
		s.log.Error("suppressing further metric write errors")
	}
}

// Status is a point-in-time view of a run, safe to take while it executes.
type Status struct {
	RunID              string            `json:"run_id"`
	Running            bool              `json:"running"`
	SimTimeS           float64           `json:"sim_time_s"`
	DurationS          float64           `json:"duration_s"`
	PacketsDelivered   uint64            `json:"packets_delivered"`
	BytesDelivered     uint64            `json:"bytes_delivered"`
	JammerPackets      uint64            `json:"jammer_packets"`
	JammerBytes        uint64            `json:"jammer_bytes"`
	ChannelEvaluations uint64            `json:"channel_evaluations"`
	Rows               map[string]uint64 `json:"rows"`
	Drops              map[string]uint64 `json:"drops"`
}

// Status returns a snapshot of the run counters.
func (s *Simulator) Status() Status {
	return Status{
		RunID:              s.runID,
		Running:            s.running.Load(),
		SimTimeS:           time.Duration(s.simNanos.Load()).Seconds(),
		DurationS:          s.cfg.Duration().Seconds(),
		PacketsDelivered:   s.packets.Load(),
		BytesDelivered:     s.bytes.Load(),
		JammerPackets:      s.jammerPackets.Load(),
		JammerBytes:        s.jammerBytes.Load(),
		ChannelEvaluations: s.channelEvals.Load(),
		Rows:               s.sink.snapshot(),
		Drops:              s.drops.Snapshot(),
	}
}

// countingSink counts rows accepted by the wrapped sink per channel.
type countingSink struct {
	measure.Sink
	rows []atomic.Uint64
}

func newCountingSink(s measure.Sink) *countingSink {
	return &countingSink{Sink: s, rows: make([]atomic.Uint64, len(measure.Channels))}
}

func (c *countingSink) Append(ch measure.Channel, node measure.NodeIndex, row measure.Row) error {
	if err := c.Sink.Append(ch, node, row); err != nil {
		return err
	}
	if int(ch) >= 0 && int(ch) < len(c.rows) {
		c.rows[ch].Add(1)
	}
	return nil
}

func (c *countingSink) snapshot() map[string]uint64 {
	out := make(map[string]uint64, len(measure.Channels))
	for _, ch := range measure.Channels {
		out[ch.String()] = c.rows[ch].Load()
	}
	return out
}
