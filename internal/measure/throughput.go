package measure

import "time"

// ThroughputWindow is the minimum simulated time between two rate samples of
// the same context.
const ThroughputWindow = 100 * time.Millisecond

type accumulator struct {
	bytes     uint64
	lastFlush time.Duration
}

// ThroughputMeter converts packet deliveries into rate samples. Byte counts
// are cumulative for the run and the emitted rate is the average since
// simulation start: bytes*8 / (now * 1e6) Mbps, evaluated as bits*1e3 over
// nanoseconds so equal averages yield identical floats.
type ThroughputMeter struct {
	sink   Sink
	drops  *Drops
	window time.Duration
	acc    map[string]*accumulator
}

// NewThroughputMeter returns a meter writing to sink. drops may be nil.
func NewThroughputMeter(sink Sink, drops *Drops) *ThroughputMeter {
	return &ThroughputMeter{
		sink:   sink,
		drops:  drops,
		window: ThroughputWindow,
		acc:    make(map[string]*accumulator),
	}
}

// Observe accounts size bytes delivered to context at now. A sample is due
// when the context was never flushed or at least one window has elapsed since
// its last flush.
func (m *ThroughputMeter) Observe(context string, size uint64, now time.Duration) error {
	a, ok := m.acc[context]
	if !ok {
		a = &accumulator{}
		m.acc[context] = a
	}
	a.bytes += size

	if a.lastFlush != 0 && now-a.lastFlush < m.window {
		return nil
	}
	// rate divides by absolute time
	if now <= 0 {
		m.drops.Add(DropDegenerateTime)
		return nil
	}
	rate := float64(a.bytes*8*1000) / float64(now)
	a.lastFlush = now

	node, ok := ResolveNodeIndex(context)
	if !ok {
		m.drops.Add(DropMalformedContext)
		return nil
	}
	if !m.sink.Has(Throughput, node) {
		m.drops.Add(DropUnknownNode)
		return nil
	}
	return m.sink.Append(Throughput, node, Row{Time: now.Seconds(), Value: rate})
}

// Bytes returns the cumulative byte count of context.
func (m *ThroughputMeter) Bytes(context string) uint64 {
	if a, ok := m.acc[context]; ok {
		return a.bytes
	}
	return 0
}

// Contexts returns the number of contexts seen so far.
func (m *ThroughputMeter) Contexts() int {
	return len(m.acc)
}
