package sim

import (
	"errors"
	"testing"

	"mmwave-irs-sim/internal/logging"
	"mmwave-irs-sim/internal/measure"
)

type collectWriter struct {
	samples []measure.Sample
	err     error
	closed  bool
}

func (c *collectWriter) WriteSample(s measure.Sample) error {
	if c.err != nil {
		return c.err
	}
	c.samples = append(c.samples, s)
	return nil
}

func (c *collectWriter) Close() error {
	c.closed = true
	return nil
}

// gateSink accepts rows for a fixed set of nodes.
type gateSink struct {
	open map[measure.NodeIndex]bool
	rows []measure.Sample
	err  error
}

func newGateSink(nodes ...measure.NodeIndex) *gateSink {
	g := &gateSink{open: map[measure.NodeIndex]bool{}}
	for _, n := range nodes {
		g.open[n] = true
	}
	return g
}

func (g *gateSink) Has(_ measure.Channel, n measure.NodeIndex) bool { return g.open[n] }

func (g *gateSink) Append(ch measure.Channel, n measure.NodeIndex, r measure.Row) error {
	if g.err != nil {
		return g.err
	}
	g.rows = append(g.rows, measure.Sample{Channel: ch, Node: n, Row: r})
	return nil
}

func TestMultiWriterMirrorsAcceptedRows(t *testing.T) {
	primary := newGateSink(1)
	a, b := &collectWriter{}, &collectWriter{}
	mw := NewMultiWriter(primary, logging.Discard(), a, nil, b)

	if !mw.Has(measure.PathLoss, 1) || mw.Has(measure.PathLoss, 2) {
		t.Fatalf("Has must follow the primary sink")
	}
	row := measure.Row{Time: 0.1, Value: 3}
	if err := mw.Append(measure.Throughput, 1, row); err != nil {
		t.Fatalf("Append: %v", err)
	}
	for _, w := range []*collectWriter{a, b} {
		if len(w.samples) != 1 || w.samples[0].Node != 1 || w.samples[0].Channel != measure.Throughput || w.samples[0].Row != row {
			t.Fatalf("mirror got %+v", w.samples)
		}
	}

	primary.err = errors.New("disk full")
	if err := mw.Append(measure.Throughput, 1, row); err == nil {
		t.Fatalf("expected primary error")
	}
	if len(a.samples) != 1 {
		t.Fatalf("rejected row mirrored")
	}

	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Fatalf("mirrors not closed")
	}
}

func TestMultiWriterMirrorErrorsSwallowed(t *testing.T) {
	primary := newGateSink(0)
	bad := &collectWriter{err: errors.New("broker down")}
	good := &collectWriter{}
	mw := NewMultiWriter(primary, logging.Discard(), bad, good)

	for i := 0; i < 20; i++ {
		if err := mw.Append(measure.PathLoss, 0, measure.Row{Time: float64(i)}); err != nil {
			t.Fatalf("mirror failure leaked: %v", err)
		}
	}
	if len(primary.rows) != 20 || len(good.samples) != 20 {
		t.Fatalf("rows=%d good=%d", len(primary.rows), len(good.samples))
	}
	if mw.MirrorFailures() != 20 {
		t.Fatalf("failures = %d", mw.MirrorFailures())
	}
}

func TestMultiWriterWriteSamples(t *testing.T) {
	a := &collectWriter{}
	mw := NewMultiWriter(newGateSink(), nil, a)
	samples := []measure.Sample{{Node: 1}, {Node: 2}}
	if err := mw.WriteSamples(samples); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}
	if len(a.samples) != 2 {
		t.Fatalf("got %d samples", len(a.samples))
	}
	a.err = errors.New("nope")
	if err := mw.WriteSample(measure.Sample{}); err == nil {
		t.Fatalf("expected error from direct mirror write")
	}
}
