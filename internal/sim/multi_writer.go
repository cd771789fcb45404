package sim

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"mmwave-irs-sim/internal/measure"
)

// SampleWriter is an interface to support different sample mirrors.
type SampleWriter interface {
	WriteSample(measure.Sample) error
}

// Optional: mirrors may accept samples in batches
type batchSampleWriter interface {
	WriteSamples([]measure.Sample) error
}

// maxLoggedMirrorErrors limits mirror failure logging per writer.
const maxLoggedMirrorErrors = 10

// MultiWriter implements measure.Sink on top of a primary sink. The primary
// decides which streams are open; every row it accepts is copied to the
// mirrors. Mirror failures are logged and counted but never returned.
type MultiWriter struct {
	primary measure.Sink
	mirrors []SampleWriter
	log     *slog.Logger
	failed  []atomic.Uint64
}

// NewMultiWriter creates a new MultiWriter. nil mirrors are skipped. primary
// may be nil when rows only arrive through WriteSample(s).
func NewMultiWriter(primary measure.Sink, log *slog.Logger, mirrors ...SampleWriter) *MultiWriter {
	if log == nil {
		log = slog.Default()
	}
	mw := &MultiWriter{primary: primary, log: log}
	for _, m := range mirrors {
		if m != nil {
			mw.mirrors = append(mw.mirrors, m)
		}
	}
	mw.failed = make([]atomic.Uint64, len(mw.mirrors))
	return mw
}

// Has reports whether the primary sink has the stream open.
func (mw *MultiWriter) Has(ch measure.Channel, node measure.NodeIndex) bool {
	return mw.primary.Has(ch, node)
}

// Append writes the row to the primary sink and, on success, to all mirrors.
func (mw *MultiWriter) Append(ch measure.Channel, node measure.NodeIndex, row measure.Row) error {
	if err := mw.primary.Append(ch, node, row); err != nil {
		return err
	}
	s := measure.Sample{Channel: ch, Node: node, Row: row}
	for i, m := range mw.mirrors {
		if err := m.WriteSample(s); err != nil {
			mw.mirrorFailed(i, err)
		}
	}
	return nil
}

// WriteSample sends a sample to all mirrors, bypassing the primary sink.
func (mw *MultiWriter) WriteSample(s measure.Sample) error {
	return mw.WriteSamples([]measure.Sample{s})
}

// WriteSamples sends samples to all mirrors, using batch mode if supported.
func (mw *MultiWriter) WriteSamples(samples []measure.Sample) error {
	var joined error
	for i, m := range mw.mirrors {
		if bw, ok := m.(batchSampleWriter); ok {
			if err := bw.WriteSamples(samples); err != nil {
				mw.mirrorFailed(i, err)
				joined = errors.Join(joined, err)
			}
			continue
		}
		for _, s := range samples {
			if err := m.WriteSample(s); err != nil {
				mw.mirrorFailed(i, err)
				joined = errors.Join(joined, err)
				break
			}
		}
	}
	return joined
}

func (mw *MultiWriter) mirrorFailed(i int, err error) {
	n := mw.failed[i].Add(1)
	if n <= maxLoggedMirrorErrors {
		mw.log.Warn("mirror write failed", "mirror", i, "err", err)
	}
	if n == maxLoggedMirrorErrors {
		mw.log.Warn("suppressing further mirror errors", "mirror", i)
	}
}

// MirrorFailures returns the number of failed mirror writes.
func (mw *MultiWriter) MirrorFailures() uint64 {
	var total uint64
	for i := range mw.failed {
		total += mw.failed[i].Load()
	}
	return total
}

// Close closes every mirror implementing io.Closer and returns the first
// error. The primary sink is owned by the caller.
func (mw *MultiWriter) Close() error {
	var first error
	for _, m := range mw.mirrors {
		if c, ok := m.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
