package measure

import "sync/atomic"

// DropReason classifies a sample that was discarded without being written.
type DropReason int

const (
	DropMalformedContext DropReason = iota
	DropUnknownNode
	DropDegenerateTime

	numDropReasons
)

// DropReasons lists every reason in a stable order.
var DropReasons = []DropReason{DropMalformedContext, DropUnknownNode, DropDegenerateTime}

func (r DropReason) String() string {
	switch r {
	case DropMalformedContext:
		return "malformed_context"
	case DropUnknownNode:
		return "unknown_node"
	case DropDegenerateTime:
		return "degenerate_time"
	default:
		return "unknown"
	}
}

// Drops counts discarded samples by reason. Counters are updated by the event
// loop and may be read concurrently. A nil *Drops ignores updates.
type Drops struct {
	counts [numDropReasons]atomic.Uint64
}

// Add records one dropped sample.
func (d *Drops) Add(r DropReason) {
	if d == nil || r < 0 || r >= numDropReasons {
		return
	}
	d.counts[r].Add(1)
}

// Count returns the number of samples dropped for r.
func (d *Drops) Count(r DropReason) uint64 {
	if d == nil || r < 0 || r >= numDropReasons {
		return 0
	}
	return d.counts[r].Load()
}

// Total returns the number of dropped samples over all reasons.
func (d *Drops) Total() uint64 {
	var n uint64
	for _, r := range DropReasons {
		n += d.Count(r)
	}
	return n
}

// Snapshot returns the counters keyed by reason name.
func (d *Drops) Snapshot() map[string]uint64 {
	out := make(map[string]uint64, len(DropReasons))
	for _, r := range DropReasons {
		out[r.String()] = d.Count(r)
	}
	return out
}
