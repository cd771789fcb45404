package measure

import "time"

// Transform maps a raw loss in dB to the value persisted on the rssi stream.
type Transform func(lossDb float64) float64

// RawLoss persists the loss unchanged.
func RawLoss(lossDb float64) float64 { return lossDb }

// ReferenceMinus persists ref - loss, a received level relative to a fixed
// transmit reference.
func ReferenceMinus(ref float64) Transform {
	return func(lossDb float64) float64 { return ref - lossDb }
}

// PathLossRouter records channel loss samples against the receiving node.
type PathLossRouter struct {
	sink      Sink
	drops     *Drops
	transform Transform
}

// NewPathLossRouter returns a router writing to sink. A nil transform means RawLoss.
func NewPathLossRouter(sink Sink, drops *Drops, transform Transform) *PathLossRouter {
	if transform == nil {
		transform = RawLoss
	}
	return &PathLossRouter{sink: sink, drops: drops, transform: transform}
}

// Record appends a loss sample for rx. Nodes without an open stream are
// skipped silently.
func (r *PathLossRouter) Record(rx NodeIndex, lossDb float64, now time.Duration) error {
	if !r.sink.Has(PathLoss, rx) {
		r.drops.Add(DropUnknownNode)
		return nil
	}
	return r.sink.Append(PathLoss, rx, Row{Time: now.Seconds(), Value: r.transform(lossDb)})
}
