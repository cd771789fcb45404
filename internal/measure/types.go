// Package measure turns channel and application delivery events into
// per-node CSV time series.
package measure

import (
	"fmt"
	"strings"
)

// NodeIndex identifies a simulated node. It is assigned when the node is
// created and stays stable for the whole run.
type NodeIndex uint32

// Channel selects one of the per-node metric streams.
type Channel int

const (
	PathLoss Channel = iota
	Throughput

	numChannels
)

// Channels lists every metric channel in file order.
var Channels = []Channel{PathLoss, Throughput}

func (c Channel) String() string {
	switch c {
	case PathLoss:
		return "rssi"
	case Throughput:
		return "throughput"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// Header returns the CSV header row for the channel.
func (c Channel) Header() []string {
	switch c {
	case PathLoss:
		return []string{"Time", "PathLoss_dB"}
	case Throughput:
		return []string{"Time", "Throughput_Mbps"}
	default:
		return []string{"Time", "Value"}
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Channel) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Channel) UnmarshalText(b []byte) error {
	ch, err := ParseChannel(string(b))
	if err != nil {
		return err
	}
	*c = ch
	return nil
}

// ParseChannel maps a channel name ("rssi", "pathloss", "throughput") to a Channel.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rssi", "pathloss", "path_loss":
		return PathLoss, nil
	case "throughput":
		return Throughput, nil
	}
	return 0, fmt.Errorf("unknown metric channel %q", s)
}

// Row is one persisted (time, value) pair. Time is in simulated seconds.
type Row struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// Sample is a Row tagged with the stream it belongs to.
type Sample struct {
	Channel Channel   `json:"channel"`
	Node    NodeIndex `json:"node"`
	Row
}

// Sink receives rows for per-node streams. Has reports whether the stream is
// registered and open; rows for other streams are never appended.
type Sink interface {
	Has(ch Channel, node NodeIndex) bool
	Append(ch Channel, node NodeIndex, row Row) error
}
