package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"mmwave-irs-sim/internal/config"
	"mmwave-irs-sim/internal/sim"
)

const (
	printNone = ""
	printJSON = "json"
	printText = "text"
)

// writerOptions selects the sample mirrors of a run.
type writerOptions struct {
	RunID      string
	Print      string
	NoDB       bool
	MQTTBroker string
	MQTTTopic  string
	MQTTQoS    byte
	TUI        bool
	Colorize   bool
	Start      time.Time
}

// newWriters sets up sample mirrors based on flags and env vars. The TUI
// writer is also returned on its own so callers can attach a status source;
// it is nil unless requested.
func newWriters(cfg *config.ScenarioConfig, opts writerOptions) ([]sim.SampleWriter, *sim.TUIWriter, error) {
	if opts.TUI && opts.Print != printNone {
		return nil, nil, errors.New("--tui and --print cannot be combined")
	}

	var writers []sim.SampleWriter
	fail := func(err error) ([]sim.SampleWriter, *sim.TUIWriter, error) {
		for _, w := range writers {
			if c, ok := w.(io.Closer); ok {
				_ = c.Close()
			}
		}
		return nil, nil, err
	}

	switch opts.Print {
	case printNone:
	case printJSON:
		writers = append(writers, sim.NewJSONStdoutWriter(opts.RunID))
	case printText:
		writers = append(writers, sim.NewStdoutWriter(cfg, opts.Colorize))
	default:
		return nil, nil, fmt.Errorf("unknown print mode %q (want %q or %q)", opts.Print, printJSON, printText)
	}

	if endpoint := os.Getenv("GREPTIMEDB_ENDPOINT"); endpoint != "" && !opts.NoDB {
		database := os.Getenv("GREPTIMEDB_DATABASE")
		if database == "" {
			database = "public"
		}
		gw, err := sim.NewGreptimeWriter(endpoint, database, opts.RunID, opts.Start)
		if err != nil {
			return fail(err)
		}
		writers = append(writers, gw)
	}

	broker := opts.MQTTBroker
	if broker == "" {
		broker = os.Getenv("MQTT_BROKER")
	}
	if broker != "" {
		mw, err := sim.NewMQTTWriter(broker, opts.MQTTTopic, opts.RunID, opts.MQTTQoS)
		if err != nil {
			return fail(err)
		}
		writers = append(writers, mw)
	}

	var tui *sim.TUIWriter
	if opts.TUI {
		tui = sim.NewTUIWriter("mmWave IRS run " + opts.RunID)
		writers = append(writers, tui)
	}
	return writers, tui, nil
}
