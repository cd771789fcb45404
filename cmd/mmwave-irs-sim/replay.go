package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mmwave-irs-sim/internal/logging"
	"mmwave-irs-sim/internal/measure"
	"mmwave-irs-sim/internal/sim"
)

var (
	replayInputs     []string
	replayChannel    string
	replayNode       int
	replaySpeed      float64
	replayPrint      string
	replayNoDB       bool
	replayRunID      string
	replayMQTTBroker string
	replayMQTTTopic  string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay recorded rssi/throughput CSV files",
	Long:  "replay feeds Time,Value rows from CSV files written by simulate back into STDOUT, GreptimeDB or MQTT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New()
		runID := replayRunID
		if runID == "" {
			runID = uuid.NewString()
		}

		ws, _, err := newWriters(nil, writerOptions{
			RunID:      runID,
			Print:      replayPrint,
			NoDB:       replayNoDB,
			MQTTBroker: replayMQTTBroker,
			MQTTTopic:  replayMQTTTopic,
			Start:      time.Now(),
		})
		if err != nil {
			return err
		}
		if len(ws) == 0 {
			ws = append(ws, sim.NewJSONStdoutWriter(runID))
		}
		writer := sim.NewMultiWriter(nil, log, ws...)
		defer writer.Close()

		for _, in := range replayInputs {
			ch, node, err := replayTarget(in, cmd.Flags().Changed)
			if err != nil {
				return err
			}
			n, err := sim.ReplayCSVFile(in, ch, node, writer, replaySpeed)
			if err != nil {
				return fmt.Errorf("replay %s: %w", in, err)
			}
			log.Info("replayed file", "input", in, "channel", ch.String(), "node", node, "rows", n)
		}
		return nil
	},
}

// replayTarget derives channel and node of a CSV file from its name unless
// overridden on the command line. Users occupy the first node indices, so the
// user number doubles as node index.
func replayTarget(path string, changed func(string) bool) (measure.Channel, measure.NodeIndex, error) {
	_, user, ch, ok := measure.ParseFileName(filepath.Base(path))
	if changed("channel") {
		c, err := measure.ParseChannel(replayChannel)
		if err != nil {
			return 0, 0, err
		}
		ch = c
	} else if !ok {
		return 0, 0, fmt.Errorf("%s: cannot infer channel from file name, use --channel", path)
	}
	if changed("node") {
		if replayNode < 0 {
			return 0, 0, fmt.Errorf("--node must not be negative")
		}
		user = replayNode
	} else if !ok {
		return 0, 0, fmt.Errorf("%s: cannot infer node from file name, use --node", path)
	}
	return ch, measure.NodeIndex(user), nil
}

func init() {
	replayCmd.Flags().StringSliceVar(&replayInputs, "input", nil, "CSV files to replay (repeatable)")
	replayCmd.Flags().StringVar(&replayChannel, "channel", "", "Channel of the input (rssi or throughput); inferred from the file name by default")
	replayCmd.Flags().IntVar(&replayNode, "node", 0, "Node index of the input; inferred from the file name by default")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 replays without delay)")
	replayCmd.Flags().StringVar(&replayPrint, "print", printJSON, "Mirror samples to STDOUT as \"json\" or \"text\" (empty disables)")
	replayCmd.Flags().BoolVar(&replayNoDB, "no-db", false, "Do not write to GreptimeDB even if GREPTIMEDB_ENDPOINT is set")
	replayCmd.Flags().StringVar(&replayRunID, "run-id", "", "Run id attached to replayed samples (random by default)")
	replayCmd.Flags().StringVar(&replayMQTTBroker, "mqtt-broker", "", "MQTT broker URL (defaults to MQTT_BROKER)")
	replayCmd.Flags().StringVar(&replayMQTTTopic, "mqtt-topic", "mmwave", "MQTT topic prefix")
	replayCmd.MarkFlagRequired("input")
}
