package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mmwave-irs-sim/internal/admin"
	"mmwave-irs-sim/internal/config"
	"mmwave-irs-sim/internal/logging"
	"mmwave-irs-sim/internal/measure"
	"mmwave-irs-sim/internal/observability"
	"mmwave-irs-sim/internal/sim"
)

var (
	simConfigPath string
	simSchemaPath string
	simPrint      string
	simNoDB       bool
	simTUI        bool
	simAdminAddr  string
	simMQTTBroker string
	simMQTTTopic  string
	simMQTTQoS    uint8

	simUsers     uint32
	simTime      float64
	simIrs       bool
	simIrsGain   float64
	simElements  uint32
	simKFactor   float64
	simJammer    bool
	simSeed      int64
	simOutDir    string
	simPrefix    string
	simRssiMode  string
	simRssiRefDb float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a UAV/IRS scenario",
	Long:  "simulate runs the scenario in simulated time and writes per-user rssi and throughput CSV files, optionally mirroring samples to stdout, GreptimeDB, MQTT or a terminal UI.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadScenario(cmd.Flags().Changed)
		if err != nil {
			return err
		}

		log, closeLog, err := newRunLogger(cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		runID := uuid.NewString()
		reg := sim.NewScenarioRegistry(cfg)
		files := measure.NewFileSink(cfg.Output.Dir, cfg.Output.Prefix, cfg.NodeCount())
		defer files.Close()
		if err := sim.OpenUserStreams(files, reg); err != nil {
			return err
		}

		summaryOut := os.Stdout
		if simPrint == printJSON {
			summaryOut = os.Stderr
		}
		colorize := term.IsTerminal(int(summaryOut.Fd()))

		mirrors, tui, err := newWriters(cfg, writerOptions{
			RunID:      runID,
			Print:      simPrint,
			NoDB:       simNoDB,
			MQTTBroker: simMQTTBroker,
			MQTTTopic:  simMQTTTopic,
			MQTTQoS:    simMQTTQoS,
			TUI:        simTUI,
			Colorize:   term.IsTerminal(int(os.Stdout.Fd())),
			Start:      time.Now(),
		})
		if err != nil {
			return err
		}
		writer := sim.NewMultiWriter(files, log, mirrors...)

		simulator, err := sim.NewSimulator(runID, cfg, reg, writer)
		if err != nil {
			_ = writer.Close()
			return err
		}
		if tui != nil {
			tui.SetStatusSource(simulator.Status)
		}
		if simAdminAddr != "" {
			if err := startAdmin(ctx, simAdminAddr, cfg, simulator, tui); err != nil {
				_ = writer.Close()
				return err
			}
		}

		res, runErr := simulator.Run(ctx)
		if err := writer.Close(); err != nil {
			log.Warn("closing sample mirrors", "err", err)
		}
		if err := files.Close(); err != nil {
			return err
		}
		if failed := writer.MirrorFailures(); failed > 0 {
			log.Warn("mirror writes failed", "count", failed)
		}
		if err := sim.WriteSummary(summaryOut, res, colorize); err != nil {
			return err
		}
		if errors.Is(runErr, context.Canceled) {
			log.Info("run interrupted", "run_id", runID)
			return nil
		}
		return runErr
	},
}

// loadScenario reads the scenario file and applies command line overrides.
// A missing default scenario file falls back to the built-in defaults.
func loadScenario(changed func(string) bool) (*config.ScenarioConfig, error) {
	var cfg *config.ScenarioConfig
	if _, err := os.Stat(simConfigPath); errors.Is(err, fs.ErrNotExist) && !changed("config") {
		d := config.Default()
		cfg = &d
	} else {
		schema := simSchemaPath
		if _, err := os.Stat(schema); errors.Is(err, fs.ErrNotExist) && !changed("schema") {
			schema = ""
		}
		cfg, err = config.Load(simConfigPath, schema)
		if err != nil {
			return nil, err
		}
	}
	applyOverrides(changed, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides copies every flag the user set into cfg.
func applyOverrides(changed func(string) bool, cfg *config.ScenarioConfig) {
	if changed("users") {
		cfg.NumUsers = simUsers
	}
	if changed("sim-time") {
		cfg.SimTime = simTime
	}
	if changed("irs") {
		cfg.EnableIrs = simIrs
	}
	if changed("irs-gain") {
		cfg.IrsGain = simIrsGain
	}
	if changed("elements") {
		cfg.ElementsPerUE = simElements
	}
	if changed("k-factor") {
		cfg.KFactor = simKFactor
	}
	if changed("jammer") {
		cfg.Jammer = simJammer
	}
	if changed("seed") {
		cfg.Seed = simSeed
	}
	if changed("out-dir") {
		cfg.Output.Dir = simOutDir
	}
	if changed("prefix") {
		cfg.Output.Prefix = simPrefix
	}
	if changed("rssi-mode") {
		cfg.Output.RssiMode = simRssiMode
	}
	if changed("rssi-ref") {
		cfg.Output.RssiReferenceDb = simRssiRefDb
	}
}

// newRunLogger logs to STDERR, or to <prefix>.log in the output directory
// while the terminal UI owns the screen.
func newRunLogger(cfg *config.ScenarioConfig) (*slog.Logger, func(), error) {
	if !simTUI {
		return logging.New(), func() {}, nil
	}
	if cfg.Output.Dir != "" {
		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.OpenFile(filepath.Join(cfg.Output.Dir, cfg.Output.Prefix+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return logging.NewWriter(f, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")), func() { _ = f.Close() }, nil
}

func startAdmin(ctx context.Context, addr string, cfg *config.ScenarioConfig, s *sim.Simulator, tui *sim.TUIWriter) error {
	collector, err := observability.NewRunCollector(prometheus.NewRegistry(), s.Status)
	if err != nil {
		return err
	}
	srv := admin.NewServer(s.Status, cfg, collector.Handler())
	log := logging.FromContext(ctx)
	go func() {
		ready := func(net.Addr) {
			if tui != nil {
				tui.SetAdminStatus(true)
			}
		}
		if err := srv.Start(ctx, addr, ready); err != nil {
			log.Error("admin server failed", "addr", addr, "err", err)
		}
		if tui != nil {
			tui.SetAdminStatus(false)
		}
	}()
	return nil
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simConfigPath, "config", "config/scenario.yaml", "Path to scenario configuration YAML")
	f.StringVar(&simSchemaPath, "schema", "schemas/scenario.cue", "Path to CUE schema file")
	f.StringVar(&simPrint, "print", "", "Mirror samples to STDOUT as \"json\" or \"text\"")
	f.BoolVar(&simNoDB, "no-db", false, "Do not mirror samples to GreptimeDB even if GREPTIMEDB_ENDPOINT is set")
	f.BoolVar(&simTUI, "tui", false, "Show a live terminal UI")
	f.StringVar(&simAdminAddr, "admin", "", "Serve status and Prometheus metrics on this address (e.g. :8080)")
	f.StringVar(&simMQTTBroker, "mqtt-broker", "", "MQTT broker URL (defaults to MQTT_BROKER)")
	f.StringVar(&simMQTTTopic, "mqtt-topic", "mmwave", "MQTT topic prefix")
	f.Uint8Var(&simMQTTQoS, "mqtt-qos", 0, "MQTT publish QoS (0, 1 or 2)")

	f.Uint32Var(&simUsers, "users", 5, "Number of ground users")
	f.Float64Var(&simTime, "sim-time", 1800, "Simulated time in seconds")
	f.BoolVar(&simIrs, "irs", true, "Enable the intelligent reflecting surface")
	f.Float64Var(&simIrsGain, "irs-gain", 300, "IRS base gain in dB")
	f.Uint32Var(&simElements, "elements", 64, "IRS elements per user")
	f.Float64Var(&simKFactor, "k-factor", 3, "Rician K-factor")
	f.BoolVar(&simJammer, "jammer", true, "Add a jamming node")
	f.Int64Var(&simSeed, "seed", 1, "Random seed for fading")
	f.StringVar(&simOutDir, "out-dir", ".", "Directory for CSV output")
	f.StringVar(&simPrefix, "prefix", "mmwave", "CSV file name prefix")
	f.StringVar(&simRssiMode, "rssi-mode", config.RssiReference, "rssi column content: \"raw\" loss or \"reference\" minus loss")
	f.Float64Var(&simRssiRefDb, "rssi-ref", 10, "Reference level in dB for --rssi-mode=reference")
}
