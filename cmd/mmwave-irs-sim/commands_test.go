package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mmwave-irs-sim/internal/config"
	"mmwave-irs-sim/internal/measure"
)

func changedSet(names ...string) func(string) bool {
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	return func(n string) bool { return set[n] }
}

func TestApplyOverrides(t *testing.T) {
	simUsers, simTime, simIrs, simJammer = 2, 10, false, false
	simRssiMode, simPrefix = config.RssiRaw, "run"
	t.Cleanup(func() {
		simUsers, simTime, simIrs, simJammer = 5, 1800, true, true
		simRssiMode, simPrefix = config.RssiReference, "mmwave"
	})

	cfg := config.Default()
	applyOverrides(changedSet("users", "irs", "rssi-mode"), &cfg)
	if cfg.NumUsers != 2 || cfg.EnableIrs || cfg.Output.RssiMode != config.RssiRaw {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.SimTime != 1800 || !cfg.Jammer || cfg.Output.Prefix != "mmwave" {
		t.Fatalf("unchanged flags must not override: %+v", cfg)
	}
}

func TestLoadScenarioFallsBackToDefaults(t *testing.T) {
	old := simConfigPath
	simConfigPath = filepath.Join(t.TempDir(), "missing.yaml")
	t.Cleanup(func() { simConfigPath = old })

	cfg, err := loadScenario(changedSet())
	if err != nil {
		t.Fatalf("loadScenario: %v", err)
	}
	if cfg.NumUsers != 5 || cfg.SimTime != 1800 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if _, err := loadScenario(changedSet("config")); err == nil {
		t.Fatalf("expected error for an explicitly requested missing config")
	}
}

func TestLoadScenarioValidatesOverrides(t *testing.T) {
	old := simConfigPath
	simConfigPath = filepath.Join(t.TempDir(), "missing.yaml")
	simElements = 0
	t.Cleanup(func() { simConfigPath, simElements = old, 64 })

	if _, err := loadScenario(changedSet("elements")); err == nil {
		t.Fatalf("expected validation error for zero elements")
	}
}

func TestReplayTarget(t *testing.T) {
	ch, node, err := replayTarget("/out/mmwave_user3_throughput.csv", changedSet())
	if err != nil || ch != measure.Throughput || node != 3 {
		t.Fatalf("got %v %d %v", ch, node, err)
	}
	if _, _, err := replayTarget("data.csv", changedSet()); err == nil {
		t.Fatalf("expected error for file name without channel")
	}

	replayChannel, replayNode = "rssi", 7
	t.Cleanup(func() { replayChannel, replayNode = "", 0 })
	ch, node, err = replayTarget("data.csv", changedSet("channel", "node"))
	if err != nil || ch != measure.PathLoss || node != 7 {
		t.Fatalf("got %v %d %v", ch, node, err)
	}
}

func TestGainCommand(t *testing.T) {
	var buf bytes.Buffer
	gainCmd.SetOut(&buf)
	t.Cleanup(func() { gainCmd.SetOut(nil) })

	if err := gainCmd.RunE(gainCmd, nil); err != nil {
		t.Fatalf("gain: %v", err)
	}
	if !strings.Contains(buf.String(), "336.12 dB") {
		t.Fatalf("unexpected output: %q", buf.String())
	}

	buf.Reset()
	gainDisabled = true
	t.Cleanup(func() { gainDisabled = false })
	if err := gainCmd.RunE(gainCmd, nil); err != nil {
		t.Fatalf("gain: %v", err)
	}
	if !strings.Contains(buf.String(), "0.00 dB") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestSimulateCommandWritesCSV(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	t.Setenv("MQTT_BROKER", "")
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()

	rootCmd.SetArgs([]string{"simulate",
		"--config", filepath.Join("..", "..", "config", "scenario.yaml"),
		"--schema", filepath.Join("..", "..", "schemas", "scenario.cue"),
		"--users", "2", "--sim-time", "1", "--jammer=false",
		"--out-dir", dir, "--prefix", "cli",
	})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("simulate: %v", err)
	}

	for user := 0; user < 2; user++ {
		for _, ch := range measure.Channels {
			data, err := os.ReadFile(filepath.Join(dir, measure.FileName("cli", user, ch)))
			if err != nil {
				t.Fatalf("read output: %v", err)
			}
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) < 2 {
				t.Fatalf("%s user %d: expected rows, got %q", ch, user, data)
			}
		}
	}
	if _, err := os.Stat(filepath.Join(dir, measure.FileName("cli", 2, measure.PathLoss))); err == nil {
		t.Fatalf("unexpected file for a third user")
	}
}
