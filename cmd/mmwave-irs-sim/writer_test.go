package main

import (
	"testing"

	"mmwave-irs-sim/internal/config"
	"mmwave-irs-sim/internal/sim"
)

func TestNewWritersPrintJSON(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	t.Setenv("MQTT_BROKER", "")
	ws, tui, err := newWriters(nil, writerOptions{RunID: "r1", Print: printJSON})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	if tui != nil {
		t.Fatalf("unexpected TUI writer")
	}
	if len(ws) != 1 {
		t.Fatalf("expected one writer, got %d", len(ws))
	}
	if _, ok := ws[0].(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", ws[0])
	}
}

func TestNewWritersPrintText(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	t.Setenv("MQTT_BROKER", "")
	cfg := config.Default()
	ws, _, err := newWriters(&cfg, writerOptions{Print: printText})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	if len(ws) != 1 {
		t.Fatalf("expected one writer, got %d", len(ws))
	}
	if _, ok := ws[0].(*sim.StdoutWriter); !ok {
		t.Fatalf("expected *sim.StdoutWriter, got %T", ws[0])
	}
}

func TestNewWritersNoMirrors(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	t.Setenv("MQTT_BROKER", "")
	ws, tui, err := newWriters(nil, writerOptions{})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	if len(ws) != 0 || tui != nil {
		t.Fatalf("expected no mirrors, got %d (tui %v)", len(ws), tui != nil)
	}
}

func TestNewWritersNoDBSkipsGreptime(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "localhost:4001")
	t.Setenv("MQTT_BROKER", "")
	ws, _, err := newWriters(nil, writerOptions{Print: printJSON, NoDB: true})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	for _, w := range ws {
		if _, ok := w.(*sim.GreptimeWriter); ok {
			t.Fatalf("greptime writer created despite NoDB")
		}
	}
}

func TestNewWritersRejectsBadOptions(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	t.Setenv("MQTT_BROKER", "")
	if _, _, err := newWriters(nil, writerOptions{Print: "xml"}); err == nil {
		t.Fatalf("expected error for unknown print mode")
	}
	if _, _, err := newWriters(nil, writerOptions{Print: printJSON, TUI: true}); err == nil {
		t.Fatalf("expected error combining --tui and --print")
	}
}
