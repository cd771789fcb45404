package admin

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mmwave-irs-sim/internal/config"
	"mmwave-irs-sim/internal/logging"
	"mmwave-irs-sim/internal/sim"
)

func testStatus() sim.Status {
	return sim.Status{
		RunID:            "run-1",
		Running:          true,
		SimTimeS:         12.5,
		DurationS:        1800,
		PacketsDelivered: 42,
		Rows:             map[string]uint64{"rssi": 3, "throughput": 2},
		Drops:            map[string]uint64{"unknown_node": 1},
	}
}

func TestHandleStatus(t *testing.T) {
	server := NewServer(testStatus, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", resp.StatusCode)
	}
	var got sim.Status
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RunID != "run-1" || got.PacketsDelivered != 42 || got.Rows["throughput"] != 2 {
		t.Errorf("unexpected status: %+v", got)
	}
}

func TestHandleIndex(t *testing.T) {
	server := NewServer(testStatus, nil, nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	body := w.Body.String()
	if !strings.Contains(body, "Run run-1") || !strings.Contains(body, "dropped unknown_node") {
		t.Errorf("unexpected index page:\n%s", body)
	}

	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown path, got %d", w.Code)
	}
}

func TestHandleConfigAndMetrics(t *testing.T) {
	cfg := config.Default()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "mmwave_run_active 1\n")
	})
	server := NewServer(testStatus, &cfg, metrics)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/config", nil))
	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if got["num_users"] != float64(5) {
		t.Errorf("unexpected config: %v", got)
	}
	traffic, _ := got["traffic"].(map[string]any)
	if traffic["packet_interval"] != "10ms" || traffic["packet_size"] != float64(1024) {
		t.Errorf("unexpected traffic section: %v", got["traffic"])
	}

	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "mmwave_run_active") {
		t.Errorf("metrics handler not mounted")
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), logging.Discard()))
	addrCh := make(chan net.Addr, 1)
	errCh := make(chan error, 1)
	server := NewServer(testStatus, nil, nil)
	go func() { errCh <- server.Start(ctx, "127.0.0.1:0", func(a net.Addr) { addrCh <- a }) }()

	var addr net.Addr
	select {
	case addr = <-addrCh:
	case err := <-errCh:
		t.Fatalf("Start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}
	resp, err := http.Get("http://" + addr.String() + "/status")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Start returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
