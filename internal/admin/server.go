package admin

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"mmwave-irs-sim/internal/config"
	"mmwave-irs-sim/internal/logging"
	"mmwave-irs-sim/internal/sim"
)

const shutdownTimeout = 5 * time.Second

var indexTpl = template.Must(template.New("index").Parse(`<!doctype html>
<html><head><title>mmwave-irs-sim {{.RunID}}</title><meta http-equiv="refresh" content="2"></head>
<body>
<h1>Run {{.RunID}}</h1>
<p>simulated {{printf "%.1f" .SimTimeS}}s of {{printf "%.0f" .DurationS}}s{{if .Running}} (running){{end}}</p>
<table>
<tr><td>packets delivered</td><td>{{.PacketsDelivered}}</td></tr>
<tr><td>jammer packets</td><td>{{.JammerPackets}}</td></tr>
<tr><td>jammer bytes</td><td>{{.JammerBytes}}</td></tr>
{{range $k, $v := .Rows}}<tr><td>rows {{$k}}</td><td>{{$v}}</td></tr>
{{end}}{{range $k, $v := .Drops}}<tr><td>dropped {{$k}}</td><td>{{$v}}</td></tr>
{{end}}</table>
<p><a href="/status">status</a> | <a href="/config">config</a> | <a href="/metrics">metrics</a></p>
</body></html>
`))

// Server exposes run status over HTTP.
type Server struct {
	status  func() sim.Status
	cfg     *config.ScenarioConfig
	metrics http.Handler
}

// NewServer creates a server reading status snapshots from status. metrics
// may be nil.
func NewServer(status func() sim.Status, cfg *config.ScenarioConfig, metrics http.Handler) *Server {
	return &Server{status: status, cfg: cfg, metrics: metrics}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/config", s.handleConfig)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// Start listens on addr until ctx is cancelled. ready, if non-nil, is called
// once the listener is bound.
func (s *Server) Start(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log := logging.FromContext(ctx)
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("admin server listening", "addr", ln.Addr().String())
	if ready != nil {
		ready(ln.Addr())
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = indexTpl.Execute(w, s.status())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.status())
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if s.cfg == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.cfg)
}
