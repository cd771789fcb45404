package sim

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"mmwave-irs-sim/internal/measure"
)

// GreptimeTable is the table samples are mirrored into.
const GreptimeTable = "mmwave_metrics"

const (
	defaultGreptimePort  = 4001
	defaultGreptimeBatch = 500
	greptimeWriteTimeout = 10 * time.Second
)

// greptimeClient is the subset of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeWriter mirrors samples into a GreptimeDB table. Rows are buffered
// and written in batches; Close flushes the remainder.
type GreptimeWriter struct {
	client  greptimeClient
	table   string
	runID   string
	start   time.Time
	batch   int
	mu      sync.Mutex
	pending []measure.Sample
}

// NewGreptimeWriter connects to endpoint ("host" or "host:port"). Row
// timestamps are start plus the simulated time of each sample.
func NewGreptimeWriter(endpoint, database, runID string, start time.Time) (*GreptimeWriter, error) {
	host, port, err := splitEndpoint(endpoint, defaultGreptimePort)
	if err != nil {
		return nil, fmt.Errorf("greptime endpoint: %w", err)
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return &GreptimeWriter{
		client: client,
		table:  GreptimeTable,
		runID:  runID,
		start:  start,
		batch:  defaultGreptimeBatch,
	}, nil
}

func splitEndpoint(endpoint string, defPort int) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		// no port given
		return endpoint, defPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}

// WriteSample buffers a sample and flushes a full batch.
func (w *GreptimeWriter) WriteSample(s measure.Sample) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, s)
	if len(w.pending) < w.batch {
		return nil
	}
	return w.flushLocked()
}

// WriteSamples inserts multiple samples immediately.
func (w *GreptimeWriter) WriteSamples(samples []measure.Sample) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, samples...)
	return w.flushLocked()
}

// Close flushes buffered samples.
func (w *GreptimeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *GreptimeWriter) flushLocked() error {
	if len(w.pending) == 0 {
		return nil
	}
	rows := w.pending
	w.pending = nil

	tbl, err := w.buildTable(rows)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), greptimeWriteTimeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write %d rows: %w", len(rows), err)
	}
	return nil
}

func (w *GreptimeWriter) buildTable(rows []measure.Sample) (*table.Table, error) {
	tbl, err := table.New(w.table)
	if err != nil {
		return nil, err
	}
	for _, add := range []func() error{
		func() error { return tbl.AddTagColumn("run_id", types.STRING) },
		func() error { return tbl.AddTagColumn("node", types.INT64) },
		func() error { return tbl.AddTagColumn("channel", types.STRING) },
		func() error { return tbl.AddFieldColumn("value", types.FLOAT64) },
		func() error { return tbl.AddFieldColumn("sim_time", types.FLOAT64) },
		func() error { return tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND) },
	} {
		if err := add(); err != nil {
			return nil, err
		}
	}
	for _, r := range rows {
		ts := w.start.Add(time.Duration(r.Time * float64(time.Second)))
		if err := tbl.AddRow(w.runID, int64(r.Node), r.Channel.String(), r.Value, r.Time, ts); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}
