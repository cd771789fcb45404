package sim

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"mmwave-irs-sim/internal/measure"
)

// sleep is replaced in tests.
var sleep = time.Sleep

// ReplayCSV replays a Time,Value series from r to writer as samples of ch
// for node. A speed >0 scales the simulated gaps between rows; if
// speed <= 0, no artificial delay is inserted. A leading header row is
// skipped. It returns the number of rows replayed.
func ReplayCSV(r io.Reader, ch measure.Channel, node measure.NodeIndex, writer SampleWriter, speed float64) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.ReuseRecord = true

	var (
		n    int
		prev float64
		line int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		line++
		if err != nil {
			return n, err
		}
		tm, errT := strconv.ParseFloat(rec[0], 64)
		val, errV := strconv.ParseFloat(rec[1], 64)
		if errT != nil || errV != nil {
			if line == 1 {
				continue
			}
			return n, fmt.Errorf("line %d: malformed row %q", line, rec)
		}
		if n > 0 && speed > 0 {
			gap := time.Duration((tm - prev) * float64(time.Second) / speed)
			if gap > 0 {
				sleep(gap)
			}
		}
		if err := writer.WriteSample(measure.Sample{Channel: ch, Node: node, Row: measure.Row{Time: tm, Value: val}}); err != nil {
			return n, err
		}
		prev = tm
		n++
	}
}

// ReplayCSVFile opens a file and replays its rows.
func ReplayCSVFile(path string, ch measure.Channel, node measure.NodeIndex, writer SampleWriter, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReplayCSV(f, ch, node, writer, speed)
}
