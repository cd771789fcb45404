package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"mmwave-irs-sim/internal/measure"
)

type jsonSample struct {
	RunID string `json:"run_id,omitempty"`
	measure.Sample
}

// JSONStdoutWriter prints samples as JSON lines to STDOUT.
type JSONStdoutWriter struct {
	runID string
	out   io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter(runID string) *JSONStdoutWriter {
	return &JSONStdoutWriter{runID: runID, out: os.Stdout}
}

// WriteSample outputs a sample in JSON format.
func (w *JSONStdoutWriter) WriteSample(s measure.Sample) error {
	data, err := json.Marshal(jsonSample{RunID: w.runID, Sample: s})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteSamples outputs multiple samples in JSON format.
func (w *JSONStdoutWriter) WriteSamples(samples []measure.Sample) error {
	for _, s := range samples {
		if err := w.WriteSample(s); err != nil {
			return err
		}
	}
	return nil
}
