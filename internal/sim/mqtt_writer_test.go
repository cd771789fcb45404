package sim

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"mmwave-irs-sim/internal/measure"
)

type fakeToken struct{ err error }

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	msgs         []published
	err          error
	disconnected bool
}

func (f *fakePublisher) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	f.msgs = append(f.msgs, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return &fakeToken{err: f.err}
}

func (f *fakePublisher) Disconnect(uint) { f.disconnected = true }

func TestMQTTWriterPublishes(t *testing.T) {
	p := &fakePublisher{}
	w := &MQTTWriter{client: p, prefix: "mmwave", runID: "r1"}
	s := measure.Sample{Channel: measure.Throughput, Node: 4, Row: measure.Row{Time: 0.21, Value: 0.8192}}
	if err := w.WriteSample(s); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if len(p.msgs) != 1 || p.msgs[0].topic != "mmwave/r1/throughput/4" {
		t.Fatalf("unexpected publish: %+v", p.msgs)
	}
	var row measure.Row
	if err := json.Unmarshal(p.msgs[0].payload, &row); err != nil || row != s.Row {
		t.Fatalf("payload = %s (%v)", p.msgs[0].payload, err)
	}
	if err := w.Close(); err != nil || !p.disconnected {
		t.Fatalf("Close did not disconnect")
	}
}

func TestMQTTWriterQoSErrors(t *testing.T) {
	p := &fakePublisher{err: errors.New("not connected")}
	w := &MQTTWriter{client: p, prefix: "x", runID: "r", qos: 0}
	if err := w.WriteSample(measure.Sample{}); err != nil {
		t.Fatalf("qos 0 must not wait for the broker: %v", err)
	}
	w.qos = 1
	if err := w.WriteSample(measure.Sample{}); err == nil {
		t.Fatalf("expected publish error with qos 1")
	}
	if p.msgs[1].qos != 1 {
		t.Fatalf("qos not forwarded")
	}
}
