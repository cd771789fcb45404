package sim

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"mmwave-irs-sim/internal/measure"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = 5 * time.Second
	mqttQuiesceMillis  = 250
)

// mqttPublisher is the subset of mqtt.Client the writer uses.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTWriter publishes every sample as JSON to
// <prefix>/<run id>/<channel>/<node>.
type MQTTWriter struct {
	client mqttPublisher
	prefix string
	runID  string
	qos    byte
}

// NewMQTTWriter connects to broker (e.g. "tcp://localhost:1883").
func NewMQTTWriter(broker, prefix, runID string, qos byte) (*MQTTWriter, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID("mmwave-irs-sim-" + runID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(30 * time.Second)

	c := mqtt.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timeout", broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return &MQTTWriter{client: c, prefix: prefix, runID: runID, qos: qos}, nil
}

// Topic returns the topic a sample is published to.
func (w *MQTTWriter) Topic(s measure.Sample) string {
	return fmt.Sprintf("%s/%s/%s/%d", w.prefix, w.runID, s.Channel, s.Node)
}

// WriteSample publishes one sample. With QoS 0 the call does not wait for
// the broker.
func (w *MQTTWriter) WriteSample(s measure.Sample) error {
	payload, err := json.Marshal(s.Row)
	if err != nil {
		return err
	}
	tok := w.client.Publish(w.Topic(s), w.qos, false, payload)
	if w.qos == 0 {
		return nil
	}
	if !tok.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("mqtt publish %s: timeout", w.Topic(s))
	}
	return tok.Error()
}

// Close disconnects from the broker.
func (w *MQTTWriter) Close() error {
	w.client.Disconnect(mqttQuiesceMillis)
	return nil
}
