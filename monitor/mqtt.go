package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher is the subset of mqtt.Client used by MQTTSink.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// samplePayload is the JSON document published for every reading.
type samplePayload struct {
	Address string `json:"address"`
	X       int16  `json:"x"`
	Y       int16  `json:"y"`
	Z       int16  `json:"z"`
	Error   string `json:"error,omitempty"`
	Time    string `json:"time"`
}

type MQTTSink struct {
	client  Publisher
	topic   string
	qos     byte
	timeout time.Duration
}

func NewMQTTSink(client Publisher, topic string, qos byte) *MQTTSink {
	return &MQTTSink{
		client:  client,
		topic:   topic,
		qos:     qos,
		timeout: 2 * time.Second,
	}
}

// DialMQTT connects a paho client to the broker.
func DialMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect error: %w", token.Error())
	}
	return client, nil
}

func (m *MQTTSink) Render(ctx context.Context, addr byte, r Reading) error {
	payload := samplePayload{
		Address: fmt.Sprintf("%#04x", addr),
		Time:    r.Time.UTC().Format(time.RFC3339Nano),
	}
	if r.Err != nil {
		payload.Error = r.Err.Error()
	} else {
		payload.X, payload.Y, payload.Z = r.Sample.X, r.Sample.Y, r.Sample.Z
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("could not encode reading: %w", err)
	}
	token := m.client.Publish(m.topic, m.qos, false, b)
	if !token.WaitTimeout(m.timeout) {
		return fmt.Errorf("mqtt publish to %s timed out", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s failed: %w", m.topic, err)
	}
	return nil
}
