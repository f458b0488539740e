// Package mqttpub publishes GPS readings as JSON to an MQTT broker.
package mqttpub

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"i2cgps/internal/i2cgps"
)

type Config struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
	Retain   bool
}

// Payload is the reading in its wire shape plus the host receive time.
type Payload struct {
	i2cgps.Reading
	Time string `json:"time"`
}

func (p Payload) MarshalJSON() ([]byte, error) {
	inner, err := json.Marshal(p.Reading)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(inner, &m); err != nil {
		return nil, err
	}
	ts, err := json.Marshal(p.Time)
	if err != nil {
		return nil, err
	}
	m["time"] = ts
	return json.Marshal(m)
}

// publisher is the subset of mqtt.Client used here.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type Publisher struct {
	cfg    Config
	client publisher
}

// Connect dials the broker. An empty ClientID gets a random one so several
// receivers can share a broker.
func Connect(cfg Config) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt: broker is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "i2cgps-" + uuid.New().String()
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	return &Publisher{cfg: cfg, client: client}, nil
}

func (p *Publisher) ClientID() string { return p.cfg.ClientID }

func (p *Publisher) PublishReading(now time.Time, r i2cgps.Reading) error {
	payload, err := json.Marshal(Payload{Reading: r, Time: now.UTC().Format(time.RFC3339)})
	if err != nil {
		return fmt.Errorf("mqtt: marshal: %w", err)
	}
	token := p.client.Publish(p.cfg.Topic, p.cfg.QoS, p.cfg.Retain, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt: publish to %s timed out", p.cfg.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish to %s: %w", p.cfg.Topic, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Disconnect(250)
}
