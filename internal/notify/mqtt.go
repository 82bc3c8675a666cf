package notify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// ErrPublishTimeout is returned when the broker does not acknowledge a
// message in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// MQTTConfig configures the MQTT publisher.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic is the prefix; messages go to {Topic}/{kind}.
	Topic string
	// Retained marks messages as retained so new subscribers see the last state.
	Retained bool
	Timeout  time.Duration
}

// mqttClient is the part of mqtt.Client the publisher uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes notifications to an MQTT broker.
type MQTTPublisher struct {
	client   mqttClient
	topic    string
	retained bool
	timeout  time.Duration
	logger   *zap.Logger
}

var _ Publisher = (*MQTTPublisher)(nil)

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg MQTTConfig, logger *zap.Logger) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker not set")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "paludario"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return newMQTTPublisher(client, cfg, logger), nil
}

func newMQTTPublisher(client mqttClient, cfg MQTTConfig, logger *zap.Logger) *MQTTPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Topic == "" {
		cfg.Topic = "paludario"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &MQTTPublisher{
		client:   client,
		topic:    strings.TrimSuffix(cfg.Topic, "/"),
		retained: cfg.Retained,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// Topic returns the topic a message kind is published to.
func (p *MQTTPublisher) Topic(kind MessageType) string {
	return p.topic + "/" + string(kind)
}

// Publish sends payload with QoS 1.
func (p *MQTTPublisher) Publish(kind MessageType, payload []byte) error {
	topic := p.Topic(kind)
	token := p.client.Publish(topic, 1, p.retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	p.logger.Debug("published notification", zap.String("topic", topic), zap.Int("bytes", len(payload)))
	return nil
}

// Connected reports the broker connection state.
func (p *MQTTPublisher) Connected() bool {
	return p.client.IsConnected()
}

// Close disconnects, waiting up to 250ms for in-flight messages.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
