package publish

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	// Timeout bounds connect and publish acknowledgement waits.
	Timeout time.Duration
}

// tokenPublisher is the subset of mqtt.Client used for publishing.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes JSON records as retained messages on <prefix>/<source>, so
// a subscriber always gets the latest value first.
type MQTT struct {
	cfg    MQTTConfig
	log    logrus.FieldLogger
	client mqtt.Client
	pub    tokenPublisher
}

func NewMQTT(cfg MQTTConfig, log logrus.FieldLogger) (*MQTT, error) {
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("navstream-%d", time.Now().Unix())
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "navstream"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "mqtt")

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetOnConnectHandler(func(mqtt.Client) {
			log.WithField("broker", cfg.Broker).Info("mqtt connected")
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("mqtt connection lost")
		})

	client := mqtt.NewClient(opts)
	tk := client.Connect()
	if !tk.WaitTimeout(cfg.Timeout) {
		// ConnectRetry keeps trying in the background.
		log.WithField("broker", cfg.Broker).Warn("mqtt broker not reachable yet")
	} else if err := tk.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return &MQTT{cfg: cfg, log: log, client: client, pub: client}, nil
}

// Topic returns the topic a source is published on.
func (m *MQTT) Topic(source string) string {
	return strings.TrimSuffix(m.cfg.TopicPrefix, "/") + "/" + source
}

func (m *MQTT) Publish(source string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("mqtt marshal %s: %w", source, err)
	}
	tk := m.pub.Publish(m.Topic(source), 0, true, payload)
	if !tk.WaitTimeout(m.cfg.Timeout) {
		return fmt.Errorf("mqtt publish %s: timeout", source)
	}
	if err := tk.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", source, err)
	}
	return nil
}

func (m *MQTT) Close() {
	if m == nil || m.client == nil {
		return
	}
	m.client.Disconnect(250)
}
