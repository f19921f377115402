// Package mqttbridge mirrors content app attributes to an MQTT broker.
//
// Every reported attribute is published, retained, as a JSON document to
//
//	<prefix>/<endpoint>/<cluster>/<attribute>
//
// with the cluster and attribute IDs in four-digit hex. The bridge also
// keeps <prefix>/bridge/state at "online" while connected; the broker
// publishes "offline" through the last will when the connection drops.
package mqttbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pion/logging"

	"github.com/backkem/matter-tv/pkg/contentapp"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// Defaults.
const (
	DefaultTopicPrefix    = "matter-tv"
	DefaultClientID       = "matter-tv-content-app"
	DefaultConnectTimeout = 10 * time.Second
	DefaultPublishTimeout = 2 * time.Second
)

var (
	// ErrNoBroker is returned when neither a broker URL nor a client is set.
	ErrNoBroker = errors.New("mqttbridge: no broker")

	// ErrConnectTimeout is returned when the broker does not answer in time.
	ErrConnectTimeout = errors.New("mqttbridge: connect timeout")

	// ErrClosed is returned by Attach after Close.
	ErrClosed = errors.New("mqttbridge: closed")
)

// Client is the subset of a paho client used by the bridge.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Config configures a Bridge.
type Config struct {
	// Broker is the broker URL, for example tcp://localhost:1883.
	// Required unless Client is set.
	Broker   string
	ClientID string
	Username string
	Password string

	// TopicPrefix roots every topic. Defaults to DefaultTopicPrefix.
	TopicPrefix string

	// QoS of attribute publications.
	QoS byte

	ConnectTimeout time.Duration
	PublishTimeout time.Duration

	// Client replaces the paho client built from Broker. Tests use it.
	Client Client

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Broker == "" && c.Client == nil {
		return ErrNoBroker
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = DefaultPublishTimeout
	}
}

// Message is the JSON document published for an attribute.
type Message struct {
	Endpoint  uint16 `json:"endpoint"`
	Cluster   uint32 `json:"cluster"`
	Attribute uint32 `json:"attribute"`
	Kind      string `json:"kind"`
	Value     any    `json:"value"`
	Time      string `json:"time"`
}

// Bridge publishes attribute reports of attached apps.
type Bridge struct {
	client  Client
	prefix  string
	qos     byte
	timeout time.Duration
	now     func() time.Time
	log     logging.LeveledLogger

	mu     sync.Mutex
	detach []func()
	closed bool
}

var _ contentapp.Reporter = (*Bridge)(nil)

// New connects to the broker and returns a bridge.
func New(config Config) (*Bridge, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	b := &Bridge{
		prefix:  config.TopicPrefix,
		qos:     config.QoS,
		timeout: config.PublishTimeout,
		now:     time.Now,
	}
	if config.LoggerFactory != nil {
		b.log = config.LoggerFactory.NewLogger("mqtt")
	}

	if config.Client != nil {
		b.client = config.Client
		b.publishState("online")
		return b, nil
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(config.Broker).
		SetClientID(config.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(b.stateTopic(), "offline", 1, true).
		SetOnConnectHandler(func(pahomqtt.Client) {
			if b.log != nil {
				b.log.Infof("connected to %s", config.Broker)
			}
			b.publishState("online")
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			if b.log != nil {
				b.log.Warnf("connection lost: %v", err)
			}
		})
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}

	client := pahomqtt.NewClient(opts)
	b.client = client
	token := client.Connect()
	if !token.WaitTimeout(config.ConnectTimeout) {
		return nil, ErrConnectTimeout
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqttbridge: connect: %w", err)
	}
	return b, nil
}

// Attach mirrors app's attributes: every attribute currently set is
// published once, then every reported change.
func (b *Bridge) Attach(app *contentapp.App) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.detach = append(b.detach, app.Notifier().AddReporter(b))
	b.mu.Unlock()

	store := app.Attributes()
	for _, k := range store.Keys() {
		v, ok := store.Get(k.Cluster, k.Attribute)
		if !ok {
			continue
		}
		b.ReportAttribute(datamodel.AttributePath{
			Endpoint:  app.Endpoint(),
			Cluster:   k.Cluster,
			Attribute: k.Attribute,
		}, v)
	}
	return nil
}

// Topic returns the topic of path.
func (b *Bridge) Topic(path datamodel.AttributePath) string {
	return fmt.Sprintf("%s/%d/%04x/%04x", b.prefix, path.Endpoint, uint32(path.Cluster), uint32(path.Attribute))
}

func (b *Bridge) stateTopic() string {
	return b.prefix + "/bridge/state"
}

// ReportAttribute implements contentapp.Reporter.
func (b *Bridge) ReportAttribute(path datamodel.AttributePath, value datamodel.Value) {
	payload, err := json.Marshal(Message{
		Endpoint:  uint16(path.Endpoint),
		Cluster:   uint32(path.Cluster),
		Attribute: uint32(path.Attribute),
		Kind:      value.Kind.String(),
		Value:     value.Interface(),
		Time:      b.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		if b.log != nil {
			b.log.Warnf("encode %s: %v", path, err)
		}
		return
	}
	b.publish(b.Topic(path), b.qos, payload)
}

func (b *Bridge) publishState(state string) {
	b.publish(b.stateTopic(), 1, []byte(state))
}

func (b *Bridge) publish(topic string, qos byte, payload []byte) {
	token := b.client.Publish(topic, qos, true, payload)
	if !token.WaitTimeout(b.timeout) {
		if b.log != nil {
			b.log.Warnf("publish %s: timeout", topic)
		}
		return
	}
	if err := token.Error(); err != nil && b.log != nil {
		b.log.Warnf("publish %s: %v", topic, err)
	}
}

// Close detaches from every app, publishes the offline state and
// disconnects.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.closed = true
	detach := b.detach
	b.detach = nil
	b.mu.Unlock()

	for _, d := range detach {
		d()
	}
	b.publishState("offline")
	b.client.Disconnect(250)
	return nil
}
