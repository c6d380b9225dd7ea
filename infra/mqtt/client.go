package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremqtt "github.com/kilianp07/pvcharge/core/mqtt"
	"github.com/kilianp07/pvcharge/core/monitoring"
	"github.com/kilianp07/pvcharge/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client and the
// topic layout used by the gateway and discovery.
type Config struct {
	Broker     string          `json:"broker"`
	ClientID   string          `json:"client_id"`
	Username   string          `json:"username"`
	Password   string          `json:"password"`
	UseTLS     bool            `json:"use_tls"`
	ClientCert string          `json:"client_cert"`
	ClientKey  string          `json:"client_key"`
	CABundle   string          `json:"ca_bundle"`
	AuthMethod string          `json:"auth_method"`
	QoS        map[string]byte `json:"qos"`
	MaxRetries int             `json:"max_retries"`
	BackoffMS  int             `json:"backoff_ms"`

	// StatePrefix is the mqtt_statestream base topic.
	StatePrefix string `json:"state_prefix"`
	// CommandPrefix is where charger commands are published.
	CommandPrefix string `json:"command_prefix"`
	// DiscoveryPrefix is the Home Assistant discovery prefix.
	DiscoveryPrefix string `json:"discovery_prefix"`
	// BaseTopic holds the controller's own state, availability and switch topics.
	BaseTopic string `json:"base_topic"`

	TLSConfig *tls.Config `json:"-"`
}

// Defaults for Config.SetDefaults.
const (
	DefaultStatePrefix     = "statestream"
	DefaultCommandPrefix   = "pvcharge/command"
	DefaultDiscoveryPrefix = "homeassistant"
	DefaultBaseTopic       = "pvcharge"
	DefaultMaxRetries      = 3
	DefaultBackoffMS       = 100
)

// SetDefaults fills empty topic settings and generates a client id.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "pvcharge-" + uuid.NewString()[:8]
	}
	if c.StatePrefix == "" {
		c.StatePrefix = DefaultStatePrefix
	}
	if c.CommandPrefix == "" {
		c.CommandPrefix = DefaultCommandPrefix
	}
	if c.DiscoveryPrefix == "" {
		c.DiscoveryPrefix = DefaultDiscoveryPrefix
	}
	if c.BaseTopic == "" {
		c.BaseTopic = DefaultBaseTopic
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = DefaultBackoffMS
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	switch c.AuthMethod {
	case "", "username_password", "certificate", "both":
	default:
		return fmt.Errorf("unknown mqtt.auth_method %q", c.AuthMethod)
	}
	return nil
}

// AvailabilityTopic is where the controller announces online/offline.
func (c Config) AvailabilityTopic() string { return c.BaseTopic + "/availability" }

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

type subscription struct {
	qos     byte
	handler coremqtt.MessageHandler
}

// PahoClient implements core/mqtt.Client using Eclipse Paho.
type PahoClient struct {
	cli pahoClient
	qos map[string]byte

	mu         sync.Mutex
	subs       map[string]subscription
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
	availTopic string
}

var _ coremqtt.Client = (*PahoClient)(nil)

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker. The last will marks the
// controller offline on the availability topic.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		subs:       make(map[string]subscription),
		logger:     log,
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		availTopic: cfg.AvailabilityTopic(),
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		pc.resubscribe(c)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	pc.mu.Lock()
	pc.cli = c
	pc.mu.Unlock()
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	opts.SetCleanSession(true)
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.BaseTopic != "" {
		opts.SetWill(cfg.AvailabilityTopic(), PayloadOffline, 1, true)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

func (p *PahoClient) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 0
}

func wrap(h coremqtt.MessageHandler) paho.MessageHandler {
	return func(_ paho.Client, m paho.Message) {
		h(m.Topic(), m.Payload())
	}
}

func (p *PahoClient) resubscribe(c pahoClient) {
	p.mu.Lock()
	if c == nil {
		c = p.cli
	}
	subs := make(map[string]subscription, len(p.subs))
	for t, s := range p.subs {
		subs[t] = s
	}
	p.mu.Unlock()
	for topic, s := range subs {
		if token := c.Subscribe(topic, s.qos, wrap(s.handler)); token.Wait() && token.Error() != nil {
			p.logger.Errorf("subscribe %s: %v", topic, token.Error())
		}
	}
}

// Subscribe registers h for topic. The subscription is renewed after every
// reconnect.
func (p *PahoClient) Subscribe(topic, kind string, h coremqtt.MessageHandler) error {
	qos := p.qosFor(kind)
	p.mu.Lock()
	p.subs[topic] = subscription{qos: qos, handler: h}
	cli := p.cli
	p.mu.Unlock()
	if cli == nil || !cli.IsConnected() {
		return nil
	}
	if token := cli.Subscribe(topic, qos, wrap(h)); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	p.logger.Debugf("subscribed to %s", topic)
	return nil
}

// Publish sends payload on topic. Failed attempts are retried with
// exponential backoff. The final failure is reported to the monitor.
func (p *PahoClient) Publish(ctx context.Context, topic, kind string, retained bool, payload []byte) error {
	p.mu.Lock()
	cli := p.cli
	p.mu.Unlock()
	if cli == nil {
		return coremqtt.ErrNotConnected
	}
	qos := p.qosFor(kind)
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := cli.Publish(topic, qos, retained, payload)
		select {
		case <-token.Done():
			publishErr = token.Error()
		case <-ctx.Done():
			publishErr = ctx.Err()
		}
		if publishErr == nil {
			p.logger.Debugf("published %s", topic)
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		p.logger.Errorf("publish attempt %d on %s failed: %v", attempt+1, topic, publishErr)
		if attempt == p.maxRetries {
			break
		}
		select {
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		case <-ctx.Done():
		}
	}
	err := fmt.Errorf("%w: %s: %w", coremqtt.ErrPublishFailed, topic, publishErr)
	monitoring.CaptureException(err, map[string]string{"module": "mqtt", "topic": topic})
	return err
}

// Disconnect announces the controller offline and closes the connection.
func (p *PahoClient) Disconnect() {
	p.mu.Lock()
	cli := p.cli
	p.mu.Unlock()
	if cli == nil || !cli.IsConnected() {
		return
	}
	if p.availTopic != "" {
		token := cli.Publish(p.availTopic, 1, true, PayloadOffline)
		token.WaitTimeout(time.Second)
	}
	cli.Disconnect(250)
}
