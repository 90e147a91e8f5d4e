package mqtt

import (
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"mqtt-panel/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// subscribeFailure is the SUBACK return code for a rejected subscription.
const subscribeFailure = 0x80

// PahoDialer opens sessions with paho.mqtt.golang.
type PahoDialer struct {
	logger *slog.Logger
}

func NewDialer(logger *slog.Logger) *PahoDialer {
	return &PahoDialer{logger: logger.With("component", "mqtt_client")}
}

// Client wraps the PAHO MQTT client of one Connection.
type Client struct {
	client   mqtt.Client
	cfg      SessionConfig
	handlers Handlers
	logger   *slog.Logger
	closed   atomic.Bool
	done     chan struct{}
}

// Dial configures a session. Nothing is sent until Start.
func (d *PahoDialer) Dial(cfg SessionConfig, h Handlers) (Session, error) {
	if _, err := url.Parse(cfg.BrokerURL); err != nil {
		return nil, fmt.Errorf("invalid broker url %q: %w", cfg.BrokerURL, err)
	}

	c := &Client{
		cfg:      cfg,
		handlers: h,
		logger:   d.logger.With("broker", cfg.BrokerURL, "clientId", cfg.ClientID),
		done:     make(chan struct{}),
	}

	version, exact := pahoProtocolVersion(cfg.ProtocolVersion)
	if !exact {
		c.logger.Warn("MQTT protocol version not supported by transport, using 3.1.1", "requested", cfg.ProtocolVersion)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetCleanSession(cfg.CleanSession).
		SetProtocolVersion(version).
		SetKeepAlive(cfg.KeepAlive).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(false).
		SetOrderMatters(true).
		SetTLSConfig(tlsConfig(cfg.TLSInsecure))

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetDefaultPublishHandler(c.onMessage)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.client = mqtt.NewClient(opts)
	return c, nil
}

// Start runs the connect loop. Every failed attempt and every lost connection is
// followed by a fixed ReconnectInterval pause; paho's own backoff is not used.
func (c *Client) Start() {
	go c.connectLoop()
}

func (c *Client) connectLoop() {
	for {
		if c.closed.Load() {
			return
		}
		c.fire(c.handlers.OnConnecting)

		token := c.client.Connect()
		select {
		case <-token.Done():
		case <-c.done:
			return
		}
		err := token.Error()
		if err == nil {
			return
		}
		if c.closed.Load() {
			return
		}

		c.logger.Warn("Failed to connect to MQTT broker, retrying", "retry_in", c.cfg.ReconnectInterval.String(), slog.Any("error", err))
		if h := c.handlers.OnConnectError; h != nil {
			h(err)
		}

		if !c.pause() {
			return
		}
	}
}

// pause waits one ReconnectInterval. It reports false when the client was closed meanwhile.
func (c *Client) pause() bool {
	select {
	case <-time.After(c.cfg.ReconnectInterval):
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) IsConnected() bool {
	return !c.closed.Load() && c.client.IsConnectionOpen()
}

func (c *Client) Subscribe(topic string, qos byte) error {
	token := c.client.Subscribe(topic, qos, nil)
	if err := c.wait(token); err != nil {
		return err
	}
	if st, ok := token.(*mqtt.SubscribeToken); ok {
		if code, ok := st.Result()[topic]; ok && code == subscribeFailure {
			return fmt.Errorf("broker rejected subscription to %s", topic)
		}
	}
	c.logger.Info("Successfully subscribed to topic", "topic", topic, "qos", qos)
	return nil
}

func (c *Client) Unsubscribe(topic string) error {
	if err := c.wait(c.client.Unsubscribe(topic)); err != nil {
		return err
	}
	c.logger.Info("Unsubscribed from topic", "topic", topic)
	return nil
}

func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte, done func(error)) error {
	if !c.IsConnected() {
		return models.ErrNotConnected
	}
	token := c.client.Publish(topic, qos, retained, payload)
	go func() {
		err := c.wait(token)
		if err != nil {
			c.logger.Error("Failed to publish message", "topic", topic, slog.Any("error", err))
		}
		if done != nil {
			done(err)
		}
	}()
	return nil
}

// Close gracefully disconnects the client.
func (c *Client) Close() {
	if c.closed.Swap(true) {
		return
	}
	close(c.done)
	c.client.Disconnect(250)
	c.logger.Info("MQTT Client disconnected")
}

func (c *Client) wait(token mqtt.Token) error {
	if !token.WaitTimeout(c.cfg.OperationTimeout) {
		return ErrTimeout
	}
	return token.Error()
}

func (c *Client) fire(h func()) {
	if h != nil && !c.closed.Load() {
		h()
	}
}

func (c *Client) onConnect(_ mqtt.Client) {
	c.logger.Info("Successfully connected to MQTT broker")
	c.fire(c.handlers.OnConnect)
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	if c.closed.Load() {
		return
	}
	c.logger.Error("Connection lost. Reconnecting...", "retry_in", c.cfg.ReconnectInterval.String(), slog.Any("error", err))
	if h := c.handlers.OnConnectionLost; h != nil {
		h(err)
	}
	go func() {
		if c.pause() {
			c.connectLoop()
		}
	}()
}

func (c *Client) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if c.closed.Load() || c.handlers.OnMessage == nil {
		return
	}
	c.handlers.OnMessage(msg.Topic(), msg.Payload(), msg.Retained())
}

var _ Dialer = (*PahoDialer)(nil)
