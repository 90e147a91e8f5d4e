// Package mqtt is the broker transport of the session manager.
package mqtt

import (
	"errors"
	"time"

	"mqtt-panel/config"
)

var (
	ErrTimeout       = errors.New("operation timed out")
	ErrSessionClosed = errors.New("session closed")
)

// Options are the transport settings shared by every session.
type Options struct {
	TCPMode           string
	ProtocolVersion   uint
	TLSInsecure       bool
	KeepAlive         time.Duration
	ConnectTimeout    time.Duration
	ReconnectInterval time.Duration
	OperationTimeout  time.Duration
}

// OptionsFromConfig extracts the transport settings from the service configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TCPMode:           cfg.MQTTTCPMode,
		ProtocolVersion:   uint(cfg.MQTTProtocolVersion),
		TLSInsecure:       cfg.MQTTTLSInsecure,
		KeepAlive:         cfg.MQTTKeepAlive,
		ConnectTimeout:    cfg.MQTTConnectTimeout,
		ReconnectInterval: cfg.MQTTReconnectInterval,
		OperationTimeout:  cfg.MQTTOperationTimeout,
	}
}

// SessionConfig describes one broker session.
type SessionConfig struct {
	BrokerURL    string
	ClientID     string
	Username     string
	Password     string
	CleanSession bool
	Options
}

// Handlers receive session events. They may be called from transport goroutines.
type Handlers struct {
	// OnConnecting fires before every connection attempt, including automatic retries.
	OnConnecting func()
	OnConnect    func()
	// OnConnectionLost fires when an established connection drops.
	OnConnectionLost func(err error)
	// OnConnectError fires when an attempt fails. Another attempt follows after the retry interval.
	OnConnectError func(err error)
	OnMessage      func(topic string, payload []byte, retained bool)
}

// Session is one live broker session.
type Session interface {
	// Start begins connecting in the background and returns immediately.
	Start()
	IsConnected() bool
	Subscribe(topic string, qos byte) error
	Unsubscribe(topic string) error
	// Publish hands the message to the transport. done receives the broker outcome
	// asynchronously; it may be nil.
	Publish(topic string, qos byte, retained bool, payload []byte, done func(error)) error
	// Close stops retrying and disconnects. No handler fires after Close returns.
	Close()
}

// Dialer creates sessions.
type Dialer interface {
	Dial(cfg SessionConfig, h Handlers) (Session, error)
}
