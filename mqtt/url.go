package mqtt

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"

	"mqtt-panel/config"
	"mqtt-panel/models"
)

// BuildBrokerURL returns the URL a connection is dialed with.
// websocket-tls always uses wss; tcp-tls uses ssl unless the host can only speak websockets.
func BuildBrokerURL(conn models.Connection, tcpMode string) string {
	hostPort := net.JoinHostPort(strings.TrimSpace(conn.BrokerAddress), strconv.Itoa(conn.Port))
	if conn.Protocol.Normalize() == models.ProtocolTCPTLS && tcpMode != config.TCPModeWebSocketOnly {
		return fmt.Sprintf("ssl://%s", hostPort)
	}
	return fmt.Sprintf("wss://%s%s", hostPort, conn.WebSocketPath())
}

// NewSessionConfig builds the session settings for a connection.
func NewSessionConfig(conn models.Connection, opts Options) SessionConfig {
	username, password := conn.Credentials()
	return SessionConfig{
		BrokerURL:    BuildBrokerURL(conn, opts.TCPMode),
		ClientID:     conn.ClientID,
		Username:     username,
		Password:     password,
		CleanSession: conn.CleanSession,
		Options:      opts,
	}
}

func tlsConfig(insecure bool) *tls.Config {
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecure, //nolint:gosec // opt-in for self-signed lab brokers
	}
}

// pahoProtocolVersion maps the configured version to one paho speaks.
// paho.mqtt.golang implements 3.1 and 3.1.1 only, so 5 falls back to 3.1.1.
func pahoProtocolVersion(v uint) (uint, bool) {
	switch v {
	case 3, 4:
		return v, true
	case 5:
		return 4, false
	default:
		return 4, true
	}
}
