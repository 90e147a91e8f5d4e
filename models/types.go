package models

import "strings"

// NetworkProtocol selects how a Connection reaches its broker.
type NetworkProtocol string

const (
	ProtocolTCPTLS       NetworkProtocol = "tcp-tls"
	ProtocolWebSocketTLS NetworkProtocol = "websocket-tls"

	// names written by the browser build of the dashboard
	legacyProtocolTCPSSL          NetworkProtocol = "tcp-ssl"
	legacyProtocolWebSocketSecure NetworkProtocol = "websocket-secure"
)

// Normalize maps legacy protocol names to their current value.
func (p NetworkProtocol) Normalize() NetworkProtocol {
	switch NetworkProtocol(strings.ToLower(strings.TrimSpace(string(p)))) {
	case ProtocolTCPTLS, legacyProtocolTCPSSL:
		return ProtocolTCPTLS
	case ProtocolWebSocketTLS, legacyProtocolWebSocketSecure:
		return ProtocolWebSocketTLS
	default:
		return p
	}
}

func (p NetworkProtocol) Valid() bool {
	return p == ProtocolTCPTLS || p == ProtocolWebSocketTLS
}

// ConnectionStatus is the session state of a Connection.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
)

// QoS is the MQTT delivery guarantee level.
type QoS byte

const (
	QoSAtMostOnce  QoS = 0
	QoSAtLeastOnce QoS = 1
	QoSExactlyOnce QoS = 2
)

func (q QoS) Valid() bool {
	return q <= QoSExactlyOnce
}

// PanelSize is a display hint for the dashboard grid.
type PanelSize string

var validPanelSizes = map[PanelSize]bool{
	"xxs": true, "xs": true, "sm": true, "md": true, "lg": true, "xl": true,
}

func (s PanelSize) Valid() bool {
	return s == "" || validPanelSizes[s]
}
