package models

import (
	"strconv"
	"strings"
	"time"
)

const DefaultWebSocketPath = "/mqtt"

// Connection is a user-defined broker endpoint. One live session at most exists per ID.
type Connection struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	ClientID      string           `json:"clientId,omitempty"`
	BrokerAddress string           `json:"brokerAddress"`
	Port          int              `json:"port"`
	Protocol      NetworkProtocol  `json:"protocol"`
	Path          string           `json:"path,omitempty"`
	Username      string           `json:"username,omitempty"`
	Password      string           `json:"password,omitempty"`
	CleanSession  bool             `json:"cleanSession"`
	AutoConnect   bool             `json:"autoConnect"`
	Status        ConnectionStatus `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// WebSocketPath returns the configured path or the default "/mqtt".
func (c *Connection) WebSocketPath() string {
	path := strings.TrimSpace(c.Path)
	if path == "" {
		return DefaultWebSocketPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// Credentials returns the username and password to send. A value that is blank
// after trimming is not sent; any other value is sent exactly as stored.
func (c *Connection) Credentials() (username, password string) {
	return nonBlank(c.Username), nonBlank(c.Password)
}

func nonBlank(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

// Validate checks the user-editable fields.
func (c *Connection) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("name", c.Name, "name is required")
	}
	if strings.TrimSpace(c.BrokerAddress) == "" {
		return NewValidationError("brokerAddress", c.BrokerAddress, "broker address is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return NewValidationError("port", strconv.Itoa(c.Port), "port must be between 1 and 65535")
	}
	if !c.Protocol.Normalize().Valid() {
		return NewValidationError("protocol", string(c.Protocol), "protocol must be tcp-tls or websocket-tls")
	}
	return nil
}

// ConnectionUpdate carries a partial edit. Nil fields are left untouched.
type ConnectionUpdate struct {
	Name          *string          `json:"name,omitempty"`
	ClientID      *string          `json:"clientId,omitempty"`
	BrokerAddress *string          `json:"brokerAddress,omitempty"`
	Port          *int             `json:"port,omitempty"`
	Protocol      *NetworkProtocol `json:"protocol,omitempty"`
	Path          *string          `json:"path,omitempty"`
	Username      *string          `json:"username,omitempty"`
	Password      *string          `json:"password,omitempty"`
	CleanSession  *bool            `json:"cleanSession,omitempty"`
	AutoConnect   *bool            `json:"autoConnect,omitempty"`
}

// Apply merges the update into c. ID, Status and CreatedAt are never touched.
func (u *ConnectionUpdate) Apply(c *Connection) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.ClientID != nil {
		c.ClientID = *u.ClientID
	}
	if u.BrokerAddress != nil {
		c.BrokerAddress = *u.BrokerAddress
	}
	if u.Port != nil {
		c.Port = *u.Port
	}
	if u.Protocol != nil {
		c.Protocol = u.Protocol.Normalize()
	}
	if u.Path != nil {
		c.Path = *u.Path
	}
	if u.Username != nil {
		c.Username = *u.Username
	}
	if u.Password != nil {
		c.Password = *u.Password
	}
	if u.CleanSession != nil {
		c.CleanSession = *u.CleanSession
	}
	if u.AutoConnect != nil {
		c.AutoConnect = *u.AutoConnect
	}
}
