package utils

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// ===================================================================
// ID GENERATION HELPERS
// ===================================================================

// GenerateConnectionID returns a new Connection id.
func GenerateConnectionID() string {
	return "conn_" + uuid.NewString()
}

// GenerateSwitchID returns a new SwitchPanel id.
func GenerateSwitchID() string {
	return "switch_" + uuid.NewString()
}

// GenerateButtonID returns a new ButtonPanel id.
func GenerateButtonID() string {
	return "button_" + uuid.NewString()
}

// GenerateUriLauncherID returns a new UriLauncherPanel id.
func GenerateUriLauncherID() string {
	return "uri_" + uuid.NewString()
}

// GenerateClientID returns an MQTT client id of the form mqtt_<8 hex chars>.
func GenerateClientID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "mqtt_" + uuid.NewString()[:8]
	}
	return "mqtt_" + hex.EncodeToString(b)
}
