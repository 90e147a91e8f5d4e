package storage

// Store keys. The names match the localStorage keys of the browser build so that exported
// data stays recognisable.
const (
	ConnectionsKey  = "iot_mqtt_connections"
	SwitchesKey     = "iot_mqtt_switches"
	ButtonsKey      = "iot_mqtt_buttons"
	UriLaunchersKey = "iot_mqtt_uri_launchers"
	SettingsKey     = "iot_mqtt_settings"
)

// AllKeys lists every key the dashboard writes.
var AllKeys = []string{ConnectionsKey, SwitchesKey, ButtonsKey, UriLaunchersKey, SettingsKey}
