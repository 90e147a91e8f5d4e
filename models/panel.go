package models

import (
	"strconv"
	"strings"
	"time"

	"mqtt-panel/topic"
)

// Display holds dashboard-only presentation fields shared by panels.
type Display struct {
	Icon    string    `json:"icon,omitempty"`
	ColorOn string    `json:"colorOn,omitempty"`
	Size    PanelSize `json:"size,omitempty"`
	Order   int       `json:"order,omitempty"`
}

// SwitchPanel publishes payloadOn/payloadOff and tracks the reported state.
type SwitchPanel struct {
	ID             string     `json:"id"`
	ConnectionID   string     `json:"connectionId"`
	Name           string     `json:"name"`
	Topic          string     `json:"topic"`
	SubscribeTopic string     `json:"subscribeTopic,omitempty"`
	PayloadOn      string     `json:"payloadOn"`
	PayloadOff     string     `json:"payloadOff"`
	QoS            QoS        `json:"qos"`
	Retain         bool       `json:"retain,omitempty"`
	State          bool       `json:"state"`
	LastUpdated    *time.Time `json:"lastUpdated,omitempty"`
	Display

	// Stale is true until the first matching inbound message after a (re)connect.
	Stale bool `json:"stale,omitempty"`
	// Inert marks a panel whose Connection no longer exists.
	Inert bool `json:"inert,omitempty"`
}

// EffectiveTopic is the topic the panel listens on.
func (s *SwitchPanel) EffectiveTopic() string {
	if t := strings.TrimSpace(s.SubscribeTopic); t != "" {
		return t
	}
	return s.Topic
}

// Match reports the state an inbound payload maps to. ok is false for unknown payloads.
// Surrounding whitespace is ignored on both sides.
func (s *SwitchPanel) Match(payload string) (state bool, ok bool) {
	p := strings.TrimSpace(payload)
	switch p {
	case strings.TrimSpace(s.PayloadOn):
		return true, true
	case strings.TrimSpace(s.PayloadOff):
		return false, true
	}
	return false, false
}

func (s *SwitchPanel) Validate() error {
	if err := validatePanel(s.Name, s.ConnectionID, s.Topic, s.QoS, s.Size); err != nil {
		return err
	}
	if !topic.ValidName(s.Topic) {
		return NewValidationError("topic", s.Topic, "publish topic must not contain wildcards")
	}
	if st := strings.TrimSpace(s.SubscribeTopic); st != "" && !topic.ValidFilter(st) {
		return NewValidationError("subscribeTopic", s.SubscribeTopic, "invalid topic filter")
	}
	if strings.TrimSpace(s.PayloadOn) == strings.TrimSpace(s.PayloadOff) {
		return NewValidationError("payloadOff", s.PayloadOff, "on and off payloads must differ")
	}
	return nil
}

// ButtonPanel publishes one fixed payload and keeps no state.
type ButtonPanel struct {
	ID           string `json:"id"`
	ConnectionID string `json:"connectionId"`
	Name         string `json:"name"`
	Topic        string `json:"topic"`
	Payload      string `json:"payload"`
	QoS          QoS    `json:"qos"`
	Retain       bool   `json:"retain"`
	Display

	Inert bool `json:"inert,omitempty"`
}

func (b *ButtonPanel) Validate() error {
	if err := validatePanel(b.Name, b.ConnectionID, b.Topic, b.QoS, b.Size); err != nil {
		return err
	}
	if !topic.ValidName(b.Topic) {
		return NewValidationError("topic", b.Topic, "publish topic must not contain wildcards")
	}
	if b.Payload == "" {
		return NewValidationError("payload", b.Payload, "payload is required")
	}
	return nil
}

// UriLauncherPanel exposes the last URI received on its topic.
type UriLauncherPanel struct {
	ID           string `json:"id"`
	ConnectionID string `json:"connectionId"`
	Name         string `json:"name"`
	Topic        string `json:"topic"`
	QoS          QoS    `json:"qos"`
	URI          string `json:"uri,omitempty"`

	Inert bool `json:"inert,omitempty"`
}

func (u *UriLauncherPanel) Validate() error {
	if err := validatePanel(u.Name, u.ConnectionID, u.Topic, u.QoS, ""); err != nil {
		return err
	}
	if !topic.ValidFilter(u.Topic) {
		return NewValidationError("topic", u.Topic, "invalid topic filter")
	}
	return nil
}

func validatePanel(name, connectionID, topic string, qos QoS, size PanelSize) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("name", name, "name is required")
	}
	if strings.TrimSpace(connectionID) == "" {
		return NewValidationError("connectionId", connectionID, "connection is required")
	}
	if strings.TrimSpace(topic) == "" {
		return NewValidationError("topic", topic, "topic is required")
	}
	if !qos.Valid() {
		return NewValidationError("qos", strconv.Itoa(int(qos)), "qos must be 0, 1 or 2")
	}
	if !size.Valid() {
		return NewValidationError("size", string(size), "unknown panel size")
	}
	return nil
}

// SwitchUpdate is a partial edit of a SwitchPanel.
type SwitchUpdate struct {
	Name           *string    `json:"name,omitempty"`
	Topic          *string    `json:"topic,omitempty"`
	SubscribeTopic *string    `json:"subscribeTopic,omitempty"`
	PayloadOn      *string    `json:"payloadOn,omitempty"`
	PayloadOff     *string    `json:"payloadOff,omitempty"`
	QoS            *QoS       `json:"qos,omitempty"`
	Retain         *bool      `json:"retain,omitempty"`
	Icon           *string    `json:"icon,omitempty"`
	ColorOn        *string    `json:"colorOn,omitempty"`
	Size           *PanelSize `json:"size,omitempty"`
	Order          *int       `json:"order,omitempty"`
}

func (u *SwitchUpdate) Apply(s *SwitchPanel) {
	setString(&s.Name, u.Name)
	setString(&s.Topic, u.Topic)
	setString(&s.SubscribeTopic, u.SubscribeTopic)
	setString(&s.PayloadOn, u.PayloadOn)
	setString(&s.PayloadOff, u.PayloadOff)
	if u.QoS != nil {
		s.QoS = *u.QoS
	}
	if u.Retain != nil {
		s.Retain = *u.Retain
	}
	applyDisplay(&s.Display, u.Icon, u.ColorOn, u.Size, u.Order)
}

// ButtonUpdate is a partial edit of a ButtonPanel.
type ButtonUpdate struct {
	Name    *string    `json:"name,omitempty"`
	Topic   *string    `json:"topic,omitempty"`
	Payload *string    `json:"payload,omitempty"`
	QoS     *QoS       `json:"qos,omitempty"`
	Retain  *bool      `json:"retain,omitempty"`
	Icon    *string    `json:"icon,omitempty"`
	ColorOn *string    `json:"colorOn,omitempty"`
	Size    *PanelSize `json:"size,omitempty"`
	Order   *int       `json:"order,omitempty"`
}

func (u *ButtonUpdate) Apply(b *ButtonPanel) {
	setString(&b.Name, u.Name)
	setString(&b.Topic, u.Topic)
	setString(&b.Payload, u.Payload)
	if u.QoS != nil {
		b.QoS = *u.QoS
	}
	if u.Retain != nil {
		b.Retain = *u.Retain
	}
	applyDisplay(&b.Display, u.Icon, u.ColorOn, u.Size, u.Order)
}

// UriLauncherUpdate is a partial edit of a UriLauncherPanel. The uri itself is not editable.
type UriLauncherUpdate struct {
	Name  *string `json:"name,omitempty"`
	Topic *string `json:"topic,omitempty"`
	QoS   *QoS    `json:"qos,omitempty"`
}

func (u *UriLauncherUpdate) Apply(l *UriLauncherPanel) {
	setString(&l.Name, u.Name)
	setString(&l.Topic, u.Topic)
	if u.QoS != nil {
		l.QoS = *u.QoS
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func applyDisplay(d *Display, icon, color *string, size *PanelSize, order *int) {
	setString(&d.Icon, icon)
	setString(&d.ColorOn, color)
	if size != nil {
		d.Size = *size
	}
	if order != nil {
		d.Order = *order
	}
}
