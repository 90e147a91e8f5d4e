package models

import "time"

// NotificationLevel mirrors the toast kinds of the dashboard.
type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
	LevelInfo    NotificationLevel = "info"
)

// Notification is a user-visible event. ConnectionID and Status are set for session events.
type Notification struct {
	Level        NotificationLevel `json:"level"`
	Message      string            `json:"message"`
	ConnectionID string            `json:"connectionId,omitempty"`
	Status       ConnectionStatus  `json:"status,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}
