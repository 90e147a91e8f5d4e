package models

import "strconv"

// PublishRequest is a raw publish issued by the dashboard.
type PublishRequest struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
	QoS     QoS    `json:"qos"`
	Retain  bool   `json:"retain"`
}

func (r *PublishRequest) Validate() error {
	if r.Topic == "" {
		return NewValidationError("topic", r.Topic, "topic is required")
	}
	if !r.QoS.Valid() {
		return NewValidationError("qos", strconv.Itoa(int(r.QoS)), "qos must be 0, 1 or 2")
	}
	return nil
}

// ReorderRequest lists switch ids in display order.
type ReorderRequest struct {
	IDs []string `json:"ids"`
}

// LoginRequest carries the demo credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
