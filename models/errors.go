package models

import (
	"errors"
	"fmt"
)

// ErrNotConnected is the cause of a PublishError when no live session exists.
var ErrNotConnected = errors.New("not connected")

// ConfigError reports an unknown or dangling identifier.
type ConfigError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Reason)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ValidationError reports a rejected user-supplied field.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s (value: %s): %s", e.Field, e.Value, e.Message)
}

// ConnectError is a transport or authentication failure of a broker session.
type ConnectError struct {
	ConnectionID string
	Cause        error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connection %s: %v", e.ConnectionID, e.Cause)
}

func (e *ConnectError) Unwrap() error { return e.Cause }

// PublishError is returned when a message could not be handed to the broker.
type PublishError struct {
	ConnectionID string
	Topic        string
	Cause        error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s on connection %s: %v", e.Topic, e.ConnectionID, e.Cause)
}

func (e *PublishError) Unwrap() error { return e.Cause }

// SubscribeError is a per-topic subscription failure. It is logged, never returned to callers.
type SubscribeError struct {
	ConnectionID string
	Topic        string
	Cause        error
}

func (e *SubscribeError) Error() string {
	return fmt.Sprintf("subscribe to %s on connection %s: %v", e.Topic, e.ConnectionID, e.Cause)
}

func (e *SubscribeError) Unwrap() error { return e.Cause }

func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

func NewNotFoundError(entity, id string) *ConfigError {
	return &ConfigError{Entity: entity, ID: id}
}

// NewDanglingError reports a record pointing at a Connection that does not exist.
func NewDanglingError(entity, id, connectionID string) *ConfigError {
	return &ConfigError{Entity: entity, ID: id, Reason: fmt.Sprintf("connection %s does not exist", connectionID)}
}

func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsPublishError(err error) bool {
	var e *PublishError
	return errors.As(err, &e)
}

func IsConnectError(err error) bool {
	var e *ConnectError
	return errors.As(err, &e)
}
