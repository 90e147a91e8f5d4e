// Package notify delivers user-visible notifications.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"mqtt-panel/models"
)

// Sink receives notifications. Implementations must be safe for concurrent use and must not block.
type Sink interface {
	Notify(n models.Notification)
}

// LogSink writes notifications to the service log.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "notifications")}
}

func (s *LogSink) Notify(n models.Notification) {
	attrs := []any{"notification_level", string(n.Level)}
	if n.ConnectionID != "" {
		attrs = append(attrs, "connectionId", n.ConnectionID)
	}
	if n.Status != "" {
		attrs = append(attrs, "status", string(n.Status))
	}
	if n.Level == models.LevelError {
		s.logger.Warn(n.Message, attrs...)
		return
	}
	s.logger.Info(n.Message, attrs...)
}

// Recorder keeps the most recent notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []models.Notification
	limit int
}

func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 100
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Notify(n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	if over := len(r.items) - r.limit; over > 0 {
		r.items = append(r.items[:0:0], r.items[over:]...)
	}
}

// Recent returns up to limit notifications, newest last. limit <= 0 returns all.
func (r *Recorder) Recent(limit int) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := 0
	if limit > 0 && limit < len(r.items) {
		start = len(r.items) - limit
	}
	out := make([]models.Notification, len(r.items)-start)
	copy(out, r.items[start:])
	return out
}

// Since returns the notifications newer than t.
func (r *Recorder) Since(t time.Time) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.items {
		if n.Timestamp.After(t) {
			out = append(out, n)
		}
	}
	return out
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()
}

// Multi fans a notification out to several sinks.
type Multi []Sink

func (m Multi) Notify(n models.Notification) {
	for _, s := range m {
		s.Notify(n)
	}
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(models.Notification) {}
