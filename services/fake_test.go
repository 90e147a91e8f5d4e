package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mqtt-panel/logging"
	"mqtt-panel/models"
	"mqtt-panel/mqtt"
	"mqtt-panel/notify"
	"mqtt-panel/repositories"
	"mqtt-panel/storage"

	"github.com/stretchr/testify/require"
)

type publishedMessage struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  string
}

// fakeSession is driven by the test: open, lose and deliver fire the handlers synchronously.
type fakeSession struct {
	mu            sync.Mutex
	cfg           mqtt.SessionConfig
	h             mqtt.Handlers
	started       bool
	closed        bool
	connected     bool
	subscribed    []string
	unsubscribed  []string
	published     []publishedMessage
	subscribeErrs map[string]error
	publishResult error
}

func (s *fakeSession) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
}

func (s *fakeSession) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSession) Subscribe(topic string, _ byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.subscribeErrs[topic]; err != nil {
		return err
	}
	s.subscribed = append(s.subscribed, topic)
	return nil
}

func (s *fakeSession) Unsubscribe(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribed = append(s.unsubscribed, topic)
	return nil
}

func (s *fakeSession) Publish(topic string, qos byte, retained bool, payload []byte, done func(error)) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return models.ErrNotConnected
	}
	s.published = append(s.published, publishedMessage{topic, qos, retained, string(payload)})
	result := s.publishResult
	s.mu.Unlock()
	if done != nil {
		done(result)
	}
	return nil
}

func (s *fakeSession) Close() {
	s.mu.Lock()
	s.closed = true
	s.connected = false
	s.mu.Unlock()
}

func (s *fakeSession) open() {
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	s.h.OnConnecting()
	s.h.OnConnect()
}

func (s *fakeSession) lose(err error) {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	s.h.OnConnectionLost(err)
}

func (s *fakeSession) deliver(topic, payload string) {
	s.h.OnMessage(topic, []byte(payload), false)
}

func (s *fakeSession) snapshot() (subscribed, unsubscribed []string, published []publishedMessage, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.subscribed...),
		append([]string(nil), s.unsubscribed...),
		append([]publishedMessage(nil), s.published...),
		s.closed
}

type fakeDialer struct {
	mu            sync.Mutex
	sessions      []*fakeSession
	err           error
	subscribeErrs map[string]error
}

func (d *fakeDialer) Dial(cfg mqtt.SessionConfig, h mqtt.Handlers) (mqtt.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	s := &fakeSession{cfg: cfg, h: h, subscribeErrs: d.subscribeErrs}
	d.sessions = append(d.sessions, s)
	return s, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

func (d *fakeDialer) last(t *testing.T) *fakeSession {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.sessions, "no session was dialed")
	return d.sessions[len(d.sessions)-1]
}

type harness struct {
	manager     *Manager
	dialer      *fakeDialer
	recorder    *notify.Recorder
	store       *storage.MemStore
	connections *repositories.ConnectionRepository
	panels      *repositories.PanelRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithStore(t, storage.NewMemStore())
}

func newHarnessWithStore(t *testing.T, store *storage.MemStore) *harness {
	t.Helper()
	logger := logging.Discard()
	h := &harness{
		dialer:      &fakeDialer{},
		recorder:    notify.NewRecorder(100),
		store:       store,
		connections: repositories.NewConnectionRepository(store, logger),
		panels:      repositories.NewPanelRepository(store, logger),
	}
	h.manager = NewManager(h.connections, h.panels, h.dialer, h.recorder, mqtt.Options{TCPMode: "tls", ProtocolVersion: 4}, 5*time.Second, logger)
	t.Cleanup(h.manager.Shutdown)
	return h
}

func (h *harness) addConnection(t *testing.T) models.Connection {
	t.Helper()
	conn, err := h.manager.AddConnection(context.Background(), models.Connection{
		Name:          "test",
		BrokerAddress: "test.broker",
		Port:          8883,
		Protocol:      models.ProtocolTCPTLS,
		CleanSession:  true,
	})
	require.NoError(t, err)
	return conn
}

// connect opens a session for conn and returns it.
func (h *harness) connect(t *testing.T, id string) *fakeSession {
	t.Helper()
	require.NoError(t, h.manager.Connect(context.Background(), id))
	session := h.dialer.last(t)
	session.open()
	return session
}

func (h *harness) addSwitch(t *testing.T, connID, topic string) models.SwitchPanel {
	t.Helper()
	sw, err := h.manager.AddSwitch(context.Background(), models.SwitchPanel{
		ConnectionID: connID,
		Name:         "light",
		Topic:        topic,
		PayloadOn:    "ON",
		PayloadOff:   "OFF",
		QoS:          1,
	})
	require.NoError(t, err)
	return sw
}

// statusNotifications keeps only session status events.
func statusNotifications(all []models.Notification) []models.Notification {
	var out []models.Notification
	for _, n := range all {
		if n.Status != "" {
			out = append(out, n)
		}
	}
	return out
}

var errBroker = errors.New("broker unavailable")
