package mqtt

import (
	"net"
	"sync"
	"testing"
	"time"

	"mqtt-panel/logging"
	"mqtt-panel/models"

	mqttserver "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func startBroker(t *testing.T) (*mqttserver.Server, string) {
	t.Helper()
	addr := freeAddress(t)

	server := mqttserver.New(&mqttserver.Options{InlineClient: true})
	require.NoError(t, server.AddHook(new(auth.AllowHook), nil))
	require.NoError(t, server.AddListener(listeners.NewTCP(listeners.Config{ID: "test", Address: addr})))
	go func() {
		_ = server.Serve()
	}()
	t.Cleanup(func() { _ = server.Close() })
	return server, "tcp://" + addr
}

func testOptions() Options {
	return Options{
		ProtocolVersion:   4,
		KeepAlive:         30 * time.Second,
		ConnectTimeout:    2 * time.Second,
		ReconnectInterval: 100 * time.Millisecond,
		OperationTimeout:  2 * time.Second,
	}
}

type received struct {
	topic   string
	payload string
}

type events struct {
	connecting int
	connected  int
	errors     int
	messages   []received
}

type recorder struct {
	mu sync.Mutex
	ev events
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnConnecting:     func() { r.mu.Lock(); r.ev.connecting++; r.mu.Unlock() },
		OnConnect:        func() { r.mu.Lock(); r.ev.connected++; r.mu.Unlock() },
		OnConnectError:   func(error) { r.mu.Lock(); r.ev.errors++; r.mu.Unlock() },
		OnConnectionLost: func(error) {},
		OnMessage: func(topic string, payload []byte, _ bool) {
			r.mu.Lock()
			r.ev.messages = append(r.ev.messages, received{topic, string(payload)})
			r.mu.Unlock()
		},
	}
}

func (r *recorder) snapshot() events {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev := r.ev
	ev.messages = append([]received(nil), r.ev.messages...)
	return ev
}

func TestClientSubscribeAndPublish(t *testing.T) {
	server, brokerURL := startBroker(t)

	rec := &recorder{}
	session, err := NewDialer(logging.Discard()).Dial(SessionConfig{
		BrokerURL:    brokerURL,
		ClientID:     "mqtt_test0001",
		CleanSession: true,
		Options:      testOptions(),
	}, rec.handlers())
	require.NoError(t, err)
	defer session.Close()

	session.Start()
	require.Eventually(t, session.IsConnected, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return rec.snapshot().connected == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, session.Subscribe("home/lamp/state", 0))
	require.NoError(t, server.Publish("home/lamp/state", []byte(" ON "), false, 0))
	require.Eventually(t, func() bool { return len(rec.snapshot().messages) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, received{"home/lamp/state", " ON "}, rec.snapshot().messages[0])

	got := make(chan string, 1)
	require.NoError(t, server.Subscribe("home/lamp/set", 1, func(_ *mqttserver.Client, _ packets.Subscription, pk packets.Packet) {
		got <- string(pk.Payload)
	}))

	published := make(chan error, 1)
	require.NoError(t, session.Publish("home/lamp/set", 1, false, []byte("OFF"), func(err error) { published <- err }))
	select {
	case err := <-published:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("publish was not acknowledged")
	}
	select {
	case payload := <-got:
		assert.Equal(t, "OFF", payload)
	case <-time.After(3 * time.Second):
		t.Fatal("broker did not receive the publish")
	}

	require.NoError(t, session.Unsubscribe("home/lamp/state"))
}

func TestClientRetriesUntilClosed(t *testing.T) {
	rec := &recorder{}
	session, err := NewDialer(logging.Discard()).Dial(SessionConfig{
		BrokerURL: "tcp://" + freeAddress(t),
		ClientID:  "mqtt_test0002",
		Options:   testOptions(),
	}, rec.handlers())
	require.NoError(t, err)

	session.Start()
	require.Eventually(t, func() bool { return rec.snapshot().errors >= 2 }, 5*time.Second, 20*time.Millisecond)
	assert.False(t, session.IsConnected())

	err = session.Publish("x", 0, false, []byte("y"), nil)
	assert.ErrorIs(t, err, models.ErrNotConnected)

	session.Close()
	after := rec.snapshot()
	time.Sleep(300 * time.Millisecond)
	assert.LessOrEqual(t, rec.snapshot().errors, after.errors+1, "no retries after close")
	assert.GreaterOrEqual(t, after.connecting, after.errors)
}

func TestClientCloseSilencesHandlers(t *testing.T) {
	server, brokerURL := startBroker(t)

	rec := &recorder{}
	session, err := NewDialer(logging.Discard()).Dial(SessionConfig{
		BrokerURL: brokerURL,
		ClientID:  "mqtt_test0003",
		Options:   testOptions(),
	}, rec.handlers())
	require.NoError(t, err)

	session.Start()
	require.Eventually(t, session.IsConnected, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, session.Subscribe("a/b", 0))
	session.Close()
	assert.False(t, session.IsConnected())

	require.NoError(t, server.Publish("a/b", []byte("late"), false, 0))
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, rec.snapshot().messages)
}

func TestClientReconnectsAfterFixedInterval(t *testing.T) {
	server, brokerURL := startBroker(t)

	var (
		mu        sync.Mutex
		lostAt    time.Time
		connects  []time.Time
		attempts  int
		interval  = 300 * time.Millisecond
		opts      = testOptions()
		connected = func() int { mu.Lock(); defer mu.Unlock(); return len(connects) }
	)
	opts.ReconnectInterval = interval
	session, err := NewDialer(logging.Discard()).Dial(SessionConfig{
		BrokerURL:    brokerURL,
		ClientID:     "mqtt_test0004",
		CleanSession: true,
		Options:      opts,
	}, Handlers{
		OnConnecting:     func() { mu.Lock(); attempts++; mu.Unlock() },
		OnConnect:        func() { mu.Lock(); connects = append(connects, time.Now()); mu.Unlock() },
		OnConnectionLost: func(error) { mu.Lock(); lostAt = time.Now(); mu.Unlock() },
	})
	require.NoError(t, err)
	defer session.Close()

	session.Start()
	require.Eventually(t, func() bool { return connected() == 1 }, 5*time.Second, 10*time.Millisecond)

	cl, ok := server.Clients.Get("mqtt_test0004")
	require.True(t, ok)
	cl.Stop(assert.AnError)

	require.Eventually(t, func() bool { return connected() == 2 }, 5*time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.False(t, lostAt.IsZero())
	assert.GreaterOrEqual(t, connects[1].Sub(lostAt), interval)
	assert.Equal(t, 2, attempts, "one connecting event per attempt")
}
