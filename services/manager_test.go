package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"mqtt-panel/models"
	"mqtt-panel/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectStatusTransitions(t *testing.T) {
	h := newHarness(t)
	conn := h.addConnection(t)
	h.recorder.Clear()

	session := h.connect(t, conn.ID)

	assert.Equal(t, "ssl://test.broker:8883", session.cfg.BrokerURL)
	assert.True(t, session.cfg.CleanSession)
	assert.Regexp(t, `^mqtt_[0-9a-f]{8}$`, session.cfg.ClientID)
	assert.True(t, session.started)

	events := h.recorder.Recent(0)
	require.Len(t, events, 2)
	assert.Equal(t, models.StatusConnecting, events[0].Status)
	assert.Equal(t, models.LevelInfo, events[0].Level)
	assert.Equal(t, models.StatusConnected, events[1].Status)
	assert.Equal(t, models.LevelSuccess, events[1].Level)

	stored, err := h.connections.Get(conn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConnected, stored.Status)
	assert.Equal(t, models.StatusConnected, h.manager.Status(conn.ID))
}

func TestConcurrentConnectOpensOneSession(t *testing.T) {
	h := newHarness(t)
	conn := h.addConnection(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.manager.Connect(context.Background(), conn.ID))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.dialer.count())
	h.dialer.last(t).open()
	require.NoError(t, h.manager.Connect(context.Background(), conn.ID))
	assert.Equal(t, 1, h.dialer.count(), "connect while connected is a no-op")
}

func TestConnectUnknownConnection(t *testing.T) {
	h := newHarness(t)
	err := h.manager.Connect(context.Background(), "conn_missing")
	assert.True(t, models.IsConfigError(err))
	assert.Zero(t, h.dialer.count())
}

func TestDialErrorReturnsConnectError(t *testing.T) {
	h := newHarness(t)
	conn := h.addConnection(t)
	h.dialer.err = errBroker

	err := h.manager.Connect(context.Background(), conn.ID)
	assert.True(t, models.IsConnectError(err))
	assert.ErrorIs(t, err, errBroker)
	assert.Equal(t, models.StatusDisconnected, h.manager.Status(conn.ID))

	// the failed entry does not block a later attempt
	h.dialer.err = nil
	require.NoError(t, h.manager.Connect(context.Background(), conn.ID))
	assert.Equal(t, 1, h.dialer.count())
}

func TestConnectSubscribesEveryPanel(t *testing.T) {
	h := newHarness(t)
	conn := h.addConnection(t)
	ctx := context.Background()

	h.addSwitch(t, conn.ID, "home/light")
	_, err := h.manager.AddSwitch(ctx, models.SwitchPanel{
		ConnectionID:   conn.ID,
		Name:           "fan",
		Topic:          "home/fan/set",
		SubscribeTopic: "home/fan/state",
		PayloadOn:      "1",
		PayloadOff:     "0",
	})
	require.NoError(t, err)
	_, err = h.manager.AddUriLauncher(ctx, models.UriLauncherPanel{ConnectionID: conn.ID, Name: "cam", Topic: "home/cam/url"})
	require.NoError(t, err)
	_, err = h.manager.AddButton(ctx, models.ButtonPanel{ConnectionID: conn.ID, Name: "bell", Topic: "home/bell", Payload: "ring"})
	require.NoError(t, err)

	h.dialer.subscribeErrs = map[string]error{"home/light": errBroker}
	session := h.connect(t, conn.ID)

	subscribed, _, _, _ := session.snapshot()
	assert.ElementsMatch(t, []string{"home/fan/state", "home/cam/url"}, subscribed, "one failed topic does not abort the others")
	assert.Equal(t, models.StatusConnected, h.manager.Status(conn.ID))
}

func TestInboundPayloadIsTrimmed(t *testing.T) {
	h := newHarness(t)
	conn := h.addConnection(t)
	sw := h.addSwitch(t, conn.ID, "home/light")
	session := h.connect(t, conn.ID)

	session.deliver("home/light", " ON ")
	got, err := h.manager.GetSwitch(sw.ID)
	require.NoError(t, err)
	assert.True(t, got.State)
	assert.False(t, got.Stale)
	require.NotNil(t, got.LastUpdated)

	session.deliver("home/light", "toggle")
	got, _ = h.manager.GetSwitch(sw.ID)
	assert.True(t, got.State, "unknown payloads leave the state unchanged")

	session.deliver("home/light", "OFF\n")
	got, _ = h.manager.GetSwitch(sw.ID)
	assert.False(t, got.State)
}

func TestInboundMessageFansOut(t *testing.T) {
	h := newHarness(t)
	conn := h.addConnection(t)
	other := h.addConnection(t)
	first := h.addSwitch(t, conn.ID, "home/group")
	second := h.addSwitch(t, conn.ID, "home/group")
	elsewhere := h.addSwitch(t, other.ID, "home/group")
	session := h.connect(t, conn.ID)

	session.deliver("home/group", "ON")

	for _, id := range []string{first.ID, second.ID} {
		got, err := h.manager.GetSwitch(id)
		require.NoError(t, err)
		assert.True(t, got.State, id)
	}
	got, err := h.manager.GetSwitch(elsewhere.ID)
	require.NoError(t, err)
	assert.False(t, got.State, "panels of other connections are untouched")
}

func TestWildcardSubscribeTopic(t *testing.T) {
	h := newHarness(t)
	conn := h.addConnection(t)
	sw, err := h.manager.AddSwitch(context.Background(), models.SwitchPanel{
		ConnectionID:   conn.ID,
		Name:           "any",
		Topic:          "home/any/set",
		SubscribeTopic: "home/+/state",
		PayloadOn:      "on",
		PayloadOff:     "off",
	})
	require.NoError(t, err)
	session := h.connect(t, conn.ID)

	session.deliver("home/kitchen/state", "on")
	got, err := h.manager.GetSwitch(sw.ID)
	require.NoError(t, err)
	assert.True(t, got.State)
}

func TestUriLauncherLastWriteWins(t *testing.T) {
	h := newHarness(t)
	conn := h.addConnection(t)
	launcher, err := h.manager.AddUriLauncher(context.Background(), models.UriLauncherPanel{ConnectionID: conn.ID, Name: "cam", Topic: "cam/url"})
	require.NoError(t, err)

	_, err = h.manager.LaunchURI(launcher.ID)
	assert.True(t, models.IsConfigError(err), "nothing received yet")

	session := h.connect(t, conn.ID)
	session.deliver("cam/url", "https://first")
	session.deliver("cam/url", "not a uri at all")

	uri, err := h.manager.LaunchURI(launcher.ID)
	require.NoError(t, err)
	assert.Equal(t, "not a uri at all", uri)
}

func TestRemoveConnectionCascades(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	conn := h.addConnection(t)
	keep := h.addConnection(t)
	sw := h.addSwitch(t, conn.ID, "home/light")
	kept := h.addSwitch(t, keep.ID, "home/light")
	_, err := h.manager.AddButton(ctx, models.ButtonPanel{ConnectionID: conn.ID, Name: "bell", Topic: "bell", Payload: "ring"})
	require.NoError(t, err)
	session := h.connect(t, conn.ID)

	require.NoError(t, h.manager.RemoveConnection(ctx, conn.ID))

	_, _, _, closed := session.snapshot()
	assert.True(t, closed)
	_, err = h.manager.GetConnection(conn.ID)
	assert.True(t, models.IsConfigError(err))
	_, err = h.manager.GetSwitch(sw.ID)
	assert.True(t, models.IsConfigError(err))
	assert.Empty(t, h.manager.ListButtons(conn.ID))
	_, err = h.manager.GetSwitch(kept.ID)
	assert.NoError(t, err)

	// late events from the removed session change nothing
	before := len(h.recorder.Recent(0))
	session.deliver("home/light", "ON")
	session.h.OnConnect()
	session.h.OnConnectionLost(errBroker)
	assert.Len(t, h.recorder.Recent(0), before)
	got, _ := h.manager.GetSwitch(kept.ID)
	assert.False(t, got.State)

	raw, err := h.store.Load(ctx, storage.SwitchesKey)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), sw.ID)

	assert.NoError(t, h.manager.RemoveConnection(ctx, "conn_missing"), "unknown ids are ignored")
}

func TestRemoveLiveConnectionNotifiesDisconnected(t *testing.T) {
	h := newHarness(t)
	conn := h.addConnection(t)
	h.connect(t, conn.ID)
	h.recorder.Clear()

	require.NoError(t, h.manager.RemoveConnection(context.Background(), conn.ID))

	statuses := statusNotifications(h.recorder.Recent(0))
	require.Len(t, statuses, 1)
	assert.Equal(t, models.StatusDisconnected, statuses[0].Status)
	assert.Equal(t, conn.ID, statuses[0].ConnectionID)

	idle := h.addConnection(t)
	h.recorder.Clear()
	require.NoError(t, h.manager.RemoveConnection(context.Background(), idle.ID))
	assert.Empty(t, statusNotifications(h.recorder.Recent(0)), "no session, no status change")
}

func TestDisconnectDropsInFlightEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	conn := h.addConnection(t)
	sw := h.addSwitch(t, conn.ID, "home/light")
	session := h.connect(t, conn.ID)

	require.NoError(t, h.manager.Disconnect(ctx, conn.ID))
	stored, _ := h.connections.Get(conn.ID)
	assert.Equal(t, models.StatusDisconnected, stored.Status)

	session.deliver("home/light", "ON")
	session.h.OnConnect()
	got, _ := h.manager.GetSwitch(sw.ID)
	assert.False(t, got.State)
	stored, _ = h.connections.Get(conn.ID)
	assert.Equal(t, models.StatusDisconnected, stored.Status)

	before := len(h.recorder.Recent(0))
	require.NoError(t, h.manager.Disconnect(ctx, conn.ID))
	assert.Len(t, h.recorder.Recent(0), before, "second disconnect is a no-op")
}

func TestConnectionLostAndRetry(t *testing.T) {
	h := newHarness(t)
	conn := h.addConnection(t)
	session := h.connect(t, conn.ID)
	h.recorder.Clear()

	session.lose(errBroker)
	assert.Equal(t, models.StatusDisconnected, h.manager.Status(conn.ID))

	session.h.OnConnectError(errBroker)
	session.h.OnConnecting()
	session.h.OnConnect()

	events := statusNotifications(h.recorder.Recent(0))
	require.Len(t, events, 3)
	assert.Equal(t, models.LevelError, events[0].Level)
	assert.Equal(t, models.StatusDisconnected, events[0].Status)
	assert.Equal(t, models.StatusConnecting, events[1].Status)
	assert.Equal(t, models.StatusConnected, events[2].Status)
	assert.Equal(t, 1, h.dialer.count(), "the transport retries on the same session")
}

func TestToggleIsOptimisticWhenDisconnected(t *testing.T) {
	h := newHarness(t)
	conn := h.addConnection(t)
	sw := h.addSwitch(t, conn.ID, "home/light")
	h.recorder.Clear()

	updated, err := h.manager.ToggleSwitch(context.Background(), sw.ID)
	assert.True(t, models.IsPublishError(err))
	assert.ErrorIs(t, err, models.ErrNotConnected)
	assert.True(t, updated.State, "state flips even though nothing was published")

	stored, err := h.panels.GetSwitch(sw.ID)
	require.NoError(t, err)
	assert.True(t, stored.State)

	events := h.recorder.Recent(0)
	require.Len(t, events, 1)
	assert.Equal(t, models.LevelError, events[0].Level)
	assert.Zero(t, h.dialer.count())
}

func TestTogglePublishesOppositePayload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	conn := h.addConnection(t)
	sw, err := h.manager.AddSwitch(ctx, models.SwitchPanel{
		ConnectionID: conn.ID, Name: "light", Topic: "home/light",
		PayloadOn: "ON", PayloadOff: "OFF", QoS: 2, Retain: true,
	})
	require.NoError(t, err)
	session := h.connect(t, conn.ID)

	_, err = h.manager.ToggleSwitch(ctx, sw.ID)
	require.NoError(t, err)
	updated, err := h.manager.ToggleSwitch(ctx, sw.ID)
	require.NoError(t, err)
	assert.False(t, updated.State)

	_, _, published, _ := session.snapshot()
	assert.Equal(t, []publishedMessage{
		{Topic: "home/light", QoS: 2, Retained: true, Payload: "ON"},
		{Topic: "home/light", QoS: 2, Retained: true, Payload: "OFF"},
	}, published)
}

func TestAsyncPublishFailureIsNotified(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	conn := h.addConnection(t)
	session := h.connect(t, conn.ID)
	session.publishResult = errors.New("not authorized")
	h.recorder.Clear()

	require.NoError(t, h.manager.Publish(ctx, conn.ID, "home/raw", "x", 0, false))
	events := h.recorder.Recent(0)
	require.Len(t, events, 1)
	assert.Equal(t, models.LevelError, events[0].Level)
	assert.Contains(t, events[0].Message, "not authorized")
}

func TestPublishValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	conn := h.addConnection(t)

	assert.True(t, models.IsConfigError(h.manager.Publish(ctx, "conn_missing", "a", "b", 0, false)))
	assert.True(t, models.IsValidationError(h.manager.Publish(ctx, conn.ID, "a/#", "b", 0, false)))
}

func TestTriggerButton(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	conn := h.addConnection(t)
	button, err := h.manager.AddButton(ctx, models.ButtonPanel{ConnectionID: conn.ID, Name: "bell", Topic: "home/bell", Payload: "ring", QoS: 1})
	require.NoError(t, err)

	assert.True(t, models.IsPublishError(h.manager.TriggerButton(ctx, button.ID)))

	session := h.connect(t, conn.ID)
	require.NoError(t, h.manager.TriggerButton(ctx, button.ID))
	_, _, published, _ := session.snapshot()
	assert.Equal(t, []publishedMessage{{Topic: "home/bell", QoS: 1, Payload: "ring"}}, published)
}

func TestAddRemovePanelLeavesNoTrace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	conn := h.addConnection(t)

	sw := h.addSwitch(t, conn.ID, "home/light")
	require.NoError(t, h.manager.RemoveSwitch(ctx, sw.ID))

	_, err := h.manager.GetSwitch(sw.ID)
	assert.True(t, models.IsConfigError(err))
	for _, key := range storage.AllKeys {
		raw, err := h.store.Load(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		require.NoError(t, err)
		assert.False(t, strings.Contains(string(raw), sw.ID), key)
	}
}

func TestAddPanelToUnknownConnection(t *testing.T) {
	h := newHarness(t)
	_, err := h.manager.AddSwitch(context.Background(), models.SwitchPanel{
		ConnectionID: "conn_missing", Name: "x", Topic: "t", PayloadOn: "1", PayloadOff: "0",
	})
	assert.True(t, models.IsConfigError(err))
	assert.Empty(t, h.manager.ListSwitches(""))
}

func TestAddPanelRejectsDuplicateID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	conn := h.addConnection(t)
	panel := models.SwitchPanel{
		ID: "switch_x", ConnectionID: conn.ID, Name: "x", Topic: "t", PayloadOn: "1", PayloadOff: "0",
	}

	_, err := h.manager.AddSwitch(ctx, panel)
	require.NoError(t, err)
	_, err = h.manager.AddSwitch(ctx, panel)
	assert.True(t, models.IsValidationError(err))

	require.NoError(t, h.manager.RemoveSwitch(ctx, "switch_x"))
	assert.Empty(t, h.manager.ListSwitches(""))
}

func TestPanelSubscriptionsFollowLiveSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	conn := h.addConnection(t)
	session := h.connect(t, conn.ID)

	first := h.addSwitch(t, conn.ID, "home/shared")
	second := h.addSwitch(t, conn.ID, "home/shared")
	subscribed, _, _, _ := session.snapshot()
	assert.Equal(t, []string{"home/shared", "home/shared"}, subscribed)

	require.NoError(t, h.manager.RemoveSwitch(ctx, first.ID))
	_, unsubscribed, _, _ := session.snapshot()
	assert.Empty(t, unsubscribed, "topic still used by another switch")

	require.NoError(t, h.manager.RemoveSwitch(ctx, second.ID))
	_, unsubscribed, _, _ = session.snapshot()
	assert.Equal(t, []string{"home/shared"}, unsubscribed)
}

func TestUpdateDoesNotResubscribe(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	conn := h.addConnection(t)
	sw := h.addSwitch(t, conn.ID, "home/old")
	session := h.connect(t, conn.ID)

	newTopic := "home/new"
	_, err := h.manager.UpdateSwitch(ctx, sw.ID, models.SwitchUpdate{Topic: &newTopic})
	require.NoError(t, err)
	subscribed, _, _, _ := session.snapshot()
	assert.Equal(t, []string{"home/old"}, subscribed)

	require.NoError(t, h.manager.Resubscribe(ctx, sw.ID))
	subscribed, _, _, _ = session.snapshot()
	assert.Equal(t, []string{"home/old", "home/new"}, subscribed)

	assert.True(t, models.IsConfigError(h.manager.Resubscribe(ctx, "switch_missing")))
}

func TestReconnectUsesUpdatedSettings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	conn := h.addConnection(t)
	first := h.connect(t, conn.ID)

	address := "other.broker"
	_, err := h.manager.UpdateConnection(ctx, conn.ID, models.ConnectionUpdate{BrokerAddress: &address})
	require.NoError(t, err)
	assert.Equal(t, 1, h.dialer.count(), "update does not reconnect")

	require.NoError(t, h.manager.Reconnect(ctx, conn.ID))
	_, _, _, closed := first.snapshot()
	assert.True(t, closed)
	assert.Equal(t, "ssl://other.broker:8883", h.dialer.last(t).cfg.BrokerURL)
}

func TestStartLoadsRegistriesAndAutoConnects(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	require.NoError(t, store.Save(ctx, storage.ConnectionsKey, []byte(`[
		{"id":"conn_auto","name":"auto","brokerAddress":"h","port":8884,"protocol":"websocket-secure","autoConnect":true,"status":"connected"},
		{"id":"conn_manual","name":"manual","brokerAddress":"h","port":8883,"protocol":"tcp-tls","status":"connected"}
	]`)))
	require.NoError(t, store.Save(ctx, storage.SwitchesKey, []byte(`[
		{"id":"switch_1","connectionId":"conn_auto","name":"a","topic":"t","payloadOn":"1","payloadOff":"0","qos":0,"state":true},
		{"id":"switch_orphan","connectionId":"conn_gone","name":"b","topic":"t","payloadOn":"1","payloadOff":"0","qos":0}
	]`)))

	h := newHarnessWithStore(t, store)
	require.NoError(t, h.manager.Start(ctx))

	require.Equal(t, 1, h.dialer.count())
	assert.Equal(t, "wss://h:8884/mqtt", h.dialer.last(t).cfg.BrokerURL)
	manual, err := h.manager.GetConnection("conn_manual")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisconnected, manual.Status)

	sw, err := h.manager.GetSwitch("switch_1")
	require.NoError(t, err)
	assert.True(t, sw.State)
	assert.True(t, sw.Stale)

	_, err = h.manager.ToggleSwitch(ctx, "switch_orphan")
	assert.True(t, models.IsConfigError(err), "inert panels fail softly")
}
