package services

import (
	"context"
	"testing"

	"mqtt-panel/logging"
	"mqtt-panel/models"
	"mqtt-panel/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackupService(h *harness) *BackupService {
	return NewBackupService(h.manager, h.connections, h.panels, h.store, logging.Discard())
}

func sampleBackup() *models.Backup {
	return &models.Backup{
		Version: models.BackupVersion,
		Connections: []models.Connection{
			{ID: "conn_a", Name: "a", BrokerAddress: "a.broker", Port: 8883, Protocol: models.ProtocolTCPTLS},
		},
		Switches: []models.SwitchPanel{
			{ID: "switch_a", ConnectionID: "conn_a", Name: "light", Topic: "home/light", PayloadOn: "ON", PayloadOff: "OFF"},
			{ID: "switch_orphan", ConnectionID: "conn_unknown", Name: "x", Topic: "x", PayloadOn: "1", PayloadOff: "0"},
		},
		ButtonPanels: []models.ButtonPanel{
			{ID: "button_a", ConnectionID: "conn_a", Name: "bell", Topic: "home/bell", Payload: "ring"},
		},
		UriLaunchers: []models.UriLauncherPanel{
			{ID: "uri_a", ConnectionID: "conn_a", Name: "cam", Topic: "home/cam"},
		},
		Settings: map[string]interface{}{"gridColumns": float64(4)},
		Theme:    "dark",
	}
}

func TestImportMergeRemapsIDs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	existing := h.addConnection(t)
	svc := newBackupService(h)

	result, err := svc.Import(ctx, sampleBackup(), models.ImportMerge)
	require.NoError(t, err)
	assert.Equal(t, models.ImportMerge, result.Mode)
	assert.Equal(t, 1, result.Connections)
	assert.Equal(t, 1, result.Switches)
	assert.Equal(t, 1, result.ButtonPanels)
	assert.Equal(t, 1, result.UriLaunchers)
	assert.Equal(t, 1, result.Skipped)

	conns := h.manager.ListConnections()
	require.Len(t, conns, 2)
	assert.Equal(t, existing.ID, conns[0].ID)
	imported := conns[1]
	assert.NotEqual(t, "conn_a", imported.ID)

	switches := h.manager.ListSwitches("")
	require.Len(t, switches, 1)
	assert.NotEqual(t, "switch_a", switches[0].ID)
	assert.Equal(t, imported.ID, switches[0].ConnectionID)
	assert.Len(t, h.manager.ListButtons(imported.ID), 1)
	assert.Len(t, h.manager.ListUriLaunchers(imported.ID), 1)
}

func TestImportReplaceClearsState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	old := h.addConnection(t)
	h.addSwitch(t, old.ID, "old/topic")
	session := h.connect(t, old.ID)
	svc := newBackupService(h)

	result, err := svc.Import(ctx, sampleBackup(), models.ImportReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Connections)
	assert.Equal(t, 2, result.Switches)

	_, _, _, closed := session.snapshot()
	assert.True(t, closed)
	_, err = h.manager.GetConnection(old.ID)
	assert.True(t, models.IsConfigError(err))

	conn, err := h.manager.GetConnection("conn_a")
	require.NoError(t, err, "replace keeps ids as-is")
	assert.Equal(t, models.StatusDisconnected, conn.Status)

	orphan, err := h.manager.GetSwitch("switch_orphan")
	require.NoError(t, err)
	assert.True(t, orphan.Inert)
	kept, err := h.manager.GetSwitch("switch_a")
	require.NoError(t, err)
	assert.False(t, kept.Inert)
}

func TestImportRequiresVersionAndConnections(t *testing.T) {
	h := newHarness(t)
	svc := newBackupService(h)

	backup := sampleBackup()
	backup.Version = ""
	_, err := svc.Import(context.Background(), backup, models.ImportMerge)
	assert.True(t, models.IsValidationError(err))

	backup = sampleBackup()
	backup.Connections = nil
	_, err = svc.Import(context.Background(), backup, models.ImportReplace)
	assert.True(t, models.IsValidationError(err))

	_, err = svc.Import(context.Background(), sampleBackup(), "append")
	assert.True(t, models.IsValidationError(err))
}

func TestExportRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := newBackupService(h)
	_, err := svc.Import(ctx, sampleBackup(), models.ImportReplace)
	require.NoError(t, err)

	backup, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.BackupVersion, backup.Version)
	assert.False(t, backup.ExportDate.IsZero())
	assert.Len(t, backup.Connections, 1)
	assert.Len(t, backup.Switches, 2)
	assert.Equal(t, "dark", backup.Theme)
	assert.Equal(t, float64(4), backup.Settings["gridColumns"])

	var settings models.Settings
	found, err := storage.LoadDocument(ctx, h.store, storage.SettingsKey, &settings)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "dark", settings.Theme)

	other := newHarness(t)
	result, err := newBackupService(other).Import(ctx, backup, models.ImportMerge)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Connections)
	assert.Equal(t, 1, result.Switches, "the orphan switch has no connection in the file")
}

func TestImportAutoConnects(t *testing.T) {
	h := newHarness(t)
	backup := sampleBackup()
	backup.Connections[0].AutoConnect = true

	_, err := newBackupService(h).Import(context.Background(), backup, models.ImportReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, h.dialer.count())
	assert.Equal(t, models.StatusConnecting, h.manager.Status("conn_a"))
}

func TestImportWithoutAutoConnect(t *testing.T) {
	h := newHarness(t)
	backup := sampleBackup()
	backup.Connections[0].AutoConnect = true

	svc := newBackupService(h)
	svc.DisableAutoConnect()
	_, err := svc.Import(context.Background(), backup, models.ImportReplace)
	require.NoError(t, err)
	assert.Zero(t, h.dialer.count())
	assert.Equal(t, models.StatusDisconnected, h.manager.Status("conn_a"))
}

func TestImportReplaceGeneratesClientID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	backup := &models.Backup{
		Version: models.BackupVersion,
		Connections: []models.Connection{
			{ID: "conn_legacy", Name: "legacy", BrokerAddress: "legacy.broker", Port: 8883, Protocol: "tcp-ssl"},
		},
	}

	_, err := newBackupService(h).Import(ctx, backup, models.ImportReplace)
	require.NoError(t, err)

	conn, err := h.manager.GetConnection("conn_legacy")
	require.NoError(t, err)
	assert.Regexp(t, `^mqtt_[0-9a-f]{8}$`, conn.ClientID)
	assert.Equal(t, models.ProtocolTCPTLS, conn.Protocol)
	assert.False(t, conn.CreatedAt.IsZero())

	h.connect(t, "conn_legacy")
	assert.Equal(t, conn.ClientID, h.dialer.last(t).cfg.ClientID)
}

func TestImportReplaceSkipsInvalidRecords(t *testing.T) {
	h := newHarness(t)
	backup := sampleBackup()
	backup.Connections = append(backup.Connections,
		models.Connection{ID: "conn_noport", Name: "bad", BrokerAddress: "b.broker", Protocol: models.ProtocolTCPTLS},
		models.Connection{ID: "conn_a", Name: "dup", BrokerAddress: "c.broker", Port: 1883, Protocol: models.ProtocolTCPTLS},
	)
	backup.Switches = append(backup.Switches,
		models.SwitchPanel{ID: "switch_a", ConnectionID: "conn_a", Name: "dup", Topic: "dup", PayloadOn: "1", PayloadOff: "0"},
		models.SwitchPanel{ID: "switch_same", ConnectionID: "conn_a", Name: "same", Topic: "same", PayloadOn: "X", PayloadOff: "X"},
	)
	backup.ButtonPanels = append(backup.ButtonPanels,
		models.ButtonPanel{ID: "button_empty", ConnectionID: "conn_a", Name: "silent", Topic: "silent"},
	)

	result, err := newBackupService(h).Import(context.Background(), backup, models.ImportReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Connections)
	assert.Equal(t, 2, result.Switches)
	assert.Equal(t, 1, result.ButtonPanels)
	assert.Equal(t, 5, result.Skipped)

	_, err = h.manager.GetConnection("conn_noport")
	assert.True(t, models.IsConfigError(err))
	conn, err := h.manager.GetConnection("conn_a")
	require.NoError(t, err)
	assert.Equal(t, "a", conn.Name, "the first record with an id wins")
	sw, err := h.manager.GetSwitch("switch_a")
	require.NoError(t, err)
	assert.Equal(t, "light", sw.Name)
}
