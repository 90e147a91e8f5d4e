package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mqtt-panel/models"
	"mqtt-panel/repositories/interfaces"
	"mqtt-panel/storage"
)

// BackupService exports and imports the whole dashboard configuration.
type BackupService struct {
	manager     *Manager
	connections interfaces.ConnectionRepositoryInterface
	panels      interfaces.PanelRepositoryInterface
	store       storage.Store
	logger      *slog.Logger
	now         func() time.Time

	// skipConnect leaves imported Connections disconnected.
	skipConnect bool
}

func NewBackupService(manager *Manager, connections interfaces.ConnectionRepositoryInterface, panels interfaces.PanelRepositoryInterface, store storage.Store, logger *slog.Logger) *BackupService {
	return &BackupService{
		manager:     manager,
		connections: connections,
		panels:      panels,
		store:       store,
		logger:      logger.With("component", "backup_service"),
		now:         time.Now,
	}
}

// DisableAutoConnect stops Import from connecting autoConnect Connections, for offline use.
func (s *BackupService) DisableAutoConnect() {
	s.skipConnect = true
}

func (s *BackupService) Export(ctx context.Context) (*models.Backup, error) {
	var settings models.Settings
	if _, err := storage.LoadDocument(ctx, s.store, storage.SettingsKey, &settings); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	backup := &models.Backup{
		Version:      models.BackupVersion,
		ExportDate:   s.now().UTC(),
		Connections:  s.connections.List(),
		Switches:     s.panels.ListSwitches(""),
		ButtonPanels: s.panels.ListButtons(""),
		UriLaunchers: s.panels.ListUriLaunchers(""),
		Settings:     settings.Values,
		Theme:        settings.Theme,
		Language:     settings.Language,
	}
	for i := range backup.Connections {
		backup.Connections[i].Status = models.StatusDisconnected
	}
	return backup, nil
}

// Import applies a backup. merge adds the file's records under fresh ids; replace closes every
// session and swaps all state for the file's records.
func (s *BackupService) Import(ctx context.Context, backup *models.Backup, mode models.ImportMode) (*models.ImportResult, error) {
	if backup == nil || backup.Version == "" {
		return nil, models.NewValidationError("version", "", "backup version is required")
	}
	if backup.Connections == nil {
		return nil, models.NewValidationError("connections", "", "backup connections are required")
	}

	var (
		result *models.ImportResult
		err    error
	)
	switch mode {
	case models.ImportMerge, "":
		result, err = s.merge(ctx, backup)
	case models.ImportReplace:
		result, err = s.replace(ctx, backup)
	default:
		return nil, models.NewValidationError("mode", string(mode), "mode must be merge or replace")
	}
	if err != nil {
		return nil, err
	}

	if err := s.importSettings(ctx, backup, result.Mode); err != nil {
		return nil, err
	}

	s.logger.Info("Backup imported", "mode", result.Mode, "connections", result.Connections,
		"switches", result.Switches, "buttons", result.ButtonPanels, "uri_launchers", result.UriLaunchers, "skipped", result.Skipped)
	s.manager.notify(models.LevelSuccess, fmt.Sprintf("Backup imported (%s): %d connections, %d panels",
		result.Mode, result.Connections, result.Switches+result.ButtonPanels+result.UriLaunchers), "", "")

	s.connectImported(ctx)
	return result, nil
}

func (s *BackupService) merge(ctx context.Context, backup *models.Backup) (*models.ImportResult, error) {
	result := &models.ImportResult{Mode: models.ImportMerge}
	ids := make(map[string]string, len(backup.Connections))

	for _, conn := range backup.Connections {
		oldID := conn.ID
		conn.ID = ""
		conn.CreatedAt = time.Time{}
		created, err := s.connections.Create(ctx, conn)
		if err != nil {
			if models.IsValidationError(err) {
				s.logger.Warn("Skipping invalid connection", "id", oldID, slog.Any("error", err))
				result.Skipped++
				continue
			}
			return nil, err
		}
		if oldID != "" {
			ids[oldID] = created.ID
		}
		result.Connections++
	}

	for _, panel := range backup.Switches {
		connID, ok := ids[panel.ConnectionID]
		if !ok {
			result.Skipped++
			continue
		}
		panel.ID, panel.ConnectionID = "", connID
		if _, err := s.panels.CreateSwitch(ctx, panel); err != nil {
			if !s.skippable(err, "switch", panel.Name) {
				return nil, err
			}
			result.Skipped++
			continue
		}
		result.Switches++
	}
	for _, panel := range backup.ButtonPanels {
		connID, ok := ids[panel.ConnectionID]
		if !ok {
			result.Skipped++
			continue
		}
		panel.ID, panel.ConnectionID = "", connID
		if _, err := s.panels.CreateButton(ctx, panel); err != nil {
			if !s.skippable(err, "button", panel.Name) {
				return nil, err
			}
			result.Skipped++
			continue
		}
		result.ButtonPanels++
	}
	for _, panel := range backup.UriLaunchers {
		connID, ok := ids[panel.ConnectionID]
		if !ok {
			result.Skipped++
			continue
		}
		panel.ID, panel.ConnectionID = "", connID
		if _, err := s.panels.CreateUriLauncher(ctx, panel); err != nil {
			if !s.skippable(err, "uriLauncher", panel.Name) {
				return nil, err
			}
			result.Skipped++
			continue
		}
		result.UriLaunchers++
	}
	return result, nil
}

func (s *BackupService) skippable(err error, kind, name string) bool {
	if !models.IsValidationError(err) {
		return false
	}
	s.logger.Warn("Skipping invalid panel", "kind", kind, "name", name, slog.Any("error", err))
	return true
}

func (s *BackupService) replace(ctx context.Context, backup *models.Backup) (*models.ImportResult, error) {
	result := &models.ImportResult{Mode: models.ImportReplace}
	s.manager.DisconnectAll(ctx)

	conns := make([]models.Connection, 0, len(backup.Connections))
	known := make(map[string]bool, len(backup.Connections))
	for _, conn := range backup.Connections {
		if conn.ID == "" || known[conn.ID] {
			result.Skipped++
			continue
		}
		conn.Protocol = conn.Protocol.Normalize()
		if err := conn.Validate(); err != nil {
			s.logger.Warn("Skipping invalid connection", "id", conn.ID, slog.Any("error", err))
			result.Skipped++
			continue
		}
		known[conn.ID] = true
		conns = append(conns, conn)
	}
	exists := func(id string) bool { return known[id] }

	switches := usable(s.logger, backup.Switches, "switch",
		func(p *models.SwitchPanel) (string, error) { return p.ID, p.Validate() }, &result.Skipped)
	buttons := usable(s.logger, backup.ButtonPanels, "button",
		func(p *models.ButtonPanel) (string, error) { return p.ID, p.Validate() }, &result.Skipped)
	launchers := usable(s.logger, backup.UriLaunchers, "uriLauncher",
		func(p *models.UriLauncherPanel) (string, error) { return p.ID, p.Validate() }, &result.Skipped)

	if err := s.connections.ReplaceAll(ctx, conns); err != nil {
		return nil, err
	}
	if err := s.panels.ReplaceAll(ctx, switches, buttons, launchers, exists); err != nil {
		return nil, err
	}

	result.Connections = len(conns)
	result.Switches = len(switches)
	result.ButtonPanels = len(buttons)
	result.UriLaunchers = len(launchers)
	return result, nil
}

// usable keeps the first valid record for each id, counting the rest in skipped.
func usable[T any](logger *slog.Logger, records []T, kind string, check func(*T) (string, error), skipped *int) []T {
	out := make([]T, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i := range records {
		id, err := check(&records[i])
		switch {
		case id == "" || seen[id]:
		case err != nil:
			logger.Warn("Skipping invalid panel", "kind", kind, "id", id, slog.Any("error", err))
		default:
			seen[id] = true
			out = append(out, records[i])
			continue
		}
		*skipped++
	}
	return out
}

func (s *BackupService) importSettings(ctx context.Context, backup *models.Backup, mode models.ImportMode) error {
	if backup.Settings == nil && backup.Theme == "" && backup.Language == "" {
		return nil
	}

	var settings models.Settings
	if mode == models.ImportMerge {
		if _, err := storage.LoadDocument(ctx, s.store, storage.SettingsKey, &settings); err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
	}
	if settings.Values == nil {
		settings.Values = make(map[string]interface{}, len(backup.Settings))
	}
	for k, v := range backup.Settings {
		settings.Values[k] = v
	}
	if backup.Theme != "" {
		settings.Theme = backup.Theme
	}
	if backup.Language != "" {
		settings.Language = backup.Language
	}

	if err := storage.SaveDocument(ctx, s.store, storage.SettingsKey, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// connectImported connects autoConnect Connections that have no session yet.
func (s *BackupService) connectImported(ctx context.Context) {
	if s.skipConnect {
		return
	}
	for _, conn := range s.connections.List() {
		if !conn.AutoConnect {
			continue
		}
		if err := s.manager.Connect(ctx, conn.ID); err != nil {
			s.logger.Error("Auto-connect after import failed", "connectionId", conn.ID, slog.Any("error", err))
		}
	}
}
