package repositories

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"mqtt-panel/models"
	"mqtt-panel/repositories/base"
	"mqtt-panel/repositories/interfaces"
	"mqtt-panel/storage"
	"mqtt-panel/topic"
	"mqtt-panel/utils"
)

// PanelRepository implements PanelRepositoryInterface over one catalog per panel kind.
type PanelRepository struct {
	switches  *base.Catalog[models.SwitchPanel]
	buttons   *base.Catalog[models.ButtonPanel]
	launchers *base.Catalog[models.UriLauncherPanel]
	logger    *slog.Logger
	now       func() time.Time
}

// NewPanelRepository creates a new instance of PanelRepository.
func NewPanelRepository(store storage.Store, logger *slog.Logger) *PanelRepository {
	logger = logger.With("component", "panel_repository")
	return &PanelRepository{
		switches: base.NewCatalog(store, storage.SwitchesKey, "switches",
			func(p *models.SwitchPanel) string { return p.ID }, logger),
		buttons: base.NewCatalog(store, storage.ButtonsKey, "buttons",
			func(p *models.ButtonPanel) string { return p.ID }, logger),
		launchers: base.NewCatalog(store, storage.UriLaunchersKey, "uri_launchers",
			func(p *models.UriLauncherPanel) string { return p.ID }, logger),
		logger: logger,
		now:    time.Now,
	}
}

func (r *PanelRepository) Load(ctx context.Context, exists func(connectionID string) bool) error {
	if err := r.switches.Load(ctx, func(p *models.SwitchPanel) {
		p.Stale = true
		p.Inert = r.dangling("switch", p.ID, p.ConnectionID, exists)
	}); err != nil {
		return err
	}
	if err := r.buttons.Load(ctx, func(p *models.ButtonPanel) {
		p.Inert = r.dangling("button", p.ID, p.ConnectionID, exists)
	}); err != nil {
		return err
	}
	return r.launchers.Load(ctx, func(p *models.UriLauncherPanel) {
		p.URI = ""
		p.Inert = r.dangling("uriLauncher", p.ID, p.ConnectionID, exists)
	})
}

func (r *PanelRepository) dangling(kind, id, connectionID string, exists func(string) bool) bool {
	if exists(connectionID) {
		return false
	}
	r.logger.Warn("Panel references an unknown connection, keeping it inert", "kind", kind, "id", id, "connectionId", connectionID)
	return true
}

// ===================================================================
// SWITCHES
// ===================================================================

func (r *PanelRepository) CreateSwitch(ctx context.Context, panel models.SwitchPanel) (models.SwitchPanel, error) {
	if err := panel.Validate(); err != nil {
		return models.SwitchPanel{}, err
	}
	if panel.ID == "" {
		panel.ID = utils.GenerateSwitchID()
	}
	panel.Stale = true
	panel.Inert = false
	if err := r.switches.Create(ctx, panel); err != nil {
		return models.SwitchPanel{}, err
	}
	return panel, nil
}

func (r *PanelRepository) GetSwitch(id string) (models.SwitchPanel, error) {
	panel, ok := r.switches.Get(id)
	if !ok {
		return models.SwitchPanel{}, models.NewNotFoundError("switch", id)
	}
	return panel, nil
}

// ListSwitches returns switches in display order. An empty connectionID lists all.
func (r *PanelRepository) ListSwitches(connectionID string) []models.SwitchPanel {
	panels := r.switches.Find(func(p *models.SwitchPanel) bool {
		return connectionID == "" || p.ConnectionID == connectionID
	})
	sort.SliceStable(panels, func(i, j int) bool { return panels[i].Order < panels[j].Order })
	return panels
}

func (r *PanelRepository) UpdateSwitch(ctx context.Context, id string, update models.SwitchUpdate) (models.SwitchPanel, error) {
	panel, found, err := r.switches.Update(ctx, id, func(p *models.SwitchPanel) error {
		update.Apply(p)
		return p.Validate()
	})
	if !found {
		return models.SwitchPanel{}, models.NewNotFoundError("switch", id)
	}
	return panel, err
}

func (r *PanelRepository) DeleteSwitch(ctx context.Context, id string) (models.SwitchPanel, bool, error) {
	return r.switches.Delete(ctx, id)
}

func (r *PanelRepository) SetSwitchState(ctx context.Context, id string, state bool) (models.SwitchPanel, error) {
	panel, found, err := r.switches.Update(ctx, id, func(p *models.SwitchPanel) error {
		now := r.now()
		p.State = state
		p.LastUpdated = &now
		return nil
	})
	if !found {
		return models.SwitchPanel{}, models.NewNotFoundError("switch", id)
	}
	return panel, err
}

func (r *PanelRepository) UpdateSwitches(ctx context.Context, fn func(*models.SwitchPanel) bool) ([]models.SwitchPanel, error) {
	return r.switches.UpdateWhere(ctx, fn)
}

// ReorderSwitches assigns order by position in ids. Unknown ids fail the whole call.
func (r *PanelRepository) ReorderSwitches(ctx context.Context, ids []string) error {
	position := make(map[string]int, len(ids))
	for i, id := range ids {
		if !r.switches.Exists(id) {
			return models.NewNotFoundError("switch", id)
		}
		position[id] = i
	}
	_, err := r.switches.UpdateWhere(ctx, func(p *models.SwitchPanel) bool {
		order, ok := position[p.ID]
		if !ok || p.Order == order {
			return false
		}
		p.Order = order
		return true
	})
	return err
}

// ===================================================================
// BUTTONS
// ===================================================================

func (r *PanelRepository) CreateButton(ctx context.Context, panel models.ButtonPanel) (models.ButtonPanel, error) {
	if err := panel.Validate(); err != nil {
		return models.ButtonPanel{}, err
	}
	if panel.ID == "" {
		panel.ID = utils.GenerateButtonID()
	}
	panel.Inert = false
	if err := r.buttons.Create(ctx, panel); err != nil {
		return models.ButtonPanel{}, err
	}
	return panel, nil
}

func (r *PanelRepository) GetButton(id string) (models.ButtonPanel, error) {
	panel, ok := r.buttons.Get(id)
	if !ok {
		return models.ButtonPanel{}, models.NewNotFoundError("button", id)
	}
	return panel, nil
}

func (r *PanelRepository) ListButtons(connectionID string) []models.ButtonPanel {
	panels := r.buttons.Find(func(p *models.ButtonPanel) bool {
		return connectionID == "" || p.ConnectionID == connectionID
	})
	sort.SliceStable(panels, func(i, j int) bool { return panels[i].Order < panels[j].Order })
	return panels
}

func (r *PanelRepository) UpdateButton(ctx context.Context, id string, update models.ButtonUpdate) (models.ButtonPanel, error) {
	panel, found, err := r.buttons.Update(ctx, id, func(p *models.ButtonPanel) error {
		update.Apply(p)
		return p.Validate()
	})
	if !found {
		return models.ButtonPanel{}, models.NewNotFoundError("button", id)
	}
	return panel, err
}

func (r *PanelRepository) DeleteButton(ctx context.Context, id string) (models.ButtonPanel, bool, error) {
	return r.buttons.Delete(ctx, id)
}

// ===================================================================
// URI LAUNCHERS
// ===================================================================

func (r *PanelRepository) CreateUriLauncher(ctx context.Context, panel models.UriLauncherPanel) (models.UriLauncherPanel, error) {
	if err := panel.Validate(); err != nil {
		return models.UriLauncherPanel{}, err
	}
	if panel.ID == "" {
		panel.ID = utils.GenerateUriLauncherID()
	}
	panel.URI = ""
	panel.Inert = false
	if err := r.launchers.Create(ctx, panel); err != nil {
		return models.UriLauncherPanel{}, err
	}
	return panel, nil
}

func (r *PanelRepository) GetUriLauncher(id string) (models.UriLauncherPanel, error) {
	panel, ok := r.launchers.Get(id)
	if !ok {
		return models.UriLauncherPanel{}, models.NewNotFoundError("uriLauncher", id)
	}
	return panel, nil
}

func (r *PanelRepository) ListUriLaunchers(connectionID string) []models.UriLauncherPanel {
	return r.launchers.Find(func(p *models.UriLauncherPanel) bool {
		return connectionID == "" || p.ConnectionID == connectionID
	})
}

func (r *PanelRepository) UpdateUriLauncher(ctx context.Context, id string, update models.UriLauncherUpdate) (models.UriLauncherPanel, error) {
	panel, found, err := r.launchers.Update(ctx, id, func(p *models.UriLauncherPanel) error {
		update.Apply(p)
		return p.Validate()
	})
	if !found {
		return models.UriLauncherPanel{}, models.NewNotFoundError("uriLauncher", id)
	}
	return panel, err
}

func (r *PanelRepository) DeleteUriLauncher(ctx context.Context, id string) (models.UriLauncherPanel, bool, error) {
	return r.launchers.Delete(ctx, id)
}

func (r *PanelRepository) SetURI(ctx context.Context, connectionID, name, uri string) ([]models.UriLauncherPanel, error) {
	return r.launchers.UpdateWhere(ctx, func(p *models.UriLauncherPanel) bool {
		if p.Inert || p.ConnectionID != connectionID || !topic.Match(p.Topic, name) {
			return false
		}
		p.URI = uri
		return true
	})
}

// ===================================================================
// CROSS-KIND
// ===================================================================

func (r *PanelRepository) DeleteByConnection(ctx context.Context, connectionID string) (int, error) {
	removedSwitches, err := r.switches.DeleteWhere(ctx, func(p *models.SwitchPanel) bool { return p.ConnectionID == connectionID })
	if err != nil {
		return 0, err
	}
	removedButtons, err := r.buttons.DeleteWhere(ctx, func(p *models.ButtonPanel) bool { return p.ConnectionID == connectionID })
	if err != nil {
		return len(removedSwitches), err
	}
	removedLaunchers, err := r.launchers.DeleteWhere(ctx, func(p *models.UriLauncherPanel) bool { return p.ConnectionID == connectionID })
	return len(removedSwitches) + len(removedButtons) + len(removedLaunchers), err
}

func (r *PanelRepository) TopicInUse(connectionID, filter, excludeID string) bool {
	for _, sub := range r.subscribers(connectionID) {
		if sub.id != excludeID && sub.Topic == filter {
			return true
		}
	}
	return false
}

func (r *PanelRepository) Subscriptions(connectionID string) []interfaces.Subscription {
	var (
		out   []interfaces.Subscription
		index = make(map[string]int)
	)
	for _, sub := range r.subscribers(connectionID) {
		if i, ok := index[sub.Topic]; ok {
			if sub.QoS > out[i].QoS {
				out[i].QoS = sub.QoS
			}
			continue
		}
		index[sub.Topic] = len(out)
		out = append(out, sub.Subscription)
	}
	return out
}

type subscriber struct {
	interfaces.Subscription
	id string
}

// subscribers lists every panel of the connection that listens on a topic.
func (r *PanelRepository) subscribers(connectionID string) []subscriber {
	var subs []subscriber
	for _, p := range r.switches.Find(func(p *models.SwitchPanel) bool { return p.ConnectionID == connectionID && !p.Inert }) {
		subs = append(subs, subscriber{interfaces.Subscription{Topic: p.EffectiveTopic(), QoS: p.QoS}, p.ID})
	}
	for _, p := range r.launchers.Find(func(p *models.UriLauncherPanel) bool { return p.ConnectionID == connectionID && !p.Inert }) {
		subs = append(subs, subscriber{interfaces.Subscription{Topic: p.Topic, QoS: p.QoS}, p.ID})
	}
	return subs
}

func (r *PanelRepository) MarkStale(ctx context.Context, connectionID string) error {
	_, err := r.switches.UpdateWhere(ctx, func(p *models.SwitchPanel) bool {
		if p.ConnectionID != connectionID || p.Stale {
			return false
		}
		p.Stale = true
		return true
	})
	return err
}

func (r *PanelRepository) ReplaceAll(ctx context.Context, switches []models.SwitchPanel, buttons []models.ButtonPanel, launchers []models.UriLauncherPanel, exists func(string) bool) error {
	switches = append([]models.SwitchPanel(nil), switches...)
	for i := range switches {
		switches[i].Stale = true
		switches[i].Inert = !exists(switches[i].ConnectionID)
	}
	buttons = append([]models.ButtonPanel(nil), buttons...)
	for i := range buttons {
		buttons[i].Inert = !exists(buttons[i].ConnectionID)
	}
	launchers = append([]models.UriLauncherPanel(nil), launchers...)
	for i := range launchers {
		launchers[i].URI = ""
		launchers[i].Inert = !exists(launchers[i].ConnectionID)
	}

	if err := r.switches.Replace(ctx, switches); err != nil {
		return err
	}
	if err := r.buttons.Replace(ctx, buttons); err != nil {
		return err
	}
	return r.launchers.Replace(ctx, launchers)
}

var _ interfaces.PanelRepositoryInterface = (*PanelRepository)(nil)
