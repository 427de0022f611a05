// Package settings is the builtin plugin that owns the settings database.
package settings

import (
	"context"
	"fmt"

	"github.com/soyeahso/eina/internal/hooks"
	"github.com/soyeahso/eina/internal/plugin"
	"github.com/soyeahso/eina/internal/store"
)

const Name = "settings"

// Plugin opens the settings database on Init and closes it on Fini.
// While loaded it also records plugin lifecycle events into the history log.
type Plugin struct {
	path string
	db   *store.DB

	Settings *store.Settings
	History  *store.History
}

// New returns a plugin that will open the database at path.
func New(path string) *Plugin {
	return &Plugin{path: path}
}

// Info describes the builtin.
func Info() plugin.Info {
	return plugin.Info{
		Name:      Name,
		Author:    "Eina",
		ShortDesc: "Persistent settings",
		LongDesc:  "Key/value settings shared by all plugins, including the enabled plugin set.",
	}
}

func (p *Plugin) Init(_ context.Context, api plugin.API) error {
	db, err := store.Open(p.path, api.Log)
	if err != nil {
		return fmt.Errorf("opening settings: %w", err)
	}
	p.db = db
	p.Settings = store.NewSettings(db)
	p.History = store.NewHistory(db)
	api.Handle.Data = p

	if api.Hooks != nil {
		api.Hooks.On(hooks.EventPluginInit, Name, p.record)
		api.Hooks.On(hooks.EventPluginFini, Name, p.record)
	}
	return nil
}

func (p *Plugin) Fini(_ context.Context, api plugin.API) error {
	if api.Hooks != nil {
		api.Hooks.OffAll(Name)
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("closing settings: %w", err)
	}
	p.db, p.Settings, p.History = nil, nil, nil
	return nil
}

func (p *Plugin) record(_ context.Context, pl hooks.Payload) error {
	name, _ := pl.Data["name"].(string)
	if p.History == nil || name == "" {
		return nil
	}
	_, err := p.History.Record(pl.Event, name)
	return err
}

// From returns the loaded settings plugin, if any.
func From(e *plugin.Engine) (*Plugin, bool) {
	h := e.Get(Name)
	if h == nil {
		return nil, false
	}
	p, ok := h.Data.(*Plugin)
	return p, ok && p.Settings != nil
}

// Enabled reads the persisted enabled plugin set.
func (p *Plugin) Enabled() []string {
	return plugin.ParseEnabled(p.Settings.GetDefault(plugin.EnabledKey, ""))
}

// SetEnabled records whether name is enabled, keeping the order of the
// existing entries.
func (p *Plugin) SetEnabled(name string, enabled bool) error {
	current := p.Enabled()
	out := make([]string, 0, len(current)+1)
	for _, n := range current {
		if n != name {
			out = append(out, n)
		}
	}
	if enabled {
		out = append(out, name)
	}
	return p.Settings.Set(plugin.EnabledKey, plugin.FormatEnabled(out))
}
