// Package plugin implements the Eina plugin engine: descriptor discovery,
// dependency-ordered loading, dependant tracking and LIFO teardown.
package plugin

import (
	"context"

	"github.com/soyeahso/eina/internal/hooks"
	"github.com/soyeahso/eina/internal/logging"
)

// Plugin is the interface every loadable unit implements.
type Plugin interface {
	// Init brings the plugin up. Its dependencies are already loaded and
	// reachable through api.Engine. A returned error aborts the load.
	Init(ctx context.Context, api API) error
}

// Finalizer is implemented by plugins that need teardown. A returned error
// aborts the unload and leaves the plugin loaded.
type Finalizer interface {
	Fini(ctx context.Context, api API) error
}

// API is what the engine hands to a plugin's hooks.
type API struct {
	Engine *Engine
	Handle *Handle
	Hooks  *hooks.Manager
	Log    *logging.Logger
}

// ID identifies a loaded plugin for the lifetime of an Engine.
type ID uint64

// Handle is a loaded plugin instance.
type Handle struct {
	id     ID
	info   Info
	impl   Plugin
	module Module

	// Data is plugin-private state, typically set during Init.
	Data any
}

func (h *Handle) ID() ID         { return h.id }
func (h *Handle) Name() string   { return h.info.Name }
func (h *Handle) Plugin() Plugin { return h.impl }

// Info returns a copy of the descriptor the plugin was loaded from.
func (h *Handle) Info() Info { return h.info.Clone() }
