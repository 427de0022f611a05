// Package hooks dispatches plugin lifecycle notifications to listeners.
package hooks

import (
	"context"
	"slices"
	"sync"

	"github.com/soyeahso/eina/internal/logging"
)

// Event names emitted by the plugin engine.
const (
	EventPluginInit       = "plugin-init"
	EventPluginFini       = "plugin-fini"
	EventPluginsRescanned = "plugins-rescanned"
)

// AllEvents lists all known event names.
var AllEvents = []string{
	EventPluginInit,
	EventPluginFini,
	EventPluginsRescanned,
}

// Payload carries event data to handlers.
type Payload struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// Handler handles an event. A returned error is logged and otherwise ignored.
type Handler func(ctx context.Context, p Payload) error

// Manager keeps named handlers per event.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]namedHandler),
		log:      log.Sub("hooks"),
	}
}

// On registers a handler for event under name.
func (m *Manager) On(event, name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], namedHandler{name: name, handler: handler})
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

// OnAll registers the same handler for every event in AllEvents.
func (m *Manager) OnAll(name string, handler Handler) {
	for _, event := range AllEvents {
		m.On(event, name, handler)
	}
}

// Off removes every handler registered under name for event.
func (m *Manager) Off(event, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.off(event, name)
}

// OffAll removes every handler registered under name, whatever the event.
func (m *Manager) OffAll(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for event := range m.handlers {
		m.off(event, name)
	}
}

func (m *Manager) off(event, name string) {
	m.handlers[event] = slices.DeleteFunc(m.handlers[event], func(h namedHandler) bool {
		return h.name == name
	})
	if len(m.handlers[event]) == 0 {
		delete(m.handlers, event)
	}
}

// Emit calls the handlers for event synchronously, in registration order.
// A failing handler does not stop the others.
func (m *Manager) Emit(ctx context.Context, event string, data map[string]any) {
	m.mu.RLock()
	handlers := make([]namedHandler, len(m.handlers[event]))
	copy(handlers, m.handlers[event])
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	payload := Payload{Event: event, Data: data}
	for _, h := range handlers {
		if err := h.handler(ctx, payload); err != nil {
			m.log.Warn().
				Err(err).
				Str("event", event).
				Str("handler", h.name).
				Msg("hook handler error")
		}
	}
}

// Count returns the number of handlers registered for event.
func (m *Manager) Count(event string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[event])
}
