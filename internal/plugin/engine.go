package plugin

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/soyeahso/eina/internal/hooks"
	"github.com/soyeahso/eina/internal/logging"
)

// Engine is the plugin registry and lifecycle coordinator.
//
// A plugin is in the lookup table exactly while its Init has succeeded and
// its Fini has not yet run. A plugin with dependants cannot be unloaded.
// Close unloads in reverse load order.
//
// Engine is not safe for concurrent use; callers drive it from one goroutine.
type Engine struct {
	infos    *InfoStore
	builtins *Builtins
	resolver Resolver
	hooks    *hooks.Manager
	log      *logging.Logger

	nextID     ID
	lookup     map[string]*Handle
	arena      map[ID]*Handle
	stack      []ID
	dependants map[ID][]ID
	requires   map[ID][]ID
	loading    map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithBuiltins sets the table of compiled-in plugins.
func WithBuiltins(b *Builtins) Option {
	return func(e *Engine) { e.builtins = b }
}

// WithResolver replaces the default builtins-then-shared-objects resolver.
func WithResolver(r Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// New creates an engine over the given search paths and scans them.
func New(paths []string, hm *hooks.Manager, log *logging.Logger, opts ...Option) *Engine {
	log = log.Sub("plugins")
	e := &Engine{
		infos:      NewInfoStore(paths, log),
		hooks:      hm,
		log:        log,
		lookup:     make(map[string]*Handle),
		arena:      make(map[ID]*Handle),
		dependants: make(map[ID][]ID),
		requires:   make(map[ID][]ID),
		loading:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.builtins == nil {
		e.builtins = NewBuiltins()
	}
	if e.resolver == nil {
		e.resolver = Chain{e.builtins, SharedObjects{}}
	}

	e.infos.Scan()
	return e
}

// LoadByInfo loads the plugin described by info, loading its dependencies
// first in declaration order. Loading an already loaded plugin returns the
// existing handle without running Init again.
//
// If a dependency fails, the dependencies loaded before it stay loaded.
func (e *Engine) LoadByInfo(ctx context.Context, info Info) (*Handle, error) {
	if h, ok := e.lookup[info.Name]; ok {
		return h, nil
	}
	if e.loading[info.Name] {
		return nil, &Error{Kind: KindDependencyCycle, Plugin: info.Name}
	}
	e.loading[info.Name] = true
	defer delete(e.loading, info.Name)

	info = info.Clone()

	deps := make([]ID, 0, len(info.Depends))
	for _, name := range info.Depends {
		dh, err := e.LoadByName(ctx, name)
		if err != nil {
			e.log.Warn().
				Err(err).
				Str("plugin", info.Name).
				Str("dependency", name).
				Msg("dependency failed to load")
			return nil, &Error{Kind: KindMissingDependency, Plugin: info.Name, Dependency: name, Err: err}
		}
		if !slices.Contains(deps, dh.id) {
			deps = append(deps, dh.id)
		}
	}

	impl, mod, err := e.resolver.Resolve(info)
	if err != nil {
		var pe *Error
		if !errors.As(err, &pe) {
			err = &Error{Kind: KindModuleNotLoadable, Plugin: info.Name, Err: err}
		}
		return nil, err
	}

	e.nextID++
	h := &Handle{id: e.nextID, info: info, impl: impl, module: mod}

	// h is listed as a dependant of its dependencies while Init runs;
	// forget undoes that if Init fails.
	e.arena[h.id] = h
	e.requires[h.id] = deps
	for _, dep := range deps {
		e.dependants[dep] = append(e.dependants[dep], h.id)
	}

	e.log.Debug().Str("plugin", info.Name).Msg("initializing plugin")
	if err := impl.Init(ctx, e.api(h)); err != nil {
		e.forget(h)
		e.closeModule(h)
		return nil, &Error{Kind: KindInitHookFailed, Plugin: info.Name, Err: err}
	}

	e.lookup[info.Name] = h
	e.stack = append(e.stack, h.id)

	e.log.Info().
		Str("plugin", info.Name).
		Strs("depends", info.Depends).
		Msg("plugin loaded")
	e.emit(ctx, hooks.EventPluginInit, h)
	return h, nil
}

// LoadByName loads a plugin by name. Scanned descriptors take precedence
// over compiled-in ones; an unknown name is still offered to the resolver
// with no pathname.
func (e *Engine) LoadByName(ctx context.Context, name string) (*Handle, error) {
	if h, ok := e.lookup[name]; ok {
		return h, nil
	}
	if info, ok := e.infos.Lookup(name); ok {
		return e.LoadByInfo(ctx, info)
	}
	info, ok := e.builtins.Lookup(name)
	if !ok {
		info = Info{Name: name}
	}
	return e.LoadByInfo(ctx, info)
}

// LoadByPathname loads the plugin living in dir. dir must sit directly
// inside one of the search paths.
func (e *Engine) LoadByPathname(ctx context.Context, dir string) (*Handle, error) {
	dir = cleanPath(dir)
	if !e.infos.Contains(filepath.Dir(dir)) {
		return nil, &Error{
			Kind:   KindForbiddenPath,
			Plugin: filepath.Base(dir),
			Err:    errors.New(dir),
		}
	}

	info, ok := e.infos.LookupPathname(dir)
	if !ok {
		var err error
		if info, err = ReadInfo(dir); err != nil {
			return nil, &Error{Kind: KindPluginNotFound, Plugin: filepath.Base(dir), Err: err}
		}
	}
	return e.LoadByInfo(ctx, info)
}

// Unload runs the plugin's Fini and removes it. It fails with KindInUse
// while other loaded plugins depend on it, and with KindFiniHookFailed
// (leaving the plugin loaded) if Fini errors.
func (e *Engine) Unload(ctx context.Context, h *Handle) error {
	if h == nil {
		return &Error{Kind: KindPluginNotFound}
	}
	if e.lookup[h.Name()] != h {
		return &Error{Kind: KindPluginNotFound, Plugin: h.Name(), Err: errors.New("not loaded")}
	}

	if users := e.dependants[h.id]; len(users) > 0 {
		return &Error{
			Kind:   KindInUse,
			Plugin: h.Name(),
			Err:    fmt.Errorf("required by %s", strings.Join(e.names(users), ", ")),
		}
	}

	if f, ok := h.impl.(Finalizer); ok {
		e.log.Debug().Str("plugin", h.Name()).Msg("finalizing plugin")
		if err := f.Fini(ctx, e.api(h)); err != nil {
			return &Error{Kind: KindFiniHookFailed, Plugin: h.Name(), Err: err}
		}
	}

	e.emit(ctx, hooks.EventPluginFini, h)

	delete(e.lookup, h.Name())
	e.stack = slices.DeleteFunc(e.stack, func(id ID) bool { return id == h.id })
	e.forget(h)
	e.closeModule(h)

	e.log.Info().Str("plugin", h.Name()).Msg("plugin unloaded")
	return nil
}

// UnloadByName unloads the loaded plugin called name.
func (e *Engine) UnloadByName(ctx context.Context, name string) error {
	h, ok := e.lookup[name]
	if !ok {
		return &Error{Kind: KindPluginNotFound, Plugin: name, Err: errors.New("not loaded")}
	}
	return e.Unload(ctx, h)
}

// Close unloads every plugin, most recently loaded first. It stops at the
// first failure and logs whatever is still loaded as leaked.
func (e *Engine) Close(ctx context.Context) error {
	for len(e.stack) > 0 {
		top := e.arena[e.stack[len(e.stack)-1]]
		if err := e.Unload(ctx, top); err != nil {
			e.log.Error().
				Err(err).
				Strs("leaked", e.names(e.stack)).
				Msg("plugin teardown stopped")
			return err
		}
	}
	return nil
}

// Rescan rereads the search paths. Loaded plugins are not affected.
func (e *Engine) Rescan(ctx context.Context) int {
	n := e.infos.Scan()
	if e.hooks != nil {
		e.hooks.Emit(ctx, hooks.EventPluginsRescanned, map[string]any{"count": n})
	}
	return n
}

// Get returns the loaded plugin called name, or nil.
func (e *Engine) Get(name string) *Handle {
	return e.lookup[name]
}

// Loaded returns the loaded plugins in load order.
func (e *Engine) Loaded() []*Handle {
	out := make([]*Handle, 0, len(e.stack))
	for _, id := range e.stack {
		out = append(out, e.arena[id])
	}
	return out
}

// LoadedNames returns the names of the loaded plugins in load order.
func (e *Engine) LoadedNames() []string {
	return e.names(e.stack)
}

// Dependants returns the names of the plugins that depend on h.
func (e *Engine) Dependants(h *Handle) []string {
	return e.names(e.dependants[h.id])
}

// Dependencies returns the names of the plugins h depends on.
func (e *Engine) Dependencies(h *Handle) []string {
	return e.names(e.requires[h.id])
}

// Infos returns copies of every scanned descriptor.
func (e *Engine) Infos() []Info {
	return e.infos.QueryAll()
}

// Lookup returns the descriptor the engine would use to load name.
func (e *Engine) Lookup(name string) (Info, bool) {
	if info, ok := e.infos.Lookup(name); ok {
		return info, true
	}
	return e.builtins.Lookup(name)
}

// Builtins returns the compiled-in plugin table.
func (e *Engine) Builtins() *Builtins {
	return e.builtins
}

// SearchPaths returns the directories scanned for descriptors.
func (e *Engine) SearchPaths() []string {
	return e.infos.SearchPaths()
}

func (e *Engine) api(h *Handle) API {
	return API{
		Engine: e,
		Handle: h,
		Hooks:  e.hooks,
		Log:    e.log.Plugin(h.Name()),
	}
}

// forget drops h from the arena and the dependency side tables.
func (e *Engine) forget(h *Handle) {
	for _, dep := range e.requires[h.id] {
		e.dependants[dep] = slices.DeleteFunc(e.dependants[dep], func(id ID) bool { return id == h.id })
		if len(e.dependants[dep]) == 0 {
			delete(e.dependants, dep)
		}
	}
	delete(e.requires, h.id)
	delete(e.dependants, h.id)
	delete(e.arena, h.id)
}

func (e *Engine) closeModule(h *Handle) {
	if h.module == nil {
		return
	}
	if err := h.module.Close(); err != nil {
		e.log.Warn().Err(err).Str("plugin", h.Name()).Msg("closing module")
	}
}

func (e *Engine) emit(ctx context.Context, event string, h *Handle) {
	if e.hooks == nil {
		return
	}
	e.hooks.Emit(ctx, event, map[string]any{
		"id":   uint64(h.id),
		"name": h.Name(),
	})
}

func (e *Engine) names(ids []ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if h, ok := e.arena[id]; ok {
			out = append(out, h.Name())
		}
	}
	return out
}
