package plugin

import (
	"errors"
	"fmt"
	"path/filepath"
	goplugin "plugin"
)

// FactorySymbol is the single symbol a shared-object plugin must export.
// Its type must be func() plugin.Plugin.
const FactorySymbol = "NewPlugin"

// Module is the code backing a loaded plugin.
type Module interface {
	Close() error
}

// Resolver turns a descriptor into a plugin implementation.
// It reports KindPluginNotFound when it does not know the plugin.
type Resolver interface {
	Resolve(info Info) (Plugin, Module, error)
}

// Factory builds a fresh plugin instance.
type Factory func() Plugin

type builtin struct {
	info    Info
	factory Factory
}

// Builtins is a registration table for plugins compiled into the binary.
type Builtins struct {
	entries map[string]builtin
	order   []string
}

func NewBuiltins() *Builtins {
	return &Builtins{entries: make(map[string]builtin)}
}

// Register adds a compiled-in plugin. info.Depends is honoured exactly as if
// it had been read from a descriptor.
func (b *Builtins) Register(info Info, f Factory) error {
	if info.Name == "" {
		return errors.New("builtin plugin without a name")
	}
	if _, exists := b.entries[info.Name]; exists {
		return fmt.Errorf("builtin plugin already registered: %s", info.Name)
	}
	b.entries[info.Name] = builtin{info: info.Clone(), factory: f}
	b.order = append(b.order, info.Name)
	return nil
}

// Lookup returns the registered descriptor for name.
func (b *Builtins) Lookup(name string) (Info, bool) {
	e, ok := b.entries[name]
	if !ok {
		return Info{}, false
	}
	return e.info.Clone(), true
}

// Infos returns the registered descriptors in registration order.
func (b *Builtins) Infos() []Info {
	out := make([]Info, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.entries[name].info.Clone())
	}
	return out
}

func (b *Builtins) Resolve(info Info) (Plugin, Module, error) {
	e, ok := b.entries[info.Name]
	if !ok {
		return nil, nil, &Error{Kind: KindPluginNotFound, Plugin: info.Name}
	}
	impl := e.factory()
	if impl == nil {
		return nil, nil, &Error{Kind: KindNoInitHook, Plugin: info.Name, Err: errors.New("factory returned nil")}
	}
	return impl, nil, nil
}

// SharedObjects loads <pathname>/<name>.so with the Go plugin package.
type SharedObjects struct{}

func (SharedObjects) Resolve(info Info) (Plugin, Module, error) {
	if info.Pathname == "" {
		return nil, nil, &Error{Kind: KindPluginNotFound, Plugin: info.Name}
	}

	path := filepath.Join(info.Pathname, info.Name+".so")
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, nil, &Error{Kind: KindModuleNotLoadable, Plugin: info.Name, Err: err}
	}

	sym, err := p.Lookup(FactorySymbol)
	if err != nil {
		return nil, nil, &Error{Kind: KindNoInitHook, Plugin: info.Name, Err: err}
	}

	var impl Plugin
	switch f := sym.(type) {
	case func() Plugin:
		impl = f()
	case *Factory:
		impl = (*f)()
	default:
		return nil, nil, &Error{
			Kind:   KindNoInitHook,
			Plugin: info.Name,
			Err:    fmt.Errorf("%s has type %T", FactorySymbol, sym),
		}
	}
	if impl == nil {
		return nil, nil, &Error{Kind: KindNoInitHook, Plugin: info.Name, Err: errors.New("factory returned nil")}
	}
	return impl, sharedObject{path: path}, nil
}

// sharedObject cannot really be closed: the Go runtime never unmaps plugins.
type sharedObject struct {
	path string
}

func (sharedObject) Close() error { return nil }

// Chain tries each resolver in turn, moving on only when one reports
// KindPluginNotFound.
type Chain []Resolver

func (c Chain) Resolve(info Info) (Plugin, Module, error) {
	for _, r := range c {
		impl, mod, err := r.Resolve(info)
		if err == nil {
			return impl, mod, nil
		}
		if !errors.Is(err, ErrPluginNotFound) {
			return nil, nil, err
		}
	}
	return nil, nil, &Error{Kind: KindPluginNotFound, Plugin: info.Name}
}
