package plugin

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures.
type Kind int

const (
	KindPluginNotFound Kind = iota + 1
	KindModuleNotLoadable
	KindNoInitHook
	KindInitHookFailed
	KindInUse
	KindMissingDependency
	KindFiniHookFailed
	KindDependencyCycle
	KindForbiddenPath
)

// Sentinels for errors.Is checks against a *Error of the matching kind.
var (
	ErrPluginNotFound    = errors.New("plugin not found")
	ErrModuleNotLoadable = errors.New("module not loadable")
	ErrNoInitHook        = errors.New("no init hook")
	ErrInitHookFailed    = errors.New("init hook failed")
	ErrInUse             = errors.New("plugin in use")
	ErrMissingDependency = errors.New("missing dependency")
	ErrFiniHookFailed    = errors.New("fini hook failed")
	ErrDependencyCycle   = errors.New("dependency cycle")
	ErrForbiddenPath     = errors.New("outside plugin search paths")
)

var kindSentinels = map[Kind]error{
	KindPluginNotFound:    ErrPluginNotFound,
	KindModuleNotLoadable: ErrModuleNotLoadable,
	KindNoInitHook:        ErrNoInitHook,
	KindInitHookFailed:    ErrInitHookFailed,
	KindInUse:             ErrInUse,
	KindMissingDependency: ErrMissingDependency,
	KindFiniHookFailed:    ErrFiniHookFailed,
	KindDependencyCycle:   ErrDependencyCycle,
	KindForbiddenPath:     ErrForbiddenPath,
}

func (k Kind) String() string {
	if err, ok := kindSentinels[k]; ok {
		return err.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by every engine operation that fails.
// Dependency is set for KindMissingDependency.
type Error struct {
	Kind       Kind
	Plugin     string
	Dependency string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("plugin %q: %s", e.Plugin, e.Kind)
	if e.Dependency != "" {
		msg += fmt.Sprintf(" %q", e.Dependency)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := kindSentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind of the outermost *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
