package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/soyeahso/eina/internal/hooks"
	"github.com/soyeahso/eina/internal/logging"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

// writeDescriptor creates root/name/name.ini.
func writeDescriptor(t *testing.T, root, name, depends string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data := "[plugin]\nname = " + name + "\n"
	if depends != "" {
		data += "depends = " + depends + "\n"
	}
	require.NoError(t, os.WriteFile(DescriptorPath(dir), []byte(data), 0o644))
	return dir
}

// journal records hook calls across plugins.
type journal struct {
	calls []string
}

func (j *journal) add(s string) { j.calls = append(j.calls, s) }

type testPlugin struct {
	name    string
	j       *journal
	initErr error
	finiErr error
	onInit  func(api API)

	initCalls int
	finiCalls int
}

func (p *testPlugin) Init(_ context.Context, api API) error {
	p.initCalls++
	p.j.add("init:" + p.name)
	if p.onInit != nil {
		p.onInit(api)
	}
	return p.initErr
}

func (p *testPlugin) Fini(_ context.Context, _ API) error {
	p.finiCalls++
	p.j.add("fini:" + p.name)
	return p.finiErr
}

// barePlugin has no Fini hook.
type barePlugin struct{ inits int }

func (p *barePlugin) Init(_ context.Context, _ API) error {
	p.inits++
	return nil
}

type harness struct {
	t        *testing.T
	root     string
	builtins *Builtins
	hooks    *hooks.Manager
	j        *journal
	plugins  map[string]*testPlugin
}

func newHarness(t *testing.T) *harness {
	return &harness{
		t:        t,
		root:     t.TempDir(),
		builtins: NewBuiltins(),
		hooks:    hooks.NewManager(silentLog()),
		j:        &journal{},
		plugins:  make(map[string]*testPlugin),
	}
}

// add writes a descriptor for name and registers its implementation.
func (h *harness) add(name, depends string) *testPlugin {
	h.t.Helper()
	writeDescriptor(h.t, h.root, name, depends)
	p := &testPlugin{name: name, j: h.j}
	h.plugins[name] = p
	require.NoError(h.t, h.builtins.Register(Info{Name: name}, func() Plugin { return p }))
	return p
}

func (h *harness) engine() *Engine {
	return New([]string{h.root}, h.hooks, silentLog(), WithBuiltins(h.builtins))
}
