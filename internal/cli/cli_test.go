package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soyeahso/eina/internal/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	home    string
	plugins string
}

func setupEnv(t *testing.T) env {
	t.Helper()
	e := env{home: t.TempDir(), plugins: t.TempDir()}
	t.Setenv("EINA_HOME", e.home)
	t.Setenv("EINA_PLUGINS_PATH", e.plugins)
	// Nothing listens on port 1.
	t.Setenv("EINA_MPD_ADDRESS", "127.0.0.1:1")
	t.Setenv("EINA_LOG_LEVEL", "")
	t.Setenv("EINA_EVENTS_LISTEN", "")
	return e
}

func (e env) descriptor(t *testing.T, name, body string) string {
	t.Helper()
	dir := filepath.Join(e.plugins, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(plugin.DescriptorPath(dir), []byte(body), 0o644))
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "silent"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	setupEnv(t)
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "eina")
}

func TestPluginsList(t *testing.T) {
	e := setupEnv(t)
	dir := e.descriptor(t, "dock", "[plugin]\nname = dock\ndepends = settings\n")

	out, err := runCLI(t, "plugins", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, dir)
	assert.Contains(t, out, "settings")
	assert.Contains(t, out, "lomo")
	assert.Contains(t, out, "builtin")
}

func TestPluginsInfo(t *testing.T) {
	e := setupEnv(t)
	e.descriptor(t, "dock", "[plugin]\nname = dock\nauthor = Someone\nshort_desc = A dock\n")

	out, err := runCLI(t, "plugins", "info", "dock")
	require.NoError(t, err)
	assert.Contains(t, out, "Someone")
	assert.Contains(t, out, "A dock")

	out, err = runCLI(t, "plugins", "info", "lomo", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "lomo"`)
	assert.Contains(t, out, `"settings"`)

	_, err = runCLI(t, "plugins", "info", "ghost")
	assert.Error(t, err)
}

func TestPluginsEnableDisable(t *testing.T) {
	setupEnv(t)

	out, err := runCLI(t, "plugins", "enable", "lomo")
	require.NoError(t, err)
	assert.Contains(t, out, "lomo enabled")

	out, err = runCLI(t, "plugins", "enable", "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, plugin.ErrPluginNotFound)
	assert.Contains(t, out, "ghost disabled")

	out, err = runCLI(t, "plugins", "list")
	require.NoError(t, err)
	assert.Regexp(t, `lomo\s+builtin\s+settings\s+yes`, out)

	_, err = runCLI(t, "plugins", "disable", "settings")
	assert.Error(t, err)

	out, err = runCLI(t, "plugins", "disable", "lomo")
	require.Error(t, err, "lomo is mandatory by default")
	assert.Contains(t, err.Error(), "mandatory")
	assert.NotContains(t, out, "lomo disabled")

	// A refused disable leaves the stored state alone.
	out, err = runCLI(t, "plugins", "list")
	require.NoError(t, err)
	assert.Regexp(t, `lomo\s+builtin\s+settings\s+yes`, out)

	out, err = runCLI(t, "plugins", "history", "lomo")
	require.NoError(t, err)
	assert.Contains(t, out, "plugin-init")
	assert.Contains(t, out, "plugin-fini")
}

func TestPluginsDisable_NotMandatory(t *testing.T) {
	setupEnv(t)
	_, err := runCLI(t, "config", "set", "plugins.mandatory", "[settings]")
	require.NoError(t, err)

	_, err = runCLI(t, "plugins", "enable", "lomo")
	require.NoError(t, err)

	out, err := runCLI(t, "plugins", "disable", "lomo")
	require.NoError(t, err)
	assert.Contains(t, out, "lomo disabled")

	out, err = runCLI(t, "plugins", "list")
	require.NoError(t, err)
	assert.Regexp(t, `lomo\s+builtin\s+settings\s+no\s+no`, out)
}

func TestPluginsLoad(t *testing.T) {
	e := setupEnv(t)
	dir := e.descriptor(t, "dock", "[plugin]\nname = dock\ndepends = settings\n")

	out, err := runCLI(t, "plugins", "load", "lomo")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded lomo")
	assert.Contains(t, out, "settings lomo")

	// No shared object next to the descriptor.
	out, err = runCLI(t, "plugins", "load", dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, plugin.ErrModuleNotLoadable)
	assert.Contains(t, out, "Load order:  settings")

	_, err = runCLI(t, "plugins", "load", filepath.Join(t.TempDir(), "elsewhere"))
	assert.ErrorIs(t, err, plugin.ErrForbiddenPath)
}

func TestConfigSetGet(t *testing.T) {
	e := setupEnv(t)

	_, err := runCLI(t, "config", "set", "lomo.address", "nope")
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(e.home, "config.yaml"))
	assert.True(t, os.IsNotExist(statErr))

	out, err := runCLI(t, "config", "set", "watch.debounceMs", "500")
	require.NoError(t, err)
	assert.Contains(t, out, "Set watch.debounceMs = 500")

	out, err = runCLI(t, "config", "get", "watch")
	require.NoError(t, err)
	assert.Contains(t, out, "debounceMs: 500")

	_, err = runCLI(t, "config", "set", "plugins.autoload", "[dock, lyrics]")
	require.NoError(t, err)
	out, err = runCLI(t, "config", "get", "plugins.autoload")
	require.NoError(t, err)
	assert.Equal(t, "- dock\n- lyrics\n", out)

	_, err = runCLI(t, "config", "get", "lomo.address")
	assert.Error(t, err, "not in the file")
	out, err = runCLI(t, "config", "get", "--effective", "lomo.address")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1\n", out)

	out, err = runCLI(t, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(e.home, "config.yaml"))

	_, err = runCLI(t, "config", "unset", "watch.debounceMs")
	require.NoError(t, err)
	_, err = runCLI(t, "config", "get", "watch.debounceMs")
	assert.Error(t, err)
}

func TestStatusCmd(t *testing.T) {
	e := setupEnv(t)

	out, err := runCLI(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, e.plugins)
	assert.Contains(t, out, "127.0.0.1:1")
	assert.Contains(t, out, "Events:   (disabled)")
	assert.Contains(t, out, "Override: EINA_MPD_ADDRESS=127.0.0.1:1 (lomo.address)")
}

func TestSessionRun(t *testing.T) {
	e := setupEnv(t)
	e.descriptor(t, "broken", "[plugin]\nname = broken\n")
	_, err := runCLI(t, "version") // resolves paths and logger
	require.NoError(t, err)

	s, err := openSession()
	require.NoError(t, err)
	s.cfg.Events.Listen = "127.0.0.1:0"
	s.cfg.Plugins.Autoload = []string{"broken"}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, s.run(ctx))
	assert.Empty(t, s.engine.LoadedNames())
}

func TestSessionRun_MandatoryFailure(t *testing.T) {
	setupEnv(t)
	_, err := runCLI(t, "version")
	require.NoError(t, err)

	s, err := openSession()
	require.NoError(t, err)
	s.cfg.Plugins.Mandatory = []string{"settings", "ghost"}
	s.cfg.Watch.Enabled = false

	err = s.run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mandatory plugin ghost")
	assert.ErrorIs(t, err, plugin.ErrPluginNotFound)
	assert.Empty(t, s.engine.LoadedNames())
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, 500, parseValue("500"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, "localhost:6600", parseValue("localhost:6600"))
	assert.Equal(t, "/run/mpd/socket", parseValue("/run/mpd/socket"))
	assert.Equal(t, []any{"dock", "lyrics"}, parseValue("[dock, lyrics]"))
	assert.Equal(t, "a: b", parseValue("a: b"))
	assert.Equal(t, "", parseValue(""))
}
