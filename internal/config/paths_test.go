package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths_Default(t *testing.T) {
	t.Setenv("EINA_HOME", "")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".eina"), paths.Base)
	assert.Equal(t, filepath.Join(home, ".eina", "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(home, ".eina", "plugins"), paths.Plugins)
	assert.Equal(t, filepath.Join(home, ".eina", "data"), paths.Data)
}

func TestResolvePaths_CustomHome(t *testing.T) {
	t.Setenv("EINA_HOME", "/tmp/eina-test")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/eina-test", paths.Base)
	assert.Equal(t, "/tmp/eina-test/config.yaml", paths.Config)
	assert.Equal(t, "/tmp/eina-test/plugins", paths.Plugins)
	assert.Equal(t, "/tmp/eina-test/data", paths.Data)
}

func TestEnsureDirs(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("EINA_HOME", filepath.Join(tmp, "home"))

	paths, err := ResolvePaths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirs())
	require.NoError(t, paths.EnsureDirs()) // second call should succeed

	for _, d := range []string{paths.Base, paths.Plugins, paths.Data} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestPluginSearchPaths(t *testing.T) {
	t.Setenv("EINA_PLUGINS_PATH", "")
	paths := Paths{Plugins: "/home/me/.eina/plugins"}

	cfg := Defaults()
	assert.Equal(t, []string{DefaultSystemDir, "/home/me/.eina/plugins"}, PluginSearchPaths(cfg, paths))

	cfg.Plugins.UserDir = "/srv/plugins"
	cfg.Plugins.SystemDir = ""
	assert.Equal(t, []string{"/srv/plugins"}, PluginSearchPaths(cfg, paths))

	cfg.Plugins.SystemDir = "/srv/plugins"
	assert.Equal(t, []string{"/srv/plugins"}, PluginSearchPaths(cfg, paths))
}

func TestPluginSearchPaths_EnvOverride(t *testing.T) {
	t.Setenv("EINA_PLUGINS_PATH", "/a"+string(os.PathListSeparator)+" /b "+string(os.PathListSeparator)+string(os.PathListSeparator)+"/a")

	got := PluginSearchPaths(Defaults(), Paths{Plugins: "/ignored"})
	assert.Equal(t, []string{"/a", "/b"}, got)
}

func TestSettingsPath(t *testing.T) {
	paths := Paths{Data: "/home/me/.eina/data"}
	cfg := Defaults()
	assert.Equal(t, "/home/me/.eina/data/settings.db", SettingsPath(cfg, paths))

	cfg.Settings.Path = "/tmp/s.db"
	assert.Equal(t, "/tmp/s.db", SettingsPath(cfg, paths))
}
