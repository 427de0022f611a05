package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const defaultBaseDir = ".eina"

// Paths holds resolved filesystem paths for Eina data.
type Paths struct {
	Base    string // ~/.eina
	Config  string // ~/.eina/config.yaml
	Plugins string // ~/.eina/plugins
	Data    string // ~/.eina/data
}

// ResolvePaths computes all standard paths from the home directory.
// If EINA_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("EINA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:    base,
		Config:  filepath.Join(base, "config.yaml"),
		Plugins: filepath.Join(base, "plugins"),
		Data:    filepath.Join(base, "data"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Plugins, p.Data} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// PluginSearchPaths returns the directories scanned for plugins, system
// first. EINA_PLUGINS_PATH, a list separated like PATH, replaces them.
func PluginSearchPaths(cfg Config, paths Paths) []string {
	var candidates []string
	if v := os.Getenv("EINA_PLUGINS_PATH"); v != "" {
		candidates = filepath.SplitList(v)
	} else {
		user := cfg.Plugins.UserDir
		if user == "" {
			user = paths.Plugins
		}
		candidates = []string{cfg.Plugins.SystemDir, user}
	}

	var out []string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || slices.Contains(out, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// SettingsPath returns the settings database location.
func SettingsPath(cfg Config, paths Paths) string {
	if cfg.Settings.Path != "" {
		return cfg.Settings.Path
	}
	return filepath.Join(paths.Data, "settings.db")
}
