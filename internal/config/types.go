package config

// Config is the root configuration for Eina.
type Config struct {
	Plugins  PluginsConfig  `yaml:"plugins,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Settings SettingsConfig `yaml:"settings,omitempty"`
	Lomo     LomoConfig     `yaml:"lomo,omitempty"`
	Events   EventsConfig   `yaml:"events,omitempty"`
	Watch    WatchConfig    `yaml:"watch,omitempty"`
}

// PluginsConfig controls where plugins are found and which load at startup.
type PluginsConfig struct {
	SystemDir string   `yaml:"systemDir,omitempty"`
	UserDir   string   `yaml:"userDir,omitempty"` // defaults to <base>/plugins
	Mandatory []string `yaml:"mandatory,omitempty"`
	Autoload  []string `yaml:"autoload,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}

// SettingsConfig locates the settings database.
type SettingsConfig struct {
	Path string `yaml:"path,omitempty"` // defaults to <base>/data/settings.db
}

// LomoConfig configures the MPD playback plugin.
type LomoConfig struct {
	Address  string `yaml:"address,omitempty"` // host:port or a unix socket path
	Password string `yaml:"password,omitempty"`
}

// EventsConfig configures the websocket event feed. An empty Listen disables it.
type EventsConfig struct {
	Listen         string   `yaml:"listen,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// WatchConfig controls rescanning when the search paths change.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMs int  `yaml:"debounceMs,omitempty"`
}
