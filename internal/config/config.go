package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

const (
	DefaultSystemDir  = "/usr/lib/eina/plugins"
	DefaultMPDAddress = "localhost:6600"
	DefaultDebounceMs = 250
)

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Plugins: PluginsConfig{
			SystemDir: DefaultSystemDir,
			Mandatory: []string{"settings", "lomo"},
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
		Lomo: LomoConfig{
			Address: DefaultMPDAddress,
		},
		Watch: WatchConfig{
			Enabled:    true,
			DebounceMs: DefaultDebounceMs,
		},
	}
}
