package config

import (
	"fmt"
	"net"
	"slices"
	"strings"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Plugin name lists
	lists := []struct {
		path  string
		names []string
	}{
		{"plugins.mandatory", cfg.Plugins.Mandatory},
		{"plugins.autoload", cfg.Plugins.Autoload},
	}
	for _, l := range lists {
		for _, name := range l.names {
			if name == "" || strings.ContainsAny(name, ", \t\n") {
				issues = append(issues, ValidationIssue{
					Path:    l.path,
					Message: fmt.Sprintf("invalid plugin name %q", name),
				})
			}
		}
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "compact", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	// MPD address: host:port or an absolute socket path
	if addr := cfg.Lomo.Address; addr != "" && !strings.HasPrefix(addr, "/") {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			issues = append(issues, ValidationIssue{
				Path:    "lomo.address",
				Message: fmt.Sprintf("must be host:port or a socket path, got %q", addr),
			})
		}
	}

	if cfg.Events.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.Events.Listen); err != nil {
			issues = append(issues, ValidationIssue{
				Path:    "events.listen",
				Message: fmt.Sprintf("must be host:port, got %q", cfg.Events.Listen),
			})
		}
	}

	if cfg.Watch.DebounceMs < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "watch.debounceMs",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Watch.DebounceMs),
		})
	}

	return issues
}
