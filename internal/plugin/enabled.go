package plugin

import (
	"context"
	"strings"
)

// EnabledKey is the settings key holding the user's enabled plugin set.
const EnabledKey = "/plugins/enabled"

// ParseEnabled parses a stored enabled set, dropping blanks and repeats.
func ParseEnabled(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range ParseDepends(s) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// FormatEnabled renders an enabled set for storage.
func FormatEnabled(names []string) string {
	return strings.Join(ParseEnabled(strings.Join(names, ",")), ",")
}

// Replay loads each name in order, logging and skipping failures.
// It returns the names that are loaded afterwards.
func (e *Engine) Replay(ctx context.Context, names []string) []string {
	var loaded []string
	for _, name := range names {
		if _, err := e.LoadByName(ctx, name); err != nil {
			e.log.Warn().Err(err).Str("plugin", name).Msg("skipping enabled plugin")
			continue
		}
		loaded = append(loaded, name)
	}
	return loaded
}
