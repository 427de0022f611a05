package config

import (
	"slices"
	"strings"
	"unicode"
)

// Sections are the top-level keys of the config file.
var Sections = []string{"plugins", "logging", "settings", "lomo", "events", "watch"}

// ParseConfigPath splits a dotted key such as "lomo.address". The first
// segment must name a config section.
func ParseConfigPath(key string) ([]string, error) {
	if key == "" {
		return nil, &ConfigError{Message: "empty config path"}
	}
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if p == "" {
			return nil, &ConfigError{Message: "config path contains empty segment: " + key}
		}
		if strings.IndexFunc(p, unicode.IsSpace) >= 0 {
			return nil, &ConfigError{Message: "config path contains whitespace: " + key}
		}
	}
	if !slices.Contains(Sections, parts[0]) {
		return nil, &ConfigError{Message: "unknown config section " + parts[0] + " (want one of " + strings.Join(Sections, ", ") + ")"}
	}
	return parts, nil
}

// GetValueAtPath walks nested maps along path.
func GetValueAtPath(root map[string]any, path []string) (any, bool) {
	var cur any = root
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetValueAtPath stores value at path, replacing any non-map value in the
// way with a fresh map.
func SetValueAtPath(root map[string]any, path []string, value any) {
	cur := root
	for _, key := range path[:len(path)-1] {
		m, ok := cur[key].(map[string]any)
		if !ok {
			m = map[string]any{}
			cur[key] = m
		}
		cur = m
	}
	cur[path[len(path)-1]] = value
}

// UnsetValueAtPath deletes the value at path and any maps left empty by the
// deletion. It reports whether anything was removed.
func UnsetValueAtPath(root map[string]any, path []string) bool {
	key := path[0]
	if len(path) == 1 {
		if _, ok := root[key]; !ok {
			return false
		}
		delete(root, key)
		return true
	}

	child, ok := root[key].(map[string]any)
	if !ok || !UnsetValueAtPath(child, path[1:]) {
		return false
	}
	if len(child) == 0 {
		delete(root, key)
	}
	return true
}
