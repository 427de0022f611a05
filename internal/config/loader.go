package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envRef matches ${NAME} references.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvRefs substitutes ${NAME} with the variable's value. References to
// unset variables are kept as written so a typo stays visible.
func expandEnvRefs(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		if val, ok := os.LookupEnv(envRef.FindStringSubmatch(ref)[1]); ok {
			return val
		}
		return ref
	})
}

// expandSensitiveFields lets the MPD password live in the environment.
func expandSensitiveFields(cfg *Config) {
	cfg.Lomo.Password = expandEnvRefs(cfg.Lomo.Password)
}

// readConfigFile returns the file contents, or nil if it does not exist.
func readConfigFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

// Load reads the config file over Defaults and applies EINA_* overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := readConfigFile(path)
	if err != nil {
		return cfg, err
	}
	if data != nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
		}
		applyDefaults(&cfg)
		expandSensitiveFields(&cfg)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	raw := map[string]any{}
	data, err := readConfigFile(path)
	if err != nil || data == nil {
		return raw, err
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes raw back as YAML, creating the config directory if needed.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults refills fields a config file blanked out.
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = d.Logging.ConsoleStyle
	}
	if cfg.Lomo.Address == "" {
		cfg.Lomo.Address = d.Lomo.Address
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = d.Watch.DebounceMs
	}
}

// EnvOverride is an environment variable that takes precedence over the file.
type EnvOverride struct {
	Name  string
	Key   string
	apply func(cfg *Config, v string)
}

// EnvOverrides lists the variables Load honors, in application order.
var EnvOverrides = []EnvOverride{
	{"EINA_LOG_LEVEL", "logging.level", func(cfg *Config, v string) {
		cfg.Logging.Level = strings.ToLower(v)
	}},
	{"EINA_EVENTS_LISTEN", "events.listen", func(cfg *Config, v string) {
		cfg.Events.Listen = v
	}},
	{"EINA_MPD_ADDRESS", "lomo.address", func(cfg *Config, v string) {
		cfg.Lomo.Address = v
	}},
	{"EINA_WATCH_DEBOUNCE_MS", "watch.debounceMs", func(cfg *Config, v string) {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Watch.DebounceMs = ms
		}
	}},
}

func applyEnvOverrides(cfg *Config) {
	for _, o := range EnvOverrides {
		if v := os.Getenv(o.Name); v != "" {
			o.apply(cfg, v)
		}
	}
}
