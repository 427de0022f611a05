package cli

import (
	"context"
	"fmt"

	"github.com/soyeahso/eina/internal/builtin"
	"github.com/soyeahso/eina/internal/builtin/settings"
	"github.com/soyeahso/eina/internal/config"
	"github.com/soyeahso/eina/internal/hooks"
	"github.com/soyeahso/eina/internal/logging"
	"github.com/soyeahso/eina/internal/plugin"
)

// loadConfig reads and validates the config file. Unless --log-level was
// given, the logger is rebuilt from the logging section.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	if logLevel == "" {
		log = logging.NewStyled(cfg.Logging.ConsoleStyle, cfg.Logging.Level)
	}

	if issues := config.Validate(&cfg); len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return cfg, fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}
	return cfg, nil
}

// session is a configured engine with the builtins registered.
type session struct {
	cfg    config.Config
	hooks  *hooks.Manager
	engine *plugin.Engine
}

func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("creating %s: %w", paths.Base, err)
	}

	b := plugin.NewBuiltins()
	if err := builtin.Register(b, cfg, paths); err != nil {
		return nil, err
	}
	hm := hooks.NewManager(log)
	e := plugin.New(config.PluginSearchPaths(cfg, paths), hm, log, plugin.WithBuiltins(b))

	return &session{cfg: cfg, hooks: hm, engine: e}, nil
}

// settings loads the settings plugin if needed and returns it.
func (s *session) settings(ctx context.Context) (*settings.Plugin, error) {
	if _, err := s.engine.LoadByName(ctx, settings.Name); err != nil {
		return nil, err
	}
	p, ok := settings.From(s.engine)
	if !ok {
		return nil, fmt.Errorf("settings plugin did not initialize")
	}
	return p, nil
}

func (s *session) close(ctx context.Context) error {
	return s.engine.Close(ctx)
}
