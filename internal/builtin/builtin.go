// Package builtin registers the plugins compiled into the eina binary.
package builtin

import (
	"github.com/soyeahso/eina/internal/builtin/lomo"
	"github.com/soyeahso/eina/internal/builtin/settings"
	"github.com/soyeahso/eina/internal/config"
	"github.com/soyeahso/eina/internal/plugin"
)

// Register adds every builtin plugin to b.
func Register(b *plugin.Builtins, cfg config.Config, paths config.Paths) error {
	dbPath := config.SettingsPath(cfg, paths)
	if err := b.Register(settings.Info(), func() plugin.Plugin { return settings.New(dbPath) }); err != nil {
		return err
	}
	return b.Register(lomo.Info(), func() plugin.Plugin { return lomo.New(cfg.Lomo, nil) })
}
