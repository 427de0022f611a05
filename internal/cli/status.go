package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/soyeahso/eina/internal/config"
	"github.com/soyeahso/eina/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show Eina status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			v, commit, _ := version.Resolved()
			fmt.Fprintf(out, "Eina %s (commit %s)\n\n", v, commit)

			// Show paths
			fmt.Fprintf(out, "Config:   %s\n", paths.Config)
			fmt.Fprintf(out, "Data:     %s\n", paths.Data)
			fmt.Fprintln(out)

			// Load config
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:   error loading: %v\n", err)
				return nil
			}

			search := config.PluginSearchPaths(cfg, paths)
			fmt.Fprintf(out, "Plugins:  %s\n", strings.Join(search, ", "))
			fmt.Fprintf(out, "Required: %s\n", orDash(strings.Join(cfg.Plugins.Mandatory, ", ")))
			fmt.Fprintf(out, "Autoload: %s\n", orDash(strings.Join(cfg.Plugins.Autoload, ", ")))
			fmt.Fprintf(out, "Settings: %s\n", config.SettingsPath(cfg, paths))
			fmt.Fprintf(out, "MPD:      %s\n", cfg.Lomo.Address)
			if cfg.Events.Listen != "" {
				fmt.Fprintf(out, "Events:   ws://%s/ws\n", cfg.Events.Listen)
			} else {
				fmt.Fprintln(out, "Events:   (disabled)")
			}
			if cfg.Watch.Enabled {
				fmt.Fprintf(out, "Watch:    debounce=%dms\n", cfg.Watch.DebounceMs)
			} else {
				fmt.Fprintln(out, "Watch:    (disabled)")
			}

			for _, o := range config.EnvOverrides {
				if v := os.Getenv(o.Name); v != "" {
					fmt.Fprintf(out, "Override: %s=%s (%s)\n", o.Name, v, o.Key)
				}
			}

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
