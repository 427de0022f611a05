package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/soyeahso/eina/internal/builtin/settings"
	"github.com/soyeahso/eina/internal/plugin"
	"github.com/spf13/cobra"
)

func newPluginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect and manage plugins",
	}

	cmd.AddCommand(newPluginsListCmd())
	cmd.AddCommand(newPluginsInfoCmd())
	cmd.AddCommand(newPluginsLoadCmd())
	cmd.AddCommand(newPluginsEnableCmd(true))
	cmd.AddCommand(newPluginsEnableCmd(false))
	cmd.AddCommand(newPluginsHistoryCmd())

	return cmd
}

// catalog returns every plugin the engine knows about: scanned descriptors
// first, then builtins not shadowed by one.
func catalog(e *plugin.Engine) []plugin.Info {
	infos := e.Infos()
	for _, b := range e.Builtins().Infos() {
		if !slices.ContainsFunc(infos, b.Equal) {
			infos = append(infos, b)
		}
	}
	return infos
}

func newPluginsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List discovered and builtin plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close(context.Background())

			var enabled []string
			if sp, err := s.settings(ctx); err == nil {
				enabled = sp.Enabled()
			} else {
				log.Warn().Err(err).Msg("settings unavailable")
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSOURCE\tDEPENDS\tENABLED\tMANDATORY")
			for _, info := range catalog(s.engine) {
				source := info.Pathname
				if source == "" {
					source = "builtin"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					info.Name,
					source,
					orDash(strings.Join(info.Depends, ",")),
					yesNo(slices.Contains(enabled, info.Name)),
					yesNo(slices.Contains(s.cfg.Plugins.Mandatory, info.Name)),
				)
			}
			return tw.Flush()
		},
	}
}

func newPluginsInfoCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info <name>",
		Short: "Show a plugin's descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close(context.Background())

			info, ok := s.engine.Lookup(args[0])
			if !ok {
				return fmt.Errorf("plugin %q not found in %s", args[0], strings.Join(s.engine.SearchPaths(), ", "))
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			printInfo(out, info)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printInfo(w io.Writer, info plugin.Info) {
	fmt.Fprintf(w, "Name:        %s\n", info.Name)
	fmt.Fprintf(w, "Path:        %s\n", orDash(info.Pathname))
	fmt.Fprintf(w, "Depends:     %s\n", orDash(strings.Join(info.Depends, ", ")))
	fmt.Fprintf(w, "Author:      %s\n", orDash(info.Author))
	fmt.Fprintf(w, "URL:         %s\n", orDash(info.URL))
	fmt.Fprintf(w, "Summary:     %s\n", orDash(info.ShortDesc))
	if info.IconPathname != "" {
		fmt.Fprintf(w, "Icon:        %s\n", info.IconPathname)
	}
	if info.LongDesc != "" {
		fmt.Fprintf(w, "\n%s\n", info.LongDesc)
	}
}

func newPluginsLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <name|dir>",
		Short: "Load a plugin with its dependencies, report the result, and unload everything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession()
			if err != nil {
				return err
			}

			var h *plugin.Handle
			if strings.ContainsRune(args[0], os.PathSeparator) {
				h, err = s.engine.LoadByPathname(ctx, args[0])
			} else {
				h, err = s.engine.LoadByName(ctx, args[0])
			}

			out := cmd.OutOrStdout()
			if err == nil {
				fmt.Fprintf(out, "Loaded %s\n", h.Name())
				fmt.Fprintf(out, "Depends on:  %s\n", orDash(strings.Join(s.engine.Dependencies(h), ", ")))
			}
			fmt.Fprintf(out, "Load order:  %s\n", orDash(strings.Join(s.engine.LoadedNames(), " ")))

			return errors.Join(err, s.close(context.Background()))
		},
	}
}

// newPluginsEnableCmd builds "enable" or "disable". The stored state is
// whatever the attempt actually achieved, so a plugin that fails to load is
// recorded as disabled.
func newPluginsEnableCmd(enable bool) *cobra.Command {
	use, short := "disable <name>", "Unload a plugin and stop loading it at startup"
	if enable {
		use, short = "enable <name>", "Load a plugin and load it at startup from now on"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close(context.Background())

			sp, err := s.settings(ctx)
			if err != nil {
				return err
			}

			if !enable && (name == settings.Name || slices.Contains(s.cfg.Plugins.Mandatory, name)) {
				return fmt.Errorf("plugin %s is mandatory", name)
			}

			var attempt error
			if enable {
				_, attempt = s.engine.LoadByName(ctx, name)
			} else if h := s.engine.Get(name); h != nil {
				attempt = s.engine.Unload(ctx, h)
			}

			loaded := s.engine.Get(name) != nil
			if err := sp.SetEnabled(name, loaded); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if loaded {
				fmt.Fprintf(out, "%s enabled\n", name)
			} else {
				fmt.Fprintf(out, "%s disabled\n", name)
			}
			return attempt
		},
	}
}

func newPluginsHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [name]",
		Short: "Show recent plugin load and unload events",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close(context.Background())

			sp, err := s.settings(ctx)
			if err != nil {
				return err
			}

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			events, err := sp.History.Recent(name, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tEVENT\tPLUGIN")
			for _, ev := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", ev.At.Local().Format("2006-01-02 15:04:05"), ev.Event, ev.Plugin)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events to show")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
