package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/soyeahso/eina/internal/feed"
	"github.com/soyeahso/eina/internal/watch"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		listen  string
		noWatch bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load the configured plugins and keep them running",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			if listen != "" {
				s.cfg.Events.Listen = listen
			}
			if noWatch {
				s.cfg.Watch.Enabled = false
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return s.run(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "event feed address (overrides events.listen)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not rescan when the search paths change")
	return cmd
}

// run drives the engine from a single goroutine: startup loads, rescans on
// watcher signals, and teardown once ctx is done.
func (s *session) run(ctx context.Context) error {
	e := s.engine
	log.Info().
		Strs("paths", e.SearchPaths()).
		Int("discovered", len(e.Infos())).
		Msg("plugin search paths scanned")

	if s.cfg.Events.Listen != "" {
		f := feed.New(s.cfg.Events, log)
		f.Subscribe(s.hooks)
		go func() {
			if err := f.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event feed stopped")
			}
		}()
	}

	for _, name := range s.cfg.Plugins.Mandatory {
		if _, err := e.LoadByName(ctx, name); err != nil {
			if cerr := s.close(context.Background()); cerr != nil {
				log.Error().Err(cerr).Msg("teardown after failed startup")
			}
			return fmt.Errorf("loading mandatory plugin %s: %w", name, err)
		}
	}

	e.Replay(ctx, s.cfg.Plugins.Autoload)
	if sp, err := s.settings(ctx); err != nil {
		log.Warn().Err(err).Msg("settings unavailable, enabled plugins not restored")
	} else {
		e.Replay(ctx, sp.Enabled())
	}

	log.Info().Strs("loaded", e.LoadedNames()).Msg("eina running")

	var changes <-chan struct{}
	if s.cfg.Watch.Enabled {
		debounce := time.Duration(s.cfg.Watch.DebounceMs) * time.Millisecond
		w, err := watch.New(e.SearchPaths(), debounce, log)
		if err != nil {
			log.Warn().Err(err).Msg("search path watching disabled")
		} else {
			go w.Run(ctx)
			changes = w.C()
		}
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return s.close(context.Background())
		case <-changes:
			n := e.Rescan(ctx)
			log.Info().Int("discovered", n).Msg("plugin search paths rescanned")
		}
	}
}
