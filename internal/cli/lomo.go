package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/soyeahso/eina/internal/builtin/lomo"
	"github.com/spf13/cobra"
)

func newLomoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lomo",
		Short: "Control MPD playback through the lomo plugin",
	}

	actions := []struct {
		use, short string
		fn         func(*lomo.Plugin) error
	}{
		{"play", "Start playback", (*lomo.Plugin).Play},
		{"pause", "Pause playback", (*lomo.Plugin).Pause},
		{"resume", "Resume playback", (*lomo.Plugin).Resume},
		{"stop", "Stop playback", (*lomo.Plugin).Stop},
		{"next", "Skip to the next song", (*lomo.Plugin).Next},
		{"prev", "Go back to the previous song", (*lomo.Plugin).Previous},
	}
	for _, a := range actions {
		cmd.AddCommand(&cobra.Command{
			Use:   a.use,
			Short: a.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withLomo(cmd.Context(), a.fn)
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the player state and current song",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLomo(cmd.Context(), func(p *lomo.Plugin) error {
				st, err := p.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "State:   %s (volume %d, %.0fs elapsed)\n", st.State, st.Volume, st.Elapsed)
				if st.Title != "" {
					fmt.Fprintf(out, "Song:    %s - %s\n", st.Artist, st.Title)
				} else if st.File != "" {
					fmt.Fprintf(out, "Song:    %s\n", st.File)
				}
				return nil
			})
		},
	})

	return cmd
}

// withLomo loads lomo (and so settings), runs fn, and tears both down.
func withLomo(ctx context.Context, fn func(*lomo.Plugin) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if _, err := s.engine.LoadByName(ctx, lomo.Name); err != nil {
		return errors.Join(err, s.close(context.Background()))
	}
	p, ok := lomo.From(s.engine)
	if !ok {
		return errors.Join(errors.New("lomo plugin did not initialize"), s.close(context.Background()))
	}
	return errors.Join(fn(p), s.close(context.Background()))
}
