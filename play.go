package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/llehouerou/castdeck/internal/app"
	"github.com/llehouerou/castdeck/internal/errmsg"
	"github.com/llehouerou/castdeck/internal/mpris"
	"github.com/llehouerou/castdeck/internal/playback"
	"github.com/llehouerou/castdeck/internal/player"
)

func newPlayCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play [file-or-url]",
		Short: "Play an audio file, URL or published episode in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts app.Options
			if len(args) == 1 {
				opts.Source = args[0]
			}
			opts.Title, _ = cmd.Flags().GetString("title")
			opts.Hint, _ = cmd.Flags().GetDuration("duration")
			episodeID, _ := cmd.Flags().GetString("episode")

			if episodeID != "" {
				if err := rt.resolveEpisode(cmd.Context(), episodeID, &opts); err != nil {
					return errors.New(errmsg.FormatWith(errmsg.OpEpisodeLoad, episodeID, err))
				}
			}
			if opts.Source == "" {
				return errors.New("nothing to play: pass a file, a URL or --episode")
			}
			return rt.play(cmd.Context(), opts)
		},
	}
	cmd.Flags().String("episode", "", "play a published episode by id")
	cmd.Flags().String("title", "", "title shown in the player")
	cmd.Flags().Duration("duration", 0, "expected duration until the real one is known")
	return cmd
}

func (rt *runtime) resolveEpisode(ctx context.Context, id string, opts *app.Options) error {
	st, err := rt.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	e, err := st.Get(ctx, id)
	if err != nil {
		return err
	}
	if !e.HasAudio() {
		return fmt.Errorf("episode is %s and has no audio", e.Status)
	}
	opts.Source = e.AudioURL
	if opts.Title == "" {
		opts.Title = e.Title
	}
	if opts.Hint == 0 {
		opts.Hint = e.Duration
	}
	return nil
}

func (rt *runtime) play(ctx context.Context, opts app.Options) error {
	pc := rt.cfg.GetPlayerConfig()
	opts.SeekStep = time.Duration(pc.SeekStepSeconds) * time.Second

	el := player.New(player.Config{Logger: rt.log})
	defer el.Close()

	ctrl := playback.New(el, playback.Options{
		PollInterval:    time.Duration(pc.PollIntervalMS) * time.Millisecond,
		PollAttempts:    pc.PollAttempts,
		ResyncTolerance: time.Duration(pc.ResyncToleranceMS) * time.Millisecond,
		Logger:          rt.log,
	})
	defer ctrl.Close()

	title := opts.Title
	if title == "" {
		title = opts.Source
	}
	if adapter, err := mpris.New(ctx, ctrl, title); err != nil {
		rt.log.WithError(err).Warn("media keys unavailable")
	} else {
		defer adapter.Close()
	}

	p := tea.NewProgram(app.New(ctx, ctrl, opts), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
