package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/castdeck/internal/auth"
	"github.com/llehouerou/castdeck/internal/errmsg"
	"github.com/llehouerou/castdeck/internal/notify"
	"github.com/llehouerou/castdeck/internal/store"
	"github.com/llehouerou/castdeck/internal/ui/playerbar"
	"github.com/llehouerou/castdeck/internal/ui/styles"
)

func newEpisodesCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "episodes",
		Short: "Inspect and publish episodes from the command line",
	}
	cmd.PersistentFlags().StringP("user", "u", "", "owner email (required)")
	_ = cmd.MarkPersistentFlagRequired("user")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's episodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.listEpisodes(cmd)
		},
	}

	generateCmd := &cobra.Command{
		Use:   "generate <episode-id>",
		Short: "Synthesize and publish an episode's audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.generateEpisode(cmd, args[0])
		},
	}
	generateCmd.Flags().Bool("notify", false, "show desktop notifications while generating")
	generateCmd.Flags().Bool("force", false, "regenerate even if the episode is marked as processing")

	cmd.AddCommand(listCmd, generateCmd)
	return cmd
}

func lookupUserID(ctx context.Context, st *store.Store, email string) (string, error) {
	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return "", err
	}
	u, err := st.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

func (rt *runtime) listEpisodes(cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := rt.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	email, _ := cmd.Flags().GetString("user")
	userID, err := lookupUserID(ctx, st, email)
	if err != nil {
		return errors.New(errmsg.FormatWith(errmsg.OpEpisodeLoad, email, err))
	}
	eps, err := st.ListByUser(ctx, userID)
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpEpisodeLoad, err))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.T().S().Subtle).
		Headers("ID", "STATUS", "DURATION", "CREATED", "TITLE")
	for _, e := range eps {
		dur := "-"
		if e.Duration > 0 {
			dur = playerbar.FormatTime(e.Duration)
		}
		t.Row(e.ID, e.Status.String(), dur, humanize.Time(e.CreatedAt), e.Title)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return err
}

func (rt *runtime) generateEpisode(cmd *cobra.Command, id string) error {
	ctx := cmd.Context()
	deps, err := rt.openStudio(ctx)
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}
	defer deps.Close()

	email, _ := cmd.Flags().GetString("user")
	userID, err := lookupUserID(ctx, deps.store, email)
	if err != nil {
		return errors.New(errmsg.FormatWith(errmsg.OpEpisodeLoad, email, err))
	}

	ep, err := deps.studio.GetEpisode(ctx, userID, id)
	if err != nil {
		return errors.New(errmsg.FormatWith(errmsg.OpEpisodeGenerate, id, err))
	}

	var progress *notify.Progress
	if on, _ := cmd.Flags().GetBool("notify"); on {
		notifier, _ := notify.New()
		progress = notify.NewProgress(notifier)
		if err := progress.Started(ep); err != nil {
			rt.log.WithError(err).Warn("desktop notification failed")
		}
	}

	generate := deps.studio.GenerateAudio
	if force, _ := cmd.Flags().GetBool("force"); force {
		generate = deps.studio.ForceGenerateAudio
	}

	start := time.Now()
	e, err := generate(ctx, userID, id)
	if err != nil {
		if progress != nil {
			_ = progress.Failed(ep.ID, ep.Title, err)
		}
		return errors.New(errmsg.FormatWith(errmsg.OpEpisodeGenerate, ep.Title, err))
	}
	if progress != nil {
		if err := progress.Published(e); err != nil {
			rt.log.WithError(err).Warn("desktop notification failed")
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Published %q (%s) in %s\n%s\n",
		e.Title, playerbar.FormatTime(e.Duration), time.Since(start).Round(time.Millisecond), e.AudioURL)
	return nil
}
