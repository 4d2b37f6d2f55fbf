package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/llehouerou/castdeck/internal/config"
	"github.com/llehouerou/castdeck/internal/errmsg"
	"github.com/llehouerou/castdeck/internal/logging"
	"github.com/llehouerou/castdeck/internal/store"
)

// runtime carries what every subcommand needs.
type runtime struct {
	cfg       *config.Config
	log       *logrus.Logger
	logCloser io.Closer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd(&runtime{log: logrus.New()})

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(rt *runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "castdeck",
		Short:         "Podcast studio: write scripts, synthesize episodes, play them back",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.init(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if rt.logCloser != nil {
				rt.logCloser.Close()
			}
		},
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default: ~/.config/castdeck/config.toml)")
	rootCmd.PersistentFlags().String("log-level", "", "override log level")

	rootCmd.AddCommand(
		newServeCmd(rt),
		newPlayCmd(rt),
		newSynthCmd(rt),
		newEpisodesCmd(rt),
	)

	return rootCmd
}

func (rt *runtime) init(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	var err error
	if path != "" {
		rt.cfg, err = config.LoadFrom(path)
	} else {
		rt.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpInitialize, err)
	}

	lc := rt.cfg.GetLogConfig()
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		lc.Level = lvl
	}
	opts := logging.Options{Level: lc.Level, Format: lc.Format, File: lc.File}
	if cmd.Name() == "play" && lc.File == "" {
		// The TUI owns the terminal.
		opts.Output = io.Discard
	}
	rt.logCloser, err = logging.Setup(rt.log, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpInitialize, err)
	}
	return nil
}

// openStore opens the configured database.
func (rt *runtime) openStore() (*store.Store, error) {
	return store.Open(rt.cfg.Database.Path)
}

// dataDir is where castdeck keeps its database and audio by default.
func (rt *runtime) dataDir() (string, error) {
	path := rt.cfg.Database.Path
	if path == "" || path == ":memory:" {
		p, err := store.DefaultPath()
		if err != nil {
			return "", err
		}
		path = p
	}
	return filepath.Dir(path), nil
}
