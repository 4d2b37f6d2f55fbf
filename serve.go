package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/llehouerou/castdeck/internal/auth"
	"github.com/llehouerou/castdeck/internal/blob"
	"github.com/llehouerou/castdeck/internal/errmsg"
	"github.com/llehouerou/castdeck/internal/server"
	"github.com/llehouerou/castdeck/internal/store"
	"github.com/llehouerou/castdeck/internal/studio"
	"github.com/llehouerou/castdeck/internal/tts"
)

func newServeCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			return rt.serve(cmd.Context(), addr)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	return cmd
}

// studioDeps holds the services shared by serve and the episode commands.
type studioDeps struct {
	store  *store.Store
	blobs  *blob.FileStore
	studio *studio.Service
	synth  tts.Synthesizer
}

func (d *studioDeps) Close() {
	if c, ok := d.synth.(io.Closer); ok {
		c.Close()
	}
	d.store.Close()
}

func (rt *runtime) openStudio(ctx context.Context) (*studioDeps, error) {
	st, err := rt.openStore()
	if err != nil {
		return nil, err
	}
	dataDir, err := rt.dataDir()
	if err != nil {
		st.Close()
		return nil, err
	}
	sc := rt.cfg.GetStorageConfig(dataDir)
	blobs, err := blob.NewFileStore(sc.Dir, sc.BaseURL)
	if err != nil {
		st.Close()
		return nil, err
	}

	tc := rt.cfg.GetTTSConfig()
	synth, err := tts.New(ctx, tts.Config{
		Provider: tc.Provider,
		APIKey:   tc.APIKey,
		Voice:    tc.Voice,
		Model:    tc.Model,
		Format:   tc.Format,
		Language: tc.Language,
		BaseURL:  tc.BaseURL,
		Logger:   rt.log,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	rt.log.WithFields(logrus.Fields{
		"provider": tc.Provider,
		"audio":    sc.Dir,
	}).Debug("studio ready")

	return &studioDeps{
		store: st,
		blobs: blobs,
		synth: synth,
		studio: studio.New(studio.Config{
			Episodes:    st,
			Profiles:    st,
			Synthesizer: synth,
			Blobs:       blobs,
			Logger:      rt.log,
		}),
	}, nil
}

func (rt *runtime) serve(ctx context.Context, addr string) error {
	deps, err := rt.openStudio(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpServe, err)
	}
	defer deps.Close()

	sc := rt.cfg.GetServerConfig()
	if addr != "" {
		sc.Addr = addr
	}

	mgr := auth.NewManager(deps.store, auth.Options{SessionTTL: sc.SessionTTL()})
	defer mgr.Close()

	srv := server.New(server.Config{
		Addr:            sc.Addr,
		Auth:            mgr,
		Studio:          deps.studio,
		Blobs:           deps.blobs,
		Logger:          rt.log,
		SecureCookies:   sc.SecureCookies,
		AuthInterval:    time.Duration(sc.AuthIntervalMS) * time.Millisecond,
		ShutdownTimeout: time.Duration(sc.ShutdownTimeoutMS) * time.Millisecond,
	})
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpServe, err)
	}
	return nil
}
