package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/castdeck/internal/errmsg"
	"github.com/llehouerou/castdeck/internal/player"
	"github.com/llehouerou/castdeck/internal/tts"
)

func newSynthCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth [text]",
		Short: "Synthesize text to an audio file",
		Long:  "Synthesize text with the configured provider. Reads stdin when no text or --input is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := synthInput(cmd, args)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("output")
			provider, _ := cmd.Flags().GetString("provider")

			tc := rt.cfg.GetTTSConfig()
			if provider != "" {
				tc.Provider = provider
			}
			synth, err := tts.New(cmd.Context(), tts.Config{
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
				return errors.New(errmsg.Format(errmsg.OpSynthesize, err))
			}
			if c, ok := synth.(io.Closer); ok {
				defer c.Close()
			}

			audio, err := synth.Synthesize(cmd.Context(), text)
			if err != nil {
				return errors.New(errmsg.Format(errmsg.OpSynthesize, err))
			}
			if out == "" {
				out = "speech." + audio.Ext
			}
			if err := os.WriteFile(out, audio.Data, 0o644); err != nil {
				return errors.New(errmsg.FormatWith(errmsg.OpAudioWrite, out, err))
			}

			summary := fmt.Sprintf("Wrote %s (%s", out, humanize.Bytes(uint64(len(audio.Data))))
			if d, err := player.Probe(audio.Data, audio.Ext); err == nil {
				summary += ", " + d.Round(100*time.Millisecond).String()
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary+")")
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "output file (default: speech.<ext>)")
	cmd.Flags().StringP("input", "i", "", "read text from a file")
	cmd.Flags().String("provider", "", "override tts.provider")
	return cmd
}

func synthInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	var (
		data []byte
		err  error
	)
	if path, _ := cmd.Flags().GetString("input"); path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", tts.ErrEmptyText
	}
	return text, nil
}
