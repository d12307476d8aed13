package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"dualsub/internal/artifacts"
	"dualsub/internal/captions"
	"dualsub/internal/services"
)

func newSimpleCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "simple <media>...",
		Short: "Transcribe media with whisper to <name>.srt (no language code)",
		Long: `Transcribe media with whisper to <name>.srt.

The output carries no language code, so players pick it up as the default
track. It is rewritten on every run and never reused by auto. --output
overrides the path when a single media file is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.release()
			if output != "" && len(args) > 1 {
				return services.Wrap(services.ErrValidation, "cli", "simple", "--output takes a single media file", nil)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			transcriber := newWhisperService(cfg, logger)

			var errs []error
			for _, path := range args {
				abs, err := filepath.Abs(strings.TrimSpace(path))
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", path, err))
					continue
				}
				target := output
				if target == "" {
					base, err := artifacts.BaseName(abs)
					if err != nil {
						errs = append(errs, services.Wrap(services.ErrValidation, "cli", "simple", "", err))
						continue
					}
					target = base + ".srt"
				}
				runCtx := services.WithMedia(cmd.Context(), abs)
				track, err := transcriber.Transcribe(runCtx, abs, cfg.Pipeline.SourceLanguage)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", path, err))
					continue
				}
				if err := captions.Write(target, track); err != nil {
					errs = append(errs, fmt.Errorf("write %s: %w", target, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cues to %s\n", track.Len(), target)
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (single media only)")
	return cmd
}
