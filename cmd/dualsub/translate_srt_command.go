package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"dualsub/internal/captions"
	"dualsub/internal/services"
)

func newTranslateSRTCommand(ctx *commandContext) *cobra.Command {
	var engine string
	var target string
	cmd := &cobra.Command{
		Use:   "translate-srt <input> <output.srt>",
		Short: "Translate the text of a subtitle track with a text engine",
		Long: `Translate the text of a subtitle track with a text engine.

The input is an SRT file or a subtitle stream designator (media.mkv:LANG:N).
Its language is taken from the designator, else from --lang.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.release()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			track, designator, err := loadDesignated(cmd.Context(), args[0], newExtractor(cfg, logger))
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			source := cfg.Pipeline.SourceLanguage
			if designator.Language != "" {
				source = designator.Language
			}
			if target == "" {
				target = cfg.Pipeline.TargetLanguage
			}

			translator, err := ctx.newTranslator(cfg, engine, logger, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			abs, _ := filepath.Abs(designator.Path)
			runCtx := services.WithMedia(cmd.Context(), abs)
			translated, err := translator.Translate(runCtx, track, source, target)
			if err != nil {
				return err
			}
			if err := captions.Write(args[1], translated); err != nil {
				return fmt.Errorf("write %s: %w", args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cues to %s\n", translated.Len(), args[1])
			return nil
		},
	}
	cmd.Flags().StringVarP(&engine, "engine", "e", "azure", "Text translation engine: azure, argos, clipboard")
	cmd.Flags().StringVar(&target, "to", "", "Target language (defaults to pipeline.target_language)")
	return cmd
}
