package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dualsub/internal/captions"
	"dualsub/internal/services"
	"dualsub/internal/timeline"
)

func newCombineCommand(ctx *commandContext) *cobra.Command {
	var shift time.Duration
	var sortInputs bool
	cmd := &cobra.Command{
		Use:   "combine <primary> <secondary> <output.srt>",
		Short: "Merge two subtitle tracks into one dual-language SRT",
		Long: `Merge two subtitle tracks into one dual-language SRT.

Each input is an SRT file, a media file (its first subtitle stream) or
media.mkv:LANG:N (the Nth subtitle stream in LANG; negative counts from the end).
Secondary lines are colored with --color. --shift moves the secondary track
(e.g. --shift=-1.5s) and --sort orders cues of inputs that are not sorted by
start time.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			extractor := newExtractor(cfg, logger)

			primary, _, err := loadDesignated(cmd.Context(), args[0], extractor)
			if err != nil {
				return fmt.Errorf("load primary %s: %w", args[0], err)
			}
			secondary, _, err := loadDesignated(cmd.Context(), args[1], extractor)
			if err != nil {
				return fmt.Errorf("load secondary %s: %w", args[1], err)
			}
			if shift != 0 {
				secondary = secondary.Timeshift(shift)
			}
			if sortInputs {
				primary, secondary = primary.SortStable(), secondary.SortStable()
			}
			merged, err := timeline.Merge(primary, secondary, captions.Style{Color: cfg.Pipeline.SecondaryColor})
			if err != nil {
				return services.Wrap(services.ErrValidation, "combine", "merge", "", err)
			}
			out := merged.Track()
			if err := captions.Write(args[2], out); err != nil {
				return fmt.Errorf("write %s: %w", args[2], err)
			}
			start, end := out.Span()
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cues (%s to %s) to %s\n",
				out.Len(), captions.FormatTimestamp(start), captions.FormatTimestamp(end), args[2])
			return nil
		},
	}
	cmd.Flags().DurationVar(&shift, "shift", 0, "Shift the secondary track by this offset before merging")
	cmd.Flags().BoolVar(&sortInputs, "sort", false, "Sort input cues by start time instead of rejecting unordered tracks")
	return cmd
}
