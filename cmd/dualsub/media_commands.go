package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dualsub/internal/artifacts"
	"dualsub/internal/config"
	"dualsub/internal/logging"
	"dualsub/internal/pipeline"
	"dualsub/internal/services"
	"dualsub/internal/staging"
)

// mediaOptions carries the per-command pipeline settings.
type mediaOptions struct {
	outputs     staging.OutputSet
	recombine   bool
	dryRun      bool
	engines     []string
	workers     int
	sidOriginal string
	// whisperTranscript and whisperTranslate mirror -w and -W.
	whisperTranscript bool
	whisperTranslate  bool
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <media>...",
		Short: "Transcribe media in the source language with whisper",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runMedia(cmd, args, mediaOptions{
				outputs: staging.OutputSet{Transcript: true},
			})
		},
	}
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var engines []string
	cmd := &cobra.Command{
		Use:   "translate <media>...",
		Short: "Produce translated subtitles for media (whisper speech translation by default)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runMedia(cmd, args, mediaOptions{
				outputs: staging.OutputSet{Translation: true},
				engines: engines,
			})
		},
	}
	cmd.Flags().StringSliceVarP(&engines, "engine", "e", nil, "Translation engine (repeatable): whisper, azure, argos, clipboard")
	return cmd
}

func addAutoFlags(cmd *cobra.Command, opts *mediaOptions, noNewMKV *bool) {
	flags := cmd.Flags()
	flags.BoolVarP(&opts.whisperTranscript, "whisper", "w", false, "Transcribe the original language with whisper (default unless --sid-original is set; with it, both originals are translated and combined)")
	flags.BoolVarP(&opts.whisperTranslate, "whisper-trans", "W", false, "Translate speech to English with whisper")
	flags.StringSliceVarP(&opts.engines, "engine", "e", nil, "Text translation engine (repeatable): azure, argos, clipboard")
	flags.StringVar(&opts.sidOriginal, "sid-original", "", "Use an embedded subtitle stream as the original: LANG:N or N (Nth stream of the source language; negative counts from the end)")
	flags.BoolVar(noNewMKV, "no-new-mkv", false, "Stop after the combined subtitles; do not write a .new.mkv")
	flags.BoolVar(&opts.recombine, "re-combine", false, "Rebuild combined subtitles and the .new.mkv even if they exist")
	flags.IntVar(&opts.workers, "workers", 0, "Run up to this many independent stages at once (overrides pipeline.workers)")
}

func newAutoCommand(ctx *commandContext) *cobra.Command {
	var opts mediaOptions
	var noNewMKV bool
	cmd := &cobra.Command{
		Use:   "auto <media>...",
		Short: "Build every missing artifact up to combined subtitles and a new MKV",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.outputs = staging.OutputSet{Combined: true, Video: !noNewMKV}
			return ctx.runMedia(cmd, args, opts)
		},
	}
	addAutoFlags(cmd, &opts, &noNewMKV)
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the plan without running anything")
	return cmd
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var opts mediaOptions
	var noNewMKV bool
	cmd := &cobra.Command{
		Use:   "plan <media>...",
		Short: "Show which stages auto would run and which artifacts already exist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.outputs = staging.OutputSet{Combined: true, Video: !noNewMKV}
			opts.dryRun = true
			return ctx.runMedia(cmd, args, opts)
		},
	}
	addAutoFlags(cmd, &opts, &noNewMKV)
	return cmd
}

// pipelineConfig derives the effective configuration for one command from the
// loaded config and the command flags.
func pipelineConfig(base *config.Config, opts mediaOptions) (*config.Config, error) {
	cfg := *base
	var engines []string
	if opts.whisperTranslate {
		engines = append(engines, artifacts.DefaultEngine)
	}
	engines = append(engines, opts.engines...)
	if len(engines) > 0 {
		cfg.Pipeline.Engines = engines
	}
	if opts.workers > 0 {
		cfg.Pipeline.Workers = opts.workers
	}
	if err := cfg.Finalize(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "cli", "flags", "", err)
	}
	return &cfg, nil
}

// parseTrackSelector reads "LANG:N" or "N"; a bare position uses fallbackLang.
func parseTrackSelector(value, fallbackLang string) (string, int, error) {
	value = strings.TrimSpace(value)
	lang, pos, found := strings.Cut(value, ":")
	if !found {
		lang, pos = fallbackLang, value
	}
	n, err := strconv.Atoi(strings.TrimSpace(pos))
	if err != nil || strings.TrimSpace(lang) == "" {
		return "", 0, services.Wrap(services.ErrValidation, "cli", "sid-original",
			fmt.Sprintf("Invalid track selector %q (want LANG:N or N)", value), err)
	}
	return strings.TrimSpace(lang), n, nil
}

func (c *commandContext) runMedia(cmd *cobra.Command, media []string, opts mediaOptions) error {
	defer c.release()
	base, err := c.ensureConfig()
	if err != nil {
		return err
	}
	cfg, err := pipelineConfig(base, opts)
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}

	var executor *pipeline.Executor
	if !opts.dryRun {
		producers, err := c.newProducers(cfg, logger, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		executor = newExecutor(cfg, producers, logger)
	}

	var sidLang string
	var sidPos int
	if opts.sidOriginal != "" {
		if sidLang, sidPos, err = parseTrackSelector(opts.sidOriginal, cfg.Pipeline.SourceLanguage); err != nil {
			return err
		}
	}
	extractor := newExtractor(cfg, logger)

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	var errs []error
	for _, path := range media {
		if err := cmd.Context().Err(); err != nil {
			errs = append(errs, err)
			break
		}
		abs, err := filepath.Abs(strings.TrimSpace(path))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}

		var ref *staging.TrackRef
		if opts.sidOriginal != "" {
			index, err := extractor.ResolveTrack(cmd.Context(), abs, sidLang, sidPos)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", path, err))
				continue
			}
			ref = &staging.TrackRef{Language: sidLang, Index: index}
		}

		result, err := c.runOne(cmd.Context(), cfg, ref, executor, abs, opts)
		fmt.Fprintln(out, abs)
		if len(result.Plan.Stages) > 0 {
			if opts.dryRun {
				fmt.Fprintln(out, renderPlan(result.Plan, colorize))
			} else {
				fmt.Fprintln(out, renderReport(result.Report, colorize))
			}
		}
		if err != nil {
			logger.Error("media failed",
				logging.String(logging.FieldEventType, "media_failed"),
				logging.String("media", abs),
				logging.String(logging.FieldErrorHint, "fix the cause and re-run; finished artifacts are kept"),
				logging.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

func (c *commandContext) runOne(ctx context.Context, cfg *config.Config, ref *staging.TrackRef, executor *pipeline.Executor, media string, opts mediaOptions) (pipeline.Result, error) {
	planner, err := newPlanner(cfg, ref, opts.whisperTranscript)
	if err != nil {
		return pipeline.Result{}, err
	}
	runner := pipeline.NewRunner(planner, executor, cfg.Pipeline.LockDir, c.logger)
	return runner.Run(ctx, media, pipeline.RunOptions{
		Outputs:   opts.outputs,
		Recombine: opts.recombine,
		DryRun:    opts.dryRun,
	})
}
