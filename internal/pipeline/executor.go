package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dualsub/internal/artifacts"
	"dualsub/internal/captions"
	"dualsub/internal/fileutil"
	"dualsub/internal/logging"
	"dualsub/internal/services"
	"dualsub/internal/staging"
	"dualsub/internal/timeline"
)

// ErrProducer is matched by every ProducerFailure.
var ErrProducer = errors.New("producer failed")

// ProducerFailure reports the stage whose producer failed.
type ProducerFailure struct {
	Stage staging.Stage
	Err   error
}

func (f *ProducerFailure) Error() string {
	return fmt.Sprintf("stage %s failed producing %s: %v", f.Stage.Name(), f.Stage.OutputPath, f.Err)
}

// Unwrap exposes both ErrProducer and the producer's own error.
func (f *ProducerFailure) Unwrap() []error {
	return []error{ErrProducer, f.Err}
}

// Report summarises one execution. Executed and Skipped hold stage names in
// completion order.
type Report struct {
	Executed []string
	Skipped  []string
	Failure  *ProducerFailure
	Duration time.Duration
}

// Config is the executor's explicit configuration.
type Config struct {
	// SourceLanguage is the spoken language handed to speech translation and
	// used to label combined tracks.
	SourceLanguage string
	// Workers bounds concurrently running independent stages. Values below 2
	// run stages one at a time in plan order.
	Workers int
	// Style is applied to the secondary text of combined tracks.
	Style captions.Style
}

// Executor runs stage plans.
type Executor struct {
	cfg       Config
	producers Producers
	logger    *slog.Logger
}

// NewExecutor builds an executor.
func NewExecutor(cfg Config, producers Producers, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Executor{
		cfg:       cfg,
		producers: producers,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Execute runs every pending stage of plan in dependency order. The first
// producer failure stops execution: the returned error is the
// *ProducerFailure, which is also recorded in the report. A cancelled context
// stops execution before the next stage starts.
func (e *Executor) Execute(ctx context.Context, plan staging.Plan) (Report, error) {
	started := time.Now()
	report := Report{}
	logger := logging.WithContext(ctx, e.logger)

	for _, s := range plan.Stages {
		if !s.AlreadySatisfied {
			continue
		}
		report.Skipped = append(report.Skipped, s.Name())
		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "stage_skip"),
			logging.String(logging.FieldStage, s.Name()),
			logging.String("output", s.OutputPath),
		}
		attrs = append(attrs, logging.DecisionAttrs("stage_reuse", "skip", "output artifact present")...)
		logger.Info("stage skipped", logging.Args(attrs...)...)
	}

	var mu sync.Mutex
	for _, wave := range e.schedule(plan) {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(started)
			return report, err
		}

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(e.cfg.Workers)
		for _, idx := range wave {
			stage := plan.Stages[idx]
			group.Go(func() error {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				if err := e.runStage(groupCtx, plan, stage); err != nil {
					return &ProducerFailure{Stage: stage, Err: err}
				}
				mu.Lock()
				report.Executed = append(report.Executed, stage.Name())
				mu.Unlock()
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			report.Duration = time.Since(started)
			var failure *ProducerFailure
			if errors.As(err, &failure) {
				report.Failure = failure
				return report, failure
			}
			return report, err
		}
	}

	report.Duration = time.Since(started)
	logger.Info("plan executed",
		logging.String(logging.FieldEventType, "plan_complete"),
		logging.Int("executed", len(report.Executed)),
		logging.Int("skipped", len(report.Skipped)),
		logging.Duration("duration", report.Duration),
	)
	return report, nil
}

// schedule groups pending stage indexes. With one worker every stage is its
// own group, in plan order.
func (e *Executor) schedule(plan staging.Plan) [][]int {
	if e.cfg.Workers > 1 {
		return plan.Waves()
	}
	var waves [][]int
	for i, s := range plan.Stages {
		if !s.AlreadySatisfied {
			waves = append(waves, []int{i})
		}
	}
	return waves
}

func (e *Executor) runStage(ctx context.Context, plan staging.Plan, stage staging.Stage) error {
	ctx = services.WithStage(ctx, stage.Name())
	if stage.Engine != "" {
		ctx = services.WithEngine(ctx, stage.Engine)
	}
	logger := logging.WithContext(ctx, e.logger)
	started := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("output", stage.OutputPath),
		logging.Bool("forced", stage.Forced),
	)

	err := e.produce(ctx, plan, stage)
	if err != nil {
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("output", stage.OutputPath),
			logging.String(logging.FieldErrorHint, "fix the cause and re-run; completed artifacts are reused"),
			logging.Error(err),
		)
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("output", stage.OutputPath),
		logging.Duration("duration", time.Since(started)),
	)
	return nil
}

func (e *Executor) produce(ctx context.Context, plan staging.Plan, stage staging.Stage) error {
	switch stage.Kind {
	case staging.Transcribe:
		if e.producers.Transcriber == nil {
			return missingProducer("transcriber")
		}
		track, err := e.producers.Transcriber.Transcribe(ctx, plan.Media, stage.Output.Language)
		if err != nil {
			return err
		}
		return writeTrack(stage.OutputPath, track)

	case staging.Extract:
		if e.producers.Extractor == nil {
			return missingProducer("extractor")
		}
		if stage.Output.TrackIndex == nil {
			return services.Wrap(services.ErrValidation, "pipeline", "extract", "Extract stage has no track index", nil)
		}
		track, err := e.producers.Extractor.ExtractTrack(ctx, plan.Media, stage.Output.Language, *stage.Output.TrackIndex)
		if err != nil {
			return err
		}
		return writeTrack(stage.OutputPath, track)

	case staging.Translate:
		return e.translate(ctx, plan, stage)

	case staging.Combine:
		return e.combine(stage)

	case staging.Mux:
		return e.mux(ctx, plan, stage)
	}
	return services.Wrap(services.ErrValidation, "pipeline", "execute", fmt.Sprintf("Unknown stage kind %s", stage.Kind), nil)
}

func (e *Executor) translate(ctx context.Context, plan staging.Plan, stage staging.Stage) error {
	if stage.Engine == artifacts.DefaultEngine {
		if e.producers.Transcriber == nil {
			return missingProducer("transcriber")
		}
		track, err := e.producers.Transcriber.Translate(ctx, plan.Media, e.cfg.SourceLanguage, stage.Output.Language)
		if err != nil {
			return err
		}
		return writeTrack(stage.OutputPath, track)
	}

	translator := e.producers.Translators[stage.Engine]
	if translator == nil {
		return missingProducer(stage.Engine + " translator")
	}
	if len(stage.InputPaths) != 1 {
		return services.Wrap(services.ErrValidation, "pipeline", "translate",
			fmt.Sprintf("Translate stage expects one input, got %d", len(stage.InputPaths)), nil)
	}
	source, err := captions.Load(stage.InputPaths[0])
	if err != nil {
		return err
	}
	track, err := translator.Translate(ctx, source, stage.Inputs[0].Language, stage.Output.Language)
	if err != nil {
		return err
	}
	return writeTrack(stage.OutputPath, track)
}

func (e *Executor) combine(stage staging.Stage) error {
	if len(stage.InputPaths) != 2 {
		return services.Wrap(services.ErrValidation, "pipeline", "combine",
			fmt.Sprintf("Combine stage expects two inputs, got %d", len(stage.InputPaths)), nil)
	}
	primary, err := captions.Load(stage.InputPaths[0])
	if err != nil {
		return err
	}
	secondary, err := captions.Load(stage.InputPaths[1])
	if err != nil {
		return err
	}
	// Text engines translate line-joined cues, so the primary is joined too
	// to keep both halves of each pair the same shape.
	if stage.Engine != artifacts.DefaultEngine {
		primary = primary.JoinLines()
	}
	merged, err := timeline.Merge(primary, secondary, e.cfg.Style)
	if err != nil {
		return err
	}
	return writeTrack(stage.OutputPath, merged.Track())
}

func (e *Executor) mux(ctx context.Context, plan staging.Plan, stage staging.Stage) error {
	if e.producers.Muxer == nil {
		return missingProducer("muxer")
	}
	tracks := make([]MuxTrack, 0, len(stage.Inputs))
	for i, in := range stage.Inputs {
		tracks = append(tracks, muxTrackFor(in, stage.InputPaths[i], e.cfg.SourceLanguage))
	}
	tmp := fileutil.TempPathFor(stage.OutputPath, "mux")
	_ = os.Remove(tmp)
	req := MuxRequest{Media: plan.Media, Output: tmp, Tracks: tracks}
	if err := e.producers.Muxer.Mux(ctx, req); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, stage.OutputPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish muxed output: %w", err)
	}
	return nil
}

func writeTrack(path string, track captions.Track) error {
	return captions.Write(path, track)
}

func missingProducer(name string) error {
	return services.Wrap(services.ErrConfiguration, "pipeline", "execute", fmt.Sprintf("No %s configured", name), nil)
}
