package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"dualsub/internal/artifacts"
	"dualsub/internal/logging"
	"dualsub/internal/services"
	"dualsub/internal/staging"
)

// staleTempAge is how old a leftover temp file must be before a run removes it.
const staleTempAge = time.Hour

// RunOptions tunes one Runner invocation.
type RunOptions struct {
	Outputs   staging.OutputSet
	Recombine bool
	// DryRun plans without taking the lock or executing anything.
	DryRun bool
}

// Result is the outcome of one Runner invocation.
type Result struct {
	RunID  string
	Media  string
	Plan   staging.Plan
	Report Report
}

// Runner processes media files one invocation at a time.
type Runner struct {
	planner  *staging.Planner
	executor *Executor
	lockDir  string
	logger   *slog.Logger
}

// NewRunner ties a planner and an executor together. lockDir holds the
// per-media lock files.
func NewRunner(planner *staging.Planner, executor *Executor, lockDir string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		planner:  planner,
		executor: executor,
		lockDir:  lockDir,
		logger:   logging.NewComponentLogger(logger, "runner"),
	}
}

// Run plans and executes opts.Outputs for media.
func (r *Runner) Run(ctx context.Context, media string, opts RunOptions) (Result, error) {
	result := Result{RunID: uuid.NewString(), Media: media}
	ctx = services.WithRunID(ctx, result.RunID)
	ctx = services.WithMedia(ctx, media)
	logger := logging.WithContext(ctx, r.logger)

	base, err := artifacts.BaseName(media)
	if err != nil {
		if errors.Is(err, artifacts.ErrAlreadyMuxed) {
			return result, services.Wrap(services.ErrValidation, "runner", "base name", "Refusing to process a muxed output", err)
		}
		return result, services.Wrap(services.ErrValidation, "runner", "base name", "Invalid media path", err)
	}
	if _, err := os.Stat(media); err != nil {
		return result, services.Wrap(services.ErrNotFound, "runner", "stat media", fmt.Sprintf("Media file %s is not readable", media), err)
	}

	if !opts.DryRun {
		lock, err := artifacts.AcquireLock(r.lockDir, base)
		if err != nil {
			return result, services.Wrap(services.ErrTransient, "runner", "lock", "Media is locked", err)
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Debug("lock release failed", logging.Error(err))
			}
		}()
		staging.CleanStaleTemps(base, staleTempAge, logger)
	}

	plan, err := r.planner.Plan(staging.Request{
		Media:     media,
		BaseName:  base,
		Outputs:   opts.Outputs,
		Recombine: opts.Recombine,
	})
	if err != nil {
		return result, services.Wrap(services.ErrValidation, "runner", "plan", "Planning failed", err)
	}
	result.Plan = plan

	logger.Info("plan ready",
		logging.String(logging.FieldEventType, "plan_ready"),
		logging.String("outputs", opts.Outputs.String()),
		logging.Group("stages",
			logging.Int("total", len(plan.Stages)),
			logging.Int("pending", len(plan.Pending())),
		),
		logging.Bool("dry_run", opts.DryRun),
	)
	if opts.DryRun {
		return result, nil
	}

	result.Report, err = r.executor.Execute(ctx, plan)
	return result, err
}
