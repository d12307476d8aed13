package whisper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"dualsub/internal/captions"
	langpkg "dualsub/internal/language"
	"dualsub/internal/logging"
	"dualsub/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Service runs whisper-ctranslate2 over media files.
type Service struct {
	cfg           Config
	logger        *slog.Logger
	commandRunner commandRunner
}

// NewService creates a whisper service with the given configuration.
func NewService(cfg Config, logger *slog.Logger) *Service {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = DefaultCommand
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.ComputeType) == "" {
		cfg.ComputeType = DefaultComputeType
	}
	return &Service{
		cfg:           cfg,
		logger:        logging.NewComponentLogger(logger, "whisper"),
		commandRunner: defaultCommandRunner,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	if runner != nil {
		s.commandRunner = runner
	}
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

// Transcribe produces a same-language transcript of media.
func (s *Service) Transcribe(ctx context.Context, media, language string) (captions.Track, error) {
	return s.run(ctx, media, language, "")
}

// Translate produces an English transcript of media spoken in source.
func (s *Service) Translate(ctx context.Context, media, source, target string) (captions.Track, error) {
	if canonical, err := langpkg.Canonical(target); err != nil || canonical != TranslationTarget {
		return captions.Track{}, services.Wrap(services.ErrValidation, "whisper", "translate",
			fmt.Sprintf("Speech translation only produces English, not %q", target), nil)
	}
	return s.run(ctx, media, source, TaskTranslate)
}

func (s *Service) run(ctx context.Context, media, language, task string) (captions.Track, error) {
	if strings.TrimSpace(media) == "" {
		return captions.Track{}, services.Wrap(services.ErrValidation, "whisper", "run", "Media path required", nil)
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	if s.cfg.WorkDir != "" {
		if err := os.MkdirAll(s.cfg.WorkDir, 0o755); err != nil {
			return captions.Track{}, fmt.Errorf("whisper: ensure work dir: %w", err)
		}
	}
	outputDir, err := os.MkdirTemp(s.cfg.WorkDir, "whisper-")
	if err != nil {
		return captions.Track{}, fmt.Errorf("whisper: create output dir: %w", err)
	}
	defer os.RemoveAll(outputDir)

	args := s.buildArgs(media, outputDir, language, task)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("running whisper",
		logging.String(logging.FieldEventType, "whisper_start"),
		logging.String("model", s.cfg.Model),
		logging.String("language", language),
		logging.String("task", taskLabel(task)),
	)

	if err := s.commandRunner(ctx, s.cfg.Command, args...); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return captions.Track{}, services.Wrap(services.ErrTimeout, "whisper", taskLabel(task), "Whisper run exceeded its time limit", err)
		}
		return captions.Track{}, services.Wrap(services.ErrExternalTool, "whisper", taskLabel(task), "whisper-ctranslate2 failed", err)
	}

	stem := strings.TrimSuffix(filepath.Base(media), filepath.Ext(media))
	track, err := captions.Load(filepath.Join(outputDir, stem+"."+OutputFormat))
	if err != nil {
		return captions.Track{}, services.Wrap(services.ErrExternalTool, "whisper", "read output", "Whisper output could not be read", err)
	}
	return track, nil
}

// buildArgs constructs the whisper-ctranslate2 command arguments.
func (s *Service) buildArgs(media, outputDir, language, task string) []string {
	args := make([]string, 0, 16)
	args = append(args,
		media,
		"--compute_type="+s.cfg.ComputeType,
		"--condition_on_previous_text="+pythonBool(s.cfg.ConditionOnPreviousText),
		"--output_format="+OutputFormat,
		"--model="+s.cfg.Model,
		"--output_dir="+outputDir,
	)
	if s.cfg.Threads > 0 {
		args = append(args, "--threads="+strconv.Itoa(s.cfg.Threads))
	}
	if prompt := strings.TrimSpace(s.cfg.InitialPrompt); prompt != "" {
		args = append(args, "--initial_prompt="+prompt)
	}
	if lang := langpkg.ToISO2(language); lang != "" {
		args = append(args, "--language="+lang)
	}
	if task != "" {
		args = append(args, "--task="+task)
	}
	return args
}

func taskLabel(task string) string {
	if task == "" {
		return "transcribe"
	}
	return task
}

func pythonBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
