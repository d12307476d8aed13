package mkvmerge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"dualsub/internal/logging"
	"dualsub/internal/pipeline"
	"dualsub/internal/services"
)

// DefaultCommand is the mkvmerge binary name.
const DefaultCommand = "mkvmerge"

type commandRunner func(ctx context.Context, name string, args ...string) error

// Muxer writes new Matroska files holding the source streams plus subtitle tracks.
type Muxer struct {
	binary string
	logger *slog.Logger
	run    commandRunner
}

// NewMuxer constructs a subtitle muxer.
func NewMuxer(binary string, logger *slog.Logger) *Muxer {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultCommand
	}
	return &Muxer{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "mkvmerge"),
		run:    defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (m *Muxer) WithCommandRunner(r func(ctx context.Context, name string, args ...string) error) {
	if m != nil && r != nil {
		m.run = r
	}
}

// Mux writes req.Output. The source media is never modified.
func (m *Muxer) Mux(ctx context.Context, req pipeline.MuxRequest) error {
	if strings.TrimSpace(req.Media) == "" || strings.TrimSpace(req.Output) == "" {
		return services.Wrap(services.ErrValidation, "mkvmerge", "mux", "Media and output paths are required", nil)
	}
	if len(req.Tracks) == 0 {
		return services.Wrap(services.ErrValidation, "mkvmerge", "mux", "At least one subtitle track is required", nil)
	}
	for _, track := range req.Tracks {
		if _, err := os.Stat(track.Path); err != nil {
			return services.Wrap(services.ErrNotFound, "mkvmerge", "mux", fmt.Sprintf("Subtitle file %s not found", track.Path), err)
		}
	}

	args := buildArgs(req)
	logger := logging.WithContext(ctx, m.logger)
	logger.Debug("executing mkvmerge",
		logging.String("media", req.Media),
		logging.String("output", req.Output),
		logging.Int("track_count", len(req.Tracks)),
	)

	if err := m.run(ctx, m.binary, args...); err != nil {
		_ = os.Remove(req.Output)
		return services.Wrap(services.ErrExternalTool, "mkvmerge", "mux", "mkvmerge failed", err)
	}
	if _, err := os.Stat(req.Output); err != nil {
		return services.Wrap(services.ErrExternalTool, "mkvmerge", "mux", "mkvmerge did not produce output file", err)
	}

	logger.Info("subtitles muxed",
		logging.String(logging.FieldEventType, "subtitle_mux_complete"),
		logging.Int("tracks_added", len(req.Tracks)),
	)
	return nil
}

// buildArgs constructs the mkvmerge command arguments. Language and name
// options apply to track 0 of the file that follows them.
func buildArgs(req pipeline.MuxRequest) []string {
	args := []string{req.Media}
	for _, track := range req.Tracks {
		if track.Language != "" {
			args = append(args, "--language", "0:"+track.Language)
		}
		if track.Name != "" {
			args = append(args, "--track-name", "0:"+track.Name)
		}
		args = append(args, track.Path)
	}
	return append(args, "--output", req.Output)
}

// defaultCommandRunner executes mkvmerge. Exit status 1 means warnings and
// still produces output.
func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil
		}
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
