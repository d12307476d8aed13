package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"dualsub/internal/captions"
	"dualsub/internal/logging"
	"dualsub/internal/media/ffprobe"
	"dualsub/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Extractor pulls embedded subtitle streams out of media containers.
type Extractor struct {
	ffprobeBinary string
	ffmpegBinary  string
	logger        *slog.Logger
	run           commandRunner
}

// NewExtractor constructs an extractor using the given binaries.
func NewExtractor(ffprobeBinary, ffmpegBinary string, logger *slog.Logger) *Extractor {
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	return &Extractor{
		ffprobeBinary: ffprobeBinary,
		ffmpegBinary:  ffmpegBinary,
		logger:        logging.NewComponentLogger(logger, "ffmpeg"),
		run:           defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (e *Extractor) WithCommandRunner(r func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	if e != nil && r != nil {
		e.run = r
	}
}

// ResolveTrack finds the position-th subtitle stream of language (negative
// positions count from the end) and returns its non-negative position. An
// empty language considers every subtitle stream.
func (e *Extractor) ResolveTrack(ctx context.Context, media, language string, position int) (int, error) {
	_, resolved, err := e.selectStream(ctx, media, language, position)
	return resolved, err
}

// ExtractTrack returns the index-th subtitle stream of language as a track.
func (e *Extractor) ExtractTrack(ctx context.Context, media, language string, index int) (captions.Track, error) {
	stream, _, err := e.selectStream(ctx, media, language, index)
	if err != nil {
		return captions.Track{}, err
	}

	logger := logging.WithContext(ctx, e.logger)
	logger.Debug("extracting subtitle stream",
		logging.String("media", media),
		logging.Int("stream_index", stream.Index),
		logging.String("language", stream.Language()),
		logging.String("codec", stream.CodecName),
	)

	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-i", media,
		"-map", fmt.Sprintf("0:%d", stream.Index),
		"-f", "srt",
		"-",
	}
	output, err := e.run(ctx, e.ffmpegBinary, args...)
	if err != nil {
		return captions.Track{}, services.Wrap(services.ErrExternalTool, "ffmpeg", "extract subtitle",
			fmt.Sprintf("Extracting stream #%d failed", stream.Index), err)
	}
	track, err := captions.ParseBytes(output)
	if err != nil {
		return captions.Track{}, services.Wrap(services.ErrExternalTool, "ffmpeg", "parse subtitle",
			fmt.Sprintf("Stream #%d did not convert to valid SRT", stream.Index), err)
	}
	return track, nil
}

func (e *Extractor) selectStream(ctx context.Context, media, language string, position int) (ffprobe.Stream, int, error) {
	probe, err := ffprobe.InspectWith(ctx, ffprobe.Runner(e.run), e.ffprobeBinary, media)
	if err != nil {
		return ffprobe.Stream{}, 0, services.Wrap(services.ErrExternalTool, "ffmpeg", "probe", "ffprobe failed", err)
	}
	stream, resolved, err := probe.SelectSubtitle(language, position)
	if err != nil {
		if errors.Is(err, ffprobe.ErrNoSubtitleStream) {
			return ffprobe.Stream{}, 0, services.Wrap(services.ErrNotFound, "ffmpeg", "select subtitle",
				fmt.Sprintf("No subtitle stream %s:%d in %s", language, position, media), err)
		}
		return ffprobe.Stream{}, 0, err
	}
	return stream, resolved, nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}
