package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	langpkg "dualsub/internal/language"
)

// ErrNoSubtitleStream is returned when no subtitle stream matches a selection.
var ErrNoSubtitleStream = errors.New("no matching subtitle stream")

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index     int               `json:"index"`
	CodecName string            `json:"codec_name"`
	CodecType string            `json:"codec_type"`
	Tags      map[string]string `json:"tags"`
}

// Language returns the stream's language tag, lowercased, or "".
func (s Stream) Language() string {
	return langpkg.ExtractFromTags(s.Tags)
}

// Title returns the stream's title tag, or "".
func (s Stream) Title() string {
	for _, key := range []string{"title", "TITLE", "Title"} {
		if v := strings.TrimSpace(s.Tags[key]); v != "" {
			return v
		}
	}
	return ""
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	return InspectWith(ctx, defaultRunner, binary, path)
}

// InspectWith is Inspect with an injected command runner.
func InspectWith(ctx context.Context, run Runner, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	output, err := run(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// SubtitleStreams returns subtitle streams in container order. A non-empty
// language keeps only streams tagged with that language.
func (r Result) SubtitleStreams(language string) []Stream {
	var out []Stream
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "subtitle") {
			continue
		}
		if language != "" && !langpkg.Matches(stream.Language(), language) {
			continue
		}
		out = append(out, stream)
	}
	return out
}

// SelectSubtitle picks the position-th subtitle stream of language; negative
// positions count from the end (-1 is the last). It returns the stream and
// the non-negative position it was found at.
func (r Result) SelectSubtitle(language string, position int) (Stream, int, error) {
	candidates := r.SubtitleStreams(language)
	resolved := position
	if resolved < 0 {
		resolved += len(candidates)
	}
	if resolved < 0 || resolved >= len(candidates) {
		return Stream{}, 0, fmt.Errorf("%w: position %d of language %q (available: %s)",
			ErrNoSubtitleStream, position, language, describe(r.SubtitleStreams("")))
	}
	return candidates[resolved], resolved, nil
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	cleaned := strings.TrimSpace(r.Format.Duration)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}

func describe(streams []Stream) string {
	if len(streams) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(streams))
	for _, s := range streams {
		lang := s.Language()
		if lang == "" {
			lang = "und"
		}
		parts = append(parts, fmt.Sprintf("#%d %s", s.Index, lang))
	}
	return strings.Join(parts, ", ")
}

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}
