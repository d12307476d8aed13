package captions

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dualsub/internal/fileutil"
)

// ErrMalformed is matched by every ParseError.
var ErrMalformed = errors.New("malformed srt")

// ParseError describes a malformed SRT block.
type ParseError struct {
	Path    string
	Block   int // 1-based block number
	Line    int // 1-based line number of the offending line
	Reason  string
	Context string // offending line
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse srt")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	fmt.Fprintf(&b, ": block %d (line %d): %s", e.Block, e.Line, e.Reason)
	if e.Context != "" {
		fmt.Fprintf(&b, ": %q", e.Context)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return ErrMalformed }

var timingPattern = regexp.MustCompile(`^\s*(\d+:\d+:\d+(?:[,.]\d+)?)\s*-->\s*(\d+:\d+:\d+(?:[,.]\d+)?)(?:\s.*)?$`)

// Load reads and parses an SRT file.
func Load(path string) (Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Track{}, fmt.Errorf("read srt: %w", err)
	}
	return parse(path, data)
}

// Parse reads SRT text from r.
func Parse(r io.Reader) (Track, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Track{}, fmt.Errorf("read srt: %w", err)
	}
	return parse("", data)
}

// ParseBytes parses SRT text held in memory.
func ParseBytes(data []byte) (Track, error) {
	return parse("", data)
}

func parse(path string, data []byte) (Track, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")

	var cues []Cue
	block := 0
	for i := 0; i < len(lines); {
		if strings.TrimSpace(lines[i]) == "" {
			i++
			continue
		}
		start := i
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			i++
		}
		block++
		cue, err := parseBlock(lines[start:i], start+1)
		if err != nil {
			err.Path = path
			err.Block = block
			return Track{}, err
		}
		cues = append(cues, cue)
	}
	return Track{cues: cues}, nil
}

// parseBlock parses one blank-line separated block. firstLine is the 1-based
// line number of lines[0].
func parseBlock(lines []string, firstLine int) (Cue, *ParseError) {
	indexLine := strings.TrimSpace(lines[0])
	if _, err := strconv.Atoi(indexLine); err != nil {
		return Cue{}, &ParseError{Line: firstLine, Reason: "index line is not an integer", Context: lines[0]}
	}
	if len(lines) < 2 {
		return Cue{}, &ParseError{Line: firstLine, Reason: "missing timing line", Context: lines[0]}
	}
	match := timingPattern.FindStringSubmatch(lines[1])
	if match == nil {
		return Cue{}, &ParseError{Line: firstLine + 1, Reason: "malformed timing line", Context: lines[1]}
	}
	start, err := ParseTimestamp(match[1])
	if err != nil {
		return Cue{}, &ParseError{Line: firstLine + 1, Reason: err.Error(), Context: lines[1]}
	}
	end, err := ParseTimestamp(match[2])
	if err != nil {
		return Cue{}, &ParseError{Line: firstLine + 1, Reason: err.Error(), Context: lines[1]}
	}
	if end <= start {
		return Cue{}, &ParseError{Line: firstLine + 1, Reason: "end is not after start", Context: lines[1]}
	}
	text := textLines(strings.Join(lines[2:], "\n"))
	if len(text) == 0 {
		return Cue{}, &ParseError{Line: firstLine + 1, Reason: "block has no text", Context: lines[1]}
	}
	return Cue{Start: start, End: end, Text: strings.Join(text, "\n")}, nil
}

// ParseTimestamp parses HH:MM:SS,mmm. A '.' separator and one to three
// fraction digits are accepted; the fraction is read as a decimal.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	clock, frac, hasFrac := strings.Cut(strings.ReplaceAll(value, ".", ","), ",")
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("invalid hours in %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", value)
	}
	seconds, err := strconv.Atoi(parts[2])
	if err != nil || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("invalid seconds in %q", value)
	}
	millis := 0
	if hasFrac {
		if len(frac) == 0 || len(frac) > 3 {
			return 0, fmt.Errorf("invalid milliseconds in %q", value)
		}
		padded := frac + strings.Repeat("0", 3-len(frac))
		if millis, err = strconv.Atoi(padded); err != nil {
			return 0, fmt.Errorf("invalid milliseconds in %q", value)
		}
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	return total, nil
}

// FormatTimestamp renders d as HH:MM:SS,mmm, truncating below a millisecond.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	hours := ms / 3_600_000
	ms %= 3_600_000
	minutes := ms / 60_000
	ms %= 60_000
	seconds := ms / 1000
	ms %= 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, ms)
}

// Serialize renders the track in canonical SRT form. Cues without visible
// text are omitted and indexes are renumbered from 1.
func Serialize(t Track) []byte {
	var buf bytes.Buffer
	index := 0
	for _, cue := range t.cues {
		lines := textLines(cue.Text)
		if len(lines) == 0 {
			continue
		}
		index++
		fmt.Fprintf(&buf, "%d\n%s --> %s\n", index, FormatTimestamp(cue.Start), FormatTimestamp(cue.End))
		for _, line := range lines {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Write serializes the track to path through a temporary file and rename, so
// readers never observe a partially written file.
func Write(path string, t Track) error {
	if err := fileutil.WriteFileAtomic(path, Serialize(t), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}
