package captions

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TrackTag records which source track a cue (or cue fragment) came from.
type TrackTag int

const (
	Primary TrackTag = iota
	Secondary
)

func (t TrackTag) String() string {
	switch t {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return fmt.Sprintf("TrackTag(%d)", int(t))
	}
}

// Cue is one timed caption entry. Timestamps carry millisecond resolution.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
	Tag   TrackTag
}

// ErrBlankText is returned for cues without any visible text; SRT cannot
// represent them.
var ErrBlankText = errors.New("cue text is blank")

// NewCue truncates the timestamps to milliseconds and checks 0 <= start < end
// and that the text has at least one non-blank line.
func NewCue(start, end time.Duration, text string, tag TrackTag) (Cue, error) {
	cue := Cue{
		Start: start.Truncate(time.Millisecond),
		End:   end.Truncate(time.Millisecond),
		Text:  text,
		Tag:   tag,
	}
	if err := cue.validate(); err != nil {
		return Cue{}, err
	}
	return cue, nil
}

func (c Cue) validate() error {
	if c.Start < 0 {
		return fmt.Errorf("cue start %s is negative", FormatTimestamp(c.Start))
	}
	if c.End <= c.Start {
		return fmt.Errorf("cue end %s is not after start %s", FormatTimestamp(c.End), FormatTimestamp(c.Start))
	}
	if len(textLines(c.Text)) == 0 {
		return ErrBlankText
	}
	return nil
}

// Duration returns End - Start.
func (c Cue) Duration() time.Duration {
	return c.End - c.Start
}

// Overlaps reports whether two cues share any time.
func (c Cue) Overlaps(other Cue) bool {
	return c.Start < other.End && other.Start < c.End
}

// Lines splits the cue text into display lines with blank lines removed.
func (c Cue) Lines() []string {
	return textLines(c.Text)
}

func textLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
