package captions

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Track is an ordered sequence of cues from one language or source.
// The zero value is an empty track.
type Track struct {
	cues []Cue
}

// NewTrack copies the cues into a track, validating each one. Order is kept
// as given; use SortStable to order by start time.
func NewTrack(cues ...Cue) (Track, error) {
	out := make([]Cue, 0, len(cues))
	for i, cue := range cues {
		normalized, err := NewCue(cue.Start, cue.End, cue.Text, cue.Tag)
		if err != nil {
			return Track{}, fmt.Errorf("cue %d: %w", i+1, err)
		}
		out = append(out, normalized)
	}
	return Track{cues: out}, nil
}

// Len returns the number of cues.
func (t Track) Len() int { return len(t.cues) }

// IsEmpty reports whether the track has no cues.
func (t Track) IsEmpty() bool { return len(t.cues) == 0 }

// At returns the cue at index i.
func (t Track) At(i int) Cue { return t.cues[i] }

// Cues returns a copy of the cue slice.
func (t Track) Cues() []Cue {
	return slices.Clone(t.cues)
}

// Span returns the earliest start and latest end, or zeros for an empty track.
func (t Track) Span() (time.Duration, time.Duration) {
	if len(t.cues) == 0 {
		return 0, 0
	}
	start, end := t.cues[0].Start, t.cues[0].End
	for _, cue := range t.cues[1:] {
		start = min(start, cue.Start)
		end = max(end, cue.End)
	}
	return start, end
}

// WithTag returns a copy whose cues all carry tag.
func (t Track) WithTag(tag TrackTag) Track {
	out := t.Cues()
	for i := range out {
		out[i].Tag = tag
	}
	return Track{cues: out}
}

// SortStable orders cues by start time, keeping input order for ties.
func (t Track) SortStable() Track {
	out := t.Cues()
	slices.SortStableFunc(out, func(a, b Cue) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return Track{cues: out}
}

// Timeshift moves every cue by offset. Cues that would end at or before zero
// are dropped and starts are clamped to zero.
func (t Track) Timeshift(offset time.Duration) Track {
	offset = offset.Truncate(time.Millisecond)
	out := make([]Cue, 0, len(t.cues))
	for _, cue := range t.cues {
		cue.Start += offset
		cue.End += offset
		if cue.End <= 0 {
			continue
		}
		cue.Start = max(cue.Start, 0)
		out = append(out, cue)
	}
	return Track{cues: out}
}

// JoinLines collapses multi-line cue text into a single line.
func (t Track) JoinLines() Track {
	out := t.Cues()
	for i := range out {
		out[i].Text = strings.Join(textLines(out[i].Text), " ")
	}
	return Track{cues: out}
}

// Texts returns the cue texts in order.
func (t Track) Texts() []string {
	texts := make([]string, len(t.cues))
	for i, cue := range t.cues {
		texts[i] = cue.Text
	}
	return texts
}

// WithTexts replaces cue texts one for one, keeping timings and tags. Blank
// replacements are rejected with ErrBlankText.
func (t Track) WithTexts(texts []string) (Track, error) {
	if len(texts) != len(t.cues) {
		return Track{}, fmt.Errorf("replace texts: got %d texts for %d cues", len(texts), len(t.cues))
	}
	out := t.Cues()
	for i := range out {
		if len(textLines(texts[i])) == 0 {
			return Track{}, fmt.Errorf("replace text of cue %d: %w", i+1, ErrBlankText)
		}
		out[i].Text = texts[i]
	}
	return Track{cues: out}, nil
}

// Equal reports cue-for-cue equality.
func (t Track) Equal(other Track) bool {
	return slices.Equal(t.cues, other.cues)
}
