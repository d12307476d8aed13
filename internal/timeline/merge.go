package timeline

import (
	"fmt"
	"slices"
	"time"

	"dualsub/internal/captions"
)

// UnorderedInputError reports a track that is not sorted by start time or
// whose cues overlap each other.
type UnorderedInputError struct {
	Tag    captions.TrackTag
	Index  int // 0-based index of the offending cue
	Reason string
}

func (e *UnorderedInputError) Error() string {
	return fmt.Sprintf("merge: %s track cue %d %s", e.Tag, e.Index+1, e.Reason)
}

// MergedTrack is the result of Merge: cue fragments tagged with their source
// track, plus the style reserved for secondary fragments.
type MergedTrack struct {
	cues  []captions.Cue
	style captions.Style
}

// Len returns the number of fragments.
func (m MergedTrack) Len() int { return len(m.cues) }

// Cues returns a copy of the fragments, unstyled.
func (m MergedTrack) Cues() []captions.Cue { return slices.Clone(m.cues) }

// Style returns the secondary style.
func (m MergedTrack) Style() captions.Style { return m.style }

// Track renders the fragments as a plain track with the style applied to
// secondary text.
func (m MergedTrack) Track() captions.Track {
	out := make([]captions.Cue, len(m.cues))
	for i, cue := range m.cues {
		if cue.Tag == captions.Secondary {
			cue.Text = m.style.Apply(cue.Text)
		}
		out[i] = cue
	}
	// Fragments already satisfy the cue invariants.
	track, _ := captions.NewTrack(out...)
	return track
}

// Merge splits overlapping cues of primary and secondary at every cue
// boundary. For each maximal sub-interval with active cues it emits the
// primary fragment first and then the secondary fragment. Adjacent fragments
// with identical text are not re-joined. Both inputs must be sorted by start
// and internally non-overlapping.
func Merge(primary, secondary captions.Track, style captions.Style) (MergedTrack, error) {
	left := primary.Cues()
	right := secondary.Cues()
	if err := checkOrder(left, captions.Primary); err != nil {
		return MergedTrack{}, err
	}
	if err := checkOrder(right, captions.Secondary); err != nil {
		return MergedTrack{}, err
	}

	bounds := boundaries(left, right)
	out := make([]captions.Cue, 0, len(left)+len(right))
	li, ri := 0, 0
	for k := 0; k+1 < len(bounds); k++ {
		from, to := bounds[k], bounds[k+1]
		if to <= from {
			continue
		}
		for li < len(left) && left[li].End <= from {
			li++
		}
		for ri < len(right) && right[ri].End <= from {
			ri++
		}
		if li < len(left) && left[li].Start <= from {
			out = append(out, fragment(left[li], from, to, captions.Primary))
		}
		if ri < len(right) && right[ri].Start <= from {
			out = append(out, fragment(right[ri], from, to, captions.Secondary))
		}
	}
	return MergedTrack{cues: out, style: style}, nil
}

func checkOrder(cues []captions.Cue, tag captions.TrackTag) error {
	for i := 1; i < len(cues); i++ {
		prev, cur := cues[i-1], cues[i]
		switch {
		case cur.Start < prev.Start:
			return &UnorderedInputError{Tag: tag, Index: i, Reason: fmt.Sprintf("starts at %s before the previous cue (%s)", captions.FormatTimestamp(cur.Start), captions.FormatTimestamp(prev.Start))}
		case cur.Start < prev.End:
			return &UnorderedInputError{Tag: tag, Index: i, Reason: fmt.Sprintf("starts at %s inside the previous cue ending %s", captions.FormatTimestamp(cur.Start), captions.FormatTimestamp(prev.End))}
		}
	}
	return nil
}

// boundaries returns the sorted, de-duplicated start and end times.
func boundaries(tracks ...[]captions.Cue) []time.Duration {
	var points []time.Duration
	for _, cues := range tracks {
		for _, cue := range cues {
			points = append(points, cue.Start, cue.End)
		}
	}
	slices.Sort(points)
	return slices.Compact(points)
}

func fragment(src captions.Cue, from, to time.Duration, tag captions.TrackTag) captions.Cue {
	return captions.Cue{Start: from, End: to, Text: src.Text, Tag: tag}
}
