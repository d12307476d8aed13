// Package timeline merges a primary and a secondary caption track into one
// timeline that shows both simultaneously.
//
// Overlapping cues are split at every cue boundary so each output cue covers
// a sub-interval during which the set of active source cues is constant. The
// merge is pure and holds no shared state, so concurrent stages may call it
// freely.
package timeline
