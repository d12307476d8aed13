// Package captions models timed caption tracks and their SRT interchange form.
//
// A Track is an ordered list of Cues with value semantics: constructors copy
// their input and accessors return copies, so a Track handed to another
// component can never be mutated behind the holder's back. Parse and Load read
// SRT text, Serialize renders the canonical form (sequential indexes,
// HH:MM:SS,mmm timestamps, one blank line after each block), and the two
// round-trip for every valid track.
package captions
