// Package language provides language code canonicalization and mapping on top
// of golang.org/x/text.
//
// Artifact names, whisper arguments, mkvmerge track tags and ffprobe stream
// matching all go through this package so "fi", "fin" and "FI" resolve to
// the same language everywhere.
package language
