// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: stream properties including language and title tags
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
//
// SubtitleStreams and SelectSubtitle resolve "the Nth subtitle stream in
// language L" selections, with negative positions counting from the end.
package ffprobe
