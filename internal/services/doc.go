// Package services defines shared utilities consumed by the pipeline stages
// and the external producer integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, stage names, media paths and
//     translation engines for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into consistent CLI exit codes.
//
// Producer adapters (whisper, ffmpeg, mkvmerge, translation engines) live in
// subpackages and tag their failures with these markers.
package services
