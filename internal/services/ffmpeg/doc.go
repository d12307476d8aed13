// Package ffmpeg extracts embedded subtitle streams from media containers
// using ffprobe for stream selection and ffmpeg for SRT conversion.
package ffmpeg
