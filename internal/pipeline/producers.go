package pipeline

import (
	"context"

	"dualsub/internal/captions"
)

// Transcriber runs speech recognition over a media file.
type Transcriber interface {
	// Transcribe produces a same-language transcript.
	Transcribe(ctx context.Context, media, language string) (captions.Track, error)
	// Translate produces a transcript translated from the spoken source
	// language into target.
	Translate(ctx context.Context, media, source, target string) (captions.Track, error)
}

// Extractor pulls an embedded subtitle stream out of a media container.
type Extractor interface {
	// ExtractTrack returns the index-th subtitle stream tagged with language.
	ExtractTrack(ctx context.Context, media, language string, index int) (captions.Track, error)
}

// Translator translates the text of a caption track.
type Translator interface {
	Translate(ctx context.Context, track captions.Track, source, target string) (captions.Track, error)
}

// MuxTrack is one subtitle file added to the output container.
type MuxTrack struct {
	Path string
	// Language is an ISO 639-2 code, "mul" for combined tracks.
	Language string
	Name     string
}

// MuxRequest describes one mux invocation. Output is a temporary path; the
// executor publishes it under the final name after the muxer returns.
type MuxRequest struct {
	Media  string
	Output string
	Tracks []MuxTrack
}

// Muxer writes a new container holding the media streams plus the tracks.
type Muxer interface {
	Mux(ctx context.Context, req MuxRequest) error
}

// Producers bundles the external collaborators the executor calls.
// Translators are keyed by engine name; the whisper engine is served by the
// Transcriber.
type Producers struct {
	Transcriber Transcriber
	Extractor   Extractor
	Muxer       Muxer
	Translators map[string]Translator
}
