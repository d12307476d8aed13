package main

import (
	"context"

	"dualsub/internal/captions"
	"dualsub/internal/services/ffmpeg"
)

// loadDesignated reads a caption track from an SRT file or from a subtitle
// stream inside a media container.
func loadDesignated(ctx context.Context, value string, extractor *ffmpeg.Extractor) (captions.Track, captions.Designator, error) {
	d, err := captions.ParseDesignator(value)
	if err != nil {
		return captions.Track{}, d, err
	}
	if !d.Embedded {
		track, err := captions.Load(d.Path)
		return track, d, err
	}
	track, err := extractor.ExtractTrack(ctx, d.Path, d.Language, d.Index)
	return track, d, err
}
