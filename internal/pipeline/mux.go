package pipeline

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"dualsub/internal/artifacts"
	langpkg "dualsub/internal/language"
)

// muxTrackFor labels a caption artifact for the output container, e.g.
// "Whisper fi" for a transcript, "Azure en" for a translation, and
// "Whisper en+fi" for a combined track. Tracks derived from an embedded
// stream get a "(stream N)" suffix.
func muxTrackFor(d artifacts.Descriptor, path, sourceLanguage string) MuxTrack {
	engine := d.Engine
	if engine == "" {
		engine = artifacts.DefaultEngine
	}
	label := cases.Title(language.English).String(engine)
	var suffix string
	if d.TrackIndex != nil {
		suffix = fmt.Sprintf(" (stream %d)", *d.TrackIndex)
	}

	switch d.Kind {
	case artifacts.Combined:
		return MuxTrack{
			Path:     path,
			Language: "mul",
			Name:     fmt.Sprintf("%s %s+%s%s", label, d.Language, sourceLanguage, suffix),
		}
	default:
		return MuxTrack{
			Path:     path,
			Language: langpkg.ToISO3(d.Language),
			Name:     fmt.Sprintf("%s %s%s", label, d.Language, suffix),
		}
	}
}
