package artifacts

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	langpkg "dualsub/internal/language"
)

// DefaultEngine is the speech model engine; its artifacts carry no engine
// segment so the historical "{base}.qen.srt" names stay stable.
const DefaultEngine = "whisper"

// ErrInvalidDescriptor is matched by every descriptor validation failure.
var ErrInvalidDescriptor = errors.New("invalid artifact descriptor")

// Kind classifies an artifact.
type Kind int

const (
	Transcript Kind = iota
	Translation
	Combined
	VideoOut
)

func (k Kind) String() string {
	switch k {
	case Transcript:
		return "transcript"
	case Translation:
		return "translation"
	case Combined:
		return "combined"
	case VideoOut:
		return "video"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Descriptor identifies one logical artifact of a media file.
type Descriptor struct {
	// BaseName is the media path without its container suffix.
	BaseName string
	// Language is the transcript language, the translation target, or the
	// secondary language of a combined track. Optional for VideoOut.
	Language string
	Kind     Kind
	// TrackIndex marks artifacts derived from an embedded subtitle stream.
	TrackIndex *int
	// Engine names the translation engine for Translation and Combined.
	Engine string
}

// Index returns a pointer suitable for Descriptor.TrackIndex.
func Index(i int) *int { return &i }

var enginePattern = regexp.MustCompile(`^[a-z]+$`)

// Normalize canonicalizes the language and engine and validates the
// combination of fields.
func (d Descriptor) Normalize() (Descriptor, error) {
	if strings.TrimSpace(d.BaseName) == "" {
		return Descriptor{}, fmt.Errorf("%w: empty base name", ErrInvalidDescriptor)
	}
	if d.TrackIndex != nil {
		if *d.TrackIndex < 0 {
			return Descriptor{}, fmt.Errorf("%w: negative track index %d", ErrInvalidDescriptor, *d.TrackIndex)
		}
		d.TrackIndex = Index(*d.TrackIndex)
	}

	if d.Language != "" || d.Kind != VideoOut {
		lang, err := langpkg.Canonical(d.Language)
		if err != nil {
			return Descriptor{}, fmt.Errorf("%w: %s language: %w", ErrInvalidDescriptor, d.Kind, err)
		}
		d.Language = lang
	}

	d.Engine = strings.ToLower(strings.TrimSpace(d.Engine))
	switch d.Kind {
	case Transcript:
		if d.Engine != "" {
			return Descriptor{}, fmt.Errorf("%w: transcript cannot name an engine", ErrInvalidDescriptor)
		}
	case Translation, Combined:
		if d.Engine == "" {
			d.Engine = DefaultEngine
		}
		if !enginePattern.MatchString(d.Engine) {
			return Descriptor{}, fmt.Errorf("%w: engine %q must be lowercase letters", ErrInvalidDescriptor, d.Engine)
		}
	case VideoOut:
		if d.Engine != "" || d.TrackIndex != nil {
			return Descriptor{}, fmt.Errorf("%w: video output takes no engine or track index", ErrInvalidDescriptor)
		}
	default:
		return Descriptor{}, fmt.Errorf("%w: unknown kind %d", ErrInvalidDescriptor, int(d.Kind))
	}
	return d, nil
}

// Resolve maps a descriptor to its path:
//
//	Transcript   {base}.{lang}[.s{N}].srt
//	Translation  {base}.q{lang}[.{engine}][.s{N}].srt
//	Combined     {base}.mul.{lang}[.{engine}][.s{N}].srt
//	VideoOut     {base}[.{lang}].new.mkv
//
// The default engine is omitted.
func Resolve(d Descriptor) (string, error) {
	d, err := d.Normalize()
	if err != nil {
		return "", err
	}
	segments := make([]string, 0, 5)
	switch d.Kind {
	case Transcript:
		segments = append(segments, d.Language)
	case Translation:
		segments = append(segments, "q"+d.Language)
	case Combined:
		segments = append(segments, "mul", d.Language)
	case VideoOut:
		if d.Language != "" {
			segments = append(segments, d.Language)
		}
		segments = append(segments, "new", "mkv")
		return d.BaseName + "." + strings.Join(segments, "."), nil
	}
	if d.Engine != "" && d.Engine != DefaultEngine {
		segments = append(segments, d.Engine)
	}
	if d.TrackIndex != nil {
		segments = append(segments, fmt.Sprintf("s%d", *d.TrackIndex))
	}
	segments = append(segments, "srt")
	return d.BaseName + "." + strings.Join(segments, "."), nil
}

// ErrAlreadyMuxed is returned by BaseName for files this tool produced.
var ErrAlreadyMuxed = errors.New("media is already a muxed output")

// BaseName derives the artifact base from a media path: "x.orig.mkv" and
// "x.mkv" both yield "x". Outputs named "*.new.mkv" are rejected.
func BaseName(mediaPath string) (string, error) {
	cleaned := filepath.Clean(strings.TrimSpace(mediaPath))
	name := filepath.Base(cleaned)
	lower := strings.ToLower(name)
	switch {
	case name == "." || name == string(filepath.Separator):
		return "", fmt.Errorf("media path %q has no file name", mediaPath)
	case strings.HasSuffix(lower, ".new.mkv"):
		return "", fmt.Errorf("%w: %s", ErrAlreadyMuxed, mediaPath)
	case strings.HasSuffix(lower, ".orig.mkv"):
		return cleaned[:len(cleaned)-len(".orig.mkv")], nil
	}
	ext := filepath.Ext(name)
	if ext == "" || ext == name {
		return cleaned, nil
	}
	return cleaned[:len(cleaned)-len(ext)], nil
}
