package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dualsub/internal/captions"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// Span is a compact cue literal for tests: start and end in milliseconds.
type Span struct {
	StartMS int
	EndMS   int
	Text    string
}

// Track builds a primary caption track from spans, failing the test on
// invalid cues.
func Track(t testing.TB, spans ...Span) captions.Track {
	t.Helper()

	cues := make([]captions.Cue, 0, len(spans))
	for _, s := range spans {
		cue, err := captions.NewCue(
			time.Duration(s.StartMS)*time.Millisecond,
			time.Duration(s.EndMS)*time.Millisecond,
			s.Text,
			captions.Primary,
		)
		if err != nil {
			t.Fatalf("cue %+v: %v", s, err)
		}
		cues = append(cues, cue)
	}
	track, err := captions.NewTrack(cues...)
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	return track
}

// WriteSRT serializes spans to path as a caption file.
func WriteSRT(t testing.TB, path string, spans ...Span) captions.Track {
	t.Helper()

	track := Track(t, spans...)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := captions.Write(path, track); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return track
}
