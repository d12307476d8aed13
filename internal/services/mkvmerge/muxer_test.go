package mkvmerge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"dualsub/internal/pipeline"
	"dualsub/internal/services"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestMuxBuildsArgs(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "show.mkv")
	fi := filepath.Join(dir, "show.fi.srt")
	mul := filepath.Join(dir, "show.mul.en.srt")
	output := filepath.Join(dir, ".mux-show.new.mkv.tmp")
	for _, p := range []string{media, fi, mul} {
		writeFile(t, p)
	}

	var got []string
	m := NewMuxer("", nil)
	m.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		got = append([]string{name}, args...)
		writeFile(t, output)
		return nil
	})

	err := m.Mux(context.Background(), pipeline.MuxRequest{
		Media:  media,
		Output: output,
		Tracks: []pipeline.MuxTrack{
			{Path: fi, Language: "fin", Name: "Whisper fi"},
			{Path: mul, Language: "mul", Name: "Whisper en+fi"},
		},
	})
	if err != nil {
		t.Fatalf("Mux: %v", err)
	}
	want := []string{
		"mkvmerge", media,
		"--language", "0:fin", "--track-name", "0:Whisper fi", fi,
		"--language", "0:mul", "--track-name", "0:Whisper en+fi", mul,
		"--output", output,
	}
	if !slices.Equal(got, want) {
		t.Fatalf("args = %v\nwant %v", got, want)
	}
}

func TestMuxValidatesInputs(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "show.mkv")
	writeFile(t, media)
	m := NewMuxer("mkvmerge", nil)
	m.WithCommandRunner(func(context.Context, string, ...string) error {
		t.Fatal("runner should not be called")
		return nil
	})

	err := m.Mux(context.Background(), pipeline.MuxRequest{Media: media, Output: filepath.Join(dir, "out.mkv")})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	err = m.Mux(context.Background(), pipeline.MuxRequest{
		Media:  media,
		Output: filepath.Join(dir, "out.mkv"),
		Tracks: []pipeline.MuxTrack{{Path: filepath.Join(dir, "missing.srt")}},
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMuxFailureRemovesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "show.mkv")
	srt := filepath.Join(dir, "show.fi.srt")
	output := filepath.Join(dir, "out.mkv")
	writeFile(t, media)
	writeFile(t, srt)

	m := NewMuxer("mkvmerge", nil)
	m.WithCommandRunner(func(context.Context, string, ...string) error {
		writeFile(t, output)
		return errors.New("exit status 2")
	})
	err := m.Mux(context.Background(), pipeline.MuxRequest{Media: media, Output: output, Tracks: []pipeline.MuxTrack{{Path: srt}}})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Fatalf("partial output should be removed")
	}
}
