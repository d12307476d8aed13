package pipeline

import (
	"testing"

	"dualsub/internal/artifacts"
)

func TestMuxTrackLabels(t *testing.T) {
	tests := []struct {
		name     string
		d        artifacts.Descriptor
		wantName string
		wantLang string
	}{
		{"transcript", artifacts.Descriptor{Kind: artifacts.Transcript, Language: "fi"}, "Whisper fi", "fin"},
		{"speech translation", artifacts.Descriptor{Kind: artifacts.Translation, Language: "en", Engine: "whisper"}, "Whisper en", "eng"},
		{"embedded translation", artifacts.Descriptor{Kind: artifacts.Translation, Language: "en", Engine: "azure", TrackIndex: artifacts.Index(2)}, "Azure en (stream 2)", "eng"},
		{"combined", artifacts.Descriptor{Kind: artifacts.Combined, Language: "en", Engine: "argos"}, "Argos en+fi", "mul"},
		{"embedded combined", artifacts.Descriptor{Kind: artifacts.Combined, Language: "en", TrackIndex: artifacts.Index(0)}, "Whisper en+fi (stream 0)", "mul"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := muxTrackFor(tt.d, "/v/x.srt", "fi")
			if got.Name != tt.wantName || got.Language != tt.wantLang || got.Path != "/v/x.srt" {
				t.Fatalf("muxTrackFor = %+v, want %q %q", got, tt.wantName, tt.wantLang)
			}
		})
	}
}
