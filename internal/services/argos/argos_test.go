package argos

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"

	"dualsub/internal/services"
)

// fakePipe answers each JSON line with its upper-cased value.
func fakePipe(t *testing.T, gotArgs *[]string, requests *int) StartFunc {
	t.Helper()
	return func(_ context.Context, name string, args ...string) (*Process, error) {
		*gotArgs = append([]string{name}, args...)
		inR, inW := io.Pipe()
		outR, outW := io.Pipe()
		done := make(chan struct{})
		go func() {
			defer close(done)
			defer outW.Close()
			scanner := bufio.NewScanner(inR)
			for scanner.Scan() {
				var text string
				if err := json.Unmarshal(scanner.Bytes(), &text); err != nil {
					return
				}
				*requests++
				reply, _ := json.Marshal(strings.ToUpper(text))
				if _, err := outW.Write(append(reply, '\n')); err != nil {
					return
				}
			}
		}()
		return &Process{
			Stdin:  inW,
			Stdout: outR,
			Wait: func() error {
				<-done
				return nil
			},
		}, nil
	}
}

func TestTranslateTextsUsesPipe(t *testing.T) {
	var args []string
	var requests int
	tr := New("argospipe", []string{"--quiet"}, nil, WithStarter(fakePipe(t, &args, &requests)))

	got, err := tr.TranslateTexts(context.Background(), []string{"-hei -moi", "moi", "rivi\nkaksi"}, "fin", "en")
	if err != nil {
		t.Fatalf("TranslateTexts: %v", err)
	}
	want := []string{"-HEI   -MOI", "MOI", "RIVI KAKSI"}
	if !slices.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if !slices.Equal(args, []string{"argospipe", "--quiet", "fi", "en"}) {
		t.Fatalf("args = %v", args)
	}
	if requests != 3 {
		t.Fatalf("expected repeated part to be memoized, got %d requests", requests)
	}
}

func TestTranslateTextsBrokenPipe(t *testing.T) {
	start := func(context.Context, string, ...string) (*Process, error) {
		inR, inW := io.Pipe()
		go func() { _, _ = io.Copy(io.Discard, inR) }()
		return &Process{
			Stdin:  inW,
			Stdout: strings.NewReader("not json\n"),
			Wait:   func() error { return nil },
		}, nil
	}
	tr := New("argospipe", nil, nil, WithStarter(start))
	_, err := tr.TranslateTexts(context.Background(), []string{"moi"}, "fi", "en")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestTranslateTextsRequiresCommand(t *testing.T) {
	tr := New(" ", nil, nil)
	if _, err := tr.TranslateTexts(context.Background(), []string{"moi"}, "fi", "en"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSplitSpeakers(t *testing.T) {
	tests := []struct {
		in   string
		want []SpeakerPart
	}{
		{"moi", []SpeakerPart{{Text: "moi"}}},
		{"-Hei. -Moi.", []SpeakerPart{{}, {Delim: "-", Text: "Hei."}, {Delim: " -", Text: "Moi."}}},
		{"Hei\n-Moi", []SpeakerPart{{Text: "Hei"}, {Delim: "\n-", Text: "Moi"}}},
		{"kolme-neljä - viisi", []SpeakerPart{{Text: "kolme-neljä - viisi"}}},
	}
	for _, tt := range tests {
		got := SplitSpeakers(tt.in)
		if !slices.Equal(got, tt.want) {
			t.Fatalf("SplitSpeakers(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
