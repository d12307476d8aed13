package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"dualsub/internal/artifacts"
	"dualsub/internal/captions"
	"dualsub/internal/services"
	"dualsub/internal/staging"
	"dualsub/internal/testsupport"
)

type fakeTranscriber struct {
	mu          sync.Mutex
	calls       []string
	transcript  []testsupport.Span
	translation []testsupport.Span
	err         error
}

func (f *fakeTranscriber) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeTranscriber) Transcribe(_ context.Context, media, language string) (captions.Track, error) {
	f.record("transcribe " + language)
	if f.err != nil {
		return captions.Track{}, f.err
	}
	return trackOf(f.transcript)
}

func (f *fakeTranscriber) Translate(_ context.Context, media, source, target string) (captions.Track, error) {
	f.record("translate " + source + "->" + target)
	if f.err != nil {
		return captions.Track{}, f.err
	}
	return trackOf(f.translation)
}

type fakeTranslator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeTranslator) Translate(_ context.Context, track captions.Track, _, _ string) (captions.Track, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return captions.Track{}, f.err
	}
	texts := track.Texts()
	for i := range texts {
		texts[i] = strings.ToUpper(texts[i])
	}
	return track.WithTexts(texts)
}

type fakeMuxer struct {
	calls []MuxRequest
	err   error
}

func (f *fakeMuxer) Mux(_ context.Context, req MuxRequest) error {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(req.Output, []byte("mkv"), 0o644)
}

type fakeExtractor struct {
	calls int
}

func (f *fakeExtractor) ExtractTrack(_ context.Context, _, _ string, index int) (captions.Track, error) {
	f.calls++
	return trackOf([]testsupport.Span{{StartMS: 0, EndMS: 1000, Text: "raita"}})
}

func msec(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

func trackOf(spans []testsupport.Span) (captions.Track, error) {
	cues := make([]captions.Cue, 0, len(spans))
	for _, s := range spans {
		cue, err := captions.NewCue(msec(s.StartMS), msec(s.EndMS), s.Text, captions.Primary)
		if err != nil {
			return captions.Track{}, err
		}
		cues = append(cues, cue)
	}
	return captions.NewTrack(cues...)
}

var (
	finnish = []testsupport.Span{
		{StartMS: 0, EndMS: 5000, Text: "Hei"},
		{StartMS: 6000, EndMS: 8000, Text: "Kiitos\npaljon"},
	}
	english = []testsupport.Span{
		{StartMS: 2000, EndMS: 7000, Text: "Hi"},
	}
)

func newMedia(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	media := filepath.Join(dir, "show.mkv")
	if err := os.WriteFile(media, []byte("video"), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}
	return media, filepath.Join(dir, "show")
}

func planFor(t *testing.T, cfg staging.Config, req staging.Request) staging.Plan {
	t.Helper()
	planner, err := staging.NewPlanner(cfg, artifacts.FS{})
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}
	plan, err := planner.Plan(req)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	return plan
}

func TestExecuteFailFastLeavesEarlierArtifacts(t *testing.T) {
	media, base := newMedia(t)
	cfg := staging.Config{SourceLanguage: "fi", TargetLanguage: "en", Engines: []string{"azure"}}
	plan := planFor(t, cfg, staging.Request{Media: media, BaseName: base, Outputs: staging.OutputSet{Combined: true}})
	if len(plan.Stages) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(plan.Stages))
	}

	boom := services.Wrap(services.ErrExternalTool, "azure", "translate", "service unavailable", nil)
	transcriber := &fakeTranscriber{transcript: finnish}
	exec := NewExecutor(Config{SourceLanguage: "fi"}, Producers{
		Transcriber: transcriber,
		Translators: map[string]Translator{"azure": &fakeTranslator{err: boom}},
	}, nil)

	report, err := exec.Execute(context.Background(), plan)
	if !errors.Is(err, ErrProducer) || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected producer failure, got %v", err)
	}
	var failure *ProducerFailure
	if !errors.As(err, &failure) || failure.Stage.Kind != staging.Translate {
		t.Fatalf("failure should reference translate stage, got %v", err)
	}
	if report.Failure != failure {
		t.Fatalf("report should carry the failure")
	}
	if !slices.Equal(report.Executed, []string{"transcribe"}) {
		t.Fatalf("executed = %v", report.Executed)
	}
	if _, err := os.Stat(base + ".fi.srt"); err != nil {
		t.Fatalf("transcript should remain: %v", err)
	}
	for _, p := range []string{base + ".qen.azure.srt", base + ".mul.en.azure.srt"} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("%s should not exist", p)
		}
	}

	// A re-run reuses the transcript and only retries what failed.
	retry := planFor(t, cfg, staging.Request{Media: media, BaseName: base, Outputs: staging.OutputSet{Combined: true}})
	exec = NewExecutor(Config{SourceLanguage: "fi"}, Producers{
		Transcriber: &fakeTranscriber{transcript: finnish},
		Translators: map[string]Translator{"azure": &fakeTranslator{}},
	}, nil)
	report, err = exec.Execute(context.Background(), retry)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !slices.Equal(report.Skipped, []string{"transcribe"}) {
		t.Fatalf("skipped = %v", report.Skipped)
	}
	if !slices.Equal(report.Executed, []string{"translate[azure]", "combine[azure]"}) {
		t.Fatalf("executed = %v", report.Executed)
	}
}

func TestExecuteSecondRunCallsNoProducers(t *testing.T) {
	media, base := newMedia(t)
	cfg := staging.Config{SourceLanguage: "fi", TargetLanguage: "en", Engines: []string{"whisper", "argos"}}
	req := staging.Request{Media: media, BaseName: base, Outputs: staging.OutputSet{Video: true}}

	transcriber := &fakeTranscriber{transcript: finnish, translation: english}
	translator := &fakeTranslator{}
	muxer := &fakeMuxer{}
	producers := Producers{
		Transcriber: transcriber,
		Translators: map[string]Translator{"argos": translator},
		Muxer:       muxer,
	}
	if _, err := NewExecutor(Config{SourceLanguage: "fi"}, producers, nil).Execute(context.Background(), planFor(t, cfg, req)); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := planFor(t, cfg, req)
	if !second.Satisfied() {
		t.Fatalf("second plan should be satisfied: %+v", second.Pending())
	}
	callsBefore := len(transcriber.calls)
	report, err := NewExecutor(Config{SourceLanguage: "fi"}, producers, nil).Execute(context.Background(), second)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(report.Executed) != 0 || len(report.Skipped) != len(second.Stages) {
		t.Fatalf("report = %+v", report)
	}
	if len(transcriber.calls) != callsBefore || translator.calls != 1 || len(muxer.calls) != 1 {
		t.Fatalf("producers called again: transcriber=%v translator=%d muxer=%d", transcriber.calls, translator.calls, len(muxer.calls))
	}
}

func TestExecuteCombineWritesStyledMerge(t *testing.T) {
	media, base := newMedia(t)
	cfg := staging.Config{SourceLanguage: "fi", TargetLanguage: "en"}
	plan := planFor(t, cfg, staging.Request{Media: media, BaseName: base, Outputs: staging.OutputSet{Combined: true}})

	transcriber := &fakeTranscriber{transcript: finnish, translation: english}
	exec := NewExecutor(Config{SourceLanguage: "fi", Style: captions.Style{Color: "#87cefa"}}, Producers{Transcriber: transcriber}, nil)
	if _, err := exec.Execute(context.Background(), plan); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !slices.Equal(transcriber.calls, []string{"transcribe fi", "translate fi->en"}) {
		t.Fatalf("calls = %v", transcriber.calls)
	}

	combined, err := captions.Load(base + ".mul.en.srt")
	if err != nil {
		t.Fatalf("load combined: %v", err)
	}
	want := []struct {
		start, end int
		text       string
	}{
		{0, 2000, "Hei"},
		{2000, 5000, "Hei"},
		{2000, 5000, `<font color="#87cefa">Hi</font>`},
		{5000, 6000, `<font color="#87cefa">Hi</font>`},
		{6000, 7000, "Kiitos\npaljon"},
		{6000, 7000, `<font color="#87cefa">Hi</font>`},
		{7000, 8000, "Kiitos\npaljon"},
	}
	if combined.Len() != len(want) {
		t.Fatalf("combined has %d cues, want %d", combined.Len(), len(want))
	}
	for i, w := range want {
		cue := combined.At(i)
		if cue.Start != msec(w.start) || cue.End != msec(w.end) || cue.Text != w.text {
			t.Fatalf("cue %d = %+v, want %+v", i, cue, w)
		}
	}
}

func TestExecuteTextEngineJoinsPrimaryLines(t *testing.T) {
	media, base := newMedia(t)
	cfg := staging.Config{SourceLanguage: "fi", TargetLanguage: "en", Engines: []string{"argos"}}
	plan := planFor(t, cfg, staging.Request{Media: media, BaseName: base, Outputs: staging.OutputSet{Combined: true}})

	exec := NewExecutor(Config{SourceLanguage: "fi"}, Producers{
		Transcriber: &fakeTranscriber{transcript: finnish},
		Translators: map[string]Translator{"argos": &fakeTranslator{}},
	}, nil)
	if _, err := exec.Execute(context.Background(), plan); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	combined, err := captions.Load(base + ".mul.en.argos.srt")
	if err != nil {
		t.Fatalf("load combined: %v", err)
	}
	texts := combined.Texts()
	if !slices.Contains(texts, "Kiitos paljon") || !slices.Contains(texts, "KIITOS\nPALJON") {
		t.Fatalf("texts = %q", texts)
	}
}

func TestExecuteParallelWaveStopsOnFailure(t *testing.T) {
	media, base := newMedia(t)
	cfg := staging.Config{SourceLanguage: "fi", TargetLanguage: "en", Engines: []string{"whisper", "azure"}}
	plan := planFor(t, cfg, staging.Request{Media: media, BaseName: base, Outputs: staging.OutputSet{Video: true}})

	boom := errors.New("azure unavailable")
	muxer := &fakeMuxer{}
	exec := NewExecutor(Config{SourceLanguage: "fi", Workers: 4}, Producers{
		Transcriber: &fakeTranscriber{transcript: finnish, translation: english},
		Translators: map[string]Translator{"azure": &fakeTranslator{err: boom}},
		Muxer:       muxer,
	}, nil)
	report, err := exec.Execute(context.Background(), plan)

	var failure *ProducerFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected ProducerFailure, got %v", err)
	}
	if failure.Stage.Name() != "translate[azure]" || !errors.Is(err, boom) {
		t.Fatalf("failure = %v", failure)
	}
	if report.Failure != failure {
		t.Fatalf("report failure = %v, want the returned failure", report.Failure)
	}
	for _, name := range []string{"translate[azure]", "combine[azure]", "mux"} {
		if slices.Contains(report.Executed, name) {
			t.Fatalf("%s should not be reported as executed: %v", name, report.Executed)
		}
	}
	for _, name := range []string{"transcribe", "translate[whisper]"} {
		if !slices.Contains(report.Executed, name) {
			t.Fatalf("%s missing from executed stages: %v", name, report.Executed)
		}
	}
	if len(muxer.calls) != 0 {
		t.Fatalf("muxer ran %d times after the failure", len(muxer.calls))
	}
	for _, path := range []string{base + ".mul.en.azure.srt", base + ".qen.azure.srt", base + ".new.mkv"} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("%s should not exist: %v", path, err)
		}
	}
	for _, path := range []string{base + ".fi.srt", base + ".qen.srt"} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("earlier artifact %s should remain: %v", path, err)
		}
	}
}

func TestExecuteMuxPublishesOutput(t *testing.T) {
	media, base := newMedia(t)
	cfg := staging.Config{SourceLanguage: "fi", TargetLanguage: "en", Engines: []string{"whisper", "azure"}}
	plan := planFor(t, cfg, staging.Request{Media: media, BaseName: base, Outputs: staging.OutputSet{Video: true}})

	muxer := &fakeMuxer{}
	exec := NewExecutor(Config{SourceLanguage: "fi", Workers: 3}, Producers{
		Transcriber: &fakeTranscriber{transcript: finnish, translation: english},
		Translators: map[string]Translator{"azure": &fakeTranslator{}},
		Muxer:       muxer,
	}, nil)
	report, err := exec.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(report.Executed) != len(plan.Stages) {
		t.Fatalf("executed = %v", report.Executed)
	}
	if len(muxer.calls) != 1 {
		t.Fatalf("muxer calls = %d", len(muxer.calls))
	}
	req := muxer.calls[0]
	if req.Media != media || req.Output == base+".new.mkv" {
		t.Fatalf("mux request = %+v", req)
	}
	var names, langs []string
	for _, tr := range req.Tracks {
		names = append(names, tr.Name)
		langs = append(langs, tr.Language)
	}
	wantNames := []string{"Whisper fi", "Whisper en", "Azure en", "Whisper en+fi", "Azure en+fi"}
	wantLangs := []string{"fin", "eng", "eng", "mul", "mul"}
	if !slices.Equal(names, wantNames) || !slices.Equal(langs, wantLangs) {
		t.Fatalf("tracks = %v %v", names, langs)
	}
	if _, err := os.Stat(base + ".new.mkv"); err != nil {
		t.Fatalf("output not published: %v", err)
	}
	if _, err := os.Stat(req.Output); !os.IsNotExist(err) {
		t.Fatalf("temp output should be gone")
	}
}

func TestExecuteMuxFailureLeavesNoOutput(t *testing.T) {
	media, base := newMedia(t)
	cfg := staging.Config{SourceLanguage: "fi", TargetLanguage: "en"}
	plan := planFor(t, cfg, staging.Request{Media: media, BaseName: base, Outputs: staging.OutputSet{Video: true}})

	exec := NewExecutor(Config{SourceLanguage: "fi"}, Producers{
		Transcriber: &fakeTranscriber{transcript: finnish, translation: english},
		Muxer:       &fakeMuxer{err: errors.New("mkvmerge exited 2")},
	}, nil)
	report, err := exec.Execute(context.Background(), plan)
	if err == nil || report.Failure == nil || report.Failure.Stage.Kind != staging.Mux {
		t.Fatalf("expected mux failure, got %v", err)
	}
	if _, err := os.Stat(base + ".new.mkv"); !os.IsNotExist(err) {
		t.Fatalf("output should not exist")
	}
	if _, err := os.Stat(base + ".mul.en.srt"); err != nil {
		t.Fatalf("combined should remain: %v", err)
	}
}

func TestExecuteExtractStage(t *testing.T) {
	media, base := newMedia(t)
	cfg := staging.Config{
		SourceLanguage: "fi",
		TargetLanguage: "en",
		Engines:        []string{"argos"},
		SourceTrack:    &staging.TrackRef{Language: "fi", Index: 0},
	}
	plan := planFor(t, cfg, staging.Request{Media: media, BaseName: base, Outputs: staging.OutputSet{Translation: true}})

	extractor := &fakeExtractor{}
	exec := NewExecutor(Config{SourceLanguage: "fi"}, Producers{
		Extractor:   extractor,
		Translators: map[string]Translator{"argos": &fakeTranslator{}},
	}, nil)
	if _, err := exec.Execute(context.Background(), plan); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if extractor.calls != 1 {
		t.Fatalf("extractor calls = %d", extractor.calls)
	}
	translated, err := captions.Load(base + ".qen.argos.s0.srt")
	if err != nil {
		t.Fatalf("load translation: %v", err)
	}
	if got := translated.Texts(); !slices.Equal(got, []string{"RAITA"}) {
		t.Fatalf("texts = %q", got)
	}
}

func TestExecuteMissingProducer(t *testing.T) {
	media, base := newMedia(t)
	cfg := staging.Config{SourceLanguage: "fi", TargetLanguage: "en", Engines: []string{"clipboard"}}
	plan := planFor(t, cfg, staging.Request{Media: media, BaseName: base, Outputs: staging.OutputSet{Translation: true}})

	exec := NewExecutor(Config{SourceLanguage: "fi"}, Producers{Transcriber: &fakeTranscriber{transcript: finnish}}, nil)
	_, err := exec.Execute(context.Background(), plan)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestExecuteCancelledContextStopsBeforeStages(t *testing.T) {
	media, base := newMedia(t)
	plan := planFor(t, staging.Config{SourceLanguage: "fi", TargetLanguage: "en"},
		staging.Request{Media: media, BaseName: base, Outputs: staging.OutputSet{Transcript: true}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	transcriber := &fakeTranscriber{transcript: finnish}
	report, err := NewExecutor(Config{}, Producers{Transcriber: transcriber}, nil).Execute(ctx, plan)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(transcriber.calls) != 0 || report.Failure != nil {
		t.Fatalf("no stage should run: %v", transcriber.calls)
	}
}
