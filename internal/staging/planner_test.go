package staging

import (
	"errors"
	"slices"
	"testing"

	"dualsub/internal/artifacts"
	"dualsub/internal/testsupport"
)

func newTestPlanner(t *testing.T, cfg Config, store Store) *Planner {
	t.Helper()
	p, err := NewPlanner(cfg, store)
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}
	return p
}

func stageNames(plan Plan) []string {
	names := make([]string, 0, len(plan.Stages))
	for _, s := range plan.Stages {
		names = append(names, s.Name())
	}
	return names
}

func TestKindOrderFollowsPriority(t *testing.T) {
	order, err := kindOrder(allKinds, stageEdges)
	if err != nil {
		t.Fatalf("kindOrder: %v", err)
	}
	want := []StageKind{Transcribe, Extract, Translate, Combine, Mux}
	if !slices.Equal(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestKindOrderRespectsEdgesOverPriority(t *testing.T) {
	order, err := kindOrder([]StageKind{Transcribe, Translate}, []edge{{Translate, Transcribe}})
	if err != nil {
		t.Fatalf("kindOrder: %v", err)
	}
	if !slices.Equal(order, []StageKind{Translate, Transcribe}) {
		t.Fatalf("order = %v", order)
	}
}

func TestKindOrderDetectsCycle(t *testing.T) {
	edges := append(slices.Clone(stageEdges), edge{Mux, Transcribe})
	_, err := kindOrder(allKinds, edges)
	var cycle *PlanCycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected PlanCycleError, got %v", err)
	}
	if !slices.Contains(cycle.Remaining, Mux) || !slices.Contains(cycle.Remaining, Transcribe) {
		t.Fatalf("remaining = %v", cycle.Remaining)
	}
}

func TestPlanCombinedWithWhisper(t *testing.T) {
	store := testsupport.NewMemStore()
	p := newTestPlanner(t, Config{SourceLanguage: "fi", TargetLanguage: "en"}, store)

	plan, err := p.Plan(Request{Media: "/v/show.mkv", BaseName: "/v/show", Outputs: OutputSet{Combined: true}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []string{"transcribe", "translate[whisper]", "combine[whisper]"}
	if got := stageNames(plan); !slices.Equal(got, want) {
		t.Fatalf("stages = %v, want %v", got, want)
	}
	paths := []string{plan.Stages[0].OutputPath, plan.Stages[1].OutputPath, plan.Stages[2].OutputPath}
	wantPaths := []string{"/v/show.fi.srt", "/v/show.qen.srt", "/v/show.mul.en.srt"}
	if !slices.Equal(paths, wantPaths) {
		t.Fatalf("paths = %v, want %v", paths, wantPaths)
	}
	if len(plan.Stages[1].InputPaths) != 0 {
		t.Fatalf("whisper translation should read the media only, got %v", plan.Stages[1].InputPaths)
	}
	if !slices.Equal(plan.Stages[2].InputPaths, []string{"/v/show.fi.srt", "/v/show.qen.srt"}) {
		t.Fatalf("combine inputs = %v", plan.Stages[2].InputPaths)
	}
	for _, s := range plan.Stages {
		if s.AlreadySatisfied {
			t.Fatalf("stage %s unexpectedly satisfied", s.Name())
		}
	}
}

func TestPlanVideoWithTextEngines(t *testing.T) {
	p := newTestPlanner(t, Config{
		SourceLanguage: "fin",
		TargetLanguage: "EN",
		Engines:        []string{"whisper", "Azure", "azure"},
	}, testsupport.NewMemStore())

	plan, err := p.Plan(Request{BaseName: "/v/show", Outputs: OutputSet{Video: true}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []string{
		"transcribe",
		"translate[whisper]",
		"translate[azure]",
		"combine[whisper]",
		"combine[azure]",
		"mux",
	}
	if got := stageNames(plan); !slices.Equal(got, want) {
		t.Fatalf("stages = %v, want %v", got, want)
	}
	if got := plan.Stages[2].InputPaths; !slices.Equal(got, []string{"/v/show.fi.srt"}) {
		t.Fatalf("azure translation inputs = %v", got)
	}
	mux := plan.Stages[5]
	wantMux := []string{
		"/v/show.fi.srt",
		"/v/show.qen.srt",
		"/v/show.qen.azure.srt",
		"/v/show.mul.en.srt",
		"/v/show.mul.en.azure.srt",
	}
	if !slices.Equal(mux.InputPaths, wantMux) {
		t.Fatalf("mux inputs = %v, want %v", mux.InputPaths, wantMux)
	}
	if mux.OutputPath != "/v/show.new.mkv" {
		t.Fatalf("mux output = %s", mux.OutputPath)
	}
}

func TestPlanExtractedSourceTrack(t *testing.T) {
	p := newTestPlanner(t, Config{
		SourceLanguage: "fi",
		TargetLanguage: "en",
		Engines:        []string{"argos"},
		SourceTrack:    &TrackRef{Language: "fi", Index: 1},
	}, testsupport.NewMemStore())

	plan, err := p.Plan(Request{BaseName: "/v/show", Outputs: OutputSet{Video: true}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []string{"extract[s1]", "translate[argos,s1]", "combine[argos,s1]", "mux"}
	if got := stageNames(plan); !slices.Equal(got, want) {
		t.Fatalf("stages = %v, want %v", got, want)
	}
	if plan.Stages[0].OutputPath != "/v/show.fi.s1.srt" {
		t.Fatalf("extract output = %s", plan.Stages[0].OutputPath)
	}
	if slices.Contains(plan.Stages[3].InputPaths, "/v/show.fi.s1.srt") {
		t.Fatalf("mux should not re-add the extracted track: %v", plan.Stages[3].InputPaths)
	}
}

func TestPlanSpeechAndEmbeddedChains(t *testing.T) {
	p := newTestPlanner(t, Config{
		SourceLanguage: "fi",
		TargetLanguage: "en",
		Engines:        []string{"whisper", "azure"},
		SourceTrack:    &TrackRef{Language: "fi", Index: 2},
		Transcribe:     true,
	}, testsupport.NewMemStore())

	plan, err := p.Plan(Request{BaseName: "/v/show", Outputs: OutputSet{Video: true}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []string{
		"transcribe",
		"extract[s2]",
		"translate[whisper]",
		"translate[azure]",
		"translate[azure,s2]",
		"combine[whisper]",
		"combine[whisper,s2]",
		"combine[azure]",
		"combine[azure,s2]",
		"mux",
	}
	if got := stageNames(plan); !slices.Equal(got, want) {
		t.Fatalf("stages = %v, want %v", got, want)
	}

	byName := map[string]Stage{}
	outputs := map[string]string{}
	for _, s := range plan.Stages {
		byName[s.Name()] = s
		if prev, ok := outputs[s.OutputPath]; ok {
			t.Fatalf("%s and %s both write %s", prev, s.Name(), s.OutputPath)
		}
		outputs[s.OutputPath] = s.Name()
	}
	if got := byName["translate[azure,s2]"].InputPaths; !slices.Equal(got, []string{"/v/show.fi.s2.srt"}) {
		t.Fatalf("embedded azure translation inputs = %v", got)
	}
	if got := byName["combine[whisper,s2]"].InputPaths; !slices.Equal(got, []string{"/v/show.fi.s2.srt", "/v/show.qen.srt"}) {
		t.Fatalf("embedded whisper combine inputs = %v", got)
	}
	if got := byName["combine[azure,s2]"].OutputPath; got != "/v/show.mul.en.azure.s2.srt" {
		t.Fatalf("embedded azure combine output = %s", got)
	}
	wantMux := []string{
		"/v/show.fi.srt",
		"/v/show.qen.srt",
		"/v/show.qen.azure.srt",
		"/v/show.qen.azure.s2.srt",
		"/v/show.mul.en.srt",
		"/v/show.mul.en.s2.srt",
		"/v/show.mul.en.azure.srt",
		"/v/show.mul.en.azure.s2.srt",
	}
	if got := byName["mux"].InputPaths; !slices.Equal(got, wantMux) {
		t.Fatalf("mux inputs = %v, want %v", got, wantMux)
	}
}

func TestPlanTranscriptOnly(t *testing.T) {
	p := newTestPlanner(t, Config{SourceLanguage: "fi", TargetLanguage: "en", Engines: []string{"azure"}}, testsupport.NewMemStore())
	plan, err := p.Plan(Request{BaseName: "show", Outputs: OutputSet{Transcript: true}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got := stageNames(plan); !slices.Equal(got, []string{"transcribe"}) {
		t.Fatalf("stages = %v", got)
	}
}

func TestPlanWhisperTranslationSkipsTranscript(t *testing.T) {
	p := newTestPlanner(t, Config{SourceLanguage: "fi", TargetLanguage: "en"}, testsupport.NewMemStore())
	plan, err := p.Plan(Request{BaseName: "show", Outputs: OutputSet{Translation: true}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got := stageNames(plan); !slices.Equal(got, []string{"translate[whisper]"}) {
		t.Fatalf("stages = %v", got)
	}
}

func TestPlanIdempotentWhenArtifactsExist(t *testing.T) {
	store := testsupport.NewMemStore()
	p := newTestPlanner(t, Config{SourceLanguage: "fi", TargetLanguage: "en", Engines: []string{"whisper", "azure"}}, store)
	req := Request{BaseName: "/v/show", Outputs: OutputSet{Video: true}}

	first, err := p.Plan(req)
	if err != nil {
		t.Fatalf("first Plan: %v", err)
	}
	for _, s := range first.Stages {
		store.Add(s.OutputPath)
	}

	second, err := p.Plan(req)
	if err != nil {
		t.Fatalf("second Plan: %v", err)
	}
	if !slices.Equal(stageNames(first), stageNames(second)) {
		t.Fatalf("stage lists differ: %v vs %v", stageNames(first), stageNames(second))
	}
	for _, s := range second.Stages {
		if !s.AlreadySatisfied {
			t.Fatalf("stage %s should be satisfied", s.Name())
		}
	}
	if !second.Satisfied() || len(second.Pending()) != 0 || len(second.Waves()) != 0 {
		t.Fatalf("plan should have nothing pending")
	}
}

func TestPlanPartialReuse(t *testing.T) {
	store := testsupport.NewMemStore("/v/show.fi.srt")
	p := newTestPlanner(t, Config{SourceLanguage: "fi", TargetLanguage: "en"}, store)
	plan, err := p.Plan(Request{BaseName: "/v/show", Outputs: OutputSet{Combined: true}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !plan.Stages[0].AlreadySatisfied {
		t.Fatalf("transcript should be reused")
	}
	pending := plan.Pending()
	if len(pending) != 2 || pending[0].Kind != Translate || pending[1].Kind != Combine {
		t.Fatalf("pending = %+v", pending)
	}
}

func TestPlanRecombineForcesCombineAndMux(t *testing.T) {
	store := testsupport.NewMemStore(
		"/v/show.fi.srt",
		"/v/show.qen.srt",
		"/v/show.mul.en.srt",
		"/v/show.new.mkv",
	)
	p := newTestPlanner(t, Config{SourceLanguage: "fi", TargetLanguage: "en"}, store)
	plan, err := p.Plan(Request{BaseName: "/v/show", Outputs: OutputSet{Video: true}, Recombine: true})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for _, s := range plan.Stages {
		forced := s.Kind == Combine || s.Kind == Mux
		if s.AlreadySatisfied == forced || s.Forced != forced {
			t.Fatalf("stage %s satisfied=%v forced=%v", s.Name(), s.AlreadySatisfied, s.Forced)
		}
	}
}

func TestPlanWaves(t *testing.T) {
	p := newTestPlanner(t, Config{SourceLanguage: "fi", TargetLanguage: "en", Engines: []string{"whisper", "azure"}}, testsupport.NewMemStore())
	plan, err := p.Plan(Request{BaseName: "/v/show", Outputs: OutputSet{Video: true}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	waves := plan.Waves()
	var got [][]string
	for _, wave := range waves {
		var names []string
		for _, i := range wave {
			names = append(names, plan.Stages[i].Name())
		}
		got = append(got, names)
	}
	want := [][]string{
		{"transcribe", "translate[whisper]"},
		{"translate[azure]", "combine[whisper]"},
		{"combine[azure]"},
		{"mux"},
	}
	if len(got) != len(want) {
		t.Fatalf("waves = %v, want %v", got, want)
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Fatalf("wave %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPlanRejectsBadRequests(t *testing.T) {
	p := newTestPlanner(t, Config{SourceLanguage: "fi", TargetLanguage: "en"}, testsupport.NewMemStore())
	if _, err := p.Plan(Request{BaseName: "show"}); err == nil {
		t.Fatal("expected error for empty outputs")
	}
	if _, err := p.Plan(Request{Outputs: OutputSet{Transcript: true}}); err == nil {
		t.Fatal("expected error for empty base name")
	}
}

func TestNewPlannerValidation(t *testing.T) {
	store := testsupport.NewMemStore()
	tests := []struct {
		name string
		cfg  Config
	}{
		{"same language", Config{SourceLanguage: "fi", TargetLanguage: "fin"}},
		{"bad source", Config{SourceLanguage: "", TargetLanguage: "en"}},
		{"negative track", Config{SourceLanguage: "fi", TargetLanguage: "en", SourceTrack: &TrackRef{Language: "fi", Index: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPlanner(tt.cfg, store); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if _, err := NewPlanner(Config{SourceLanguage: "fi", TargetLanguage: "en"}, nil); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestPlannerDefaultsToWhisperEngine(t *testing.T) {
	p := newTestPlanner(t, Config{SourceLanguage: "fi", TargetLanguage: "en"}, testsupport.NewMemStore())
	if got := p.Config().Engines; !slices.Equal(got, []string{artifacts.DefaultEngine}) {
		t.Fatalf("engines = %v", got)
	}
}
