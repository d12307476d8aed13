package staging

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"dualsub/internal/artifacts"
	langpkg "dualsub/internal/language"
)

// Store answers whether an artifact is already present.
type Store interface {
	Exists(path string) bool
}

// TrackRef selects an embedded subtitle stream as the primary track instead
// of running speech recognition. Index counts streams of Language from zero.
type TrackRef struct {
	Language string
	Index    int
}

// Config is the planner's explicit configuration.
type Config struct {
	SourceLanguage string
	TargetLanguage string
	// Engines lists translation engines in the order their stages run.
	Engines     []string
	SourceTrack *TrackRef
	// Transcribe keeps the speech transcript chain when SourceTrack is set,
	// so both primaries get their own translations and combined tracks.
	// Without a SourceTrack the speech transcript is always the primary.
	Transcribe bool
}

// OutputSet is the set of requested outputs.
type OutputSet struct {
	Transcript  bool
	Translation bool
	Combined    bool
	Video       bool
}

// IsEmpty reports whether nothing was requested.
func (o OutputSet) IsEmpty() bool {
	return !o.Transcript && !o.Translation && !o.Combined && !o.Video
}

// closure adds the outputs every requested output depends on.
func (o OutputSet) closure() OutputSet {
	if o.Video {
		o.Combined = true
	}
	if o.Combined {
		o.Transcript = true
		o.Translation = true
	}
	return o
}

func (o OutputSet) String() string {
	var parts []string
	if o.Transcript {
		parts = append(parts, "transcript")
	}
	if o.Translation {
		parts = append(parts, "translation")
	}
	if o.Combined {
		parts = append(parts, "combined")
	}
	if o.Video {
		parts = append(parts, "video")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// Request describes one planning call.
type Request struct {
	Media    string
	BaseName string
	Outputs  OutputSet
	// Recombine forces combine and mux stages to run even when their outputs
	// exist.
	Recombine bool
}

// Stage is one unit of planned work.
type Stage struct {
	Kind             StageKind
	Engine           string
	Inputs           []artifacts.Descriptor
	Output           artifacts.Descriptor
	InputPaths       []string
	OutputPath       string
	AlreadySatisfied bool
	Forced           bool
}

// Name returns a short label such as "translate[azure]". Stages working on
// an embedded stream carry its position: "extract[s1]", "combine[azure,s1]".
func (s Stage) Name() string {
	var parts []string
	if s.Engine != "" {
		parts = append(parts, s.Engine)
	}
	if s.Output.TrackIndex != nil {
		parts = append(parts, fmt.Sprintf("s%d", *s.Output.TrackIndex))
	}
	if len(parts) == 0 {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s[%s]", s.Kind, strings.Join(parts, ","))
}

// Plan is an ordered stage list for one media file.
type Plan struct {
	Media    string
	BaseName string
	Stages   []Stage
}

// Pending returns the stages that must run.
func (p Plan) Pending() []Stage {
	var out []Stage
	for _, s := range p.Stages {
		if !s.AlreadySatisfied {
			out = append(out, s)
		}
	}
	return out
}

// Satisfied reports whether every stage can be skipped.
func (p Plan) Satisfied() bool {
	return len(p.Pending()) == 0
}

// Waves groups the indexes of pending stages into layers: every stage in a
// layer depends only on artifacts present before the run or produced by an
// earlier layer. Stages inside a layer are independent.
func (p Plan) Waves() [][]int {
	producer := make(map[string]int, len(p.Stages))
	for i, s := range p.Stages {
		if !s.AlreadySatisfied {
			producer[s.OutputPath] = i
		}
	}
	level := make(map[int]int, len(p.Stages))
	var waves [][]int
	for i, s := range p.Stages {
		if s.AlreadySatisfied {
			continue
		}
		lvl := 0
		for _, in := range s.InputPaths {
			if j, ok := producer[in]; ok && j < i {
				lvl = max(lvl, level[j]+1)
			}
		}
		level[i] = lvl
		for len(waves) <= lvl {
			waves = append(waves, nil)
		}
		waves[lvl] = append(waves[lvl], i)
	}
	return waves
}

// ErrMissingInput is returned when a stage input is neither planned nor present.
var ErrMissingInput = errors.New("stage input is neither planned nor present")

// Planner builds stage plans against a fixed dependency graph.
type Planner struct {
	cfg   Config
	store Store
	order []StageKind
}

// NewPlanner validates cfg and computes the stage kind order.
func NewPlanner(cfg Config, store Store) (*Planner, error) {
	if store == nil {
		return nil, errors.New("planner requires an artifact store")
	}
	source, err := langpkg.Canonical(cfg.SourceLanguage)
	if err != nil {
		return nil, fmt.Errorf("source language: %w", err)
	}
	target, err := langpkg.Canonical(cfg.TargetLanguage)
	if err != nil {
		return nil, fmt.Errorf("target language: %w", err)
	}
	if source == target {
		return nil, fmt.Errorf("source and target language are both %q", source)
	}
	cfg.SourceLanguage = source
	cfg.TargetLanguage = target

	engines := make([]string, 0, len(cfg.Engines))
	for _, e := range cfg.Engines {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || slices.Contains(engines, e) {
			continue
		}
		engines = append(engines, e)
	}
	if len(engines) == 0 {
		engines = []string{artifacts.DefaultEngine}
	}
	cfg.Engines = engines

	if cfg.SourceTrack != nil {
		ref := *cfg.SourceTrack
		if ref.Index < 0 {
			return nil, fmt.Errorf("source track index %d must be resolved to a non-negative stream position", ref.Index)
		}
		ref.Language, err = langpkg.Canonical(ref.Language)
		if err != nil {
			return nil, fmt.Errorf("source track language: %w", err)
		}
		cfg.SourceTrack = &ref
	}

	order, err := kindOrder(allKinds, stageEdges)
	if err != nil {
		return nil, err
	}
	return &Planner{cfg: cfg, store: store, order: order}, nil
}

// Config returns the normalized configuration.
func (p *Planner) Config() Config {
	cfg := p.cfg
	cfg.Engines = slices.Clone(p.cfg.Engines)
	return cfg
}

// Plan computes the stages needed for req. Every stage output is resolved
// and checked against the store; present outputs mark the stage satisfied.
func (p *Planner) Plan(req Request) (Plan, error) {
	if strings.TrimSpace(req.BaseName) == "" {
		return Plan{}, errors.New("plan request has no base name")
	}
	if req.Outputs.IsEmpty() {
		return Plan{}, errors.New("plan request has no outputs")
	}
	outputs := req.Outputs.closure()

	candidates := p.candidates(req.BaseName, outputs)
	byKind := make(map[StageKind][]Stage, len(candidates))
	for _, s := range candidates {
		byKind[s.Kind] = append(byKind[s.Kind], s)
	}

	plan := Plan{Media: req.Media, BaseName: req.BaseName}
	produced := make(map[string]bool)
	for _, kind := range p.order {
		for _, s := range byKind[kind] {
			var err error
			if s.OutputPath, err = artifacts.Resolve(s.Output); err != nil {
				return Plan{}, fmt.Errorf("%s output: %w", s.Name(), err)
			}
			s.InputPaths = make([]string, 0, len(s.Inputs))
			for _, in := range s.Inputs {
				path, err := artifacts.Resolve(in)
				if err != nil {
					return Plan{}, fmt.Errorf("%s input: %w", s.Name(), err)
				}
				if !produced[path] && !p.store.Exists(path) {
					return Plan{}, fmt.Errorf("%w: %s needs %s", ErrMissingInput, s.Name(), path)
				}
				s.InputPaths = append(s.InputPaths, path)
			}
			s.AlreadySatisfied = p.store.Exists(s.OutputPath)
			if req.Recombine && (kind == Combine || kind == Mux) {
				s.Forced = true
				s.AlreadySatisfied = false
			}
			produced[s.OutputPath] = true
			plan.Stages = append(plan.Stages, s)
		}
	}
	return plan, nil
}

// primaryChain is one source of original-language captions: the speech
// transcript or an embedded stream.
type primaryChain struct {
	kind       StageKind
	transcript artifacts.Descriptor
}

func (p *Planner) chains(base string) []primaryChain {
	cfg := p.cfg
	var chains []primaryChain
	if cfg.SourceTrack == nil || cfg.Transcribe {
		chains = append(chains, primaryChain{
			kind:       Transcribe,
			transcript: artifacts.Descriptor{BaseName: base, Language: cfg.SourceLanguage, Kind: artifacts.Transcript},
		})
	}
	if cfg.SourceTrack != nil {
		chains = append(chains, primaryChain{
			kind: Extract,
			transcript: artifacts.Descriptor{
				BaseName:   base,
				Language:   cfg.SourceTrack.Language,
				Kind:       artifacts.Transcript,
				TrackIndex: artifacts.Index(cfg.SourceTrack.Index),
			},
		})
	}
	return chains
}

// candidates lists the stages implied by outputs before ordering. Text
// engines translate every primary chain; speech translation runs once and is
// combined with each primary. Artifacts of an embedded-stream chain carry its
// position so both chains can coexist for one base.
func (p *Planner) candidates(base string, outputs OutputSet) []Stage {
	cfg := p.cfg
	textEngine := slices.ContainsFunc(cfg.Engines, func(e string) bool { return e != artifacts.DefaultEngine })
	needPrimary := outputs.Transcript || (outputs.Translation && textEngine)
	chains := p.chains(base)

	var stages []Stage
	var muxInputs []artifacts.Descriptor
	if needPrimary {
		for _, chain := range chains {
			stages = append(stages, Stage{Kind: chain.kind, Output: chain.transcript})
			// An extracted stream already lives in the container.
			if chain.kind == Transcribe {
				muxInputs = append(muxInputs, chain.transcript)
			}
		}
	}

	speech := artifacts.Descriptor{BaseName: base, Language: cfg.TargetLanguage, Kind: artifacts.Translation, Engine: artifacts.DefaultEngine}
	translationFor := func(chain primaryChain, engine string) artifacts.Descriptor {
		if engine == artifacts.DefaultEngine {
			return speech
		}
		return artifacts.Descriptor{
			BaseName:   base,
			Language:   cfg.TargetLanguage,
			Kind:       artifacts.Translation,
			Engine:     engine,
			TrackIndex: chain.transcript.TrackIndex,
		}
	}

	if outputs.Translation {
		for _, engine := range cfg.Engines {
			if engine == artifacts.DefaultEngine {
				stages = append(stages, Stage{Kind: Translate, Engine: engine, Output: speech})
				muxInputs = append(muxInputs, speech)
				continue
			}
			for _, chain := range chains {
				out := translationFor(chain, engine)
				stages = append(stages, Stage{
					Kind:   Translate,
					Engine: engine,
					Inputs: []artifacts.Descriptor{chain.transcript},
					Output: out,
				})
				muxInputs = append(muxInputs, out)
			}
		}
	}

	if outputs.Combined {
		for _, engine := range cfg.Engines {
			for _, chain := range chains {
				out := artifacts.Descriptor{
					BaseName:   base,
					Language:   cfg.TargetLanguage,
					Kind:       artifacts.Combined,
					Engine:     engine,
					TrackIndex: chain.transcript.TrackIndex,
				}
				stages = append(stages, Stage{
					Kind:   Combine,
					Engine: engine,
					Inputs: []artifacts.Descriptor{chain.transcript, translationFor(chain, engine)},
					Output: out,
				})
				muxInputs = append(muxInputs, out)
			}
		}
	}

	if outputs.Video {
		stages = append(stages, Stage{
			Kind:   Mux,
			Inputs: muxInputs,
			Output: artifacts.Descriptor{BaseName: base, Kind: artifacts.VideoOut},
		})
	}
	return stages
}
