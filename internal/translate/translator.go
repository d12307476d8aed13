package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"dualsub/internal/captions"
	"dualsub/internal/logging"
	"dualsub/internal/services"
)

// TextTranslator is a batch text translation engine.
type TextTranslator interface {
	Name() string
	TranslateTexts(ctx context.Context, texts []string, source, target string) ([]string, error)
}

// ignored texts are passed through untranslated.
var ignored = map[string]struct{}{
	"":  {},
	".": {},
}

// Option configures a Translator.
type Option func(*Translator)

// WithLogger sets the logger used for cache and batch events.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Translator) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithCachePath enables the translation cache. resolve maps the media file in
// the request context to a cache database path; an empty result disables
// caching for that media.
func WithCachePath(resolve func(media string) string) Option {
	return func(t *Translator) {
		t.cachePath = resolve
	}
}

// Translator adapts a TextTranslator to caption tracks.
type Translator struct {
	engine    TextTranslator
	logger    *slog.Logger
	cachePath func(media string) string

	mu     sync.Mutex
	caches map[string]*Cache
}

// New wraps engine.
func New(engine TextTranslator, opts ...Option) *Translator {
	t := &Translator{
		engine: engine,
		logger: logging.NewNop(),
		caches: make(map[string]*Cache),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logging.NewComponentLogger(t.logger, "translate."+engine.Name())
	return t
}

// Name returns the engine name.
func (t *Translator) Name() string { return t.engine.Name() }

// Translate returns a copy of track with every cue's text translated from
// source to target. Multi-line cues are joined before translation, identical
// texts are sent once, and "." cues are kept verbatim.
func (t *Translator) Translate(ctx context.Context, track captions.Track, source, target string) (captions.Track, error) {
	texts := track.JoinLines().Texts()

	var unique []string
	seen := make(map[string]struct{}, len(texts))
	for _, text := range texts {
		if _, skip := ignored[strings.TrimSpace(text)]; skip {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		unique = append(unique, text)
	}

	key := Key{Engine: t.engine.Name(), Source: source, Target: target}
	cache, err := t.cache(ctx)
	if err != nil {
		logging.WarnWithContext(t.logger, "translation cache unavailable", "translation_cache_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check translation.cache_path"),
			logging.String(logging.FieldImpact, "every text is sent to the engine"),
		)
		cache = nil
	}

	known := map[string]string{}
	if cache != nil {
		if known, err = cache.Lookup(ctx, key, unique); err != nil {
			return captions.Track{}, services.Wrap(services.ErrTransient, "translate", "cache lookup", "Reading the translation cache failed", err)
		}
	}

	var pending []string
	for _, text := range unique {
		if _, ok := known[text]; !ok {
			pending = append(pending, text)
		}
	}

	t.logger.Info("translating track",
		logging.String(logging.FieldEventType, "translation_batch"),
		logging.Int("cues", len(texts)),
		logging.Int("unique", len(unique)),
		logging.Int("cached", len(unique)-len(pending)),
		logging.String("source", source),
		logging.String("target", target),
	)

	if len(pending) > 0 {
		translated, err := t.engine.TranslateTexts(ctx, pending, source, target)
		if err != nil {
			return captions.Track{}, err
		}
		if len(translated) != len(pending) {
			return captions.Track{}, services.Wrap(services.ErrExternalTool, "translate", t.engine.Name(),
				fmt.Sprintf("Engine returned %d translations for %d texts", len(translated), len(pending)), nil)
		}
		fresh := make(map[string]string, len(pending))
		for i, text := range pending {
			if strings.TrimSpace(translated[i]) == "" {
				return captions.Track{}, services.Wrap(services.ErrExternalTool, "translate", t.engine.Name(),
					fmt.Sprintf("Engine returned an empty translation for %q", text), nil)
			}
			fresh[text] = translated[i]
			known[text] = translated[i]
		}
		if cache != nil {
			if err := cache.Store(ctx, key, fresh); err != nil {
				logging.WarnWithContext(t.logger, "failed to store translations", "translation_cache_write_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "translations will be requested again next run"),
				)
			}
		}
	}

	out := make([]string, len(texts))
	for i, text := range texts {
		if translated, ok := known[text]; ok {
			out[i] = translated
		} else {
			out[i] = text
		}
	}
	return track.WithTexts(out)
}

func (t *Translator) cache(ctx context.Context) (*Cache, error) {
	if t.cachePath == nil {
		return nil, nil
	}
	media, _ := services.MediaFromContext(ctx)
	path := t.cachePath(media)
	if path == "" {
		return nil, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.caches[path]; ok {
		return c, nil
	}
	c, err := OpenCache(ctx, path)
	if err != nil {
		return nil, err
	}
	t.caches[path] = c
	return c, nil
}

// Close releases every opened cache.
func (t *Translator) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var first error
	for path, c := range t.caches {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
		delete(t.caches, path)
	}
	return first
}
