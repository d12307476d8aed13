package translate

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"dualsub/internal/services"
	"dualsub/internal/testsupport"
)

type upperEngine struct {
	calls [][]string
	err   error
	short bool
	blank string
}

func (e *upperEngine) Name() string { return "upper" }

func (e *upperEngine) TranslateTexts(_ context.Context, texts []string, _, _ string) ([]string, error) {
	e.calls = append(e.calls, slices.Clone(texts))
	if e.err != nil {
		return nil, e.err
	}
	out := make([]string, len(texts))
	for i, text := range texts {
		out[i] = strings.ToUpper(text)
		if text == e.blank {
			out[i] = " "
		}
	}
	if e.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func TestTranslateDedupesAndSkipsIgnored(t *testing.T) {
	engine := &upperEngine{}
	tr := New(engine)
	track := testsupport.Track(t,
		testsupport.Span{StartMS: 0, EndMS: 1000, Text: "hei\nmaailma"},
		testsupport.Span{StartMS: 1000, EndMS: 2000, Text: "."},
		testsupport.Span{StartMS: 2000, EndMS: 3000, Text: "hei maailma"},
		testsupport.Span{StartMS: 3000, EndMS: 4000, Text: "moi"},
	)

	out, err := tr.Translate(context.Background(), track, "fi", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	want := []string{"HEI MAAILMA", ".", "HEI MAAILMA", "MOI"}
	if got := out.Texts(); !slices.Equal(got, want) {
		t.Fatalf("texts = %q, want %q", got, want)
	}
	if len(engine.calls) != 1 || !slices.Equal(engine.calls[0], []string{"hei maailma", "moi"}) {
		t.Fatalf("engine calls = %q", engine.calls)
	}
	if out.At(3).Start != track.At(3).Start || out.At(3).End != track.At(3).End {
		t.Fatalf("timings changed")
	}
}

func TestTranslateEmptyTrackSkipsEngine(t *testing.T) {
	engine := &upperEngine{}
	out, err := New(engine).Translate(context.Background(), testsupport.Track(t), "fi", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out.Len() != 0 || len(engine.calls) != 0 {
		t.Fatalf("unexpected output or calls: %d %d", out.Len(), len(engine.calls))
	}
}

func TestTranslateEngineErrors(t *testing.T) {
	boom := errors.New("boom")
	track := testsupport.Track(t, testsupport.Span{StartMS: 0, EndMS: 1000, Text: "moi"})

	if _, err := New(&upperEngine{err: boom}).Translate(context.Background(), track, "fi", "en"); !errors.Is(err, boom) {
		t.Fatalf("expected engine error, got %v", err)
	}
	_, err := New(&upperEngine{short: true}).Translate(context.Background(), track, "fi", "en")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error for short reply, got %v", err)
	}
}

func TestTranslateRejectsBlankTranslation(t *testing.T) {
	track := testsupport.Track(t,
		testsupport.Span{StartMS: 0, EndMS: 1000, Text: "moi"},
		testsupport.Span{StartMS: 1000, EndMS: 2000, Text: "-"},
		testsupport.Span{StartMS: 2000, EndMS: 3000, Text: "hei"},
	)
	_, err := New(&upperEngine{blank: "-"}).Translate(context.Background(), track, "fi", "en")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error for a blank translation, got %v", err)
	}
}

func TestTranslateUsesCachePerMedia(t *testing.T) {
	dir := t.TempDir()
	resolve := func(media string) string {
		if media == "" {
			return ""
		}
		return filepath.Join(filepath.Dir(media), "cache.sqlite")
	}
	track := testsupport.Track(t,
		testsupport.Span{StartMS: 0, EndMS: 1000, Text: "moi"},
		testsupport.Span{StartMS: 1000, EndMS: 2000, Text: "kiitos"},
	)
	ctx := services.WithMedia(context.Background(), filepath.Join(dir, "show.mkv"))

	engine := &upperEngine{}
	tr := New(engine, WithCachePath(resolve))
	if _, err := tr.Translate(ctx, track, "fi", "en"); err != nil {
		t.Fatalf("first Translate: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := &upperEngine{}
	tr = New(second, WithCachePath(resolve))
	defer tr.Close()
	out, err := tr.Translate(ctx, track, "fi", "en")
	if err != nil {
		t.Fatalf("second Translate: %v", err)
	}
	if len(second.calls) != 0 {
		t.Fatalf("expected cache hits only, engine called with %q", second.calls)
	}
	if got := out.Texts(); !slices.Equal(got, []string{"MOI", "KIITOS"}) {
		t.Fatalf("texts = %q", got)
	}

	if _, err := tr.Translate(ctx, track, "fi", "de"); err != nil {
		t.Fatalf("other target: %v", err)
	}
	if len(second.calls) != 1 {
		t.Fatalf("different language pair should miss the cache")
	}
}

func TestCacheStoreAndLookup(t *testing.T) {
	ctx := context.Background()
	cache, err := OpenCache(ctx, filepath.Join(t.TempDir(), "nested", "cache.sqlite"))
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	key := Key{Engine: "azure", Source: "fi", Target: "en"}
	if err := cache.Store(ctx, key, map[string]string{"moi": "hi", "kyllä": "yes"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := cache.Store(ctx, key, map[string]string{"moi": "hello"}); err != nil {
		t.Fatalf("Store replace: %v", err)
	}
	found, err := cache.Lookup(ctx, key, []string{"moi", "kyllä", "ei"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(found) != 2 || found["moi"] != "hello" || found["kyllä"] != "yes" {
		t.Fatalf("found = %v", found)
	}
	other, err := cache.Lookup(ctx, Key{Engine: "argos", Source: "fi", Target: "en"}, []string{"moi"})
	if err != nil || len(other) != 0 {
		t.Fatalf("engine scoping broken: %v %v", other, err)
	}
	n, err := cache.Count(ctx, key)
	if err != nil || n != 2 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}

func TestCacheReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.sqlite")
	key := Key{Engine: "argos", Source: "fi", Target: "en"}

	cache, err := OpenCache(ctx, path)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	if err := cache.Store(ctx, key, map[string]string{"moi": "hi"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	cache.Close()

	cache, err = OpenCache(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer cache.Close()
	found, err := cache.Lookup(ctx, key, []string{"moi"})
	if err != nil || found["moi"] != "hi" {
		t.Fatalf("found = %v, err = %v", found, err)
	}
}
