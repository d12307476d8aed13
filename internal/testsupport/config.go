package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"dualsub/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Pipeline.LockDir = filepath.Join(base, "locks")
	cfgVal.Pipeline.WorkDir = filepath.Join(base, "work")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Finalize(); err != nil {
		t.Fatalf("finalize test config: %v", err)
	}
	return builder.cfg
}

// WithEngines sets the translation engines on the test config.
func WithEngines(engines ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Engines = engines
		for _, e := range engines {
			if e == "azure" && b.cfg.Translation.Azure.APIKey == "" {
				b.cfg.Translation.Azure.APIKey = "test"
			}
		}
	}
}

// WithLanguages sets the source and target languages on the test config.
func WithLanguages(source, target string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.SourceLanguage = source
		b.cfg.Pipeline.TargetLanguage = target
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external binaries
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{
				b.cfg.Whisper.Command,
				b.cfg.Tools.FFprobe,
				b.cfg.Tools.FFmpeg,
				b.cfg.Tools.Mkvmerge,
			}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Pipeline.LockDir)
}
