package preflight

import (
	"context"
	"path/filepath"

	"dualsub/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Engine checks only run when the engine is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Lock directory (always checked)
	results = append(results, CheckDirectoryAccess("Lock directory", cfg.Pipeline.LockDir))

	if cfg.Pipeline.WorkDir != "" {
		results = append(results, CheckDirectoryAccess("Work directory", cfg.Pipeline.WorkDir))
	}
	if cfg.Logging.Dir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	}

	// A cache path relative to each media file cannot be checked up front.
	if cache := cfg.Translation.CachePath; cache != "" && filepath.IsAbs(cache) {
		results = append(results, CheckDirectoryAccess("Translation cache directory", filepath.Dir(cache)))
	}

	if cfg.HasEngine("azure") {
		results = append(results, CheckAzure(ctx, cfg.Translation.Azure))
	}
	if cfg.HasEngine("clipboard") {
		results = append(results, CheckClipboard())
	}

	return results
}
