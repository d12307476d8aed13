package staging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dualsub/internal/logging"
)

// CleanStaleResult contains the outcome of a stale temp file cleanup.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStaleTemps removes hidden "*.tmp" siblings of base's artifacts that
// are older than maxAge. Such files are left behind when a producer is killed
// between writing and renaming its output; they never count as artifacts.
func CleanStaleTemps(base string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	base = strings.TrimSpace(base)
	if base == "" {
		return result
	}
	dir := filepath.Dir(base)
	stem := filepath.Base(base)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isTempFor(name, stem) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale temp file",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "temp_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check media directory permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed stale temp file",
				logging.String("path", path),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "temp_cleanup"),
			)
		}
	}
	return result
}

// isTempFor matches names written by fileutil: ".<artifact>.*.tmp" and
// ".<tag>-<artifact>.tmp" where <artifact> starts with stem.
func isTempFor(name, stem string) bool {
	if !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".tmp") {
		return false
	}
	rest := name[1:]
	if strings.HasPrefix(rest, stem+".") {
		return true
	}
	if i := strings.IndexByte(rest, '-'); i > 0 {
		return strings.HasPrefix(rest[i+1:], stem+".")
	}
	return false
}
