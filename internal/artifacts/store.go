package artifacts

import "dualsub/internal/fileutil"

// FS checks artifact presence on the local filesystem. A zero-byte file counts
// as missing so an interrupted producer never satisfies a stage.
type FS struct{}

// Exists reports whether path is a non-empty regular file.
func (FS) Exists(path string) bool {
	return fileutil.NonEmptyFile(path)
}
