package testsupport

import (
	"sync"

	"dualsub/internal/fileutil"
)

// MemStore is an in-memory artifact store. Paths marked present exist
// regardless of the filesystem; OnDisk additionally consults real files.
type MemStore struct {
	mu      sync.Mutex
	present map[string]bool
	OnDisk  bool
}

// NewMemStore returns a store holding the given paths.
func NewMemStore(paths ...string) *MemStore {
	s := &MemStore{present: make(map[string]bool)}
	for _, p := range paths {
		s.present[p] = true
	}
	return s
}

// Add marks paths as present.
func (s *MemStore) Add(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		s.present[p] = true
	}
}

// Exists implements the planner store contract.
func (s *MemStore) Exists(path string) bool {
	s.mu.Lock()
	ok := s.present[path]
	s.mu.Unlock()
	if ok {
		return true
	}
	return s.OnDisk && fileutil.NonEmptyFile(path)
}
