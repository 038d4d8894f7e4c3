package store

import (
	"sort"
	"sync"
)

// MemStore is the non-provable versioned store. It shares the revision
// numbering and staging discipline of the provable store but keeps plain
// snapshots and never contributes to the app-hash.
type MemStore struct {
	mu sync.RWMutex

	// versions holds one snapshot per committed revision. Revisions up to
	// and including pruned have been reclaimed and are no longer accessible.
	versions []map[Path][]byte
	pruned   uint64

	staged  *writeSet
	pending *writeSet
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty non-provable store at revision 0.
func NewMemStore() *MemStore {
	return &MemStore{
		staged:  newWriteSet(),
		pending: newWriteSet(),
	}
}

func (s *MemStore) snapshot(version uint64) (map[Path][]byte, bool) {
	if version == 0 || version <= s.pruned || version > s.version() {
		return nil, false
	}
	return s.versions[version-1-s.pruned], true
}

func (s *MemStore) version() uint64 {
	return uint64(len(s.versions)) + s.pruned
}

// Get retrieves the value at the given height.
func (s *MemStore) Get(height Height, path Path) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if height.IsPending() {
		if op, ok := s.pending.get(path); ok {
			if op.deleted {
				return nil, false
			}
			return op.value, true
		}
		height = Latest
	}

	version := uint64(height)
	if height.IsLatest() {
		version = s.version()
	}
	snap, ok := s.snapshot(version)
	if !ok {
		return nil, false
	}
	value, ok := snap[path]
	return value, ok
}

// Set stores a key-value pair in the pending write-set.
func (s *MemStore) Set(path Path, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(path) == 0 {
		return ErrNilKey
	}
	if value == nil {
		value = []byte{}
	}
	s.pending.set(path, value)
	return nil
}

// Delete removes a key in the pending write-set.
func (s *MemStore) Delete(path Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(path) == 0 {
		return ErrNilKey
	}
	s.pending.delete(path)
	return nil
}

// GetKeys returns the paths under prefix at the given height.
func (s *MemStore) GetKeys(height Height, prefix Path) []Path {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version := uint64(height)
	if height.IsLatest() || height.IsPending() {
		version = s.version()
	}

	var committed []Path
	if snap, ok := s.snapshot(version); ok {
		for p := range snap {
			if prefix == "" || p.HasPrefix(prefix) {
				committed = append(committed, p)
			}
		}
		sort.Slice(committed, func(i, j int) bool { return committed[i] < committed[j] })
	}
	if height.IsPending() {
		return s.pending.mergeKeys(committed, prefix)
	}
	return committed
}

// Apply folds the pending write-set into the staged block write-set.
func (s *MemStore) Apply() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staged = s.pending.clone()
	return nil
}

// Reset discards the pending write-set back to the staged one.
func (s *MemStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = s.staged.clone()
}

// Commit materializes the staged write-set as a new snapshot.
func (s *MemStore) Commit() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var base map[Path][]byte
	if snap, ok := s.snapshot(s.version()); ok {
		base = snap
	}
	next := make(map[Path][]byte, len(base)+s.staged.len())
	for k, v := range base {
		next[k] = v
	}
	for _, path := range s.staged.sortedPaths() {
		op, _ := s.staged.get(path)
		if op.deleted {
			delete(next, path)
		} else {
			next[path] = op.value
		}
	}
	s.versions = append(s.versions, next)
	s.staged = newWriteSet()
	s.pending = newWriteSet()
	return s.version(), nil
}

// Version returns the latest committed revision.
func (s *MemStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version()
}

// Prune reclaims old snapshots, keeping the latest retain ones.
func (s *MemStore) Prune(retain uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if retain == 0 {
		return nil
	}
	version := s.version()
	if version <= retain {
		return nil
	}
	cut := version - retain
	if cut <= s.pruned {
		return nil
	}
	s.versions = s.versions[cut-s.pruned:]
	s.pruned = cut
	return nil
}

// Close releases resources. MemStore holds none.
func (s *MemStore) Close() error { return nil }
