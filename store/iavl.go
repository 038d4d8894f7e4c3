package store

import (
	"fmt"
	"sync"

	"github.com/cosmos/iavl"
	idb "github.com/cosmos/iavl/db"
)

// IavlStore implements ProvableStore using a cosmos/iavl merkle tree.
//
// Committed revisions live in the tree as saved versions. The pending and
// staged write-sets are kept outside the tree; the working tree is only
// touched when the staged set is replayed at commit time (or when the staged
// root is computed ahead of commit). Reads at Latest and at stable heights go
// through saved versions, so they never observe uncommitted writes.
type IavlStore struct {
	mu   sync.RWMutex
	tree *iavl.MutableTree
	db   idb.DB

	staged  *writeSet
	pending *writeSet
}

var _ ProvableStore = (*IavlStore)(nil)

// NewIavlStore creates an iavl-backed store persisted under path.
// cacheSize is the number of tree nodes cached in memory.
func NewIavlStore(path string, cacheSize int) (*IavlStore, error) {
	db, err := idb.NewGoLevelDB("state", path)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb for iavl: %w", err)
	}

	tree := iavl.NewMutableTree(db, cacheSize, false, iavl.NewNopLogger())

	if _, err := tree.Load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading iavl tree: %w", err)
	}

	return &IavlStore{
		tree:    tree,
		db:      db,
		staged:  newWriteSet(),
		pending: newWriteSet(),
	}, nil
}

// NewMemoryIavlStore creates an in-memory iavl store.
func NewMemoryIavlStore(cacheSize int) *IavlStore {
	db := idb.NewMemDB()
	tree := iavl.NewMutableTree(db, cacheSize, false, iavl.NewNopLogger())

	return &IavlStore{
		tree:    tree,
		db:      db,
		staged:  newWriteSet(),
		pending: newWriteSet(),
	}
}

// Get retrieves the value at the given height.
func (s *IavlStore) Get(height Height, path Path) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if height.IsPending() {
		if op, ok := s.pending.get(path); ok {
			if op.deleted {
				return nil, false
			}
			return op.value, true
		}
		return s.committedGet(s.tree.Version(), path)
	}

	version := int64(height)
	if height.IsLatest() {
		version = s.tree.Version()
	}
	return s.committedGet(version, path)
}

// committedGet reads from a saved version, never the working tree.
func (s *IavlStore) committedGet(version int64, path Path) ([]byte, bool) {
	if version == 0 || !s.tree.VersionExists(version) {
		return nil, false
	}
	value, err := s.tree.GetVersioned(path.Bytes(), version)
	if err != nil || value == nil {
		return nil, false
	}
	return value, true
}

// Set stores a key-value pair in the pending write-set.
func (s *IavlStore) Set(path Path, value []byte) error {
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
func (s *IavlStore) Delete(path Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(path) == 0 {
		return ErrNilKey
	}
	s.pending.delete(path)
	return nil
}

// GetKeys returns the paths under prefix at the given height.
func (s *IavlStore) GetKeys(height Height, prefix Path) []Path {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version := int64(height)
	if height.IsLatest() || height.IsPending() {
		version = s.tree.Version()
	}
	committed := s.committedKeys(version, prefix)
	if height.IsPending() {
		return s.pending.mergeKeys(committed, prefix)
	}
	return committed
}

func (s *IavlStore) committedKeys(version int64, prefix Path) []Path {
	if version == 0 || !s.tree.VersionExists(version) {
		return nil
	}
	imm, err := s.tree.GetImmutable(version)
	if err != nil {
		return nil
	}
	var keys []Path
	_, _ = imm.Iterate(func(key, _ []byte) bool {
		p := Path(key)
		if prefix == "" || p.HasPrefix(prefix) {
			keys = append(keys, p)
		}
		return false
	})
	return keys
}

// Apply folds the pending write-set into the staged block write-set.
func (s *IavlStore) Apply() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staged = s.pending.clone()
	return nil
}

// Reset discards the pending write-set back to the staged one.
func (s *IavlStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = s.staged.clone()
}

// replayStaged writes the staged ops into the working tree in lexicographic
// path order, so the resulting root is independent of write order. The
// write-set is cumulative within a block, so replaying it repeatedly (for a
// staged-root computation and again at commit) is idempotent.
func (s *IavlStore) replayStaged() error {
	for _, path := range s.staged.sortedPaths() {
		op, _ := s.staged.get(path)
		if op.deleted {
			if _, _, err := s.tree.Remove(path.Bytes()); err != nil {
				return fmt.Errorf("removing key %q: %w", path, err)
			}
			continue
		}
		if _, err := s.tree.Set(path.Bytes(), op.value); err != nil {
			return fmt.Errorf("setting key %q: %w", path, err)
		}
	}
	return nil
}

// StagedRootHash returns the root the next commit will produce.
func (s *IavlStore) StagedRootHash() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.replayStaged(); err != nil {
		return nil, err
	}
	return s.tree.WorkingHash(), nil
}

// Commit saves the staged write-set as a new revision.
func (s *IavlStore) Commit() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.replayStaged(); err != nil {
		return 0, err
	}
	_, version, err := s.tree.SaveVersion()
	if err != nil {
		return 0, fmt.Errorf("saving version: %w", err)
	}
	s.staged = newWriteSet()
	s.pending = newWriteSet()
	return uint64(version), nil
}

// Version returns the latest committed revision.
func (s *IavlStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return uint64(s.tree.Version())
}

// RootHash returns the root digest of the latest committed revision.
func (s *IavlStore) RootHash() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v := s.tree.Version(); v > 0 {
		if imm, err := s.tree.GetImmutable(v); err == nil {
			return imm.Hash()
		}
	}
	return s.tree.Hash()
}

// GetProof produces an ICS-23 proof for path at a committed height.
func (s *IavlStore) GetProof(height Height, path Path) (*Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version := int64(height)
	if height.IsLatest() || height.IsPending() {
		version = s.tree.Version()
	}
	if version == 0 {
		return nil, fmt.Errorf("no committed version to prove against")
	}
	if !s.tree.VersionExists(version) {
		return nil, ErrVersionPruned
	}

	imm, err := s.tree.GetImmutable(version)
	if err != nil {
		return nil, fmt.Errorf("loading version %d: %w", version, err)
	}

	value, err := imm.Get(path.Bytes())
	if err != nil {
		return nil, fmt.Errorf("getting value for proof: %w", err)
	}

	proof, err := imm.GetProof(path.Bytes())
	if err != nil {
		return nil, fmt.Errorf("getting proof: %w", err)
	}

	return &Proof{
		Path:       path,
		Value:      value,
		Exists:     value != nil,
		RootHash:   imm.Hash(),
		Version:    uint64(version),
		Commitment: proof,
	}, nil
}

// Prune reclaims old revisions, keeping the latest retain ones.
func (s *IavlStore) Prune(retain uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if retain == 0 {
		return nil
	}
	version := uint64(s.tree.Version())
	if version <= retain {
		return nil
	}
	if err := s.tree.DeleteVersionsTo(int64(version - retain)); err != nil {
		return fmt.Errorf("pruning to version %d: %w", version-retain, err)
	}
	return nil
}

// Close closes the store and releases resources.
func (s *IavlStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}
