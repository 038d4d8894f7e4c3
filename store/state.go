package store

import (
	"fmt"
)

// KV is the flat read/write surface a scope hands to module code. Paths are
// relative to whatever view the KV represents (a whole store, or a module's
// prefixed slice of one).
type KV interface {
	Get(path Path) ([]byte, bool)
	Set(path Path, value []byte) error
	Delete(path Path) error
	GetKeys(prefix Path) []Path
}

// Scope gives a handler access to both halves of the state: the provable
// sub-store (mirrored into the Merkle overlay) and the non-provable one.
// Handlers receive a scope as a parameter; nested sub-calls share it.
type Scope interface {
	// Provable is the Merkle-proven half of the state.
	Provable() KV

	// Mem is the versioned but unauthenticated half, excluded from the
	// app-hash.
	Mem() KV
}

// State is the composite application state: one provable store (the source
// of the app-hash) and one non-provable store, committed in lockstep so both
// share revision numbers.
type State struct {
	provable ProvableStore
	mem      Store

	checkProv *writeSet
	checkMem  *writeSet
}

// NewState wraps the two stores. Both must be at the same revision.
func NewState(provable ProvableStore, mem Store) *State {
	return &State{
		provable:  provable,
		mem:       mem,
		checkProv: newWriteSet(),
		checkMem:  newWriteSet(),
	}
}

// NewMemoryState builds a State entirely in memory.
func NewMemoryState(cacheSize int) *State {
	return NewState(NewMemoryIavlStore(cacheSize), NewMemStore())
}

// Deliver returns the block-execution scope. Writes land in the pending
// write-sets; ApplyTx/ResetTx stage or discard them per transaction, and
// Commit folds the staged sets into a new revision.
func (s *State) Deliver() Scope {
	return scope{
		provable: deliverKV{s.provable},
		mem:      deliverKV{s.mem},
	}
}

// Check returns the mempool-validation scope. Its writes are kept in a
// private overlay over the latest committed revision and are discarded at
// every block boundary; they are never visible to deliver or query scopes.
func (s *State) Check() Scope {
	return scope{
		provable: checkKV{base: s.provable, ws: s.checkProv},
		mem:      checkKV{base: s.mem, ws: s.checkMem},
	}
}

// QueryAt returns a read-only scope anchored at the given revision
// (Latest for the current one).
func (s *State) QueryAt(height Height) (Scope, error) {
	if !height.IsLatest() && !height.IsPending() {
		if uint64(height) > s.provable.Version() {
			return nil, fmt.Errorf("revision %d not committed yet", uint64(height))
		}
	}
	if height.IsPending() {
		height = Latest
	}
	return scope{
		provable: queryKV{base: s.provable, height: height},
		mem:      queryKV{base: s.mem, height: height},
	}, nil
}

// ApplyTx folds the current transaction's writes into the block write-set.
func (s *State) ApplyTx() error {
	if err := s.provable.Apply(); err != nil {
		return err
	}
	return s.mem.Apply()
}

// ResetTx discards the current transaction's writes.
func (s *State) ResetTx() {
	s.provable.Reset()
	s.mem.Reset()
}

// StagedAppHash computes the app-hash the next Commit will produce, without
// persisting a revision.
func (s *State) StagedAppHash() ([]byte, error) {
	return s.provable.StagedRootHash()
}

// Commit folds the staged write-sets of both stores into a new revision and
// discards the check overlay. Returns the new app-hash and revision.
func (s *State) Commit() ([]byte, uint64, error) {
	version, err := s.provable.Commit()
	if err != nil {
		return nil, 0, fmt.Errorf("committing provable store: %w", err)
	}
	memVersion, err := s.mem.Commit()
	if err != nil {
		return nil, 0, fmt.Errorf("committing mem store: %w", err)
	}
	if memVersion != version {
		return nil, 0, fmt.Errorf("store revisions diverged: provable=%d mem=%d", version, memVersion)
	}
	s.checkProv = newWriteSet()
	s.checkMem = newWriteSet()
	return s.provable.RootHash(), version, nil
}

// AppHash returns the app-hash of the latest committed revision.
func (s *State) AppHash() []byte { return s.provable.RootHash() }

// Version returns the latest committed revision.
func (s *State) Version() uint64 { return s.provable.Version() }

// Prove produces an ICS-23 proof for a full (prefix-qualified) path at a
// committed revision.
func (s *State) Prove(height Height, path Path) (*Proof, error) {
	return s.provable.GetProof(height, path)
}

// Prune reclaims historical revisions from both stores.
func (s *State) Prune(retain uint64) error {
	if err := s.provable.Prune(retain); err != nil {
		return err
	}
	return s.mem.Prune(retain)
}

// Close releases both stores.
func (s *State) Close() error {
	if err := s.provable.Close(); err != nil {
		return err
	}
	return s.mem.Close()
}

// scope is the trivial Scope implementation.
type scope struct {
	provable KV
	mem      KV
}

func (s scope) Provable() KV { return s.provable }
func (s scope) Mem() KV      { return s.mem }

// deliverKV routes reads through the pending write-set and writes into it.
type deliverKV struct {
	s Store
}

func (kv deliverKV) Get(path Path) ([]byte, bool) {
	return kv.s.Get(PendingHeight, path)
}

func (kv deliverKV) Set(path Path, value []byte) error {
	return kv.s.Set(path, value)
}

func (kv deliverKV) Delete(path Path) error {
	return kv.s.Delete(path)
}

func (kv deliverKV) GetKeys(prefix Path) []Path {
	return kv.s.GetKeys(PendingHeight, prefix)
}

// checkKV overlays a private write-set on the latest committed revision.
type checkKV struct {
	base Store
	ws   *writeSet
}

func (kv checkKV) Get(path Path) ([]byte, bool) {
	if op, ok := kv.ws.get(path); ok {
		if op.deleted {
			return nil, false
		}
		return op.value, true
	}
	return kv.base.Get(Latest, path)
}

func (kv checkKV) Set(path Path, value []byte) error {
	if len(path) == 0 {
		return ErrNilKey
	}
	kv.ws.set(path, value)
	return nil
}

func (kv checkKV) Delete(path Path) error {
	if len(path) == 0 {
		return ErrNilKey
	}
	kv.ws.delete(path)
	return nil
}

func (kv checkKV) GetKeys(prefix Path) []Path {
	return kv.ws.mergeKeys(kv.base.GetKeys(Latest, prefix), prefix)
}

// queryKV reads a fixed revision and refuses writes.
type queryKV struct {
	base   Store
	height Height
}

func (kv queryKV) Get(path Path) ([]byte, bool) {
	return kv.base.Get(kv.height, path)
}

func (kv queryKV) Set(Path, []byte) error { return ErrReadOnly }

func (kv queryKV) Delete(Path) error { return ErrReadOnly }

func (kv queryKV) GetKeys(prefix Path) []Path {
	return kv.base.GetKeys(kv.height, prefix)
}
