// Package store provides the versioned, Merkle-proven state storage for
// hostberry: a revisioned key/value core with check/deliver/query staging
// scopes, typed sub-store views, and ICS-23 membership proofs.
package store

import (
	"errors"
	"math"

	ics23 "github.com/cosmos/ics23/go"
)

// Height selects the revision a read is anchored at. Revision r corresponds
// to the state committed after block height r.
type Height uint64

const (
	// Latest reads the most recently committed revision.
	Latest Height = 0

	// PendingHeight reads through the uncommitted deliver write-set on top
	// of the latest committed revision.
	PendingHeight Height = math.MaxUint64
)

// IsLatest reports whether the height means "current committed state".
func (h Height) IsLatest() bool { return h == Latest }

// IsPending reports whether the height includes uncommitted deliver writes.
func (h Height) IsPending() bool { return h == PendingHeight }

// Common store errors.
var (
	// ErrReadOnly is returned by writes through a query scope.
	ErrReadOnly = errors.New("store is read-only")

	// ErrVersionPruned is returned when a read targets a reclaimed revision.
	ErrVersionPruned = errors.New("version has been pruned")

	// ErrNilKey is returned for operations on an empty path.
	ErrNilKey = errors.New("key cannot be empty")
)

// Store is a revisioned byte store with two-phase transaction semantics.
//
// Writes land in a per-transaction pending set. Apply folds pending into the
// staged block write-set on transaction success; Reset discards pending back
// to staged on failure. Commit folds staged into a new immutable revision.
type Store interface {
	// Get retrieves the value at the given height.
	// Returns false if the key is absent at that height.
	Get(height Height, path Path) ([]byte, bool)

	// Set stores a key-value pair in the pending write-set.
	Set(path Path, value []byte) error

	// Delete removes a key in the pending write-set.
	Delete(path Path) error

	// GetKeys returns the paths under prefix at the given height,
	// in lexicographic order.
	GetKeys(height Height, prefix Path) []Path

	// Apply folds the pending write-set into the staged block write-set.
	Apply() error

	// Reset discards the pending write-set back to the staged one.
	Reset()

	// Commit freezes the staged write-set as a new revision and returns it.
	Commit() (uint64, error)

	// Version returns the latest committed revision. 0 before any commit.
	Version() uint64

	// Prune reclaims revisions so that at most retain latest ones remain.
	// retain == 0 keeps everything.
	Prune(retain uint64) error

	// Close releases resources held by the store.
	Close() error
}

// ProvableStore is a Store whose committed revisions carry a Merkle root and
// can produce ICS-23 membership and non-membership proofs.
type ProvableStore interface {
	Store

	// RootHash returns the root digest of the latest committed revision.
	RootHash() []byte

	// StagedRootHash returns the root digest the store would have if the
	// staged write-set were committed now, without persisting a revision.
	StagedRootHash() ([]byte, error)

	// GetProof produces an existence proof if path is present at height,
	// and a non-existence proof otherwise. Only committed heights are
	// provable.
	GetProof(height Height, path Path) (*Proof, error)
}

// Proof is an ICS-23 commitment proof for a single path, anchored at a
// committed revision's root hash.
type Proof struct {
	// Path is the key this proof is for.
	Path Path

	// Value is the value if the key exists, nil otherwise.
	Value []byte

	// Exists indicates whether the key is present in the tree.
	Exists bool

	// RootHash is the root of the revision the proof was generated from.
	RootHash []byte

	// Version is the revision the proof was generated from.
	Version uint64

	// Commitment is the ICS-23 proof itself (iavl leaf/inner specs).
	Commitment *ics23.CommitmentProof
}

// Verify checks the proof against a root hash. For an existence proof it
// verifies membership of (path, value); for a non-existence proof it
// verifies absence of path.
func (p *Proof) Verify(root []byte) bool {
	if p == nil || p.Commitment == nil {
		return false
	}
	if p.Exists {
		return ics23.VerifyMembership(ics23.IavlSpec, root, p.Commitment, p.Path.Bytes(), p.Value)
	}
	return ics23.VerifyNonMembership(ics23.IavlSpec, root, p.Commitment, p.Path.Bytes())
}

// Marshal serializes the ICS-23 commitment proof.
func (p *Proof) Marshal() ([]byte, error) {
	return p.Commitment.Marshal()
}

// UnmarshalProof decodes a serialized ICS-23 commitment proof.
func UnmarshalProof(data []byte) (*ics23.CommitmentProof, error) {
	proof := &ics23.CommitmentProof{}
	if err := proof.Unmarshal(data); err != nil {
		return nil, err
	}
	return proof, nil
}
