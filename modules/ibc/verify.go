package ibc

import (
	ics23 "github.com/cosmos/ics23/go"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/hostberry/store"
	"github.com/blockberries/hostberry/types"
)

// verifyMembership checks a counterparty membership proof: the value must
// sit at the prefix-qualified path in the tree whose root the client's
// consensus state pins at proofHeight.
func (ctx *Context) verifyMembership(clientID string, proofHeight Height, prefix MerklePrefix, path store.Path, value, proof []byte) error {
	root, err := ctx.proofRoot(clientID, proofHeight)
	if err != nil {
		return err
	}
	commitment, err := store.UnmarshalProof(proof)
	if err != nil {
		return types.ErrInvalidProof("malformed commitment proof: %v", err)
	}
	key := prefixedKey(prefix, path)
	if !ics23.VerifyMembership(ics23.IavlSpec, root, commitment, key, value) {
		return types.ErrInvalidProof("membership proof failed for %s at %s", path, proofHeight)
	}
	return nil
}

// verifyNonMembership checks a counterparty absence proof for the
// prefix-qualified path.
func (ctx *Context) verifyNonMembership(clientID string, proofHeight Height, prefix MerklePrefix, path store.Path, proof []byte) error {
	root, err := ctx.proofRoot(clientID, proofHeight)
	if err != nil {
		return err
	}
	commitment, err := store.UnmarshalProof(proof)
	if err != nil {
		return types.ErrInvalidProof("malformed commitment proof: %v", err)
	}
	key := prefixedKey(prefix, path)
	if !ics23.VerifyNonMembership(ics23.IavlSpec, root, commitment, key) {
		return types.ErrInvalidProof("non-membership proof failed for %s at %s", path, proofHeight)
	}
	return nil
}

// proofRoot resolves the commitment root proofs against clientID verify
// under: the client must be active and hold a consensus state at the proof
// height.
func (ctx *Context) proofRoot(clientID string, proofHeight Height) ([]byte, error) {
	cs, err := ctx.ClientState(clientID)
	if err != nil {
		return nil, err
	}
	if status := ctx.statusOf(clientID, cs); status != StatusActive {
		return nil, types.ErrInvalidClient("client %s is %s", clientID, status)
	}
	cons, ok, err := ctx.ConsensusState(clientID, proofHeight)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrInvalidProof("client %s has no consensus state at %s", clientID, proofHeight)
	}
	return cons.Root, nil
}

func prefixedKey(prefix MerklePrefix, path store.Path) []byte {
	if len(prefix.KeyPrefix) == 0 {
		return path.Bytes()
	}
	key := make([]byte, 0, len(prefix.KeyPrefix)+1+len(path))
	key = append(key, prefix.KeyPrefix...)
	key = append(key, '/')
	key = append(key, path.Bytes()...)
	return key
}

// encode serializes a value with the canonical codec; handshake proofs are
// verified against these exact bytes.
func encode(value any) ([]byte, error) {
	data, err := cramberry.Marshal(value)
	if err != nil {
		return nil, types.ErrStorageCorruption("encoding expected counterparty state: %v", err)
	}
	return data, nil
}
