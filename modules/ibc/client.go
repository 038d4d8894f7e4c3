package ibc

import (
	"bytes"
	"time"

	bapitypes "github.com/blockberries/bapi/types"

	"github.com/blockberries/hostberry/types"
)

func errHeader(format string, args ...any) error {
	return types.ErrInvalidClient(format, args...)
}

// ClientTypeTendermint is the only client type the host currently carries.
// Client IDs are "{type}-{sequence}", e.g. "07-tendermint-0".
const ClientTypeTendermint = "07-tendermint"

// Fraction is a trust-level ratio.
type Fraction struct {
	Numerator   uint64 `cramberry:"1"`
	Denominator uint64 `cramberry:"2"`
}

// ClientState tracks a counterparty chain's light client. The concrete
// header-verification algorithm is the client type's concern and is treated
// as opaque here; the host stores, ages and serves this state.
type ClientState struct {
	ChainID         string             `cramberry:"1"`
	TrustLevel      Fraction           `cramberry:"2"`
	TrustingPeriod  bapitypes.Duration `cramberry:"3"`
	UnbondingPeriod bapitypes.Duration `cramberry:"4"`
	MaxClockDrift   bapitypes.Duration `cramberry:"5"`
	LatestHeight    Height             `cramberry:"6"`
	FrozenHeight    *Height            `cramberry:"7"`
}

// ConsensusState is the verified view of the counterparty at one height.
// Root is the counterparty's app-hash; membership proofs for handshake and
// packet verification anchor at it.
type ConsensusState struct {
	Timestamp          bapitypes.Timestamp `cramberry:"1"`
	Root               []byte              `cramberry:"2"`
	NextValidatorsHash []byte              `cramberry:"3"`
}

// Header is a counterparty header submitted via MsgUpdateClient.
type Header struct {
	Height             Height              `cramberry:"1"`
	Timestamp          bapitypes.Timestamp `cramberry:"2"`
	AppHash            []byte              `cramberry:"3"`
	NextValidatorsHash []byte              `cramberry:"4"`
	TrustedHeight      Height              `cramberry:"5"`
}

// ConsensusState derives the consensus state a verified header yields.
func (h Header) ConsensusState() ConsensusState {
	return ConsensusState{
		Timestamp:          h.Timestamp,
		Root:               h.AppHash,
		NextValidatorsHash: h.NextValidatorsHash,
	}
}

// Status is a client's computed standing. It is never stored; it is a pure
// function of the client state, its latest consensus state, and the current
// block time.
type Status string

const (
	StatusActive  Status = "Active"
	StatusExpired Status = "Expired"
	StatusFrozen  Status = "Frozen"
	StatusUnknown Status = "Unknown"
)

// IsFrozen reports whether the client has been frozen for misbehaviour.
func (cs ClientState) IsFrozen() bool {
	return cs.FrozenHeight != nil && !cs.FrozenHeight.IsZero()
}

// Status computes the client's standing at the given block time.
// latestConsTime is the timestamp of the consensus state at LatestHeight.
func (cs ClientState) Status(latestConsTime, now time.Time) Status {
	if cs.IsFrozen() {
		return StatusFrozen
	}
	if cs.TrustingPeriod.Nanos <= 0 {
		return StatusUnknown
	}
	if now.After(latestConsTime.Add(cs.TrustingPeriod.ToGo())) {
		return StatusExpired
	}
	return StatusActive
}

// MatchesForRecovery checks that a substitute client agrees with the subject
// on every parameter a recovery is not allowed to change. Trusting period,
// trust level and max clock drift are the adjustable ones; heights differ by
// construction.
func (cs ClientState) MatchesForRecovery(substitute ClientState) bool {
	return cs.ChainID == substitute.ChainID &&
		cs.UnbondingPeriod == substitute.UnbondingPeriod
}

// verifyHeader applies the host-side header sanity checks: the trusted base
// must be within the trusting period, a header above the client's latest
// height must be later than the trusted time, and, when a max clock drift is
// set, no header may outrun the host clock by more than that drift.
// Cryptographic validator-set verification belongs to the client type and is
// out of scope here.
func (cs ClientState) verifyHeader(trusted ConsensusState, header Header, now time.Time) error {
	if header.Height.RevisionNumber != cs.LatestHeight.RevisionNumber {
		return errHeader("revision number %d does not match client revision %d",
			header.Height.RevisionNumber, cs.LatestHeight.RevisionNumber)
	}
	trustedTime := trusted.Timestamp.ToTime()
	if now.After(trustedTime.Add(cs.TrustingPeriod.ToGo())) {
		return errHeader("trusted consensus state from %s is outside the trusting period", trustedTime)
	}
	headerTime := header.Timestamp.ToTime()
	if !headerTime.After(trustedTime) && header.Height.GT(cs.LatestHeight) {
		return errHeader("header time %s does not advance past trusted time %s", headerTime, trustedTime)
	}
	if cs.MaxClockDrift.Nanos > 0 && headerTime.After(now.Add(cs.MaxClockDrift.ToGo())) {
		return errHeader("header time %s is too far in the future", headerTime)
	}
	return nil
}

// consensusEqual reports byte equality of two consensus states.
func consensusEqual(a, b ConsensusState) bool {
	return a.Timestamp == b.Timestamp &&
		bytes.Equal(a.Root, b.Root) &&
		bytes.Equal(a.NextValidatorsHash, b.NextValidatorsHash)
}
