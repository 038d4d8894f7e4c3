// Package ibc implements the IBC host: light-client bookkeeping (ICS-02),
// connection and channel handshakes (ICS-03/04), packet flow, ICS-24 path
// layout and ICS-23 proof verification, with routing of application packets
// to bound port modules (ICS-26).
package ibc

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/blockberries/hostberry/store"
	"github.com/blockberries/hostberry/types"
)

// ModuleName is the IBC module's store prefix, which is also the commitment
// prefix counterparty chains prove against.
const ModuleName store.Identifier = "ibc"

// Height is an IBC revision height: a chain revision number (bumped on
// hard forks) and a block height within that revision. Printed "1-10".
type Height struct {
	RevisionNumber uint64 `cramberry:"1" json:"revision_number"`
	RevisionHeight uint64 `cramberry:"2" json:"revision_height"`
}

// NewHeight builds a Height.
func NewHeight(revisionNumber, revisionHeight uint64) Height {
	return Height{RevisionNumber: revisionNumber, RevisionHeight: revisionHeight}
}

// ParseHeight parses the "{revision}-{height}" form.
func ParseHeight(s string) (Height, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return Height{}, fmt.Errorf("malformed height %q, want {revision}-{height}", s)
	}
	rn, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Height{}, fmt.Errorf("malformed revision number in %q: %w", s, err)
	}
	rh, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return Height{}, fmt.Errorf("malformed revision height in %q: %w", s, err)
	}
	return Height{RevisionNumber: rn, RevisionHeight: rh}, nil
}

func (h Height) String() string {
	return fmt.Sprintf("%d-%d", h.RevisionNumber, h.RevisionHeight)
}

// IsZero reports the zero height, used to mean "no timeout height".
func (h Height) IsZero() bool {
	return h.RevisionNumber == 0 && h.RevisionHeight == 0
}

// Compare orders heights by revision number, then revision height.
func (h Height) Compare(other Height) int {
	if h.RevisionNumber != other.RevisionNumber {
		if h.RevisionNumber < other.RevisionNumber {
			return -1
		}
		return 1
	}
	if h.RevisionHeight != other.RevisionHeight {
		if h.RevisionHeight < other.RevisionHeight {
			return -1
		}
		return 1
	}
	return 0
}

// GT reports h > other.
func (h Height) GT(other Height) bool { return h.Compare(other) > 0 }

// GTE reports h >= other.
func (h Height) GTE(other Height) bool { return h.Compare(other) >= 0 }

// LT reports h < other.
func (h Height) LT(other Height) bool { return h.Compare(other) < 0 }

// Order is a channel's delivery discipline.
type Order uint8

const (
	OrderNone Order = iota
	OrderUnordered
	OrderOrdered
)

func (o Order) String() string {
	switch o {
	case OrderUnordered:
		return "ORDER_UNORDERED"
	case OrderOrdered:
		return "ORDER_ORDERED"
	default:
		return "ORDER_NONE_UNSPECIFIED"
	}
}

// ConnectionState is a connection end's handshake state.
type ConnectionState uint8

const (
	ConnectionUninitialized ConnectionState = iota
	ConnectionInit
	ConnectionTryOpen
	ConnectionOpen
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionInit:
		return "INIT"
	case ConnectionTryOpen:
		return "TRYOPEN"
	case ConnectionOpen:
		return "OPEN"
	default:
		return "UNINITIALIZED"
	}
}

// ChannelState is a channel end's lifecycle state.
type ChannelState uint8

const (
	ChannelUninitialized ChannelState = iota
	ChannelInit
	ChannelTryOpen
	ChannelOpen
	ChannelClosed
)

func (s ChannelState) String() string {
	switch s {
	case ChannelInit:
		return "INIT"
	case ChannelTryOpen:
		return "TRYOPEN"
	case ChannelOpen:
		return "OPEN"
	case ChannelClosed:
		return "CLOSED"
	default:
		return "UNINITIALIZED"
	}
}

// MerklePrefix is the counterparty's store prefix that its IBC paths live
// under; proofs are verified against prefix-qualified keys.
type MerklePrefix struct {
	KeyPrefix []byte `cramberry:"1"`
}

// DefaultMerklePrefix is the prefix a hostberry chain commits under.
func DefaultMerklePrefix() MerklePrefix {
	return MerklePrefix{KeyPrefix: []byte(ModuleName)}
}

// ConnectionCounterparty identifies the other end of a connection.
type ConnectionCounterparty struct {
	ClientID     string       `cramberry:"1"`
	ConnectionID string       `cramberry:"2"`
	Prefix       MerklePrefix `cramberry:"3"`
}

// ConnectionVersion names a connection protocol version and the channel
// orderings it supports.
type ConnectionVersion struct {
	Identifier string   `cramberry:"1"`
	Features   []string `cramberry:"2"`
}

// DefaultConnectionVersion is the single version hostberry speaks.
func DefaultConnectionVersion() ConnectionVersion {
	return ConnectionVersion{
		Identifier: "1",
		Features:   []string{"ORDER_ORDERED", "ORDER_UNORDERED"},
	}
}

// ConnectionEnd is this chain's record of a connection.
type ConnectionEnd struct {
	ClientID     string                 `cramberry:"1"`
	Versions     []ConnectionVersion    `cramberry:"2"`
	State        ConnectionState        `cramberry:"3"`
	Counterparty ConnectionCounterparty `cramberry:"4"`
	DelayPeriod  uint64                 `cramberry:"5"`
}

// ChannelCounterparty identifies the other end of a channel.
type ChannelCounterparty struct {
	PortID    string `cramberry:"1"`
	ChannelID string `cramberry:"2"`
}

// ChannelEnd is this chain's record of a channel.
type ChannelEnd struct {
	State          ChannelState        `cramberry:"1"`
	Ordering       Order               `cramberry:"2"`
	Counterparty   ChannelCounterparty `cramberry:"3"`
	ConnectionHops []string            `cramberry:"4"`
	Version        string              `cramberry:"5"`
}

// Packet is a datagram in flight between two channel ends.
type Packet struct {
	Sequence           uint64 `cramberry:"1"`
	SourcePort         string `cramberry:"2"`
	SourceChannel      string `cramberry:"3"`
	DestinationPort    string `cramberry:"4"`
	DestinationChannel string `cramberry:"5"`
	Data               []byte `cramberry:"6"`
	TimeoutHeight      Height `cramberry:"7"`
	// TimeoutTimestamp is in nanoseconds since the Unix epoch; 0 disables
	// the timestamp timeout.
	TimeoutTimestamp uint64 `cramberry:"8"`
}

// Commitment is the canonical hash proving this packet was sent:
// sha256(timeoutTimestamp_be8 || timeoutRevisionNumber_be8 ||
// timeoutRevisionHeight_be8 || sha256(data)).
func (p Packet) Commitment() []byte {
	buf := make([]byte, 24)
	binary.BigEndian.PutUint64(buf[0:8], p.TimeoutTimestamp)
	binary.BigEndian.PutUint64(buf[8:16], p.TimeoutHeight.RevisionNumber)
	binary.BigEndian.PutUint64(buf[16:24], p.TimeoutHeight.RevisionHeight)
	dataHash := sha256.Sum256(p.Data)
	sum := sha256.Sum256(append(buf, dataHash[:]...))
	return sum[:]
}

// AckCommitment is the stored form of an acknowledgement.
func AckCommitment(ack []byte) []byte {
	sum := sha256.Sum256(ack)
	return sum[:]
}

// validateIdentifier applies the shared identifier rules to IBC ids.
func validateIdentifier(kind, id string) error {
	if err := store.Identifier(id).Validate(); err != nil {
		return types.ErrInvalidMessage("invalid %s identifier: %v", kind, err)
	}
	return nil
}
