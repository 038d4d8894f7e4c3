package ibc

import (
	"sort"
	"strconv"
	"strings"

	"github.com/blockberries/hostberry/store"
)

// Read-side accessors used by the gRPC query services. They run against
// whatever scope the Context was built on, typically a query scope at a
// committed revision.

// ClientIDs lists the identifiers of every stored client.
func (ctx *Context) ClientIDs() []string {
	var ids []string
	for _, p := range ctx.kv.GetKeys("clients") {
		s := p.String()
		if !strings.HasSuffix(s, "/clientState") {
			continue
		}
		parts := strings.Split(s, "/")
		if len(parts) == 3 {
			ids = append(ids, parts[1])
		}
	}
	sort.Strings(ids)
	return ids
}

// ConnectionIDs lists the identifiers of every stored connection.
func (ctx *Context) ConnectionIDs() []string {
	var ids []string
	for _, p := range ctx.kv.GetKeys("connections") {
		parts := strings.Split(p.String(), "/")
		if len(parts) == 2 {
			ids = append(ids, parts[1])
		}
	}
	sort.Strings(ids)
	return ids
}

// ChannelKey identifies a channel end.
type ChannelKey struct {
	PortID    string
	ChannelID string
}

// ChannelKeys lists every stored channel end.
func (ctx *Context) ChannelKeys() []ChannelKey {
	var keys []ChannelKey
	for _, p := range ctx.kv.GetKeys("channelEnds") {
		// channelEnds/ports/{port}/channels/{channel}
		parts := strings.Split(p.String(), "/")
		if len(parts) == 5 && parts[1] == "ports" && parts[3] == "channels" {
			keys = append(keys, ChannelKey{PortID: parts[2], ChannelID: parts[4]})
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PortID != keys[j].PortID {
			return keys[i].PortID < keys[j].PortID
		}
		return keys[i].ChannelID < keys[j].ChannelID
	})
	return keys
}

// PacketEntry is a stored packet commitment or acknowledgement.
type PacketEntry struct {
	Sequence uint64
	Value    []byte
}

func (ctx *Context) packetEntries(prefix store.Path) []PacketEntry {
	var entries []PacketEntry
	for _, p := range ctx.kv.GetKeys(prefix) {
		rel, ok := p.StripPrefix(prefix)
		if !ok {
			continue
		}
		seq, err := strconv.ParseUint(rel.String(), 10, 64)
		if err != nil {
			continue
		}
		if value, ok := ctx.kv.Get(p); ok {
			entries = append(entries, PacketEntry{Sequence: seq, Value: value})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Sequence < entries[j].Sequence })
	return entries
}

// PacketCommitments lists a channel's stored packet commitments.
func (ctx *Context) PacketCommitments(portID, channelID string) []PacketEntry {
	return ctx.packetEntries(PacketCommitmentPrefix(portID, channelID))
}

// PacketAcks lists a channel's stored acknowledgements.
func (ctx *Context) PacketAcks(portID, channelID string) []PacketEntry {
	return ctx.packetEntries(PacketAckPrefix(portID, channelID))
}

// PacketCommitment reads one packet commitment.
func (ctx *Context) PacketCommitment(portID, channelID string, sequence uint64) ([]byte, bool) {
	return ctx.kv.Get(PacketCommitmentPath(portID, channelID, sequence))
}

// PacketAck reads one acknowledgement commitment.
func (ctx *Context) PacketAck(portID, channelID string, sequence uint64) ([]byte, bool) {
	return ctx.kv.Get(PacketAckPath(portID, channelID, sequence))
}

// HasReceipt reports whether a packet receipt is recorded.
func (ctx *Context) HasReceipt(portID, channelID string, sequence uint64) bool {
	_, ok := ctx.kv.Get(PacketReceiptPath(portID, channelID, sequence))
	return ok
}

// NextSequenceSend reads a channel's send sequence.
func (ctx *Context) NextSequenceSend(portID, channelID string) (uint64, bool) {
	seq, ok, err := ctx.sequence(NextSequenceSendPath(portID, channelID))
	return seq, ok && err == nil
}

// NextSequenceRecv reads a channel's receive sequence.
func (ctx *Context) NextSequenceRecv(portID, channelID string) (uint64, bool) {
	seq, ok, err := ctx.sequence(NextSequenceRecvPath(portID, channelID))
	return seq, ok && err == nil
}

// NextSequenceAck reads a channel's acknowledgement sequence.
func (ctx *Context) NextSequenceAck(portID, channelID string) (uint64, bool) {
	seq, ok, err := ctx.sequence(NextSequenceAckPath(portID, channelID))
	return seq, ok && err == nil
}

// UpgradedClient reads the upgraded client state planned at a height.
func (ctx *Context) UpgradedClient(height uint64) (ClientState, bool) {
	cs, ok, err := ctx.clientStates().Get(UpgradedClientPath(height))
	return cs, ok && err == nil
}

// SetUpgradedClient plans an upgraded client state at a height.
func (ctx *Context) SetUpgradedClient(height uint64, cs ClientState) error {
	return ctx.clientStates().Set(UpgradedClientPath(height), cs)
}

// UpgradedConsensus reads the upgraded consensus state planned at a height.
func (ctx *Context) UpgradedConsensus(height uint64) (ConsensusState, bool) {
	cons, ok, err := ctx.consensusStates().Get(UpgradedConsensusPath(height))
	return cons, ok && err == nil
}

// SetUpgradedConsensus plans an upgraded consensus state at a height.
func (ctx *Context) SetUpgradedConsensus(height uint64, cons ConsensusState) error {
	return ctx.consensusStates().Set(UpgradedConsensusPath(height), cons)
}
