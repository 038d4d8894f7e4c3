package ibc

import (
	"fmt"

	"github.com/blockberries/hostberry/store"
)

// ICS-24 host path layout, relative to the module prefix. These exact byte
// strings are what counterparty chains and relayers prove against.

// ClientStatePath returns clients/{clientID}/clientState.
func ClientStatePath(clientID string) store.Path {
	return store.NewPath("clients", clientID, "clientState")
}

// ConsensusStatePath returns
// clients/{clientID}/consensusStates/{revision}-{height}.
func ConsensusStatePath(clientID string, height Height) store.Path {
	return store.NewPath("clients", clientID, "consensusStates", height.String())
}

// ClientConsensusPrefix returns the prefix all of a client's consensus
// states live under.
func ClientConsensusPrefix(clientID string) store.Path {
	return store.NewPath("clients", clientID, "consensusStates")
}

// ClientConnectionsPath returns clients/{clientID}/connections, the list of
// connections using a client.
func ClientConnectionsPath(clientID string) store.Path {
	return store.NewPath("clients", clientID, "connections")
}

// ConnectionPath returns connections/{connectionID}.
func ConnectionPath(connectionID string) store.Path {
	return store.NewPath("connections", connectionID)
}

// PortPath returns ports/{portID}.
func PortPath(portID string) store.Path {
	return store.NewPath("ports", portID)
}

// ChannelPath returns channelEnds/ports/{portID}/channels/{channelID}.
func ChannelPath(portID, channelID string) store.Path {
	return store.NewPath("channelEnds", "ports", portID, "channels", channelID)
}

// NextSequenceSendPath returns nextSequenceSend/ports/{p}/channels/{c}.
func NextSequenceSendPath(portID, channelID string) store.Path {
	return store.NewPath("nextSequenceSend", "ports", portID, "channels", channelID)
}

// NextSequenceRecvPath returns nextSequenceRecv/ports/{p}/channels/{c}.
func NextSequenceRecvPath(portID, channelID string) store.Path {
	return store.NewPath("nextSequenceRecv", "ports", portID, "channels", channelID)
}

// NextSequenceAckPath returns nextSequenceAck/ports/{p}/channels/{c}.
func NextSequenceAckPath(portID, channelID string) store.Path {
	return store.NewPath("nextSequenceAck", "ports", portID, "channels", channelID)
}

// PacketCommitmentPath returns
// commitments/ports/{p}/channels/{c}/sequences/{seq}.
func PacketCommitmentPath(portID, channelID string, sequence uint64) store.Path {
	return store.NewPath("commitments", "ports", portID, "channels", channelID, "sequences", fmt.Sprintf("%d", sequence))
}

// PacketCommitmentPrefix returns the prefix of a channel's commitments.
func PacketCommitmentPrefix(portID, channelID string) store.Path {
	return store.NewPath("commitments", "ports", portID, "channels", channelID, "sequences")
}

// PacketReceiptPath returns receipts/ports/{p}/channels/{c}/sequences/{seq}.
func PacketReceiptPath(portID, channelID string, sequence uint64) store.Path {
	return store.NewPath("receipts", "ports", portID, "channels", channelID, "sequences", fmt.Sprintf("%d", sequence))
}

// PacketAckPath returns acks/ports/{p}/channels/{c}/sequences/{seq}.
func PacketAckPath(portID, channelID string, sequence uint64) store.Path {
	return store.NewPath("acks", "ports", portID, "channels", channelID, "sequences", fmt.Sprintf("%d", sequence))
}

// PacketAckPrefix returns the prefix of a channel's acknowledgements.
func PacketAckPrefix(portID, channelID string) store.Path {
	return store.NewPath("acks", "ports", portID, "channels", channelID, "sequences")
}

// UpgradedClientPath returns upgradedIBCState/{height}/upgradedClient.
func UpgradedClientPath(height uint64) store.Path {
	return store.NewPath("upgradedIBCState", fmt.Sprintf("%d", height), "upgradedClient")
}

// UpgradedConsensusPath returns upgradedIBCState/{height}/upgradedConsState.
func UpgradedConsensusPath(height uint64) store.Path {
	return store.NewPath("upgradedIBCState", fmt.Sprintf("%d", height), "upgradedConsState")
}

// Non-provable bookkeeping paths (the counters the handshake id allocators
// draw from, and the host's own consensus states).

func nextClientSeqPath() store.Path     { return "nextClientSequence" }
func nextConnectionSeqPath() store.Path { return "nextConnectionSequence" }
func nextChannelSeqPath() store.Path    { return "nextChannelSequence" }

func hostConsensusPath(height uint64) store.Path {
	return store.NewPath("hostConsensusStates", fmt.Sprintf("%d", height))
}

// FullPath qualifies a module-relative path with the IBC prefix, the form
// used for proof generation and cross-chain keys.
func FullPath(path store.Path) store.Path {
	return store.Path(ModuleName).Join(path.String())
}
