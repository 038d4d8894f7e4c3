// Package grpcsvc exposes the IBC query services relayers consume:
// ibc.core.client.v1.Query, ibc.core.connection.v1.Query and
// ibc.core.channel.v1.Query. Service descriptors are hand-written and
// bodies travel in cramberry, the stack's deterministic codec; no protobuf
// code generation is involved (see the bapi gRPC transport).
package grpcsvc

import (
	"github.com/blockberries/hostberry/modules/ibc"
)

// Requests carry an optional Height selecting the revision to read;
// 0 means latest committed. The packet-commitment, acknowledgement and
// unreceived-sequence list responses echo the resolved revision in Height.
// Responses with a Proof field carry an ICS-23 proof anchored at the
// revision's app-hash, with its height in ProofHeight, only when the request
// sets Prove; the other responses carry no proof.

// --- ibc.core.client.v1.Query ---

type QueryClientStateRequest struct {
	ClientID string `cramberry:"1"`
	Height   uint64 `cramberry:"2"`
	Prove    bool   `cramberry:"3"`
}

type QueryClientStateResponse struct {
	ClientState ibc.ClientState `cramberry:"1"`
	Proof       []byte          `cramberry:"2"`
	ProofHeight ibc.Height      `cramberry:"3"`
}

type QueryClientStatesRequest struct {
	Height uint64 `cramberry:"1"`
}

type IdentifiedClientState struct {
	ClientID    string          `cramberry:"1"`
	ClientState ibc.ClientState `cramberry:"2"`
}

type QueryClientStatesResponse struct {
	ClientStates []IdentifiedClientState `cramberry:"1"`
}

type QueryConsensusStateRequest struct {
	ClientID        string     `cramberry:"1"`
	ConsensusHeight ibc.Height `cramberry:"2"`
	// LatestHeight reads the client's newest consensus state instead.
	LatestHeight bool   `cramberry:"3"`
	Height       uint64 `cramberry:"4"`
	Prove        bool   `cramberry:"5"`
}

type QueryConsensusStateResponse struct {
	ConsensusState ibc.ConsensusState `cramberry:"1"`
	Proof          []byte             `cramberry:"2"`
	ProofHeight    ibc.Height         `cramberry:"3"`
}

type QueryConsensusStatesRequest struct {
	ClientID string `cramberry:"1"`
	Height   uint64 `cramberry:"2"`
}

type ConsensusStateWithHeight struct {
	Height         ibc.Height         `cramberry:"1"`
	ConsensusState ibc.ConsensusState `cramberry:"2"`
}

type QueryConsensusStatesResponse struct {
	ConsensusStates []ConsensusStateWithHeight `cramberry:"1"`
}

type QueryConsensusStateHeightsRequest struct {
	ClientID string `cramberry:"1"`
	Height   uint64 `cramberry:"2"`
}

type QueryConsensusStateHeightsResponse struct {
	ConsensusStateHeights []ibc.Height `cramberry:"1"`
}

type QueryClientParamsRequest struct{}

type ClientParams struct {
	AllowedClients []string `cramberry:"1"`
}

type QueryClientParamsResponse struct {
	Params ClientParams `cramberry:"1"`
}

type QueryUpgradedClientStateRequest struct {
	UpgradeHeight uint64 `cramberry:"1"`
}

type QueryUpgradedClientStateResponse struct {
	UpgradedClientState ibc.ClientState `cramberry:"1"`
}

type QueryUpgradedConsensusStateRequest struct {
	UpgradeHeight uint64 `cramberry:"1"`
}

type QueryUpgradedConsensusStateResponse struct {
	UpgradedConsensusState ibc.ConsensusState `cramberry:"1"`
}

// --- ibc.core.connection.v1.Query ---

type QueryConnectionRequest struct {
	ConnectionID string `cramberry:"1"`
	Height       uint64 `cramberry:"2"`
	Prove        bool   `cramberry:"3"`
}

type QueryConnectionResponse struct {
	Connection  ibc.ConnectionEnd `cramberry:"1"`
	Proof       []byte            `cramberry:"2"`
	ProofHeight ibc.Height        `cramberry:"3"`
}

type QueryConnectionsRequest struct {
	Height uint64 `cramberry:"1"`
}

type IdentifiedConnection struct {
	ConnectionID string            `cramberry:"1"`
	Connection   ibc.ConnectionEnd `cramberry:"2"`
}

type QueryConnectionsResponse struct {
	Connections []IdentifiedConnection `cramberry:"1"`
}

type QueryClientConnectionsRequest struct {
	ClientID string `cramberry:"1"`
	Height   uint64 `cramberry:"2"`
}

type QueryClientConnectionsResponse struct {
	ConnectionPaths []string `cramberry:"1"`
}

type QueryConnectionClientStateRequest struct {
	ConnectionID string `cramberry:"1"`
	Height       uint64 `cramberry:"2"`
}

type QueryConnectionClientStateResponse struct {
	IdentifiedClientState IdentifiedClientState `cramberry:"1"`
}

type QueryConnectionConsensusStateRequest struct {
	ConnectionID    string     `cramberry:"1"`
	ConsensusHeight ibc.Height `cramberry:"2"`
	Height          uint64     `cramberry:"3"`
}

type QueryConnectionConsensusStateResponse struct {
	ConsensusState ibc.ConsensusState `cramberry:"1"`
	ClientID       string             `cramberry:"2"`
}

type QueryConnectionParamsRequest struct{}

type ConnectionParams struct {
	MaxExpectedTimePerBlock uint64 `cramberry:"1"`
}

type QueryConnectionParamsResponse struct {
	Params ConnectionParams `cramberry:"1"`
}

// --- ibc.core.channel.v1.Query ---

type QueryChannelRequest struct {
	PortID    string `cramberry:"1"`
	ChannelID string `cramberry:"2"`
	Height    uint64 `cramberry:"3"`
	Prove     bool   `cramberry:"4"`
}

type QueryChannelResponse struct {
	Channel     ibc.ChannelEnd `cramberry:"1"`
	Proof       []byte         `cramberry:"2"`
	ProofHeight ibc.Height     `cramberry:"3"`
}

type QueryChannelsRequest struct {
	Height uint64 `cramberry:"1"`
}

type IdentifiedChannel struct {
	PortID    string         `cramberry:"1"`
	ChannelID string         `cramberry:"2"`
	Channel   ibc.ChannelEnd `cramberry:"3"`
}

type QueryChannelsResponse struct {
	Channels []IdentifiedChannel `cramberry:"1"`
}

type QueryConnectionChannelsRequest struct {
	ConnectionID string `cramberry:"1"`
	Height       uint64 `cramberry:"2"`
}

type QueryConnectionChannelsResponse struct {
	Channels []IdentifiedChannel `cramberry:"1"`
}

type QueryChannelClientStateRequest struct {
	PortID    string `cramberry:"1"`
	ChannelID string `cramberry:"2"`
	Height    uint64 `cramberry:"3"`
}

type QueryChannelClientStateResponse struct {
	IdentifiedClientState IdentifiedClientState `cramberry:"1"`
}

type QueryPacketCommitmentRequest struct {
	PortID    string `cramberry:"1"`
	ChannelID string `cramberry:"2"`
	Sequence  uint64 `cramberry:"3"`
	Height    uint64 `cramberry:"4"`
	Prove     bool   `cramberry:"5"`
}

type QueryPacketCommitmentResponse struct {
	Commitment  []byte     `cramberry:"1"`
	Proof       []byte     `cramberry:"2"`
	ProofHeight ibc.Height `cramberry:"3"`
}

type QueryPacketCommitmentsRequest struct {
	PortID    string `cramberry:"1"`
	ChannelID string `cramberry:"2"`
	Height    uint64 `cramberry:"3"`
}

type PacketState struct {
	PortID    string `cramberry:"1"`
	ChannelID string `cramberry:"2"`
	Sequence  uint64 `cramberry:"3"`
	Data      []byte `cramberry:"4"`
}

type QueryPacketCommitmentsResponse struct {
	Commitments []PacketState `cramberry:"1"`
	Height      uint64        `cramberry:"2"`
}

type QueryPacketReceiptRequest struct {
	PortID    string `cramberry:"1"`
	ChannelID string `cramberry:"2"`
	Sequence  uint64 `cramberry:"3"`
	Height    uint64 `cramberry:"4"`
	Prove     bool   `cramberry:"5"`
}

type QueryPacketReceiptResponse struct {
	Received    bool       `cramberry:"1"`
	Proof       []byte     `cramberry:"2"`
	ProofHeight ibc.Height `cramberry:"3"`
}

type QueryPacketAcknowledgementRequest struct {
	PortID    string `cramberry:"1"`
	ChannelID string `cramberry:"2"`
	Sequence  uint64 `cramberry:"3"`
	Height    uint64 `cramberry:"4"`
	Prove     bool   `cramberry:"5"`
}

type QueryPacketAcknowledgementResponse struct {
	Acknowledgement []byte     `cramberry:"1"`
	Proof           []byte     `cramberry:"2"`
	ProofHeight     ibc.Height `cramberry:"3"`
}

type QueryPacketAcknowledgementsRequest struct {
	PortID    string `cramberry:"1"`
	ChannelID string `cramberry:"2"`
	Height    uint64 `cramberry:"3"`
}

type QueryPacketAcknowledgementsResponse struct {
	Acknowledgements []PacketState `cramberry:"1"`
	Height           uint64        `cramberry:"2"`
}

type QueryUnreceivedPacketsRequest struct {
	PortID                    string   `cramberry:"1"`
	ChannelID                 string   `cramberry:"2"`
	PacketCommitmentSequences []uint64 `cramberry:"3"`
}

type QueryUnreceivedPacketsResponse struct {
	Sequences []uint64 `cramberry:"1"`
	Height    uint64   `cramberry:"2"`
}

type QueryUnreceivedAcksRequest struct {
	PortID             string   `cramberry:"1"`
	ChannelID          string   `cramberry:"2"`
	PacketAckSequences []uint64 `cramberry:"3"`
}

type QueryUnreceivedAcksResponse struct {
	Sequences []uint64 `cramberry:"1"`
	Height    uint64   `cramberry:"2"`
}

type QueryNextSequenceReceiveRequest struct {
	PortID    string `cramberry:"1"`
	ChannelID string `cramberry:"2"`
	Height    uint64 `cramberry:"3"`
	Prove     bool   `cramberry:"4"`
}

type QueryNextSequenceReceiveResponse struct {
	NextSequenceReceive uint64     `cramberry:"1"`
	Proof               []byte     `cramberry:"2"`
	ProofHeight         ibc.Height `cramberry:"3"`
}

type QueryNextSequenceSendRequest struct {
	PortID    string `cramberry:"1"`
	ChannelID string `cramberry:"2"`
	Height    uint64 `cramberry:"3"`
	Prove     bool   `cramberry:"4"`
}

type QueryNextSequenceSendResponse struct {
	NextSequenceSend uint64     `cramberry:"1"`
	Proof            []byte     `cramberry:"2"`
	ProofHeight      ibc.Height `cramberry:"3"`
}
