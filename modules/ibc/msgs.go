package ibc

// Fully-qualified message type URLs handled by the IBC module.
const (
	MsgCreateClientURL  = "/hostberry.ibc.client.v1.MsgCreateClient"
	MsgUpdateClientURL  = "/hostberry.ibc.client.v1.MsgUpdateClient"
	MsgUpgradeClientURL = "/hostberry.ibc.client.v1.MsgUpgradeClient"
	MsgRecoverClientURL = "/hostberry.ibc.client.v1.MsgRecoverClient"

	MsgConnectionOpenInitURL    = "/hostberry.ibc.connection.v1.MsgConnectionOpenInit"
	MsgConnectionOpenTryURL     = "/hostberry.ibc.connection.v1.MsgConnectionOpenTry"
	MsgConnectionOpenAckURL     = "/hostberry.ibc.connection.v1.MsgConnectionOpenAck"
	MsgConnectionOpenConfirmURL = "/hostberry.ibc.connection.v1.MsgConnectionOpenConfirm"

	MsgChannelOpenInitURL     = "/hostberry.ibc.channel.v1.MsgChannelOpenInit"
	MsgChannelOpenTryURL      = "/hostberry.ibc.channel.v1.MsgChannelOpenTry"
	MsgChannelOpenAckURL      = "/hostberry.ibc.channel.v1.MsgChannelOpenAck"
	MsgChannelOpenConfirmURL  = "/hostberry.ibc.channel.v1.MsgChannelOpenConfirm"
	MsgChannelCloseInitURL    = "/hostberry.ibc.channel.v1.MsgChannelCloseInit"
	MsgChannelCloseConfirmURL = "/hostberry.ibc.channel.v1.MsgChannelCloseConfirm"

	MsgRecvPacketURL      = "/hostberry.ibc.channel.v1.MsgRecvPacket"
	MsgAcknowledgementURL = "/hostberry.ibc.channel.v1.MsgAcknowledgement"
	MsgTimeoutURL         = "/hostberry.ibc.channel.v1.MsgTimeout"
	MsgTimeoutOnCloseURL  = "/hostberry.ibc.channel.v1.MsgTimeoutOnClose"
)

// MessageTypeURLs lists the module's full message domain.
func MessageTypeURLs() []string {
	return []string{
		MsgCreateClientURL, MsgUpdateClientURL, MsgUpgradeClientURL, MsgRecoverClientURL,
		MsgConnectionOpenInitURL, MsgConnectionOpenTryURL, MsgConnectionOpenAckURL, MsgConnectionOpenConfirmURL,
		MsgChannelOpenInitURL, MsgChannelOpenTryURL, MsgChannelOpenAckURL, MsgChannelOpenConfirmURL,
		MsgChannelCloseInitURL, MsgChannelCloseConfirmURL,
		MsgRecvPacketURL, MsgAcknowledgementURL, MsgTimeoutURL, MsgTimeoutOnCloseURL,
	}
}

// --- client messages ---

// MsgCreateClient initializes a light client from an initial client state
// and the matching consensus state.
type MsgCreateClient struct {
	ClientState    ClientState    `cramberry:"1"`
	ConsensusState ConsensusState `cramberry:"2"`
}

// MsgUpdateClient submits a counterparty header to advance a client.
type MsgUpdateClient struct {
	ClientID string `cramberry:"1"`
	Header   Header `cramberry:"2"`
}

// MsgUpgradeClient replaces a client's state across a counterparty upgrade.
// Proofs are membership proofs of the upgraded states under the
// counterparty's upgrade paths at the client's latest height.
type MsgUpgradeClient struct {
	ClientID              string         `cramberry:"1"`
	ClientState           ClientState    `cramberry:"2"`
	ConsensusState        ConsensusState `cramberry:"3"`
	ProofUpgradeClient    []byte         `cramberry:"4"`
	ProofUpgradeConsensus []byte         `cramberry:"5"`
}

// MsgRecoverClient replaces an expired or frozen subject client's state with
// an active substitute's, keeping the subject's identifier.
type MsgRecoverClient struct {
	SubjectClientID    string `cramberry:"1"`
	SubstituteClientID string `cramberry:"2"`
}

// --- connection messages ---

// MsgConnectionOpenInit starts a handshake from this chain.
type MsgConnectionOpenInit struct {
	ClientID     string                 `cramberry:"1"`
	Counterparty ConnectionCounterparty `cramberry:"2"`
	Version      *ConnectionVersion     `cramberry:"3"`
	DelayPeriod  uint64                 `cramberry:"4"`
}

// MsgConnectionOpenTry answers a handshake started on the counterparty,
// carrying a proof of its INIT connection end.
type MsgConnectionOpenTry struct {
	ClientID             string                 `cramberry:"1"`
	Counterparty         ConnectionCounterparty `cramberry:"2"`
	CounterpartyVersions []ConnectionVersion    `cramberry:"3"`
	DelayPeriod          uint64                 `cramberry:"4"`
	ProofInit            []byte                 `cramberry:"5"`
	ProofHeight          Height                 `cramberry:"6"`
}

// MsgConnectionOpenAck completes the handshake on the initiating chain with
// a proof of the counterparty's TRYOPEN end.
type MsgConnectionOpenAck struct {
	ConnectionID             string            `cramberry:"1"`
	CounterpartyConnectionID string            `cramberry:"2"`
	Version                  ConnectionVersion `cramberry:"3"`
	ProofTry                 []byte            `cramberry:"4"`
	ProofHeight              Height            `cramberry:"5"`
}

// MsgConnectionOpenConfirm completes the handshake on the answering chain
// with a proof of the counterparty's OPEN end.
type MsgConnectionOpenConfirm struct {
	ConnectionID string `cramberry:"1"`
	ProofAck     []byte `cramberry:"2"`
	ProofHeight  Height `cramberry:"3"`
}

// --- channel messages ---

// MsgChannelOpenInit starts a channel handshake over an open connection.
type MsgChannelOpenInit struct {
	PortID  string     `cramberry:"1"`
	Channel ChannelEnd `cramberry:"2"`
}

// MsgChannelOpenTry answers a channel handshake with a proof of the
// counterparty's INIT channel end.
type MsgChannelOpenTry struct {
	PortID              string     `cramberry:"1"`
	Channel             ChannelEnd `cramberry:"2"`
	CounterpartyVersion string     `cramberry:"3"`
	ProofInit           []byte     `cramberry:"4"`
	ProofHeight         Height     `cramberry:"5"`
}

// MsgChannelOpenAck completes the handshake on the initiating chain.
type MsgChannelOpenAck struct {
	PortID                string `cramberry:"1"`
	ChannelID             string `cramberry:"2"`
	CounterpartyChannelID string `cramberry:"3"`
	CounterpartyVersion   string `cramberry:"4"`
	ProofTry              []byte `cramberry:"5"`
	ProofHeight           Height `cramberry:"6"`
}

// MsgChannelOpenConfirm completes the handshake on the answering chain.
type MsgChannelOpenConfirm struct {
	PortID      string `cramberry:"1"`
	ChannelID   string `cramberry:"2"`
	ProofAck    []byte `cramberry:"3"`
	ProofHeight Height `cramberry:"4"`
}

// MsgChannelCloseInit closes a channel from this end.
type MsgChannelCloseInit struct {
	PortID    string `cramberry:"1"`
	ChannelID string `cramberry:"2"`
}

// MsgChannelCloseConfirm closes a channel whose counterparty end is proven
// CLOSED.
type MsgChannelCloseConfirm struct {
	PortID      string `cramberry:"1"`
	ChannelID   string `cramberry:"2"`
	ProofInit   []byte `cramberry:"3"`
	ProofHeight Height `cramberry:"4"`
}

// --- packet messages ---

// MsgRecvPacket delivers a packet with a proof of its commitment on the
// sending chain.
type MsgRecvPacket struct {
	Packet          Packet `cramberry:"1"`
	ProofCommitment []byte `cramberry:"2"`
	ProofHeight     Height `cramberry:"3"`
}

// MsgAcknowledgement relays an acknowledgement written on the receiving
// chain back to the sender.
type MsgAcknowledgement struct {
	Packet          Packet `cramberry:"1"`
	Acknowledgement []byte `cramberry:"2"`
	ProofAcked      []byte `cramberry:"3"`
	ProofHeight     Height `cramberry:"4"`
}

// MsgTimeout cancels a sent packet whose timeout has passed unreceived,
// witnessed by a non-membership proof of the receipt (unordered) or a proof
// of the receiving chain's next receive sequence (ordered).
type MsgTimeout struct {
	Packet           Packet `cramberry:"1"`
	ProofUnreceived  []byte `cramberry:"2"`
	ProofHeight      Height `cramberry:"3"`
	NextSequenceRecv uint64 `cramberry:"4"`
}

// MsgTimeoutOnClose cancels a sent packet whose destination channel closed
// before delivery.
type MsgTimeoutOnClose struct {
	Packet           Packet `cramberry:"1"`
	ProofUnreceived  []byte `cramberry:"2"`
	ProofClose       []byte `cramberry:"3"`
	ProofHeight      Height `cramberry:"4"`
	NextSequenceRecv uint64 `cramberry:"5"`
}
