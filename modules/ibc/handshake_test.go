package ibc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/hostberry/types"
)

func TestConnectionHandshake_InitSide(t *testing.T) {
	h := newHost(t)
	clientID := h.createClient([]byte("root-1"), 1, time.Hour)

	events := h.mustDeliver(MsgConnectionOpenInitURL, MsgConnectionOpenInit{
		ClientID: clientID,
		Counterparty: ConnectionCounterparty{
			ClientID: "07-tendermint-9",
			Prefix:   DefaultMerklePrefix(),
		},
	})
	connectionID := eventAttr(t, events, EventConnectionOpenInit, "connection_id")
	require.Equal(t, "connection-0", connectionID)

	conn, err := h.ctx().Connection(connectionID)
	require.NoError(t, err)
	require.Equal(t, ConnectionInit, conn.State)
	require.Equal(t, []string{connectionID}, h.ctx().ClientConnectionIDs(clientID))
}

func TestConnectionHandshake_TrySide_RealProofs(t *testing.T) {
	h := newHost(t)
	cp := newCounterparty(t)

	cpConn := ConnectionEnd{
		ClientID: "07-tendermint-9",
		Versions: []ConnectionVersion{DefaultConnectionVersion()},
		State:    ConnectionInit,
		Counterparty: ConnectionCounterparty{
			ClientID: "07-tendermint-0",
			Prefix:   DefaultMerklePrefix(),
		},
	}
	cp.set(ConnectionPath("connection-7"), cpConn)
	root, height := cp.commit()

	clientID := h.createClient(root, height, time.Hour)
	connectionID := h.mustDeliverConnectionTry(cp, clientID, height)

	conn, err := h.ctx().Connection(connectionID)
	require.NoError(t, err)
	require.Equal(t, ConnectionTryOpen, conn.State)

	// OpenConfirm against a proof of the counterparty's OPEN end.
	cpConn.State = ConnectionOpen
	cpConn.Counterparty.ConnectionID = connectionID
	cp.set(ConnectionPath("connection-7"), cpConn)
	root, height = cp.commit()
	h.updateClient(clientID, root, height, NewHeight(1, height-1))

	h.mustDeliver(MsgConnectionOpenConfirmURL, MsgConnectionOpenConfirm{
		ConnectionID: connectionID,
		ProofAck:     cp.prove(ConnectionPath("connection-7")),
		ProofHeight:  NewHeight(1, height),
	})

	conn, err = h.ctx().Connection(connectionID)
	require.NoError(t, err)
	require.Equal(t, ConnectionOpen, conn.State)
}

func TestConnectionHandshake_BadProofRejected(t *testing.T) {
	h := newHost(t)
	cp := newCounterparty(t)

	cpConn := ConnectionEnd{
		ClientID: "07-tendermint-9",
		Versions: []ConnectionVersion{DefaultConnectionVersion()},
		State:    ConnectionInit,
		Counterparty: ConnectionCounterparty{
			ClientID: "07-tendermint-0",
			Prefix:   DefaultMerklePrefix(),
		},
	}
	cp.set(ConnectionPath("connection-7"), cpConn)
	root, height := cp.commit()
	clientID := h.createClient(root, height, time.Hour)

	// The proof is for a different connection id than the message claims.
	_, err := h.deliver(MsgConnectionOpenTryURL, MsgConnectionOpenTry{
		ClientID: clientID,
		Counterparty: ConnectionCounterparty{
			ClientID:     "07-tendermint-9",
			ConnectionID: "connection-8",
			Prefix:       DefaultMerklePrefix(),
		},
		CounterpartyVersions: []ConnectionVersion{DefaultConnectionVersion()},
		ProofInit:            cp.prove(ConnectionPath("connection-7")),
		ProofHeight:          NewHeight(1, height),
	})
	require.Error(t, err)
	require.Equal(t, types.CodeInvalidProof, types.CodeOf(err))
}

func TestConnectionOpenAck_RequiresInitState(t *testing.T) {
	h := newHost(t)
	cp := newCounterparty(t)
	cp.setRaw("seed", []byte{1})
	root, height := cp.commit()
	clientID := h.createClient(root, height, time.Hour)

	events := h.mustDeliver(MsgConnectionOpenInitURL, MsgConnectionOpenInit{
		ClientID: clientID,
		Counterparty: ConnectionCounterparty{
			ClientID: "07-tendermint-9",
			Prefix:   DefaultMerklePrefix(),
		},
	})
	connectionID := eventAttr(t, events, EventConnectionOpenInit, "connection_id")

	// Counterparty TRYOPEN end proven into OpenAck.
	cpConn := ConnectionEnd{
		ClientID: "07-tendermint-9",
		Versions: []ConnectionVersion{DefaultConnectionVersion()},
		State:    ConnectionTryOpen,
		Counterparty: ConnectionCounterparty{
			ClientID:     clientID,
			ConnectionID: connectionID,
			Prefix:       DefaultMerklePrefix(),
		},
	}
	cp.set(ConnectionPath("connection-7"), cpConn)
	root, height = cp.commit()
	h.updateClient(clientID, root, height, NewHeight(1, height-1))

	ack := MsgConnectionOpenAck{
		ConnectionID:             connectionID,
		CounterpartyConnectionID: "connection-7",
		Version:                  DefaultConnectionVersion(),
		ProofTry:                 cp.prove(ConnectionPath("connection-7")),
		ProofHeight:              NewHeight(1, height),
	}
	h.mustDeliver(MsgConnectionOpenAckURL, ack)

	conn, err := h.ctx().Connection(connectionID)
	require.NoError(t, err)
	require.Equal(t, ConnectionOpen, conn.State)
	require.Equal(t, "connection-7", conn.Counterparty.ConnectionID)

	// Ack on an already-open connection violates the state machine.
	_, err = h.deliver(MsgConnectionOpenAckURL, ack)
	require.Error(t, err)
}

func TestChannelHandshake_FullOpen(t *testing.T) {
	h, _ := newHostWithPort(t)
	cp := newCounterparty(t)

	_, connectionID, channelID := h.openChannelPair(cp, OrderUnordered)
	require.Equal(t, "channel-0", channelID)

	ch, err := h.ctx().Channel(testPortID, channelID)
	require.NoError(t, err)
	require.Equal(t, ChannelOpen, ch.State)
	require.Equal(t, []string{connectionID}, ch.ConnectionHops)

	// Fresh channels start all three sequences at 1.
	for _, read := range []func(string, string) (uint64, bool){
		h.ctx().NextSequenceSend, h.ctx().NextSequenceRecv, h.ctx().NextSequenceAck,
	} {
		seq, ok := read(testPortID, channelID)
		require.True(t, ok)
		require.Equal(t, uint64(1), seq)
	}
}

func TestChannelOpenInit_RequiresBoundPortAndOpenConnection(t *testing.T) {
	h, _ := newHostWithPort(t)

	channel := ChannelEnd{
		State:          ChannelInit,
		Ordering:       OrderUnordered,
		Counterparty:   ChannelCounterparty{PortID: testPortID},
		ConnectionHops: []string{"connection-0"},
		Version:        "test-1",
	}

	// No connection yet.
	_, err := h.deliver(MsgChannelOpenInitURL, MsgChannelOpenInit{
		PortID:  testPortID,
		Channel: channel,
	})
	require.Error(t, err)

	// Unbound port.
	_, err = h.deliver(MsgChannelOpenInitURL, MsgChannelOpenInit{
		PortID:  "oracle",
		Channel: channel,
	})
	require.Error(t, err)
}

func TestChannelClose(t *testing.T) {
	h, _ := newHostWithPort(t)
	cp := newCounterparty(t)
	_, _, channelID := h.openChannelPair(cp, OrderUnordered)

	h.mustDeliver(MsgChannelCloseInitURL, MsgChannelCloseInit{
		PortID:    testPortID,
		ChannelID: channelID,
	})
	ch, err := h.ctx().Channel(testPortID, channelID)
	require.NoError(t, err)
	require.Equal(t, ChannelClosed, ch.State)

	// CLOSED is terminal.
	_, err = h.deliver(MsgChannelCloseInitURL, MsgChannelCloseInit{
		PortID:    testPortID,
		ChannelID: channelID,
	})
	require.Error(t, err)
}
