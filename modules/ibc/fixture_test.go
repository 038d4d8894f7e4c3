package ibc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	bapitypes "github.com/blockberries/bapi/types"
	"github.com/blockberries/blockberry/abi"
	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/hostberry/store"
	"github.com/blockberries/hostberry/types"
)

var baseTime = time.Unix(1700000000, 0).UTC()

// counterparty simulates the chain at the other end of the wire: a real
// hostberry-shaped store whose committed roots back the proofs fed into the
// handlers under test.
type counterparty struct {
	t     *testing.T
	state *store.State
}

func newCounterparty(t *testing.T) *counterparty {
	state := store.NewMemoryState(100)
	t.Cleanup(func() { state.Close() })
	return &counterparty{t: t, state: state}
}

func (c *counterparty) kv() store.KV {
	return store.NewPrefixKV(ModuleName, c.state.Deliver().Provable())
}

// set writes a cramberry-encoded record at an ICS-24 path.
func (c *counterparty) set(path store.Path, value any) {
	data, err := cramberry.Marshal(value)
	require.NoError(c.t, err)
	require.NoError(c.t, c.kv().Set(path, data))
}

// setRaw writes raw bytes at an ICS-24 path.
func (c *counterparty) setRaw(path store.Path, value []byte) {
	require.NoError(c.t, c.kv().Set(path, value))
}

// delete drops a record, so its absence becomes provable.
func (c *counterparty) delete(path store.Path) {
	require.NoError(c.t, c.kv().Delete(path))
}

// commit seals a revision and returns its root and height.
func (c *counterparty) commit() ([]byte, uint64) {
	require.NoError(c.t, c.state.ApplyTx())
	root, version, err := c.state.Commit()
	require.NoError(c.t, err)
	return root, version
}

// prove produces the ICS-23 proof bytes for an ICS-24 path at the latest
// committed revision.
func (c *counterparty) prove(path store.Path) []byte {
	proof, err := c.state.Prove(store.Latest, FullPath(path))
	require.NoError(c.t, err)
	data, err := proof.Marshal()
	require.NoError(c.t, err)
	return data
}

// host is the module under test plus its backing state.
type host struct {
	t      *testing.T
	m      *Module
	state  *store.State
	height uint64
	now    time.Time
}

func newHost(t *testing.T) *host {
	state := store.NewMemoryState(100)
	t.Cleanup(func() { state.Close() })

	h := &host{t: t, m: New(1), state: state, height: 0, now: baseTime}
	require.NoError(t, h.m.Init(state.Deliver(), nil))
	require.NoError(t, state.ApplyTx())
	_, _, err := state.Commit()
	require.NoError(t, err)
	h.beginBlock(h.now)
	return h
}

// beginBlock advances to the next block at the given consensus time.
func (h *host) beginBlock(now time.Time) {
	h.height++
	h.now = now
	h.m.BeginBlock(h.state.Deliver(), &abi.BlockHeader{Height: h.height, Time: now})
	require.NoError(h.t, h.state.ApplyTx())
}

// deliver routes one message through the module, staging on success and
// rolling back on failure, the way the aggregator does.
func (h *host) deliver(typeURL string, value any) ([]abi.Event, error) {
	msg, err := types.NewMsg(typeURL, value)
	require.NoError(h.t, err)
	events, err := h.m.Deliver(h.state.Deliver(), msg, "signer")
	if err != nil {
		h.state.ResetTx()
		return nil, err
	}
	require.NoError(h.t, h.state.ApplyTx())
	return events, nil
}

func (h *host) mustDeliver(typeURL string, value any) []abi.Event {
	events, err := h.deliver(typeURL, value)
	require.NoError(h.t, err)
	return events
}

func (h *host) commit() {
	_, _, err := h.state.Commit()
	require.NoError(h.t, err)
}

// ctx opens a handler context over the deliver scope for assertions.
func (h *host) ctx() *Context {
	return h.m.Context(h.state.Deliver())
}

// defaultClientState builds a client state trusting the counterparty at the
// given height.
func defaultClientState(latest Height, trustingPeriod time.Duration) ClientState {
	return ClientState{
		ChainID:         "counterparty-1",
		TrustLevel:      Fraction{Numerator: 1, Denominator: 3},
		TrustingPeriod:  bapitypes.DurationFromGo(trustingPeriod),
		UnbondingPeriod: bapitypes.DurationFromGo(100 * 24 * time.Hour),
		MaxClockDrift:   bapitypes.DurationFromGo(time.Hour),
		LatestHeight:    latest,
	}
}

// createClient registers a client for the counterparty at root/height and
// returns its id.
func (h *host) createClient(root []byte, height uint64, trustingPeriod time.Duration) string {
	latest := NewHeight(1, height)
	events := h.mustDeliver(MsgCreateClientURL, MsgCreateClient{
		ClientState: defaultClientState(latest, trustingPeriod),
		ConsensusState: ConsensusState{
			Timestamp: bapitypes.TimeToTimestamp(h.now),
			Root:      root,
		},
	})
	require.NotEmpty(h.t, events)
	for _, a := range events[0].Attributes {
		if a.Key == "client_id" {
			return string(a.Value)
		}
	}
	h.t.Fatal("create_client event carries no client_id")
	return ""
}

// updateClient feeds the counterparty's new root at height into the client.
// Header timestamps advance one second per counterparty height so time
// always moves forward.
func (h *host) updateClient(clientID string, root []byte, height uint64, trusted Height) {
	h.mustDeliver(MsgUpdateClientURL, MsgUpdateClient{
		ClientID: clientID,
		Header: Header{
			Height:        NewHeight(1, height),
			Timestamp:     bapitypes.TimeToTimestamp(baseTime.Add(time.Duration(height) * time.Second)),
			AppHash:       root,
			TrustedHeight: trusted,
		},
	})
}

// openChannelPair wires a full client/connection/channel stack on the host
// against the counterparty, returning the client, connection and channel
// ids. The counterparty records are committed so every handshake proof is
// real.
func (h *host) openChannelPair(cp *counterparty, ordering Order) (clientID, connectionID, channelID string) {
	// Counterparty INIT connection end, proven into our OpenTry.
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

	clientID = h.createClient(root, height, time.Hour)

	connectionID = h.mustDeliverConnectionTry(cp, clientID, height)

	// Counterparty OPEN connection end, proven into our OpenConfirm.
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

	// Counterparty INIT channel end, proven into our channel OpenTry.
	cpChannel := ChannelEnd{
		State:    ChannelInit,
		Ordering: ordering,
		Counterparty: ChannelCounterparty{
			PortID: testPortID,
		},
		ConnectionHops: []string{"connection-7"},
		Version:        "test-1",
	}
	cp.set(ChannelPath(testPortID, "channel-5"), cpChannel)
	root, height = cp.commit()
	h.updateClient(clientID, root, height, NewHeight(1, height-1))

	channelID = h.mustDeliverChannelTry(cp, ordering, height)

	// Counterparty OPEN channel end, proven into our OpenConfirm.
	cpChannel.State = ChannelOpen
	cpChannel.Counterparty.ChannelID = channelID
	cp.set(ChannelPath(testPortID, "channel-5"), cpChannel)
	root, height = cp.commit()
	h.updateClient(clientID, root, height, NewHeight(1, height-1))

	h.mustDeliver(MsgChannelOpenConfirmURL, MsgChannelOpenConfirm{
		PortID:      testPortID,
		ChannelID:   channelID,
		ProofAck:    cp.prove(ChannelPath(testPortID, "channel-5")),
		ProofHeight: NewHeight(1, height),
	})
	return clientID, connectionID, channelID
}

func (h *host) mustDeliverConnectionTry(cp *counterparty, clientID string, height uint64) string {
	events := h.mustDeliver(MsgConnectionOpenTryURL, MsgConnectionOpenTry{
		ClientID: clientID,
		Counterparty: ConnectionCounterparty{
			ClientID:     "07-tendermint-9",
			ConnectionID: "connection-7",
			Prefix:       DefaultMerklePrefix(),
		},
		CounterpartyVersions: []ConnectionVersion{DefaultConnectionVersion()},
		ProofInit:            cp.prove(ConnectionPath("connection-7")),
		ProofHeight:          NewHeight(1, height),
	})
	return eventAttr(h.t, events, EventConnectionOpenTry, "connection_id")
}

func (h *host) mustDeliverChannelTry(cp *counterparty, ordering Order, height uint64) string {
	events := h.mustDeliver(MsgChannelOpenTryURL, MsgChannelOpenTry{
		PortID: testPortID,
		Channel: ChannelEnd{
			State:    ChannelTryOpen,
			Ordering: ordering,
			Counterparty: ChannelCounterparty{
				PortID:    testPortID,
				ChannelID: "channel-5",
			},
			ConnectionHops: []string{h.firstConnectionID()},
			Version:        "test-1",
		},
		CounterpartyVersion: "test-1",
		ProofInit:           cp.prove(ChannelPath(testPortID, "channel-5")),
		ProofHeight:         NewHeight(1, height),
	})
	return eventAttr(h.t, events, EventChannelOpenTry, "channel_id")
}

func (h *host) firstConnectionID() string {
	ids := h.ctx().ConnectionIDs()
	require.NotEmpty(h.t, ids)
	return ids[0]
}

func eventAttr(t *testing.T, events []abi.Event, kind, key string) string {
	t.Helper()
	for _, ev := range events {
		if ev.Type != kind {
			continue
		}
		for _, a := range ev.Attributes {
			if a.Key == key {
				return string(a.Value)
			}
		}
	}
	t.Fatalf("no %s attribute in %s event", key, kind)
	return ""
}

// testPortID is served by a recording port module.
const testPortID = "transfer"

// recordingPort acknowledges everything and records callbacks.
type recordingPort struct {
	received []Packet
	acked    []Packet
	timedOut []Packet
}

func (p *recordingPort) OnRecvPacket(_ *Context, packet Packet) []byte {
	p.received = append(p.received, packet)
	return []byte(`{"result":"success"}`)
}

func (p *recordingPort) OnAcknowledgePacket(_ *Context, packet Packet, _ []byte) error {
	p.acked = append(p.acked, packet)
	return nil
}

func (p *recordingPort) OnTimeoutPacket(_ *Context, packet Packet) error {
	p.timedOut = append(p.timedOut, packet)
	return nil
}

// newHostWithPort builds a host whose test port is bound.
func newHostWithPort(t *testing.T) (*host, *recordingPort) {
	state := store.NewMemoryState(100)
	t.Cleanup(func() { state.Close() })

	h := &host{t: t, m: New(1), state: state, height: 0, now: baseTime}
	port := &recordingPort{}
	require.NoError(t, h.m.BindPort(testPortID, port))
	require.NoError(t, h.m.Init(state.Deliver(), nil))
	require.NoError(t, state.ApplyTx())
	_, _, err := state.Commit()
	require.NoError(t, err)
	h.beginBlock(h.now)
	return h, port
}
