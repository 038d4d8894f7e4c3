package ibc

import (
	"encoding/json"
	"fmt"
	"time"

	bapitypes "github.com/blockberries/bapi/types"
	"github.com/blockberries/blockberry/abi"

	"github.com/blockberries/hostberry/modules"
	"github.com/blockberries/hostberry/store"
	"github.com/blockberries/hostberry/types"
)

// PortModule is an application bound to an IBC port (ICS-26). The IBC
// module routes inbound packets and packet lifecycle callbacks to it.
type PortModule interface {
	// OnRecvPacket processes an inbound packet and returns the
	// acknowledgement to write. Application-level failures are reported
	// inside the acknowledgement, not as handler errors.
	OnRecvPacket(ctx *Context, packet Packet) []byte

	// OnAcknowledgePacket completes the packet on the sending side.
	OnAcknowledgePacket(ctx *Context, packet Packet, ack []byte) error

	// OnTimeoutPacket reverts the packet's effects on the sending side.
	OnTimeoutPacket(ctx *Context, packet Packet) error
}

// Module is the IBC host module.
type Module struct {
	revision uint64
	ports    map[string]PortModule

	// Consensus-supplied block context, refreshed by BeginBlock.
	blockHeight uint64
	blockTime   time.Time
}

var _ modules.Module = (*Module)(nil)

// New creates the IBC module for the given chain revision number.
func New(revision uint64) *Module {
	return &Module{
		revision: revision,
		ports:    make(map[string]PortModule),
	}
}

// BindPort registers a port module. Ports are bound at construction time,
// before genesis.
func (m *Module) BindPort(portID string, port PortModule) error {
	if err := validateIdentifier("port", portID); err != nil {
		return err
	}
	if _, ok := m.ports[portID]; ok {
		return fmt.Errorf("port %s already bound", portID)
	}
	m.ports[portID] = port
	return nil
}

// Name returns the module's store prefix.
func (m *Module) Name() store.Identifier { return ModuleName }

// MessageTypes returns the module's message domain.
func (m *Module) MessageTypes() []string { return MessageTypeURLs() }

// Init writes the bound port records. The IBC genesis document carries no
// state of its own on a fresh chain.
func (m *Module) Init(scope store.Scope, _ json.RawMessage) error {
	kv := store.NewPrefixKV(ModuleName, scope.Provable())
	for portID := range m.ports {
		if err := kv.Set(PortPath(portID), []byte(portID)); err != nil {
			return err
		}
	}
	return nil
}

// Check decodes the message and validates its static shape; proof and state
// verification is deliberately left to deliver.
func (m *Module) Check(_ store.Scope, msg types.Msg) error {
	_, err := decodeMessage(msg)
	return err
}

// Deliver executes an IBC message.
func (m *Module) Deliver(scope store.Scope, msg types.Msg, _ string) ([]abi.Event, error) {
	decoded, err := decodeMessage(msg)
	if err != nil {
		return nil, err
	}
	ctx := m.Context(scope)

	switch v := decoded.(type) {
	case MsgCreateClient:
		_, err = ctx.createClient(v)
	case MsgUpdateClient:
		err = ctx.updateClient(v)
	case MsgUpgradeClient:
		err = ctx.upgradeClient(v)
	case MsgRecoverClient:
		err = ctx.recoverClient(v)
	case MsgConnectionOpenInit:
		_, err = ctx.connectionOpenInit(v)
	case MsgConnectionOpenTry:
		_, err = ctx.connectionOpenTry(v)
	case MsgConnectionOpenAck:
		err = ctx.connectionOpenAck(v)
	case MsgConnectionOpenConfirm:
		err = ctx.connectionOpenConfirm(v)
	case MsgChannelOpenInit:
		_, err = ctx.channelOpenInit(m.ports, v)
	case MsgChannelOpenTry:
		_, err = ctx.channelOpenTry(m.ports, v)
	case MsgChannelOpenAck:
		err = ctx.channelOpenAck(v)
	case MsgChannelOpenConfirm:
		err = ctx.channelOpenConfirm(v)
	case MsgChannelCloseInit:
		err = ctx.channelCloseInit(v)
	case MsgChannelCloseConfirm:
		err = ctx.channelCloseConfirm(v)
	case MsgRecvPacket:
		err = ctx.recvPacket(m.ports, v)
	case MsgAcknowledgement:
		err = ctx.acknowledgePacket(m.ports, v)
	case MsgTimeout:
		err = ctx.timeoutPacket(m.ports, v)
	case MsgTimeoutOnClose:
		err = ctx.timeoutOnClose(m.ports, v)
	default:
		err = types.ErrUnroutable(msg.TypeURL)
	}
	if err != nil {
		return nil, err
	}
	return ctx.Events(), nil
}

// BeginBlock refreshes the block context and records the host chain's own
// consensus state for this height.
func (m *Module) BeginBlock(scope store.Scope, header *abi.BlockHeader) []abi.Event {
	m.blockHeight = header.Height
	m.blockTime = header.Time

	ctx := m.Context(scope)
	// Connection handshakes read this entry back; losing it silently would
	// surface much later as an unexplained verification failure.
	if err := ctx.RecordHostConsensusState(header.Height, ConsensusState{
		Timestamp: bapitypes.TimeToTimestamp(header.Time),
		Root:      header.PrevHash,
	}); err != nil {
		panic(types.ErrStorageCorruption("recording host consensus state at %d: %v", header.Height, err))
	}
	return nil
}

// Query serves raw ICS-24 path reads under the module namespace: the
// relative path is the store key, e.g. clients/07-tendermint-0/clientState.
func (m *Module) Query(scope store.Scope, path store.Path, _ []byte) ([]byte, error) {
	kv := store.NewPrefixKV(ModuleName, scope.Provable())
	value, ok := kv.Get(path)
	if !ok {
		return nil, types.ErrNotFound("no value at ibc/%s", path)
	}
	return value, nil
}

// Context builds a handler context over the given scope using the current
// block context.
func (m *Module) Context(scope store.Scope) *Context {
	return NewContext(scope, NewHeight(m.revision, m.blockHeight), m.blockTime)
}

// HostHeight returns the current block height as an IBC height.
func (m *Module) HostHeight() Height {
	return NewHeight(m.revision, m.blockHeight)
}

// decodeMessage maps a routed message to its concrete IBC message value.
func decodeMessage(msg types.Msg) (any, error) {
	decode := func(into any) (any, error) {
		if err := types.DecodeMsg(msg, into); err != nil {
			return nil, err
		}
		return deref(into), nil
	}
	switch msg.TypeURL {
	case MsgCreateClientURL:
		return decode(&MsgCreateClient{})
	case MsgUpdateClientURL:
		return decode(&MsgUpdateClient{})
	case MsgUpgradeClientURL:
		return decode(&MsgUpgradeClient{})
	case MsgRecoverClientURL:
		return decode(&MsgRecoverClient{})
	case MsgConnectionOpenInitURL:
		return decode(&MsgConnectionOpenInit{})
	case MsgConnectionOpenTryURL:
		return decode(&MsgConnectionOpenTry{})
	case MsgConnectionOpenAckURL:
		return decode(&MsgConnectionOpenAck{})
	case MsgConnectionOpenConfirmURL:
		return decode(&MsgConnectionOpenConfirm{})
	case MsgChannelOpenInitURL:
		return decode(&MsgChannelOpenInit{})
	case MsgChannelOpenTryURL:
		return decode(&MsgChannelOpenTry{})
	case MsgChannelOpenAckURL:
		return decode(&MsgChannelOpenAck{})
	case MsgChannelOpenConfirmURL:
		return decode(&MsgChannelOpenConfirm{})
	case MsgChannelCloseInitURL:
		return decode(&MsgChannelCloseInit{})
	case MsgChannelCloseConfirmURL:
		return decode(&MsgChannelCloseConfirm{})
	case MsgRecvPacketURL:
		return decode(&MsgRecvPacket{})
	case MsgAcknowledgementURL:
		return decode(&MsgAcknowledgement{})
	case MsgTimeoutURL:
		return decode(&MsgTimeout{})
	case MsgTimeoutOnCloseURL:
		return decode(&MsgTimeoutOnClose{})
	default:
		return nil, types.ErrUnroutable(msg.TypeURL)
	}
}

// deref unwraps the pointer decodeMessage decoded into, so handlers switch
// on value types.
func deref(v any) any {
	switch p := v.(type) {
	case *MsgCreateClient:
		return *p
	case *MsgUpdateClient:
		return *p
	case *MsgUpgradeClient:
		return *p
	case *MsgRecoverClient:
		return *p
	case *MsgConnectionOpenInit:
		return *p
	case *MsgConnectionOpenTry:
		return *p
	case *MsgConnectionOpenAck:
		return *p
	case *MsgConnectionOpenConfirm:
		return *p
	case *MsgChannelOpenInit:
		return *p
	case *MsgChannelOpenTry:
		return *p
	case *MsgChannelOpenAck:
		return *p
	case *MsgChannelOpenConfirm:
		return *p
	case *MsgChannelCloseInit:
		return *p
	case *MsgChannelCloseConfirm:
		return *p
	case *MsgRecvPacket:
		return *p
	case *MsgAcknowledgement:
		return *p
	case *MsgTimeout:
		return *p
	case *MsgTimeoutOnClose:
		return *p
	default:
		return v
	}
}
