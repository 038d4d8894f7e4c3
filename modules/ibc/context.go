package ibc

import (
	"sort"
	"time"

	"github.com/blockberries/blockberry/abi"

	"github.com/blockberries/hostberry/store"
	"github.com/blockberries/hostberry/types"
)

// Context adapts a staging scope plus the consensus-supplied block context
// into the typed state surface the IBC handlers run against. It carries no
// business logic; handlers own the protocol rules.
type Context struct {
	scope store.Scope
	kv    store.KV // provable, prefixed under "ibc"
	mem   store.KV // non-provable, prefixed under "ibc"

	// Consensus-supplied block context. Packet timeouts are evaluated
	// against these, never against wall time.
	hostHeight Height
	hostTime   time.Time

	events []abi.Event
}

// NewContext builds a handler context over the given scope.
func NewContext(scope store.Scope, hostHeight Height, hostTime time.Time) *Context {
	return &Context{
		scope:      scope,
		kv:         store.NewPrefixKV(ModuleName, scope.Provable()),
		mem:        store.NewPrefixKV(ModuleName, scope.Mem()),
		hostHeight: hostHeight,
		hostTime:   hostTime,
	}
}

// Scope exposes the underlying staging scope so port modules can reach
// their own (and their keepers') state during packet callbacks.
func (ctx *Context) Scope() store.Scope { return ctx.scope }

// HostHeight is the current block's height as an IBC height.
func (ctx *Context) HostHeight() Height { return ctx.hostHeight }

// HostTime is the current block's consensus timestamp.
func (ctx *Context) HostTime() time.Time { return ctx.hostTime }

func (ctx *Context) emit(events ...abi.Event) {
	ctx.events = append(ctx.events, events...)
}

// Events drains the events the handlers emitted.
func (ctx *Context) Events() []abi.Event {
	ev := ctx.events
	ctx.events = nil
	return ev
}

// --- typed state accessors ---

func (ctx *Context) clientStates() store.Typed[ClientState] {
	return store.NewCram[ClientState](ctx.kv)
}

func (ctx *Context) consensusStates() store.Typed[ConsensusState] {
	return store.NewCram[ConsensusState](ctx.kv)
}

func (ctx *Context) connections() store.Typed[ConnectionEnd] {
	return store.NewCram[ConnectionEnd](ctx.kv)
}

func (ctx *Context) channels() store.Typed[ChannelEnd] {
	return store.NewCram[ChannelEnd](ctx.kv)
}

func (ctx *Context) sequences() store.Typed[uint64] {
	return store.NewTyped[uint64](ctx.kv, store.U64Codec{})
}

func (ctx *Context) clientConnections() store.Typed[[]string] {
	return store.NewJSON[[]string](ctx.kv)
}

func (ctx *Context) counters() store.Typed[uint64] {
	return store.NewTyped[uint64](ctx.mem, store.U64Codec{})
}

func (ctx *Context) hostConsensus() store.Typed[ConsensusState] {
	return store.NewCram[ConsensusState](ctx.mem)
}

// ClientState loads a client state; absent clients are a user error.
func (ctx *Context) ClientState(clientID string) (ClientState, error) {
	cs, ok, err := ctx.clientStates().Get(ClientStatePath(clientID))
	if err != nil {
		return ClientState{}, types.ErrStorageCorruption("client state %s: %v", clientID, err)
	}
	if !ok {
		return ClientState{}, types.ErrInvalidClient("client %s not found", clientID)
	}
	return cs, nil
}

// SetClientState stores a client state.
func (ctx *Context) SetClientState(clientID string, cs ClientState) error {
	return ctx.clientStates().Set(ClientStatePath(clientID), cs)
}

// ConsensusState loads a client's consensus state at a height.
func (ctx *Context) ConsensusState(clientID string, height Height) (ConsensusState, bool, error) {
	cons, ok, err := ctx.consensusStates().Get(ConsensusStatePath(clientID, height))
	if err != nil {
		return ConsensusState{}, false, types.ErrStorageCorruption("consensus state %s@%s: %v", clientID, height, err)
	}
	return cons, ok, nil
}

// SetConsensusState stores a client's consensus state at a height.
func (ctx *Context) SetConsensusState(clientID string, height Height, cons ConsensusState) error {
	return ctx.consensusStates().Set(ConsensusStatePath(clientID, height), cons)
}

// ConsensusHeights lists the heights a client has consensus states for,
// ascending.
func (ctx *Context) ConsensusHeights(clientID string) []Height {
	var heights []Height
	for _, p := range ctx.kv.GetKeys(ClientConsensusPrefix(clientID)) {
		rel, ok := p.StripPrefix(ClientConsensusPrefix(clientID))
		if !ok {
			continue
		}
		h, err := ParseHeight(rel.String())
		if err != nil {
			continue
		}
		heights = append(heights, h)
	}
	sortHeights(heights)
	return heights
}

// ClientStatus computes a client's standing at the current block time.
func (ctx *Context) ClientStatus(clientID string) (Status, error) {
	cs, err := ctx.ClientState(clientID)
	if err != nil {
		return StatusUnknown, err
	}
	return ctx.statusOf(clientID, cs), nil
}

func (ctx *Context) statusOf(clientID string, cs ClientState) Status {
	cons, ok, err := ctx.ConsensusState(clientID, cs.LatestHeight)
	if err != nil || !ok {
		return StatusUnknown
	}
	return cs.Status(cons.Timestamp.ToTime(), ctx.hostTime)
}

// Connection loads a connection end.
func (ctx *Context) Connection(connectionID string) (ConnectionEnd, error) {
	conn, ok, err := ctx.connections().Get(ConnectionPath(connectionID))
	if err != nil {
		return ConnectionEnd{}, types.ErrStorageCorruption("connection %s: %v", connectionID, err)
	}
	if !ok {
		return ConnectionEnd{}, types.ErrUnexpectedState("connection %s not found", connectionID)
	}
	return conn, nil
}

// SetConnection stores a connection end.
func (ctx *Context) SetConnection(connectionID string, conn ConnectionEnd) error {
	return ctx.connections().Set(ConnectionPath(connectionID), conn)
}

// Channel loads a channel end.
func (ctx *Context) Channel(portID, channelID string) (ChannelEnd, error) {
	ch, ok, err := ctx.channels().Get(ChannelPath(portID, channelID))
	if err != nil {
		return ChannelEnd{}, types.ErrStorageCorruption("channel %s/%s: %v", portID, channelID, err)
	}
	if !ok {
		return ChannelEnd{}, types.ErrUnexpectedState("channel %s/%s not found", portID, channelID)
	}
	return ch, nil
}

// SetChannel stores a channel end.
func (ctx *Context) SetChannel(portID, channelID string, ch ChannelEnd) error {
	return ctx.channels().Set(ChannelPath(portID, channelID), ch)
}

// sequence reads a sequence slot; missing slots on an open channel are a
// storage fault, so the caller decides how absent reads.
func (ctx *Context) sequence(path store.Path) (uint64, bool, error) {
	seq, ok, err := ctx.sequences().Get(path)
	if err != nil {
		return 0, false, types.ErrStorageCorruption("sequence at %s: %v", path, err)
	}
	return seq, ok, nil
}

func (ctx *Context) setSequence(path store.Path, seq uint64) error {
	return ctx.sequences().Set(path, seq)
}

// nextCounter draws the next value from a non-provable counter (client,
// connection or channel allocator), post-incrementing it.
func (ctx *Context) nextCounter(path store.Path) (uint64, error) {
	next, _, err := ctx.counters().Get(path)
	if err != nil {
		return 0, types.ErrStorageCorruption("counter at %s: %v", path, err)
	}
	if err := ctx.counters().Set(path, next+1); err != nil {
		return 0, err
	}
	return next, nil
}

// RecordClientConnection appends a connection id to its client's list.
func (ctx *Context) RecordClientConnection(clientID, connectionID string) error {
	conns, _, err := ctx.clientConnections().Get(ClientConnectionsPath(clientID))
	if err != nil {
		return types.ErrStorageCorruption("client connections %s: %v", clientID, err)
	}
	return ctx.clientConnections().Set(ClientConnectionsPath(clientID), append(conns, connectionID))
}

// ClientConnectionIDs lists the connections using a client.
func (ctx *Context) ClientConnectionIDs(clientID string) []string {
	conns, _, err := ctx.clientConnections().Get(ClientConnectionsPath(clientID))
	if err != nil {
		return nil
	}
	return conns
}

// RecordHostConsensusState stores the host chain's own view of itself for
// the given block, used for host timestamp/height context reads.
func (ctx *Context) RecordHostConsensusState(height uint64, cons ConsensusState) error {
	return ctx.hostConsensus().Set(hostConsensusPath(height), cons)
}

func sortHeights(hs []Height) {
	sort.Slice(hs, func(i, j int) bool { return hs[i].LT(hs[j]) })
}
