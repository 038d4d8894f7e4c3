package ibc

import (
	"fmt"

	"github.com/blockberries/hostberry/types"
)

func (ctx *Context) nextChannelID() (string, error) {
	seq, err := ctx.nextCounter(nextChannelSeqPath())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("channel-%d", seq), nil
}

// openConnectionFor resolves a channel end's first connection hop and
// requires it to be OPEN.
func (ctx *Context) openConnectionFor(ch ChannelEnd) (ConnectionEnd, error) {
	if len(ch.ConnectionHops) != 1 {
		return ConnectionEnd{}, types.ErrInvalidMessage("channel requires exactly one connection hop")
	}
	conn, err := ctx.Connection(ch.ConnectionHops[0])
	if err != nil {
		return ConnectionEnd{}, err
	}
	if conn.State != ConnectionOpen {
		return ConnectionEnd{}, types.ErrUnexpectedState("connection %s is %s, channel handshake requires OPEN",
			ch.ConnectionHops[0], conn.State)
	}
	return conn, nil
}

// initChannelSequences seeds the three sequence slots of a fresh channel.
func (ctx *Context) initChannelSequences(portID, channelID string) error {
	if err := ctx.setSequence(NextSequenceSendPath(portID, channelID), 1); err != nil {
		return err
	}
	if err := ctx.setSequence(NextSequenceRecvPath(portID, channelID), 1); err != nil {
		return err
	}
	return ctx.setSequence(NextSequenceAckPath(portID, channelID), 1)
}

// channelOpenInit creates an INIT channel end on a bound port.
func (ctx *Context) channelOpenInit(ports map[string]PortModule, msg MsgChannelOpenInit) (string, error) {
	if _, ok := ports[msg.PortID]; !ok {
		return "", types.ErrUnexpectedState("port %s is not bound", msg.PortID)
	}
	if msg.Channel.State != ChannelInit {
		return "", types.ErrInvalidMessage("channel must be created in INIT, got %s", msg.Channel.State)
	}
	if msg.Channel.Ordering != OrderOrdered && msg.Channel.Ordering != OrderUnordered {
		return "", types.ErrInvalidMessage("channel ordering must be ORDERED or UNORDERED")
	}
	if _, err := ctx.openConnectionFor(msg.Channel); err != nil {
		return "", err
	}

	channelID, err := ctx.nextChannelID()
	if err != nil {
		return "", err
	}
	if err := ctx.SetChannel(msg.PortID, channelID, msg.Channel); err != nil {
		return "", err
	}
	if err := ctx.initChannelSequences(msg.PortID, channelID); err != nil {
		return "", err
	}

	ctx.emit(channelEvent(EventChannelOpenInit, msg.PortID, channelID, msg.Channel))
	return channelID, nil
}

// channelOpenTry creates a TRYOPEN end, witnessed by a proof of the
// counterparty's INIT end.
func (ctx *Context) channelOpenTry(ports map[string]PortModule, msg MsgChannelOpenTry) (string, error) {
	if _, ok := ports[msg.PortID]; !ok {
		return "", types.ErrUnexpectedState("port %s is not bound", msg.PortID)
	}
	if msg.Channel.State != ChannelTryOpen {
		return "", types.ErrInvalidMessage("channel must be tried in TRYOPEN, got %s", msg.Channel.State)
	}
	conn, err := ctx.openConnectionFor(msg.Channel)
	if err != nil {
		return "", err
	}

	expected := ChannelEnd{
		State:    ChannelInit,
		Ordering: msg.Channel.Ordering,
		Counterparty: ChannelCounterparty{
			PortID: msg.PortID,
		},
		ConnectionHops: []string{conn.Counterparty.ConnectionID},
		Version:        msg.CounterpartyVersion,
	}
	expectedBytes, err := encode(expected)
	if err != nil {
		return "", err
	}
	if err := ctx.verifyMembership(conn.ClientID, msg.ProofHeight, conn.Counterparty.Prefix,
		ChannelPath(msg.Channel.Counterparty.PortID, msg.Channel.Counterparty.ChannelID),
		expectedBytes, msg.ProofInit); err != nil {
		return "", err
	}

	channelID, err := ctx.nextChannelID()
	if err != nil {
		return "", err
	}
	if err := ctx.SetChannel(msg.PortID, channelID, msg.Channel); err != nil {
		return "", err
	}
	if err := ctx.initChannelSequences(msg.PortID, channelID); err != nil {
		return "", err
	}

	ctx.emit(channelEvent(EventChannelOpenTry, msg.PortID, channelID, msg.Channel))
	return channelID, nil
}

// channelOpenAck moves our INIT end to OPEN, witnessed by a proof of the
// counterparty's TRYOPEN end.
func (ctx *Context) channelOpenAck(msg MsgChannelOpenAck) error {
	ch, err := ctx.Channel(msg.PortID, msg.ChannelID)
	if err != nil {
		return err
	}
	if ch.State != ChannelInit {
		return types.ErrUnexpectedState("channel %s/%s is %s, OpenAck requires INIT",
			msg.PortID, msg.ChannelID, ch.State)
	}
	conn, err := ctx.openConnectionFor(ch)
	if err != nil {
		return err
	}

	expected := ChannelEnd{
		State:    ChannelTryOpen,
		Ordering: ch.Ordering,
		Counterparty: ChannelCounterparty{
			PortID:    msg.PortID,
			ChannelID: msg.ChannelID,
		},
		ConnectionHops: []string{conn.Counterparty.ConnectionID},
		Version:        msg.CounterpartyVersion,
	}
	expectedBytes, err := encode(expected)
	if err != nil {
		return err
	}
	if err := ctx.verifyMembership(conn.ClientID, msg.ProofHeight, conn.Counterparty.Prefix,
		ChannelPath(ch.Counterparty.PortID, msg.CounterpartyChannelID),
		expectedBytes, msg.ProofTry); err != nil {
		return err
	}

	ch.State = ChannelOpen
	ch.Counterparty.ChannelID = msg.CounterpartyChannelID
	ch.Version = msg.CounterpartyVersion
	if err := ctx.SetChannel(msg.PortID, msg.ChannelID, ch); err != nil {
		return err
	}

	ctx.emit(channelEvent(EventChannelOpenAck, msg.PortID, msg.ChannelID, ch))
	return nil
}

// channelOpenConfirm moves our TRYOPEN end to OPEN, witnessed by a proof of
// the counterparty's OPEN end.
func (ctx *Context) channelOpenConfirm(msg MsgChannelOpenConfirm) error {
	ch, err := ctx.Channel(msg.PortID, msg.ChannelID)
	if err != nil {
		return err
	}
	if ch.State != ChannelTryOpen {
		return types.ErrUnexpectedState("channel %s/%s is %s, OpenConfirm requires TRYOPEN",
			msg.PortID, msg.ChannelID, ch.State)
	}
	conn, err := ctx.openConnectionFor(ch)
	if err != nil {
		return err
	}

	expected := ChannelEnd{
		State:    ChannelOpen,
		Ordering: ch.Ordering,
		Counterparty: ChannelCounterparty{
			PortID:    msg.PortID,
			ChannelID: msg.ChannelID,
		},
		ConnectionHops: []string{conn.Counterparty.ConnectionID},
		Version:        ch.Version,
	}
	expectedBytes, err := encode(expected)
	if err != nil {
		return err
	}
	if err := ctx.verifyMembership(conn.ClientID, msg.ProofHeight, conn.Counterparty.Prefix,
		ChannelPath(ch.Counterparty.PortID, ch.Counterparty.ChannelID),
		expectedBytes, msg.ProofAck); err != nil {
		return err
	}

	ch.State = ChannelOpen
	if err := ctx.SetChannel(msg.PortID, msg.ChannelID, ch); err != nil {
		return err
	}

	ctx.emit(channelEvent(EventChannelOpenConfirm, msg.PortID, msg.ChannelID, ch))
	return nil
}

// channelCloseInit closes our end of an OPEN channel.
func (ctx *Context) channelCloseInit(msg MsgChannelCloseInit) error {
	ch, err := ctx.Channel(msg.PortID, msg.ChannelID)
	if err != nil {
		return err
	}
	if ch.State != ChannelOpen {
		return types.ErrUnexpectedState("channel %s/%s is %s, CloseInit requires OPEN",
			msg.PortID, msg.ChannelID, ch.State)
	}

	ch.State = ChannelClosed
	if err := ctx.SetChannel(msg.PortID, msg.ChannelID, ch); err != nil {
		return err
	}

	ctx.emit(channelEvent(EventChannelCloseInit, msg.PortID, msg.ChannelID, ch))
	return nil
}

// channelCloseConfirm closes our end after the counterparty's end is proven
// CLOSED.
func (ctx *Context) channelCloseConfirm(msg MsgChannelCloseConfirm) error {
	ch, err := ctx.Channel(msg.PortID, msg.ChannelID)
	if err != nil {
		return err
	}
	if ch.State != ChannelOpen {
		return types.ErrUnexpectedState("channel %s/%s is %s, CloseConfirm requires OPEN",
			msg.PortID, msg.ChannelID, ch.State)
	}
	conn, err := ctx.openConnectionFor(ch)
	if err != nil {
		return err
	}

	expected := ChannelEnd{
		State:    ChannelClosed,
		Ordering: ch.Ordering,
		Counterparty: ChannelCounterparty{
			PortID:    msg.PortID,
			ChannelID: msg.ChannelID,
		},
		ConnectionHops: []string{conn.Counterparty.ConnectionID},
		Version:        ch.Version,
	}
	expectedBytes, err := encode(expected)
	if err != nil {
		return err
	}
	if err := ctx.verifyMembership(conn.ClientID, msg.ProofHeight, conn.Counterparty.Prefix,
		ChannelPath(ch.Counterparty.PortID, ch.Counterparty.ChannelID),
		expectedBytes, msg.ProofInit); err != nil {
		return err
	}

	ch.State = ChannelClosed
	if err := ctx.SetChannel(msg.PortID, msg.ChannelID, ch); err != nil {
		return err
	}

	ctx.emit(channelEvent(EventChannelCloseConfirm, msg.PortID, msg.ChannelID, ch))
	return nil
}
