package ibc

import (
	"fmt"

	"github.com/blockberries/hostberry/types"
)

func (ctx *Context) nextConnectionID() (string, error) {
	seq, err := ctx.nextCounter(nextConnectionSeqPath())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("connection-%d", seq), nil
}

// connectionOpenInit creates an INIT connection end on this chain.
func (ctx *Context) connectionOpenInit(msg MsgConnectionOpenInit) (string, error) {
	if _, err := ctx.ClientState(msg.ClientID); err != nil {
		return "", err
	}
	version := DefaultConnectionVersion()
	if msg.Version != nil {
		if msg.Version.Identifier != version.Identifier {
			return "", types.ErrInvalidMessage("unsupported connection version %q", msg.Version.Identifier)
		}
		version = *msg.Version
	}

	connectionID, err := ctx.nextConnectionID()
	if err != nil {
		return "", err
	}
	conn := ConnectionEnd{
		ClientID:     msg.ClientID,
		Versions:     []ConnectionVersion{version},
		State:        ConnectionInit,
		Counterparty: msg.Counterparty,
		DelayPeriod:  msg.DelayPeriod,
	}
	if err := ctx.SetConnection(connectionID, conn); err != nil {
		return "", err
	}
	if err := ctx.RecordClientConnection(msg.ClientID, connectionID); err != nil {
		return "", err
	}

	ctx.emit(connectionEvent(EventConnectionOpenInit, connectionID, conn))
	return connectionID, nil
}

// connectionOpenTry creates a TRYOPEN end, witnessed by a proof that the
// counterparty holds the matching INIT end.
func (ctx *Context) connectionOpenTry(msg MsgConnectionOpenTry) (string, error) {
	if _, err := ctx.ClientState(msg.ClientID); err != nil {
		return "", err
	}
	if len(msg.CounterpartyVersions) == 0 {
		msg.CounterpartyVersions = []ConnectionVersion{DefaultConnectionVersion()}
	}
	version, err := pickVersion(msg.CounterpartyVersions)
	if err != nil {
		return "", err
	}

	// The counterparty's INIT end references us with the roles flipped
	// and no connection id assigned yet.
	expected := ConnectionEnd{
		ClientID: msg.Counterparty.ClientID,
		Versions: msg.CounterpartyVersions,
		State:    ConnectionInit,
		Counterparty: ConnectionCounterparty{
			ClientID: msg.ClientID,
			Prefix:   DefaultMerklePrefix(),
		},
		DelayPeriod: msg.DelayPeriod,
	}
	expectedBytes, err := encode(expected)
	if err != nil {
		return "", err
	}
	if err := ctx.verifyMembership(msg.ClientID, msg.ProofHeight, msg.Counterparty.Prefix,
		ConnectionPath(msg.Counterparty.ConnectionID), expectedBytes, msg.ProofInit); err != nil {
		return "", err
	}

	connectionID, err := ctx.nextConnectionID()
	if err != nil {
		return "", err
	}
	conn := ConnectionEnd{
		ClientID:     msg.ClientID,
		Versions:     []ConnectionVersion{version},
		State:        ConnectionTryOpen,
		Counterparty: msg.Counterparty,
		DelayPeriod:  msg.DelayPeriod,
	}
	if err := ctx.SetConnection(connectionID, conn); err != nil {
		return "", err
	}
	if err := ctx.RecordClientConnection(msg.ClientID, connectionID); err != nil {
		return "", err
	}

	ctx.emit(connectionEvent(EventConnectionOpenTry, connectionID, conn))
	return connectionID, nil
}

// connectionOpenAck moves our INIT end to OPEN, witnessed by a proof of the
// counterparty's TRYOPEN end.
func (ctx *Context) connectionOpenAck(msg MsgConnectionOpenAck) error {
	conn, err := ctx.Connection(msg.ConnectionID)
	if err != nil {
		return err
	}
	if conn.State != ConnectionInit {
		return types.ErrUnexpectedState("connection %s is %s, OpenAck requires INIT",
			msg.ConnectionID, conn.State)
	}

	expected := ConnectionEnd{
		ClientID: conn.Counterparty.ClientID,
		Versions: []ConnectionVersion{msg.Version},
		State:    ConnectionTryOpen,
		Counterparty: ConnectionCounterparty{
			ClientID:     conn.ClientID,
			ConnectionID: msg.ConnectionID,
			Prefix:       DefaultMerklePrefix(),
		},
		DelayPeriod: conn.DelayPeriod,
	}
	expectedBytes, err := encode(expected)
	if err != nil {
		return err
	}
	if err := ctx.verifyMembership(conn.ClientID, msg.ProofHeight, conn.Counterparty.Prefix,
		ConnectionPath(msg.CounterpartyConnectionID), expectedBytes, msg.ProofTry); err != nil {
		return err
	}

	conn.State = ConnectionOpen
	conn.Versions = []ConnectionVersion{msg.Version}
	conn.Counterparty.ConnectionID = msg.CounterpartyConnectionID
	if err := ctx.SetConnection(msg.ConnectionID, conn); err != nil {
		return err
	}

	ctx.emit(connectionEvent(EventConnectionOpenAck, msg.ConnectionID, conn))
	return nil
}

// connectionOpenConfirm moves our TRYOPEN end to OPEN, witnessed by a proof
// of the counterparty's OPEN end.
func (ctx *Context) connectionOpenConfirm(msg MsgConnectionOpenConfirm) error {
	conn, err := ctx.Connection(msg.ConnectionID)
	if err != nil {
		return err
	}
	if conn.State != ConnectionTryOpen {
		return types.ErrUnexpectedState("connection %s is %s, OpenConfirm requires TRYOPEN",
			msg.ConnectionID, conn.State)
	}

	expected := ConnectionEnd{
		ClientID: conn.Counterparty.ClientID,
		Versions: conn.Versions,
		State:    ConnectionOpen,
		Counterparty: ConnectionCounterparty{
			ClientID:     conn.ClientID,
			ConnectionID: msg.ConnectionID,
			Prefix:       DefaultMerklePrefix(),
		},
		DelayPeriod: conn.DelayPeriod,
	}
	expectedBytes, err := encode(expected)
	if err != nil {
		return err
	}
	if err := ctx.verifyMembership(conn.ClientID, msg.ProofHeight, conn.Counterparty.Prefix,
		ConnectionPath(conn.Counterparty.ConnectionID), expectedBytes, msg.ProofAck); err != nil {
		return err
	}

	conn.State = ConnectionOpen
	if err := ctx.SetConnection(msg.ConnectionID, conn); err != nil {
		return err
	}

	ctx.emit(connectionEvent(EventConnectionOpenConfirm, msg.ConnectionID, conn))
	return nil
}

func pickVersion(offered []ConnectionVersion) (ConnectionVersion, error) {
	supported := DefaultConnectionVersion()
	for _, v := range offered {
		if v.Identifier == supported.Identifier {
			return v, nil
		}
	}
	return ConnectionVersion{}, types.ErrInvalidMessage("no compatible connection version offered")
}
