package ibc

import (
	"bytes"

	"github.com/blockberries/hostberry/store"
	"github.com/blockberries/hostberry/types"
)

// receiptValue is the fixed byte stored under a receipt path.
var receiptValue = []byte{0x01}

// SendPacket commits an outbound packet on an OPEN channel and allocates its
// sequence. It is invoked by port modules (e.g. transfer), not by a routed
// message.
func (ctx *Context) SendPacket(portID, channelID string, data []byte, timeoutHeight Height, timeoutTimestamp uint64) (uint64, error) {
	ch, err := ctx.Channel(portID, channelID)
	if err != nil {
		return 0, err
	}
	if ch.State != ChannelOpen {
		return 0, types.ErrUnexpectedState("channel %s/%s is %s, send requires OPEN", portID, channelID, ch.State)
	}
	if timeoutHeight.IsZero() && timeoutTimestamp == 0 {
		return 0, types.ErrInvalidMessage("packet needs a timeout height or timestamp")
	}

	seq, ok, err := ctx.sequence(NextSequenceSendPath(portID, channelID))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, types.ErrStorageCorruption("channel %s/%s has no send sequence", portID, channelID)
	}

	packet := Packet{
		Sequence:           seq,
		SourcePort:         portID,
		SourceChannel:      channelID,
		DestinationPort:    ch.Counterparty.PortID,
		DestinationChannel: ch.Counterparty.ChannelID,
		Data:               data,
		TimeoutHeight:      timeoutHeight,
		TimeoutTimestamp:   timeoutTimestamp,
	}
	if err := ctx.kv.Set(PacketCommitmentPath(portID, channelID, seq), packet.Commitment()); err != nil {
		return 0, err
	}
	if err := ctx.setSequence(NextSequenceSendPath(portID, channelID), seq+1); err != nil {
		return 0, err
	}

	ev := packetEvent(EventSendPacket, packet, ch)
	ev.Attributes = append(ev.Attributes, attr("packet_data_hex", hexBytes(data)))
	ctx.emit(ev)
	return seq, nil
}

// recvPacket handles an inbound packet: proves the counterparty committed
// it, enforces the channel's ordering discipline, hands the data to the
// bound port module, and writes the acknowledgement.
func (ctx *Context) recvPacket(ports map[string]PortModule, msg MsgRecvPacket) error {
	packet := msg.Packet
	ch, err := ctx.Channel(packet.DestinationPort, packet.DestinationChannel)
	if err != nil {
		return err
	}
	if ch.State != ChannelOpen {
		return types.ErrUnexpectedState("channel %s/%s is %s, recv requires OPEN",
			packet.DestinationPort, packet.DestinationChannel, ch.State)
	}
	if ch.Counterparty.PortID != packet.SourcePort || ch.Counterparty.ChannelID != packet.SourceChannel {
		return types.ErrInvalidMessage("packet source %s/%s does not match channel counterparty %s/%s",
			packet.SourcePort, packet.SourceChannel, ch.Counterparty.PortID, ch.Counterparty.ChannelID)
	}
	port, ok := ports[packet.DestinationPort]
	if !ok {
		return types.ErrUnexpectedState("port %s is not bound", packet.DestinationPort)
	}
	conn, err := ctx.openConnectionFor(ch)
	if err != nil {
		return err
	}

	// Timeouts are judged against the consensus-supplied block context.
	if !packet.TimeoutHeight.IsZero() && ctx.hostHeight.GTE(packet.TimeoutHeight) {
		return types.ErrTimeout("packet timeout height %s passed at %s", packet.TimeoutHeight, ctx.hostHeight)
	}
	if packet.TimeoutTimestamp != 0 && uint64(ctx.hostTime.UnixNano()) >= packet.TimeoutTimestamp {
		return types.ErrTimeout("packet timeout timestamp %d passed", packet.TimeoutTimestamp)
	}

	if err := ctx.verifyMembership(conn.ClientID, msg.ProofHeight, conn.Counterparty.Prefix,
		PacketCommitmentPath(packet.SourcePort, packet.SourceChannel, packet.Sequence),
		packet.Commitment(), msg.ProofCommitment); err != nil {
		return err
	}

	switch ch.Ordering {
	case OrderOrdered:
		nextRecv, ok, err := ctx.sequence(NextSequenceRecvPath(packet.DestinationPort, packet.DestinationChannel))
		if err != nil {
			return err
		}
		if !ok {
			return types.ErrStorageCorruption("channel %s/%s has no recv sequence",
				packet.DestinationPort, packet.DestinationChannel)
		}
		if packet.Sequence != nextRecv {
			return types.ErrUnexpectedState("ordered channel expects sequence %d, got %d", nextRecv, packet.Sequence)
		}
		if err := ctx.setSequence(NextSequenceRecvPath(packet.DestinationPort, packet.DestinationChannel), nextRecv+1); err != nil {
			return err
		}
	case OrderUnordered:
		receiptPath := PacketReceiptPath(packet.DestinationPort, packet.DestinationChannel, packet.Sequence)
		if _, received := ctx.kv.Get(receiptPath); received {
			// Double delivery is a no-op success.
			return nil
		}
		if err := ctx.kv.Set(receiptPath, receiptValue); err != nil {
			return err
		}
	default:
		return types.ErrStorageCorruption("channel %s/%s has ordering %s",
			packet.DestinationPort, packet.DestinationChannel, ch.Ordering)
	}

	ack := port.OnRecvPacket(ctx, packet)
	if len(ack) == 0 {
		return types.ErrInvalidMessage("port %s returned an empty acknowledgement", packet.DestinationPort)
	}
	if err := ctx.kv.Set(PacketAckPath(packet.DestinationPort, packet.DestinationChannel, packet.Sequence),
		AckCommitment(ack)); err != nil {
		return err
	}

	ctx.emit(packetEvent(EventRecvPacket, packet, ch))
	ackEv := packetEvent(EventWriteAcknowledgement, packet, ch)
	ackEv.Attributes = append(ackEv.Attributes, attr("packet_ack_hex", hexBytes(ack)))
	ctx.emit(ackEv)
	return nil
}

// acknowledgePacket completes a packet's lifecycle on the sending chain:
// proves the counterparty wrote the acknowledgement, then deletes the
// commitment. Replay after deletion is a no-op success.
func (ctx *Context) acknowledgePacket(ports map[string]PortModule, msg MsgAcknowledgement) error {
	packet := msg.Packet
	ch, err := ctx.Channel(packet.SourcePort, packet.SourceChannel)
	if err != nil {
		return err
	}
	if ch.State != ChannelOpen {
		return types.ErrUnexpectedState("channel %s/%s is %s, ack requires OPEN",
			packet.SourcePort, packet.SourceChannel, ch.State)
	}
	commitmentPath := PacketCommitmentPath(packet.SourcePort, packet.SourceChannel, packet.Sequence)
	stored, ok := ctx.kv.Get(commitmentPath)
	if !ok {
		return nil
	}
	if !bytes.Equal(stored, packet.Commitment()) {
		return types.ErrUnexpectedState("stored commitment for sequence %d does not match packet", packet.Sequence)
	}
	conn, err := ctx.openConnectionFor(ch)
	if err != nil {
		return err
	}

	if err := ctx.verifyMembership(conn.ClientID, msg.ProofHeight, conn.Counterparty.Prefix,
		PacketAckPath(packet.DestinationPort, packet.DestinationChannel, packet.Sequence),
		AckCommitment(msg.Acknowledgement), msg.ProofAcked); err != nil {
		return err
	}

	if ch.Ordering == OrderOrdered {
		nextAck, ok, err := ctx.sequence(NextSequenceAckPath(packet.SourcePort, packet.SourceChannel))
		if err != nil {
			return err
		}
		if !ok {
			return types.ErrStorageCorruption("channel %s/%s has no ack sequence",
				packet.SourcePort, packet.SourceChannel)
		}
		if packet.Sequence != nextAck {
			return types.ErrUnexpectedState("ordered channel expects ack sequence %d, got %d", nextAck, packet.Sequence)
		}
		if err := ctx.setSequence(NextSequenceAckPath(packet.SourcePort, packet.SourceChannel), nextAck+1); err != nil {
			return err
		}
	}

	if err := ctx.kv.Delete(commitmentPath); err != nil {
		return err
	}
	if port, ok := ports[packet.SourcePort]; ok {
		if err := port.OnAcknowledgePacket(ctx, packet, msg.Acknowledgement); err != nil {
			return err
		}
	}

	ctx.emit(packetEvent(EventAcknowledgePacket, packet, ch))
	return nil
}

// timeoutPacket cancels a sent packet after its timeout passed unreceived.
// The commitment deletion is idempotent: replaying a timeout for an already
// timed-out packet succeeds without effect.
func (ctx *Context) timeoutPacket(ports map[string]PortModule, msg MsgTimeout) error {
	packet := msg.Packet
	ch, err := ctx.Channel(packet.SourcePort, packet.SourceChannel)
	if err != nil {
		return err
	}
	commitmentPath := PacketCommitmentPath(packet.SourcePort, packet.SourceChannel, packet.Sequence)
	stored, ok := ctx.kv.Get(commitmentPath)
	if !ok {
		return nil
	}
	if !bytes.Equal(stored, packet.Commitment()) {
		return types.ErrUnexpectedState("stored commitment for sequence %d does not match packet", packet.Sequence)
	}
	conn, err := ctx.openConnectionFor(ch)
	if err != nil {
		return err
	}

	if err := ctx.verifyTimeoutPassed(conn.ClientID, msg.ProofHeight, packet); err != nil {
		return err
	}
	if err := ctx.verifyUnreceived(conn, ch, packet, msg.ProofUnreceived, msg.ProofHeight, msg.NextSequenceRecv); err != nil {
		return err
	}

	return ctx.finishTimeout(ports, packet, ch, commitmentPath)
}

// timeoutOnClose cancels a sent packet whose destination channel closed
// before delivery; the close proof substitutes for the elapsed timeout.
func (ctx *Context) timeoutOnClose(ports map[string]PortModule, msg MsgTimeoutOnClose) error {
	packet := msg.Packet
	ch, err := ctx.Channel(packet.SourcePort, packet.SourceChannel)
	if err != nil {
		return err
	}
	commitmentPath := PacketCommitmentPath(packet.SourcePort, packet.SourceChannel, packet.Sequence)
	stored, ok := ctx.kv.Get(commitmentPath)
	if !ok {
		return nil
	}
	if !bytes.Equal(stored, packet.Commitment()) {
		return types.ErrUnexpectedState("stored commitment for sequence %d does not match packet", packet.Sequence)
	}
	conn, err := ctx.openConnectionFor(ch)
	if err != nil {
		return err
	}

	expected := ChannelEnd{
		State:    ChannelClosed,
		Ordering: ch.Ordering,
		Counterparty: ChannelCounterparty{
			PortID:    packet.SourcePort,
			ChannelID: packet.SourceChannel,
		},
		ConnectionHops: []string{conn.Counterparty.ConnectionID},
		Version:        ch.Version,
	}
	expectedBytes, err := encode(expected)
	if err != nil {
		return err
	}
	if err := ctx.verifyMembership(conn.ClientID, msg.ProofHeight, conn.Counterparty.Prefix,
		ChannelPath(packet.DestinationPort, packet.DestinationChannel),
		expectedBytes, msg.ProofClose); err != nil {
		return err
	}
	if err := ctx.verifyUnreceived(conn, ch, packet, msg.ProofUnreceived, msg.ProofHeight, msg.NextSequenceRecv); err != nil {
		return err
	}

	return ctx.finishTimeout(ports, packet, ch, commitmentPath)
}

// verifyTimeoutPassed checks that the packet's timeout had elapsed on the
// counterparty as of the proof height.
func (ctx *Context) verifyTimeoutPassed(clientID string, proofHeight Height, packet Packet) error {
	heightPassed := !packet.TimeoutHeight.IsZero() && proofHeight.GTE(packet.TimeoutHeight)
	timestampPassed := false
	if packet.TimeoutTimestamp != 0 {
		cons, ok, err := ctx.ConsensusState(clientID, proofHeight)
		if err != nil {
			return err
		}
		if !ok {
			return types.ErrInvalidProof("client %s has no consensus state at %s", clientID, proofHeight)
		}
		timestampPassed = uint64(cons.Timestamp.ToTime().UnixNano()) >= packet.TimeoutTimestamp
	}
	if !heightPassed && !timestampPassed {
		return types.ErrTimeout("packet timeout has not passed at proof height %s", proofHeight)
	}
	return nil
}

// verifyUnreceived proves non-delivery: absence of the receipt on unordered
// channels, or a next-receive sequence at or below the packet's on ordered
// ones.
func (ctx *Context) verifyUnreceived(conn ConnectionEnd, ch ChannelEnd, packet Packet, proof []byte, proofHeight Height, nextSequenceRecv uint64) error {
	switch ch.Ordering {
	case OrderOrdered:
		if nextSequenceRecv > packet.Sequence {
			return types.ErrUnexpectedState("packet sequence %d already received (next recv %d)",
				packet.Sequence, nextSequenceRecv)
		}
		value, err := store.U64Codec{}.Encode(nextSequenceRecv)
		if err != nil {
			return err
		}
		return ctx.verifyMembership(conn.ClientID, proofHeight, conn.Counterparty.Prefix,
			NextSequenceRecvPath(packet.DestinationPort, packet.DestinationChannel), value, proof)
	case OrderUnordered:
		return ctx.verifyNonMembership(conn.ClientID, proofHeight, conn.Counterparty.Prefix,
			PacketReceiptPath(packet.DestinationPort, packet.DestinationChannel, packet.Sequence), proof)
	default:
		return types.ErrStorageCorruption("channel %s/%s has ordering %s",
			packet.SourcePort, packet.SourceChannel, ch.Ordering)
	}
}

// finishTimeout deletes the commitment, refunds via the port module, closes
// ordered channels, and emits the timeout event.
func (ctx *Context) finishTimeout(ports map[string]PortModule, packet Packet, ch ChannelEnd, commitmentPath store.Path) error {
	if err := ctx.kv.Delete(commitmentPath); err != nil {
		return err
	}
	if port, ok := ports[packet.SourcePort]; ok {
		if err := port.OnTimeoutPacket(ctx, packet); err != nil {
			return err
		}
	}
	if ch.Ordering == OrderOrdered {
		ch.State = ChannelClosed
		if err := ctx.SetChannel(packet.SourcePort, packet.SourceChannel, ch); err != nil {
			return err
		}
	}

	ctx.emit(packetEvent(EventTimeoutPacket, packet, ch))
	return nil
}
