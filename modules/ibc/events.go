package ibc

import (
	"encoding/hex"
	"fmt"

	"github.com/blockberries/blockberry/abi"
)

func hexBytes(b []byte) string { return hex.EncodeToString(b) }

// Event type names follow the conventional IBC vocabulary relayers scan for.
const (
	EventCreateClient  = "create_client"
	EventUpdateClient  = "update_client"
	EventUpgradeClient = "upgrade_client"
	EventRecoverClient = "recover_client"

	EventConnectionOpenInit    = "connection_open_init"
	EventConnectionOpenTry     = "connection_open_try"
	EventConnectionOpenAck     = "connection_open_ack"
	EventConnectionOpenConfirm = "connection_open_confirm"

	EventChannelOpenInit     = "channel_open_init"
	EventChannelOpenTry      = "channel_open_try"
	EventChannelOpenAck      = "channel_open_ack"
	EventChannelOpenConfirm  = "channel_open_confirm"
	EventChannelCloseInit    = "channel_close_init"
	EventChannelCloseConfirm = "channel_close_confirm"

	EventSendPacket           = "send_packet"
	EventRecvPacket           = "recv_packet"
	EventWriteAcknowledgement = "write_acknowledgement"
	EventAcknowledgePacket    = "acknowledge_packet"
	EventTimeoutPacket        = "timeout_packet"
)

func attr(key, value string) abi.Attribute {
	return abi.Attribute{Key: key, Value: []byte(value), Index: true}
}

func clientEvent(kind, clientID string, height Height) abi.Event {
	return abi.Event{
		Type: kind,
		Attributes: []abi.Attribute{
			attr("client_id", clientID),
			attr("client_type", ClientTypeTendermint),
			attr("consensus_height", height.String()),
		},
	}
}

func connectionEvent(kind, connectionID string, conn ConnectionEnd) abi.Event {
	return abi.Event{
		Type: kind,
		Attributes: []abi.Attribute{
			attr("connection_id", connectionID),
			attr("client_id", conn.ClientID),
			attr("counterparty_client_id", conn.Counterparty.ClientID),
			attr("counterparty_connection_id", conn.Counterparty.ConnectionID),
		},
	}
}

func channelEvent(kind, portID, channelID string, ch ChannelEnd) abi.Event {
	return abi.Event{
		Type: kind,
		Attributes: []abi.Attribute{
			attr("port_id", portID),
			attr("channel_id", channelID),
			attr("counterparty_port_id", ch.Counterparty.PortID),
			attr("counterparty_channel_id", ch.Counterparty.ChannelID),
			attr("connection_id", firstHop(ch)),
		},
	}
}

func packetEvent(kind string, packet Packet, channel ChannelEnd) abi.Event {
	return abi.Event{
		Type: kind,
		Attributes: []abi.Attribute{
			attr("packet_sequence", fmt.Sprintf("%d", packet.Sequence)),
			attr("packet_src_port", packet.SourcePort),
			attr("packet_src_channel", packet.SourceChannel),
			attr("packet_dst_port", packet.DestinationPort),
			attr("packet_dst_channel", packet.DestinationChannel),
			attr("packet_timeout_height", packet.TimeoutHeight.String()),
			attr("packet_timeout_timestamp", fmt.Sprintf("%d", packet.TimeoutTimestamp)),
			attr("packet_channel_ordering", channel.Ordering.String()),
		},
	}
}

func firstHop(ch ChannelEnd) string {
	if len(ch.ConnectionHops) == 0 {
		return ""
	}
	return ch.ConnectionHops[0]
}
