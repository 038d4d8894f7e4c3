// Package transfer implements a fungible token transfer application bound
// to the IBC port "transfer": outbound tokens are escrowed and sent as
// packets, inbound tokens are minted as vouchers, and failed or timed-out
// packets are refunded.
package transfer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blockberries/blockberry/abi"

	"github.com/blockberries/hostberry/modules"
	"github.com/blockberries/hostberry/modules/bank"
	"github.com/blockberries/hostberry/modules/ibc"
	"github.com/blockberries/hostberry/store"
	"github.com/blockberries/hostberry/types"
)

// ModuleName is both the module's store prefix and its bound port.
const ModuleName store.Identifier = "transfer"

// PortID is the IBC port the module binds.
const PortID = "transfer"

// MsgTransferURL routes transfer messages to this module.
const MsgTransferURL = "/hostberry.transfer.v1.MsgTransfer"

// MsgTransfer sends a token to a receiver on the chain at the other end of
// the channel.
type MsgTransfer struct {
	SourcePort       string     `cramberry:"1"`
	SourceChannel    string     `cramberry:"2"`
	Token            bank.Coin  `cramberry:"3"`
	Sender           string     `cramberry:"4"`
	Receiver         string     `cramberry:"5"`
	TimeoutHeight    ibc.Height `cramberry:"6"`
	TimeoutTimestamp uint64     `cramberry:"7"`
}

// PacketData is the JSON payload of a transfer packet.
type PacketData struct {
	Denom    string `json:"denom"`
	Amount   string `json:"amount"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
}

// Acknowledgements are JSON: {"result":"success"} or {"error":"reason"}.
type acknowledgement struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func successAck() []byte {
	data, _ := json.Marshal(acknowledgement{Result: "success"})
	return data
}

func errorAck(reason string) []byte {
	data, _ := json.Marshal(acknowledgement{Error: reason})
	return data
}

// Module is the transfer application.
type Module struct {
	ibc    *ibc.Module
	keeper bank.Keeper
}

var (
	_ modules.Module = (*Module)(nil)
	_ ibc.PortModule = (*Module)(nil)
)

// New wires the transfer module to the IBC host module and the bank keeper,
// and binds the transfer port.
func New(ibcModule *ibc.Module, keeper bank.Keeper) (*Module, error) {
	m := &Module{ibc: ibcModule, keeper: keeper}
	if err := ibcModule.BindPort(PortID, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Name returns the module's store prefix.
func (m *Module) Name() store.Identifier { return ModuleName }

// MessageTypes returns the module's message domain.
func (m *Module) MessageTypes() []string { return []string{MsgTransferURL} }

// Init has no genesis state of its own.
func (m *Module) Init(store.Scope, json.RawMessage) error { return nil }

// Check validates the static shape of a transfer.
func (m *Module) Check(_ store.Scope, msg types.Msg) error {
	var transfer MsgTransfer
	if err := types.DecodeMsg(msg, &transfer); err != nil {
		return err
	}
	return validateTransfer(transfer)
}

// Deliver escrows (or burns) the token and commits the packet.
func (m *Module) Deliver(scope store.Scope, msg types.Msg, signer string) ([]abi.Event, error) {
	if msg.TypeURL != MsgTransferURL {
		return nil, types.ErrUnroutable(msg.TypeURL)
	}
	var transfer MsgTransfer
	if err := types.DecodeMsg(msg, &transfer); err != nil {
		return nil, err
	}
	if err := validateTransfer(transfer); err != nil {
		return nil, err
	}

	bankKV := m.bankKV(scope)
	coins := []bank.Coin{transfer.Token}
	if isVoucher(transfer.SourcePort, transfer.SourceChannel, transfer.Token.Denom) {
		// Returning a voucher to its origin burns it here.
		if err := m.keeper.BurnCoins(bankKV, transfer.Sender, coins); err != nil {
			return nil, err
		}
	} else {
		if err := m.keeper.SendCoins(bankKV, transfer.Sender,
			escrowAddress(transfer.SourcePort, transfer.SourceChannel), coins); err != nil {
			return nil, err
		}
	}

	data, err := json.Marshal(PacketData{
		Denom:    transfer.Token.Denom,
		Amount:   transfer.Token.Amount,
		Sender:   transfer.Sender,
		Receiver: transfer.Receiver,
	})
	if err != nil {
		return nil, types.ErrInvalidMessage("encoding packet data: %v", err)
	}

	ctx := m.ibc.Context(scope)
	seq, err := ctx.SendPacket(transfer.SourcePort, transfer.SourceChannel, data,
		transfer.TimeoutHeight, transfer.TimeoutTimestamp)
	if err != nil {
		return nil, err
	}

	events := []abi.Event{{
		Type: "ibc_transfer",
		Attributes: []abi.Attribute{
			{Key: "sender", Value: []byte(transfer.Sender), Index: true},
			{Key: "receiver", Value: []byte(transfer.Receiver), Index: true},
			{Key: "denom", Value: []byte(transfer.Token.Denom), Index: true},
			{Key: "amount", Value: []byte(transfer.Token.Amount)},
			{Key: "sequence", Value: []byte(fmt.Sprintf("%d", seq))},
		},
	}}
	return append(events, ctx.Events()...), nil
}

// BeginBlock is a no-op for transfer.
func (m *Module) BeginBlock(store.Scope, *abi.BlockHeader) []abi.Event { return nil }

// Query answers escrow balance reads: escrow/{port}/{channel}.
func (m *Module) Query(scope store.Scope, path store.Path, _ []byte) ([]byte, error) {
	segments := strings.Split(path.String(), "/")
	if len(segments) == 3 && segments[0] == "escrow" {
		balance := m.keeper.Balances(m.bankKV(scope), escrowAddress(segments[1], segments[2]))
		return json.Marshal(balance)
	}
	return nil, types.ErrNotFound("unknown transfer query %q", path)
}

// --- ibc.PortModule ---

// OnRecvPacket credits the receiver: vouchers coming home are released from
// escrow, foreign tokens are minted under their voucher denom. Failures are
// reported in the acknowledgement.
func (m *Module) OnRecvPacket(ctx *ibc.Context, packet ibc.Packet) []byte {
	var data PacketData
	if err := json.Unmarshal(packet.Data, &data); err != nil {
		return errorAck("malformed transfer packet data")
	}
	bankKV := m.bankKV(ctx.Scope())
	coin := bank.Coin{Denom: data.Denom, Amount: data.Amount}

	if isVoucher(packet.SourcePort, packet.SourceChannel, data.Denom) {
		// The token originated here; release it from escrow.
		unwrapped := strings.TrimPrefix(data.Denom,
			voucherPrefix(packet.SourcePort, packet.SourceChannel))
		coin.Denom = unwrapped
		if err := m.keeper.SendCoins(bankKV,
			escrowAddress(packet.DestinationPort, packet.DestinationChannel),
			data.Receiver, []bank.Coin{coin}); err != nil {
			return errorAck(err.Error())
		}
		return successAck()
	}

	coin.Denom = voucherPrefix(packet.DestinationPort, packet.DestinationChannel) + data.Denom
	if err := m.keeper.MintCoins(bankKV, data.Receiver, []bank.Coin{coin}); err != nil {
		return errorAck(err.Error())
	}
	return successAck()
}

// OnAcknowledgePacket refunds the sender when the receiving chain reported
// an error.
func (m *Module) OnAcknowledgePacket(ctx *ibc.Context, packet ibc.Packet, ack []byte) error {
	var parsed acknowledgement
	if err := json.Unmarshal(ack, &parsed); err != nil {
		return types.ErrInvalidMessage("malformed transfer acknowledgement")
	}
	if parsed.Error == "" {
		return nil
	}
	return m.refund(ctx, packet)
}

// OnTimeoutPacket refunds the sender.
func (m *Module) OnTimeoutPacket(ctx *ibc.Context, packet ibc.Packet) error {
	return m.refund(ctx, packet)
}

func (m *Module) refund(ctx *ibc.Context, packet ibc.Packet) error {
	var data PacketData
	if err := json.Unmarshal(packet.Data, &data); err != nil {
		return types.ErrInvalidMessage("malformed transfer packet data")
	}
	bankKV := m.bankKV(ctx.Scope())
	coin := bank.Coin{Denom: data.Denom, Amount: data.Amount}
	if isVoucher(packet.SourcePort, packet.SourceChannel, data.Denom) {
		return m.keeper.MintCoins(bankKV, data.Sender, []bank.Coin{coin})
	}
	return m.keeper.SendCoins(bankKV,
		escrowAddress(packet.SourcePort, packet.SourceChannel),
		data.Sender, []bank.Coin{coin})
}

func (m *Module) bankKV(scope store.Scope) store.KV {
	return store.NewPrefixKV(bank.ModuleName, scope.Provable())
}

func validateTransfer(transfer MsgTransfer) error {
	if transfer.SourcePort == "" || transfer.SourceChannel == "" {
		return types.ErrInvalidMessage("transfer requires a source port and channel")
	}
	if transfer.Sender == "" || transfer.Receiver == "" {
		return types.ErrInvalidMessage("transfer requires both sender and receiver")
	}
	if transfer.TimeoutHeight.IsZero() && transfer.TimeoutTimestamp == 0 {
		return types.ErrInvalidMessage("transfer needs a timeout height or timestamp")
	}
	return transfer.Token.Validate()
}

// voucherPrefix is the denom prefix tokens carry on the chain they were
// transferred to: {port}/{channel}/.
func voucherPrefix(portID, channelID string) string {
	return portID + "/" + channelID + "/"
}

func isVoucher(portID, channelID, denom string) bool {
	return strings.HasPrefix(denom, voucherPrefix(portID, channelID))
}

// escrowAddress derives the module account holding escrowed tokens for a
// channel.
func escrowAddress(portID, channelID string) string {
	return fmt.Sprintf("%s-%s-escrow", portID, channelID)
}
