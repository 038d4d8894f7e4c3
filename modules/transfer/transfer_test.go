package transfer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/blockberries/blockberry/abi"
	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/hostberry/modules/bank"
	"github.com/blockberries/hostberry/modules/ibc"
	"github.com/blockberries/hostberry/store"
	"github.com/blockberries/hostberry/types"
)

var blockTime = time.Unix(1700000000, 0).UTC()

type fixture struct {
	t        *testing.T
	state    *store.State
	bank     *bank.Module
	ibc      *ibc.Module
	transfer *Module
}

// newFixture seeds balances and an OPEN transfer channel. The channel end
// and its sequences are written directly; the handshake itself is covered
// by the ibc package tests.
func newFixture(t *testing.T, accounts map[string]map[string]string) *fixture {
	state := store.NewMemoryState(100)
	t.Cleanup(func() { state.Close() })

	bankMod := bank.New()
	ibcMod := ibc.New(1)
	transferMod, err := New(ibcMod, bankMod.Keeper())
	require.NoError(t, err)

	doc, err := json.Marshal(accounts)
	require.NoError(t, err)
	require.NoError(t, bankMod.Init(state.Deliver(), doc))
	require.NoError(t, ibcMod.Init(state.Deliver(), nil))

	kv := store.NewPrefixKV(ibc.ModuleName, state.Deliver().Provable())
	channel := ibc.ChannelEnd{
		State:    ibc.ChannelOpen,
		Ordering: ibc.OrderUnordered,
		Counterparty: ibc.ChannelCounterparty{
			PortID:    PortID,
			ChannelID: "channel-9",
		},
		ConnectionHops: []string{"connection-0"},
		Version:        "ics20-1",
	}
	data, err := cramberry.Marshal(channel)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ibc.ChannelPath(PortID, "channel-0"), data))
	one, err := store.U64Codec{}.Encode(1)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ibc.NextSequenceSendPath(PortID, "channel-0"), one))
	require.NoError(t, kv.Set(ibc.NextSequenceRecvPath(PortID, "channel-0"), one))
	require.NoError(t, kv.Set(ibc.NextSequenceAckPath(PortID, "channel-0"), one))

	require.NoError(t, state.ApplyTx())
	_, _, err = state.Commit()
	require.NoError(t, err)

	ibcMod.BeginBlock(state.Deliver(), &abi.BlockHeader{Height: 1, Time: blockTime})
	require.NoError(t, state.ApplyTx())

	return &fixture{t: t, state: state, bank: bankMod, ibc: ibcMod, transfer: transferMod}
}

func (f *fixture) balance(account string) bank.Balance {
	return f.bank.Keeper().Balances(
		store.NewPrefixKV(bank.ModuleName, f.state.Deliver().Provable()), account)
}

func transferMsg(t *testing.T, sender, receiver, denom, amount string) types.Msg {
	t.Helper()
	msg, err := types.NewMsg(MsgTransferURL, MsgTransfer{
		SourcePort:    PortID,
		SourceChannel: "channel-0",
		Token:         bank.Coin{Denom: denom, Amount: amount},
		Sender:        sender,
		Receiver:      receiver,
		TimeoutHeight: ibc.NewHeight(1, 1000),
	})
	require.NoError(t, err)
	return msg
}

func TestTransfer_EscrowsAndCommits(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{"alice": {"coin": "100"}})

	events, err := f.transfer.Deliver(f.state.Deliver(), transferMsg(t, "alice", "bob", "coin", "40"), "alice")
	require.NoError(t, err)
	require.NoError(t, f.state.ApplyTx())

	require.Equal(t, "60", f.balance("alice")["coin"])
	require.Equal(t, "40", f.balance(escrowAddress(PortID, "channel-0"))["coin"])

	// A send_packet event rode along with the transfer event.
	kinds := map[string]bool{}
	for _, ev := range events {
		kinds[ev.Type] = true
	}
	require.True(t, kinds["ibc_transfer"])
	require.True(t, kinds[ibc.EventSendPacket])

	ctx := f.ibc.Context(f.state.Deliver())
	_, ok := ctx.PacketCommitment(PortID, "channel-0", 1)
	require.True(t, ok)
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{"alice": {"coin": "10"}})

	_, err := f.transfer.Deliver(f.state.Deliver(), transferMsg(t, "alice", "bob", "coin", "40"), "alice")
	require.Error(t, err)
	f.state.ResetTx()

	require.Equal(t, "10", f.balance("alice")["coin"])
}

func TestTransfer_RecvMintsVoucher(t *testing.T) {
	f := newFixture(t, nil)

	data, err := json.Marshal(PacketData{
		Denom:    "atom",
		Amount:   "25",
		Sender:   "remote-sender",
		Receiver: "bob",
	})
	require.NoError(t, err)
	packet := ibc.Packet{
		Sequence:           1,
		SourcePort:         PortID,
		SourceChannel:      "channel-9",
		DestinationPort:    PortID,
		DestinationChannel: "channel-0",
		Data:               data,
	}

	ctx := f.ibc.Context(f.state.Deliver())
	ack := f.transfer.OnRecvPacket(ctx, packet)
	require.NoError(t, f.state.ApplyTx())

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(ack, &parsed))
	require.Equal(t, "success", parsed["result"])

	voucher := "transfer/channel-0/atom"
	require.Equal(t, "25", f.balance("bob")[voucher])
}

func TestTransfer_TimeoutRefunds(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{"alice": {"coin": "100"}})

	_, err := f.transfer.Deliver(f.state.Deliver(), transferMsg(t, "alice", "bob", "coin", "40"), "alice")
	require.NoError(t, err)
	require.NoError(t, f.state.ApplyTx())
	require.Equal(t, "60", f.balance("alice")["coin"])

	data, err := json.Marshal(PacketData{
		Denom:    "coin",
		Amount:   "40",
		Sender:   "alice",
		Receiver: "bob",
	})
	require.NoError(t, err)
	packet := ibc.Packet{
		Sequence:           1,
		SourcePort:         PortID,
		SourceChannel:      "channel-0",
		DestinationPort:    PortID,
		DestinationChannel: "channel-9",
		Data:               data,
	}

	ctx := f.ibc.Context(f.state.Deliver())
	require.NoError(t, f.transfer.OnTimeoutPacket(ctx, packet))
	require.NoError(t, f.state.ApplyTx())

	require.Equal(t, "100", f.balance("alice")["coin"])
	require.Empty(t, f.balance(escrowAddress(PortID, "channel-0")))
}

func TestTransfer_ErrorAckRefunds(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{"alice": {"coin": "100"}})

	_, err := f.transfer.Deliver(f.state.Deliver(), transferMsg(t, "alice", "bob", "coin", "40"), "alice")
	require.NoError(t, err)
	require.NoError(t, f.state.ApplyTx())

	data, err := json.Marshal(PacketData{
		Denom: "coin", Amount: "40", Sender: "alice", Receiver: "bob",
	})
	require.NoError(t, err)
	packet := ibc.Packet{
		Sequence:      1,
		SourcePort:    PortID,
		SourceChannel: "channel-0",
		Data:          data,
	}

	ctx := f.ibc.Context(f.state.Deliver())

	// Success acks leave the escrow alone.
	require.NoError(t, f.transfer.OnAcknowledgePacket(ctx, packet, []byte(`{"result":"success"}`)))
	require.Equal(t, "60", f.balance("alice")["coin"])

	// Error acks refund.
	require.NoError(t, f.transfer.OnAcknowledgePacket(ctx, packet, []byte(`{"error":"denied"}`)))
	require.NoError(t, f.state.ApplyTx())
	require.Equal(t, "100", f.balance("alice")["coin"])
}
