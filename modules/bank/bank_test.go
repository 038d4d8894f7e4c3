package bank

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/hostberry/store"
	"github.com/blockberries/hostberry/types"
)

func genesisDoc(t *testing.T, accounts map[string]map[string]string) json.RawMessage {
	t.Helper()
	doc, err := json.Marshal(accounts)
	require.NoError(t, err)
	return doc
}

func sendMsg(t *testing.T, from, to string, coins ...Coin) types.Msg {
	t.Helper()
	msg, err := types.NewMsg(MsgSendURL, MsgSend{
		FromAddress: from,
		ToAddress:   to,
		Amount:      coins,
	})
	require.NoError(t, err)
	return msg
}

func newBankFixture(t *testing.T, accounts map[string]map[string]string) (*Module, *store.State) {
	t.Helper()
	state := store.NewMemoryState(100)
	t.Cleanup(func() { state.Close() })

	m := New()
	require.NoError(t, m.Init(state.Deliver(), genesisDoc(t, accounts)))
	require.NoError(t, state.ApplyTx())
	_, _, err := state.Commit()
	require.NoError(t, err)
	return m, state
}

func balanceOf(t *testing.T, m *Module, state *store.State, account string) Balance {
	t.Helper()
	scope, err := state.QueryAt(store.Latest)
	require.NoError(t, err)
	value, err := m.Query(scope, store.NewPath("balance", account), nil)
	require.NoError(t, err)
	var balance Balance
	require.NoError(t, json.Unmarshal(value, &balance))
	return balance
}

func TestBank_GenesisAndSend(t *testing.T) {
	m, state := newBankFixture(t, map[string]map[string]string{
		"A": {"coin": "1000"},
		"B": {"coin": "0"},
	})

	scope := state.Deliver()
	events, err := m.Deliver(scope, sendMsg(t, "A", "B", Coin{Denom: "coin", Amount: "100"}), "A")
	require.NoError(t, err)
	require.NoError(t, state.ApplyTx())
	_, _, err = state.Commit()
	require.NoError(t, err)

	require.Len(t, events, 1)
	require.Equal(t, "transfer", events[0].Type)

	require.Equal(t, "900", balanceOf(t, m, state, "A")["coin"])
	require.Equal(t, "100", balanceOf(t, m, state, "B")["coin"])
}

func TestBank_OverdraftFails(t *testing.T) {
	m, state := newBankFixture(t, map[string]map[string]string{
		"A": {"coin": "5"},
	})
	before := state.AppHash()

	scope := state.Deliver()
	_, err := m.Deliver(scope, sendMsg(t, "A", "B", Coin{Denom: "coin", Amount: "10"}), "A")
	require.Error(t, err)
	require.Equal(t, types.CodeOf(types.ErrInsufficientFunds("")), types.CodeOf(err))
	state.ResetTx()

	_, _, err = state.Commit()
	require.NoError(t, err)
	require.Equal(t, before, state.AppHash())
	require.Equal(t, "5", balanceOf(t, m, state, "A")["coin"])
}

func TestBank_SupplyConservation(t *testing.T) {
	m, state := newBankFixture(t, map[string]map[string]string{
		"A": {"coin": "600"},
		"B": {"coin": "400"},
	})

	scope := state.Deliver()
	for _, transfer := range []struct {
		from, to, amount string
	}{
		{"A", "B", "17"},
		{"B", "A", "200"},
		{"A", "C", "50"},
	} {
		_, err := m.Deliver(scope, sendMsg(t, transfer.from, transfer.to,
			Coin{Denom: "coin", Amount: transfer.amount}), transfer.from)
		require.NoError(t, err)
		require.NoError(t, state.ApplyTx())
	}
	_, _, err := state.Commit()
	require.NoError(t, err)

	total := new(big.Int)
	for _, account := range []string{"A", "B", "C"} {
		total.Add(total, balanceOf(t, m, state, account).Amount("coin"))
	}
	require.Equal(t, "1000", total.String())

	// Recorded supply stays at the minted total.
	require.Equal(t, "1000", m.Keeper().Supply(
		store.NewPrefixKV(ModuleName, state.Deliver().Provable()), "coin").String())
}

func TestBank_CheckValidates(t *testing.T) {
	m, state := newBankFixture(t, map[string]map[string]string{
		"A": {"coin": "10"},
	})

	check := state.Check()
	require.NoError(t, m.Check(check, sendMsg(t, "A", "B", Coin{Denom: "coin", Amount: "10"})))
	require.Error(t, m.Check(check, sendMsg(t, "A", "B", Coin{Denom: "coin", Amount: "11"})))
	require.Error(t, m.Check(check, sendMsg(t, "A", "B", Coin{Denom: "coin", Amount: "-1"})))
	require.Error(t, m.Check(check, sendMsg(t, "", "B", Coin{Denom: "coin", Amount: "1"})))
}

func TestBank_SelfSend(t *testing.T) {
	m, state := newBankFixture(t, map[string]map[string]string{
		"A": {"coin": "10"},
	})

	scope := state.Deliver()
	_, err := m.Deliver(scope, sendMsg(t, "A", "A", Coin{Denom: "coin", Amount: "10"}), "A")
	require.NoError(t, err)
	require.NoError(t, state.ApplyTx())
	_, _, err = state.Commit()
	require.NoError(t, err)

	require.Equal(t, "10", balanceOf(t, m, state, "A")["coin"])

	// A self-send is still a validated transfer: overdrafts fail.
	_, err = m.Deliver(state.Deliver(), sendMsg(t, "A", "A", Coin{Denom: "coin", Amount: "11"}), "A")
	require.Error(t, err)
	state.ResetTx()
	require.Equal(t, "10", balanceOf(t, m, state, "A")["coin"])
}

func TestParseAmount_Bounds(t *testing.T) {
	_, err := ParseAmount("0")
	require.NoError(t, err)

	// 2^256 - 1 is the last representable amount.
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	_, err = ParseAmount(max.String())
	require.NoError(t, err)
	_, err = ParseAmount(new(big.Int).Add(max, big.NewInt(1)).String())
	require.Error(t, err)
	_, err = ParseAmount("-5")
	require.Error(t, err)
	_, err = ParseAmount("12x")
	require.Error(t, err)
}
