// Package bank implements the fungible-token module: account balances,
// transfers, and per-denom supply.
package bank

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/blockberries/blockberry/abi"

	"github.com/blockberries/hostberry/modules"
	"github.com/blockberries/hostberry/store"
	"github.com/blockberries/hostberry/types"
)

// ModuleName is the bank module's store prefix.
const ModuleName store.Identifier = "bank"

// MsgSendURL routes transfer messages to this module.
const MsgSendURL = "/hostberry.bank.v1.MsgSend"

// MsgSend moves coins between two accounts. Signature verification is
// external; the aggregator guarantees signer == FromAddress's signer.
type MsgSend struct {
	FromAddress string `cramberry:"1"`
	ToAddress   string `cramberry:"2"`
	Amount      []Coin `cramberry:"3"`
}

// Store layout (provable sub-store, relative to the bank prefix):
//
//	balances/{account} -> JSON denom->amount
//	supply/{denom}     -> decimal amount
func balancePath(account string) store.Path {
	return store.NewPath("balances", account)
}

func supplyPath(denom string) store.Path {
	return store.NewPath("supply", denom)
}

// Module is the bank module.
type Module struct {
	keeper Keeper
}

var _ modules.Module = (*Module)(nil)

// New creates the bank module.
func New() *Module {
	return &Module{}
}

// Keeper returns the coin-moving API other modules (transfer) use.
func (m *Module) Keeper() Keeper { return m.keeper }

// Name returns the module's store prefix.
func (m *Module) Name() store.Identifier { return ModuleName }

// MessageTypes returns the message domain of the module.
func (m *Module) MessageTypes() []string {
	return []string{MsgSendURL}
}

// Init seeds balances from the genesis document: a mapping
// account -> denom -> amount-string.
func (m *Module) Init(scope store.Scope, appState json.RawMessage) error {
	if len(appState) == 0 {
		return nil
	}
	var accounts map[string]map[string]string
	if err := json.Unmarshal(appState, &accounts); err != nil {
		return types.ErrInvalidMessage("bank genesis: %v", err)
	}
	kv := m.prefixed(scope)
	for account, balances := range accounts {
		coins := make([]Coin, 0, len(balances))
		for denom, amount := range balances {
			coins = append(coins, Coin{Denom: denom, Amount: amount})
		}
		if err := m.keeper.MintCoins(kv, account, coins); err != nil {
			return err
		}
	}
	return nil
}

// Check validates a MsgSend without executing it: well-formed coins and a
// sufficient source balance against the latest committed state.
func (m *Module) Check(scope store.Scope, msg types.Msg) error {
	var send MsgSend
	if err := types.DecodeMsg(msg, &send); err != nil {
		return err
	}
	if err := validateSend(send); err != nil {
		return err
	}
	kv := m.prefixed(scope)
	balance := m.keeper.Balances(kv, send.FromAddress)
	for _, coin := range send.Amount {
		amount, err := ParseAmount(coin.Amount)
		if err != nil {
			return err
		}
		if balance.Amount(coin.Denom).Cmp(amount) < 0 {
			return types.ErrInsufficientFunds("account %s has %s %s, needs %s",
				send.FromAddress, balance.Amount(coin.Denom), coin.Denom, coin.Amount)
		}
	}
	return nil
}

// Deliver executes a MsgSend.
func (m *Module) Deliver(scope store.Scope, msg types.Msg, signer string) ([]abi.Event, error) {
	switch msg.TypeURL {
	case MsgSendURL:
		var send MsgSend
		if err := types.DecodeMsg(msg, &send); err != nil {
			return nil, err
		}
		if err := validateSend(send); err != nil {
			return nil, err
		}
		kv := m.prefixed(scope)
		if err := m.keeper.SendCoins(kv, send.FromAddress, send.ToAddress, send.Amount); err != nil {
			return nil, err
		}
		return []abi.Event{{
			Type: "transfer",
			Attributes: []abi.Attribute{
				{Key: "from", Value: []byte(send.FromAddress), Index: true},
				{Key: "to", Value: []byte(send.ToAddress), Index: true},
				{Key: "amount", Value: []byte(FormatCoins(send.Amount))},
			},
		}}, nil
	default:
		return nil, types.ErrUnroutable(msg.TypeURL)
	}
}

// BeginBlock is a no-op for bank.
func (m *Module) BeginBlock(store.Scope, *abi.BlockHeader) []abi.Event { return nil }

// Query answers the module namespace reads:
//
//	balance/{account} -> JSON denom->amount
//	supply/{denom}    -> decimal amount
func (m *Module) Query(scope store.Scope, path store.Path, _ []byte) ([]byte, error) {
	kv := m.prefixed(scope)
	segments := strings.Split(path.String(), "/")
	switch {
	case len(segments) == 2 && segments[0] == "balance":
		balance := m.keeper.Balances(kv, segments[1])
		return json.Marshal(balance)
	case len(segments) == 2 && segments[0] == "supply":
		return []byte(m.keeper.Supply(kv, segments[1]).String()), nil
	default:
		return nil, types.ErrNotFound("unknown bank query %q", path)
	}
}

func (m *Module) prefixed(scope store.Scope) store.KV {
	return store.NewPrefixKV(ModuleName, scope.Provable())
}

func validateSend(send MsgSend) error {
	if send.FromAddress == "" || send.ToAddress == "" {
		return types.ErrInvalidMessage("send requires both from and to addresses")
	}
	if len(send.Amount) == 0 {
		return types.ErrInvalidMessage("send carries no coins")
	}
	for _, coin := range send.Amount {
		if err := coin.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Keeper moves coins. It is stateless; every method takes the caller's
// prefixed KV so check and deliver scopes stay isolated.
type Keeper struct{}

// Balances returns an account's full balance.
func (Keeper) Balances(kv store.KV, account string) Balance {
	balances := store.NewJSON[Balance](kv)
	balance, ok, err := balances.Get(balancePath(account))
	if err != nil || !ok {
		return Balance{}
	}
	return balance
}

// Supply returns the recorded total supply of a denom.
func (Keeper) Supply(kv store.KV, denom string) *big.Int {
	data, ok := kv.Get(supplyPath(denom))
	if !ok {
		return new(big.Int)
	}
	amount, err := ParseAmount(string(data))
	if err != nil {
		return new(big.Int)
	}
	return amount
}

// SendCoins debits from and credits to. Fails without writing if any denom
// underflows; supply is unchanged. A self-send is validated like any other
// transfer but moves nothing: each coin's debit and credit cancel, so the
// balance is never rewritten.
func (k Keeper) SendCoins(kv store.KV, from, to string, coins []Coin) error {
	selfSend := from == to
	src := k.Balances(kv, from)
	var dst Balance
	if !selfSend {
		dst = k.Balances(kv, to)
	}
	for _, coin := range coins {
		amount, err := ParseAmount(coin.Amount)
		if err != nil {
			return err
		}
		have := src.Amount(coin.Denom)
		if have.Cmp(amount) < 0 {
			return types.ErrInsufficientFunds("account %s has %s %s, needs %s",
				from, have, coin.Denom, coin.Amount)
		}
		if selfSend {
			continue
		}
		total := new(big.Int).Add(dst.Amount(coin.Denom), amount)
		if total.Cmp(maxAmount) > 0 {
			return types.ErrInvalidMessage("credit overflows 256 bits for denom %s", coin.Denom)
		}
		src.set(coin.Denom, new(big.Int).Sub(have, amount))
		dst.set(coin.Denom, total)
	}
	if selfSend {
		return nil
	}
	balances := store.NewJSON[Balance](kv)
	if err := balances.Set(balancePath(from), src); err != nil {
		return err
	}
	return balances.Set(balancePath(to), dst)
}

// MintCoins credits an account and grows the recorded supply.
func (k Keeper) MintCoins(kv store.KV, account string, coins []Coin) error {
	balance := k.Balances(kv, account)
	for _, coin := range coins {
		amount, err := ParseAmount(coin.Amount)
		if err != nil {
			return err
		}
		total := new(big.Int).Add(balance.Amount(coin.Denom), amount)
		if total.Cmp(maxAmount) > 0 {
			return types.ErrInvalidMessage("mint overflows 256 bits for denom %s", coin.Denom)
		}
		balance.set(coin.Denom, total)

		supply := new(big.Int).Add(k.Supply(kv, coin.Denom), amount)
		if supply.Cmp(maxAmount) > 0 {
			return types.ErrInvalidMessage("supply overflows 256 bits for denom %s", coin.Denom)
		}
		if err := kv.Set(supplyPath(coin.Denom), []byte(supply.String())); err != nil {
			return err
		}
	}
	balances := store.NewJSON[Balance](kv)
	return balances.Set(balancePath(account), balance)
}

// BurnCoins debits an account and shrinks the recorded supply.
func (k Keeper) BurnCoins(kv store.KV, account string, coins []Coin) error {
	balance := k.Balances(kv, account)
	for _, coin := range coins {
		amount, err := ParseAmount(coin.Amount)
		if err != nil {
			return err
		}
		have := balance.Amount(coin.Denom)
		if have.Cmp(amount) < 0 {
			return types.ErrInsufficientFunds("account %s has %s %s, needs %s",
				account, have, coin.Denom, coin.Amount)
		}
		balance.set(coin.Denom, new(big.Int).Sub(have, amount))

		supply := new(big.Int).Sub(k.Supply(kv, coin.Denom), amount)
		if supply.Sign() < 0 {
			supply = new(big.Int)
		}
		if supply.Sign() == 0 {
			if err := kv.Delete(supplyPath(coin.Denom)); err != nil {
				return err
			}
		} else if err := kv.Set(supplyPath(coin.Denom), []byte(supply.String())); err != nil {
			return err
		}
	}
	balances := store.NewJSON[Balance](kv)
	return balances.Set(balancePath(account), balance)
}
