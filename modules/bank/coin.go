package bank

import (
	"math/big"
	"sort"

	"github.com/blockberries/hostberry/types"
)

// maxAmount caps balances at 2^256 - 1, the width of the amount domain.
var maxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Coin is a denominated amount on the wire. The amount travels as a decimal
// string so the full 256-bit range survives every codec.
type Coin struct {
	Denom  string `cramberry:"1" json:"denom"`
	Amount string `cramberry:"2" json:"amount"`
}

// ParseAmount parses a decimal amount string into the 256-bit domain.
func ParseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, types.ErrInvalidMessage("malformed amount %q", s)
	}
	if amount.Sign() < 0 {
		return nil, types.ErrInvalidMessage("negative amount %q", s)
	}
	if amount.Cmp(maxAmount) > 0 {
		return nil, types.ErrInvalidMessage("amount %q exceeds 256 bits", s)
	}
	return amount, nil
}

// Validate checks the coin's denom and amount.
func (c Coin) Validate() error {
	if c.Denom == "" {
		return types.ErrInvalidMessage("coin has empty denom")
	}
	_, err := ParseAmount(c.Amount)
	return err
}

func (c Coin) String() string {
	return c.Amount + c.Denom
}

// Balance is the stored form of an account's holdings: denom to decimal
// amount string, serialized as JSON.
type Balance map[string]string

// Amount returns the balance for denom, zero if absent.
func (b Balance) Amount(denom string) *big.Int {
	s, ok := b[denom]
	if !ok {
		return new(big.Int)
	}
	amount, err := ParseAmount(s)
	if err != nil {
		return new(big.Int)
	}
	return amount
}

func (b Balance) set(denom string, amount *big.Int) {
	if amount.Sign() == 0 {
		delete(b, denom)
		return
	}
	b[denom] = amount.String()
}

// Coins returns the balance as a sorted coin list.
func (b Balance) Coins() []Coin {
	denoms := make([]string, 0, len(b))
	for d := range b {
		denoms = append(denoms, d)
	}
	sort.Strings(denoms)
	coins := make([]Coin, 0, len(denoms))
	for _, d := range denoms {
		coins = append(coins, Coin{Denom: d, Amount: b[d]})
	}
	return coins
}

// FormatCoins renders a coin list as a single comma-joined attribute value.
func FormatCoins(coins []Coin) string {
	out := ""
	for i, c := range coins {
		if i > 0 {
			out += ","
		}
		out += c.String()
	}
	return out
}
