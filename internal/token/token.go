// Package token describes ERC-20 tokens and converts between raw and display units.
package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptySymbol     = errors.New("token: empty symbol")
	ErrZeroAddress     = errors.New("token: zero address")
	ErrTooManyDecimals = errors.New("token: decimals above 30")
	ErrSameToken       = errors.New("token: pair uses the same token twice")
)

// Token is an ERC-20 identified by its address. Symbol is display metadata only.
type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}

// New validates and builds a Token.
func New(address, symbol string, decimals uint8) (Token, error) {
	if symbol == "" {
		return Token{}, ErrEmptySymbol
	}
	if !common.IsHexAddress(address) {
		return Token{}, fmt.Errorf("token %s: invalid address %q", symbol, address)
	}
	addr := common.HexToAddress(address)
	if addr == (common.Address{}) {
		return Token{}, ErrZeroAddress
	}
	if decimals > 30 {
		return Token{}, ErrTooManyDecimals
	}
	return Token{Address: addr, Symbol: symbol, Decimals: decimals}, nil
}

// ToRaw converts a display amount (1.5 WETH) into smallest units, truncating dust.
func (t Token) ToRaw(amount decimal.Decimal) *big.Int {
	return amount.Shift(int32(t.Decimals)).Truncate(0).BigInt()
}

// FromRaw converts smallest units into a display amount.
func (t Token) FromRaw(raw *big.Int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(t.Decimals))
}

func (t Token) String() string {
	return t.Symbol
}

// Pair is an ordered swap direction: In is sold for Out.
type Pair struct {
	In  Token `json:"tokenIn"`
	Out Token `json:"tokenOut"`
}

// NewPair validates that in and out differ.
func NewPair(in, out Token) (Pair, error) {
	if in.Address == out.Address {
		return Pair{}, ErrSameToken
	}
	return Pair{In: in, Out: out}, nil
}

// Key is the stable identifier used in ids and maps.
func (p Pair) Key() string {
	return p.In.Symbol + "-" + p.Out.Symbol
}

// Reverse returns the opposite direction.
func (p Pair) Reverse() Pair {
	return Pair{In: p.Out, Out: p.In}
}

func (p Pair) String() string {
	return p.In.Symbol + "/" + p.Out.Symbol
}
