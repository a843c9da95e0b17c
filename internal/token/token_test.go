package token

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

const (
	wethAddr = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	usdcAddr = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

func mustToken(t *testing.T, addr, sym string, dec uint8) Token {
	t.Helper()
	tok, err := New(addr, sym, dec)
	if err != nil {
		t.Fatalf("New(%s): %v", sym, err)
	}
	return tok
}

func TestToken_RawConversion(t *testing.T) {
	tests := []struct {
		name     string
		decimals uint8
		display  string
		raw      string
	}{
		{"weth_one", 18, "1", "1000000000000000000"},
		{"weth_fraction", 18, "0.5", "500000000000000000"},
		{"usdc_10k", 6, "10000", "10000000000"},
		{"usdc_dust_truncated", 6, "1.0000001", "1000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := mustToken(t, usdcAddr, "TKN", tt.decimals)

			raw := tok.ToRaw(decimal.RequireFromString(tt.display))
			if raw.String() != tt.raw {
				t.Errorf("ToRaw = %s, want %s", raw, tt.raw)
			}

			want, _ := new(big.Int).SetString(tt.raw, 10)
			back := tok.FromRaw(want)
			if !back.Equal(decimal.RequireFromString(tt.display).Truncate(int32(tt.decimals))) {
				t.Errorf("FromRaw = %s", back)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		sym     string
		dec     uint8
		wantErr bool
	}{
		{"valid", wethAddr, "WETH", 18, false},
		{"empty_symbol", wethAddr, "", 18, true},
		{"bad_address", "0x123", "WETH", 18, true},
		{"zero_address", "0x0000000000000000000000000000000000000000", "ZERO", 18, true},
		{"too_many_decimals", wethAddr, "WETH", 31, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.addr, tt.sym, tt.dec)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPair(t *testing.T) {
	weth := mustToken(t, wethAddr, "WETH", 18)
	usdc := mustToken(t, usdcAddr, "USDC", 6)

	p, err := NewPair(weth, usdc)
	if err != nil {
		t.Fatal(err)
	}
	if p.Key() != "WETH-USDC" {
		t.Errorf("Key = %s", p.Key())
	}
	if p.Reverse().In.Symbol != "USDC" {
		t.Errorf("Reverse = %s", p.Reverse())
	}
	if _, err := NewPair(weth, weth); err == nil {
		t.Error("expected same-token error")
	}
}
