package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestGasPrice_Gwei(t *testing.T) {
	tests := []struct {
		name string
		wei  int64
		want string
	}{
		{"round", 60_000_000_000, "60"},
		{"fractional", 1_500_000_000, "1.5"},
		{"sub_gwei", 1, "0.000000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewGasPrice(big.NewInt(tt.wei)).Gwei()
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Gwei() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGweiToWei(t *testing.T) {
	got := GweiToWei(decimal.RequireFromString("80.5"))
	if got.Cmp(big.NewInt(80_500_000_000)) != 0 {
		t.Errorf("GweiToWei(80.5) = %s", got)
	}
}
