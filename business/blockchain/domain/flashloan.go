package domain

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SwapCall is one encoded swap the execution contract forwards to a router.
type SwapCall struct {
	Target   common.Address
	CallData []byte
}

// Empty reports whether the call cannot be executed.
func (s SwapCall) Empty() bool {
	return s.Target == (common.Address{}) || len(s.CallData) == 0
}

// FlashLoanRequest is everything the execution contract needs for one atomic round trip.
// FirstLeg swaps the borrowed asset out, SecondLeg swaps it back.
type FlashLoanRequest struct {
	Contract  common.Address
	Asset     common.Address
	Amount    *big.Int
	FirstLeg  SwapCall
	SecondLeg SwapCall
	MinProfit *big.Int
	Signer    *ecdsa.PrivateKey
}

// FlashLoanReceipt identifies a submitted transaction.
type FlashLoanReceipt struct {
	TxHash   common.Hash
	From     common.Address
	Nonce    uint64
	GasLimit uint64
}
