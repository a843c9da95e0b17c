// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
)

// ChainReader is the read-only chain surface shared by the scanner and executor.
type ChainReader interface {
	// GetGasPrice retrieves the current gas price.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)

	// GetNativeBalance returns the native token balance of addr in wei.
	GetNativeBalance(ctx context.Context, addr common.Address) (*big.Int, error)

	// GetCode returns the deployed bytecode at addr; empty means no contract.
	GetCode(ctx context.Context, addr common.Address) ([]byte, error)
}

// FlashLoanInvoker submits a flash-loan round trip to the execution contract.
type FlashLoanInvoker interface {
	InvokeFlashLoan(ctx context.Context, req domain.FlashLoanRequest) (*domain.FlashLoanReceipt, error)
}
