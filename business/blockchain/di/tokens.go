// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/blockchain/app"
	"github.com/fd1az/flashloan-arb/business/blockchain/infra/ethereum"
	"github.com/fd1az/flashloan-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ChainReader      = di.NewToken[app.ChainReader]("blockchain.ChainReader")
	Gate             = di.NewToken[*app.Gate]("blockchain.Gate")
	FlashLoanInvoker = di.NewToken[app.FlashLoanInvoker]("blockchain.FlashLoanInvoker")
)

// Private dependency tokens - internal to blockchain module
var (
	Client = di.NewToken[*ethereum.Client]("blockchain:client")
)

// Helper functions for type-safe access
func GetChainReader(c di.ServiceRegistry) app.ChainReader {
	return di.GetToken(c, ChainReader)
}

func GetGate(c di.ServiceRegistry) *app.Gate {
	return di.GetToken(c, Gate)
}

func GetFlashLoanInvoker(c di.ServiceRegistry) app.FlashLoanInvoker {
	return di.GetToken(c, FlashLoanInvoker)
}

func GetClient(c di.ServiceRegistry) *ethereum.Client {
	return di.GetToken(c, Client)
}
