// Package blockchain implements the blockchain bounded context for Ethereum integration.
package blockchain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/flashloan-arb/business/blockchain/app"
	blockchainDI "github.com/fd1az/flashloan-arb/business/blockchain/di"
	"github.com/fd1az/flashloan-arb/business/blockchain/infra/ethereum"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct {
	client *ethereum.Client
}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.Client, func(sr di.ServiceRegistry) *ethereum.Client {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		backend := sr.Get("ethClient").(*ethclient.Client)

		client, err := ethereum.NewClient(backend, ethereum.ClientConfig{
			CallTimeout: cfg.Chain.RPCTimeout,
			GasCacheTTL: cfg.Chain.GasCacheTTL,
		}, log)
		if err != nil {
			panic("failed to create chain client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, blockchainDI.ChainReader, func(sr di.ServiceRegistry) app.ChainReader {
		return blockchainDI.GetClient(sr)
	})

	di.RegisterToken(c, blockchainDI.Gate, func(sr di.ServiceRegistry) *app.Gate {
		return app.NewGate(blockchainDI.GetChainReader(sr))
	})

	di.RegisterToken(c, blockchainDI.FlashLoanInvoker, func(sr di.ServiceRegistry) app.FlashLoanInvoker {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		backend := sr.Get("ethClient").(*ethclient.Client)

		inv, err := ethereum.NewInvoker(backend, cfg.Executor.StageTimeout, log)
		if err != nil {
			panic("failed to create flash loan invoker: " + err.Error())
		}
		return inv
	})

	return nil
}

// Startup registers the chain_rpc health check.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	client := blockchainDI.GetClient(mono.Services())
	m.client = client

	mono.Health().RegisterCheck("chain_rpc", func(ctx context.Context) (bool, string) {
		block, err := client.LatestBlock(ctx)
		if err != nil {
			return false, err.Error()
		}
		return true, fmt.Sprintf("head %d", block)
	})

	mono.Logger().Info(ctx, "blockchain module started", "rpc_url", mono.Config().Chain.RPCURL)
	return nil
}

// Shutdown releases the chain client cache.
func (m *Module) Shutdown(_ context.Context) error {
	if m.client != nil {
		m.client.Close()
	}
	return nil
}
