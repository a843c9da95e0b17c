// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Scanner  = di.NewToken[*app.Scanner]("arbitrage.Scanner")
	Executor = di.NewToken[*app.Executor]("arbitrage.Executor")
	Hub      = di.NewToken[*app.Hub]("arbitrage.Hub")
	Storage  = di.NewToken[app.Storage]("arbitrage.Storage")
)

// Private dependency tokens - internal to arbitrage module
var (
	Registry = di.NewToken[*app.Registry]("arbitrage:registry")
	Notifier = di.NewToken[app.Notifier]("arbitrage:notifier")
	Pool     = di.NewToken[*app.ExecutionPool]("arbitrage:pool")
)

// Helper functions for type-safe access
func GetScanner(c di.ServiceRegistry) *app.Scanner {
	return di.GetToken(c, Scanner)
}

func GetExecutor(c di.ServiceRegistry) *app.Executor {
	return di.GetToken(c, Executor)
}

func GetHub(c di.ServiceRegistry) *app.Hub {
	return di.GetToken(c, Hub)
}

func GetStorage(c di.ServiceRegistry) app.Storage {
	return di.GetToken(c, Storage)
}

func GetRegistry(c di.ServiceRegistry) *app.Registry {
	return di.GetToken(c, Registry)
}

func GetNotifier(c di.ServiceRegistry) app.Notifier {
	return di.GetToken(c, Notifier)
}

func GetPool(c di.ServiceRegistry) *app.ExecutionPool {
	return di.GetToken(c, Pool)
}
