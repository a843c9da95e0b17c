// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/health"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	// Config returns the active configuration snapshot.
	Config() *config.Config
	ConfigWatcher() *config.Watcher
	Logger() logger.LoggerInterface
	EthClient() *ethclient.Client
	Health() *health.Server
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// Shutdowner is implemented by modules that own background work.
type Shutdowner interface {
	Shutdown(context.Context) error
}

type app struct {
	watcher   *config.Watcher
	logger    logger.LoggerInterface
	ethClient *ethclient.Client
	health    *health.Server
	container di.Container
}

// New dials the chain RPC and registers the shared services.
func New(watcher *config.Watcher, log logger.LoggerInterface, hs *health.Server) (*app, error) {
	cfg := watcher.Current()

	// HTTP endpoints dial lazily; failures surface on first call.
	ethClient, err := ethclient.Dial(cfg.Chain.RPCURL)
	if err != nil {
		return nil, err
	}

	container := di.NewContainer()
	container.Register("config", cfg)
	container.Register("configWatcher", watcher)
	container.Register("logger", log)
	container.Register("ethClient", ethClient)
	container.Register("health", hs)

	return &app{
		watcher:   watcher,
		logger:    log,
		ethClient: ethClient,
		health:    hs,
		container: container,
	}, nil
}

func (a *app) Config() *config.Config {
	return a.watcher.Current()
}

func (a *app) ConfigWatcher() *config.Watcher {
	return a.watcher
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) EthClient() *ethclient.Client {
	return a.ethClient
}

func (a *app) Health() *health.Server {
	return a.health
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// ShutdownModules stops modules in reverse start order.
func (a *app) ShutdownModules(ctx context.Context, modules ...Module) {
	for i := len(modules) - 1; i >= 0; i-- {
		s, ok := modules[i].(Shutdowner)
		if !ok {
			continue
		}
		if err := s.Shutdown(ctx); err != nil {
			a.logger.Warn(ctx, "module shutdown failed", "error", err)
		}
	}
}

// Close closes all resources.
func (a *app) Close() error {
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	return nil
}
