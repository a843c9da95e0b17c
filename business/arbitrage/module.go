// Package arbitrage implements the arbitrage bounded context: the opportunity
// scanner, the trade executor and their persistence and reporting surfaces.
package arbitrage

import (
	"context"
	"errors"
	"fmt"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/flashloan-arb/business/arbitrage/di"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/business/arbitrage/infra/httpapi"
	"github.com/fd1az/flashloan-arb/business/arbitrage/infra/notify"
	"github.com/fd1az/flashloan-arb/business/arbitrage/infra/storage"
	blockchainDI "github.com/fd1az/flashloan-arb/business/blockchain/di"
	pricingDI "github.com/fd1az/flashloan-arb/business/pricing/di"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct {
	settings app.SettingsSource
	log      logger.LoggerInterface

	scanner *app.Scanner
	pool    *app.ExecutionPool
	storage app.Storage
	hub     *app.Hub
	api     *httpapi.Server
}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.Hub, func(sr di.ServiceRegistry) *app.Hub {
		return app.NewHub()
	})

	di.RegisterToken(c, arbitrageDI.Registry, func(sr di.ServiceRegistry) *app.Registry {
		cfg := sr.Get("config").(*config.Config)
		return app.NewRegistry(cfg.Scanner.StalenessWindow)
	})

	di.RegisterToken(c, arbitrageDI.Storage, func(sr di.ServiceRegistry) app.Storage {
		cfg := sr.Get("config").(*config.Config)

		store, err := storage.Open(context.Background(), cfg.Storage)
		if err != nil {
			panic("failed to open storage: " + err.Error())
		}
		return store
	})

	di.RegisterToken(c, arbitrageDI.Notifier, func(sr di.ServiceRegistry) app.Notifier {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return notify.New(cfg.Notify, log)
	})

	di.RegisterToken(c, arbitrageDI.Executor, func(sr di.ServiceRegistry) *app.Executor {
		exec, err := app.NewExecutor(app.ExecutorDeps{
			Settings: sr.Get("configWatcher").(*config.Watcher),
			Gate:     blockchainDI.GetGate(sr),
			Chain:    blockchainDI.GetChainReader(sr),
			Routes:   pricingDI.GetQuoteService(sr),
			Invoker:  blockchainDI.GetFlashLoanInvoker(sr),
			Storage:  arbitrageDI.GetStorage(sr),
			Notifier: arbitrageDI.GetNotifier(sr),
			Hub:      arbitrageDI.GetHub(sr),
			Logger:   sr.Get("logger").(logger.LoggerInterface),
		})
		if err != nil {
			panic("failed to create executor: " + err.Error())
		}
		return exec
	})

	di.RegisterToken(c, arbitrageDI.Pool, func(sr di.ServiceRegistry) *app.ExecutionPool {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		exec := arbitrageDI.GetExecutor(sr)

		return app.NewExecutionPool(cfg.Executor.Workers, cfg.Executor.QueueSize,
			func(ctx context.Context, opp domain.Opportunity) {
				exec.Execute(ctx, opp)
			}, log)
	})

	di.RegisterToken(c, arbitrageDI.Scanner, func(sr di.ServiceRegistry) *app.Scanner {
		scanner, err := app.NewScanner(app.ScannerDeps{
			Quotes:     pricingDI.GetQuoteService(sr),
			Gate:       blockchainDI.GetGate(sr),
			Registry:   arbitrageDI.GetRegistry(sr),
			Hub:        arbitrageDI.GetHub(sr),
			Storage:    arbitrageDI.GetStorage(sr),
			Dispatcher: arbitrageDI.GetPool(sr),
			Logger:     sr.Get("logger").(logger.LoggerInterface),
		})
		if err != nil {
			panic("failed to create scanner: " + err.Error())
		}
		return scanner
	})

	return nil
}

// Startup resolves the services, registers the scanner health check and
// starts the API when a port is configured. Scanning starts via StartScanner.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	sr := mono.Services()

	m.settings = mono.ConfigWatcher()
	m.log = mono.Logger()
	m.hub = arbitrageDI.GetHub(sr)
	m.storage = arbitrageDI.GetStorage(sr)
	m.pool = arbitrageDI.GetPool(sr)
	m.scanner = arbitrageDI.GetScanner(sr)

	scanner := m.scanner
	mono.Health().RegisterCheck("scanner", func(ctx context.Context) (bool, string) {
		if err := scanner.CheckHealth(ctx); err != nil {
			return false, err.Error()
		}
		if !scanner.IsRunning() {
			return true, "stopped"
		}
		return true, scanner.Phase().String()
	})

	cfg := mono.Config()
	if cfg.API.Port > 0 {
		m.api = httpapi.NewServer(httpapi.Deps{
			Port:     cfg.API.Port,
			Scanner:  m.scanner,
			Storage:  m.storage,
			Hub:      m.hub,
			Settings: m.settings,
			Logger:   m.log,
		})
		if err := m.api.Start(ctx); err != nil {
			return fmt.Errorf("failed to start api: %w", err)
		}
	}

	m.log.Info(ctx, "arbitrage module started",
		"executor_mode", cfg.Executor.Mode,
		"storage", cfg.Storage.Driver,
		"api_port", cfg.API.Port,
	)
	return nil
}

// Hub returns the event hub reporters subscribe to.
func (m *Module) Hub() *app.Hub {
	return m.hub
}

// StartScanner begins a scanning session with the current configuration.
func (m *Module) StartScanner(ctx context.Context) error {
	sc, err := app.NewScanConfig(m.settings.Current())
	if err != nil {
		return fmt.Errorf("invalid scanner settings: %w", err)
	}
	return m.scanner.Start(ctx, sc)
}

// ToggleScanner stops a running session or starts a new one. It reports
// whether the scanner is running afterwards.
func (m *Module) ToggleScanner(ctx context.Context) (bool, error) {
	if m.scanner.IsRunning() {
		m.scanner.Stop()
		return false, nil
	}
	if err := m.StartScanner(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Shutdown stops scanning, drains in-flight executions and closes storage.
func (m *Module) Shutdown(ctx context.Context) error {
	var errs []error

	if m.api != nil {
		errs = append(errs, m.api.Stop(ctx))
	}
	if m.scanner != nil {
		m.scanner.Stop()
	}
	if m.pool != nil {
		errs = append(errs, m.pool.Shutdown(ctx))
	}
	if m.storage != nil {
		errs = append(errs, m.storage.Close())
	}
	if m.hub != nil {
		m.hub.Close()
	}

	return errors.Join(errs...)
}
