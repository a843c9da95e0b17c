// Package main is the entry point for the flash-loan DEX arbitrage scanner.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/flashloan-arb/business/arbitrage"
	"github.com/fd1az/flashloan-arb/business/arbitrage/infra/reporter"
	"github.com/fd1az/flashloan-arb/business/blockchain"
	"github.com/fd1az/flashloan-arb/business/pricing"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/health"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/metrics"
	"github.com/fd1az/flashloan-arb/internal/monolith"
	"github.com/fd1az/flashloan-arb/pkg/ui"
)

const shutdownTimeout = 30 * time.Second

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flasharb %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for servers and debugging
	tuiMode := !*cliMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	boot, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// In TUI mode logs would corrupt the screen
	var out io.Writer = os.Stderr
	if tuiMode {
		out = io.Discard
	}
	log := logger.New(out, logger.ParseLevel(boot.App.LogLevel), boot.App.Name, nil)

	watcher, err := config.NewWatcher(configPath, log)
	if err != nil {
		return fmt.Errorf("failed to watch config: %w", err)
	}
	cfg := watcher.Current()
	cfg.App.TUIMode = tuiMode

	log.Info(ctx, "starting flash-loan arbitrage scanner",
		"version", version,
		"environment", cfg.App.Environment,
		"executor_mode", cfg.Executor.Mode,
	)

	if cfg.Telemetry.Enabled {
		traceProvider, err := apm.NewTraceProvider(ctx, apm.Config{
			ServiceName: cfg.Telemetry.ServiceName,
			Provider:    apm.Provider(cfg.Telemetry.TraceProvider),
			Endpoint:    cfg.Telemetry.OTLPEndpoint,
			Headers:     cfg.Telemetry.OTLPHeaders,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
		defer traceProvider.Stop()

		metricProvider, err := metrics.NewMetricProvider(ctx, metrics.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			OTLPHeaders:  apm.ParseHeaders(cfg.Telemetry.OTLPHeaders),
		})
		if err != nil {
			return fmt.Errorf("failed to init metrics: %w", err)
		}
		metricProvider.Serve(cfg.Telemetry.PrometheusPort, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricProvider.Shutdown(shutdownCtx)
		}()
	}

	healthServer := health.NewServer(cfg.API.HealthPort, version, log)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.API.HealthPort)
	}
	defer healthServer.Stop(context.Background())

	mono, err := monolith.New(watcher, log, healthServer)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	arb := &arbitrage.Module{}

	// Dependency order: pricing and arbitrage resolve blockchain services
	modules := []monolith.Module{
		&blockchain.Module{},
		&pricing.Module{},
		arb,
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		mono.ShutdownModules(shutdownCtx, modules...)
	}

	if tuiMode {
		start := func() error {
			return mono.StartModules(ctx, modules...)
		}
		return runTUI(ctx, arb, cfg.Executor.Mode, start, shutdown)
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	return runCLI(ctx, arb, log, shutdown)
}

func runCLI(ctx context.Context, arb *arbitrage.Module, log *logger.Logger, shutdown func()) error {
	console := reporter.NewConsole(arb.Hub())
	if err := console.Start(ctx); err != nil {
		return err
	}

	if err := arb.StartScanner(ctx); err != nil {
		shutdown()
		console.Stop()
		return fmt.Errorf("failed to start scanner: %w", err)
	}
	log.Info(ctx, "all modules started, scanning")

	<-ctx.Done()
	log.Info(context.Background(), "shutting down")

	// in-flight executions finish and report before the console detaches
	shutdown()
	return console.Stop()
}

func runTUI(ctx context.Context, arb *arbitrage.Module, mode string, start func() error, shutdown func()) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startSignal := make(chan struct{}, 1)
	toggleSignal := make(chan struct{}, 1)
	notifyOn := func(ch chan struct{}) func() {
		return func() {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}

	// The dashboard shows immediately; modules connect once the welcome screen ends.
	dash := ui.NewDashboard(
		ui.WithMode(mode),
		ui.WithOnStart(notifyOn(startSignal)),
		ui.WithOnToggleScanner(notifyOn(toggleSignal)),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runBot(ctx, arb, mode, dash, start, startSignal, toggleSignal, shutdown)
	}()

	go func() {
		<-ctx.Done()
		dash.Quit()
	}()

	runErr := dash.Run()
	cancel()

	botErr := <-errCh
	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return botErr
}

func runBot(
	ctx context.Context,
	arb *arbitrage.Module,
	mode string,
	dash *ui.Dashboard,
	start func() error,
	startSignal, toggleSignal <-chan struct{},
	shutdown func(),
) error {
	select {
	case <-startSignal:
	case <-ctx.Done():
		return nil
	}

	rep := reporter.NewTUI(nil, dash)
	if err := start(); err != nil {
		rep.Error(err)
		return fmt.Errorf("failed to start modules: %w", err)
	}
	defer shutdown()

	rep = reporter.NewTUI(arb.Hub(), dash)
	if err := rep.Start(ctx); err != nil {
		return err
	}
	defer rep.Stop()

	err := arb.StartScanner(ctx)
	if err != nil {
		rep.Error(err)
	}
	rep.ScannerState(err == nil, mode)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-toggleSignal:
			running, err := arb.ToggleScanner(ctx)
			if err != nil {
				rep.Error(err)
			}
			rep.ScannerState(running, mode)
		}
	}
}
