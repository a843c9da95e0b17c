// Package pricing implements the pricing bounded context: venue quotes and swap routes.
package pricing

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/flashloan-arb/business/pricing/app"
	pricingDI "github.com/fd1az/flashloan-arb/business/pricing/di"
	"github.com/fd1az/flashloan-arb/business/pricing/infra/aggregator"
	"github.com/fd1az/flashloan-arb/business/pricing/infra/synthetic"
	"github.com/fd1az/flashloan-arb/business/pricing/infra/uniswap"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// One adapter per source kind, shared by every venue that uses it.
	di.RegisterToken(c, pricingDI.VenueSources, func(sr di.ServiceRegistry) map[string]app.QuoteSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		sources := make(map[string]app.QuoteSource, len(cfg.Pricing.Venues))
		var (
			agg   *aggregator.Client
			uni   *uniswap.Provider
			synth *synthetic.Source
		)

		protocols := make(map[string]string)
		for _, v := range cfg.Pricing.Venues {
			if v.Source == config.SourceAggregator {
				protocols[v.Name] = v.Protocols
			}
		}

		for _, v := range cfg.Pricing.Venues {
			switch v.Source {
			case config.SourceAggregator:
				if agg == nil {
					client, err := aggregator.NewClient(aggregator.Config{
						BaseURL:           cfg.Pricing.Aggregator.BaseURL,
						APIKey:            cfg.Pricing.Aggregator.APIKey,
						ChainID:           cfg.Chain.ChainID,
						RequestsPerMinute: cfg.Pricing.Aggregator.RequestsPerMinute,
						Timeout:           cfg.Pricing.QuoteTimeout,
						Protocols:         protocols,
					}, log)
					if err != nil {
						panic("failed to create aggregator client: " + err.Error())
					}
					agg = client
				}
				sources[v.Name] = agg

			case config.SourceUniswap:
				if uni == nil {
					provider, err := uniswap.NewProvider(sr.Get("ethClient").(*ethclient.Client), uniswap.Config{
						Quoter:   cfg.Pricing.Uniswap.QuoterAddressHex(),
						Router:   cfg.Pricing.Uniswap.RouterAddressHex(),
						FeeTiers: cfg.Pricing.Uniswap.FeeTiers,
					}, log)
					if err != nil {
						panic("failed to create uniswap provider: " + err.Error())
					}
					uni = provider
				}
				sources[v.Name] = uni

			case config.SourceSynthetic:
				if synth == nil {
					synth = synthetic.New(synthetic.Config{
						Seed:      cfg.Pricing.Synthetic.Seed,
						JitterBps: cfg.Pricing.Synthetic.JitterBps,
						BaseRates: cfg.Pricing.Synthetic.BaseRates,
					})
				}
				sources[v.Name] = synth
			}
		}

		return sources
	})

	di.RegisterToken(c, pricingDI.QuoteService, func(sr di.ServiceRegistry) *app.QuoteService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		svc, err := app.NewQuoteService(pricingDI.GetVenueSources(sr), cfg.Pricing.QuoteTimeout, cfg.Pricing.MaxConcurrency, log)
		if err != nil {
			panic("failed to create quote service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup resolves the quote service so configuration errors surface at boot.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	svc := pricingDI.GetQuoteService(mono.Services())

	mono.Logger().Info(ctx, "pricing module started", "venues", svc.Venues())
	return nil
}
