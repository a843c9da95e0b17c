// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/pricing/app"
	"github.com/fd1az/flashloan-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	QuoteService = di.NewToken[*app.QuoteService]("pricing.QuoteService")
)

// Private dependency tokens - internal to pricing module
var (
	VenueSources = di.NewToken[map[string]app.QuoteSource]("pricing:venueSources")
)

// Helper functions for type-safe access
func GetQuoteService(c di.ServiceRegistry) *app.QuoteService {
	return di.GetToken(c, QuoteService)
}

func GetVenueSources(c di.ServiceRegistry) map[string]app.QuoteSource {
	return di.GetToken(c, VenueSources)
}
