package ethereum

import (
	"context"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/flashloan-arb/internal/logger"
)

func stateLogger(log logger.LoggerInterface) func(name string, from, to gobreaker.State) {
	return func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	}
}
