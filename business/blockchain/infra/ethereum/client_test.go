package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

func TestClient_GasPriceIsCached(t *testing.T) {
	backend := newFakeBackend()
	c, err := NewClient(backend, ClientConfig{GasCacheTTL: time.Minute}, testLogger())
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < 3; i++ {
		price, err := c.GetGasPrice(context.Background())
		require.NoError(t, err)
		assert.True(t, price.Gwei().Equal(decimal.NewFromInt(20)))
	}

	assert.Equal(t, 1, backend.count("gasPrice"))
}

func TestClient_BalanceAndCode(t *testing.T) {
	backend := newFakeBackend()
	c, err := NewClient(backend, ClientConfig{}, testLogger())
	require.NoError(t, err)

	bal, err := c.GetNativeBalance(context.Background(), common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, 0, bal.Cmp(big.NewInt(1e18)))

	code, err := c.GetCode(context.Background(), common.HexToAddress("0x02"))
	require.NoError(t, err)
	assert.NotEmpty(t, code)

	block, err := c.LatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(19_000_000), block)
}

func TestClient_RPCErrorsAreInfrastructure(t *testing.T) {
	backend := newFakeBackend()
	backend.rpcErr = errors.New("connection refused")

	c, err := NewClient(backend, ClientConfig{}, testLogger())
	require.NoError(t, err)

	_, err = c.GetGasPrice(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperror.CodeEthereumRPCError, apperror.GetCode(err))
	assert.Equal(t, apperror.ClassInfrastructure, apperror.ClassOf(err))
}

func TestClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	backend := newFakeBackend()
	backend.rpcErr = errors.New("timeout")

	c, err := NewClient(backend, ClientConfig{}, testLogger())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _ = c.GetNativeBalance(context.Background(), common.Address{})
	}

	_, err = c.GetNativeBalance(context.Background(), common.Address{})
	assert.Equal(t, apperror.CodeCircuitOpen, apperror.GetCode(err))
	assert.Equal(t, 5, backend.count("balance"))
}
