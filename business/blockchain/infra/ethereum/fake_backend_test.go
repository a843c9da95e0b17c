package ethereum

import (
	"context"
	"io"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/flashloan-arb/internal/logger"
)

type fakeBackend struct {
	mu sync.Mutex

	gasPrice *big.Int
	balance  *big.Int
	code     []byte
	callErr  error
	sendErr  error
	rpcErr   error

	calls map[string]int
	sent  []*types.Transaction
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		gasPrice: big.NewInt(20_000_000_000),
		balance:  big.NewInt(1e18),
		code:     []byte{0x60, 0x80},
		calls:    make(map[string]int),
	}
}

func (f *fakeBackend) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.rpcErr
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(1), f.hit("chainID")
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	if err := f.hit("header"); err != nil {
		return nil, err
	}
	return &types.Header{Number: big.NewInt(19_000_000), BaseFee: big.NewInt(10_000_000_000)}, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	if err := f.hit("gasPrice"); err != nil {
		return nil, err
	}
	return f.gasPrice, nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), f.hit("tipCap")
}

func (f *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	if err := f.hit("balance"); err != nil {
		return nil, err
	}
	return f.balance, nil
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	if err := f.hit("code"); err != nil {
		return nil, err
	}
	return f.code, nil
}

func (f *fakeBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	f.hit("call")
	return nil, f.callErr
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 300_000, f.hit("estimate")
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 7, f.hit("nonce")
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.hit("send")
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	f.sent = append(f.sent, tx)
	f.mu.Unlock()
	return nil
}

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}
