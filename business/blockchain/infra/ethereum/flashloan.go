package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/blockchain/app"
	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// gasLimitBufferPct pads the node's estimate.
const gasLimitBufferPct = 20

var _ app.FlashLoanInvoker = (*Invoker)(nil)

// Invoker preflights and submits executeArbitrage transactions.
type Invoker struct {
	backend Backend
	abi     abi.ABI
	params  abi.Arguments
	timeout time.Duration
	logger  logger.LoggerInterface

	chainIDMu sync.Mutex
	chainID   *big.Int

	tracer      trace.Tracer
	submissions metric.Int64Counter
}

// NewInvoker creates an Invoker over backend.
func NewInvoker(backend Backend, timeout time.Duration, log logger.LoggerInterface) (*Invoker, error) {
	parsed, err := abi.JSON(strings.NewReader(ExecutorABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse executor ABI: %w", err)
	}

	params, err := legParams()
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	submissions, err := otel.Meter(meterName).Int64Counter(
		"flashloan_submissions_total",
		metric.WithDescription("Flash loan submissions by outcome"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return nil, err
	}

	return &Invoker{
		backend:     backend,
		abi:         parsed,
		params:      params,
		timeout:     timeout,
		logger:      log,
		tracer:      otel.Tracer(tracerName),
		submissions: submissions,
	}, nil
}

func legParams() (abi.Arguments, error) {
	addressT, err := abi.NewType("address", "", nil)
	if err != nil {
		return nil, err
	}
	bytesT, err := abi.NewType("bytes", "", nil)
	if err != nil {
		return nil, err
	}
	uintT, err := abi.NewType("uint256", "", nil)
	if err != nil {
		return nil, err
	}

	return abi.Arguments{
		{Name: "firstTarget", Type: addressT},
		{Name: "firstData", Type: bytesT},
		{Name: "secondTarget", Type: addressT},
		{Name: "secondData", Type: bytesT},
		{Name: "minProfit", Type: uintT},
	}, nil
}

// EncodeCall packs the executeArbitrage call data for req.
func (i *Invoker) EncodeCall(req domain.FlashLoanRequest) ([]byte, error) {
	minProfit := req.MinProfit
	if minProfit == nil {
		minProfit = new(big.Int)
	}

	params, err := i.params.Pack(
		req.FirstLeg.Target, req.FirstLeg.CallData,
		req.SecondLeg.Target, req.SecondLeg.CallData,
		minProfit,
	)
	if err != nil {
		return nil, fmt.Errorf("pack legs: %w", err)
	}

	return i.abi.Pack(executeMethod, req.Asset, req.Amount, params)
}

// InvokeFlashLoan simulates the call with eth_call, then signs and sends a dynamic-fee tx.
// A preflight revert is returned as an on-chain rejection with the decoded reason.
func (i *Invoker) InvokeFlashLoan(ctx context.Context, req domain.FlashLoanRequest) (*domain.FlashLoanReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	ctx, span := i.tracer.Start(ctx, "chain.invoke_flash_loan",
		trace.WithAttributes(
			attribute.String("contract", req.Contract.Hex()),
			attribute.String("asset", req.Asset.Hex()),
			attribute.String("amount", req.Amount.String()),
		),
	)
	defer span.End()

	receipt, err := i.invoke(ctx, req)
	outcome := "sent"
	if err != nil {
		outcome = string(apperror.ClassOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	} else {
		span.SetAttributes(attribute.String("tx_hash", receipt.TxHash.Hex()))
		span.SetStatus(codes.Ok, outcome)
	}
	i.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	return receipt, err
}

func (i *Invoker) invoke(ctx context.Context, req domain.FlashLoanRequest) (*domain.FlashLoanReceipt, error) {
	if req.Signer == nil {
		return nil, apperror.New(apperror.CodeMissingCredential)
	}
	from := crypto.PubkeyToAddress(req.Signer.PublicKey)

	data, err := i.EncodeCall(req)
	if err != nil {
		return nil, apperror.New(apperror.CodeInternalError, apperror.WithCause(err))
	}

	msg := ethereum.CallMsg{From: from, To: &req.Contract, Data: data}

	if _, err := i.backend.CallContract(ctx, msg, nil); err != nil {
		return nil, classifyCallError(err)
	}

	gas, err := i.backend.EstimateGas(ctx, msg)
	if err != nil {
		return nil, apperror.New(apperror.CodeGasEstimationFailed, apperror.WithCause(err))
	}
	gas += gas * gasLimitBufferPct / 100

	chainID, err := i.chainIDFor(ctx)
	if err != nil {
		return nil, err
	}

	nonce, err := i.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, rpcError("eth_getTransactionCount", err)
	}

	tipCap, err := i.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, rpcError("eth_maxPriorityFeePerGas", err)
	}

	head, err := i.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, rpcError("eth_getBlockByNumber", err)
	}

	// feeCap = 2 * baseFee + tip keeps the tx valid across a few rising blocks.
	feeCap := new(big.Int).Set(tipCap)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &req.Contract,
		Value:     new(big.Int),
		Data:      data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), req.Signer)
	if err != nil {
		return nil, apperror.New(apperror.CodeTransactionSendFailed,
			apperror.WithCause(err),
			apperror.WithContext("sign"))
	}

	if err := i.backend.SendTransaction(ctx, signed); err != nil {
		return nil, apperror.New(apperror.CodeTransactionSendFailed, apperror.WithCause(err))
	}

	i.logger.Info(ctx, "flash loan submitted",
		"tx_hash", signed.Hash().Hex(),
		"from", from.Hex(),
		"nonce", nonce,
		"gas", gas,
	)

	return &domain.FlashLoanReceipt{
		TxHash:   signed.Hash(),
		From:     from,
		Nonce:    nonce,
		GasLimit: gas,
	}, nil
}

func (i *Invoker) chainIDFor(ctx context.Context) (*big.Int, error) {
	i.chainIDMu.Lock()
	defer i.chainIDMu.Unlock()

	if i.chainID != nil {
		return i.chainID, nil
	}

	id, err := i.backend.ChainID(ctx)
	if err != nil {
		return nil, rpcError("eth_chainId", err)
	}
	i.chainID = id
	return id, nil
}

// revertErrorCode is the JSON-RPC code nodes use for eth_call reverts.
const revertErrorCode = 3

// classifyCallError separates contract reverts from node and transport
// failures. Every JSON-RPC error carries ErrorData, so only the revert code,
// the revert message or non-empty revert bytes mark a rejection.
func classifyCallError(err error) error {
	var revertData []byte
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if hexData, ok := dataErr.ErrorData().(string); ok {
			if raw, decodeErr := hexutil.Decode(hexData); decodeErr == nil {
				revertData = raw
			}
		}
	}

	var codeErr rpc.Error
	reverted := len(revertData) > 0 ||
		(errors.As(err, &codeErr) && codeErr.ErrorCode() == revertErrorCode) ||
		strings.Contains(err.Error(), "execution reverted")
	if !reverted {
		return rpcError("eth_call", err)
	}

	reason := err.Error()
	if unpacked, unpackErr := abi.UnpackRevert(revertData); unpackErr == nil {
		reason = unpacked
	}

	return apperror.New(apperror.CodeContractReverted,
		apperror.WithMessage("preflight reverted: "+reason),
		apperror.WithCause(err))
}

func rpcError(method string, err error) error {
	return apperror.New(apperror.CodeEthereumRPCError,
		apperror.WithCause(err),
		apperror.WithContext(method))
}
