package app

import (
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	blockchainApp "github.com/fd1az/flashloan-arb/business/blockchain/app"
	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	pricingApp "github.com/fd1az/flashloan-arb/business/pricing/app"
	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const defaultStageTimeout = 30 * time.Second

var (
	weiPerNative = decimal.New(1, 18)
	bps          = decimal.NewFromInt(10_000)
)

// executorMetrics holds OTEL metric instruments.
type executorMetrics struct {
	executions metric.Int64Counter
	duration   metric.Float64Histogram
}

// ExecutorDeps are the collaborators of an Executor. Storage, Notifier and Hub may be nil.
type ExecutorDeps struct {
	Settings SettingsSource
	Gate     GasGate
	Chain    CodeReader
	Routes   RouteBuilder
	Invoker  blockchainApp.FlashLoanInvoker
	Storage  Storage
	Notifier Notifier
	Hub      *Hub
	Logger   logger.LoggerInterface
}

// Executor runs the staged trade pipeline for one opportunity snapshot.
// Every attempt produces exactly one persisted result.
type Executor struct {
	settings SettingsSource
	gate     GasGate
	chain    CodeReader
	routes   RouteBuilder
	invoker  blockchainApp.FlashLoanInvoker
	storage  Storage
	notifier Notifier
	hub      *Hub
	logger   logger.LoggerInterface
	now      func() time.Time

	tracer  trace.Tracer
	metrics *executorMetrics
}

// NewExecutor creates an Executor.
func NewExecutor(deps ExecutorDeps) (*Executor, error) {
	e := &Executor{
		settings: deps.Settings,
		gate:     deps.Gate,
		chain:    deps.Chain,
		routes:   deps.Routes,
		invoker:  deps.Invoker,
		storage:  deps.Storage,
		notifier: deps.Notifier,
		hub:      deps.Hub,
		logger:   deps.Logger,
		now:      time.Now,
		tracer:   otel.Tracer(tracerName),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init executor metrics: %w", err)
	}
	return e, nil
}

func (e *Executor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}

	e.metrics.executions, err = meter.Int64Counter(
		"executions_total",
		metric.WithDescription("Execution attempts by mode and status"),
	)
	if err != nil {
		return err
	}

	e.metrics.duration, err = meter.Float64Histogram(
		"execution_duration_ms",
		metric.WithDescription("Execution attempt duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// execution is the state carried between stages of one attempt.
type execution struct {
	opp    domain.Opportunity
	cfg    *config.Config
	signer *ecdsa.PrivateKey
	from   common.Address

	legA *pricingDomain.Quote
	legB *pricingDomain.Quote

	contract  common.Address
	minProfit *big.Int
	txHash    string
}

type stage struct {
	step string
	name string
	run  func(ctx context.Context, x *execution) error
}

// Execute runs the pipeline on opp. Settings are read once at the start of the attempt.
func (e *Executor) Execute(ctx context.Context, opp domain.Opportunity) domain.TradeExecutionResult {
	start := e.now()
	cfg := e.settings.Current()

	ctx, span := e.tracer.Start(ctx, "arbitrage.execute",
		trace.WithAttributes(
			attribute.String("opportunity_id", opp.ID),
			attribute.String("pair", opp.Pair.Key()),
			attribute.String("mode", cfg.Executor.Mode),
		),
	)
	defer span.End()

	x := &execution{opp: opp, cfg: cfg}
	result := domain.TradeExecutionResult{
		ID:            domain.NewResultID(),
		OpportunityID: opp.ID,
		Pair:          opp.Pair.Key(),
		Mode:          cfg.Executor.Mode,
		GasCostUSD:    opp.GasCostUSD,
	}

	stages := []stage{
		{"1", "freshness", e.checkFreshness},
		{"2", "mode_credential", e.checkCredential},
		{"3", "balance_gas", e.checkBalanceAndGas},
	}
	if cfg.Executor.Mode == config.ModeReal {
		stages = append(stages,
			stage{"5a", "derive_signer", e.deriveSigner},
			stage{"5b", "build_routes", e.buildRoutes},
			stage{"5c", "validate_routes", e.validateRoutes},
			stage{"5d", "verify_contract", e.verifyContract},
			stage{"5e", "profit_floor", e.profitFloor},
			stage{"5f", "invoke_flash_loan", e.invoke},
		)
	} else {
		stages = append(stages, stage{"4", "simulate", e.simulate})
	}

	var failed error
	for _, st := range stages {
		if err := e.runStage(ctx, x, st); err != nil {
			failed = err
			result.FailedStep = st.step
			break
		}
	}

	switch {
	case failed != nil:
		result.Status = domain.StatusFailed
		if apperror.ClassOf(failed) == apperror.ClassThresholdNotMet {
			result.Status = domain.StatusSkipped
		}
		result.Message = failed.Error()
		result.ErrorClass = string(apperror.ClassOf(failed))
		result.ErrorCode = string(apperror.GetCode(failed))
		result.Hint = apperror.HintOf(failed)
		span.RecordError(failed)
		span.SetStatus(codes.Error, result.ErrorCode)

	case cfg.Executor.Mode == config.ModeReal:
		result.Status = domain.StatusPending
		result.Success = true
		result.TxHash = x.txHash
		result.ProfitUSD = opp.EstimatedProfitUSD()
		result.Message = "flash loan submitted"
		span.SetStatus(codes.Ok, "")

	default:
		result.Status = domain.StatusSimulated
		result.Success = true
		result.TxHash = x.txHash
		result.ProfitUSD = opp.EstimatedProfitUSD()
		result.Message = "simulated execution, no transaction sent"
		span.SetStatus(codes.Ok, "")
	}

	result.Duration = e.now().Sub(start)
	result.CreatedAt = e.now()

	e.record(ctx, opp, cfg, result)
	return result
}

func (e *Executor) runStage(ctx context.Context, x *execution, st stage) error {
	timeout := x.cfg.Executor.StageTimeout
	if timeout <= 0 {
		timeout = defaultStageTimeout
	}

	base := []any{"step", st.step, "stage", st.name, "opportunity_id", x.opp.ID}

	e.logger.Info(ctx, "execution step", append(base, "status", "start")...)

	sctx, cancel := context.WithTimeout(ctx, timeout)
	err := st.run(sctx, x)
	cancel()

	if err == nil {
		e.logger.Info(ctx, "execution step", append(base, "status", "pass")...)
		return nil
	}

	args := append(append(base, "status", "fail"), apperror.LogArgs(err)...)
	if apperror.ClassOf(err) == apperror.ClassThresholdNotMet {
		e.logger.Info(ctx, "execution step", args...)
	} else {
		e.logger.Error(ctx, "execution step", args...)
	}
	return err
}

func (e *Executor) checkFreshness(_ context.Context, x *execution) error {
	window := x.cfg.Executor.FreshnessWindow
	if age := x.opp.Age(e.now()); window > 0 && age > window {
		return apperror.New(apperror.CodeOpportunityStale,
			apperror.WithContext(fmt.Sprintf("age %s exceeds %s", age.Round(time.Millisecond), window)))
	}

	if !thresholdsFrom(x.cfg).Qualifies(x.opp) {
		return apperror.New(apperror.CodeBelowThreshold,
			apperror.WithContext(fmt.Sprintf("net %s%%, profit $%s under current thresholds",
				x.opp.NetProfitPercent().StringFixed(3), x.opp.EstimatedProfitUSD().StringFixed(2))))
	}
	return nil
}

func (e *Executor) checkCredential(_ context.Context, x *execution) error {
	switch x.cfg.Executor.Mode {
	case config.ModeSimulation:
		return nil
	case config.ModeReal:
	default:
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("unknown executor.mode "+x.cfg.Executor.Mode),
			apperror.WithHint("set executor.mode to simulation or real"))
	}

	key, err := ParseSignerKey(x.cfg.Executor.SignerKey)
	if err != nil {
		return err
	}
	if !x.cfg.Executor.RealTradingEnabled {
		return apperror.New(apperror.CodeRealTradingDisabled)
	}

	x.signer = key
	return nil
}

func (e *Executor) checkBalanceAndGas(ctx context.Context, x *execution) error {
	maxGwei := x.cfg.Scanner.MaxGasGweiDecimal()
	gwei, ok, err := e.gate.CheckGasAcceptable(ctx, maxGwei)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.New(apperror.CodeGasTooHigh,
			apperror.WithContext(fmt.Sprintf("%s gwei > %s gwei", gwei, maxGwei)))
	}

	var addr common.Address
	switch {
	case x.signer != nil:
		addr = crypto.PubkeyToAddress(x.signer.PublicKey)
	case common.IsHexAddress(x.cfg.Executor.WalletAddress):
		addr = common.HexToAddress(x.cfg.Executor.WalletAddress)
	default:
		return nil
	}

	minimum := decimal.NewFromFloat(x.cfg.Executor.MinNativeBalance).Mul(weiPerNative).BigInt()
	balance, ok, err := e.gate.CheckNativeBalance(ctx, addr, minimum)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.New(apperror.CodeInsufficientBalance,
			apperror.WithContext(fmt.Sprintf("%s holds %s wei, need %s", addr.Hex(), balance, minimum)))
	}
	return nil
}

func (e *Executor) simulate(_ context.Context, x *execution) error {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], uint64(e.now().UnixNano()))
	x.txHash = crypto.Keccak256Hash([]byte(x.opp.ID), nonce[:]).Hex()
	return nil
}

func (e *Executor) deriveSigner(ctx context.Context, x *execution) error {
	x.from = crypto.PubkeyToAddress(x.signer.PublicKey)
	e.logger.Debug(ctx, "signer resolved", "opportunity_id", x.opp.ID, "address", x.from.Hex())
	return nil
}

// buildRoutes requests leg A on the sell venue for the full loan, then leg B on the
// buy venue for leg A's output. Leg B is not requested when leg A fails.
func (e *Executor) buildRoutes(ctx context.Context, x *execution) error {
	// the contract holds the loan, so it swaps and receives both legs
	var recipient common.Address
	if raw := strings.TrimSpace(x.cfg.Executor.ContractAddress); common.IsHexAddress(raw) {
		recipient = common.HexToAddress(raw)
	}

	legA, err := e.routes.BuildSwapTransaction(ctx, pricingApp.SwapRequest{
		QuoteRequest: pricingApp.QuoteRequest{
			Venue:    x.opp.SellVenue,
			Pair:     x.opp.Pair,
			AmountIn: x.opp.LoanAmount,
		},
		From:        x.from,
		Recipient:   recipient,
		SlippageBps: x.cfg.Executor.SlippageBps,
	})
	if err != nil {
		return err
	}
	x.legA = legA

	legB, err := e.routes.BuildSwapTransaction(ctx, pricingApp.SwapRequest{
		QuoteRequest: pricingApp.QuoteRequest{
			Venue:    x.opp.BuyVenue,
			Pair:     x.opp.Pair.Reverse(),
			AmountIn: legA.AmountOut,
		},
		From:        x.from,
		Recipient:   recipient,
		SlippageBps: x.cfg.Executor.SlippageBps,
	})
	if err != nil {
		return err
	}
	x.legB = legB
	return nil
}

func (e *Executor) validateRoutes(_ context.Context, x *execution) error {
	if x.legA == nil || swapCall(x.legA).Empty() {
		return apperror.New(apperror.CodeMalformedRoute, apperror.WithContext("leg A"))
	}
	if x.legB == nil || swapCall(x.legB).Empty() {
		return apperror.New(apperror.CodeMalformedRoute, apperror.WithContext("leg B"))
	}
	return nil
}

func (e *Executor) verifyContract(ctx context.Context, x *execution) error {
	raw := strings.TrimSpace(x.cfg.Executor.ContractAddress)
	if raw == "" || !common.IsHexAddress(raw) {
		return apperror.New(apperror.CodeMissingContractAddress)
	}
	addr := common.HexToAddress(raw)

	code, err := e.chain.GetCode(ctx, addr)
	if err != nil {
		return err
	}
	if len(code) == 0 {
		return apperror.New(apperror.CodeContractNotDeployed, apperror.WithContext(addr.Hex()))
	}

	x.contract = addr
	return nil
}

func (e *Executor) profitFloor(_ context.Context, x *execution) error {
	x.minProfit = decimal.NewFromBigInt(x.opp.LoanAmount, 0).
		Mul(decimal.NewFromFloat(x.cfg.Executor.MinProfitFloorBps)).
		Div(bps).
		Truncate(0).
		BigInt()
	return nil
}

func (e *Executor) invoke(ctx context.Context, x *execution) error {
	receipt, err := e.invoker.InvokeFlashLoan(ctx, blockchainDomain.FlashLoanRequest{
		Contract:  x.contract,
		Asset:     x.opp.Pair.In.Address,
		Amount:    x.opp.LoanAmount,
		FirstLeg:  swapCall(x.legA),
		SecondLeg: swapCall(x.legB),
		MinProfit: x.minProfit,
		Signer:    x.signer,
	})
	if err != nil {
		return err
	}

	x.txHash = receipt.TxHash.Hex()
	return nil
}

func swapCall(q *pricingDomain.Quote) blockchainDomain.SwapCall {
	return blockchainDomain.SwapCall{Target: q.Route.Target, CallData: q.Route.CallData}
}

// record persists, publishes and notifies. It runs even if the attempt's context is gone.
func (e *Executor) record(ctx context.Context, opp domain.Opportunity, cfg *config.Config, result domain.TradeExecutionResult) {
	ctx = context.WithoutCancel(ctx)

	e.metrics.executions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", result.Mode),
		attribute.String("status", string(result.Status)),
	))
	e.metrics.duration.Record(ctx, float64(result.Duration.Milliseconds()))

	timeout := cfg.Executor.StageTimeout
	if timeout <= 0 {
		timeout = defaultStageTimeout
	}

	if e.storage != nil {
		sctx, cancel := context.WithTimeout(ctx, timeout)
		if err := e.storage.UpsertExecution(sctx, result); err != nil {
			e.logger.Error(ctx, "failed to persist execution result",
				append([]any{"result_id", result.ID}, apperror.LogArgs(err)...)...)
		}
		if err := e.storage.AppendActivity(sctx, domain.Activity{
			Kind:          string(domain.EventTradeExecuted),
			Message:       fmt.Sprintf("%s %s: %s", result.Pair, result.Status, result.Message),
			OpportunityID: opp.ID,
			CreatedAt:     result.CreatedAt,
		}); err != nil {
			e.logger.Warn(ctx, "failed to append activity", apperror.LogArgs(err)...)
		}
		cancel()
	}

	if e.hub != nil {
		r := result
		e.hub.Publish(domain.Event{Type: domain.EventTradeExecuted, Timestamp: result.CreatedAt, Result: &r})
	}

	e.logger.Info(ctx, "execution finished",
		"opportunity_id", opp.ID,
		"result_id", result.ID,
		"mode", result.Mode,
		"status", string(result.Status),
		"tx_hash", result.TxHash,
		"duration_ms", result.Duration.Milliseconds(),
	)

	e.notify(ctx, opp, cfg, result)
}

func (e *Executor) notify(ctx context.Context, opp domain.Opportunity, cfg *config.Config, result domain.TradeExecutionResult) {
	if e.notifier == nil || result.Status == domain.StatusSkipped {
		return
	}
	if opp.EstimatedProfitUSD().LessThan(decimal.NewFromFloat(cfg.Executor.NotifyThresholdUSD)) {
		return
	}

	n := domain.Notification{Text: notificationText(opp, result)}
	switch result.Status {
	case domain.StatusSimulated:
		n.Event = domain.NotifyTradeSuccess
	case domain.StatusPending:
		n.Event = domain.NotifyTradePending
	default:
		n.Event = domain.NotifyTradeFailed
	}

	if err := e.notifier.Notify(ctx, n); err != nil {
		e.logger.Warn(ctx, "notification failed",
			append([]any{"event", n.Event, "result_id", result.ID}, apperror.LogArgs(err)...)...)
	}
}

func notificationText(opp domain.Opportunity, r domain.TradeExecutionResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s %s\n", strings.ToUpper(r.Mode), r.Pair, r.Status)
	fmt.Fprintf(&sb, "buy %s / sell %s\n", opp.BuyVenue, opp.SellVenue)
	fmt.Fprintf(&sb, "est. profit $%s (net %s%%)\n", opp.EstimatedProfitUSD().StringFixed(2), opp.NetProfitPercent().StringFixed(3))
	if r.TxHash != "" {
		fmt.Fprintf(&sb, "tx %s\n", r.TxHash)
	}
	if r.ErrorCode != "" {
		fmt.Fprintf(&sb, "error %s at step %s\n", r.ErrorCode, r.FailedStep)
		if r.Hint != "" {
			fmt.Fprintf(&sb, "hint: %s\n", r.Hint)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ParseSignerKey validates a hex private key: 64 hex characters, or 66 with a 0x prefix.
func ParseSignerKey(raw string) (*ecdsa.PrivateKey, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return nil, apperror.New(apperror.CodeMissingCredential)
	}

	hexKey := key
	if strings.HasPrefix(key, "0x") || strings.HasPrefix(key, "0X") {
		hexKey = key[2:]
	}
	if len(hexKey) != 64 {
		return nil, apperror.New(apperror.CodeMalformedCredential,
			apperror.WithContext(fmt.Sprintf("got %d characters", len(key))))
	}

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, apperror.New(apperror.CodeMalformedCredential, apperror.WithCause(err))
	}
	return pk, nil
}
