// Package swap drives one swap attempt through its full lifecycle:
// approval when the token needs one, submission through the chain-family
// signer, bounded confirmation polling, and completion notification.
package swap

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"omniswap/pkg/amount"
	"omniswap/pkg/client"
	"omniswap/pkg/retry"
	"omniswap/pkg/signer"
	"omniswap/pkg/sink"
	"omniswap/pkg/tradelog"
	"omniswap/pkg/types"
)

// State is one step of the swap lifecycle.
type State string

const (
	StateQuoted     State = "quoted"
	StateApproving  State = "approving"
	StateSubmitted  State = "submitted"
	StateConfirming State = "confirming"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// TxBuilder builds unsigned same-chain transactions from the aggregator.
type TxBuilder interface {
	GetSwapTransaction(ctx context.Context, req types.SwapRequest, amountIn decimal.Decimal) (*client.TxPayload, error)
	GetApprovalTransaction(ctx context.Context, chain types.Chain, tokenAddr string, amt decimal.Decimal) (*client.TxPayload, error)
}

// BridgeTxBuilder builds the source-chain transaction for a bridge route.
type BridgeTxBuilder interface {
	GetCrossChainSwapTransaction(ctx context.Context, req types.SwapRequest, amountIn decimal.Decimal) (*client.TxPayload, error)
}

// Pricer supplies USD valuations for the completion event. May be nil.
type Pricer interface {
	TokenPrice(ctx context.Context, chain types.Chain, token types.Token) (*decimal.Decimal, error)
}

// Emitter receives the swap.completed event.
type Emitter interface {
	Emit(ctx context.Context, event sink.SwapCompletedEvent) error
}

// Config tunes the coordinator's polling and retry behaviour.
type Config struct {
	// SpenderAddresses maps chain id to the aggregator's router contract,
	// used for the allowance pre-check. A chain absent from the map falls
	// back to submitting the approval unconditionally.
	SpenderAddresses map[string]string

	ConfirmAttempts int           // receipt polls before timing out
	ConfirmInterval time.Duration // pause between polls
	Retry           retry.Config
}

// DefaultConfig polls for up to one minute before declaring a timeout.
func DefaultConfig() Config {
	return Config{
		ConfirmAttempts: 20,
		ConfirmInterval: 3 * time.Second,
		Retry:           retry.DefaultConfig(),
	}
}

// Result is the terminal outcome of one Execute call.
type Result struct {
	State          State
	TxHash         string
	ApprovalTxHash string
	Err            *types.TradeError
}

// Coordinator executes accepted quotes. It owns no order state; a failed
// swap leaves nothing behind except log entries.
type Coordinator struct {
	provider TxBuilder
	bridge   BridgeTxBuilder
	signers  *signer.Registry
	pricer   Pricer
	emitter  Emitter
	debugLog *tradelog.Log
	log      *zap.Logger
	cfg      Config
}

// NewCoordinator wires the execution dependencies. pricer and emitter may
// be nil; completion then logs without USD values or notification.
func NewCoordinator(provider TxBuilder, bridge BridgeTxBuilder, signers *signer.Registry, pricer Pricer, emitter Emitter, debugLog *tradelog.Log, log *zap.Logger, cfg Config) *Coordinator {
	if cfg.ConfirmAttempts <= 0 {
		cfg.ConfirmAttempts = DefaultConfig().ConfirmAttempts
	}
	if cfg.ConfirmInterval <= 0 {
		cfg.ConfirmInterval = DefaultConfig().ConfirmInterval
	}
	return &Coordinator{
		provider: provider,
		bridge:   bridge,
		signers:  signers,
		pricer:   pricer,
		emitter:  emitter,
		debugLog: debugLog,
		log:      log,
		cfg:      cfg,
	}
}

// Execute runs the quote through approval, submission and confirmation.
// The returned Result always carries the terminal state; on failure the
// classified error is both in Result.Err and the error return.
func (c *Coordinator) Execute(ctx context.Context, quote *types.Quote) (*Result, error) {
	req := quote.Request
	family := req.Chain.Family
	res := &Result{State: StateQuoted}

	sgn, err := c.signers.For(req.Chain)
	if err != nil {
		return c.fail(ctx, res, req, err)
	}

	if c.needsApproval(ctx, sgn, req, quote.AmountIn) {
		res.State = StateApproving
		hash, err := c.approve(ctx, sgn, req, quote.AmountIn)
		if err != nil {
			return c.fail(ctx, res, req, err)
		}
		res.ApprovalTxHash = hash
		c.debugLog.Info(family, "approve", "token approval confirmed", map[string]any{
			"tx_hash": hash,
			"token":   req.FromToken.Symbol,
		})
	}

	payload, err := c.buildSwapTx(ctx, req, quote.AmountIn)
	if err != nil {
		return c.fail(ctx, res, req, err)
	}

	res.State = StateSubmitted
	txHash, err := sgn.SignAndSend(ctx, payload)
	if err != nil {
		return c.fail(ctx, res, req, err)
	}
	res.TxHash = txHash
	c.log.Info("swap transaction submitted",
		zap.String("tx_hash", txHash),
		zap.String("chain", req.Chain.ID))

	res.State = StateConfirming
	if err := c.waitConfirmed(ctx, sgn, txHash); err != nil {
		return c.fail(ctx, res, req, err)
	}

	res.State = StateCompleted
	c.debugLog.Info(family, "swap", "swap completed", map[string]any{
		"tx_hash": txHash,
		"pair":    req.FromToken.Symbol + "/" + req.ToToken.Symbol,
		"amount":  req.Amount,
	})
	c.notify(ctx, quote, txHash)
	return res, nil
}

// needsApproval decides whether an ERC-20 approval must precede the swap.
// Native assets and non-EVM chains never need one. When the signer can
// read allowances and the router address is known, a sufficient existing
// allowance skips the step; otherwise the approval is submitted anyway.
func (c *Coordinator) needsApproval(ctx context.Context, sgn signer.Signer, req types.SwapRequest, amountIn decimal.Decimal) bool {
	if !req.Chain.IsEVM() || req.FromToken.IsNative() {
		return false
	}

	checker, ok := sgn.(signer.AllowanceChecker)
	if !ok {
		return true
	}
	spender, ok := c.cfg.SpenderAddresses[req.Chain.ID]
	if !ok {
		return true
	}

	raw, err := checker.Allowance(ctx, req.FromToken.Address, spender)
	if err != nil {
		c.log.Warn("allowance check failed, approving anyway",
			zap.String("token", req.FromToken.Symbol), zap.Error(err))
		return true
	}
	allowance, err := decimal.NewFromString(raw)
	if err != nil {
		return true
	}
	return allowance.LessThan(amountIn)
}

func (c *Coordinator) approve(ctx context.Context, sgn signer.Signer, req types.SwapRequest, amountIn decimal.Decimal) (string, error) {
	payload, err := retry.Do(ctx, c.cfg.Retry, func(ctx context.Context) (*client.TxPayload, error) {
		return c.provider.GetApprovalTransaction(ctx, req.Chain, req.FromToken.Address, amountIn)
	})
	if err != nil {
		return "", fmt.Errorf("failed to build approval: %w", err)
	}

	hash, err := sgn.SignAndSend(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("failed to send approval: %w", err)
	}
	if err := c.waitConfirmed(ctx, sgn, hash); err != nil {
		return "", fmt.Errorf("approval not confirmed: %w", err)
	}
	return hash, nil
}

func (c *Coordinator) buildSwapTx(ctx context.Context, req types.SwapRequest, amountIn decimal.Decimal) (*client.TxPayload, error) {
	if req.CrossChain {
		if c.bridge == nil {
			return nil, fmt.Errorf("no bridge provider configured")
		}
		return retry.Do(ctx, c.cfg.Retry, func(ctx context.Context) (*client.TxPayload, error) {
			return c.bridge.GetCrossChainSwapTransaction(ctx, req, amountIn)
		})
	}
	return retry.Do(ctx, c.cfg.Retry, func(ctx context.Context) (*client.TxPayload, error) {
		return c.provider.GetSwapTransaction(ctx, req, amountIn)
	})
}

// waitConfirmed polls the transaction status until it confirms, reverts,
// or the attempt budget runs out. Each status read runs through the retry
// wrapper so a lagging RPC node does not end the poll early.
func (c *Coordinator) waitConfirmed(ctx context.Context, sgn signer.Signer, txHash string) error {
	for attempt := 0; attempt < c.cfg.ConfirmAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.ConfirmInterval):
			}
		}

		status, err := retry.Do(ctx, c.cfg.Retry, func(ctx context.Context) (types.TxReceiptStatus, error) {
			return sgn.TxStatus(ctx, txHash)
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Debug("receipt poll failed", zap.String("tx_hash", txHash), zap.Error(err))
			continue
		}

		switch status {
		case types.TxConfirmed:
			return nil
		case types.TxReverted:
			return fmt.Errorf("transaction reverted on-chain: %s", txHash)
		}
	}
	return fmt.Errorf("confirmation timed out for %s", txHash)
}

// notify emits the swap.completed event. Delivery problems are logged,
// never propagated; the swap already succeeded on-chain.
func (c *Coordinator) notify(ctx context.Context, quote *types.Quote, txHash string) {
	if c.emitter == nil {
		return
	}
	req := quote.Request

	amountIn, _ := decimal.NewFromString(req.Amount)
	amountOut := quote.AmountOutHuman
	if amountOut.IsZero() && !quote.AmountOut.IsZero() {
		amountOut = amount.FromSmallestUnit(quote.AmountOut, req.ToToken.Decimals)
	}

	event := sink.SwapCompletedEvent{
		TxHash:         txHash,
		WalletAddress:  req.WalletAddress,
		ChainID:        req.Chain.ID,
		TokenInSymbol:  req.FromToken.Symbol,
		TokenInAmount:  amountIn,
		TokenOutSymbol: req.ToToken.Symbol,
		TokenOutAmount: amountOut,
		GasFee:         quote.EstimatedGas,
		Slippage:       req.SlippagePct,
		Status:         string(StateCompleted),
	}

	if c.pricer != nil {
		if p, err := c.pricer.TokenPrice(ctx, req.Chain, req.FromToken); err == nil && p != nil {
			event.TokenInUSD = amountIn.Mul(*p)
		}
		if p, err := c.pricer.TokenPrice(ctx, req.Chain, req.ToToken); err == nil && p != nil {
			event.TokenOutUSD = amountOut.Mul(*p)
		}
		if p, err := c.pricer.TokenPrice(ctx, req.Chain, req.Chain.NativeToken); err == nil && p != nil {
			gas := amount.FromSmallestUnit(quote.EstimatedGas, req.Chain.NativeToken.Decimals)
			event.GasFeeUSD = gas.Mul(*p)
		}
	}

	if err := c.emitter.Emit(ctx, event); err != nil {
		c.log.Warn("swap.completed notification failed",
			zap.String("tx_hash", txHash), zap.Error(err))
	}
}

// fail classifies err, records it, and returns the terminal failed result.
func (c *Coordinator) fail(ctx context.Context, res *Result, req types.SwapRequest, err error) (*Result, error) {
	te := types.NewTradeError(req.Chain.Family, err)
	stage := string(res.State)
	res.State = StateFailed
	res.Err = te

	c.debugLog.Error(req.Chain.Family, "swap", te.Message, map[string]any{
		"stage":   stage,
		"tx_hash": res.TxHash,
		"pair":    req.FromToken.Symbol + "/" + req.ToToken.Symbol,
		"error":   err.Error(),
	})
	c.log.Error("swap failed",
		zap.String("chain", req.Chain.ID),
		zap.String("kind", string(te.Kind)),
		zap.Error(err))
	return res, te
}
