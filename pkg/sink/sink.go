// Package sink delivers swap.completed notifications to external
// consumers. The dispatcher in front of the concrete sinks guarantees
// at-most-once emission per transaction hash.
package sink

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SwapCompletedEvent is the notification payload for a settled swap.
type SwapCompletedEvent struct {
	TxHash         string          `json:"tx_hash"`
	WalletAddress  string          `json:"wallet_address"`
	ChainID        string          `json:"chain_id"`
	TokenInSymbol  string          `json:"token_in_symbol"`
	TokenInAmount  decimal.Decimal `json:"token_in_amount"`
	TokenInUSD     decimal.Decimal `json:"token_in_usd"`
	TokenOutSymbol string          `json:"token_out_symbol"`
	TokenOutAmount decimal.Decimal `json:"token_out_amount"`
	TokenOutUSD    decimal.Decimal `json:"token_out_usd"`
	GasFee         decimal.Decimal `json:"gas_fee"`
	GasFeeUSD      decimal.Decimal `json:"gas_fee_usd"`
	Slippage       decimal.Decimal `json:"slippage"`
	Status         string          `json:"status"`
}

// Sink is one delivery target for swap events.
type Sink interface {
	Publish(ctx context.Context, event SwapCompletedEvent) error
}

// Dispatcher fans an event out to the configured sinks, emitting each
// transaction hash at most once regardless of how many times the
// execution layer reports it.
type Dispatcher struct {
	sinks []Sink
	log   *zap.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDispatcher wires the delivery targets. A dispatcher with no sinks
// is valid and drops every event.
func NewDispatcher(log *zap.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks: sinks,
		log:   log,
		seen:  make(map[string]struct{}),
	}
}

// Emit delivers the event unless its tx hash was already emitted. A
// failed delivery does not mark the hash as seen, so the next report of
// the same hash retries.
func (d *Dispatcher) Emit(ctx context.Context, event SwapCompletedEvent) error {
	// Claim the hash before delivering so a concurrent duplicate report
	// cannot double-publish.
	d.mu.Lock()
	if _, dup := d.seen[event.TxHash]; dup {
		d.mu.Unlock()
		return nil
	}
	d.seen[event.TxHash] = struct{}{}
	d.mu.Unlock()

	for _, s := range d.sinks {
		if err := s.Publish(ctx, event); err != nil {
			d.log.Warn("swap event delivery failed",
				zap.String("tx_hash", event.TxHash), zap.Error(err))
			// Release the claim so the next report of this hash retries.
			d.mu.Lock()
			delete(d.seen, event.TxHash)
			d.mu.Unlock()
			return err
		}
	}
	return nil
}

// Emitted reports whether the hash has already been delivered.
func (d *Dispatcher) Emitted(txHash string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[txHash]
	return ok
}
