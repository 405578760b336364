// Package orders manages conditional orders: price-triggered limit
// orders and scheduled DCA plans. Orders persist across restarts through
// a pluggable store and are driven by a price-tick evaluation loop.
package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"omniswap/pkg/types"
)

// PriceCondition defines which side of the target price triggers.
type PriceCondition string

const (
	PriceAbove PriceCondition = "above"
	PriceBelow PriceCondition = "below"
)

// Status is an order's lifecycle state. Limit and DCA orders share the
// value space but allow different transitions.
type Status string

const (
	StatusActive    Status = "active"
	StatusTriggered Status = "triggered" // limit only: condition met, execution scheduled
	StatusExecuted  Status = "executed"  // limit only: swap confirmed
	StatusPaused    Status = "paused"    // DCA only
	StatusCompleted Status = "completed" // DCA only: all intervals done
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired" // limit only: deadline passed
	StatusFailed    Status = "failed"  // execution retry budget exhausted
)

// DefaultMaxExecutionAttempts bounds how many times a triggered limit
// order may fail before it is marked failed instead of returning to
// active.
const DefaultMaxExecutionAttempts = 3

// LimitOrder executes a swap once the pair's price crosses the target.
type LimitOrder struct {
	ID            string `json:"id"`
	WalletAddress string `json:"wallet_address"`
	ChainID       string `json:"chain_id"`

	FromToken types.Token `json:"from_token"`
	ToToken   types.Token `json:"to_token"`

	Amount      string          `json:"amount"` // human units
	SlippagePct decimal.Decimal `json:"slippage_pct"`

	Condition   PriceCondition  `json:"condition"`
	TargetPrice decimal.Decimal `json:"target_price"`

	// TP/SL are orthogonal watchers over the same pair. Crossing one is
	// recorded on its timestamp without changing the order status.
	TakeProfitPrice *decimal.Decimal `json:"take_profit_price,omitempty"`
	StopLossPrice   *decimal.Decimal `json:"stop_loss_price,omitempty"`
	TakeProfitHitAt *time.Time       `json:"take_profit_hit_at,omitempty"`
	StopLossHitAt   *time.Time       `json:"stop_loss_hit_at,omitempty"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	Status               Status `json:"status"`
	ExecutionAttempts    int    `json:"execution_attempts"`
	MaxExecutionAttempts int    `json:"max_execution_attempts"`
	LastExecutionError   string `json:"last_execution_error,omitempty"`
	TxHash               string `json:"tx_hash,omitempty"`

	TriggeredAt *time.Time `json:"triggered_at,omitempty"`
	ExecutedAt  *time.Time `json:"executed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Pair returns the tick pair key the order watches, "FROM/TO".
func (o *LimitOrder) Pair() string {
	return o.FromToken.Symbol + "/" + o.ToToken.Symbol
}

// Validate checks the order's parameters before creation.
func (o *LimitOrder) Validate() error {
	if o.WalletAddress == "" {
		return fmt.Errorf("wallet address is required")
	}
	if o.ChainID == "" {
		return fmt.Errorf("chain is required")
	}
	if o.FromToken.Symbol == "" || o.ToToken.Symbol == "" {
		return fmt.Errorf("both tokens are required")
	}
	if o.Amount == "" || o.Amount == "0" {
		return fmt.Errorf("amount must be greater than 0")
	}
	if !o.TargetPrice.IsPositive() {
		return fmt.Errorf("target price must be greater than 0")
	}
	if o.Condition != PriceAbove && o.Condition != PriceBelow {
		return fmt.Errorf("condition must be 'above' or 'below'")
	}
	return nil
}

// ConditionMet reports whether price satisfies the base trigger.
func (o *LimitOrder) ConditionMet(price decimal.Decimal) bool {
	switch o.Condition {
	case PriceAbove:
		return price.GreaterThanOrEqual(o.TargetPrice)
	case PriceBelow:
		return price.LessThanOrEqual(o.TargetPrice)
	default:
		return false
	}
}

// Expired reports whether the order's deadline has passed.
func (o *LimitOrder) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && now.After(*o.ExpiresAt)
}

// SwapRequest builds the trade request for one execution attempt.
func (o *LimitOrder) SwapRequest(chain types.Chain) types.SwapRequest {
	return types.SwapRequest{
		Chain:         chain,
		FromToken:     o.FromToken,
		ToToken:       o.ToToken,
		Amount:        o.Amount,
		SlippagePct:   o.SlippagePct,
		WalletAddress: o.WalletAddress,
	}
}

// DCAOrder buys a fixed amount of a token at a fixed interval.
type DCAOrder struct {
	ID            string `json:"id"`
	WalletAddress string `json:"wallet_address"`
	ChainID       string `json:"chain_id"`

	FromToken types.Token `json:"from_token"`
	ToToken   types.Token `json:"to_token"`

	AmountPerInterval string          `json:"amount_per_interval"` // human units
	SlippagePct       decimal.Decimal `json:"slippage_pct"`
	Frequency         time.Duration   `json:"frequency"`

	// ExecutionHour pins executions to an hour of day (0-23); nil lets
	// them land wherever the frequency puts them.
	ExecutionHour *int `json:"execution_hour,omitempty"`

	// StartDate delays the first execution; EndDate completes the plan
	// once it passes, whatever the interval count.
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	// TotalIntervals of zero means the plan runs until cancelled or its
	// end date.
	TotalIntervals     int       `json:"total_intervals"`
	CompletedIntervals int       `json:"completed_intervals"`
	NextExecution      time.Time `json:"next_execution"`

	TotalSpent    decimal.Decimal `json:"total_spent"`
	TotalReceived decimal.Decimal `json:"total_received"`
	AveragePrice  decimal.Decimal `json:"average_price"`

	Status             Status `json:"status"`
	LastExecutionError string `json:"last_execution_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Pair returns the tick pair key, "FROM/TO".
func (o *DCAOrder) Pair() string {
	return o.FromToken.Symbol + "/" + o.ToToken.Symbol
}

// Validate checks the plan's parameters before creation.
func (o *DCAOrder) Validate() error {
	if o.WalletAddress == "" {
		return fmt.Errorf("wallet address is required")
	}
	if o.ChainID == "" {
		return fmt.Errorf("chain is required")
	}
	if o.FromToken.Symbol == "" || o.ToToken.Symbol == "" {
		return fmt.Errorf("both tokens are required")
	}
	if o.AmountPerInterval == "" || o.AmountPerInterval == "0" {
		return fmt.Errorf("amount per interval must be greater than 0")
	}
	if o.Frequency <= 0 {
		return fmt.Errorf("frequency must be greater than 0")
	}
	if o.TotalIntervals < 0 {
		return fmt.Errorf("total intervals cannot be negative")
	}
	if o.ExecutionHour != nil && (*o.ExecutionHour < 0 || *o.ExecutionHour > 23) {
		return fmt.Errorf("execution hour must be between 0 and 23")
	}
	if o.StartDate != nil && o.EndDate != nil && o.EndDate.Before(*o.StartDate) {
		return fmt.Errorf("end date must be after start date")
	}
	return nil
}

// Due reports whether an interval execution is owed at now. A plan past
// its end date is never due; the scheduler completes it instead.
func (o *DCAOrder) Due(now time.Time) bool {
	return o.Status == StatusActive && !now.Before(o.NextExecution) && !o.Ended(now)
}

// Bounded reports whether the plan stops after a fixed interval count.
func (o *DCAOrder) Bounded() bool { return o.TotalIntervals > 0 }

// Ended reports whether the plan's end date has passed at t.
func (o *DCAOrder) Ended(t time.Time) bool {
	return o.EndDate != nil && t.After(*o.EndDate)
}

// FirstExecution returns when the first interval runs: creation time or
// the start date, snapped forward to the execution hour when one is set.
func (o *DCAOrder) FirstExecution(now time.Time) time.Time {
	first := now
	if o.StartDate != nil && o.StartDate.After(now) {
		first = *o.StartDate
	}
	if o.ExecutionHour != nil {
		at := time.Date(first.Year(), first.Month(), first.Day(), *o.ExecutionHour, 0, 0, 0, first.Location())
		if at.Before(first) {
			at = at.Add(24 * time.Hour)
		}
		first = at
	}
	return first
}

// nextAfter returns the schedule slot following t: one frequency later,
// snapped to the execution hour when one is set. Always after t.
func (o *DCAOrder) nextAfter(t time.Time) time.Time {
	next := t.Add(o.Frequency)
	if o.ExecutionHour != nil {
		next = time.Date(next.Year(), next.Month(), next.Day(), *o.ExecutionHour, 0, 0, 0, next.Location())
		if !next.After(t) {
			next = next.Add(24 * time.Hour)
		}
	}
	return next
}

// advanceSchedule moves NextExecution to the first slot after now.
// Intervals missed during a stall are skipped, the same policy as
// resuming from pause: the plan never executes back-to-back to catch up.
func (o *DCAOrder) advanceSchedule(now time.Time) {
	next := o.nextAfter(o.NextExecution)
	for !next.After(now) {
		next = o.nextAfter(next)
	}
	o.NextExecution = next
}

// RecordFill applies one successful interval: accumulates totals,
// recomputes the average price, advances the schedule and completes the
// plan when the last bounded interval is done. The average is left
// untouched when nothing has been received yet, so it never divides by
// zero.
func (o *DCAOrder) RecordFill(spent, received decimal.Decimal, now time.Time) {
	o.CompletedIntervals++
	o.TotalSpent = o.TotalSpent.Add(spent)
	o.TotalReceived = o.TotalReceived.Add(received)
	if o.TotalReceived.IsPositive() {
		o.AveragePrice = o.TotalSpent.DivRound(o.TotalReceived, 18)
	}
	o.LastExecutionError = ""
	o.advanceSchedule(now)
	o.UpdatedAt = now

	if (o.Bounded() && o.CompletedIntervals >= o.TotalIntervals) || o.Ended(o.NextExecution) {
		o.Status = StatusCompleted
	}
}

// RecordFailure records the error and waits for the next interval; DCA
// never fast-retries a failed execution.
func (o *DCAOrder) RecordFailure(err error, now time.Time) {
	o.LastExecutionError = err.Error()
	o.advanceSchedule(now)
	o.UpdatedAt = now
}

// SwapRequest builds the trade request for one interval.
func (o *DCAOrder) SwapRequest(chain types.Chain) types.SwapRequest {
	return types.SwapRequest{
		Chain:         chain,
		FromToken:     o.FromToken,
		ToToken:       o.ToToken,
		Amount:        o.AmountPerInterval,
		SlippagePct:   o.SlippagePct,
		WalletAddress: o.WalletAddress,
	}
}
