package orders

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"omniswap/pkg/chains"
	"omniswap/pkg/tradelog"
	"omniswap/pkg/types"
)

// DefaultDCACheckInterval is how often the scheduler looks for due DCA
// intervals.
const DefaultDCACheckInterval = 30 * time.Second

// Fill is the result of one executed trade, in human units.
type Fill struct {
	TxHash   string
	Spent    decimal.Decimal
	Received decimal.Decimal
}

// Executor performs the swap behind an order attempt. The production
// wiring quotes and runs the swap coordinator; tests substitute a fake.
type Executor interface {
	ExecuteSwap(ctx context.Context, req types.SwapRequest) (*Fill, error)
}

// Engine is the order evaluation loop. It consumes price ticks from a
// channel, fires limit orders whose condition is met, stamps TP/SL
// watcher hits, and schedules due DCA intervals. Execution attempts are
// serialized per order id: an order with an outstanding attempt is
// skipped until the attempt finishes.
type Engine struct {
	manager  *Manager
	registry *chains.Registry
	executor Executor
	ticks    <-chan types.PriceTick
	debugLog *tradelog.Log
	log      *zap.Logger

	dcaInterval time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

// NewEngine wires the evaluation loop. ticks is owned by the caller and
// closing it stops limit evaluation.
func NewEngine(manager *Manager, registry *chains.Registry, executor Executor, ticks <-chan types.PriceTick, debugLog *tradelog.Log, log *zap.Logger) *Engine {
	return &Engine{
		manager:     manager,
		registry:    registry,
		executor:    executor,
		ticks:       ticks,
		debugLog:    debugLog,
		log:         log,
		dcaInterval: DefaultDCACheckInterval,
		inflight:    make(map[string]struct{}),
	}
}

// SetDCACheckInterval overrides the scheduler cadence; used by tests.
func (e *Engine) SetDCACheckInterval(d time.Duration) { e.dcaInterval = d }

// Run processes ticks and DCA schedules until ctx is cancelled, then
// waits for outstanding execution attempts to finish.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.dcaInterval)
	defer ticker.Stop()

	e.log.Info("order engine started")
	for {
		select {
		case <-ctx.Done():
			e.wg.Wait()
			e.log.Info("order engine stopped")
			return
		case tick, ok := <-e.ticks:
			if !ok {
				e.wg.Wait()
				return
			}
			e.HandleTick(ctx, tick)
		case <-ticker.C:
			e.RunDueDCA(ctx, time.Now())
		}
	}
}

// HandleTick evaluates every active limit order watching the tick's
// pair.
func (e *Engine) HandleTick(ctx context.Context, tick types.PriceTick) {
	list, err := e.manager.Store().ActiveLimitOrders(ctx)
	if err != nil {
		e.log.Error("failed to load limit orders", zap.Error(err))
		return
	}

	now := time.Now()
	for _, o := range list {
		if o.Pair() != tick.Pair {
			continue
		}
		if tick.ChainID != "" && o.ChainID != tick.ChainID {
			continue
		}

		if o.Status == StatusActive && o.Expired(now) {
			if err := e.manager.MarkExpired(ctx, o.WalletAddress, o.ID); err != nil {
				e.log.Warn("failed to expire limit order", zap.String("order_id", o.ID), zap.Error(err))
			}
			continue
		}

		e.evaluateWatchers(ctx, o, tick.Price)

		if o.Status == StatusActive && o.ConditionMet(tick.Price) {
			e.trigger(ctx, o, tick.Price)
		}
	}
}

// evaluateWatchers stamps TP/SL hits. They never mutate the order's
// status; the base trigger and the watchers observe the same price feed
// independently.
func (e *Engine) evaluateWatchers(ctx context.Context, o *LimitOrder, price decimal.Decimal) {
	if o.TakeProfitPrice != nil && o.TakeProfitHitAt == nil && price.GreaterThanOrEqual(*o.TakeProfitPrice) {
		if err := e.manager.RecordWatcherHit(ctx, o.WalletAddress, o.ID, true); err != nil {
			e.log.Warn("failed to record take-profit hit", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	if o.StopLossPrice != nil && o.StopLossHitAt == nil && price.LessThanOrEqual(*o.StopLossPrice) {
		if err := e.manager.RecordWatcherHit(ctx, o.WalletAddress, o.ID, false); err != nil {
			e.log.Warn("failed to record stop-loss hit", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
}

// trigger transitions the order and schedules one execution attempt. The
// status transition and the inflight claim together make the attempt
// at-most-once even when ticks arrive concurrently.
func (e *Engine) trigger(ctx context.Context, o *LimitOrder, price decimal.Decimal) {
	if !e.claim(o.ID) {
		return
	}

	triggered, err := e.manager.MarkTriggered(ctx, o.WalletAddress, o.ID)
	if err != nil {
		e.release(o.ID)
		return
	}

	e.log.Info("limit order triggered",
		zap.String("order_id", o.ID),
		zap.String("pair", o.Pair()),
		zap.String("price", price.String()))

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.release(o.ID)
		e.executeLimit(ctx, triggered)
	}()
}

func (e *Engine) executeLimit(ctx context.Context, o *LimitOrder) {
	chain, err := e.registry.Get(o.ChainID)
	if err != nil {
		e.failLimit(ctx, o, err)
		return
	}

	fill, err := e.executor.ExecuteSwap(ctx, o.SwapRequest(chain))
	if err != nil {
		e.failLimit(ctx, o, err)
		return
	}

	if err := e.manager.MarkExecuted(ctx, o.WalletAddress, o.ID, fill.TxHash); err != nil {
		e.log.Error("failed to mark limit order executed",
			zap.String("order_id", o.ID), zap.Error(err))
		return
	}
	e.debugLog.Info(chain.Family, "limit_order", "limit order executed", map[string]any{
		"order_id": o.ID,
		"pair":     o.Pair(),
		"tx_hash":  fill.TxHash,
	})
}

// failLimit records the attempt; the manager decides whether the order
// returns to active or is out of budget.
func (e *Engine) failLimit(ctx context.Context, o *LimitOrder, execErr error) {
	family := types.FamilyEVM
	if chain, err := e.registry.Get(o.ChainID); err == nil {
		family = chain.Family
	}
	e.debugLog.Error(family, "limit_order", "limit order execution failed", map[string]any{
		"order_id": o.ID,
		"pair":     o.Pair(),
		"error":    execErr.Error(),
	})
	if err := e.manager.RecordLimitFailure(ctx, o.WalletAddress, o.ID, execErr); err != nil {
		e.log.Error("failed to record limit order failure",
			zap.String("order_id", o.ID), zap.Error(err))
	}
}

// RunDueDCA executes every active plan whose next interval is owed.
func (e *Engine) RunDueDCA(ctx context.Context, now time.Time) {
	plans, err := e.manager.Store().ActiveDCAOrders(ctx)
	if err != nil {
		e.log.Error("failed to load DCA orders", zap.Error(err))
		return
	}

	for _, o := range plans {
		if o.Ended(now) {
			if err := e.manager.CompleteDCAOrder(ctx, o.WalletAddress, o.ID); err != nil {
				e.log.Warn("failed to complete ended DCA order",
					zap.String("order_id", o.ID), zap.Error(err))
			}
			continue
		}
		if !o.Due(now) {
			continue
		}
		if !e.claim(o.ID) {
			continue
		}
		e.wg.Add(1)
		go func(o *DCAOrder) {
			defer e.wg.Done()
			defer e.release(o.ID)
			e.executeDCAInterval(ctx, o, now)
		}(o)
	}
}

func (e *Engine) executeDCAInterval(ctx context.Context, stale *DCAOrder, now time.Time) {
	// Re-read under the claim: the plan may have been paused or
	// cancelled since the scheduler snapshot.
	o, err := e.manager.Store().GetDCAOrder(ctx, stale.WalletAddress, stale.ID)
	if err != nil || !o.Due(now) {
		return
	}

	chain, err := e.registry.Get(o.ChainID)
	if err != nil {
		o.RecordFailure(err, now)
		_ = e.manager.ApplyDCAResult(ctx, o)
		return
	}

	fill, err := e.executor.ExecuteSwap(ctx, o.SwapRequest(chain))
	if err != nil {
		o.RecordFailure(err, now)
		e.debugLog.Error(chain.Family, "dca_order", "DCA interval failed", map[string]any{
			"order_id": o.ID,
			"interval": o.CompletedIntervals + 1,
			"error":    err.Error(),
		})
		if saveErr := e.manager.ApplyDCAResult(ctx, o); saveErr != nil {
			e.log.Error("failed to save DCA failure", zap.String("order_id", o.ID), zap.Error(saveErr))
		}
		return
	}

	spent := fill.Spent
	if !spent.IsPositive() {
		if parsed, err := decimal.NewFromString(o.AmountPerInterval); err == nil {
			spent = parsed
		}
	}
	o.RecordFill(spent, fill.Received, now)
	e.debugLog.Info(chain.Family, "dca_order", "DCA interval executed", map[string]any{
		"order_id": o.ID,
		"interval": o.CompletedIntervals,
		"tx_hash":  fill.TxHash,
	})
	if err := e.manager.ApplyDCAResult(ctx, o); err != nil {
		e.log.Error("failed to save DCA fill", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func (e *Engine) claim(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[id]; busy {
		return false
	}
	e.inflight[id] = struct{}{}
	return true
}

func (e *Engine) release(id string) {
	e.mu.Lock()
	delete(e.inflight, id)
	e.mu.Unlock()
}
