package orders

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"omniswap/pkg/chains"
	"omniswap/pkg/tradelog"
	"omniswap/pkg/types"
)

type fakeExecutor struct {
	mu    sync.Mutex
	calls int
	err   error
	fill  Fill
}

func (f *fakeExecutor) ExecuteSwap(ctx context.Context, req types.SwapRequest) (*Fill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	fill := f.fill
	if fill.TxHash == "" {
		fill.TxHash = "0xfill"
	}
	return &fill, nil
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestEngine(t *testing.T, exec Executor) (*Engine, *Manager) {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "orders.json"))
	require.NoError(t, err)
	manager := NewManager(store, zap.NewNop())
	engine := NewEngine(manager, chains.NewRegistry(nil), exec, nil, tradelog.New(100), zap.NewNop())
	return engine, manager
}

func newLimitOrder(condition PriceCondition, target float64) *LimitOrder {
	return &LimitOrder{
		WalletAddress: "0xwallet",
		ChainID:       "ethereum",
		FromToken:     types.Token{Symbol: "USDC", Address: "0xa0b8", Decimals: 6},
		ToToken:       types.Token{Symbol: "WETH", Address: "0xc02a", Decimals: 18},
		Amount:        "100",
		SlippagePct:   decimal.NewFromFloat(0.5),
		Condition:     condition,
		TargetPrice:   decimal.NewFromFloat(target),
	}
}

func tickAt(price float64) types.PriceTick {
	return types.PriceTick{
		ChainID:   "ethereum",
		Pair:      "USDC/WETH",
		Price:     decimal.NewFromFloat(price),
		Timestamp: time.Now(),
	}
}

func waitForStatus(t *testing.T, m *Manager, wallet, id string, want Status) *LimitOrder {
	t.Helper()
	var got *LimitOrder
	require.Eventually(t, func() bool {
		o, err := m.Store().GetLimitOrder(context.Background(), wallet, id)
		if err != nil {
			return false
		}
		got = o
		return o.Status == want
	}, 2*time.Second, 5*time.Millisecond, "order never reached status %s", want)
	return got
}

func TestLimitOrderTriggersOnCross(t *testing.T) {
	exec := &fakeExecutor{}
	engine, manager := newTestEngine(t, exec)
	ctx := context.Background()

	o := newLimitOrder(PriceAbove, 100)
	require.NoError(t, manager.CreateLimitOrder(ctx, o))

	engine.HandleTick(ctx, tickAt(99)) // below target: no trigger
	got, err := manager.Store().GetLimitOrder(ctx, o.WalletAddress, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	assert.Zero(t, exec.callCount())

	engine.HandleTick(ctx, tickAt(101)) // crossed: trigger and execute
	got = waitForStatus(t, manager, o.WalletAddress, o.ID, StatusExecuted)
	assert.Equal(t, "0xfill", got.TxHash)
	assert.Equal(t, 1, exec.callCount())
}

func TestLimitOrderDoesNotTriggerBelowTarget(t *testing.T) {
	exec := &fakeExecutor{}
	engine, manager := newTestEngine(t, exec)
	ctx := context.Background()

	o := newLimitOrder(PriceAbove, 100)
	require.NoError(t, manager.CreateLimitOrder(ctx, o))

	for _, p := range []float64{99, 98, 99} {
		engine.HandleTick(ctx, tickAt(p))
	}

	got, err := manager.Store().GetLimitOrder(ctx, o.WalletAddress, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	assert.Zero(t, exec.callCount())
}

func TestLimitOrderBelowCondition(t *testing.T) {
	exec := &fakeExecutor{}
	engine, manager := newTestEngine(t, exec)
	ctx := context.Background()

	o := newLimitOrder(PriceBelow, 50)
	require.NoError(t, manager.CreateLimitOrder(ctx, o))

	engine.HandleTick(ctx, tickAt(55))
	got, err := manager.Store().GetLimitOrder(ctx, o.WalletAddress, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)

	engine.HandleTick(ctx, tickAt(49))
	waitForStatus(t, manager, o.WalletAddress, o.ID, StatusExecuted)
}

func TestLimitOrderFailureReturnsToActiveThenFails(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("insufficient liquidity")}
	engine, manager := newTestEngine(t, exec)
	ctx := context.Background()

	o := newLimitOrder(PriceAbove, 100)
	require.NoError(t, manager.CreateLimitOrder(ctx, o))

	// First two failures send the order back to active for re-trigger.
	for attempt := 1; attempt <= 2; attempt++ {
		engine.HandleTick(ctx, tickAt(101))
		var got *LimitOrder
		require.Eventually(t, func() bool {
			o2, err := manager.Store().GetLimitOrder(ctx, o.WalletAddress, o.ID)
			if err != nil {
				return false
			}
			got = o2
			return o2.ExecutionAttempts == attempt && o2.Status == StatusActive
		}, 2*time.Second, 5*time.Millisecond)
		assert.Contains(t, got.LastExecutionError, "insufficient liquidity")
	}

	// Third failure exhausts the budget.
	engine.HandleTick(ctx, tickAt(101))
	got := waitForStatus(t, manager, o.WalletAddress, o.ID, StatusFailed)
	assert.Equal(t, 3, got.ExecutionAttempts)
	assert.Equal(t, 3, exec.callCount())

	// A terminal order is never evaluated again.
	engine.HandleTick(ctx, tickAt(101))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, exec.callCount())
}

func TestLimitOrderConcurrentTicksExecuteOnce(t *testing.T) {
	exec := &fakeExecutor{}
	engine, manager := newTestEngine(t, exec)
	ctx := context.Background()

	o := newLimitOrder(PriceAbove, 100)
	require.NoError(t, manager.CreateLimitOrder(ctx, o))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.HandleTick(ctx, tickAt(105))
		}()
	}
	wg.Wait()

	waitForStatus(t, manager, o.WalletAddress, o.ID, StatusExecuted)
	assert.Equal(t, 1, exec.callCount(), "one trigger must execute exactly once")
}

func TestLimitOrderExpiry(t *testing.T) {
	exec := &fakeExecutor{}
	engine, manager := newTestEngine(t, exec)
	ctx := context.Background()

	o := newLimitOrder(PriceAbove, 100)
	past := time.Now().Add(-time.Minute)
	o.ExpiresAt = &past
	require.NoError(t, manager.CreateLimitOrder(ctx, o))

	engine.HandleTick(ctx, tickAt(101))
	got, err := manager.Store().GetLimitOrder(ctx, o.WalletAddress, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)
	assert.Zero(t, exec.callCount())
}

func TestWatcherHitsAreOrthogonal(t *testing.T) {
	exec := &fakeExecutor{}
	engine, manager := newTestEngine(t, exec)
	ctx := context.Background()

	o := newLimitOrder(PriceAbove, 200)
	tp := decimal.NewFromInt(150)
	sl := decimal.NewFromInt(90)
	o.TakeProfitPrice = &tp
	o.StopLossPrice = &sl
	require.NoError(t, manager.CreateLimitOrder(ctx, o))

	engine.HandleTick(ctx, tickAt(155)) // TP crossed, base target (200) not
	got, err := manager.Store().GetLimitOrder(ctx, o.WalletAddress, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status, "watcher hit must not change status")
	assert.NotNil(t, got.TakeProfitHitAt)
	assert.Nil(t, got.StopLossHitAt)

	engine.HandleTick(ctx, tickAt(85)) // SL crossed
	got, err = manager.Store().GetLimitOrder(ctx, o.WalletAddress, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	assert.NotNil(t, got.StopLossHitAt)
	assert.Zero(t, exec.callCount())
}

func newDCAOrder(totalIntervals int, freq time.Duration) *DCAOrder {
	return &DCAOrder{
		WalletAddress:     "0xwallet",
		ChainID:           "ethereum",
		FromToken:         types.Token{Symbol: "USDC", Address: "0xa0b8", Decimals: 6},
		ToToken:           types.Token{Symbol: "WETH", Address: "0xc02a", Decimals: 18},
		AmountPerInterval: "50",
		SlippagePct:       decimal.NewFromFloat(0.5),
		Frequency:         freq,
		TotalIntervals:    totalIntervals,
	}
}

func waitForDCA(t *testing.T, m *Manager, wallet, id string, cond func(*DCAOrder) bool) *DCAOrder {
	t.Helper()
	var got *DCAOrder
	require.Eventually(t, func() bool {
		o, err := m.Store().GetDCAOrder(context.Background(), wallet, id)
		if err != nil {
			return false
		}
		got = o
		return cond(o)
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestDCACompletesAfterExactIntervalCount(t *testing.T) {
	exec := &fakeExecutor{fill: Fill{TxHash: "0xd", Spent: decimal.NewFromInt(50), Received: decimal.NewFromInt(1)}}
	engine, manager := newTestEngine(t, exec)
	ctx := context.Background()

	o := newDCAOrder(4, time.Hour)
	require.NoError(t, manager.CreateDCAOrder(ctx, o))

	now := o.NextExecution
	for i := 1; i <= 4; i++ {
		engine.RunDueDCA(ctx, now)
		waitForDCA(t, manager, o.WalletAddress, o.ID, func(d *DCAOrder) bool {
			return d.CompletedIntervals == i
		})
		now = now.Add(time.Hour)
	}

	got, err := manager.Store().GetDCAOrder(ctx, o.WalletAddress, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 4, got.CompletedIntervals)
	assert.True(t, got.TotalSpent.Equal(decimal.NewFromInt(200)))
	assert.True(t, got.TotalReceived.Equal(decimal.NewFromInt(4)))
	assert.True(t, got.AveragePrice.Equal(decimal.NewFromInt(50)))

	// A completed plan performs no fifth execution.
	engine.RunDueDCA(ctx, now.Add(time.Hour))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 4, exec.callCount())
}

func TestDCANotDueBeforeSchedule(t *testing.T) {
	exec := &fakeExecutor{}
	engine, manager := newTestEngine(t, exec)
	ctx := context.Background()

	o := newDCAOrder(4, time.Hour)
	o.NextExecution = time.Now().Add(time.Hour)
	require.NoError(t, manager.CreateDCAOrder(ctx, o))

	engine.RunDueDCA(ctx, time.Now())
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, exec.callCount())
}

func TestDCAFailureWaitsForNextInterval(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("provider timeout")}
	engine, manager := newTestEngine(t, exec)
	ctx := context.Background()

	o := newDCAOrder(4, time.Hour)
	require.NoError(t, manager.CreateDCAOrder(ctx, o))
	firstDue := o.NextExecution

	engine.RunDueDCA(ctx, firstDue)
	got := waitForDCA(t, manager, o.WalletAddress, o.ID, func(d *DCAOrder) bool {
		return d.LastExecutionError != ""
	})
	assert.Equal(t, 0, got.CompletedIntervals)
	assert.Contains(t, got.LastExecutionError, "provider timeout")
	assert.True(t, got.NextExecution.After(firstDue), "failure must advance the schedule")

	// Re-running at the same time performs no fast retry.
	engine.RunDueDCA(ctx, firstDue)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, exec.callCount())
}

func TestDCACompletesAtEndDate(t *testing.T) {
	exec := &fakeExecutor{fill: Fill{TxHash: "0xd", Spent: decimal.NewFromInt(50), Received: decimal.NewFromInt(1)}}
	engine, manager := newTestEngine(t, exec)
	ctx := context.Background()

	o := newDCAOrder(0, time.Hour)
	end := time.Now().Add(90 * time.Minute)
	o.EndDate = &end
	require.NoError(t, manager.CreateDCAOrder(ctx, o))

	engine.RunDueDCA(ctx, o.NextExecution)
	waitForDCA(t, manager, o.WalletAddress, o.ID, func(d *DCAOrder) bool {
		return d.CompletedIntervals == 1
	})

	// Past the end date the scheduler retires the plan instead of
	// executing another interval.
	engine.RunDueDCA(ctx, end.Add(time.Hour))
	got := waitForDCA(t, manager, o.WalletAddress, o.ID, func(d *DCAOrder) bool {
		return d.Status == StatusCompleted
	})
	assert.Equal(t, 1, got.CompletedIntervals)
	assert.Equal(t, 1, exec.callCount())
}

func TestDCAFillPastEndDateCompletes(t *testing.T) {
	o := newDCAOrder(0, 2*time.Hour)
	now := time.Now()
	o.NextExecution = now
	end := now.Add(time.Hour)
	o.EndDate = &end

	// The next slot would fall past the end date, so the fill finishes
	// the plan.
	o.RecordFill(decimal.NewFromInt(50), decimal.NewFromInt(1), now)
	assert.Equal(t, StatusCompleted, o.Status)
}

func TestDCAStallSkipsMissedIntervals(t *testing.T) {
	exec := &fakeExecutor{fill: Fill{TxHash: "0xd", Spent: decimal.NewFromInt(50), Received: decimal.NewFromInt(1)}}
	engine, manager := newTestEngine(t, exec)
	ctx := context.Background()

	o := newDCAOrder(0, time.Hour)
	require.NoError(t, manager.CreateDCAOrder(ctx, o))

	// Five intervals went by while the process was down. One execution
	// happens and the schedule lands after now; the plan never runs
	// back-to-back to catch up.
	late := o.NextExecution.Add(5 * time.Hour)
	engine.RunDueDCA(ctx, late)
	got := waitForDCA(t, manager, o.WalletAddress, o.ID, func(d *DCAOrder) bool {
		return d.CompletedIntervals == 1
	})
	assert.True(t, got.NextExecution.After(late))

	engine.RunDueDCA(ctx, late)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, exec.callCount())
}

func TestDCAExecutionHourPinsSchedule(t *testing.T) {
	hour := 9
	o := newDCAOrder(0, 24*time.Hour)
	o.ExecutionHour = &hour

	created := time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)
	first := o.FirstExecution(created)
	assert.Equal(t, 9, first.Hour())
	assert.True(t, first.After(created))

	o.NextExecution = first
	o.RecordFill(decimal.NewFromInt(50), decimal.NewFromInt(1), first)
	assert.Equal(t, 9, o.NextExecution.Hour())
	assert.True(t, o.NextExecution.After(first))
}

func TestDCAPausedPlanIsSkipped(t *testing.T) {
	exec := &fakeExecutor{}
	engine, manager := newTestEngine(t, exec)
	ctx := context.Background()

	o := newDCAOrder(0, time.Hour)
	require.NoError(t, manager.CreateDCAOrder(ctx, o))
	require.NoError(t, manager.PauseDCAOrder(ctx, o.WalletAddress, o.ID))

	engine.RunDueDCA(ctx, time.Now().Add(time.Minute))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, exec.callCount())

	require.NoError(t, manager.ResumeDCAOrder(ctx, o.WalletAddress, o.ID))
	got, err := manager.Store().GetDCAOrder(ctx, o.WalletAddress, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
}
