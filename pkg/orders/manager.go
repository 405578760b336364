package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// limitTransitions and dcaTransitions define the legal status moves.
// Every status write goes through a transition check so an order can
// never reach an undefined state.
var limitTransitions = map[Status][]Status{
	StatusActive:    {StatusTriggered, StatusCancelled, StatusExpired},
	StatusTriggered: {StatusExecuted, StatusActive, StatusFailed, StatusCancelled},
}

var dcaTransitions = map[Status][]Status{
	StatusActive: {StatusPaused, StatusCompleted, StatusCancelled},
	StatusPaused: {StatusActive, StatusCancelled},
}

func canTransition(table map[Status][]Status, from, to Status) bool {
	for _, s := range table[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Manager owns order CRUD and status-transition validation on top of a
// Store. The evaluation engine mutates orders exclusively through it.
type Manager struct {
	store Store
	log   *zap.Logger
}

// NewManager wraps the store.
func NewManager(store Store, log *zap.Logger) *Manager {
	return &Manager{store: store, log: log}
}

// Store exposes the underlying store for read paths.
func (m *Manager) Store() Store { return m.store }

// CreateLimitOrder validates and persists a new limit order.
func (m *Manager) CreateLimitOrder(ctx context.Context, o *LimitOrder) error {
	if err := o.Validate(); err != nil {
		return fmt.Errorf("invalid limit order: %w", err)
	}
	now := time.Now()
	o.ID = uuid.New().String()
	o.Status = StatusActive
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.MaxExecutionAttempts <= 0 {
		o.MaxExecutionAttempts = DefaultMaxExecutionAttempts
	}
	if err := m.store.SaveLimitOrder(ctx, o); err != nil {
		return fmt.Errorf("failed to save limit order: %w", err)
	}
	m.log.Info("limit order created",
		zap.String("order_id", o.ID),
		zap.String("pair", o.Pair()),
		zap.String("condition", string(o.Condition)),
		zap.String("target_price", o.TargetPrice.String()))
	return nil
}

// CancelLimitOrder cancels an active or triggered order.
func (m *Manager) CancelLimitOrder(ctx context.Context, wallet, id string) error {
	return m.transitionLimit(ctx, wallet, id, StatusCancelled, nil)
}

// MarkTriggered moves an active order to triggered when its condition
// fires.
func (m *Manager) MarkTriggered(ctx context.Context, wallet, id string) (*LimitOrder, error) {
	var out *LimitOrder
	err := m.transitionLimitGet(ctx, wallet, id, StatusTriggered, func(o *LimitOrder) {
		now := time.Now()
		o.TriggeredAt = &now
	}, &out)
	return out, err
}

// MarkExecuted records the confirmed swap and finishes the order.
func (m *Manager) MarkExecuted(ctx context.Context, wallet, id, txHash string) error {
	return m.transitionLimit(ctx, wallet, id, StatusExecuted, func(o *LimitOrder) {
		now := time.Now()
		o.TxHash = txHash
		o.ExecutedAt = &now
		o.LastExecutionError = ""
	})
}

// RecordLimitFailure counts one failed execution attempt. The order
// returns to active for re-trigger until the attempt budget is spent,
// then it becomes terminal failed.
func (m *Manager) RecordLimitFailure(ctx context.Context, wallet, id string, execErr error) error {
	o, err := m.store.GetLimitOrder(ctx, wallet, id)
	if err != nil {
		return err
	}
	if o.Status != StatusTriggered {
		return fmt.Errorf("limit order '%s' is not triggered", id)
	}

	o.ExecutionAttempts++
	o.LastExecutionError = execErr.Error()
	if o.ExecutionAttempts >= o.MaxExecutionAttempts {
		o.Status = StatusFailed
	} else {
		o.Status = StatusActive
	}
	o.UpdatedAt = time.Now()

	if err := m.store.SaveLimitOrder(ctx, o); err != nil {
		return fmt.Errorf("failed to save limit order: %w", err)
	}
	m.log.Warn("limit order execution failed",
		zap.String("order_id", id),
		zap.Int("attempts", o.ExecutionAttempts),
		zap.String("status", string(o.Status)),
		zap.Error(execErr))
	return nil
}

// MarkExpired retires an order whose deadline passed.
func (m *Manager) MarkExpired(ctx context.Context, wallet, id string) error {
	return m.transitionLimit(ctx, wallet, id, StatusExpired, nil)
}

// RecordWatcherHit stamps the take-profit or stop-loss timestamp. The
// base order status is untouched; the watchers are independent of the
// trigger condition.
func (m *Manager) RecordWatcherHit(ctx context.Context, wallet, id string, takeProfit bool) error {
	o, err := m.store.GetLimitOrder(ctx, wallet, id)
	if err != nil {
		return err
	}
	now := time.Now()
	if takeProfit {
		if o.TakeProfitHitAt != nil {
			return nil
		}
		o.TakeProfitHitAt = &now
	} else {
		if o.StopLossHitAt != nil {
			return nil
		}
		o.StopLossHitAt = &now
	}
	o.UpdatedAt = now
	return m.store.SaveLimitOrder(ctx, o)
}

func (m *Manager) transitionLimit(ctx context.Context, wallet, id string, to Status, mutate func(*LimitOrder)) error {
	var ignored *LimitOrder
	return m.transitionLimitGet(ctx, wallet, id, to, mutate, &ignored)
}

func (m *Manager) transitionLimitGet(ctx context.Context, wallet, id string, to Status, mutate func(*LimitOrder), out **LimitOrder) error {
	o, err := m.store.GetLimitOrder(ctx, wallet, id)
	if err != nil {
		return err
	}
	if !canTransition(limitTransitions, o.Status, to) {
		return fmt.Errorf("limit order '%s' cannot move from %s to %s", id, o.Status, to)
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	if mutate != nil {
		mutate(o)
	}
	if err := m.store.SaveLimitOrder(ctx, o); err != nil {
		return fmt.Errorf("failed to save limit order: %w", err)
	}
	*out = o
	return nil
}

// CreateDCAOrder validates and persists a new DCA plan. The first
// interval executes at NextExecution; when unset it is due immediately.
func (m *Manager) CreateDCAOrder(ctx context.Context, o *DCAOrder) error {
	if err := o.Validate(); err != nil {
		return fmt.Errorf("invalid DCA order: %w", err)
	}
	now := time.Now()
	o.ID = uuid.New().String()
	o.Status = StatusActive
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.NextExecution.IsZero() {
		o.NextExecution = o.FirstExecution(now)
	}
	if err := m.store.SaveDCAOrder(ctx, o); err != nil {
		return fmt.Errorf("failed to save DCA order: %w", err)
	}
	m.log.Info("DCA order created",
		zap.String("order_id", o.ID),
		zap.String("pair", o.Pair()),
		zap.Duration("frequency", o.Frequency),
		zap.Int("total_intervals", o.TotalIntervals))
	return nil
}

// PauseDCAOrder suspends scheduling; the plan keeps its progress.
func (m *Manager) PauseDCAOrder(ctx context.Context, wallet, id string) error {
	return m.transitionDCA(ctx, wallet, id, StatusPaused, nil)
}

// ResumeDCAOrder reactivates a paused plan. Intervals missed while
// paused are skipped, not back-filled.
func (m *Manager) ResumeDCAOrder(ctx context.Context, wallet, id string) error {
	return m.transitionDCA(ctx, wallet, id, StatusActive, func(o *DCAOrder) {
		if now := time.Now(); o.NextExecution.Before(now) {
			o.advanceSchedule(now)
		}
	})
}

// CompleteDCAOrder retires a plan whose end date has passed.
func (m *Manager) CompleteDCAOrder(ctx context.Context, wallet, id string) error {
	return m.transitionDCA(ctx, wallet, id, StatusCompleted, nil)
}

// CancelDCAOrder terminates the plan.
func (m *Manager) CancelDCAOrder(ctx context.Context, wallet, id string) error {
	return m.transitionDCA(ctx, wallet, id, StatusCancelled, nil)
}

// ApplyDCAResult persists the outcome of one interval attempt.
func (m *Manager) ApplyDCAResult(ctx context.Context, o *DCAOrder) error {
	if err := m.store.SaveDCAOrder(ctx, o); err != nil {
		return fmt.Errorf("failed to save DCA order: %w", err)
	}
	if o.Status == StatusCompleted {
		m.log.Info("DCA order completed",
			zap.String("order_id", o.ID),
			zap.Int("intervals", o.CompletedIntervals),
			zap.String("average_price", o.AveragePrice.String()))
	}
	return nil
}

func (m *Manager) transitionDCA(ctx context.Context, wallet, id string, to Status, mutate func(*DCAOrder)) error {
	o, err := m.store.GetDCAOrder(ctx, wallet, id)
	if err != nil {
		return err
	}
	if !canTransition(dcaTransitions, o.Status, to) {
		return fmt.Errorf("DCA order '%s' cannot move from %s to %s", id, o.Status, to)
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	if mutate != nil {
		mutate(o)
	}
	if err := m.store.SaveDCAOrder(ctx, o); err != nil {
		return fmt.Errorf("failed to save DCA order: %w", err)
	}
	return nil
}
