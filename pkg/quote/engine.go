// Package quote turns user trade input into priced, ranked, risk-annotated
// quotes. The engine debounces input changes and guarantees that only the
// most recently requested tuple's result ever becomes visible.
package quote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"omniswap/pkg/amount"
	"omniswap/pkg/retry"
	"omniswap/pkg/types"
)

// DefaultDebounce is the quiet period after the last input change before
// a provider request is issued.
const DefaultDebounce = 500 * time.Millisecond

// Provider fetches a same-chain swap quote.
type Provider interface {
	GetQuote(ctx context.Context, req types.SwapRequest, amountIn decimal.Decimal) (*types.Quote, error)
}

// BridgeProvider fetches cross-chain candidate routes.
type BridgeProvider interface {
	GetCrossChainQuote(ctx context.Context, req types.SwapRequest, amountIn decimal.Decimal) ([]types.Route, error)
}

// Params is one quote request tuple as entered by the user.
type Params struct {
	Request      types.SwapRequest
	AutoSlippage bool
	Enabled      bool
}

// Update is the engine's output for one settled request. A nil Quote with
// a nil Err is the valid "no quote" state (empty or disabled input), not
// an error.
type Update struct {
	Seq                 uint64
	Quote               *types.Quote
	Ranked              []types.Route
	RecommendedSlippage decimal.Decimal
	Severity            ImpactSeverity
	Err                 *types.TradeError
}

// Engine debounces and de-duplicates quote requests. Submitting new
// params cancels the in-flight request, so responses can never be applied
// out of order relative to input changes.
type Engine struct {
	provider Provider
	bridge   BridgeProvider
	debounce time.Duration
	retryCfg retry.Config
	log      *zap.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	timer  *time.Timer

	updates chan Update
	closed  bool
}

// NewEngine creates a quote engine. bridge may be nil when cross-chain
// quoting is not needed.
func NewEngine(provider Provider, bridge BridgeProvider, log *zap.Logger) *Engine {
	return &Engine{
		provider: provider,
		bridge:   bridge,
		debounce: DefaultDebounce,
		retryCfg: retry.DefaultConfig(),
		log:      log,
		updates:  make(chan Update, 16),
	}
}

// SetDebounce overrides the quiet period; used by tests.
func (e *Engine) SetDebounce(d time.Duration) { e.debounce = d }

// Updates delivers settled results. Only the newest submission's result
// is ever delivered for a given burst of input changes.
func (e *Engine) Updates() <-chan Update { return e.updates }

// Submit registers new input. Any in-flight or pending request is
// cancelled. Invalid or disabled input settles immediately into the
// "no quote" state.
func (e *Engine) Submit(p Params) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	seq := e.seq

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}

	human, parseErr := amount.Parse(p.Request.Amount)
	if !p.Enabled || parseErr != nil ||
		p.Request.FromToken.Symbol == "" || p.Request.ToToken.Symbol == "" ||
		p.Request.Chain.ID == "" {
		e.emit(Update{Seq: seq})
		return seq
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	e.timer = time.AfterFunc(e.debounce, func() {
		e.fetch(ctx, seq, p, human)
	})
	return seq
}

// Close cancels any pending work and closes the update stream.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	close(e.updates)
}

func (e *Engine) fetch(ctx context.Context, seq uint64, p Params, human decimal.Decimal) {
	req := p.Request
	amountIn := amount.ToSmallestUnit(human, req.FromToken.Decimals)

	var q *types.Quote
	var err error
	if req.CrossChain && e.bridge != nil {
		q, err = e.fetchBridge(ctx, req, amountIn)
	} else {
		q, err = retry.Do(ctx, e.retryCfg, func(ctx context.Context) (*types.Quote, error) {
			return e.provider.GetQuote(ctx, req, amountIn)
		})
	}

	if ctx.Err() != nil {
		// Superseded or shut down; the result must not become visible.
		return
	}

	if err != nil {
		e.log.Warn("quote fetch failed",
			zap.String("pair", req.FromToken.Symbol+"/"+req.ToToken.Symbol),
			zap.Error(err))
		e.emitIfCurrent(seq, Update{
			Seq: seq,
			Err: types.NewTradeError(req.Chain.Family, err),
		})
		return
	}

	q.AmountOutHuman = amount.FromSmallestUnit(q.AmountOut, req.ToToken.Decimals)
	q.Rate = amount.Rate(human, q.AmountOutHuman)
	q.CreatedAt = time.Now()

	e.emitIfCurrent(seq, Update{
		Seq:                 seq,
		Quote:               q,
		Ranked:              RankRoutes(q.Routes),
		RecommendedSlippage: EffectiveSlippage(q.PriceImpactPct, req.SlippagePct, p.AutoSlippage),
		Severity:            ClassifyImpact(q.PriceImpactPct),
	})
}

func (e *Engine) fetchBridge(ctx context.Context, req types.SwapRequest, amountIn decimal.Decimal) (*types.Quote, error) {
	routes, err := retry.Do(ctx, e.retryCfg, func(ctx context.Context) ([]types.Route, error) {
		return e.bridge.GetCrossChainQuote(ctx, req, amountIn)
	})
	if err != nil {
		return nil, err
	}

	best, ok := BestRoute(routes)
	if !ok {
		return nil, fmt.Errorf("no route found for %s -> %s",
			req.FromToken.Symbol, req.ToToken.Symbol)
	}
	return &types.Quote{
		Request:      req,
		AmountIn:     amountIn,
		AmountOut:    best.AmountOut,
		EstimatedGas: best.EstimatedGas,
		Routes:       routes,
	}, nil
}

// emitIfCurrent drops results that were superseded between fetch
// completion and delivery.
func (e *Engine) emitIfCurrent(seq uint64, u Update) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.seq || e.closed {
		return
	}
	e.emit(u)
}

// emit sends without blocking; under backpressure the oldest buffered
// update is discarded, never the newest.
func (e *Engine) emit(u Update) {
	if e.closed {
		return
	}
	for {
		select {
		case e.updates <- u:
			return
		default:
			select {
			case <-e.updates:
			default:
			}
		}
	}
}
