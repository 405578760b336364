package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"omniswap/pkg/amount"
	"omniswap/pkg/orders"
	"omniswap/pkg/parser"
	"omniswap/pkg/swap"
	"omniswap/pkg/types"
)

var (
	runTickInterval time.Duration
	runDCAInterval  time.Duration
	runDebugReport  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the order evaluation engine",
	Long: `Run the background engine that watches prices, fires limit orders whose
condition is met, and executes due DCA intervals. Stops cleanly on
Ctrl-C.

Examples:
  omniswap run
  omniswap run --tick-interval 15s
  omniswap run --debug-report /tmp/omniswap-debug.json`,
	Run: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().DurationVar(&runTickInterval, "tick-interval", 30*time.Second, "Price poll interval")
	runCmd.Flags().DurationVar(&runDCAInterval, "dca-interval", 30*time.Second, "DCA schedule check interval")
	runCmd.Flags().StringVar(&runDebugReport, "debug-report", "", "Write the diagnostic report to this file on shutdown")
}

func runEngine(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	a, err := newApp(verbose)
	exitOnError(err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticks := make(chan types.PriceTick, 64)
	executor := newOrderExecutor(a)
	engine := orders.NewEngine(a.manager, a.registry, executor, ticks, a.debugLog, a.log)
	engine.SetDCACheckInterval(runDCAInterval)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		engine.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		feedPrices(ctx, a, ticks)
	}()

	fmt.Println("Order engine running. Press Ctrl-C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down...")
	cancel()
	wg.Wait()

	if runDebugReport != "" {
		report, err := a.debugLog.Export()
		if err == nil {
			err = os.WriteFile(runDebugReport, report, 0600)
		}
		if err != nil {
			a.log.Warn("failed to write debug report", zap.Error(err))
		} else {
			fmt.Printf("Debug report written to %s\n", runDebugReport)
		}
	}
}

// feedPrices polls the price aggregator for every pair an active limit
// order watches and pushes one tick per pair per cycle.
func feedPrices(ctx context.Context, a *app, ticks chan<- types.PriceTick) {
	defer close(ticks)

	ticker := time.NewTicker(runTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		active, err := a.store.ActiveLimitOrders(ctx)
		if err != nil {
			a.log.Error("failed to load orders for price poll", zap.Error(err))
			continue
		}
		if len(active) == 0 {
			continue
		}

		// One batched oracle request covers every watched symbol.
		seen := make(map[string]struct{})
		var tickers []string
		for _, o := range active {
			for _, sym := range []string{o.FromToken.Symbol, o.ToToken.Symbol} {
				norm := parser.NormalizeTokenSymbol(sym)
				if _, ok := seen[norm]; !ok {
					seen[norm] = struct{}{}
					tickers = append(tickers, norm)
				}
			}
		}

		prices, err := a.pricer.TickerPrices(ctx, tickers)
		if err != nil {
			a.log.Warn("price poll failed", zap.Error(err))
			continue
		}

		emitted := make(map[string]struct{})
		now := time.Now()
		for _, o := range active {
			key := o.ChainID + ":" + o.Pair()
			if _, done := emitted[key]; done {
				continue
			}
			emitted[key] = struct{}{}

			fromUSD, okFrom := prices[parser.NormalizeTokenSymbol(o.FromToken.Symbol)]
			toUSD, okTo := prices[parser.NormalizeTokenSymbol(o.ToToken.Symbol)]
			if !okFrom || !okTo || !toUSD.IsPositive() {
				continue
			}

			select {
			case ticks <- types.PriceTick{
				ChainID:   o.ChainID,
				Pair:      o.Pair(),
				Price:     fromUSD.DivRound(toUSD, 18),
				Timestamp: now,
			}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// orderExecutor quotes and executes order-driven swaps through a
// per-chain coordinator.
type orderExecutor struct {
	a *app

	mu           sync.Mutex
	coordinators map[string]*swap.Coordinator
}

func newOrderExecutor(a *app) *orderExecutor {
	return &orderExecutor{a: a, coordinators: make(map[string]*swap.Coordinator)}
}

func (x *orderExecutor) ExecuteSwap(ctx context.Context, req types.SwapRequest) (*orders.Fill, error) {
	human, err := amount.Parse(req.Amount)
	if err != nil {
		return nil, err
	}
	amountIn := amount.ToSmallestUnit(human, req.FromToken.Decimals)

	q, err := x.a.router.GetQuote(ctx, req, amountIn)
	if err != nil {
		return nil, fmt.Errorf("failed to quote order execution: %w", err)
	}
	q.AmountOutHuman = amount.FromSmallestUnit(q.AmountOut, req.ToToken.Decimals)

	coordinator, err := x.coordinatorFor(req.Chain)
	if err != nil {
		return nil, err
	}
	res, err := coordinator.Execute(ctx, q)
	if err != nil {
		return nil, err
	}

	return &orders.Fill{
		TxHash:   res.TxHash,
		Spent:    human,
		Received: q.AmountOutHuman,
	}, nil
}

// coordinatorFor lazily builds one coordinator per chain, each with a
// signer dialed to that chain's RPC endpoint.
func (x *orderExecutor) coordinatorFor(chain types.Chain) (*swap.Coordinator, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if c, ok := x.coordinators[chain.ID]; ok {
		return c, nil
	}

	signers, err := buildSignerRegistry(x.a, chain)
	if err != nil {
		return nil, err
	}

	c := swap.NewCoordinator(x.a.router, x.a.bridge, signers, x.a.pricer,
		x.a.dispatcher, x.a.debugLog, x.a.log, swap.Config{
			SpenderAddresses: x.a.cfg.SpenderAddresses,
			Retry:            retryConfig(x.a),
		})
	x.coordinators[chain.ID] = c
	return c, nil
}
