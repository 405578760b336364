package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"omniswap/pkg/parser"
	"omniswap/pkg/quote"
	"omniswap/pkg/types"
)

var (
	quoteChain    string
	quoteToChain  string
	quoteSlippage float64
	quoteAuto     bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <token> to <token>",
	Short: "Fetch a swap quote without executing",
	Long: `Fetch a priced quote for a trade, including the ranked provider routes,
price impact severity and a recommended slippage tolerance.

Examples:
  omniswap quote 100 USDC to WETH --chain ethereum
  omniswap quote 1 ETH to USDC --chain arbitrum --slippage 1
  omniswap quote 50 USDC to SOL --chain ethereum --to-chain solana`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().StringVar(&quoteChain, "chain", "ethereum", "Chain to trade on")
	quoteCmd.Flags().StringVar(&quoteToChain, "to-chain", "", "Destination chain for a cross-chain trade")
	quoteCmd.Flags().Float64Var(&quoteSlippage, "slippage", 0.5, "Slippage tolerance percent")
	quoteCmd.Flags().BoolVar(&quoteAuto, "auto", false, "Let the advisor pick slippage from price impact")
}

func runQuote(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(verbose)
	exitOnError(err)
	defer a.Close()

	req, err := buildSwapRequest(a, strings.Join(args, " "), quoteChain, quoteToChain, quoteSlippage)
	exitOnError(err)

	update, err := fetchQuote(a, *req, quoteAuto, jsonOutput)
	exitOnError(err)
	if update.Err != nil {
		exitOnError(fmt.Errorf("%s", update.Err.Message))
	}
	if update.Quote == nil {
		exitOnError(fmt.Errorf("no quote available for this pair"))
	}

	if jsonOutput {
		printQuoteJSON(update)
		return
	}
	printQuote(update)
}

// buildSwapRequest parses the trade command and resolves chain and
// tokens.
func buildSwapRequest(a *app, command, chainID, toChainID string, slippage float64) (*types.SwapRequest, error) {
	tc, err := parser.ParseTradeCommand(command)
	if err != nil {
		return nil, err
	}
	if tc.ChainID != "" {
		chainID = tc.ChainID
	}

	chain, err := a.registry.Get(chainID)
	if err != nil {
		return nil, err
	}
	fromToken, err := a.registry.FindToken(chain.ID, tc.FromSymbol)
	if err != nil {
		return nil, err
	}

	req := &types.SwapRequest{
		Chain:         chain,
		FromToken:     fromToken,
		Amount:        tc.Amount,
		SlippagePct:   floatToDecimal(slippage),
		WalletAddress: a.cfg.WalletAddress,
	}

	if toChainID != "" && toChainID != chain.ID {
		toChain, err := a.registry.Get(toChainID)
		if err != nil {
			return nil, err
		}
		toToken, err := a.registry.FindToken(toChain.ID, tc.ToSymbol)
		if err != nil {
			return nil, err
		}
		req.ToChain = toChain
		req.ToToken = toToken
		req.CrossChain = true
		return req, nil
	}

	toToken, err := a.registry.FindToken(chain.ID, tc.ToSymbol)
	if err != nil {
		return nil, err
	}
	req.ToToken = toToken
	return req, nil
}

// fetchQuote runs one request through the quote engine and waits for its
// settled update.
func fetchQuote(a *app, req types.SwapRequest, auto, jsonOutput bool) (*quote.Update, error) {
	engine := quote.NewEngine(a.router, a.bridge, a.log)
	defer engine.Close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
		defer s.Stop()
	}

	seq := engine.Submit(quote.Params{Request: req, AutoSlippage: auto, Enabled: true})

	timeout := time.After(60 * time.Second)
	for {
		select {
		case u, ok := <-engine.Updates():
			if !ok {
				return nil, fmt.Errorf("quote engine closed")
			}
			if u.Seq == seq {
				return &u, nil
			}
		case <-timeout:
			return nil, fmt.Errorf("quote request timed out")
		}
	}
}

func printQuote(u *quote.Update) {
	q := u.Quote
	req := q.Request

	fmt.Println()
	color.Cyan("Quote: %s %s -> %s", req.Amount, req.FromToken.Symbol, req.ToToken.Symbol)
	fmt.Printf("  Chain:           %s\n", req.Chain.Name)
	if req.CrossChain {
		fmt.Printf("  To chain:        %s\n", req.ToChain.Name)
	}
	fmt.Printf("  You receive:     %s %s\n", q.AmountOutHuman.StringFixed(6), req.ToToken.Symbol)
	fmt.Printf("  Rate:            1 %s = %s %s\n", req.FromToken.Symbol, q.Rate.StringFixed(6), req.ToToken.Symbol)
	fmt.Printf("  Price impact:    %s%% (%s)\n", q.PriceImpactPct.StringFixed(2), u.Severity)
	fmt.Printf("  Slippage to use: %s%%\n", u.RecommendedSlippage.StringFixed(2))

	if len(u.Ranked) > 0 {
		fmt.Println("\n  Routes (best first):")
		for i, r := range u.Ranked {
			fmt.Printf("    %d. %-16s out %-22s gas %s\n",
				i+1, r.Provider, r.NetOutput().String(), r.EstimatedGas.String())
		}
	}
	fmt.Println()
}

func printQuoteJSON(u *quote.Update) {
	q := u.Quote
	out := map[string]any{
		"from_token":           q.Request.FromToken.Symbol,
		"to_token":             q.Request.ToToken.Symbol,
		"amount_in":            q.Request.Amount,
		"amount_out":           q.AmountOutHuman.String(),
		"rate":                 q.Rate.String(),
		"price_impact_pct":     q.PriceImpactPct.String(),
		"impact_severity":      string(u.Severity),
		"recommended_slippage": u.RecommendedSlippage.String(),
		"routes":               u.Ranked,
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
}
