package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tokensChain string

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List supported chains and their known tokens",
	Long: `List the chains the CLI can trade on, or the tokens resolvable by
symbol on one chain, with live USD prices where available.

Examples:
  omniswap tokens
  omniswap tokens --chain arbitrum`,
	Run: runTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.Flags().StringVar(&tokensChain, "chain", "", "Show tokens for one chain")
}

func runTokens(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(verbose)
	exitOnError(err)
	defer a.Close()

	if tokensChain == "" {
		listChains(a, jsonOutput)
		return
	}

	tokens, err := a.registry.Tokens(tokensChain)
	exitOnError(err)

	tickers := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tickers = append(tickers, t.Symbol)
	}
	prices, err := a.pricer.TickerPrices(context.Background(), tickers)
	if err != nil {
		a.log.Warn("price lookup failed; listing without prices")
		prices = nil
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(tokens, "", "  ")
		fmt.Println(string(data))
		return
	}

	color.Cyan("\nTokens on %s:\n", tokensChain)
	for _, t := range tokens {
		line := fmt.Sprintf("  %-6s %-44s decimals %d", t.Symbol, t.Address, t.Decimals)
		if p, ok := prices[t.Symbol]; ok {
			line += fmt.Sprintf("   $%s", p.StringFixed(2))
		}
		fmt.Println(line)
	}
	fmt.Println()
}

func listChains(a *app, jsonOutput bool) {
	chains := a.registry.List()
	sort.Slice(chains, func(i, j int) bool { return chains[i].Index < chains[j].Index })

	if jsonOutput {
		data, _ := json.MarshalIndent(chains, "", "  ")
		fmt.Println(string(data))
		return
	}

	color.Cyan("\nSupported chains:\n")
	for _, c := range chains {
		fmt.Printf("  %-10s %-14s family %-8s native %s\n", c.ID, c.Name, c.Family, c.NativeToken.Symbol)
	}
	fmt.Println()
}
