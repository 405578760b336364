package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var positionsWallet string

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Show perpetuals account state and open orders",
	Long: `Show the derivatives account summary: account value, margin usage,
open positions with unrealized PnL against the current mid price, and
resting orders. Read-only; orders are placed on the venue itself.

Examples:
  omniswap positions
  omniswap positions --wallet 0xabc...`,
	Run: runPositions,
}

func init() {
	rootCmd.AddCommand(positionsCmd)
	positionsCmd.Flags().StringVar(&positionsWallet, "wallet", "", "Wallet address (defaults to the configured wallet)")
}

func runPositions(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	a, err := newApp(verbose)
	exitOnError(err)
	defer a.Close()

	wallet := positionsWallet
	if wallet == "" {
		wallet = a.cfg.WalletAddress
	}
	if wallet == "" {
		exitOnError(fmt.Errorf("no wallet address configured; pass --wallet"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Fetching account state..."
	s.Start()

	state, err := a.perps.GetAccountState(ctx, wallet)
	if err != nil {
		s.Stop()
		exitOnError(err)
	}
	orders, err := a.perps.GetOpenOrders(ctx, wallet)
	if err != nil {
		s.Stop()
		exitOnError(err)
	}
	mids, err := a.perps.GetMidPrices(ctx)
	s.Stop()
	if err != nil {
		a.log.Warn("failed to fetch mid prices; showing positions without marks")
		mids = nil
	}

	fmt.Println()
	color.Cyan("Account %s", wallet)
	fmt.Printf("  Value:        $%s\n", state.AccountValue.StringFixed(2))
	fmt.Printf("  Margin used:  $%s\n", state.MarginUsed.StringFixed(2))
	fmt.Printf("  Withdrawable: $%s\n", state.Withdrawable.StringFixed(2))

	if len(state.Positions) == 0 {
		fmt.Println("\nNo open positions.")
	} else {
		fmt.Println("\nPositions:")
		for _, p := range state.Positions {
			line := fmt.Sprintf("  %-8s size %-12s entry %-12s %sx  PnL $%s",
				p.Coin, p.Size.String(), p.EntryPrice.StringFixed(2),
				p.Leverage.String(), p.UnrealizedPnL.StringFixed(2))
			if mid, ok := mids[p.Coin]; ok {
				line += fmt.Sprintf("  mark %s", mid.StringFixed(2))
			}
			if p.UnrealizedPnL.IsNegative() {
				color.Red(line)
			} else {
				color.Green(line)
			}
		}
	}

	if len(orders) == 0 {
		fmt.Println("\nNo resting orders.")
		return
	}
	fmt.Println("\nOpen orders:")
	for _, o := range orders {
		fmt.Printf("  %-8s %-4s size %-12s @ %-12s placed %s\n",
			o.Coin, o.Side, o.Size.String(), o.Price.StringFixed(2),
			o.Timestamp.Format("2006-01-02 15:04"))
	}
}
