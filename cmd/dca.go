package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"omniswap/pkg/orders"
)

var (
	dcaChain     string
	dcaFrom      string
	dcaTo        string
	dcaAmount    string
	dcaEvery     time.Duration
	dcaIntervals int
	dcaSlippage  float64
	dcaAtHour    int
	dcaStart     string
	dcaEnd       string
)

var dcaCmd = &cobra.Command{
	Use:   "dca",
	Short: "Manage dollar-cost-averaging plans",
}

var dcaCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a DCA plan",
	Long: `Create a plan that buys a fixed amount at a fixed interval.

Examples:
  omniswap dca create --chain base --from USDC --to WETH --amount 50 --every 24h --intervals 30
  omniswap dca create --chain ethereum --from USDC --to WBTC --amount 200 --every 168h
  omniswap dca create --chain base --from USDC --to WETH --amount 50 --every 24h --at-hour 9 --end 2026-12-31`,
	Run: runDCACreate,
}

var dcaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your DCA plans",
	Run:   runDCAList,
}

var dcaPauseCmd = &cobra.Command{
	Use:   "pause <order-id>",
	Short: "Pause a DCA plan",
	Args:  cobra.ExactArgs(1),
	Run:   runDCAPause,
}

var dcaResumeCmd = &cobra.Command{
	Use:   "resume <order-id>",
	Short: "Resume a paused DCA plan",
	Args:  cobra.ExactArgs(1),
	Run:   runDCAResume,
}

var dcaCancelCmd = &cobra.Command{
	Use:   "cancel <order-id>",
	Short: "Cancel a DCA plan",
	Args:  cobra.ExactArgs(1),
	Run:   runDCACancel,
}

func init() {
	rootCmd.AddCommand(dcaCmd)
	dcaCmd.AddCommand(dcaCreateCmd, dcaListCmd, dcaPauseCmd, dcaResumeCmd, dcaCancelCmd)

	dcaCreateCmd.Flags().StringVar(&dcaChain, "chain", "ethereum", "Chain to trade on")
	dcaCreateCmd.Flags().StringVar(&dcaFrom, "from", "", "Token to spend (symbol)")
	dcaCreateCmd.Flags().StringVar(&dcaTo, "to", "", "Token to accumulate (symbol)")
	dcaCreateCmd.Flags().StringVar(&dcaAmount, "amount", "", "Amount to spend per interval, in human units")
	dcaCreateCmd.Flags().DurationVar(&dcaEvery, "every", 24*time.Hour, "Interval between purchases")
	dcaCreateCmd.Flags().IntVar(&dcaIntervals, "intervals", 0, "Total purchases (0 runs until cancelled)")
	dcaCreateCmd.Flags().Float64Var(&dcaSlippage, "slippage", 0.5, "Slippage tolerance percent")
	dcaCreateCmd.Flags().IntVar(&dcaAtHour, "at-hour", -1, "Execute at this hour of day, 0-23 (optional)")
	dcaCreateCmd.Flags().StringVar(&dcaStart, "start", "", "Start date, YYYY-MM-DD or RFC3339 (optional)")
	dcaCreateCmd.Flags().StringVar(&dcaEnd, "end", "", "End date, YYYY-MM-DD or RFC3339 (optional)")
}

func runDCACreate(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	a, err := newApp(verbose)
	exitOnError(err)
	defer a.Close()

	fromToken, err := a.registry.FindToken(dcaChain, dcaFrom)
	exitOnError(err)
	toToken, err := a.registry.FindToken(dcaChain, dcaTo)
	exitOnError(err)

	o := &orders.DCAOrder{
		WalletAddress:     a.cfg.WalletAddress,
		ChainID:           dcaChain,
		FromToken:         fromToken,
		ToToken:           toToken,
		AmountPerInterval: dcaAmount,
		SlippagePct:       floatToDecimal(dcaSlippage),
		Frequency:         dcaEvery,
		TotalIntervals:    dcaIntervals,
	}
	if dcaAtHour >= 0 {
		hour := dcaAtHour
		o.ExecutionHour = &hour
	}
	if dcaStart != "" {
		start, err := parseDate(dcaStart)
		exitOnError(err)
		o.StartDate = &start
	}
	if dcaEnd != "" {
		end, err := parseDate(dcaEnd)
		exitOnError(err)
		o.EndDate = &end
	}
	exitOnError(a.manager.CreateDCAOrder(context.Background(), o))

	schedule := "until cancelled"
	if o.TotalIntervals > 0 {
		schedule = fmt.Sprintf("%d purchases", o.TotalIntervals)
	}
	printSuccess(fmt.Sprintf("DCA plan created: %s\n%s %s -> %s every %s, %s",
		o.ID, o.AmountPerInterval, o.FromToken.Symbol, o.ToToken.Symbol, o.Frequency, schedule))
	fmt.Println("Run 'omniswap run' to start the scheduler.")
}

func runDCAList(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(verbose)
	exitOnError(err)
	defer a.Close()

	list, err := a.store.ListDCAOrders(context.Background(), a.cfg.WalletAddress)
	exitOnError(err)

	if jsonOutput {
		data, _ := json.MarshalIndent(list, "", "  ")
		fmt.Println(string(data))
		return
	}
	if len(list) == 0 {
		fmt.Println("\nNo DCA plans.")
		return
	}

	color.Cyan("\nDCA plans:\n")
	for _, o := range list {
		progress := fmt.Sprintf("%d", o.CompletedIntervals)
		if o.Bounded() {
			progress = fmt.Sprintf("%d/%d", o.CompletedIntervals, o.TotalIntervals)
		}
		fmt.Printf("  %s\n", o.ID)
		fmt.Printf("    %s %s -> %s every %s  intervals %s  [%s]\n",
			o.AmountPerInterval, o.FromToken.Symbol, o.ToToken.Symbol,
			o.Frequency, progress, statusColor(string(o.Status)))
		if o.TotalReceived.IsPositive() {
			fmt.Printf("    spent %s %s, received %s %s, avg price %s\n",
				o.TotalSpent.String(), o.FromToken.Symbol,
				o.TotalReceived.String(), o.ToToken.Symbol,
				o.AveragePrice.StringFixed(6))
		}
		if o.Status == orders.StatusActive {
			fmt.Printf("    next execution: %s\n", o.NextExecution.Format(time.RFC3339))
		}
		if o.EndDate != nil {
			fmt.Printf("    ends: %s\n", o.EndDate.Format("2006-01-02"))
		}
		if o.LastExecutionError != "" {
			fmt.Printf("    last error: %s\n", o.LastExecutionError)
		}
	}
	fmt.Println()
}

func runDCAPause(cmd *cobra.Command, args []string) {
	dcaTransitionCmd(cmd, args[0], "Plan paused.", func(a *app, id string) error {
		return a.manager.PauseDCAOrder(context.Background(), a.cfg.WalletAddress, id)
	})
}

func runDCAResume(cmd *cobra.Command, args []string) {
	dcaTransitionCmd(cmd, args[0], "Plan resumed.", func(a *app, id string) error {
		return a.manager.ResumeDCAOrder(context.Background(), a.cfg.WalletAddress, id)
	})
}

func runDCACancel(cmd *cobra.Command, args []string) {
	dcaTransitionCmd(cmd, args[0], "Plan cancelled.", func(a *app, id string) error {
		return a.manager.CancelDCAOrder(context.Background(), a.cfg.WalletAddress, id)
	})
}

// parseDate accepts a plain date or a full RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date '%s': use YYYY-MM-DD or RFC3339", s)
	}
	return t, nil
}

func dcaTransitionCmd(cmd *cobra.Command, id, success string, fn func(*app, string) error) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	a, err := newApp(verbose)
	exitOnError(err)
	defer a.Close()

	exitOnError(fn(a, id))
	printSuccess(success)
}
