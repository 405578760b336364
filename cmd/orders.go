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
	orderChain     string
	orderFrom      string
	orderTo        string
	orderAmount    string
	orderCondition string
	orderTarget    float64
	orderSlippage  float64
	orderTP        float64
	orderSL        float64
	orderExpiry    time.Duration
	orderAttempts  int
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Manage price-triggered limit orders",
}

var ordersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a limit order",
	Long: `Create an order that swaps when the pair's price crosses the target.

Examples:
  omniswap orders create --chain ethereum --from USDC --to WETH --amount 100 --condition below --target 1500
  omniswap orders create --chain base --from WETH --to USDC --amount 0.5 --condition above --target 4000 --take-profit 4500 --stop-loss 3200
  omniswap orders create --chain arbitrum --from USDC --to WETH --amount 50 --condition below --target 1800 --expires-in 72h`,
	Run: runOrdersCreate,
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your limit orders",
	Run:   runOrdersList,
}

var ordersCancelCmd = &cobra.Command{
	Use:   "cancel <order-id>",
	Short: "Cancel a limit order",
	Args:  cobra.ExactArgs(1),
	Run:   runOrdersCancel,
}

func init() {
	rootCmd.AddCommand(ordersCmd)
	ordersCmd.AddCommand(ordersCreateCmd, ordersListCmd, ordersCancelCmd)

	ordersCreateCmd.Flags().StringVar(&orderChain, "chain", "ethereum", "Chain to trade on")
	ordersCreateCmd.Flags().StringVar(&orderFrom, "from", "", "Token to sell (symbol)")
	ordersCreateCmd.Flags().StringVar(&orderTo, "to", "", "Token to buy (symbol)")
	ordersCreateCmd.Flags().StringVar(&orderAmount, "amount", "", "Amount to sell, in human units")
	ordersCreateCmd.Flags().StringVar(&orderCondition, "condition", "", "Trigger side: above or below")
	ordersCreateCmd.Flags().Float64Var(&orderTarget, "target", 0, "Target price (TO per FROM)")
	ordersCreateCmd.Flags().Float64Var(&orderSlippage, "slippage", 0.5, "Slippage tolerance percent")
	ordersCreateCmd.Flags().Float64Var(&orderTP, "take-profit", 0, "Take-profit watcher price (optional)")
	ordersCreateCmd.Flags().Float64Var(&orderSL, "stop-loss", 0, "Stop-loss watcher price (optional)")
	ordersCreateCmd.Flags().DurationVar(&orderExpiry, "expires-in", 0, "Expire the order after this duration (optional)")
	ordersCreateCmd.Flags().IntVar(&orderAttempts, "max-attempts", 0, "Failed execution attempts before the order is marked failed")
}

func runOrdersCreate(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	a, err := newApp(verbose)
	exitOnError(err)
	defer a.Close()

	fromToken, err := a.registry.FindToken(orderChain, orderFrom)
	exitOnError(err)
	toToken, err := a.registry.FindToken(orderChain, orderTo)
	exitOnError(err)

	o := &orders.LimitOrder{
		WalletAddress:        a.cfg.WalletAddress,
		ChainID:              orderChain,
		FromToken:            fromToken,
		ToToken:              toToken,
		Amount:               orderAmount,
		SlippagePct:          floatToDecimal(orderSlippage),
		Condition:            orders.PriceCondition(orderCondition),
		TargetPrice:          floatToDecimal(orderTarget),
		MaxExecutionAttempts: orderAttempts,
	}
	if orderTP > 0 {
		tp := floatToDecimal(orderTP)
		o.TakeProfitPrice = &tp
	}
	if orderSL > 0 {
		sl := floatToDecimal(orderSL)
		o.StopLossPrice = &sl
	}
	if orderExpiry > 0 {
		expires := time.Now().Add(orderExpiry)
		o.ExpiresAt = &expires
	}

	exitOnError(a.manager.CreateLimitOrder(context.Background(), o))
	printSuccess(fmt.Sprintf("Limit order created: %s\n%s %s -> %s when price goes %s %s",
		o.ID, o.Amount, o.FromToken.Symbol, o.ToToken.Symbol, o.Condition, o.TargetPrice.String()))
	fmt.Println("Run 'omniswap run' to start the evaluation engine.")
}

func runOrdersList(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(verbose)
	exitOnError(err)
	defer a.Close()

	list, err := a.store.ListLimitOrders(context.Background(), a.cfg.WalletAddress)
	exitOnError(err)

	if jsonOutput {
		data, _ := json.MarshalIndent(list, "", "  ")
		fmt.Println(string(data))
		return
	}
	if len(list) == 0 {
		fmt.Println("\nNo limit orders.")
		return
	}

	color.Cyan("\nLimit orders:\n")
	for _, o := range list {
		fmt.Printf("  %s\n", o.ID)
		fmt.Printf("    %s %s -> %s  %s %s  [%s]\n",
			o.Amount, o.FromToken.Symbol, o.ToToken.Symbol,
			o.Condition, o.TargetPrice.String(), statusColor(string(o.Status)))
		if o.TxHash != "" {
			fmt.Printf("    tx: %s\n", o.TxHash)
		}
		if o.LastExecutionError != "" {
			fmt.Printf("    last error: %s (attempt %d/%d)\n",
				o.LastExecutionError, o.ExecutionAttempts, o.MaxExecutionAttempts)
		}
	}
	fmt.Println()
}

func runOrdersCancel(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	a, err := newApp(verbose)
	exitOnError(err)
	defer a.Close()

	exitOnError(a.manager.CancelLimitOrder(context.Background(), a.cfg.WalletAddress, args[0]))
	printSuccess("Order cancelled.")
}

func statusColor(status string) string {
	switch status {
	case "active", "executed", "completed":
		return color.GreenString(status)
	case "triggered", "paused":
		return color.YellowString(status)
	case "failed", "cancelled", "expired":
		return color.RedString(status)
	default:
		return status
	}
}
