package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"omniswap/pkg/types"
)

var statusChain string

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check the confirmation status of a transaction",
	Long: `Check whether a submitted transaction has confirmed, reverted, or is
still pending on its chain.

Examples:
  omniswap status 0xabc123... --chain ethereum
  omniswap status 5Ugq3... --chain solana`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusChain, "chain", "ethereum", "Chain the transaction was submitted on")
}

func runStatus(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	txHash := args[0]

	a, err := newApp(verbose)
	exitOnError(err)
	defer a.Close()

	chain, err := a.registry.Get(statusChain)
	exitOnError(err)

	signers, err := buildSignerRegistry(a, chain)
	exitOnError(err)
	sgn, err := signers.For(chain)
	exitOnError(err)

	status, err := sgn.TxStatus(context.Background(), txHash)
	exitOnError(err)

	if jsonOutput {
		out := map[string]any{
			"tx_hash": txHash,
			"chain":   chain.ID,
			"status":  statusLabel(status),
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("\nTransaction: %s\n", explorerLink(chain, txHash))
	switch status {
	case types.TxConfirmed:
		color.Green("Status: confirmed\n")
	case types.TxReverted:
		color.Red("Status: reverted\n")
	default:
		color.Yellow("Status: pending\n")
	}
}

func statusLabel(s types.TxReceiptStatus) string {
	switch s {
	case types.TxConfirmed:
		return "confirmed"
	case types.TxReverted:
		return "reverted"
	default:
		return "pending"
	}
}
