package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"omniswap/pkg/signer"
	"omniswap/pkg/swap"
	"omniswap/pkg/types"
)

var (
	swapChain    string
	swapToChain  string
	swapSlippage float64
	swapAuto     bool
	swapYes      bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <token> to <token>",
	Short: "Quote and execute a token swap",
	Long: `Quote a trade, confirm it, and execute it on-chain: token approval when
needed, submission through the configured signer, and confirmation
polling until the transaction settles.

Examples:
  omniswap swap 100 USDC to WETH --chain ethereum
  omniswap swap 0.5 ETH to USDC --chain arbitrum --auto
  omniswap swap 1 SOL to USDC --chain solana --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwapCmd,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&swapChain, "chain", "ethereum", "Chain to trade on")
	swapCmd.Flags().StringVar(&swapToChain, "to-chain", "", "Destination chain for a cross-chain trade")
	swapCmd.Flags().Float64Var(&swapSlippage, "slippage", 0.5, "Slippage tolerance percent")
	swapCmd.Flags().BoolVar(&swapAuto, "auto", false, "Let the advisor pick slippage from price impact")
	swapCmd.Flags().BoolVarP(&swapYes, "yes", "y", false, "Skip confirmation prompt")
}

func runSwapCmd(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(verbose)
	exitOnError(err)
	defer a.Close()

	req, err := buildSwapRequest(a, strings.Join(args, " "), swapChain, swapToChain, swapSlippage)
	exitOnError(err)

	update, err := fetchQuote(a, *req, swapAuto, jsonOutput)
	exitOnError(err)
	if update.Err != nil {
		exitOnError(fmt.Errorf("%s", update.Err.Message))
	}
	if update.Quote == nil {
		exitOnError(fmt.Errorf("no quote available for this pair"))
	}

	if !jsonOutput {
		printQuote(update)
	}

	// The executed trade uses the advisor's slippage, not the raw flag.
	update.Quote.Request.SlippagePct = update.RecommendedSlippage

	if !swapYes && !confirm("Execute this swap?") {
		fmt.Println("Aborted.")
		return
	}

	signers, err := buildSignerRegistry(a, update.Quote.Request.Chain)
	exitOnError(err)

	coordinator := swap.NewCoordinator(a.router, a.bridge, signers, a.pricer,
		a.dispatcher, a.debugLog, a.log, swap.Config{
			SpenderAddresses: a.cfg.SpenderAddresses,
			Retry:            retryConfig(a),
		})

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Executing swap..."
		s.Start()
	}
	res, err := coordinator.Execute(context.Background(), update.Quote)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		if res != nil && res.Err != nil {
			exitOnError(fmt.Errorf("%s", res.Err.Message))
		}
		exitOnError(err)
	}

	if res.ApprovalTxHash != "" {
		fmt.Printf("Approval tx: %s\n", res.ApprovalTxHash)
	}
	printSuccess(fmt.Sprintf("Swap completed!\nTransaction: %s",
		explorerLink(update.Quote.Request.Chain, res.TxHash)))
}

// buildSignerRegistry constructs the signer for the chain's family from
// the configured keys.
func buildSignerRegistry(a *app, chain types.Chain) (*signer.Registry, error) {
	registry := signer.NewRegistry()
	switch chain.Family {
	case types.FamilyEVM:
		s, err := signer.NewEVMSigner(chain.RPCURL, a.cfg.Signer.EVMPrivateKey, int64(chain.Index))
		if err != nil {
			return nil, err
		}
		registry.Register(s)
	case types.FamilySolana:
		s, err := signer.NewSolanaSigner(chain.RPCURL, a.cfg.Signer.SolanaPrivateKey)
		if err != nil {
			return nil, err
		}
		registry.Register(s)
	default:
		return nil, fmt.Errorf("no signer available for chain family '%s'", chain.Family)
	}
	return registry, nil
}

func explorerLink(chain types.Chain, txHash string) string {
	if chain.ExplorerTx == "" {
		return txHash
	}
	return fmt.Sprintf(chain.ExplorerTx, txHash)
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "y" || answer == "yes" {
		return true
	}
	color.Yellow("Swap not confirmed.")
	return false
}
