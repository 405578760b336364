package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"omniswap/pkg/tradelog"
)

var logsErrorsOnly bool

var logsCmd = &cobra.Command{
	Use:   "logs <report-file>",
	Short: "Inspect an exported diagnostic report",
	Long: `Pretty-print a diagnostic report written by 'omniswap run
--debug-report'. Shows the entry trail with severity, action and
payload.

Examples:
  omniswap logs /tmp/omniswap-debug.json
  omniswap logs /tmp/omniswap-debug.json --errors-only`,
	Args: cobra.ExactArgs(1),
	Run:  runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVar(&logsErrorsOnly, "errors-only", false, "Show only error entries")
}

func runLogs(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	data, err := os.ReadFile(args[0])
	exitOnError(err)

	var report tradelog.Report
	if err := json.Unmarshal(data, &report); err != nil {
		exitOnError(fmt.Errorf("failed to parse diagnostic report: %w", err))
	}

	if jsonOutput {
		fmt.Println(string(data))
		return
	}

	color.Cyan("Diagnostic report from %s", report.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Entries: %d  Errors: %d\n\n", report.LogsCount, report.ErrorCount)

	for _, e := range report.Logs {
		if logsErrorsOnly && e.Severity != tradelog.SeverityError {
			continue
		}
		stamp := e.Timestamp.Format("15:04:05")
		line := fmt.Sprintf("%s  %-5s  %-12s  %s", stamp, e.Severity, e.Action, e.Message)
		switch e.Severity {
		case tradelog.SeverityError:
			color.Red(line)
		case tradelog.SeverityWarn:
			color.Yellow(line)
		default:
			fmt.Println(line)
		}
		if len(e.Payload) > 0 {
			payload, err := json.Marshal(e.Payload)
			if err == nil {
				fmt.Printf("          %s\n", string(payload))
			}
		}
	}
}
