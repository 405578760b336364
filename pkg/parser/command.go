// Package parser turns free-form trade commands into structured trade
// parameters for the CLI.
package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// TradeCommand is the parsed form of a trade instruction.
type TradeCommand struct {
	Amount     string
	FromSymbol string
	ToSymbol   string
	ChainID    string // empty when the command names no chain
}

// tradePattern matches "<amount> <token> TO <token> [ON <chain>]".
var tradePattern = regexp.MustCompile(`^(\d+\.?\d*)\s+([A-Z0-9]+)\s+TO\s+([A-Z0-9]+)(?:\s+ON\s+([A-Z0-9]+))?$`)

// ParseTradeCommand parses a natural trade command.
// Examples:
//   - "swap 1 ETH to USDC"
//   - "100 USDC to WETH on arbitrum"
//   - "0.5 SOL to USDC on solana"
func ParseTradeCommand(command string) (*TradeCommand, error) {
	command = strings.TrimSpace(strings.ToUpper(command))
	command = strings.TrimPrefix(command, "SWAP ")

	matches := tradePattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid trade command format. Expected: '<amount> <token> to <token> [on <chain>]' (e.g., '100 USDC to WETH on arbitrum')")
	}

	return &TradeCommand{
		Amount:     matches[1],
		FromSymbol: matches[2],
		ToSymbol:   matches[3],
		ChainID:    strings.ToLower(matches[4]),
	}, nil
}

// NormalizeTokenSymbol uppercases a symbol and resolves common aliases
// to the form the price oracle knows.
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	aliases := map[string]string{
		"WBTC": "BTC",
		"WETH": "ETH",
		"WSOL": "SOL",
		"WBNB": "BNB",
	}
	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}
	return symbol
}
