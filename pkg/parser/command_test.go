package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTradeCommand(t *testing.T) {
	tests := []struct {
		in   string
		want TradeCommand
	}{
		{"swap 1 ETH to USDC", TradeCommand{Amount: "1", FromSymbol: "ETH", ToSymbol: "USDC"}},
		{"100 USDC to WETH on arbitrum", TradeCommand{Amount: "100", FromSymbol: "USDC", ToSymbol: "WETH", ChainID: "arbitrum"}},
		{"0.5 sol to usdc on solana", TradeCommand{Amount: "0.5", FromSymbol: "SOL", ToSymbol: "USDC", ChainID: "solana"}},
		{"  swap 1.25 BNB to USDT  ", TradeCommand{Amount: "1.25", FromSymbol: "BNB", ToSymbol: "USDT"}},
	}
	for _, tt := range tests {
		got, err := ParseTradeCommand(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, *got, tt.in)
	}
}

func TestParseTradeCommandRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "swap", "ETH to USDC", "swap one ETH to USDC", "1 ETH USDC"} {
		_, err := ParseTradeCommand(in)
		assert.Error(t, err, in)
	}
}

func TestNormalizeTokenSymbol(t *testing.T) {
	assert.Equal(t, "BTC", NormalizeTokenSymbol("wbtc"))
	assert.Equal(t, "ETH", NormalizeTokenSymbol(" WETH "))
	assert.Equal(t, "USDC", NormalizeTokenSymbol("usdc"))
}
