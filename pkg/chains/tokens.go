package chains

import (
	"fmt"
	"strings"

	"omniswap/pkg/types"
)

// Tokens returns the chain's native token plus the well-known assets
// tradeable on it.
func (r *Registry) Tokens(chainID string) ([]types.Token, error) {
	chain, err := r.Get(chainID)
	if err != nil {
		return nil, err
	}
	out := []types.Token{chain.NativeToken}
	out = append(out, wellKnownTokens[chain.ID]...)
	return out, nil
}

// FindToken resolves a symbol on a chain, checking the native token
// first.
func (r *Registry) FindToken(chainID, symbol string) (types.Token, error) {
	chain, err := r.Get(chainID)
	if err != nil {
		return types.Token{}, err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if chain.NativeToken.Symbol == symbol {
		return chain.NativeToken, nil
	}
	for _, t := range wellKnownTokens[chain.ID] {
		if t.Symbol == symbol {
			return t, nil
		}
	}
	return types.Token{}, fmt.Errorf("token '%s' not known on chain '%s'", symbol, chain.ID)
}

// wellKnownTokens covers the assets the CLI can resolve by symbol.
// Anything else needs an explicit contract address.
var wellKnownTokens = map[string][]types.Token{
	"ethereum": {
		{Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Symbol: "USDC", Name: "USD Coin", Decimals: 6, ChainID: "ethereum"},
		{Address: "0xdac17f958d2ee523a2206206994597c13d831ec7", Symbol: "USDT", Name: "Tether USD", Decimals: 6, ChainID: "ethereum"},
		{Address: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, ChainID: "ethereum"},
		{Address: "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599", Symbol: "WBTC", Name: "Wrapped BTC", Decimals: 8, ChainID: "ethereum"},
		{Address: "0x6b175474e89094c44da98b954eedeac495271d0f", Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18, ChainID: "ethereum"},
	},
	"bsc": {
		{Address: "0x8ac76a51cc950d9822d68b83fe1ad97b32cd580d", Symbol: "USDC", Name: "USD Coin", Decimals: 18, ChainID: "bsc"},
		{Address: "0x55d398326f99059ff775485246999027b3197955", Symbol: "USDT", Name: "Tether USD", Decimals: 18, ChainID: "bsc"},
		{Address: "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c", Symbol: "WBNB", Name: "Wrapped BNB", Decimals: 18, ChainID: "bsc"},
	},
	"polygon": {
		{Address: "0x3c499c542cef5e3811e1192ce70d8cc03d5c3359", Symbol: "USDC", Name: "USD Coin", Decimals: 6, ChainID: "polygon"},
		{Address: "0xc2132d05d31c914a87c6611c10748aeb04b58e8f", Symbol: "USDT", Name: "Tether USD", Decimals: 6, ChainID: "polygon"},
		{Address: "0x7ceb23fd6bc0add59e62ac25578270cff1b9f619", Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, ChainID: "polygon"},
	},
	"arbitrum": {
		{Address: "0xaf88d065e77c8cc2239327c5edb3a432268e5831", Symbol: "USDC", Name: "USD Coin", Decimals: 6, ChainID: "arbitrum"},
		{Address: "0xfd086bc7cd5c481dcc9c85ebe478a1c0b69fcbb9", Symbol: "USDT", Name: "Tether USD", Decimals: 6, ChainID: "arbitrum"},
		{Address: "0x82af49447d8a07e3bd95bd0d56f35241523fbab1", Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, ChainID: "arbitrum"},
	},
	"base": {
		{Address: "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", Symbol: "USDC", Name: "USD Coin", Decimals: 6, ChainID: "base"},
		{Address: "0x4200000000000000000000000000000000000006", Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, ChainID: "base"},
	},
	"solana": {
		{Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Symbol: "USDC", Name: "USD Coin", Decimals: 6, ChainID: "solana"},
		{Address: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Symbol: "USDT", Name: "Tether USD", Decimals: 6, ChainID: "solana"},
		{Address: "So11111111111111111111111111111111111111112", Symbol: "WSOL", Name: "Wrapped SOL", Decimals: 9, ChainID: "solana"},
	},
}
