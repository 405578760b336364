package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// LlamaClient is the fallback price oracle. Tickers are mapped to
// canonical coin ids before lookup; unmapped tickers resolve to nil, not
// an error.
type LlamaClient struct {
	http *httpClient
}

// NewLlamaClient creates a client for the oracle API at baseURL.
func NewLlamaClient(baseURL string) *LlamaClient {
	return &LlamaClient{http: newHTTPClient(baseURL, "")}
}

// tickerToCoinID maps common tickers to the oracle's canonical coin ids.
var tickerToCoinID = map[string]string{
	"BTC":   "coingecko:bitcoin",
	"ETH":   "coingecko:ethereum",
	"SOL":   "coingecko:solana",
	"BNB":   "coingecko:binancecoin",
	"POL":   "coingecko:polygon-ecosystem-token",
	"MATIC": "coingecko:matic-network",
	"SUI":   "coingecko:sui",
	"TRX":   "coingecko:tron",
	"TON":   "coingecko:the-open-network",
	"USDT":  "coingecko:tether",
	"USDC":  "coingecko:usd-coin",
	"DAI":   "coingecko:dai",
	"AVAX":  "coingecko:avalanche-2",
	"ARB":   "coingecko:arbitrum",
	"OP":    "coingecko:optimism",
	"LINK":  "coingecko:chainlink",
	"UNI":   "coingecko:uniswap",
	"AAVE":  "coingecko:aave",
	"DOGE":  "coingecko:dogecoin",
	"WBTC":  "coingecko:wrapped-bitcoin",
	"WETH":  "coingecko:weth",
}

// CoinID resolves a ticker to its canonical id, or "" when unmapped.
func CoinID(ticker string) string {
	return tickerToCoinID[strings.ToUpper(strings.TrimSpace(ticker))]
}

type llamaPricesResponse struct {
	Coins map[string]struct {
		Price  float64 `json:"price"`
		Symbol string  `json:"symbol"`
	} `json:"coins"`
}

// GetPrice returns the USD price for a single ticker, or nil when the
// ticker is unmapped or the oracle has no price for it.
func (c *LlamaClient) GetPrice(ctx context.Context, ticker string) (*decimal.Decimal, error) {
	prices, err := c.GetPrices(ctx, []string{ticker})
	if err != nil {
		return nil, err
	}
	p, ok := prices[strings.ToUpper(strings.TrimSpace(ticker))]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// GetPrices resolves many tickers in a single batched request. The result
// map only contains tickers the oracle priced; absence means no price.
func (c *LlamaClient) GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	ids := make([]string, 0, len(tickers))
	idToTicker := make(map[string]string, len(tickers))
	for _, t := range tickers {
		id := CoinID(t)
		if id == "" {
			continue
		}
		ids = append(ids, id)
		idToTicker[id] = strings.ToUpper(strings.TrimSpace(t))
	}

	out := make(map[string]decimal.Decimal)
	if len(ids) == 0 {
		return out, nil
	}

	var resp llamaPricesResponse
	path := "/prices/current/" + url.PathEscape(strings.Join(ids, ","))
	if err := c.http.getJSON(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get oracle prices: %w", err)
	}

	for id, coin := range resp.Coins {
		ticker, ok := idToTicker[id]
		if !ok {
			continue
		}
		out[ticker] = decimal.NewFromFloat(coin.Price)
	}
	return out, nil
}
