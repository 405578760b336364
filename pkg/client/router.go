package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"omniswap/pkg/types"
)

// RouterClient talks to the DEX aggregator's quote and swap endpoints.
type RouterClient struct {
	http *httpClient
}

// NewRouterClient creates a client for the aggregator API at baseURL.
func NewRouterClient(baseURL, apiKey string) *RouterClient {
	return &RouterClient{http: newHTTPClient(baseURL, apiKey)}
}

// quoteResponse mirrors the aggregator's quote payload. Numeric fields
// arrive as strings and are parsed at this boundary.
type quoteResponse struct {
	Data []struct {
		ToTokenAmount string `json:"toTokenAmount"`
		EstimateGas   string `json:"estimateGasFee"`
		PriceImpact   string `json:"priceImpactPercentage"`
		QuoteCompare  []struct {
			DexName       string `json:"dexName"`
			AmountOut     string `json:"amountOut"`
			TradeFee      string `json:"tradeFee"`
			EstimateGas   string `json:"estimateGasFee"`
		} `json:"quoteCompareList"`
		DexRouterList []struct {
			SubRouterList []struct {
				DexProtocol []struct {
					DexName string `json:"dexName"`
					Percent string `json:"percent"`
				} `json:"dexProtocol"`
			} `json:"subRouterList"`
		} `json:"dexRouterList"`
	} `json:"data"`
}

// GetQuote fetches a swap quote for amountIn (smallest units).
func (c *RouterClient) GetQuote(ctx context.Context, req types.SwapRequest, amountIn decimal.Decimal) (*types.Quote, error) {
	q := url.Values{}
	q.Set("chainIndex", fmt.Sprintf("%d", req.Chain.Index))
	q.Set("fromTokenAddress", tokenAddress(req.FromToken))
	q.Set("toTokenAddress", tokenAddress(req.ToToken))
	q.Set("amount", amountIn.String())
	q.Set("slippage", req.SlippagePct.Div(decimal.NewFromInt(100)).String())

	var resp quoteResponse
	if err := c.http.getJSON(ctx, "/api/v5/dex/aggregator/quote", q, &resp); err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty quote response")
	}

	d := resp.Data[0]
	quote := &types.Quote{
		Request:        req,
		AmountIn:       amountIn,
		AmountOut:      parseDecimal(d.ToTokenAmount),
		EstimatedGas:   parseDecimal(d.EstimateGas),
		PriceImpactPct: parseDecimal(d.PriceImpact),
	}

	for _, r := range d.QuoteCompare {
		quote.Routes = append(quote.Routes, types.Route{
			Provider:     r.DexName,
			AmountOut:    parseDecimal(r.AmountOut),
			Fee:          parseDecimal(r.TradeFee),
			EstimatedGas: parseDecimal(r.EstimateGas),
		})
	}
	for _, router := range d.DexRouterList {
		for _, sub := range router.SubRouterList {
			for _, proto := range sub.DexProtocol {
				quote.SubRoutes = append(quote.SubRoutes, types.SubRoute{
					Venue:   proto.DexName,
					Percent: parseDecimal(proto.Percent),
				})
			}
		}
	}

	return quote, nil
}

type swapTxResponse struct {
	Data []struct {
		Tx struct {
			To       string `json:"to"`
			Data     string `json:"data"`
			Value    string `json:"value"`
			Gas      string `json:"gas"`
			GasPrice string `json:"gasPrice"`
		} `json:"tx"`
	} `json:"data"`
}

// TxPayload is an unsigned transaction returned by the aggregator, ready
// for the chain-family signer.
type TxPayload struct {
	To       string
	Data     string
	Value    decimal.Decimal
	Gas      decimal.Decimal
	GasPrice decimal.Decimal
}

// GetSwapTransaction builds the swap call data for an accepted quote.
func (c *RouterClient) GetSwapTransaction(ctx context.Context, req types.SwapRequest, amountIn decimal.Decimal) (*TxPayload, error) {
	q := url.Values{}
	q.Set("chainIndex", fmt.Sprintf("%d", req.Chain.Index))
	q.Set("fromTokenAddress", tokenAddress(req.FromToken))
	q.Set("toTokenAddress", tokenAddress(req.ToToken))
	q.Set("amount", amountIn.String())
	q.Set("slippage", req.SlippagePct.Div(decimal.NewFromInt(100)).String())
	q.Set("userWalletAddress", req.WalletAddress)

	var resp swapTxResponse
	if err := c.http.getJSON(ctx, "/api/v5/dex/aggregator/swap", q, &resp); err != nil {
		return nil, fmt.Errorf("failed to get swap transaction: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty swap transaction response")
	}

	tx := resp.Data[0].Tx
	return &TxPayload{
		To:       tx.To,
		Data:     tx.Data,
		Value:    parseDecimal(tx.Value),
		Gas:      parseDecimal(tx.Gas),
		GasPrice: parseDecimal(tx.GasPrice),
	}, nil
}

// GetApprovalTransaction builds an ERC-20 approval for the aggregator's
// router contract. Only meaningful on EVM chains.
func (c *RouterClient) GetApprovalTransaction(ctx context.Context, chain types.Chain, tokenAddr string, amount decimal.Decimal) (*TxPayload, error) {
	q := url.Values{}
	q.Set("chainIndex", fmt.Sprintf("%d", chain.Index))
	q.Set("tokenContractAddress", tokenAddr)
	q.Set("approveAmount", amount.String())

	var resp swapTxResponse
	if err := c.http.getJSON(ctx, "/api/v5/dex/aggregator/approve-transaction", q, &resp); err != nil {
		return nil, fmt.Errorf("failed to get approval transaction: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty approval transaction response")
	}

	tx := resp.Data[0].Tx
	return &TxPayload{
		To:       tx.To,
		Data:     tx.Data,
		Value:    parseDecimal(tx.Value),
		Gas:      parseDecimal(tx.Gas),
		GasPrice: parseDecimal(tx.GasPrice),
	}, nil
}

type tokenPriceResponse struct {
	Data []struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	} `json:"data"`
}

// GetTokenPrice returns the aggregator's USD price for a token, or nil
// when the provider has no price.
func (c *RouterClient) GetTokenPrice(ctx context.Context, chain types.Chain, tokenAddr string) (*decimal.Decimal, error) {
	q := url.Values{}
	q.Set("chainIndex", fmt.Sprintf("%d", chain.Index))
	q.Set("tokenContractAddress", tokenAddr)

	var resp tokenPriceResponse
	if err := c.http.getJSON(ctx, "/api/v5/dex/market/price", q, &resp); err != nil {
		return nil, fmt.Errorf("failed to get token price: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].Price == "" {
		return nil, nil
	}
	p := parseDecimal(resp.Data[0].Price)
	return &p, nil
}

func tokenAddress(t types.Token) string {
	if t.IsNative() {
		return types.NativeTokenAddress
	}
	return t.Address
}
