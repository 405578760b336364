package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"omniswap/pkg/types"
)

// BridgeClient talks to the cross-chain routing provider.
type BridgeClient struct {
	http *httpClient
}

// NewBridgeClient creates a client for the bridge API at baseURL.
func NewBridgeClient(baseURL string) *BridgeClient {
	return &BridgeClient{http: newHTTPClient(baseURL, "")}
}

type bridgeRoutesResponse struct {
	Routes []struct {
		ID       string `json:"id"`
		ToAmount string `json:"toAmount"`
		GasCost  string `json:"gasCostUSD"`
		Steps    []struct {
			Tool     string `json:"tool"`
			Estimate struct {
				FeeCosts []struct {
					Amount string `json:"amount"`
				} `json:"feeCosts"`
			} `json:"estimate"`
		} `json:"steps"`
	} `json:"routes"`
}

// GetCrossChainQuote fans out to the bridge router and returns candidate
// routes ordered as the provider sent them. Ranking is the caller's job.
func (c *BridgeClient) GetCrossChainQuote(ctx context.Context, req types.SwapRequest, amountIn decimal.Decimal) ([]types.Route, error) {
	body := map[string]any{
		"fromChainId": req.Chain.Index,
		"toChainId":   req.ToChain.Index,
		"fromTokenAddress": tokenAddress(req.FromToken),
		"toTokenAddress":   tokenAddress(req.ToToken),
		"fromAmount":       amountIn.String(),
		"fromAddress":      req.WalletAddress,
		"options": map[string]any{
			"slippage": req.SlippagePct.Div(decimal.NewFromInt(100)),
		},
	}

	var resp bridgeRoutesResponse
	if err := c.http.postJSON(ctx, "/v1/advanced/routes", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to get cross-chain routes: %w", err)
	}
	if len(resp.Routes) == 0 {
		return nil, fmt.Errorf("no route found for this pair")
	}

	routes := make([]types.Route, 0, len(resp.Routes))
	for _, r := range resp.Routes {
		provider := "bridge"
		fee := decimal.Zero
		if len(r.Steps) > 0 {
			provider = r.Steps[0].Tool
			for _, f := range r.Steps[0].Estimate.FeeCosts {
				fee = fee.Add(parseDecimal(f.Amount))
			}
		}
		routes = append(routes, types.Route{
			Provider:     provider,
			AmountOut:    parseDecimal(r.ToAmount),
			Fee:          fee,
			EstimatedGas: parseDecimal(r.GasCost),
		})
	}
	return routes, nil
}

type bridgeTxResponse struct {
	TransactionRequest struct {
		To       string `json:"to"`
		Data     string `json:"data"`
		Value    string `json:"value"`
		GasLimit string `json:"gasLimit"`
		GasPrice string `json:"gasPrice"`
	} `json:"transactionRequest"`
}

// GetCrossChainSwapTransaction builds the source-chain transaction for a
// chosen bridge route.
func (c *BridgeClient) GetCrossChainSwapTransaction(ctx context.Context, req types.SwapRequest, amountIn decimal.Decimal) (*TxPayload, error) {
	q := url.Values{}
	q.Set("fromChain", fmt.Sprintf("%d", req.Chain.Index))
	q.Set("toChain", fmt.Sprintf("%d", req.ToChain.Index))
	q.Set("fromToken", tokenAddress(req.FromToken))
	q.Set("toToken", tokenAddress(req.ToToken))
	q.Set("fromAmount", amountIn.String())
	q.Set("fromAddress", req.WalletAddress)
	if req.ToAddress != "" {
		q.Set("toAddress", req.ToAddress)
	}

	var resp bridgeTxResponse
	if err := c.http.getJSON(ctx, "/v1/quote", q, &resp); err != nil {
		return nil, fmt.Errorf("failed to get bridge transaction: %w", err)
	}
	if resp.TransactionRequest.To == "" {
		return nil, fmt.Errorf("empty bridge transaction response")
	}

	tx := resp.TransactionRequest
	return &TxPayload{
		To:       tx.To,
		Data:     tx.Data,
		Value:    parseDecimal(tx.Value),
		Gas:      parseDecimal(tx.GasLimit),
		GasPrice: parseDecimal(tx.GasPrice),
	}, nil
}
