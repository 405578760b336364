package client

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PerpsClient reads perpetuals account state from the derivatives
// provider. The client is read-only; order placement stays with the
// provider's own front end.
type PerpsClient struct {
	http *httpClient
}

// NewPerpsClient creates a client for the perpetuals API at baseURL.
func NewPerpsClient(baseURL string) *PerpsClient {
	return &PerpsClient{http: newHTTPClient(baseURL, "")}
}

// PerpPosition is one open perpetual position.
type PerpPosition struct {
	Coin          string
	Size          decimal.Decimal
	EntryPrice    decimal.Decimal
	UnrealizedPnL decimal.Decimal
	Leverage      decimal.Decimal
}

// PerpAccountState summarizes a user's derivatives account.
type PerpAccountState struct {
	AccountValue decimal.Decimal
	MarginUsed   decimal.Decimal
	Withdrawable decimal.Decimal
	Positions    []PerpPosition
}

// PerpOpenOrder is one resting order on the book.
type PerpOpenOrder struct {
	Coin      string
	Side      string
	Size      decimal.Decimal
	Price     decimal.Decimal
	OrderID   int64
	Timestamp time.Time
}

type perpsStateResponse struct {
	MarginSummary struct {
		AccountValue string `json:"accountValue"`
		TotalMargin  string `json:"totalMarginUsed"`
	} `json:"marginSummary"`
	Withdrawable   string `json:"withdrawable"`
	AssetPositions []struct {
		Position struct {
			Coin         string `json:"coin"`
			Szi          string `json:"szi"`
			EntryPx      string `json:"entryPx"`
			UnrealizedPnl string `json:"unrealizedPnl"`
			Leverage     struct {
				Value float64 `json:"value"`
			} `json:"leverage"`
		} `json:"position"`
	} `json:"assetPositions"`
}

// GetAccountState fetches account value, margin and open positions for a
// user address.
func (c *PerpsClient) GetAccountState(ctx context.Context, userAddress string) (*PerpAccountState, error) {
	body := map[string]any{"type": "clearinghouseState", "user": userAddress}

	var resp perpsStateResponse
	if err := c.http.postJSON(ctx, "/info", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to get perps account state: %w", err)
	}

	state := &PerpAccountState{
		AccountValue: parseDecimal(resp.MarginSummary.AccountValue),
		MarginUsed:   parseDecimal(resp.MarginSummary.TotalMargin),
		Withdrawable: parseDecimal(resp.Withdrawable),
	}
	for _, ap := range resp.AssetPositions {
		p := ap.Position
		state.Positions = append(state.Positions, PerpPosition{
			Coin:          p.Coin,
			Size:          parseDecimal(p.Szi),
			EntryPrice:    parseDecimal(p.EntryPx),
			UnrealizedPnL: parseDecimal(p.UnrealizedPnl),
			Leverage:      decimal.NewFromFloat(p.Leverage.Value),
		})
	}
	return state, nil
}

type perpsOrdersResponse []struct {
	Coin      string `json:"coin"`
	Side      string `json:"side"`
	Sz        string `json:"sz"`
	LimitPx   string `json:"limitPx"`
	Oid       int64  `json:"oid"`
	Timestamp int64  `json:"timestamp"`
}

// GetOpenOrders fetches a user's resting orders.
func (c *PerpsClient) GetOpenOrders(ctx context.Context, userAddress string) ([]PerpOpenOrder, error) {
	body := map[string]any{"type": "openOrders", "user": userAddress}

	var resp perpsOrdersResponse
	if err := c.http.postJSON(ctx, "/info", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to get perps open orders: %w", err)
	}

	orders := make([]PerpOpenOrder, 0, len(resp))
	for _, o := range resp {
		orders = append(orders, PerpOpenOrder{
			Coin:      o.Coin,
			Side:      o.Side,
			Size:      parseDecimal(o.Sz),
			Price:     parseDecimal(o.LimitPx),
			OrderID:   o.Oid,
			Timestamp: time.UnixMilli(o.Timestamp),
		})
	}
	return orders, nil
}

// GetMidPrices returns the current mid-market price per coin.
func (c *PerpsClient) GetMidPrices(ctx context.Context) (map[string]decimal.Decimal, error) {
	body := map[string]any{"type": "allMids"}

	var resp map[string]string
	if err := c.http.postJSON(ctx, "/info", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to get mid prices: %w", err)
	}

	mids := make(map[string]decimal.Decimal, len(resp))
	for coin, px := range resp {
		mids[coin] = parseDecimal(px)
	}
	return mids, nil
}
