package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const defaultTimeout = 15 * time.Second

// httpClient is the shared JSON transport for all provider clients.
type httpClient struct {
	base   string
	apiKey string
	http   *http.Client
}

func newHTTPClient(base, apiKey string) *httpClient {
	return &httpClient{
		base:   base,
		apiKey: apiKey,
		http:   &http.Client{Timeout: defaultTimeout},
	}
}

func (c *httpClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, out)
}

func (c *httpClient) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("API rate limit: too many requests (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Try to extract the provider's own error message before falling
		// back to the raw body.
		bodyBytes, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr == nil && len(bodyBytes) > 0 {
			var errorResp map[string]any
			if jsonErr := json.Unmarshal(bodyBytes, &errorResp); jsonErr == nil {
				if message, ok := errorResp["message"].(string); ok {
					return fmt.Errorf("API error (status %d): %s", resp.StatusCode, message)
				}
				if msg, ok := errorResp["msg"].(string); ok {
					return fmt.Errorf("API error (status %d): %s", resp.StatusCode, msg)
				}
			}
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
		}
		return fmt.Errorf("API returned status code %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseDecimal parses a provider numeric field. Providers are not
// schema-guaranteed, so missing or unparseable fields become zero rather
// than an error.
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
