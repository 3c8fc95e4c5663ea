// Package feeds provides reference price sources for the external asset the
// tracked market settles on.
package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/0xfade/lagbot/internal/engine"
)

// ReferenceClient fetches the latest mid price over HTTP. One request per
// call; the scheduler decides the cadence.
type ReferenceClient struct {
	baseURL    string
	symbol     string
	httpClient *http.Client
}

// NewReferenceClient creates a polling reference source
func NewReferenceClient(baseURL, symbol string) *ReferenceClient {
	return &ReferenceClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		symbol:     symbol,
		httpClient: &http.Client{Timeout: 1500 * time.Millisecond},
	}
}

// Latest fetches the current mid price for the configured symbol.
// Uses POST /info with type allMids. A response without the symbol yields
// (nil, nil): no price yet, not an error.
func (c *ReferenceClient) Latest(ctx context.Context) (*engine.PriceTick, error) {
	body, _ := json.Marshal(map[string]string{"type": "allMids"})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reference price fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reference feed returned status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result struct {
		Mids map[string]string `json:"mids"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse reference feed response: %w", err)
	}

	raw, ok := result.Mids[c.symbol]
	if !ok {
		return nil, nil
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("bad price %q for %s: %w", raw, c.symbol, err)
	}

	return &engine.PriceTick{Time: time.Now(), Price: price}, nil
}
