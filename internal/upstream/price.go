package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// priceOracleClient is the default PriceOracle adapter over
// GET /price/v2?ids={csv}.
type priceOracleClient struct {
	baseURL string
	client  *http.Client
}

// NewPriceOracle builds the default token-price-oracle adapter.
func NewPriceOracle(baseURL string) PriceOracle {
	return &priceOracleClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *priceOracleClient) Prices(ctx context.Context, mints []string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/price/v2?ids=%s", c.baseURL, strings.Join(mints, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price oracle request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price oracle http %d: %s", resp.StatusCode, string(raw))
	}

	var decoded struct {
		Data map[string]struct {
			Price string `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode price oracle response: %w", err)
	}

	prices := make(map[string]float64, len(decoded.Data))
	for mint, entry := range decoded.Data {
		var p float64
		fmt.Sscanf(entry.Price, "%g", &p)
		prices[mint] = p
	}
	return prices, nil
}
