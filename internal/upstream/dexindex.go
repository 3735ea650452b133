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

// dexIndexClient is the default DexIndex adapter over the DEX
// liquidity index's GET /tokens/{csv} endpoint.
type dexIndexClient struct {
	baseURL string
	client  *http.Client
}

// NewDexIndex builds the default DEX-liquidity-index adapter.
func NewDexIndex(baseURL string) DexIndex {
	return &dexIndexClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type dexAPIResponse struct {
	Pairs []struct {
		BaseToken struct {
			Address string `json:"address"`
			Name    string `json:"name"`
			Symbol  string `json:"symbol"`
		} `json:"baseToken"`
		PriceUSD  string `json:"priceUsd"`
		Liquidity struct {
			USD float64 `json:"usd"`
		} `json:"liquidity"`
		Volume struct {
			H24 float64 `json:"h24"`
		} `json:"volume"`
		PriceChange struct {
			H24 float64 `json:"h24"`
		} `json:"priceChange"`
		FDV           float64 `json:"fdv"`
		MarketCap     float64 `json:"marketCap"`
		PairCreatedAt int64   `json:"pairCreatedAt"`
		Info          struct {
			Websites []struct {
				URL string `json:"url"`
			} `json:"websites"`
			Socials []struct {
				URL string `json:"url"`
			} `json:"socials"`
		} `json:"info"`
	} `json:"pairs"`
}

func (c *dexIndexClient) Pairs(ctx context.Context, mints []string) (map[string][]DexPair, error) {
	url := fmt.Sprintf("%s/tokens/%s", c.baseURL, strings.Join(mints, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dex index request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dex index http %d: %s", resp.StatusCode, string(raw))
	}

	var decoded dexAPIResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode dex index response: %w", err)
	}

	result := make(map[string][]DexPair)
	for _, p := range decoded.Pairs {
		var price float64
		fmt.Sscanf(p.PriceUSD, "%g", &price)

		var websites, socials []string
		for _, w := range p.Info.Websites {
			websites = append(websites, w.URL)
		}
		for _, s := range p.Info.Socials {
			socials = append(socials, s.URL)
		}

		result[p.BaseToken.Address] = append(result[p.BaseToken.Address], DexPair{
			BaseMint:       p.BaseToken.Address,
			PriceUSD:       price,
			LiquidityUSD:   p.Liquidity.USD,
			Volume24hUSD:   p.Volume.H24,
			PriceChange24h: p.PriceChange.H24,
			FDV:            p.FDV,
			MarketCap:      p.MarketCap,
			PairCreatedAt:  p.PairCreatedAt,
			Websites:       websites,
			Socials:        socials,
		})
	}
	return result, nil
}
