package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// rugReportClient is the default RugReportOracle adapter over
// GET /tokens/{mint}/report/summary.
type rugReportClient struct {
	baseURL string
	client  *http.Client
}

// NewRugReportOracle builds the default rug-report-oracle adapter.
func NewRugReportOracle(baseURL string) RugReportOracle {
	return &rugReportClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *rugReportClient) Report(ctx context.Context, mint string) (*RugReport, error) {
	url := fmt.Sprintf("%s/tokens/%s/report/summary", c.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rug report request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rug report http %d: %s", resp.StatusCode, string(raw))
	}

	var decoded struct {
		Markets []struct {
			LP struct {
				LPLockedPct float64 `json:"lpLockedPct"`
			} `json:"lp"`
		} `json:"markets"`
		Risks []struct {
			Name  string `json:"name"`
			Level string `json:"level"`
		} `json:"risks"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode rug report response: %w", err)
	}

	report := &RugReport{}
	for _, m := range decoded.Markets {
		report.Markets = append(report.Markets, RugReportMarket{
			LPLockedPct: m.LP.LPLockedPct,
			HasLPInfo:   true,
		})
	}
	for _, r := range decoded.Risks {
		report.Risks = append(report.Risks, RugReportRisk{Name: r.Name, Level: r.Level})
	}
	return report, nil
}
