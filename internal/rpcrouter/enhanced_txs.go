package rpcrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Jpatching/daybreakscan/internal/scanerr"
	"github.com/Jpatching/daybreakscan/pkg/models"
)

const maxEnhancedTxAttempts = 3

// SortOrder selects ascending or descending transaction history order.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// EnhancedTxs fetches up to limit transactions for address from the
// pinned enhanced-history provider, in sort order, optionally paginated
// by a `before` signature cursor. Retries up to 3 times on HTTP 429,
// waiting (attempt+1) seconds between attempts; returns
// UpstreamRateLimited if still failing after retries. A non-array JSON
// response yields an empty slice rather than an error.
func (r *Router) EnhancedTxs(ctx context.Context, address string, limit int, sort SortOrder, before string) ([]models.EnhancedTx, error) {
	if r.cfg.EnhancedBaseURL == "" {
		return nil, scanerr.New(scanerr.NoProvidersConfigured, "no enhanced RPC provider configured")
	}

	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("sort-order", string(sort))
	q.Set("api-key", r.cfg.EnhancedAPIKey)
	if before != "" {
		q.Set("before", before)
	}
	reqURL := fmt.Sprintf("%s/addresses/%s/transactions?%s", r.cfg.EnhancedBaseURL, address, q.Encode())

	var lastErr error
	for attempt := 0; attempt < maxEnhancedTxAttempts; attempt++ {
		txs, retry, err := r.tryEnhancedTxs(ctx, reqURL)
		if err == nil {
			return txs, nil
		}
		lastErr = err
		if !retry {
			return nil, scanerr.Wrap(scanerr.UpstreamError, err, "enhanced transaction history fetch failed")
		}
		select {
		case <-time.After(time.Duration(attempt+1) * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, scanerr.Wrap(scanerr.UpstreamRateLimited, lastErr, "enhanced transaction history still rate-limited after %d attempts", maxEnhancedTxAttempts)
}

// tryEnhancedTxs makes one attempt; the bool return reports whether the
// failure is retryable (a 429).
func (r *Router) tryEnhancedTxs(ctx context.Context, reqURL string) ([]models.EnhancedTx, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, perAttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("http 429")
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("http %d: %s", resp.StatusCode, string(raw))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}

	var txs []models.EnhancedTx
	if err := json.Unmarshal(raw, &txs); err != nil {
		// Non-array response (e.g. an error object) yields [] per spec.
		return []models.EnhancedTx{}, false, nil
	}
	return txs, false, nil
}
