// Package rpcrouter dispatches JSON-RPC calls across Solana RPC
// providers. Enhanced calls (transaction-history lookups only the
// enhanced-history provider exposes) are pinned with no fallback;
// basic calls are tried against a configured fallback chain in order.
//
// Grounded on internal/bitcoin/client.go's thin-wrapper-over-one-RPC-
// client idiom, generalized to many providers with a fallback chain.
package rpcrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/Jpatching/daybreakscan/internal/scanerr"
)

const (
	perAttemptTimeout = 15 * time.Second
	maxEnhancedAttempts = 3
)

// Config configures the router's provider chain.
type Config struct {
	// BasicProviderURLs is the ordered fallback chain for basic_rpc.
	BasicProviderURLs []string
	// EnhancedBaseURL is the enhanced-history provider's REST base URL
	// (e.g. Helius). Pinned; never falls back.
	EnhancedBaseURL string
	// EnhancedAPIKey is appended as a query parameter on enhanced calls.
	EnhancedAPIKey string
}

// Router is the process-wide RPC dispatcher.
type Router struct {
	cfg    Config
	client *http.Client
}

// New builds a Router from cfg. The shared http.Client tunes the
// connection pool the way the teacher's bitcoin.Client keeps one
// long-lived RPC connection instead of dialing per call.
func New(cfg Config) *Router {
	return &Router{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        64,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcErrorObj    `json:"error"`
}

type rpcErrorObj struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Basic dispatches method/params against the configured basic-provider
// fallback chain in order, returning the first success. Surfaces an
// error only once every provider has failed.
func (r *Router) Basic(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if len(r.cfg.BasicProviderURLs) == 0 {
		return nil, scanerr.New(scanerr.NoProvidersConfigured, "no basic RPC providers configured")
	}

	var lastErr error
	for i, url := range r.cfg.BasicProviderURLs {
		result, err := r.callOnce(ctx, url, method, params)
		if err == nil {
			return result, nil
		}
		log.Printf("rpcrouter: basic provider %d (%s) failed for %s: %v", i, url, method, err)
		lastErr = err
	}
	return nil, scanerr.Wrap(scanerr.UpstreamError, lastErr, "all basic RPC providers failed for %s", method)
}

// Enhanced dispatches method/params to the pinned enhanced-history
// provider only; it owns data no other provider exposes, so there is
// no fallback chain to walk.
func (r *Router) Enhanced(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if r.cfg.EnhancedBaseURL == "" {
		return nil, scanerr.New(scanerr.NoProvidersConfigured, "no enhanced RPC provider configured")
	}
	result, err := r.callOnce(ctx, r.cfg.EnhancedBaseURL, method, params)
	if err != nil {
		return nil, scanerr.Wrap(scanerr.UpstreamError, err, "enhanced RPC call %s failed", method)
	}
	return result, nil
}

func (r *Router) callOnce(ctx context.Context, url, method string, params any) (json.RawMessage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, perAttemptTimeout)
	defer cancel()

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(raw))
	}

	var parsed rpcResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	return parsed.Result, nil
}

// batchItem is one element of a multi-call JSON-RPC batch.
type batchItem struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcErrorObj    `json:"error"`
}

// Call is one unit of work submitted to Batch.
type Call struct {
	Method string
	Params any
}

// Batch sends calls as a single multi-element JSON-RPC body against the
// pinned enhanced provider and returns results sorted by request id. Any
// per-item error aborts the whole batch.
func (r *Router) Batch(ctx context.Context, calls []Call) ([]json.RawMessage, error) {
	if r.cfg.EnhancedBaseURL == "" {
		return nil, scanerr.New(scanerr.NoProvidersConfigured, "no enhanced RPC provider configured for batch")
	}

	reqs := make([]rpcRequest, len(calls))
	for i, c := range calls {
		reqs[i] = rpcRequest{JSONRPC: "2.0", ID: i, Method: c.Method, Params: c.Params}
	}

	body, err := json.Marshal(reqs)
	if err != nil {
		return nil, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, perAttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, r.cfg.EnhancedBaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, scanerr.Wrap(scanerr.UpstreamError, err, "batch rpc request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, scanerr.New(scanerr.UpstreamError, "batch rpc http %d: %s", resp.StatusCode, string(raw))
	}

	var items []batchItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, scanerr.Wrap(scanerr.UpstreamError, err, "decode batch rpc response")
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	results := make([]json.RawMessage, len(items))
	for i, it := range items {
		if it.Error != nil {
			return nil, scanerr.New(scanerr.UpstreamError, "batch item %d error %d: %s", i, it.Error.Code, it.Error.Message)
		}
		results[i] = it.Result
	}
	return results, nil
}
