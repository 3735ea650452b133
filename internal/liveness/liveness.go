// Package liveness implements the bulk liveness classifier: batched
// DEX-index queries, aggregated per mint, labeled alive/dead/unverified.
//
// Grounded on internal/heuristics/anonset_tracker.go's batched-window
// aggregation idiom, fanned out with golang.org/x/sync/errgroup in
// place of raw goroutine+channel bookkeeping.
package liveness

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Jpatching/daybreakscan/internal/cache"
	"github.com/Jpatching/daybreakscan/internal/upstream"
	"github.com/Jpatching/daybreakscan/pkg/models"
)

const (
	batchSize        = 30
	aliveMinLiquidity = 100.0
)

// Classifier bulk-classifies mint liveness against the DEX index.
type Classifier struct {
	dex   upstream.DexIndex
	cache *cache.Cache
}

// New builds a Classifier over the given DEX index and liveness cache.
func New(dex upstream.DexIndex, livenessCache *cache.Cache) *Classifier {
	return &Classifier{dex: dex, cache: livenessCache}
}

// BulkLiveness returns a TokenStatus for every mint that has at least
// one DEX pair. Mints with no pair at all are omitted from the result
// (unverified), never marked dead. Cached entries are reused; a failed
// batch is never cached, so it can be retried on the next call.
func (c *Classifier) BulkLiveness(ctx context.Context, mints []string) (map[string]models.TokenStatus, error) {
	result := make(map[string]models.TokenStatus, len(mints))

	var uncached []string
	for _, m := range mints {
		if v, ok := c.cache.Get(m); ok {
			if status, ok := v.(models.TokenStatus); ok {
				result[m] = status
			}
			continue
		}
		uncached = append(uncached, m)
	}

	batches := chunk(uncached, batchSize)
	batchResults := make([]map[string]models.TokenStatus, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			statuses, err := c.classifyBatch(gctx, batch)
			if err != nil {
				return err
			}
			batchResults[i] = statuses
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, statuses := range batchResults {
		for mint, status := range statuses {
			result[mint] = status
			c.cache.Set(mint, status)
		}
	}
	return result, nil
}

func (c *Classifier) classifyBatch(ctx context.Context, mints []string) (map[string]models.TokenStatus, error) {
	pairsByMint, err := c.dex.Pairs(ctx, mints)
	if err != nil {
		return nil, err
	}

	statuses := make(map[string]models.TokenStatus)
	for _, mint := range mints {
		pairs, ok := pairsByMint[mint]
		if !ok || len(pairs) == 0 {
			continue // unverified: omitted, never dead
		}

		var liquidity, volume float64
		first := pairs[0]
		for _, p := range pairs {
			liquidity += p.LiquidityUSD
			volume += p.Volume24hUSD
		}

		alive := liquidity >= aliveMinLiquidity || volume > 0
		liveness := models.LivenessDead
		if alive {
			liveness = models.LivenessAlive
		}

		statuses[mint] = models.TokenStatus{
			Mint:           mint,
			Liveness:       liveness,
			LiquidityUSD:   liquidity,
			Volume24hUSD:   volume,
			PriceUSD:       first.PriceUSD,
			FDV:            first.FDV,
			MarketCap:      first.MarketCap,
			PriceChange24h: first.PriceChange24h,
			Websites:       first.Websites,
			Socials:        first.Socials,
			PairCreatedAt:  unixMillisToTime(first.PairCreatedAt),
		}
	}
	return statuses, nil
}

func unixMillisToTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func chunk(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	var chunks [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
