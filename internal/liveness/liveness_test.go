package liveness

import (
	"context"
	"testing"

	"github.com/Jpatching/daybreakscan/internal/cache"
	"github.com/Jpatching/daybreakscan/internal/upstream"
	"github.com/Jpatching/daybreakscan/pkg/models"
)

type fakeDex struct {
	pairs map[string][]upstream.DexPair
	calls int
}

func (f *fakeDex) Pairs(ctx context.Context, mints []string) (map[string][]upstream.DexPair, error) {
	f.calls++
	result := make(map[string][]upstream.DexPair)
	for _, m := range mints {
		if p, ok := f.pairs[m]; ok {
			result[m] = p
		}
	}
	return result, nil
}

func TestBulkLivenessAliveByLiquidity(t *testing.T) {
	dex := &fakeDex{pairs: map[string][]upstream.DexPair{
		"mintA": {{LiquidityUSD: 150}},
	}}
	c := New(dex, cache.New(cache.LivenessTTL))
	defer c.cache.Close()

	statuses, err := c.BulkLiveness(context.Background(), []string{"mintA"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if statuses["mintA"].Liveness != models.LivenessAlive {
		t.Fatalf("expected alive, got %s", statuses["mintA"].Liveness)
	}
}

func TestBulkLivenessAliveByVolume(t *testing.T) {
	dex := &fakeDex{pairs: map[string][]upstream.DexPair{
		"mintA": {{LiquidityUSD: 0, Volume24hUSD: 10}},
	}}
	c := New(dex, cache.New(cache.LivenessTTL))
	defer c.cache.Close()

	statuses, err := c.BulkLiveness(context.Background(), []string{"mintA"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if statuses["mintA"].Liveness != models.LivenessAlive {
		t.Fatalf("expected alive, got %s", statuses["mintA"].Liveness)
	}
}

func TestBulkLivenessDeadBelowThreshold(t *testing.T) {
	dex := &fakeDex{pairs: map[string][]upstream.DexPair{
		"mintA": {{LiquidityUSD: 5, Volume24hUSD: 0}},
	}}
	c := New(dex, cache.New(cache.LivenessTTL))
	defer c.cache.Close()

	statuses, err := c.BulkLiveness(context.Background(), []string{"mintA"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if statuses["mintA"].Liveness != models.LivenessDead {
		t.Fatalf("expected dead, got %s", statuses["mintA"].Liveness)
	}
}

func TestBulkLivenessUnverifiedOmitted(t *testing.T) {
	dex := &fakeDex{pairs: map[string][]upstream.DexPair{}}
	c := New(dex, cache.New(cache.LivenessTTL))
	defer c.cache.Close()

	statuses, err := c.BulkLiveness(context.Background(), []string{"mintA"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := statuses["mintA"]; ok {
		t.Fatalf("expected mint with no pairs to be omitted, not marked dead")
	}
}

func TestBulkLivenessUsesCacheOnSecondCall(t *testing.T) {
	dex := &fakeDex{pairs: map[string][]upstream.DexPair{
		"mintA": {{LiquidityUSD: 150}},
	}}
	c := New(dex, cache.New(cache.LivenessTTL))
	defer c.cache.Close()

	ctx := context.Background()
	if _, err := c.BulkLiveness(ctx, []string{"mintA"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.BulkLiveness(ctx, []string{"mintA"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dex.calls != 1 {
		t.Fatalf("expected dex to be queried once, got %d calls", dex.calls)
	}
}

func TestBulkLivenessBatchesOver30(t *testing.T) {
	pairs := make(map[string][]upstream.DexPair)
	var mints []string
	for i := 0; i < 65; i++ {
		mint := string(rune('a' + i%26))
		mints = append(mints, mint)
		pairs[mint] = []upstream.DexPair{{LiquidityUSD: 150}}
	}
	dex := &fakeDex{pairs: pairs}
	c := New(dex, cache.New(cache.LivenessTTL))
	defer c.cache.Close()

	if _, err := c.BulkLiveness(context.Background(), mints); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dex.calls < 3 {
		t.Fatalf("expected at least 3 batches for 65 mints, got %d", dex.calls)
	}
}
