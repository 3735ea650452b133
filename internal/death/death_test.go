package death

import (
	"context"
	"testing"
	"time"

	"github.com/Jpatching/daybreakscan/internal/upstream"
	"github.com/Jpatching/daybreakscan/pkg/models"
)

type fakeChain struct {
	mintInfo map[string]*upstream.MintAccountInfo
	balances map[string][]upstream.TokenAccountBalance
}

func (f *fakeChain) GetTransaction(ctx context.Context, sig string) (*models.ParsedTx, error) { return nil, nil }
func (f *fakeChain) GetSignaturesForAddress(ctx context.Context, addr string, limit int, before string) ([]string, error) {
	return nil, nil
}
func (f *fakeChain) GetAsset(ctx context.Context, mint string) (models.Mint, error) { return models.Mint{}, nil }
func (f *fakeChain) GetMintAccountInfo(ctx context.Context, mint string) (*upstream.MintAccountInfo, error) {
	return f.mintInfo[mint], nil
}
func (f *fakeChain) GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]upstream.TokenAccountBalance, error) {
	return f.balances[owner], nil
}
func (f *fakeChain) GetTokenLargestAccounts(ctx context.Context, mint string) ([]upstream.LargestAccount, error) {
	return nil, nil
}

type fakeEnhanced struct {
	txs map[string][]models.EnhancedTx
}

func (f *fakeEnhanced) Transactions(ctx context.Context, address string, limit int, sort upstream.SignatureSort, before string) ([]models.EnhancedTx, error) {
	return f.txs[address], nil
}

func TestClassifyDistributedRug(t *testing.T) {
	chain := &fakeChain{
		mintInfo: map[string]*upstream.MintAccountInfo{"mintA": {Supply: 1000000}},
		balances: map[string][]upstream.TokenAccountBalance{"deployer": {{Amount: 0}}},
	}
	enhanced := &fakeEnhanced{txs: map[string][]models.EnhancedTx{
		"deployer": {{
			Timestamp:      1000,
			TokenTransfers: []models.TokenTransfer{{Mint: "mintA", FromUser: "deployer", ToUser: "dest"}},
		}},
	}}
	fundingOf := func(ctx context.Context, wallet string) (string, bool, error) {
		return "sharedFunder", true, nil
	}
	c := New(chain, enhanced, 0, fundingOf)

	created := time.Unix(1000, 0)
	results, err := c.ClassifyAll(context.Background(), []Candidate{
		{Mint: "mintA", Deployer: "deployer", CreatedAt: created, PeakLiquidityUSD: 50},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Type != models.DeathDistributedRug {
		t.Fatalf("expected distributed_rug, got %s", results[0].Type)
	}
}

func TestClassifyNaturalWhenNoRealBuyersAndHoldingsUnknown(t *testing.T) {
	chain := &fakeChain{mintInfo: map[string]*upstream.MintAccountInfo{}}
	enhanced := &fakeEnhanced{}
	c := New(chain, enhanced, 0, nil)

	results, err := c.ClassifyAll(context.Background(), []Candidate{
		{Mint: "mintA", Deployer: "deployer", CreatedAt: time.Now().Add(-10 * time.Hour), PeakLiquidityUSD: 10},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Type != models.DeathNatural {
		t.Fatalf("expected natural, got %s", results[0].Type)
	}
}

func TestClassifyLikelyRugQuickDump(t *testing.T) {
	chain := &fakeChain{
		mintInfo: map[string]*upstream.MintAccountInfo{"mintA": {Supply: 1000000}},
		balances: map[string][]upstream.TokenAccountBalance{"deployer": {{Amount: 0}}},
	}
	enhanced := &fakeEnhanced{}
	c := New(chain, enhanced, 0, nil)

	results, err := c.ClassifyAll(context.Background(), []Candidate{
		{Mint: "mintA", Deployer: "deployer", CreatedAt: time.Now().Add(-1 * time.Hour), PeakLiquidityUSD: 10},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Type != models.DeathLikelyRug {
		t.Fatalf("expected likely_rug, got %s", results[0].Type)
	}
}

func TestClassifyOverflowDefaultsNatural(t *testing.T) {
	chain := &fakeChain{mintInfo: map[string]*upstream.MintAccountInfo{}}
	enhanced := &fakeEnhanced{}
	c := New(chain, enhanced, 1, nil)

	results, err := c.ClassifyAll(context.Background(), []Candidate{
		{Mint: "mintHigh", PeakLiquidityUSD: 1000},
		{Mint: "mintLow", PeakLiquidityUSD: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].Mint != "mintLow" || results[1].Type != models.DeathNatural {
		t.Fatalf("expected overflow candidate defaulted to natural, got %+v", results[1])
	}
}
