package scan

import (
	"context"
	"testing"
	"time"

	"github.com/Jpatching/daybreakscan/internal/cache"
	"github.com/Jpatching/daybreakscan/internal/death"
	"github.com/Jpatching/daybreakscan/internal/discovery"
	"github.com/Jpatching/daybreakscan/internal/enumeration"
	"github.com/Jpatching/daybreakscan/internal/funding"
	"github.com/Jpatching/daybreakscan/internal/liveness"
	"github.com/Jpatching/daybreakscan/internal/risk"
	"github.com/Jpatching/daybreakscan/internal/upstream"
	"github.com/Jpatching/daybreakscan/pkg/models"
)

type fakeEnhanced struct {
	byAddress map[string][]models.EnhancedTx
}

func (f *fakeEnhanced) Transactions(ctx context.Context, address string, limit int, sort upstream.SignatureSort, before string) ([]models.EnhancedTx, error) {
	return f.byAddress[address], nil
}

type fakeChain struct{}

func (f *fakeChain) GetTransaction(ctx context.Context, sig string) (*models.ParsedTx, error) {
	return nil, nil
}
func (f *fakeChain) GetSignaturesForAddress(ctx context.Context, addr string, limit int, before string) ([]string, error) {
	return nil, nil
}
func (f *fakeChain) GetAsset(ctx context.Context, mint string) (models.Mint, error) {
	return models.Mint{}, nil
}
func (f *fakeChain) GetMintAccountInfo(ctx context.Context, mint string) (*upstream.MintAccountInfo, error) {
	return nil, nil
}
func (f *fakeChain) GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]upstream.TokenAccountBalance, error) {
	return nil, nil
}
func (f *fakeChain) GetTokenLargestAccounts(ctx context.Context, mint string) ([]upstream.LargestAccount, error) {
	return nil, nil
}

type fakeDex struct {
	pairs map[string][]upstream.DexPair
}

func (f *fakeDex) Pairs(ctx context.Context, mints []string) (map[string][]upstream.DexPair, error) {
	result := make(map[string][]upstream.DexPair)
	for _, m := range mints {
		if p, ok := f.pairs[m]; ok {
			result[m] = p
		}
	}
	return result, nil
}

type fakeRugReport struct{}

func (f *fakeRugReport) Report(ctx context.Context, mint string) (*upstream.RugReport, error) {
	return &upstream.RugReport{}, nil
}

func TestScanDeployerAliveToken(t *testing.T) {
	creationTx := models.EnhancedTx{
		FeePayer:  "deployer1",
		Signature: "creationSig",
		Timestamp: time.Now().Add(-48 * time.Hour).Unix(),
		Type:      "CREATE",
		Source:    "PUMP_FUN",
		TokenTransfers: []models.TokenTransfer{
			{Mint: "mintA", FromUser: "", ToUser: "deployer1"},
		},
		NativeTransfers: []models.NativeTransfer{
			{FromUser: "funder1", ToUser: "deployer1", Amount: 5_000_000},
		},
	}

	enhanced := &fakeEnhanced{byAddress: map[string][]models.EnhancedTx{
		"mintA":     {creationTx},
		"deployer1": {creationTx},
	}}
	chain := &fakeChain{}
	dex := &fakeDex{pairs: map[string][]upstream.DexPair{
		"mintA": {{BaseMint: "mintA", LiquidityUSD: 5000, Volume24hUSD: 1000}},
	}}
	rugReport := &fakeRugReport{}

	livenessCache := cache.New(time.Minute)
	defer livenessCache.Close()
	mintAuthCache := cache.New(time.Minute)
	defer mintAuthCache.Close()
	rugCache := cache.New(time.Minute)
	defer rugCache.Close()

	disc := discovery.New(enhanced, chain)
	enum := enumeration.New(enhanced, chain)
	live := liveness.New(dex, livenessCache)
	fund := funding.New(enhanced, chain)
	riskAssessor := risk.New(chain, enhanced, rugReport, mintAuthCache, rugCache)
	deathClassifier := death.New(chain, enhanced, 50, FundingOf(fund))

	coord := New(disc, enum, live, deathClassifier, fund, riskAssessor, nil, nil, nil, 0)

	result, err := coord.ScanDeployer(context.Background(), "deployer1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Deployer.Wallet != "deployer1" {
		t.Fatalf("expected deployer1, got %s", result.Deployer.Wallet)
	}
	if len(result.Tokens) != 1 {
		t.Fatalf("expected 1 token, got %d", len(result.Tokens))
	}
	if result.Tokens[0].Status == nil || result.Tokens[0].Status.Liveness != models.LivenessAlive {
		t.Fatalf("expected mintA to be classified alive, got %+v", result.Tokens[0].Status)
	}
	if result.Funding == nil || result.Funding.SourceWallet != "funder1" {
		t.Fatalf("expected funding source funder1, got %+v", result.Funding)
	}
	if result.Confidence.VerifiedCount != 1 {
		t.Fatalf("expected 1 verified token, got %d", result.Confidence.VerifiedCount)
	}
	if result.Reputation.Verdict != models.VerdictSuspicious {
		t.Fatalf("expected SUSPICIOUS verdict (verified_count<3 cap), got %s", result.Reputation.Verdict)
	}
}

// TestScanDeployerMultipleTokensRiskFanOut exercises the ≥2-mint path
// through the per-mint risk fan-out; it would trip Go's concurrent
// map write detector if that stage regressed to an unsynchronized map.
func TestScanDeployerMultipleTokensRiskFanOut(t *testing.T) {
	mkTx := func(sig, mint string, ageHours time.Duration) models.EnhancedTx {
		return models.EnhancedTx{
			FeePayer:  "deployer1",
			Signature: sig,
			Timestamp: time.Now().Add(-ageHours * time.Hour).Unix(),
			Type:      "CREATE",
			Source:    "PUMP_FUN",
			TokenTransfers: []models.TokenTransfer{
				{Mint: mint, FromUser: "", ToUser: "deployer1"},
			},
			NativeTransfers: []models.NativeTransfer{
				{FromUser: "funder1", ToUser: "deployer1", Amount: 5_000_000},
			},
		}
	}
	txA := mkTx("sigA", "mintA", 72)
	txB := mkTx("sigB", "mintB", 48)
	txC := mkTx("sigC", "mintC", 24)

	enhanced := &fakeEnhanced{byAddress: map[string][]models.EnhancedTx{
		"mintA":     {txA},
		"deployer1": {txA, txB, txC},
	}}
	chain := &fakeChain{}
	dex := &fakeDex{pairs: map[string][]upstream.DexPair{
		"mintA": {{BaseMint: "mintA", LiquidityUSD: 5000, Volume24hUSD: 1000}},
		"mintB": {{BaseMint: "mintB", LiquidityUSD: 200, Volume24hUSD: 50}},
		"mintC": {{BaseMint: "mintC", LiquidityUSD: 0, Volume24hUSD: 0}},
	}}
	rugReport := &fakeRugReport{}

	livenessCache := cache.New(time.Minute)
	defer livenessCache.Close()
	mintAuthCache := cache.New(time.Minute)
	defer mintAuthCache.Close()
	rugCache := cache.New(time.Minute)
	defer rugCache.Close()

	disc := discovery.New(enhanced, chain)
	enum := enumeration.New(enhanced, chain)
	live := liveness.New(dex, livenessCache)
	fund := funding.New(enhanced, chain)
	riskAssessor := risk.New(chain, enhanced, rugReport, mintAuthCache, rugCache)
	deathClassifier := death.New(chain, enhanced, 50, FundingOf(fund))

	coord := New(disc, enum, live, deathClassifier, fund, riskAssessor, nil, nil, nil, 0)

	result, err := coord.ScanDeployer(context.Background(), "deployer1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(result.Tokens))
	}
	for _, tok := range result.Tokens {
		if tok.Risks == nil {
			t.Fatalf("expected risk signals for every mint, missing for %s", tok.Mint.Address)
		}
	}
}

func TestScanTokenDeployerNotFound(t *testing.T) {
	enhanced := &fakeEnhanced{byAddress: map[string][]models.EnhancedTx{}}
	chain := &fakeChain{}
	dex := &fakeDex{pairs: map[string][]upstream.DexPair{}}
	rugReport := &fakeRugReport{}

	livenessCache := cache.New(time.Minute)
	defer livenessCache.Close()
	mintAuthCache := cache.New(time.Minute)
	defer mintAuthCache.Close()
	rugCache := cache.New(time.Minute)
	defer rugCache.Close()

	disc := discovery.New(enhanced, chain)
	enum := enumeration.New(enhanced, chain)
	live := liveness.New(dex, livenessCache)
	fund := funding.New(enhanced, chain)
	riskAssessor := risk.New(chain, enhanced, rugReport, mintAuthCache, rugCache)
	deathClassifier := death.New(chain, enhanced, 50, FundingOf(fund))

	coord := New(disc, enum, live, deathClassifier, fund, riskAssessor, nil, nil, nil, 0)

	_, err := coord.ScanToken(context.Background(), "unknownMint")
	if err == nil {
		t.Fatal("expected DeployerNotFound error")
	}
}
