package discovery

import (
	"context"
	"testing"

	"github.com/Jpatching/daybreakscan/internal/upstream"
	"github.com/Jpatching/daybreakscan/pkg/models"
)

type fakeEnhanced struct {
	byAddress map[string][]models.EnhancedTx
}

func (f *fakeEnhanced) Transactions(ctx context.Context, address string, limit int, sort upstream.SignatureSort, before string) ([]models.EnhancedTx, error) {
	txs := f.byAddress[address]
	if len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

type fakeChain struct {
	sigPages  [][]string
	txBySig   map[string]*models.ParsedTx
	callCount int
}

func (f *fakeChain) GetTransaction(ctx context.Context, sig string) (*models.ParsedTx, error) {
	return f.txBySig[sig], nil
}
func (f *fakeChain) GetSignaturesForAddress(ctx context.Context, addr string, limit int, before string) ([]string, error) {
	if f.callCount >= len(f.sigPages) {
		return nil, nil
	}
	page := f.sigPages[f.callCount]
	f.callCount++
	return page, nil
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

func TestFindDeployerEnhancedCreateEvent(t *testing.T) {
	enhanced := &fakeEnhanced{byAddress: map[string][]models.EnhancedTx{
		"mintA": {{
			FeePayer:  "deployer1",
			Signature: "sig1",
			Timestamp: 1000,
			Type:      "CREATE",
			Source:    "PUMP_FUN",
		}},
	}}
	d := New(enhanced, &fakeChain{})

	dep, err := d.FindDeployer(context.Background(), "mintA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dep == nil || dep.Wallet != "deployer1" || dep.Method != models.DetectionEnhanced {
		t.Fatalf("expected deployer1 via enhanced detection, got %+v", dep)
	}
}

func TestFindDeployerFallsBackToRPC(t *testing.T) {
	enhanced := &fakeEnhanced{byAddress: map[string][]models.EnhancedTx{}}
	chain := &fakeChain{
		sigPages: [][]string{{"sigOld"}},
		txBySig: map[string]*models.ParsedTx{
			"sigOld": {
				FeePayer:  "fallbackDeployer",
				Signers:   []string{"fallbackDeployer"},
				Success:   true,
				BlockTime: 500,
				Instructions: []models.Instruction{{
					ProgramID: "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
					Parsed:    &models.ParsedInstruction{Type: "initializeMint2", Info: map[string]any{"mint": "mintB"}},
				}},
			},
		},
	}
	d := New(enhanced, chain)

	dep, err := d.FindDeployer(context.Background(), "mintB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dep == nil || dep.Wallet != "fallbackDeployer" || dep.Method != models.DetectionRPCFallback {
		t.Fatalf("expected fallbackDeployer via rpc-fallback detection, got %+v", dep)
	}
}

func TestFindDeployerNoHistoryReturnsNil(t *testing.T) {
	d := New(&fakeEnhanced{byAddress: map[string][]models.EnhancedTx{}}, &fakeChain{})

	dep, err := d.FindDeployer(context.Background(), "unknownMint")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dep != nil {
		t.Fatalf("expected nil deployer, got %+v", dep)
	}
}
