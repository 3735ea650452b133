package enumeration

import (
	"context"
	"testing"

	"github.com/Jpatching/daybreakscan/internal/solchain"
	"github.com/Jpatching/daybreakscan/internal/upstream"
	"github.com/Jpatching/daybreakscan/pkg/models"
)

type fakeEnhanced struct {
	byAddress map[string][]models.EnhancedTx
}

func (f *fakeEnhanced) Transactions(ctx context.Context, address string, limit int, sort upstream.SignatureSort, before string) ([]models.EnhancedTx, error) {
	all := f.byAddress[address]
	if before != "" {
		return nil, nil // single page fixtures; pagination exhausted after first call
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
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

func TestTokensOfExtractsDistinctMints(t *testing.T) {
	enhanced := &fakeEnhanced{byAddress: map[string][]models.EnhancedTx{
		"deployer1": {
			{
				FeePayer:       "deployer1",
				Signature:      "sig1",
				Type:           "CREATE",
				Source:         "PUMP_FUN",
				TokenTransfers: []models.TokenTransfer{{Mint: "mintA"}},
			},
			{
				FeePayer:       "deployer1",
				Signature:      "sig2",
				Type:           "CREATE",
				Source:         "PUMP_FUN",
				TokenTransfers: []models.TokenTransfer{{Mint: "mintA"}, {Mint: "mintB"}},
			},
			{
				// Not a creation event; must not contribute mints.
				FeePayer:       "deployer1",
				Signature:      "sig3",
				Type:           "TRANSFER",
				TokenTransfers: []models.TokenTransfer{{Mint: "mintC"}},
			},
			{
				// Fee payer mismatch; must be skipped.
				FeePayer:       "someoneElse",
				Signature:      "sig4",
				Type:           "CREATE",
				Source:         "PUMP_FUN",
				TokenTransfers: []models.TokenTransfer{{Mint: "mintD"}},
			},
		},
	}}
	e := New(enhanced, &fakeChain{})

	mints, limitReached, err := e.TokensOf(context.Background(), "deployer1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limitReached {
		t.Fatal("did not expect the page cap to be hit")
	}
	if len(mints) != 2 || mints[0] != "mintA" || mints[1] != "mintB" {
		t.Fatalf("expected [mintA mintB] in first-seen order, got %v", mints)
	}
}

func TestTokensOfExcludesNativeMint(t *testing.T) {
	enhanced := &fakeEnhanced{byAddress: map[string][]models.EnhancedTx{
		"deployer1": {{
			FeePayer:       "deployer1",
			Signature:      "sig1",
			Type:           "CREATE",
			Source:         "PUMP_FUN",
			TokenTransfers: []models.TokenTransfer{{Mint: solchain.NativeMint}, {Mint: "mintA"}},
		}},
	}}
	e := New(enhanced, &fakeChain{})

	mints, _, err := e.TokensOf(context.Background(), "deployer1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mints) != 1 || mints[0] != "mintA" {
		t.Fatalf("expected only mintA (native mint excluded), got %v", mints)
	}
}

func TestTokensOfNoHistoryYieldsEmpty(t *testing.T) {
	e := New(&fakeEnhanced{byAddress: map[string][]models.EnhancedTx{}}, &fakeChain{})

	mints, limitReached, err := e.TokensOf(context.Background(), "unknownDeployer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limitReached {
		t.Fatal("did not expect the page cap to be hit")
	}
	if len(mints) != 0 {
		t.Fatalf("expected no mints, got %v", mints)
	}
}
