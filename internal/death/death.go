// Package death implements the death classifier: for each dead mint
// with observed DEX history, gather evidence in bounded-concurrency
// chunks and apply an ordered, first-match classification.
//
// Grounded on internal/heuristics/risk_roles.go's role-precedence idiom
// (ordered rules, first match wins) rather than additive scoring.
package death

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Jpatching/daybreakscan/internal/solchain"
	"github.com/Jpatching/daybreakscan/internal/upstream"
	"github.com/Jpatching/daybreakscan/pkg/models"
)

const (
	chunkConcurrency       = 5
	defaultSampleCap       = 50
	realBuyerLiquidityUSD  = 500.0
	quickDumpLifespanHours = 48.0
	maxLifespanHours       = 168.0
	initialTransferWindow  = 4 * time.Hour
)

// Candidate is one dead mint with the context the classifier needs to
// gather evidence: its mint address, when it was created, the
// deployer, and its peak observed liquidity (used only for sort order
// and the had_real_buyers signal).
type Candidate struct {
	Mint            string
	Deployer        string
	CreatedAt       time.Time
	PeakLiquidityUSD float64
}

// FundingSourceFunc resolves a wallet's funding source wallet, as
// produced by internal/funding. Used to test initial_transfer_is_associated
// without this package depending on internal/funding directly.
type FundingSourceFunc func(ctx context.Context, wallet string) (string, bool, error)

// Classifier gathers evidence and classifies death type for dead mints.
type Classifier struct {
	chain     upstream.ChainRPC
	enhanced  upstream.EnhancedHistory
	sampleCap int
	fundingOf FundingSourceFunc
}

// New builds a Classifier. sampleCap <= 0 uses the spec default of 50.
// fundingOf may be nil, in which case initial_transfer_is_associated
// is always false.
func New(chain upstream.ChainRPC, enhanced upstream.EnhancedHistory, sampleCap int, fundingOf FundingSourceFunc) *Classifier {
	if sampleCap <= 0 {
		sampleCap = defaultSampleCap
	}
	return &Classifier{chain: chain, enhanced: enhanced, sampleCap: sampleCap, fundingOf: fundingOf}
}

// ClassifyAll sorts candidates by descending peak liquidity, classifies
// the first sampleCap as natural/likely_rug/distributed_rug/unverified
// via gathered evidence, and defaults the rest to natural.
func (c *Classifier) ClassifyAll(ctx context.Context, candidates []Candidate) ([]models.DeathClassification, error) {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PeakLiquidityUSD > sorted[j].PeakLiquidityUSD
	})

	sampled := sorted
	overflow := sorted[:0]
	if len(sorted) > c.sampleCap {
		sampled = sorted[:c.sampleCap]
		overflow = sorted[c.sampleCap:]
	}

	results := make([]models.DeathClassification, len(sampled))
	sem := semaphore.NewWeighted(chunkConcurrency)
	errCh := make(chan error, len(sampled))

	for i, cand := range sampled {
		i, cand := i, cand
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		go func() {
			defer sem.Release(1)
			evidence, err := c.gatherEvidence(ctx, cand)
			if err != nil {
				errCh <- err
				return
			}
			results[i] = models.DeathClassification{
				Mint:     cand.Mint,
				Type:     classify(evidence),
				Evidence: evidence,
			}
			errCh <- nil
		}()
	}
	for range sampled {
		if err := <-errCh; err != nil {
			return nil, err
		}
	}

	for _, cand := range overflow {
		results = append(results, models.DeathClassification{
			Mint: cand.Mint,
			Type: models.DeathNatural,
		})
	}
	return results, nil
}

// classify applies the ordered, first-match rule set.
func classify(e models.DeathEvidence) models.DeathType {
	switch {
	case e.InitialTransferIsAssociated && e.DeployerSold:
		return models.DeathDistributedRug
	case e.DeployerSold && e.LifespanHours < quickDumpLifespanHours:
		return models.DeathLikelyRug
	case e.HadRealBuyers && e.DeployerSold:
		return models.DeathLikelyRug
	case !e.HadRealBuyers && (!e.HoldingsKnown || e.DeployerHoldingsPct > 0):
		return models.DeathNatural
	default:
		return models.DeathUnverified
	}
}

func (c *Classifier) gatherEvidence(ctx context.Context, cand Candidate) (models.DeathEvidence, error) {
	evidence := models.DeathEvidence{
		HadRealBuyers: cand.PeakLiquidityUSD >= realBuyerLiquidityUSD,
	}

	lifespanHours := time.Since(cand.CreatedAt).Hours()
	if lifespanHours > maxLifespanHours {
		lifespanHours = maxLifespanHours
	}
	if lifespanHours < 0 {
		lifespanHours = 0
	}
	evidence.LifespanHours = lifespanHours

	holdingsPct, known, err := c.deployerHoldingsPct(ctx, cand)
	if err != nil {
		return evidence, err
	}
	evidence.HoldingsKnown = known
	evidence.DeployerHoldingsPct = holdingsPct
	if known {
		evidence.DeployerSold = holdingsPct < 0.01
	}

	to, isDEX, err := c.initialTransfer(ctx, cand)
	if err != nil {
		return evidence, err
	}
	evidence.InitialTransferTo = to
	evidence.InitialTransferIsDEX = isDEX
	evidence.InitialTransferIsAssociated = c.shareFundingSource(ctx, to, cand.Deployer)

	return evidence, nil
}

// shareFundingSource reports whether dest and deployer trace back to
// the same funding wallet. Either lookup failing, or no lookup being
// configured, yields false rather than propagating an error — this
// signal degrades gracefully per spec.md §4.8's nullability rule.
func (c *Classifier) shareFundingSource(ctx context.Context, dest, deployer string) bool {
	if c.fundingOf == nil || dest == "" {
		return false
	}
	destSource, destOK, err := c.fundingOf(ctx, dest)
	if err != nil || !destOK {
		return false
	}
	deployerSource, deployerOK, err := c.fundingOf(ctx, deployer)
	if err != nil || !deployerOK {
		return false
	}
	return destSource == deployerSource
}

// deployerHoldingsPct sums the deployer's ATA balances for the mint
// over total supply. A zero supply or a lookup failure yields unknown
// (never a zero value that could be misread as "fully sold").
func (c *Classifier) deployerHoldingsPct(ctx context.Context, cand Candidate) (pct float64, known bool, err error) {
	mintInfo, err := c.chain.GetMintAccountInfo(ctx, cand.Mint)
	if err != nil || mintInfo == nil || mintInfo.Supply == 0 {
		return 0, false, nil
	}
	balances, err := c.chain.GetTokenAccountsByOwner(ctx, cand.Deployer, cand.Mint)
	if err != nil {
		return 0, false, nil
	}
	var held uint64
	for _, b := range balances {
		held += b.Amount
	}
	return float64(held) / float64(mintInfo.Supply) * 100, true, nil
}

// initialTransfer inspects the deployer's enhanced tx history for the
// first outbound transfer of the mint within initialTransferWindow of
// creation.
func (c *Classifier) initialTransfer(ctx context.Context, cand Candidate) (to string, isDEX bool, err error) {
	txs, err := c.enhanced.Transactions(ctx, cand.Deployer, 50, upstream.OldestFirst, "")
	if err != nil {
		return "", false, nil
	}
	deadline := cand.CreatedAt.Add(initialTransferWindow)
	for _, tx := range txs {
		ts := time.Unix(tx.Timestamp, 0)
		if ts.Before(cand.CreatedAt) || ts.After(deadline) {
			continue
		}
		for _, t := range tx.TokenTransfers {
			if t.Mint != cand.Mint || t.FromUser != cand.Deployer {
				continue
			}
			dest := t.ToUser
			dex := tx.HasProgram(solchain.PumpFunProgram) || destInAccountList(tx, dest)
			return dest, dex, nil
		}
	}
	return "", false, nil
}

func destInAccountList(tx models.EnhancedTx, dest string) bool {
	for _, ad := range tx.AccountData {
		if ad.Account == dest {
			return true
		}
	}
	return false
}
