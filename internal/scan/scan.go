// Package scan coordinates the full scan_deployer/scan_wallet pipeline:
// deployer discovery, then token enumeration and funding resolution in
// parallel, then liveness classification, then death/risk/cluster
// analysis in parallel, then reputation scoring.
//
// Grounded on cmd/engine/main.go's top-level dependency wiring and
// internal/scanner/block_scanner.go's context-cancellation idiom,
// generalized from one long-running background scan to one bounded
// per-request pipeline using golang.org/x/sync/errgroup.
package scan

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Jpatching/daybreakscan/internal/death"
	"github.com/Jpatching/daybreakscan/internal/discovery"
	"github.com/Jpatching/daybreakscan/internal/enumeration"
	"github.com/Jpatching/daybreakscan/internal/funding"
	"github.com/Jpatching/daybreakscan/internal/liveness"
	"github.com/Jpatching/daybreakscan/internal/reputation"
	"github.com/Jpatching/daybreakscan/internal/risk"
	"github.com/Jpatching/daybreakscan/internal/scanerr"
	"github.com/Jpatching/daybreakscan/internal/upstream"
	"github.com/Jpatching/daybreakscan/pkg/models"
)

const (
	scanDeadline = 60 * time.Second

	// riskAssessConcurrency bounds the per-mint risk fan-out the same
	// way internal/funding bounds its deployer-cluster check: a fixed
	// semaphore weight, never one goroutine per mint.
	riskAssessConcurrency = 25

	// defaultBurnerWindow is used when New is given a zero burnerWindow.
	defaultBurnerWindow = time.Hour
)

// ScanStore persists completed scans and seeds re-scans from the
// deployer's previously discovered token set. Satisfied by
// *internal/db.PostgresStore; nil disables persistence.
type ScanStore interface {
	SaveScanResult(ctx context.Context, scan models.Scan) error
	CachedTokens(ctx context.Context, deployer string) ([]string, error)
}

// AlertFunc is notified once a scan completes, in the idiom of
// internal/api.BroadcastCoinJoinAlert's alertFunc callback.
type AlertFunc func(models.Scan)

// Coordinator wires every pipeline stage together.
type Coordinator struct {
	discoverer *discovery.Discoverer
	enumerator *enumeration.Enumerator
	liveness   *liveness.Classifier
	death      *death.Classifier
	funding    *funding.Resolver
	risk       *risk.Assessor
	price      upstream.PriceOracle
	store      ScanStore
	alertFunc  AlertFunc
	burnerWindow time.Duration
}

// New builds a Coordinator over the given per-stage collaborators.
// price, store, and alertFunc may all be nil: price enrichment and
// persistence/alerting are best-effort extras, never load-bearing for
// the scan itself. burnerWindow <= 0 uses the default of 1h, mirroring
// internal/quota.New's zero-means-default idiom.
func New(
	discoverer *discovery.Discoverer,
	enumerator *enumeration.Enumerator,
	livenessClassifier *liveness.Classifier,
	deathClassifier *death.Classifier,
	fundingResolver *funding.Resolver,
	riskAssessor *risk.Assessor,
	priceOracle upstream.PriceOracle,
	store ScanStore,
	alertFunc AlertFunc,
	burnerWindow time.Duration,
) *Coordinator {
	if burnerWindow <= 0 {
		burnerWindow = defaultBurnerWindow
	}
	return &Coordinator{
		discoverer:   discoverer,
		enumerator:   enumerator,
		liveness:     livenessClassifier,
		death:        deathClassifier,
		funding:      fundingResolver,
		risk:         riskAssessor,
		price:        priceOracle,
		store:        store,
		alertFunc:    alertFunc,
		burnerWindow: burnerWindow,
	}
}

// ScanToken runs the full pipeline starting from a mint address:
// discover its deployer, then delegate to ScanDeployer.
func (c *Coordinator) ScanToken(ctx context.Context, mint string) (*models.Scan, error) {
	ctx, cancel := context.WithTimeout(ctx, scanDeadline)
	defer cancel()

	dep, err := c.discoverer.FindDeployer(ctx, mint)
	if err != nil {
		return nil, err
	}
	if dep == nil {
		return nil, scanerr.New(scanerr.DeployerNotFound, "no deployer found for mint %s", mint)
	}
	return c.runPipeline(ctx, mint, *dep)
}

// ScanDeployer runs the full pipeline for an already-known deployer
// wallet, re-deriving its creation tx from its first discovered token.
func (c *Coordinator) ScanDeployer(ctx context.Context, wallet string) (*models.Scan, error) {
	ctx, cancel := context.WithTimeout(ctx, scanDeadline)
	defer cancel()

	mints, _, err := c.enumerator.TokensOf(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if len(mints) == 0 {
		return nil, scanerr.New(scanerr.DeployerNotFound, "deployer %s has no discoverable tokens", wallet)
	}

	dep, err := c.discoverer.FindDeployer(ctx, mints[0])
	if err != nil {
		return nil, err
	}
	if dep == nil {
		dep = &models.Deployer{Wallet: wallet, Method: models.DetectionEnhanced}
	}
	return c.runPipelineWithTokens(ctx, mints[0], *dep, mints)
}

func (c *Coordinator) runPipeline(ctx context.Context, token string, dep models.Deployer) (*models.Scan, error) {
	mints, limitReached, err := c.enumerator.TokensOf(ctx, dep.Wallet)
	if err != nil {
		return nil, err
	}
	if limitReached {
		log.Printf("scan: enumeration hit its page cap for deployer %s; token set may be incomplete", dep.Wallet)
	}
	if len(mints) == 0 {
		mints = []string{token}
	}
	return c.runPipelineWithTokens(ctx, token, dep, mints)
}

func (c *Coordinator) runPipelineWithTokens(ctx context.Context, token string, dep models.Deployer, mints []string) (*models.Scan, error) {
	var livenessResult map[string]models.TokenStatus
	var fundingResult *models.Funding

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := c.liveness.BulkLiveness(gctx, mints)
		if err != nil {
			return err
		}
		livenessResult = res
		return nil
	})
	g.Go(func() error {
		f, _, err := c.funding.FundingSource(gctx, dep.Wallet)
		if err != nil {
			return err
		}
		fundingResult = f
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tokens := make([]models.ScannedToken, 0, len(mints))
	var deathCandidates []death.Candidate
	verifiedCount, unverifiedCount := 0, 0

	for _, mint := range mints {
		status, known := livenessResult[mint]
		scanned := models.ScannedToken{Mint: models.Mint{Address: mint}}
		if known {
			statusCopy := status
			scanned.Status = &statusCopy
			verifiedCount++
			if status.Liveness == models.LivenessDead {
				deathCandidates = append(deathCandidates, death.Candidate{
					Mint:             mint,
					Deployer:         dep.Wallet,
					CreatedAt:        status.PairCreatedAt,
					PeakLiquidityUSD: status.LiquidityUSD,
				})
			}
		} else {
			unverifiedCount++
		}
		tokens = append(tokens, scanned)
	}

	c.backfillPrices(ctx, tokens)

	var deathResults []models.DeathClassification
	var cluster *models.Cluster

	g2, gctx2 := errgroup.WithContext(ctx)
	if len(deathCandidates) > 0 {
		g2.Go(func() error {
			res, err := c.death.ClassifyAll(gctx2, deathCandidates)
			if err != nil {
				return err
			}
			deathResults = res
			return nil
		})
	}
	if fundingResult != nil {
		g2.Go(func() error {
			cl, err := c.funding.AnalyzeCluster(gctx2, fundingResult.SourceWallet, dep.Wallet)
			if err != nil {
				return err
			}
			cluster = cl
			return nil
		})
	}
	// riskResults is index-aligned with mints (and therefore with
	// tokens, built one-for-one from the same slice above), so each
	// goroutine owns a disjoint slot and no lock is needed.
	riskResults := make([]models.RiskSignals, len(mints))
	riskSem := semaphore.NewWeighted(riskAssessConcurrency)
	for i, mint := range mints {
		i, mint := i, mint
		if err := riskSem.Acquire(gctx2, 1); err != nil {
			return nil, err
		}
		g2.Go(func() error {
			defer riskSem.Release(1)
			riskResults[i] = c.risk.Assess(gctx2, mint, dep.Wallet, dep.CreationTxID)
			return nil
		})
	}
	if err := g2.Wait(); err != nil {
		return nil, err
	}

	deathByMint := make(map[string]models.DeathClassification, len(deathResults))
	for _, d := range deathResults {
		deathByMint[d.Mint] = d
	}
	for i := range tokens {
		mint := tokens[i].Mint.Address
		if d, ok := deathByMint[mint]; ok {
			dCopy := d
			tokens[i].Death = &dCopy
		}
		rCopy := riskResults[i]
		tokens[i].Risks = &rCopy
	}

	deathCount, bundleCount, mintAuthActive, freezeAuthActive := 0, 0, 0, 0
	for _, t := range tokens {
		if t.Death != nil && t.Death.Type != models.DeathNatural && t.Death.Type != models.DeathUnverified {
			deathCount++
		}
		if t.Risks != nil {
			if t.Risks.BundleDetected != nil && *t.Risks.BundleDetected {
				bundleCount++
			}
			if t.Risks.MintAuthority != nil && *t.Risks.MintAuthority != "" {
				mintAuthActive++
			}
			if t.Risks.FreezeAuthority != nil && *t.Risks.FreezeAuthority != "" {
				freezeAuthActive++
			}
		}
	}

	n := len(tokens)
	deathRate := rateOf(deathCount, n)
	lifespanDays := avgLifespanDays(tokens)
	clusterSize := 0
	fromCEX := false
	if cluster != nil {
		clusterSize = len(cluster.FundedWallets)
		fromCEX = cluster.FromCEX
	}

	topHolderMax, deployerHoldingsMax := maxRiskFractions(tokens)

	rep := reputation.Score(reputation.Inputs{
		DeathRate:                 deathRate,
		RugRate:                   deathRate,
		TokenCount:                n,
		VerifiedCount:             verifiedCount,
		UnverifiedCount:           unverifiedCount,
		AvgLifespanDays:           lifespanDays,
		ClusterSize:               clusterSize,
		MintAuthorityActiveFrac:   rateOf(mintAuthActive, n),
		FreezeAuthorityActiveFrac: rateOf(freezeAuthActive, n),
		TopHolderPctMax:           topHolderMax,
		DeployerHoldingsPctMax:    deployerHoldingsMax,
		DeployVelocityPerDay:      float64(n) / maxF(1, lifespanDays),
		BundleDetectedAny:         bundleCount > 0,
		DeployerIsBurner:          c.isBurner(fundingResult, dep),
	})

	scanResult := models.Scan{
		Token:      token,
		Deployer:   dep,
		Tokens:     tokens,
		Funding:    fundingResult,
		Cluster:    cluster,
		Reputation: rep,
		Confidence: models.ScanConfidence{
			VerifiedCount:   verifiedCount,
			UnverifiedCount: unverifiedCount,
			ClusterChecked:  cluster != nil,
			Method:          dep.Method,
		},
		ScannedAt: time.Now(),
	}

	if c.store != nil {
		if err := c.store.SaveScanResult(ctx, scanResult); err != nil {
			log.Printf("scan: failed to persist result for deployer %s: %v", dep.Wallet, err)
		}
	}
	if c.alertFunc != nil {
		c.alertFunc(scanResult)
	}
	return &scanResult, nil
}

// backfillPrices fills in PriceUSD for tokens the DEX index carried no
// pair for (unverified liveness, or no status at all), using a
// coarser price oracle as a fallback. Best-effort: errors are logged,
// never surfaced, since price is enrichment, not a liveness input.
func (c *Coordinator) backfillPrices(ctx context.Context, tokens []models.ScannedToken) {
	if c.price == nil {
		return
	}
	var missing []string
	for _, t := range tokens {
		if t.Status == nil || t.Status.PriceUSD == 0 {
			missing = append(missing, t.Mint.Address)
		}
	}
	if len(missing) == 0 {
		return
	}
	prices, err := c.price.Prices(ctx, missing)
	if err != nil {
		log.Printf("scan: price oracle backfill failed: %v", err)
		return
	}
	for i := range tokens {
		price, ok := prices[tokens[i].Mint.Address]
		if !ok || price == 0 {
			continue
		}
		if tokens[i].Status == nil {
			tokens[i].Status = &models.TokenStatus{Mint: tokens[i].Mint.Address, Liveness: models.LivenessUnverified}
		}
		tokens[i].Status.PriceUSD = price
	}
}

// isBurner flags a deployer as a burner wallet when its funding arrived
// within burnerWindow of its first deploy — a wallet stood up, funded,
// and spent in one short-lived window rather than an established one.
func (c *Coordinator) isBurner(fundingResult *models.Funding, dep models.Deployer) bool {
	if fundingResult == nil || fundingResult.Timestamp.IsZero() || dep.FirstSeen.IsZero() {
		return false
	}
	delta := dep.FirstSeen.Sub(fundingResult.Timestamp)
	if delta < 0 {
		delta = -delta
	}
	return delta <= c.burnerWindow
}

func rateOf(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

func avgLifespanDays(tokens []models.ScannedToken) float64 {
	var total float64
	var count int
	for _, t := range tokens {
		if t.Status == nil || t.Status.PairCreatedAt.IsZero() {
			continue
		}
		total += time.Since(t.Status.PairCreatedAt).Hours() / 24
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func maxRiskFractions(tokens []models.ScannedToken) (topHolderMax, deployerHoldingsMax float64) {
	for _, t := range tokens {
		if t.Risks == nil {
			continue
		}
		if t.Risks.TopHolderPct != nil && *t.Risks.TopHolderPct > topHolderMax {
			topHolderMax = *t.Risks.TopHolderPct
		}
		if t.Risks.DeployerHoldingsPct != nil && *t.Risks.DeployerHoldingsPct > deployerHoldingsMax {
			deployerHoldingsMax = *t.Risks.DeployerHoldingsPct
		}
	}
	return
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// FundingOf adapts a Resolver into death.FundingSourceFunc, the shape
// death.Classifier needs without importing this package's sibling
// internal/funding directly.
func FundingOf(resolver *funding.Resolver) death.FundingSourceFunc {
	return func(ctx context.Context, wallet string) (string, bool, error) {
		f, ok, err := resolver.FundingSource(ctx, wallet)
		if err != nil || !ok || f == nil {
			return "", false, err
		}
		return f.SourceWallet, true, nil
	}
}
