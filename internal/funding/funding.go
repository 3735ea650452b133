// Package funding resolves a wallet's funding source and analyzes the
// cluster of other wallets that source has funded.
//
// Grounded on internal/heuristics/fund_tracer.go's hop-wise funder
// tracing and internal/heuristics/exchange_detection.go's static
// known-address-table lookup, adapted to a CEX deposit-wallet table
// for Solana.
package funding

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Jpatching/daybreakscan/internal/solchain"
	"github.com/Jpatching/daybreakscan/internal/upstream"
	"github.com/Jpatching/daybreakscan/pkg/models"
)

const (
	fundingSourceHistorySample = 100
	clusterOutboundPages       = 5
	clusterOutboundPageSize    = 100
	clusterDustLamports        = 10_000_000 // 0.01 SOL
	clusterMaxDestinations     = 25
	deployerCheckSampleSize    = 20
	deployerCheckConcurrency   = 25
)

// Known CEX hot/deposit wallets. A representative set; production
// deployments would back this with a maintained address-tagging feed.
var knownCEXWallets = map[string]string{
	"5tzFkiKscXHK5ZXCGbXZxdw7gTjjD1mBwuoFbhUvuAi9": "Binance",
	"2AQdpHJ2JpcEgPiATUXjQxA8QmafFegfQwSLWSprPicm": "Coinbase",
	"FWznbcNXWQuHTawe9RxvQ2LdCENssh12dsznf4RiouN5": "Kraken",
	"H8sMJSCQxfKiFTCfDR3DUMLPwcRbM61LGFJ8N4dK3WjS": "OKX",
}

// Resolver finds funding sources and analyzes wallet clusters.
type Resolver struct {
	enhanced upstream.EnhancedHistory
	chain    upstream.ChainRPC
}

// New builds a Resolver over the given upstream clients.
func New(enhanced upstream.EnhancedHistory, chain upstream.ChainRPC) *Resolver {
	return &Resolver{enhanced: enhanced, chain: chain}
}

// FundingSource resolves the earliest incoming native transfer into
// wallet with a non-self sender; if none is found, falls back to the
// first non-self fee payer observed in its history. ok is false only
// when neither signal can be found.
func (r *Resolver) FundingSource(ctx context.Context, wallet string) (*models.Funding, bool, error) {
	funding, ok, err := r.fundingFromEnhanced(ctx, wallet)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return funding, true, nil
	}
	return r.fundingFromFallback(ctx, wallet)
}

func (r *Resolver) fundingFromEnhanced(ctx context.Context, wallet string) (*models.Funding, bool, error) {
	txs, err := r.enhanced.Transactions(ctx, wallet, fundingSourceHistorySample, upstream.OldestFirst, "")
	if err != nil {
		return nil, false, err
	}

	var earliestTransfer *models.Funding
	var earliestFeePayer *models.Funding

	for _, tx := range txs {
		ts := time.Unix(tx.Timestamp, 0)
		for _, nt := range tx.NativeTransfers {
			if nt.ToUser != wallet || nt.FromUser == wallet || nt.FromUser == "" {
				continue
			}
			if earliestTransfer == nil {
				earliestTransfer = fundingFor(nt.FromUser, ts)
			}
		}
		if tx.FeePayer != "" && tx.FeePayer != wallet && earliestFeePayer == nil {
			earliestFeePayer = fundingFor(tx.FeePayer, ts)
		}
	}

	if earliestTransfer != nil {
		return earliestTransfer, true, nil
	}
	if earliestFeePayer != nil {
		return earliestFeePayer, true, nil
	}
	return nil, false, nil
}

// fundingFromFallback walks basic-RPC signatures back to the oldest
// transaction involving wallet and uses its fee payer when it is not
// wallet itself.
func (r *Resolver) fundingFromFallback(ctx context.Context, wallet string) (*models.Funding, bool, error) {
	sigs, err := r.chain.GetSignaturesForAddress(ctx, wallet, 1000, "")
	if err != nil || len(sigs) == 0 {
		return nil, false, nil
	}
	oldest := sigs[len(sigs)-1]
	tx, err := r.chain.GetTransaction(ctx, oldest)
	if err != nil || tx == nil {
		return nil, false, nil
	}
	if tx.FeePayer == "" || tx.FeePayer == wallet {
		return nil, false, nil
	}
	return fundingFor(tx.FeePayer, time.Unix(tx.BlockTime, 0)), true, nil
}

func fundingFor(wallet string, ts time.Time) *models.Funding {
	name, isCEX := knownCEXWallets[wallet]
	return &models.Funding{
		SourceWallet: wallet,
		Timestamp:    ts,
		FromCEX:      isCEX,
		CEXName:      name,
	}
}

// AnalyzeCluster paginates funder's outbound native transfers, samples
// up to clusterMaxDestinations recipients with a meaningful transfer
// amount, and checks each in parallel for deployer activity.
func (r *Resolver) AnalyzeCluster(ctx context.Context, funder, excludeDeployer string) (*models.Cluster, error) {
	name, isCEX := knownCEXWallets[funder]
	cluster := &models.Cluster{FromCEX: isCEX, CEXName: name}

	destinations, err := r.collectOutboundDestinations(ctx, funder, excludeDeployer)
	if err != nil {
		return nil, err
	}
	cluster.FundedWallets = destinations

	deployerCount, err := r.countDeployers(ctx, destinations)
	if err != nil {
		return nil, err
	}
	cluster.DeployerCount = deployerCount
	return cluster, nil
}

func (r *Resolver) collectOutboundDestinations(ctx context.Context, funder, excludeDeployer string) ([]string, error) {
	seen := make(map[string]bool)
	var destinations []string
	before := ""

	for page := 0; page < clusterOutboundPages && len(destinations) < clusterMaxDestinations; page++ {
		txs, err := r.enhanced.Transactions(ctx, funder, clusterOutboundPageSize, upstream.NewestFirst, before)
		if err != nil {
			return nil, err
		}
		if len(txs) == 0 {
			break
		}
		for _, tx := range txs {
			for _, nt := range tx.NativeTransfers {
				if nt.FromUser != funder || nt.Amount <= clusterDustLamports {
					continue
				}
				dest := nt.ToUser
				if dest == "" || dest == funder || dest == excludeDeployer || dest == solchain.NativeMint {
					continue
				}
				if !seen[dest] {
					seen[dest] = true
					destinations = append(destinations, dest)
					if len(destinations) >= clusterMaxDestinations {
						break
					}
				}
			}
			if len(destinations) >= clusterMaxDestinations {
				break
			}
		}
		before = txs[len(txs)-1].Signature
		if len(txs) < clusterOutboundPageSize {
			break
		}
	}
	return destinations, nil
}

func (r *Resolver) countDeployers(ctx context.Context, destinations []string) (int, error) {
	if len(destinations) == 0 {
		return 0, nil
	}

	count := 0
	countCh := make(chan bool, len(destinations))
	sem := semaphore.NewWeighted(deployerCheckConcurrency)

	for _, dest := range destinations {
		dest := dest
		if err := sem.Acquire(ctx, 1); err != nil {
			return 0, err
		}
		go func() {
			defer sem.Release(1)
			countCh <- r.isDeployer(ctx, dest)
		}()
	}
	for range destinations {
		if <-countCh {
			count++
		}
	}
	return count, nil
}

func (r *Resolver) isDeployer(ctx context.Context, wallet string) bool {
	txs, err := r.enhanced.Transactions(ctx, wallet, deployerCheckSampleSize, upstream.NewestFirst, "")
	if err != nil {
		return false
	}
	for _, tx := range txs {
		if tx.FeePayer != wallet {
			continue
		}
		if tx.Type == "CREATE" || tx.Type == "TOKEN_MINT" {
			return true
		}
	}
	return false
}
