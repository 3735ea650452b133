// Package risk computes per-mint on-chain and market risk signals:
// authority flags, holder concentration, bundled-launch detection, and
// LP-lock status. Every field degrades to nil on failure rather than
// propagating an error, per spec.md §4.8's nullability rule.
//
// Grounded on internal/heuristics/script_analysis.go's pattern of
// decoding structured on-chain data into a nullable-field signals
// struct, and internal/heuristics/dust_analysis.go's window-based
// detection logic, adapted from UTXO dust timing to a ±3-slot
// bundled-buyer window.
package risk

import (
	"context"
	"strings"

	"github.com/Jpatching/daybreakscan/internal/cache"
	"github.com/Jpatching/daybreakscan/internal/upstream"
	"github.com/Jpatching/daybreakscan/pkg/models"
)

const bundleSlotWindow = 3
const bundleMinWallets = 3

// Assessor computes RiskSignals for a single mint.
type Assessor struct {
	chain         upstream.ChainRPC
	enhanced      upstream.EnhancedHistory
	rugReport     upstream.RugReportOracle
	mintAuthCache *cache.Cache
	rugCache      *cache.Cache
}

// New builds an Assessor over the given upstream clients and caches.
func New(chain upstream.ChainRPC, enhanced upstream.EnhancedHistory, rugReport upstream.RugReportOracle, mintAuthCache, rugCache *cache.Cache) *Assessor {
	return &Assessor{chain: chain, enhanced: enhanced, rugReport: rugReport, mintAuthCache: mintAuthCache, rugCache: rugCache}
}

// Assess computes every risk signal for mint. creationSig and deployer
// may be empty, in which case bundle_detected stays nil.
func (a *Assessor) Assess(ctx context.Context, mint, deployer, creationSig string) models.RiskSignals {
	var signals models.RiskSignals

	mintInfo := a.mintAccountInfo(ctx, mint)
	if mintInfo != nil {
		if mintInfo.MintAuthority != "" {
			signals.MintAuthority = strPtr(mintInfo.MintAuthority)
		}
		if mintInfo.FreezeAuthority != "" {
			signals.FreezeAuthority = strPtr(mintInfo.FreezeAuthority)
		}
		if pct, ok := a.deployerHoldingsPct(ctx, deployer, mint, mintInfo); ok {
			signals.DeployerHoldingsPct = floatPtr(pct)
		}
	}

	if top1, top5, ok := a.holderConcentration(ctx, mint); ok {
		signals.TopHolderPct = floatPtr(top1)
		signals.Top5Pct = floatPtr(top5)
	}

	if creationSig != "" && deployer != "" {
		if detected, ok := a.bundleDetected(ctx, mint, deployer); ok {
			signals.BundleDetected = boolPtr(detected)
		}
	}

	if locked, pct, ok := a.lpLockStatus(ctx, mint); ok {
		signals.LPLocked = boolPtr(locked)
		if pct != nil {
			signals.LPLockPct = pct
		}
	}

	return signals
}

func (a *Assessor) mintAccountInfo(ctx context.Context, mint string) *upstream.MintAccountInfo {
	if v, ok := a.mintAuthCache.Get(mint); ok {
		if info, ok := v.(*upstream.MintAccountInfo); ok {
			return info
		}
	}
	info, err := a.chain.GetMintAccountInfo(ctx, mint)
	if err != nil || info == nil {
		return nil
	}
	a.mintAuthCache.Set(mint, info)
	return info
}

func (a *Assessor) deployerHoldingsPct(ctx context.Context, deployer, mint string, mintInfo *upstream.MintAccountInfo) (float64, bool) {
	if deployer == "" || mintInfo == nil || mintInfo.Supply == 0 {
		return 0, false
	}
	balances, err := a.chain.GetTokenAccountsByOwner(ctx, deployer, mint)
	if err != nil {
		return 0, false
	}
	var held uint64
	for _, b := range balances {
		held += b.Amount
	}
	return float64(held) / float64(mintInfo.Supply) * 100, true
}

func (a *Assessor) holderConcentration(ctx context.Context, mint string) (top1, top5 float64, ok bool) {
	accounts, err := a.chain.GetTokenLargestAccounts(ctx, mint)
	if err != nil || len(accounts) == 0 {
		return 0, 0, false
	}
	var total uint64
	for _, acc := range accounts {
		total += acc.Amount
	}
	if total == 0 {
		return 0, 0, false
	}
	top1 = float64(accounts[0].Amount) / float64(total) * 100

	limit := len(accounts)
	if limit > 5 {
		limit = 5
	}
	var top5Sum uint64
	for _, acc := range accounts[:limit] {
		top5Sum += acc.Amount
	}
	top5 = float64(top5Sum) / float64(total) * 100
	return top1, top5, true
}

// bundleDetected fetches the first 20 enhanced txs of the mint
// ascending, resolves the creation slot, and counts unique
// non-deployer wallets that receive the mint or pay fees on a
// mint-receipt tx within bundleSlotWindow slots of creation.
func (a *Assessor) bundleDetected(ctx context.Context, mint, deployer string) (bool, bool) {
	txs, err := a.enhanced.Transactions(ctx, mint, 20, upstream.OldestFirst, "")
	if err != nil || len(txs) == 0 {
		return false, false
	}

	creationSlot := txs[0].Slot
	wallets := make(map[string]bool)
	for _, tx := range txs {
		if tx.Slot < creationSlot-bundleSlotWindow || tx.Slot > creationSlot+bundleSlotWindow {
			continue
		}
		for _, t := range tx.TokenTransfers {
			if t.Mint != mint || t.ToUser == "" || t.ToUser == deployer {
				continue
			}
			wallets[t.ToUser] = true
		}
		if tx.FeePayer != "" && tx.FeePayer != deployer {
			for _, t := range tx.TokenTransfers {
				if t.Mint == mint {
					wallets[tx.FeePayer] = true
				}
			}
		}
	}
	return len(wallets) >= bundleMinWallets, true
}

func (a *Assessor) lpLockStatus(ctx context.Context, mint string) (locked bool, pct *float64, ok bool) {
	if v, cached := a.rugCache.Get(mint); cached {
		if report, ok := v.(*upstream.RugReport); ok {
			return extractLPLock(report)
		}
	}
	report, err := a.rugReport.Report(ctx, mint)
	if err != nil || report == nil {
		return false, nil, false
	}
	a.rugCache.Set(mint, report)
	return extractLPLock(report)
}

func extractLPLock(report *upstream.RugReport) (locked bool, pct *float64, ok bool) {
	for _, m := range report.Markets {
		if m.HasLPInfo {
			p := m.LPLockedPct
			return p > 0, &p, true
		}
	}
	for _, r := range report.Risks {
		name := strings.ToLower(r.Name)
		if strings.Contains(name, "lp") && strings.Contains(name, "lock") && r.Level == "good" {
			return true, nil, true
		}
	}
	return false, nil, false
}

func strPtr(s string) *string    { return &s }
func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }
