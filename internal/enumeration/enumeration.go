// Package enumeration implements token enumeration: walking a
// deployer's transaction history to find every distinct mint it has
// launched.
//
// Grounded on internal/scanner/block_scanner.go's pagination idiom and
// internal/api/routes.go's maxScanBlocks-style guard constant.
package enumeration

import (
	"context"

	"github.com/Jpatching/daybreakscan/internal/solchain"
	"github.com/Jpatching/daybreakscan/internal/upstream"
	"github.com/Jpatching/daybreakscan/pkg/models"
)

const (
	enhancedPageSize  = 100
	enhancedMaxPages  = 50
	enhancedTxCap     = enhancedPageSize * enhancedMaxPages // 5,000
	fallbackSigCap    = 5000
	fallbackBatchSize = 10
	fallbackParseCap  = 300
	initializeMint2   = "initializeMint2"
)

// Enumerator walks a deployer's history to enumerate launched mints.
type Enumerator struct {
	enhanced upstream.EnhancedHistory
	chain    upstream.ChainRPC
}

// New builds an Enumerator over the given upstream clients.
func New(enhanced upstream.EnhancedHistory, chain upstream.ChainRPC) *Enumerator {
	return &Enumerator{enhanced: enhanced, chain: chain}
}

// TokensOf returns every distinct non-native mint the deployer has
// launched, and whether the enhanced scan hit its page cap before
// exhausting history (limitReached).
func (e *Enumerator) TokensOf(ctx context.Context, deployer string) (mints []string, limitReached bool, err error) {
	mints, limitReached, err = e.enumerateEnhanced(ctx, deployer)
	if err != nil {
		return nil, false, err
	}
	if len(mints) > 0 {
		return mints, limitReached, nil
	}
	// Enhanced yielded nothing; fall back to a basic RPC signature scan.
	mints, err = e.enumerateFallback(ctx, deployer)
	return mints, false, err
}

// enumerateEnhanced paginates newest-first up to the 5,000-tx cap,
// classifying each tx as a creation event and extracting its mints.
// Pagination is inherently serial (spec.md §5), so pages are walked
// one at a time.
func (e *Enumerator) enumerateEnhanced(ctx context.Context, deployer string) ([]string, bool, error) {
	seen := make(map[string]bool)
	var mints []string
	before := ""
	total := 0

	for page := 0; page < enhancedMaxPages; page++ {
		txs, err := e.enhanced.Transactions(ctx, deployer, enhancedPageSize, upstream.NewestFirst, before)
		if err != nil {
			return nil, false, err
		}
		if len(txs) == 0 {
			break
		}
		for _, tx := range txs {
			total++
			if tx.FeePayer != deployer {
				continue
			}
			if !isCreationEvent(tx) {
				continue
			}
			for _, mint := range tx.DistinctNonNativeMints(solchain.NativeMint) {
				if !seen[mint] {
					seen[mint] = true
					mints = append(mints, mint)
				}
			}
		}
		before = txs[len(txs)-1].Signature
		if len(txs) < enhancedPageSize {
			break
		}
		if total >= enhancedTxCap {
			return mints, true, nil
		}
	}
	return mints, false, nil
}

func isCreationEvent(tx models.EnhancedTx) bool {
	if (tx.Type == "CREATE" || tx.Type == "TOKEN_MINT") && tx.Source == "PUMP_FUN" {
		return true
	}
	return tx.HasProgram(solchain.PumpFunProgram) && tx.FindInnerInstructionType(initializeMint2)
}

// enumerateFallback walks up to 5,000 basic-RPC signatures, parses the
// first 300 successes in batches of 10, and extracts mints from
// initializeMint2 instructions in transactions touching Pump.fun.
func (e *Enumerator) enumerateFallback(ctx context.Context, deployer string) ([]string, error) {
	sigs, err := e.collectSignatures(ctx, deployer)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var mints []string
	parsed := 0

	for i := 0; i < len(sigs) && parsed < fallbackParseCap; i += fallbackBatchSize {
		end := i + fallbackBatchSize
		if end > len(sigs) {
			end = len(sigs)
		}
		for _, sig := range sigs[i:end] {
			if parsed >= fallbackParseCap {
				break
			}
			tx, err := e.chain.GetTransaction(ctx, sig)
			if err != nil || tx == nil || !tx.Success {
				continue // success-only per spec.md §4.4
			}
			parsed++

			if !txTouchesPumpFun(tx) {
				continue
			}
			for _, mint := range mintsFromInitializeMint2(tx) {
				if !seen[mint] {
					seen[mint] = true
					mints = append(mints, mint)
				}
			}
		}
	}
	return mints, nil
}

func mintsFromInitializeMint2(tx *models.ParsedTx) []string {
	var mints []string
	for _, ix := range tx.Instructions {
		if ix.Parsed != nil && ix.Parsed.Type == initializeMint2 {
			if mint := ix.Parsed.Mint(); mint != "" && mint != solchain.NativeMint {
				mints = append(mints, mint)
			}
		}
		for _, inner := range ix.InnerInstructions {
			if inner.Parsed != nil && inner.Parsed.Type == initializeMint2 {
				if mint := inner.Parsed.Mint(); mint != "" && mint != solchain.NativeMint {
					mints = append(mints, mint)
				}
			}
		}
	}
	return mints
}

func txTouchesPumpFun(tx *models.ParsedTx) bool {
	for _, ix := range tx.Instructions {
		if ix.ProgramID == solchain.PumpFunProgram {
			return true
		}
		for _, inner := range ix.InnerInstructions {
			if inner.ProgramID == solchain.PumpFunProgram {
				return true
			}
		}
	}
	return false
}

func (e *Enumerator) collectSignatures(ctx context.Context, deployer string) ([]string, error) {
	var sigs []string
	before := ""
	for len(sigs) < fallbackSigCap {
		page, err := e.chain.GetSignaturesForAddress(ctx, deployer, 1000, before)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		sigs = append(sigs, page...)
		before = page[len(page)-1]
		if len(page) < 1000 {
			break
		}
	}
	if len(sigs) > fallbackSigCap {
		sigs = sigs[:fallbackSigCap]
	}
	return sigs, nil
}
