// Package upstream defines the behavioral interfaces DaybreakScan's
// pipeline stages consume — one interface per external collaborator,
// with a single default HTTP adapter — so tests can substitute
// in-memory fakes, per spec.md §9's "dynamic dispatch" design note.
package upstream

import (
	"context"

	"github.com/Jpatching/daybreakscan/pkg/models"
)

// SignatureSort controls getSignaturesForAddress ordering.
type SignatureSort string

const (
	OldestFirst SignatureSort = "asc"
	NewestFirst SignatureSort = "desc"
)

// MintAccountInfo is the parsed getAccountInfo(mint, jsonParsed) result.
type MintAccountInfo struct {
	MintAuthority   string
	FreezeAuthority string
	Supply          uint64
	Decimals        uint8
}

// TokenAccountBalance is one owner's parsed SPL token account balance.
type TokenAccountBalance struct {
	Owner   string
	Amount  uint64
	Decimals uint8
}

// LargestAccount is one entry of getTokenLargestAccounts.
type LargestAccount struct {
	Address string
	Amount  uint64
}

// DexPair is one liquidity pair entry for a mint from the DEX index.
type DexPair struct {
	BaseMint      string
	PriceUSD      float64
	LiquidityUSD  float64
	Volume24hUSD  float64
	PriceChange24h float64
	FDV           float64
	MarketCap     float64
	PairCreatedAt int64 // unix millis
	Websites      []string
	Socials       []string
}

// RugReportMarket is one market entry of a rug-report summary.
type RugReportMarket struct {
	LPLockedPct float64
	HasLPInfo   bool
}

// RugReportRisk is one named risk entry in a rug-report summary.
type RugReportRisk struct {
	Name  string
	Level string // e.g. "good", "warn", "danger"
}

// RugReport is the parsed rug-report oracle summary for a mint.
type RugReport struct {
	Markets []RugReportMarket
	Risks   []RugReportRisk
}

// EnhancedHistory exposes the enhanced-history provider's transaction
// listing for an address — the only source of rich per-tx decoding
// (token transfers, inner instructions) this module relies on.
type EnhancedHistory interface {
	Transactions(ctx context.Context, address string, limit int, sort SignatureSort, before string) ([]models.EnhancedTx, error)
	// Batch fetches the last N enhanced transactions for each of many
	// addresses concurrently, bounded by the caller's own fan-out cap.
}

// ChainRPC exposes basic (fallback-chain) Solana JSON-RPC calls.
type ChainRPC interface {
	GetTransaction(ctx context.Context, signature string) (*models.ParsedTx, error)
	GetSignaturesForAddress(ctx context.Context, address string, limit int, before string) ([]string, error)
	GetAsset(ctx context.Context, mint string) (models.Mint, error)
	GetMintAccountInfo(ctx context.Context, mint string) (*MintAccountInfo, error)
	GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]TokenAccountBalance, error)
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]LargestAccount, error)
}

// DexIndex exposes the DEX liquidity index's bulk token lookup.
type DexIndex interface {
	// Pairs returns every pair known for the given mints, keyed by
	// mint address. A mint with no pairs is simply absent from the map.
	Pairs(ctx context.Context, mints []string) (map[string][]DexPair, error)
}

// PriceOracle exposes the token-price oracle's bulk price lookup.
type PriceOracle interface {
	Prices(ctx context.Context, mints []string) (map[string]float64, error)
}

// RugReportOracle exposes the rug-report oracle's per-mint summary.
type RugReportOracle interface {
	Report(ctx context.Context, mint string) (*RugReport, error)
}
