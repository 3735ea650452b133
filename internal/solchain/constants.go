// Package solchain holds the well-known Solana program and account
// identifiers the scan pipeline recognizes by address, plus small
// lamport/SOL conversion helpers.
package solchain

const (
	// NativeMint is the sentinel mint address for wrapped SOL; never a
	// legitimate "token launched by a deployer".
	NativeMint = "So11111111111111111111111111111111111111112"

	// PumpFunProgram is the Pump.fun bonding-curve program ID.
	PumpFunProgram = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

	// SystemProgram is the native Solana System program.
	SystemProgram = "11111111111111111111111111111111"

	// TokenProgram is the SPL Token program.
	TokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

	// AssociatedTokenProgram is the SPL Associated Token Account program.
	AssociatedTokenProgram = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"

	// lamportsPerSOL is the fixed-point scale of 1 SOL.
	lamportsPerSOL = 1_000_000_000

	// DustThresholdLamports is the minimum outbound transfer considered
	// a funding candidate for cluster analysis (0.01 SOL, spec.md §4.7).
	DustThresholdLamports int64 = 10_000_000
)

// SOLToLamports converts a SOL amount to integer lamports, rounding to
// the nearest lamport the way btcutil.NewAmount rounds BTC to satoshis.
func SOLToLamports(sol float64) int64 {
	return int64(sol*lamportsPerSOL + 0.5)
}

// LamportsToSOL converts integer lamports to a SOL float.
func LamportsToSOL(lamports int64) float64 {
	return float64(lamports) / lamportsPerSOL
}

// IsNativeMint reports whether mint is the wrapped-SOL sentinel.
func IsNativeMint(mint string) bool {
	return mint == NativeMint
}
