// Package payment verifies x402-style pay-per-scan upgrades: either an
// on-chain USDC transfer to the treasury account, or an Ed25519-signed
// claim against a previously issued payment option.
//
// Grounded on other_examples' CedrosPay-server x402 Solana verifier for
// payload shape naming (payer/payTo/maxAmountRequired/treasury) and
// internal/api/auth.go's bearer-token verification idiom, adapted from
// HMAC bearer tokens to Ed25519 payload signatures.
package payment

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/mr-tron/base58"

	"github.com/Jpatching/daybreakscan/internal/scanerr"
	"github.com/Jpatching/daybreakscan/internal/upstream"
	"github.com/Jpatching/daybreakscan/pkg/models"
)

const (
	onChainStaleness    = 600 * time.Second
	signedClaimStaleness = 600 * time.Second
	usdcDecimalsScale   = 1_000_000.0 // USDC has 6 decimals

	// x402SchemeExact is the x402 protocol's standard scheme name for an
	// exact-amount payment requirement. It is the wire value every
	// accepts[] entry in the 402 response must carry; it is distinct
	// from models.PaymentScheme, which is this service's own internal
	// routing key for dispatching an incoming X-Payment claim to the
	// right verification path (on-chain transfer vs. signed claim).
	x402SchemeExact = "exact"
)

// ReplayStore records spent tx signatures and claim nonces so neither
// can be redeemed twice.
type ReplayStore interface {
	SeenTxSignature(ctx context.Context, sig string) (bool, error)
	SeenNonce(ctx context.Context, nonce string) (bool, error)
	RecordPayment(ctx context.Context, p models.Payment) error
}

// Config carries the treasury identity and pricing the verifier checks
// claims against.
type Config struct {
	TreasuryWallet string
	USDCMint       string
	PriceUSD       float64
	Network        string
	Asset          string
}

// Verifier verifies both x402 payment schemes.
type Verifier struct {
	cfg   Config
	chain upstream.ChainRPC
	store ReplayStore
	now   func() time.Time
}

// New builds a Verifier.
func New(cfg Config, chain upstream.ChainRPC, store ReplayStore) *Verifier {
	return &Verifier{cfg: cfg, chain: chain, store: store, now: time.Now}
}

// VerifyOnChain validates an on-chain USDC transfer to the treasury.
func (v *Verifier) VerifyOnChain(ctx context.Context, payload models.OnChainPaymentPayload) (*models.Payment, error) {
	if payload.TxSignature == "" || payload.Payer == "" {
		return nil, scanerr.New(scanerr.PaymentInvalid, "missing txSignature or payer")
	}

	seen, err := v.store.SeenTxSignature(ctx, payload.TxSignature)
	if err != nil {
		return nil, err
	}
	if seen {
		return nil, scanerr.New(scanerr.PaymentInvalid, "transaction signature already redeemed")
	}

	tx, err := v.chain.GetTransaction(ctx, payload.TxSignature)
	if err != nil {
		return nil, err
	}
	if tx == nil || !tx.Success {
		return nil, scanerr.New(scanerr.PaymentInvalid, "transaction not found or not successful")
	}

	age := v.now().Sub(time.Unix(tx.BlockTime, 0))
	if age < 0 {
		age = -age
	}
	if age > onChainStaleness {
		return nil, scanerr.New(scanerr.PaymentInvalid, "transaction is too old")
	}

	isSigner := false
	for _, s := range tx.Signers {
		if s == payload.Payer {
			isSigner = true
			break
		}
	}
	if !isSigner {
		return nil, scanerr.New(scanerr.PaymentInvalid, "claimed payer did not sign the transaction")
	}

	delta, ok := tx.TokenBalanceDelta(v.cfg.TreasuryWallet, v.cfg.USDCMint)
	if !ok {
		return nil, scanerr.New(scanerr.PaymentInvalid, "transaction carries no treasury USDC balance change")
	}
	expected := int64(math.Ceil(v.cfg.PriceUSD * usdcDecimalsScale))
	if delta < expected {
		return nil, scanerr.New(scanerr.PaymentInvalid, "treasury balance delta below expected amount")
	}

	payment := models.Payment{
		Scheme:    models.SchemeOnChainTransfer,
		TxSig:     payload.TxSignature,
		Payer:     payload.Payer,
		AmountUSD: float64(delta) / usdcDecimalsScale,
		Timestamp: v.now(),
	}
	if err := v.store.RecordPayment(ctx, payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// VerifySignedClaim validates an Ed25519-signed payment claim.
func (v *Verifier) VerifySignedClaim(ctx context.Context, payload models.SignedClaimPayload, expectedLamports int64) (*models.Payment, error) {
	age := v.now().Sub(time.Unix(payload.Timestamp, 0))
	if age < 0 {
		age = -age
	}
	if age > signedClaimStaleness {
		return nil, scanerr.New(scanerr.PaymentInvalid, "claim timestamp too stale")
	}
	if payload.PaymentOption.PayTo != v.cfg.TreasuryWallet {
		return nil, scanerr.New(scanerr.PaymentInvalid, "payTo does not match treasury")
	}

	var maxRequired int64
	if _, err := fmt.Sscanf(payload.PaymentOption.MaxAmountRequired, "%d", &maxRequired); err != nil {
		return nil, scanerr.New(scanerr.PaymentInvalid, "invalid maxAmountRequired")
	}
	if maxRequired < expectedLamports {
		return nil, scanerr.New(scanerr.PaymentInvalid, "maxAmountRequired below expected amount")
	}

	seen, err := v.store.SeenNonce(ctx, payload.Nonce)
	if err != nil {
		return nil, err
	}
	if seen {
		return nil, scanerr.New(scanerr.PaymentInvalid, "nonce already redeemed")
	}

	canonical := models.CanonicalMessage{
		Scheme:     payload.PaymentOption.Scheme,
		Network:    payload.PaymentOption.Network,
		Asset:      payload.PaymentOption.Asset,
		Amount:     payload.PaymentOption.MaxAmountRequired,
		PayTo:      payload.PaymentOption.PayTo,
		Nonce:      payload.Nonce,
		Timestamp:  payload.Timestamp,
		ValidUntil: payload.PaymentOption.ValidUntil,
	}
	message, err := json.Marshal(canonical)
	if err != nil {
		return nil, fmt.Errorf("marshal canonical message: %w", err)
	}
	digest := sha256.Sum256(message)

	pubKey, err := base58.Decode(payload.Payer)
	if err != nil || len(pubKey) != ed25519.PublicKeySize {
		return nil, scanerr.New(scanerr.PaymentInvalid, "invalid payer public key")
	}
	sig, err := base58.Decode(payload.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return nil, scanerr.New(scanerr.PaymentInvalid, "invalid signature encoding")
	}
	if !ed25519.Verify(ed25519.PublicKey(pubKey), digest[:], sig) {
		return nil, scanerr.New(scanerr.PaymentInvalid, "signature verification failed")
	}

	payment := models.Payment{
		Scheme:    models.SchemeSignedClaim,
		Nonce:     payload.Nonce,
		Payer:     payload.Payer,
		AmountUSD: v.cfg.PriceUSD,
		Timestamp: v.now(),
	}
	if err := v.store.RecordPayment(ctx, payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ExpectedRawAmount is the minimum USDC raw-unit (6-decimal) amount a
// payment must carry, shared between AcceptDetails and callers that
// verify a signed claim's maxAmountRequired against the current price.
func (v *Verifier) ExpectedRawAmount() int64 {
	return int64(math.Ceil(v.cfg.PriceUSD * usdcDecimalsScale))
}

// AcceptDetails builds the 402 payment-details document.
func (v *Verifier) AcceptDetails(validUntil time.Time) models.PaymentDetails {
	expected := int64(math.Ceil(v.cfg.PriceUSD * usdcDecimalsScale))
	return models.PaymentDetails{
		Accepts: []models.PaymentAccept{
			{
				Scheme:            x402SchemeExact,
				Network:           v.cfg.Network,
				Asset:             v.cfg.Asset,
				Amount:            fmt.Sprintf("%.2f", v.cfg.PriceUSD),
				MaxAmountRequired: fmt.Sprintf("%d", expected),
				PayTo:             v.cfg.TreasuryWallet,
				ValidUntil:        validUntil,
			},
			{
				Scheme:            x402SchemeExact,
				Network:           v.cfg.Network,
				Asset:             v.cfg.Asset,
				Amount:            fmt.Sprintf("%.2f", v.cfg.PriceUSD),
				MaxAmountRequired: fmt.Sprintf("%d", expected),
				PayTo:             v.cfg.TreasuryWallet,
				ValidUntil:        validUntil,
			},
		},
	}
}
