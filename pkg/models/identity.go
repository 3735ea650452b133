package models

import "time"

// IdentityKind distinguishes an authenticated wallet caller from an
// anonymous IP-bucketed one.
type IdentityKind string

const (
	IdentityWallet IdentityKind = "wallet"
	IdentityIP     IdentityKind = "ip"
)

// Identity is the quota subject: a wallet for authenticated callers, an
// IP address for anonymous ones. Counters roll over at local calendar
// day boundaries; admins bypass quota entirely.
type Identity struct {
	Key        string       `json:"key"` // wallet address or IP
	Kind       IdentityKind `json:"kind"`
	ScansToday int          `json:"scansToday"`
	LastReset  time.Time    `json:"lastReset"`
	Admin      bool         `json:"admin"`
}

// PaymentScheme names the x402-style payment mechanism used to verify a
// pay-per-scan upgrade.
type PaymentScheme string

const (
	SchemeOnChainTransfer PaymentScheme = "on-chain"
	SchemeSignedClaim     PaymentScheme = "signed-claim"
)

// Payment is a recorded pay-per-scan upgrade. Each tx signature or nonce
// is usable at most once (replay-safe).
type Payment struct {
	ID        string        `json:"id"`
	Scheme    PaymentScheme `json:"scheme"`
	TxSig     string        `json:"txSignature,omitempty"`
	Nonce     string        `json:"nonce,omitempty"`
	Payer     string        `json:"payer"`
	AmountUSD float64       `json:"amountUsd"`
	Timestamp time.Time     `json:"timestamp"`
}

// PaymentAccept is one accepted payment option surfaced on a 402 response.
// Scheme carries the x402 wire scheme name (e.g. "exact"), not a
// PaymentScheme value — those are this service's internal dispatch keys
// for routing an incoming X-Payment claim, a separate concern.
type PaymentAccept struct {
	Scheme            string    `json:"scheme"`
	Network           string    `json:"network"`
	Asset             string    `json:"asset"`
	Amount            string    `json:"amount"`
	MaxAmountRequired string    `json:"maxAmountRequired"`
	PayTo             string    `json:"payTo"`
	ValidUntil        time.Time `json:"validUntil"`
}

// PaymentDetails is the full 402 body returned when quota is exhausted.
type PaymentDetails struct {
	Accepts []PaymentAccept `json:"accepts"`
}

// OnChainPaymentPayload is the §4.10 on-chain verification payload.
type OnChainPaymentPayload struct {
	TxSignature string `json:"txSignature"`
	Payer       string `json:"payer"`
}

// SignedClaimPayload is the §4.10 signed-claim verification payload.
type SignedClaimPayload struct {
	PaymentOption PaymentOption `json:"paymentOption"`
	Signature     string        `json:"signature"`
	Payer         string        `json:"payer"`
	Nonce         string        `json:"nonce"`
	Timestamp     int64         `json:"timestamp"`
}

// PaymentOption mirrors the x402 accepted-option shape carried inside a
// signed claim, so the server can re-check it against its own treasury
// config before verifying the signature.
type PaymentOption struct {
	PayTo              string `json:"payTo"`
	MaxAmountRequired  string `json:"maxAmountRequired"`
	Asset              string `json:"asset"`
	Network            string `json:"network"`
	Scheme             string `json:"scheme"`
	ValidUntil         int64  `json:"validUntil"`
}

// CanonicalMessage is the exact field order signed by the payer for the
// signed-claim scheme: SHA-256(JSON(CanonicalMessage)).
type CanonicalMessage struct {
	Scheme     string `json:"scheme"`
	Network    string `json:"network"`
	Asset      string `json:"asset"`
	Amount     string `json:"amount"`
	PayTo      string `json:"payTo"`
	Nonce      string `json:"nonce"`
	Timestamp  int64  `json:"timestamp"`
	ValidUntil int64  `json:"validUntil"`
}
