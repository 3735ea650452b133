package addr

import "testing"

func TestValidAcceptsRealMint(t *testing.T) {
	// USDC mint address: well-formed base58, 32 decoded bytes.
	if !Valid("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v") {
		t.Fatal("expected a real mint address to validate")
	}
}

func TestValidRejectsBannedCharacters(t *testing.T) {
	if Valid("0OIl0000000000000000000000000000000") {
		t.Fatal("expected banned characters to fail validation")
	}
}

func TestValidRejectsWrongLength(t *testing.T) {
	if Valid("short") {
		t.Fatal("expected too-short address to fail validation")
	}
}

func TestValidRejectsNonBase58(t *testing.T) {
	if Valid("not-a-valid-address-at-all!!!!!!!") {
		t.Fatal("expected non-base58 characters to fail validation")
	}
}
