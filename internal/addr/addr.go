// Package addr validates Solana addresses against the exact alphabet
// the spec requires, then confirms the bytes decode to a valid
// ed25519-sized public key using solana-go's account-key type.
package addr

import (
	"strings"

	"github.com/gagliardetto/solana-go"
)

// alphabet is the base58 character set, explicitly excluding 0, O, I, l.
const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Valid reports whether s is a syntactically valid base58 Solana
// address: 32-44 characters, every character in alphabet, and it
// decodes to a 32-byte public key.
func Valid(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	if strings.ContainsAny(s, "0OIl") {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	_, err := solana.PublicKeyFromBase58(s)
	return err == nil
}
