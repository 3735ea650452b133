package models

// TokenTransfer is one SPL token movement inside an enhanced transaction.
type TokenTransfer struct {
	Mint       string  `json:"mint"`
	FromUser   string  `json:"fromUserAccount"`
	ToUser     string  `json:"toUserAccount"`
	TokenAmount float64 `json:"tokenAmount"`
}

// NativeTransfer is one lamport movement inside an enhanced transaction.
type NativeTransfer struct {
	FromUser string `json:"fromUserAccount"`
	ToUser   string `json:"toUserAccount"`
	Amount   int64  `json:"amount"`
}

// TokenBalanceChange is a per-account mint balance delta.
type TokenBalanceChange struct {
	UserAccount string `json:"userAccount"`
	Mint        string `json:"mint"`
	RawAmount   string `json:"rawTokenAmount"`
}

// AccountData is one account's balance-change record within a tx.
type AccountData struct {
	Account             string               `json:"account"`
	TokenBalanceChanges []TokenBalanceChange `json:"tokenBalanceChanges"`
}

// InnerInstruction is a CPI-nested instruction inside a top-level one.
type InnerInstruction struct {
	ProgramID string `json:"programId"`
	Parsed    *ParsedInstruction `json:"parsed,omitempty"`
}

// ParsedInstruction carries the decoded instruction type, when the RPC
// node's parser recognizes the program (e.g. SPL Token's initializeMint2).
type ParsedInstruction struct {
	Type string                 `json:"type"`
	Info map[string]any `json:"info,omitempty"`
}

// Mint extracts the "mint" field from Info, when present — populated
// for instructions like initializeMint2 whose parsed info names the
// mint account being initialized.
func (p ParsedInstruction) Mint() string {
	if p.Info == nil {
		return ""
	}
	if m, ok := p.Info["mint"].(string); ok {
		return m
	}
	return ""
}

// Instruction is one top-level instruction of a transaction, with its
// inner (CPI) instructions attached.
type Instruction struct {
	ProgramID         string             `json:"programId"`
	Parsed            *ParsedInstruction `json:"parsed,omitempty"`
	InnerInstructions []InnerInstruction `json:"innerInstructions,omitempty"`
}

// EnhancedTx is one transaction as returned by the enhanced-history
// provider's GET /addresses/{addr}/transactions endpoint.
type EnhancedTx struct {
	Signature      string               `json:"signature"`
	FeePayer       string               `json:"feePayer"`
	Timestamp      int64                `json:"timestamp"`
	Slot           int64                `json:"slot"`
	Type           string               `json:"type"`   // e.g. CREATE, TOKEN_MINT, TRANSFER
	Source         string               `json:"source"` // e.g. PUMP_FUN
	TokenTransfers []TokenTransfer      `json:"tokenTransfers"`
	NativeTransfers []NativeTransfer    `json:"nativeTransfers"`
	AccountData    []AccountData        `json:"accountData"`
	Instructions   []Instruction        `json:"instructions"`
}

// HasProgram reports whether any top-level instruction (or the account
// list implied by inner instructions) touches the given program ID.
func (tx EnhancedTx) HasProgram(programID string) bool {
	for _, ix := range tx.Instructions {
		if ix.ProgramID == programID {
			return true
		}
		for _, inner := range ix.InnerInstructions {
			if inner.ProgramID == programID {
				return true
			}
		}
	}
	return false
}

// FindInnerInstructionType reports whether any inner or outer
// instruction has parsed.type == instrType (e.g. "initializeMint2").
func (tx EnhancedTx) FindInnerInstructionType(instrType string) bool {
	for _, ix := range tx.Instructions {
		if ix.Parsed != nil && ix.Parsed.Type == instrType {
			return true
		}
		for _, inner := range ix.InnerInstructions {
			if inner.Parsed != nil && inner.Parsed.Type == instrType {
				return true
			}
		}
	}
	return false
}

// DistinctNonNativeMints returns every distinct mint referenced by the
// tx's token transfers or account balance changes, excluding nativeMint.
func (tx EnhancedTx) DistinctNonNativeMints(nativeMint string) []string {
	seen := make(map[string]bool)
	var mints []string
	add := func(mint string) {
		if mint == "" || mint == nativeMint || seen[mint] {
			return
		}
		seen[mint] = true
		mints = append(mints, mint)
	}
	for _, t := range tx.TokenTransfers {
		add(t.Mint)
	}
	for _, ad := range tx.AccountData {
		for _, c := range ad.TokenBalanceChanges {
			add(c.Mint)
		}
	}
	return mints
}

// TreasuryBalance is one account's SPL token balance at a point in a
// transaction's execution (pre- or post-instructions).
type TreasuryBalance struct {
	Owner     string `json:"owner"`
	Mint      string `json:"mint"`
	RawAmount uint64 `json:"rawAmount"`
}

// ParsedTx is the subset of getTransaction(jsonParsed) this module
// needs: top-level instructions with inner CPI instructions, the
// fee payer, all signers, and pre/post token balances for payment
// verification.
type ParsedTx struct {
	Signature           string            `json:"signature"`
	FeePayer            string            `json:"feePayer"`
	Signers             []string          `json:"signers"`
	Slot                int64             `json:"slot"`
	BlockTime           int64             `json:"blockTime"`
	Success             bool              `json:"success"`
	Instructions        []Instruction     `json:"instructions"`
	PreTokenBalances    []TreasuryBalance `json:"preTokenBalances,omitempty"`
	PostTokenBalances   []TreasuryBalance `json:"postTokenBalances,omitempty"`
}

// TokenBalanceDelta returns the post-minus-pre raw balance change for
// the given owner/mint pair. ok is false if neither snapshot mentions
// the pair.
func (tx ParsedTx) TokenBalanceDelta(owner, mint string) (delta int64, ok bool) {
	var pre, post uint64
	found := false
	for _, b := range tx.PreTokenBalances {
		if b.Owner == owner && b.Mint == mint {
			pre = b.RawAmount
			found = true
		}
	}
	for _, b := range tx.PostTokenBalances {
		if b.Owner == owner && b.Mint == mint {
			post = b.RawAmount
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return int64(post) - int64(pre), true
}
