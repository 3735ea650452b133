package upstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Jpatching/daybreakscan/internal/rpcrouter"
	"github.com/Jpatching/daybreakscan/pkg/models"
)

// chainRPCClient is the default ChainRPC adapter over the router.
type chainRPCClient struct {
	router *rpcrouter.Router
}

// NewChainRPC builds the default basic-chain-RPC adapter.
func NewChainRPC(router *rpcrouter.Router) ChainRPC {
	return &chainRPCClient{router: router}
}

func (c *chainRPCClient) GetTransaction(ctx context.Context, signature string) (*models.ParsedTx, error) {
	params := []any{signature, map[string]any{
		"encoding":                       "jsonParsed",
		"maxSupportedTransactionVersion": 0,
	}}
	raw, err := c.router.Basic(ctx, "getTransaction", params)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Transaction struct {
			Message struct {
				AccountKeys []struct {
					Pubkey string `json:"pubkey"`
					Signer bool   `json:"signer"`
				} `json:"accountKeys"`
				Instructions []models.Instruction `json:"instructions"`
			} `json:"message"`
		} `json:"transaction"`
		Meta struct {
			Err               any `json:"err"`
			InnerInstructions []struct {
				Index        int                        `json:"index"`
				Instructions []models.InnerInstruction `json:"instructions"`
			} `json:"innerInstructions"`
			PreTokenBalances []struct {
				Owner       string `json:"owner"`
				Mint        string `json:"mint"`
				UITokenAmount struct {
					Amount string `json:"amount"`
				} `json:"uiTokenAmount"`
			} `json:"preTokenBalances"`
			PostTokenBalances []struct {
				Owner       string `json:"owner"`
				Mint        string `json:"mint"`
				UITokenAmount struct {
					Amount string `json:"amount"`
				} `json:"uiTokenAmount"`
			} `json:"postTokenBalances"`
		} `json:"meta"`
		Slot      int64 `json:"slot"`
		BlockTime int64 `json:"blockTime"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode getTransaction: %w", err)
	}

	tx := &models.ParsedTx{
		Signature:    signature,
		Slot:         decoded.Slot,
		BlockTime:    decoded.BlockTime,
		Success:      decoded.Meta.Err == nil,
		Instructions: decoded.Transaction.Message.Instructions,
	}

	for _, b := range decoded.Meta.PreTokenBalances {
		var amount uint64
		fmt.Sscanf(b.UITokenAmount.Amount, "%d", &amount)
		tx.PreTokenBalances = append(tx.PreTokenBalances, models.TreasuryBalance{Owner: b.Owner, Mint: b.Mint, RawAmount: amount})
	}
	for _, b := range decoded.Meta.PostTokenBalances {
		var amount uint64
		fmt.Sscanf(b.UITokenAmount.Amount, "%d", &amount)
		tx.PostTokenBalances = append(tx.PostTokenBalances, models.TreasuryBalance{Owner: b.Owner, Mint: b.Mint, RawAmount: amount})
	}

	// Solana groups inner (CPI) instructions by the index of the
	// top-level instruction that spawned them; reattach them here.
	for _, group := range decoded.Meta.InnerInstructions {
		if group.Index >= 0 && group.Index < len(tx.Instructions) {
			tx.Instructions[group.Index].InnerInstructions = group.Instructions
		}
	}

	for i, key := range decoded.Transaction.Message.AccountKeys {
		if key.Signer {
			tx.Signers = append(tx.Signers, key.Pubkey)
			if i == 0 {
				tx.FeePayer = key.Pubkey
			}
		}
	}
	return tx, nil
}

func (c *chainRPCClient) GetSignaturesForAddress(ctx context.Context, address string, limit int, before string) ([]string, error) {
	opts := map[string]any{"limit": limit}
	if before != "" {
		opts["before"] = before
	}
	raw, err := c.router.Basic(ctx, "getSignaturesForAddress", []any{address, opts})
	if err != nil {
		return nil, err
	}
	var entries []struct {
		Signature string `json:"signature"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode getSignaturesForAddress: %w", err)
	}
	sigs := make([]string, len(entries))
	for i, e := range entries {
		sigs[i] = e.Signature
	}
	return sigs, nil
}

func (c *chainRPCClient) GetAsset(ctx context.Context, mint string) (models.Mint, error) {
	raw, err := c.router.Enhanced(ctx, "getAsset", map[string]any{"id": mint})
	if err != nil {
		return models.Mint{}, err
	}
	var decoded struct {
		Content struct {
			Metadata struct {
				Name   string `json:"name"`
				Symbol string `json:"symbol"`
			} `json:"metadata"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return models.Mint{}, fmt.Errorf("decode getAsset: %w", err)
	}
	return models.Mint{
		Address: mint,
		Name:    decoded.Content.Metadata.Name,
		Symbol:  decoded.Content.Metadata.Symbol,
	}, nil
}

func (c *chainRPCClient) GetMintAccountInfo(ctx context.Context, mint string) (*MintAccountInfo, error) {
	raw, err := c.router.Basic(ctx, "getAccountInfo", []any{mint, map[string]any{"encoding": "jsonParsed"}})
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Value struct {
			Data struct {
				Parsed struct {
					Type string `json:"type"`
					Info struct {
						MintAuthority   string `json:"mintAuthority"`
						FreezeAuthority string `json:"freezeAuthority"`
						Supply          string `json:"supply"`
						Decimals        uint8  `json:"decimals"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"value"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode getAccountInfo(mint): %w", err)
	}
	var supply uint64
	fmt.Sscanf(decoded.Value.Data.Parsed.Info.Supply, "%d", &supply)
	return &MintAccountInfo{
		MintAuthority:   decoded.Value.Data.Parsed.Info.MintAuthority,
		FreezeAuthority: decoded.Value.Data.Parsed.Info.FreezeAuthority,
		Supply:          supply,
		Decimals:        decoded.Value.Data.Parsed.Info.Decimals,
	}, nil
}

func (c *chainRPCClient) GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]TokenAccountBalance, error) {
	raw, err := c.router.Basic(ctx, "getTokenAccountsByOwner", []any{
		owner,
		map[string]any{"mint": mint},
		map[string]any{"encoding": "jsonParsed"},
	})
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Value []struct {
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							Owner       string `json:"owner"`
							TokenAmount struct {
								Amount   string `json:"amount"`
								Decimals uint8  `json:"decimals"`
							} `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode getTokenAccountsByOwner: %w", err)
	}
	balances := make([]TokenAccountBalance, 0, len(decoded.Value))
	for _, v := range decoded.Value {
		var amount uint64
		fmt.Sscanf(v.Account.Data.Parsed.Info.TokenAmount.Amount, "%d", &amount)
		balances = append(balances, TokenAccountBalance{
			Owner:    v.Account.Data.Parsed.Info.Owner,
			Amount:   amount,
			Decimals: v.Account.Data.Parsed.Info.TokenAmount.Decimals,
		})
	}
	return balances, nil
}

func (c *chainRPCClient) GetTokenLargestAccounts(ctx context.Context, mint string) ([]LargestAccount, error) {
	raw, err := c.router.Basic(ctx, "getTokenLargestAccounts", []any{mint})
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Value []struct {
			Address string `json:"address"`
			Amount  string `json:"amount"`
		} `json:"value"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode getTokenLargestAccounts: %w", err)
	}
	accounts := make([]LargestAccount, 0, len(decoded.Value))
	for _, v := range decoded.Value {
		var amount uint64
		fmt.Sscanf(v.Amount, "%d", &amount)
		accounts = append(accounts, LargestAccount{Address: v.Address, Amount: amount})
	}
	return accounts, nil
}
