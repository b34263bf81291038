// Package normalize parses raw provider webhook payloads into canonical
// transactions. Parsing is strict at the boundary: unknown fields are
// ignored, but a payload that does not decode is rejected as a whole.
package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/nitishxyz/chainhook/internal/core/domain"
)

// categoryByType maps the provider's enhanced-transaction "type" string to a
// category. The match is case-sensitive; anything unmapped is UNKNOWN.
var categoryByType = map[string]domain.Category{
	"TRANSFER":    domain.CategoryTransfer,
	"SWAP":        domain.CategorySwap,
	"NFT_MINT":    domain.CategoryNFTMint,
	"NFT_BID":     domain.CategoryNFTBid,
	"NFT_SALE":    domain.CategoryNFTSale,
	"NFT_LISTING": domain.CategoryNFTListing,
	"TOKEN_MINT":  domain.CategoryTokenMint,
}

// rawTransaction mirrors the provider's enhanced transaction shape.
// Only the fields the pipeline consumes are declared.
type rawTransaction struct {
	Type            string              `json:"type"`
	Signature       string              `json:"signature"`
	Slot            uint64              `json:"slot"`
	Timestamp       int64               `json:"timestamp"`
	Source          string              `json:"source"`
	Fee             int64               `json:"fee"`
	FeePayer        string              `json:"feePayer"`
	TokenTransfers  []rawTokenTransfer  `json:"tokenTransfers"`
	NativeTransfers []rawNativeTransfer `json:"nativeTransfers"`
	AccountData     json.RawMessage     `json:"accountData"`
	Instructions    json.RawMessage     `json:"instructions"`
}

type rawTokenTransfer struct {
	FromUserAccount  string      `json:"fromUserAccount"`
	ToUserAccount    string      `json:"toUserAccount"`
	FromTokenAccount string      `json:"fromTokenAccount"`
	ToTokenAccount   string      `json:"toTokenAccount"`
	Mint             string      `json:"mint"`
	TokenAmount      json.Number `json:"tokenAmount"`
	TokenStandard    string      `json:"tokenStandard"`
	RawTokenAmount   *struct {
		TokenAmount string `json:"tokenAmount"`
		Decimals    int    `json:"decimals"`
	} `json:"rawTokenAmount"`
}

type rawNativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"`
}

// Transaction parses one raw provider item into a canonical transaction.
// Amounts keep the provider's decimal representation; no rounding happens
// here. A decode failure means the single item is unusable, not the batch.
func Transaction(data []byte) (*domain.CanonicalTransaction, error) {
	var raw rawTransaction
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode provider transaction: %w", err)
	}
	if raw.Signature == "" {
		return nil, fmt.Errorf("provider transaction has no signature")
	}

	category, ok := categoryByType[raw.Type]
	if !ok {
		category = domain.CategoryUnknown
	}

	tx := &domain.CanonicalTransaction{
		Signature:    raw.Signature,
		Slot:         raw.Slot,
		Timestamp:    raw.Timestamp,
		Source:       raw.Source,
		FeeLamports:  raw.Fee,
		FeePayer:     raw.FeePayer,
		Category:     category,
		AccountData:  raw.AccountData,
		Instructions: raw.Instructions,
	}

	for _, t := range raw.TokenTransfers {
		tt := domain.TokenTransfer{
			FromAddress:      t.FromUserAccount,
			ToAddress:        t.ToUserAccount,
			FromTokenAccount: t.FromTokenAccount,
			ToTokenAccount:   t.ToTokenAccount,
			Mint:             t.Mint,
			Amount:           t.TokenAmount.String(),
			TokenStandard:    t.TokenStandard,
		}
		if t.RawTokenAmount != nil {
			decimals := t.RawTokenAmount.Decimals
			tt.Decimals = &decimals
			if tt.Amount == "" {
				tt.Amount = t.RawTokenAmount.TokenAmount
			}
		}
		tx.TokenTransfers = append(tx.TokenTransfers, tt)
	}

	for _, n := range raw.NativeTransfers {
		tx.NativeTransfers = append(tx.NativeTransfers, domain.NativeTransfer{
			FromAddress:    n.FromUserAccount,
			ToAddress:      n.ToUserAccount,
			AmountLamports: n.Amount,
		})
	}

	return tx, nil
}
