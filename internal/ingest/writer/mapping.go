package writer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nitishxyz/chainhook/internal/core/domain"
	"github.com/nitishxyz/chainhook/internal/ingest/deploy"
)

// BuildInsert maps a canonical transaction into the INSERT statement for the
// subscription's category and target table. Identifiers are validated before
// any SQL is assembled; values travel as query parameters.
func BuildInsert(
	tx *domain.CanonicalTransaction,
	sub *domain.IndexSubscription,
) (string, []any, error) {
	if err := deploy.ValidateIdentifier(sub.TargetSchema); err != nil {
		return "", nil, fmt.Errorf("invalid target schema: %w", err)
	}
	if err := deploy.ValidateIdentifier(sub.TargetTable); err != nil {
		return "", nil, fmt.Errorf("invalid target table: %w", err)
	}
	table := sub.TargetSchema + "." + sub.TargetTable

	switch sub.Category() {
	case domain.CategoryTransfer:
		return buildTransferInsert(tx, table)
	case domain.CategorySwap:
		return buildSwapInsert(tx, table)
	case domain.CategoryNFTMint:
		return buildMintInsert(tx, table, "nft_address")
	case domain.CategoryTokenMint:
		return buildMintInsert(tx, table, "token_address")
	case domain.CategoryNFTSale:
		return buildSaleInsert(tx, table)
	case domain.CategoryNFTListing:
		return buildListingInsert(tx, table, "seller_address")
	case domain.CategoryNFTBid:
		return buildListingInsert(tx, table, "bidder_address")
	default:
		return "", nil, fmt.Errorf("no insert mapping for category %s", sub.Category())
	}
}

func insertStatement(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
}

var transferColumns = []string{
	"signature", "slot", "timestamp", "source", "fee", "fee_payer",
	"from_address", "to_address", "amount",
	"token_address", "token_decimals", "token_amount",
	"from_token_account", "to_token_account", "token_standard",
	"platform", "native_transfers", "token_transfers",
	"account_data", "instructions", "event_signature",
}

// buildTransferInsert uses the first token transfer when present, otherwise
// the first native transfer, for the from/to/amount/mint fields. The raw
// transfer arrays ride along as JSONB for audit.
func buildTransferInsert(tx *domain.CanonicalTransaction, table string) (string, []any, error) {
	var fromAddr, toAddr, amount, tokenAddr any
	var tokenDecimals, tokenAmount any
	var fromTokenAccount, toTokenAccount, tokenStandard any

	switch {
	case len(tx.TokenTransfers) > 0:
		t := tx.TokenTransfers[0]
		fromAddr, toAddr = t.FromAddress, t.ToAddress
		amount = t.Amount
		tokenAddr = t.Mint
		tokenAmount = t.Amount
		if t.Decimals != nil {
			tokenDecimals = *t.Decimals
		}
		fromTokenAccount = nullable(t.FromTokenAccount)
		toTokenAccount = nullable(t.ToTokenAccount)
		tokenStandard = nullable(t.TokenStandard)
	case len(tx.NativeTransfers) > 0:
		n := tx.NativeTransfers[0]
		fromAddr, toAddr = n.FromAddress, n.ToAddress
		amount = n.AmountLamports
	}

	args := []any{
		tx.Signature, tx.Slot, tx.Timestamp, tx.Source, tx.FeeLamports, tx.FeePayer,
		fromAddr, toAddr, amount,
		tokenAddr, tokenDecimals, tokenAmount,
		fromTokenAccount, toTokenAccount, tokenStandard,
		tx.Source, marshalJSON(tx.NativeTransfers), marshalJSON(tx.TokenTransfers),
		rawJSON(tx.AccountData), rawJSON(tx.Instructions), tx.Signature,
	}
	return insertStatement(table, transferColumns), args, nil
}

var swapColumns = []string{
	"signature", "slot", "timestamp", "source", "fee", "fee_payer",
	"wallet_address", "dex",
	"token_in_address", "token_out_address", "amount_in", "amount_out",
	"price_usd", "token_in_decimals", "token_out_decimals",
	"token_in_amount", "token_out_amount",
	"native_transfers", "token_transfers",
	"account_data", "instructions", "event_signature",
}

// buildSwapInsert maps the in-leg from the first token transfer and the
// out-leg from the second. When there is no second token transfer, the
// largest native transfer above the transaction fee is treated as SOL
// received back. A swap with no resolvable out-leg is still inserted with
// the in-leg preserved and NULL out fields.
func buildSwapInsert(tx *domain.CanonicalTransaction, table string) (string, []any, error) {
	var tokenIn, amountIn, tokenInDecimals, tokenInAmount any
	var tokenOut, amountOut, tokenOutDecimals, tokenOutAmount any

	if len(tx.TokenTransfers) > 0 {
		in := tx.TokenTransfers[0]
		tokenIn = in.Mint
		amountIn = in.Amount
		tokenInAmount = in.Amount
		if in.Decimals != nil {
			tokenInDecimals = *in.Decimals
		}
	}

	if len(tx.TokenTransfers) > 1 {
		out := tx.TokenTransfers[1]
		tokenOut = out.Mint
		amountOut = out.Amount
		tokenOutAmount = out.Amount
		if out.Decimals != nil {
			tokenOutDecimals = *out.Decimals
		}
	} else if lamports, ok := largestNativeAbove(tx.NativeTransfers, tx.FeeLamports); ok {
		sol := lamportsToSOL(lamports)
		tokenOut = domain.NativeSOLMint
		amountOut = sol
		tokenOutAmount = sol
		tokenOutDecimals = 9
	}

	args := []any{
		tx.Signature, tx.Slot, tx.Timestamp, tx.Source, tx.FeeLamports, tx.FeePayer,
		tx.FeePayer, tx.Source,
		tokenIn, tokenOut, amountIn, amountOut,
		nil, tokenInDecimals, tokenOutDecimals,
		tokenInAmount, tokenOutAmount,
		marshalJSON(tx.NativeTransfers), marshalJSON(tx.TokenTransfers),
		rawJSON(tx.AccountData), rawJSON(tx.Instructions), tx.Signature,
	}
	return insertStatement(table, swapColumns), args, nil
}

func buildMintInsert(tx *domain.CanonicalTransaction, table, assetColumn string) (string, []any, error) {
	if len(tx.TokenTransfers) == 0 {
		return "", nil, fmt.Errorf("mint transaction %s has no token transfer", tx.Signature)
	}
	t := tx.TokenTransfers[0]

	owner := t.ToAddress
	if owner == "" {
		owner = tx.FeePayer
	}

	columns := []string{assetColumn, "mint_address", "owner_address", "platform", "event_signature"}
	args := []any{t.Mint, t.Mint, owner, tx.Source, tx.Signature}
	return insertStatement(table, columns), args, nil
}

func buildSaleInsert(tx *domain.CanonicalTransaction, table string) (string, []any, error) {
	if len(tx.TokenTransfers) == 0 {
		return "", nil, fmt.Errorf("sale transaction %s has no token transfer", tx.Signature)
	}
	t := tx.TokenTransfers[0]

	price := "0"
	if lamports, ok := largestNativeAbove(tx.NativeTransfers, 0); ok {
		price = lamportsToSOL(lamports)
	}

	columns := []string{
		"nft_address", "seller_address", "buyer_address", "marketplace",
		"price", "price_usd", "currency", "event_signature",
	}
	args := []any{t.Mint, t.FromAddress, t.ToAddress, tx.Source, price, nil, "SOL", tx.Signature}
	return insertStatement(table, columns), args, nil
}

// buildListingInsert covers NFT_LISTING and NFT_BID, which share a shape:
// the fee payer is the acting party and the price is the largest native
// transfer. actorColumn selects seller_address or bidder_address.
func buildListingInsert(tx *domain.CanonicalTransaction, table, actorColumn string) (string, []any, error) {
	if len(tx.TokenTransfers) == 0 {
		return "", nil, fmt.Errorf("nft transaction %s has no token transfer", tx.Signature)
	}
	t := tx.TokenTransfers[0]

	price := "0"
	if lamports, ok := largestNativeAbove(tx.NativeTransfers, 0); ok {
		price = lamportsToSOL(lamports)
	}

	columns := []string{
		"nft_address", actorColumn, "marketplace",
		"price", "price_usd", "currency", "event_signature",
	}
	args := []any{t.Mint, tx.FeePayer, tx.Source, price, nil, "SOL", tx.Signature}
	return insertStatement(table, columns), args, nil
}

// largestNativeAbove returns the largest native transfer strictly above the
// threshold. Multiple qualifying transfers pick the largest; ties between
// token-only and mixed swaps are a known heuristic limitation.
func largestNativeAbove(transfers []domain.NativeTransfer, threshold int64) (int64, bool) {
	var best int64
	found := false
	for _, n := range transfers {
		if n.AmountLamports > threshold && n.AmountLamports > best {
			best = n.AmountLamports
			found = true
		}
	}
	return best, found
}

// lamportsToSOL converts lamports to a SOL decimal string without going
// through floating point.
func lamportsToSOL(lamports int64) string {
	whole := lamports / domain.LamportsPerSOL
	frac := lamports % domain.LamportsPerSOL
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	s := strings.TrimRight(fmt.Sprintf("%09d", frac), "0")
	return fmt.Sprintf("%d.%s", whole, s)
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// marshalJSON encodes a value for a JSONB parameter; nil slices become NULL.
func marshalJSON(v any) any {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return nil
	}
	return string(data)
}

// rawJSON passes through provider JSON fragments, mapping absent ones to NULL.
func rawJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
