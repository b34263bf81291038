package domain

import "encoding/json"

// Category identifies the kind of on-chain activity a transaction represents.
type Category string

const (
	CategoryTransfer   Category = "TRANSFER"
	CategorySwap       Category = "SWAP"
	CategoryNFTMint    Category = "NFT_MINT"
	CategoryNFTBid     Category = "NFT_BID"
	CategoryNFTSale    Category = "NFT_SALE"
	CategoryNFTListing Category = "NFT_LISTING"
	CategoryTokenMint  Category = "TOKEN_MINT"
	CategoryUnknown    Category = "UNKNOWN"
)

// Categories lists every indexable category (UNKNOWN excluded).
var Categories = []Category{
	CategoryTransfer,
	CategorySwap,
	CategoryNFTMint,
	CategoryNFTBid,
	CategoryNFTSale,
	CategoryNFTListing,
	CategoryTokenMint,
}

// NativeSOLMint is the wrapped SOL mint address, used as the mint for
// native-transfer legs of a swap.
const NativeSOLMint = "So11111111111111111111111111111111111111112"

// LamportsPerSOL is the lamport-to-SOL conversion factor.
const LamportsPerSOL = 1_000_000_000

// TokenTransfer is one SPL token movement within a transaction.
// Amount keeps the provider's decimal string untouched.
type TokenTransfer struct {
	FromAddress      string `json:"from_address"`
	ToAddress        string `json:"to_address"`
	FromTokenAccount string `json:"from_token_account,omitempty"`
	ToTokenAccount   string `json:"to_token_account,omitempty"`
	Mint             string `json:"mint"`
	Amount           string `json:"amount"`
	Decimals         *int   `json:"decimals,omitempty"`
	TokenStandard    string `json:"token_standard,omitempty"`
}

// NativeTransfer is one lamport movement within a transaction.
type NativeTransfer struct {
	FromAddress    string `json:"from_address"`
	ToAddress      string `json:"to_address"`
	AmountLamports int64  `json:"amount_lamports"`
}

// CanonicalTransaction is the provider-agnostic representation of one
// transaction. It is built once by the normalizer and treated as immutable
// by everything downstream.
type CanonicalTransaction struct {
	Signature       string
	Slot            uint64
	Timestamp       int64
	Source          string
	FeeLamports     int64
	FeePayer        string
	Category        Category
	TokenTransfers  []TokenTransfer
	NativeTransfers []NativeTransfer
	AccountData     json.RawMessage
	Instructions    json.RawMessage
}

// ParticipantAddresses returns the union of every from/to address across both
// transfer lists plus the fee payer. Empty strings are dropped. Order is not
// significant; the slice is only ever used as a set.
func (tx *CanonicalTransaction) ParticipantAddresses() []string {
	seen := make(map[string]struct{})
	add := func(addr string) {
		if addr != "" {
			seen[addr] = struct{}{}
		}
	}

	for _, t := range tx.TokenTransfers {
		add(t.FromAddress)
		add(t.ToAddress)
	}
	for _, n := range tx.NativeTransfers {
		add(n.FromAddress)
		add(n.ToAddress)
	}
	add(tx.FeePayer)

	addrs := make([]string, 0, len(seen))
	for addr := range seen {
		addrs = append(addrs, addr)
	}
	return addrs
}
