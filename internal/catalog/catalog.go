// Package catalog holds the static index-type catalog and the versioned
// schema templates deployed into tenant databases. Templates are seeded into
// the system-of-record store and loaded from there at runtime, so they can
// be revised without a release.
package catalog

import "github.com/nitishxyz/chainhook/internal/core/domain"

// IndexTypes returns the built-in index type catalog.
func IndexTypes() []domain.IndexType {
	return []domain.IndexType{
		{
			ID:          "NFT_MINT",
			Name:        "NFT Mint",
			Description: "Track NFT mints from Candy Machine, Magic Eden, Metaplex, and other platforms",
		},
		{
			ID:          "NFT_BID",
			Name:        "NFT Bid",
			Description: "Track NFT bids from Magic Eden, Solanart, Metaplex, and other marketplaces",
		},
		{
			ID:          "NFT_SALE",
			Name:        "NFT Sale",
			Description: "Track NFT sales from Magic Eden, Solanart, Metaplex, and other marketplaces",
		},
		{
			ID:          "NFT_LISTING",
			Name:        "NFT Listing",
			Description: "Track NFT listings from Magic Eden, Solanart, Metaplex, and other marketplaces",
		},
		{
			ID:          "TOKEN_MINT",
			Name:        "Token Mint",
			Description: "Track token mints from Candy Machine, Atadia, and other platforms",
		},
		{
			ID:          "TRANSFER",
			Name:        "Transfer",
			Description: "Track transfers from Phantom, System Program, and other sources",
		},
		{
			ID:          "SWAP",
			Name:        "Swap",
			Description: "Track swaps from Jupiter, Raydium, and other DEXes",
		},
	}
}

// SchemaTemplates returns the built-in schema templates, one per index type.
// Every statement is guarded with IF NOT EXISTS so re-deployment of an
// existing subscription is a no-op.
func SchemaTemplates() []domain.SchemaTemplate {
	return []domain.SchemaTemplate{
		{
			ID:            "transfer_v1",
			IndexTypeID:   "TRANSFER",
			SchemaVersion: "1.1.0",
			CreationSQL: `CREATE TABLE IF NOT EXISTS {schema}.{table_name} (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	signature TEXT NOT NULL,
	slot BIGINT,
	timestamp BIGINT,
	source TEXT,
	fee BIGINT,
	fee_payer TEXT,
	from_address TEXT,
	to_address TEXT,
	amount NUMERIC,
	token_address TEXT,
	token_decimals INTEGER,
	token_amount NUMERIC,
	from_token_account TEXT,
	to_token_account TEXT,
	token_standard TEXT,
	platform TEXT,
	native_transfers JSONB,
	token_transfers JSONB,
	account_data JSONB,
	instructions JSONB,
	event_signature TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT NOW(),
	updated_at TIMESTAMP DEFAULT NOW()
);`,
			IndexesSQL: []string{
				`CREATE INDEX IF NOT EXISTS {table_name}_from_address_idx ON {schema}.{table_name}(from_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_to_address_idx ON {schema}.{table_name}(to_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_token_address_idx ON {schema}.{table_name}(token_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_event_signature_idx ON {schema}.{table_name}(event_signature);`,
			},
		},
		{
			ID:            "swap_v1",
			IndexTypeID:   "SWAP",
			SchemaVersion: "1.1.0",
			CreationSQL: `CREATE TABLE IF NOT EXISTS {schema}.{table_name} (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	signature TEXT NOT NULL,
	slot BIGINT,
	timestamp BIGINT,
	source TEXT,
	fee BIGINT,
	fee_payer TEXT,
	wallet_address TEXT,
	dex TEXT,
	token_in_address TEXT,
	token_out_address TEXT,
	amount_in NUMERIC,
	amount_out NUMERIC,
	price_usd NUMERIC,
	token_in_decimals INTEGER,
	token_out_decimals INTEGER,
	token_in_amount NUMERIC,
	token_out_amount NUMERIC,
	native_transfers JSONB,
	token_transfers JSONB,
	account_data JSONB,
	instructions JSONB,
	event_signature TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT NOW(),
	updated_at TIMESTAMP DEFAULT NOW()
);`,
			IndexesSQL: []string{
				`CREATE INDEX IF NOT EXISTS {table_name}_wallet_address_idx ON {schema}.{table_name}(wallet_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_token_in_address_idx ON {schema}.{table_name}(token_in_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_token_out_address_idx ON {schema}.{table_name}(token_out_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_dex_idx ON {schema}.{table_name}(dex);`,
			},
		},
		{
			ID:            "nft_mint_v1",
			IndexTypeID:   "NFT_MINT",
			SchemaVersion: "1.0.0",
			CreationSQL: `CREATE TABLE IF NOT EXISTS {schema}.{table_name} (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	nft_address TEXT NOT NULL,
	mint_address TEXT NOT NULL,
	owner_address TEXT NOT NULL,
	platform TEXT NOT NULL,
	event_signature TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT NOW(),
	updated_at TIMESTAMP DEFAULT NOW()
);`,
			IndexesSQL: []string{
				`CREATE INDEX IF NOT EXISTS {table_name}_nft_address_idx ON {schema}.{table_name}(nft_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_mint_address_idx ON {schema}.{table_name}(mint_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_owner_address_idx ON {schema}.{table_name}(owner_address);`,
			},
		},
		{
			ID:            "nft_bid_v1",
			IndexTypeID:   "NFT_BID",
			SchemaVersion: "1.0.0",
			CreationSQL: `CREATE TABLE IF NOT EXISTS {schema}.{table_name} (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	nft_address TEXT NOT NULL,
	bidder_address TEXT NOT NULL,
	marketplace TEXT NOT NULL,
	price NUMERIC NOT NULL,
	price_usd NUMERIC,
	currency TEXT,
	is_active BOOLEAN DEFAULT TRUE,
	expires_at TIMESTAMP,
	event_signature TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT NOW(),
	updated_at TIMESTAMP DEFAULT NOW()
);`,
			IndexesSQL: []string{
				`CREATE INDEX IF NOT EXISTS {table_name}_nft_address_idx ON {schema}.{table_name}(nft_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_bidder_address_idx ON {schema}.{table_name}(bidder_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_marketplace_idx ON {schema}.{table_name}(marketplace);`,
			},
		},
		{
			ID:            "nft_sale_v1",
			IndexTypeID:   "NFT_SALE",
			SchemaVersion: "1.0.0",
			CreationSQL: `CREATE TABLE IF NOT EXISTS {schema}.{table_name} (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	nft_address TEXT NOT NULL,
	seller_address TEXT NOT NULL,
	buyer_address TEXT NOT NULL,
	marketplace TEXT NOT NULL,
	price NUMERIC NOT NULL,
	price_usd NUMERIC,
	currency TEXT,
	event_signature TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT NOW(),
	updated_at TIMESTAMP DEFAULT NOW()
);`,
			IndexesSQL: []string{
				`CREATE INDEX IF NOT EXISTS {table_name}_nft_address_idx ON {schema}.{table_name}(nft_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_seller_address_idx ON {schema}.{table_name}(seller_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_buyer_address_idx ON {schema}.{table_name}(buyer_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_marketplace_idx ON {schema}.{table_name}(marketplace);`,
			},
		},
		{
			ID:            "nft_listing_v1",
			IndexTypeID:   "NFT_LISTING",
			SchemaVersion: "1.0.0",
			CreationSQL: `CREATE TABLE IF NOT EXISTS {schema}.{table_name} (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	nft_address TEXT NOT NULL,
	seller_address TEXT NOT NULL,
	marketplace TEXT NOT NULL,
	price NUMERIC NOT NULL,
	price_usd NUMERIC,
	currency TEXT,
	is_active BOOLEAN DEFAULT TRUE,
	event_signature TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT NOW(),
	updated_at TIMESTAMP DEFAULT NOW()
);`,
			IndexesSQL: []string{
				`CREATE INDEX IF NOT EXISTS {table_name}_nft_address_idx ON {schema}.{table_name}(nft_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_seller_address_idx ON {schema}.{table_name}(seller_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_marketplace_idx ON {schema}.{table_name}(marketplace);`,
			},
		},
		{
			ID:            "token_mint_v1",
			IndexTypeID:   "TOKEN_MINT",
			SchemaVersion: "1.0.0",
			CreationSQL: `CREATE TABLE IF NOT EXISTS {schema}.{table_name} (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	token_address TEXT NOT NULL,
	mint_address TEXT NOT NULL,
	owner_address TEXT NOT NULL,
	platform TEXT NOT NULL,
	event_signature TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT NOW(),
	updated_at TIMESTAMP DEFAULT NOW()
);`,
			IndexesSQL: []string{
				`CREATE INDEX IF NOT EXISTS {table_name}_token_address_idx ON {schema}.{table_name}(token_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_mint_address_idx ON {schema}.{table_name}(mint_address);`,
				`CREATE INDEX IF NOT EXISTS {table_name}_owner_address_idx ON {schema}.{table_name}(owner_address);`,
			},
		},
	}
}
