// internal/models/pricing.go
package models

import "github.com/google/uuid"

// TierPricing holds the price and duration for one license tier of one
// asset. Duration is in seconds; zero means perpetual. Prices are integer
// credits.
type TierPricing struct {
	LedgerModel
	AssetID  uint64      `json:"asset_id" gorm:"not null;uniqueIndex:idx_tier_pricing_asset_tier"`
	Tier     LicenseTier `json:"tier" gorm:"type:varchar(20);not null;uniqueIndex:idx_tier_pricing_asset_tier"`
	Price    int64       `json:"price" gorm:"not null;default:0"`
	Duration int64       `json:"duration" gorm:"not null;default:0"`
}

// SaleConfig carries the per-asset sale state: royalty split, supply cap,
// and the for-sale gate. One row per asset, created lazily on first write.
type SaleConfig struct {
	LedgerModel
	AssetID            uint64     `json:"asset_id" gorm:"not null;uniqueIndex"`
	RoyaltyRecipientID *uuid.UUID `json:"royalty_recipient_id,omitempty" gorm:"type:uuid"`
	RoyaltyBps         uint32     `json:"royalty_bps" gorm:"default:0"`
	MaxSupply          uint32     `json:"max_supply" gorm:"default:0"` // 0 = unlimited
	SoldCount          uint32     `json:"sold_count" gorm:"default:0"`
	ForSale            bool       `json:"for_sale" gorm:"default:false"`
}

// Variation is an optional priced add-on attachable to a purchase. The list
// per asset is append-only; Position is the stable public index. Variations
// are toggled inactive, never removed.
type Variation struct {
	LedgerModel
	AssetID     uint64 `json:"asset_id" gorm:"not null;uniqueIndex:idx_variation_asset_position"`
	Position    uint32 `json:"position" gorm:"not null;uniqueIndex:idx_variation_asset_position"`
	Name        string `json:"name" gorm:"size:255;not null"`
	Price       int64  `json:"price" gorm:"not null;default:0"`
	MetadataRef string `json:"metadata_ref" gorm:"size:255"`
	Active      bool   `json:"active" gorm:"default:true"`
}
