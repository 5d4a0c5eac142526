// internal/models/royalty.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// DerivativeRoyalty configures the automatic royalty owed to an original
// creator when a derivative asset resells. The original creator identity is
// captured at setup time and does not follow later transfers of the original
// asset. Entries are deactivated, never deleted.
type DerivativeRoyalty struct {
	LedgerModel
	DerivativeAssetID uint64    `json:"derivative_asset_id" gorm:"not null;uniqueIndex"`
	OriginalAssetID   uint64    `json:"original_asset_id" gorm:"not null;index"`
	OriginalCreatorID uuid.UUID `json:"original_creator_id" gorm:"type:uuid;not null"`
	RoyaltyBps        uint32    `json:"royalty_bps" gorm:"not null"`
	Active            bool      `json:"active" gorm:"default:true"`
}

// ClaimableBalance accumulates royalty credits owed to an identity until
// they are claimed. The balance is zeroed before any outward transfer.
type ClaimableBalance struct {
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	Amount    int64     `json:"amount" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoyaltyPayment is an append-only audit record of a royalty settlement or
// a direct creator tip, indexed per payee.
type RoyaltyPayment struct {
	LedgerModel
	PayerID uuid.UUID   `json:"payer_id" gorm:"type:uuid;not null;index"`
	PayeeID uuid.UUID   `json:"payee_id" gorm:"type:uuid;not null;index"`
	Amount  int64       `json:"amount" gorm:"not null"`
	AssetID *uint64     `json:"asset_id,omitempty" gorm:"index"`
	Kind    PaymentKind `json:"kind" gorm:"type:varchar(20);not null;index"`
	Message string      `json:"message,omitempty" gorm:"type:text"`
}
