// internal/models/license.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// LicenseRecord is a uniquely identified, transferable proof of a purchased
// license. Everything except owner, expiry, and the burn state is an
// immutable snapshot taken at issuance: the asset's metadata reference and
// royalty configuration are frozen so later creator edits cannot change the
// terms of an already-sold license.
//
// State machine per record: Active(expiry) -> Renewed(new expiry) or
// Burned(download key). Burned is terminal: the record can no longer be
// transferred and its download key never changes. Perpetual records
// (expiry 0) cannot be renewed.
type LicenseRecord struct {
	LedgerModel
	AssetID            uint64      `json:"asset_id" gorm:"not null;index"`
	OwnerID            uuid.UUID   `json:"owner_id" gorm:"type:uuid;not null;index"`
	Tier               LicenseTier `json:"tier" gorm:"type:varchar(20);not null"`
	PricePaid          int64       `json:"price_paid" gorm:"not null"`
	ExpiresAt          int64       `json:"expires_at" gorm:"not null;default:0"` // unix seconds, 0 = perpetual
	Duration           int64       `json:"duration" gorm:"not null;default:0"`   // seconds at purchase
	VariationIDs       IDList      `json:"variation_ids" gorm:"type:jsonb"`
	MetadataRef        string      `json:"metadata_ref" gorm:"size:255"`
	RoyaltyBps         uint32      `json:"royalty_bps" gorm:"default:0"`
	RoyaltyRecipientID *uuid.UUID  `json:"royalty_recipient_id,omitempty" gorm:"type:uuid"`
	Burned             bool        `json:"burned" gorm:"default:false;index"`
	DownloadKey        string      `json:"download_key,omitempty" gorm:"size:64"`

	// Relationships
	Owner User `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
}

// IsPerpetual reports whether the record never lapses.
func (r *LicenseRecord) IsPerpetual() bool {
	return r.ExpiresAt == ExpiryPerpetual
}

// ValidAt reports whether the license is valid at the given instant.
func (r *LicenseRecord) ValidAt(t time.Time) bool {
	return r.IsPerpetual() || t.Unix() <= r.ExpiresAt
}
