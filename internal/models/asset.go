// internal/models/asset.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Asset is a registered 3D model entry. Creator, creation timestamp, and the
// content reference are fixed at registration; only the metadata reference
// may change afterwards, and only by the creator.
type Asset struct {
	LedgerModel
	CreatorID       uuid.UUID      `json:"creator_id" gorm:"type:uuid;not null;index"`
	ContentRef      string         `json:"content_ref" gorm:"size:255;not null"`
	MetadataRef     string         `json:"metadata_ref" gorm:"size:255;not null"`
	Active          bool           `json:"active" gorm:"default:true"`
	OriginalID      *uint64        `json:"original_id,omitempty" gorm:"index"`
	DerivativeCount uint32         `json:"derivative_count" gorm:"default:0"`
	Title           string         `json:"title" gorm:"size:255"`
	Tags            pq.StringArray `json:"tags" gorm:"type:text[]"`

	// Relationships
	Creator User `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
}

// IsDerivative reports whether the asset was registered against an original.
func (a *Asset) IsDerivative() bool {
	return a.OriginalID != nil
}

// DerivativeLink relates an original asset to one of its derivatives.
// Rows are append-only.
type DerivativeLink struct {
	LedgerModel
	OriginalID   uint64 `json:"original_id" gorm:"not null;index"`
	DerivativeID uint64 `json:"derivative_id" gorm:"not null;index"`
}
