// internal/models/wallet.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a user's spendable credit balance. Deposits (Stripe) fund it,
// purchases and royalty payments draw on it, purchase proceeds and claimed
// royalties land in it.
type Wallet struct {
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	Balance   int64     `json:"balance" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WalletEntryKind string

const (
	WalletEntryDeposit    WalletEntryKind = "deposit"
	WalletEntryWithdrawal WalletEntryKind = "withdrawal"
	WalletEntryPurchase   WalletEntryKind = "purchase"
	WalletEntryProceeds   WalletEntryKind = "proceeds"
	WalletEntryRoyalty    WalletEntryKind = "royalty"
	WalletEntryClaim      WalletEntryKind = "claim"
)

// WalletEntry is the append-only movement log for a wallet. Amount is signed:
// positive for credits, negative for debits.
type WalletEntry struct {
	LedgerModel
	UserID    uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	Amount    int64           `json:"amount" gorm:"not null"`
	Kind      WalletEntryKind `json:"kind" gorm:"type:varchar(20);not null"`
	Reference string          `json:"reference,omitempty" gorm:"size:255"`
}
