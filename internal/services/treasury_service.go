// internal/services/treasury_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/apperrors"
	"github.com/printforge/printforge-backend/internal/database"
	"github.com/printforge/printforge-backend/internal/models"
)

// TreasuryService moves the fungible unit of value between identities. All
// movements happen inside the caller's transaction so a failure anywhere
// aborts both the ledger state and the fund movement together.
type TreasuryService struct {
	db *gorm.DB
}

func NewTreasuryService(db *gorm.DB) *TreasuryService {
	return &TreasuryService{db: db}
}

// Credit adds amount to the user's wallet, creating the wallet row on first
// use.
func (s *TreasuryService) Credit(tx *gorm.DB, userID uuid.UUID, amount int64, kind models.WalletEntryKind, reference string) error {
	if amount < 0 {
		return apperrors.InvalidArgument("credit amount must not be negative")
	}
	if amount == 0 {
		return nil
	}

	wallet, err := s.walletForUpdate(tx, userID)
	if err != nil {
		return err
	}

	wallet.Balance += amount
	if err := tx.Save(wallet).Error; err != nil {
		return apperrors.Internal(err, "failed to credit wallet")
	}

	return s.appendEntry(tx, userID, amount, kind, reference)
}

// Debit removes amount from the user's wallet. A short balance rejects the
// operation with InsufficientPayment.
func (s *TreasuryService) Debit(tx *gorm.DB, userID uuid.UUID, amount int64, kind models.WalletEntryKind, reference string) error {
	if amount < 0 {
		return apperrors.InvalidArgument("debit amount must not be negative")
	}
	if amount == 0 {
		return nil
	}

	wallet, err := s.walletForUpdate(tx, userID)
	if err != nil {
		return err
	}

	if wallet.Balance < amount {
		return apperrors.InsufficientPayment("wallet balance %d is below required %d", wallet.Balance, amount)
	}

	wallet.Balance -= amount
	if err := tx.Save(wallet).Error; err != nil {
		return apperrors.Internal(err, "failed to debit wallet")
	}

	return s.appendEntry(tx, userID, -amount, kind, reference)
}

// Balance returns the user's current spendable balance.
func (s *TreasuryService) Balance(userID uuid.UUID) (int64, error) {
	var wallet models.Wallet
	if err := s.db.First(&wallet, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, apperrors.Internal(err, "failed to load wallet")
	}
	return wallet.Balance, nil
}

// History returns the wallet movement log, newest first.
func (s *TreasuryService) History(userID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var entries []models.WalletEntry
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to fetch wallet history")
	}
	return entries, nil
}

func (s *TreasuryService) walletForUpdate(tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := database.LockForUpdate(tx).First(&wallet, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		wallet = models.Wallet{UserID: userID}
		if err := tx.Create(&wallet).Error; err != nil {
			return nil, apperrors.Internal(err, "failed to create wallet")
		}
		return &wallet, nil
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load wallet")
	}
	return &wallet, nil
}

func (s *TreasuryService) appendEntry(tx *gorm.DB, userID uuid.UUID, amount int64, kind models.WalletEntryKind, reference string) error {
	entry := &models.WalletEntry{
		UserID:    userID,
		Amount:    amount,
		Kind:      kind,
		Reference: reference,
	}
	if err := tx.Create(entry).Error; err != nil {
		return apperrors.Internal(err, fmt.Sprintf("failed to record %s entry", kind))
	}
	return nil
}
