// internal/services/royalty_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/apperrors"
	"github.com/printforge/printforge-backend/internal/database"
	"github.com/printforge/printforge-backend/internal/models"
	"github.com/printforge/printforge-backend/internal/utils"
)

// RoyaltyService tracks derivative royalty configurations, accrues claimable
// balances, and keeps the append-only payment history. Accrued royalties sit
// in a claimable balance separate from the wallet until the payee claims
// them; the claim zeroes the balance before the wallet credit so a repeated
// claim finds nothing.
type RoyaltyService struct {
	db       *gorm.DB
	assets   *AssetService
	treasury *TreasuryService
}

type SetDerivativeRoyaltyRequest struct {
	DerivativeAssetID uint64 `json:"derivative_asset_id" validate:"required"`
	OriginalAssetID   uint64 `json:"original_asset_id" validate:"required"`
	RoyaltyBps        uint32 `json:"royalty_bps" validate:"required"`
}

type PayDerivativeRoyaltyRequest struct {
	DerivativeAssetID uint64 `json:"derivative_asset_id" validate:"required"`
	SalePrice         int64  `json:"sale_price" validate:"required,min=1"`
	PaidAmount        int64  `json:"paid_amount" validate:"min=0"`
}

type PayDirectRoyaltyRequest struct {
	CreatorID uuid.UUID `json:"creator_id" validate:"required"`
	Amount    int64     `json:"amount" validate:"required,min=1"`
	Message   string    `json:"message,omitempty" validate:"max=500"`
}

func NewRoyaltyService(db *gorm.DB, assets *AssetService, treasury *TreasuryService) *RoyaltyService {
	return &RoyaltyService{
		db:       db,
		assets:   assets,
		treasury: treasury,
	}
}

// SetDerivativeRoyalty establishes the royalty owed to an original creator
// when the derivative resells. The original's current creator is captured as
// the fixed payee; later reconfiguration of the original does not move it.
// The original's derivative counter is bumped in the same transaction.
func (s *RoyaltyService) SetDerivativeRoyalty(callerID uuid.UUID, req *SetDerivativeRoyaltyRequest) (*models.DerivativeRoyalty, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.InvalidArgument("invalid royalty configuration: %v", err)
	}
	if req.RoyaltyBps > models.MaxRoyaltyBps {
		return nil, apperrors.InvalidArgument("royalty %d bps exceeds the %d bps cap", req.RoyaltyBps, models.MaxRoyaltyBps)
	}

	var entry *models.DerivativeRoyalty
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var derivative models.Asset
		if err := tx.First(&derivative, req.DerivativeAssetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("derivative asset %d not found", req.DerivativeAssetID)
			}
			return apperrors.Internal(err, "failed to load derivative asset")
		}
		if derivative.CreatorID != callerID {
			return apperrors.Unauthorized("only the derivative's creator may configure its royalty")
		}

		var original models.Asset
		if err := tx.First(&original, req.OriginalAssetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("original asset %d not found", req.OriginalAssetID)
			}
			return apperrors.Internal(err, "failed to load original asset")
		}

		var existing models.DerivativeRoyalty
		err := tx.Where("derivative_asset_id = ?", req.DerivativeAssetID).First(&existing).Error
		if err == nil {
			return apperrors.InvalidState("derivative asset %d already has a royalty entry", req.DerivativeAssetID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Internal(err, "failed to check existing royalty entry")
		}

		entry = &models.DerivativeRoyalty{
			DerivativeAssetID: req.DerivativeAssetID,
			OriginalAssetID:   req.OriginalAssetID,
			OriginalCreatorID: original.CreatorID,
			RoyaltyBps:        req.RoyaltyBps,
			Active:            true,
		}
		if err := tx.Create(entry).Error; err != nil {
			return apperrors.Internal(err, "failed to create derivative royalty entry")
		}

		return s.assets.IncrementDerivativeCount(tx, req.OriginalAssetID)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"derivative_asset_id": req.DerivativeAssetID,
		"original_asset_id":   req.OriginalAssetID,
		"royalty_bps":         req.RoyaltyBps,
	}).Info("Derivative royalty configured")

	return entry, nil
}

// PayDerivativeRoyalty settles the royalty owed on a derivative's resale.
// The tendered amount must match the declared sale price exactly. The
// royalty share accrues to the original creator's claimable balance; the
// remainder stays with the payer, so only the share leaves their wallet.
func (s *RoyaltyService) PayDerivativeRoyalty(payerID uuid.UUID, req *PayDerivativeRoyaltyRequest) (int64, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return 0, apperrors.InvalidArgument("invalid royalty payment: %v", err)
	}
	if req.PaidAmount != req.SalePrice {
		return 0, apperrors.InvalidArgument("tendered %d does not match sale price %d", req.PaidAmount, req.SalePrice)
	}

	var royaltyAmount int64
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var entry models.DerivativeRoyalty
		err := database.LockForUpdate(tx).
			Where("derivative_asset_id = ? AND active = ?", req.DerivativeAssetID, true).
			First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.InvalidState("no active derivative royalty configured for asset %d", req.DerivativeAssetID)
		}
		if err != nil {
			return apperrors.Internal(err, "failed to load derivative royalty entry")
		}

		royaltyAmount = req.SalePrice * int64(entry.RoyaltyBps) / models.BpsDenominator

		// Effects.
		if err := s.accrue(tx, entry.OriginalCreatorID, royaltyAmount); err != nil {
			return err
		}

		payment := &models.RoyaltyPayment{
			PayerID: payerID,
			PayeeID: entry.OriginalCreatorID,
			Amount:  royaltyAmount,
			AssetID: &req.DerivativeAssetID,
			Kind:    models.PaymentKindDerivative,
		}
		if err := tx.Create(payment).Error; err != nil {
			return apperrors.Internal(err, "failed to record royalty payment")
		}

		// Interactions.
		return s.treasury.Debit(tx, payerID, royaltyAmount, models.WalletEntryRoyalty,
			fmt.Sprintf("derivative:%d", req.DerivativeAssetID))
	})
	if err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"derivative_asset_id": req.DerivativeAssetID,
		"payer_id":            payerID,
		"royalty_amount":      royaltyAmount,
	}).Info("Derivative royalty paid")

	return royaltyAmount, nil
}

// PayDirectRoyalty is a voluntary tip to a creator. The full amount accrues
// to the recipient's claimable balance; the audit row carries the message.
func (s *RoyaltyService) PayDirectRoyalty(payerID uuid.UUID, req *PayDirectRoyaltyRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return apperrors.InvalidArgument("invalid tip: %v", err)
	}
	if req.Amount <= 0 {
		return apperrors.InvalidArgument("tip amount must be positive")
	}
	if req.CreatorID == uuid.Nil {
		return apperrors.InvalidArgument("tip recipient must not be the null identity")
	}
	if req.CreatorID == payerID {
		return apperrors.InvalidArgument("self-tipping is not allowed")
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var recipient models.User
		if err := tx.First(&recipient, "id = ?", req.CreatorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("recipient %s not found", req.CreatorID)
			}
			return apperrors.Internal(err, "failed to load recipient")
		}

		if err := s.accrue(tx, req.CreatorID, req.Amount); err != nil {
			return err
		}

		payment := &models.RoyaltyPayment{
			PayerID: payerID,
			PayeeID: req.CreatorID,
			Amount:  req.Amount,
			Kind:    models.PaymentKindDirect,
			Message: req.Message,
		}
		if err := tx.Create(payment).Error; err != nil {
			return apperrors.Internal(err, "failed to record tip")
		}

		return s.treasury.Debit(tx, payerID, req.Amount, models.WalletEntryRoyalty,
			fmt.Sprintf("tip:%s", req.CreatorID))
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"payer_id":   payerID,
		"creator_id": req.CreatorID,
		"amount":     req.Amount,
	}).Info("Direct royalty paid")

	return nil
}

// ClaimRoyalties drains the caller's claimable balance into their wallet.
// The balance is zeroed before the wallet credit so a concurrent or repeated
// claim observes nothing left.
func (s *RoyaltyService) ClaimRoyalties(callerID uuid.UUID) (int64, error) {
	var claimed int64
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var balance models.ClaimableBalance
		err := database.LockForUpdate(tx).First(&balance, "user_id = ?", callerID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && balance.Amount == 0) {
			return apperrors.NothingToClaim("no claimable royalties for %s", callerID)
		}
		if err != nil {
			return apperrors.Internal(err, "failed to load claimable balance")
		}

		claimed = balance.Amount
		balance.Amount = 0
		if err := tx.Save(&balance).Error; err != nil {
			return apperrors.Internal(err, "failed to zero claimable balance")
		}

		return s.treasury.Credit(tx, callerID, claimed, models.WalletEntryClaim, "royalty claim")
	})
	if err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": callerID,
		"amount":  claimed,
	}).Info("Royalties claimed")

	return claimed, nil
}

// DeactivateDerivativeRoyalty switches a royalty entry off without deleting
// its history. Admin-only; the handler enforces the role.
func (s *RoyaltyService) DeactivateDerivativeRoyalty(derivativeAssetID uint64) error {
	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var entry models.DerivativeRoyalty
		err := database.LockForUpdate(tx).
			Where("derivative_asset_id = ?", derivativeAssetID).
			First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("no derivative royalty configured for asset %d", derivativeAssetID)
		}
		if err != nil {
			return apperrors.Internal(err, "failed to load derivative royalty entry")
		}

		if !entry.Active {
			return apperrors.InvalidState("derivative royalty for asset %d is already inactive", derivativeAssetID)
		}

		entry.Active = false
		if err := tx.Save(&entry).Error; err != nil {
			return apperrors.Internal(err, "failed to deactivate derivative royalty")
		}
		return nil
	})
}

// GetDerivativeRoyalty returns the royalty entry for a derivative asset.
func (s *RoyaltyService) GetDerivativeRoyalty(derivativeAssetID uint64) (*models.DerivativeRoyalty, error) {
	var entry models.DerivativeRoyalty
	err := s.db.Where("derivative_asset_id = ?", derivativeAssetID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("no derivative royalty configured for asset %d", derivativeAssetID)
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load derivative royalty entry")
	}
	return &entry, nil
}

// ClaimableBalance returns the user's accrued, unclaimed royalty credits.
func (s *RoyaltyService) ClaimableBalance(userID uuid.UUID) (int64, error) {
	var balance models.ClaimableBalance
	err := s.db.First(&balance, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.Internal(err, "failed to load claimable balance")
	}
	return balance.Amount, nil
}

// PaymentHistory returns the payee's royalty payments in insertion order.
func (s *RoyaltyService) PaymentHistory(payeeID uuid.UUID) ([]models.RoyaltyPayment, error) {
	var payments []models.RoyaltyPayment
	if err := s.db.Where("payee_id = ?", payeeID).Order("id ASC").Find(&payments).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to fetch payment history")
	}
	return payments, nil
}

// TotalEarned sums the payee's lifetime royalty receipts.
func (s *RoyaltyService) TotalEarned(payeeID uuid.UUID) (int64, error) {
	var total int64
	err := s.db.Model(&models.RoyaltyPayment{}).
		Where("payee_id = ?", payeeID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, apperrors.Internal(err, "failed to sum royalty payments")
	}
	return total, nil
}

// accrue adds to a claimable balance, creating the row on first use.
func (s *RoyaltyService) accrue(tx *gorm.DB, userID uuid.UUID, amount int64) error {
	if amount == 0 {
		return nil
	}

	var balance models.ClaimableBalance
	err := database.LockForUpdate(tx).First(&balance, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		balance = models.ClaimableBalance{UserID: userID, Amount: amount}
		if err := tx.Create(&balance).Error; err != nil {
			return apperrors.Internal(err, "failed to create claimable balance")
		}
		return nil
	}
	if err != nil {
		return apperrors.Internal(err, "failed to load claimable balance")
	}

	balance.Amount += amount
	if err := tx.Save(&balance).Error; err != nil {
		return apperrors.Internal(err, "failed to accrue claimable balance")
	}
	return nil
}
