// internal/services/license_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/apperrors"
	"github.com/printforge/printforge-backend/internal/database"
	"github.com/printforge/printforge-backend/internal/models"
	"github.com/printforge/printforge-backend/internal/utils"
)

// LicenseService issues license records against payment and tracks their
// expiry/burn/renewal state. It holds explicit handles on the asset registry,
// the pricing config, and the treasury; no component authenticates another,
// only the calling end-user identity.
//
// Every mutating operation follows checks-effects-interactions: validate
// preconditions, write ledger rows and counters, and only then move funds.
// The whole operation is one transaction, so a failure anywhere leaves no
// partial effects.
type LicenseService struct {
	db       *gorm.DB
	assets   *AssetService
	pricing  *PricingService
	treasury *TreasuryService
}

type PurchaseRequest struct {
	AssetID      uint64             `json:"asset_id" validate:"required"`
	Tier         models.LicenseTier `json:"tier" validate:"required,license_tier"`
	VariationIDs []uint64           `json:"variation_ids,omitempty"`
	PaidAmount   int64              `json:"paid_amount" validate:"min=0"`
}

type RenewRequest struct {
	PaidAmount int64 `json:"paid_amount" validate:"min=0"`
}

type TransferRequest struct {
	To uuid.UUID `json:"to" validate:"required"`
}

func NewLicenseService(db *gorm.DB, assets *AssetService, pricing *PricingService, treasury *TreasuryService) *LicenseService {
	return &LicenseService{
		db:       db,
		assets:   assets,
		pricing:  pricing,
		treasury: treasury,
	}
}

// Purchase issues a new license record. The record snapshots the asset's
// current metadata reference and royalty configuration so later creator
// edits cannot retroactively change the license terms. Payment splits the
// tendered amount: the royalty share to the configured recipient, the
// remainder (including any floor-division remainder) to the creator.
func (s *LicenseService) Purchase(buyerID uuid.UUID, req *PurchaseRequest) (*models.LicenseRecord, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.InvalidArgument("invalid purchase: %v", err)
	}

	var record *models.LicenseRecord
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		// Checks. Locking the asset row serializes purchases per asset.
		var asset models.Asset
		if err := database.LockForUpdate(tx).First(&asset, req.AssetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("asset %d not found", req.AssetID)
			}
			return apperrors.Internal(err, "failed to load asset")
		}

		ok, err := s.pricing.CanPurchaseTx(tx, req.AssetID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Unavailable("asset %d is not available for purchase", req.AssetID)
		}

		total, err := s.pricing.TotalPriceTx(tx, req.AssetID, req.Tier, req.VariationIDs)
		if err != nil {
			return err
		}
		if req.PaidAmount < total {
			return apperrors.InsufficientPayment("paid %d, total price is %d", req.PaidAmount, total)
		}

		terms, err := s.pricing.TierTermsTx(tx, req.AssetID, req.Tier)
		if err != nil {
			return err
		}

		royaltyRecipient, royaltyBps, err := s.pricing.RoyaltyConfigTx(tx, req.AssetID)
		if err != nil {
			return err
		}

		now := time.Now()
		expiresAt := models.ExpiryPerpetual
		if terms.Duration > 0 {
			expiresAt = now.Unix() + terms.Duration
		}

		// Effects.
		record = &models.LicenseRecord{
			AssetID:            req.AssetID,
			OwnerID:            buyerID,
			Tier:               req.Tier,
			PricePaid:          req.PaidAmount,
			ExpiresAt:          expiresAt,
			Duration:           terms.Duration,
			VariationIDs:       models.IDList(req.VariationIDs),
			MetadataRef:        asset.MetadataRef,
			RoyaltyBps:         royaltyBps,
			RoyaltyRecipientID: royaltyRecipient,
		}
		if err := tx.Create(record).Error; err != nil {
			return apperrors.Internal(err, "failed to create license record")
		}

		if err := s.pricing.IncrementSoldCount(tx, req.AssetID); err != nil {
			return err
		}

		// Interactions.
		return s.distribute(tx, buyerID, asset.CreatorID, royaltyRecipient, royaltyBps, req.PaidAmount,
			fmt.Sprintf("license:%d", record.ID))
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"record_id": record.ID,
		"asset_id":  req.AssetID,
		"buyer_id":  buyerID,
		"tier":      req.Tier,
		"paid":      req.PaidAmount,
	}).Info("License purchased")

	return record, nil
}

// BurnForDownload retires the record in exchange for a one-time download
// key. Burning is terminal: the record can no longer transfer and the key
// never changes.
func (s *LicenseService) BurnForDownload(recordID uint64, callerID uuid.UUID) (string, error) {
	var key string
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		record, err := s.recordForUpdate(tx, recordID)
		if err != nil {
			return err
		}

		if record.OwnerID != callerID {
			return apperrors.Unauthorized("only the record owner may burn it")
		}
		if record.Burned {
			return apperrors.InvalidState("license record %d is already burned", recordID)
		}

		now := time.Now()
		if !record.ValidAt(now) {
			return apperrors.InvalidState("license record %d has expired", recordID)
		}

		key, err = utils.GenerateDownloadKey(record.ID, callerID, now)
		if err != nil {
			return apperrors.Internal(err, "failed to generate download key")
		}

		record.Burned = true
		record.DownloadKey = key
		if err := tx.Save(record).Error; err != nil {
			return apperrors.Internal(err, "failed to burn license record")
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"record_id": recordID,
		"owner_id":  callerID,
	}).Info("License burned for download")

	return key, nil
}

// Renew extends a non-perpetual record by exactly its snapshotted original
// duration, added to the old expiry. A lapsed renewal window is preserved as
// a gap rather than erased. The price check uses the tier's current price;
// the payment split uses the snapshotted royalty rate.
func (s *LicenseService) Renew(recordID uint64, paidAmount int64, callerID uuid.UUID) (int64, error) {
	var newExpiry int64
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		record, err := s.recordForUpdate(tx, recordID)
		if err != nil {
			return err
		}

		if record.OwnerID != callerID {
			return apperrors.Unauthorized("only the record owner may renew it")
		}
		if record.Burned {
			return apperrors.InvalidState("license record %d is already burned", recordID)
		}
		if record.IsPerpetual() {
			return apperrors.InvalidState("perpetual license record %d is not renewable", recordID)
		}

		terms, err := s.pricing.TierTermsTx(tx, record.AssetID, record.Tier)
		if err != nil {
			return err
		}
		if paidAmount < terms.Price {
			return apperrors.InsufficientPayment("paid %d, renewal price is %d", paidAmount, terms.Price)
		}

		var asset models.Asset
		if err := tx.First(&asset, record.AssetID).Error; err != nil {
			return apperrors.Internal(err, "failed to load asset")
		}

		// Effects.
		newExpiry = record.ExpiresAt + record.Duration
		record.ExpiresAt = newExpiry
		if err := tx.Save(record).Error; err != nil {
			return apperrors.Internal(err, "failed to renew license record")
		}

		// Interactions: split by the snapshotted rate, not the asset's
		// current royalty configuration.
		return s.distribute(tx, callerID, asset.CreatorID, record.RoyaltyRecipientID, record.RoyaltyBps, paidAmount,
			fmt.Sprintf("renewal:%d", record.ID))
	})
	if err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"record_id":  recordID,
		"new_expiry": newExpiry,
	}).Info("License renewed")

	return newExpiry, nil
}

// Transfer moves the record between owners. Burned records are retired from
// transfer.
func (s *LicenseService) Transfer(recordID uint64, fromID, toID uuid.UUID) (*models.LicenseRecord, error) {
	if toID == uuid.Nil {
		return nil, apperrors.InvalidArgument("transfer target must not be the null identity")
	}

	var record *models.LicenseRecord
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var err error
		record, err = s.recordForUpdate(tx, recordID)
		if err != nil {
			return err
		}

		if record.OwnerID != fromID {
			return apperrors.Unauthorized("caller does not own license record %d", recordID)
		}
		if record.Burned {
			return apperrors.InvalidState("burned license record %d cannot be transferred", recordID)
		}

		record.OwnerID = toID
		if err := tx.Save(record).Error; err != nil {
			return apperrors.Internal(err, "failed to transfer license record")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"record_id": recordID,
		"from":      fromID,
		"to":        toID,
	}).Info("License transferred")

	return record, nil
}

// IsLicenseValid reports whether the record is perpetual or not yet lapsed.
func (s *LicenseService) IsLicenseValid(recordID uint64) (bool, error) {
	record, err := s.GetRecord(recordID)
	if err != nil {
		return false, err
	}
	return record.ValidAt(time.Now()), nil
}

// TimeRemaining returns the seconds of validity left: the unbounded sentinel
// for perpetual records, zero once expired.
func (s *LicenseService) TimeRemaining(recordID uint64) (int64, error) {
	record, err := s.GetRecord(recordID)
	if err != nil {
		return 0, err
	}

	if record.IsPerpetual() {
		return models.TimeRemainingUnbounded, nil
	}

	remaining := record.ExpiresAt - time.Now().Unix()
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// GetRecord looks up one license record by id.
func (s *LicenseService) GetRecord(recordID uint64) (*models.LicenseRecord, error) {
	var record models.LicenseRecord
	if err := s.db.First(&record, recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("license record %d not found", recordID)
		}
		return nil, apperrors.Internal(err, "failed to load license record")
	}
	return &record, nil
}

// GetByOwner returns the owner's records. Ordering follows record id; it is
// not guaranteed stable across transfers.
func (s *LicenseService) GetByOwner(ownerID uuid.UUID, params utils.PaginationParams) ([]models.LicenseRecord, int64, error) {
	query := s.db.Model(&models.LicenseRecord{}).Where("owner_id = ?", ownerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err, "failed to count license records")
	}

	allowedSortFields := []string{"created_at", "expires_at", "price_paid"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var records []models.LicenseRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, apperrors.Internal(err, "failed to fetch license records")
	}
	return records, total, nil
}

// VerifyLicense returns the record if it is currently valid and unburned,
// for the public verification surface.
func (s *LicenseService) VerifyLicense(recordID uint64) (*models.LicenseRecord, error) {
	record, err := s.GetRecord(recordID)
	if err != nil {
		return nil, err
	}

	if record.Burned {
		return nil, apperrors.InvalidState("license record %d has been burned", recordID)
	}
	if !record.ValidAt(time.Now()) {
		return nil, apperrors.InvalidState("license record %d has expired", recordID)
	}
	return record, nil
}

// distribute moves the tendered amount: debit the payer, credit the royalty
// share, credit the creator with the remainder. Floor-division remainders go
// to the creator, never dropped.
func (s *LicenseService) distribute(tx *gorm.DB, payerID, creatorID uuid.UUID, royaltyRecipient *uuid.UUID, royaltyBps uint32, amount int64, reference string) error {
	if err := s.treasury.Debit(tx, payerID, amount, models.WalletEntryPurchase, reference); err != nil {
		return err
	}

	var royaltyAmount int64
	if royaltyRecipient != nil && royaltyBps > 0 {
		royaltyAmount = amount * int64(royaltyBps) / models.BpsDenominator
		if err := s.treasury.Credit(tx, *royaltyRecipient, royaltyAmount, models.WalletEntryRoyalty, reference); err != nil {
			return err
		}
	}

	return s.treasury.Credit(tx, creatorID, amount-royaltyAmount, models.WalletEntryProceeds, reference)
}

// recordForUpdate loads a record with a row lock.
func (s *LicenseService) recordForUpdate(tx *gorm.DB, recordID uint64) (*models.LicenseRecord, error) {
	var record models.LicenseRecord
	if err := database.LockForUpdate(tx).First(&record, recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("license record %d not found", recordID)
		}
		return nil, apperrors.Internal(err, "failed to load license record")
	}
	return &record, nil
}
