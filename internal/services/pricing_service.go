// internal/services/pricing_service.go
package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/apperrors"
	"github.com/printforge/printforge-backend/internal/database"
	"github.com/printforge/printforge-backend/internal/models"
	"github.com/printforge/printforge-backend/internal/utils"
)

// PricingService holds the per-asset license price/duration table, royalty
// split, variations, supply cap, and the for-sale gate. It consults the
// asset registry for existence and creator checks; the license ledger
// consults it at purchase and renewal time.
type PricingService struct {
	db     *gorm.DB
	assets *AssetService
}

type TierConfigInput struct {
	Tier     models.LicenseTier `json:"tier" validate:"required,license_tier"`
	Price    int64              `json:"price" validate:"min=0"`
	Duration int64              `json:"duration" validate:"min=0"` // seconds, 0 = perpetual
}

type LicenseConfigRequest struct {
	Tiers []TierConfigInput `json:"tiers" validate:"required,min=1,dive"`
}

type AddVariationRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Price       int64  `json:"price" validate:"min=0"`
	MetadataRef string `json:"metadata_ref,omitempty" validate:"max=255"`
}

// AssetPricing is the read model for the pricing surface of one asset.
type AssetPricing struct {
	AssetID    uint64               `json:"asset_id"`
	Tiers      []models.TierPricing `json:"tiers"`
	SaleConfig *models.SaleConfig   `json:"sale_config,omitempty"`
	Variations []models.Variation   `json:"variations"`
}

func NewPricingService(db *gorm.DB, assets *AssetService) *PricingService {
	return &PricingService{db: db, assets: assets}
}

// SetLicenseConfig upserts price and duration for the given tiers in one
// transaction. Creator-only.
func (s *PricingService) SetLicenseConfig(assetID uint64, callerID uuid.UUID, req *LicenseConfigRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return apperrors.InvalidArgument("invalid license config: %v", err)
	}

	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := s.requireCreator(tx, assetID, callerID); err != nil {
			return err
		}
		for _, entry := range req.Tiers {
			if err := s.upsertTier(tx, assetID, entry.Tier, &entry.Price, &entry.Duration); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetLicensePrice sets the price of a single tier. Creator-only.
func (s *PricingService) SetLicensePrice(assetID uint64, tier models.LicenseTier, price int64, callerID uuid.UUID) error {
	if !tier.Valid() {
		return apperrors.InvalidArgument("unrecognized license tier %q", tier)
	}
	if price < 0 {
		return apperrors.InvalidArgument("price must not be negative")
	}

	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := s.requireCreator(tx, assetID, callerID); err != nil {
			return err
		}
		return s.upsertTier(tx, assetID, tier, &price, nil)
	})
}

// SetLicenseDuration sets the duration of a single tier, independently of
// its price. Creator-only.
func (s *PricingService) SetLicenseDuration(assetID uint64, tier models.LicenseTier, duration int64, callerID uuid.UUID) error {
	if !tier.Valid() {
		return apperrors.InvalidArgument("unrecognized license tier %q", tier)
	}
	if duration < 0 {
		return apperrors.InvalidArgument("duration must not be negative")
	}

	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := s.requireCreator(tx, assetID, callerID); err != nil {
			return err
		}
		return s.upsertTier(tx, assetID, tier, nil, &duration)
	})
}

// SetRoyalty configures the royalty recipient and rate. Creator-only; the
// rate is capped at MaxRoyaltyBps and the recipient must be a real identity.
func (s *PricingService) SetRoyalty(assetID uint64, recipientID uuid.UUID, bps uint32, callerID uuid.UUID) error {
	if bps > models.MaxRoyaltyBps {
		return apperrors.InvalidArgument("royalty rate %d exceeds cap of %d bps", bps, models.MaxRoyaltyBps)
	}
	if recipientID == uuid.Nil {
		return apperrors.InvalidArgument("royalty recipient must not be the null identity")
	}

	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := s.requireCreator(tx, assetID, callerID); err != nil {
			return err
		}

		cfg, err := s.saleConfigForUpdate(tx, assetID)
		if err != nil {
			return err
		}
		cfg.RoyaltyRecipientID = &recipientID
		cfg.RoyaltyBps = bps
		if err := tx.Save(cfg).Error; err != nil {
			return apperrors.Internal(err, "failed to set royalty")
		}
		return nil
	})
}

// AddVariation appends an active variation; its position is the append
// index. Creator-only.
func (s *PricingService) AddVariation(assetID uint64, callerID uuid.UUID, req *AddVariationRequest) (*models.Variation, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.InvalidArgument("invalid variation: %v", err)
	}

	var variation *models.Variation
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := s.requireCreator(tx, assetID, callerID); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Variation{}).Where("asset_id = ?", assetID).Count(&count).Error; err != nil {
			return apperrors.Internal(err, "failed to count variations")
		}

		variation = &models.Variation{
			AssetID:     assetID,
			Position:    uint32(count),
			Name:        req.Name,
			Price:       req.Price,
			MetadataRef: req.MetadataRef,
			Active:      true,
		}
		if err := tx.Create(variation).Error; err != nil {
			return apperrors.Internal(err, "failed to add variation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"asset_id": assetID,
		"position": variation.Position,
	}).Info("Variation added")

	return variation, nil
}

// ToggleVariationActive flips one variation by its append position.
// Creator-only; variations are never removed.
func (s *PricingService) ToggleVariationActive(assetID uint64, position uint32, callerID uuid.UUID) (*models.Variation, error) {
	var variation models.Variation
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := s.requireCreator(tx, assetID, callerID); err != nil {
			return err
		}

		err := database.LockForUpdate(tx).
			Where("asset_id = ? AND position = ?", assetID, position).
			First(&variation).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.InvalidArgument("variation index %d out of range", position)
		}
		if err != nil {
			return apperrors.Internal(err, "failed to load variation")
		}

		variation.Active = !variation.Active
		if err := tx.Save(&variation).Error; err != nil {
			return apperrors.Internal(err, "failed to toggle variation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &variation, nil
}

// SetMaxSupply sets the issuance cap. A nonzero cap below the current sold
// count is rejected; zero means unlimited. Creator-only.
func (s *PricingService) SetMaxSupply(assetID uint64, cap uint32, callerID uuid.UUID) error {
	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := s.requireCreator(tx, assetID, callerID); err != nil {
			return err
		}

		cfg, err := s.saleConfigForUpdate(tx, assetID)
		if err != nil {
			return err
		}
		if cap != 0 && cap < cfg.SoldCount {
			return apperrors.InvalidArgument("max supply %d is below sold count %d", cap, cfg.SoldCount)
		}

		cfg.MaxSupply = cap
		if err := tx.Save(cfg).Error; err != nil {
			return apperrors.Internal(err, "failed to set max supply")
		}
		return nil
	})
}

// ToggleForSale flips the for-sale gate, independently of the asset's
// active flag. Creator-only.
func (s *PricingService) ToggleForSale(assetID uint64, callerID uuid.UUID) (*models.SaleConfig, error) {
	var cfg *models.SaleConfig
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := s.requireCreator(tx, assetID, callerID); err != nil {
			return err
		}

		var err error
		cfg, err = s.saleConfigForUpdate(tx, assetID)
		if err != nil {
			return err
		}
		cfg.ForSale = !cfg.ForSale
		if err := tx.Save(cfg).Error; err != nil {
			return apperrors.Internal(err, "failed to toggle for-sale flag")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// IncrementSoldCount bumps the running sold counter inside the caller's
// transaction. Only the license ledger holds this capability.
func (s *PricingService) IncrementSoldCount(tx *gorm.DB, assetID uint64) error {
	cfg, err := s.saleConfigForUpdate(tx, assetID)
	if err != nil {
		return err
	}
	cfg.SoldCount++
	if err := tx.Save(cfg).Error; err != nil {
		return apperrors.Internal(err, "failed to increment sold count")
	}
	return nil
}

// GetLicensePrice returns the configured price for a tier; unset tiers
// default to zero.
func (s *PricingService) GetLicensePrice(assetID uint64, tier models.LicenseTier) (int64, error) {
	pricing, err := s.tierPricing(s.db, assetID, tier)
	if err != nil {
		return 0, err
	}
	return pricing.Price, nil
}

// GetLicenseDuration returns the configured duration in seconds for a tier;
// unset tiers default to perpetual.
func (s *PricingService) GetLicenseDuration(assetID uint64, tier models.LicenseTier) (int64, error) {
	pricing, err := s.tierPricing(s.db, assetID, tier)
	if err != nil {
		return 0, err
	}
	return pricing.Duration, nil
}

// GetTotalPrice sums the tier price with each referenced variation's price.
func (s *PricingService) GetTotalPrice(assetID uint64, tier models.LicenseTier, variationIDs []uint64) (int64, error) {
	return s.TotalPriceTx(s.db, assetID, tier, variationIDs)
}

// TotalPriceTx is GetTotalPrice inside an existing transaction. An unknown
// variation position rejects with InvalidArgument; an inactive one with
// InvalidState.
func (s *PricingService) TotalPriceTx(tx *gorm.DB, assetID uint64, tier models.LicenseTier, variationIDs []uint64) (int64, error) {
	pricing, err := s.tierPricing(tx, assetID, tier)
	if err != nil {
		return 0, err
	}
	total := pricing.Price

	for _, position := range variationIDs {
		var variation models.Variation
		err := tx.Where("asset_id = ? AND position = ?", assetID, position).First(&variation).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.InvalidArgument("variation index %d out of range", position)
		}
		if err != nil {
			return 0, apperrors.Internal(err, "failed to load variation")
		}
		if !variation.Active {
			return 0, apperrors.InvalidState("variation %d is not active", position)
		}
		total += variation.Price
	}

	return total, nil
}

// CanPurchase reports whether the asset is active, for sale, and under its
// supply cap.
func (s *PricingService) CanPurchase(assetID uint64) (bool, error) {
	return s.CanPurchaseTx(s.db, assetID)
}

// CanPurchaseTx is CanPurchase inside an existing transaction.
func (s *PricingService) CanPurchaseTx(tx *gorm.DB, assetID uint64) (bool, error) {
	var asset models.Asset
	if err := tx.First(&asset, assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperrors.NotFound("asset %d not found", assetID)
		}
		return false, apperrors.Internal(err, "failed to load asset")
	}
	if !asset.Active {
		return false, nil
	}

	var cfg models.SaleConfig
	err := tx.Where("asset_id = ?", assetID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Never put up for sale.
		return false, nil
	}
	if err != nil {
		return false, apperrors.Internal(err, "failed to load sale config")
	}

	if !cfg.ForSale {
		return false, nil
	}
	if cfg.MaxSupply != 0 && cfg.SoldCount >= cfg.MaxSupply {
		return false, nil
	}
	return true, nil
}

// GetActiveVariations returns only the active variations, preserving append
// order.
func (s *PricingService) GetActiveVariations(assetID uint64) ([]models.Variation, error) {
	var variations []models.Variation
	if err := s.db.Where("asset_id = ? AND active = ?", assetID, true).
		Order("position ASC").Find(&variations).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to fetch variations")
	}
	return variations, nil
}

// RoyaltyInfo returns the configured recipient and the royalty amount for a
// sale price, using integer floor division. No configuration means no
// royalty.
func (s *PricingService) RoyaltyInfo(assetID uint64, salePrice int64) (*uuid.UUID, int64, error) {
	return s.RoyaltyInfoTx(s.db, assetID, salePrice)
}

// TierTermsTx returns the configured terms of one tier inside an existing
// transaction. The license ledger snapshots these at purchase time.
func (s *PricingService) TierTermsTx(tx *gorm.DB, assetID uint64, tier models.LicenseTier) (*models.TierPricing, error) {
	return s.tierPricing(tx, assetID, tier)
}

// RoyaltyConfigTx returns the raw royalty recipient and rate for snapshotting
// onto a license record. No configuration means a nil recipient and zero bps.
func (s *PricingService) RoyaltyConfigTx(tx *gorm.DB, assetID uint64) (*uuid.UUID, uint32, error) {
	var cfg models.SaleConfig
	err := tx.Where("asset_id = ?", assetID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, apperrors.Internal(err, "failed to load sale config")
	}
	return cfg.RoyaltyRecipientID, cfg.RoyaltyBps, nil
}

// RoyaltyInfoTx is RoyaltyInfo inside an existing transaction.
func (s *PricingService) RoyaltyInfoTx(tx *gorm.DB, assetID uint64, salePrice int64) (*uuid.UUID, int64, error) {
	var cfg models.SaleConfig
	err := tx.Where("asset_id = ?", assetID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, apperrors.Internal(err, "failed to load sale config")
	}

	if cfg.RoyaltyRecipientID == nil || cfg.RoyaltyBps == 0 {
		return nil, 0, nil
	}

	amount := salePrice * int64(cfg.RoyaltyBps) / models.BpsDenominator
	return cfg.RoyaltyRecipientID, amount, nil
}

// GetPricing assembles the full pricing view of one asset.
func (s *PricingService) GetPricing(assetID uint64) (*AssetPricing, error) {
	if _, err := s.assets.GetAsset(assetID); err != nil {
		return nil, err
	}

	var tiers []models.TierPricing
	if err := s.db.Where("asset_id = ?", assetID).Order("id ASC").Find(&tiers).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to fetch tier pricing")
	}

	var variations []models.Variation
	if err := s.db.Where("asset_id = ?", assetID).Order("position ASC").Find(&variations).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to fetch variations")
	}

	pricing := &AssetPricing{
		AssetID:    assetID,
		Tiers:      tiers,
		Variations: variations,
	}

	var cfg models.SaleConfig
	err := s.db.Where("asset_id = ?", assetID).First(&cfg).Error
	if err == nil {
		pricing.SaleConfig = &cfg
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal(err, "failed to fetch sale config")
	}

	return pricing, nil
}

// requireCreator loads the asset and rejects callers other than its creator.
func (s *PricingService) requireCreator(tx *gorm.DB, assetID uint64, callerID uuid.UUID) error {
	var asset models.Asset
	if err := tx.First(&asset, assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("asset %d not found", assetID)
		}
		return apperrors.Internal(err, "failed to load asset")
	}
	if asset.CreatorID != callerID {
		return apperrors.Unauthorized("only the asset creator may configure pricing")
	}
	return nil
}

// saleConfigForUpdate loads the asset's sale config with a row lock,
// creating the row on first write.
func (s *PricingService) saleConfigForUpdate(tx *gorm.DB, assetID uint64) (*models.SaleConfig, error) {
	var cfg models.SaleConfig
	err := database.LockForUpdate(tx).Where("asset_id = ?", assetID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = models.SaleConfig{AssetID: assetID}
		if err := tx.Create(&cfg).Error; err != nil {
			return nil, apperrors.Internal(err, "failed to create sale config")
		}
		return &cfg, nil
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load sale config")
	}
	return &cfg, nil
}

// upsertTier writes price and/or duration for one (asset, tier) row.
func (s *PricingService) upsertTier(tx *gorm.DB, assetID uint64, tier models.LicenseTier, price, duration *int64) error {
	var pricing models.TierPricing
	err := database.LockForUpdate(tx).
		Where("asset_id = ? AND tier = ?", assetID, tier).
		First(&pricing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		pricing = models.TierPricing{AssetID: assetID, Tier: tier}
	} else if err != nil {
		return apperrors.Internal(err, "failed to load tier pricing")
	}

	if price != nil {
		pricing.Price = *price
	}
	if duration != nil {
		pricing.Duration = *duration
	}

	if err := tx.Save(&pricing).Error; err != nil {
		return apperrors.Internal(err, "failed to save tier pricing")
	}
	return nil
}

// tierPricing reads one (asset, tier) row; absent rows fall back to the
// zero defaults (free, perpetual).
func (s *PricingService) tierPricing(tx *gorm.DB, assetID uint64, tier models.LicenseTier) (*models.TierPricing, error) {
	if !tier.Valid() {
		return nil, apperrors.InvalidArgument("unrecognized license tier %q", tier)
	}

	var asset models.Asset
	if err := tx.First(&asset, assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("asset %d not found", assetID)
		}
		return nil, apperrors.Internal(err, "failed to load asset")
	}

	var pricing models.TierPricing
	err := tx.Where("asset_id = ? AND tier = ?", assetID, tier).First(&pricing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.TierPricing{AssetID: assetID, Tier: tier}, nil
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load tier pricing")
	}
	return &pricing, nil
}
