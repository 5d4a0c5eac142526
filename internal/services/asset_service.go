// internal/services/asset_service.go
package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/apperrors"
	"github.com/printforge/printforge-backend/internal/database"
	"github.com/printforge/printforge-backend/internal/models"
	"github.com/printforge/printforge-backend/internal/utils"
)

// AssetService is the asset registry: the immutable-core record of each
// registered 3D model and its derivative linkage.
type AssetService struct {
	db *gorm.DB
}

type RegisterAssetRequest struct {
	ContentRef  string   `json:"content_ref" validate:"required"`
	MetadataRef string   `json:"metadata_ref" validate:"required"`
	Title       string   `json:"title,omitempty" validate:"max=255"`
	Tags        []string `json:"tags,omitempty"`
}

type AssetSearchParams struct {
	utils.PaginationParams
	CreatorID  *uuid.UUID `json:"creator_id,omitempty"`
	ActiveOnly bool       `json:"active_only,omitempty"`
	Tag        string     `json:"tag,omitempty"`
}

func NewAssetService(db *gorm.DB) *AssetService {
	return &AssetService{db: db}
}

// Register creates a new asset. Creator and content reference are fixed for
// the life of the asset.
func (s *AssetService) Register(creatorID uuid.UUID, req *RegisterAssetRequest) (*models.Asset, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.InvalidArgument("invalid registration: %v", err)
	}
	if req.ContentRef == "" || req.MetadataRef == "" {
		return nil, apperrors.InvalidArgument("content and metadata references must not be empty")
	}

	asset := &models.Asset{
		CreatorID:   creatorID,
		ContentRef:  req.ContentRef,
		MetadataRef: req.MetadataRef,
		Active:      true,
		Title:       req.Title,
		Tags:        pq.StringArray(req.Tags),
	}

	if err := s.db.Create(asset).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to register asset")
	}

	logrus.WithFields(logrus.Fields{
		"asset_id":   asset.ID,
		"creator_id": creatorID,
	}).Info("Asset registered")

	return asset, nil
}

// RegisterDerivative registers a new asset linked to an existing original,
// appends the derivative link, and bumps the original's derivative counter.
func (s *AssetService) RegisterDerivative(creatorID uuid.UUID, originalID uint64, req *RegisterAssetRequest) (*models.Asset, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.InvalidArgument("invalid registration: %v", err)
	}
	if req.ContentRef == "" || req.MetadataRef == "" {
		return nil, apperrors.InvalidArgument("content and metadata references must not be empty")
	}

	var asset *models.Asset
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var original models.Asset
		if err := database.LockForUpdate(tx).First(&original, originalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("original asset %d not found", originalID)
			}
			return apperrors.Internal(err, "failed to load original asset")
		}

		asset = &models.Asset{
			CreatorID:   creatorID,
			ContentRef:  req.ContentRef,
			MetadataRef: req.MetadataRef,
			Active:      true,
			OriginalID:  &originalID,
			Title:       req.Title,
			Tags:        pq.StringArray(req.Tags),
		}
		if err := tx.Create(asset).Error; err != nil {
			return apperrors.Internal(err, "failed to register derivative asset")
		}

		link := &models.DerivativeLink{OriginalID: originalID, DerivativeID: asset.ID}
		if err := tx.Create(link).Error; err != nil {
			return apperrors.Internal(err, "failed to append derivative link")
		}

		original.DerivativeCount++
		if err := tx.Save(&original).Error; err != nil {
			return apperrors.Internal(err, "failed to update derivative counter")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"asset_id":    asset.ID,
		"original_id": originalID,
		"creator_id":  creatorID,
	}).Info("Derivative asset registered")

	return asset, nil
}

// UpdateMetadata replaces the mutable metadata reference. Creator-only; the
// content reference is never touched.
func (s *AssetService) UpdateMetadata(assetID uint64, callerID uuid.UUID, newMetadataRef string) (*models.Asset, error) {
	if newMetadataRef == "" {
		return nil, apperrors.InvalidArgument("metadata reference must not be empty")
	}

	var asset models.Asset
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := database.LockForUpdate(tx).First(&asset, assetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("asset %d not found", assetID)
			}
			return apperrors.Internal(err, "failed to load asset")
		}

		if asset.CreatorID != callerID {
			return apperrors.Unauthorized("only the creator may update asset metadata")
		}

		asset.MetadataRef = newMetadataRef
		if err := tx.Save(&asset).Error; err != nil {
			return apperrors.Internal(err, "failed to update metadata reference")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// ToggleActive flips the active flag. Creator-only.
func (s *AssetService) ToggleActive(assetID uint64, callerID uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := database.LockForUpdate(tx).First(&asset, assetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("asset %d not found", assetID)
			}
			return apperrors.Internal(err, "failed to load asset")
		}

		if asset.CreatorID != callerID {
			return apperrors.Unauthorized("only the creator may toggle asset activity")
		}

		asset.Active = !asset.Active
		if err := tx.Save(&asset).Error; err != nil {
			return apperrors.Internal(err, "failed to toggle active flag")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// IncrementDerivativeCount bumps the derivative counter inside the caller's
// transaction. Only the royalty ledger holds this capability; it is used
// when royalty linkage is established outside registration.
func (s *AssetService) IncrementDerivativeCount(tx *gorm.DB, assetID uint64) error {
	var asset models.Asset
	if err := database.LockForUpdate(tx).First(&asset, assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("asset %d not found", assetID)
		}
		return apperrors.Internal(err, "failed to load asset")
	}

	asset.DerivativeCount++
	if err := tx.Save(&asset).Error; err != nil {
		return apperrors.Internal(err, "failed to increment derivative counter")
	}
	return nil
}

// GetAsset looks up one asset by id.
func (s *AssetService) GetAsset(assetID uint64) (*models.Asset, error) {
	var asset models.Asset
	if err := s.db.First(&asset, assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("asset %d not found", assetID)
		}
		return nil, apperrors.Internal(err, "failed to load asset")
	}
	return &asset, nil
}

// IsActive reports whether the asset exists and is active.
func (s *AssetService) IsActive(assetID uint64) (bool, error) {
	asset, err := s.GetAsset(assetID)
	if err != nil {
		return false, err
	}
	return asset.Active, nil
}

// GetByCreator returns the creator's assets in registration order.
func (s *AssetService) GetByCreator(creatorID uuid.UUID) ([]models.Asset, error) {
	var assets []models.Asset
	if err := s.db.Where("creator_id = ?", creatorID).Order("id ASC").Find(&assets).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to fetch creator assets")
	}
	return assets, nil
}

// GetDerivatives returns the derivative assets of an original, in link order.
func (s *AssetService) GetDerivatives(originalID uint64) ([]models.Asset, error) {
	if _, err := s.GetAsset(originalID); err != nil {
		return nil, err
	}

	var links []models.DerivativeLink
	if err := s.db.Where("original_id = ?", originalID).Order("id ASC").Find(&links).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to fetch derivative links")
	}

	ids := make([]uint64, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.DerivativeID)
	}
	if len(ids) == 0 {
		return []models.Asset{}, nil
	}

	var derivatives []models.Asset
	if err := s.db.Where("id IN ?", ids).Order("id ASC").Find(&derivatives).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to fetch derivative assets")
	}
	return derivatives, nil
}

// Count returns the total number of registered assets.
func (s *AssetService) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&models.Asset{}).Count(&count).Error; err != nil {
		return 0, apperrors.Internal(err, "failed to count assets")
	}
	return count, nil
}

// Search returns a paginated asset listing for the browse surface.
func (s *AssetService) Search(params AssetSearchParams) ([]models.Asset, int64, error) {
	query := s.db.Model(&models.Asset{})

	if params.CreatorID != nil {
		query = query.Where("creator_id = ?", *params.CreatorID)
	}
	if params.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if params.Search != "" {
		query = query.Where("title LIKE ?", "%"+params.Search+"%")
	}
	if params.Tag != "" {
		query = query.Where("? = ANY(tags)", params.Tag)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err, "failed to count assets")
	}

	allowedSortFields := []string{"created_at", "updated_at", "title"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var assets []models.Asset
	if err := query.Find(&assets).Error; err != nil {
		return nil, 0, apperrors.Internal(err, "failed to fetch assets")
	}

	return assets, total, nil
}
