// internal/services/asset_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/apperrors"
	"github.com/printforge/printforge-backend/internal/models"
)

type AssetServiceSuite struct {
	suite.Suite
	db      *gorm.DB
	assets  *AssetService
	creator *models.User
	other   *models.User
}

func (suite *AssetServiceSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.assets = NewAssetService(suite.db)
	suite.creator = newTestUser(suite.T(), suite.db, models.UserTypeCreator)
	suite.other = newTestUser(suite.T(), suite.db, models.UserTypeCreator)
}

func (suite *AssetServiceSuite) register(ref string) *models.Asset {
	asset, err := suite.assets.Register(suite.creator.ID, &RegisterAssetRequest{
		ContentRef:  ref,
		MetadataRef: "meta:" + ref,
	})
	suite.Require().NoError(err)
	return asset
}

func (suite *AssetServiceSuite) TestRegister() {
	asset := suite.register("models/dragon.stl")

	suite.Equal(suite.creator.ID, asset.CreatorID)
	suite.Equal("models/dragon.stl", asset.ContentRef)
	suite.True(asset.Active)
	suite.False(asset.IsDerivative())
	suite.EqualValues(0, asset.DerivativeCount)
}

func (suite *AssetServiceSuite) TestRegisterRejectsEmptyRefs() {
	_, err := suite.assets.Register(suite.creator.ID, &RegisterAssetRequest{
		ContentRef:  "",
		MetadataRef: "meta",
	})
	suite.True(apperrors.IsKind(err, apperrors.KindInvalidArgument))
}

func (suite *AssetServiceSuite) TestRegisterDerivative() {
	original := suite.register("models/base.stl")

	derivative, err := suite.assets.RegisterDerivative(suite.other.ID, original.ID, &RegisterAssetRequest{
		ContentRef:  "models/remix.stl",
		MetadataRef: "meta:remix",
	})
	suite.Require().NoError(err)

	suite.True(derivative.IsDerivative())
	suite.Equal(original.ID, *derivative.OriginalID)

	reloaded, err := suite.assets.GetAsset(original.ID)
	suite.Require().NoError(err)
	suite.EqualValues(1, reloaded.DerivativeCount)

	derivatives, err := suite.assets.GetDerivatives(original.ID)
	suite.Require().NoError(err)
	suite.Require().Len(derivatives, 1)
	suite.Equal(derivative.ID, derivatives[0].ID)
}

func (suite *AssetServiceSuite) TestRegisterDerivativeMissingOriginal() {
	_, err := suite.assets.RegisterDerivative(suite.other.ID, 9999, &RegisterAssetRequest{
		ContentRef:  "models/remix.stl",
		MetadataRef: "meta:remix",
	})
	suite.True(apperrors.IsKind(err, apperrors.KindNotFound))
}

func (suite *AssetServiceSuite) TestUpdateMetadataCreatorOnly() {
	asset := suite.register("models/gear.stl")

	_, err := suite.assets.UpdateMetadata(asset.ID, suite.other.ID, "meta:v2")
	suite.True(apperrors.IsKind(err, apperrors.KindUnauthorized))

	updated, err := suite.assets.UpdateMetadata(asset.ID, suite.creator.ID, "meta:v2")
	suite.Require().NoError(err)
	suite.Equal("meta:v2", updated.MetadataRef)

	// The content reference never moves.
	suite.Equal("models/gear.stl", updated.ContentRef)
}

func (suite *AssetServiceSuite) TestCreatorAndCreationTimeImmutable() {
	asset := suite.register("models/bracket.stl")

	// No sequence of mutations moves the creator or the creation time.
	_, err := suite.assets.UpdateMetadata(asset.ID, suite.creator.ID, "meta:v2")
	suite.Require().NoError(err)
	_, err = suite.assets.ToggleActive(asset.ID, suite.creator.ID)
	suite.Require().NoError(err)
	_, err = suite.assets.ToggleActive(asset.ID, suite.creator.ID)
	suite.Require().NoError(err)
	_, err = suite.assets.UpdateMetadata(asset.ID, suite.creator.ID, "meta:v3")
	suite.Require().NoError(err)

	reloaded, err := suite.assets.GetAsset(asset.ID)
	suite.Require().NoError(err)
	suite.Equal(suite.creator.ID, reloaded.CreatorID)
	suite.True(reloaded.CreatedAt.Equal(asset.CreatedAt))
	suite.Equal("meta:v3", reloaded.MetadataRef)
}

func (suite *AssetServiceSuite) TestToggleActive() {
	asset := suite.register("models/vase.stl")

	_, err := suite.assets.ToggleActive(asset.ID, suite.other.ID)
	suite.True(apperrors.IsKind(err, apperrors.KindUnauthorized))

	toggled, err := suite.assets.ToggleActive(asset.ID, suite.creator.ID)
	suite.Require().NoError(err)
	suite.False(toggled.Active)

	active, err := suite.assets.IsActive(asset.ID)
	suite.Require().NoError(err)
	suite.False(active)
}

func (suite *AssetServiceSuite) TestGetByCreatorOrder() {
	first := suite.register("models/a.stl")
	second := suite.register("models/b.stl")

	assets, err := suite.assets.GetByCreator(suite.creator.ID)
	suite.Require().NoError(err)
	suite.Require().Len(assets, 2)
	suite.Equal(first.ID, assets[0].ID)
	suite.Equal(second.ID, assets[1].ID)
}

func TestAssetServiceSuite(t *testing.T) {
	suite.Run(t, new(AssetServiceSuite))
}
